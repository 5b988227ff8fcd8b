package plate

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Label returns the overlay text for a decoded value.
func Label(cfg Config, text string) string {
	return cfg.LabelPrefix + text
}

// LabelOrigin returns the text baseline origin for a label drawn above rect.
// The baseline sits LabelOffset pixels above the rectangle. With ClampLabel
// set it is pushed down so a label of textHeight stays inside the frame.
func LabelOrigin(rect image.Rectangle, textHeight int, cfg Config) image.Point {
	org := image.Pt(rect.Min.X, rect.Min.Y-cfg.LabelOffset)
	if cfg.ClampLabel && org.Y < textHeight {
		org.Y = textHeight
	}
	return org
}

// Annotate draws the region rectangle and its "Plate: <text>" label on frame.
// Both use 8-connected lines so the stroke is exactly cfg.Color.
func Annotate(frame *gocv.Mat, rect image.Rectangle, text string, cfg Config) error {
	label := Label(cfg, text)
	size := gocv.GetTextSize(label, gocv.FontHersheySimplex, cfg.FontScale, cfg.Thickness)

	if err := gocv.RectangleWithParams(frame, rect, cfg.Color, cfg.Thickness, gocv.Line8, 0); err != nil {
		return fmt.Errorf("%w: rectangle: %v", ErrAnnotate, err)
	}
	org := LabelOrigin(rect, size.Y, cfg)
	if err := gocv.PutText(frame, label, org, gocv.FontHersheySimplex, cfg.FontScale, cfg.Color, cfg.Thickness); err != nil {
		return fmt.Errorf("%w: label: %v", ErrAnnotate, err)
	}
	return nil
}
