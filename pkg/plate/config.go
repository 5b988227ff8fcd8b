// Package plate locates plate-like rectangular regions in camera frames,
// decodes the barcode or QR symbol inside each one and annotates the frame.
package plate

import (
	"fmt"
	"image/color"
)

// Order controls the order candidate regions are visited in.
type Order string

const (
	// OrderExtraction keeps the order returned by contour extraction.
	OrderExtraction Order = "extraction"

	// OrderSpatial sorts regions left to right, then top to bottom.
	OrderSpatial Order = "spatial"
)

// Green is the annotation color.
var Green = color.RGBA{R: 0, G: 255, B: 0, A: 0}

// Config holds the tunable detection parameters.
type Config struct {
	// === Preprocessing ===
	BlurKernel int     `json:"blur_kernel"` // Gaussian kernel size (odd)
	BlurSigma  float64 `json:"blur_sigma"`  // 0 derives sigma from kernel size
	CannyLow   float32 `json:"canny_low"`   // Weak edge threshold
	CannyHigh  float32 `json:"canny_high"`  // Strong edge threshold

	// === Filtering ===
	// MinArea is the exclusive lower bound on contour area.
	MinArea float64 `json:"min_area"`
	Order   Order   `json:"order"`

	// === Annotation ===
	LabelPrefix string     `json:"label_prefix"`
	LabelOffset int        `json:"label_offset"` // Pixels above the rectangle top
	ClampLabel  bool       `json:"clamp_label"`  // Keep the label inside the frame
	FontScale   float64    `json:"font_scale"`
	Thickness   int        `json:"thickness"`
	Color       color.RGBA `json:"-"`
}

// DefaultConfig returns the classic plate detection settings.
func DefaultConfig() Config {
	return Config{
		BlurKernel: 5,
		BlurSigma:  0,
		CannyLow:   50,
		CannyHigh:  150,

		MinArea: 1000,
		Order:   OrderExtraction,

		LabelPrefix: "Plate: ",
		LabelOffset: 10,
		ClampLabel:  true,
		FontScale:   0.5,
		Thickness:   2,
		Color:       Green,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.BlurKernel < 1 || c.BlurKernel%2 == 0 {
		errors = append(errors, "blur_kernel must be a positive odd number")
	}
	if c.BlurSigma < 0 {
		errors = append(errors, "blur_sigma must be >= 0")
	}
	if c.CannyLow < 0 || c.CannyHigh <= c.CannyLow {
		errors = append(errors, "canny thresholds must satisfy 0 <= canny_low < canny_high")
	}
	if c.MinArea < 0 {
		errors = append(errors, "min_area must be >= 0")
	}
	if c.Order != OrderExtraction && c.Order != OrderSpatial {
		errors = append(errors, fmt.Sprintf("order must be %q or %q", OrderExtraction, OrderSpatial))
	}
	if c.FontScale <= 0 {
		errors = append(errors, "font_scale must be positive")
	}
	if c.Thickness < 1 {
		errors = append(errors, "thickness must be >= 1")
	}

	return errors
}
