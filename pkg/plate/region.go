package plate

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-plates/pkg/debug"
)

// Region is a candidate plate area: the axis-aligned bounding box of a contour
// together with the contour's own polygon area.
type Region struct {
	Rect image.Rectangle `json:"rect"`
	Area float64         `json:"area"`
}

// ToGray converts a BGR frame to a single channel intensity image.
func ToGray(frame gocv.Mat, gray *gocv.Mat) error {
	if err := gocv.CvtColor(frame, gray, gocv.ColorBGRToGray); err != nil {
		return fmt.Errorf("%w: gray conversion: %v", ErrPreprocess, err)
	}
	if gray.Empty() {
		return fmt.Errorf("%w: gray conversion", ErrPreprocess)
	}
	return nil
}

// FindCandidates blurs and edge-detects a gray image, extracts the outermost
// contours and keeps those whose area exceeds cfg.MinArea.
// Regions come back in contour extraction order.
func FindCandidates(gray gocv.Mat, cfg Config) ([]Region, error) {
	blurred := gocv.NewMat()
	defer blurred.Close()
	ksize := image.Pt(cfg.BlurKernel, cfg.BlurKernel)
	if err := gocv.GaussianBlur(gray, &blurred, ksize, cfg.BlurSigma, cfg.BlurSigma, gocv.BorderDefault); err != nil {
		return nil, fmt.Errorf("%w: blur: %v", ErrPreprocess, err)
	}
	if blurred.Empty() {
		return nil, fmt.Errorf("%w: blur", ErrPreprocess)
	}

	edges := gocv.NewMat()
	defer edges.Close()
	if err := gocv.Canny(blurred, &edges, cfg.CannyLow, cfg.CannyHigh); err != nil {
		return nil, fmt.Errorf("%w: edge detection: %v", ErrPreprocess, err)
	}
	if edges.Empty() {
		return nil, fmt.Errorf("%w: edge detection", ErrPreprocess)
	}

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var regions []Region
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area <= cfg.MinArea {
			continue
		}
		r := Region{Rect: gocv.BoundingRect(contour), Area: area}
		debug.DetectLog("🔲 candidate %d: %v area=%.0f\n", i, r.Rect, area)
		regions = append(regions, r)
	}

	return regions, nil
}

// SortRegions orders regions left to right, then top to bottom.
func SortRegions(regions []Region) {
	sort.SliceStable(regions, func(i, j int) bool {
		a, b := regions[i].Rect.Min, regions[j].Rect.Min
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
}
