package camera

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ImageSource replays a single still image as an endless frame stream.
// Useful for bench testing without a camera.
type ImageSource struct {
	img    gocv.Mat
	mu     sync.Mutex
	closed bool
}

// OpenImage loads path as a BGR image.
func OpenImage(path string) (*ImageSource, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("%w: cannot read image %s", ErrOpen, path)
	}
	return NewImageSource(img), nil
}

// NewImageSource wraps an existing Mat. The source takes ownership of img.
func NewImageSource(img gocv.Mat) *ImageSource {
	return &ImageSource{img: img}
}

// Read implements Source.
func (s *ImageSource) Read(ctx context.Context, dst *gocv.Mat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.img.CopyTo(dst); err != nil {
		return fmt.Errorf("camera: copy frame: %w", err)
	}
	return nil
}

// Close implements Source.
func (s *ImageSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.img.Close()
}
