package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-plates/internal/log"
)

// Sentinel errors for frame acquisition.
var (
	// ErrOpen is returned when the device cannot be opened.
	ErrOpen = errors.New("camera: open failed")

	// ErrReadTimeout is returned when a frame does not arrive within ReadTimeout.
	ErrReadTimeout = errors.New("camera: read timed out")

	// ErrNoFrame is returned when the device reports no frame (disconnected or end of file).
	ErrNoFrame = errors.New("camera: no frame")

	// ErrClosed is returned when reading from a closed source.
	ErrClosed = errors.New("camera: closed")

	// ErrBusy is returned when settings arrive while a frame read is in flight.
	ErrBusy = errors.New("camera: busy")
)

// Source produces BGR frames.
type Source interface {
	// Read fills dst with the next frame, blocking until one arrives.
	Read(ctx context.Context, dst *gocv.Mat) error

	// Close releases the device.
	Close() error
}

// Capture is a Source backed by an OpenCV VideoCapture.
// Its Read cannot be interrupted; wrap it with WithTimeout.
type Capture struct {
	vc     *gocv.VideoCapture
	mu     sync.Mutex
	closed bool
}

// Open opens the configured device and applies resolution and frame rate.
func Open(cfg Config) (*Capture, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: invalid config: %v", ErrOpen, errs)
	}

	vc, err := gocv.OpenVideoCapture(cfg.DeviceID())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", ErrOpen, cfg.Device)
	}

	c := &Capture{vc: vc}
	c.apply(cfg)

	log.Info("camera opened", "device", cfg.Device, "width", cfg.Width, "height", cfg.Height, "fps", cfg.Framerate)
	return c, nil
}

// Apply pushes resolution and frame rate to the open device.
// It is used as the Manager's OnConfigChange callback. Read holds the device
// for as long as the driver blocks, so Apply does not wait: it fails with
// ErrBusy and the caller may retry.
func (c *Capture) Apply(cfg Config) error {
	if !c.mu.TryLock() {
		return ErrBusy
	}
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.apply(cfg)
	return nil
}

func (c *Capture) apply(cfg Config) {
	c.vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	c.vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	c.vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
}

// Read implements Source.
func (c *Capture) Read(_ context.Context, dst *gocv.Mat) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if ok := c.vc.Read(dst); !ok || dst.Empty() {
		return ErrNoFrame
	}
	return nil
}

// Close implements Source.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.vc.Close()
}
