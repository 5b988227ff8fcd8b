// Package video provides rate-limited JPEG encoding of annotated frames
// for the live dashboard.
package video

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Encoder turns Mats into JPEG bytes, at most once per minInterval.
// Skipped frames keep the dashboard from slowing the capture loop.
type Encoder struct {
	quality     int
	minInterval time.Duration

	// Frame buffer
	latestFrame []byte
	frameMu     sync.RWMutex

	// Encode rate limiting
	lastEncode time.Time
	mu         sync.Mutex
}

// NewEncoder creates an encoder. maxFPS <= 0 disables rate limiting.
func NewEncoder(quality int, maxFPS float64) *Encoder {
	e := &Encoder{quality: quality}
	if maxFPS > 0 {
		e.minInterval = time.Duration(float64(time.Second) / maxFPS)
	}
	return e
}

// SetQuality changes the JPEG quality (1-100).
func (e *Encoder) SetQuality(quality int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quality = quality
}

// Encode JPEG-encodes frame. It returns ok=false without encoding when
// called again before minInterval has passed.
func (e *Encoder) Encode(frame gocv.Mat) (data []byte, ok bool, err error) {
	if frame.Empty() {
		return nil, false, fmt.Errorf("video: empty frame")
	}

	e.mu.Lock()
	if e.minInterval > 0 && !e.lastEncode.IsZero() && time.Since(e.lastEncode) < e.minInterval {
		e.mu.Unlock()
		return nil, false, nil
	}
	e.lastEncode = time.Now()
	quality := e.quality
	e.mu.Unlock()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, false, fmt.Errorf("video: jpeg encode: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close, so copy out.
	data = append([]byte(nil), buf.GetBytes()...)

	e.frameMu.Lock()
	e.latestFrame = data
	e.frameMu.Unlock()

	return data, true, nil
}

// Latest returns a copy of the most recently encoded frame, or nil.
func (e *Encoder) Latest() []byte {
	e.frameMu.RLock()
	defer e.frameMu.RUnlock()

	if e.latestFrame == nil {
		return nil
	}

	frame := make([]byte, len(e.latestFrame))
	copy(frame, e.latestFrame)
	return frame
}
