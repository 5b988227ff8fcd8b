package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-plates/internal/log"
)

// closeWait bounds how long Close waits for a read that is still blocked.
const closeWait = 2 * time.Second

// timeoutSource bounds every Read of an inner source. The inner read runs on
// a helper goroutine into a private buffer, so a hung device surfaces as
// ErrReadTimeout and the caller's Mat is never written after Read returns.
type timeoutSource struct {
	src     Source
	timeout time.Duration

	mu  sync.Mutex // serialises inner reads and guards buf
	buf gocv.Mat

	closeMu  sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// WithTimeout wraps src so each Read fails with ErrReadTimeout after d.
// d <= 0 returns src unchanged. The wrapper owns src and closes it.
func WithTimeout(src Source, d time.Duration) Source {
	if d <= 0 {
		return src
	}
	return &timeoutSource{src: src, timeout: d, buf: gocv.NewMat()}
}

func (t *timeoutSource) Read(ctx context.Context, dst *gocv.Mat) error {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return ErrClosed
	}
	t.inflight.Add(1)
	t.closeMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer t.inflight.Done()
		t.mu.Lock()
		defer t.mu.Unlock()
		done <- t.src.Read(ctx, &t.buf)
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		if err := t.buf.CopyTo(dst); err != nil {
			return fmt.Errorf("camera: copy frame: %w", err)
		}
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %v", ErrReadTimeout, t.timeout)
		}
		return ctx.Err()
	}
}

// Close waits briefly for an in-flight read, then closes the inner source.
// A device that never returns is abandoned rather than closed underneath
// the blocked reader.
func (t *timeoutSource) Close() error {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return nil
	}
	t.closed = true
	t.closeMu.Unlock()

	idle := make(chan struct{})
	go func() {
		t.inflight.Wait()
		close(idle)
	}()

	select {
	case <-idle:
	case <-time.After(closeWait):
		log.Warn("camera read still blocked, abandoning device handle")
		return fmt.Errorf("%w: device busy on close", ErrReadTimeout)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Close()
	return t.src.Close()
}
