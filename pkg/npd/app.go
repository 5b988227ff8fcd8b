// Package npd runs the number plate detection loop: open a camera, let it
// warm up, then read, annotate, show and report frames until the operator
// presses q or the process is signalled.
package npd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-plates/internal/log"
	"github.com/teslashibe/go-plates/pkg/camera"
	"github.com/teslashibe/go-plates/pkg/debug"
	"github.com/teslashibe/go-plates/pkg/display"
	"github.com/teslashibe/go-plates/pkg/plate"
	"github.com/teslashibe/go-plates/pkg/web"
)

// State is the lifecycle phase of the capture loop.
type State int32

const (
	StateWarmup State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateWarmup:
		return "WARMUP"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Publisher receives every processed frame. *web.Server implements it.
type Publisher interface {
	PublishFrame(seq uint64, frame gocv.Mat, result plate.Result)
}

// Stats is a snapshot of loop counters.
type Stats struct {
	State       string    `json:"state"`
	Decoder     string    `json:"decoder"`
	Frames      uint64    `json:"frames"`
	PlatesFound uint64    `json:"plates_found"`
	LastPlates  []string  `json:"last_plates"`
	LastSeen    time.Time `json:"last_seen,omitempty"`
	FPS         float64   `json:"fps"`
}

// Option injects a component instead of the one Init would build.
type Option func(*App)

// WithSource uses src instead of opening the configured camera.
func WithSource(src camera.Source) Option {
	return func(a *App) { a.source = src }
}

// WithDisplay uses d instead of a window or headless display.
func WithDisplay(d display.Display) Option {
	return func(a *App) { a.display = d }
}

// WithDecoder uses dec instead of the configured backend.
func WithDecoder(dec plate.Decoder) Option {
	return func(a *App) { a.decoder = dec }
}

// WithOutput sends plate lines to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// WithPublisher adds a frame publisher besides the dashboard.
func WithPublisher(p Publisher) Option {
	return func(a *App) { a.publishers = append(a.publishers, p) }
}

// App is the detector orchestrator. It owns the camera, the display and the
// decoder and releases all of them when Run returns.
type App struct {
	config Config
	logger *slog.Logger

	source     camera.Source
	display    display.Display
	decoder    plate.Decoder
	processor  *plate.Processor
	out        io.Writer
	publishers []Publisher

	cameraManager *camera.Manager
	webServer     *web.Server

	state       atomic.Int32
	frames      atomic.Uint64
	platesFound atomic.Uint64

	statsMu     sync.RWMutex
	decoderName string
	lastPlates  []string
	lastSeen    time.Time
	runningAt   time.Time

	stopOnce sync.Once
}

// New creates a detector with the given configuration. cfg is used as is;
// environment settings are applied by the caller through LoadEnvConfig.
func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	debug.Enabled = cfg.Debug
	debug.Detection = cfg.DebugDetect

	a := &App{
		config: cfg,
		logger: log.With("component", "npd"),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.state.Store(int32(StateWarmup))
	return a, nil
}

// Init opens the camera, the display and the decoder, and starts the
// dashboard when enabled. Anything opened before a failure is released.
// Call this after New() and before Run().
func (a *App) Init() (err error) {
	defer func() {
		if err != nil {
			a.release()
		}
	}()

	if a.decoder == nil {
		if a.decoder, err = plate.NewDecoder(a.config.Decoder); err != nil {
			return fmt.Errorf("decoder: %w", err)
		}
	}
	if a.processor, err = plate.NewProcessor(a.decoder, a.config.Detector); err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	a.statsMu.Lock()
	a.decoderName = a.decoder.Name()
	a.statsMu.Unlock()

	if a.source == nil {
		if err := a.openSource(); err != nil {
			return err
		}
	}

	if a.display == nil {
		if a.config.Headless {
			a.display = &display.Headless{}
		} else {
			a.display = display.NewWindow(display.WindowTitle)
		}
	}

	if a.config.WebPort != "" {
		a.startWebDashboard()
	}
	return nil
}

func (a *App) openSource() error {
	if a.config.Image != "" {
		img, err := camera.OpenImage(a.config.Image)
		if err != nil {
			return err
		}
		a.source = img
		a.logger.Info("replaying still image", "path", a.config.Image)
		return nil
	}

	capture, err := camera.Open(a.config.Camera)
	if err != nil {
		return err
	}
	a.source = camera.WithTimeout(capture, a.config.Camera.ReadTimeout)

	a.cameraManager = camera.NewManager(a.config.Camera)
	a.cameraManager.OnConfigChange = capture.Apply
	return nil
}

func (a *App) startWebDashboard() {
	webCfg := a.config.Web
	webCfg.Port = a.config.WebPort
	webCfg.Quality = a.config.Camera.Quality

	a.webServer = web.NewServer(webCfg, "")
	a.webServer.Status = func() interface{} { return a.Stats() }
	a.webServer.Detector = a.processor
	if a.cameraManager != nil {
		a.webServer.Camera = a.cameraManager
	}
	a.webServer.StartAsync()
	a.publishers = append(a.publishers, a.webServer)
}

// Run warms the camera up and runs the capture loop until q is pressed, ctx
// is cancelled, MaxFrames is reached or an error occurs. The camera, the
// display and the dashboard are released before Run returns, on every path.
func (a *App) Run(ctx context.Context) error {
	if a.processor == nil {
		return errors.New("npd: Run called before Init")
	}
	defer a.Shutdown()

	if err := a.warmup(ctx); err != nil {
		a.logger.Info("stopped during warmup")
		return nil
	}

	a.setState(StateRunning)
	a.statsMu.Lock()
	a.runningAt = time.Now()
	a.statsMu.Unlock()
	a.logger.Info("capture loop running", "decoder", a.processor.DecoderName(), "headless", a.config.Headless)

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if ctx.Err() != nil {
			a.logger.Info("stop requested")
			return nil
		}

		quit, err := a.step(ctx, &frame)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if quit {
			a.logger.Info("quit key pressed")
			return nil
		}
		if a.config.MaxFrames > 0 && a.frames.Load() >= a.config.MaxFrames {
			a.logger.Info("frame limit reached", "frames", a.config.MaxFrames)
			return nil
		}
	}
}

// warmup gives the sensor time to settle its exposure.
func (a *App) warmup(ctx context.Context) error {
	d := a.config.Camera.Warmup
	if d <= 0 {
		return ctx.Err()
	}
	a.logger.Info("camera warming up", "duration", d)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// step runs one RUNNING iteration and reports whether quit was requested.
func (a *App) step(ctx context.Context, frame *gocv.Mat) (bool, error) {
	if err := a.source.Read(ctx, frame); err != nil {
		return false, fmt.Errorf("acquire frame: %w", err)
	}

	seq := a.frames.Add(1)
	result, err := a.processor.Process(frame)
	if err != nil {
		return false, fmt.Errorf("process frame %d: %w", seq, err)
	}

	if err := a.display.Show(*frame); err != nil {
		return false, fmt.Errorf("show frame %d: %w", seq, err)
	}

	if len(result.Plates) > 0 {
		if err := PrintPlates(a.out, result.Plates); err != nil {
			return false, fmt.Errorf("report plates: %w", err)
		}
		a.record(result.Plates)
	}

	for _, p := range a.publishers {
		p.PublishFrame(seq, *frame, result)
	}

	// Next Read must not see this frame's annotations.
	frame.SetTo(gocv.NewScalar(0, 0, 0, 0))

	return display.IsQuit(a.display.WaitKey(KeyWait)), nil
}

func (a *App) record(plates []string) {
	a.platesFound.Add(uint64(len(plates)))

	a.statsMu.Lock()
	a.lastPlates = append(a.lastPlates[:0], plates...)
	a.lastSeen = time.Now()
	a.statsMu.Unlock()
}

// Shutdown closes the window, releases the camera and stops the dashboard.
// It is safe to call more than once.
func (a *App) Shutdown() {
	a.stopOnce.Do(func() {
		a.setState(StateStopped)
		a.release()
		a.logger.Info("stopped", "frames", a.frames.Load(), "plates", a.platesFound.Load())
	})
}

func (a *App) release() {
	if a.display != nil {
		if err := a.display.Close(); err != nil {
			a.logger.Warn("display close failed", "error", err)
		}
	}
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Warn("camera release failed", "error", err)
		}
	}
	if a.webServer != nil {
		if err := a.webServer.Shutdown(); err != nil {
			a.logger.Warn("dashboard shutdown failed", "error", err)
		}
	}
	if a.processor != nil {
		a.processor.Close()
	} else if a.decoder != nil {
		a.decoder.Close()
	}
	a.display, a.source, a.webServer, a.processor, a.decoder = nil, nil, nil, nil, nil
}

// Config returns the effective configuration.
func (a *App) Config() Config {
	return a.config
}

// State returns the current lifecycle phase.
func (a *App) State() State {
	return State(a.state.Load())
}

func (a *App) setState(s State) {
	old := State(a.state.Swap(int32(s)))
	if old != s {
		debug.Log("🔄 %s → %s\n", old, s)
	}
}

// Stats returns a snapshot of the loop counters.
func (a *App) Stats() Stats {
	a.statsMu.RLock()
	defer a.statsMu.RUnlock()

	frames := a.frames.Load()
	st := Stats{
		State:       a.State().String(),
		Decoder:     a.decoderName,
		Frames:      frames,
		PlatesFound: a.platesFound.Load(),
		LastPlates:  append([]string{}, a.lastPlates...),
		LastSeen:    a.lastSeen,
	}
	if !a.runningAt.IsZero() {
		if elapsed := time.Since(a.runningAt).Seconds(); elapsed > 0 {
			st.FPS = float64(frames) / elapsed
		}
	}
	return st
}
