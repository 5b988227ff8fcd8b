// npd - live number plate detection from a camera feed
//
// Finds plate-shaped regions, decodes the barcode or QR symbol on each,
// draws the result and prints what it read. Press q in the window (or send
// SIGINT) to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/teslashibe/go-plates/internal/config"
	ilog "github.com/teslashibe/go-plates/internal/log"
	"github.com/teslashibe/go-plates/pkg/camera"
	"github.com/teslashibe/go-plates/pkg/npd"
	"github.com/teslashibe/go-plates/pkg/plate"
)

func main() {
	cfg, logLevel, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	ilog.Init(logLevel)

	app, err := npd.New(cfg)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	banner(app.Config())

	if err := app.Init(); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Run releases the camera and window before it returns, so Fatalf is safe.
	if err := app.Run(ctx); err != nil {
		log.Fatalf("❌ Runtime error: %v", err)
	}
	fmt.Fprintln(os.Stderr, "👋 Goodbye!")
}

// parseFlags parses command line flags and returns configuration.
// Precedence is defaults, then the preset, then NPD_* variables, then any
// flag given on the command line.
func parseFlags(fs *flag.FlagSet, args []string) (npd.Config, string, error) {
	defaults := npd.DefaultConfig()
	defaults.LoadEnvConfig()

	debug := fs.Bool("debug", false, "Enable verbose debug logging")
	debugDetect := fs.Bool("debug-detect", false, "Trace every contour the detector considers")
	logLevel := fs.String("log-level", config.LogLevel("info"), "Log level: debug, info, warn, error")

	device := fs.String("device", defaults.Camera.Device, "Camera index, device path or stream URL")
	image := fs.String("image", "", "Replay a still image instead of a camera")
	preset := fs.String("preset", "", "Camera preset: "+strings.Join(camera.PresetNames(), ", "))
	width := fs.Int("width", defaults.Camera.Width, "Capture width")
	height := fs.Int("height", defaults.Camera.Height, "Capture height")
	fps := fs.Int("fps", defaults.Camera.Framerate, "Capture frame rate")
	warmup := fs.Duration("warmup", defaults.Camera.Warmup, "Delay before the first frame")
	readTimeout := fs.Duration("read-timeout", defaults.Camera.ReadTimeout, "Give up when a frame takes longer than this")

	decoder := fs.String("decoder", defaults.Decoder, "Symbol decoder: "+strings.Join(plate.DecoderNames(), ", "))
	minArea := fs.Float64("min-area", defaults.Detector.MinArea, "Minimum contour area for a plate candidate")
	order := fs.String("order", string(defaults.Detector.Order), "Plate order: extraction or spatial")
	noClamp := fs.Bool("no-clamp", false, "Let labels run off the top of the frame")

	headless := fs.Bool("headless", false, "No preview window (stop with Ctrl+C)")
	webPort := fs.String("web-port", defaults.WebPort, "Dashboard port (empty disables)")
	maxFrames := fs.Uint64("max-frames", defaults.MaxFrames, "Stop after this many frames (0 = unlimited)")

	if err := fs.Parse(args); err != nil {
		return npd.Config{}, "", err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := npd.DefaultConfig()
	if *preset != "" {
		p := camera.GetPreset(*preset)
		if p == nil {
			return npd.Config{}, "", fmt.Errorf("unknown preset %q (want one of %s)", *preset, strings.Join(camera.PresetNames(), ", "))
		}
		cfg.Camera = *p
	}
	cfg.LoadEnvConfig()

	if set["device"] {
		cfg.Camera.Device = *device
	}
	if set["width"] {
		cfg.Camera.Width = *width
	}
	if set["height"] {
		cfg.Camera.Height = *height
	}
	if set["fps"] {
		cfg.Camera.Framerate = *fps
	}
	if set["warmup"] {
		cfg.Camera.Warmup = *warmup
	}
	if set["read-timeout"] {
		cfg.Camera.ReadTimeout = *readTimeout
	}
	if set["decoder"] {
		cfg.Decoder = *decoder
	}
	if set["web-port"] {
		cfg.WebPort = *webPort
	}
	if set["max-frames"] {
		cfg.MaxFrames = *maxFrames
	}

	cfg.Debug, cfg.DebugDetect = *debug, *debugDetect
	cfg.Image = *image
	cfg.Detector.MinArea = *minArea
	cfg.Detector.Order = plate.Order(*order)
	cfg.Detector.ClampLabel = !*noClamp
	cfg.Headless = *headless

	if *debug && !set["log-level"] {
		*logLevel = "debug"
	}
	return cfg, *logLevel, nil
}

func banner(cfg npd.Config) {
	fmt.Fprintln(os.Stderr, "🚗 Number Plate Detection")
	fmt.Fprintln(os.Stderr, "=========================")
	if cfg.Image != "" {
		fmt.Fprintf(os.Stderr, "🖼️  Source: %s\n", cfg.Image)
	} else {
		fmt.Fprintf(os.Stderr, "📷 Camera: %s @ %dx%d %dfps\n", cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.Framerate)
	}
	fmt.Fprintf(os.Stderr, "🔍 Decoder: %s, min area %.0f\n", cfg.Decoder, cfg.Detector.MinArea)
	if cfg.WebPort != "" {
		fmt.Fprintf(os.Stderr, "🌐 Dashboard: http://localhost:%s\n", cfg.WebPort)
	}
	if cfg.Debug {
		fmt.Fprintln(os.Stderr, "🐛 Debug mode enabled")
	}
	if cfg.Headless {
		fmt.Fprintln(os.Stderr, "   (Ctrl+C to exit)")
	} else {
		fmt.Fprintln(os.Stderr, "   (press q in the window or Ctrl+C to exit)")
	}
}
