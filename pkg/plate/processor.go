package plate

import (
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-plates/internal/log"
	"github.com/teslashibe/go-plates/pkg/debug"
)

// Detection is a decoded symbol and the region it was found in.
type Detection struct {
	Region Region `json:"region"`
	Symbol Symbol `json:"symbol"`
}

// Result is the outcome of processing one frame.
type Result struct {
	// Frame is the input frame, annotated in place.
	Frame *gocv.Mat

	// Plates lists decoded strings in processing order. Never nil.
	Plates []string

	// Detections pairs each plate with its region.
	Detections []Detection

	// Candidates is the number of regions that passed the area filter.
	Candidates int
}

// Processor turns a color frame into an annotated frame plus decoded plates.
// It keeps no per-frame state; identical inputs give identical outputs.
type Processor struct {
	decoder Decoder
	config  Config
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewProcessor creates a processor. A nil decoder selects the gozxing backend.
func NewProcessor(decoder Decoder, cfg Config) (*Processor, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, errs)
	}
	if decoder == nil {
		decoder = NewZXingDecoder(false)
	}
	return &Processor{
		decoder: decoder,
		config:  cfg,
		logger:  log.With("component", "plate", "decoder", decoder.Name()),
	}, nil
}

// Config returns the current detection configuration.
func (p *Processor) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config
}

// SetConfig replaces the detection configuration at runtime.
func (p *Processor) SetConfig(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, errs)
	}
	p.mu.Lock()
	p.config = cfg
	p.mu.Unlock()
	p.logger.Info("detector config updated", "min_area", cfg.MinArea, "order", cfg.Order)
	return nil
}

// DecoderName returns the active decoder backend.
func (p *Processor) DecoderName() string {
	return p.decoder.Name()
}

// Process finds plate regions in frame, decodes their symbols and draws the
// annotations onto frame. Frames without decodable regions are left untouched.
func (p *Processor) Process(frame *gocv.Mat) (Result, error) {
	if frame == nil || frame.Empty() {
		return Result{}, ErrEmptyFrame
	}
	if frame.Channels() != 3 {
		return Result{}, fmt.Errorf("%w: got %d channels", ErrInvalidFrame, frame.Channels())
	}

	cfg := p.Config()

	gray := gocv.NewMat()
	defer gray.Close()
	if err := ToGray(*frame, &gray); err != nil {
		return Result{}, err
	}

	regions, err := FindCandidates(gray, cfg)
	if err != nil {
		return Result{}, err
	}
	if cfg.Order == OrderSpatial {
		SortRegions(regions)
	}

	result := Result{Frame: frame, Plates: []string{}, Candidates: len(regions)}

	for _, region := range regions {
		symbols, err := p.decodeRegion(gray, region)
		if err != nil {
			return result, &DecodeError{Backend: p.decoder.Name(), Region: region, Err: err}
		}

		for _, sym := range symbols {
			if !utf8.ValidString(sym.Text) {
				debug.DetectLog("⚠️  skipping non-UTF-8 payload in %v\n", region.Rect)
				continue
			}
			result.Plates = append(result.Plates, sym.Text)
			result.Detections = append(result.Detections, Detection{Region: region, Symbol: sym})
			if err := Annotate(frame, region.Rect, sym.Text, cfg); err != nil {
				return result, err
			}
		}
	}

	if len(result.Plates) > 0 {
		p.logger.Debug("plates decoded", "count", len(result.Plates), "candidates", result.Candidates)
	}

	return result, nil
}

// decodeRegion crops the gray image to the region and runs the decoder on a
// continuous copy of the crop.
func (p *Processor) decodeRegion(gray gocv.Mat, region Region) ([]Symbol, error) {
	roi := gray.Region(region.Rect)
	defer roi.Close()

	crop := roi.Clone()
	defer crop.Close()

	return p.decoder.Decode(crop)
}

// Close releases the decoder.
func (p *Processor) Close() error {
	return p.decoder.Close()
}
