package plate

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Decoder backend names.
const (
	DecoderZXing  = "zxing"
	DecoderOpenCV = "opencv"
	DecoderChain  = "chain"
)

// Symbol is one decoded barcode or QR payload.
type Symbol struct {
	Text   string `json:"text"`
	Format string `json:"format"`
}

// Decoder finds symbols in a single channel crop.
// An empty result with a nil error means the crop held nothing decodable.
type Decoder interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Decode returns the symbols found in roi.
	Decode(roi gocv.Mat) ([]Symbol, error)

	// Close releases resources
	Close() error
}

// NewDecoder creates a decoder backend by name.
func NewDecoder(name string) (Decoder, error) {
	switch name {
	case DecoderZXing, "":
		return NewZXingDecoder(false), nil
	case DecoderOpenCV:
		return NewQRDecoder(), nil
	case DecoderChain:
		return NewChainDecoder(NewZXingDecoder(false), NewQRDecoder()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDecoder, name)
	}
}

// DecoderNames lists the supported backends.
func DecoderNames() []string {
	return []string{DecoderZXing, DecoderOpenCV, DecoderChain}
}

// QRDecoder uses OpenCV's QRCodeDetector.
type QRDecoder struct {
	detector gocv.QRCodeDetector
}

// NewQRDecoder creates an OpenCV QR decoder.
func NewQRDecoder() *QRDecoder {
	return &QRDecoder{detector: gocv.NewQRCodeDetector()}
}

// Name implements Decoder.
func (d *QRDecoder) Name() string { return DecoderOpenCV }

// Decode implements Decoder. OpenCV reports at most one symbol per call.
func (d *QRDecoder) Decode(roi gocv.Mat) ([]Symbol, error) {
	if roi.Empty() {
		return nil, nil
	}

	points := gocv.NewMat()
	defer points.Close()
	straight := gocv.NewMat()
	defer straight.Close()

	text := d.detector.DetectAndDecode(roi, &points, &straight)
	if text == "" {
		return nil, nil
	}
	return []Symbol{{Text: text, Format: "QR_CODE"}}, nil
}

// Close implements Decoder.
func (d *QRDecoder) Close() error {
	return d.detector.Close()
}

// ChainDecoder tries each decoder in order and returns the first non-empty result.
type ChainDecoder struct {
	decoders []Decoder
}

// NewChainDecoder creates a chain over the given decoders.
func NewChainDecoder(decoders ...Decoder) *ChainDecoder {
	return &ChainDecoder{decoders: decoders}
}

// Name implements Decoder.
func (c *ChainDecoder) Name() string { return DecoderChain }

// Decode implements Decoder. A backend fault stops the chain.
func (c *ChainDecoder) Decode(roi gocv.Mat) ([]Symbol, error) {
	for _, d := range c.decoders {
		symbols, err := d.Decode(roi)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name(), err)
		}
		if len(symbols) > 0 {
			return symbols, nil
		}
	}
	return nil, nil
}

// Close implements Decoder.
func (c *ChainDecoder) Close() error {
	var firstErr error
	for _, d := range c.decoders {
		if err := d.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
