package plate

import (
	"fmt"
	"image"
	"sync"
	"unicode/utf8"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"gocv.io/x/gocv"
)

type formatReader struct {
	format string
	reader gozxing.Reader
}

// ZXingDecoder decodes QR, Data Matrix and common 1D symbologies with gozxing.
type ZXingDecoder struct {
	readers    []formatReader
	hints      map[gozxing.DecodeHintType]interface{}
	allFormats bool
	mu         sync.Mutex // readers keep internal state between calls
}

// NewZXingDecoder creates a gozxing-backed decoder. With allFormats set every
// reader runs on each crop; otherwise the first hit wins.
func NewZXingDecoder(allFormats bool) *ZXingDecoder {
	return &ZXingDecoder{
		readers: []formatReader{
			{"QR_CODE", qrcode.NewQRCodeReader()},
			{"DATA_MATRIX", datamatrix.NewDataMatrixReader()},
			{"CODE_128", oned.NewCode128Reader()},
			{"CODE_39", oned.NewCode39Reader()},
			{"EAN_13", oned.NewEAN13Reader()},
		},
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
		allFormats: allFormats,
	}
}

// Name implements Decoder.
func (d *ZXingDecoder) Name() string { return DecoderZXing }

// Decode implements Decoder. roi must be continuous (a cloned crop).
func (d *ZXingDecoder) Decode(roi gocv.Mat) ([]Symbol, error) {
	if roi.Empty() {
		return nil, nil
	}
	img, err := roi.ToImage()
	if err != nil {
		return nil, fmt.Errorf("mat to image: %w", err)
	}
	return d.DecodeImage(img)
}

// DecodeImage runs the readers over a Go image.
func (d *ZXingDecoder) DecodeImage(img image.Image) ([]Symbol, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("binary bitmap: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var symbols []Symbol
	for _, fr := range d.readers {
		// Not-found, checksum and format failures all mean "no symbol of this kind".
		result, err := fr.reader.Decode(bmp, d.hints)
		fr.reader.Reset()
		if err != nil || result == nil {
			continue
		}
		symbols = append(symbols, Symbol{Text: payloadText(result), Format: fr.format})
		if !d.allFormats {
			break
		}
	}
	return symbols, nil
}

// Close implements Decoder.
func (d *ZXingDecoder) Close() error { return nil }

// payloadText returns the symbol's text. gozxing decodes byte-mode segments
// with a guessed charset, so a Latin-1 payload comes back as valid UTF-8.
// When the raw byte segments are not UTF-8 they are returned verbatim and
// the result fails utf8.ValidString downstream.
func payloadText(result *gozxing.Result) string {
	segments, ok := result.GetResultMetadata()[gozxing.ResultMetadataType_BYTE_SEGMENTS].([][]byte)
	if !ok || len(segments) == 0 {
		return result.GetText()
	}

	var raw []byte
	for _, seg := range segments {
		raw = append(raw, seg...)
	}
	if !utf8.Valid(raw) {
		return string(raw)
	}
	return result.GetText()
}
