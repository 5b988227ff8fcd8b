package plate

import (
	"image"
	"image/color"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"gocv.io/x/gocv"
)

var black = color.RGBA{0, 0, 0, 0}

// bitMatrixToGray copies a gozxing bit matrix into a gray image (set bits are black).
func bitMatrixToGray(bm *gozxing.BitMatrix) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, bm.GetWidth(), bm.GetHeight()))
	for y := 0; y < bm.GetHeight(); y++ {
		for x := 0; x < bm.GetWidth(); x++ {
			if bm.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// renderQR renders payload as a BGR QR code of roughly size×size pixels.
func renderQR(t *testing.T, payload string, size int) gocv.Mat {
	t.Helper()
	return renderQRCharset(t, payload, size, "")
}

// renderQRCharset is renderQR with the byte segment encoded in charset.
// An empty charset uses the writer default and emits no ECI.
func renderQRCharset(t *testing.T, payload string, size int, charset string) gocv.Mat {
	t.Helper()

	var hints map[gozxing.EncodeHintType]interface{}
	if charset != "" {
		hints = map[gozxing.EncodeHintType]interface{}{gozxing.EncodeHintType_CHARACTER_SET: charset}
	}
	bm, err := qrcode.NewQRCodeWriter().Encode(payload, gozxing.BarcodeFormat_QR_CODE, size, size, hints)
	if err != nil {
		t.Fatalf("encode QR %q: %v", payload, err)
	}

	gray, err := gocv.ImageGrayToMatGray(bitMatrixToGray(bm))
	if err != nil {
		t.Fatalf("gray to mat: %v", err)
	}
	defer gray.Close()

	bgr := gocv.NewMat()
	if err := gocv.CvtColor(gray, &bgr, gocv.ColorGrayToBGR); err != nil {
		t.Fatalf("gray to BGR: %v", err)
	}
	return bgr
}

// blankFrame returns a white 640x480 BGR frame.
func blankFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 480, 640, gocv.MatTypeCV8UC3)
}

// drawPlate draws a thick black plate border and, when payload is set,
// pastes a QR code centered inside it.
func drawPlate(t *testing.T, frame *gocv.Mat, box image.Rectangle, payload string) {
	t.Helper()
	drawPlateCharset(t, frame, box, payload, "")
}

// drawPlateCharset is drawPlate with the QR payload encoded in charset.
// The border uses 8-connected lines so the frame holds only pure colors.
func drawPlateCharset(t *testing.T, frame *gocv.Mat, box image.Rectangle, payload, charset string) {
	t.Helper()

	if err := gocv.RectangleWithParams(frame, box, black, 4, gocv.Line8, 0); err != nil {
		t.Fatalf("draw plate border: %v", err)
	}
	if payload == "" {
		return
	}

	qr := renderQRCharset(t, payload, 160, charset)
	defer qr.Close()

	if qr.Cols() > box.Dx()-16 || qr.Rows() > box.Dy()-16 {
		t.Fatalf("QR %dx%d does not fit plate %v", qr.Cols(), qr.Rows(), box)
	}

	at := image.Pt(box.Min.X+(box.Dx()-qr.Cols())/2, box.Min.Y+(box.Dy()-qr.Rows())/2)
	roi := frame.Region(image.Rectangle{Min: at, Max: at.Add(image.Pt(qr.Cols(), qr.Rows()))})
	defer roi.Close()
	if err := qr.CopyTo(&roi); err != nil {
		t.Fatalf("paste QR: %v", err)
	}
}

func isGreen(m gocv.Mat, x, y int) bool {
	v := m.GetVecbAt(y, x)
	return v[0] == 0 && v[1] == 255 && v[2] == 0
}

// isPure reports whether the pixel is exactly green, black or white.
func isPure(m gocv.Mat, x, y int) bool {
	v := m.GetVecbAt(y, x)
	switch {
	case v[0] == 0 && v[1] == 255 && v[2] == 0:
		return true
	case v[0] == 0 && v[1] == 0 && v[2] == 0:
		return true
	case v[0] == 255 && v[1] == 255 && v[2] == 255:
		return true
	}
	return false
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int)
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
		if seen[s] < 0 {
			return false
		}
	}
	return true
}

// stubDecoder returns fixed symbols (or an error) for every crop.
type stubDecoder struct {
	symbols []Symbol
	err     error
	calls   int
	closed  bool
}

func (s *stubDecoder) Name() string { return "stub" }

func (s *stubDecoder) Decode(roi gocv.Mat) ([]Symbol, error) {
	s.calls++
	return s.symbols, s.err
}

func (s *stubDecoder) Close() error {
	s.closed = true
	return nil
}
