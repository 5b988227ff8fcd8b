package web

import (
	"encoding/json"
	"errors"
	"image"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-plates/pkg/camera"
	"github.com/teslashibe/go-plates/pkg/plate"
)

type fakeTuner struct {
	cfg plate.Config
}

func (f *fakeTuner) Config() plate.Config { return f.cfg }

func (f *fakeTuner) SetConfig(cfg plate.Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	f.cfg = cfg
	return nil
}

func testResult(plates ...string) plate.Result {
	r := plate.Result{Plates: plates}
	for i, p := range plates {
		r.Detections = append(r.Detections, plate.Detection{
			Region: plate.Region{Rect: image.Rect(10*i, 10, 10*i+100, 60), Area: 5000},
			Symbol: plate.Symbol{Text: p, Format: "QR_CODE"},
		})
	}
	return r
}

func testFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 120, 160, gocv.MatTypeCV8UC3)
}

func doJSON(t *testing.T, s *Server, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]interface{}
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), "body: %s", data)
	}
	return resp.StatusCode, out
}

func TestNewServer_Defaults(t *testing.T) {
	s := NewServer(Config{Port: "0", Quality: 80}, "")
	assert.NotEmpty(t, s.Session())
	assert.Equal(t, 500, s.cfg.History)
}

func TestStatus(t *testing.T) {
	s := NewServer(DefaultConfig(), "session-1")
	s.Status = func() interface{} {
		return map[string]interface{}{"state": "RUNNING", "frames": 12}
	}

	code, body := doJSON(t, s, "GET", "/api/status", "")
	require.Equal(t, 200, code)
	assert.Equal(t, "session-1", body["session"])

	runner, ok := body["runner"].(map[string]interface{})
	require.True(t, ok, "runner stats missing: %v", body)
	assert.Equal(t, "RUNNING", runner["state"])
}

func TestStatus_FeedCounters(t *testing.T) {
	s := NewServer(DefaultConfig(), "s")

	// Hubs are not running, so the queue fills and the rest are dropped.
	for i := 0; i < 70; i++ {
		s.frameHub.BroadcastBinary([]byte{0xFF})
	}

	code, body := doJSON(t, s, "GET", "/api/status", "")
	require.Equal(t, 200, code)

	feeds, ok := body["feeds"].(map[string]interface{})
	require.True(t, ok, "feed counters missing: %v", body)
	frames := feeds["frames"].(map[string]interface{})
	plates := feeds["plates"].(map[string]interface{})
	assert.Equal(t, float64(6), frames["dropped"])
	assert.Equal(t, false, frames["running"])
	assert.Equal(t, float64(0), plates["dropped"])
}

func TestPublishFrame_RecordsEvents(t *testing.T) {
	cfg := DefaultConfig()
	cfg.History = 3
	s := NewServer(cfg, "s")

	frame := testFrame()
	defer frame.Close()

	s.PublishFrame(1, frame, testResult())
	assert.Empty(t, s.Events(0), "frames without plates should not create events")

	for i := uint64(2); i <= 6; i++ {
		s.PublishFrame(i, frame, testResult("ABC123", "XYZ789"))
	}

	events := s.Events(0)
	require.Len(t, events, 3, "history should be capped")
	assert.Equal(t, uint64(4), events[0].Frame)
	assert.Equal(t, uint64(6), events[2].Frame)
	assert.Equal(t, []string{"ABC123", "XYZ789"}, events[2].Plates)
	assert.NotEqual(t, events[1].ID, events[2].ID)
	assert.Equal(t, "s", events[2].Session)

	require.Len(t, s.Events(1), 1)

	code, body := doJSON(t, s, "GET", "/api/plates?limit=2", "")
	require.Equal(t, 200, code)
	assert.Len(t, body["events"], 2)
}

func TestSnapshot(t *testing.T) {
	s := NewServer(DefaultConfig(), "s")

	code, _ := doJSON(t, s, "GET", "/api/snapshot", "")
	assert.Equal(t, 404, code)

	frame := testFrame()
	defer frame.Close()
	s.PublishFrame(1, frame, testResult())

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/snapshot", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	data, _ := io.ReadAll(resp.Body)
	require.Greater(t, len(data), 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2])
}

func TestCameraRoutes(t *testing.T) {
	s := NewServer(DefaultConfig(), "s")

	code, _ := doJSON(t, s, "GET", "/api/camera", "")
	assert.Equal(t, 503, code, "camera routes need a manager")

	s.Camera = camera.NewManager(camera.DefaultConfig())

	code, body := doJSON(t, s, "GET", "/api/camera", "")
	require.Equal(t, 200, code)
	assert.Equal(t, float64(640), body["width"])

	code, body = doJSON(t, s, "POST", "/api/camera", `{"preset":"720p","quality":60}`)
	require.Equal(t, 200, code, "body: %v", body)
	assert.Equal(t, float64(1280), body["width"])
	assert.Equal(t, float64(60), body["quality"])

	code, body = doJSON(t, s, "POST", "/api/camera", `{"preset":"8k"}`)
	assert.Equal(t, 400, code)
	assert.Contains(t, body["error"], "unknown preset")

	code, _ = doJSON(t, s, "POST", "/api/camera", `{not json`)
	assert.Equal(t, 400, code)

	s.Camera.OnConfigChange = func(camera.Config) error { return camera.ErrBusy }
	code, body = doJSON(t, s, "POST", "/api/camera", `{"framerate":15}`)
	assert.Equal(t, 409, code, "a busy device should ask the client to retry")
	assert.Contains(t, body["error"], "busy")
	s.Camera.OnConfigChange = nil

	code, body = doJSON(t, s, "GET", "/api/camera/presets", "")
	require.Equal(t, 200, code)
	assert.Len(t, body["presets"], len(camera.PresetNames()))
}

func TestDetectorRoutes(t *testing.T) {
	s := NewServer(DefaultConfig(), "s")

	code, _ := doJSON(t, s, "GET", "/api/detector", "")
	assert.Equal(t, 503, code)

	tuner := &fakeTuner{cfg: plate.DefaultConfig()}
	s.Detector = tuner

	code, body := doJSON(t, s, "GET", "/api/detector", "")
	require.Equal(t, 200, code)
	assert.Equal(t, float64(1000), body["min_area"])

	code, body = doJSON(t, s, "POST", "/api/detector", `{"min_area":2500,"order":"spatial"}`)
	require.Equal(t, 200, code, "body: %v", body)
	assert.Equal(t, float64(2500), tuner.cfg.MinArea)
	assert.Equal(t, plate.OrderSpatial, tuner.cfg.Order)
	assert.Equal(t, plate.Green, tuner.cfg.Color, "unlisted fields keep their values")

	code, _ = doJSON(t, s, "POST", "/api/detector", `{"blur_kernel":4}`)
	assert.Equal(t, 400, code)
	assert.Equal(t, 5, tuner.cfg.BlurKernel)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := NewServer(DefaultConfig(), "s")
	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws/plates", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}

func TestPlateFeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = "18091"
	s := NewServer(cfg, "feed")
	s.StartAsync()
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091/ws/plates", nil)
	require.NoError(t, err)
	defer ws.Close()

	deadline := time.Now().Add(time.Second)
	for s.plateHub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, s.plateHub.ClientCount())

	frame := testFrame()
	defer frame.Close()
	s.PublishFrame(7, frame, testResult("ABC123"))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)

	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, uint64(7), ev.Frame)
	assert.Equal(t, []string{"ABC123"}, ev.Plates)
	assert.Equal(t, "feed", ev.Session)
}
