package hub

import (
	"testing"
	"time"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := New("test")
	go h.Run()
	t.Cleanup(h.Stop)

	deadline := time.Now().Add(time.Second)
	for !h.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("hub did not start")
		}
		time.Sleep(time.Millisecond)
	}
	return h
}

func addClient(h *Hub, queue int) *Client {
	c := &Client{hub: h, send: make(chan Message, queue)}
	h.register <- c
	return c
}

func recv(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		return msg, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}, false
	}
}

func TestHub_FanOut(t *testing.T) {
	h := startHub(t)
	a := addClient(h, 4)
	b := addClient(h, 4)

	if h.ClientCount() != 2 {
		t.Fatalf("ClientCount = %d, want 2", h.ClientCount())
	}

	if err := h.BroadcastJSON(map[string]string{"plate": "ABC123"}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}
	h.BroadcastBinary([]byte{0xFF, 0xD8})

	for _, c := range []*Client{a, b} {
		msg, _ := recv(t, c)
		if msg.Type != JSONMessage || string(msg.Data) != `{"plate":"ABC123"}` {
			t.Errorf("first message = %v %q", msg.Type, msg.Data)
		}
		msg, _ = recv(t, c)
		if msg.Type != BinaryMessage || len(msg.Data) != 2 {
			t.Errorf("second message = %v %v", msg.Type, msg.Data)
		}
	}
}

func TestHub_Unregister(t *testing.T) {
	h := startHub(t)
	c := addClient(h, 1)

	h.unregister <- c
	if _, ok := recv(t, c); ok {
		t.Error("send channel should be closed on unregister")
	}
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", h.ClientCount())
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := startHub(t)
	slow := addClient(h, 0)
	fast := addClient(h, 4)

	h.BroadcastBinary([]byte("frame"))

	if _, ok := recv(t, fast); !ok {
		t.Fatal("fast client should receive the frame")
	}
	if _, ok := recv(t, slow); ok {
		t.Error("slow client should have been dropped")
	}
	if h.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", h.ClientCount())
	}
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	h := New("idle") // not running, so nothing drains the queue

	for i := 0; i < cap(h.broadcast)+5; i++ {
		h.BroadcastBinary([]byte{byte(i)})
	}
	if h.Dropped() != 5 {
		t.Errorf("Dropped = %d, want 5", h.Dropped())
	}
}

func TestHub_Stop(t *testing.T) {
	h := startHub(t)
	c := addClient(h, 1)

	h.Stop()
	h.Stop() // idempotent

	if _, ok := recv(t, c); ok {
		t.Error("Stop should close client queues")
	}

	deadline := time.Now().Add(time.Second)
	for h.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("Run did not return after Stop")
		}
		time.Sleep(time.Millisecond)
	}
}
