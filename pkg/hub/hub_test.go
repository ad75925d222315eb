package hub

import (
	"errors"
	"testing"
	"time"
)

func newTestClient(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan Message, buffer)}
	if !h.add(c) {
		panic("hub stopped")
	}
	return c
}

func startHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := New("test", opts...)
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	t.Cleanup(func() {
		h.Stop()
		<-done
	})
	return h
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case m, ok := <-c.send:
		if !ok {
			t.Fatal("client channel closed")
		}
		return m
	case <-time.After(time.Second):
		t.Fatal("no message")
	}
	return Message{}
}

func TestBroadcastFanOut(t *testing.T) {
	h := startHub(t)
	a := newTestClient(h, 4)
	b := newTestClient(h, 4)

	if err := h.BroadcastJSON(map[string]string{"state": "idle"}); err != nil {
		t.Fatal(err)
	}

	for _, c := range []*Client{a, b} {
		m := receive(t, c)
		if m.Type != JSONMessage || string(m.Data) != `{"state":"idle"}` {
			t.Errorf("message = %v %q", m.Type, m.Data)
		}
	}
	if h.ClientCount() != 2 {
		t.Errorf("ClientCount = %d, want 2", h.ClientCount())
	}
}

func TestBinaryMessage(t *testing.T) {
	h := startHub(t)
	c := newTestClient(h, 1)

	h.BroadcastBinary([]byte{0xFF, 0xD8})
	if m := receive(t, c); m.Type != BinaryMessage || len(m.Data) != 2 {
		t.Errorf("message = %+v", m)
	}
}

func TestSlowClientDropped(t *testing.T) {
	h := startHub(t)
	slow := newTestClient(h, 1)

	h.BroadcastBinary([]byte{1})
	h.BroadcastBinary([]byte{2})

	deadline := time.Now().Add(time.Second)
	for h.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow client not dropped")
		}
		time.Sleep(time.Millisecond)
	}

	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Error("slow client channel still open")
	}
}

func TestRetainReplaysLatest(t *testing.T) {
	h := startHub(t, WithRetain())
	first := newTestClient(h, 4)

	h.BroadcastJSON(1)
	h.BroadcastJSON(2)
	receive(t, first)
	receive(t, first)

	late := newTestClient(h, 4)
	if m := receive(t, late); string(m.Data) != "2" {
		t.Errorf("replayed %q, want 2", m.Data)
	}
}

func TestStopClosesClients(t *testing.T) {
	h := New("stop")
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	c := newTestClient(h, 1)

	h.Stop()
	h.Stop()
	<-done

	if _, ok := <-c.send; ok {
		t.Error("client channel still open after Stop")
	}
	if h.IsRunning() {
		t.Error("hub still running")
	}
}

func TestNewClientAfterStop(t *testing.T) {
	h := New("stopped")
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	h.Stop()
	<-done

	errc := make(chan error, 1)
	go func() {
		_, err := NewClient(h, nil)
		errc <- err
	}()
	select {
	case err := <-errc:
		if !errors.Is(err, ErrStopped) {
			t.Errorf("err = %v, want ErrStopped", err)
		}
	case <-time.After(time.Second):
		t.Fatal("NewClient blocked on a stopped hub")
	}
}
