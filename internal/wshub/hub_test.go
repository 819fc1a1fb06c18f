package wshub

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRegisterAndBroadcast(t *testing.T) {
	h := NewHub()

	c1 := &Client{ID: "c1", Send: make(chan []byte, 16)}
	c2 := &Client{ID: "c2", Send: make(chan []byte, 16)}
	h.Register(c1)
	h.Register(c2)

	h.Broadcast(ServerMessage{Type: "state", Version: 3, State: map[string]int{"combo": 2}})

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.Send:
			var got struct {
				Type    string         `json:"t"`
				Version int            `json:"v"`
				State   map[string]int `json:"s"`
			}
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "state" || got.Version != 3 || got.State["combo"] != 2 {
				t.Fatalf("unexpected message: %+v", got)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("%s did not receive message", c.ID)
		}
	}
}

func TestSendTo(t *testing.T) {
	h := NewHub()
	c1 := &Client{ID: "c1", Send: make(chan []byte, 16)}
	c2 := &Client{ID: "c2", Send: make(chan []byte, 16)}
	h.Register(c1)
	h.Register(c2)

	h.SendTo("c1", ServerMessage{Type: "error", Error: "bad json"})

	select {
	case data := <-c1.Send:
		if string(data) != `{"t":"error","e":"bad json"}` {
			t.Errorf("got %s", data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("c1 did not receive message")
	}
	select {
	case <-c2.Send:
		t.Fatal("c2 should not receive a targeted message")
	default:
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := NewHub()
	c1 := &Client{ID: "c1", Send: make(chan []byte, 16)}
	h.Register(c1)

	h.Unregister("c1")

	if _, ok := <-c1.Send; ok {
		t.Fatal("c1.Send should be closed")
	}
	if h.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.Len())
	}
}

func TestUnregisterNonexistent(t *testing.T) {
	h := NewHub()
	// Should not panic
	h.Unregister("nonexistent")
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := NewHub()

	c := &Client{ID: "c1", Send: make(chan []byte, 1)}
	h.Register(c)
	c.Send <- []byte("filler")

	// This should not block; the message is dropped
	h.Broadcast(ServerMessage{Type: "state"})

	data := <-c.Send
	if string(data) != "filler" {
		t.Fatalf("expected filler, got: %s", data)
	}
	select {
	case <-c.Send:
		t.Fatal("should be empty after draining filler")
	default:
	}
}

func TestCloseRejectsRegistration(t *testing.T) {
	h := NewHub()
	c1 := &Client{ID: "c1", Send: make(chan []byte, 1)}
	h.Register(c1)

	h.Close()

	if _, ok := <-c1.Send; ok {
		t.Error("c1.Send should be closed")
	}
	if h.Register(&Client{ID: "late", Send: make(chan []byte, 1)}) {
		t.Error("Register() after Close = true, want false")
	}
}
