package sse

import (
	"testing"
)

func TestSendToUser(t *testing.T) {
	h := NewHub(nil)
	alice := &Client{ID: "a1", UserID: "alice", Events: make(chan Event, 1)}
	bob := &Client{ID: "b1", UserID: "bob", Events: make(chan Event, 1)}
	h.Register(alice)
	h.Register(bob)

	h.Notify("alice", EventImportUpdate, map[string]string{"uid": "u1", "status": "success"})

	select {
	case ev := <-alice.Events:
		if ev.EventType != EventImportUpdate || ev.Data != `{"status":"success","uid":"u1"}` {
			t.Errorf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("expected event for alice")
	}
	select {
	case ev := <-bob.Events:
		t.Errorf("bob must not receive %+v", ev)
	default:
	}
}

func TestBufferFullSkips(t *testing.T) {
	h := NewHub(nil)
	c := &Client{ID: "c1", UserID: "u", Events: make(chan Event, 1)}
	h.Register(c)

	h.Broadcast(Event{EventType: "x", Data: "1"})
	h.Broadcast(Event{EventType: "x", Data: "2"})

	if ev := <-c.Events; ev.Data != "1" {
		t.Errorf("expected first event, got %+v", ev)
	}
}

func TestUnregisterClosesChannel(t *testing.T) {
	h := NewHub(nil)
	c := &Client{ID: "c1", UserID: "u", Events: make(chan Event, 1)}
	h.Register(c)
	h.Unregister("c1")
	h.Unregister("c1")

	if _, ok := <-c.Events; ok {
		t.Error("expected closed channel")
	}
	if h.Count() != 0 {
		t.Errorf("expected no clients, got %d", h.Count())
	}
}
