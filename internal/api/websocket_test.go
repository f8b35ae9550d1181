package api

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register <- client

	hub.BroadcastProgress("heal", "matching", "Tanya ch. 32", 50)

	select {
	case raw := <-client.send:
		var msg ProgressMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decoding broadcast: %v", err)
		}
		if msg.Type != "progress" || msg.Operation != "heal" {
			t.Errorf("message = %+v, want progress/heal", msg)
		}
		if msg.Progress != 50 {
			t.Errorf("progress = %d, want 50", msg.Progress)
		}
		if msg.Timestamp == "" {
			t.Error("timestamp not set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast received")
	}

	hub.unregister <- client

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected send channel to be closed after unregister")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed after unregister")
	}
}

func TestHubBroadcastComplete(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register <- client

	hub.BroadcastComplete("heal", "done", map[string]interface{}{"matched": 3})

	select {
	case raw := <-client.send:
		var msg ProgressMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decoding broadcast: %v", err)
		}
		if msg.Type != "complete" || msg.Progress != 100 {
			t.Errorf("message = %+v, want complete at 100", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast received")
	}
}
