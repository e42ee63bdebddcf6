package www

import (
	"context"
	"testing"
	"time"
)

func TestHub(t *testing.T) {
	hub := NewHub(discard)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := &Client{hub: hub, logger: discard, send: make(chan []byte, 1), name: "test"}
	if !hub.Join(client) {
		t.Fatalf("expected running hub to accept the client")
	}

	hub.Broadcast <- []byte("latest")
	select {
	case msg := <-client.send:
		if string(msg) != "latest" {
			t.Errorf("expected broadcast message, got %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("no message broadcast to client")
	}

	cancel()
	<-stopped

	if _, ok := <-client.send; ok {
		t.Errorf("expected send channel to be closed on shutdown")
	}

	// Neither may block once the hub is gone
	done := make(chan bool)
	go func() {
		hub.Leave(client)
		done <- hub.Join(&Client{hub: hub, logger: discard, send: make(chan []byte, 1), name: "late"})
	}()
	select {
	case joined := <-done:
		if joined {
			t.Errorf("expected stopped hub to refuse new clients")
		}
	case <-time.After(time.Second):
		t.Fatalf("Join or Leave blocked after the hub stopped")
	}
}
