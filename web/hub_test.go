package web

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubBroadcastReachesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register <- client

	hub.BroadcastMessage(Message{
		Type: MessageTypeProgress,
		Data: ProgressMessage{Percent: 75},
	})

	select {
	case raw := <-client.send:
		var msg struct {
			Type string `json:"type"`
			Data struct {
				Percent int `json:"percent"`
			} `json:"data"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type != MessageTypeProgress || msg.Data.Percent != 75 {
			t.Errorf("got %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never reached client")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// The slow client has an unbuffered channel with nobody receiving,
	// so the hub's non-blocking send cannot land a message on it. The
	// healthy client doubles as a sentinel for broadcast completion.
	slow := &Client{hub: hub, send: make(chan []byte)}
	healthy := &Client{hub: hub, send: make(chan []byte, 8)}
	hub.register <- slow
	hub.register <- healthy

	recvHealthy := func() {
		t.Helper()
		select {
		case <-healthy.send:
		case <-time.After(2 * time.Second):
			t.Fatal("healthy client missed a broadcast")
		}
	}

	hub.BroadcastMessage(Message{Type: MessageTypeStatus, Data: StatusMessage{State: "idle"}})
	recvHealthy()

	// A second full broadcast round proves the first one is done and
	// the slow client has been dropped by then.
	hub.BroadcastMessage(Message{Type: MessageTypeStatus, Data: StatusMessage{State: "typing"}})
	recvHealthy()

	// The hub closes a dropped client's send channel.
	select {
	case _, ok := <-slow.send:
		if ok {
			t.Fatal("slow client still held a message after the drop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("slow client was never dropped")
	}
}
