package runfeed

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startTestHub(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub(nil, log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(server.Close)

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dialAndReadStatus(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// The hello arrives only after registration, so reading it
	// guarantees the hub sees this client.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read status: %v", err)
	}

	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if env.Type != MessageTypeStatus {
		t.Fatalf("expected %s, got %s", MessageTypeStatus, env.Type)
	}

	return conn
}

func TestHub_StatusOnConnect(t *testing.T) {
	_, wsURL := startTestHub(t)
	dialAndReadStatus(t, wsURL)
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub, wsURL := startTestHub(t)

	first := dialAndReadStatus(t, wsURL)
	second := dialAndReadStatus(t, wsURL)

	if n := hub.ClientCount(); n != 2 {
		t.Fatalf("expected 2 clients, got %d", n)
	}

	update := RunUpdate{
		Type:           MessageTypeRunCompleted,
		RunID:          "run-1",
		Status:         "success",
		TradesInWindow: 3,
		TradesReported: 2,
		SimulationsRun: 8,
		DurationMs:     150,
	}
	if err := hub.Broadcast(update); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read update: %v", err)
		}

		var got RunUpdate
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("unmarshal update: %v", err)
		}
		if got.Type != MessageTypeRunCompleted {
			t.Errorf("Type: got %s, want %s", got.Type, MessageTypeRunCompleted)
		}
		if got.RunID != "run-1" {
			t.Errorf("RunID: got %s, want run-1", got.RunID)
		}
		if got.SimulationsRun != 8 {
			t.Errorf("SimulationsRun: got %d, want 8", got.SimulationsRun)
		}
	}
}

func TestHub_ClientCountAfterDisconnect(t *testing.T) {
	hub, wsURL := startTestHub(t)

	conn := dialAndReadStatus(t, wsURL)
	conn.Close()

	deadline := time.After(2 * time.Second)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatalf("client still registered after close: %d", hub.ClientCount())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHub_BroadcastQueueFull(t *testing.T) {
	// No Run loop, so nothing drains the queue.
	hub := NewHub(&Config{BroadcastBufferSize: 1}, log.New(io.Discard, "", 0))

	if err := hub.Broadcast(RunUpdate{RunID: "a"}); err != nil {
		t.Fatalf("first Broadcast: %v", err)
	}
	if err := hub.Broadcast(RunUpdate{RunID: "b"}); err == nil {
		t.Error("expected error when queue is full")
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub(nil, log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer server.Close()

	conn := dialAndReadStatus(t, "ws"+strings.TrimPrefix(server.URL, "http"))

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected close after hub shutdown")
	}
}
