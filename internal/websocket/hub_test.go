package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, webinarID string) *Client {
	return &Client{
		hub:       hub,
		send:      make(chan []byte, sendBufferSize),
		webinarID: webinarID,
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "")
	c2 := mockClient(hub, "")

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	// Second unregister must not panic on the closed channel.
	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func receive(t *testing.T, c *Client) (Event, bool) {
	t.Helper()
	select {
	case data := <-c.send:
		var got Event
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got, true
	case <-time.After(100 * time.Millisecond):
		return Event{}, false
	}
}

func TestBroadcastFiltersByWebinar(t *testing.T) {
	hub := NewHub(slog.Default())

	all := mockClient(hub, "")
	watching := mockClient(hub, "web-1")
	other := mockClient(hub, "web-2")
	for _, c := range []*Client{all, watching, other} {
		hub.Register(c)
	}

	hub.Broadcast(NewRegistrationEvent(ActionCreated, "web-1", 3))

	for _, c := range []*Client{all, watching} {
		got, ok := receive(t, c)
		if !ok {
			t.Fatal("timeout waiting for event")
		}
		if got.Type != "registration_created" {
			t.Errorf("type = %q, want registration_created", got.Type)
		}
		if got.WebinarID != "web-1" || got.RegisteredCount != 3 {
			t.Errorf("got %+v, want web-1 with count 3", got)
		}
	}
	if _, ok := receive(t, other); ok {
		t.Error("client watching web-2 should not receive web-1 events")
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	hub.Broadcast(NewRegistrationEvent(ActionDeleted, "web-1", 0))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, "")
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewRegistrationEvent(ActionCreated, "web-1", i))
	}
	// Dropped, not blocked.
	hub.Broadcast(NewRegistrationEvent(ActionCreated, "web-1", 999))

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("buffered = %d, want %d", got, sendBufferSize)
	}
	hub.Unregister(c)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, "")
			hub.Register(c)
			hub.Broadcast(NewRegistrationEvent(ActionCreated, "web-1", 1))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestHandleWebSocketStreamsEvents(t *testing.T) {
	hub := NewHub(slog.Default())
	srv := httptest.NewServer(HandleWebSocket(hub, nil, slog.Default()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?webinarId=web-1"
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Broadcast(NewRegistrationEvent(ActionCreated, "web-2", 1))
	hub.Broadcast(NewRegistrationEvent(ActionDeleted, "web-1", 0))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "registration_deleted" || got.WebinarID != "web-1" {
		t.Errorf("got %+v, want registration_deleted for web-1", got)
	}
}
