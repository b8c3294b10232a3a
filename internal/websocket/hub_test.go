package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/basket/internal/auth"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID int64) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Errorf("unexpected message %s", data)
	default:
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 2)
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
	// Should not panic
	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestPublishScopedToUser(t *testing.T) {
	hub := NewHub(slog.Default())

	alice1 := mockClient(hub, 1)
	alice2 := mockClient(hub, 1)
	bob := mockClient(hub, 2)
	for _, c := range []*Client{alice1, alice2, bob} {
		hub.Register(c)
	}

	hub.Publish(1, NewMessage(EntityItem, "toggled", 42, 7, map[string]any{"is_checked": true}))

	for _, c := range []*Client{alice1, alice2} {
		got := receive(t, c)
		if got.Type != "shopping_list_item_toggled" {
			t.Errorf("type = %s, want shopping_list_item_toggled", got.Type)
		}
		if got.ID != 42 || got.ListID != 7 {
			t.Errorf("id/list = %d/%d, want 42/7", got.ID, got.ListID)
		}
		if got.Extra["is_checked"] != true {
			t.Errorf("extra = %v", got.Extra)
		}
	}
	assertEmpty(t, bob)
}

func TestPublishAll(t *testing.T) {
	hub := NewHub(slog.Default())
	alice := mockClient(hub, 1)
	bob := mockClient(hub, 2)
	hub.Register(alice)
	hub.Register(bob)

	hub.PublishAll(NewMessage(EntityPrice, "recorded", 3, 0, nil))

	for _, c := range []*Client{alice, bob} {
		if got := receive(t, c); got.Entity != EntityPrice {
			t.Errorf("entity = %s, want price", got.Entity)
		}
	}
}

func TestPublishEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Publish(1, NewMessage(EntityList, "deleted", 1, 1, nil))
}

func TestPublishFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Publish(1, NewMessage("test", "fill", int64(i), 0, nil))
	}
	// dropped, must not block
	hub.Publish(1, NewMessage("test", "dropped", 999, 0, nil))

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("expected %d buffered messages, got %d", sendBufferSize, got)
	}
	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage(EntityList, "updated", 5, 5, nil)
	if msg.Type != "shopping_list_updated" {
		t.Errorf("expected type shopping_list_updated, got %s", msg.Type)
	}
	if msg.Entity != EntityList || msg.Action != "updated" || msg.ID != 5 {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			c := mockClient(hub, userID)
			hub.Register(c)
			hub.Publish(userID, NewMessage("test", "concurrent", 0, 0, nil))
			hub.PublishAll(NewMessage("test", "all", 0, 0, nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(int64(i % 3))
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestSubscribeReceivesPublishedMessages(t *testing.T) {
	hub := NewHub(slog.Default())
	handler := HandleWebSocket(hub, slog.Default())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token secret" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		handler(w, r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{UserID: 1})))
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- Subscribe(ctx, url, "secret", nil, func(m Message) { got <- m })
	}()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(2, NewMessage(EntityList, "updated", 9, 9, nil))
	hub.Publish(1, NewMessage(EntityItem, "created", 3, 4, nil))

	select {
	case m := <-got:
		if m.Type != "shopping_list_item_created" || m.ListID != 4 {
			t.Errorf("unexpected message %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("subscribe returned %v after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not return after cancel")
	}
}

func TestSubscribeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	err := Subscribe(context.Background(), url, "wrong", nil, func(Message) {})
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error %q should mention the status", err)
	}
}

func TestSubscribeLogsUndecodableFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		ctx := r.Context()
		conn.Write(ctx, ws.MessageText, []byte("not json"))
		data, _ := json.Marshal(NewMessage(EntityList, "updated", 5, 5, nil))
		conn.Write(ctx, ws.MessageText, data)
		conn.Close(ws.StatusNormalClosure, "")
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var got []Message
	err := Subscribe(context.Background(), url, "", logger, func(m Message) { got = append(got, m) })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(got) != 1 || got[0].Type != "shopping_list_updated" {
		t.Errorf("messages = %+v, want the one valid frame", got)
	}
	if !strings.Contains(logs.String(), "skip undecodable frame") {
		t.Errorf("expected a debug log for the bad frame, got %q", logs.String())
	}
}
