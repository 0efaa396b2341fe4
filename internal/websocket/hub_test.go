package websocket

import (
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

	"github.com/dukerupert/pointjar/internal/auth"
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
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 1)
	c3 := mockClient(hub, 2)
	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	if got := hub.ClientCount(); got != 3 {
		t.Fatalf("ClientCount = %d, want 3", got)
	}
	if got := hub.UserClientCount(1); got != 2 {
		t.Fatalf("UserClientCount(1) = %d, want 2", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c3)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount = %d, want 1", got)
	}
	if got := hub.UserClientCount(2); got != 0 {
		t.Fatalf("UserClientCount(2) = %d, want 0", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("ClientCount = %d, want 0", got)
	}
}

func TestSendToUser(t *testing.T) {
	hub := NewHub(slog.Default())
	mine := mockClient(hub, 1)
	other := mockClient(hub, 2)
	hub.Register(mine)
	hub.Register(other)

	hub.SendToUser(1, NewMessage("balance", "changed", 1, map[string]int{"point_balance": 125}))

	msg := receive(t, mine)
	if msg.Type != "balance_changed" {
		t.Errorf("Type = %q, want balance_changed", msg.Type)
	}
	select {
	case <-other.send:
		t.Error("other user received a message")
	default:
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())
	clients := []*Client{mockClient(hub, 1), mockClient(hub, 2), mockClient(hub, 2)}
	for _, c := range clients {
		hub.Register(c)
	}

	hub.Broadcast(NewMessage("reward", "created", 7, nil))

	for i, c := range clients {
		msg := receive(t, c)
		if msg.Type != "reward_created" || msg.ID != 7 {
			t.Errorf("client %d got %+v", i, msg)
		}
	}
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize+5; i++ {
		hub.SendToUser(1, NewMessage("notification", "created", int64(i), nil))
	}
	if got := len(c.send); got != sendBufferSize {
		t.Errorf("buffered = %d, want %d", got, sendBufferSize)
	}
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("notification", "created", 42, nil)
	if msg.Type != "notification_created" {
		t.Errorf("Type = %q, want notification_created", msg.Type)
	}
	if msg.Entity != "notification" || msg.Action != "created" || msg.ID != 42 {
		t.Errorf("msg = %+v", msg)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := mockClient(hub, int64(i%5))
			hub.Register(c)
			hub.SendToUser(int64(i%5), NewMessage("balance", "changed", 0, nil))
			hub.Broadcast(NewMessage("reward", "updated", 0, nil))
			hub.Unregister(c)
		}(i)
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount = %d, want 0", got)
	}
}

func TestHandleWebSocketRequiresSession(t *testing.T) {
	hub := NewHub(slog.Default())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ws", nil)

	HandleWebSocket(hub, nil)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandleWebSocketDelivers(t *testing.T) {
	hub := NewHub(slog.Default())
	handler := HandleWebSocket(hub, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: 9, Username: "joep", Role: "member"})
		handler(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for hub.UserClientCount(9) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	hub.SendToUser(9, NewMessage("notification", "created", 3, map[string]string{"message": "Added 5 points: dishes"}))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "notification_created" || msg.ID != 3 {
		t.Errorf("msg = %+v", msg)
	}
}
