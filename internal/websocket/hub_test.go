package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"salesdesk/internal/auth"
	"salesdesk/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func startServer(t *testing.T, hub *Hub, issuer *auth.TokenIssuer) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	go hub.Run()

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, issuer) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string, issuer *auth.TokenIssuer, user *model.User) *websocket.Conn {
	t.Helper()
	token, _, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// firstEvent keeps publishing until conn receives something, since
// registration with the hub is asynchronous.
func firstEvent(t *testing.T, conn *websocket.Conn, publish func()) Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(20 * time.Millisecond):
				publish()
			}
		}
	}()

	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode %q: %v", msg, err)
	}
	return ev
}

func TestServeWsRequiresToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	url := startServer(t, NewHub(nil), issuer)

	for _, target := range []string{url, url + "?token=garbage"} {
		_, resp, err := websocket.DefaultDialer.Dial(target, nil)
		if err == nil {
			t.Fatalf("%s: expected dial to fail", target)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %v", target, resp)
		}
	}
}

func TestJournalistOnlyReceivesOwnEvents(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	hub := NewHub(nil)
	url := startServer(t, hub, issuer)

	jane := &model.User{ID: uuid.New(), Email: "jane@example.com", Role: model.RoleJournalist}
	other := uuid.New()
	conn := dial(t, url, issuer, jane)

	ev := firstEvent(t, conn, func() {
		hub.Publish("sale.approved", other, map[string]string{"id": "theirs"})
		hub.Publish("commission.payment", uuid.Nil, map[string]string{"id": "admin-only"})
		hub.Publish("sale.created", jane.ID, map[string]string{"id": "mine"})
	})
	if ev.Type != "sale.created" {
		t.Fatalf("journalist received %q", ev.Type)
	}
}

func TestAdminReceivesEveryEvent(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	hub := NewHub(nil)
	url := startServer(t, hub, issuer)

	admin := &model.User{ID: uuid.New(), Email: "admin@example.com", Role: model.RoleAdmin}
	conn := dial(t, url, issuer, admin)

	ev := firstEvent(t, conn, func() {
		hub.Publish("invoice.generated", uuid.New(), map[string]string{"invoice_number": "INV-2024-001"})
	})
	if ev.Type != "invoice.generated" || ev.Timestamp.IsZero() {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestOriginCheck(t *testing.T) {
	tests := []struct {
		allowed []string
		origin  string
		want    bool
	}{
		{nil, "http://anywhere.test", true},
		{[]string{"*"}, "http://anywhere.test", true},
		{[]string{"http://localhost:5173"}, "http://localhost:5173", true},
		{[]string{"http://localhost:5173"}, "http://evil.test", false},
		{[]string{"http://localhost:5173"}, "", true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := originChecker(tt.allowed)(r); got != tt.want {
			t.Errorf("allowed=%v origin=%q: got %v, want %v", tt.allowed, tt.origin, got, tt.want)
		}
	}
}
