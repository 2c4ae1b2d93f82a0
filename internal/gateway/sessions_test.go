package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alekspetrov/taskbot/internal/store"
	"github.com/alekspetrov/taskbot/internal/testutil"
)

func dialFeed(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForSessions(t *testing.T, sm *SessionManager, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for sm.Count() != n && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sm.Count() != n {
		t.Fatalf("Expected %d sessions, got %d", n, sm.Count())
	}
}

func readChange(t *testing.T, conn *websocket.Conn) store.Change {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var c store.Change
	if err := conn.ReadJSON(&c); err != nil {
		t.Fatalf("Failed to read change: %v", err)
	}
	return c
}

func TestTaskFeed(t *testing.T) {
	tasks := openStore(t)
	server := newTestServer(t, WebhookConfig{}, nil, tasks)
	tasks.OnChange(server.PublishChange)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	all := dialFeed(t, ts, "")
	onlyP2 := dialFeed(t, ts, "?psid=p2")
	waitForSessions(t, server.Sessions(), 2)

	task, err := tasks.Create(t.Context(), "p1", "buy milk")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	c := readChange(t, all)
	if c.Type != store.ChangeCreated || c.Task.ID != task.ID {
		t.Errorf("unexpected change: %+v", c)
	}

	if _, err := tasks.Create(t.Context(), "p2", "walk dog"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	c = readChange(t, onlyP2)
	if c.Task.SenderID != "p2" {
		t.Errorf("filtered session got change for %q", c.Task.SenderID)
	}
	_ = readChange(t, all)

	if _, err := tasks.Delete(t.Context(), task.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	c = readChange(t, all)
	if c.Type != store.ChangeDeleted || c.Task.Text != "buy milk" {
		t.Errorf("unexpected change: %+v", c)
	}
}

func TestFeedPingAndSubscribe(t *testing.T) {
	server := newTestServer(t, WebhookConfig{}, nil, nil)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	conn := dialFeed(t, ts, "")
	waitForSessions(t, server.Sessions(), 1)

	if err := conn.WriteJSON(Message{Type: MessageTypePing, Payload: json.RawMessage(`{"n":1}`)}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply Message
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if reply.Type != MessageTypePong || string(reply.Payload) != `{"n":1}` {
		t.Errorf("unexpected reply: %+v", reply)
	}

	if err := conn.WriteJSON(Message{Type: MessageTypeSubscribe, Payload: json.RawMessage(`{"psid":"p9"}`)}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if reply.Type != MessageTypeSubscribed {
		t.Errorf("unexpected reply: %+v", reply)
	}

	var session *Session
	server.sessions.mu.RLock()
	for _, s := range server.sessions.sessions {
		session = s
	}
	server.sessions.mu.RUnlock()
	if session.Filter() != "p9" {
		t.Errorf("Filter = %q, want p9", session.Filter())
	}
	if session.Follows("p1") || !session.Follows("p9") {
		t.Error("subscription filter not applied")
	}
}

func TestSessionRemovedOnDisconnect(t *testing.T) {
	server := newTestServer(t, WebhookConfig{}, nil, nil)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	conn := dialFeed(t, ts, "")
	waitForSessions(t, server.Sessions(), 1)

	_ = conn.Close()
	waitForSessions(t, server.Sessions(), 0)
}

func TestBroadcastWithoutSessions(t *testing.T) {
	sm := NewSessionManager()
	if n := sm.Broadcast([]byte(`{}`), "p1"); n != 0 {
		t.Errorf("Broadcast delivered to %d sessions, want 0", n)
	}
	sm.Remove("missing")
	sm.CloseAll()
	if sm.Count() != 0 {
		t.Errorf("Count = %d, want 0", sm.Count())
	}
}

func TestFeedRequiresAdminToken(t *testing.T) {
	server := NewServer(&Config{AdminToken: testutil.FakeAdminToken}, WebhookConfig{}, &recordingHandler{}, openStore(t))
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial without token to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("dial without token: resp = %v, want 401", resp)
	}
	if server.Sessions().Count() != 0 {
		t.Error("unauthenticated client registered a session")
	}

	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"?token=wrong", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("dial with wrong token: err = %v, resp = %v", err, resp)
	}

	_ = dialFeed(t, ts, "?token="+testutil.FakeAdminToken)
	waitForSessions(t, server.Sessions(), 1)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+testutil.FakeAdminToken)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial with bearer header failed: %v", err)
	}
	defer conn.Close()
	waitForSessions(t, server.Sessions(), 2)
}

func TestSessionSendQueueFull(t *testing.T) {
	s := &Session{
		ID:    "s1",
		queue: make(chan []byte, 2),
		done:  make(chan struct{}),
	}
	for i := range 2 {
		if err := s.Send([]byte("x")); err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
	}
	if err := s.Send([]byte("x")); !errors.Is(err, ErrSessionBackedUp) {
		t.Errorf("Send on full queue = %v, want ErrSessionBackedUp", err)
	}

	sm := NewSessionManager()
	sm.sessions[s.ID] = s
	if n := sm.Broadcast([]byte("x"), "p1"); n != 0 {
		t.Errorf("Broadcast delivered to %d sessions, want 0", n)
	}
	if sm.Count() != 0 {
		t.Error("backed-up session was not dropped")
	}
	if err := s.Send([]byte("x")); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Send after drop = %v, want ErrSessionClosed", err)
	}
}

func TestPublishChangeDoesNotWaitForStalledClient(t *testing.T) {
	server := newTestServer(t, WebhookConfig{}, nil, nil)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	// Never read from this client so its socket buffers fill up.
	_ = dialFeed(t, ts, "")
	waitForSessions(t, server.Sessions(), 1)

	change := store.Change{
		Type: store.ChangeCreated,
		Task: &store.Task{ID: "t1", SenderID: "p1", Text: string(bytes.Repeat([]byte("a"), 1<<20))},
	}
	start := time.Now()
	for range 200 {
		server.PublishChange(change)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("publishing took %v with a stalled client", elapsed)
	}
	waitForSessions(t, server.Sessions(), 0)
}
