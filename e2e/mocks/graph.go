package mocks

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/alekspetrov/taskbot/internal/adapters/messenger"
)

// GraphMock is a mock Graph Send API server. It records every accepted
// message per recipient.
type GraphMock struct {
	server *httptest.Server

	mu       sync.Mutex
	messages map[string][]*messenger.Message
	failing  map[string]bool
	tokens   map[string]int
	nextID   int

	// OnSend, when set, is called for every accepted message.
	OnSend func(psid string, msg *messenger.Message)
}

// NewGraphMock starts a mock Graph API server.
func NewGraphMock() *GraphMock {
	m := &GraphMock{
		messages: make(map[string][]*messenger.Message),
		failing:  make(map[string]bool),
		tokens:   make(map[string]int),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handleRequest))
	return m
}

// URL returns the base URL to use as the Graph URL.
func (m *GraphMock) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *GraphMock) Close() {
	m.server.Close()
}

// Fail makes sends to psid answer with a Graph error object.
func (m *GraphMock) Fail(psid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[psid] = true
}

// Messages returns the messages accepted for psid in arrival order.
func (m *GraphMock) Messages(psid string) []*messenger.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*messenger.Message(nil), m.messages[psid]...)
}

// Total returns the number of accepted messages across all recipients.
func (m *GraphMock) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msgs := range m.messages {
		n += len(msgs)
	}
	return n
}

// Tokens returns how many requests carried each access token.
func (m *GraphMock) Tokens() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.tokens))
	for k, v := range m.tokens {
		out[k] = v
	}
	return out
}

func (m *GraphMock) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/me/messages" {
		http.NotFound(w, r)
		return
	}

	var req messenger.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == nil {
		writeGraphError(w, http.StatusBadRequest, 100, "Invalid parameter")
		return
	}

	m.mu.Lock()
	m.tokens[r.URL.Query().Get("access_token")]++
	if m.failing[req.Recipient.ID] {
		m.mu.Unlock()
		writeGraphError(w, http.StatusBadRequest, 551, "This person isn't available right now.")
		return
	}
	m.nextID++
	id := m.nextID
	m.messages[req.Recipient.ID] = append(m.messages[req.Recipient.ID], req.Message)
	onSend := m.OnSend
	m.mu.Unlock()

	if onSend != nil {
		onSend(req.Recipient.ID, req.Message)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(messenger.SendResponse{
		RecipientID: req.Recipient.ID,
		MessageID:   fmt.Sprintf("mid.%d", id),
	})
}

func writeGraphError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "OAuthException", "code": code},
	})
}
