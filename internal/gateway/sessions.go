package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// wsWriteTimeout bounds a single websocket write.
	wsWriteTimeout = 5 * time.Second
	// sessionQueueSize is how many frames may wait for a slow client.
	sessionQueueSize = 64
)

var (
	// ErrSessionBackedUp is returned when a client is not draining its frames.
	ErrSessionBackedUp = errors.New("session send queue full")
	// ErrSessionClosed is returned when sending to a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// Session is one task-feed websocket client. Frames are queued and written by
// a per-session goroutine so senders never wait on the network.
type Session struct {
	ID        string
	Conn      *websocket.Conn
	CreatedAt time.Time
	LastPing  time.Time

	mu     sync.Mutex
	filter string // sender PSID; empty follows every sender

	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// SessionManager tracks connected feed clients.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessionManager creates a new session manager
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

// Create registers a connection that follows psid ("" for all senders).
func (m *SessionManager) Create(conn *websocket.Conn, psid string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	session := &Session{
		ID:        uuid.New().String(),
		Conn:      conn,
		CreatedAt: now,
		LastPing:  now,
		filter:    psid,
		queue:     make(chan []byte, sessionQueueSize),
		done:      make(chan struct{}),
	}
	m.sessions[session.ID] = session
	go session.writeLoop()
	return session
}

// Get retrieves a session by ID
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	return session, ok
}

// Remove closes and forgets a session.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[id]; ok {
		session.close()
		delete(m.sessions, id)
	}
}

// CloseAll closes every session.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, session := range m.sessions {
		session.close()
		delete(m.sessions, id)
	}
}

// Count returns the number of active sessions
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Broadcast queues message for every session following psid and returns how
// many accepted it. It never blocks; sessions that cannot keep up are dropped.
func (m *SessionManager) Broadcast(message []byte, psid string) int {
	m.mu.RLock()
	var failed []string
	delivered := 0
	for id, session := range m.sessions {
		if !session.Follows(psid) {
			continue
		}
		if err := session.Send(message); err != nil {
			failed = append(failed, id)
			continue
		}
		delivered++
	}
	m.mu.RUnlock()

	for _, id := range failed {
		m.Remove(id)
	}
	return delivered
}

// Send queues a text frame for this session without waiting for the write.
func (s *Session) Send(message []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.queue <- message:
		return nil
	default:
		return ErrSessionBackedUp
	}
}

// writeLoop writes queued frames until the session closes or a write fails.
func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case message := <-s.queue:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := s.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.close()
				return
			}
		}
	}
}

// close stops the writer and closes the connection. Safe to call repeatedly.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.Conn != nil {
			_ = s.Conn.Close()
		}
	})
}

// Follows reports whether the session wants changes for psid.
func (s *Session) Follows(psid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter == "" || s.filter == psid
}

// Filter returns the followed sender, or "" for all.
func (s *Session) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SetFilter changes the followed sender.
func (s *Session) SetFilter(psid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = psid
}

// UpdatePing updates the last ping time
func (s *Session) UpdatePing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastPing = time.Now()
}
