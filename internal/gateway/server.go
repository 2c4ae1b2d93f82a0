// Package gateway is taskbot's HTTP surface: the Messenger webhook, the admin
// task API, health and metrics endpoints and the websocket task feed.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alekspetrov/taskbot/internal/adapters/messenger"
	"github.com/alekspetrov/taskbot/internal/logging"
	"github.com/alekspetrov/taskbot/internal/metrics"
	"github.com/alekspetrov/taskbot/internal/store"
)

// EventHandler processes one messaging event from a webhook delivery.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev *messenger.MessagingEvent) (*messenger.Message, error)
}

// TaskStore is the store surface the admin API needs.
type TaskStore interface {
	Create(ctx context.Context, senderID, text string) (*store.Task, error)
	ListAll(ctx context.Context) ([]*store.Task, error)
	ListBySender(ctx context.Context, senderID string) ([]*store.Task, error)
}

// Config holds gateway server configuration including network binding options.
type Config struct {
	// Host is the network interface to bind to (e.g., "127.0.0.1" or "0.0.0.0").
	Host string `yaml:"host"`
	// Port is the TCP port number to listen on.
	Port int `yaml:"port"`
	// AdminToken, when set, is required as a bearer token on /task/* and /ws
	// requests. /ws also accepts it as a "token" query parameter.
	AdminToken string `yaml:"admin_token,omitempty"`
}

// WebhookConfig holds the secrets used to authenticate the platform.
type WebhookConfig struct {
	VerifyToken string
	AppSecret   string // empty disables signature checks
}

// Server is the gateway HTTP server. Server is safe for concurrent use.
type Server struct {
	config   *Config
	webhook  WebhookConfig
	events   EventHandler
	tasks    TaskStore
	metrics  *metrics.Metrics
	sessions *SessionManager
	router   *Router
	upgrader websocket.Upgrader
	server   *http.Server
	log      *slog.Logger
	mu       sync.RWMutex
	running  bool
}

// ServerOption is a functional option for configuring Server.
type ServerOption func(*Server)

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates a new gateway server. The server is not started until
// Start is called.
func NewServer(config *Config, webhook WebhookConfig, events EventHandler, tasks TaskStore, opts ...ServerOption) *Server {
	s := &Server{
		config:   config,
		webhook:  webhook,
		events:   events,
		tasks:    tasks,
		sessions: NewSessionManager(),
		log:      logging.WithComponent("gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return strings.HasPrefix(origin, "http://localhost") ||
					strings.HasPrefix(origin, "http://127.0.0.1") ||
					strings.HasPrefix(origin, "https://localhost") ||
					strings.HasPrefix(origin, "https://127.0.0.1")
			},
		},
	}
	s.router = NewRouter()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the request multiplexer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	var feed http.Handler = http.HandlerFunc(s.handleWebSocket)
	if s.config.AdminToken != "" {
		feed = NewAuthenticator(&AuthConfig{Token: s.config.AdminToken, QueryParam: "token"}).Middleware(feed)
	}
	mux.Handle("/ws", feed)

	mux.Handle("/webhook", s.instrument("/webhook", http.HandlerFunc(s.handleWebhook)))

	admin := func(route string, h http.HandlerFunc) http.Handler {
		var handler http.Handler = h
		if s.config.AdminToken != "" {
			handler = NewAuthenticator(&AuthConfig{Token: s.config.AdminToken}).Middleware(handler)
		}
		return s.instrument(route, handler)
	}
	mux.Handle("/task/create", admin("/task/create", s.handleTaskCreate))
	mux.Handle("/task/all", admin("/task/all", s.handleTaskAll))
	mux.Handle("/task/get", admin("/task/get", s.handleTaskGet))

	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

// Start starts the server and blocks until the context is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.log.Info("Gateway starting", slog.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the server with a 30-second timeout and
// closes every websocket session.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.running = false
	s.sessions.CloseAll()
	return s.server.Shutdown(ctx)
}

// Sessions returns the websocket session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// PublishChange queues a store change for every websocket subscriber that
// follows the task's sender. It does not wait for any client.
func (s *Server) PublishChange(change store.Change) {
	data, err := json.Marshal(change)
	if err != nil {
		s.log.Error("Failed to encode change", slog.Any("error", err))
		return
	}
	n := s.sessions.Broadcast(data, change.Task.SenderID)
	s.log.Debug("Change published",
		slog.String("type", string(change.Type)),
		slog.String("task_id", change.Task.ID),
		slog.Int("sessions", n),
	)
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"})
}

// handleWebSocket upgrades the connection and keeps it registered until the
// client goes away. A "psid" query parameter limits the feed to one sender.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("WebSocket upgrade error", slog.Any("error", err))
		return
	}

	session := s.sessions.Create(conn, r.URL.Query().Get("psid"))
	if s.metrics != nil {
		s.metrics.WSClients.Inc()
		defer s.metrics.WSClients.Dec()
	}
	defer s.sessions.Remove(session.ID)

	s.log.Info("New WebSocket session",
		slog.String("session_id", session.ID),
		slog.String("sender_psid", session.Filter()),
	)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn("WebSocket error", slog.Any("error", err))
			}
			break
		}
		s.router.HandleMessage(session, message)
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request count and latency for route.
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.ObserveRequest(route, r.Method, rec.status, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
