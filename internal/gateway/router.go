package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/alekspetrov/taskbot/internal/logging"
)

// MessageType is the type of a frame a feed client sends.
type MessageType string

const (
	MessageTypePing       MessageType = "ping"
	MessageTypePong       MessageType = "pong"
	MessageTypeSubscribe  MessageType = "subscribe"
	MessageTypeSubscribed MessageType = "subscribed"
)

// Message is a client control frame.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	PSID string `json:"psid"`
}

// Router dispatches client frames to handlers by type.
type Router struct {
	handlers map[MessageType][]func(*Session, json.RawMessage)
	mu       sync.RWMutex
	log      *slog.Logger
}

// NewRouter creates a router with the ping and subscribe handlers registered.
func NewRouter() *Router {
	r := &Router{
		handlers: make(map[MessageType][]func(*Session, json.RawMessage)),
		log:      logging.WithComponent("gateway"),
	}
	r.RegisterMessageHandler(MessageTypePing, r.handlePing)
	r.RegisterMessageHandler(MessageTypeSubscribe, r.handleSubscribe)
	return r
}

// RegisterMessageHandler registers a handler for a message type
func (r *Router) RegisterMessageHandler(msgType MessageType, handler func(*Session, json.RawMessage)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[msgType] = append(r.handlers[msgType], handler)
}

// HandleMessage routes a frame to the registered handlers.
func (r *Router) HandleMessage(session *Session, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		r.log.Debug("Failed to parse client frame", slog.Any("error", err))
		return
	}

	r.mu.RLock()
	handlers, ok := r.handlers[msg.Type]
	r.mu.RUnlock()

	if !ok {
		r.log.Debug("No handler for client frame", slog.String("type", string(msg.Type)))
		return
	}

	for _, handler := range handlers {
		handler(session, msg.Payload)
	}
}

func (r *Router) reply(session *Session, msg Message) {
	data, _ := json.Marshal(msg)
	if err := session.Send(data); err != nil {
		r.log.Debug("Failed to reply to client", slog.String("session_id", session.ID), slog.Any("error", err))
	}
}

// handlePing responds to ping messages
func (r *Router) handlePing(session *Session, payload json.RawMessage) {
	session.UpdatePing()
	r.reply(session, Message{Type: MessageTypePong, Payload: payload})
}

// handleSubscribe switches the session to a single sender, or back to all
// senders when psid is empty.
func (r *Router) handleSubscribe(session *Session, payload json.RawMessage) {
	var p subscribePayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			r.log.Debug("Invalid subscribe payload", slog.Any("error", err))
			return
		}
	}
	session.SetFilter(p.PSID)
	ack, _ := json.Marshal(p)
	r.reply(session, Message{Type: MessageTypeSubscribed, Payload: ack})
}
