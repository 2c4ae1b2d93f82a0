package gateway

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/alekspetrov/taskbot/internal/adapters/messenger"
	"github.com/alekspetrov/taskbot/internal/logging"
)

// maxWebhookBody bounds the size of a webhook delivery.
const maxWebhookBody = 1 << 20

// handleWebhook serves the platform's verification handshake (GET) and event
// deliveries (POST).
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleVerify(w, r)
	case http.MethodPost:
		s.handleEvents(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleVerify answers the subscription handshake.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "" || token == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if mode != "subscribe" || s.webhook.VerifyToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(s.webhook.VerifyToken)) != 1 {
		s.log.Warn("Webhook verification failed", slog.String("mode", mode))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	s.log.Info("Webhook verified")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

// handleEvents processes every messaging event of every entry in order and
// acknowledges the delivery. Handler failures are logged and counted but do
// not change the acknowledgement.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if s.webhook.AppSecret != "" {
		if !messenger.VerifySignature(s.webhook.AppSecret, body, r.Header.Get(messenger.SignatureHeader)) {
			s.log.Warn("Invalid webhook signature")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	var payload messenger.WebhookBody
	if err := json.Unmarshal(body, &payload); err != nil {
		s.log.Warn("Invalid webhook body", slog.Any("error", err))
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if payload.Object != "page" {
		http.NotFound(w, r)
		return
	}

	for _, entry := range payload.Entry {
		for _, ev := range entry.Messaging {
			if ev == nil {
				continue
			}
			s.countEvent(ev)
			ctx := logging.ContextWithSender(r.Context(), ev.SenderID())
			ctx = logging.ContextWithCorrelationID(ctx, ev.MessageID())
			if _, err := s.events.HandleEvent(ctx, ev); err != nil {
				logging.WithContext(ctx, s.log).Error("Event handling failed", slog.Any("error", err))
				if s.metrics != nil {
					s.metrics.StoreErrors.Inc()
				}
			}
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "EVENT_RECEIVED")
}

func (s *Server) countEvent(ev *messenger.MessagingEvent) {
	if s.metrics == nil {
		return
	}
	kind := "other"
	switch {
	case ev.Message != nil:
		kind = "message"
	case ev.Postback != nil:
		kind = "postback"
	}
	s.metrics.WebhookEvents.WithLabelValues(kind).Inc()
}
