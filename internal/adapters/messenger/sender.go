package messenger

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alekspetrov/taskbot/internal/logging"
)

// Sender delivers outbound messages.
type Sender interface {
	Send(ctx context.Context, psid string, msg *Message) (*SendResponse, error)
}

// Dispatcher hands a message off for delivery without waiting for the result.
type Dispatcher interface {
	Dispatch(ctx context.Context, psid string, msg *Message)
}

// BackgroundSender sends every message on its own goroutine, detached from
// the caller's cancellation. Failures are logged and reported to OnResult,
// never retried.
type BackgroundSender struct {
	sender   Sender
	log      *slog.Logger
	wg       sync.WaitGroup
	onResult func(err error)
}

// NewBackgroundSender wraps sender. onResult may be nil.
func NewBackgroundSender(sender Sender, onResult func(err error)) *BackgroundSender {
	return &BackgroundSender{
		sender:   sender,
		log:      logging.WithComponent("messenger"),
		onResult: onResult,
	}
}

// Dispatch queues msg for psid and returns immediately.
func (b *BackgroundSender) Dispatch(ctx context.Context, psid string, msg *Message) {
	if msg == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		log := logging.WithContext(logging.ContextWithSender(ctx, psid), b.log)
		_, err := b.sender.Send(ctx, psid, msg)
		if err != nil {
			log.Error("Failed to send message", slog.Any("error", err))
		} else {
			log.Debug("Message sent")
		}
		if b.onResult != nil {
			b.onResult(err)
		}
	}()
}

// Wait blocks until every dispatched send has finished.
func (b *BackgroundSender) Wait() {
	b.wg.Wait()
}
