package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alekspetrov/taskbot/internal/adapters/messenger"
	"github.com/alekspetrov/taskbot/internal/logging"
	"github.com/alekspetrov/taskbot/internal/store"
)

// TaskStore is the part of the store the dispatcher mutates.
type TaskStore interface {
	Create(ctx context.Context, senderID, text string) (*store.Task, error)
	ListBySender(ctx context.Context, senderID string) ([]*store.Task, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Observer is notified of every resolved action.
type Observer interface {
	ActionResolved(intent string)
	RateLimitHit()
}

// Config configures a Dispatcher.
type Config struct {
	Commands CommandTable
	Render   RenderOptions
	Limiter  *messenger.RateLimiter // nil disables rate limiting
	Observer Observer               // optional
}

// Dispatcher handles one messaging event at a time: it resolves the event,
// applies any store mutation and hands the reply to the sender.
type Dispatcher struct {
	store    TaskStore
	sender   messenger.Dispatcher
	catalog  *Catalog
	commands CommandTable
	render   RenderOptions
	limiter  *messenger.RateLimiter
	observer Observer
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher. sender may be nil, in which case replies
// are only returned.
func NewDispatcher(ts TaskStore, sender messenger.Dispatcher, cfg Config) *Dispatcher {
	commands := cfg.Commands
	if commands == nil {
		commands = DefaultCommands()
	}
	return &Dispatcher{
		store:    ts,
		sender:   sender,
		catalog:  DefaultCatalog(),
		commands: commands,
		render:   cfg.Render,
		limiter:  cfg.Limiter,
		observer: cfg.Observer,
		log:      logging.WithComponent("conversation"),
	}
}

// Decide resolves an event to an action without side effects.
func Decide(ev *messenger.MessagingEvent, commands CommandTable) Action {
	switch {
	case ev == nil:
		return Action{Intent: IntentNone}
	case ev.Message != nil:
		return ResolveMessage(ev.Message, commands)
	case ev.Postback != nil:
		return ResolvePostback(ev.Postback.Payload)
	default:
		return Action{Intent: IntentNone}
	}
}

// HandleEvent processes a single messaging event. It returns the reply that
// was dispatched, or nil when the event warranted none. A non-nil error means
// a store operation failed and no reply was sent.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev *messenger.MessagingEvent) (*messenger.Message, error) {
	psid := ev.SenderID()
	if psid == "" {
		return nil, nil
	}

	action := Decide(ev, d.commands)
	if action.Intent == IntentNone {
		return nil, nil
	}

	ctx = logging.ContextWithSender(ctx, psid)
	log := logging.WithContext(ctx, d.log).With(slog.String("intent", action.Intent.String()))

	if !d.limiter.Allow(psid) {
		log.Warn("Rate limited sender")
		if d.observer != nil {
			d.observer.RateLimitHit()
		}
		reply := d.catalog.Lookup(ResponseSlowDown)
		d.dispatch(ctx, psid, reply)
		return reply, nil
	}

	if d.observer != nil {
		d.observer.ActionResolved(action.Intent.String())
	}

	reply, err := d.Apply(ctx, psid, action)
	if err != nil {
		log.Error("Failed to apply action", slog.Any("error", err))
		return nil, err
	}

	log.Debug("Dispatching reply")
	d.dispatch(ctx, psid, reply)
	return reply, nil
}

// Apply performs the store mutation an action calls for and builds the reply.
func (d *Dispatcher) Apply(ctx context.Context, psid string, action Action) (*messenger.Message, error) {
	switch action.Intent {
	case IntentNone:
		return nil, nil
	case IntentGreeting:
		return d.catalog.Lookup(ResponseGreeting), nil
	case IntentThanks:
		return d.catalog.Lookup(ResponseThanks), nil
	case IntentBye:
		return d.catalog.Lookup(ResponseBye), nil
	case IntentHelp:
		return d.catalog.Lookup(ResponseHelp), nil
	case IntentCreateTaskPrompt:
		return d.catalog.Lookup(ResponseCreateTaskPrompt), nil

	case IntentCreateTask:
		task, err := d.store.Create(ctx, psid, action.Content)
		if err != nil {
			return nil, fmt.Errorf("create task: %w", err)
		}
		return RenderTaskCreated(task), nil

	case IntentListTasks:
		tasks, err := d.store.ListBySender(ctx, psid)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		return RenderTaskList(d.catalog, tasks, d.render), nil

	case IntentDeleteTask:
		if action.TaskID != "" {
			removed, err := d.store.Delete(ctx, action.TaskID)
			if err != nil {
				return nil, fmt.Errorf("delete task: %w", err)
			}
			if !removed {
				logging.WithContext(ctx, d.log).Debug("Delete matched no task", slog.String("task_id", action.TaskID))
			}
		}
		return d.catalog.Lookup(ResponseTaskDeleted), nil

	default:
		return d.catalog.Lookup(ResponseUnknown), nil
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, psid string, msg *messenger.Message) {
	if d.sender == nil || msg == nil {
		return
	}
	d.sender.Dispatch(ctx, psid, msg)
}
