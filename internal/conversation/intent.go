package conversation

import (
	"fmt"
	"strings"

	"github.com/alekspetrov/taskbot/internal/adapters/messenger"
)

// Intent is what the bot decided a user event asks for.
type Intent int

const (
	// IntentNone means the event gets no reply.
	IntentNone Intent = iota
	IntentGreeting
	IntentThanks
	IntentBye
	IntentHelp
	IntentCreateTaskPrompt
	IntentCreateTask
	IntentListTasks
	IntentDeleteTask
	IntentUnknown
)

var intentNames = map[Intent]string{
	IntentNone:             "NONE",
	IntentGreeting:         "GREETING",
	IntentThanks:           "THANKS",
	IntentBye:              "BYE",
	IntentHelp:             "HELP",
	IntentCreateTaskPrompt: "CREATE_TASK_PROMPT",
	IntentCreateTask:       "CREATE_TASK",
	IntentListTasks:        "LIST_TASKS",
	IntentDeleteTask:       "DELETE_TASK",
	IntentUnknown:          "UNKNOWN",
}

func (i Intent) String() string {
	if name, ok := intentNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Intent(%d)", int(i))
}

// ParseIntent maps a name such as "LIST_TASKS" back to its Intent.
func ParseIntent(name string) (Intent, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for intent, n := range intentNames {
		if n == name {
			return intent, nil
		}
	}
	return IntentNone, fmt.Errorf("unknown intent %q", name)
}

// Action is a resolved intent plus its argument.
type Action struct {
	Intent  Intent
	Content string // task text for IntentCreateTask
	TaskID  string // target for IntentDeleteTask; empty means nothing to delete
}

// ConfidenceThreshold is the confidence an NLP entity must exceed to count.
const ConfidenceThreshold = 0.8

// NLP entity names checked in priority order.
var entityIntents = []struct {
	entity string
	intent Intent
}{
	{"greetings", IntentGreeting},
	{"thanks", IntentThanks},
	{"bye", IntentBye},
}

// CommandTable maps lowercase message text to a fixed intent.
type CommandTable map[string]Intent

// DefaultCommands returns the built-in text commands.
func DefaultCommands() CommandTable {
	return CommandTable{
		"help":           IntentHelp,
		"create task":    IntentCreateTaskPrompt,
		"view all tasks": IntentListTasks,
	}
}

// With returns a copy of t extended by aliases (text → intent name).
// Only intents that take no argument can be aliased.
func (t CommandTable) With(aliases map[string]string) (CommandTable, error) {
	out := make(CommandTable, len(t)+len(aliases))
	for k, v := range t {
		out[k] = v
	}
	for text, name := range aliases {
		intent, err := ParseIntent(name)
		if err != nil {
			return nil, fmt.Errorf("command %q: %w", text, err)
		}
		switch intent {
		case IntentNone, IntentCreateTask, IntentDeleteTask:
			return nil, fmt.Errorf("command %q: intent %s cannot be aliased", text, intent)
		}
		key := strings.ToLower(strings.TrimSpace(text))
		if key == "" {
			return nil, fmt.Errorf("empty command text for intent %s", intent)
		}
		out[key] = intent
	}
	return out, nil
}

// ResolveMessage classifies an inbound message. NLP entities win over text;
// unrecognized text becomes a new task. It never touches storage.
func ResolveMessage(msg *messenger.InboundMessage, table CommandTable) Action {
	if msg == nil || msg.IsEcho {
		return Action{Intent: IntentNone}
	}

	for _, ei := range entityIntents {
		if e := msg.NLP.FirstEntity(ei.entity); e != nil && e.Confidence > ConfidenceThreshold {
			return Action{Intent: ei.intent}
		}
	}

	text := msg.Text
	if text == "" {
		return Action{Intent: IntentNone}
	}
	if table == nil {
		table = DefaultCommands()
	}
	if intent, ok := table[strings.ToLower(text)]; ok {
		return Action{Intent: intent}
	}
	return Action{Intent: IntentCreateTask, Content: text}
}
