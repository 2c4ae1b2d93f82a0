package conversation

import (
	"testing"

	"github.com/alekspetrov/taskbot/internal/adapters/messenger"
)

func nlpMessage(text string, entities map[string]float64) *messenger.InboundMessage {
	msg := &messenger.InboundMessage{Text: text}
	if len(entities) > 0 {
		msg.NLP = &messenger.NLP{Entities: map[string][]messenger.Entity{}}
		for name, conf := range entities {
			msg.NLP.Entities[name] = []messenger.Entity{{Confidence: conf}}
		}
	}
	return msg
}

func TestResolveMessage(t *testing.T) {
	tests := []struct {
		name        string
		msg         *messenger.InboundMessage
		wantIntent  Intent
		wantContent string
	}{
		{"greeting above threshold", nlpMessage("hey", map[string]float64{"greetings": 0.81}), IntentGreeting, ""},
		{"greeting at threshold is not enough", nlpMessage("hey", map[string]float64{"greetings": 0.8}), IntentCreateTask, "hey"},
		{"thanks", nlpMessage("thx", map[string]float64{"thanks": 0.99}), IntentThanks, ""},
		{"bye", nlpMessage("cya", map[string]float64{"bye": 0.9}), IntentBye, ""},
		{"greeting beats thanks", nlpMessage("hi thanks", map[string]float64{"greetings": 0.9, "thanks": 0.95}), IntentGreeting, ""},
		{"thanks beats bye", nlpMessage("thanks bye", map[string]float64{"thanks": 0.9, "bye": 0.95}), IntentThanks, ""},
		{"low confidence falls through to text", nlpMessage("help", map[string]float64{"bye": 0.2}), IntentHelp, ""},
		{"help", nlpMessage("help", nil), IntentHelp, ""},
		{"help case-insensitive", nlpMessage("HeLp", nil), IntentHelp, ""},
		{"create task", nlpMessage("Create Task", nil), IntentCreateTaskPrompt, ""},
		{"view all tasks", nlpMessage("view all tasks", nil), IntentListTasks, ""},
		{"command with trailing space is a task", nlpMessage("help ", nil), IntentCreateTask, "help "},
		{"free text creates a task", nlpMessage("Buy milk", nil), IntentCreateTask, "Buy milk"},
		{"task text kept verbatim", nlpMessage(" buy milk ", nil), IntentCreateTask, " buy milk "},
		{"help as part of text is a task", nlpMessage("help me move", nil), IntentCreateTask, "help me move"},
		{"empty text", nlpMessage("", nil), IntentNone, ""},
		{"whitespace only is still text", nlpMessage("   ", nil), IntentCreateTask, "   "},
		{"echo", &messenger.InboundMessage{Text: "help", IsEcho: true}, IntentNone, ""},
		{"nil message", nil, IntentNone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveMessage(tt.msg, DefaultCommands())
			if got.Intent != tt.wantIntent {
				t.Errorf("Intent = %v, want %v", got.Intent, tt.wantIntent)
			}
			if got.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", got.Content, tt.wantContent)
			}
		})
	}
}

func TestResolveMessageOnlyFirstEntityCounts(t *testing.T) {
	msg := &messenger.InboundMessage{
		Text: "hello",
		NLP: &messenger.NLP{Entities: map[string][]messenger.Entity{
			"greetings": {{Confidence: 0.1}, {Confidence: 0.99}},
		}},
	}
	if got := ResolveMessage(msg, nil); got.Intent != IntentCreateTask {
		t.Errorf("Intent = %v, want CREATE_TASK", got.Intent)
	}
}

func TestCommandTableWith(t *testing.T) {
	table, err := DefaultCommands().With(map[string]string{
		"Tasks":  "list_tasks",
		" menu ": "HELP",
	})
	if err != nil {
		t.Fatalf("With failed: %v", err)
	}

	if got := ResolveMessage(nlpMessage("tasks", nil), table); got.Intent != IntentListTasks {
		t.Errorf("alias tasks = %v, want LIST_TASKS", got.Intent)
	}
	if got := ResolveMessage(nlpMessage("MENU", nil), table); got.Intent != IntentHelp {
		t.Errorf("alias menu = %v, want HELP", got.Intent)
	}
	if got := ResolveMessage(nlpMessage("help", nil), table); got.Intent != IntentHelp {
		t.Errorf("built-in help lost: %v", got.Intent)
	}
	if _, ok := DefaultCommands()["tasks"]; ok {
		t.Error("With must not modify the receiver")
	}

	bad := []map[string]string{
		{"x": "NOPE"},
		{"x": "CREATE_TASK"},
		{"x": "DELETE_TASK"},
		{"  ": "HELP"},
	}
	for _, aliases := range bad {
		if _, err := DefaultCommands().With(aliases); err == nil {
			t.Errorf("With(%v) expected error", aliases)
		}
	}
}

func TestIntentString(t *testing.T) {
	for intent, name := range intentNames {
		if intent.String() != name {
			t.Errorf("%d.String() = %q, want %q", int(intent), intent.String(), name)
		}
		parsed, err := ParseIntent(name)
		if err != nil || parsed != intent {
			t.Errorf("ParseIntent(%q) = %v, %v", name, parsed, err)
		}
	}
	if Intent(99).String() != "Intent(99)" {
		t.Errorf("unexpected String for unknown intent: %s", Intent(99))
	}
}

func TestResolvePostback(t *testing.T) {
	tests := []struct {
		payload    string
		wantIntent Intent
		wantTaskID string
	}{
		{"TASK_LIST", IntentListTasks, ""},
		{"CREATE_TASK", IntentCreateTaskPrompt, ""},
		{"DELETE_TASK", IntentDeleteTask, ""},
		{"DELETE_abc123", IntentDeleteTask, "abc123"},
		{"DELETE_5f2b-44aa-9c1d", IntentDeleteTask, "5f2b-44aa-9c1d"},
		{"DELETE", IntentDeleteTask, ""},
		{"DELETE_", IntentDeleteTask, ""},
		{"DELETE_a_b", IntentDeleteTask, "a"},
		{"GET_STARTED", IntentUnknown, ""},
		{"", IntentUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got := ResolvePostback(tt.payload)
			if got.Intent != tt.wantIntent {
				t.Errorf("Intent = %v, want %v", got.Intent, tt.wantIntent)
			}
			if got.TaskID != tt.wantTaskID {
				t.Errorf("TaskID = %q, want %q", got.TaskID, tt.wantTaskID)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		ev   *messenger.MessagingEvent
		want Intent
	}{
		{"nil", nil, IntentNone},
		{"message", &messenger.MessagingEvent{Message: nlpMessage("help", nil)}, IntentHelp},
		{"postback", &messenger.MessagingEvent{Postback: &messenger.InboundPostback{Payload: "TASK_LIST"}}, IntentListTasks},
		{"delivery", &messenger.MessagingEvent{Sender: &messenger.Party{ID: "p"}}, IntentNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.ev, nil); got.Intent != tt.want {
				t.Errorf("Decide() = %v, want %v", got.Intent, tt.want)
			}
		})
	}
}
