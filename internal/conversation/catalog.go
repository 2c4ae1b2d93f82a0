// Package conversation turns inbound Messenger events into task-list actions
// and the replies that go back to the user.
package conversation

import (
	"fmt"

	"github.com/alekspetrov/taskbot/internal/adapters/messenger"
)

// Catalog entry names.
const (
	ResponseGreeting         = "GREETING"
	ResponseHelp             = "HELP"
	ResponseCreateTaskPrompt = "CREATE_TASK_PROMPT"
	ResponseTaskList         = "TASK_LIST"
	ResponseThanks           = "THANKS"
	ResponseUnknown          = "UNKNOWN"
	ResponseBye              = "BYE"
	ResponseNoTasks          = "NO_TASKS"
	ResponseTaskDeleted      = "TASK_DELETED"
	ResponseSlowDown         = "SLOW_DOWN"
)

// Postback payloads the bot emits and understands.
const (
	PayloadTaskList   = "TASK_LIST"
	PayloadCreateTask = "CREATE_TASK"
	PayloadDeleteTask = "DELETE_TASK"
	deletePrefix      = "DELETE_"
)

// DeletePayload returns the postback payload that deletes task id.
func DeletePayload(id string) string {
	return deletePrefix + id
}

// Catalog is a fixed table of canned replies.
type Catalog struct {
	entries map[string]*messenger.Message
}

// DefaultCatalog builds the bot's reply table.
func DefaultCatalog() *Catalog {
	return &Catalog{entries: map[string]*messenger.Message{
		ResponseBye:              messenger.TextMessage("Hope to see you again soon!"),
		ResponseCreateTaskPrompt: messenger.TextMessage("What would you like to add to the list?"),
		ResponseGreeting:         messenger.TextMessage("Hi there! What would you like to do? Type help if you need any assistance."),
		ResponseHelp: messenger.TextMessage(
			"Here are some things you can do: create a task and remove/complete a task. Click one of the buttons below to get started!",
			messenger.TextQuickReply("View All Tasks", PayloadTaskList),
			messenger.TextQuickReply("Create Task", PayloadCreateTask),
		),
		ResponseTaskList:    messenger.TextMessage("List all the tasks here"),
		ResponseThanks:      messenger.TextMessage("No problem! Let me know if you need anything else."),
		ResponseUnknown:     messenger.TextMessage("I'm sorry, I can't recognize that command. Please try again or type help for further assistance."),
		ResponseNoTasks:     messenger.TextMessage("Yay! You have no tasks."),
		ResponseTaskDeleted: messenger.TextMessage("Your task has been deleted."),
		ResponseSlowDown:    messenger.TextMessage("You're sending messages too quickly. Please wait a moment and try again."),
	}}
}

// Lookup returns a copy of the named reply. Unknown names panic.
func (c *Catalog) Lookup(name string) *messenger.Message {
	msg, ok := c.entries[name]
	if !ok {
		panic(fmt.Sprintf("conversation: no catalog entry %q", name))
	}
	return msg.Clone()
}

// Names returns the entry names in no particular order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	return names
}
