package conversation

import (
	"github.com/alekspetrov/taskbot/internal/adapters/messenger"
	"github.com/alekspetrov/taskbot/internal/store"
)

// dateLayout renders a task date the way the list subtitle shows it.
const dateLayout = "Mon Jan 02 2006"

// RenderOptions tune how task lists are shown.
type RenderOptions struct {
	// DeleteButtons adds a "Delete Task" button to every list element.
	DeleteButtons bool
	// MaxElements keeps only the first MaxElements tasks of a list.
	// Zero shows every task.
	MaxElements int
}

// RenderTaskList builds the reply for a sender's tasks.
func RenderTaskList(catalog *Catalog, tasks []*store.Task, opts RenderOptions) *messenger.Message {
	switch len(tasks) {
	case 0:
		return catalog.Lookup(ResponseNoTasks)
	case 1:
		t := tasks[0]
		return messenger.ButtonTemplate(t.Text, messenger.PostbackButton("Delete Task", DeletePayload(t.ID)))
	}

	if opts.MaxElements > 0 && len(tasks) > opts.MaxElements {
		tasks = tasks[:opts.MaxElements]
	}
	elements := make([]messenger.Element, 0, len(tasks))
	for _, t := range tasks {
		el := messenger.Element{
			Title:    t.Text,
			Subtitle: t.CreatedAt.Format(dateLayout),
		}
		if opts.DeleteButtons {
			el.Buttons = []messenger.Button{messenger.PostbackButton("Delete Task", DeletePayload(t.ID))}
		}
		elements = append(elements, el)
	}
	return messenger.ListTemplate(elements...)
}

// RenderTaskCreated confirms a new task and offers to list or delete it.
func RenderTaskCreated(task *store.Task) *messenger.Message {
	return messenger.ButtonTemplate("Your task has been created!",
		messenger.PostbackButton("View All Tasks", PayloadTaskList),
		messenger.PostbackButton("Delete Task", DeletePayload(task.ID)),
	)
}
