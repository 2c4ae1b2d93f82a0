package conversation

import "strings"

// ResolvePostback classifies a button payload.
func ResolvePostback(payload string) Action {
	switch payload {
	case PayloadTaskList:
		return Action{Intent: IntentListTasks}
	case PayloadCreateTask:
		return Action{Intent: IntentCreateTaskPrompt}
	case PayloadDeleteTask:
		return Action{Intent: IntentDeleteTask}
	}

	if strings.Contains(payload, "DELETE") {
		// DELETE_<id>: the id is the second underscore-separated field.
		var id string
		if parts := strings.Split(payload, "_"); len(parts) > 1 {
			id = parts[1]
		}
		return Action{Intent: IntentDeleteTask, TaskID: id}
	}

	return Action{Intent: IntentUnknown}
}
