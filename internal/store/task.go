package store

import (
	"errors"
	"time"
)

var (
	// ErrInvalidTask is returned when a task is missing its sender or text.
	ErrInvalidTask = errors.New("task requires sender and text")

	// ErrStorage wraps failures of the underlying database.
	ErrStorage = errors.New("storage failure")
)

// Task is a single to-do item owned by one messaging-platform sender.
// The JSON layout matches the documents the admin API has always returned.
type Task struct {
	ID        string    `json:"_id"`
	SenderID  string    `json:"sender_psid"`
	Text      string    `json:"task"`
	CreatedAt time.Time `json:"dt"`
}

// ChangeType identifies a store mutation.
type ChangeType string

const (
	ChangeCreated ChangeType = "task.created"
	ChangeDeleted ChangeType = "task.deleted"
)

// Change describes a mutation that has been committed.
type Change struct {
	Type ChangeType `json:"type"`
	Task *Task      `json:"task"`
}
