package models

import "time"

// Table names a persisted table that emits change events.
type Table string

const (
	TableTasks         Table = "tasks"
	TableNotifications Table = "notifications"
)

// ChangeType is the kind of row mutation a change event describes.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
)

// ChangeEvent describes one committed row mutation. Only the fields for
// Table are populated; Old* is nil for inserts. Seq is the position in the
// change feed and is stable across redeliveries.
type ChangeEvent struct {
	Seq             int64         `json:"seq"`
	Table           Table         `json:"table"`
	Type            ChangeType    `json:"type"`
	OldTask         *Task         `json:"old_task,omitempty"`
	NewTask         *Task         `json:"new_task,omitempty"`
	OldNotification *Notification `json:"old_notification,omitempty"`
	NewNotification *Notification `json:"new_notification,omitempty"`
	At              time.Time     `json:"at"`
}
