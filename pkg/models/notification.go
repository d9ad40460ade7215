package models

import "time"

// NotificationType is the severity shown to the recipient.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationSuccess NotificationType = "success"
)

// Notification is a durable message for one recipient. DedupKey is unique
// across all notifications and makes repeated derivation from the same
// change event a no-op.
type Notification struct {
	ID        string           `yaml:"id" json:"id" cbor:"id"`
	UserID    string           `yaml:"user_id" json:"user_id" cbor:"user_id"`
	TaskID    string           `yaml:"task_id,omitempty" json:"task_id,omitempty" cbor:"task_id,omitempty"`
	Message   string           `yaml:"message" json:"message" cbor:"message"`
	Type      NotificationType `yaml:"type" json:"type" cbor:"type"`
	Read      bool             `yaml:"read" json:"read" cbor:"read"`
	CreatedAt time.Time        `yaml:"created_at" json:"created_at" cbor:"created_at"`
	DedupKey  string           `yaml:"dedup_key,omitempty" json:"-" cbor:"dedup_key,omitempty"`
}
