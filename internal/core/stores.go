package core

import (
	"context"

	"github.com/valter-silva-au/tasktimer/pkg/models"
)

// TaskStore is the subset of the persistence collaborator the lifecycle
// engine needs. Defining it here keeps core independent of the storage
// package. Implementations wrap ErrNotFound for missing rows and
// ErrPersistence for rejected conditional updates.
type TaskStore interface {
	InsertTask(ctx context.Context, task models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	// UpdateTask writes task only if the stored row still has
	// expectedVersion, and returns the row as stored (with its new
	// version). The update and its change event commit together.
	UpdateTask(ctx context.Context, expectedVersion int64, task models.Task) (*models.Task, error)
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
}

// NotificationStore persists notifications. InsertNotification returns
// an error wrapping ErrDuplicateNotification when the dedup key exists.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n models.Notification) error
	ListUnread(ctx context.Context, userID string) ([]models.Notification, error)
	// MarkRead flips read to true. It reports false when the notification
	// was already read; read never goes back to false.
	MarkRead(ctx context.Context, id string) (bool, error)
}

// Directory resolves users and projects. Both are owned by an external
// CRUD collaborator; core only reads them.
type Directory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjectsLedBy(ctx context.Context, userID string) ([]models.Project, error)
}

// SnapshotStore is the durable local single-key store of this device.
// Get reports false when the key is absent.
type SnapshotStore interface {
	Get(key string, out any) (bool, error)
	Put(key string, value any) error
	Delete(key string) error
}

// ChangeFeed delivers committed row changes at least once. Poll returns
// events after the consumer's last acknowledged position in commit order;
// Ack advances that position.
type ChangeFeed interface {
	Poll(ctx context.Context, consumer string, limit int) ([]models.ChangeEvent, error)
	Ack(ctx context.Context, consumer string, seq int64) error
}

// IDGenerator hands out sequential identifiers such as TASK-00042.
type IDGenerator interface {
	NextID(ctx context.Context, prefix string, padWidth int) (string, error)
}
