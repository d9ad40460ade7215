package cli

import (
	"context"
	"time"

	"github.com/valter-silva-au/tasktimer/internal/core"
	"github.com/valter-silva-au/tasktimer/internal/observability"
	"github.com/valter-silva-au/tasktimer/pkg/models"
	"go.uber.org/zap"
)

// FeedReconciler turns task changes into notifications.
type FeedReconciler interface {
	Drain(ctx context.Context) (int, error)
	Run(ctx context.Context) error
}

// NotificationReader is the notification storage used by the inbox
// commands.
type NotificationReader interface {
	core.NotificationStore
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
}

// UserDirectory seeds and lists users.
type UserDirectory interface {
	Add(ctx context.Context, u models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

// ProjectDirectory seeds and lists projects.
type ProjectDirectory interface {
	Add(ctx context.Context, p models.Project) error
	Get(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
}

// ChangeSource exposes the change feed position so live views can tell
// when to reload.
type ChangeSource interface {
	Head(ctx context.Context) (int64, error)
	Since(ctx context.Context, after int64, limit int) ([]models.ChangeEvent, error)
}

// Core service instances, set during app initialization in app.go.
var (
	BasePath      string
	Lifecycle     core.TaskLifecycle
	Reconciler    FeedReconciler
	Notifications NotificationReader
	Users         UserDirectory
	Projects      ProjectDirectory
	Snapshots     core.SnapshotStore
	Feed          ChangeSource
	Events        core.EventLogger
	Clock         core.Clock = core.RealClock()
	Logger        *zap.Logger = zap.NewNop()
	PollInterval  = time.Second
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
	Counters    *observability.EngineCounters
)
