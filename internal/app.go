// Package internal provides the App struct that wires all components of
// tasktimer together and initializes the CLI layer.
package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/tasktimer/internal/cli"
	"github.com/valter-silva-au/tasktimer/internal/core"
	"github.com/valter-silva-au/tasktimer/internal/observability"
	"github.com/valter-silva-au/tasktimer/internal/storage"
	"github.com/valter-silva-au/tasktimer/pkg/models"
	"go.uber.org/zap"
)

// App holds all service dependencies of tasktimer.
type App struct {
	BasePath string
	Config   *models.GlobalConfig

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Storage layer
	DB            *storage.DB
	Tasks         *storage.TaskStore
	Notifications *storage.NotificationStore
	Users         *storage.UserStore
	Projects      *storage.ProjectStore
	Feed          *storage.ChangeFeed
	Snapshots     *storage.SnapshotStore

	// Core services
	Lifecycle  *core.Lifecycle
	Reconciler *core.Reconciler
	Clock      core.Clock

	// Observability
	Logger      *zap.Logger
	EventLog    observability.EventLog
	Counters    *observability.EngineCounters
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components. basePath is the directory that
// holds .ttconfig and, by default, the database, snapshots and event log.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath, Clock: core.RealClock()}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating base path %s: %w", basePath, err)
	}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Logging ---
	app.Logger, err = observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	// --- Storage layer ---
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	app.DB, err = storage.OpenDB(context.Background(), storage.DBConfig{
		Path:     cfg.Database.Path,
		PoolSize: cfg.Database.PoolSize,
		Logger:   app.Logger,
	})
	if err != nil {
		_ = app.Logger.Sync()
		return nil, err
	}
	app.Tasks = storage.NewTaskStore(app.DB)
	app.Notifications = storage.NewNotificationStore(app.DB)
	app.Users = storage.NewUserStore(app.DB)
	app.Projects = storage.NewProjectStore(app.DB)
	app.Feed = storage.NewChangeFeed(app.DB)
	app.Snapshots = storage.NewSnapshotStore(cfg.SnapshotDir)

	// --- Observability ---
	app.Counters = observability.NewEngineCounters()
	app.EventLog, err = observability.NewJSONLEventLog(cfg.EventLogPath)
	if err != nil {
		// Non-fatal: the engine runs without the event log.
		app.Logger.Warn("event log disabled", zap.String("path", cfg.EventLogPath), zap.Error(err))
		app.EventLog = nil
	}
	var events core.EventLogger
	if app.EventLog != nil {
		events = &eventLogAdapter{log: app.EventLog, clock: app.Clock}

		thresholds := observability.DefaultAlertThresholds()
		if cfg.Alerts.StaleHours > 0 {
			thresholds.StaleHours = cfg.Alerts.StaleHours
		}
		thresholds.QCBacklog = cfg.Alerts.QCBacklog
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, thresholds)
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL)
	}

	// --- Core services ---
	tasks := &taskStoreAdapter{store: app.Tasks}
	notes := &notificationStoreAdapter{store: app.Notifications}
	dir := &directoryAdapter{users: app.Users, projects: app.Projects}

	app.Lifecycle = core.NewLifecycle(core.LifecycleDeps{
		Tasks:          tasks,
		Notifications:  notes,
		Directory:      dir,
		Snapshots:      app.Snapshots,
		IDs:            &idAdapter{counter: storage.NewIDCounter(app.DB)},
		Clock:          app.Clock,
		Events:         events,
		Metrics:        app.Counters,
		Logger:         app.Logger,
		TaskIDPrefix:   cfg.TaskIDPrefix,
		TaskIDPadWidth: cfg.TaskIDPadWidth,
	})
	app.Reconciler = core.NewReconciler(core.ReconcilerDeps{
		Feed:          &changeFeedAdapter{feed: app.Feed},
		Notifications: notes,
		Directory:     dir,
		Clock:         app.Clock,
		Events:        events,
		Metrics:       app.Counters,
		Logger:        app.Logger,
		BatchSize:     cfg.Feed.BatchSize,
		PollInterval:  core.PollInterval(cfg),
	})

	if _, err := app.Lifecycle.RestoreSession(); err != nil {
		app.Logger.Warn("restoring timer session", zap.Error(err))
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Lifecycle = app.Lifecycle
	cli.Reconciler = app.Reconciler
	cli.Notifications = app.Notifications
	cli.Users = app.Users
	cli.Projects = app.Projects
	cli.Snapshots = app.Snapshots
	cli.Feed = app.Feed
	cli.Events = events
	cli.Clock = app.Clock
	cli.Logger = app.Logger
	cli.PollInterval = core.PollInterval(cfg)

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier
	cli.Counters = app.Counters

	return app, nil
}

// Close releases the database pool and the event log file handle. It is
// safe to call on a partially initialized App.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.EventLog != nil {
		errs = append(errs, a.EventLog.Close())
	}
	if a.Logger != nil {
		// Sync on stderr fails with EINVAL on some platforms; ignore it.
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}

// ResolveBasePath determines the tasktimer data directory. It checks the
// TT_HOME env var, then walks up from the current directory looking for
// .ttconfig, then falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("TT_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		for _, name := range []string{core.ConfigFileName, core.ConfigFileName + ".yaml"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// --- Adapters ---

// translate maps storage sentinels onto the core error kinds. Every other
// storage failure becomes ErrPersistence.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %w", core.ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
}

// taskStoreAdapter adapts storage.TaskStore to core.TaskStore.
type taskStoreAdapter struct {
	store *storage.TaskStore
}

func (a *taskStoreAdapter) InsertTask(ctx context.Context, task models.Task) error {
	return translate(a.store.Insert(ctx, task))
}

func (a *taskStoreAdapter) GetTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := a.store.Get(ctx, id)
	return t, translate(err)
}

func (a *taskStoreAdapter) UpdateTask(ctx context.Context, expectedVersion int64, task models.Task) (*models.Task, error) {
	t, err := a.store.ConditionalUpdate(ctx, expectedVersion, task)
	return t, translate(err)
}

func (a *taskStoreAdapter) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	tasks, err := a.store.List(ctx, filter)
	return tasks, translate(err)
}

// notificationStoreAdapter adapts storage.NotificationStore to
// core.NotificationStore. A unique dedup key collision is the one place
// ErrDuplicate carries domain meaning.
type notificationStoreAdapter struct {
	store *storage.NotificationStore
}

func (a *notificationStoreAdapter) InsertNotification(ctx context.Context, n models.Notification) error {
	err := a.store.Insert(ctx, n)
	if errors.Is(err, storage.ErrDuplicate) {
		return fmt.Errorf("%w: %w", core.ErrDuplicateNotification, err)
	}
	return translate(err)
}

func (a *notificationStoreAdapter) ListUnread(ctx context.Context, userID string) ([]models.Notification, error) {
	notes, err := a.store.ListUnread(ctx, userID)
	return notes, translate(err)
}

func (a *notificationStoreAdapter) MarkRead(ctx context.Context, id string) (bool, error) {
	changed, err := a.store.MarkRead(ctx, id)
	return changed, translate(err)
}

// directoryAdapter adapts the user and project stores to core.Directory.
type directoryAdapter struct {
	users    *storage.UserStore
	projects *storage.ProjectStore
}

func (a *directoryAdapter) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := a.users.Get(ctx, id)
	return u, translate(err)
}

func (a *directoryAdapter) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	users, err := a.users.ListByRole(ctx, role)
	return users, translate(err)
}

func (a *directoryAdapter) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p, err := a.projects.Get(ctx, id)
	return p, translate(err)
}

func (a *directoryAdapter) ListProjectsLedBy(ctx context.Context, userID string) ([]models.Project, error) {
	projects, err := a.projects.ListLedBy(ctx, userID)
	return projects, translate(err)
}

// changeFeedAdapter adapts storage.ChangeFeed to core.ChangeFeed.
type changeFeedAdapter struct {
	feed *storage.ChangeFeed
}

func (a *changeFeedAdapter) Poll(ctx context.Context, consumer string, limit int) ([]models.ChangeEvent, error) {
	events, err := a.feed.Poll(ctx, consumer, limit)
	return events, translate(err)
}

func (a *changeFeedAdapter) Ack(ctx context.Context, consumer string, seq int64) error {
	return translate(a.feed.Ack(ctx, consumer, seq))
}

// idAdapter adapts storage.IDCounter to core.IDGenerator.
type idAdapter struct {
	counter *storage.IDCounter
}

func (a *idAdapter) NextID(ctx context.Context, prefix string, padWidth int) (string, error) {
	n, err := a.counter.Next(ctx, prefix)
	if err != nil {
		return "", translate(err)
	}
	return core.FormatTaskID(prefix, padWidth, n), nil
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log   observability.EventLog
	clock core.Clock
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    a.clock.Now(),
		Level:   observability.LevelFor(eventType),
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
