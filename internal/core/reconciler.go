package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/tasktimer/pkg/models"
	"go.uber.org/zap"
)

// ReconcilerConsumer is the change feed consumer name of the reconciler.
const ReconcilerConsumer = "reconciler"

// RuleID names a notification rule.
type RuleID string

const (
	RuleCorrection     RuleID = "correction"
	RuleAssigned       RuleID = "assigned"
	RuleCorrectedDone  RuleID = "corrected_done"
	RuleDone           RuleID = "done"
	RuleAwaitingReview RuleID = "awaiting_review"
	RuleFinalized      RuleID = "finalized"
)

// Audience are the users who may receive a notification for one change.
type Audience struct {
	Admins       []models.User
	LeaderID     string
	AssigneeName string
}

// Draft is a notification the rules decided to send, before it has an id.
type Draft struct {
	Rule      RuleID
	Recipient string
	Type      models.NotificationType
	Message   string
}

// Evaluate applies the notification rules to one task change. Each
// recipient gets at most one draft, chosen by rule priority: correction,
// assignment, corrected-and-done, done, awaiting review, finalized.
func Evaluate(oldTask, newTask *models.Task, aud Audience) []Draft {
	if oldTask == nil || newTask == nil {
		return nil
	}
	name := aud.AssigneeName
	if name == "" {
		name = "a user"
	}

	var drafts []Draft
	seen := make(map[string]bool)
	add := func(d Draft) {
		if d.Recipient == "" || seen[d.Recipient] {
			return
		}
		seen[d.Recipient] = true
		drafts = append(drafts, d)
	}

	entered := func(s models.TaskStatus) bool {
		return oldTask.Status != s && newTask.Status == s
	}

	// Rule 1 wins over rule 2 for the assignee.
	if entered(models.StatusCorrection) {
		add(Draft{
			Rule:      RuleCorrection,
			Recipient: newTask.AssignedTo,
			Type:      models.NotificationWarning,
			Message:   fmt.Sprintf("Task %q needs correction!", newTask.Title),
		})
	}
	if oldTask.AssignedTo != newTask.AssignedTo {
		add(Draft{
			Rule:      RuleAssigned,
			Recipient: newTask.AssignedTo,
			Type:      models.NotificationInfo,
			Message:   assignedMessage(newTask),
		})
	}

	if entered(models.StatusCompleted) {
		rule, msg := RuleDone, fmt.Sprintf("Task %q has been marked as done by %s", newTask.Title, name)
		if oldTask.Status == models.StatusCorrection {
			rule, msg = RuleCorrectedDone, fmt.Sprintf("Task %q has been corrected and marked as done by %s", newTask.Title, name)
		}
		for _, admin := range aud.Admins {
			add(Draft{Rule: rule, Recipient: admin.ID, Type: models.NotificationSuccess, Message: msg})
		}
	}

	if entered(models.StatusQC) {
		msg := fmt.Sprintf("Task %q is awaiting quality review", newTask.Title)
		for _, admin := range aud.Admins {
			add(Draft{Rule: RuleAwaitingReview, Recipient: admin.ID, Type: models.NotificationInfo, Message: msg})
		}
		add(Draft{Rule: RuleAwaitingReview, Recipient: aud.LeaderID, Type: models.NotificationInfo, Message: msg})
	}

	if entered(models.StatusFinalized) {
		add(Draft{
			Rule:      RuleFinalized,
			Recipient: newTask.AssignedTo,
			Type:      models.NotificationSuccess,
			Message:   fmt.Sprintf("Task %q has been finalized", newTask.Title),
		})
	}

	return drafts
}

// ReconcilerDeps are the collaborators of Reconciler.
type ReconcilerDeps struct {
	Feed          ChangeFeed
	Notifications NotificationStore
	Directory     Directory
	Clock         Clock
	Events        EventLogger
	Metrics       EngineMetrics
	Logger        *zap.Logger
	BatchSize     int
	PollInterval  time.Duration
}

// Reconciler turns task change events into notifications. Delivery is
// at-least-once: a batch is acknowledged only after every event in it has
// been handled, and redelivered events collapse on the dedup key.
type Reconciler struct {
	feed      ChangeFeed
	notes     NotificationStore
	dir       Directory
	clock     Clock
	events    EventLogger
	metrics   EngineMetrics
	logger    *zap.Logger
	batchSize int
	interval  time.Duration
}

// NewReconciler creates a Reconciler.
func NewReconciler(deps ReconcilerDeps) *Reconciler {
	r := &Reconciler{
		feed:      deps.Feed,
		notes:     deps.Notifications,
		dir:       deps.Directory,
		clock:     deps.Clock,
		events:    deps.Events,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		batchSize: deps.BatchSize,
		interval:  deps.PollInterval,
	}
	if r.clock == nil {
		r.clock = RealClock()
	}
	if r.events == nil {
		r.events = nopEventLogger{}
	}
	if r.metrics == nil {
		r.metrics = nopMetrics{}
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.batchSize <= 0 {
		r.batchSize = 100
	}
	if r.interval <= 0 {
		r.interval = time.Second
	}
	return r
}

// Drain processes the feed until it is empty and returns the number of
// notifications created.
func (r *Reconciler) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, more, err := r.step(ctx)
		total += n
		if err != nil {
			return total, err
		}
		if !more {
			return total, nil
		}
	}
}

// Run follows the feed until ctx is done. Errors are logged and retried on
// the next tick.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("reconciling change feed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
		}
	}
}

// step handles one batch. more reports whether the batch was full.
func (r *Reconciler) step(ctx context.Context) (created int, more bool, err error) {
	batch, err := r.feed.Poll(ctx, ReconcilerConsumer, r.batchSize)
	if err != nil {
		return 0, false, fmt.Errorf("polling change feed: %w", persistenceError(err))
	}
	if len(batch) == 0 {
		return 0, false, nil
	}

	for i := range batch {
		n, err := r.Handle(ctx, batch[i])
		created += n
		if err != nil {
			// Leave the batch unacknowledged; already created
			// notifications are deduplicated on redelivery.
			return created, false, fmt.Errorf("handling change %d: %w", batch[i].Seq, err)
		}
	}

	last := batch[len(batch)-1].Seq
	if err := r.feed.Ack(ctx, ReconcilerConsumer, last); err != nil {
		return created, false, fmt.Errorf("acknowledging change %d: %w", last, persistenceError(err))
	}
	return created, len(batch) == r.batchSize, nil
}

// Handle applies the rules to a single change event and stores the
// resulting notifications. Only task UPDATE events produce notifications.
func (r *Reconciler) Handle(ctx context.Context, ev models.ChangeEvent) (int, error) {
	if ev.Table != models.TableTasks || ev.Type != models.ChangeUpdate {
		return 0, nil
	}
	if ev.OldTask == nil || ev.NewTask == nil {
		r.logger.Warn("task update without row images", zap.Int64("seq", ev.Seq))
		return 0, nil
	}

	aud, err := r.audience(ctx, ev.NewTask)
	if err != nil {
		return 0, err
	}

	created := 0
	now := r.clock.Now()
	version := strconv.FormatInt(ev.NewTask.Version, 10)
	for _, d := range Evaluate(ev.OldTask, ev.NewTask, aud) {
		note := models.Notification{
			ID:        uuid.NewString(),
			UserID:    d.Recipient,
			TaskID:    ev.NewTask.ID,
			Message:   d.Message,
			Type:      d.Type,
			CreatedAt: now,
			DedupKey: DedupKey(ev.NewTask.ID, version,
				string(ev.OldTask.Status), string(ev.NewTask.Status), string(d.Rule), d.Recipient),
		}

		err := r.notes.InsertNotification(ctx, note)
		switch {
		case errors.Is(err, ErrDuplicateNotification):
			r.metrics.ObserveDuplicateNotification()
			r.logEvent("notification.duplicate_skipped", map[string]any{
				"task_id": note.TaskID, "user_id": note.UserID, "rule": string(d.Rule),
			})
		case err != nil:
			r.logger.Error("creating notification",
				zap.String("task_id", note.TaskID),
				zap.String("user_id", note.UserID),
				zap.String("rule", string(d.Rule)),
				zap.Error(err),
			)
			return created, fmt.Errorf("creating %s notification for %s: %w", d.Rule, d.Recipient, persistenceError(err))
		default:
			created++
			r.metrics.ObserveNotification(string(d.Rule))
			r.logEvent("notification.created", map[string]any{
				"id": note.ID, "task_id": note.TaskID, "user_id": note.UserID, "rule": string(d.Rule),
			})
		}
	}
	return created, nil
}

func (r *Reconciler) audience(ctx context.Context, task *models.Task) (Audience, error) {
	var aud Audience

	admins, err := r.dir.ListUsersByRole(ctx, models.RoleAdmin)
	if err != nil {
		return aud, fmt.Errorf("listing admins: %w", persistenceError(err))
	}
	aud.Admins = admins

	if user, err := r.dir.GetUser(ctx, task.AssignedTo); err == nil {
		aud.AssigneeName = user.Username
	} else if !errors.Is(err, ErrNotFound) {
		return aud, fmt.Errorf("loading assignee %s: %w", task.AssignedTo, persistenceError(err))
	}

	if project, err := r.dir.GetProject(ctx, task.ProjectID); err == nil {
		aud.LeaderID = project.LeaderID
	} else if !errors.Is(err, ErrNotFound) {
		return aud, fmt.Errorf("loading project %s: %w", task.ProjectID, persistenceError(err))
	}
	return aud, nil
}

func (r *Reconciler) logEvent(eventType string, data map[string]any) {
	if err := r.events.LogEvent(eventType, data); err != nil {
		r.logger.Warn("writing event log failed", zap.String("type", eventType), zap.Error(err))
	}
}
