package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/valter-silva-au/tasktimer/pkg/models"
	"go.uber.org/zap"
)

// NewTaskRequest carries the fields of a task being created.
type NewTaskRequest struct {
	Title       string
	Description string
	ProjectID   string
	AssignedTo  string
}

// LogoutFailure records one task that could not be paused during logout.
type LogoutFailure struct {
	TaskID string
	Err    error
}

// LogoutReport summarizes the best-effort flush performed on logout.
type LogoutReport struct {
	Paused   []string
	Failures []LogoutFailure
}

// Err joins all failures, or returns nil when every task was paused.
func (r LogoutReport) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("pausing %s: %w", f.TaskID, f.Err))
	}
	return errors.Join(errs...)
}

// TaskLifecycle defines the task workflow and time tracking operations.
type TaskLifecycle interface {
	CreateTask(ctx context.Context, actor Actor, req NewTaskRequest) (*models.Task, error)
	GetTask(ctx context.Context, taskID string) (*models.Task, error)
	ListTasks(ctx context.Context, actor Actor) ([]models.Task, error)
	Start(ctx context.Context, actor Actor, taskID string) (*models.Task, error)
	Pause(ctx context.Context, actor Actor, taskID string) (*models.Task, error)
	Complete(ctx context.Context, actor Actor, taskID string) (*models.Task, error)
	SendToQC(ctx context.Context, actor Actor, taskID string) (*models.Task, error)
	Finalize(ctx context.Context, actor Actor, taskID string) (*models.Task, error)
	Reject(ctx context.Context, actor Actor, taskID string) (*models.Task, error)
	Reassign(ctx context.Context, actor Actor, taskID, userID string) (*models.Task, error)
	Elapsed(ctx context.Context, taskID string) (int64, error)
	CurrentSession() *models.TimerSession
	RestoreSession() (*models.TimerSession, error)
	Logout(ctx context.Context, actor Actor) LogoutReport
}

// LifecycleDeps are the collaborators of Lifecycle. Events, Metrics,
// Logger, Clock and Snapshots may be nil.
type LifecycleDeps struct {
	Tasks          TaskStore
	Notifications  NotificationStore
	Directory      Directory
	Timers         *TimerSessions
	Snapshots      SnapshotStore
	IDs            IDGenerator
	Clock          Clock
	Events         EventLogger
	Metrics        EngineMetrics
	Logger         *zap.Logger
	TaskIDPrefix   string
	TaskIDPadWidth int
}

// Lifecycle applies the task state machine to storage and to this
// client's timer session. Mutations of one task are serialized, and all
// assignee operations of one operator are serialized so that a pause
// flush always finishes before a later start is honored.
type Lifecycle struct {
	tasks     TaskStore
	notes     NotificationStore
	dir       Directory
	timers    *TimerSessions
	snapshots SnapshotStore
	ids       IDGenerator
	clock     Clock
	events    EventLogger
	metrics   EngineMetrics
	logger    *zap.Logger
	prefix    string
	padWidth  int

	taskLocks     *keyedMutex
	operatorLocks *keyedMutex
}

// NewLifecycle creates a Lifecycle with all dependencies injected.
func NewLifecycle(deps LifecycleDeps) *Lifecycle {
	l := &Lifecycle{
		tasks:         deps.Tasks,
		notes:         deps.Notifications,
		dir:           deps.Directory,
		timers:        deps.Timers,
		snapshots:     deps.Snapshots,
		ids:           deps.IDs,
		clock:         deps.Clock,
		events:        deps.Events,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		prefix:        deps.TaskIDPrefix,
		padWidth:      deps.TaskIDPadWidth,
		taskLocks:     newKeyedMutex(),
		operatorLocks: newKeyedMutex(),
	}
	if l.timers == nil {
		l.timers = NewTimerSessions(deps.Snapshots)
	}
	if l.clock == nil {
		l.clock = RealClock()
	}
	if l.events == nil {
		l.events = nopEventLogger{}
	}
	if l.metrics == nil {
		l.metrics = nopMetrics{}
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	if l.prefix == "" {
		l.prefix = "TASK"
	}
	return l
}

// CreateTask registers a pending task and sends the assignee the
// "task assigned" notification. Only admins, and leaders within projects
// they lead, may create tasks.
func (l *Lifecycle) CreateTask(ctx context.Context, actor Actor, req NewTaskRequest) (*models.Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("creating task: title must not be empty")
	}

	project, err := l.dir.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating task: project %s: %w", req.ProjectID, err)
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleLeader:
		if project.LeaderID != actor.UserID {
			return nil, fmt.Errorf("creating task in project %s: %w: leaders may only create tasks in projects they lead", project.ID, ErrInvalidTransition)
		}
	default:
		return nil, fmt.Errorf("creating task: %w: role %s may not create tasks", ErrInvalidTransition, actor.Role)
	}

	assignee, err := l.dir.GetUser(ctx, req.AssignedTo)
	if err != nil {
		return nil, fmt.Errorf("creating task: assignee %s: %w", req.AssignedTo, err)
	}

	id, err := l.ids.NextID(ctx, l.prefix, l.padWidth)
	if err != nil {
		return nil, fmt.Errorf("creating task: generating id: %w", persistenceError(err))
	}

	now := l.clock.Now()
	task := models.Task{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.StatusPending,
		AssignedTo:  assignee.ID,
		ProjectID:   project.ID,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if err := l.tasks.InsertTask(ctx, task); err != nil {
		return nil, fmt.Errorf("creating task: %w", persistenceError(err))
	}

	l.logEvent("task.created", map[string]any{
		"task_id":     task.ID,
		"project_id":  task.ProjectID,
		"assigned_to": task.AssignedTo,
		"created_by":  actor.UserID,
	})
	l.logger.Info("task created", zap.String("task_id", task.ID), zap.String("assigned_to", task.AssignedTo))

	note := models.Notification{
		ID:        uuid.NewString(),
		UserID:    assignee.ID,
		TaskID:    task.ID,
		Message:   assignedMessage(&task),
		Type:      models.NotificationInfo,
		CreatedAt: now,
		DedupKey:  DedupKey(task.ID, "1", "created", string(RuleAssigned), assignee.ID),
	}
	if err := l.notes.InsertNotification(ctx, note); err != nil && !errors.Is(err, ErrDuplicateNotification) {
		// The task exists; a missing welcome notification is not worth
		// failing the request over.
		l.logger.Warn("sending assignment notification failed", zap.String("task_id", task.ID), zap.Error(err))
	} else if err == nil {
		l.metrics.ObserveNotification(string(RuleAssigned))
	}

	return &task, nil
}

// GetTask returns a single task by ID.
func (l *Lifecycle) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := l.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", taskID, err)
	}
	return task, nil
}

// ListTasks returns the tasks visible to actor, newest first: an
// operator's own tasks, a leader's project tasks, or every task for an
// admin.
func (l *Lifecycle) ListTasks(ctx context.Context, actor Actor) ([]models.Task, error) {
	var filter models.TaskFilter
	switch actor.Role {
	case models.RoleDigitador:
		filter.AssignedTo = actor.UserID
	case models.RoleLeader:
		projects, err := l.dir.ListProjectsLedBy(ctx, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("listing tasks: projects led by %s: %w", actor.UserID, persistenceError(err))
		}
		filter.ProjectIDs = make([]string, 0, len(projects))
		for _, p := range projects {
			filter.ProjectIDs = append(filter.ProjectIDs, p.ID)
		}
	case models.RoleAdmin:
	default:
		return nil, fmt.Errorf("listing tasks: unknown role %q", actor.Role)
	}

	tasks, err := l.tasks.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", persistenceError(err))
	}
	return tasks, nil
}

// Start begins or resumes timing taskID. If another task is being timed
// on this client it is paused first, with its time flushed, before the
// new session opens.
func (l *Lifecycle) Start(ctx context.Context, actor Actor, taskID string) (*models.Task, error) {
	unlockOp := l.operatorLocks.Lock(actor.UserID)
	defer unlockOp()

	// Validate before touching the other task so a rejected start has no
	// side effects.
	task, err := l.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, l.fail(EventStart, fmt.Errorf("starting task %s: %w", taskID, err))
	}
	if _, err := Transition(task, EventStart, actor, nil); err != nil {
		return nil, l.fail(EventStart, err)
	}
	if cur := l.timers.Peek(taskID); cur != nil {
		if IsTimedStatus(task.Status) {
			return nil, l.fail(EventStart, &TransitionError{
				TaskID: taskID, From: task.Status, Event: EventStart, Role: actor.Role,
				Reason: "task is already being timed",
			})
		}
		// Another client paused or completed the task.
		l.dropStaleSession(taskID)
	}

	if cur := l.timers.Current(); cur != nil {
		if err := l.releaseSession(ctx, actor, cur.TaskID); err != nil {
			return nil, l.fail(EventStart, fmt.Errorf("starting task %s: pausing running task %s: %w", taskID, cur.TaskID, err))
		}
	}

	unlockTask := l.taskLocks.Lock(taskID)
	defer unlockTask()

	// Re-read under the task lock; the row may have moved on.
	task, err = l.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, l.fail(EventStart, fmt.Errorf("starting task %s: %w", taskID, err))
	}
	plan, err := Transition(task, EventStart, actor, nil)
	if err != nil {
		return nil, l.fail(EventStart, err)
	}

	now := l.clock.Now()
	updated := *task
	updated.Status = plan.To
	updated.UpdatedAt = now
	saved, err := l.tasks.UpdateTask(ctx, task.Version, updated)
	if err != nil {
		return nil, l.fail(EventStart, fmt.Errorf("starting task %s: %w", taskID, persistenceError(err)))
	}

	sess, err := l.timers.Start(saved.ID, actor.UserID, saved.TotalTimeSpent, now)
	if err != nil {
		// Put the row back so status and session stay consistent.
		revert := *saved
		revert.Status = task.Status
		revert.UpdatedAt = l.clock.Now()
		if _, rbErr := l.tasks.UpdateTask(ctx, saved.Version, revert); rbErr != nil {
			l.logger.Error("reverting task status after timer failure", zap.String("task_id", taskID), zap.Error(rbErr))
		}
		return nil, l.fail(EventStart, fmt.Errorf("starting task %s: %w", taskID, persistenceError(err)))
	}

	l.success(plan, saved, actor)
	l.logEvent("timer.started", map[string]any{
		"task_id":  saved.ID,
		"operator": actor.UserID,
		"baseline": sess.TotalDurationAtStart,
	})
	return saved, nil
}

// Pause stops timing taskID and flushes the elapsed time into
// total_time_spent.
func (l *Lifecycle) Pause(ctx context.Context, actor Actor, taskID string) (*models.Task, error) {
	unlockOp := l.operatorLocks.Lock(actor.UserID)
	defer unlockOp()

	saved, err := l.pauseLocked(ctx, actor, taskID)
	if err != nil {
		return nil, l.fail(EventPause, err)
	}
	return saved, nil
}

// pauseLocked pauses taskID; the caller holds the operator lock.
func (l *Lifecycle) pauseLocked(ctx context.Context, actor Actor, taskID string) (*models.Task, error) {
	unlockTask := l.taskLocks.Lock(taskID)
	defer unlockTask()

	task, err := l.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("pausing task %s: %w", taskID, err)
	}
	plan, err := Transition(task, EventPause, actor, nil)
	if err != nil {
		return nil, err
	}
	return l.flushAndApply(ctx, actor, task, plan)
}

// releaseSession pauses the task behind this client's open session. A
// session whose task is gone, no longer timed on the server, or no longer
// assigned to actor is stale and is simply dropped.
func (l *Lifecycle) releaseSession(ctx context.Context, actor Actor, taskID string) error {
	unlockTask := l.taskLocks.Lock(taskID)
	defer unlockTask()

	task, err := l.tasks.GetTask(ctx, taskID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil || !IsTimedStatus(task.Status) || task.AssignedTo != actor.UserID {
		l.dropStaleSession(taskID)
		return nil
	}

	plan, err := Transition(task, EventPause, actor, nil)
	if err != nil {
		return err
	}
	_, err = l.flushAndApply(ctx, actor, task, plan)
	return err
}

// dropStaleSession closes this client's session without flushing it.
func (l *Lifecycle) dropStaleSession(taskID string) {
	if _, _, _, err := l.timers.Stop(l.clock.Now()); err != nil {
		l.logger.Warn("clearing stale timer snapshot failed", zap.String("task_id", taskID), zap.Error(err))
	}
	l.logger.Info("dropped stale timer session", zap.String("task_id", taskID))
}

// Complete marks taskID done, flushing the live session first if this
// client is timing it. completed_at is set only the first time.
func (l *Lifecycle) Complete(ctx context.Context, actor Actor, taskID string) (*models.Task, error) {
	unlockOp := l.operatorLocks.Lock(actor.UserID)
	defer unlockOp()
	unlockTask := l.taskLocks.Lock(taskID)
	defer unlockTask()

	task, err := l.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, l.fail(EventComplete, fmt.Errorf("completing task %s: %w", taskID, err))
	}
	plan, err := Transition(task, EventComplete, actor, nil)
	if err != nil {
		return nil, l.fail(EventComplete, err)
	}
	saved, err := l.flushAndApply(ctx, actor, task, plan)
	if err != nil {
		return nil, l.fail(EventComplete, err)
	}
	return saved, nil
}

// flushAndApply writes plan.To together with the flushed session time in
// one conditional update, then closes the session. The session is left
// untouched when the write fails.
func (l *Lifecycle) flushAndApply(ctx context.Context, actor Actor, task *models.Task, plan Plan) (*models.Task, error) {
	now := l.clock.Now()
	sess := l.timers.Peek(task.ID)

	updated := *task
	updated.Status = plan.To
	updated.UpdatedAt = now
	if sess != nil {
		total := ElapsedSeconds(task, sess, now)
		if total > task.TotalTimeSpent {
			updated.TotalTimeSpent = total
		}
	}
	if plan.SetCompletedAt && updated.CompletedAt == nil {
		completedAt := now
		updated.CompletedAt = &completedAt
	}

	saved, err := l.tasks.UpdateTask(ctx, task.Version, updated)
	if err != nil {
		return nil, fmt.Errorf("%s task %s: %w", gerund(plan.Event), task.ID, persistenceError(err))
	}

	if sess != nil {
		if _, _, _, stopErr := l.timers.Stop(now); stopErr != nil {
			l.logger.Warn("clearing timer snapshot failed", zap.String("task_id", task.ID), zap.Error(stopErr))
		}
		flushed := saved.TotalTimeSpent - task.TotalTimeSpent
		l.metrics.AddFlushedSeconds(flushed)
		l.logEvent("timer.stopped", map[string]any{
			"task_id":  task.ID,
			"operator": actor.UserID,
			"flushed":  flushed,
			"total":    saved.TotalTimeSpent,
		})
	}

	l.success(plan, saved, actor)
	return saved, nil
}

// SendToQC moves a completed task into quality review. Admin only.
func (l *Lifecycle) SendToQC(ctx context.Context, actor Actor, taskID string) (*models.Task, error) {
	return l.review(ctx, actor, taskID, EventSendToQC)
}

// Finalize closes a task that passed quality review.
func (l *Lifecycle) Finalize(ctx context.Context, actor Actor, taskID string) (*models.Task, error) {
	return l.review(ctx, actor, taskID, EventFinalize)
}

// Reject sends a task under review back to its assignee for correction.
// Timing is not touched; the assignee restarts the timer to resume work.
func (l *Lifecycle) Reject(ctx context.Context, actor Actor, taskID string) (*models.Task, error) {
	return l.review(ctx, actor, taskID, EventReject)
}

func (l *Lifecycle) review(ctx context.Context, actor Actor, taskID string, event Event) (*models.Task, error) {
	unlockTask := l.taskLocks.Lock(taskID)
	defer unlockTask()

	task, err := l.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, l.fail(event, fmt.Errorf("%s task %s: %w", gerund(event), taskID, err))
	}

	var project *models.Project
	if actor.Role == models.RoleLeader {
		project, err = l.dir.GetProject(ctx, task.ProjectID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, l.fail(event, fmt.Errorf("%s task %s: loading project: %w", gerund(event), taskID, persistenceError(err)))
		}
	}

	plan, err := Transition(task, event, actor, project)
	if err != nil {
		return nil, l.fail(event, err)
	}

	updated := *task
	updated.Status = plan.To
	updated.UpdatedAt = l.clock.Now()
	saved, err := l.tasks.UpdateTask(ctx, task.Version, updated)
	if err != nil {
		return nil, l.fail(event, fmt.Errorf("%s task %s: %w", gerund(event), taskID, persistenceError(err)))
	}

	l.success(plan, saved, actor)
	return saved, nil
}

// Reassign hands taskID to another operator. Admin only; timing fields
// are left as they are.
func (l *Lifecycle) Reassign(ctx context.Context, actor Actor, taskID, userID string) (*models.Task, error) {
	if actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("reassigning task %s: %w: only admins may reassign", taskID, ErrInvalidTransition)
	}

	unlockTask := l.taskLocks.Lock(taskID)
	defer unlockTask()

	task, err := l.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("reassigning task %s: %w", taskID, err)
	}
	user, err := l.dir.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reassigning task %s: user %s: %w", taskID, userID, err)
	}
	if task.AssignedTo == user.ID {
		return task, nil
	}

	updated := *task
	updated.AssignedTo = user.ID
	updated.UpdatedAt = l.clock.Now()
	saved, err := l.tasks.UpdateTask(ctx, task.Version, updated)
	if err != nil {
		return nil, fmt.Errorf("reassigning task %s: %w", taskID, persistenceError(err))
	}

	l.logEvent("task.reassigned", map[string]any{
		"task_id": taskID,
		"from":    task.AssignedTo,
		"to":      user.ID,
		"by":      actor.UserID,
	})
	return saved, nil
}

// Elapsed returns the live active seconds of taskID on this client.
func (l *Lifecycle) Elapsed(ctx context.Context, taskID string) (int64, error) {
	task, err := l.tasks.GetTask(ctx, taskID)
	if err != nil {
		return 0, fmt.Errorf("computing elapsed time for %s: %w", taskID, err)
	}
	return ElapsedSeconds(task, l.timers.Peek(taskID), l.clock.Now()), nil
}

// CurrentSession returns this client's open timer session, or nil.
func (l *Lifecycle) CurrentSession() *models.TimerSession {
	return l.timers.Current()
}

// RestoreSession recovers a session that survived a restart.
func (l *Lifecycle) RestoreSession() (*models.TimerSession, error) {
	return l.timers.Restore()
}

// Logout pauses every task of actor that is in_progress or correction on
// the server, flushing this client's live session into the matching task,
// then clears the local snapshots. Failures are reported and logged but
// never stop the logout.
func (l *Lifecycle) Logout(ctx context.Context, actor Actor) LogoutReport {
	unlockOp := l.operatorLocks.Lock(actor.UserID)
	defer unlockOp()

	var report LogoutReport
	running, err := l.tasks.ListTasks(ctx, models.TaskFilter{
		AssignedTo: actor.UserID,
		Statuses:   []models.TaskStatus{models.StatusInProgress, models.StatusCorrection},
	})
	if err != nil {
		report.Failures = append(report.Failures, LogoutFailure{TaskID: "*", Err: persistenceError(err)})
		l.reportLogoutFailure(actor, "*", err)
	}

	for i := range running {
		taskID := running[i].ID
		saved, err := l.pauseForLogout(ctx, actor, taskID)
		if err != nil {
			report.Failures = append(report.Failures, LogoutFailure{TaskID: taskID, Err: err})
			l.reportLogoutFailure(actor, taskID, err)
			continue
		}
		if saved != nil {
			report.Paused = append(report.Paused, taskID)
		}
	}

	// Whatever happened above, this device forgets the session and user.
	if _, _, _, err := l.timers.Stop(l.clock.Now()); err != nil {
		l.logger.Warn("clearing timer snapshot on logout failed", zap.String("user_id", actor.UserID), zap.Error(err))
	}
	if l.snapshots != nil {
		if err := l.snapshots.Delete(CurrentUserKey); err != nil {
			l.logger.Warn("clearing current user on logout failed", zap.String("user_id", actor.UserID), zap.Error(err))
		}
	}

	l.logEvent("user.logout", map[string]any{
		"user_id":  actor.UserID,
		"paused":   len(report.Paused),
		"failures": len(report.Failures),
	})
	return report
}

// pauseForLogout pauses one running task regardless of which client was
// timing it. Only a matching local session contributes live seconds.
func (l *Lifecycle) pauseForLogout(ctx context.Context, actor Actor, taskID string) (*models.Task, error) {
	unlockTask := l.taskLocks.Lock(taskID)
	defer unlockTask()

	task, err := l.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !IsTimedStatus(task.Status) {
		return nil, nil
	}
	plan := Plan{Event: EventPause, From: task.Status, To: models.StatusPaused, CloseSession: true}
	return l.flushAndApply(ctx, actor, task, plan)
}

func (l *Lifecycle) reportLogoutFailure(actor Actor, taskID string, err error) {
	l.metrics.ObserveLogoutFlushFailure()
	l.logger.Warn("pausing task on logout failed",
		zap.String("user_id", actor.UserID),
		zap.String("task_id", taskID),
		zap.Error(err),
	)
	if logErr := l.events.LogEvent("logout.flush_failed", map[string]any{
		"user_id": actor.UserID,
		"task_id": taskID,
		"error":   err.Error(),
	}); logErr != nil {
		l.logger.Error("writing event log failed", zap.Error(logErr))
	}
}

func (l *Lifecycle) success(plan Plan, task *models.Task, actor Actor) {
	l.metrics.ObserveTransition(string(plan.Event), "ok")
	l.logEvent("task.status_changed", map[string]any{
		"task_id":    task.ID,
		"event":      string(plan.Event),
		"old_status": string(plan.From),
		"new_status": string(task.Status),
		"actor":      actor.UserID,
		"role":       string(actor.Role),
		"total":      task.TotalTimeSpent,
	})
	l.logger.Info("task transitioned",
		zap.String("task_id", task.ID),
		zap.String("event", string(plan.Event)),
		zap.String("from", string(plan.From)),
		zap.String("to", string(task.Status)),
		zap.Int64("total_time_spent", task.TotalTimeSpent),
	)
}

func (l *Lifecycle) fail(event Event, err error) error {
	result := "error"
	switch {
	case errors.Is(err, ErrInvalidTransition):
		result = "invalid"
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	}
	l.metrics.ObserveTransition(string(event), result)
	l.logger.Debug("transition rejected", zap.String("event", string(event)), zap.Error(err))
	return err
}

func (l *Lifecycle) logEvent(eventType string, data map[string]any) {
	if err := l.events.LogEvent(eventType, data); err != nil {
		l.logger.Warn("writing event log failed", zap.String("type", eventType), zap.Error(err))
	}
}

func assignedMessage(task *models.Task) string {
	return fmt.Sprintf("You have been assigned the task %q!", task.Title)
}

func gerund(event Event) string {
	switch event {
	case EventStart:
		return "starting"
	case EventPause:
		return "pausing"
	case EventComplete:
		return "completing"
	case EventSendToQC:
		return "sending to QC"
	case EventFinalize:
		return "finalizing"
	case EventReject:
		return "rejecting"
	default:
		return string(event)
	}
}
