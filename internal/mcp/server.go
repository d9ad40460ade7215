// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the tasktimer workflow as MCP tools for AI assistants and other clients.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/tasktimer/internal/core"
	"github.com/valter-silva-au/tasktimer/internal/observability"
	"github.com/valter-silva-au/tasktimer/pkg/models"
	"go.uber.org/zap"
)

// NotificationSource is the notification storage the inbox tools read.
type NotificationSource interface {
	core.NotificationStore
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
}

// Drainer reconciles pending changes into notifications.
type Drainer interface {
	Drain(ctx context.Context) (int, error)
}

// Config carries the services exposed by the server. Notifications,
// Reconciler, Events, MetricsCalc and AlertEngine may be nil.
type Config struct {
	Lifecycle     core.TaskLifecycle
	Notifications NotificationSource
	Reconciler    Drainer
	// Actor resolves the user the tools act as.
	Actor       func() (core.Actor, error)
	Clock       core.Clock
	Events      core.EventLogger
	MetricsCalc observability.MetricsCalculator
	AlertEngine observability.AlertEngine
	Logger      *zap.Logger
	Version     string
}

// Server wraps tasktimer services and exposes them as MCP tools.
type Server struct {
	server *gomcp.Server
	cfg    Config
}

// NewServer creates a new MCP server with the given service dependencies.
func NewServer(cfg Config) *Server {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Clock == nil {
		cfg.Clock = core.RealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Server{cfg: cfg}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "tt", Version: cfg.Version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on the stdio transport, blocking until the
// client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type taskIDInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task identifier (e.g. TASK-00042)"`
}

type taskOutput struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Status         string `json:"status"`
	AssignedTo     string `json:"assigned_to"`
	ProjectID      string `json:"project_id"`
	TotalTimeSpent int64  `json:"total_time_spent"`
	Elapsed        string `json:"elapsed"`
	Timing         bool   `json:"timing"`
	Created        string `json:"created"`
	Updated        string `json:"updated"`
	Completed      string `json:"completed,omitempty"`
}

type listTasksInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter tasks by status (pending, in_progress, paused, correction, completed, qc, finalized)"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type getTimerInput struct{}

type timerOutput struct {
	Running   bool   `json:"running"`
	TaskID    string `json:"task_id,omitempty"`
	StartedAt string `json:"started_at,omitempty"`
	Elapsed   string `json:"elapsed,omitempty"`
	Seconds   int64  `json:"seconds"`
}

type listNotificationsInput struct {
	All bool `json:"all,omitempty" jsonschema:"include notifications that were already read"`
}

type notificationOutput struct {
	ID      string `json:"id"`
	TaskID  string `json:"task_id,omitempty"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Read    bool   `json:"read"`
	Created string `json:"created"`
}

type listNotificationsOutput struct {
	Notifications []notificationOutput `json:"notifications"`
	Count         int                  `json:"count"`
}

type markReadInput struct {
	NotificationID string `json:"notification_id" jsonschema:"required,the notification identifier"`
}

type messageOutput struct {
	Message string `json:"message"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	TasksCreated       int            `json:"tasks_created"`
	TasksCompleted     int            `json:"tasks_completed"`
	TasksFinalized     int            `json:"tasks_finalized"`
	Corrections        int            `json:"corrections"`
	TransitionsByEvent map[string]int `json:"transitions_by_event"`
	SecondsByOperator  map[string]int `json:"seconds_by_operator"`
	Notifications      int            `json:"notifications"`
	EventCount         int            `json:"event_count"`
	OldestEvent        string         `json:"oldest_event,omitempty"`
	NewestEvent        string         `json:"newest_event,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List the tasks visible to the logged-in user with an optional status filter. Elapsed time includes a running timer.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get task details by ID, including status, assignee and tracked time.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "start_task",
		Description: "Start or resume timing a task assigned to the logged-in operator. Any other running task of the operator is paused first.",
	}, s.transitionHandler(core.EventStart))

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "pause_task",
		Description: "Pause a running task and add the elapsed time to its total.",
	}, s.transitionHandler(core.EventPause))

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task as done. A running timer is flushed first.",
	}, s.transitionHandler(core.EventComplete))

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_timer",
		Description: "Return the timer running on this device, if any.",
	}, s.handleGetTimer)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_notifications",
		Description: "List the notifications of the logged-in user, newest first. Only unread ones unless all is set.",
	}, s.handleListNotifications)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "mark_notification_read",
		Description: "Mark one notification as read. Marking an already read notification succeeds.",
	}, s.handleMarkRead)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated metrics from the event log: task counts, transitions, time per operator and notifications.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (long running timers, QC backlog, failed logout flushes).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleListTasks(ctx context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	actor, err := s.actor()
	if err != nil {
		return errorResult(err.Error()), listTasksOutput{}, nil
	}

	var status models.TaskStatus
	if input.Status != "" {
		status = models.TaskStatus(input.Status)
		if !status.Valid() {
			return errorResult(fmt.Sprintf("invalid status %q", input.Status)), listTasksOutput{}, nil
		}
	}

	tasks, err := s.cfg.Lifecycle.ListTasks(ctx, actor)
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", core.UserMessage(err))), listTasksOutput{}, nil
	}

	out := listTasksOutput{Tasks: make([]taskOutput, 0, len(tasks))}
	for i := range tasks {
		if status != "" && tasks[i].Status != status {
			continue
		}
		out.Tasks = append(out.Tasks, s.taskToOutput(&tasks[i]))
	}
	out.Count = len(out.Tasks)

	return nil, out, nil
}

func (s *Server) handleGetTask(ctx context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}

	task, err := s.cfg.Lifecycle.GetTask(ctx, input.TaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %s: %s", input.TaskID, core.UserMessage(err))), taskOutput{}, nil
	}

	return nil, s.taskToOutput(task), nil
}

func (s *Server) transitionHandler(event core.Event) gomcp.ToolHandlerFor[taskIDInput, taskOutput] {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
		if input.TaskID == "" {
			return errorResult("task_id is required"), taskOutput{}, nil
		}
		actor, err := s.actor()
		if err != nil {
			return errorResult(err.Error()), taskOutput{}, nil
		}

		var task *models.Task
		switch event {
		case core.EventStart:
			task, err = s.cfg.Lifecycle.Start(ctx, actor, input.TaskID)
		case core.EventPause:
			task, err = s.cfg.Lifecycle.Pause(ctx, actor, input.TaskID)
		case core.EventComplete:
			task, err = s.cfg.Lifecycle.Complete(ctx, actor, input.TaskID)
		default:
			return errorResult(fmt.Sprintf("unsupported event %s", event)), taskOutput{}, nil
		}
		if err != nil {
			return errorResult(core.UserMessage(err)), taskOutput{}, nil
		}
		s.drain(ctx)

		return nil, s.taskToOutput(task), nil
	}
}

func (s *Server) handleGetTimer(ctx context.Context, _ *gomcp.CallToolRequest, _ getTimerInput) (*gomcp.CallToolResult, timerOutput, error) {
	sess := s.cfg.Lifecycle.CurrentSession()
	if sess == nil {
		return nil, timerOutput{}, nil
	}

	out := timerOutput{
		Running:   true,
		TaskID:    sess.TaskID,
		StartedAt: sess.StartTime.Format(time.RFC3339),
	}
	task, err := s.cfg.Lifecycle.GetTask(ctx, sess.TaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %s: %s", sess.TaskID, core.UserMessage(err))), timerOutput{}, nil
	}
	out.Seconds = core.ElapsedSeconds(task, sess, s.cfg.Clock.Now())
	out.Elapsed = core.FormatDuration(out.Seconds)
	return nil, out, nil
}

func (s *Server) handleListNotifications(ctx context.Context, _ *gomcp.CallToolRequest, input listNotificationsInput) (*gomcp.CallToolResult, listNotificationsOutput, error) {
	if s.cfg.Notifications == nil {
		return errorResult("notification store not available"), listNotificationsOutput{}, nil
	}
	actor, err := s.actor()
	if err != nil {
		return errorResult(err.Error()), listNotificationsOutput{}, nil
	}
	s.drain(ctx)

	var notes []models.Notification
	if input.All {
		notes, err = s.cfg.Notifications.ListForUser(ctx, actor.UserID)
		if err != nil {
			return errorResult(fmt.Sprintf("listing notifications: %s", err)), listNotificationsOutput{}, nil
		}
	} else {
		inbox := core.NewInbox(actor.UserID, s.cfg.Notifications, s.cfg.Events).WithLogger(s.cfg.Logger)
		if err := inbox.Seed(ctx); err != nil {
			return errorResult(core.UserMessage(err)), listNotificationsOutput{}, nil
		}
		notes = inbox.Unread()
	}

	out := listNotificationsOutput{
		Notifications: make([]notificationOutput, len(notes)),
		Count:         len(notes),
	}
	for i, n := range notes {
		out.Notifications[i] = notificationOutput{
			ID:      n.ID,
			TaskID:  n.TaskID,
			Type:    string(n.Type),
			Message: n.Message,
			Read:    n.Read,
			Created: n.CreatedAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

func (s *Server) handleMarkRead(ctx context.Context, _ *gomcp.CallToolRequest, input markReadInput) (*gomcp.CallToolResult, messageOutput, error) {
	if s.cfg.Notifications == nil {
		return errorResult("notification store not available"), messageOutput{}, nil
	}
	if input.NotificationID == "" {
		return errorResult("notification_id is required"), messageOutput{}, nil
	}
	actor, err := s.actor()
	if err != nil {
		return errorResult(err.Error()), messageOutput{}, nil
	}

	inbox := core.NewInbox(actor.UserID, s.cfg.Notifications, s.cfg.Events).WithLogger(s.cfg.Logger)
	if err := inbox.MarkRead(ctx, input.NotificationID); err != nil {
		return errorResult(core.UserMessage(err)), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("notification %s marked as read", input.NotificationID)}, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.cfg.MetricsCalc == nil {
		return errorResult("metrics calculator not available"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.cfg.MetricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		TasksCreated:       metrics.TasksCreated,
		TasksCompleted:     metrics.TasksCompleted,
		TasksFinalized:     metrics.TasksFinalized,
		Corrections:        metrics.Corrections,
		TransitionsByEvent: metrics.TransitionsByEvent,
		SecondsByOperator:  metrics.SecondsByOperator,
		Notifications:      metrics.Notifications,
		EventCount:         metrics.EventCount,
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.cfg.AlertEngine == nil {
		return errorResult("alert engine not available"), getAlertsOutput{}, nil
	}

	alerts, err := s.cfg.AlertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func (s *Server) actor() (core.Actor, error) {
	if s.cfg.Actor == nil {
		return core.Actor{}, fmt.Errorf("no user is logged in")
	}
	return s.cfg.Actor()
}

func (s *Server) drain(ctx context.Context) {
	if s.cfg.Reconciler == nil {
		return
	}
	if _, err := s.cfg.Reconciler.Drain(ctx); err != nil {
		s.cfg.Logger.Warn("reconciling notifications", zap.Error(err))
	}
}

func (s *Server) taskToOutput(t *models.Task) taskOutput {
	sess := s.cfg.Lifecycle.CurrentSession()
	elapsed := core.ElapsedSeconds(t, sess, s.cfg.Clock.Now())
	out := taskOutput{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         string(t.Status),
		AssignedTo:     t.AssignedTo,
		ProjectID:      t.ProjectID,
		TotalTimeSpent: t.TotalTimeSpent,
		Elapsed:        core.FormatDuration(elapsed),
		Timing:         sess != nil && sess.TaskID == t.ID,
		Created:        t.CreatedAt.Format(time.RFC3339),
		Updated:        t.UpdatedAt.Format(time.RFC3339),
	}
	if t.CompletedAt != nil {
		out.Completed = t.CompletedAt.Format(time.RFC3339)
	}
	return out
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		TransitionsByEvent: make(map[string]int),
		SecondsByOperator:  make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
