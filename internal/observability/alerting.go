package observability

import (
	"fmt"
	"sort"
	"time"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts fire.
type AlertThresholds struct {
	// StaleHours is how long a timer may run without a pause.
	StaleHours int `yaml:"stale_hours" json:"stale_hours"`
	// QCBacklog is the largest number of tasks allowed to wait in qc.
	QCBacklog int `yaml:"qc_backlog" json:"qc_backlog"`
	// FailureWindowHours limits how far back logout failures are reported.
	FailureWindowHours int `yaml:"failure_window_hours" json:"failure_window_hours"`
}

// DefaultAlertThresholds returns the default thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		StaleHours:         8,
		QCBacklog:          10,
		FailureWindowHours: 24,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
	EvaluateAt(now time.Time) ([]Alert, error)
}

type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
}

// NewAlertEngine creates an AlertEngine with the given EventLog and thresholds.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{eventLog: eventLog, thresholds: thresholds}
}

// Evaluate checks every alert condition as of now.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	return ae.EvaluateAt(time.Now().UTC())
}

// EvaluateAt checks every alert condition as of now. Alerts are sorted by
// ID so repeated runs print in the same order.
func (ae *alertEngine) EvaluateAt(now time.Time) ([]Alert, error) {
	events, err := ae.eventLog.Read(EventFilter{Types: []string{"task.created", "task.status_changed", "logout.flush_failed"}})
	if err != nil {
		return nil, fmt.Errorf("reading events for alerts: %w", err)
	}

	var alerts []Alert
	alerts = append(alerts, ae.checkRunningTimers(events, now)...)
	alerts = append(alerts, ae.checkQCBacklog(events, now)...)
	alerts = append(alerts, ae.checkLogoutFailures(events, now)...)

	sort.Slice(alerts, func(i, j int) bool { return alerts[i].ID < alerts[j].ID })
	return alerts, nil
}

type taskState struct {
	status    string
	changedAt time.Time
}

// latestStates replays status changes into the latest status per task.
func latestStates(events []Event) map[string]taskState {
	states := make(map[string]taskState)
	for _, event := range events {
		taskID, _ := event.Data["task_id"].(string)
		if taskID == "" {
			continue
		}
		switch event.Type {
		case "task.created":
			states[taskID] = taskState{status: "pending", changedAt: event.Time}
		case "task.status_changed":
			if newStatus, ok := event.Data["new_status"].(string); ok && newStatus != "" {
				states[taskID] = taskState{status: newStatus, changedAt: event.Time}
			}
		}
	}
	return states
}

// checkRunningTimers flags tasks whose timer has been running longer than
// the threshold, typically a forgotten pause.
func (ae *alertEngine) checkRunningTimers(events []Event, now time.Time) []Alert {
	threshold := time.Duration(ae.thresholds.StaleHours) * time.Hour
	var alerts []Alert
	for taskID, st := range latestStates(events) {
		if st.status != "in_progress" && st.status != "correction" {
			continue
		}
		if now.Sub(st.changedAt) > threshold {
			alerts = append(alerts, Alert{
				ID:          "running-" + taskID,
				Condition:   "timer_running_too_long",
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("task %s has been timed for more than %d hours without a pause", taskID, ae.thresholds.StaleHours),
				TriggeredAt: now,
			})
		}
	}
	return alerts
}

func (ae *alertEngine) checkQCBacklog(events []Event, now time.Time) []Alert {
	waiting := 0
	for _, st := range latestStates(events) {
		if st.status == "qc" {
			waiting++
		}
	}
	if waiting <= ae.thresholds.QCBacklog {
		return nil
	}
	return []Alert{{
		ID:          "qc-backlog",
		Condition:   "qc_backlog_too_large",
		Severity:    SeverityLow,
		Message:     fmt.Sprintf("%d tasks are awaiting quality review, exceeding the maximum of %d", waiting, ae.thresholds.QCBacklog),
		TriggeredAt: now,
	}}
}

// checkLogoutFailures reports tasks left running because a logout could
// not pause them.
func (ae *alertEngine) checkLogoutFailures(events []Event, now time.Time) []Alert {
	window := time.Duration(ae.thresholds.FailureWindowHours) * time.Hour
	seen := make(map[string]bool)
	var alerts []Alert
	for _, event := range events {
		if event.Type != "logout.flush_failed" || now.Sub(event.Time) > window {
			continue
		}
		taskID, _ := event.Data["task_id"].(string)
		userID, _ := event.Data["user_id"].(string)
		if seen[taskID] {
			continue
		}
		seen[taskID] = true
		alerts = append(alerts, Alert{
			ID:          "logout-" + taskID,
			Condition:   "logout_flush_failed",
			Severity:    SeverityHigh,
			Message:     fmt.Sprintf("task %s of %s could not be paused at logout; its time may be incomplete", taskID, userID),
			TriggeredAt: now,
		})
	}
	return alerts
}
