package observability

import (
	"fmt"
	"time"
)

// Summary holds activity totals derived from the event log.
type Summary struct {
	TasksCreated       int            `json:"tasks_created"`
	TasksCompleted     int            `json:"tasks_completed"`
	TasksFinalized     int            `json:"tasks_finalized"`
	Corrections        int            `json:"corrections"`
	TransitionsByEvent map[string]int `json:"transitions_by_event"`
	SecondsByOperator  map[string]int `json:"seconds_by_operator"`
	Notifications      int            `json:"notifications"`
	DuplicatesSkipped  int            `json:"duplicates_skipped"`
	LogoutFailures     int            `json:"logout_failures"`
	EventCount         int            `json:"event_count"`
	OldestEvent        *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent        *time.Time     `json:"newest_event,omitempty"`
}

// TotalSeconds sums the flushed seconds of every operator.
func (s *Summary) TotalSeconds() int {
	total := 0
	for _, v := range s.SecondsByOperator {
		total += v
	}
	return total
}

// MetricsCalculator derives summaries from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Summary, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator reading from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates every event since the given time.
func (mc *metricsCalculator) Calculate(since time.Time) (*Summary, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	s := &Summary{
		TransitionsByEvent: make(map[string]int),
		SecondsByOperator:  make(map[string]int),
		EventCount:         len(events),
	}

	for i, event := range events {
		t := event.Time
		if i == 0 {
			s.OldestEvent = &t
		}
		s.NewestEvent = &t

		switch event.Type {
		case "task.created":
			s.TasksCreated++
		case "task.status_changed":
			ev, _ := event.Data["event"].(string)
			s.TransitionsByEvent[ev]++
			switch event.Data["new_status"] {
			case "completed":
				s.TasksCompleted++
			case "finalized":
				s.TasksFinalized++
			case "correction":
				if event.Data["old_status"] == "qc" {
					s.Corrections++
				}
			}
		case "timer.stopped":
			op, _ := event.Data["operator"].(string)
			s.SecondsByOperator[op] += int(number(event.Data["flushed"]))
		case "notification.created":
			s.Notifications++
		case "notification.duplicate_skipped":
			s.DuplicatesSkipped++
		case "logout.flush_failed":
			s.LogoutFailures++
		}
	}
	return s, nil
}
