package observability

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// EngineCounters holds the Prometheus counters of the lifecycle engine
// and reconciler on a private registry.
type EngineCounters struct {
	registry       *prometheus.Registry
	transitions    *prometheus.CounterVec
	flushedSeconds prometheus.Counter
	notifications  *prometheus.CounterVec
	duplicates     prometheus.Counter
	logoutFailures prometheus.Counter
}

// NewEngineCounters creates and registers the counters.
func NewEngineCounters() *EngineCounters {
	c := &EngineCounters{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tt_transitions_total",
			Help: "Task lifecycle events by event and result.",
		}, []string{"event", "result"}),
		flushedSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tt_time_flushed_seconds_total",
			Help: "Active seconds flushed into total_time_spent.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tt_notifications_total",
			Help: "Notifications created by rule.",
		}, []string{"rule"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tt_notifications_deduplicated_total",
			Help: "Redelivered notifications skipped by dedup key.",
		}),
		logoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tt_logout_flush_failures_total",
			Help: "Tasks that could not be paused during logout.",
		}),
	}
	c.registry.MustRegister(c.transitions, c.flushedSeconds, c.notifications, c.duplicates, c.logoutFailures)
	return c
}

// Registry exposes the private registry, e.g. for promhttp.HandlerFor.
func (c *EngineCounters) Registry() *prometheus.Registry { return c.registry }

func (c *EngineCounters) ObserveTransition(event, result string) {
	c.transitions.WithLabelValues(event, result).Inc()
}

func (c *EngineCounters) AddFlushedSeconds(seconds int64) {
	if seconds > 0 {
		c.flushedSeconds.Add(float64(seconds))
	}
}

func (c *EngineCounters) ObserveNotification(rule string) {
	c.notifications.WithLabelValues(rule).Inc()
}

func (c *EngineCounters) ObserveDuplicateNotification() { c.duplicates.Inc() }

func (c *EngineCounters) ObserveLogoutFlushFailure() { c.logoutFailures.Inc() }

// Replay feeds past events into the counters, so a short-lived process
// can report totals derived from the event log.
func (c *EngineCounters) Replay(events []Event) {
	for _, ev := range events {
		switch ev.Type {
		case "task.status_changed":
			event, _ := ev.Data["event"].(string)
			c.ObserveTransition(event, "ok")
		case "timer.stopped":
			c.AddFlushedSeconds(int64(number(ev.Data["flushed"])))
		case "notification.created":
			rule, _ := ev.Data["rule"].(string)
			c.ObserveNotification(rule)
		case "notification.duplicate_skipped":
			c.ObserveDuplicateNotification()
		case "logout.flush_failed":
			c.ObserveLogoutFlushFailure()
		}
	}
}

// WriteText writes every registered metric in the Prometheus text
// exposition format.
func (c *EngineCounters) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// number converts a decoded JSON number to float64.
func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
