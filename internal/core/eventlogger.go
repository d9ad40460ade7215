package core

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// EngineMetrics receives counters from the lifecycle engine and the
// reconciler. Implemented by observability.Metrics.
type EngineMetrics interface {
	ObserveTransition(event string, result string)
	AddFlushedSeconds(seconds int64)
	ObserveNotification(rule string)
	ObserveDuplicateNotification()
	ObserveLogoutFlushFailure()
}

type nopEventLogger struct{}

func (nopEventLogger) LogEvent(string, map[string]any) error { return nil }

type nopMetrics struct{}

func (nopMetrics) ObserveTransition(string, string) {}
func (nopMetrics) AddFlushedSeconds(int64)          {}
func (nopMetrics) ObserveNotification(string)       {}
func (nopMetrics) ObserveDuplicateNotification()    {}
func (nopMetrics) ObserveLogoutFlushFailure()       {}
