// Package observability provides the domain event log, structured
// logging, Prometheus counters, event-derived summaries and alerting for
// tasktimer. Events are persisted as JSON Lines and summaries are computed
// on demand by replaying the log.
package observability
