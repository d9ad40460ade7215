package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/tasktimer/internal/core"
	"github.com/valter-silva-au/tasktimer/internal/observability"
)

var (
	metricsJSON       bool
	metricsPrometheus bool
	metricsSince      string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display task and time tracking metrics",
	Long: `Display aggregated metrics derived from the event log.

Metrics include tasks created, completed and finalized, corrections,
transitions by event, flushed time per operator, and notification counts.
With --prometheus the event log is replayed into the engine counters and
printed in the Prometheus text format.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized")
		}

		sinceTime, err := parseSinceDuration(metricsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsPrometheus {
			if EventLog == nil {
				return fmt.Errorf("event log not initialized")
			}
			events, err := EventLog.Read(observability.EventFilter{Since: &sinceTime})
			if err != nil {
				return fmt.Errorf("reading event log: %w", err)
			}
			counters := observability.NewEngineCounters()
			counters.Replay(events)
			return counters.WriteText(out)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		if metricsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		printSummary(out, metrics, sinceTime)
		return nil
	},
}

func printSummary(out io.Writer, metrics *observability.Summary, since time.Time) {
	fmt.Fprintf(out, "Metrics (since %s)\n\n", since.Format("2006-01-02"))
	fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", metrics.EventCount)
	fmt.Fprintf(out, "  %-24s %d\n", "Tasks created:", metrics.TasksCreated)
	fmt.Fprintf(out, "  %-24s %d\n", "Tasks completed:", metrics.TasksCompleted)
	fmt.Fprintf(out, "  %-24s %d\n", "Tasks finalized:", metrics.TasksFinalized)
	fmt.Fprintf(out, "  %-24s %d\n", "Corrections:", metrics.Corrections)
	fmt.Fprintf(out, "  %-24s %s\n", "Time tracked:", core.FormatDuration(int64(metrics.TotalSeconds())))
	fmt.Fprintf(out, "  %-24s %d\n", "Notifications:", metrics.Notifications)
	fmt.Fprintf(out, "  %-24s %d\n", "Duplicates skipped:", metrics.DuplicatesSkipped)
	fmt.Fprintf(out, "  %-24s %d\n", "Logout failures:", metrics.LogoutFailures)

	if len(metrics.TransitionsByEvent) > 0 {
		fmt.Fprintln(out, "\n  Transitions by event:")
		for _, event := range sortedKeys(metrics.TransitionsByEvent) {
			fmt.Fprintf(out, "    %-20s %d\n", event+":", metrics.TransitionsByEvent[event])
		}
	}

	if len(metrics.SecondsByOperator) > 0 {
		fmt.Fprintln(out, "\n  Time by operator:")
		for _, op := range sortedKeys(metrics.SecondsByOperator) {
			fmt.Fprintf(out, "    %-20s %s\n", op+":", core.FormatDuration(int64(metrics.SecondsByOperator[op])))
		}
	}

	if metrics.OldestEvent != nil {
		fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
	}
	if metrics.NewestEvent != nil {
		fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().BoolVar(&metricsPrometheus, "prometheus", false, "Output engine counters in Prometheus text format")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
