package cli

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/tasktimer/internal/observability"
)

type alertsMock struct {
	evaluateFn func() ([]observability.Alert, error)
}

func (m *alertsMock) Evaluate() ([]observability.Alert, error) {
	return m.evaluateFn()
}

func (m *alertsMock) EvaluateAt(time.Time) ([]observability.Alert, error) {
	return m.evaluateFn()
}

type notifierMock struct {
	notifyFn func(alerts []observability.Alert) error
}

func (m *notifierMock) Notify(_ context.Context, alerts []observability.Alert) error {
	return m.notifyFn(alerts)
}

func sampleAlerts() []observability.Alert {
	return []observability.Alert{
		{Severity: observability.SeverityHigh, Message: "logout could not pause TASK-00002", TriggeredAt: time.Now().UTC()},
		{Severity: observability.SeverityLow, Message: "QC backlog is 12 tasks", TriggeredAt: time.Now().UTC()},
	}
}

func TestAlertsCmd_NilEngine(t *testing.T) {
	orig := AlertEngine
	defer func() { AlertEngine = orig }()
	AlertEngine = nil

	_, err := runCmd(t, alertsCmd)
	if err == nil {
		t.Fatal("expected error when AlertEngine is nil")
	}
	if !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAlertsCmd_NoAlerts(t *testing.T) {
	orig := AlertEngine
	defer func() { AlertEngine = orig }()

	AlertEngine = &alertsMock{
		evaluateFn: func() ([]observability.Alert, error) {
			return nil, nil
		},
	}

	out, err := runCmd(t, alertsCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No active alerts.") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestAlertsCmd_WithAlerts(t *testing.T) {
	orig := AlertEngine
	defer func() { AlertEngine = orig }()

	AlertEngine = &alertsMock{
		evaluateFn: func() ([]observability.Alert, error) {
			return sampleAlerts(), nil
		},
	}

	out, err := runCmd(t, alertsCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"2 active alert(s)", "HIGH", "logout could not pause TASK-00002", "QC backlog is 12 tasks"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAlertsCmd_EvaluateError(t *testing.T) {
	orig := AlertEngine
	defer func() { AlertEngine = orig }()

	AlertEngine = &alertsMock{
		evaluateFn: func() ([]observability.Alert, error) {
			return nil, fmt.Errorf("event log unreadable")
		},
	}

	_, err := runCmd(t, alertsCmd)
	if err == nil || !strings.Contains(err.Error(), "evaluating alerts") {
		t.Fatalf("expected evaluating alerts error, got %v", err)
	}
}

func TestAlertsCmd_Notify(t *testing.T) {
	origEngine, origNotifier, origFlag := AlertEngine, Notifier, alertsNotify
	defer func() { AlertEngine, Notifier, alertsNotify = origEngine, origNotifier, origFlag }()

	AlertEngine = &alertsMock{
		evaluateFn: func() ([]observability.Alert, error) {
			return sampleAlerts(), nil
		},
	}
	var sent []observability.Alert
	Notifier = &notifierMock{
		notifyFn: func(alerts []observability.Alert) error {
			sent = alerts
			return nil
		},
	}
	alertsNotify = true

	out, err := runCmd(t, alertsCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sent) != 2 {
		t.Errorf("expected 2 alerts sent, got %d", len(sent))
	}
	if !strings.Contains(out, "Alerts sent.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestAlertsCmd_NotifyWithoutNotifier(t *testing.T) {
	origEngine, origNotifier, origFlag := AlertEngine, Notifier, alertsNotify
	defer func() { AlertEngine, Notifier, alertsNotify = origEngine, origNotifier, origFlag }()

	AlertEngine = &alertsMock{
		evaluateFn: func() ([]observability.Alert, error) {
			return sampleAlerts(), nil
		},
	}
	Notifier = nil
	alertsNotify = true

	_, err := runCmd(t, alertsCmd)
	if err == nil || !strings.Contains(err.Error(), "not enabled") {
		t.Fatalf("expected notifications not enabled error, got %v", err)
	}
}
