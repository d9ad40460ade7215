package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/tasktimer/internal/cli"
	"github.com/valter-silva-au/tasktimer/internal/core"
	"github.com/valter-silva-au/tasktimer/pkg/models"
)

func TestResolveBasePath_TTHomeSet(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TT_HOME", tmpDir)

	if got := ResolveBasePath(); got != tmpDir {
		t.Errorf("ResolveBasePath() = %q, want %q", got, tmpDir)
	}
}

func TestResolveBasePath_FindsConfigInParent(t *testing.T) {
	for _, name := range []string{".ttconfig", ".ttconfig.yaml"} {
		t.Run(name, func(t *testing.T) {
			tmpDir := t.TempDir()
			subDir := filepath.Join(tmpDir, "sub", "nested")
			if err := os.MkdirAll(subDir, 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("task_id:\n  prefix: TT\n"), 0o644); err != nil {
				t.Fatal(err)
			}
			t.Setenv("TT_HOME", "")
			t.Chdir(subDir)

			if got := ResolveBasePath(); got != tmpDir {
				t.Errorf("ResolveBasePath() = %q, want %q", got, tmpDir)
			}
		})
	}
}

func TestResolveBasePath_FallbackToCwd(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TT_HOME", "")
	t.Chdir(tmpDir)

	cwd, _ := os.Getwd()
	if got := ResolveBasePath(); got != cwd {
		t.Errorf("ResolveBasePath() = %q, want %q", got, cwd)
	}
}

func newTestApp(t *testing.T, config string) *App {
	t.Helper()
	dir := t.TempDir()
	if config != "" {
		if err := os.WriteFile(filepath.Join(dir, ".ttconfig"), []byte(config), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	app, err := NewApp(dir)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNewApp_WiresCLI(t *testing.T) {
	app := newTestApp(t, "logging:\n  level: error\n")

	if cli.Lifecycle == nil || cli.Reconciler == nil || cli.Notifications == nil {
		t.Fatal("core services not wired into cli")
	}
	if cli.Users == nil || cli.Projects == nil || cli.Snapshots == nil || cli.Feed == nil {
		t.Fatal("storage not wired into cli")
	}
	if cli.EventLog == nil || cli.AlertEngine == nil || cli.MetricsCalc == nil || cli.Counters == nil {
		t.Fatal("observability not wired into cli")
	}
	if cli.Notifier != nil {
		t.Error("Notifier should be nil when notifications are disabled")
	}
	if cli.BasePath != app.BasePath {
		t.Errorf("cli.BasePath = %q, want %q", cli.BasePath, app.BasePath)
	}
	if _, err := os.Stat(filepath.Join(app.BasePath, "tasktimer.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := "logging:\n  level: loud\ntask_id:\n  prefix: bad-prefix\n"
	if err := os.WriteFile(filepath.Join(dir, ".ttconfig"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewApp(dir)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"logging.level", "task_id.prefix"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestNewApp_TaskFlowProducesNotifications(t *testing.T) {
	app := newTestApp(t, "logging:\n  level: error\ntask_id:\n  prefix: TT\n  pad_width: 3\n")
	ctx := context.Background()

	admin := models.User{ID: "admin-1", Username: "Ana", Role: models.RoleAdmin}
	op := models.User{ID: "op-1", Username: "Otto", Role: models.RoleDigitador, OperatorNumber: "17"}
	for _, u := range []models.User{admin, op} {
		if err := app.Users.Add(ctx, u); err != nil {
			t.Fatalf("adding user %s: %v", u.ID, err)
		}
	}
	if err := app.Projects.Add(ctx, models.Project{ID: "p-1", Name: "Census"}); err != nil {
		t.Fatalf("adding project: %v", err)
	}

	adminActor := core.Actor{UserID: admin.ID, Role: admin.Role}
	opActor := core.Actor{UserID: op.ID, Role: op.Role}

	task, err := app.Lifecycle.CreateTask(ctx, adminActor, core.NewTaskRequest{
		Title:      "Digitize forms",
		ProjectID:  "p-1",
		AssignedTo: op.ID,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID != "TT-001" {
		t.Errorf("task ID = %q, want TT-001", task.ID)
	}

	if _, err := app.Lifecycle.Start(ctx, opActor, task.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess := app.Lifecycle.CurrentSession(); sess == nil || sess.TaskID != task.ID {
		t.Fatalf("CurrentSession = %+v, want session for %s", sess, task.ID)
	}
	done, err := app.Lifecycle.Complete(ctx, opActor, task.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if app.Lifecycle.CurrentSession() != nil {
		t.Error("session should be closed after complete")
	}

	created, err := app.Reconciler.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if created != 1 {
		t.Errorf("Drain created %d notifications, want 1", created)
	}
	again, err := app.Reconciler.Drain(ctx)
	if err != nil || again != 0 {
		t.Errorf("second Drain = (%d, %v), want (0, nil)", again, err)
	}

	adminNotes, err := app.Notifications.ListUnread(ctx, admin.ID)
	if err != nil {
		t.Fatalf("ListUnread(admin): %v", err)
	}
	if len(adminNotes) != 1 || !strings.Contains(adminNotes[0].Message, "marked as done by Otto") {
		t.Errorf("admin notifications = %+v", adminNotes)
	}
	opNotes, err := app.Notifications.ListUnread(ctx, op.ID)
	if err != nil {
		t.Fatalf("ListUnread(op): %v", err)
	}
	if len(opNotes) != 1 || opNotes[0].Type != models.NotificationInfo {
		t.Errorf("operator notifications = %+v, want one assignment notice", opNotes)
	}
}

func TestNewApp_MissingTaskIsNotFound(t *testing.T) {
	app := newTestApp(t, "logging:\n  level: error\n")
	ctx := context.Background()

	_, err := app.Lifecycle.GetTask(ctx, "TASK-99999")
	if err == nil {
		t.Fatal("expected not found error")
	}
	if got := core.UserMessage(err); got != "The requested record was not found." {
		t.Errorf("UserMessage = %q", got)
	}
}
