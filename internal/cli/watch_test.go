package cli

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/valter-silva-au/tasktimer/pkg/models"
)

func loadedWatchModel(t *testing.T, s *testServices) watchModel {
	t.Helper()

	m := newWatchModel(&operatorUser)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	updated, _ = updated.Update(m.load(true)())
	return updated.(watchModel)
}

func TestWatchModel_InitialView(t *testing.T) {
	withServices(t)

	m := newWatchModel(&operatorUser)
	if m.View() != "Loading..." {
		t.Errorf("expected Loading... before the first window size, got %q", m.View())
	}
	if !m.loading {
		t.Error("expected loading to be true initially")
	}
}

func TestWatchModel_QuitKeys(t *testing.T) {
	withServices(t)

	for _, key := range []string{"q", "esc", "ctrl+c"} {
		m := newWatchModel(&operatorUser)
		var msg tea.KeyMsg
		switch key {
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEscape}
		case "ctrl+c":
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
		}
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("%s: expected quit command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", key)
		}
	}
}

func TestWatchModel_ShowsRunningTimer(t *testing.T) {
	s := withServices(t, pendingTask("TASK-00001", 60), pendingTask("TASK-00002", 0))
	s.lifecycle.session = &models.TimerSession{TaskID: "TASK-00001", OperatorID: operatorUser.ID, StartTime: testNow, TotalDurationAtStart: 60}
	s.notifications.notes = []models.Notification{
		{ID: "n-1", UserID: operatorUser.ID, Message: "You have been assigned the task \"Batch TASK-00002\"!", Type: models.NotificationInfo, CreatedAt: testNow},
	}

	m := loadedWatchModel(t, s)
	updated, _ := m.Update(tickMsg(testNow.Add(75 * time.Second)))
	view := updated.View()

	// 60s baseline plus 75s since the session anchor.
	if !strings.Contains(view, "00:02:15") {
		t.Errorf("expected running timer 00:02:15:\n%s", view)
	}
	if !strings.Contains(view, "Notifications (1 unread)") {
		t.Errorf("expected one unread notification:\n%s", view)
	}
	if s.reconciler.drains != 1 {
		t.Errorf("expected loading to reconcile, got %d drains", s.reconciler.drains)
	}
}

func TestWatchModel_SelectionBounds(t *testing.T) {
	s := withServices(t, pendingTask("TASK-00001", 0), pendingTask("TASK-00002", 0))
	m := loadedWatchModel(t, s)

	down := tea.KeyMsg{Type: tea.KeyDown}
	up := tea.KeyMsg{Type: tea.KeyUp}

	updated, _ := m.Update(down)
	updated, _ = updated.Update(down)
	if got := updated.(watchModel).selected; got != 1 {
		t.Errorf("selected = %d after moving past the end, want 1", got)
	}
	updated, _ = updated.Update(up)
	updated, _ = updated.Update(up)
	if got := updated.(watchModel).selected; got != 0 {
		t.Errorf("selected = %d after moving past the start, want 0", got)
	}
}

func TestWatchModel_StartSelectedTask(t *testing.T) {
	s := withServices(t, pendingTask("TASK-00001", 0), pendingTask("TASK-00002", 0))
	s.login(operatorUser)
	m := loadedWatchModel(t, s)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := updated.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if cmd == nil {
		t.Fatal("expected a command for the start key")
	}
	msg, ok := cmd().(actionDoneMsg)
	if !ok {
		t.Fatal("expected actionDoneMsg")
	}
	if msg.err != nil {
		t.Fatalf("unexpected error: %v", msg.err)
	}
	if msg.status != "TASK-00002 is now in_progress" {
		t.Errorf("unexpected status %q", msg.status)
	}
	if got := s.lifecycle.calls[len(s.lifecycle.calls)-1]; got != "start TASK-00002" {
		t.Errorf("last call = %q, want start TASK-00002", got)
	}
}

func TestWatchModel_ActionErrorShown(t *testing.T) {
	s := withServices(t, pendingTask("TASK-00001", 0))
	m := loadedWatchModel(t, s)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	updated, _ := m.Update(cmd())
	view := updated.View()
	if !strings.Contains(view, "not allowed") {
		t.Errorf("expected the rejected pause to be shown:\n%s", view)
	}
}

func TestWatchModel_HeadUnchangedSkipsReload(t *testing.T) {
	s := withServices(t, pendingTask("TASK-00001", 0))
	m := loadedWatchModel(t, s)
	drains := s.reconciler.drains

	updated, cmd := m.Update(headMsg{head: m.head})
	if cmd == nil {
		t.Fatal("expected the poll to be rescheduled")
	}
	if updated.(watchModel).loading {
		t.Error("unchanged head must not start a reload")
	}
	if s.reconciler.drains != drains {
		t.Error("unchanged head must not reconcile")
	}
}

func TestWatchModel_FeedChangesUpdateInbox(t *testing.T) {
	s := withServices(t, pendingTask("TASK-00001", 0))
	first := models.Notification{ID: "n-1", UserID: operatorUser.ID, Message: "Task \"Batch TASK-00001\" was sent back for correction", Type: models.NotificationWarning, CreatedAt: testNow}
	s.notifications.notes = []models.Notification{first}
	feed := &feedMock{}
	feed.append(models.ChangeEvent{Table: models.TableNotifications, Type: models.ChangeInsert, NewNotification: &first})
	Feed = feed

	m := loadedWatchModel(t, s)
	if m.head != 1 {
		t.Fatalf("head = %d after seeding, want 1", m.head)
	}
	if !strings.Contains(m.View(), "Notifications (1 unread)") {
		t.Fatalf("expected one unread notification:\n%s", m.View())
	}

	second := models.Notification{ID: "n-2", UserID: operatorUser.ID, Message: "You have been assigned the task \"Batch TASK-00002\"!", Type: models.NotificationInfo, CreatedAt: testNow.Add(time.Minute)}
	read := first
	read.Read = true
	other := models.Notification{ID: "n-3", UserID: adminUser.ID, Message: "not for this viewer", CreatedAt: testNow}
	feed.append(models.ChangeEvent{Table: models.TableNotifications, Type: models.ChangeInsert, NewNotification: &second})
	feed.append(models.ChangeEvent{Table: models.TableNotifications, Type: models.ChangeUpdate, OldNotification: &first, NewNotification: &read})
	feed.append(models.ChangeEvent{Table: models.TableNotifications, Type: models.ChangeInsert, NewNotification: &other})

	updated, cmd := m.Update(headMsg{head: 4})
	if cmd == nil {
		t.Fatal("expected a reload command for the moved head")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) != 2 {
		t.Fatalf("expected a reload batched with the next poll, got %T", cmd())
	}
	updated, _ = updated.Update(batch[0]())
	got := updated.(watchModel)

	if got.head != 4 {
		t.Errorf("head = %d after applying changes, want 4", got.head)
	}
	if len(got.unread) != 1 || got.unread[0].ID != "n-2" {
		t.Errorf("unread = %+v, want only n-2", got.unread)
	}
	view := got.View()
	if !strings.Contains(view, "Notifications (1 unread)") || !strings.Contains(view, "Batch TASK-00002") {
		t.Errorf("expected the new notification in the inbox:\n%s", view)
	}
	if strings.Contains(view, "sent back for correction") {
		t.Errorf("read notification should leave the inbox:\n%s", view)
	}
	if s.notifications.seeds != 1 {
		t.Errorf("inbox seeded %d times, want 1", s.notifications.seeds)
	}
}

func TestWatchModel_RefreshReseedsInbox(t *testing.T) {
	s := withServices(t, pendingTask("TASK-00001", 0))
	Feed = &feedMock{}
	m := loadedWatchModel(t, s)

	s.notifications.notes = append(s.notifications.notes, models.Notification{ID: "n-1", UserID: operatorUser.ID, Message: "hello", CreatedAt: testNow})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	updated, _ := m.Update(cmd())

	if got := updated.(watchModel).unread; len(got) != 1 {
		t.Errorf("unread = %+v after refresh, want one notification", got)
	}
	if s.notifications.seeds != 2 {
		t.Errorf("inbox seeded %d times, want 2", s.notifications.seeds)
	}
}
