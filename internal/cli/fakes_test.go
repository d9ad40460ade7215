package cli

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/tasktimer/internal/core"
	"github.com/valter-silva-au/tasktimer/pkg/models"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// lifecycleMock records calls and applies a minimal version of the
// workflow so command output can be checked.
type lifecycleMock struct {
	tasks   map[string]*models.Task
	session *models.TimerSession
	calls   []string
	logout  core.LogoutReport
	err     error
}

func newLifecycleMock(tasks ...models.Task) *lifecycleMock {
	m := &lifecycleMock{tasks: make(map[string]*models.Task)}
	for i := range tasks {
		t := tasks[i]
		m.tasks[t.ID] = &t
	}
	return m
}

func (m *lifecycleMock) record(call string) error {
	m.calls = append(m.calls, call)
	return m.err
}

func (m *lifecycleMock) lookup(id string) (*models.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (m *lifecycleMock) CreateTask(_ context.Context, actor core.Actor, req core.NewTaskRequest) (*models.Task, error) {
	if err := m.record("create " + req.Title); err != nil {
		return nil, err
	}
	t := models.Task{
		ID: fmt.Sprintf("TASK-%05d", len(m.tasks)+1), Title: req.Title, Status: models.StatusPending,
		ProjectID: req.ProjectID, AssignedTo: req.AssignedTo, CreatedBy: actor.UserID, CreatedAt: testNow, UpdatedAt: testNow,
	}
	m.tasks[t.ID] = &t
	cp := t
	return &cp, nil
}

func (m *lifecycleMock) GetTask(_ context.Context, id string) (*models.Task, error) {
	t, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	cp := *t
	return &cp, nil
}

func (m *lifecycleMock) ListTasks(_ context.Context, actor core.Actor) ([]models.Task, error) {
	if err := m.record("list " + actor.UserID); err != nil {
		return nil, err
	}
	var out []models.Task
	for _, t := range m.tasks {
		if actor.Role == models.RoleAdmin || t.AssignedTo == actor.UserID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *lifecycleMock) transition(call string, actor core.Actor, id string, event core.Event, to models.TaskStatus) (*models.Task, error) {
	if err := m.record(call + " " + id); err != nil {
		return nil, err
	}
	t, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if _, err := core.Transition(t, event, actor, nil); err != nil {
		return nil, err
	}
	t.Status = to
	cp := *t
	return &cp, nil
}

func (m *lifecycleMock) Start(_ context.Context, actor core.Actor, id string) (*models.Task, error) {
	t, err := m.transition("start", actor, id, core.EventStart, models.StatusInProgress)
	if err == nil {
		m.session = &models.TimerSession{TaskID: id, OperatorID: actor.UserID, StartTime: testNow, TotalDurationAtStart: t.TotalTimeSpent}
	}
	return t, err
}

func (m *lifecycleMock) Pause(_ context.Context, actor core.Actor, id string) (*models.Task, error) {
	m.session = nil
	return m.transition("pause", actor, id, core.EventPause, models.StatusPaused)
}

func (m *lifecycleMock) Complete(_ context.Context, actor core.Actor, id string) (*models.Task, error) {
	m.session = nil
	return m.transition("complete", actor, id, core.EventComplete, models.StatusCompleted)
}

func (m *lifecycleMock) SendToQC(_ context.Context, actor core.Actor, id string) (*models.Task, error) {
	return m.transition("qc", actor, id, core.EventSendToQC, models.StatusQC)
}

func (m *lifecycleMock) Finalize(_ context.Context, actor core.Actor, id string) (*models.Task, error) {
	return m.transition("finalize", actor, id, core.EventFinalize, models.StatusFinalized)
}

func (m *lifecycleMock) Reject(_ context.Context, actor core.Actor, id string) (*models.Task, error) {
	return m.transition("reject", actor, id, core.EventReject, models.StatusCorrection)
}

func (m *lifecycleMock) Reassign(_ context.Context, _ core.Actor, id, userID string) (*models.Task, error) {
	if err := m.record("assign " + id + " " + userID); err != nil {
		return nil, err
	}
	t, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	t.AssignedTo = userID
	cp := *t
	return &cp, nil
}

func (m *lifecycleMock) Elapsed(_ context.Context, id string) (int64, error) {
	t, err := m.lookup(id)
	if err != nil {
		return 0, err
	}
	return core.ElapsedSeconds(t, m.session, testNow.Add(30*time.Second)), nil
}

func (m *lifecycleMock) CurrentSession() *models.TimerSession { return m.session }

func (m *lifecycleMock) RestoreSession() (*models.TimerSession, error) { return m.session, nil }

func (m *lifecycleMock) Logout(_ context.Context, actor core.Actor) core.LogoutReport {
	m.calls = append(m.calls, "logout "+actor.UserID)
	return m.logout
}

// snapshotsMock keeps the current user in memory.
type snapshotsMock struct {
	user *models.User
}

func (s *snapshotsMock) Get(key string, out any) (bool, error) {
	if key != core.CurrentUserKey || s.user == nil {
		return false, nil
	}
	u, ok := out.(*models.User)
	if !ok {
		return false, fmt.Errorf("unexpected snapshot type %T", out)
	}
	*u = *s.user
	return true, nil
}

func (s *snapshotsMock) Put(key string, value any) error {
	if key != core.CurrentUserKey {
		return nil
	}
	switch v := value.(type) {
	case *models.User:
		cp := *v
		s.user = &cp
	case models.User:
		s.user = &v
	default:
		return fmt.Errorf("unexpected snapshot type %T", value)
	}
	return nil
}

func (s *snapshotsMock) Delete(key string) error {
	if key == core.CurrentUserKey {
		s.user = nil
	}
	return nil
}

type usersMock struct {
	users []models.User
}

func (u *usersMock) Add(_ context.Context, user models.User) error {
	for _, existing := range u.users {
		if existing.ID == user.ID {
			return fmt.Errorf("user %s already exists", user.ID)
		}
	}
	u.users = append(u.users, user)
	return nil
}

func (u *usersMock) Get(_ context.Context, id string) (*models.User, error) {
	for _, existing := range u.users {
		if existing.ID == id {
			cp := existing
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %s: not found", id)
}

func (u *usersMock) List(context.Context) ([]models.User, error) { return u.users, nil }

type projectsMock struct {
	projects []models.Project
}

func (p *projectsMock) Add(_ context.Context, project models.Project) error {
	p.projects = append(p.projects, project)
	return nil
}

func (p *projectsMock) Get(_ context.Context, id string) (*models.Project, error) {
	for _, existing := range p.projects {
		if existing.ID == id {
			cp := existing
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("project %s: not found", id)
}

func (p *projectsMock) List(context.Context) ([]models.Project, error) { return p.projects, nil }

type notificationsMock struct {
	notes []models.Notification
	seeds int
}

func (n *notificationsMock) InsertNotification(_ context.Context, note models.Notification) error {
	n.notes = append(n.notes, note)
	return nil
}

func (n *notificationsMock) ListUnread(_ context.Context, userID string) ([]models.Notification, error) {
	n.seeds++
	var out []models.Notification
	for _, note := range n.notes {
		if note.UserID == userID && !note.Read {
			out = append(out, note)
		}
	}
	return out, nil
}

func (n *notificationsMock) ListForUser(_ context.Context, userID string) ([]models.Notification, error) {
	var out []models.Notification
	for _, note := range n.notes {
		if note.UserID == userID {
			out = append(out, note)
		}
	}
	return out, nil
}

func (n *notificationsMock) MarkRead(_ context.Context, id string) (bool, error) {
	for i := range n.notes {
		if n.notes[i].ID == id {
			changed := !n.notes[i].Read
			n.notes[i].Read = true
			return changed, nil
		}
	}
	return false, fmt.Errorf("notification %s: %w", id, core.ErrNotFound)
}

// feedMock is an in-memory change feed.
type feedMock struct {
	events []models.ChangeEvent
}

func (f *feedMock) append(ev models.ChangeEvent) {
	ev.Seq = int64(len(f.events) + 1)
	f.events = append(f.events, ev)
}

func (f *feedMock) Head(context.Context) (int64, error) {
	return int64(len(f.events)), nil
}

func (f *feedMock) Since(_ context.Context, after int64, limit int) ([]models.ChangeEvent, error) {
	var out []models.ChangeEvent
	for _, ev := range f.events {
		if ev.Seq > after && len(out) < limit {
			out = append(out, ev)
		}
	}
	return out, nil
}

type reconcilerMock struct {
	drains int
	err    error
}

func (r *reconcilerMock) Drain(context.Context) (int, error) {
	r.drains++
	return 2, r.err
}

func (r *reconcilerMock) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

var (
	adminUser    = models.User{ID: "admin-1", Username: "Ana", Role: models.RoleAdmin}
	leaderUser   = models.User{ID: "lead-1", Username: "Lia", Role: models.RoleLeader}
	operatorUser = models.User{ID: "op-1", Username: "Otto", Role: models.RoleDigitador, OperatorNumber: "17"}
)

// testServices holds the mocks installed by withServices.
type testServices struct {
	lifecycle     *lifecycleMock
	snapshots     *snapshotsMock
	users         *usersMock
	projects      *projectsMock
	notifications *notificationsMock
	reconciler    *reconcilerMock
}

// login records user as the current user of the test device.
func (s *testServices) login(user models.User) {
	cp := user
	s.snapshots.user = &cp
}

// withServices swaps the package-level services for mocks and restores the
// originals when the test ends.
func withServices(t *testing.T, tasks ...models.Task) *testServices {
	t.Helper()

	origLifecycle, origReconciler := Lifecycle, Reconciler
	origNotifications, origUsers, origProjects := Notifications, Users, Projects
	origSnapshots, origFeed, origClock := Snapshots, Feed, Clock
	t.Cleanup(func() {
		Lifecycle, Reconciler = origLifecycle, origReconciler
		Notifications, Users, Projects = origNotifications, origUsers, origProjects
		Snapshots, Feed, Clock = origSnapshots, origFeed, origClock
	})

	s := &testServices{
		lifecycle:     newLifecycleMock(tasks...),
		snapshots:     &snapshotsMock{},
		users:         &usersMock{users: []models.User{adminUser, leaderUser, operatorUser}},
		projects:      &projectsMock{projects: []models.Project{{ID: "p-1", Name: "Archive", LeaderID: leaderUser.ID}}},
		notifications: &notificationsMock{},
		reconciler:    &reconcilerMock{},
	}
	Lifecycle = s.lifecycle
	Reconciler = s.reconciler
	Notifications = s.notifications
	Users = s.users
	Projects = s.projects
	Snapshots = s.snapshots
	Feed = nil
	Clock = core.NewFakeClock(testNow.Add(30 * time.Second))
	return s
}

// runCmd executes cmd directly and returns what it wrote.
func runCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	})
	err := cmd.RunE(cmd, args)
	return buf.String(), err
}
