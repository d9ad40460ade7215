package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/valter-silva-au/tasktimer/pkg/models"
)

var testStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// memFeed is an in-memory ChangeFeed shared by the fake stores.
type memFeed struct {
	mu      sync.Mutex
	events  []models.ChangeEvent
	offsets map[string]int64
	pollErr error
}

func newMemFeed() *memFeed {
	return &memFeed{offsets: make(map[string]int64)}
}

func (f *memFeed) append(ev models.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev.Seq = int64(len(f.events) + 1)
	f.events = append(f.events, ev)
}

func (f *memFeed) Poll(_ context.Context, consumer string, limit int) ([]models.ChangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	var out []models.ChangeEvent
	for _, ev := range f.events {
		if ev.Seq > f.offsets[consumer] {
			out = append(out, ev)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *memFeed) Ack(_ context.Context, consumer string, seq int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seq > f.offsets[consumer] {
		f.offsets[consumer] = seq
	}
	return nil
}

func (f *memFeed) taskUpdates() []models.ChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChangeEvent
	for _, ev := range f.events {
		if ev.Table == models.TableTasks && ev.Type == models.ChangeUpdate {
			out = append(out, ev)
		}
	}
	return out
}

// memTasks is an in-memory TaskStore with version checks.
type memTasks struct {
	mu        sync.Mutex
	rows      map[string]models.Task
	feed      *memFeed
	updateErr error
	updates   int
}

func newMemTasks(feed *memFeed) *memTasks {
	return &memTasks{rows: make(map[string]models.Task), feed: feed}
}

func (s *memTasks) InsertTask(_ context.Context, task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[task.ID]; ok {
		return fmt.Errorf("task %s exists: %w", task.ID, ErrPersistence)
	}
	if task.Version == 0 {
		task.Version = 1
	}
	s.rows[task.ID] = task
	if s.feed != nil {
		n := task
		s.feed.append(models.ChangeEvent{Table: models.TableTasks, Type: models.ChangeInsert, NewTask: &n})
	}
	return nil
}

func (s *memTasks) GetTask(_ context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return &t, nil
}

func (s *memTasks) UpdateTask(_ context.Context, expectedVersion int64, task models.Task) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	old, ok := s.rows[task.ID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}
	if old.Version != expectedVersion {
		return nil, fmt.Errorf("task %s changed: %w", task.ID, ErrPersistence)
	}
	task.Version = old.Version + 1
	s.rows[task.ID] = task
	s.updates++
	if s.feed != nil {
		o, n := old, task
		s.feed.append(models.ChangeEvent{Table: models.TableTasks, Type: models.ChangeUpdate, OldTask: &o, NewTask: &n})
	}
	out := task
	return &out, nil
}

func (s *memTasks) ListTasks(_ context.Context, filter models.TaskFilter) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Task{}
	for _, t := range s.rows {
		if filter.AssignedTo != "" && t.AssignedTo != filter.AssignedTo {
			continue
		}
		if filter.ProjectIDs != nil && !containsString(filter.ProjectIDs, t.ProjectID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// put stores task as is, bypassing the change feed.
func (s *memTasks) put(task models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.Version == 0 {
		task.Version = 1
	}
	s.rows[task.ID] = task
}

func (s *memTasks) get(id string) models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}

// memNotes is an in-memory NotificationStore with a unique dedup key.
type memNotes struct {
	mu        sync.Mutex
	rows      map[string]models.Notification
	keys      map[string]bool
	feed      *memFeed
	insertErr error
}

func newMemNotes(feed *memFeed) *memNotes {
	return &memNotes{rows: make(map[string]models.Notification), keys: make(map[string]bool), feed: feed}
}

func (s *memNotes) InsertNotification(_ context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if n.DedupKey != "" && s.keys[n.DedupKey] {
		return fmt.Errorf("notification for %s: %w", n.UserID, ErrDuplicateNotification)
	}
	if n.DedupKey != "" {
		s.keys[n.DedupKey] = true
	}
	s.rows[n.ID] = n
	if s.feed != nil {
		c := n
		s.feed.append(models.ChangeEvent{Table: models.TableNotifications, Type: models.ChangeInsert, NewNotification: &c})
	}
	return nil
}

func (s *memNotes) ListUnread(_ context.Context, userID string) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.rows {
		if n.UserID == userID && !n.Read {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memNotes) MarkRead(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok {
		return false, fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	if n.Read {
		return false, nil
	}
	old := n
	n.Read = true
	s.rows[id] = n
	if s.feed != nil {
		c := n
		s.feed.append(models.ChangeEvent{Table: models.TableNotifications, Type: models.ChangeUpdate, OldNotification: &old, NewNotification: &c})
	}
	return true, nil
}

// forUser returns the notifications of userID sorted by message.
func (s *memNotes) forUser(userID string) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Message < out[j].Message })
	return out
}

func (s *memNotes) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// memDirectory is a fixed set of users and projects.
type memDirectory struct {
	users    map[string]models.User
	projects map[string]models.Project
}

func newMemDirectory() *memDirectory {
	return &memDirectory{users: make(map[string]models.User), projects: make(map[string]models.Project)}
}

func (d *memDirectory) addUser(id string, role models.Role) models.User {
	u := models.User{ID: id, Username: id + "-name", Role: role}
	d.users[id] = u
	return u
}

func (d *memDirectory) addProject(id, leaderID string) {
	d.projects[id] = models.Project{ID: id, Name: id, LeaderID: leaderID}
}

func (d *memDirectory) GetUser(_ context.Context, id string) (*models.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (d *memDirectory) ListUsersByRole(_ context.Context, role models.Role) ([]models.User, error) {
	var out []models.User
	for _, u := range d.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *memDirectory) GetProject(_ context.Context, id string) (*models.Project, error) {
	p, ok := d.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (d *memDirectory) ListProjectsLedBy(_ context.Context, userID string) ([]models.Project, error) {
	var out []models.Project
	for _, p := range d.projects {
		if p.LeaderID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

// memSnapshots is an in-memory SnapshotStore. Values are kept as the
// concrete types the engine stores.
type memSnapshots struct {
	mu     sync.Mutex
	values map[string]any
	putErr error
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{values: make(map[string]any)}
}

func (s *memSnapshots) Get(key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return false, nil
	}
	switch dst := out.(type) {
	case *models.TimerSession:
		*dst = v.(models.TimerSession)
	case *models.User:
		*dst = v.(models.User)
	default:
		return false, fmt.Errorf("unsupported snapshot type %T", out)
	}
	return true, nil
}

func (s *memSnapshots) Put(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.values[key] = value
	return nil
}

func (s *memSnapshots) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *memSnapshots) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

// seqIDs hands out sequential task ids.
type seqIDs struct {
	mu sync.Mutex
	n  int64
}

func (g *seqIDs) NextID(_ context.Context, prefix string, padWidth int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return FormatTaskID(prefix, padWidth, g.n), nil
}

// recordingEvents captures logged events.
type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

type recordedEvent struct {
	Type string
	Data map[string]any
}

func (r *recordingEvents) LogEvent(eventType string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, Data: data})
	return r.err
}

func (r *recordingEvents) ofType(eventType string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// countingMetrics records calls to EngineMetrics.
type countingMetrics struct {
	mu             sync.Mutex
	transitions    map[string]int
	flushed        int64
	notifications  map[string]int
	duplicates     int
	logoutFailures int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{transitions: make(map[string]int), notifications: make(map[string]int)}
}

func (m *countingMetrics) ObserveTransition(event, result string) {
	m.mu.Lock()
	m.transitions[event+"/"+result]++
	m.mu.Unlock()
}

func (m *countingMetrics) AddFlushedSeconds(seconds int64) {
	m.mu.Lock()
	m.flushed += seconds
	m.mu.Unlock()
}

func (m *countingMetrics) ObserveNotification(rule string) {
	m.mu.Lock()
	m.notifications[rule]++
	m.mu.Unlock()
}

func (m *countingMetrics) ObserveDuplicateNotification() {
	m.mu.Lock()
	m.duplicates++
	m.mu.Unlock()
}

func (m *countingMetrics) ObserveLogoutFlushFailure() {
	m.mu.Lock()
	m.logoutFailures++
	m.mu.Unlock()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsStatus(list []models.TaskStatus, s models.TaskStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// testEnv wires a Lifecycle and a Reconciler to in-memory fakes.
type testEnv struct {
	clock     *FakeClock
	feed      *memFeed
	tasks     *memTasks
	notes     *memNotes
	dir       *memDirectory
	snapshots *memSnapshots
	events    *recordingEvents
	metrics   *countingMetrics
	lifecycle *Lifecycle
	rec       *Reconciler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		clock:     NewFakeClock(testStart),
		feed:      newMemFeed(),
		dir:       newMemDirectory(),
		snapshots: newMemSnapshots(),
		events:    &recordingEvents{},
		metrics:   newCountingMetrics(),
	}
	env.tasks = newMemTasks(env.feed)
	env.notes = newMemNotes(env.feed)

	env.dir.addUser("admin", models.RoleAdmin)
	env.dir.addUser("leader", models.RoleLeader)
	env.dir.addUser("op1", models.RoleDigitador)
	env.dir.addUser("op2", models.RoleDigitador)
	env.dir.addProject("p1", "leader")
	env.dir.addProject("p2", "")

	env.lifecycle = NewLifecycle(LifecycleDeps{
		Tasks:          env.tasks,
		Notifications:  env.notes,
		Directory:      env.dir,
		Snapshots:      env.snapshots,
		IDs:            &seqIDs{},
		Clock:          env.clock,
		Events:         env.events,
		Metrics:        env.metrics,
		TaskIDPrefix:   "TASK",
		TaskIDPadWidth: 5,
	})
	env.rec = NewReconciler(ReconcilerDeps{
		Feed:          env.feed,
		Notifications: env.notes,
		Directory:     env.dir,
		Clock:         env.clock,
		Events:        env.events,
		Metrics:       env.metrics,
		BatchSize:     2,
	})
	return env
}

// task stores a task in status for op1 in p1 without emitting changes.
func (env *testEnv) task(id string, status models.TaskStatus, total int64) {
	env.tasks.put(models.Task{
		ID:             id,
		Title:          "Title " + id,
		Status:         status,
		TotalTimeSpent: total,
		AssignedTo:     "op1",
		ProjectID:      "p1",
		CreatedAt:      testStart,
		UpdatedAt:      testStart,
	})
}

var (
	admin  = Actor{UserID: "admin", Role: models.RoleAdmin}
	leader = Actor{UserID: "leader", Role: models.RoleLeader}
	op1    = Actor{UserID: "op1", Role: models.RoleDigitador}
	op2    = Actor{UserID: "op2", Role: models.RoleDigitador}
)
