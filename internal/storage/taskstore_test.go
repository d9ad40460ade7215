package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/valter-silva-au/tasktimer/pkg/models"
)

func TestTaskStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(openTestDB(t))

	task := sampleTask("TASK-00001", baseTime)
	task.Description = "two boxes"
	if err := store.Insert(ctx, task); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := store.Get(ctx, "TASK-00001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != task.Title || got.Description != "two boxes" {
		t.Errorf("got %+v", got)
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Version)
	}
	if !got.CreatedAt.Equal(baseTime) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, baseTime)
	}
	if got.CompletedAt != nil {
		t.Errorf("CompletedAt = %v, want nil", got.CompletedAt)
	}
}

func TestTaskStore_InsertDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(openTestDB(t))

	if err := store.Insert(ctx, sampleTask("TASK-00001", baseTime)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	err := store.Insert(ctx, sampleTask("TASK-00001", baseTime))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestTaskStore_GetMissing(t *testing.T) {
	_, err := NewTaskStore(openTestDB(t)).Get(context.Background(), "TASK-404")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTaskStore_ConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(openTestDB(t))
	if err := store.Insert(ctx, sampleTask("TASK-00001", baseTime)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	task, _ := store.Get(ctx, "TASK-00001")
	done := baseTime.Add(time.Hour)
	task.Status = models.StatusCompleted
	task.TotalTimeSpent = 3600
	task.CompletedAt = &done

	saved, err := store.ConditionalUpdate(ctx, 1, *task)
	if err != nil {
		t.Fatalf("ConditionalUpdate: %v", err)
	}
	if saved.Version != 2 {
		t.Errorf("Version = %d, want 2", saved.Version)
	}
	if saved.CompletedAt == nil || !saved.CompletedAt.Equal(done) {
		t.Errorf("CompletedAt = %v, want %v", saved.CompletedAt, done)
	}

	// A writer holding the old version loses.
	task.Status = models.StatusPaused
	_, err = store.ConditionalUpdate(ctx, 1, *task)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	got, _ := store.Get(ctx, "TASK-00001")
	if got.Status != models.StatusCompleted {
		t.Errorf("Status = %s after rejected update, want completed", got.Status)
	}
}

func TestTaskStore_ConditionalUpdateMissing(t *testing.T) {
	_, err := NewTaskStore(openTestDB(t)).ConditionalUpdate(context.Background(), 1, sampleTask("TASK-404", baseTime))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTaskStore_RejectsNegativeTime(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(openTestDB(t))
	task := sampleTask("TASK-00001", baseTime)
	task.TotalTimeSpent = -1
	if err := store.Insert(ctx, task); err == nil {
		t.Fatal("expected CHECK constraint failure")
	}
}

func TestTaskStore_ListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(openTestDB(t))

	rows := []struct {
		id, assignee, project string
		status                models.TaskStatus
		offset                time.Duration
	}{
		{"TASK-00001", "op-1", "proj-1", models.StatusPending, 0},
		{"TASK-00002", "op-2", "proj-1", models.StatusInProgress, time.Minute},
		{"TASK-00003", "op-1", "proj-2", models.StatusCorrection, 2 * time.Minute},
		{"TASK-00004", "op-1", "proj-3", models.StatusInProgress, 3 * time.Minute},
	}
	for _, r := range rows {
		task := sampleTask(r.id, baseTime.Add(r.offset))
		task.AssignedTo = r.assignee
		task.ProjectID = r.project
		task.Status = r.status
		if err := store.Insert(ctx, task); err != nil {
			t.Fatalf("Insert %s: %v", r.id, err)
		}
	}

	tests := []struct {
		name   string
		filter models.TaskFilter
		want   []string
	}{
		{"all newest first", models.TaskFilter{}, []string{"TASK-00004", "TASK-00003", "TASK-00002", "TASK-00001"}},
		{"assignee", models.TaskFilter{AssignedTo: "op-1"}, []string{"TASK-00004", "TASK-00003", "TASK-00001"}},
		{"projects", models.TaskFilter{ProjectIDs: []string{"proj-1", "proj-2"}}, []string{"TASK-00003", "TASK-00002", "TASK-00001"}},
		{"empty project scope", models.TaskFilter{ProjectIDs: []string{}}, nil},
		{
			"assignee and statuses",
			models.TaskFilter{AssignedTo: "op-1", Statuses: []models.TaskStatus{models.StatusInProgress, models.StatusCorrection}},
			[]string{"TASK-00004", "TASK-00003"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d tasks, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("got[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestTaskStore_MutationsAppendChanges(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewTaskStore(db)
	feed := NewChangeFeed(db)

	if err := store.Insert(ctx, sampleTask("TASK-00001", baseTime)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	task, _ := store.Get(ctx, "TASK-00001")
	task.Status = models.StatusInProgress
	if _, err := store.ConditionalUpdate(ctx, task.Version, *task); err != nil {
		t.Fatalf("ConditionalUpdate: %v", err)
	}

	events, err := feed.Since(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != models.ChangeInsert || events[0].OldTask != nil || events[0].NewTask == nil {
		t.Errorf("insert event = %+v", events[0])
	}
	upd := events[1]
	if upd.Type != models.ChangeUpdate || upd.Table != models.TableTasks {
		t.Fatalf("update event = %+v", upd)
	}
	if upd.OldTask.Status != models.StatusPending || upd.NewTask.Status != models.StatusInProgress {
		t.Errorf("statuses = %s -> %s", upd.OldTask.Status, upd.NewTask.Status)
	}
	if upd.NewTask.Version != 2 {
		t.Errorf("new version = %d, want 2", upd.NewTask.Version)
	}
}

func TestTaskStore_FailedUpdateAppendsNothing(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewTaskStore(db)
	if err := store.Insert(ctx, sampleTask("TASK-00001", baseTime)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := store.ConditionalUpdate(ctx, 7, sampleTask("TASK-00001", baseTime)); err == nil {
		t.Fatal("expected conflict")
	}
	head, err := NewChangeFeed(db).Head(ctx)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != 1 {
		t.Errorf("Head = %d, want 1", head)
	}
}
