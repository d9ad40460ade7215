package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valter-silva-au/tasktimer/pkg/models"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const taskColumns = `id, title, description, status, total_time_spent, assigned_to,
	project_id, created_by, created_at, updated_at, completed_at, version`

// TaskStore persists tasks. Every insert and update appends a change
// event to the outbox in the same transaction.
type TaskStore struct {
	db  *DB
	now func() time.Time
}

// NewTaskStore creates a TaskStore on db.
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db, now: time.Now}
}

// Insert stores a new task. Version defaults to 1.
func (s *TaskStore) Insert(ctx context.Context, task models.Task) error {
	if task.ID == "" {
		return fmt.Errorf("inserting task: id is required")
	}
	if task.Version == 0 {
		task.Version = 1
	}
	return s.db.withTx(ctx, func(conn *sqlite.Conn) error {
		var exists bool
		if err := sqlitex.Execute(conn, `SELECT 1 FROM tasks WHERE id = ?`, &sqlitex.ExecOptions{
			Args: []any{task.ID},
			ResultFunc: func(*sqlite.Stmt) error {
				exists = true
				return nil
			},
		}); err != nil {
			return fmt.Errorf("inserting task %s: %w", task.ID, err)
		}
		if exists {
			return fmt.Errorf("inserting task %s: %w", task.ID, ErrDuplicate)
		}

		err := sqlitex.Execute(conn, `INSERT INTO tasks (`+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
			Args: taskArgs(&task),
		})
		if err != nil {
			return fmt.Errorf("inserting task %s: %w", task.ID, err)
		}
		return appendChange(conn, models.TableTasks, models.ChangeInsert,
			changePayload{NewTask: &task}, s.now())
	})
}

// Get returns the task with id, or an error wrapping ErrNotFound.
func (s *TaskStore) Get(ctx context.Context, id string) (*models.Task, error) {
	var task *models.Task
	err := s.db.withConn(ctx, func(conn *sqlite.Conn) error {
		var err error
		task, err = getTask(conn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ConditionalUpdate writes task over the stored row only if that row is
// still at expectedVersion. The stored version becomes expectedVersion+1
// and the stored row is returned. A stale version yields ErrConflict.
func (s *TaskStore) ConditionalUpdate(ctx context.Context, expectedVersion int64, task models.Task) (*models.Task, error) {
	var saved *models.Task
	err := s.db.withTx(ctx, func(conn *sqlite.Conn) error {
		old, err := getTask(conn, task.ID)
		if err != nil {
			return err
		}
		if old.Version != expectedVersion {
			return fmt.Errorf("updating task %s: %w: stored version %d, expected %d",
				task.ID, ErrConflict, old.Version, expectedVersion)
		}

		task.Version = expectedVersion + 1
		task.CreatedAt = old.CreatedAt
		var completedAt any
		if task.CompletedAt != nil {
			completedAt = toNanos(*task.CompletedAt)
		}
		err = sqlitex.Execute(conn, `UPDATE tasks SET
				title = ?, description = ?, status = ?, total_time_spent = ?,
				assigned_to = ?, project_id = ?, updated_at = ?, completed_at = ?,
				version = ?
			WHERE id = ? AND version = ?`, &sqlitex.ExecOptions{
			Args: []any{
				task.Title, task.Description, string(task.Status), task.TotalTimeSpent,
				task.AssignedTo, task.ProjectID, toNanos(task.UpdatedAt), completedAt,
				task.Version,
				task.ID, expectedVersion,
			},
		})
		if err != nil {
			return fmt.Errorf("updating task %s: %w", task.ID, err)
		}
		if conn.Changes() == 0 {
			return fmt.Errorf("updating task %s: %w", task.ID, ErrConflict)
		}

		saved, err = getTask(conn, task.ID)
		if err != nil {
			return err
		}
		return appendChange(conn, models.TableTasks, models.ChangeUpdate,
			changePayload{OldTask: old, NewTask: saved}, s.now())
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// List returns the tasks matching filter, newest first. All criteria
// use AND logic.
func (s *TaskStore) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	if filter.ProjectIDs != nil && len(filter.ProjectIDs) == 0 {
		return []models.Task{}, nil
	}

	var (
		where []string
		args  []any
	)
	if filter.AssignedTo != "" {
		where = append(where, "assigned_to = ?")
		args = append(args, filter.AssignedTo)
	}
	if len(filter.ProjectIDs) > 0 {
		where = append(where, "project_id IN ("+placeholders(len(filter.ProjectIDs))+")")
		for _, id := range filter.ProjectIDs {
			args = append(args, id)
		}
	}
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, st := range filter.Statuses {
			args = append(args, string(st))
		}
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	tasks := []models.Task{}
	err := s.db.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				tasks = append(tasks, scanTask(stmt))
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

func getTask(conn *sqlite.Conn, id string) (*models.Task, error) {
	var task *models.Task
	err := sqlitex.Execute(conn, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			t := scanTask(stmt)
			task = &t
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reading task %s: %w", id, err)
	}
	if task == nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return task, nil
}

func taskArgs(t *models.Task) []any {
	var completedAt any
	if t.CompletedAt != nil {
		completedAt = toNanos(*t.CompletedAt)
	}
	return []any{
		t.ID, t.Title, t.Description, string(t.Status), t.TotalTimeSpent, t.AssignedTo,
		t.ProjectID, t.CreatedBy, toNanos(t.CreatedAt), toNanos(t.UpdatedAt), completedAt, t.Version,
	}
}

func scanTask(stmt *sqlite.Stmt) models.Task {
	t := models.Task{
		ID:             stmt.ColumnText(0),
		Title:          stmt.ColumnText(1),
		Description:    stmt.ColumnText(2),
		Status:         models.TaskStatus(stmt.ColumnText(3)),
		TotalTimeSpent: stmt.ColumnInt64(4),
		AssignedTo:     stmt.ColumnText(5),
		ProjectID:      stmt.ColumnText(6),
		CreatedBy:      stmt.ColumnText(7),
		CreatedAt:      fromNanos(stmt.ColumnInt64(8)),
		UpdatedAt:      fromNanos(stmt.ColumnInt64(9)),
		Version:        stmt.ColumnInt64(11),
	}
	if !stmt.ColumnIsNull(10) {
		completedAt := fromNanos(stmt.ColumnInt64(10))
		t.CompletedAt = &completedAt
	}
	return t
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
