package storage

import (
	"context"
	"fmt"

	"github.com/valter-silva-au/tasktimer/pkg/models"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// UserStore persists users.
type UserStore struct {
	db *DB
}

// NewUserStore creates a UserStore on db.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Add stores a new user. Duplicate ids or usernames yield ErrDuplicate.
func (s *UserStore) Add(ctx context.Context, u models.User) error {
	if u.ID == "" || u.Username == "" {
		return fmt.Errorf("adding user: id and username are required")
	}
	if !u.Role.Valid() {
		return fmt.Errorf("adding user %s: unknown role %q", u.ID, u.Role)
	}
	return s.db.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `INSERT INTO users (id, username, operator_number, role)
			VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`, &sqlitex.ExecOptions{
			Args: []any{u.ID, u.Username, u.OperatorNumber, string(u.Role)},
		})
		if err != nil {
			return fmt.Errorf("adding user %s: %w", u.ID, err)
		}
		if conn.Changes() == 0 {
			return fmt.Errorf("adding user %s: %w", u.ID, ErrDuplicate)
		}
		return nil
	})
}

// Get returns the user with id.
func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	users, err := s.query(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &users[0], nil
}

// List returns every user ordered by username.
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	return s.query(ctx, ``)
}

// ListByRole returns the users with role, ordered by username.
func (s *UserStore) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	return s.query(ctx, `WHERE role = ?`, string(role))
}

func (s *UserStore) query(ctx context.Context, where string, args ...any) ([]models.User, error) {
	users := []models.User{}
	err := s.db.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT id, username, operator_number, role FROM users `+where+`
			ORDER BY username`, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				users = append(users, models.User{
					ID:             stmt.ColumnText(0),
					Username:       stmt.ColumnText(1),
					OperatorNumber: stmt.ColumnText(2),
					Role:           models.Role(stmt.ColumnText(3)),
				})
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	return users, nil
}

// ProjectStore persists projects.
type ProjectStore struct {
	db *DB
}

// NewProjectStore creates a ProjectStore on db.
func NewProjectStore(db *DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// Add stores a new project.
func (s *ProjectStore) Add(ctx context.Context, p models.Project) error {
	if p.ID == "" || p.Name == "" {
		return fmt.Errorf("adding project: id and name are required")
	}
	return s.db.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `INSERT INTO projects (id, name, leader_id)
			VALUES (?, ?, ?) ON CONFLICT DO NOTHING`, &sqlitex.ExecOptions{
			Args: []any{p.ID, p.Name, p.LeaderID},
		})
		if err != nil {
			return fmt.Errorf("adding project %s: %w", p.ID, err)
		}
		if conn.Changes() == 0 {
			return fmt.Errorf("adding project %s: %w", p.ID, ErrDuplicate)
		}
		return nil
	})
}

// Get returns the project with id.
func (s *ProjectStore) Get(ctx context.Context, id string) (*models.Project, error) {
	projects, err := s.query(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return &projects[0], nil
}

// List returns every project ordered by name.
func (s *ProjectStore) List(ctx context.Context) ([]models.Project, error) {
	return s.query(ctx, ``)
}

// ListLedBy returns the projects whose leader is userID.
func (s *ProjectStore) ListLedBy(ctx context.Context, userID string) ([]models.Project, error) {
	return s.query(ctx, `WHERE leader_id = ?`, userID)
}

func (s *ProjectStore) query(ctx context.Context, where string, args ...any) ([]models.Project, error) {
	projects := []models.Project{}
	err := s.db.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT id, name, leader_id FROM projects `+where+` ORDER BY name`,
			&sqlitex.ExecOptions{
				Args: args,
				ResultFunc: func(stmt *sqlite.Stmt) error {
					projects = append(projects, models.Project{
						ID:       stmt.ColumnText(0),
						Name:     stmt.ColumnText(1),
						LeaderID: stmt.ColumnText(2),
					})
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	return projects, nil
}
