package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/valter-silva-au/tasktimer/internal/core"
	"github.com/valter-silva-au/tasktimer/pkg/models"
	"go.uber.org/zap"
)

var errNotLoggedIn = errors.New("not logged in; run 'tt login <user-id>' first")

// currentUser returns the user recorded by 'tt login' on this device.
func currentUser() (*models.User, error) {
	if Snapshots == nil {
		return nil, fmt.Errorf("session store not initialized")
	}
	var u models.User
	found, err := Snapshots.Get(core.CurrentUserKey, &u)
	if err != nil {
		return nil, fmt.Errorf("reading current user: %w", err)
	}
	if !found || u.ID == "" {
		return nil, errNotLoggedIn
	}
	return &u, nil
}

func currentActor() (core.Actor, error) {
	u, err := currentUser()
	if err != nil {
		return core.Actor{}, err
	}
	return core.Actor{UserID: u.ID, Role: u.Role}, nil
}

// drainNotifications runs the reconciler after a mutation so notifications
// appear without a background daemon. Failures are logged; the feed is
// redelivered on the next run.
func drainNotifications(ctx context.Context) {
	if Reconciler == nil {
		return
	}
	if _, err := Reconciler.Drain(ctx); err != nil {
		Logger.Warn("reconciling notifications", zap.Error(err))
	}
}

// userError carries the operator-facing message of a domain error while
// keeping the original for errors.Is.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

// presentError turns domain errors into short operator messages and logs
// the full chain at debug level.
func presentError(err error) error {
	if err == nil {
		return nil
	}
	Logger.Debug("command failed", zap.Error(err))
	if errors.Is(err, core.ErrInvalidTransition) || errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrPersistence) {
		return &userError{msg: core.UserMessage(err), err: err}
	}
	return err
}
