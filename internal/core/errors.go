package core

import (
	"errors"
	"fmt"

	"github.com/valter-silva-au/tasktimer/pkg/models"
)

var (
	// ErrInvalidTransition is returned when the actor may not apply the
	// event to the task in its current status. Nothing is mutated.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrNotFound is returned when a referenced task, user or project does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrPersistence wraps failures of the storage collaborator, including
	// conditional updates rejected because the row changed underneath.
	ErrPersistence = errors.New("persistence failure")

	// ErrDuplicateNotification is returned by NotificationStore when a
	// notification with the same dedup key already exists. The reconciler
	// treats it as a silent skip.
	ErrDuplicateNotification = errors.New("duplicate notification")

	// ErrSessionActive is returned by TimerSessions.Start when a session for
	// a different task is still open.
	ErrSessionActive = errors.New("another timer session is active")
)

// TransitionError describes a rejected state machine event.
type TransitionError struct {
	TaskID string
	From   models.TaskStatus
	Event  Event
	Role   models.Role
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s task %s in status %s as %s", e.Event, e.TaskID, e.From, e.Role)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap lets errors.Is(err, ErrInvalidTransition) match.
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// persistenceError marks err as a storage failure unless it already
// carries one of the domain sentinels.
func persistenceError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPersistence) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrDuplicateNotification) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// UserMessage renders err as a short message suitable for an operator.
func UserMessage(err error) string {
	var te *TransitionError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &te):
		if te.Event == EventStart {
			return "This task cannot be started in its current status."
		}
		return fmt.Sprintf("Action %q is not allowed for task %s (%s).", te.Event, te.TaskID, te.From)
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found."
	case errors.Is(err, ErrPersistence):
		return "The change could not be saved. Please try again."
	default:
		return err.Error()
	}
}
