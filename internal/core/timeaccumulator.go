package core

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/tasktimer/pkg/models"
)

// ElapsedSeconds returns the active seconds of task as of now. Without a
// live session for the task it is the persisted counter; with one it is
// the session baseline plus whole seconds since the session anchor.
// The value is always recomputed from the anchor. A clock that moved
// backwards contributes zero seconds rather than a negative delta.
func ElapsedSeconds(task *models.Task, session *models.TimerSession, now time.Time) int64 {
	if task == nil {
		return 0
	}
	if session == nil || session.TaskID != task.ID {
		return task.TotalTimeSpent
	}
	delta := now.Sub(session.StartTime)
	if delta < 0 {
		delta = 0
	}
	return session.TotalDurationAtStart + int64(delta/time.Second)
}

// FormatDuration renders seconds as zero-padded HH:MM:SS. Hours are not
// wrapped at 24. Negative input renders as 00:00:00.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Accumulator binds ElapsedSeconds to a Clock.
type Accumulator struct {
	clock Clock
}

// NewAccumulator returns an Accumulator reading time from clock.
func NewAccumulator(clock Clock) *Accumulator {
	if clock == nil {
		clock = RealClock()
	}
	return &Accumulator{clock: clock}
}

// Elapsed returns ElapsedSeconds at the clock's current time.
func (a *Accumulator) Elapsed(task *models.Task, session *models.TimerSession) int64 {
	return ElapsedSeconds(task, session, a.clock.Now())
}
