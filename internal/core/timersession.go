package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/valter-silva-au/tasktimer/pkg/models"
)

// Snapshot keys used on the durable local store.
const (
	ActiveTimerKey = "activeTimer"
	CurrentUserKey = "currentUser"
)

// TimerSessions owns this client's single active timer session and keeps
// its durable snapshot in sync so it survives a restart. Exclusivity is
// per client process only; two clients of one operator can each hold a
// session.
type TimerSessions struct {
	mu       sync.Mutex
	current  *models.TimerSession
	snapshot SnapshotStore
}

// NewTimerSessions returns a TimerSessions persisting to snapshot.
func NewTimerSessions(snapshot SnapshotStore) *TimerSessions {
	return &TimerSessions{snapshot: snapshot}
}

// Start opens a session for taskID anchored at now with the given
// baseline. It refuses to replace a session for a different task; the
// caller must Stop (and flush) that one first. The snapshot is written
// before the in-memory state changes, so a failed write leaves nothing
// behind.
func (s *TimerSessions) Start(taskID, operatorID string, baseline int64, now time.Time) (models.TimerSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.TaskID != taskID {
		return models.TimerSession{}, fmt.Errorf("starting timer for %s: %w (task %s)", taskID, ErrSessionActive, s.current.TaskID)
	}

	sess := models.TimerSession{
		TaskID:               taskID,
		OperatorID:           operatorID,
		StartTime:            now,
		TotalDurationAtStart: baseline,
	}
	if s.snapshot != nil {
		if err := s.snapshot.Put(ActiveTimerKey, sess); err != nil {
			return models.TimerSession{}, fmt.Errorf("starting timer for %s: saving snapshot: %w", taskID, err)
		}
	}
	s.current = &sess
	return sess, nil
}

// Stop closes the current session and returns it together with the
// elapsed seconds it accounts for as of now. ok is false when no session
// was open. The in-memory session is cleared even when deleting the
// snapshot fails; that error is returned for the caller to report.
func (s *TimerSessions) Stop(now time.Time) (sess models.TimerSession, flushed int64, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return models.TimerSession{}, 0, false, nil
	}
	sess = *s.current
	flushed = ElapsedSeconds(&models.Task{ID: sess.TaskID}, &sess, now)
	s.current = nil

	if s.snapshot != nil {
		if delErr := s.snapshot.Delete(ActiveTimerKey); delErr != nil {
			err = fmt.Errorf("stopping timer for %s: deleting snapshot: %w", sess.TaskID, delErr)
		}
	}
	return sess, flushed, true, err
}

// Restore loads the session surviving a restart from the snapshot. The
// snapshot is trusted verbatim. It returns nil when none was saved.
func (s *TimerSessions) Restore() (*models.TimerSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return nil, nil
	}
	var sess models.TimerSession
	found, err := s.snapshot.Get(ActiveTimerKey, &sess)
	if err != nil {
		return nil, fmt.Errorf("restoring timer: %w", err)
	}
	if !found || sess.TaskID == "" {
		s.current = nil
		return nil, nil
	}
	s.current = &sess
	out := sess
	return &out, nil
}

// Current returns a copy of the open session, or nil.
func (s *TimerSessions) Current() *models.TimerSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	out := *s.current
	return &out
}

// Peek returns the open session only if it is for taskID.
func (s *TimerSessions) Peek(taskID string) *models.TimerSession {
	cur := s.Current()
	if cur == nil || cur.TaskID != taskID {
		return nil
	}
	return cur
}
