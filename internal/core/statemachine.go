package core

import (
	"github.com/valter-silva-au/tasktimer/pkg/models"
)

// Event is an action an actor applies to a task.
type Event string

const (
	EventStart    Event = "start"
	EventPause    Event = "pause"
	EventComplete Event = "complete"
	EventSendToQC Event = "send_to_qc"
	EventFinalize Event = "finalize"
	EventReject   Event = "reject"
)

// Actor is the authenticated user performing an event.
type Actor struct {
	UserID string
	Role   models.Role
}

// Plan is the full effect of an accepted event. The lifecycle engine
// applies it atomically: the status write first, then the session change.
type Plan struct {
	Event          Event
	From           models.TaskStatus
	To             models.TaskStatus
	OpenSession    bool
	CloseSession   bool
	SetCompletedAt bool
}

type transitionKey struct {
	from  models.TaskStatus
	event Event
}

type transitionRule struct {
	to       models.TaskStatus
	assignee bool
	roles    []models.Role
	open     bool
	close    bool
	complete bool
}

var assigneeRoles = []models.Role{models.RoleDigitador}
var reviewRoles = []models.Role{models.RoleAdmin, models.RoleLeader}

// transitions is the single source of truth for legal status changes.
var transitions = map[transitionKey]transitionRule{
	{models.StatusPending, EventStart}:    {to: models.StatusInProgress, assignee: true, roles: assigneeRoles, open: true},
	{models.StatusPaused, EventStart}:     {to: models.StatusInProgress, assignee: true, roles: assigneeRoles, open: true},
	{models.StatusCorrection, EventStart}: {to: models.StatusCorrection, assignee: true, roles: assigneeRoles, open: true},

	{models.StatusInProgress, EventPause}: {to: models.StatusPaused, assignee: true, roles: assigneeRoles, close: true},
	{models.StatusCorrection, EventPause}: {to: models.StatusPaused, assignee: true, roles: assigneeRoles, close: true},

	{models.StatusInProgress, EventComplete}: {to: models.StatusCompleted, assignee: true, roles: assigneeRoles, close: true, complete: true},
	{models.StatusPaused, EventComplete}:     {to: models.StatusCompleted, assignee: true, roles: assigneeRoles, close: true, complete: true},
	{models.StatusCorrection, EventComplete}: {to: models.StatusCompleted, assignee: true, roles: assigneeRoles, close: true, complete: true},

	{models.StatusCompleted, EventSendToQC}: {to: models.StatusQC, roles: []models.Role{models.RoleAdmin}},
	{models.StatusQC, EventFinalize}:        {to: models.StatusFinalized, roles: reviewRoles},
	{models.StatusQC, EventReject}:          {to: models.StatusCorrection, roles: reviewRoles},
}

// Transition validates event against task for actor and returns the plan
// to apply. project is consulted only for leader scope checks and may be
// nil for other actors. Rejections are *TransitionError values.
func Transition(task *models.Task, event Event, actor Actor, project *models.Project) (Plan, error) {
	reject := func(reason string) (Plan, error) {
		return Plan{}, &TransitionError{TaskID: task.ID, From: task.Status, Event: event, Role: actor.Role, Reason: reason}
	}

	rule, ok := transitions[transitionKey{task.Status, event}]
	if !ok {
		return reject("not allowed from this status")
	}
	if !hasRole(rule.roles, actor.Role) {
		return reject("role not permitted")
	}
	if rule.assignee && task.AssignedTo != actor.UserID {
		return reject("only the assignee may do this")
	}
	if actor.Role == models.RoleLeader && (project == nil || project.LeaderID != actor.UserID) {
		return reject("leaders may only review tasks in projects they lead")
	}

	return Plan{
		Event:          event,
		From:           task.Status,
		To:             rule.to,
		OpenSession:    rule.open,
		CloseSession:   rule.close,
		SetCompletedAt: rule.complete,
	}, nil
}

// CanStart reports whether a task in status may be started or resumed.
func CanStart(status models.TaskStatus) bool {
	_, ok := transitions[transitionKey{status, EventStart}]
	return ok
}

// IsTimedStatus reports whether status is one an operator can be actively
// timing.
func IsTimedStatus(status models.TaskStatus) bool {
	return status == models.StatusInProgress || status == models.StatusCorrection
}

// AllowedEvents lists the events actor may apply to task right now, in a
// stable order. Used by presentation layers to offer actions.
func AllowedEvents(task *models.Task, actor Actor, project *models.Project) []Event {
	order := []Event{EventStart, EventPause, EventComplete, EventSendToQC, EventFinalize, EventReject}
	var out []Event
	for _, ev := range order {
		if _, err := Transition(task, ev, actor, project); err == nil {
			out = append(out, ev)
		}
	}
	return out
}

func hasRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
