// Package task implements the task lifecycle state machine and the
// dependency graph engine that keeps mutually linked tasks consistent.
package task

import (
	"github.com/kazz187/taskman/internal/role"
	"github.com/kazz187/taskman/internal/simtime"
	"github.com/kazz187/taskman/pkg/cerr"
)

// Task is a unit of project work. Its status is derived state: the recorded
// end action, the recorded start, predecessor completion, and role
// fulfillment fully determine it, in that order of precedence.
type Task struct {
	name        string
	description string
	projectName string

	estimated simtime.Time
	deviation float64

	required    []role.Role
	commitments map[string]role.Role

	status   Status
	endState Status // StatusFinished or StatusFailed once ended, "" otherwise

	prev []*Task
	next []*Task

	replacedBy *Task
	replaces   *Task

	start *simtime.Time
	end   *simtime.Time
}

// New constructs a detached task. The required role list must be non-empty
// and contain developer roles only.
func New(name, description, projectName string, estimated simtime.Time, deviation float64, required []role.Role) (*Task, error) {
	if len(required) == 0 {
		return nil, cerr.Errorf(cerr.IllegalTaskRoles, "task %q requires at least one role", name)
	}
	for _, r := range required {
		if !r.Developer() {
			return nil, cerr.Errorf(cerr.IllegalTaskRoles, "task %q requires non-developer role %s", name, r)
		}
	}
	if deviation < 0 {
		return nil, cerr.Errorf(cerr.InvalidArgument, "task %q has negative deviation %v", name, deviation)
	}
	t := &Task{
		name:        name,
		description: description,
		projectName: projectName,
		estimated:   estimated,
		deviation:   deviation,
		required:    append([]role.Role(nil), required...),
		commitments: make(map[string]role.Role),
	}
	t.status = t.derivedStatus()
	return t, nil
}

func (t *Task) Name() string        { return t.name }
func (t *Task) Description() string { return t.description }
func (t *Task) ProjectName() string { return t.projectName }
func (t *Task) Status() Status      { return t.status }

func (t *Task) EstimatedDuration() simtime.Time { return t.estimated }
func (t *Task) Deviation() float64              { return t.deviation }

// RequiredRoles returns the full role multiset, fulfilled slots included.
func (t *Task) RequiredRoles() []role.Role {
	return append([]role.Role(nil), t.required...)
}

// UnfulfilledRoles returns the slots not yet bound to a user, preserving
// multiset semantics: each commitment consumes exactly one matching slot.
func (t *Task) UnfulfilledRoles() []role.Role {
	open := append([]role.Role(nil), t.required...)
	for _, committed := range t.commitments {
		for i, r := range open {
			if r == committed {
				open = append(open[:i], open[i+1:]...)
				break
			}
		}
	}
	return open
}

// Assignees returns a copy of the user to role bindings.
func (t *Task) Assignees() map[string]role.Role {
	copied := make(map[string]role.Role, len(t.commitments))
	for u, r := range t.commitments {
		copied[u] = r
	}
	return copied
}

func (t *Task) StartTime() (simtime.Time, bool) {
	if t.start == nil {
		return simtime.Time{}, false
	}
	return *t.start, true
}

func (t *Task) EndTime() (simtime.Time, bool) {
	if t.end == nil {
		return simtime.Time{}, false
	}
	return *t.end, true
}

// ReplacedBy returns the task that replaced this one, if any.
func (t *Task) ReplacedBy() *Task { return t.replacedBy }

// Replaces returns the failed task this one replaced, if any.
func (t *Task) Replaces() *Task { return t.replaces }

// PrevTasks returns the direct predecessors.
func (t *Task) PrevTasks() []*Task {
	return append([]*Task(nil), t.prev...)
}

// NextTasks returns the direct successors.
func (t *Task) NextTasks() []*Task {
	return append([]*Task(nil), t.next...)
}

// Start binds user to an unfulfilled role slot at the given time. Filling
// the last slot moves the task to EXECUTING and records the time of that
// completing commitment as the start time.
func (t *Task) Start(at simtime.Time, user string, r role.Role) error {
	if t.status != StatusAvailable && t.status != StatusPending {
		return cerr.Errorf(cerr.IncorrectTaskStatus, "task %q cannot be started from %s", t.name, t.status)
	}
	if _, ok := t.commitments[user]; ok {
		return cerr.Errorf(cerr.UserAlreadyAssigned, "user %q already holds a slot on task %q", user, t.name)
	}
	open := t.UnfulfilledRoles()
	found := false
	for _, o := range open {
		if o == r {
			found = true
			break
		}
	}
	if !found {
		return cerr.Errorf(cerr.IncorrectRole, "role %s is not an unfulfilled requirement of task %q", r, t.name)
	}
	if available, ok := t.availableSince(); ok && at.Before(available) {
		return cerr.Errorf(cerr.StartTimeBeforeAvailable, "start time %s precedes availability of task %q at %s", at, t.name, available)
	}

	t.commitments[user] = r
	if len(t.UnfulfilledRoles()) == 0 {
		started := at
		t.start = &started
	}
	t.refresh()
	return nil
}

// UndoStart removes user's commitment. Leaving EXECUTING clears the
// recorded start time; removing the last commitment returns the task to
// AVAILABLE.
func (t *Task) UndoStart(user string) error {
	if t.status != StatusPending && t.status != StatusExecuting {
		return cerr.Errorf(cerr.IncorrectTaskStatus, "task %q cannot undo a start from %s", t.name, t.status)
	}
	if _, ok := t.commitments[user]; !ok {
		return cerr.Errorf(cerr.IncorrectUser, "user %q holds no slot on task %q", user, t.name)
	}
	delete(t.commitments, user)
	t.start = nil
	t.refresh()
	return nil
}

// End moves an EXECUTING task to FINISHED or FAILED and recomputes every
// direct successor.
func (t *Task) End(endStatus Status, endTime, systemTime simtime.Time, user string) error {
	if endStatus != StatusFinished && endStatus != StatusFailed {
		return cerr.Errorf(cerr.InvalidArgument, "end status must be FINISHED or FAILED, got %s", endStatus)
	}
	if t.replacedBy != nil {
		return cerr.Errorf(cerr.IncorrectTaskStatus, "task %q was replaced by %q and is retired", t.name, t.replacedBy.name)
	}
	if t.status != StatusExecuting {
		return cerr.Errorf(cerr.IncorrectTaskStatus, "task %q cannot end from %s", t.name, t.status)
	}
	if _, ok := t.commitments[user]; !ok {
		return cerr.Errorf(cerr.IncorrectUser, "user %q holds no slot on task %q", user, t.name)
	}
	if endTime.Before(*t.start) {
		return cerr.Errorf(cerr.EndTimeBeforeStartTime, "end time %s precedes start time %s of task %q", endTime, *t.start, t.name)
	}
	if endTime.After(systemTime) {
		return cerr.Errorf(cerr.EndTimeAfterSystemTime, "end time %s is after system time %s", endTime, systemTime)
	}

	ended := endTime
	t.end = &ended
	t.endState = endStatus
	t.refresh()
	return nil
}

// UndoEnd reverts a FINISHED or FAILED task to EXECUTING, preserving all
// commitments and the start time. Successors that were available only
// because of this task's completion become unavailable again.
func (t *Task) UndoEnd() error {
	if t.replacedBy != nil {
		return cerr.Errorf(cerr.IncorrectTaskStatus, "task %q was replaced by %q and is retired", t.name, t.replacedBy.name)
	}
	if !t.status.Terminal() {
		return cerr.Errorf(cerr.IncorrectTaskStatus, "task %q cannot undo an end from %s", t.name, t.status)
	}
	t.end = nil
	t.endState = ""
	t.refresh()
	return nil
}

// FinishedKind classifies a FINISHED task as early, on time, or delayed by
// comparing the actual duration with the estimate widened by the acceptable
// deviation.
func (t *Task) FinishedKind() (FinishedKind, error) {
	if t.status != StatusFinished {
		return "", cerr.Errorf(cerr.IncorrectTaskStatus, "task %q is %s, not FINISHED", t.name, t.status)
	}
	actual := float64(t.end.Minutes() - t.start.Minutes())
	estimated := float64(t.estimated.Minutes())
	switch {
	case actual < estimated*(1-t.deviation):
		return FinishedEarly, nil
	case actual > estimated*(1+t.deviation):
		return FinishedDelayed, nil
	default:
		return FinishedOnTime, nil
	}
}

// Replace retires this FAILED task and hands all of its dependency edges to
// newTask. The replaced task keeps no edges and cannot be replaced again.
func (t *Task) Replace(newTask *Task) error {
	if t.status != StatusFailed {
		return cerr.Errorf(cerr.IncorrectTaskStatus, "task %q is %s, only FAILED tasks can be replaced", t.name, t.status)
	}
	if t.replacedBy != nil {
		return cerr.Errorf(cerr.IncorrectTaskStatus, "task %q was already replaced by %q", t.name, t.replacedBy.name)
	}

	for _, p := range t.prev {
		p.replaceNext(t, newTask)
		newTask.prev = append(newTask.prev, p)
	}
	for _, n := range t.next {
		n.replacePrev(t, newTask)
		newTask.next = append(newTask.next, n)
	}
	t.prev = nil
	t.next = nil
	t.replacedBy = newTask
	newTask.replaces = t

	newTask.refresh()
	for _, n := range newTask.next {
		n.refresh()
	}
	return nil
}

// Clear detaches the task from all neighbors, unbinds every committed user,
// and severs any replacement link on either side. Neighbors recompute.
func (t *Task) Clear() {
	for _, p := range t.prev {
		p.removeNextRef(t)
	}
	for _, n := range t.next {
		n.removePrevRef(t)
		n.refresh()
	}
	t.prev = nil
	t.next = nil
	t.commitments = make(map[string]role.Role)
	t.start = nil
	t.end = nil
	t.endState = ""
	if t.replacedBy != nil {
		t.replacedBy.replaces = nil
		t.replacedBy = nil
	}
	if t.replaces != nil {
		t.replaces.replacedBy = nil
		t.replaces = nil
	}
	t.refresh()
}

// availableSince returns the moment the task became available: the latest
// predecessor end time. A task with no ended predecessors has no lower
// bound on its start time.
func (t *Task) availableSince() (simtime.Time, bool) {
	var latest simtime.Time
	found := false
	for _, p := range t.prev {
		if p.end != nil {
			latest = latest.Max(*p.end)
			found = true
		}
	}
	return latest, found
}

// derivedStatus computes the status from first principles.
func (t *Task) derivedStatus() Status {
	switch {
	case t.end != nil:
		return t.endState
	case t.start != nil:
		return StatusExecuting
	case !t.prevAllFinished():
		return StatusUnavailable
	case len(t.commitments) == 0:
		return StatusAvailable
	default:
		return StatusPending
	}
}

func (t *Task) prevAllFinished() bool {
	for _, p := range t.prev {
		if p.status != StatusFinished {
			return false
		}
	}
	return true
}

// refresh recomputes the cached status and propagates to direct successors
// when this task's completion classification flipped. Propagation is finite
// because the graph is acyclic and successors only observe FINISHED-ness.
func (t *Task) refresh() {
	old := t.status
	t.status = t.derivedStatus()
	if old == t.status {
		return
	}
	if old == StatusFinished || t.status == StatusFinished {
		for _, n := range t.next {
			n.refresh()
		}
	}
}

func (t *Task) replacePrev(old, replacement *Task) {
	for i, p := range t.prev {
		if p == old {
			t.prev[i] = replacement
			return
		}
	}
}

func (t *Task) replaceNext(old, replacement *Task) {
	for i, n := range t.next {
		if n == old {
			t.next[i] = replacement
			return
		}
	}
}

func (t *Task) removePrevRef(p *Task) {
	for i, cur := range t.prev {
		if cur == p {
			t.prev = append(t.prev[:i], t.prev[i+1:]...)
			return
		}
	}
}

func (t *Task) removeNextRef(n *Task) {
	for i, cur := range t.next {
		if cur == n {
			t.next = append(t.next[:i], t.next[i+1:]...)
			return
		}
	}
}
