// Package project owns the tasks of a single project and aggregates their
// statuses.
package project

import (
	"github.com/kazz187/taskman/internal/role"
	"github.com/kazz187/taskman/internal/simtime"
	"github.com/kazz187/taskman/internal/task"
	"github.com/kazz187/taskman/pkg/cerr"
)

// Status is the derived project status, recomputed on demand from the
// active tasks.
type Status string

const (
	StatusOngoing  Status = "ONGOING"
	StatusFinished Status = "FINISHED"
)

// Project holds an insertion-ordered set of active tasks plus the retired
// tasks kept for audit after replacement.
type Project struct {
	name        string
	description string
	creation    simtime.Time
	due         simtime.Time

	tasks         map[string]*task.Task
	order         []string
	replaced      map[string]*task.Task
	replacedOrder []string
}

// New constructs an empty project. The due time must lie strictly after the
// creation time.
func New(name, description string, creation, due simtime.Time) (*Project, error) {
	if !due.After(creation) {
		return nil, cerr.Errorf(cerr.DueBeforeCreationTime, "project %q due time %s is not after creation time %s", name, due, creation)
	}
	return &Project{
		name:        name,
		description: description,
		creation:    creation,
		due:         due,
		tasks:       make(map[string]*task.Task),
		replaced:    make(map[string]*task.Task),
	}, nil
}

func (p *Project) Name() string               { return p.name }
func (p *Project) Description() string        { return p.description }
func (p *Project) CreationTime() simtime.Time { return p.creation }
func (p *Project) DueTime() simtime.Time      { return p.due }

// Status reports FINISHED once every active task is finished. Replaced
// tasks do not count; only their live replacements do. A project without
// tasks is still ongoing.
func (p *Project) Status() Status {
	if len(p.order) == 0 {
		return StatusOngoing
	}
	for _, name := range p.order {
		if p.tasks[name].Status() != task.StatusFinished {
			return StatusOngoing
		}
	}
	return StatusFinished
}

// TaskNames lists active tasks in insertion order.
func (p *Project) TaskNames() []string {
	return append([]string(nil), p.order...)
}

// ReplacedTaskNames lists retired tasks in replacement order.
func (p *Project) ReplacedTaskNames() []string {
	return append([]string(nil), p.replacedOrder...)
}

// GetTask resolves an active or retired task by name.
func (p *Project) GetTask(name string) (*task.Task, error) {
	if t, ok := p.tasks[name]; ok {
		return t, nil
	}
	if t, ok := p.replaced[name]; ok {
		return t, nil
	}
	return nil, cerr.Errorf(cerr.TaskNotFound, "task %q not found in project %q", name, p.name)
}

// AddTask creates a task wired to the named predecessors and successors.
// Name resolution and the downstream-side status checks run before any edge
// is attached; a cycle discovered while attaching rolls the new task back
// out entirely, so a failed call leaves the graph unchanged.
func (p *Project) AddTask(name, description string, estimated simtime.Time, deviation float64, required []role.Role, prevNames, nextNames []string) (*task.Task, error) {
	if _, ok := p.tasks[name]; ok {
		return nil, cerr.Errorf(cerr.TaskNameAlreadyInUse, "task %q already exists in project %q", name, p.name)
	}
	if _, ok := p.replaced[name]; ok {
		return nil, cerr.Errorf(cerr.TaskNameAlreadyInUse, "task %q already exists in project %q as a replaced task", name, p.name)
	}

	prevs := make([]*task.Task, 0, len(prevNames))
	for _, pn := range prevNames {
		prev, ok := p.tasks[pn]
		if !ok {
			return nil, cerr.Errorf(cerr.TaskNotFound, "previous task %q not found in project %q", pn, p.name)
		}
		prevs = append(prevs, prev)
	}
	nexts := make([]*task.Task, 0, len(nextNames))
	for _, nn := range nextNames {
		next, ok := p.tasks[nn]
		if !ok {
			return nil, cerr.Errorf(cerr.TaskNotFound, "next task %q not found in project %q", nn, p.name)
		}
		if s := next.Status(); s != task.StatusUnavailable && s != task.StatusAvailable {
			return nil, cerr.Errorf(cerr.IncorrectTaskStatus, "task %q is %s, dependencies are frozen", nn, s)
		}
		nexts = append(nexts, next)
	}

	t, err := task.New(name, description, p.name, estimated, deviation, required)
	if err != nil {
		return nil, err
	}
	for _, prev := range prevs {
		if err := t.AddPrev(prev); err != nil {
			t.Clear()
			return nil, err
		}
	}
	for _, next := range nexts {
		if err := t.AddNext(next); err != nil {
			t.Clear()
			return nil, err
		}
	}

	p.tasks[name] = t
	p.order = append(p.order, name)
	return t, nil
}

// DeleteTask clears the named task (active or retired) and removes it from
// the project.
func (p *Project) DeleteTask(name string) error {
	if t, ok := p.tasks[name]; ok {
		t.Clear()
		delete(p.tasks, name)
		p.order = removeName(p.order, name)
		return nil
	}
	if t, ok := p.replaced[name]; ok {
		t.Clear()
		delete(p.replaced, name)
		p.replacedOrder = removeName(p.replacedOrder, name)
		return nil
	}
	return cerr.Errorf(cerr.TaskNotFound, "task %q not found in project %q", name, p.name)
}

// Replace substitutes a fresh task for the named failed task. The new task
// inherits the old task's required roles along with its dependency edges;
// the old task retires into the audit collection.
func (p *Project) Replace(newName, description string, estimated simtime.Time, deviation float64, oldName string) (*task.Task, error) {
	if _, ok := p.tasks[newName]; ok {
		return nil, cerr.Errorf(cerr.TaskNameAlreadyInUse, "task %q already exists in project %q", newName, p.name)
	}
	if _, ok := p.replaced[newName]; ok {
		return nil, cerr.Errorf(cerr.TaskNameAlreadyInUse, "task %q already exists in project %q as a replaced task", newName, p.name)
	}
	old, err := p.GetTask(oldName)
	if err != nil {
		return nil, err
	}
	if old.ReplacedBy() != nil {
		return nil, cerr.Errorf(cerr.IncorrectTaskStatus, "task %q was already replaced by %q", oldName, old.ReplacedBy().Name())
	}
	if old.Status() != task.StatusFailed {
		return nil, cerr.Errorf(cerr.ReplacedTaskNotFailed, "task %q is %s, only FAILED tasks can be replaced", oldName, old.Status())
	}

	t, err := task.New(newName, description, p.name, estimated, deviation, old.RequiredRoles())
	if err != nil {
		return nil, err
	}
	if err := old.Replace(t); err != nil {
		return nil, err
	}

	delete(p.tasks, oldName)
	p.order = removeName(p.order, oldName)
	p.replaced[oldName] = old
	p.replacedOrder = append(p.replacedOrder, oldName)
	p.tasks[newName] = t
	p.order = append(p.order, newName)
	return t, nil
}

// AddDependency makes prevName a direct predecessor of nextName.
func (p *Project) AddDependency(prevName, nextName string) error {
	prev, next, err := p.resolvePair(prevName, nextName)
	if err != nil {
		return err
	}
	return next.AddPrev(prev)
}

// RemoveDependency severs the predecessor edge from prevName to nextName.
func (p *Project) RemoveDependency(prevName, nextName string) error {
	prev, next, err := p.resolvePair(prevName, nextName)
	if err != nil {
		return err
	}
	return next.RemovePrev(prev)
}

func (p *Project) resolvePair(prevName, nextName string) (*task.Task, *task.Task, error) {
	prev, ok := p.tasks[prevName]
	if !ok {
		return nil, nil, cerr.Errorf(cerr.TaskNotFound, "task %q not found in project %q", prevName, p.name)
	}
	next, ok := p.tasks[nextName]
	if !ok {
		return nil, nil, cerr.Errorf(cerr.TaskNotFound, "task %q not found in project %q", nextName, p.name)
	}
	return prev, next, nil
}

func removeName(names []string, name string) []string {
	for i, cur := range names {
		if cur == name {
			return append(names[:i], names[i+1:]...)
		}
	}
	return names
}
