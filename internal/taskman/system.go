// Package taskman exposes the system aggregate: every project, the single
// logical clock, and the operation set callers use to mutate or query them.
package taskman

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kazz187/taskman/internal/event"
	"github.com/kazz187/taskman/internal/project"
	"github.com/kazz187/taskman/internal/role"
	"github.com/kazz187/taskman/internal/simtime"
	"github.com/kazz187/taskman/internal/task"
	"github.com/kazz187/taskman/pkg/cerr"
)

const eventSource = "taskman"

// System is the sole entry point for mutating and querying project and
// task state. A single coarse lock guards every operation; the domain
// itself is strictly single-threaded.
type System struct {
	mu       sync.Mutex
	clock    simtime.Time
	projects map[string]*project.Project
	order    []string
	bus      *event.Bus
}

// New constructs a system with the given initial clock value. The bus is
// optional; a nil bus disables event publication.
func New(initial simtime.Time, bus *event.Bus) *System {
	return &System{
		clock:    initial,
		projects: make(map[string]*project.Project),
		bus:      bus,
	}
}

// Clock returns the current logical time.
func (s *System) Clock() simtime.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// AdvanceTime moves the clock forward to newTime. The clock is monotonic:
// regression is rejected and nothing else is mutated. Tasks are never
// auto-finished by elapsed time.
func (s *System) AdvanceTime(newTime simtime.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if newTime.Before(s.clock) {
		return cerr.Errorf(cerr.NewTimeBeforeSystemTime, "new time %s is before system time %s", newTime, s.clock)
	}
	from := s.clock
	s.clock = newTime
	s.publish(&event.ClockAdvancedData{
		FromTime: from.String(),
		ToTime:   newTime.String(),
	})
	return nil
}

// CreateProject registers a new empty project due at dueTime, created at
// the current system time.
func (s *System) CreateProject(name, description string, dueTime simtime.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[name]; ok {
		return cerr.Errorf(cerr.ProjectNameAlreadyInUse, "project %q already exists", name)
	}
	if !dueTime.After(s.clock) {
		return cerr.Errorf(cerr.DueBeforeSystemTime, "due time %s is not after system time %s", dueTime, s.clock)
	}
	p, err := project.New(name, description, s.clock, dueTime)
	if err != nil {
		return err
	}
	s.projects[name] = p
	s.order = append(s.order, name)
	s.publish(&event.ProjectCreatedData{
		Project:     name,
		Description: description,
		DueTime:     dueTime.String(),
	})
	return nil
}

// ProjectNames lists projects in creation order.
func (s *System) ProjectNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// AddTaskToProject creates a task inside the named project, wired to the
// named predecessor and successor tasks.
func (s *System) AddTaskToProject(projectName, taskName, description string, estimated simtime.Time, deviation float64, required []role.Role, prevNames, nextNames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.resolve(projectName)
	if err != nil {
		return err
	}
	if _, err := p.AddTask(taskName, description, estimated, deviation, required, prevNames, nextNames); err != nil {
		return err
	}
	s.publish(&event.TaskCreatedData{
		Project:     projectName,
		Task:        taskName,
		Description: description,
	})
	return nil
}

// DeleteTask clears the task's edges and assignments and removes it from
// the project.
func (s *System) DeleteTask(projectName, taskName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.resolve(projectName)
	if err != nil {
		return err
	}
	if err := p.DeleteTask(taskName); err != nil {
		return err
	}
	s.publish(&event.TaskDeletedData{
		Project: projectName,
		Task:    taskName,
	})
	return nil
}

// ReplaceTaskInProject substitutes a fresh task for a failed one,
// transferring its dependency edges.
func (s *System) ReplaceTaskInProject(projectName, newName, description string, estimated simtime.Time, deviation float64, oldName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.resolve(projectName)
	if err != nil {
		return err
	}
	if _, err := p.Replace(newName, description, estimated, deviation, oldName); err != nil {
		return err
	}
	s.publish(&event.TaskReplacedData{
		Project:     projectName,
		Replaced:    oldName,
		Replacement: newName,
	})
	return nil
}

// AddDependency makes prevName a direct predecessor of nextName inside the
// named project.
func (s *System) AddDependency(projectName, prevName, nextName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.resolve(projectName)
	if err != nil {
		return err
	}
	return p.AddDependency(prevName, nextName)
}

// RemoveDependency severs the predecessor edge from prevName to nextName.
func (s *System) RemoveDependency(projectName, prevName, nextName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.resolve(projectName)
	if err != nil {
		return err
	}
	return p.RemoveDependency(prevName, nextName)
}

// StartTask binds user to one of the task's unfulfilled role slots at the
// given time.
func (s *System) StartTask(projectName, taskName string, at simtime.Time, user string, r role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.resolveTask(projectName, taskName)
	if err != nil {
		return err
	}
	before := t.Status()
	if err := t.Start(at, user, r); err != nil {
		return err
	}
	s.publish(&event.TaskAssignedData{
		Project: projectName,
		Task:    taskName,
		User:    user,
		Role:    r.String(),
	})
	s.publishStatusChange(projectName, taskName, before, t.Status())
	return nil
}

// UndoStartTask removes user's commitment from the task.
func (s *System) UndoStartTask(projectName, taskName, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.resolveTask(projectName, taskName)
	if err != nil {
		return err
	}
	before := t.Status()
	if err := t.UndoStart(user); err != nil {
		return err
	}
	s.publish(&event.TaskUnassignedData{
		Project: projectName,
		Task:    taskName,
		User:    user,
	})
	s.publishStatusChange(projectName, taskName, before, t.Status())
	return nil
}

// FinishTask ends the task as FINISHED at endTime, acting as user.
func (s *System) FinishTask(projectName, taskName string, endTime simtime.Time, user string) error {
	return s.endTask(projectName, taskName, task.StatusFinished, endTime, user)
}

// FailTask ends the task as FAILED at endTime, acting as user.
func (s *System) FailTask(projectName, taskName string, endTime simtime.Time, user string) error {
	return s.endTask(projectName, taskName, task.StatusFailed, endTime, user)
}

func (s *System) endTask(projectName, taskName string, endStatus task.Status, endTime simtime.Time, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.resolveTask(projectName, taskName)
	if err != nil {
		return err
	}
	before := t.Status()
	if err := t.End(endStatus, endTime, s.clock, user); err != nil {
		return err
	}
	s.publishStatusChange(projectName, taskName, before, t.Status())
	return nil
}

// UndoEndTask reverts a finished or failed task to EXECUTING.
func (s *System) UndoEndTask(projectName, taskName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.resolveTask(projectName, taskName)
	if err != nil {
		return err
	}
	before := t.Status()
	if err := t.UndoEnd(); err != nil {
		return err
	}
	s.publishStatusChange(projectName, taskName, before, t.Status())
	return nil
}

func (s *System) resolve(projectName string) (*project.Project, error) {
	p, ok := s.projects[projectName]
	if !ok {
		return nil, cerr.Errorf(cerr.ProjectNotFound, "project %q not found", projectName)
	}
	return p, nil
}

func (s *System) resolveTask(projectName, taskName string) (*task.Task, error) {
	p, err := s.resolve(projectName)
	if err != nil {
		return nil, err
	}
	return p.GetTask(taskName)
}

// publish emits a domain event for an already committed mutation. A bus
// failure does not roll the mutation back, so it is logged rather than
// returned to the caller.
func (s *System) publish(data any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(context.Background(), eventSource, data); err != nil {
		slog.Warn("failed to publish event", "error", err)
	}
}

func (s *System) publishStatusChange(projectName, taskName string, from, to task.Status) {
	if from == to {
		return
	}
	s.publish(&event.TaskStatusChangedData{
		Project:    projectName,
		Task:       taskName,
		FromStatus: from.String(),
		ToStatus:   to.String(),
	})
}
