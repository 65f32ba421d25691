package taskman

import (
	"github.com/kazz187/taskman/internal/project"
	"github.com/kazz187/taskman/internal/role"
	"github.com/kazz187/taskman/internal/simtime"
	"github.com/kazz187/taskman/internal/task"
)

// TaskView is an immutable snapshot of a task, detached from the live
// object graph. Neighbors and replacement links are reported by name.
type TaskView struct {
	Name              string               `json:"name"`
	Description       string               `json:"description"`
	Project           string               `json:"project"`
	Status            task.Status          `json:"status"`
	RequiredRoles     []role.Role          `json:"required_roles"`
	UnfulfilledRoles  []role.Role          `json:"unfulfilled_roles"`
	Assignees         map[string]role.Role `json:"assignees"`
	PrevTasks         []string             `json:"prev_tasks"`
	NextTasks         []string             `json:"next_tasks"`
	ReplacedBy        string               `json:"replaced_by,omitempty"`
	Replaces          string               `json:"replaces,omitempty"`
	EstimatedDuration simtime.Time         `json:"estimated_duration"`
	Deviation         float64              `json:"deviation"`
	StartTime         *simtime.Time        `json:"start_time,omitempty"`
	EndTime           *simtime.Time        `json:"end_time,omitempty"`
	FinishedKind      task.FinishedKind    `json:"finished_kind,omitempty"`
}

// ProjectView is an immutable snapshot of a project and its tasks.
type ProjectView struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	CreationTime  simtime.Time   `json:"creation_time"`
	DueTime       simtime.Time   `json:"due_time"`
	Status        project.Status `json:"status"`
	Tasks         []TaskView     `json:"tasks"`
	ReplacedTasks []TaskView     `json:"replaced_tasks,omitempty"`
}

// SystemView is an immutable snapshot of the whole system.
type SystemView struct {
	Clock    simtime.Time  `json:"clock"`
	Projects []ProjectView `json:"projects"`
}

// GetTaskView snapshots a single task.
func (s *System) GetTaskView(projectName, taskName string) (TaskView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.resolveTask(projectName, taskName)
	if err != nil {
		return TaskView{}, err
	}
	return newTaskView(t), nil
}

// GetProjectView snapshots a project with all of its tasks.
func (s *System) GetProjectView(projectName string) (ProjectView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.resolve(projectName)
	if err != nil {
		return ProjectView{}, err
	}
	return newProjectView(p), nil
}

// GetSystemView snapshots the clock and every project.
func (s *System) GetSystemView() SystemView {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := SystemView{
		Clock:    s.clock,
		Projects: make([]ProjectView, 0, len(s.order)),
	}
	for _, name := range s.order {
		view.Projects = append(view.Projects, newProjectView(s.projects[name]))
	}
	return view
}

func newProjectView(p *project.Project) ProjectView {
	view := ProjectView{
		Name:         p.Name(),
		Description:  p.Description(),
		CreationTime: p.CreationTime(),
		DueTime:      p.DueTime(),
		Status:       p.Status(),
	}
	for _, name := range p.TaskNames() {
		t, err := p.GetTask(name)
		if err != nil {
			continue
		}
		view.Tasks = append(view.Tasks, newTaskView(t))
	}
	for _, name := range p.ReplacedTaskNames() {
		t, err := p.GetTask(name)
		if err != nil {
			continue
		}
		view.ReplacedTasks = append(view.ReplacedTasks, newTaskView(t))
	}
	return view
}

func newTaskView(t *task.Task) TaskView {
	view := TaskView{
		Name:              t.Name(),
		Description:       t.Description(),
		Project:           t.ProjectName(),
		Status:            t.Status(),
		RequiredRoles:     t.RequiredRoles(),
		UnfulfilledRoles:  t.UnfulfilledRoles(),
		Assignees:         t.Assignees(),
		EstimatedDuration: t.EstimatedDuration(),
		Deviation:         t.Deviation(),
	}
	for _, p := range t.PrevTasks() {
		view.PrevTasks = append(view.PrevTasks, p.Name())
	}
	for _, n := range t.NextTasks() {
		view.NextTasks = append(view.NextTasks, n.Name())
	}
	if r := t.ReplacedBy(); r != nil {
		view.ReplacedBy = r.Name()
	}
	if r := t.Replaces(); r != nil {
		view.Replaces = r.Name()
	}
	if start, ok := t.StartTime(); ok {
		view.StartTime = &start
	}
	if end, ok := t.EndTime(); ok {
		view.EndTime = &end
	}
	if kind, err := t.FinishedKind(); err == nil {
		view.FinishedKind = kind
	}
	return view
}
