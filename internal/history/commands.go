package history

import (
	"fmt"

	"github.com/kazz187/taskman/internal/role"
	"github.com/kazz187/taskman/internal/simtime"
	"github.com/kazz187/taskman/internal/task"
	"github.com/kazz187/taskman/internal/taskman"
)

// Command constructors. Each captures whatever pre-state its inverse needs
// through the system's query operations before the forward call runs, so
// the inverse never depends on state the forward call destroyed.

// StartTask commits user to a role slot; its inverse withdraws the
// commitment.
func StartTask(sys *taskman.System, projectName, taskName string, at simtime.Time, user string, r role.Role) *Command {
	return &Command{
		Name: fmt.Sprintf("start %s/%s as %s", projectName, taskName, user),
		Do: func() error {
			return sys.StartTask(projectName, taskName, at, user, r)
		},
		Undo: func() error {
			return sys.UndoStartTask(projectName, taskName, user)
		},
	}
}

// UndoStartTask withdraws a commitment; its inverse re-commits with the
// role captured before withdrawal. The recorded start time of an EXECUTING
// task is also captured, since withdrawal clears it.
func UndoStartTask(sys *taskman.System, projectName, taskName, user string) *Command {
	var committedRole role.Role
	var at simtime.Time
	return &Command{
		Name: fmt.Sprintf("undo start %s/%s for %s", projectName, taskName, user),
		Do: func() error {
			view, err := sys.GetTaskView(projectName, taskName)
			if err != nil {
				return err
			}
			committedRole = view.Assignees[user]
			if view.StartTime != nil {
				at = *view.StartTime
			} else {
				at = sys.Clock()
			}
			return sys.UndoStartTask(projectName, taskName, user)
		},
		Undo: func() error {
			return sys.StartTask(projectName, taskName, at, user, committedRole)
		},
	}
}

// FinishTask ends a task as FINISHED; its inverse reverts the end.
func FinishTask(sys *taskman.System, projectName, taskName string, endTime simtime.Time, user string) *Command {
	return &Command{
		Name: fmt.Sprintf("finish %s/%s", projectName, taskName),
		Do: func() error {
			return sys.FinishTask(projectName, taskName, endTime, user)
		},
		Undo: func() error {
			return sys.UndoEndTask(projectName, taskName)
		},
	}
}

// FailTask ends a task as FAILED; its inverse reverts the end.
func FailTask(sys *taskman.System, projectName, taskName string, endTime simtime.Time, user string) *Command {
	return &Command{
		Name: fmt.Sprintf("fail %s/%s", projectName, taskName),
		Do: func() error {
			return sys.FailTask(projectName, taskName, endTime, user)
		},
		Undo: func() error {
			return sys.UndoEndTask(projectName, taskName)
		},
	}
}

// UndoEndTask reverts an end; its inverse re-applies the end with the
// status, end time, and acting user captured beforehand.
func UndoEndTask(sys *taskman.System, projectName, taskName string) *Command {
	var endStatus task.Status
	var endTime simtime.Time
	var user string
	return &Command{
		Name: fmt.Sprintf("undo end %s/%s", projectName, taskName),
		Do: func() error {
			view, err := sys.GetTaskView(projectName, taskName)
			if err != nil {
				return err
			}
			endStatus = view.Status
			if view.EndTime != nil {
				endTime = *view.EndTime
			}
			for u := range view.Assignees {
				user = u
				break
			}
			return sys.UndoEndTask(projectName, taskName)
		},
		Undo: func() error {
			if endStatus == task.StatusFailed {
				return sys.FailTask(projectName, taskName, endTime, user)
			}
			return sys.FinishTask(projectName, taskName, endTime, user)
		},
	}
}

// AddDependency links two tasks; its inverse removes the edge.
func AddDependency(sys *taskman.System, projectName, prevName, nextName string) *Command {
	return &Command{
		Name: fmt.Sprintf("add dependency %s -> %s in %s", prevName, nextName, projectName),
		Do: func() error {
			return sys.AddDependency(projectName, prevName, nextName)
		},
		Undo: func() error {
			return sys.RemoveDependency(projectName, prevName, nextName)
		},
	}
}

// RemoveDependency severs an edge; its inverse restores it.
func RemoveDependency(sys *taskman.System, projectName, prevName, nextName string) *Command {
	return &Command{
		Name: fmt.Sprintf("remove dependency %s -> %s in %s", prevName, nextName, projectName),
		Do: func() error {
			return sys.RemoveDependency(projectName, prevName, nextName)
		},
		Undo: func() error {
			return sys.AddDependency(projectName, prevName, nextName)
		},
	}
}

// AddTask creates a task; its inverse deletes it.
func AddTask(sys *taskman.System, projectName, taskName, description string, estimated simtime.Time, deviation float64, required []role.Role, prevNames, nextNames []string) *Command {
	return &Command{
		Name: fmt.Sprintf("add task %s/%s", projectName, taskName),
		Do: func() error {
			return sys.AddTaskToProject(projectName, taskName, description, estimated, deviation, required, prevNames, nextNames)
		},
		Undo: func() error {
			return sys.DeleteTask(projectName, taskName)
		},
	}
}

// DeleteTask removes a task; its inverse recreates it with the structure
// captured beforehand. Commitments are not restored: deletion unassigns
// users, and the recreated task starts unclaimed.
func DeleteTask(sys *taskman.System, projectName, taskName string) *Command {
	var view taskman.TaskView
	return &Command{
		Name: fmt.Sprintf("delete task %s/%s", projectName, taskName),
		Do: func() error {
			captured, err := sys.GetTaskView(projectName, taskName)
			if err != nil {
				return err
			}
			view = captured
			return sys.DeleteTask(projectName, taskName)
		},
		Undo: func() error {
			return sys.AddTaskToProject(projectName, taskName, view.Description, view.EstimatedDuration, view.Deviation, view.RequiredRoles, view.PrevTasks, view.NextTasks)
		},
	}
}

// CreateProject registers a project. Projects persist for the system's
// lifetime, so the command is irreversible.
func CreateProject(sys *taskman.System, name, description string, dueTime simtime.Time) *Command {
	return &Command{
		Name: fmt.Sprintf("create project %s", name),
		Do: func() error {
			return sys.CreateProject(name, description, dueTime)
		},
	}
}

// ReplaceTask substitutes a fresh task for a failed one. Replacement is a
// one-time substitution, so the command is irreversible.
func ReplaceTask(sys *taskman.System, projectName, newName, description string, estimated simtime.Time, deviation float64, oldName string) *Command {
	return &Command{
		Name: fmt.Sprintf("replace task %s/%s with %s", projectName, oldName, newName),
		Do: func() error {
			return sys.ReplaceTaskInProject(projectName, newName, description, estimated, deviation, oldName)
		},
	}
}

// AdvanceTime moves the clock forward. The clock is monotonic, so the
// command is irreversible.
func AdvanceTime(sys *taskman.System, newTime simtime.Time) *Command {
	return &Command{
		Name: fmt.Sprintf("advance time to %s", newTime),
		Do: func() error {
			return sys.AdvanceTime(newTime)
		},
	}
}
