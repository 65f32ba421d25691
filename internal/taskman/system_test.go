package taskman

import (
	"testing"

	"github.com/kazz187/taskman/internal/event"
	"github.com/kazz187/taskman/internal/role"
	"github.com/kazz187/taskman/internal/simtime"
	"github.com/kazz187/taskman/internal/task"
	"github.com/kazz187/taskman/pkg/cerr"
)

func newSystem(t *testing.T) *System {
	t.Helper()
	return New(simtime.MustFromMinutes(0), nil)
}

func setupProject(t *testing.T, s *System) {
	t.Helper()
	if err := s.CreateProject("release", "", simtime.MustFromMinutes(600)); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
}

func addTask(t *testing.T, s *System, name string, roles []role.Role, prevNames ...string) {
	t.Helper()
	err := s.AddTaskToProject("release", name, "", simtime.MustFromMinutes(60), 0.1, roles, prevNames, nil)
	if err != nil {
		t.Fatalf("Failed to add task %s: %v", name, err)
	}
}

func status(t *testing.T, s *System, name string) task.Status {
	t.Helper()
	view, err := s.GetTaskView("release", name)
	if err != nil {
		t.Fatalf("Failed to get view of %s: %v", name, err)
	}
	return view.Status
}

func TestAdvanceTime(t *testing.T) {
	s := newSystem(t)
	if err := s.AdvanceTime(simtime.MustFromMinutes(100)); err != nil {
		t.Fatalf("Failed to advance time: %v", err)
	}
	if s.Clock().Minutes() != 100 {
		t.Errorf("Expected clock at 1:40, got %s", s.Clock())
	}

	// The clock is monotonic.
	if err := s.AdvanceTime(simtime.MustFromMinutes(50)); cerr.CodeOf(err) != cerr.NewTimeBeforeSystemTime {
		t.Errorf("Expected NewTimeBeforeSystemTime, got %v", err)
	}
	if s.Clock().Minutes() != 100 {
		t.Errorf("Expected clock unchanged after rejected regression, got %s", s.Clock())
	}

	// Re-advancing to the same time is allowed and is a no-op.
	if err := s.AdvanceTime(simtime.MustFromMinutes(100)); err != nil {
		t.Errorf("Failed to re-advance to the current time: %v", err)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	s := newSystem(t)
	setupProject(t, s)

	if err := s.CreateProject("release", "", simtime.MustFromMinutes(600)); cerr.CodeOf(err) != cerr.ProjectNameAlreadyInUse {
		t.Errorf("Expected ProjectNameAlreadyInUse, got %v", err)
	}
	if err := s.AdvanceTime(simtime.MustFromMinutes(100)); err != nil {
		t.Fatalf("Failed to advance time: %v", err)
	}
	if err := s.CreateProject("late", "", simtime.MustFromMinutes(100)); cerr.CodeOf(err) != cerr.DueBeforeSystemTime {
		t.Errorf("Expected DueBeforeSystemTime, got %v", err)
	}
	if got := s.ProjectNames(); len(got) != 1 || got[0] != "release" {
		t.Errorf("Expected projects [release], got %v", got)
	}
}

// Two tasks needing the same role, one qualified user: the user must carry
// the first task to completion before the second becomes startable for them.
func TestSingleSysadminAcrossTwoTasks(t *testing.T) {
	s := newSystem(t)
	setupProject(t, s)
	addTask(t, s, "t1", []role.Role{role.SysAdmin})
	addTask(t, s, "t2", []role.Role{role.SysAdmin}, "t1")

	if status(t, s, "t1") != task.StatusAvailable {
		t.Fatalf("Expected t1 AVAILABLE, got %s", status(t, s, "t1"))
	}
	if status(t, s, "t2") != task.StatusUnavailable {
		t.Fatalf("Expected t2 UNAVAILABLE, got %s", status(t, s, "t2"))
	}

	if err := s.StartTask("release", "t1", simtime.MustFromMinutes(0), "sam", role.SysAdmin); err != nil {
		t.Fatalf("Failed to start t1: %v", err)
	}
	if status(t, s, "t1") != task.StatusExecuting {
		t.Errorf("Expected t1 EXECUTING, got %s", status(t, s, "t1"))
	}

	// t2 stays locked while t1 runs.
	if err := s.StartTask("release", "t2", simtime.MustFromMinutes(10), "sam", role.SysAdmin); cerr.CodeOf(err) != cerr.IncorrectTaskStatus {
		t.Errorf("Expected IncorrectTaskStatus for t2, got %v", err)
	}

	if err := s.AdvanceTime(simtime.MustFromMinutes(60)); err != nil {
		t.Fatalf("Failed to advance time: %v", err)
	}
	if err := s.FinishTask("release", "t1", simtime.MustFromMinutes(60), "sam"); err != nil {
		t.Fatalf("Failed to finish t1: %v", err)
	}
	if status(t, s, "t2") != task.StatusAvailable {
		t.Errorf("Expected t2 AVAILABLE after t1 finished, got %s", status(t, s, "t2"))
	}

	if err := s.StartTask("release", "t2", simtime.MustFromMinutes(60), "sam", role.SysAdmin); err != nil {
		t.Fatalf("Failed to start t2: %v", err)
	}

	if err := s.AdvanceTime(simtime.MustFromMinutes(120)); err != nil {
		t.Fatalf("Failed to advance time: %v", err)
	}
	if err := s.FinishTask("release", "t2", simtime.MustFromMinutes(120), "sam"); err != nil {
		t.Fatalf("Failed to finish t2: %v", err)
	}

	view, err := s.GetProjectView("release")
	if err != nil {
		t.Fatalf("Failed to get project view: %v", err)
	}
	if string(view.Status) != "FINISHED" {
		t.Errorf("Expected project FINISHED, got %s", view.Status)
	}
}

func TestEndUsesSystemTimeAsUpperBound(t *testing.T) {
	s := newSystem(t)
	setupProject(t, s)
	addTask(t, s, "t1", []role.Role{role.JavaProgrammer})

	if err := s.StartTask("release", "t1", simtime.MustFromMinutes(0), "jane", role.JavaProgrammer); err != nil {
		t.Fatalf("Failed to start t1: %v", err)
	}

	// The clock is still at 0; an end in the future is rejected.
	if err := s.FinishTask("release", "t1", simtime.MustFromMinutes(30), "jane"); cerr.CodeOf(err) != cerr.EndTimeAfterSystemTime {
		t.Errorf("Expected EndTimeAfterSystemTime, got %v", err)
	}

	if err := s.AdvanceTime(simtime.MustFromMinutes(30)); err != nil {
		t.Fatalf("Failed to advance time: %v", err)
	}
	if err := s.FinishTask("release", "t1", simtime.MustFromMinutes(30), "jane"); err != nil {
		t.Errorf("Failed to finish t1 at system time: %v", err)
	}
}

func TestReplaceFailedTask(t *testing.T) {
	s := newSystem(t)
	setupProject(t, s)
	addTask(t, s, "t1", []role.Role{role.PythonProgrammer})
	addTask(t, s, "t2", []role.Role{role.PythonProgrammer}, "t1")

	if err := s.StartTask("release", "t1", simtime.MustFromMinutes(0), "pat", role.PythonProgrammer); err != nil {
		t.Fatalf("Failed to start t1: %v", err)
	}
	if err := s.AdvanceTime(simtime.MustFromMinutes(45)); err != nil {
		t.Fatalf("Failed to advance time: %v", err)
	}
	if err := s.FailTask("release", "t1", simtime.MustFromMinutes(45), "pat"); err != nil {
		t.Fatalf("Failed to fail t1: %v", err)
	}

	if err := s.ReplaceTaskInProject("release", "t1b", "", simtime.MustFromMinutes(60), 0.1, "t1"); err != nil {
		t.Fatalf("Failed to replace t1: %v", err)
	}

	view, err := s.GetTaskView("release", "t1b")
	if err != nil {
		t.Fatalf("Failed to get replacement view: %v", err)
	}
	if view.Status != task.StatusAvailable {
		t.Errorf("Expected replacement AVAILABLE, got %s", view.Status)
	}
	if view.Replaces != "t1" {
		t.Errorf("Expected replacement to record t1, got %q", view.Replaces)
	}
	if len(view.RequiredRoles) != 1 || view.RequiredRoles[0] != role.PythonProgrammer {
		t.Errorf("Expected inherited roles, got %v", view.RequiredRoles)
	}
	if len(view.NextTasks) != 1 || view.NextTasks[0] != "t2" {
		t.Errorf("Expected replacement before t2, got %v", view.NextTasks)
	}

	// The retired task resolves from the audit collection.
	old, err := s.GetTaskView("release", "t1")
	if err != nil {
		t.Fatalf("Failed to get retired view: %v", err)
	}
	if old.ReplacedBy != "t1b" {
		t.Errorf("Expected retired task to point at t1b, got %q", old.ReplacedBy)
	}
}

func TestRetiredTaskRejectsLifecycleOps(t *testing.T) {
	s := newSystem(t)
	setupProject(t, s)
	addTask(t, s, "t1", []role.Role{role.PythonProgrammer})

	if err := s.StartTask("release", "t1", simtime.MustFromMinutes(0), "pat", role.PythonProgrammer); err != nil {
		t.Fatalf("Failed to start t1: %v", err)
	}
	if err := s.AdvanceTime(simtime.MustFromMinutes(45)); err != nil {
		t.Fatalf("Failed to advance time: %v", err)
	}
	if err := s.FailTask("release", "t1", simtime.MustFromMinutes(45), "pat"); err != nil {
		t.Fatalf("Failed to fail t1: %v", err)
	}
	if err := s.ReplaceTaskInProject("release", "t1b", "", simtime.MustFromMinutes(60), 0.1, "t1"); err != nil {
		t.Fatalf("Failed to replace t1: %v", err)
	}

	// The retired task is an audit record; no lifecycle operation may
	// revive it.
	if err := s.UndoEndTask("release", "t1"); cerr.CodeOf(err) != cerr.IncorrectTaskStatus {
		t.Errorf("Expected IncorrectTaskStatus undoing the end of a retired task, got %v", err)
	}
	if err := s.FinishTask("release", "t1", simtime.MustFromMinutes(45), "pat"); cerr.CodeOf(err) != cerr.IncorrectTaskStatus {
		t.Errorf("Expected IncorrectTaskStatus finishing a retired task, got %v", err)
	}
	old, err := s.GetTaskView("release", "t1")
	if err != nil {
		t.Fatalf("Failed to get retired view: %v", err)
	}
	if old.Status != task.StatusFailed {
		t.Errorf("Expected retired task still FAILED, got %s", old.Status)
	}
	if old.ReplacedBy != "t1b" {
		t.Errorf("Expected retired task still replaced by t1b, got %q", old.ReplacedBy)
	}

	// Replacing the retired task again is a status violation, not a
	// missing task.
	if err := s.ReplaceTaskInProject("release", "t1c", "", simtime.MustFromMinutes(60), 0.1, "t1"); cerr.CodeOf(err) != cerr.IncorrectTaskStatus {
		t.Errorf("Expected IncorrectTaskStatus replacing a retired task, got %v", err)
	}
}

func TestMutationSurvivesPublishFailure(t *testing.T) {
	bus, err := event.NewBus()
	if err != nil {
		t.Fatalf("Failed to create bus: %v", err)
	}
	if err := bus.Stop(); err != nil {
		t.Fatalf("Failed to stop bus: %v", err)
	}

	s := New(simtime.MustFromMinutes(0), bus)
	if err := s.AdvanceTime(simtime.MustFromMinutes(30)); err != nil {
		t.Fatalf("Failed to advance time with a stopped bus: %v", err)
	}
	if s.Clock().Minutes() != 30 {
		t.Errorf("Expected clock at 0:30 despite the publish failure, got %s", s.Clock())
	}
}

func TestUndoRoundTrip(t *testing.T) {
	s := newSystem(t)
	setupProject(t, s)
	addTask(t, s, "t1", []role.Role{role.SysAdmin})
	addTask(t, s, "t2", []role.Role{role.SysAdmin}, "t1")

	if err := s.StartTask("release", "t1", simtime.MustFromMinutes(0), "sam", role.SysAdmin); err != nil {
		t.Fatalf("Failed to start t1: %v", err)
	}
	if err := s.AdvanceTime(simtime.MustFromMinutes(60)); err != nil {
		t.Fatalf("Failed to advance time: %v", err)
	}
	if err := s.FinishTask("release", "t1", simtime.MustFromMinutes(60), "sam"); err != nil {
		t.Fatalf("Failed to finish t1: %v", err)
	}
	if status(t, s, "t2") != task.StatusAvailable {
		t.Fatalf("Expected t2 AVAILABLE, got %s", status(t, s, "t2"))
	}

	if err := s.UndoEndTask("release", "t1"); err != nil {
		t.Fatalf("Failed to undo end: %v", err)
	}
	if status(t, s, "t1") != task.StatusExecuting {
		t.Errorf("Expected t1 EXECUTING, got %s", status(t, s, "t1"))
	}
	if status(t, s, "t2") != task.StatusUnavailable {
		t.Errorf("Expected t2 UNAVAILABLE again, got %s", status(t, s, "t2"))
	}

	if err := s.UndoStartTask("release", "t1", "sam"); err != nil {
		t.Fatalf("Failed to undo start: %v", err)
	}
	if status(t, s, "t1") != task.StatusAvailable {
		t.Errorf("Expected t1 AVAILABLE, got %s", status(t, s, "t1"))
	}
}

func TestUnknownNames(t *testing.T) {
	s := newSystem(t)
	setupProject(t, s)

	if err := s.AddTaskToProject("missing", "t", "", simtime.MustFromMinutes(60), 0, []role.Role{role.SysAdmin}, nil, nil); cerr.CodeOf(err) != cerr.ProjectNotFound {
		t.Errorf("Expected ProjectNotFound, got %v", err)
	}
	if _, err := s.GetTaskView("release", "missing"); cerr.CodeOf(err) != cerr.TaskNotFound {
		t.Errorf("Expected TaskNotFound, got %v", err)
	}
	if err := s.StartTask("release", "missing", simtime.MustFromMinutes(0), "sam", role.SysAdmin); cerr.CodeOf(err) != cerr.TaskNotFound {
		t.Errorf("Expected TaskNotFound, got %v", err)
	}
}

func TestSystemView(t *testing.T) {
	s := newSystem(t)
	setupProject(t, s)
	addTask(t, s, "t1", []role.Role{role.SysAdmin})

	view := s.GetSystemView()
	if view.Clock.Minutes() != 0 {
		t.Errorf("Expected clock 0:00, got %s", view.Clock)
	}
	if len(view.Projects) != 1 || view.Projects[0].Name != "release" {
		t.Fatalf("Expected one project named release, got %+v", view.Projects)
	}
	if len(view.Projects[0].Tasks) != 1 || view.Projects[0].Tasks[0].Name != "t1" {
		t.Errorf("Expected one task named t1, got %+v", view.Projects[0].Tasks)
	}
}
