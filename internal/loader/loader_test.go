package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskman/internal/session"
	"github.com/kazz187/taskman/internal/simtime"
	"github.com/kazz187/taskman/internal/task"
	"github.com/kazz187/taskman/internal/taskman"
	"github.com/kazz187/taskman/pkg/cerr"
)

const scenarioDoc = `{
  "initial_time": "9:00",
  "users": [
    {"name": "sam", "roles": ["SYSADMIN"]},
    {"name": "jane", "roles": ["JAVA_PROGRAMMER", "PYTHON_PROGRAMMER"]}
  ],
  "projects": [
    {
      "name": "release",
      "description": "Q3 release",
      "due_time": "17:00",
      "tasks": [
        {"name": "build", "estimated_duration": "1:00", "deviation": 0.1, "required_roles": ["JAVA_PROGRAMMER"]},
        {"name": "deploy", "estimated_duration": "0:30", "deviation": 0.2, "required_roles": ["SYSADMIN"], "prev_tasks": ["build"]}
      ]
    }
  ]
}`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(scenarioDoc))
	require.NoError(t, err)

	assert.Equal(t, 540, s.InitialTime.Minutes())
	require.Len(t, s.Users, 2)
	assert.Equal(t, "sam", s.Users[0].Name)
	require.Len(t, s.Projects, 1)
	require.Len(t, s.Projects[0].Tasks, 2)
	assert.Equal(t, []string{"build"}, s.Projects[0].Tasks[1].PrevTasks)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`{"initial_time": "0:00", "bogus": true}`))
	assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err))
}

func TestParseRejectsBadRole(t *testing.T) {
	_, err := Parse([]byte(`{"users": [{"name": "x", "roles": ["WIZARD"]}]}`))
	assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err))
}

func TestApply(t *testing.T) {
	s, err := Parse([]byte(scenarioDoc))
	require.NoError(t, err)

	sys := taskman.New(simtime.Time{}, nil)
	sessions := session.NewManager()
	require.NoError(t, Apply(s, sys, sessions))

	assert.Equal(t, 540, sys.Clock().Minutes())
	assert.Equal(t, []string{"sam", "jane"}, sessions.UserNames())

	view, err := sys.GetProjectView("release")
	require.NoError(t, err)
	require.Len(t, view.Tasks, 2)
	assert.Equal(t, task.StatusAvailable, view.Tasks[0].Status)
	assert.Equal(t, task.StatusUnavailable, view.Tasks[1].Status)
	assert.Equal(t, []string{"build"}, view.Tasks[1].PrevTasks)
}

func TestApplyValidatesThroughSystem(t *testing.T) {
	// A forward reference fails inside the system, not in the loader.
	doc := `{
  "initial_time": "0:00",
  "projects": [
    {"name": "p", "due_time": "10:00", "tasks": [
      {"name": "a", "estimated_duration": "1:00", "required_roles": ["SYSADMIN"], "prev_tasks": ["b"]},
      {"name": "b", "estimated_duration": "1:00", "required_roles": ["SYSADMIN"]}
    ]}
  ]
}`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)

	err = Apply(s, taskman.New(simtime.Time{}, nil), session.NewManager())
	assert.Equal(t, cerr.TaskNotFound, cerr.CodeOf(err))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.json")
	require.NoError(t, os.WriteFile(path, []byte(scenarioDoc), 0644))

	sys := taskman.New(simtime.Time{}, nil)
	s, err := Load(path, sys, session.NewManager())
	require.NoError(t, err)
	assert.Len(t, s.Projects, 1)
	assert.Equal(t, []string{"release"}, sys.ProjectNames())

	_, err = ParseFile(filepath.Join(dir, "missing.json"))
	assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err))
}
