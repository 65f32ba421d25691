package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskman/internal/config"
	"github.com/kazz187/taskman/internal/event"
	"github.com/kazz187/taskman/internal/role"
	"github.com/kazz187/taskman/internal/session"
	"github.com/kazz187/taskman/internal/simtime"
	"github.com/kazz187/taskman/internal/taskman"
)

func newTestServer(t *testing.T) (*Server, *taskman.System, *session.Manager) {
	t.Helper()
	bus, err := event.NewBus()
	require.NoError(t, err)
	broadcaster, err := NewBroadcaster(bus)
	require.NoError(t, err)
	sys := taskman.New(simtime.Time{}, nil)
	sessions := session.NewManager()
	env := &config.BaseEnv{HTTPPort: "0"}
	return NewServer(env, sys, sessions, broadcaster), sys, sessions
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(t, srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClockEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/clock", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "0:00", resp["clock"])

	rec = do(t, h, http.MethodPost, "/api/clock/advance", `{"time": "2:00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2:00", resp["clock"])

	// Regression maps to 422 via the error code.
	rec = do(t, h, http.MethodPost, "/api/clock/advance", `{"time": "1:00"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var errResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "new_time_before_system_time", errResp["code"])
}

func TestProjectAndTaskFlow(t *testing.T) {
	srv, _, sessions := newTestServer(t)
	require.NoError(t, sessions.Register("sam", []role.Role{role.SysAdmin}))
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/projects", `{"name": "release", "due_time": "10:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/projects/release/tasks",
		`{"name": "deploy", "estimated_duration": "1:00", "deviation": 0.1, "required_roles": ["SYSADMIN"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var taskResp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &taskResp))
	assert.Equal(t, "AVAILABLE", taskResp["status"])

	rec = do(t, h, http.MethodPost, "/api/projects/release/tasks/deploy/start",
		`{"time": "0:00", "user": "sam", "role": "SYSADMIN"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &taskResp))
	assert.Equal(t, "EXECUTING", taskResp["status"])

	rec = do(t, h, http.MethodPost, "/api/clock/advance", `{"time": "1:00"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/projects/release/tasks/deploy/finish",
		`{"time": "1:00", "user": "sam"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &taskResp))
	assert.Equal(t, "FINISHED", taskResp["status"])
	assert.Equal(t, "ON_TIME", taskResp["finished_kind"])

	rec = do(t, h, http.MethodGet, "/api/projects/release", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var projResp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &projResp))
	assert.Equal(t, "FINISHED", projResp["status"])
}

func TestStartRequiresRegisteredUser(t *testing.T) {
	srv, sys, _ := newTestServer(t)
	require.NoError(t, sys.CreateProject("release", "", simtime.MustFromMinutes(600)))
	require.NoError(t, sys.AddTaskToProject("release", "t", "", simtime.MustFromMinutes(60), 0, []role.Role{role.SysAdmin}, nil, nil))
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/projects/release/tasks/t/start",
		`{"time": "0:00", "user": "ghost", "role": "SYSADMIN"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartRejectsRoleUserLacks(t *testing.T) {
	srv, sys, sessions := newTestServer(t)
	require.NoError(t, sessions.Register("jane", []role.Role{role.JavaProgrammer}))
	require.NoError(t, sys.CreateProject("release", "", simtime.MustFromMinutes(600)))
	require.NoError(t, sys.AddTaskToProject("release", "t", "", simtime.MustFromMinutes(60), 0, []role.Role{role.SysAdmin}, nil, nil))
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/projects/release/tasks/t/start",
		`{"time": "0:00", "user": "jane", "role": "SYSADMIN"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/projects/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "project_not_found", errResp["code"])

	rec = do(t, h, http.MethodPost, "/api/projects", `{"bogus": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUndoRedoEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/undo", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/projects", `{"name": "release", "due_time": "10:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/projects/release/tasks",
		`{"name": "deploy", "estimated_duration": "1:00", "deviation": 0.1, "required_roles": ["SYSADMIN"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Undo removes the recorded task creation; redo restores it.
	rec = do(t, h, http.MethodPost, "/api/undo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/projects/release/tasks/deploy", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/redo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/projects/release/tasks/deploy", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionEndpoints(t *testing.T) {
	srv, _, sessions := newTestServer(t)
	require.NoError(t, sessions.Register("sam", []role.Role{role.SysAdmin}))
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/session/login", `{"user": "ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/session/login", `{"user": "sam"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sam", resp["user"])

	rec = do(t, h, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/session/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDependencyEndpoints(t *testing.T) {
	srv, sys, _ := newTestServer(t)
	require.NoError(t, sys.CreateProject("release", "", simtime.MustFromMinutes(600)))
	for _, name := range []string{"a", "b"} {
		require.NoError(t, sys.AddTaskToProject("release", name, "", simtime.MustFromMinutes(60), 0, []role.Role{role.SysAdmin}, nil, nil))
	}
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/projects/release/dependencies", `{"prev": "a", "next": "b"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var taskResp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &taskResp))
	assert.Equal(t, "UNAVAILABLE", taskResp["status"])

	rec = do(t, h, http.MethodPost, "/api/projects/release/dependencies", `{"prev": "b", "next": "a"}`)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/projects/release/dependencies", `{"prev": "a", "next": "b"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &taskResp))
	assert.Equal(t, "AVAILABLE", taskResp["status"])
}
