package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskman/internal/history"
	"github.com/kazz187/taskman/internal/role"
	"github.com/kazz187/taskman/internal/simtime"
	"github.com/kazz187/taskman/pkg/cerr"
)

// decode unmarshals the request body into dst, depositing a JSON error on
// failure. It reports whether decoding succeeded.
func decode(r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "failed to parse request body", err)
		return false
	}
	return true
}

func (s *Server) getSystem(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), s.sys.GetSystemView())
}

type clockResponse struct {
	Clock simtime.Time `json:"clock"`
}

func (s *Server) getClock(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), clockResponse{Clock: s.sys.Clock()})
}

type advanceClockRequest struct {
	Time simtime.Time `json:"time"`
}

func (s *Server) advanceClock(w http.ResponseWriter, r *http.Request) {
	var req advanceClockRequest
	if !decode(r, &req) {
		return
	}
	if err := s.history.Execute(history.AdvanceTime(s.sys, req.Time)); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), clockResponse{Clock: s.sys.Clock()})
}

type registerUserRequest struct {
	Name  string      `json:"name"`
	Roles []role.Role `json:"roles"`
}

func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if !decode(r, &req) {
		return
	}
	if err := s.sessions.Register(req.Name, req.Roles); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponseStatus(r.Context(), http.StatusCreated, req)
}

type userListResponse struct {
	Users []string `json:"users"`
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), userListResponse{Users: s.sessions.UserNames()})
}

type createProjectRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	DueTime     simtime.Time `json:"due_time"`
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !decode(r, &req) {
		return
	}
	if err := s.history.Execute(history.CreateProject(s.sys, req.Name, req.Description, req.DueTime)); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	view, err := s.sys.GetProjectView(req.Name)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponseStatus(r.Context(), http.StatusCreated, view)
}

type projectListResponse struct {
	Projects []string `json:"projects"`
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), projectListResponse{Projects: s.sys.ProjectNames()})
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	view, err := s.sys.GetProjectView(chi.URLParam(r, "project"))
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), view)
}

type addTaskRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Estimated   simtime.Time `json:"estimated_duration"`
	Deviation   float64      `json:"deviation"`
	Roles       []role.Role  `json:"required_roles"`
	PrevTasks   []string     `json:"prev_tasks"`
	NextTasks   []string     `json:"next_tasks"`
}

func (s *Server) addTask(w http.ResponseWriter, r *http.Request) {
	projectName := chi.URLParam(r, "project")
	var req addTaskRequest
	if !decode(r, &req) {
		return
	}
	err := s.history.Execute(history.AddTask(s.sys, projectName, req.Name, req.Description, req.Estimated, req.Deviation, req.Roles, req.PrevTasks, req.NextTasks))
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	view, err := s.sys.GetTaskView(projectName, req.Name)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponseStatus(r.Context(), http.StatusCreated, view)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	view, err := s.sys.GetTaskView(chi.URLParam(r, "project"), chi.URLParam(r, "task"))
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), view)
}

type deleteTaskResponse struct {
	Deleted string `json:"deleted"`
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	taskName := chi.URLParam(r, "task")
	if err := s.history.Execute(history.DeleteTask(s.sys, chi.URLParam(r, "project"), taskName)); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), deleteTaskResponse{Deleted: taskName})
}

type replaceTaskRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Estimated   simtime.Time `json:"estimated_duration"`
	Deviation   float64      `json:"deviation"`
}

func (s *Server) replaceTask(w http.ResponseWriter, r *http.Request) {
	projectName := chi.URLParam(r, "project")
	oldName := chi.URLParam(r, "task")
	var req replaceTaskRequest
	if !decode(r, &req) {
		return
	}
	err := s.history.Execute(history.ReplaceTask(s.sys, projectName, req.Name, req.Description, req.Estimated, req.Deviation, oldName))
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	view, err := s.sys.GetTaskView(projectName, req.Name)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponseStatus(r.Context(), http.StatusCreated, view)
}

type dependencyRequest struct {
	Prev string `json:"prev"`
	Next string `json:"next"`
}

func (s *Server) addDependency(w http.ResponseWriter, r *http.Request) {
	projectName := chi.URLParam(r, "project")
	var req dependencyRequest
	if !decode(r, &req) {
		return
	}
	if err := s.history.Execute(history.AddDependency(s.sys, projectName, req.Prev, req.Next)); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respondTask(r, projectName, req.Next)
}

func (s *Server) removeDependency(w http.ResponseWriter, r *http.Request) {
	projectName := chi.URLParam(r, "project")
	var req dependencyRequest
	if !decode(r, &req) {
		return
	}
	if err := s.history.Execute(history.RemoveDependency(s.sys, projectName, req.Prev, req.Next)); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respondTask(r, projectName, req.Next)
}

type startTaskRequest struct {
	Time simtime.Time `json:"time"`
	User string       `json:"user"`
	Role role.Role    `json:"role"`
}

func (s *Server) startTask(w http.ResponseWriter, r *http.Request) {
	projectName := chi.URLParam(r, "project")
	taskName := chi.URLParam(r, "task")
	var req startTaskRequest
	if !decode(r, &req) {
		return
	}
	u, err := s.sessions.Lookup(req.User)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	if !u.HasRole(req.Role) {
		cerr.SetNewJSONError(r.Context(), cerr.IncorrectRole, "user does not hold the requested role", nil)
		return
	}
	if err := s.history.Execute(history.StartTask(s.sys, projectName, taskName, req.Time, req.User, req.Role)); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respondTask(r, projectName, taskName)
}

type userRequest struct {
	User string `json:"user"`
}

func (s *Server) undoStartTask(w http.ResponseWriter, r *http.Request) {
	projectName := chi.URLParam(r, "project")
	taskName := chi.URLParam(r, "task")
	var req userRequest
	if !decode(r, &req) {
		return
	}
	if err := s.history.Execute(history.UndoStartTask(s.sys, projectName, taskName, req.User)); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respondTask(r, projectName, taskName)
}

type endTaskRequest struct {
	Time simtime.Time `json:"time"`
	User string       `json:"user"`
}

func (s *Server) finishTask(w http.ResponseWriter, r *http.Request) {
	s.endTask(r, true)
}

func (s *Server) failTask(w http.ResponseWriter, r *http.Request) {
	s.endTask(r, false)
}

func (s *Server) endTask(r *http.Request, finished bool) {
	projectName := chi.URLParam(r, "project")
	taskName := chi.URLParam(r, "task")
	var req endTaskRequest
	if !decode(r, &req) {
		return
	}
	var cmd *history.Command
	if finished {
		cmd = history.FinishTask(s.sys, projectName, taskName, req.Time, req.User)
	} else {
		cmd = history.FailTask(s.sys, projectName, taskName, req.Time, req.User)
	}
	if err := s.history.Execute(cmd); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respondTask(r, projectName, taskName)
}

func (s *Server) undoEndTask(w http.ResponseWriter, r *http.Request) {
	projectName := chi.URLParam(r, "project")
	taskName := chi.URLParam(r, "task")
	if err := s.history.Execute(history.UndoEndTask(s.sys, projectName, taskName)); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respondTask(r, projectName, taskName)
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Undo(); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), s.sys.GetSystemView())
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Redo(); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), s.sys.GetSystemView())
}

type sessionResponse struct {
	User  string      `json:"user"`
	Roles []role.Role `json:"roles"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decode(r, &req) {
		return
	}
	if err := s.sessions.Login(req.User); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	u, _ := s.sessions.Current()
	cerr.SetJSONResponse(r.Context(), sessionResponse{User: u.Name, Roles: u.Roles})
}

type logoutResponse struct {
	LoggedOut bool `json:"logged_out"`
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout()
	cerr.SetJSONResponse(r.Context(), logoutResponse{LoggedOut: true})
}

func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) {
	u, ok := s.sessions.Current()
	if !ok {
		cerr.SetNewJSONError(r.Context(), cerr.UserNotFound, "no user logged in", nil)
		return
	}
	cerr.SetJSONResponse(r.Context(), sessionResponse{User: u.Name, Roles: u.Roles})
}

func (s *Server) respondTask(r *http.Request, projectName, taskName string) {
	view, err := s.sys.GetTaskView(projectName, taskName)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), view)
}
