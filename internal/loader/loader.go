package loader

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/kazz187/taskman/internal/role"
	"github.com/kazz187/taskman/internal/session"
	"github.com/kazz187/taskman/internal/simtime"
	"github.com/kazz187/taskman/internal/taskman"
	"github.com/kazz187/taskman/pkg/cerr"
)

// Scenario is the on-disk description of a system's starting point: the
// initial clock, the registered users, and the projects with their task
// graphs. Tasks may reference predecessors by name; references resolve
// within the same project and must point at tasks declared earlier in the
// list, which keeps the graph acyclic by construction.
type Scenario struct {
	InitialTime simtime.Time  `json:"initial_time"`
	Users       []UserSpec    `json:"users"`
	Projects    []ProjectSpec `json:"projects"`
}

type UserSpec struct {
	Name  string      `json:"name"`
	Roles []role.Role `json:"roles"`
}

type ProjectSpec struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	DueTime     simtime.Time `json:"due_time"`
	Tasks       []TaskSpec   `json:"tasks"`
}

type TaskSpec struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Estimated   simtime.Time `json:"estimated_duration"`
	Deviation   float64      `json:"deviation"`
	Roles       []role.Role  `json:"required_roles"`
	PrevTasks   []string     `json:"prev_tasks"`
}

// Parse decodes a scenario document. Unknown fields are rejected so a
// typoed key fails loudly instead of silently dropping data.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "failed to parse scenario", err)
	}
	return &s, nil
}

// ParseFile reads and decodes a scenario file.
func ParseFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "failed to read scenario file", err)
	}
	return Parse(data)
}

// Apply replays a scenario into a fresh system and session manager. The
// scenario's operations go through the same public operations a caller
// would use, so every validation rule applies to loaded data too.
func Apply(s *Scenario, sys *taskman.System, sessions *session.Manager) error {
	if s.InitialTime.After(sys.Clock()) {
		if err := sys.AdvanceTime(s.InitialTime); err != nil {
			return err
		}
	}
	for _, u := range s.Users {
		if err := sessions.Register(u.Name, u.Roles); err != nil {
			return err
		}
	}
	for _, p := range s.Projects {
		if err := sys.CreateProject(p.Name, p.Description, p.DueTime); err != nil {
			return err
		}
		for _, t := range p.Tasks {
			if err := sys.AddTaskToProject(p.Name, t.Name, t.Description, t.Estimated, t.Deviation, t.Roles, t.PrevTasks, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load parses and applies a scenario file in one step.
func Load(path string, sys *taskman.System, sessions *session.Manager) (*Scenario, error) {
	s, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	if err := Apply(s, sys, sessions); err != nil {
		return nil, err
	}
	return s, nil
}
