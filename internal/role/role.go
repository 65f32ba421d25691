// Package role defines the function a user fulfills within the system.
package role

import (
	"encoding/json"
	"strings"

	"github.com/kazz187/taskman/pkg/cerr"
)

type Role string

const (
	ProjectManager   Role = "PROJECT_MANAGER"
	SysAdmin         Role = "SYSADMIN"
	JavaProgrammer   Role = "JAVA_PROGRAMMER"
	PythonProgrammer Role = "PYTHON_PROGRAMMER"
)

// Developer reports whether the role may be required by a task. Project
// managers steer projects but never fill a task slot.
func (r Role) Developer() bool {
	switch r {
	case SysAdmin, JavaProgrammer, PythonProgrammer:
		return true
	default:
		return false
	}
}

func (r Role) Valid() bool {
	switch r {
	case ProjectManager, SysAdmin, JavaProgrammer, PythonProgrammer:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// Parse resolves a case-insensitive role name.
func Parse(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", cerr.Errorf(cerr.IncorrectRole, "unknown role %q", s)
	}
	return r, nil
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return cerr.NewError(cerr.IncorrectRole, "invalid role value", err)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
