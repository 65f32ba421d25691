package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskman/internal/role"
	"github.com/kazz187/taskman/pkg/cerr"
)

func TestRegister(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("alice", []role.Role{role.SysAdmin, role.JavaProgrammer}))

	err := m.Register("alice", []role.Role{role.SysAdmin})
	assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err))

	err = m.Register("", []role.Role{role.SysAdmin})
	assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err))

	err = m.Register("bob", []role.Role{"WIZARD"})
	assert.Equal(t, cerr.IncorrectRole, cerr.CodeOf(err))

	assert.Equal(t, []string{"alice"}, m.UserNames())
}

func TestLoginLogout(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("alice", []role.Role{role.SysAdmin}))

	err := m.Login("bob")
	assert.Equal(t, cerr.UserNotFound, cerr.CodeOf(err))
	_, ok := m.Current()
	assert.False(t, ok)

	require.NoError(t, m.Login("alice"))
	u, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "alice", u.Name)

	m.Logout()
	_, ok = m.Current()
	assert.False(t, ok)
}

func TestRequireRole(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("pm", []role.Role{role.ProjectManager}))
	require.NoError(t, m.Register("dev", []role.Role{role.PythonProgrammer}))

	// No session at all.
	assert.Equal(t, cerr.PermissionDenied, cerr.CodeOf(m.RequireRole(role.ProjectManager)))

	require.NoError(t, m.Login("pm"))
	assert.NoError(t, m.RequireRole(role.ProjectManager))
	assert.Equal(t, cerr.PermissionDenied, cerr.CodeOf(m.RequireDeveloper()))

	require.NoError(t, m.Login("dev"))
	assert.NoError(t, m.RequireDeveloper())
	assert.Equal(t, cerr.PermissionDenied, cerr.CodeOf(m.RequireRole(role.ProjectManager)))
}

func TestUserRoles(t *testing.T) {
	u := &User{Name: "alice", Roles: []role.Role{role.SysAdmin}}
	assert.True(t, u.HasRole(role.SysAdmin))
	assert.False(t, u.HasRole(role.JavaProgrammer))
	assert.True(t, u.Developer())

	pm := &User{Name: "pm", Roles: []role.Role{role.ProjectManager}}
	assert.False(t, pm.Developer())
}
