// Package session tracks known users and the acting user, and answers
// role-permission questions for the UI layers. It owns no domain state;
// every domain mutation still goes through the system's own validation.
package session

import (
	"sync"

	"github.com/kazz187/taskman/internal/role"
	"github.com/kazz187/taskman/pkg/cerr"
)

// User is an identity with the roles it may act under.
type User struct {
	Name  string      `json:"name"`
	Roles []role.Role `json:"roles"`
}

// HasRole reports whether the user carries r.
func (u *User) HasRole(r role.Role) bool {
	for _, cur := range u.Roles {
		if cur == r {
			return true
		}
	}
	return false
}

// Developer reports whether the user carries any developer role.
func (u *User) Developer() bool {
	for _, cur := range u.Roles {
		if cur.Developer() {
			return true
		}
	}
	return false
}

// Manager keeps the user registry and the current session.
type Manager struct {
	mu      sync.Mutex
	users   map[string]*User
	order   []string
	current *User
}

func NewManager() *Manager {
	return &Manager{
		users: make(map[string]*User),
	}
}

// Register adds a user. Every role must be valid and names are unique.
func (m *Manager) Register(name string, roles []role.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == "" {
		return cerr.Errorf(cerr.InvalidArgument, "user name cannot be empty")
	}
	if _, ok := m.users[name]; ok {
		return cerr.Errorf(cerr.InvalidArgument, "user %q already registered", name)
	}
	for _, r := range roles {
		if !r.Valid() {
			return cerr.Errorf(cerr.IncorrectRole, "unknown role %q", r)
		}
	}
	m.users[name] = &User{Name: name, Roles: append([]role.Role(nil), roles...)}
	m.order = append(m.order, name)
	return nil
}

// Login makes the named user the acting user.
func (m *Manager) Login(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[name]
	if !ok {
		return cerr.Errorf(cerr.UserNotFound, "user %q not registered", name)
	}
	m.current = u
	return nil
}

// Logout clears the acting user.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
}

// Current returns the acting user.
func (m *Manager) Current() (*User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, false
	}
	return m.current, true
}

// UserNames lists registered users in registration order.
func (m *Manager) UserNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Lookup resolves a registered user by name.
func (m *Manager) Lookup(name string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[name]
	if !ok {
		return nil, cerr.Errorf(cerr.UserNotFound, "user %q not registered", name)
	}
	return u, nil
}

// RequireRole fails with PermissionDenied unless the acting user carries r.
func (m *Manager) RequireRole(r role.Role) error {
	u, ok := m.Current()
	if !ok {
		return cerr.Errorf(cerr.PermissionDenied, "no user logged in")
	}
	if !u.HasRole(r) {
		return cerr.Errorf(cerr.PermissionDenied, "user %q lacks role %s", u.Name, r)
	}
	return nil
}

// RequireDeveloper fails with PermissionDenied unless the acting user
// carries a developer role.
func (m *Manager) RequireDeveloper() error {
	u, ok := m.Current()
	if !ok {
		return cerr.Errorf(cerr.PermissionDenied, "no user logged in")
	}
	if !u.Developer() {
		return cerr.Errorf(cerr.PermissionDenied, "user %q holds no developer role", u.Name)
	}
	return nil
}
