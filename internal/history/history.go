// Package history provides the undo/redo command stack. It lives entirely
// outside the core: commands are paired do/undo closures built over the
// system's public operations, with pre-state captured through queries.
package history

import (
	"sync"

	"github.com/kazz187/taskman/pkg/cerr"
)

// Command pairs a forward operation with its inverse. A nil Undo marks the
// command as irreversible; executing one seals everything before it.
type Command struct {
	Name string
	Do   func() error
	Undo func() error
}

// Undoable reports whether the command can be rolled back.
func (c *Command) Undoable() bool {
	return c.Undo != nil
}

// Stack records executed commands for undo and redo.
type Stack struct {
	mu   sync.Mutex
	undo []*Command
	redo []*Command
}

func NewStack() *Stack {
	return &Stack{}
}

// Execute runs the command and records it. A successful execution clears
// the redo stack; an irreversible command also clears the undo stack, since
// history cannot be replayed across it.
func (s *Stack) Execute(cmd *Command) error {
	if err := cmd.Do(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redo = nil
	if !cmd.Undoable() {
		s.undo = nil
		return nil
	}
	s.undo = append(s.undo, cmd)
	return nil
}

// Undo rolls back the most recent undoable command.
func (s *Stack) Undo() error {
	s.mu.Lock()
	if len(s.undo) == 0 {
		s.mu.Unlock()
		return cerr.Errorf(cerr.InvalidArgument, "nothing to undo")
	}
	cmd := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.mu.Unlock()

	if err := cmd.Undo(); err != nil {
		// Roll the record back so the caller can retry or inspect.
		s.mu.Lock()
		s.undo = append(s.undo, cmd)
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.redo = append(s.redo, cmd)
	s.mu.Unlock()
	return nil
}

// Redo re-applies the most recently undone command.
func (s *Stack) Redo() error {
	s.mu.Lock()
	if len(s.redo) == 0 {
		s.mu.Unlock()
		return cerr.Errorf(cerr.InvalidArgument, "nothing to redo")
	}
	cmd := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.mu.Unlock()

	if err := cmd.Do(); err != nil {
		s.mu.Lock()
		s.redo = append(s.redo, cmd)
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.undo = append(s.undo, cmd)
	s.mu.Unlock()
	return nil
}

// UndoNames lists pending undo entries, most recent last.
func (s *Stack) UndoNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.undo))
	for _, cmd := range s.undo {
		names = append(names, cmd.Name)
	}
	return names
}

// RedoNames lists pending redo entries, most recent last.
func (s *Stack) RedoNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.redo))
	for _, cmd := range s.redo {
		names = append(names, cmd.Name)
	}
	return names
}
