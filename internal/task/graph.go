package task

import (
	"github.com/kazz187/taskman/pkg/cerr"
)

// Edge storage is bidirectional and symmetric: every predecessor reference
// has a matching successor reference on the other endpoint. All mutations
// validate first and then update both sides, so a rejected call leaves the
// graph untouched.

// AddPrev records p as a direct predecessor of t. The edge is rejected when
// it would be a self-edge, when t has already moved past availability, or
// when p is reachable from t along existing successor edges (a cycle).
func (t *Task) AddPrev(p *Task) error {
	if err := t.validateNewPrev(p); err != nil {
		return err
	}
	if t.hasPrev(p) {
		return nil
	}
	t.prev = append(t.prev, p)
	p.next = append(p.next, t)
	t.refresh()
	return nil
}

// AddNext records n as a direct successor of t. Validation applies to n,
// the downstream side of the new edge.
func (t *Task) AddNext(n *Task) error {
	return n.AddPrev(t)
}

// RemovePrev severs the predecessor edge from p to t. Like edge addition,
// removal is only permitted while t has not moved past availability, since
// it changes the ground for t's recorded history otherwise.
func (t *Task) RemovePrev(p *Task) error {
	if t.status != StatusUnavailable && t.status != StatusAvailable {
		return cerr.Errorf(cerr.IncorrectTaskStatus, "task %q is %s, dependencies are frozen", t.name, t.status)
	}
	t.removePrevRef(p)
	p.removeNextRef(t)
	t.refresh()
	return nil
}

// RemoveNext severs the successor edge from t to n.
func (t *Task) RemoveNext(n *Task) error {
	return n.RemovePrev(t)
}

func (t *Task) validateNewPrev(p *Task) error {
	if t == p {
		return cerr.Errorf(cerr.LoopDependencyGraph, "task %q cannot depend on itself", t.name)
	}
	if t.status != StatusUnavailable && t.status != StatusAvailable {
		return cerr.Errorf(cerr.IncorrectTaskStatus, "task %q is %s, dependencies are frozen", t.name, t.status)
	}
	if reachable(t, p) {
		return cerr.Errorf(cerr.LoopDependencyGraph, "edge %s -> %s would create a cycle", p.name, t.name)
	}
	return nil
}

func (t *Task) hasPrev(p *Task) bool {
	for _, cur := range t.prev {
		if cur == p {
			return true
		}
	}
	return false
}

// reachable reports whether target can be reached from start by following
// successor edges. Used for cycle detection: adding predecessor p to task t
// is illegal iff p is already downstream of t. O(V+E) depth-first search.
func reachable(start, target *Task) bool {
	visited := make(map[*Task]bool)
	var walk func(cur *Task) bool
	walk = func(cur *Task) bool {
		if cur == target {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		for _, n := range cur.next {
			if walk(n) {
				return true
			}
		}
		return false
	}
	return walk(start)
}
