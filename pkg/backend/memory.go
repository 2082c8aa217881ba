package backend

import (
	"strconv"
	"sync"

	"github.com/cperrin88/aclman/pkg/errors"
)

// Op records one mutation issued against the Memory backend.
type Op struct {
	Name string // "chmod", "setfacl -x", "setfacl -m", "chown"
	Path string
	Args []string
}

// Memory is an in-memory Backend for tests. States are seeded per path and
// every mutation is recorded. Safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	states map[string]State
	fail   map[string]error
	ops    []Op
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		states: make(map[string]State),
		fail:   make(map[string]error),
	}
}

// SetState seeds the current state of a path.
func (m *Memory) SetState(path string, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[path] = st
}

// FailWith makes ReadState return err for the given path.
func (m *Memory) FailWith(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[path] = err
}

// Ops returns a copy of the recorded mutations.
func (m *Memory) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Op, len(m.ops))
	copy(out, m.ops)
	return out
}

// ReadState returns the seeded state of path.
func (m *Memory) ReadState(path string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.fail[path]; ok {
		return nil, err
	}
	st, ok := m.states[path]
	if !ok {
		return nil, errors.Wrapf(errors.ErrExternalOp, "no state seeded for %s", path)
	}
	return &st, nil
}

// ApplyModes records a chmod.
func (m *Memory) ApplyModes(path string, mods []string) error {
	m.record("chmod", path, mods)
	return nil
}

// RemoveEntries records a setfacl -x.
func (m *Memory) RemoveEntries(path string, keys []string) error {
	m.record("setfacl -x", path, keys)
	return nil
}

// ModifyEntries records a setfacl -m.
func (m *Memory) ModifyEntries(path string, entries []string) error {
	m.record("setfacl -m", path, entries)
	return nil
}

// Chown records an ownership change.
func (m *Memory) Chown(path string, uid, gid int) error {
	m.record("chown", path, []string{strconv.Itoa(uid), strconv.Itoa(gid)})
	return nil
}

func (m *Memory) record(name, path string, args []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, Op{Name: name, Path: path, Args: append([]string(nil), args...)})
}
