// Package backend abstracts the OS-level permission primitives: reading the
// current ACL/mode/ownership state of a path and issuing mode, extended-entry
// and ownership mutations. The engine only talks to this interface, so it can
// be driven against the real tools or an in-memory fake.
package backend

import (
	"io/fs"

	"github.com/cperrin88/aclman/pkg/acl"
)

// State is the fully resolved current permission state of a path.
type State struct {
	// ACL is the closed current ACL: every standard and extended entry
	// with all fields concrete.
	ACL acl.ACL

	// Mode carries the raw permission and special bits.
	Mode fs.FileMode

	// UID and GID are the current numeric owner and group.
	UID int
	GID int
}

// Backend issues permission reads and mutations against a path. All methods
// are synchronous; a failure reported by the underlying primitive is fatal
// for the path being processed.
type Backend interface {
	// ReadState returns the current permission state of path.
	ReadState(path string) (*State, error)

	// ApplyModes applies symbolic mode deltas such as "u+x" or "g-s".
	ApplyModes(path string, mods []string) error

	// RemoveEntries removes extended entries by canonical key.
	RemoveEntries(path string, keys []string) error

	// ModifyEntries adds or modifies extended entries given as
	// "key:triad" strings.
	ModifyEntries(path string, entries []string) error

	// Chown changes ownership; -1 leaves the corresponding id unchanged.
	Chown(path string, uid, gid int) error
}
