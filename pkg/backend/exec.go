package backend

import (
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/cperrin88/aclman/pkg/acl"
	"github.com/cperrin88/aclman/pkg/errors"
)

// Exec is the production backend. It reads state with getfacl and applies
// changes with chmod, setfacl and lchown.
type Exec struct{}

// NewExec creates the exec-based backend.
func NewExec() *Exec {
	return &Exec{}
}

// ReadState lstats the path and parses the getfacl listing into a closed ACL.
func (b *Exec) ReadState(path string) (*State, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrExternalOp, "lstat %s: %v", path, err)
	}

	out, err := exec.Command("getfacl", path).Output()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrExternalOp, "getfacl %s: %v", path, err)
	}

	current, err := acl.ParseListing(string(out), fi.Mode())
	if err != nil {
		return nil, errors.Wrapf(err, "getfacl output for %s", path)
	}

	st := &State{ACL: current, Mode: fi.Mode()}
	if sys, ok := fi.Sys().(*syscall.Stat_t); ok {
		st.UID = int(sys.Uid)
		st.GID = int(sys.Gid)
	}
	return st, nil
}

// ApplyModes runs chmod with the comma-joined symbolic deltas.
func (b *Exec) ApplyModes(path string, mods []string) error {
	return b.run("chmod", strings.Join(mods, ","), path)
}

// RemoveEntries runs setfacl -x with the comma-joined canonical keys.
func (b *Exec) RemoveEntries(path string, keys []string) error {
	return b.run("setfacl", "-x", strings.Join(keys, ","), path)
}

// ModifyEntries runs setfacl -m with the comma-joined key:triad strings.
func (b *Exec) ModifyEntries(path string, entries []string) error {
	return b.run("setfacl", "-m", strings.Join(entries, ","), path)
}

// Chown changes ownership without following symbolic links.
func (b *Exec) Chown(path string, uid, gid int) error {
	if err := os.Lchown(path, uid, gid); err != nil {
		return errors.Wrapf(errors.ErrExternalOp, "lchown %s: %v", path, err)
	}
	return nil
}

func (b *Exec) run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(errors.ErrExternalOp, "%s %s: %v", name, strings.Join(args, " "), err)
	}
	return nil
}
