// Package engine computes and issues the minimal permission changes that
// bring a path from its current state to its resolved policy: ownership,
// mode bits and extended ACL entries. In dry-run mode changes are computed
// and logged but never issued.
package engine

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/cperrin88/aclman/pkg/acl"
	"github.com/cperrin88/aclman/pkg/backend"
	"github.com/cperrin88/aclman/pkg/errors"
	"github.com/cperrin88/aclman/pkg/identity"
	"github.com/cperrin88/aclman/pkg/policy"
)

// policyFileACL is force-set on the policy files themselves, bypassing all
// directives: the policy must not be able to loosen its own carriers.
const policyFileACL = "u::rw-,g::r--,o::r--"

// Op is the kind of a change.
type Op int

const (
	OpChown Op = iota
	OpMode
	OpRemove
	OpModify
	OpAdd
)

func (o Op) String() string {
	switch o {
	case OpChown:
		return "chown"
	case OpMode:
		return "chmod"
	case OpRemove:
		return "remove-entries"
	case OpModify:
		return "modify-entries"
	case OpAdd:
		return "add-entries"
	}
	return "unknown"
}

// Change is one mutation against a path. Args carries the symbolic mode
// deltas, canonical keys or key:triad strings depending on Op; UID/GID are
// used by OpChown with -1 meaning "leave unchanged".
type Change struct {
	Op   Op
	Path string
	Args []string
	UID  int
	GID  int
}

// Options configure an engine.
type Options struct {
	// PolicyFilePrefix is the reserved policy-file name prefix.
	PolicyFilePrefix string
	// NonExecExtensions lists file extensions that never receive execute
	// permission regardless of policy.
	NonExecExtensions []string
	// DryRun computes and logs changes without issuing them.
	DryRun bool
}

// Engine applies resolved policy to paths. Construct one per worker; the
// policy and identity resolvers are worker-local.
type Engine struct {
	backend     backend.Backend
	policy      *policy.Resolver
	identity    *identity.Resolver
	prefix      string
	nonExecExts map[string]struct{}
	dryRun      bool
	log         *slog.Logger
}

// New creates an engine.
func New(b backend.Backend, pol *policy.Resolver, ident *identity.Resolver, opts Options, log *slog.Logger) *Engine {
	prefix := opts.PolicyFilePrefix
	if prefix == "" {
		prefix = policy.DefaultFilePrefix
	}
	exts := make(map[string]struct{}, len(opts.NonExecExtensions))
	for _, ext := range opts.NonExecExtensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &Engine{
		backend:     b,
		policy:      pol,
		identity:    ident,
		prefix:      prefix,
		nonExecExts: exts,
		dryRun:      opts.DryRun,
		log:         log,
	}
}

// Apply resolves the effective policy for path, computes the changes against
// its current state and issues them (unless dry-run). The returned changes
// are what was (or would have been) issued, in apply order. Any error is
// fatal for the path.
func (e *Engine) Apply(path string, info fs.FileInfo) ([]Change, error) {
	isDir := info.IsDir()

	dir := path
	if !isDir {
		dir = filepath.Dir(path)
	}
	table, err := e.policy.Resolve(dir)
	if err != nil {
		return nil, err
	}
	if table == nil {
		e.log.Debug("no policy", "path", path)
		return nil, nil
	}

	base := "."
	if !isDir {
		base = filepath.Base(path)
	}

	// Exact child name outranks "/", which outranks "/*".
	var section *policy.Section
	for _, key := range []string{"/*", "/", "/" + base} {
		if table.Has(key) {
			section = table.Get(key)
		}
	}
	if section == nil {
		e.log.Debug("no matching section", "path", path)
		return nil, nil
	}
	if section.Ignore {
		e.log.Debug("section is ignored", "path", path)
		return nil, nil
	}

	state, err := e.backend.ReadState(path)
	if err != nil {
		return nil, err
	}

	if !isDir && strings.HasPrefix(base, e.prefix) {
		return e.protectPolicyFile(path, state)
	}

	var changes []Change
	changes = append(changes, e.chownChanges(path, section.Owner, section.Group, state)...)

	var aclText string
	if isDir && section.DirACL != "" {
		aclText = section.DirACL
	} else if section.ACL != "" {
		aclText = section.ACL
	}
	if aclText != "" {
		aclChanges, err := e.aclChanges(path, aclText, isDir, state)
		if err != nil {
			return nil, err
		}
		changes = append(changes, aclChanges...)
	}

	if err := e.issue(changes); err != nil {
		return changes, err
	}
	return changes, nil
}

// protectPolicyFile force-sets the fixed ACL and root ownership on a policy
// file, bypassing all directives.
func (e *Engine) protectPolicyFile(path string, state *backend.State) ([]Change, error) {
	desired, err := acl.Parse(policyFileACL)
	if err != nil {
		return nil, err
	}
	set := computeChanges(state.ACL, desired, false, true)
	changes := set.changes(path)
	changes = append(changes, e.chownChanges(path, "root", "root", state)...)

	if err := e.issue(changes); err != nil {
		return changes, err
	}
	return changes, nil
}

// chownChanges resolves the OWNER/GROUP directives. Unknown names fall back
// to root with a warning; an id matching current state is skipped.
func (e *Engine) chownChanges(path, owner, group string, state *backend.State) []Change {
	uid := -1
	if owner != "" {
		id, err := e.identity.UID(owner)
		if err != nil {
			e.log.Warn("ignoring unknown owner, using root instead", "owner", owner, "path", path)
			id = 0
		}
		if id != state.UID {
			uid = id
		}
	}

	gid := -1
	if group != "" {
		id, err := e.identity.GID(group)
		if err != nil {
			e.log.Warn("unknown group, using root instead", "group", group, "path", path)
			id = 0
		}
		if id != state.GID {
			gid = id
		}
	}

	if uid == -1 && gid == -1 {
		return nil
	}
	return []Change{{Op: OpChown, Path: path, UID: uid, GID: gid}}
}

// aclChanges parses the ACL directive and diffs it against current state.
func (e *Engine) aclChanges(path, aclText string, isDir bool, state *backend.State) ([]Change, error) {
	replace := true
	if strings.HasPrefix(aclText, "+") {
		replace = false
		aclText = aclText[1:]
	}

	desired, err := acl.Parse(aclText)
	if err != nil {
		return nil, errors.Wrapf(err, "ACL for %s", path)
	}

	if !isDir {
		// Files carry no default ACL.
		for key, entry := range desired {
			if entry.Default {
				delete(desired, key)
			}
		}
		if e.isNonExec(path) {
			e.log.Debug("non-executable file type, clearing execute", "path", path)
			for key, entry := range desired {
				entry.Exec = acl.Clear
				desired[key] = entry
			}
		}
	}

	set := computeChanges(state.ACL, desired, isDir, replace)
	if set.empty() {
		return nil, nil
	}
	return set.changes(path), nil
}

func (e *Engine) isNonExec(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return false
	}
	_, ok := e.nonExecExts[ext]
	return ok
}

// changes converts an opSet into ordered Change values. Mode bits are
// established first so that the extended-entry computation never sees a
// transient invalid state; removals precede modifications and additions.
func (s opSet) changes(path string) []Change {
	var out []Change
	if len(s.mods) > 0 {
		out = append(out, Change{Op: OpMode, Path: path, Args: s.mods})
	}
	if len(s.removes) > 0 {
		out = append(out, Change{Op: OpRemove, Path: path, Args: s.removes})
	}
	if len(s.modifies) > 0 {
		out = append(out, Change{Op: OpModify, Path: path, Args: s.modifies})
	}
	if len(s.adds) > 0 {
		out = append(out, Change{Op: OpAdd, Path: path, Args: s.adds})
	}
	return out
}

// issue sends the changes to the backend in order, or only logs them in
// dry-run mode.
func (e *Engine) issue(changes []Change) error {
	for _, c := range changes {
		args := strings.Join(c.Args, ",")
		if c.Op == OpChown {
			args = fmt.Sprintf("%d:%d", c.UID, c.GID)
		}
		e.log.Info("execute", "op", c.Op.String(), "path", c.Path, "args", args, "dry", e.dryRun)
		if e.dryRun {
			continue
		}

		var err error
		switch c.Op {
		case OpChown:
			err = e.backend.Chown(c.Path, c.UID, c.GID)
		case OpMode:
			err = e.backend.ApplyModes(c.Path, c.Args)
		case OpRemove:
			err = e.backend.RemoveEntries(c.Path, c.Args)
		case OpModify:
			err = e.backend.ModifyEntries(c.Path, c.Args)
		case OpAdd:
			err = e.backend.ModifyEntries(c.Path, c.Args)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
