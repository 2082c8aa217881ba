package policy

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/cperrin88/aclman/internal/logger"
	"github.com/cperrin88/aclman/pkg/identity"
)

// Resolver computes the effective policy table of directories, memoized per
// normalized directory path. Not safe for concurrent use; construct one per
// worker.
type Resolver struct {
	prefix   string
	identity *identity.Resolver
	cache    map[string]*Table
	log      *slog.Logger
}

// NewResolver creates a resolver using the given policy-file prefix and
// identity resolver (needed for the primary-group pattern variants).
func NewResolver(prefix string, ident *identity.Resolver, log *slog.Logger) *Resolver {
	if prefix == "" {
		prefix = DefaultFilePrefix
	}
	return &Resolver{
		prefix:   prefix,
		identity: ident,
		cache:    make(map[string]*Table),
		log:      log,
	}
}

// Resolve returns the effective policy table of the given directory: the
// local policy files merged with the parent directory's resolved table.
// Returns nil when neither local files nor inherited entries produce any
// pattern. dir must be an absolute directory path.
func (r *Resolver) Resolve(dir string) (*Table, error) {
	if cached, ok := r.cache[dir]; ok {
		r.trace("policy cache hit", "dir", dir)
		return cached, nil
	}

	local, err := LoadDirectory(dir, r.prefix)
	if err != nil {
		return nil, err
	}

	var parent *Table
	if parentDir := filepath.Dir(dir); parentDir != dir {
		parent, err = r.Resolve(parentDir)
		if err != nil {
			return nil, err
		}
	}

	table := r.merge(local, parent, filepath.Base(dir), dir)
	if table != nil && table.Len() == 0 {
		table = nil
	}
	r.cache[dir] = table
	return table, nil
}

// Pattern rewrite priorities: exact child-name matches outrank one-level
// wildcards; the "/*" pattern never competes.
const (
	prioNone     = -1
	prioWildcard = 0
	prioExact    = 1
)

type groupMode int

const (
	groupNone groupMode = iota
	groupFromName
	groupFromPrimary
)

type rewrite struct {
	key      string
	prio     int
	setOwner bool
	group    groupMode
}

// rewriteKey rewrites a parent pattern for a child directory named basename.
// Returns false for patterns that do not propagate.
func rewriteKey(section, basename string) (rewrite, bool) {
	switch {
	case section == "/*":
		return rewrite{key: "/*", prio: prioNone}, true
	case strings.HasPrefix(section, "/*/"):
		return rewrite{key: section[2:], prio: prioWildcard}, true
	case strings.HasPrefix(section, "/*O/"):
		return rewrite{key: section[3:], prio: prioWildcard, setOwner: true}, true
	case strings.HasPrefix(section, "/*G/"):
		return rewrite{key: section[3:], prio: prioWildcard, group: groupFromName}, true
	case strings.HasPrefix(section, "/*OG/"):
		return rewrite{key: section[4:], prio: prioWildcard, setOwner: true, group: groupFromName}, true
	case strings.HasPrefix(section, "/*OP/"):
		return rewrite{key: section[4:], prio: prioWildcard, setOwner: true, group: groupFromPrimary}, true
	case strings.HasPrefix(section, "/*P/"):
		return rewrite{key: section[3:], prio: prioWildcard, group: groupFromPrimary}, true
	case strings.HasPrefix(section, "/"+basename+"/"):
		return rewrite{key: section[len(basename)+1:], prio: prioExact}, true
	}
	return rewrite{}, false
}

// merge combines the parent's resolved table into the child's local table.
func (r *Resolver) merge(local, parent *Table, basename, dir string) *Table {
	if parent == nil {
		return local
	}

	table := local
	if table == nil {
		table = NewTable()
	}

	// A FINAL "/*" in the parent locks the whole subtree: every locally
	// defined pattern is discarded.
	if global := parent.Get("/*"); global != nil && global.Final {
		for _, key := range table.Keys() {
			r.log.Warn("tried to override global final section", "section", key, "dir", dir)
		}
		table = NewTable()
	}

	added := make(map[string]int)
	for _, section := range parent.Keys() {
		parentSec := parent.Get(section)
		rw, ok := rewriteKey(section, basename)
		if !ok {
			continue
		}

		if _, inherited := added[rw.key]; table.Has(rw.key) && !inherited && parentSec.Final {
			r.log.Warn("tried to override final section",
				"section", rw.key, "from", section, "dir", dir)
			table.Delete(rw.key)
		}
		if prio, inherited := added[rw.key]; inherited {
			if prio < rw.prio {
				r.trace("replacing inherited section with higher priority",
					"section", rw.key, "from", section, "dir", dir)
				table.Delete(rw.key)
				delete(added, rw.key)
			} else if prio == rw.prio {
				r.log.Warn("section conflict, keeping first",
					"section", rw.key, "vs", section, "dir", dir)
			}
		}
		if table.Has(rw.key) {
			continue
		}

		r.trace("inheriting parent section", "from", section, "as", rw.key, "dir", dir)
		sec := parentSec.clone()
		if rw.setOwner {
			sec.Owner = basename
		}
		switch rw.group {
		case groupFromName:
			sec.Group = basename
		case groupFromPrimary:
			group, err := r.identity.PrimaryGroup(basename)
			if err != nil {
				r.log.Warn("unknown user for primary group, using root instead",
					"user", basename, "dir", dir)
				group = "root"
			}
			sec.Group = group
		}
		table.Set(rw.key, sec)
		added[rw.key] = rw.prio
	}

	return table
}

func (r *Resolver) trace(msg string, args ...any) {
	r.log.Log(context.Background(), logger.LevelTrace, msg, args...)
}
