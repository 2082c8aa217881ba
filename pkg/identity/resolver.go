// Package identity resolves user and group names to numeric ids and users
// to their primary group. Lookups are cached per resolver; the scheduler
// gives every worker its own resolver so no locking is needed.
package identity

import (
	"os/user"
	"strconv"

	"github.com/cperrin88/aclman/pkg/errors"
)

// Resolver caches identity lookups. Not safe for concurrent use; construct
// one per worker.
type Resolver struct {
	uids          map[string]int
	gids          map[string]int
	primaryGroups map[string]string
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		uids:          make(map[string]int),
		gids:          make(map[string]int),
		primaryGroups: make(map[string]string),
	}
}

// UID resolves a user name to its numeric id.
func (r *Resolver) UID(name string) (int, error) {
	if uid, ok := r.uids[name]; ok {
		return uid, nil
	}
	u, err := user.Lookup(name)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrUnknownUser, "%s", name)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrIdentity, "non-numeric uid %q for user %s", u.Uid, name)
	}
	r.uids[name] = uid
	return uid, nil
}

// GID resolves a group name to its numeric id.
func (r *Resolver) GID(name string) (int, error) {
	if gid, ok := r.gids[name]; ok {
		return gid, nil
	}
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrUnknownGroup, "%s", name)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrIdentity, "non-numeric gid %q for group %s", g.Gid, name)
	}
	r.gids[name] = gid
	return gid, nil
}

// PrimaryGroup resolves a user name to the name of its primary group.
func (r *Resolver) PrimaryGroup(username string) (string, error) {
	if group, ok := r.primaryGroups[username]; ok {
		return group, nil
	}
	u, err := user.Lookup(username)
	if err != nil {
		return "", errors.Wrapf(errors.ErrUnknownUser, "%s", username)
	}
	g, err := user.LookupGroupId(u.Gid)
	if err != nil {
		return "", errors.Wrapf(errors.ErrUnknownGroup, "gid %s of user %s", u.Gid, username)
	}
	r.primaryGroups[username] = g.Name
	return g.Name, nil
}
