package identity

import (
	"os/user"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/aclman/pkg/errors"
)

func TestUID(t *testing.T) {
	current, err := user.Current()
	require.NoError(t, err)
	wantUID, err := strconv.Atoi(current.Uid)
	require.NoError(t, err)

	r := NewResolver()
	uid, err := r.UID(current.Username)
	require.NoError(t, err)
	assert.Equal(t, wantUID, uid)

	// second lookup is served from the cache
	cached, err := r.UID(current.Username)
	require.NoError(t, err)
	assert.Equal(t, uid, cached)
	assert.Contains(t, r.uids, current.Username)
}

func TestUIDUnknown(t *testing.T) {
	r := NewResolver()
	_, err := r.UID("no-such-user-aclman-test")
	assert.ErrorIs(t, err, errors.ErrUnknownUser)
}

func TestGID(t *testing.T) {
	current, err := user.Current()
	require.NoError(t, err)
	group, err := user.LookupGroupId(current.Gid)
	require.NoError(t, err)
	wantGID, err := strconv.Atoi(group.Gid)
	require.NoError(t, err)

	r := NewResolver()
	gid, err := r.GID(group.Name)
	require.NoError(t, err)
	assert.Equal(t, wantGID, gid)
}

func TestGIDUnknown(t *testing.T) {
	r := NewResolver()
	_, err := r.GID("no-such-group-aclman-test")
	assert.ErrorIs(t, err, errors.ErrUnknownGroup)
}

func TestPrimaryGroup(t *testing.T) {
	current, err := user.Current()
	require.NoError(t, err)
	group, err := user.LookupGroupId(current.Gid)
	require.NoError(t, err)

	r := NewResolver()
	name, err := r.PrimaryGroup(current.Username)
	require.NoError(t, err)
	assert.Equal(t, group.Name, name)

	// cached
	name, err = r.PrimaryGroup(current.Username)
	require.NoError(t, err)
	assert.Equal(t, group.Name, name)
}

func TestPrimaryGroupUnknownUser(t *testing.T) {
	r := NewResolver()
	_, err := r.PrimaryGroup("no-such-user-aclman-test")
	assert.ErrorIs(t, err, errors.ErrUnknownUser)
}
