package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/aclman/pkg/acl"
	"github.com/cperrin88/aclman/pkg/errors"
)

func TestMemoryReadState(t *testing.T) {
	mem := NewMemory()

	_, err := mem.ReadState("/nope")
	assert.ErrorIs(t, err, errors.ErrExternalOp)

	a, err := acl.ParseListing("u::rw-\ng::r--\no::---", 0o640)
	require.NoError(t, err)
	mem.SetState("/data", State{ACL: a, Mode: 0o640, UID: 7, GID: 8})

	st, err := mem.ReadState("/data")
	require.NoError(t, err)
	assert.Equal(t, 7, st.UID)
	assert.Equal(t, 8, st.GID)
	assert.Equal(t, a, st.ACL)
}

func TestMemoryRecordsOps(t *testing.T) {
	mem := NewMemory()

	require.NoError(t, mem.ApplyModes("/p", []string{"u+x"}))
	require.NoError(t, mem.RemoveEntries("/p", []string{"u:legacy"}))
	require.NoError(t, mem.ModifyEntries("/p", []string{"g::r-x"}))
	require.NoError(t, mem.Chown("/p", 0, -1))

	ops := mem.Ops()
	require.Len(t, ops, 4)
	assert.Equal(t, "chmod", ops[0].Name)
	assert.Equal(t, "setfacl -x", ops[1].Name)
	assert.Equal(t, "setfacl -m", ops[2].Name)
	assert.Equal(t, "chown", ops[3].Name)
	assert.Equal(t, []string{"0", "-1"}, ops[3].Args)
}

func TestMemoryFailWith(t *testing.T) {
	mem := NewMemory()
	mem.FailWith("/bad", errors.Wrap(errors.ErrExternalOp, "boom"))

	_, err := mem.ReadState("/bad")
	assert.ErrorIs(t, err, errors.ErrExternalOp)
}
