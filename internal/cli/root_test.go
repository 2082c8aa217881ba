package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "aclman", cmd.Name())
	assert.Equal(t, Version, cmd.Version)

	for flag, shorthand := range map[string]string{
		"recursive": "R",
		"dry":       "n",
		"verbose":   "v",
	} {
		f := cmd.Flags().Lookup(flag)
		require.NotNil(t, f, flag)
		assert.Equal(t, shorthand, f.Shorthand)
	}
	require.NotNil(t, cmd.Flags().Lookup("config"))
}

func TestRootCmdVersionOutput(t *testing.T) {
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "aclman version "+Version)
	assert.Contains(t, out, "Build date: "+BuildDate)
	assert.Contains(t, out, "Git commit: "+GitCommit)
}

func TestRootCmdAcceptsArbitraryArgs(t *testing.T) {
	cmd := NewRootCmd()
	assert.NoError(t, cmd.Args(cmd, []string{"/srv", "/opt"}))
	assert.NoError(t, cmd.Args(cmd, nil))
}
