package acl

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/aclman/pkg/errors"
)

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  Entry
		error error
	}{
		{
			name: "owning user",
			text: "u::rwX-",
			want: Entry{Kind: User, Read: Set, Write: Set, Exec: ExecDirInherit, Special: Clear},
		},
		{
			name: "owning group with conditional exec",
			text: "g::r-XD",
			want: Entry{Kind: Group, Read: Set, Write: Clear, Exec: ExecDirInherit, Special: SpecialDirOnly},
		},
		{
			name: "other",
			text: "o::r-X-",
			want: Entry{Kind: Other, Read: Set, Write: Clear, Exec: ExecDirInherit, Special: Clear},
		},
		{
			name: "long subject keyword",
			text: "user:backup:r-x",
			want: Entry{Kind: User, Name: "backup", Read: Set, Write: Clear, Exec: Set},
		},
		{
			name: "named group",
			text: "g:staff:rw-",
			want: Entry{Kind: Group, Name: "staff", Read: Set, Write: Set, Exec: Clear},
		},
		{
			name: "mask",
			text: "m::rwx",
			want: Entry{Kind: Mask, Read: Set, Write: Set, Exec: Set},
		},
		{
			name: "default entry",
			text: "d:u::rwx",
			want: Entry{Kind: User, Default: true, Read: Set, Write: Set, Exec: Set},
		},
		{
			name: "long default keyword",
			text: "default:group::r-x",
			want: Entry{Kind: Group, Default: true, Read: Set, Write: Clear, Exec: Set},
		},
		{
			name: "unspecified fields",
			text: "u::*-*",
			want: Entry{Kind: User, Read: Unspecified, Write: Clear, Exec: Unspecified},
		},
		{
			name: "sticky via fourth field on other",
			text: "o::r-xs",
			want: Entry{Kind: Other, Read: Set, Write: Clear, Exec: Set, Special: Set},
		},
		{
			name: "special dir codes",
			text: "g::r-xS",
			want: Entry{Kind: Group, Read: Set, Write: Clear, Exec: Set, Special: SpecialDirKeep},
		},
		{
			name: "special clear-on-dir code",
			text: "u::rwxZ",
			want: Entry{Kind: User, Read: Set, Write: Set, Exec: Set, Special: SpecialDirDrop},
		},
		{
			name: "bare name is a named user",
			text: "alice:rwx",
			want: Entry{Kind: User, Name: "alice", Read: Set, Write: Set, Exec: Set},
		},
		{
			name: "bare colon is the owning user",
			text: ":rwx",
			want: Entry{Kind: User, Read: Set, Write: Set, Exec: Set},
		},
		{
			name:  "other with name",
			text:  "o:alice:rwx",
			error: errors.ErrSubjectName,
		},
		{
			name:  "mask with name",
			text:  "m:wheel:rwx",
			error: errors.ErrSubjectName,
		},
		{
			name:  "named user with fourth field",
			text:  "u:alice:rwxs",
			error: errors.ErrSpecialField,
		},
		{
			name:  "default entry with fourth field",
			text:  "d:u::rwxs",
			error: errors.ErrSpecialField,
		},
		{
			name:  "mask with fourth field",
			text:  "m::rwxs",
			error: errors.ErrSpecialField,
		},
		{
			name:  "invalid read char",
			text:  "u::xwx",
			error: errors.ErrPermissionCode,
		},
		{
			name:  "invalid exec char",
			text:  "u::rwZ",
			error: errors.ErrPermissionCode,
		},
		{
			name:  "invalid special char",
			text:  "u::rwxX",
			error: errors.ErrPermissionCode,
		},
		{
			name:  "too short",
			text:  "u::rw",
			error: errors.ErrPermissionLength,
		},
		{
			name:  "empty",
			text:  "",
			error: errors.ErrPermissionLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntry(tt.text)
			if tt.error != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.error)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStateEntry(t *testing.T) {
	tests := []struct {
		name string
		text string
		mode fs.FileMode
		want Entry
	}{
		{
			name: "owning user with setuid set",
			text: "user::rwx",
			mode: 0o755 | fs.ModeSetuid,
			want: Entry{Kind: User, Read: Set, Write: Set, Exec: Set, Special: Set},
		},
		{
			name: "owning group without setgid",
			text: "group::r-x",
			mode: 0o755,
			want: Entry{Kind: Group, Read: Set, Write: Clear, Exec: Set, Special: Clear},
		},
		{
			name: "other with sticky",
			text: "other::r-x",
			mode: 0o1755 | fs.ModeSticky,
			want: Entry{Kind: Other, Read: Set, Write: Clear, Exec: Set, Special: Set},
		},
		{
			name: "named user ignores special bits",
			text: "user:backup:r--",
			mode: 0o755 | fs.ModeSetuid,
			want: Entry{Kind: User, Name: "backup", Read: Set, Write: Clear, Exec: Clear},
		},
		{
			name: "effective annotation ignored",
			text: "group:staff:rwx\t#effective:r-x",
			mode: 0o775,
			want: Entry{Kind: Group, Name: "staff", Read: Set, Write: Set, Exec: Set},
		},
		{
			name: "default entry never carries special",
			text: "default:user::rwx",
			mode: 0o755 | fs.ModeSetuid,
			want: Entry{Kind: User, Default: true, Read: Set, Write: Set, Exec: Set},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStateEntry(tt.text, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntryKey(t *testing.T) {
	tests := []struct {
		text string
		key  string
	}{
		{"u::rwx", "u:"},
		{"g::rwx", "g:"},
		{"o::rwx", "o:"},
		{"m::rwx", "m:"},
		{"u:alice:rwx", "u:alice"},
		{"g:staff:rwx", "g:staff"},
		{"d:u::rwx", "d:u:"},
		{"d:g:staff:rwx", "d:g:staff"},
	}
	for _, tt := range tests {
		e, err := ParseEntry(tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.key, e.Key(), "key of %q", tt.text)
	}
}

// Serialization reconstructs the same subject and preserves unspecified
// fields, so parsing the output yields the original entry.
func TestEntryRoundTrip(t *testing.T) {
	texts := []string{
		"u::rwX-",
		"g::r-XD",
		"o::r-X-",
		"u::***",
		"u::rwxs",
		"g::r-xS",
		"o::---Z",
		"u:alice:rwx",
		"g:staff:*w-",
		"m::rwx",
		"d:u::rwx",
		"d:g::r-x",
		"d:u:alice:r--",
	}
	for _, text := range texts {
		e, err := ParseEntry(text)
		require.NoError(t, err, "parsing %q", text)

		back, err := ParseEntry(e.String())
		require.NoError(t, err, "reparsing %q", e.String())
		assert.Equal(t, e, back, "round trip of %q via %q", text, e.String())
	}
}

func TestParse(t *testing.T) {
	a, err := Parse("u::rwX-,g::r-XD,o::r-X-,d:u::rwx,d:g::r-x,d:o::r-x")
	require.NoError(t, err)
	assert.Len(t, a, 6)
	assert.Contains(t, a, "u:")
	assert.Contains(t, a, "d:o:")
	assert.Equal(t, ExecDirInherit, a["g:"].Exec)

	// later duplicate key wins
	a, err = Parse("u::rwx,u::r--")
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, Clear, a["u:"].Write)

	_, err = Parse("u::rwx,bogus")
	assert.ErrorIs(t, err, errors.ErrPermissionLength)
}

func TestParseListing(t *testing.T) {
	listing := "# file: somedir\n" +
		"# owner: root\n" +
		"# group: root\n" +
		"# flags: s--\n" +
		"user::rwx\n" +
		"user:backup:r-x\n" +
		"group::r-x\n" +
		"mask::r-x\n" +
		"other::---\n" +
		"default:user::rwx\n" +
		"default:group::r-x\n" +
		"default:other::---\n" +
		"\n"

	a, err := ParseListing(listing, fs.ModeDir|fs.ModeSetuid|0o755)
	require.NoError(t, err)
	assert.Len(t, a, 8)

	owner := a["u:"]
	assert.Equal(t, Set, owner.Special, "setuid bit should close the owner's fourth field")
	group := a["g:"]
	assert.Equal(t, Clear, group.Special)
	assert.Equal(t, Clear, a["o:"].Special)
	assert.Equal(t, Unspecified, a["m:"].Special)
	assert.Equal(t, Unspecified, a["d:u:"].Special)
	assert.Equal(t, Clear, a["u:backup"].Write)
}
