// Package acl implements the permission grammar shared by the policy
// resolver and the diff engine: access control entries (ACEs), access
// control lists keyed by canonical subject, and the parsers for both the
// policy string form and the current-state listing form.
package acl

import (
	"io/fs"
	"strings"
)

// Kind is the subject class of an entry. Owning user/group and named
// user/group share a Kind and are distinguished by the Name field.
type Kind int

const (
	User Kind = iota
	Group
	Other
	Mask
)

func (k Kind) char() byte {
	switch k {
	case Group:
		return 'g'
	case Other:
		return 'o'
	case Mask:
		return 'm'
	default:
		return 'u'
	}
}

// Perm is one permission field of an entry. Values above Set are the
// directory/file-sensitive codes and must be resolved against the target
// before comparison (see engine.resolveExec and engine.resolveSpecial).
type Perm int8

const (
	Clear       Perm = iota - 1 // '-'
	Unspecified                 // '*', leave unchanged
	Set                         // 'r'/'w'/'x'/'s'
)

// Conditional execute codes (position 3).
const (
	ExecDirInherit Perm = iota + 2 // 'X': set on dirs; on files copy the owner's execute bit
	ExecDirOnly                    // 'D': set on dirs, clear on files
)

// Conditional special-bit codes (position 4).
const (
	SpecialDirKeep Perm = iota + 2 // 'S': set on dirs, unchanged on files
	SpecialDirDrop                 // 'Z': clear on dirs, unchanged on files
	SpecialDirOnly                 // 'D': set on dirs, clear on files
)

// Canonical keys of the standard (non-default, unnamed) entries.
const (
	KeyOwningUser  = "u:"
	KeyOwningGroup = "g:"
	KeyOther       = "o:"
	KeyMask        = "m:"
)

// Entry is a single ACE. A parsed policy entry may carry Unspecified
// fields; an entry parsed from a current-state listing is fully resolved.
type Entry struct {
	Kind    Kind
	Name    string
	Default bool

	Read    Perm
	Write   Perm
	Exec    Perm
	Special Perm
}

// Key returns the canonical subject key, e.g. "u:", "d:g:backup", "m:".
// Entries within an ACL are unique by this key.
func (e Entry) Key() string {
	var b strings.Builder
	if e.Default {
		b.WriteString("d:")
	}
	b.WriteByte(e.Kind.char())
	b.WriteByte(':')
	b.WriteString(e.Name)
	return b.String()
}

// allowsSpecial reports whether the entry may carry a fourth permission
// field. Only the non-default owning user, owning group and other entries
// map onto the setuid/setgid/sticky bits.
func (e Entry) allowsSpecial() bool {
	if e.Default || e.Name != "" {
		return false
	}
	return e.Kind == User || e.Kind == Group || e.Kind == Other
}

// specialBit returns the mode bit backing the entry's fourth field.
func (e Entry) specialBit() fs.FileMode {
	switch e.Kind {
	case User:
		return fs.ModeSetuid
	case Group:
		return fs.ModeSetgid
	default:
		return fs.ModeSticky
	}
}

// String serializes the entry in policy form. Unspecified fields render
// as '*'; the fourth field is omitted when unspecified.
func (e Entry) String() string {
	var b strings.Builder
	if e.Default {
		b.WriteString("d:")
	}
	b.WriteByte(e.Kind.char())
	b.WriteByte(':')
	b.WriteString(e.Name)
	b.WriteByte(':')
	b.WriteByte(permChar(e.Read, 'r'))
	b.WriteByte(permChar(e.Write, 'w'))
	b.WriteByte(execChar(e.Exec))
	if e.allowsSpecial() && e.Special != Unspecified {
		b.WriteByte(specialChar(e.Special))
	}
	return b.String()
}

func permChar(p Perm, set byte) byte {
	switch p {
	case Set:
		return set
	case Clear:
		return '-'
	default:
		return '*'
	}
}

func execChar(p Perm) byte {
	switch p {
	case ExecDirInherit:
		return 'X'
	case ExecDirOnly:
		return 'D'
	default:
		return permChar(p, 'x')
	}
}

func specialChar(p Perm) byte {
	switch p {
	case SpecialDirKeep:
		return 'S'
	case SpecialDirDrop:
		return 'Z'
	case SpecialDirOnly:
		return 'D'
	default:
		return permChar(p, 's')
	}
}
