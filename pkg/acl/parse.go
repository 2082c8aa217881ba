package acl

import (
	"io/fs"
	"strings"

	"github.com/cperrin88/aclman/pkg/errors"
)

// ParseEntry parses an entry in policy form:
//
//	[default:][u[ser]|g[roup]|o[ther]|m[ask]][:<name>]:<perm3>[<perm4>]
//
// The fourth permission character is only accepted for the owning user,
// owning group and other entries.
func ParseEntry(text string) (Entry, error) {
	return parseEntry(text, nil)
}

// ParseStateEntry parses an entry line of a current-state listing (the
// getfacl output form). The fourth field is not part of the text; for the
// owning user, owning group and other entries it is derived from the
// setuid/setgid/sticky bits of mode. Anything after the permission triad
// (for example getfacl's "#effective:" annotations) is ignored.
func ParseStateEntry(text string, mode fs.FileMode) (Entry, error) {
	return parseEntry(text, &mode)
}

func parseEntry(text string, mode *fs.FileMode) (Entry, error) {
	var e Entry

	head, rest, _ := strings.Cut(text, ":")
	if head == "d" || head == "default" {
		e.Default = true
		head, rest, _ = strings.Cut(rest, ":")
	}

	switch head {
	case "u", "user":
		e.Kind = User
		head, rest, _ = strings.Cut(rest, ":")
	case "g", "group":
		e.Kind = Group
		head, rest, _ = strings.Cut(rest, ":")
	case "o", "other":
		e.Kind = Other
		head, rest, _ = strings.Cut(rest, ":")
		if head != "" {
			return Entry{}, errors.Wrapf(errors.ErrSubjectName, "other entry %q", text)
		}
	case "m", "mask":
		e.Kind = Mask
		head, rest, _ = strings.Cut(rest, ":")
		if head != "" {
			return Entry{}, errors.Wrapf(errors.ErrSubjectName, "mask entry %q", text)
		}
	default:
		// No recognized subject keyword: the token is a user name
		// (empty token means the owning user).
		e.Kind = User
	}
	e.Name = head

	code := rest
	if len(code) < 3 {
		return Entry{}, errors.Wrapf(errors.ErrPermissionLength, "entry %q", text)
	}

	var err error
	if e.Read, err = parseReadChar(code[0]); err != nil {
		return Entry{}, errors.Wrapf(err, "entry %q", text)
	}
	if e.Write, err = parseWriteChar(code[1]); err != nil {
		return Entry{}, errors.Wrapf(err, "entry %q", text)
	}
	if e.Exec, err = parseExecChar(code[2]); err != nil {
		return Entry{}, errors.Wrapf(err, "entry %q", text)
	}

	switch {
	case mode != nil:
		// Current-state form: the special bit comes from the mode, not
		// from the text.
		if e.allowsSpecial() {
			if *mode&e.specialBit() != 0 {
				e.Special = Set
			} else {
				e.Special = Clear
			}
		}
	case len(code) > 3:
		if !e.allowsSpecial() {
			return Entry{}, errors.Wrapf(errors.ErrSpecialField, "entry %q", text)
		}
		if e.Special, err = parseSpecialChar(code[3]); err != nil {
			return Entry{}, errors.Wrapf(err, "entry %q", text)
		}
	}

	return e, nil
}

func parseReadChar(c byte) (Perm, error) {
	switch c {
	case 'r':
		return Set, nil
	case '-':
		return Clear, nil
	case '*':
		return Unspecified, nil
	}
	return 0, errors.Wrapf(errors.ErrPermissionCode, "expected one of \"r-*\", got %q", string(c))
}

func parseWriteChar(c byte) (Perm, error) {
	switch c {
	case 'w':
		return Set, nil
	case '-':
		return Clear, nil
	case '*':
		return Unspecified, nil
	}
	return 0, errors.Wrapf(errors.ErrPermissionCode, "expected one of \"w-*\", got %q", string(c))
}

func parseExecChar(c byte) (Perm, error) {
	switch c {
	case 'x':
		return Set, nil
	case '-':
		return Clear, nil
	case '*':
		return Unspecified, nil
	case 'X':
		return ExecDirInherit, nil
	case 'D':
		return ExecDirOnly, nil
	}
	return 0, errors.Wrapf(errors.ErrPermissionCode, "expected one of \"x-*XD\", got %q", string(c))
}

func parseSpecialChar(c byte) (Perm, error) {
	switch c {
	case 's':
		return Set, nil
	case '-':
		return Clear, nil
	case '*':
		return Unspecified, nil
	case 'S':
		return SpecialDirKeep, nil
	case 'Z':
		return SpecialDirDrop, nil
	case 'D':
		return SpecialDirOnly, nil
	}
	return 0, errors.Wrapf(errors.ErrPermissionCode, "expected one of \"s-*SZD\", got %q", string(c))
}
