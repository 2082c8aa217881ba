package engine

import (
	"github.com/cperrin88/aclman/pkg/acl"
)

// opSet is the computed mutation set for one path, split by primitive.
// Apply order is fixed: mode deltas first, then removals, then
// modifications, then additions.
type opSet struct {
	mods     []string // symbolic mode deltas, e.g. "u+x", "g-s", "+t"
	removes  []string // canonical keys
	modifies []string // "key:triad"
	adds     []string // "key:triad"
}

func (s opSet) empty() bool {
	return len(s.mods) == 0 && len(s.removes) == 0 && len(s.modifies) == 0 && len(s.adds) == 0
}

// resolveExec resolves the conditional execute codes against the target.
// 'X' grants on directories; on files it copies the owning user's current
// execute bit (for the owner entry itself that is always a no-op). 'D'
// grants on directories and clears on files.
func resolveExec(p acl.Perm, isDir bool, ownerExec acl.Perm) acl.Perm {
	switch p {
	case acl.ExecDirInherit:
		if isDir {
			return acl.Set
		}
		return ownerExec
	case acl.ExecDirOnly:
		if isDir {
			return acl.Set
		}
		return acl.Clear
	}
	return p
}

// resolveSpecial resolves the conditional special-bit codes against the
// target. 'S' sets on directories and keeps files unchanged, 'Z' clears on
// directories and keeps files unchanged, 'D' sets on directories and clears
// on files.
func resolveSpecial(p acl.Perm, isDir bool) acl.Perm {
	switch p {
	case acl.SpecialDirKeep:
		if isDir {
			return acl.Set
		}
		return acl.Unspecified
	case acl.SpecialDirDrop:
		if isDir {
			return acl.Clear
		}
		return acl.Unspecified
	case acl.SpecialDirOnly:
		if isDir {
			return acl.Set
		}
		return acl.Clear
	}
	return p
}

var triadLetters = [3]byte{'r', 'w', 'x'}

// computeChanges diffs the open desired ACL against the closed current one.
// Fields left Unspecified keep their current value. In replace mode, current
// entries absent from the desired set are removed.
func computeChanges(cur, desired acl.ACL, isDir bool, replace bool) opSet {
	ownerExec := cur[acl.KeyOwningUser].Exec
	var s opSet

	for _, key := range desired.Keys() {
		want := desired[key]
		have, ok := cur[key]
		if !ok {
			s.adds = append(s.adds, key+":"+renderTriad(
				want.Read,
				want.Write,
				resolveExec(want.Exec, isDir, ownerExec),
			))
			continue
		}

		owning := key == acl.KeyOwningUser || key == acl.KeyOwningGroup || key == acl.KeyOther
		if owning {
			// The owning entries map onto plain mode bits and go through
			// chmod. The owning group's rwx is the exception: with an
			// extended ACL present, chmod g± would change the mask rather
			// than the group entry, so it goes through setfacl below.
			s.mods = append(s.mods, modeDeltas(key, want, have, isDir, ownerExec)...)
		}
		if key != acl.KeyOwningUser && key != acl.KeyOther {
			if triad, changed := mergeTriad(want, have, isDir, ownerExec); changed {
				s.modifies = append(s.modifies, key+":"+triad)
			}
		}
	}

	if replace {
		for _, key := range cur.Keys() {
			if _, ok := desired[key]; !ok {
				s.removes = append(s.removes, key)
			}
		}
	}

	return s
}

// modeDeltas computes the symbolic chmod deltas for an owning entry. For the
// owning user and other this covers all four fields; for the owning group
// only the setgid bit.
func modeDeltas(key string, want, have acl.Entry, isDir bool, ownerExec acl.Perm) []string {
	var mods []string
	subject := key[:1]

	if key != acl.KeyOwningGroup {
		fields := [3]struct{ want, have acl.Perm }{
			{want.Read, have.Read},
			{want.Write, have.Write},
			{resolveExec(want.Exec, isDir, ownerExec), have.Exec},
		}
		for i, f := range fields {
			if f.want != acl.Unspecified && f.want != f.have {
				mods = append(mods, subject+opChar(f.want)+string(triadLetters[i]))
			}
		}
	}

	special := resolveSpecial(want.Special, isDir)
	if special != acl.Unspecified && special != have.Special {
		if key == acl.KeyOther {
			mods = append(mods, opChar(special)+"t")
		} else {
			mods = append(mods, subject+opChar(special)+"s")
		}
	}
	return mods
}

// mergeTriad renders the effective triad of a desired entry over the current
// one and reports whether anything actually changes.
func mergeTriad(want, have acl.Entry, isDir bool, ownerExec acl.Perm) (string, bool) {
	resolved := [3]struct{ want, have acl.Perm }{
		{want.Read, have.Read},
		{want.Write, have.Write},
		{resolveExec(want.Exec, isDir, ownerExec), have.Exec},
	}

	changed := false
	var triad [3]byte
	for i, f := range resolved {
		effective := f.want
		if effective == acl.Unspecified {
			effective = f.have
		}
		triad[i] = triadChar(effective, triadLetters[i])
		if f.want != acl.Unspecified && f.want != f.have {
			changed = true
		}
	}
	return string(triad[:]), changed
}

// renderTriad renders an added entry's triad. An unspecified field grants
// the permission.
func renderTriad(read, write, exec acl.Perm) string {
	return string([]byte{
		triadChar(read, 'r'),
		triadChar(write, 'w'),
		triadChar(exec, 'x'),
	})
}

func triadChar(p acl.Perm, letter byte) byte {
	if p == acl.Clear {
		return '-'
	}
	return letter
}

func opChar(p acl.Perm) string {
	if p == acl.Clear {
		return "-"
	}
	return "+"
}
