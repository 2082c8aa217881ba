package acl

import (
	"io/fs"
	"sort"
	"strings"
)

// ACL maps canonical entry keys to entries. An ACL parsed from a policy
// string is open (fields may be Unspecified); one parsed from a
// current-state listing is closed (every field concrete).
type ACL map[string]Entry

// Parse parses a comma-separated list of policy-form entries. A later
// entry with the same canonical key replaces an earlier one.
func Parse(text string) (ACL, error) {
	a := make(ACL)
	for _, part := range strings.Split(text, ",") {
		e, err := ParseEntry(part)
		if err != nil {
			return nil, err
		}
		a[e.Key()] = e
	}
	return a, nil
}

// ParseListing parses the current-state listing of a path (getfacl output)
// into a closed ACL. Blank lines and comment lines are skipped; mode
// supplies the special-bit state of the owning entries.
func ParseListing(text string, mode fs.FileMode) (ACL, error) {
	a := make(ACL)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := ParseStateEntry(line, mode)
		if err != nil {
			return nil, err
		}
		a[e.Key()] = e
	}
	return a, nil
}

// Keys returns the canonical keys in sorted order.
func (a ACL) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the ACL in policy form with entries in key order.
func (a ACL) String() string {
	parts := make([]string, 0, len(a))
	for _, k := range a.Keys() {
		parts = append(parts, a[k].String())
	}
	return strings.Join(parts, ",")
}
