// Package policy loads the reserved-prefix policy files of a directory and
// resolves the effective policy table of any directory by merging the parent
// directory's resolved table into the local one, applying the pattern
// rewrite, priority and FINAL rules. Resolution is memoized per resolver;
// the scheduler gives every worker its own resolver.
package policy

// Section holds the directives of one path-pattern section. Empty strings
// mean the directive is absent.
type Section struct {
	Owner  string
	Group  string
	ACL    string
	DirACL string
	Final  bool
	Ignore bool
}

func (s *Section) clone() *Section {
	c := *s
	return &c
}

// Table is the policy table of one directory: path-pattern keys mapped to
// their directives, in definition order. Tables are never mutated after
// resolution.
type Table struct {
	sections map[string]*Section
	order    []string
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{sections: make(map[string]*Section)}
}

// Has reports whether the table defines the given pattern key.
func (t *Table) Has(key string) bool {
	_, ok := t.sections[key]
	return ok
}

// Get returns the section for key, or nil.
func (t *Table) Get(key string) *Section {
	return t.sections[key]
}

// Set defines or replaces the section for key, preserving first-definition
// order.
func (t *Table) Set(key string, s *Section) {
	if _, ok := t.sections[key]; !ok {
		t.order = append(t.order, key)
	}
	t.sections[key] = s
}

// Delete removes the section for key.
func (t *Table) Delete(key string) {
	if _, ok := t.sections[key]; !ok {
		return
	}
	delete(t.sections, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Keys returns the pattern keys in definition order.
func (t *Table) Keys() []string {
	return append([]string(nil), t.order...)
}

// Len returns the number of sections.
func (t *Table) Len() int {
	return len(t.sections)
}
