// Package permission defines the permission vocabulary shared by modules
// and roles.
package permission

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Name is a single permission, e.g. VIEW or EMPLOYEES_EDIT_FULL.
type Name string

// Permissions used by the built-in catalog. Modules may declare others.
const (
	View              Name = "VIEW"
	ViewList          Name = "VIEW_LIST"
	Create            Name = "CREATE"
	Edit              Name = "EDIT"
	Delete            Name = "DELETE"
	Assign            Name = "ASSIGN"
	Review            Name = "REVIEW"
	Transfer          Name = "TRANSFER"
	Export            Name = "EXPORT"
	EmployeesView     Name = "EMPLOYEES_VIEW"
	EmployeesEdit     Name = "EMPLOYEES_EDIT"
	EmployeesEditFull Name = "EMPLOYEES_EDIT_FULL"
)

var namePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Normalize trims and upper-cases a raw permission name.
func Normalize(raw string) Name {
	return Name(strings.ToUpper(strings.TrimSpace(raw)))
}

// Parse normalizes raw and checks it against the naming rule.
func Parse(raw string) (Name, error) {
	n := Normalize(raw)
	if !n.Valid() {
		return "", fmt.Errorf("permission: invalid name %q", raw)
	}
	return n, nil
}

// Valid reports whether n follows the naming rule.
func (n Name) Valid() bool { return namePattern.MatchString(string(n)) }

func (n Name) String() string { return string(n) }

// Set is an unordered collection of permission names.
type Set map[Name]struct{}

// NewSet builds a set from names.
func NewSet(names ...Name) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// FromStrings normalizes raw names into a set, skipping blanks.
func FromStrings(raw []string) Set {
	s := make(Set, len(raw))
	for _, r := range raw {
		if n := Normalize(r); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Has reports membership.
func (s Set) Has(n Name) bool {
	_, ok := s[n]
	return ok
}

// Add inserts names into the set.
func (s Set) Add(names ...Name) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

// Union adds every member of other.
func (s Set) Union(other Set) {
	for n := range other {
		s[n] = struct{}{}
	}
}

// Missing returns the members of s not present in vocabulary, sorted.
func (s Set) Missing(vocabulary Set) []Name {
	var out []Name
	for n := range s {
		if !vocabulary.Has(n) {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for n := range s {
		c[n] = struct{}{}
	}
	return c
}

// Equal reports whether both sets have the same members.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for n := range s {
		if !other.Has(n) {
			return false
		}
	}
	return true
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []Name {
	out := make([]Name, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Strings returns the members as sorted strings, for storage columns.
func (s Set) Strings() []string {
	out := make([]string, 0, len(s))
	for _, n := range s.Sorted() {
		out = append(out, string(n))
	}
	return out
}
