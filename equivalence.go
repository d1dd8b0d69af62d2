package bastion

import (
	"slices"

	"github.com/xraph/bastion/permission"
)

// AnyModule keys equivalence rules that apply in every module.
const AnyModule = "*"

// Equivalences maps module → granted permission → permissions it also
// satisfies. Rules are single-hop: a permission satisfied through a rule
// does not trigger further rules.
type Equivalences map[string]map[permission.Name][]permission.Name

// DefaultEquivalences returns the shipped table: list-only access in the
// asekuracja module also satisfies VIEW.
func DefaultEquivalences() Equivalences {
	return Equivalences{
		"asekuracja": {
			permission.ViewList: {permission.View},
		},
	}
}

// Add registers a rule, creating intermediate maps as needed. Names are
// normalized the same way evaluated permissions are.
func (eq Equivalences) Add(module string, granted permission.Name, satisfies ...permission.Name) {
	granted = permission.Normalize(string(granted))
	if granted == "" {
		return
	}
	rules, ok := eq[module]
	if !ok {
		rules = make(map[permission.Name][]permission.Name)
		eq[module] = rules
	}
	for _, s := range satisfies {
		if n := permission.Normalize(string(s)); n != "" && !slices.Contains(rules[granted], n) {
			rules[granted] = append(rules[granted], n)
		}
	}
}

// normalized returns a copy of eq with every name normalized, so tables
// built as map literals behave like tables built with Add.
func (eq Equivalences) normalized() Equivalences {
	if eq == nil {
		return nil
	}
	out := make(Equivalences, len(eq))
	for module, rules := range eq {
		for granted, satisfies := range rules {
			out.Add(module, granted, satisfies...)
		}
	}
	return out
}

// satisfiedBy returns the granted permission whose rule satisfies want,
// checking module rules before AnyModule rules. Granted permissions are
// visited in sorted order so the result is deterministic.
func (eq Equivalences) satisfiedBy(module string, granted permission.Set, want permission.Name) (permission.Name, bool) {
	if len(eq) == 0 {
		return "", false
	}
	for _, scope := range []string{module, AnyModule} {
		rules := eq[scope]
		if len(rules) == 0 {
			continue
		}
		for _, g := range granted.Sorted() {
			for _, s := range rules[g] {
				if s == want {
					return g, true
				}
			}
		}
	}
	return "", false
}

// expand returns granted plus everything its rules satisfy.
func (eq Equivalences) expand(module string, granted permission.Set) permission.Set {
	out := granted.Clone()
	for _, scope := range []string{module, AnyModule} {
		for g := range granted {
			out.Add(eq[scope][g]...)
		}
	}
	return out
}
