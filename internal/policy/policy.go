// Package policy decides which methods of which instances get instrumented.
//
// A Policy is two-level: an allow-list of classes, and for each method name
// a predicate over the instance. The same class can serve several roles, so
// whether a method is wrapped may depend on the instance and not only its
// type. Several policies combine by union.
package policy

import (
	"sort"
)

// Owner is an instance whose class is known by name.
type Owner interface {
	ClassName() string
}

// Predicate decides eligibility for one instance.
type Predicate func(owner any) bool

// Always approves every instance.
func Always() Predicate {
	return func(any) bool { return true }
}

// IsA approves instances of type T.
func IsA[T any]() Predicate {
	return func(owner any) bool {
		_, ok := owner.(T)
		return ok
	}
}

// Policy is one declarative set of instrumentation rules.
type Policy struct {
	Name    string
	classes map[string]struct{}
	methods map[string]Predicate
}

// New creates a policy from eligible classes and per-method predicates. A nil
// predicate behaves like Always.
func New(name string, classes []string, methods map[string]Predicate) Policy {
	p := Policy{
		Name:    name,
		classes: make(map[string]struct{}, len(classes)),
		methods: make(map[string]Predicate, len(methods)),
	}
	for _, c := range classes {
		p.classes[c] = struct{}{}
	}
	for m, pred := range methods {
		if pred == nil {
			pred = Always()
		}
		p.methods[m] = pred
	}
	return p
}

// Includes reports whether class is eligible
func (p Policy) Includes(class string) bool {
	_, ok := p.classes[class]
	return ok
}

// Select reports whether method on owner should be instrumented.
func (p Policy) Select(owner Owner, method string) bool {
	if owner == nil || !p.Includes(owner.ClassName()) {
		return false
	}
	pred, ok := p.methods[method]
	if !ok {
		return false
	}
	return pred(owner)
}

// Classes returns the eligible classes in name order
func (p Policy) Classes() []string {
	return sortedSet(p.classes)
}

// Methods returns the method names the policy has predicates for, in name order
func (p Policy) Methods() []string {
	names := make([]string, 0, len(p.methods))
	for m := range p.methods {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

// Set is a union of policies: a method is selected if any policy selects it.
type Set []Policy

// Union combines policies
func Union(policies ...Policy) Set {
	return append(Set(nil), policies...)
}

// With returns a new set that also contains policies
func (s Set) With(policies ...Policy) Set {
	out := make(Set, 0, len(s)+len(policies))
	out = append(out, s...)
	return append(out, policies...)
}

// Select reports whether any policy selects method on owner
func (s Set) Select(owner Owner, method string) bool {
	for _, p := range s {
		if p.Select(owner, method) {
			return true
		}
	}
	return false
}

// Includes reports whether any policy lists class
func (s Set) Includes(class string) bool {
	for _, p := range s {
		if p.Includes(class) {
			return true
		}
	}
	return false
}

// Classes returns the union of eligible classes
func (s Set) Classes() []string {
	all := make(map[string]struct{})
	for _, p := range s {
		for c := range p.classes {
			all[c] = struct{}{}
		}
	}
	return sortedSet(all)
}

// MethodsFor returns the method names selected for owner, in name order
func (s Set) MethodsFor(owner Owner) []string {
	selected := make(map[string]struct{})
	for _, p := range s {
		for m := range p.methods {
			if p.Select(owner, m) {
				selected[m] = struct{}{}
			}
		}
	}
	return sortedSet(selected)
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
