package domain

// Argument is one bound parameter.
type Argument struct {
	Name      string `json:"name"`
	Value     any    `json:"value"`
	Defaulted bool   `json:"defaulted,omitempty"`
}

// BoundCall maps parameter names to the values of one invocation.
//
// Args follows the declaration order of Signature, which is the originating
// callable's signature and not necessarily the invoked wrapper's. Pseudo is
// set when no named signature was available and names are positional
// placeholders such as args[0].
type BoundCall struct {
	Signature Signature  `json:"signature"`
	Args      []Argument `json:"args"`
	Pseudo    bool       `json:"pseudo,omitempty"`
}

// Get returns the value bound to name
func (b *BoundCall) Get(name string) (any, bool) {
	if b == nil {
		return nil, false
	}
	for _, a := range b.Args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// Names returns the bound names in order
func (b *BoundCall) Names() []string {
	if b == nil {
		return nil
	}
	names := make([]string, len(b.Args))
	for i, a := range b.Args {
		names[i] = a.Name
	}
	return names
}

// Map returns the bindings as a map
func (b *BoundCall) Map() map[string]any {
	if b == nil {
		return nil
	}
	m := make(map[string]any, len(b.Args))
	for _, a := range b.Args {
		m[a.Name] = a.Value
	}
	return m
}

// Supplied returns the arguments the caller actually passed, skipping defaults
func (b *BoundCall) Supplied() []Argument {
	if b == nil {
		return nil
	}
	out := make([]Argument, 0, len(b.Args))
	for _, a := range b.Args {
		if !a.Defaulted {
			out = append(out, a)
		}
	}
	return out
}
