package domain

import (
	"fmt"
	"strings"
)

// Default names of the collectors on a generic signature.
const (
	DefaultVarArgs   = "args"
	DefaultVarKwargs = "kwargs"
)

// Param is one declared, named parameter.
type Param struct {
	Name       string `json:"name"`
	Default    any    `json:"default,omitempty"`
	HasDefault bool   `json:"hasDefault,omitempty"`
}

// Required declares a parameter without a default
func Required(name string) Param {
	return Param{Name: name}
}

// Optional declares a parameter with a default value
func Optional(name string, def any) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

// Signature is the declared parameter list of a callable.
//
// VarArgs and VarKwargs name the collectors for surplus positional and
// keyword arguments; empty means the callable does not accept them.
type Signature struct {
	Name      string  `json:"name,omitempty"`
	Params    []Param `json:"params"`
	VarArgs   string  `json:"varArgs,omitempty"`
	VarKwargs string  `json:"varKwargs,omitempty"`
}

// NewSignature creates a signature from explicit parameters
func NewSignature(name string, params ...Param) Signature {
	return Signature{Name: name, Params: params}
}

// GenericSignature is the signature of a type-erased call surface: no named
// parameters, only catch-all collectors.
func GenericSignature(name string) Signature {
	return Signature{Name: name, VarArgs: DefaultVarArgs, VarKwargs: DefaultVarKwargs}
}

// IsGeneric reports whether the signature carries no parameter names at all.
func (s Signature) IsGeneric() bool {
	return len(s.Params) == 0 && (s.VarArgs != "" || s.VarKwargs != "")
}

// IsVariadic reports whether the signature accepts surplus arguments.
func (s Signature) IsVariadic() bool {
	return s.VarArgs != "" || s.VarKwargs != ""
}

// Names returns the declared parameter names in order
func (s Signature) Names() []string {
	names := make([]string, len(s.Params))
	for i, p := range s.Params {
		names[i] = p.Name
	}
	return names
}

// Param looks up a declared parameter by name
func (s Signature) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Validate checks that parameter and collector names are non-empty and unique.
func (s Signature) Validate() error {
	seen := make(map[string]struct{}, len(s.Params)+2)
	names := s.Names()
	if s.VarArgs != "" {
		names = append(names, s.VarArgs)
	}
	if s.VarKwargs != "" {
		names = append(names, s.VarKwargs)
	}

	optionalSeen := false
	for i, name := range names {
		if name == "" {
			return fmt.Errorf("signature %s: empty parameter name", s.Name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("signature %s: duplicate parameter %q", s.Name, name)
		}
		seen[name] = struct{}{}

		if i < len(s.Params) {
			if s.Params[i].HasDefault {
				optionalSeen = true
			} else if optionalSeen {
				return fmt.Errorf("signature %s: required parameter %q follows a parameter with a default", s.Name, name)
			}
		}
	}
	return nil
}

// String renders the signature in call form, e.g. f(prompt, n=3, *args, **kwargs)
func (s Signature) String() string {
	parts := make([]string, 0, len(s.Params)+2)
	for _, p := range s.Params {
		if p.HasDefault {
			parts = append(parts, fmt.Sprintf("%s=%v", p.Name, p.Default))
		} else {
			parts = append(parts, p.Name)
		}
	}
	if s.VarArgs != "" {
		parts = append(parts, "*"+s.VarArgs)
	}
	if s.VarKwargs != "" {
		parts = append(parts, "**"+s.VarKwargs)
	}
	return s.Name + "(" + strings.Join(parts, ", ") + ")"
}
