package signature

import (
	"github.com/agenttrace/instrument/internal/domain"
)

// SignatureProvider is implemented by adapters that erase a typed callable
// behind a generic call surface and still know the callable's real signature.
type SignatureProvider interface {
	CallSignature() domain.Signature
}

// GenericLookup reports whether a unit is a registered generic adapter method.
type GenericLookup interface {
	IsGeneric(unit domain.Unit) bool
}

// Target is the method being invoked: its owner, its unit and its declared signature.
type Target struct {
	Owner     any
	Unit      domain.Unit
	Signature domain.Signature
}

// Resolver produces the bound arguments recorded for an invocation.
type Resolver struct {
	generic GenericLookup
}

// NewResolver creates a resolver. A nil lookup disables the adapter override.
func NewResolver(lookup GenericLookup) *Resolver {
	return &Resolver{generic: lookup}
}

// Resolve binds args and kwargs for a call to t.
//
// When t is a registered generic adapter method, the owner's CallSignature is
// used instead of the method's own catch-all signature. A signature with no
// parameter names, or an adapter that cannot report one, yields a positional
// pseudo mapping rather than an error.
func (r *Resolver) Resolve(t Target, args []any, kwargs map[string]any) (*domain.BoundCall, error) {
	sig := t.Signature

	if r.generic != nil && r.generic.IsGeneric(t.Unit) {
		provider, ok := t.Owner.(SignatureProvider)
		if !ok {
			return PseudoBind(sig, args, kwargs), nil
		}
		sig = provider.CallSignature()
	}

	if sig.IsGeneric() {
		return PseudoBind(sig, args, kwargs), nil
	}
	return Bind(sig, args, kwargs)
}
