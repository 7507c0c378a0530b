// Package signature binds call arguments to parameter names.
//
// Bind follows the usual rules of a keyword-capable call: positional
// arguments fill parameters in declaration order, keywords match by name,
// surplus goes to the variadic collectors when the signature has them, and
// unfilled parameters take their defaults. Resolver decides which signature
// a call should be bound against when the invoked method is a type-erased
// adapter.
package signature

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agenttrace/instrument/internal/domain"
	apperrors "github.com/agenttrace/instrument/internal/pkg/errors"
)

// Bind matches args and kwargs against sig.
func Bind(sig domain.Signature, args []any, kwargs map[string]any) (*domain.BoundCall, error) {
	values := make(map[string]any, len(sig.Params))
	var extraArgs []any

	for i, a := range args {
		if i < len(sig.Params) {
			values[sig.Params[i].Name] = a
			continue
		}
		if sig.VarArgs == "" {
			return nil, apperrors.Bindingf("%s takes %d positional arguments but %d were given",
				label(sig), len(sig.Params), len(args)).
				WithDetail("signature", sig.String())
		}
		extraArgs = append(extraArgs, a)
	}

	var extraKwargs map[string]any
	for _, name := range sortedKeys(kwargs) {
		v := kwargs[name]
		if _, declared := sig.Param(name); declared {
			if _, dup := values[name]; dup {
				return nil, apperrors.Bindingf("%s got multiple values for argument '%s'", label(sig), name).
					WithDetail("signature", sig.String())
			}
			values[name] = v
			continue
		}
		if sig.VarKwargs == "" {
			return nil, apperrors.Bindingf("%s got an unexpected keyword argument '%s'", label(sig), name).
				WithDetail("signature", sig.String())
		}
		if extraKwargs == nil {
			extraKwargs = make(map[string]any)
		}
		extraKwargs[name] = v
	}

	bound := &domain.BoundCall{
		Signature: sig,
		Args:      make([]domain.Argument, 0, len(sig.Params)+2),
	}

	var missing []string
	for _, p := range sig.Params {
		if v, ok := values[p.Name]; ok {
			bound.Args = append(bound.Args, domain.Argument{Name: p.Name, Value: v})
			continue
		}
		if p.HasDefault {
			bound.Args = append(bound.Args, domain.Argument{Name: p.Name, Value: p.Default, Defaulted: true})
			continue
		}
		missing = append(missing, "'"+p.Name+"'")
	}
	if len(missing) > 0 {
		noun := "argument"
		if len(missing) > 1 {
			noun = "arguments"
		}
		return nil, apperrors.Bindingf("%s missing %d required %s: %s",
			label(sig), len(missing), noun, strings.Join(missing, ", ")).
			WithDetail("signature", sig.String())
	}

	if len(extraArgs) > 0 {
		bound.Args = append(bound.Args, domain.Argument{Name: sig.VarArgs, Value: extraArgs})
	}
	if len(extraKwargs) > 0 {
		bound.Args = append(bound.Args, domain.Argument{Name: sig.VarKwargs, Value: extraKwargs})
	}

	return bound, nil
}

// PseudoBind names arguments by position (args[0], args[1], ...) followed by
// keywords in name order. It never fails.
func PseudoBind(sig domain.Signature, args []any, kwargs map[string]any) *domain.BoundCall {
	bound := &domain.BoundCall{
		Signature: sig,
		Args:      make([]domain.Argument, 0, len(args)+len(kwargs)),
		Pseudo:    true,
	}

	prefix := sig.VarArgs
	if prefix == "" {
		prefix = domain.DefaultVarArgs
	}
	for i, a := range args {
		bound.Args = append(bound.Args, domain.Argument{Name: fmt.Sprintf("%s[%d]", prefix, i), Value: a})
	}
	for _, name := range sortedKeys(kwargs) {
		bound.Args = append(bound.Args, domain.Argument{Name: name, Value: kwargs[name]})
	}
	return bound
}

func label(sig domain.Signature) string {
	if sig.Name == "" {
		return "call"
	}
	return sig.Name + "()"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
