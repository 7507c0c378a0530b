// Package shim erases typed application functions behind one generic call
// surface so any function can be instrumented the same way.
//
// A Callable keeps the function's declared Signature next to its erased
// body. App exposes a single generic method, Call, and reports the wrapped
// callable's signature through CallSignature so records still carry the real
// parameter names.
package shim

import (
	"context"
	"fmt"

	"github.com/agenttrace/instrument/internal/domain"
	apperrors "github.com/agenttrace/instrument/internal/pkg/errors"
	"github.com/agenttrace/instrument/internal/signature"
)

// Body is the erased form of an application function.
type Body func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// Callable is an erased function together with its declared signature.
type Callable struct {
	Signature domain.Signature
	Fn        Body
}

// Validate checks that the callable can be wrapped
func (c Callable) Validate() error {
	if c.Fn == nil {
		return apperrors.InvalidArgument("callable has no body")
	}
	if err := c.Signature.Validate(); err != nil {
		return apperrors.InvalidArgument(err.Error())
	}
	return nil
}

// Declared wraps fn with an explicit signature. fn receives the raw arguments.
func Declared(sig domain.Signature, fn Body) Callable {
	return Callable{Signature: sig, Fn: fn}
}

// Generic wraps a function that takes anything. Its records use positional
// placeholder names.
func Generic(name string, fn Body) Callable {
	return Callable{Signature: domain.GenericSignature(name), Fn: fn}
}

// Func1 erases a one-argument function.
func Func1[A, R any](name string, p domain.Param, fn func(context.Context, A) (R, error)) Callable {
	sig := domain.NewSignature(name, p)
	return Callable{
		Signature: sig,
		Fn: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			b, err := signature.Bind(sig, args, kwargs)
			if err != nil {
				return nil, err
			}
			a, err := arg[A](sig, b, p.Name)
			if err != nil {
				return nil, err
			}
			return fn(ctx, a)
		},
	}
}

// Func2 erases a two-argument function.
func Func2[A, B, R any](name string, p1, p2 domain.Param, fn func(context.Context, A, B) (R, error)) Callable {
	sig := domain.NewSignature(name, p1, p2)
	return Callable{
		Signature: sig,
		Fn: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			b, err := signature.Bind(sig, args, kwargs)
			if err != nil {
				return nil, err
			}
			a, err := arg[A](sig, b, p1.Name)
			if err != nil {
				return nil, err
			}
			bb, err := arg[B](sig, b, p2.Name)
			if err != nil {
				return nil, err
			}
			return fn(ctx, a, bb)
		},
	}
}

// Func3 erases a three-argument function.
func Func3[A, B, C, R any](name string, p1, p2, p3 domain.Param, fn func(context.Context, A, B, C) (R, error)) Callable {
	sig := domain.NewSignature(name, p1, p2, p3)
	return Callable{
		Signature: sig,
		Fn: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			b, err := signature.Bind(sig, args, kwargs)
			if err != nil {
				return nil, err
			}
			a, err := arg[A](sig, b, p1.Name)
			if err != nil {
				return nil, err
			}
			bb, err := arg[B](sig, b, p2.Name)
			if err != nil {
				return nil, err
			}
			c, err := arg[C](sig, b, p3.Name)
			if err != nil {
				return nil, err
			}
			return fn(ctx, a, bb, c)
		},
	}
}

// arg converts the value bound to name into T. A nil value becomes T's zero value.
func arg[T any](sig domain.Signature, b *domain.BoundCall, name string) (T, error) {
	var zero T
	v, _ := b.Get(name)
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, apperrors.Bindingf("%s() argument '%s' must be %T, not %T", sig.Name, name, zero, v).
			WithDetail("signature", sig.String())
	}
	return t, nil
}

// String renders the callable by its signature
func (c Callable) String() string {
	return fmt.Sprintf("callable %s", c.Signature)
}
