package shim

import (
	"context"

	"github.com/agenttrace/instrument/internal/domain"
	"github.com/agenttrace/instrument/internal/instrument"
	"github.com/agenttrace/instrument/internal/policy"
)

// Names of the adapter class and its only method.
const (
	ClassName  = "shim.App"
	MethodCall = "Call"
)

// AppClass is the method table shared by every App. Its Call method has the
// generic signature and forwards its arguments untouched.
var AppClass = newAppClass()

func newAppClass() *instrument.Class {
	c := instrument.NewClass(ClassName)
	c.Define(MethodCall, domain.GenericSignature(MethodCall),
		func(ctx context.Context, self any, args []any, kwargs map[string]any) (any, error) {
			return self.(*App).callable.Fn(ctx, args, kwargs)
		})
	return c
}

// App adapts one callable to the instrumentable Call surface. The callable
// is fixed at construction.
type App struct {
	callable Callable
}

// New wraps callable
func New(callable Callable) (*App, error) {
	if err := callable.Validate(); err != nil {
		return nil, err
	}
	return &App{callable: callable}, nil
}

// ClassName implements policy.Owner
func (a *App) ClassName() string { return ClassName }

// Class implements instrument.Object
func (a *App) Class() *instrument.Class { return AppClass }

// CallSignature reports the wrapped callable's declared signature.
func (a *App) CallSignature() domain.Signature {
	return a.callable.Signature
}

// Callable returns the wrapped callable
func (a *App) Callable() Callable {
	return a.callable
}

// Call invokes the wrapped callable through AppClass, so an installed
// wrapper sees the call.
func (a *App) Call(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	return AppClass.Invoke(ctx, a, MethodCall, args, kwargs)
}

// Policy selects App.Call for every App instance.
func Policy() policy.Policy {
	return policy.New("shim", []string{ClassName}, map[string]policy.Predicate{
		MethodCall: policy.IsA[*App](),
	})
}

// MarkGeneric registers App.Call with inst as a generic adapter method.
func MarkGeneric(inst *instrument.Instrumenter) {
	inst.MarkGeneric(AppClass, MethodCall)
}
