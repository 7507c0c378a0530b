package shim

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenttrace/instrument/internal/domain"
	"github.com/agenttrace/instrument/internal/instrument"
	apperrors "github.com/agenttrace/instrument/internal/pkg/errors"
	"github.com/agenttrace/instrument/internal/pkg/id"
	"github.com/agenttrace/instrument/internal/sink"
)

func upper() Callable {
	return Func1("upper", domain.Required("text"), func(_ context.Context, s string) (string, error) {
		return strings.ToUpper(s), nil
	})
}

func TestFunc(t *testing.T) {
	t.Run("positional and keyword", func(t *testing.T) {
		c := upper()
		out, err := c.Fn(context.Background(), []any{"hi"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "HI", out)

		out, err = c.Fn(context.Background(), nil, map[string]any{"text": "yo"})
		require.NoError(t, err)
		assert.Equal(t, "YO", out)
	})

	t.Run("type mismatch is a binding error", func(t *testing.T) {
		_, err := upper().Fn(context.Background(), []any{42}, nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsBinding(err))
		assert.Contains(t, err.Error(), "argument 'text' must be string, not int")
	})

	t.Run("defaults", func(t *testing.T) {
		c := Func2("repeat", domain.Required("s"), domain.Optional("n", 2),
			func(_ context.Context, s string, n int) (string, error) {
				return strings.Repeat(s, n), nil
			})
		out, err := c.Fn(context.Background(), []any{"ab"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "abab", out)
	})

	t.Run("three arguments", func(t *testing.T) {
		c := Func3("join", domain.Required("a"), domain.Required("b"), domain.Optional("sep", "-"),
			func(_ context.Context, a, b, sep string) (string, error) {
				return a + sep + b, nil
			})
		out, err := c.Fn(context.Background(), []any{"x", "y"}, map[string]any{"sep": "+"})
		require.NoError(t, err)
		assert.Equal(t, "x+y", out)
		assert.Equal(t, []string{"a", "b", "sep"}, c.Signature.Names())
	})

	t.Run("nil becomes zero value", func(t *testing.T) {
		c := Func1("describe", domain.Required("err"), func(_ context.Context, e error) (bool, error) {
			return e == nil, nil
		})
		out, err := c.Fn(context.Background(), []any{nil}, nil)
		require.NoError(t, err)
		assert.Equal(t, true, out)
	})
}

func TestNew(t *testing.T) {
	_, err := New(Callable{Signature: domain.NewSignature("f")})
	assert.True(t, apperrors.IsInvalidArgument(err))

	_, err = New(Declared(domain.NewSignature("f", domain.Required("a"), domain.Required("a")),
		func(context.Context, []any, map[string]any) (any, error) { return nil, nil }))
	assert.True(t, apperrors.IsInvalidArgument(err))

	app, err := New(upper())
	require.NoError(t, err)
	assert.Equal(t, ClassName, app.ClassName())
	assert.Same(t, AppClass, app.Class())
	assert.Equal(t, "upper", app.CallSignature().Name)
}

func TestApp_CallForwardsVerbatim(t *testing.T) {
	var gotArgs []any
	var gotKwargs map[string]any
	app, err := New(Generic("echo", func(_ context.Context, args []any, kwargs map[string]any) (any, error) {
		gotArgs, gotKwargs = args, kwargs
		return len(args), nil
	}))
	require.NoError(t, err)

	out, err := app.Call(context.Background(), []any{1, "two"}, map[string]any{"k": 3})
	require.NoError(t, err)
	assert.Equal(t, 2, out)
	assert.Equal(t, []any{1, "two"}, gotArgs)
	assert.Equal(t, map[string]any{"k": 3}, gotKwargs)
}

func TestPolicy(t *testing.T) {
	app, err := New(upper())
	require.NoError(t, err)

	p := Policy()
	assert.True(t, p.Select(app, MethodCall))
	assert.False(t, p.Select(app, "Other"))
	assert.Equal(t, []string{ClassName}, p.Classes())
}

func installed(t *testing.T) (*instrument.Instrumenter, *sink.Memory) {
	t.Helper()
	mem := sink.NewMemory()
	inst := instrument.New(instrument.Options{
		Registry: instrument.NewRegistry(),
		Sink:     mem,
		IDs:      &id.Sequence{},
	})
	MarkGeneric(inst)
	require.NoError(t, inst.Install(AppClass, MethodCall))
	t.Cleanup(func() {
		_ = inst.Uninstall(AppClass, MethodCall)
		_ = inst.Close(context.Background())
	})
	return inst, mem
}

func TestApp_RecordsRealParameterNames(t *testing.T) {
	inst, mem := installed(t)

	app, err := New(upper())
	require.NoError(t, err)

	out, err := app.Call(context.Background(), []any{"hello"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", out)

	require.NoError(t, inst.Flush(context.Background()))
	recs := mem.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, domain.NewUnit(ClassName, MethodCall), recs[0].Unit)
	assert.Equal(t, map[string]any{"text": "hello"}, recs[0].Bound.Map())
	assert.False(t, recs[0].Bound.Pseudo)
	assert.Equal(t, "upper", recs[0].Bound.Signature.Name)
}

func TestApp_GenericCallableUsesPseudoNames(t *testing.T) {
	inst, mem := installed(t)

	app, err := New(Generic("any", func(_ context.Context, args []any, _ map[string]any) (any, error) {
		return args[0], nil
	}))
	require.NoError(t, err)

	_, err = app.Call(context.Background(), []any{"a", "b"}, map[string]any{"mode": "fast"})
	require.NoError(t, err)

	require.NoError(t, inst.Flush(context.Background()))
	rec := mem.Records()[0]
	assert.True(t, rec.Bound.Pseudo)
	assert.Equal(t, []string{"args[0]", "args[1]", "mode"}, rec.Bound.Names())
}

func TestApp_BindingFailureSkipsCallable(t *testing.T) {
	inst, mem := installed(t)

	ran := false
	app, err := New(Func1("f", domain.Required("x"), func(_ context.Context, x int) (int, error) {
		ran = true
		return x, nil
	}))
	require.NoError(t, err)

	_, err = app.Call(context.Background(), []any{1, 2}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsBinding(err))
	assert.False(t, ran)
	require.NoError(t, inst.Flush(context.Background()))
	assert.Zero(t, mem.Len())
}
