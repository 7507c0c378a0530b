package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignature_String(t *testing.T) {
	sig := NewSignature("complete", Required("prompt"), Optional("temperature", 0.7))
	sig.VarKwargs = "extra"
	assert.Equal(t, "complete(prompt, temperature=0.7, **extra)", sig.String())

	assert.Equal(t, "Call(*args, **kwargs)", GenericSignature("Call").String())
}

func TestSignature_IsGeneric(t *testing.T) {
	assert.True(t, GenericSignature("Call").IsGeneric())
	assert.True(t, GenericSignature("Call").IsVariadic())

	named := NewSignature("f", Required("prompt"))
	assert.False(t, named.IsGeneric())
	assert.False(t, named.IsVariadic())

	mixed := Signature{Name: "g", Params: []Param{Required("a")}, VarArgs: "rest"}
	assert.False(t, mixed.IsGeneric())
	assert.True(t, mixed.IsVariadic())
}

func TestSignature_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sig     Signature
		wantErr string
	}{
		{
			name: "valid",
			sig:  Signature{Name: "f", Params: []Param{Required("a"), Optional("b", 1)}, VarArgs: "args"},
		},
		{
			name:    "duplicate param",
			sig:     NewSignature("f", Required("a"), Required("a")),
			wantErr: `duplicate parameter "a"`,
		},
		{
			name:    "collector shadows param",
			sig:     Signature{Name: "f", Params: []Param{Required("args")}, VarArgs: "args"},
			wantErr: `duplicate parameter "args"`,
		},
		{
			name:    "empty name",
			sig:     NewSignature("f", Required("")),
			wantErr: "empty parameter name",
		},
		{
			name:    "required after optional",
			sig:     NewSignature("f", Optional("a", 1), Required("b")),
			wantErr: `required parameter "b" follows`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sig.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestBoundCall_Accessors(t *testing.T) {
	b := &BoundCall{
		Signature: NewSignature("f", Required("prompt"), Optional("n", 1)),
		Args: []Argument{
			{Name: "prompt", Value: "hello"},
			{Name: "n", Value: 1, Defaulted: true},
		},
	}

	v, ok := b.Get("prompt")
	assert.True(t, ok)
	assert.Equal(t, "hello", v)

	_, ok = b.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"prompt", "n"}, b.Names())
	assert.Equal(t, map[string]any{"prompt": "hello", "n": 1}, b.Map())
	assert.Equal(t, []Argument{{Name: "prompt", Value: "hello"}}, b.Supplied())

	var nilBound *BoundCall
	assert.Nil(t, nilBound.Map())
	_, ok = nilBound.Get("prompt")
	assert.False(t, ok)
}
