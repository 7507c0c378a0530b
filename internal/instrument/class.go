package instrument

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/agenttrace/instrument/internal/domain"
	apperrors "github.com/agenttrace/instrument/internal/pkg/errors"
	"github.com/agenttrace/instrument/internal/policy"
)

// MethodFunc is the type-erased body of a method. self is the receiving instance.
type MethodFunc func(ctx context.Context, self any, args []any, kwargs map[string]any) (any, error)

// Method is one entry of a Class.
type Method struct {
	Unit      domain.Unit
	Signature domain.Signature
	Fn        MethodFunc

	// Original is the method a wrapper replaced; nil for unwrapped methods.
	Original *Method

	marker *Marker
}

// IsWrapped reports whether m is an instrumentation wrapper
func (m *Method) IsWrapped() bool {
	return m.Original != nil
}

// Marker returns the instrumentation marker of a wrapper, or nil
func (m *Method) Marker() *Marker {
	return m.marker
}

// Unwrap follows Original pointers down to the undecorated method
func (m *Method) Unwrap() *Method {
	for m.Original != nil {
		m = m.Original
	}
	return m
}

// Class is the method table of one instrumentable type.
type Class struct {
	name string

	mu      sync.RWMutex
	methods map[string]*Method
}

// NewClass creates an empty method table
func NewClass(name string) *Class {
	return &Class{
		name:    name,
		methods: make(map[string]*Method),
	}
}

// Name returns the class name
func (c *Class) Name() string {
	return c.name
}

// Define declares a method. It panics on a nil body or an invalid signature,
// which are programming errors in the declaring package.
func (c *Class) Define(name string, sig domain.Signature, fn MethodFunc) *Method {
	if fn == nil {
		panic(fmt.Sprintf("instrument: %s.%s defined with nil body", c.name, name))
	}
	if err := sig.Validate(); err != nil {
		panic(fmt.Sprintf("instrument: %s.%s: %v", c.name, name, err))
	}
	if sig.Name == "" {
		sig.Name = name
	}

	m := &Method{
		Unit:      domain.NewUnit(c.name, name),
		Signature: sig,
		Fn:        fn,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods[name] = m
	return m
}

// Method returns the current entry for name, which may be a wrapper
func (c *Class) Method(name string) (*Method, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.methods[name]
	return m, ok
}

// MethodNames returns the defined method names in order
func (c *Class) MethodNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke calls method name on self through the table
func (c *Class) Invoke(ctx context.Context, self any, name string, args []any, kwargs map[string]any) (any, error) {
	m, ok := c.Method(name)
	if !ok {
		return nil, apperrors.MethodNotFound(c.name, name)
	}
	return m.Fn(ctx, self, args, kwargs)
}

// swap replaces the entry for name with next if it is still old.
func (c *Class) swap(name string, old, next *Method) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.methods[name] != old {
		return false
	}
	c.methods[name] = next
	return true
}

// Object is an instance that calls its methods through a Class.
type Object interface {
	policy.Owner
	Class() *Class
}
