package instrument

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/agenttrace/instrument/internal/domain"
	apperrors "github.com/agenttrace/instrument/internal/pkg/errors"
	"github.com/agenttrace/instrument/internal/pkg/id"
	"github.com/agenttrace/instrument/internal/pkg/logger"
	"github.com/agenttrace/instrument/internal/policy"
	"github.com/agenttrace/instrument/internal/signature"
	"github.com/agenttrace/instrument/internal/sink"
)

// Options configures an Instrumenter.
type Options struct {
	// Registry holds the markers; nil uses DefaultRegistry.
	Registry *Registry
	// Sink receives records of calls made outside any Recording; nil drops them.
	Sink sink.Sink
	// AppID is stamped on records made outside any Recording.
	AppID  string
	Logger *zap.Logger
	IDs    id.Generator
	Clock  func() time.Time
	// BufferSize bounds the finished records waiting for delivery;
	// zero uses DefaultBufferSize.
	BufferSize int
}

// Instrumenter installs recording wrappers.
type Instrumenter struct {
	registry *Registry
	resolver *signature.Resolver
	sink     sink.Sink
	appID    string
	logger   *zap.Logger
	ids      id.Generator
	now      func() time.Time
	dispatch *dispatcher
}

// New creates an instrumenter
func New(opts Options) *Instrumenter {
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}
	if opts.IDs == nil {
		opts.IDs = id.Default
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	i := &Instrumenter{
		registry: opts.Registry,
		resolver: signature.NewResolver(opts.Registry),
		sink:     opts.Sink,
		appID:    opts.AppID,
		logger:   logger.OrNop(opts.Logger).Named("instrument"),
		ids:      opts.IDs,
		now:      opts.Clock,
	}
	i.dispatch = newDispatcher(opts.BufferSize, i.logger, i.deliver)
	return i
}

// Flush waits until every record finished so far has been handed to its
// sink, including records of wrappers this registry adopted from other
// instrumenters.
func (i *Instrumenter) Flush(ctx context.Context) error {
	seen := map[*dispatcher]bool{i.dispatch: true}
	errs := []error{i.dispatch.flush(ctx)}
	for _, m := range i.registry.Markers() {
		if m.owner == nil || seen[m.owner.dispatch] {
			continue
		}
		seen[m.owner.dispatch] = true
		errs = append(errs, m.owner.dispatch.flush(ctx))
	}
	return errors.Join(errs...)
}

// Close flushes and stops the delivery goroutine. Calls that finish after
// Close deliver their records synchronously.
func (i *Instrumenter) Close(ctx context.Context) error {
	return i.dispatch.close(ctx)
}

// Registry returns the marker registry
func (i *Instrumenter) Registry() *Registry {
	return i.registry
}

// Sink returns the default sink, which may be nil
func (i *Instrumenter) Sink() sink.Sink {
	return i.sink
}

// Resolver returns the signature resolver used by installed wrappers
func (i *Instrumenter) Resolver() *signature.Resolver {
	return i.resolver
}

// MarkGeneric flags c.method as a generic adapter method.
func (i *Instrumenter) MarkGeneric(c *Class, method string) {
	i.registry.MarkGeneric(domain.NewUnit(c.Name(), method))
}

// Install replaces c.method with a recording wrapper. It is a no-op when the
// method is already wrapped, and fails when c does not define method or a
// different class with the same name holds the unit in this registry.
func (i *Instrumenter) Install(c *Class, method string) error {
	current, ok := c.Method(method)
	if !ok {
		return apperrors.MethodNotFound(c.Name(), method)
	}

	existing, known := i.registry.Lookup(current.Unit)
	if known && existing.Class != c && existing.active() {
		return apperrors.UnitConflict(c.Name(), method)
	}

	if current.IsWrapped() {
		if current.marker != nil && (!known || existing.Wrapper != current) {
			i.registry.put(current.marker)
		}
		return nil
	}

	wrapper := &Method{
		Unit:      current.Unit,
		Signature: current.Signature,
		Original:  current,
	}
	wrapper.Fn = i.wrap(current)
	wrapper.marker = &Marker{
		Unit:        current.Unit,
		Class:       c,
		Original:    current,
		Wrapper:     wrapper,
		InstalledAt: i.now().UTC(),
		owner:       i,
	}

	if !c.swap(method, current, wrapper) {
		// Another installer won the race; its wrapper stays.
		return nil
	}
	i.registry.put(wrapper.marker)

	i.logger.Debug("method instrumented", zap.Stringer("unit", current.Unit))
	return nil
}

// Uninstall restores the method a wrapper replaced. Unwrapped methods are left alone.
func (i *Instrumenter) Uninstall(c *Class, method string) error {
	current, ok := c.Method(method)
	if !ok {
		return apperrors.MethodNotFound(c.Name(), method)
	}
	if !current.IsWrapped() {
		return nil
	}
	if c.swap(method, current, current.Original) {
		if m, ok := i.registry.Lookup(current.Unit); ok && m.Class == c {
			i.registry.remove(current.Unit)
		}
		i.logger.Debug("method restored", zap.Stringer("unit", current.Unit))
	}
	return nil
}

// Instrument installs wrappers on every method of obj's class that the
// policies select for obj. Methods a policy names but the class lacks are
// reported; the others are still installed.
func (i *Instrumenter) Instrument(obj Object, policies policy.Set) error {
	c := obj.Class()
	var errs []error
	for _, name := range policies.MethodsFor(obj) {
		if err := i.Install(c, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
