/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitykit

import (
	"fmt"
	"log/slog"

	"github.com/suparena/entitykit/errors"
	"github.com/suparena/entitykit/object"
	"github.com/suparena/entitykit/registry"
)

// Factory builds entity instances for logical names registered in a
// Registry. It is safe for concurrent use.
type Factory struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithFactoryLogger sets the logger used to report rejected constructions.
func WithFactoryLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFactory creates a Factory over reg. A nil reg uses registry.Default().
func NewFactory(reg *registry.Registry, opts ...FactoryOption) *Factory {
	if reg == nil {
		reg = registry.Default()
	}
	f := &Factory{
		registry: reg,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Registry returns the registry the factory resolves names against.
func (f *Factory) Registry() *registry.Registry {
	return f.registry
}

// CreateFresh builds a brand-new local entity of the type active for name,
// then lets the type populate its defaults. The result may be dirty.
func (f *Factory) CreateFresh(name string) (object.Object, error) {
	d, o, err := f.construct(name)
	if err != nil {
		return nil, err
	}
	object.SetEntityType(o, name)
	if p, ok := o.(object.DefaultsPopulator); ok {
		p.SetDefaultValues()
	}
	f.logger.Debug("created entity", "name", name, "type", d.Type.String(), "dirty", o.IsDirty())
	return o, nil
}

// CreateReference builds a clean entity standing for the remote row id.
// Defaults are not applied and no field data is loaded. If the type's
// constructor leaves the instance dirty, CreateReference fails with a
// ConstructionInvariantError instead of returning it.
func (f *Factory) CreateReference(name, id string) (object.Object, error) {
	d, o, err := f.construct(name)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errors.NewValidationError("objectId", "a reference requires a remote id")
	}
	if o.IsDirty() {
		var keys []string
		if dk, ok := o.(interface{ DirtyKeys() []string }); ok {
			keys = dk.DirtyKeys()
		}
		f.logger.Warn("constructor dirtied reference instance",
			"name", name, "type", d.Type.String(), "keys", keys)
		return nil, errors.NewConstructionInvariantError(name, d.Type.String(), keys)
	}
	object.SetEntityType(o, name)
	object.AttachRemote(o, id)
	return o, nil
}

// construct resolves name and runs its constructor. The registry is not
// locked while the constructor runs.
func (f *Factory) construct(name string) (*registry.Descriptor, object.Object, error) {
	d, ok := f.registry.Resolve(name)
	if !ok {
		return nil, nil, errors.NewUnregisteredTypeError(name)
	}
	o := d.New()
	if o == nil {
		return nil, nil, fmt.Errorf("constructor for %s (%q) returned nil: %w", d.Type, name, errors.ErrConstructionInvariant)
	}
	if !object.Usable(o) {
		return nil, nil, fmt.Errorf("constructor for %s (%q) left object.Base behind a nil embedded pointer: %w",
			d.Type, name, errors.ErrConstructionInvariant)
	}
	return d, o, nil
}

var defaultFactory = NewFactory(registry.Default())

// Default returns the factory over the process-wide registry.
func Default() *Factory {
	return defaultFactory
}

// CreateFresh builds a new entity using the process-wide registry.
func CreateFresh(name string) (object.Object, error) {
	return defaultFactory.CreateFresh(name)
}

// CreateReference builds a clean reference using the process-wide registry.
func CreateReference(name, id string) (object.Object, error) {
	return defaultFactory.CreateReference(name, id)
}
