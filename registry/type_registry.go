/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/suparena/entitykit/errors"
	"github.com/suparena/entitykit/object"
)

var objectType = reflect.TypeFor[object.Object]()

// Descriptor is the registry's record of the concrete type active for a
// logical name. Descriptors are immutable once registered.
type Descriptor struct {
	// Name is the logical entity type name.
	Name string
	// Type is the pointer type the constructor returns, e.g. *Person.
	Type reflect.Type

	construct func() object.Object
	// ancestry holds every struct type reachable from Type.Elem() through
	// embedded fields, including Type.Elem() itself.
	ancestry map[reflect.Type]struct{}
}

// New runs the registered zero-argument constructor. It returns nil if the
// constructor did. New does not stamp the entity type or apply defaults;
// use a Factory for that.
func (d *Descriptor) New() object.Object {
	return d.construct()
}

// Specializes reports whether d's type is the same as, or embeds, other's type.
func (d *Descriptor) Specializes(other *Descriptor) bool {
	_, ok := d.ancestry[other.Type.Elem()]
	return ok
}

// Registry maps logical names to their active Descriptor. Each name is an
// independent slot updated by compare-and-swap, so registrations for
// different names never contend and readers never see a partial update.
type Registry struct {
	types  sync.Map // map[string]*Descriptor
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register makes the type described by v available under name.
//
// v is either a zero-argument constructor returning a pointer to a struct
// that embeds object.Base (func() *Person), or a typed pointer whose zero
// value is a ready instance ((*Person)(nil)). Anything else has no usable
// zero-argument constructor and is rejected.
//
// When name already has an active type, the most specialized type wins
// regardless of call order: a type embedding the active one replaces it, a
// type the active one embeds is accepted and ignored, and an unrelated type
// is rejected. A rejected registration leaves the registry unchanged.
func (r *Registry) Register(name string, v any) error {
	d, err := describe(name, v)
	if err != nil {
		return err
	}
	return r.install(d)
}

// RegisterType registers v under the name it declares through
// object.Namer, or under its struct type name if it declares none.
func (r *Registry) RegisterType(v any) error {
	t, err := constructedType(v)
	if err != nil {
		return errors.NewRegistrationError("", typeString(v), err.Error())
	}
	return r.Register(EntityNameOf(t), v)
}

// RegisterFunc is the compile-time checked form of Registry.Register for
// constructor functions.
func RegisterFunc[PT object.Object](r *Registry, name string, ctor func() PT) error {
	t := reflect.TypeFor[PT]()
	if ctor == nil {
		return errors.NewRegistrationError(name, t.String(), "no zero-argument constructor")
	}
	if err := checkEntityType(t); err != nil {
		return errors.NewRegistrationError(name, t.String(), err.Error())
	}
	d, err := newDescriptor(name, t, func() object.Object {
		o := ctor()
		if reflect.ValueOf(o).IsNil() {
			return nil
		}
		return o
	})
	if err != nil {
		return err
	}
	return r.install(d)
}

// Unregister removes name. Unregistering an unknown name is a no-op, and a
// later Register for name behaves as a first registration.
func (r *Registry) Unregister(name string) {
	if _, ok := r.types.LoadAndDelete(name); ok {
		r.logger.Debug("entity type unregistered", "name", name)
	}
}

// Resolve returns the active descriptor for name.
func (r *Registry) Resolve(name string) (*Descriptor, bool) {
	v, ok := r.types.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*Descriptor), true
}

// Entries returns the active descriptors sorted by name.
func (r *Registry) Entries() []*Descriptor {
	var entries []*Descriptor
	r.types.Range(func(_, value any) bool {
		entries = append(entries, value.(*Descriptor))
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Count returns the number of names with an active descriptor.
func (r *Registry) Count() int {
	n := 0
	r.types.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Reset removes every registration.
func (r *Registry) Reset() {
	r.types.Clear()
}

func (r *Registry) install(d *Descriptor) error {
	for {
		current, loaded := r.types.LoadOrStore(d.Name, d)
		if !loaded {
			r.logger.Debug("entity type registered", "name", d.Name, "type", d.Type.String())
			return nil
		}
		active := current.(*Descriptor)

		switch {
		case d.Specializes(active):
			if r.types.CompareAndSwap(d.Name, active, d) {
				r.logger.Debug("entity type superseded",
					"name", d.Name, "type", d.Type.String(), "previous", active.Type.String())
				return nil
			}
			// The slot changed underneath us; decide again against the new state.
		case active.Specializes(d):
			r.logger.Debug("entity type kept",
				"name", d.Name, "active", active.Type.String(), "ignored", d.Type.String())
			return nil
		default:
			return errors.NewRegistrationError(d.Name, d.Type.String(),
				fmt.Sprintf("ambiguous specialization: unrelated to active type %s", active.Type))
		}
	}
}

// describe validates v and builds its descriptor without constructing anything.
func describe(name string, v any) (*Descriptor, error) {
	t, err := constructedType(v)
	if err != nil {
		return nil, errors.NewRegistrationError(name, typeString(v), err.Error())
	}

	rv := reflect.ValueOf(v)
	var construct func() object.Object
	if rv.Kind() == reflect.Func {
		construct = func() object.Object {
			out := rv.Call(nil)[0]
			if out.IsNil() {
				return nil
			}
			return out.Interface().(object.Object)
		}
	} else {
		elem := t.Elem()
		construct = func() object.Object {
			return reflect.New(elem).Interface().(object.Object)
		}
	}
	return newDescriptor(name, t, construct)
}

func newDescriptor(name string, t reflect.Type, construct func() object.Object) (*Descriptor, error) {
	if name == "" {
		return nil, errors.NewRegistrationError(name, t.String(), "empty entity type name")
	}
	return &Descriptor{
		Name:      name,
		Type:      t,
		construct: construct,
		ancestry:  embeddedStructs(t.Elem()),
	}, nil
}

// constructedType returns the type an instance of v will have, or why v has
// no usable zero-argument constructor.
func constructedType(v any) (reflect.Type, error) {
	if v == nil {
		return nil, fmt.Errorf("no zero-argument constructor: nil")
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		ft := rv.Type()
		if rv.IsNil() {
			return nil, fmt.Errorf("no zero-argument constructor: nil func")
		}
		if ft.NumIn() != 0 || ft.IsVariadic() {
			return nil, fmt.Errorf("no zero-argument constructor: constructor takes %d argument(s)", ft.NumIn())
		}
		if ft.NumOut() != 1 {
			return nil, fmt.Errorf("constructor must return exactly one value, returns %d", ft.NumOut())
		}
		out := ft.Out(0)
		if err := checkEntityType(out); err != nil {
			return nil, err
		}
		return out, nil
	case reflect.Pointer:
		t := rv.Type()
		if err := checkEntityType(t); err != nil {
			return nil, err
		}
		if !object.Usable(reflect.New(t.Elem()).Interface().(object.Object)) {
			return nil, fmt.Errorf("zero value of %s is not usable: it reaches object.Base through an embedded pointer; register a constructor func", t.Elem())
		}
		return t, nil
	default:
		return nil, fmt.Errorf("no zero-argument constructor: %s is neither a constructor nor a pointer prototype", rv.Type())
	}
}

func checkEntityType(t reflect.Type) error {
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%s is not a pointer to a struct", t)
	}
	if !t.Implements(objectType) {
		return fmt.Errorf("%s does not embed object.Base", t)
	}
	return nil
}

// embeddedStructs walks anonymous fields, by value or pointer, breadth first.
func embeddedStructs(root reflect.Type) map[reflect.Type]struct{} {
	seen := make(map[reflect.Type]struct{})
	queue := []reflect.Type{root}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.Anonymous {
				continue
			}
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				queue = append(queue, ft)
			}
		}
	}
	return seen
}

// EntityNameOf returns the logical name a pointer-to-struct entity type
// declares through object.Namer, falling back to the struct name.
func EntityNameOf(t reflect.Type) string {
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		if n, ok := reflect.New(t.Elem()).Interface().(object.Namer); ok {
			return n.EntityName()
		}
		return t.Elem().Name()
	}
	return t.Name()
}

func typeString(v any) string {
	if v == nil {
		return ""
	}
	return reflect.TypeOf(v).String()
}
