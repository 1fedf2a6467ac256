/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"github.com/suparena/entitykit/object"
)

// defaultRegistry is the process-wide registry used by the package-level
// functions. It starts with the built-in types installed.
var defaultRegistry = New()

func init() {
	if err := RegisterBuiltins(defaultRegistry); err != nil {
		panic(err)
	}
}

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// RegisterBuiltins installs the built-in entity types (_User, _Role) in r.
func RegisterBuiltins(r *Registry) error {
	if err := r.RegisterType((*object.User)(nil)); err != nil {
		return err
	}
	return r.RegisterType((*object.Role)(nil))
}

// Register registers v under name in the default registry.
func Register(name string, v any) error {
	return defaultRegistry.Register(name, v)
}

// RegisterType registers v in the default registry under its declared name.
func RegisterType(v any) error {
	return defaultRegistry.RegisterType(v)
}

// Unregister removes name from the default registry.
func Unregister(name string) {
	defaultRegistry.Unregister(name)
}

// Resolve looks name up in the default registry.
func Resolve(name string) (*Descriptor, bool) {
	return defaultRegistry.Resolve(name)
}

// Reset clears the default registry, built-ins included. Call
// RegisterBuiltins(Default()) to restore them.
func Reset() {
	defaultRegistry.Reset()
}
