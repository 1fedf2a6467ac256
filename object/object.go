/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package object

import (
	"sort"
	"sync"

	"github.com/go-openapi/strfmt"
)

// Object is implemented by every entity type. The unexported method means a
// type satisfies Object only by embedding Base.
type Object interface {
	// EntityType returns the logical name the object was constructed for.
	EntityType() string
	// ObjectID returns the remote identifier, or "" for an unsaved object.
	ObjectID() string
	// IsNew reports whether the object has never been persisted.
	IsNew() bool
	// IsDirty reports whether the object carries unsaved local changes.
	IsDirty() bool

	objectBase() *Base
}

// DefaultsPopulator is implemented by entity types that carry built-in
// default field values for brand-new entities. SetDefaultValues runs only
// when an object is created fresh, never for a reference to a remote row.
type DefaultsPopulator interface {
	SetDefaultValues()
}

// Namer lets an entity type declare its own logical name. It is called on a
// zero value, so implementations must not depend on field state.
type Namer interface {
	EntityName() string
}

// change is a pending local modification of one key.
type change struct {
	value   any
	removed bool
}

// Base holds the state shared by all entity types. Embed it by value:
//
//	type Person struct {
//	    object.Base
//	}
//
// Base is safe for concurrent use.
type Base struct {
	mu         sync.RWMutex
	entityType string
	id         string
	remote     bool
	server     map[string]any
	pending    map[string]change
	createdAt  strfmt.DateTime
	updatedAt  strfmt.DateTime
}

func (b *Base) objectBase() *Base { return b }

// EntityType returns the logical name the object was constructed for.
func (b *Base) EntityType() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.entityType
}

// ObjectID returns the remote identifier, or "" if the object was never saved.
func (b *Base) ObjectID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.id
}

// IsNew reports whether the object has no remote counterpart yet.
func (b *Base) IsNew() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.remote
}

// IsDirty reports whether any key has been set or removed locally since the
// object was last reconciled with its store.
func (b *Base) IsDirty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.pending) > 0
}

// IsDirtyKey reports whether key has an unsaved local change.
func (b *Base) IsDirtyKey(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.pending[key]
	return ok
}

// DirtyKeys returns the keys with unsaved local changes, sorted.
func (b *Base) DirtyKeys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.pending))
	for k := range b.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CreatedAt returns the server creation time, zero for unsaved objects.
func (b *Base) CreatedAt() strfmt.DateTime {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.createdAt
}

// UpdatedAt returns the last server update time, zero for unsaved objects.
func (b *Base) UpdatedAt() strfmt.DateTime {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updatedAt
}

// Put sets key to value and marks the object dirty.
func (b *Base) Put(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		b.pending = make(map[string]change)
	}
	b.pending[key] = change{value: value}
}

// Remove deletes key. Removing a key that only exists as an unsaved local
// value simply discards that value.
func (b *Base) Remove(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, onServer := b.server[key]; !onServer {
		delete(b.pending, key)
		return
	}
	if b.pending == nil {
		b.pending = make(map[string]change)
	}
	b.pending[key] = change{removed: true}
}

// Get returns the current value of key, local changes first.
func (b *Base) Get(key string) any {
	v, _ := b.lookup(key)
	return v
}

// Has reports whether key currently has a value.
func (b *Base) Has(key string) bool {
	_, ok := b.lookup(key)
	return ok
}

// GetString returns the value of key if it is a string, "" otherwise.
func (b *Base) GetString(key string) string {
	s, _ := b.Get(key).(string)
	return s
}

// GetBool returns the value of key if it is a bool, false otherwise.
func (b *Base) GetBool(key string) bool {
	v, _ := b.Get(key).(bool)
	return v
}

// GetNumber returns the value of key as a float64. Values read back from a
// store arrive as float64; locally set integers are converted.
func (b *Base) GetNumber(key string) float64 {
	switch v := b.Get(key).(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Keys returns every key that currently has a value, sorted.
func (b *Base) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	seen := make(map[string]struct{}, len(b.server)+len(b.pending))
	for k := range b.server {
		seen[k] = struct{}{}
	}
	for k, c := range b.pending {
		if c.removed {
			delete(seen, k)
			continue
		}
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b *Base) lookup(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if c, ok := b.pending[key]; ok {
		if c.removed {
			return nil, false
		}
		return c.value, true
	}
	v, ok := b.server[key]
	return v, ok
}
