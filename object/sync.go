/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package object

import (
	"reflect"
	"time"

	"github.com/go-openapi/strfmt"
)

// The functions in this file are for factories and datastores. They move an
// object between its local and remote states; application code should not
// need them.

// SetEntityType stamps o with the logical name it was constructed for.
func SetEntityType(o Object, name string) {
	b := o.objectBase()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entityType = name
}

// AttachRemote tags o with a remote id and marks it as existing remotely,
// so a later save treats it as an update rather than a create. It does not
// touch field state.
func AttachRemote(o Object, id string) {
	b := o.objectBase()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.id = id
	b.remote = true
}

// ApplyServerData replaces the last-known server state of o. Pending local
// changes are kept and still shadow the new server values, so a clean object
// stays clean.
func ApplyServerData(o Object, data map[string]any, createdAt, updatedAt strfmt.DateTime) {
	b := o.objectBase()
	server := make(map[string]any, len(data))
	for k, v := range data {
		server[k] = v
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.server = server
	b.createdAt = createdAt
	b.updatedAt = updatedAt
}

// Changes returns the pending local modifications of o: keys set with their
// values, and keys removed.
func Changes(o Object) (set map[string]any, removed []string) {
	b := o.objectBase()
	b.mu.RLock()
	defer b.mu.RUnlock()
	set = make(map[string]any, len(b.pending))
	for k, c := range b.pending {
		if c.removed {
			removed = append(removed, k)
			continue
		}
		set[k] = c.value
	}
	return set, removed
}

// Snapshot returns the merged field view of o.
func Snapshot(o Object) map[string]any {
	b := o.objectBase()
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.server)+len(b.pending))
	for k, v := range b.server {
		out[k] = v
	}
	for k, c := range b.pending {
		if c.removed {
			delete(out, k)
			continue
		}
		out[k] = c.value
	}
	return out
}

// ServerData returns the last-known server state of o, without pending
// local changes. Datastores address the stored row with it.
func ServerData(o Object) map[string]any {
	b := o.objectBase()
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.server))
	for k, v := range b.server {
		out[k] = v
	}
	return out
}

// Usable reports whether o reaches its Base without crossing a nil embedded
// pointer. Only a usable object may be handed to the other functions here.
func Usable(o Object) bool {
	v := reflect.ValueOf(o)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return false
	}
	index := baseIndex(v.Type().Elem())
	if index == nil {
		return false
	}
	f, err := v.Elem().FieldByIndexErr(index)
	if err != nil {
		return false
	}
	if f.Kind() == reflect.Pointer {
		return !f.IsNil()
	}
	return true
}

var baseType = reflect.TypeFor[Base]()

// baseIndex returns the field index path from struct type root to the
// shallowest embedded Base, or nil if there is none.
func baseIndex(root reflect.Type) []int {
	if root == baseType {
		return []int{}
	}
	type node struct {
		t     reflect.Type
		index []int
	}
	seen := make(map[reflect.Type]bool)
	queue := []node{{t: root}}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n.t] {
			continue
		}
		seen[n.t] = true
		for i := 0; i < n.t.NumField(); i++ {
			f := n.t.Field(i)
			if !f.Anonymous {
				continue
			}
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			index := append(append([]int(nil), n.index...), i)
			if ft == baseType {
				return index
			}
			if ft.Kind() == reflect.Struct {
				queue = append(queue, node{t: ft, index: index})
			}
		}
	}
	return nil
}

// Commit folds pending changes into the server state after a successful
// save. The object becomes clean and not new. An empty id keeps the current one.
func Commit(o Object, id string, at time.Time) {
	b := o.objectBase()
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.server == nil {
		b.server = make(map[string]any, len(b.pending))
	}
	for k, c := range b.pending {
		if c.removed {
			delete(b.server, k)
			continue
		}
		b.server[k] = c.value
	}
	b.pending = nil

	if id != "" {
		b.id = id
	}
	ts := strfmt.DateTime(at.UTC())
	if time.Time(b.createdAt).IsZero() {
		b.createdAt = ts
	}
	b.updatedAt = ts
	b.remote = true
}
