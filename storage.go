/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitykit

import (
	"fmt"
	"sort"
	"sync"

	"github.com/suparena/entitykit/datastore"
)

// Storage routes logical entity types to the DataStore that persists them.
type Storage interface {
	// RegisterDataStore routes entityType (for example "Person" or "_User") to ds.
	RegisterDataStore(entityType string, ds datastore.DataStore) error
	// SetFallback sets the store used for entity types without a route.
	SetFallback(ds datastore.DataStore)
	// GetDataStore returns the store for entityType, or the fallback.
	GetDataStore(entityType string) (datastore.DataStore, error)
	// EntityTypes lists the entity types with an explicit route, sorted.
	EntityTypes() []string
}

// storageManager is a thread-safe implementation of the Storage interface.
type storageManager struct {
	mu       sync.RWMutex
	stores   map[string]datastore.DataStore
	fallback datastore.DataStore
}

// NewStorageManager creates and returns a new Storage implementation.
func NewStorageManager() Storage {
	return &storageManager{
		stores: make(map[string]datastore.DataStore),
	}
}

// RegisterDataStore stores the provided DataStore under the given entity type.
func (sm *storageManager) RegisterDataStore(entityType string, ds datastore.DataStore) error {
	if ds == nil {
		return fmt.Errorf("datastore for %q is nil", entityType)
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.stores[entityType]; exists {
		return fmt.Errorf("datastore for entity type %q already registered", entityType)
	}
	sm.stores[entityType] = ds
	return nil
}

// SetFallback sets the DataStore used when no route matches.
func (sm *storageManager) SetFallback(ds datastore.DataStore) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.fallback = ds
}

// GetDataStore retrieves the DataStore associated with the given entity type.
func (sm *storageManager) GetDataStore(entityType string) (datastore.DataStore, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if ds, exists := sm.stores[entityType]; exists {
		return ds, nil
	}
	if sm.fallback != nil {
		return sm.fallback, nil
	}
	return nil, fmt.Errorf("no datastore for entity type %q", entityType)
}

// EntityTypes returns the routed entity types.
func (sm *storageManager) EntityTypes() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	keys := make([]string, 0, len(sm.stores))
	for k := range sm.stores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
