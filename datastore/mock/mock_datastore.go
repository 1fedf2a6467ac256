/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.DataStore for testing
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"

	"github.com/suparena/entitykit/datastore"
	"github.com/suparena/entitykit/errors"
	"github.com/suparena/entitykit/object"
	"github.com/suparena/entitykit/storagemodels"
)

var _ datastore.DataStore = (*DataStore)(nil)

// row is the stored form of one entity.
type row struct {
	entityType string
	id         string
	fields     map[string]any
	createdAt  strfmt.DateTime
	updatedAt  strfmt.DateTime
}

// DataStore is an in-memory datastore.DataStore. Like a real store, it
// materializes rows through a datastore.Factory.
type DataStore struct {
	mu          sync.RWMutex
	factory     datastore.Factory
	rows        map[string]row
	queryFunc   func(ctx context.Context, params *storagemodels.QueryParams) ([]object.Object, error)
	streamFunc  func(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult
	newID       func() string
	now         func() time.Time
	putError    error
	deleteError error
	updateError error
}

// New creates a new in-memory DataStore.
func New(factory datastore.Factory) *DataStore {
	return &DataStore{
		factory: factory,
		rows:    make(map[string]row),
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// WithIDFunc sets the function used to assign ids to new objects
func (m *DataStore) WithIDFunc(f func() string) *DataStore {
	m.newID = f
	return m
}

// WithQueryFunc sets a custom query function for testing
func (m *DataStore) WithQueryFunc(f func(ctx context.Context, params *storagemodels.QueryParams) ([]object.Object, error)) *DataStore {
	m.queryFunc = f
	return m
}

// WithStreamFunc sets a custom stream function for testing
func (m *DataStore) WithStreamFunc(f func(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult) *DataStore {
	m.streamFunc = f
	return m
}

// WithPutError makes saves of new objects return an error
func (m *DataStore) WithPutError(err error) *DataStore {
	m.putError = err
	return m
}

// WithDeleteError makes Delete operations return an error
func (m *DataStore) WithDeleteError(err error) *DataStore {
	m.deleteError = err
	return m
}

// WithUpdateError makes saves of existing objects return an error
func (m *DataStore) WithUpdateError(err error) *DataStore {
	m.updateError = err
	return m
}

// Get retrieves an entity by type and id
func (m *DataStore) Get(ctx context.Context, entityType, id string) (object.Object, error) {
	m.mu.RLock()
	r, exists := m.rows[rowKey(entityType, id)]
	m.mu.RUnlock()

	if !exists {
		return nil, errors.NewNotFoundError(entityType, id)
	}
	return m.materialize(r)
}

// Fetch reloads the server state of a saved object
func (m *DataStore) Fetch(ctx context.Context, obj object.Object) error {
	if obj.IsNew() {
		return errors.NewValidationError("objectId", "cannot fetch an unsaved object")
	}

	m.mu.RLock()
	r, exists := m.rows[rowKey(obj.EntityType(), obj.ObjectID())]
	m.mu.RUnlock()

	if !exists {
		return errors.NewNotFoundError(obj.EntityType(), obj.ObjectID())
	}
	object.ApplyServerData(obj, r.fields, r.createdAt, r.updatedAt)
	return nil
}

// Save creates new objects and applies the dirty keys of existing ones
func (m *DataStore) Save(ctx context.Context, obj object.Object) error {
	if obj.IsNew() {
		return m.create(obj)
	}
	if !obj.IsDirty() {
		return nil
	}
	return m.update(obj)
}

func (m *DataStore) create(obj object.Object) error {
	if m.putError != nil {
		return m.putError
	}

	id := obj.ObjectID()
	if id == "" {
		id = m.newID()
	}
	now := m.now()
	ts := strfmt.DateTime(now.UTC())

	m.mu.Lock()
	defer m.mu.Unlock()

	key := rowKey(obj.EntityType(), id)
	if _, exists := m.rows[key]; exists {
		return errors.NewAlreadyExistsError(obj.EntityType(), id)
	}
	m.rows[key] = row{
		entityType: obj.EntityType(),
		id:         id,
		fields:     object.Snapshot(obj),
		createdAt:  ts,
		updatedAt:  ts,
	}
	object.Commit(obj, id, now)
	return nil
}

func (m *DataStore) update(obj object.Object) error {
	if m.updateError != nil {
		return m.updateError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := rowKey(obj.EntityType(), obj.ObjectID())
	r, exists := m.rows[key]
	if !exists {
		return errors.NewNotFoundError(obj.EntityType(), obj.ObjectID())
	}

	set, removed := object.Changes(obj)
	fields := make(map[string]any, len(r.fields)+len(set))
	for k, v := range r.fields {
		fields[k] = v
	}
	for k, v := range set {
		fields[k] = v
	}
	for _, k := range removed {
		delete(fields, k)
	}

	now := m.now()
	r.fields = fields
	r.updatedAt = strfmt.DateTime(now.UTC())
	m.rows[key] = r
	object.Commit(obj, "", now)
	return nil
}

// Query executes a query. Without a custom query function it returns every
// row, restricted to params.EntityType when set, ordered by type and id.
func (m *DataStore) Query(ctx context.Context, params *storagemodels.QueryParams) ([]object.Object, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, params)
	}

	rows := m.matching(params)
	results := make([]object.Object, 0, len(rows))
	for _, r := range rows {
		obj, err := m.materialize(r)
		if err != nil {
			return nil, err
		}
		results = append(results, obj)
	}
	return results, nil
}

// Stream returns a channel of results
func (m *DataStore) Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult {
	if m.streamFunc != nil {
		return m.streamFunc(ctx, params, opts...)
	}

	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}

	rows := m.matching(params)
	resultChan := make(chan storagemodels.StreamResult, options.BufferSize)

	go func() {
		defer close(resultChan)

		for i, r := range rows {
			obj, err := m.materialize(r)
			result := storagemodels.StreamResult{
				Item:  obj,
				Error: err,
				Meta: storagemodels.StreamMeta{
					Index:      int64(i),
					PageNumber: 1,
					Timestamp:  time.Now(),
				},
			}
			select {
			case <-ctx.Done():
				return
			case resultChan <- result:
			}
		}
	}()

	return resultChan
}

// Delete removes a saved object
func (m *DataStore) Delete(ctx context.Context, obj object.Object) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	if obj.IsNew() {
		return errors.NewValidationError("objectId", "cannot delete an unsaved object")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := rowKey(obj.EntityType(), obj.ObjectID())
	if _, exists := m.rows[key]; !exists {
		return errors.NewNotFoundError(obj.EntityType(), obj.ObjectID())
	}
	delete(m.rows, key)
	return nil
}

// Helper methods for testing

// SetRow stores a row directly, as if another client had saved it
func (m *DataStore) SetRow(entityType, id string, fields map[string]any) {
	cp := make(map[string]any, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	ts := strfmt.DateTime(m.now().UTC())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[rowKey(entityType, id)] = row{entityType: entityType, id: id, fields: cp, createdAt: ts, updatedAt: ts}
}

// Row returns a copy of the stored fields for (entityType, id)
func (m *DataStore) Row(entityType, id string) (map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rows[rowKey(entityType, id)]
	if !ok {
		return nil, false
	}
	cp := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		cp[k] = v
	}
	return cp, true
}

// Count returns the number of stored entities
func (m *DataStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// Clear removes all data
func (m *DataStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[string]row)
}

func (m *DataStore) matching(params *storagemodels.QueryParams) []row {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]row, 0, len(m.rows))
	for _, r := range m.rows {
		if params != nil && params.EntityType != "" && r.entityType != params.EntityType {
			continue
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rowKey(rows[i].entityType, rows[i].id) < rowKey(rows[j].entityType, rows[j].id)
	})
	if params != nil && params.Limit != nil && int(*params.Limit) < len(rows) {
		rows = rows[:*params.Limit]
	}
	return rows
}

func (m *DataStore) materialize(r row) (object.Object, error) {
	obj, err := m.factory.CreateReference(r.entityType, r.id)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize %s %q: %w", r.entityType, r.id, err)
	}
	object.ApplyServerData(obj, r.fields, r.createdAt, r.updatedAt)
	return obj, nil
}

func rowKey(entityType, id string) string {
	return entityType + "|" + id
}
