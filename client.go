/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitykit

import (
	"context"
	"fmt"

	"github.com/suparena/entitykit/object"
	"github.com/suparena/entitykit/storagemodels"
)

// Client combines a Factory with Storage routing: it creates entities by
// logical name and sends each one to the store for its type.
type Client struct {
	factory *Factory
	storage Storage
}

// NewClient creates a Client. A nil factory uses Default().
func NewClient(factory *Factory, storage Storage) *Client {
	if factory == nil {
		factory = Default()
	}
	return &Client{factory: factory, storage: storage}
}

// Factory returns the client's factory.
func (c *Client) Factory() *Factory {
	return c.factory
}

// New creates a fresh entity with its defaults applied.
func (c *Client) New(entityType string) (object.Object, error) {
	return c.factory.CreateFresh(entityType)
}

// Reference creates a clean reference to a remote row without loading it.
func (c *Client) Reference(entityType, id string) (object.Object, error) {
	return c.factory.CreateReference(entityType, id)
}

// Get loads a row from the store routed for entityType.
func (c *Client) Get(ctx context.Context, entityType, id string) (object.Object, error) {
	ds, err := c.storage.GetDataStore(entityType)
	if err != nil {
		return nil, err
	}
	return ds.Get(ctx, entityType, id)
}

// Fetch refreshes obj from its store.
func (c *Client) Fetch(ctx context.Context, obj object.Object) error {
	ds, err := c.storage.GetDataStore(obj.EntityType())
	if err != nil {
		return err
	}
	return ds.Fetch(ctx, obj)
}

// Save persists obj in the store routed for its entity type.
func (c *Client) Save(ctx context.Context, obj object.Object) error {
	ds, err := c.storage.GetDataStore(obj.EntityType())
	if err != nil {
		return err
	}
	if err := ds.Save(ctx, obj); err != nil {
		return fmt.Errorf("save %s: %w", obj.EntityType(), err)
	}
	return nil
}

// Delete removes obj from its store.
func (c *Client) Delete(ctx context.Context, obj object.Object) error {
	ds, err := c.storage.GetDataStore(obj.EntityType())
	if err != nil {
		return err
	}
	return ds.Delete(ctx, obj)
}

// Query runs params against the store routed for entityType, restricted to
// rows of that type.
func (c *Client) Query(ctx context.Context, entityType string, params *storagemodels.QueryParams) ([]object.Object, error) {
	ds, err := c.storage.GetDataStore(entityType)
	if err != nil {
		return nil, err
	}
	var p storagemodels.QueryParams
	if params != nil {
		p = *params
	}
	p.EntityType = entityType
	return ds.Query(ctx, &p)
}
