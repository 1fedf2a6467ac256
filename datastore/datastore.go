/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/entitykit/object"
	"github.com/suparena/entitykit/storagemodels"
)

// DataStore persists entities and materializes them back as clean references.
type DataStore interface {
	// Get loads the row for (entityType, id) as a clean, not-new object.
	Get(ctx context.Context, entityType, id string) (object.Object, error)

	// Fetch replaces the server state of an existing reference.
	Fetch(ctx context.Context, obj object.Object) error

	// Save creates new objects and writes the dirty keys of existing ones.
	Save(ctx context.Context, obj object.Object) error

	Query(ctx context.Context, params *storagemodels.QueryParams) ([]object.Object, error)

	Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult

	Delete(ctx context.Context, obj object.Object) error
}

// Factory builds reference-only instances for stored rows. Stores never
// construct entities any other way, so a type whose constructor dirties
// its instances cannot be read back.
type Factory interface {
	CreateReference(entityType, id string) (object.Object, error)
}
