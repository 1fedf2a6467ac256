/*
Package datastore defines the persistence contract for entitykit entities.

	type DataStore interface {
	    Get(ctx context.Context, entityType, id string) (object.Object, error)
	    Fetch(ctx context.Context, obj object.Object) error
	    Save(ctx context.Context, obj object.Object) error
	    Query(ctx context.Context, params *storagemodels.QueryParams) ([]object.Object, error)
	    Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult
	    Delete(ctx context.Context, obj object.Object) error
	}

Stores materialize every row through a Factory: the row's EntityType picks
the registered Go type, the factory builds a clean reference for the row's
id, and the store loads the row's fields with object.ApplyServerData. A
store never runs SetDefaultValues and never returns a dirty object.

Save decides between create and update from the object itself: IsNew
objects are created, dirty existing objects are updated with exactly their
dirty keys, and clean existing objects are left alone.

Implementations:
  - ddb: DynamoDB single-table implementation
  - mock: In-memory implementation for testing
*/
package datastore
