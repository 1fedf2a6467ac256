/*
Package ddb provides a DynamoDB implementation of the DataStore interface.

The DataStore supports:
  - Single-table design with EntityType and ObjectId system attributes
  - Macro-based key expansion from registry index maps (e.g., "PERSON#{ObjectId}")
  - Global Secondary Index (GSI) and time range queries
  - Streaming with retry logic and progress reporting
  - Conditional writes: creates never overwrite, updates never resurrect

Every item read back is materialized through a datastore.Factory as a clean
reference, then loaded with the item's fields. A type whose constructor
leaves instances dirty therefore cannot be read from the table.

Key Features:

Macro Expansion:
Keys are built from the index map registered for the entity type. Macros name
entity fields, or the system values EntityType, ObjectId and CreatedAt:

	registry.RegisterIndexMap("Person", map[string]string{
	    "PK":     "PERSON#{ObjectId}",
	    "SK":     "PERSON#{ObjectId}",
	    "GSI1PK": "NICK#{nickname}",
	    "GSI1SK": "{CreatedAt}",
	})

Types without an index map use "{EntityType}#{ObjectId}" for PK and SK.

Saving:
New objects are written with PutItem. Existing objects write exactly their
dirty keys with UpdateItem (SET for changed keys, REMOVE for removed ones).
Saving a clean existing object does nothing.

Streaming:

	results := store.Stream(ctx, params,
	    storagemodels.WithBufferSize(100),
	    storagemodels.WithPageSize(25),
	    storagemodels.WithMaxRetries(3),
	    storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
	        slog.Info("progress", "items", p.ItemsProcessed)
	    }),
	)

Live tests run with the integration build tag against the table named by
AWS_DDB_TABLE.
*/
package ddb
