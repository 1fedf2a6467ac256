/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"

	entityerrors "github.com/suparena/entitykit/errors"
	"github.com/suparena/entitykit/registry"
)

// GSIConfig names a global secondary index of the table and the two item
// attributes it is keyed on. Each attribute is also an index-map entry, so
// an entity type takes part in the index by giving templates for both, e.g.
//
//	GSI1PK: "NICK#{nickname}"
//	GSI1SK: "{CreatedAt}"
//
// Save expands these templates into the item; GSIQueryBuilder expands them
// into key conditions.
type GSIConfig struct {
	IndexName        string
	PartitionKeyName string
	SortKeyName      string
}

// DefaultGSIConfigs holds the indexes the table layout provides.
var DefaultGSIConfigs = map[string]GSIConfig{
	"GSI1": {
		IndexName:        "GSI1",
		PartitionKeyName: "GSI1PK",
		SortKeyName:      "GSI1SK",
	},
}

// GetGSIConfig returns the configuration of indexName.
func GetGSIConfig(indexName string) (GSIConfig, bool) {
	c, ok := DefaultGSIConfigs[indexName]
	return c, ok
}

// Templates returns the partition and sort key templates entityType
// registered for the index. A missing sort key template yields "".
func (c GSIConfig) Templates(entityType string) (pk, sk string, err error) {
	indexMap := registry.IndexMapFor(entityType)
	pk, ok := indexMap[c.PartitionKeyName]
	if !ok {
		return "", "", fmt.Errorf("%s not found in index map for %s: %w", c.PartitionKeyName, entityType, entityerrors.ErrNoIndexMap)
	}
	return pk, indexMap[c.SortKeyName], nil
}
