/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/entitykit/internal/ctxlog"
	"github.com/suparena/entitykit/object"
	"github.com/suparena/entitykit/storagemodels"
)

const (
	entityTypeName  = "#__entityType"
	entityTypeValue = ":__entityType"
)

// Query performs a single-page query against the store's table. Each item is
// materialized through the factory using its EntityType attribute, so the
// result holds whatever type is registered for that name.
func (d *DataStore) Query(ctx context.Context, params *storagemodels.QueryParams) ([]object.Object, error) {
	results, _, err := d.QueryPage(ctx, params)
	return results, err
}

// QueryPage is Query that also returns the LastEvaluatedKey, to be passed as
// ExclusiveStartKey for the next page. A nil key means the query is exhausted.
func (d *DataStore) QueryPage(ctx context.Context, params *storagemodels.QueryParams) ([]object.Object, map[string]types.AttributeValue, error) {
	input := d.queryInput(params)

	ctxlog.FromContext(ctx).Debug("Query", "table", d.tableName, "index", input.IndexName,
		"keyCondition", params.KeyConditionExpression, "entityType", params.EntityType)
	out, err := d.client.Query(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("query error: %w", err)
	}

	results := make([]object.Object, 0, len(out.Items))
	for _, item := range out.Items {
		obj, err := d.materialize(item)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, obj)
	}
	if len(out.LastEvaluatedKey) == 0 {
		return results, nil, nil
	}
	return results, out.LastEvaluatedKey, nil
}

// queryInput translates params for the store's table. A non-empty
// EntityType adds a filter on the EntityType attribute.
func (d *DataStore) queryInput(params *storagemodels.QueryParams) *dynamodb.QueryInput {
	values := make(map[string]types.AttributeValue, len(params.ExpressionAttributeValues)+1)
	for k, v := range params.ExpressionAttributeValues {
		values[k] = v
	}

	input := &dynamodb.QueryInput{
		TableName:                 &d.tableName,
		KeyConditionExpression:    &params.KeyConditionExpression,
		ExpressionAttributeValues: values,
		FilterExpression:          params.FilterExpression,
		IndexName:                 params.IndexName,
		Limit:                     params.Limit,
		ExclusiveStartKey:         params.ExclusiveStartKey,
		ScanIndexForward:          params.ScanIndexForward,
	}

	if params.EntityType != "" {
		filter := entityTypeName + " = " + entityTypeValue
		if params.FilterExpression != nil && *params.FilterExpression != "" {
			filter = "(" + *params.FilterExpression + ") AND " + filter
		}
		input.FilterExpression = &filter
		input.ExpressionAttributeNames = map[string]string{entityTypeName: AttrEntityType}
		values[entityTypeValue] = &types.AttributeValueMemberS{Value: params.EntityType}
	}
	return input
}
