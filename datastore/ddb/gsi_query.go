/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	entityerrors "github.com/suparena/entitykit/errors"
	"github.com/suparena/entitykit/object"
	"github.com/suparena/entitykit/registry"
	"github.com/suparena/entitykit/storagemodels"
)

// GSIQueryBuilder provides a fluent interface for building GSI queries over
// one entity type. Key values are expanded through the type's index map
// templates, so for "GSI1PK": "NICK#{nickname}" WithPartitionKey("flash")
// queries GSI1PK = "NICK#flash".
type GSIQueryBuilder struct {
	store      *DataStore
	entityType string
	indexName  string
	pkValue    string
	skValue    string
	skEnd      string
	skOperator string // "=", "begins_with", ">", "<", ">=", "<=", "BETWEEN"
	filters    []string
	filterVals map[string]types.AttributeValue
	limit      *int32
	descending bool
}

// QueryGSI creates a new GSI query builder for entityType on GSI1.
func (d *DataStore) QueryGSI(entityType string) *GSIQueryBuilder {
	return &GSIQueryBuilder{
		store:      d,
		entityType: entityType,
		indexName:  "GSI1",
		filterVals: make(map[string]types.AttributeValue),
	}
}

// OnIndex selects a GSI from DefaultGSIConfigs.
func (q *GSIQueryBuilder) OnIndex(indexName string) *GSIQueryBuilder {
	q.indexName = indexName
	return q
}

// WithPartitionKey sets the GSI partition key value
func (q *GSIQueryBuilder) WithPartitionKey(value string) *GSIQueryBuilder {
	q.pkValue = value
	return q
}

// WithSortKey sets the GSI sort key value with equals operator
func (q *GSIQueryBuilder) WithSortKey(value string) *GSIQueryBuilder {
	return q.sortKey("=", value)
}

// WithSortKeyPrefix sets the GSI sort key to use begins_with operator
func (q *GSIQueryBuilder) WithSortKeyPrefix(prefix string) *GSIQueryBuilder {
	return q.sortKey("begins_with", prefix)
}

// WithSortKeyGreaterThan sets the GSI sort key to use > operator
func (q *GSIQueryBuilder) WithSortKeyGreaterThan(value string) *GSIQueryBuilder {
	return q.sortKey(">", value)
}

// WithSortKeyGreaterThanOrEqual sets the GSI sort key to use >= operator
func (q *GSIQueryBuilder) WithSortKeyGreaterThanOrEqual(value string) *GSIQueryBuilder {
	return q.sortKey(">=", value)
}

// WithSortKeyLessThan sets the GSI sort key to use < operator
func (q *GSIQueryBuilder) WithSortKeyLessThan(value string) *GSIQueryBuilder {
	return q.sortKey("<", value)
}

// WithSortKeyLessThanOrEqual sets the GSI sort key to use <= operator
func (q *GSIQueryBuilder) WithSortKeyLessThanOrEqual(value string) *GSIQueryBuilder {
	return q.sortKey("<=", value)
}

// WithSortKeyBetween sets the GSI sort key to use BETWEEN operator
func (q *GSIQueryBuilder) WithSortKeyBetween(start, end string) *GSIQueryBuilder {
	q.skEnd = end
	return q.sortKey("BETWEEN", start)
}

func (q *GSIQueryBuilder) sortKey(op, value string) *GSIQueryBuilder {
	q.skOperator = op
	q.skValue = value
	return q
}

// WithFilter adds a filter expression
func (q *GSIQueryBuilder) WithFilter(expression string, values map[string]types.AttributeValue) *GSIQueryBuilder {
	q.filters = append(q.filters, expression)
	for k, v := range values {
		q.filterVals[k] = v
	}
	return q
}

// WithLimit sets the query limit
func (q *GSIQueryBuilder) WithLimit(limit int32) *GSIQueryBuilder {
	q.limit = aws.Int32(limit)
	return q
}

// Descending reverses the sort key order.
func (q *GSIQueryBuilder) Descending() *GSIQueryBuilder {
	q.descending = true
	return q
}

// Build constructs the final query parameters
func (q *GSIQueryBuilder) Build() (*storagemodels.QueryParams, error) {
	if q.pkValue == "" {
		return nil, entityerrors.NewValidationError("partitionKey", "GSI partition key value is required")
	}

	gsi, ok := GetGSIConfig(q.indexName)
	if !ok {
		return nil, entityerrors.NewValidationError("indexName", fmt.Sprintf("unknown GSI %q", q.indexName))
	}

	pkTemplate, skTemplate, err := gsi.Templates(q.entityType)
	if err != nil {
		return nil, err
	}

	pk, err := expandKeyValue(pkTemplate, q.pkValue)
	if err != nil {
		return nil, err
	}

	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: pk},
	}
	keyConditions := []string{gsi.PartitionKeyName + " = :pk"}

	if q.skOperator != "" {
		sk, err := expandKeyValue(skTemplate, q.skValue)
		if err != nil {
			return nil, err
		}
		values[":sk"] = &types.AttributeValueMemberS{Value: sk}

		switch q.skOperator {
		case "begins_with":
			keyConditions = append(keyConditions, "begins_with("+gsi.SortKeyName+", :sk)")
		case "BETWEEN":
			end, err := expandKeyValue(skTemplate, q.skEnd)
			if err != nil {
				return nil, err
			}
			values[":sk2"] = &types.AttributeValueMemberS{Value: end}
			keyConditions = append(keyConditions, gsi.SortKeyName+" BETWEEN :sk AND :sk2")
		default:
			keyConditions = append(keyConditions, gsi.SortKeyName+" "+q.skOperator+" :sk")
		}
	}

	params := &storagemodels.QueryParams{
		TableName:                 q.store.tableName,
		EntityType:                q.entityType,
		KeyConditionExpression:    strings.Join(keyConditions, " AND "),
		ExpressionAttributeValues: values,
		IndexName:                 aws.String(gsi.IndexName),
		Limit:                     q.limit,
	}
	if q.descending {
		params.ScanIndexForward = aws.Bool(false)
	}

	if len(q.filters) > 0 {
		params.FilterExpression = aws.String(strings.Join(q.filters, " AND "))
		for k, v := range q.filterVals {
			params.ExpressionAttributeValues[k] = v
		}
	}

	return params, nil
}

// expandKeyValue substitutes value for the single macro of template. A
// template without macros, or no template at all, uses value as is.
func expandKeyValue(template, value string) (string, error) {
	macros := registry.Macros(template)
	switch len(macros) {
	case 0:
		return value, nil
	case 1:
		return registry.ExpandTemplate(template, func(string) (string, bool) {
			return value, true
		})
	default:
		return "", entityerrors.NewValidationError("indexMap",
			fmt.Sprintf("key template %q has %d macros; pass the full key value", template, len(macros)))
	}
}

// Execute runs the query and returns results
func (q *GSIQueryBuilder) Execute(ctx context.Context) ([]object.Object, error) {
	params, err := q.Build()
	if err != nil {
		return nil, err
	}
	return q.store.Query(ctx, params)
}

// ExecuteWithPagination runs one page of the query starting after
// exclusiveStartKey and returns the key to resume from.
func (q *GSIQueryBuilder) ExecuteWithPagination(ctx context.Context, exclusiveStartKey map[string]types.AttributeValue) ([]object.Object, map[string]types.AttributeValue, error) {
	params, err := q.Build()
	if err != nil {
		return nil, nil, err
	}
	params.ExclusiveStartKey = exclusiveStartKey
	return q.store.QueryPage(ctx, params)
}

// Stream executes the query as a stream
func (q *GSIQueryBuilder) Stream(ctx context.Context, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult {
	params, err := q.Build()
	if err != nil {
		ch := make(chan storagemodels.StreamResult, 1)
		ch <- storagemodels.StreamResult{
			Error: fmt.Errorf("failed to build query: %w", err),
		}
		close(ch)
		return ch
	}
	return q.store.Stream(ctx, params, opts...)
}

// QueryByGSI1PK queries using only the GSI1 partition key
func (d *DataStore) QueryByGSI1PK(ctx context.Context, entityType, pkValue string) ([]object.Object, error) {
	return d.QueryGSI(entityType).
		WithPartitionKey(pkValue).
		Execute(ctx)
}

// QueryByGSI1PKAndSKPrefix queries using GSI1 partition key and sort key prefix
func (d *DataStore) QueryByGSI1PKAndSKPrefix(ctx context.Context, entityType, pkValue, skPrefix string) ([]object.Object, error) {
	return d.QueryGSI(entityType).
		WithPartitionKey(pkValue).
		WithSortKeyPrefix(skPrefix).
		Execute(ctx)
}
