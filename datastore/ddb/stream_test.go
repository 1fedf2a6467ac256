/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/entitykit/storagemodels"
)

func collect(ch <-chan storagemodels.StreamResult) []storagemodels.StreamResult {
	var out []storagemodels.StreamResult
	for r := range ch {
		out = append(out, r)
	}
	return out
}

func streamParams() *storagemodels.QueryParams {
	return &storagemodels.QueryParams{
		KeyConditionExpression: "PK = :pk",
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "PERSON#1"},
		},
	}
}

func TestStreamPages(t *testing.T) {
	store, api, _ := newTestStore(t)
	last := map[string]types.AttributeValue{AttrPK: &types.AttributeValueMemberS{Value: "PERSON#2"}}
	api.pages = []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{personItem("1", "a"), personItem("2", "b")}, LastEvaluatedKey: last},
		{Items: []map[string]types.AttributeValue{personItem("3", "c")}},
	}

	var progress []storagemodels.StreamProgress
	results := collect(store.Stream(context.Background(), streamParams(),
		storagemodels.WithPageSize(2),
		storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
			progress = append(progress, p)
		}),
	))

	require.Len(t, results, 3)
	for i, r := range results {
		require.NoError(t, r.Error)
		assert.Equal(t, int64(i), r.Meta.Index)
		assert.False(t, r.Item.IsDirty())
		assert.NotEmpty(t, r.Raw)
	}
	assert.Equal(t, 1, results[1].Meta.PageNumber)
	assert.Equal(t, 2, results[2].Meta.PageNumber)

	require.Len(t, api.queries, 2)
	assert.Equal(t, int32(2), *api.queries[0].Limit)
	assert.Equal(t, last, api.queries[1].ExclusiveStartKey)

	// One report per page plus the final one.
	require.Len(t, progress, 3)
	assert.Equal(t, int64(3), progress[2].ItemsProcessed)
	assert.Equal(t, 2, progress[2].PagesProcessed)
}

func TestStreamItemErrorsDoNotStop(t *testing.T) {
	store, api, _ := newTestStore(t)
	bad := personItem("2", "b")
	bad[AttrEntityType] = &types.AttributeValueMemberS{Value: "Ghost"}
	api.pages = []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{personItem("1", "a"), bad, personItem("3", "c")}},
	}

	results := collect(store.Stream(context.Background(), streamParams()))
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Error)
	assert.Error(t, results[1].Error)
	assert.Nil(t, results[1].Item)
	assert.NotNil(t, results[1].Raw)
	assert.NoError(t, results[2].Error)
}

func TestStreamRetriesRetryableErrors(t *testing.T) {
	store, api, _ := newTestStore(t)
	api.queryErr = []error{&types.ProvisionedThroughputExceededException{Message: strPtr("slow down")}, nil}
	api.pages = []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{personItem("1", "a")}}}

	results := collect(store.Stream(context.Background(), streamParams(),
		storagemodels.WithRetryBackoff(time.Millisecond),
	))
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Error)
	assert.Len(t, api.queries, 2)
}

func TestStreamFatalError(t *testing.T) {
	store, api, _ := newTestStore(t)
	api.queryErr = []error{fmt.Errorf("access denied")}

	results := collect(store.Stream(context.Background(), streamParams()))
	require.Len(t, results, 1)
	assert.ErrorContains(t, results[0].Error, "access denied")
	assert.Len(t, api.queries, 1, "non-retryable errors are not retried")
}

func TestStreamErrorHandlerContinues(t *testing.T) {
	store, api, _ := newTestStore(t)
	api.queryErr = []error{fmt.Errorf("flaky"), nil}
	api.pages = []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{personItem("1", "a")}}}

	var handled []error
	results := collect(store.Stream(context.Background(), streamParams(),
		storagemodels.WithErrorHandler(func(err error) bool {
			handled = append(handled, err)
			return true
		}),
	))
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Error)
	assert.Len(t, handled, 1)
}

func TestStreamErrorHandlerGivesUp(t *testing.T) {
	store, api, _ := newTestStore(t)
	api.queryErr = []error{fmt.Errorf("e1"), fmt.Errorf("e2"), fmt.Errorf("e3")}

	results := collect(store.Stream(context.Background(), streamParams(),
		storagemodels.WithMaxRetries(1),
		storagemodels.WithErrorHandler(func(error) bool { return true }),
	))
	require.Len(t, results, 1)
	assert.ErrorContains(t, results[0].Error, "e2")
}

func TestStreamContextCancellation(t *testing.T) {
	store, api, _ := newTestStore(t)
	items := make([]map[string]types.AttributeValue, 0, 10)
	for i := 0; i < 10; i++ {
		items = append(items, personItem(fmt.Sprint(i), "n"))
	}
	api.pages = []*dynamodb.QueryOutput{{Items: items}}

	ctx, cancel := context.WithCancel(context.Background())
	ch := store.Stream(ctx, streamParams(), storagemodels.WithBufferSize(0))
	<-ch
	cancel()

	// The worker must close the channel after cancellation.
	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after cancellation")
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(&types.ProvisionedThroughputExceededException{}))
	assert.True(t, isRetryableError(fmt.Errorf("wrapped: %w", &types.RequestLimitExceeded{})))
	assert.True(t, isRetryableError(&types.InternalServerError{}))
	assert.False(t, isRetryableError(fmt.Errorf("boom")))
	assert.False(t, isRetryableError(&types.ConditionalCheckFailedException{}))
}
