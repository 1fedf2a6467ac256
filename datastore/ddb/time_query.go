/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/entitykit/object"
	"github.com/suparena/entitykit/storagemodels"
)

// TimeRangeQueryBuilder queries a GSI whose sort key template is a single
// timestamp macro, typically "GSI1SK": "{CreatedAt}". Bounds are rendered in
// the same UTC format the store writes timestamps in.
type TimeRangeQueryBuilder struct {
	*GSIQueryBuilder
	now func() time.Time
}

// QueryByTimeRange creates a new time-based query builder
func (d *DataStore) QueryByTimeRange(entityType, partitionKey string) *TimeRangeQueryBuilder {
	return &TimeRangeQueryBuilder{
		GSIQueryBuilder: d.QueryGSI(entityType).WithPartitionKey(partitionKey),
		now:             d.now,
	}
}

func formatTime(t time.Time) string {
	return strfmt.DateTime(t.UTC()).String()
}

// InLastHours queries items in the last N hours
func (q *TimeRangeQueryBuilder) InLastHours(hours int) *TimeRangeQueryBuilder {
	return q.After(q.now().Add(-time.Duration(hours) * time.Hour))
}

// InLastDays queries items in the last N days
func (q *TimeRangeQueryBuilder) InLastDays(days int) *TimeRangeQueryBuilder {
	return q.After(q.now().AddDate(0, 0, -days))
}

// Between queries items between two timestamps
func (q *TimeRangeQueryBuilder) Between(start, end time.Time) *TimeRangeQueryBuilder {
	q.WithSortKeyBetween(formatTime(start), formatTime(end))
	return q
}

// After queries items after a specific timestamp
func (q *TimeRangeQueryBuilder) After(timestamp time.Time) *TimeRangeQueryBuilder {
	q.WithSortKeyGreaterThan(formatTime(timestamp))
	return q
}

// Before queries items before a specific timestamp
func (q *TimeRangeQueryBuilder) Before(timestamp time.Time) *TimeRangeQueryBuilder {
	q.WithSortKeyLessThan(formatTime(timestamp))
	return q
}

// Today queries items since midnight UTC
func (q *TimeRangeQueryBuilder) Today() *TimeRangeQueryBuilder {
	now := q.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return q.Between(startOfDay, startOfDay.Add(24*time.Hour))
}

// Latest returns results newest first
func (q *TimeRangeQueryBuilder) Latest() *TimeRangeQueryBuilder {
	q.descending = true
	return q
}

// Oldest returns results oldest first
func (q *TimeRangeQueryBuilder) Oldest() *TimeRangeQueryBuilder {
	q.descending = false
	return q
}

// WithLimit sets the query limit
func (q *TimeRangeQueryBuilder) WithLimit(limit int32) *TimeRangeQueryBuilder {
	q.GSIQueryBuilder.WithLimit(limit)
	return q
}

// TimeWindowIterator walks [start, end) in fixed windows.
type TimeWindowIterator struct {
	store        *DataStore
	entityType   string
	partitionKey string
	windowSize   time.Duration
	endTime      time.Time
	current      time.Time
}

// QueryTimeWindows creates an iterator for querying in time windows
func (d *DataStore) QueryTimeWindows(entityType, partitionKey string, start, end time.Time, windowSize time.Duration) *TimeWindowIterator {
	return &TimeWindowIterator{
		store:        d,
		entityType:   entityType,
		partitionKey: partitionKey,
		windowSize:   windowSize,
		endTime:      end,
		current:      start,
	}
}

// Next returns the next window of results and whether more windows remain.
func (it *TimeWindowIterator) Next(ctx context.Context) ([]object.Object, bool, error) {
	if it.windowSize <= 0 || !it.current.Before(it.endTime) {
		return nil, false, nil
	}

	windowEnd := it.current.Add(it.windowSize)
	if windowEnd.After(it.endTime) {
		windowEnd = it.endTime
	}

	results, err := it.store.QueryByTimeRange(it.entityType, it.partitionKey).
		Between(it.current, windowEnd).
		Execute(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query time window: %w", err)
	}

	it.current = windowEnd
	return results, it.current.Before(it.endTime), nil
}

// QueryLatestItems queries the N most recent items
func (d *DataStore) QueryLatestItems(ctx context.Context, entityType, partitionKey string, limit int32) ([]object.Object, error) {
	return d.QueryByTimeRange(entityType, partitionKey).
		Latest().
		WithLimit(limit).
		Execute(ctx)
}

// StreamItemsSince streams items newer than since, newest first
func (d *DataStore) StreamItemsSince(ctx context.Context, entityType, partitionKey string, since time.Time, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult {
	return d.QueryByTimeRange(entityType, partitionKey).
		After(since).
		Latest().
		Stream(ctx, opts...)
}
