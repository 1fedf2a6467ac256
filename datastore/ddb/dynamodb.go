/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"

	"github.com/suparena/entitykit/config"
	"github.com/suparena/entitykit/datastore"
	entityerrors "github.com/suparena/entitykit/errors"
	"github.com/suparena/entitykit/internal/ctxlog"
	"github.com/suparena/entitykit/object"
	"github.com/suparena/entitykit/registry"
)

// System attributes written on every item.
const (
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrEntityType = "EntityType"
	AttrObjectID   = "ObjectId"
	AttrCreatedAt  = "CreatedAt"
	AttrUpdatedAt  = "UpdatedAt"
)

var systemAttributes = map[string]struct{}{
	AttrPK:         {},
	AttrSK:         {},
	AttrEntityType: {},
	AttrObjectID:   {},
	AttrCreatedAt:  {},
	AttrUpdatedAt:  {},
}

// API is the subset of the DynamoDB client used by DataStore.
// *dynamodb.Client satisfies it.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
}

var _ datastore.DataStore = (*DataStore)(nil)

// DataStore implements datastore.DataStore on a single DynamoDB table.
type DataStore struct {
	client    API
	tableName string
	factory   datastore.Factory
	newID     func() string
	now       func() time.Time
}

// Option configures a DataStore.
type Option func(*DataStore)

// WithIDFunc sets the function used to assign ids to new objects.
func WithIDFunc(f func() string) Option {
	return func(d *DataStore) {
		d.newID = f
	}
}

// WithClock sets the time source for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(d *DataStore) {
		d.now = now
	}
}

// NewDynamoDBClient initializes a DynamoDB client from the AWS settings.
// Static credentials are used when an access key is set, otherwise the
// default credential chain applies.
func NewDynamoDBClient(ctx context.Context, cfg config.AWS) (*sdk.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	ctxlog.FromContext(ctx).Debug("DynamoDB client initialized", "table", cfg.Table, "region", cfg.Region)
	return client, nil
}

// New constructs a DataStore over an existing client.
func New(client API, tableName string, factory datastore.Factory, opts ...Option) *DataStore {
	d := &DataStore{
		client:    client,
		tableName: tableName,
		factory:   factory,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewDynamodbDataStore connects to DynamoDB with cfg and returns a DataStore
// for cfg.Table.
func NewDynamodbDataStore(ctx context.Context, cfg config.AWS, factory datastore.Factory, opts ...Option) (*DataStore, error) {
	client, err := NewDynamoDBClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	return New(client, cfg.Table, factory, opts...), nil
}

// TableName returns the table the store reads and writes.
func (d *DataStore) TableName() string {
	return d.tableName
}

// Get loads the item for (entityType, id). The index map of entityType must
// only reference {EntityType} and {ObjectId} in PK and SK.
func (d *DataStore) Get(ctx context.Context, entityType, id string) (object.Object, error) {
	key, err := primaryKey(entityType, id, nil)
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("GetItem", "table", d.tableName, "entityType", entityType, "id", id)
	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: &d.tableName,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return nil, entityerrors.NewNotFoundError(entityType, id)
	}
	return d.materialize(out.Item)
}

// Fetch reloads the server state of a saved object. Pending local changes
// are kept.
func (d *DataStore) Fetch(ctx context.Context, obj object.Object) error {
	if obj.IsNew() {
		return entityerrors.NewValidationError(AttrObjectID, "cannot fetch an unsaved object")
	}

	key, err := primaryKey(obj.EntityType(), obj.ObjectID(), object.ServerData(obj))
	if err != nil {
		return err
	}

	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: &d.tableName,
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return entityerrors.NewNotFoundError(obj.EntityType(), obj.ObjectID())
	}

	_, fields, createdAt, updatedAt, err := decodeItem(out.Item)
	if err != nil {
		return err
	}
	object.ApplyServerData(obj, fields, createdAt, updatedAt)
	return nil
}

// Save creates new objects with a conditional PutItem and writes the dirty
// keys of existing objects with a conditional UpdateItem. Saving a clean
// existing object does nothing.
func (d *DataStore) Save(ctx context.Context, obj object.Object) error {
	if obj.IsNew() {
		return d.create(ctx, obj)
	}
	if !obj.IsDirty() {
		return nil
	}
	return d.update(ctx, obj)
}

func (d *DataStore) create(ctx context.Context, obj object.Object) error {
	entityType := obj.EntityType()
	id := obj.ObjectID()
	if id == "" {
		id = d.newID()
	}
	now := d.now()
	ts := strfmt.DateTime(now.UTC()).String()

	fields := object.Snapshot(obj)
	indexMap := registry.IndexMapFor(entityType)
	item, err := marshalFields(fields, indexMap)
	if err != nil {
		return err
	}

	// GSI templates may sort on {CreatedAt}, which never changes after create.
	system := map[string]string{AttrEntityType: entityType, AttrObjectID: id, AttrCreatedAt: ts}
	primary, err := expandIndexMap(primaryTemplates(indexMap), system, fields)
	if err != nil {
		return err
	}
	key, err := buildKeyFromExpanded(primary)
	if err != nil {
		return err
	}
	for k, v := range key {
		item[k] = v
	}
	secondary, _ := expandSecondary(indexMap, system, fields, nil)
	for k, v := range secondary {
		item[k] = &types.AttributeValueMemberS{Value: v}
	}
	item[AttrEntityType] = &types.AttributeValueMemberS{Value: entityType}
	item[AttrObjectID] = &types.AttributeValueMemberS{Value: id}
	item[AttrCreatedAt] = &types.AttributeValueMemberS{Value: ts}
	item[AttrUpdatedAt] = &types.AttributeValueMemberS{Value: ts}

	ctxlog.FromContext(ctx).Debug("PutItem", "table", d.tableName, "entityType", entityType, "id", id)
	_, err = d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:           &d.tableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return entityerrors.NewAlreadyExistsError(entityType, id)
		}
		return fmt.Errorf("PutItem failed: %w", err)
	}

	object.Commit(obj, id, now)
	return nil
}

// update addresses the row by the object's server state, so local edits of
// key fields cannot redirect it. Secondary index attributes whose templates
// reference a changed field are rewritten, or removed when they no longer
// resolve.
func (d *DataStore) update(ctx context.Context, obj object.Object) error {
	entityType := obj.EntityType()
	key, err := primaryKey(entityType, obj.ObjectID(), object.ServerData(obj))
	if err != nil {
		return err
	}

	now := d.now()
	set, removed := object.Changes(obj)
	indexMap := registry.IndexMapFor(entityType)
	changed := make(map[string]bool, len(set)+len(removed))
	for k := range set {
		if err := checkFieldName(k, indexMap); err != nil {
			return err
		}
		changed[k] = true
	}
	for _, k := range removed {
		changed[k] = true
	}
	for attr, template := range primaryTemplates(indexMap) {
		for _, m := range registry.Macros(template) {
			if changed[m] {
				return entityerrors.NewValidationError(m, "field is part of the "+attr+" key and cannot change")
			}
		}
	}

	system := map[string]string{AttrEntityType: entityType, AttrObjectID: obj.ObjectID()}
	if c, ok := obj.(interface{ CreatedAt() strfmt.DateTime }); ok && !time.Time(c.CreatedAt()).IsZero() {
		system[AttrCreatedAt] = c.CreatedAt().String()
	}
	secondary, unresolved := expandSecondary(indexMap, system, object.Snapshot(obj), changed)
	for attr, v := range secondary {
		set[attr] = v
	}
	removed = append(removed, unresolved...)
	set[AttrUpdatedAt] = strfmt.DateTime(now.UTC()).String()

	updateExpr, names, values, err := buildUpdateExpression(set, removed)
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}

	ctxlog.FromContext(ctx).Debug("UpdateItem", "table", d.tableName, "entityType", entityType,
		"id", obj.ObjectID(), "set", len(set), "removed", len(removed))
	_, err = d.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:                 &d.tableName,
		Key:                       key,
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return entityerrors.NewConditionFailedError("update", "attribute_exists(PK)")
		}
		return fmt.Errorf("UpdateItem failed: %w", err)
	}

	object.Commit(obj, "", now)
	return nil
}

// Delete removes a saved object.
func (d *DataStore) Delete(ctx context.Context, obj object.Object) error {
	if obj.IsNew() {
		return entityerrors.NewValidationError(AttrObjectID, "cannot delete an unsaved object")
	}

	key, err := primaryKey(obj.EntityType(), obj.ObjectID(), object.ServerData(obj))
	if err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Debug("DeleteItem", "table", d.tableName, "entityType", obj.EntityType(), "id", obj.ObjectID())
	_, err = d.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:           &d.tableName,
		Key:                 key,
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return entityerrors.NewNotFoundError(obj.EntityType(), obj.ObjectID())
		}
		return fmt.Errorf("failed to delete item in DynamoDB: %w", err)
	}
	return nil
}

// materialize turns an item into a clean reference built by the factory.
func (d *DataStore) materialize(item map[string]types.AttributeValue) (object.Object, error) {
	header, fields, createdAt, updatedAt, err := decodeItem(item)
	if err != nil {
		return nil, err
	}

	obj, err := d.factory.CreateReference(header.entityType, header.id)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize %s %q: %w", header.entityType, header.id, err)
	}
	object.ApplyServerData(obj, fields, createdAt, updatedAt)
	return obj, nil
}

type itemHeader struct {
	entityType string
	id         string
}

// decodeItem splits an item into its system attributes and entity fields.
// Index attributes named by the entity type's index map are dropped.
func decodeItem(item map[string]types.AttributeValue) (itemHeader, map[string]any, strfmt.DateTime, strfmt.DateTime, error) {
	var h itemHeader
	var createdAt, updatedAt strfmt.DateTime

	if err := unmarshalString(item, AttrEntityType, &h.entityType, true); err != nil {
		return h, nil, createdAt, updatedAt, err
	}
	if err := unmarshalString(item, AttrObjectID, &h.id, true); err != nil {
		return h, nil, createdAt, updatedAt, err
	}

	var raw string
	if err := unmarshalString(item, AttrCreatedAt, &raw, false); err != nil {
		return h, nil, createdAt, updatedAt, err
	}
	if raw != "" {
		dt, err := strfmt.ParseDateTime(raw)
		if err != nil {
			return h, nil, createdAt, updatedAt, fmt.Errorf("invalid %s %q: %w", AttrCreatedAt, raw, err)
		}
		createdAt = dt
	}
	raw = ""
	if err := unmarshalString(item, AttrUpdatedAt, &raw, false); err != nil {
		return h, nil, createdAt, updatedAt, err
	}
	if raw != "" {
		dt, err := strfmt.ParseDateTime(raw)
		if err != nil {
			return h, nil, createdAt, updatedAt, fmt.Errorf("invalid %s %q: %w", AttrUpdatedAt, raw, err)
		}
		updatedAt = dt
	}

	indexAttrs := registry.IndexMapFor(h.entityType)
	fields := make(map[string]any, len(item))
	for k, av := range item {
		if _, sys := systemAttributes[k]; sys {
			continue
		}
		if _, idx := indexAttrs[k]; idx {
			continue
		}
		var v any
		if err := attributevalue.Unmarshal(av, &v); err != nil {
			return h, nil, createdAt, updatedAt, fmt.Errorf("failed to unmarshal attribute %q: %w", k, err)
		}
		fields[k] = v
	}
	return h, fields, createdAt, updatedAt, nil
}

func unmarshalString(item map[string]types.AttributeValue, attr string, out *string, required bool) error {
	av, ok := item[attr]
	if !ok {
		if required {
			return fmt.Errorf("missing %s attribute in item", attr)
		}
		return nil
	}
	if err := attributevalue.Unmarshal(av, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", attr, err)
	}
	return nil
}

func marshalFields(fields map[string]any, indexMap map[string]string) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, len(fields)+len(systemAttributes))
	for k, v := range fields {
		if err := checkFieldName(k, indexMap); err != nil {
			return nil, err
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %q: %w", k, err)
		}
		item[k] = av
	}
	return item, nil
}

func checkFieldName(name string, indexMap map[string]string) error {
	if _, sys := systemAttributes[name]; sys {
		return entityerrors.NewValidationError(name, "field name collides with a system attribute")
	}
	if _, idx := indexMap[name]; idx {
		return entityerrors.NewValidationError(name, "field name collides with an index attribute")
	}
	return nil
}

// primaryKey builds the PK/SK key of an entity from its index map.
func primaryKey(entityType, id string, fields map[string]any) (map[string]types.AttributeValue, error) {
	idx := registry.IndexMapFor(entityType)
	system := map[string]string{AttrEntityType: entityType, AttrObjectID: id}
	keys, err := expandIndexMap(primaryTemplates(idx), system, fields)
	if err != nil {
		return nil, err
	}
	return buildKeyFromExpanded(keys)
}

func primaryTemplates(indexMap map[string]string) map[string]string {
	return map[string]string{AttrPK: indexMap[AttrPK], AttrSK: indexMap[AttrSK]}
}

// expandIndexMap expands every template of indexMap. Macros naming a
// system attribute take their value from system; other macros name fields.
func expandIndexMap(indexMap map[string]string, system map[string]string, fields map[string]any) (map[string]string, error) {
	lookup := macroLookup(system, fields)
	res := make(map[string]string, len(indexMap))
	for attr, template := range indexMap {
		expanded, err := registry.ExpandTemplate(template, lookup)
		if err != nil {
			return nil, fmt.Errorf("failed to expand %s for %s: %w", attr, system[AttrEntityType], err)
		}
		res[attr] = expanded
	}
	return res, nil
}

// expandSecondary expands the index templates other than PK and SK. With a
// non-nil changed set, only templates referencing a changed field are
// considered. Attributes whose template has an unresolved macro are returned
// in unresolved, sorted; the item must not carry them.
func expandSecondary(indexMap map[string]string, system map[string]string, fields map[string]any, changed map[string]bool) (map[string]string, []string) {
	lookup := macroLookup(system, fields)
	res := make(map[string]string)
	var unresolved []string
	for attr, template := range indexMap {
		if attr == AttrPK || attr == AttrSK {
			continue
		}
		if changed != nil && !referencesAny(template, changed) {
			continue
		}
		expanded, err := registry.ExpandTemplate(template, lookup)
		if err != nil {
			unresolved = append(unresolved, attr)
			continue
		}
		res[attr] = expanded
	}
	sort.Strings(unresolved)
	return res, unresolved
}

func referencesAny(template string, names map[string]bool) bool {
	for _, m := range registry.Macros(template) {
		if names[m] {
			return true
		}
	}
	return false
}

func macroLookup(system map[string]string, fields map[string]any) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if v, ok := system[name]; ok {
			return v, v != ""
		}
		v, ok := fields[name]
		if !ok {
			return "", false
		}
		return macroValue(v)
	}
}

// macroValue renders a scalar field value for use inside a key.
func macroValue(v any) (string, bool) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return "", false
	}
	switch tv := av.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value, true
	case *types.AttributeValueMemberN:
		return tv.Value, true
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("%v", tv.Value), true
	default:
		return "", false
	}
}

// buildKeyFromExpanded builds a DynamoDB key from the expanded index map.
func buildKeyFromExpanded(expanded map[string]string) (map[string]types.AttributeValue, error) {
	pk, okPK := expanded[AttrPK]
	sk, okSK := expanded[AttrSK]

	if !okPK || !okSK || pk == "" || sk == "" {
		return nil, entityerrors.NewValidationError("indexMap", "expanded index map missing valid PK or SK")
	}

	return map[string]types.AttributeValue{
		AttrPK: &types.AttributeValueMemberS{Value: pk},
		AttrSK: &types.AttributeValueMemberS{Value: sk},
	}, nil
}

// buildUpdateExpression transforms the dirty keys into a "SET ... REMOVE ..."
// expression with placeholder names and values. Placeholders are assigned in
// key order so the expression is stable.
func buildUpdateExpression(set map[string]any, removed []string) (string, map[string]string, map[string]types.AttributeValue, error) {
	if len(set) == 0 && len(removed) == 0 {
		return "", nil, nil, errors.New("no updates provided")
	}

	setKeys := make([]string, 0, len(set))
	for k := range set {
		setKeys = append(setKeys, k)
	}
	sort.Strings(setKeys)
	removedKeys := append([]string(nil), removed...)
	sort.Strings(removedKeys)

	names := make(map[string]string, len(setKeys)+len(removedKeys))
	values := make(map[string]types.AttributeValue, len(setKeys))

	i := 0
	setClauses := make([]string, 0, len(setKeys))
	for _, field := range setKeys {
		placeholderName := fmt.Sprintf("#f%d", i)
		placeholderValue := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(set[field])
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to marshal field %q: %w", field, err)
		}
		names[placeholderName] = field
		values[placeholderValue] = av
		setClauses = append(setClauses, placeholderName+" = "+placeholderValue)
		i++
	}

	removeClauses := make([]string, 0, len(removedKeys))
	for _, field := range removedKeys {
		placeholderName := fmt.Sprintf("#f%d", i)
		names[placeholderName] = field
		removeClauses = append(removeClauses, placeholderName)
		i++
	}

	var parts []string
	if len(setClauses) > 0 {
		parts = append(parts, "SET "+strings.Join(setClauses, ", "))
	}
	if len(removeClauses) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(removeClauses, ", "))
	}
	if len(values) == 0 {
		values = nil
	}
	return strings.Join(parts, " "), names, values, nil
}
