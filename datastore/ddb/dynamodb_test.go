/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/entitykit"
	"github.com/suparena/entitykit/errors"
	"github.com/suparena/entitykit/object"
	"github.com/suparena/entitykit/registry"
)

type person struct {
	object.Base
}

func (p *person) SetDefaultValues() {
	p.Put("nickname", "The Flash")
}

// eagerPerson dirties every instance it constructs.
type eagerPerson struct {
	person
}

func newEagerPerson() *eagerPerson {
	p := &eagerPerson{}
	p.Put("nickname", "eager")
	return p
}

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestStore(t *testing.T) (*DataStore, *fakeAPI, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register("Person", (*person)(nil)))

	require.NoError(t, registry.RegisterIndexMap("Person", map[string]string{
		"PK":     "PERSON#{ObjectId}",
		"SK":     "PERSON#{ObjectId}",
		"GSI1PK": "NICK#{nickname}",
		"GSI1SK": "{CreatedAt}",
	}))
	t.Cleanup(func() { registry.UnregisterIndexMap("Person") })

	api := newFakeAPI()
	ids := 0
	store := New(api, "entities", entitykit.NewFactory(reg),
		WithIDFunc(func() string {
			ids++
			return "id-" + strconv.Itoa(ids)
		}),
		WithClock(func() time.Time { return fixedNow }),
	)
	return store, api, reg
}

func TestSaveNewObject(t *testing.T) {
	ctx := context.Background()
	store, api, reg := newTestStore(t)

	p, err := entitykit.NewFactory(reg).CreateFresh("Person")
	require.NoError(t, err)
	require.True(t, p.IsDirty())

	require.NoError(t, store.Save(ctx, p))
	assert.False(t, p.IsNew())
	assert.False(t, p.IsDirty())
	assert.Equal(t, "id-1", p.ObjectID())

	item, ok := api.item("PERSON#id-1", "PERSON#id-1")
	require.True(t, ok)

	var got map[string]any
	require.NoError(t, attributevalue.UnmarshalMap(item, &got))
	assert.Equal(t, "Person", got[AttrEntityType])
	assert.Equal(t, "id-1", got[AttrObjectID])
	assert.Equal(t, "The Flash", got["nickname"])
	assert.Equal(t, "NICK#The Flash", got["GSI1PK"])
	assert.Equal(t, "2025-03-04T05:06:07.000Z", got["GSI1SK"])
	assert.Equal(t, "2025-03-04T05:06:07.000Z", got[AttrCreatedAt])

	require.Len(t, api.puts, 1)
	assert.Equal(t, "attribute_not_exists(PK)", *api.puts[0].ConditionExpression)
}

func TestSaveExistingIDConflict(t *testing.T) {
	ctx := context.Background()
	store, _, reg := newTestStore(t)
	f := entitykit.NewFactory(reg)

	first, err := f.CreateFresh("Person")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, first))

	store.newID = func() string { return "id-1" }
	second, err := f.CreateFresh("Person")
	require.NoError(t, err)

	err = store.Save(ctx, second)
	assert.True(t, errors.IsAlreadyExists(err), "got %v", err)
	assert.True(t, second.IsNew())
}

func TestGetMaterializesCleanReference(t *testing.T) {
	ctx := context.Background()
	store, _, reg := newTestStore(t)

	p, err := entitykit.NewFactory(reg).CreateFresh("Person")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, p))

	got, err := store.Get(ctx, "Person", p.ObjectID())
	require.NoError(t, err)
	require.IsType(t, &person{}, got)

	loaded := got.(*person)
	assert.False(t, loaded.IsNew())
	assert.False(t, loaded.IsDirty())
	assert.Equal(t, "The Flash", loaded.GetString("nickname"))
	assert.False(t, loaded.Has("GSI1PK"), "index attributes are not fields")
	assert.True(t, fixedNow.Equal(time.Time(loaded.CreatedAt())))

	_, err = store.Get(ctx, "Person", "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestGetRejectsDirtyingConstructor(t *testing.T) {
	ctx := context.Background()
	store, _, reg := newTestStore(t)

	p, err := entitykit.NewFactory(reg).CreateFresh("Person")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, p))

	require.NoError(t, registry.RegisterFunc(reg, "Person", newEagerPerson))

	_, err = store.Get(ctx, "Person", p.ObjectID())
	assert.True(t, errors.IsConstructionInvariant(err), "got %v", err)
}

func TestUpdateWritesDirtyKeysAndIndexes(t *testing.T) {
	ctx := context.Background()
	store, api, reg := newTestStore(t)
	f := entitykit.NewFactory(reg)

	p, err := f.CreateFresh("Person")
	require.NoError(t, err)
	p.(*person).Put("age", 30)
	require.NoError(t, store.Save(ctx, p))

	ref, err := f.CreateReference("Person", p.ObjectID())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, ref), "clean reference save is a no-op")
	assert.Empty(t, api.updates)

	pp := ref.(*person)
	pp.Put("nickname", "Barry")
	pp.Remove("age")
	require.NoError(t, store.Save(ctx, pp))
	assert.False(t, pp.IsDirty())

	require.Len(t, api.updates, 1)
	upd := api.updates[0]
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2 REMOVE #f3", *upd.UpdateExpression)
	assert.Equal(t, map[string]string{"#f0": "GSI1PK", "#f1": AttrUpdatedAt, "#f2": "nickname", "#f3": "age"}, upd.ExpressionAttributeNames)
	assert.Equal(t, "attribute_exists(PK)", *upd.ConditionExpression)

	require.NoError(t, store.Fetch(ctx, pp))
	assert.Equal(t, "Barry", pp.GetString("nickname"))
	assert.False(t, pp.Has("age"))
}

func TestUpdateRewritesIndexAttributes(t *testing.T) {
	ctx := context.Background()
	store, api, reg := newTestStore(t)

	p, err := entitykit.NewFactory(reg).CreateFresh("Person")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, p))

	pp := p.(*person)
	pp.Put("nickname", "Kid Flash")
	require.NoError(t, store.Save(ctx, pp))

	item, ok := api.item("PERSON#id-1", "PERSON#id-1")
	require.True(t, ok)
	var got map[string]any
	require.NoError(t, attributevalue.UnmarshalMap(item, &got))
	assert.Equal(t, "Kid Flash", got["nickname"])
	assert.Equal(t, "NICK#Kid Flash", got["GSI1PK"])
	assert.Equal(t, "2025-03-04T05:06:07.000Z", got["GSI1SK"], "templates without changed fields are left alone")

	pp.Remove("nickname")
	require.NoError(t, store.Save(ctx, pp))
	item, _ = api.item("PERSON#id-1", "PERSON#id-1")
	assert.NotContains(t, item, "nickname")
	assert.NotContains(t, item, "GSI1PK", "an index attribute that no longer resolves is removed")
	assert.Contains(t, item, "GSI1SK")
}

func TestSaveOmitsUnresolvedIndexAttributes(t *testing.T) {
	ctx := context.Background()
	store, api, reg := newTestStore(t)

	p, err := entitykit.NewFactory(reg).CreateFresh("Person")
	require.NoError(t, err)
	p.(*person).Remove("nickname")
	require.NoError(t, store.Save(ctx, p))

	item, ok := api.item("PERSON#id-1", "PERSON#id-1")
	require.True(t, ok)
	assert.NotContains(t, item, "GSI1PK")
	assert.Contains(t, item, "GSI1SK")
}

type account struct {
	object.Base
}

func newAccountStore(t *testing.T) (*DataStore, *fakeAPI, *entitykit.Factory) {
	t.Helper()
	store, api, reg := newTestStore(t)
	require.NoError(t, reg.Register("Account", (*account)(nil)))
	require.NoError(t, registry.RegisterIndexMap("Account", map[string]string{
		"PK": "EMAIL#{email}",
		"SK": "ACCT",
	}))
	t.Cleanup(func() { registry.UnregisterIndexMap("Account") })
	return store, api, entitykit.NewFactory(reg)
}

func TestKeyFieldEditedLocally(t *testing.T) {
	ctx := context.Background()

	t.Run("UpdateIsRejected", func(t *testing.T) {
		store, api, f := newAccountStore(t)
		a, err := f.CreateFresh("Account")
		require.NoError(t, err)
		a.(*account).Put("email", "a@x")
		require.NoError(t, store.Save(ctx, a))

		a.(*account).Put("email", "b@x")
		err = store.Save(ctx, a)
		assert.True(t, errors.IsValidationError(err), "got %v", err)
		assert.True(t, a.IsDirty())
		assert.Empty(t, api.updates)

		item, ok := api.item("EMAIL#a@x", "ACCT")
		require.True(t, ok)
		assert.Equal(t, &types.AttributeValueMemberS{Value: "a@x"}, item["email"])
	})

	t.Run("OtherFieldsStillUpdate", func(t *testing.T) {
		store, api, f := newAccountStore(t)
		a, err := f.CreateFresh("Account")
		require.NoError(t, err)
		a.(*account).Put("email", "a@x")
		require.NoError(t, store.Save(ctx, a))

		a.(*account).Put("plan", "pro")
		require.NoError(t, store.Save(ctx, a))
		require.Len(t, api.updates, 1)
		assert.Equal(t, map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: "EMAIL#a@x"},
			AttrSK: &types.AttributeValueMemberS{Value: "ACCT"},
		}, api.updates[0].Key)
	})

	t.Run("FetchAndDeleteUseServerKey", func(t *testing.T) {
		store, api, f := newAccountStore(t)
		a, err := f.CreateFresh("Account")
		require.NoError(t, err)
		a.(*account).Put("email", "a@x")
		require.NoError(t, store.Save(ctx, a))

		a.(*account).Put("email", "b@x")
		require.NoError(t, store.Fetch(ctx, a))
		assert.Equal(t, "b@x", a.(*account).GetString("email"), "pending change survives fetch")

		require.NoError(t, store.Delete(ctx, a))
		_, ok := api.item("EMAIL#a@x", "ACCT")
		assert.False(t, ok)

		err = store.Delete(ctx, a)
		assert.True(t, errors.IsNotFound(err), "got %v", err)
	})
}

func TestUpdateMissingRow(t *testing.T) {
	ctx := context.Background()
	store, _, reg := newTestStore(t)

	ref, err := entitykit.NewFactory(reg).CreateReference("Person", "ghost")
	require.NoError(t, err)
	ref.(*person).Put("nickname", "Boo")

	err = store.Save(ctx, ref)
	assert.True(t, errors.IsConditionFailed(err), "got %v", err)
	assert.True(t, ref.IsDirty())
}

func TestSaveRejectsReservedFieldNames(t *testing.T) {
	ctx := context.Background()
	store, _, reg := newTestStore(t)

	for _, field := range []string{AttrEntityType, AttrPK, "GSI1PK"} {
		t.Run(field, func(t *testing.T) {
			p, err := entitykit.NewFactory(reg).CreateFresh("Person")
			require.NoError(t, err)
			p.(*person).Put(field, "x")
			err = store.Save(ctx, p)
			assert.True(t, errors.IsValidationError(err), "got %v", err)
		})
	}
}

func TestDeleteAndFetchRequireSavedObject(t *testing.T) {
	ctx := context.Background()
	store, api, reg := newTestStore(t)
	f := entitykit.NewFactory(reg)

	p, err := f.CreateFresh("Person")
	require.NoError(t, err)
	assert.True(t, errors.IsValidationError(store.Delete(ctx, p)))
	assert.True(t, errors.IsValidationError(store.Fetch(ctx, p)))

	require.NoError(t, store.Save(ctx, p))
	require.NoError(t, store.Delete(ctx, p))
	_, ok := api.item("PERSON#"+p.ObjectID(), "PERSON#"+p.ObjectID())
	assert.False(t, ok)
	assert.True(t, errors.IsNotFound(store.Fetch(ctx, p)))
}

func TestGetWithFieldKeyedIndexMap(t *testing.T) {
	store, _, _ := newTestStore(t)
	require.NoError(t, registry.RegisterIndexMap("Order", map[string]string{
		"PK": "USER#{userId}",
		"SK": "ORDER#{ObjectId}",
	}))
	t.Cleanup(func() { registry.UnregisterIndexMap("Order") })

	_, err := store.Get(context.Background(), "Order", "o1")
	assert.True(t, errors.IsValidationError(err), "got %v", err)
}

func TestBuildUpdateExpression(t *testing.T) {
	expr, names, values, err := buildUpdateExpression(map[string]any{"b": 1, "a": "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1", expr)
	assert.Equal(t, "a", names["#f0"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "x"}, values[":v0"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "1"}, values[":v1"])

	expr, names, values, err = buildUpdateExpression(nil, []string{"z"})
	require.NoError(t, err)
	assert.Equal(t, "REMOVE #f0", expr)
	assert.Equal(t, "z", names["#f0"])
	assert.Nil(t, values)

	_, _, _, err = buildUpdateExpression(nil, nil)
	assert.Error(t, err)
}

func TestMacroValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
		ok   bool
	}{
		{"abc", "abc", true},
		{42, "42", true},
		{3.5, "3.5", true},
		{true, "true", true},
		{[]string{"a"}, "", false},
		{nil, "", false},
	}
	for _, tc := range cases {
		got, ok := macroValue(tc.in)
		assert.Equal(t, tc.ok, ok, "%v", tc.in)
		assert.Equal(t, tc.want, got, "%v", tc.in)
	}
}
