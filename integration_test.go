//go:build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitykit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/entitykit"
	"github.com/suparena/entitykit/config"
	"github.com/suparena/entitykit/datastore/ddb"
	"github.com/suparena/entitykit/errors"
	"github.com/suparena/entitykit/object"
	"github.com/suparena/entitykit/registry"
)

type IntegrationMember struct {
	object.User
}

func setupClient(t *testing.T) (*entitykit.Client, *registry.Registry) {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	if err := cfg.Validate(); err != nil {
		t.Skipf("DynamoDB not configured: %v", err)
	}

	reg := registry.New()
	require.NoError(t, registry.RegisterBuiltins(reg))
	require.NoError(t, reg.Register("Person", (*Person)(nil)))
	f := entitykit.NewFactory(reg)

	store, err := ddb.NewDynamodbDataStore(context.Background(), cfg.AWS, f)
	require.NoError(t, err)

	sm := entitykit.NewStorageManager()
	sm.SetFallback(store)
	return entitykit.NewClient(f, sm), reg
}

func TestIntegrationBasicOperations(t *testing.T) {
	ctx := context.Background()
	client, _ := setupClient(t)

	p, err := client.New("Person")
	require.NoError(t, err)
	require.NoError(t, client.Save(ctx, p))
	t.Cleanup(func() { _ = client.Delete(ctx, p) })

	got, err := client.Get(ctx, "Person", p.ObjectID())
	require.NoError(t, err)
	assert.Equal(t, "The Flash", got.(*Person).Nickname())
	assert.False(t, got.IsDirty())

	require.NoError(t, client.Delete(ctx, got))
	_, err = client.Get(ctx, "Person", p.ObjectID())
	assert.True(t, errors.IsNotFound(err))
}

func TestIntegrationSpecializedRead(t *testing.T) {
	ctx := context.Background()
	client, reg := setupClient(t)

	u, err := client.New(object.UserEntityName)
	require.NoError(t, err)
	u.(*object.User).SetUsername("integration")
	require.NoError(t, client.Save(ctx, u))
	t.Cleanup(func() { _ = client.Delete(ctx, u) })

	require.NoError(t, reg.Register(object.UserEntityName, (*IntegrationMember)(nil)))

	got, err := client.Get(ctx, object.UserEntityName, u.ObjectID())
	require.NoError(t, err)
	m, ok := got.(*IntegrationMember)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, "integration", m.Username())
}
