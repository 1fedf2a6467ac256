/*
Package entitykit maps logical entity type names, such as "Person" or "_User",
to Go types and builds instances of them.

A type is registered under a name with the registry package. When several
registered types are related by struct embedding, the most specialized one is
active for the name, whatever the registration order:

	type Member struct{ object.User }

	registry.Register(object.UserEntityName, (*Member)(nil))
	u, _ := entitykit.CreateFresh("_User") // u is a *Member

The Factory creates two kinds of instances:
  - CreateFresh builds a new local object and lets it populate its defaults
    through object.DefaultsPopulator. The result may be dirty.
  - CreateReference builds a clean object standing for an existing remote
    row. If the type's constructor leaves the instance dirty, it fails with
    errors.ConstructionInvariantError rather than return it.

Datastores read rows back only through CreateReference, so every stored
object arrives clean and not new.

Basic Usage:

	factory := entitykit.NewFactory(nil) // process-wide registry
	store, _ := ddb.NewDynamodbDataStore(ctx, cfg.AWS, factory)

	storage := entitykit.NewStorageManager()
	storage.SetFallback(store)

	client := entitykit.NewClient(factory, storage)
	p, _ := client.New("Person")
	err := client.Save(ctx, p)
*/
package entitykit
