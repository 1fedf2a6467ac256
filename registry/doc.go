/*
Package registry maps logical entity type names to concrete Go types and to
their storage index maps.

Type Registry:

A logical name ("Person", "_User") resolves to exactly one active type.
Types are registered with a zero-argument constructor or a pointer
prototype:

	registry.Register("Person", NewPerson)          // func() *Person
	registry.Register("Person", (*Person)(nil))     // zero value is the construction
	registry.RegisterFunc(r, "Person", NewPerson)   // checked at compile time
	registry.RegisterType((*object.User)(nil))      // name from object.Namer

Several types may compete for one name. A type specializes another when it
embeds it, directly or through other embedded structs. The most specialized
type always wins, whatever the registration order:

	type Member struct{ object.User }

	registry.RegisterType((*object.User)(nil))  // _User -> *object.User
	registry.Register("_User", (*Member)(nil))  // _User -> *Member
	registry.RegisterType((*object.User)(nil))  // accepted, _User stays *Member

Registering a type unrelated to the active one is ambiguous and fails with
a RegistrationError, as does a type without a usable zero-argument
constructor. Failed registrations leave the registry untouched.

Each name is stored in its own slot and updated by compare-and-swap, so the
registry is safe for concurrent use and never runs constructors while
holding a lock. Unregister is idempotent; Reset clears everything for test
isolation.

Index Map Registry:

Associates entity type names with single-table key templates:

	registry.RegisterIndexMap("Person", map[string]string{
	    "PK":     "PERSON#{ObjectId}",
	    "SK":     "PERSON#{ObjectId}",
	    "GSI1PK": "NICK#{nickname}",
	    "GSI1SK": "PERSON",
	})

Index maps can also be loaded from YAML with RegisterIndexMaps. Types
without one use DefaultIndexMap.
*/
package registry
