/*
Package object defines the entity model shared by the registry, the factory
and the datastores.

Every entity type embeds Base, which stores fields as a map and tracks which
keys changed locally:

	type Person struct {
	    object.Base
	}

	func (p *Person) Nickname() string     { return p.GetString("nickname") }
	func (p *Person) SetNickname(n string) { p.Put("nickname", n) }

	// Runs only for brand-new objects.
	func (p *Person) SetDefaultValues() { p.SetNickname("The Flash") }

Dirty state:

An object is Clean or Dirty. Put and Remove move it to Dirty. Only a store
moves it back, through Commit after a save or by never dirtying it when it
loads server data with ApplyServerData.

Constructors registered for an entity type must not call Put. A reference
to a remote row is built with the constructor alone and must come out clean;
the factory rejects types whose constructors set fields. Defaults belong in
SetDefaultValues.
*/
package object
