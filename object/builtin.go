/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package object

// Logical names of the built-in entity types.
const (
	UserEntityName = "_User"
	RoleEntityName = "_Role"
)

// User is the built-in account entity. Applications specialize it by
// embedding:
//
//	type Member struct {
//	    object.User
//	}
type User struct {
	Base
}

// EntityName implements Namer.
func (*User) EntityName() string { return UserEntityName }

// Username returns the "username" field.
func (u *User) Username() string { return u.GetString("username") }

// SetUsername sets the "username" field.
func (u *User) SetUsername(name string) { u.Put("username", name) }

// Email returns the "email" field.
func (u *User) Email() string { return u.GetString("email") }

// SetEmail sets the "email" field.
func (u *User) SetEmail(email string) { u.Put("email", email) }

// Role is the built-in access-control group.
type Role struct {
	Base
}

// EntityName implements Namer.
func (*Role) EntityName() string { return RoleEntityName }

// Name returns the role name.
func (r *Role) Name() string { return r.GetString("name") }

// SetName sets the role name.
func (r *Role) SetName(name string) { r.Put("name", name) }
