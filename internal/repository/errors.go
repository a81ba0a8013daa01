// Package repository implements the credential store: durable lookup and
// mutation of users, roles, tools and their associations on MySQL. The
// sentinel errors below let handlers map failures onto HTTP statuses
// without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a referenced user, role or tool id does
// not exist. Handlers translate this into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrUsernameExists and ErrEmailExists are returned when a create or
// update would violate the corresponding unique constraint. Handlers
// translate these into HTTP 409.
var (
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
)

// ErrDuplicateName is returned when a role or tool create would reuse an
// existing unique name.
var ErrDuplicateName = errors.New("name already exists")

// ErrSelfDeletion is returned when an administrator attempts to delete
// their own account. Handlers translate this into HTTP 403.
var ErrSelfDeletion = errors.New("cannot delete own account")
