package types

import "errors"

// Store operation errors. Callers match these with errors.Is; the storage
// layer wraps them with entity and ID context.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidID     = errors.New("invalid entity ID")
	ErrInvalidData   = errors.New("invalid entity data")
	ErrStoreClosed   = errors.New("store is closed")
)

// ErrConstraint reports that referential integrity failed when an import
// transaction attempted to commit: some record referenced an entity that
// does not exist anywhere in the imported set or the database.
var ErrConstraint = errors.New("constraint violation: referenced entity does not exist")

// Entity validation errors.
var (
	ErrInvalidStatus = errors.New("invalid status value")
	ErrInvalidType   = errors.New("invalid attachment type")
)
