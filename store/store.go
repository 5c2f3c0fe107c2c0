// Package store defines the aggregate persistence interface. Each entity
// package (permission, role, grant) defines its own store interface; the
// composite Store composes them. Backends: Postgres, SQLite, MongoDB and Memory.
package store

import (
	"context"
	"errors"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
)

// Store is the aggregate persistence interface.
// A single backend (postgres, sqlite, memory) implements all of it.
type Store interface {
	permission.Store
	role.Store
	grant.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}

var (
	// ErrNotFound is wrapped by backends when a row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is wrapped by backends when a unique constraint is violated.
	ErrConflict = errors.New("store: unique constraint violated")
)
