// Package storage holds the adapters behind the recipient list service's
// persistence ports: byte caches (Redis, DynamoDB, in-memory) for parsed
// recipients and archives (S3, local disk) for the raw uploaded files.
package storage

import "errors"

var (
	// ErrNotFound is returned by archives when a key does not exist.
	ErrNotFound = errors.New("storage: object not found")
	// ErrTooLarge is returned by caches that cannot hold a payload of the
	// given size. Nothing is written.
	ErrTooLarge = errors.New("storage: value too large for cache")
)
