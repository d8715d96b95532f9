// Package repository provides key-value stores for session snapshots.
//
// Every backend stores opaque byte values under string keys. Values are
// replaced wholesale on Put; there is no partial update.
package repository

import "context"

// Store provides read/write access to snapshot blobs.
type Store interface {
	// Get returns the value stored under key.
	// Returns ErrNotFound if nothing is stored.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
