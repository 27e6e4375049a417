// Package blobstore abstracts where index snapshots are persisted.
//
// Snapshots are small, immutable, written and read whole, so the contract
// is deliberately byte-slice based rather than streaming. Local disk and
// in-memory implementations live here; S3 and MinIO backends live in the
// s3 and minio subpackages.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations must return an error satisfying
// errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("blobstore: blob not found")

// Store persists named immutable blobs.
type Store interface {
	// Put writes a blob atomically, replacing any existing blob with the
	// same name.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads a whole blob. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}
