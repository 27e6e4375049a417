package spatialgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/spatialgo/blobstore"
	"github.com/hupe1980/spatialgo/rtree"
)

var (
	// ErrNotFound is returned when an entry or snapshot is not found.
	ErrNotFound = errors.New("not found")

	// ErrNilGeometry is returned when an insert carries no geometry.
	ErrNilGeometry = errors.New("geometry must not be nil")

	// ErrNoBlobStore is returned by snapshot operations when no blob
	// store was configured.
	ErrNoBlobStore = errors.New("no blob store configured")

	// ErrSnapshotUnsupported is returned by SaveSnapshot when the graph
	// store cannot export its content.
	ErrSnapshotUnsupported = errors.New("graph store does not support snapshot export")

	// ErrCorrupted indicates the persisted index structure is broken.
	//
	// The underlying rtree error can be accessed via errors.As with
	// *rtree.ErrCorruptedIndex.
	ErrCorrupted = errors.New("corrupted index")
)

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var corrupted *rtree.ErrCorruptedIndex
	if errors.As(err, &corrupted) {
		return fmt.Errorf("%w: %w", ErrCorrupted, err)
	}

	return err
}
