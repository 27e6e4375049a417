package rtree

import (
	"errors"
	"fmt"

	"github.com/hupe1980/spatialgo/graphstore"
)

// ErrEmptyIndex is returned by BoundingBox when the tree holds no entries
// yet and therefore has no rectangle.
var ErrEmptyIndex = errors.New("rtree: index is empty")

// ErrCorruptedIndex indicates a structural invariant violation in the
// persisted tree. It is fatal and never retried.
type ErrCorruptedIndex struct {
	Node   graphstore.NodeID
	Reason string
}

func (e *ErrCorruptedIndex) Error() string {
	return fmt.Sprintf("rtree: corrupted index at node %d: %s", e.Node, e.Reason)
}

// ErrInvalidFanout indicates an unusable fanout configuration.
//
// Only two hard conditions are rejected: a minimum below one (the split's
// forced-completion rule cannot guarantee the fill invariant otherwise)
// and a minimum above the maximum (unsatisfiable). The usual R-tree
// soundness condition min <= max/2 is deliberately not enforced.
type ErrInvalidFanout struct {
	Max int
	Min int
}

func (e *ErrInvalidFanout) Error() string {
	return fmt.Sprintf("rtree: invalid fanout: max=%d min=%d (require 1 <= min <= max)", e.Max, e.Min)
}
