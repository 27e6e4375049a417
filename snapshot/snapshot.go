// Package snapshot implements the self-describing persistence format for a
// whole spatial index: the graph store dump plus the entry payloads and
// geometries, wrapped in a header that records format version, codec name
// and compression.
//
// Because the header is self-describing, the default codec or compression
// can change without breaking existing snapshots: decoding always uses
// whatever the snapshot was written with.
package snapshot

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/spatialgo/codec"
	"github.com/hupe1980/spatialgo/geom"
	"github.com/hupe1980/spatialgo/graphstore"
)

var magic = [4]byte{'S', 'G', 'S', 'N'}

const formatVersion = 1

var (
	// ErrBadMagic is returned when the data is not a snapshot.
	ErrBadMagic = errors.New("snapshot: bad magic")

	// ErrUnknownCodec is returned when the snapshot was written with a
	// codec this build does not know.
	ErrUnknownCodec = errors.New("snapshot: unknown codec")

	// ErrTruncated is returned when the data ends before a section does.
	ErrTruncated = errors.New("snapshot: truncated data")
)

// ErrUnsupportedVersion is returned for snapshot format versions newer
// than this build understands.
type ErrUnsupportedVersion struct {
	Version uint8
}

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("snapshot: unsupported format version %d", e.Version)
}

// EntryRecord is the persisted form of one indexed entry: its store
// handle, the exterior ring of its geometry and the codec-encoded user
// payload.
type EntryRecord struct {
	ID   graphstore.NodeID `json:"id"`
	Ring []geom.Point      `json:"ring"`
	Data []byte            `json:"data"`
}

// Snapshot is the complete persisted state of one spatial index.
type Snapshot struct {
	// Layer is the tree identity node within the graph dump.
	Layer graphstore.NodeID `json:"layer"`

	// Graph is the full node/edge export of the graph store.
	Graph *graphstore.Dump `json:"graph"`

	// Entries carries geometry rings and payloads, keyed into the graph
	// by their node handles.
	Entries []EntryRecord `json:"entries"`
}

// state is the second snapshot section: everything except the graph dump.
type state struct {
	Layer   graphstore.NodeID `json:"layer"`
	Entries []EntryRecord     `json:"entries"`
}

// Encode serializes a snapshot: header, then the compressed graph and
// state sections. The two sections are encoded and compressed in
// parallel.
func Encode(ctx context.Context, snap *Snapshot, c codec.Codec, comp Compression) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}

	var graphSection, stateSection []byte

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := c.Marshal(snap.Graph)
		if err != nil {
			return fmt.Errorf("snapshot: encode graph: %w", err)
		}
		graphSection, err = comp.compress(data)
		return err
	})
	g.Go(func() error {
		data, err := c.Marshal(state{Layer: snap.Layer, Entries: snap.Entries})
		if err != nil {
			return fmt.Errorf("snapshot: encode entries: %w", err)
		}
		stateSection, err = comp.compress(data)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	name := c.Name()
	out := make([]byte, 0, len(magic)+3+len(name)+8+len(graphSection)+len(stateSection))
	out = append(out, magic[:]...)
	out = append(out, formatVersion, byte(comp), byte(len(name)))
	out = append(out, name...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(graphSection)))
	out = append(out, graphSection...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(stateSection)))
	out = append(out, stateSection...)
	return out, nil
}

// Decode deserializes a snapshot, selecting codec and compression from
// the header. The codec the snapshot was written with is returned so
// callers can decode the payload bytes inside EntryRecords with it.
func Decode(_ context.Context, data []byte) (*Snapshot, codec.Codec, error) {
	if len(data) < len(magic)+3 {
		return nil, nil, ErrTruncated
	}
	if [4]byte(data[:4]) != magic {
		return nil, nil, ErrBadMagic
	}
	if v := data[4]; v != formatVersion {
		return nil, nil, &ErrUnsupportedVersion{Version: v}
	}
	comp := Compression(data[5])
	nameLen := int(data[6])

	rest := data[7:]
	if len(rest) < nameLen {
		return nil, nil, ErrTruncated
	}
	c, ok := codec.ByName(string(rest[:nameLen]))
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownCodec, string(rest[:nameLen]))
	}
	rest = rest[nameLen:]

	graphSection, rest, err := readSection(rest)
	if err != nil {
		return nil, nil, err
	}
	stateSection, _, err := readSection(rest)
	if err != nil {
		return nil, nil, err
	}

	graphData, err := comp.decompress(graphSection)
	if err != nil {
		return nil, nil, err
	}
	var dump graphstore.Dump
	if err := c.Unmarshal(graphData, &dump); err != nil {
		return nil, nil, fmt.Errorf("snapshot: decode graph: %w", err)
	}

	stateData, err := comp.decompress(stateSection)
	if err != nil {
		return nil, nil, err
	}
	var st state
	if err := c.Unmarshal(stateData, &st); err != nil {
		return nil, nil, fmt.Errorf("snapshot: decode entries: %w", err)
	}

	return &Snapshot{Layer: st.Layer, Graph: &dump, Entries: st.Entries}, c, nil
}

func readSection(data []byte) (section, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, ErrTruncated
	}
	n := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]
	if uint32(len(data)) < n {
		return nil, nil, ErrTruncated
	}
	return data[:n], data[n:], nil
}
