package spatialgo

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/spatialgo/geom"
	"github.com/hupe1980/spatialgo/graphstore"
	"github.com/hupe1980/spatialgo/rtree"
	"github.com/hupe1980/spatialgo/snapshot"
)

// graphExporter is satisfied by graph stores that can dump their full
// content, e.g. graphstore.MemoryStore.
type graphExporter interface {
	Export(ctx context.Context) (*graphstore.Dump, error)
}

// SaveSnapshot writes the complete index state to the configured blob
// store under the given name: the graph dump plus every entry's geometry
// and codec-encoded payload.
//
// Returns ErrNoBlobStore when no blob store is configured and
// ErrSnapshotUnsupported when the graph store cannot export its content.
func (sg *Spatialgo[T]) SaveSnapshot(ctx context.Context, name string) error {
	start := time.Now()
	err := translateError(sg.saveSnapshot(ctx, name))
	sg.metrics.RecordSnapshot(time.Since(start), err)
	sg.logger.LogSnapshot(ctx, name, err)
	return err
}

func (sg *Spatialgo[T]) saveSnapshot(ctx context.Context, name string) error {
	if sg.blobStore == nil {
		return ErrNoBlobStore
	}
	exporter, ok := sg.store.(graphExporter)
	if !ok {
		return ErrSnapshotUnsupported
	}

	sg.mu.RLock()
	defer sg.mu.RUnlock()

	dump, err := exporter.Export(ctx)
	if err != nil {
		return err
	}

	records := make([]snapshot.EntryRecord, 0, sg.entries.len())
	for _, id := range sg.entries.ids() {
		g, ok := sg.entries.geometry(id)
		if !ok {
			continue
		}
		payload, _ := sg.entries.payload(id)
		data, err := sg.codec.Marshal(payload)
		if err != nil {
			return fmt.Errorf("spatialgo: encode payload of entry %d: %w", id, err)
		}
		records = append(records, snapshot.EntryRecord{
			ID:   id,
			Ring: g.Exterior(),
			Data: data,
		})
	}

	raw, err := snapshot.Encode(ctx, &snapshot.Snapshot{
		Layer:   sg.tree.Layer(),
		Graph:   dump,
		Entries: records,
	}, sg.codec, sg.compression)
	if err != nil {
		return err
	}

	return sg.blobStore.Put(ctx, name, raw)
}

// LoadSnapshot restores an index from a snapshot in a blob store. The
// snapshot's own codec decodes the payloads, regardless of the codec
// configured here; fanout parameters come from the persisted metadata.
//
// WithBlobStore is required. Returns ErrNotFound when no snapshot exists
// under the given name.
//
// Example:
//
//	db, err := spatialgo.LoadSnapshot[string](ctx, "city-parcels",
//	    spatialgo.WithBlobStore(blobs))
func LoadSnapshot[T any](ctx context.Context, name string, optFns ...Option) (*Spatialgo[T], error) {
	start := time.Now()
	opts := applyOptions(optFns)

	sg, err := loadSnapshot[T](ctx, name, opts)
	err = translateError(err)
	opts.metricsCollector.RecordSnapshot(time.Since(start), err)
	opts.logger.LogSnapshot(ctx, name, err)
	if err != nil {
		return nil, err
	}
	return sg, nil
}

func loadSnapshot[T any](ctx context.Context, name string, opts options) (*Spatialgo[T], error) {
	if opts.blobStore == nil {
		return nil, ErrNoBlobStore
	}

	raw, err := opts.blobStore.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	snap, snapCodec, err := snapshot.Decode(ctx, raw)
	if err != nil {
		return nil, err
	}

	store, err := graphstore.ImportMemoryStore(ctx, snap.Graph)
	if err != nil {
		return nil, err
	}

	// Persisted metadata overrides the defaults passed here.
	sg, err := newSpatialgo[T](ctx, store, snap.Layer, rtree.DefaultOptions, opts)
	if err != nil {
		return nil, err
	}

	for _, rec := range snap.Entries {
		g, err := geom.NewPolygon(rec.Ring)
		if err != nil {
			return nil, fmt.Errorf("spatialgo: restore geometry of entry %d: %w", rec.ID, err)
		}
		var data T
		if len(rec.Data) > 0 {
			if err := snapCodec.Unmarshal(rec.Data, &data); err != nil {
				return nil, fmt.Errorf("spatialgo: decode payload of entry %d: %w", rec.ID, err)
			}
		}
		sg.entries.put(rec.ID, g, data)
	}

	return sg, nil
}
