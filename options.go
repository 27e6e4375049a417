package spatialgo

import (
	"log/slog"

	"github.com/hupe1980/spatialgo/blobstore"
	"github.com/hupe1980/spatialgo/codec"
	"github.com/hupe1980/spatialgo/snapshot"
)

type options struct {
	codec            codec.Codec
	blobStore        blobstore.Store
	compression      snapshot.Compression
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures constructor/load behavior.
//
// Options exist to avoid exploding the API surface (e.g. codec-specific
// constructor variants).
type Option func(*options)

// WithCodec configures the codec used to encode payloads and snapshot
// sections.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithBlobStore configures where snapshots are written and read.
// Snapshot operations fail with ErrNoBlobStore when no store is set.
//
// Example:
//
//	store, _ := blobstore.NewLocalStore("./snapshots")
//	db, _ := spatialgo.RTree[string]().
//	    Options(spatialgo.WithBlobStore(store)).
//	    Build(ctx)
func WithBlobStore(s blobstore.Store) Option {
	return func(o *options) {
		o.blobStore = s
	}
}

// WithCompression configures the compression applied to snapshot
// sections. The default is snapshot.CompressionZstd.
func WithCompression(c snapshot.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
//
// Example with BasicMetricsCollector:
//
//	metrics := &spatialgo.BasicMetricsCollector{}
//	db, _ := spatialgo.RTree[string]().
//	    Options(spatialgo.WithMetricsCollector(metrics)).
//	    Build(ctx)
//	// ... use db ...
//	stats := metrics.GetStats()
//	fmt.Printf("Inserts: %d, Avg latency: %dns\n", stats.InsertCount, stats.InsertAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
//
// Example with JSON logging:
//
//	logger := spatialgo.NewJSONLogger(slog.LevelInfo)
//	db, _ := spatialgo.RTree[string]().
//	    Options(spatialgo.WithLogger(logger)).
//	    Build(ctx)
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            nil,
		compression:      snapshot.CompressionZstd,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
