package codec

import (
	gojson "github.com/goccy/go-json"
)

// GoJSON is a JSON codec backed by github.com/goccy/go-json. Byte-output
// compatible with the stdlib codec but considerably faster to encode,
// which matters when snapshotting large graph dumps.
type GoJSON struct{}

// Marshal encodes the value to JSON.
func (GoJSON) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

// Name returns the unique name of the codec ("go-json").
func (GoJSON) Name() string { return "go-json" }

// Default is the codec used when none is configured.
//
// This only affects newly written snapshots; existing snapshots record
// their codec name and are decoded with the codec they were written with.
var Default Codec = GoJSON{}
