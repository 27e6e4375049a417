package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	for _, c := range []Codec{JSON{}, GoJSON{}} {
		got, ok := ByName(c.Name())
		require.True(t, ok, c.Name())
		assert.Equal(t, c.Name(), got.Name())
	}

	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestRoundtrip(t *testing.T) {
	type payload struct {
		ID   uint64            `json:"id"`
		Tags map[string]string `json:"tags"`
	}

	in := payload{ID: 7, Tags: map[string]string{"name": "pier 12"}}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out payload
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}
