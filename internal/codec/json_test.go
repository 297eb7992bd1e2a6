package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONEncodeDecodeRoundTrip(t *testing.T) {
	c := JSON{}
	type payload struct {
		A int
		B string
	}
	in := payload{A: 7, B: "hi"}

	b, err := c.Encode(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, c.Decode(b, &out))
	assert.Equal(t, in, out)
}

func TestJSONEncodableRejectsFuncs(t *testing.T) {
	c := JSON{}
	assert.False(t, c.Encodable(func() {}))
	assert.True(t, c.Encodable(42))
	assert.True(t, c.Encodable(nil))
}
