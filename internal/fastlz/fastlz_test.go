package fastlz

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("a"),
		[]byte("abc"),
		[]byte("HELLO"),
		[]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 64),
		bytes.Repeat([]byte{0}, 5000),
	}
	for _, src := range cases {
		comp := Compress(src)
		out, err := Decompress(comp, len(src))
		require.NoError(t, err, "input len %d", len(src))
		require.Equal(t, src, out)
	}
}

func TestRoundTripBinary(t *testing.T) {
	// Pseudo-random but repetitive payload, like a resource body.
	src := make([]byte, 32*1024)
	x := uint32(12345)
	for i := range src {
		x = x*1103515245 + 12341
		src[i] = byte(x >> 28) // few distinct values, long matches
	}
	comp := Compress(src)
	out, err := Decompress(comp, len(src))
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestDecompressCorrupt(t *testing.T) {
	_, err := Decompress([]byte{0xE0}, 100)
	require.Error(t, err)
}
