package class

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeScene struct{}

func (fakeScene) ClassName() string { return "PackedScene" }

func TestRegistry(t *testing.T) {
	require := require.New(t)

	r := NewRegistry()
	require.False(r.Known("PackedScene"))

	_, ok := r.Instantiate("PackedScene")
	require.False(ok)

	r.Register("PackedScene", func() Instance { return fakeScene{} })
	require.True(r.Known("PackedScene"))

	inst, ok := r.Instantiate("PackedScene")
	require.True(ok)
	require.Equal("PackedScene", inst.ClassName())
}
