package endian

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	require.Equal(t, binary.BigEndian, Select(true))
	require.Equal(t, binary.LittleEndian, Select(false))
}

func TestIsBig(t *testing.T) {
	require.True(t, IsBig(Big()))
	require.False(t, IsBig(Little()))
}
