package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringers(t *testing.T) {
	require.Equal(t, "fake", LoadFake.String())
	require.Equal(t, "real", LoadReal.String())
	require.Equal(t, "Zstd", CompressionZstd.String())
	require.Equal(t, "FastLZ", CompressionFastLZ.String())
	require.Equal(t, "Unknown", CompressionType(99).String())
	require.Equal(t, "APK", ContainerAPK.String())
}
