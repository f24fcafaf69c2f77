package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gdrec/gdrec/format"
	"github.com/gdrec/gdrec/stream"
)

func TestContainerRoundTrip(t *testing.T) {
	modes := []format.CompressionType{
		format.CompressionFastLZ,
		format.CompressionDeflate,
		format.CompressionZstd,
		format.CompressionGzip,
	}
	payload := bytes.Repeat([]byte("resource body bytes "), 1000)

	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			require := require.New(t)

			w := stream.NewWriter()
			defer w.Release()
			require.NoError(Write(w, mode, 4096, payload))

			r := stream.NewReaderBytes(w.Bytes())
			magic, err := r.GetBuffer(4)
			require.NoError(err)
			require.Equal(Magic, string(magic))

			inner, container, err := OpenAfterMagic(r)
			require.NoError(err)
			require.Equal(mode, container.Mode)
			out, err := inner.GetBuffer(int(inner.Length()))
			require.NoError(err)
			require.Equal(payload, out)
		})
	}
}

func TestContainerShortPayload(t *testing.T) {
	require := require.New(t)

	w := stream.NewWriter()
	defer w.Release()
	require.NoError(Write(w, format.CompressionZstd, 4096, []byte("tiny")))

	r := stream.NewReaderBytes(w.Bytes()[4:])
	inner, _, err := OpenAfterMagic(r)
	require.NoError(err)
	out, err := inner.GetBuffer(4)
	require.NoError(err)
	require.Equal("tiny", string(out))
}

func TestUnknownMode(t *testing.T) {
	_, err := GetCodec(format.CompressionType(9))
	require.Error(t, err)
}
