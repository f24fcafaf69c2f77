// Package compress implements the compressed-resource container and
// the block codecs it selects between.
//
// A compressed resource stream starts with the RSCC magic, followed by
// a mode word, a block size, the total uncompressed length, a table of
// per-block compressed sizes and the blocks themselves. OpenAfterMagic
// mirrors the engine's behavior of being handed a stream positioned
// just past the magic.
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/format"
	"github.com/gdrec/gdrec/internal/fastlz"
)

// Codec compresses and decompresses one block.
type Codec interface {
	// Compress returns a newly allocated compressed block.
	Compress(data []byte) ([]byte, error)
	// Decompress expands a block to exactly dstSize bytes.
	Decompress(data []byte, dstSize int) ([]byte, error)
}

// GetCodec returns the codec for an engine compression mode.
func GetCodec(mode format.CompressionType) (Codec, error) {
	switch mode {
	case format.CompressionFastLZ:
		return fastlzCodec{}, nil
	case format.CompressionDeflate:
		return deflateCodec{}, nil
	case format.CompressionZstd:
		return zstdCodec{}, nil
	case format.CompressionGzip:
		return gzipCodec{}, nil
	default:
		return nil, fmt.Errorf("compress: mode %d: %w", mode, errs.ErrUnsupported)
	}
}

type fastlzCodec struct{}

func (fastlzCodec) Compress(data []byte) ([]byte, error) {
	return fastlz.Compress(data), nil
}

func (fastlzCodec) Decompress(data []byte, dstSize int) ([]byte, error) {
	out, err := fastlz.Decompress(data, dstSize)
	if err != nil {
		return nil, fmt.Errorf("compress: %v: %w", err, errs.ErrCorrupt)
	}
	return out, nil
}

type deflateCodec struct{}

func (deflateCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (deflateCodec) Decompress(data []byte, dstSize int) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	out := make([]byte, dstSize)
	if _, err := io.ReadFull(fr, out); err != nil {
		return nil, fmt.Errorf("compress: deflate: %w", errs.ErrCorrupt)
	}
	return out, nil
}

type zstdCodec struct{}

func (zstdCodec) Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func (zstdCodec) Decompress(data []byte, dstSize int) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, make([]byte, 0, dstSize))
	if err != nil {
		return nil, fmt.Errorf("compress: zstd: %w", errs.ErrCorrupt)
	}
	if len(out) != dstSize {
		return nil, fmt.Errorf("compress: zstd: block size mismatch: %w", errs.ErrCorrupt)
	}
	return out, nil
}

type gzipCodec struct{}

func (gzipCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gzipCodec) Decompress(data []byte, dstSize int) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("compress: gzip: %w", errs.ErrCorrupt)
	}
	defer gr.Close()
	out := make([]byte, dstSize)
	if _, err := io.ReadFull(gr, out); err != nil {
		return nil, fmt.Errorf("compress: gzip: %w", errs.ErrCorrupt)
	}
	return out, nil
}
