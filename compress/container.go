package compress

import (
	"fmt"

	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/format"
	"github.com/gdrec/gdrec/stream"
)

// Magic is the four-byte signature of a compressed resource stream.
const Magic = "RSCC"

// DefaultBlockSize matches the engine's compressed-file block size.
const DefaultBlockSize = 4096

// Container describes a decoded compressed stream.
type Container struct {
	Mode      format.CompressionType
	BlockSize uint32
	Data      []byte
}

// OpenAfterMagic reads the container header and blocks from a stream
// positioned just past the RSCC magic and returns a new Reader over
// the decompressed bytes. The returned Reader owns only memory; the
// source stream may be released by the caller afterwards.
func OpenAfterMagic(r *stream.Reader) (*stream.Reader, *Container, error) {
	mode, err := r.GetU32()
	if err != nil {
		return nil, nil, err
	}
	blockSize, err := r.GetU32()
	if err != nil {
		return nil, nil, err
	}
	readTotal, err := r.GetU32()
	if err != nil {
		return nil, nil, err
	}
	if blockSize == 0 {
		return nil, nil, fmt.Errorf("compress: zero block size: %w", errs.ErrCorrupt)
	}

	codec, err := GetCodec(format.CompressionType(mode))
	if err != nil {
		return nil, nil, err
	}

	blockCount := int((readTotal + blockSize - 1) / blockSize)
	sizes := make([]uint32, blockCount)
	for i := range sizes {
		if sizes[i], err = r.GetU32(); err != nil {
			return nil, nil, err
		}
	}

	out := make([]byte, 0, readTotal)
	remaining := int(readTotal)
	for i := 0; i < blockCount; i++ {
		want := int(blockSize)
		if remaining < want {
			want = remaining
		}
		raw, err := r.GetBuffer(int(sizes[i]))
		if err != nil {
			return nil, nil, err
		}
		block, err := codec.Decompress(raw, want)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, block...)
		remaining -= want
	}

	c := &Container{
		Mode:      format.CompressionType(mode),
		BlockSize: blockSize,
		Data:      out,
	}
	return stream.NewReaderBytes(out), c, nil
}

// Write emits the RSCC magic, header, block-size table and compressed
// blocks for data.
func Write(w *stream.Writer, mode format.CompressionType, blockSize uint32, data []byte) error {
	codec, err := GetCodec(mode)
	if err != nil {
		return err
	}
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}

	w.StoreBuffer([]byte(Magic))
	w.StoreU32(uint32(mode))
	w.StoreU32(blockSize)
	w.StoreU32(uint32(len(data)))

	blockCount := (len(data) + int(blockSize) - 1) / int(blockSize)
	blocks := make([][]byte, 0, blockCount)
	for i := 0; i < blockCount; i++ {
		start := i * int(blockSize)
		end := start + int(blockSize)
		if end > len(data) {
			end = len(data)
		}
		block, err := codec.Compress(data[start:end])
		if err != nil {
			return err
		}
		blocks = append(blocks, block)
		w.StoreU32(uint32(len(block)))
	}
	for _, block := range blocks {
		w.StoreBuffer(block)
	}
	return nil
}
