// Package stream implements the endian-aware byte stream primitives
// every decoder in this module is built on.
//
// A Reader wraps a seekable byte source; byte order and real-number
// width are set once per stream from the file header and obeyed by all
// multi-byte reads. A Writer mirrors the same operations over a pooled
// in-memory buffer so serializers can back-patch offset tables before
// flushing.
package stream

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/gdrec/gdrec/endian"
	"github.com/gdrec/gdrec/errs"
)

// Reader reads binary data from a seekable source.
//
// Not safe for concurrent use; every deserializer owns its Reader.
type Reader struct {
	src    io.ReadSeeker
	order  endian.Engine
	real64 bool
	length int64
	scratch [8]byte
}

// NewReader creates a little-endian Reader over src.
func NewReader(src io.ReadSeeker) (*Reader, error) {
	length, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}
	return &Reader{src: src, order: endian.Little(), length: length}, nil
}

// NewReaderBytes creates a little-endian Reader over an in-memory
// buffer.
func NewReaderBytes(data []byte) *Reader {
	return &Reader{src: bytes.NewReader(data), order: endian.Little(), length: int64(len(data))}
}

// SetBigEndian switches all subsequent multi-byte reads to the given
// byte order.
func (r *Reader) SetBigEndian(big bool) {
	r.order = endian.Select(big)
}

// BigEndian reports the current byte order.
func (r *Reader) BigEndian() bool { return endian.IsBig(r.order) }

// SetReal64 selects whether GetReal reads 8 bytes instead of 4.
func (r *Reader) SetReal64(real64 bool) { r.real64 = real64 }

// Real64 reports whether reals are read as 64-bit.
func (r *Reader) Real64() bool { return r.real64 }

// Length returns the total length of the underlying source.
func (r *Reader) Length() int64 { return r.length }

// Position returns the current absolute offset.
func (r *Reader) Position() int64 {
	pos, _ := r.src.Seek(0, io.SeekCurrent)
	return pos
}

// Seek moves to an absolute offset.
func (r *Reader) Seek(pos int64) error {
	if _, err := r.src.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("stream: seek %d: %w", pos, err)
	}
	return nil
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	return r.src.Read(p)
}

// GetBuffer reads exactly n bytes.
func (r *Reader) GetBuffer(n int) ([]byte, error) {
	if n < 0 || int64(n) > r.length {
		return nil, fmt.Errorf("stream: buffer of %d bytes: %w", n, errs.ErrShortRead)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.src, buf); err != nil {
		return nil, fmt.Errorf("stream: %w", errs.ErrShortRead)
	}
	return buf, nil
}

func (r *Reader) fill(n int) ([]byte, error) {
	if _, err := io.ReadFull(r.src, r.scratch[:n]); err != nil {
		return nil, fmt.Errorf("stream: %w", errs.ErrShortRead)
	}
	return r.scratch[:n], nil
}

// GetU8 reads one byte.
func (r *Reader) GetU8() (uint8, error) {
	b, err := r.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// GetU16 reads a 16-bit unsigned integer in stream byte order.
func (r *Reader) GetU16() (uint16, error) {
	b, err := r.fill(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

// GetU32 reads a 32-bit unsigned integer in stream byte order.
func (r *Reader) GetU32() (uint32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

// GetU64 reads a 64-bit unsigned integer in stream byte order.
func (r *Reader) GetU64() (uint64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

// GetFloat reads a 32-bit IEEE float.
func (r *Reader) GetFloat() (float32, error) {
	v, err := r.GetU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// GetDouble reads a 64-bit IEEE float.
func (r *Reader) GetDouble() (float64, error) {
	v, err := r.GetU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// GetReal reads a real number at the width selected by SetReal64.
// The result is always widened to float64.
func (r *Reader) GetReal() (float64, error) {
	if r.real64 {
		return r.GetDouble()
	}
	f, err := r.GetFloat()
	return float64(f), err
}

// GetString reads a length-prefixed UTF-8 string: a u32 byte count
// (including the NUL terminator) followed by that many bytes,
// interpreted up to the first NUL.
func (r *Reader) GetString() (string, error) {
	n, err := r.GetU32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf, err := r.GetBuffer(int(n))
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("stream: string: %w", errs.ErrInvalidEncoding)
	}
	return string(buf), nil
}

// AdvancePadding skips the bytes that pad a field of the given length
// to a 4-byte boundary.
func (r *Reader) AdvancePadding(length int) error {
	if extra := length % 4; extra != 0 {
		if _, err := r.GetBuffer(4 - extra); err != nil {
			return err
		}
	}
	return nil
}

// EOF reports whether the stream position has reached the end.
func (r *Reader) EOF() bool {
	return r.Position() >= r.length
}
