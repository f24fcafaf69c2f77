package stream

import (
	"math"

	"github.com/gdrec/gdrec/endian"
	"github.com/gdrec/gdrec/internal/pool"
)

// Writer accumulates binary output in a pooled buffer, mirroring the
// Reader's operations. Serializers write the whole file into a Writer
// so table offsets can be patched before the bytes leave memory.
type Writer struct {
	buf    *pool.ByteBuffer
	order  endian.Engine
	real64 bool
}

// NewWriter creates a little-endian Writer over a pooled buffer.
func NewWriter() *Writer {
	return &Writer{buf: pool.GetBuffer(), order: endian.Little()}
}

// Release returns the underlying buffer to the pool. The Writer must
// not be used afterwards.
func (w *Writer) Release() {
	pool.PutBuffer(w.buf)
	w.buf = nil
}

// SetBigEndian switches all subsequent multi-byte writes to the given
// byte order.
func (w *Writer) SetBigEndian(big bool) {
	w.order = endian.Select(big)
}

// SetReal64 selects whether StoreReal writes 8 bytes instead of 4.
func (w *Writer) SetReal64(real64 bool) { w.real64 = real64 }

// Bytes returns the accumulated output. The slice is owned by the
// Writer until Release is called.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Position returns the current write offset.
func (w *Writer) Position() int64 { return int64(w.buf.Len()) }

// StoreBuffer appends raw bytes.
func (w *Writer) StoreBuffer(data []byte) {
	w.buf.MustWrite(data)
}

// StoreU8 appends one byte.
func (w *Writer) StoreU8(v uint8) {
	w.buf.MustWrite([]byte{v})
}

// StoreU16 appends a 16-bit unsigned integer in stream byte order.
func (w *Writer) StoreU16(v uint16) {
	w.buf.B = w.order.AppendUint16(w.buf.B, v)
}

// StoreU32 appends a 32-bit unsigned integer in stream byte order.
func (w *Writer) StoreU32(v uint32) {
	w.buf.B = w.order.AppendUint32(w.buf.B, v)
}

// StoreU64 appends a 64-bit unsigned integer in stream byte order.
func (w *Writer) StoreU64(v uint64) {
	w.buf.B = w.order.AppendUint64(w.buf.B, v)
}

// StoreU64At patches a previously written 64-bit slot at an absolute
// offset, preserving byte order.
func (w *Writer) StoreU64At(off int64, v uint64) {
	var tmp [8]byte
	w.order.PutUint64(tmp[:], v)
	w.buf.WriteAt(int(off), tmp[:])
}

// StoreFloat appends a 32-bit IEEE float.
func (w *Writer) StoreFloat(v float32) {
	w.StoreU32(math.Float32bits(v))
}

// StoreDouble appends a 64-bit IEEE float.
func (w *Writer) StoreDouble(v float64) {
	w.StoreU64(math.Float64bits(v))
}

// StoreReal appends a real number at the width selected by SetReal64.
func (w *Writer) StoreReal(v float64) {
	if w.real64 {
		w.StoreDouble(v)
	} else {
		w.StoreFloat(float32(v))
	}
}

// StoreString appends a length-prefixed UTF-8 string: u32 byte count
// including the NUL terminator, then the bytes, then the NUL.
func (w *Writer) StoreString(s string) {
	w.StoreU32(uint32(len(s)) + 1)
	w.buf.MustWrite([]byte(s))
	w.StoreU8(0)
}

// StoreStringBitOnLen appends a length-prefixed string with the high
// bit of the length word set, marking an inline (non-table) string.
func (w *Writer) StoreStringBitOnLen(s string) {
	w.StoreU32((uint32(len(s)) + 1) | 0x80000000)
	w.buf.MustWrite([]byte(s))
	w.StoreU8(0)
}

// Pad appends the zero bytes that pad a field of the given length to a
// 4-byte boundary.
func (w *Writer) Pad(length int) {
	if extra := length % 4; extra != 0 {
		for i := 0; i < 4-extra; i++ {
			w.StoreU8(0)
		}
	}
}
