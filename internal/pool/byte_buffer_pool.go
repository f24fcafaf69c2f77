// Package pool provides pooled byte buffers for the binary and text
// serializers. Resource bodies are written into a pooled buffer first
// so internal-offset back-patching can happen before anything touches
// the destination file.
package pool

import "sync"

const (
	// BufferDefaultSize is the default capacity of a pooled buffer.
	BufferDefaultSize = 16 * 1024
	// BufferMaxThreshold is the largest buffer returned to the pool;
	// bigger ones are dropped so one huge scene does not pin memory.
	BufferMaxThreshold = 1024 * 1024
)

// ByteBuffer is a growable byte slice with serializer-oriented helpers.
type ByteBuffer struct {
	B []byte
}

// NewByteBuffer creates a ByteBuffer with the given initial capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, defaultSize)}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte { return bb.B }

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int { return len(bb.B) }

// Reset empties the buffer but keeps the allocation for reuse.
func (bb *ByteBuffer) Reset() { bb.B = bb.B[:0] }

// MustWrite appends data, growing the buffer as needed.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// WriteAt overwrites len(data) bytes at an absolute offset. Used to
// back-patch table offsets after the body has been written.
// Panics if the region is out of bounds; the serializer records every
// patch position itself, so an out-of-range patch is a bug.
func (bb *ByteBuffer) WriteAt(off int, data []byte) {
	copy(bb.B[off:off+len(data)], data)
}

// Grow ensures capacity for requiredBytes more bytes.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return
	}
	growBy := BufferDefaultSize
	if cap(bb.B) > 4*BufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}
	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

var bufferPool = sync.Pool{
	New: func() any {
		return NewByteBuffer(BufferDefaultSize)
	},
}

// GetBuffer obtains a reset buffer from the pool.
func GetBuffer() *ByteBuffer {
	bb, _ := bufferPool.Get().(*ByteBuffer)
	bb.Reset()
	return bb
}

// PutBuffer returns a buffer to the pool unless it grew past the
// threshold.
func PutBuffer(bb *ByteBuffer) {
	if bb == nil || cap(bb.B) > BufferMaxThreshold {
		return
	}
	bufferPool.Put(bb)
}
