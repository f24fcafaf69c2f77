package stream

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gdrec/gdrec/errs"
)

func TestReaderScalars(t *testing.T) {
	require := require.New(t)

	w := NewWriter()
	defer w.Release()
	w.StoreU8(0xAB)
	w.StoreU16(0x1234)
	w.StoreU32(0xDEADBEEF)
	w.StoreU64(0x0102030405060708)
	w.StoreFloat(1.5)
	w.StoreDouble(2.25)

	r := NewReaderBytes(w.Bytes())
	require.EqualValues(int64(1+2+4+8+4+8), r.Length())

	b, err := r.GetU8()
	require.NoError(err)
	require.EqualValues(0xAB, b)

	u16, err := r.GetU16()
	require.NoError(err)
	require.EqualValues(0x1234, u16)

	u32, err := r.GetU32()
	require.NoError(err)
	require.EqualValues(0xDEADBEEF, u32)

	u64, err := r.GetU64()
	require.NoError(err)
	require.EqualValues(uint64(0x0102030405060708), u64)

	f, err := r.GetFloat()
	require.NoError(err)
	require.EqualValues(float32(1.5), f)

	d, err := r.GetDouble()
	require.NoError(err)
	require.EqualValues(2.25, d)

	require.True(r.EOF())
}

func TestReaderBigEndian(t *testing.T) {
	r := NewReaderBytes([]byte{0x00, 0x00, 0x00, 0x2A})
	r.SetBigEndian(true)
	v, err := r.GetU32()
	require.NoError(t, err)
	require.EqualValues(t, 42, v)
}

func TestReaderRealWidth(t *testing.T) {
	require := require.New(t)

	w := NewWriter()
	defer w.Release()
	w.SetReal64(true)
	w.StoreReal(3.5)
	require.Len(w.Bytes(), 8)

	r := NewReaderBytes(w.Bytes())
	r.SetReal64(true)
	v, err := r.GetReal()
	require.NoError(err)
	require.EqualValues(3.5, v)
}

func TestLengthPrefixedString(t *testing.T) {
	require := require.New(t)

	w := NewWriter()
	defer w.Release()
	w.StoreString("resource_name")

	r := NewReaderBytes(w.Bytes())
	s, err := r.GetString()
	require.NoError(err)
	require.Equal("resource_name", s)
	require.True(r.EOF())
}

func TestStringInvalidUTF8(t *testing.T) {
	// length 3, two bytes of invalid UTF-8, then the terminator
	r := NewReaderBytes([]byte{3, 0, 0, 0, 0xFF, 0xFE, 0x00})
	_, err := r.GetString()
	require.ErrorIs(t, err, errs.ErrInvalidEncoding)
}

func TestShortRead(t *testing.T) {
	r := NewReaderBytes([]byte{1, 2})
	_, err := r.GetU32()
	require.ErrorIs(t, err, errs.ErrShortRead)
}

func TestPadding(t *testing.T) {
	require := require.New(t)

	w := NewWriter()
	defer w.Release()
	w.StoreBuffer([]byte{1, 2, 3, 4, 5})
	w.Pad(5)
	require.Len(w.Bytes(), 8)

	r := NewReaderBytes(w.Bytes())
	buf, err := r.GetBuffer(5)
	require.NoError(err)
	require.Equal([]byte{1, 2, 3, 4, 5}, buf)
	require.NoError(r.AdvancePadding(5))
	require.True(r.EOF())
}

func TestWriterPatch(t *testing.T) {
	require := require.New(t)

	w := NewWriter()
	defer w.Release()
	slot := w.Position()
	w.StoreU64(0)
	w.StoreU32(7)
	w.StoreU64At(slot, 99)

	r := NewReaderBytes(w.Bytes())
	v, err := r.GetU64()
	require.NoError(err)
	require.EqualValues(99, v)
}
