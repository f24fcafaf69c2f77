package variant

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gdrec/gdrec/stream"
)

func encodeValue(t *testing.T, v Value, formatVersion int) []byte {
	t.Helper()
	w := stream.NewWriter()
	defer w.Release()
	enc := &Encoder{W: w, FormatVersion: formatVersion, VariantMajor: 4}
	require.NoError(t, enc.Encode(v))
	out := make([]byte, len(w.Bytes()))
	copy(out, w.Bytes())
	return out
}

func decodeValue(t *testing.T, data []byte, formatVersion int) Value {
	t.Helper()
	dec := &Decoder{R: stream.NewReaderBytes(data), FormatVersion: formatVersion, VariantMajor: 4}
	v, err := dec.Decode()
	require.NoError(t, err)
	return v
}

func TestScalarRoundTrip(t *testing.T) {
	cases := []Value{
		nil,
		true,
		false,
		int64(1),
		int64(-7),
		int64(1) << 40, // promoted to INT64
		1.5,
		"hello",
		StringName("theme_override"),
		Vector2{1, 2},
		Vector2i{-3, 4},
		Rect2{Vector2{0, 0}, Vector2{10, 20}},
		Rect2i{Vector2i{1, 2}, Vector2i{3, 4}},
		Vector3{1, 2, 3},
		Vector3i{1, -2, 3},
		Vector4{1, 2, 3, 4},
		Vector4i{1, 2, 3, -4},
		Plane{Vector3{0, 1, 0}, 5},
		Quaternion{0, 0, 0, 1},
		AABB{Vector3{0, 0, 0}, Vector3{1, 1, 1}},
		Basis{Rows: [3]Vector3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}},
		Transform2D{Columns: [3]Vector2{{1, 0}, {0, 1}, {5, 6}}},
		Transform3D{Basis: Basis{Rows: [3]Vector3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}, Origin: Vector3{1, 2, 3}},
		Projection{Columns: [4]Vector4{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}},
		Color{0.25, 0.5, 0.75, 1},
		RID(9),
		PackedByteArray{1, 2, 3},
		PackedInt32Array{1, -2, 3},
		PackedInt64Array{1 << 40},
		PackedFloat32Array{1.5, 2.5},
		PackedFloat64Array{1.25},
		PackedStringArray{"a", "b"},
		PackedVector2Array{{1, 2}},
		PackedVector3Array{{1, 2, 3}},
		PackedVector4Array{{1, 2, 3, 4}},
		PackedColorArray{{1, 0, 0, 1}},
	}
	for _, v := range cases {
		data := encodeValue(t, v, 5)
		got := decodeValue(t, data, 5)
		require.Equal(t, v, got)
		// Re-encoding is byte-identical.
		require.Equal(t, data, encodeValue(t, got, 5))
	}
}

func TestFloatPromotion(t *testing.T) {
	require := require.New(t)

	// 1.5 survives float32; stays FLOAT.
	data := encodeValue(t, 1.5, 5)
	require.EqualValues(uint32(TagFloat), leTag(data))

	// 1/3 does not; promoted to DOUBLE.
	data = encodeValue(t, 1.0/3.0, 5)
	require.EqualValues(uint32(TagDouble), leTag(data))
}

func TestIntPromotion(t *testing.T) {
	require := require.New(t)
	require.EqualValues(uint32(TagInt), leTag(encodeValue(t, int64(40), 5)))
	require.EqualValues(uint32(TagInt64), leTag(encodeValue(t, int64(1)<<33, 5)))
}

func leTag(data []byte) uint32 {
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
}

func TestDictionarySharedBit(t *testing.T) {
	require := require.New(t)

	// Count word 0x80000002: two entries with the shared bit set.
	d := &Dictionary{Shared: true}
	d.Entries = append(d.Entries,
		DictEntry{Key: "a", Value: int64(1)},
		DictEntry{Key: "b", Value: true},
	)
	data := encodeValue(t, d, 5)

	r := stream.NewReaderBytes(data)
	tag, err := r.GetU32()
	require.NoError(err)
	require.EqualValues(uint32(TagDictionary), tag)
	count, err := r.GetU32()
	require.NoError(err)
	require.EqualValues(uint32(0x80000002), count)

	got := decodeValue(t, data, 5).(*Dictionary)
	require.True(got.Shared)
	require.Len(got.Entries, 2)
	require.Equal(int64(1), got.Get("a"))
	require.Equal(true, got.Get("b"))
	require.Equal(data, encodeValue(t, got, 5))
}

func TestNestedContainers(t *testing.T) {
	arr := &Array{Elems: []Value{
		int64(1),
		&Array{Elems: []Value{"x"}},
		&Dictionary{Entries: []DictEntry{{Key: int64(1), Value: Vector2{3, 4}}}},
	}}
	data := encodeValue(t, arr, 5)
	require.Equal(t, arr, decodeValue(t, data, 5))
}

func TestLegacyNodePathProperty(t *testing.T) {
	require := require.New(t)

	// Format 2: the property field rides along as an extra subname and
	// must be stripped back out when empty.
	np := NodePath{Names: []string{"A"}, Subnames: []string{"b"}}
	data := encodeValue(t, np, 2)

	// On the wire: name count 1, subname count word 1, then three
	// string refs, the last being the empty property slot.
	r := stream.NewReaderBytes(data)
	tag, err := r.GetU32()
	require.NoError(err)
	require.EqualValues(uint32(TagNodePath), tag)
	nc, err := r.GetU16()
	require.NoError(err)
	require.EqualValues(1, nc)
	snc, err := r.GetU16()
	require.NoError(err)
	require.EqualValues(1, snc)

	got := decodeValue(t, data, 2).(NodePath)
	require.Equal([]string{"A"}, got.Names)
	require.Equal([]string{"b"}, got.Subnames)
	require.False(got.Absolute)

	// Re-encoding restores the trailing empty subname slot.
	require.Equal(data, encodeValue(t, got, 2))
}

func TestModernNodePath(t *testing.T) {
	np := NodePath{Names: []string{"Root", "Child"}, Subnames: []string{"prop"}, Absolute: true}
	data := encodeValue(t, np, 5)
	require.Equal(t, np, decodeValue(t, data, 5))
}

func TestObjectRefRoundTrip(t *testing.T) {
	cases := []Value{
		ObjectRef{Kind: ObjectEmpty},
		ObjectRef{Kind: ObjectInternalIndex, Index: 2},
		ObjectRef{Kind: ObjectExternalIndex, Index: 0},
		ObjectRef{Kind: ObjectExternal, Type: "Texture", Path: "res://icon.png"},
	}
	for _, v := range cases {
		data := encodeValue(t, v, 5)
		require.Equal(t, v, decodeValue(t, data, 5))
	}
}

func TestImageV2RoundTrip(t *testing.T) {
	require := require.New(t)

	img := &Image{Format: ImageV2RGBA, Width: 2, Height: 1, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	w := stream.NewWriter()
	defer w.Release()
	enc := &Encoder{W: w, FormatVersion: 1, VariantMajor: 2}
	require.NoError(enc.Encode(img))

	dec := &Decoder{R: stream.NewReaderBytes(w.Bytes()), FormatVersion: 1, VariantMajor: 2}
	got, err := dec.Decode()
	require.NoError(err)
	require.Equal(img, got)
}

func TestIndexedImageConversion(t *testing.T) {
	require := require.New(t)

	// Palette slot 0 = red, slot 1 = green; two pixels (1, 0).
	data := make([]byte, 256*3+2)
	copy(data[0:], []byte{0xFF, 0, 0})
	copy(data[3:], []byte{0, 0xFF, 0})
	data[256*3] = 1
	data[256*3+1] = 0

	w := stream.NewWriter()
	defer w.Release()
	enc := &Encoder{W: w, FormatVersion: 1, VariantMajor: 2}
	require.NoError(enc.Encode(&Image{Format: ImageV2Indexed, Width: 2, Height: 1, Data: data}))

	dec := &Decoder{R: stream.NewReaderBytes(w.Bytes()), FormatVersion: 1, VariantMajor: 2, ConvertIndexed: true}
	got, err := dec.Decode()
	require.NoError(err)
	img := got.(*Image)
	require.True(img.Converted)
	require.Equal(ImageV2RGB, img.Format)
	require.Equal(ImageV2Indexed, img.ConvertedFrom)
	require.Equal([]byte{0, 0xFF, 0, 0xFF, 0, 0}, img.Data)
}

func TestInputEventDecodesEmpty(t *testing.T) {
	w := stream.NewWriter()
	defer w.Release()
	w.StoreU32(uint32(TagInputEvent))
	dec := &Decoder{R: stream.NewReaderBytes(w.Bytes()), FormatVersion: 1, VariantMajor: 2}
	v, err := dec.Decode()
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestTextLiterals(t *testing.T) {
	cases := []struct {
		v     Value
		major int
		want  string
	}{
		{nil, 4, "null"},
		{true, 4, "true"},
		{int64(7), 4, "7"},
		{1.5, 4, "1.5"},
		{2.0, 4, "2.0"},
		{"hi \"there\"", 4, `"hi \"there\""`},
		{Vector2{1, 2}, 4, "Vector2(1.0, 2.0)"},
		{Vector2{1, 2}, 3, "Vector2( 1.0, 2.0 )"},
		{Color{1, 0, 0, 1}, 4, "Color(1.0, 0.0, 0.0, 1.0)"},
		{NodePath{Names: []string{"A"}, Subnames: []string{"b"}}, 4, `NodePath("A:b")`},
		{PackedInt32Array{1, 2}, 3, "PoolIntArray( 1, 2 )"},
		{PackedInt32Array{1, 2}, 2, "IntArray( 1, 2 )"},
		{Transform2D{Columns: [3]Vector2{{1, 0}, {0, 1}, {0, 0}}}, 2,
			"Matrix32( 1.0, 0.0, 0.0, 1.0, 0.0, 0.0 )"},
		{StringName("x"), 4, `&"x"`},
	}
	for _, tc := range cases {
		got, err := WriteText(tc.v, tc.major, nil)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
}
