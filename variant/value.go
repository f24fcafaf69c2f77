// Package variant implements the engine's tagged-union value codec.
//
// Two wire schemas are supported: the legacy schema used by engine
// major 2 (format versions 0-1), which still carries embedded images
// and input events, and the modern schema used by format versions 2
// and up. Tag numbers are shared between the schemas; the differences
// are which tags may appear and how node paths are laid out.
package variant

// Value is a decoded variant. Concrete dynamic types are:
//
//	nil, bool, int64, float64, string, StringName,
//	Vector2, Vector2i, Rect2, Rect2i, Vector3, Vector3i,
//	Vector4, Vector4i, Plane, Quaternion, AABB, Basis,
//	Transform2D, Transform3D, Projection, Color, NodePath, RID,
//	*Dictionary, *Array, the Packed* slice types, ObjectRef,
//	*Image and whatever ResolveObject substitutes for object tags.
type Value any

// Tag is a wire type tag. The numeric values are part of the binary
// format and must not change.
type Tag uint32

const (
	TagNil               Tag = 1
	TagBool              Tag = 2
	TagInt               Tag = 3
	TagFloat             Tag = 4
	TagString            Tag = 5
	TagVector2           Tag = 10
	TagRect2             Tag = 11
	TagVector3           Tag = 12
	TagPlane             Tag = 13
	TagQuaternion        Tag = 14
	TagAABB              Tag = 15
	TagBasis             Tag = 16
	TagTransform3D       Tag = 17
	TagTransform2D       Tag = 18
	TagColor             Tag = 20
	TagImage             Tag = 21 // legacy, engine 2 only
	TagNodePath          Tag = 22
	TagRID               Tag = 23
	TagObject            Tag = 24
	TagInputEvent        Tag = 25 // legacy, payload never stored
	TagDictionary        Tag = 26
	TagArray             Tag = 30
	TagPackedByteArray   Tag = 31
	TagPackedInt32Array  Tag = 32
	TagPackedFloat32Array Tag = 33
	TagPackedStringArray Tag = 34
	TagPackedVector3Array Tag = 35
	TagPackedColorArray  Tag = 36
	TagPackedVector2Array Tag = 37
	TagInt64             Tag = 40
	TagDouble            Tag = 41
	TagCallable          Tag = 42
	TagSignal            Tag = 43
	TagStringName        Tag = 44
	TagVector2i          Tag = 45
	TagRect2i            Tag = 46
	TagVector3i          Tag = 47
	TagPackedInt64Array  Tag = 48
	TagPackedFloat64Array Tag = 49
	TagVector4           Tag = 50
	TagVector4i          Tag = 51
	TagProjection        Tag = 52
	TagPackedVector4Array Tag = 53
)

// Object sub-tags.
const (
	ObjectEmpty          uint32 = 0
	ObjectExternal       uint32 = 1 // legacy by-path form
	ObjectInternalIndex  uint32 = 2
	ObjectExternalIndex  uint32 = 3
)

// StringName is a string that round-trips through the STRING_NAME tag
// instead of STRING.
type StringName string

// Math types. Components are widened to float64 in memory; the wire
// width is chosen by the stream's real flag (Color is always 32-bit).

type Vector2 struct{ X, Y float64 }

type Vector2i struct{ X, Y int32 }

type Vector3 struct{ X, Y, Z float64 }

type Vector3i struct{ X, Y, Z int32 }

type Vector4 struct{ X, Y, Z, W float64 }

type Vector4i struct{ X, Y, Z, W int32 }

type Rect2 struct{ Position, Size Vector2 }

type Rect2i struct{ Position, Size Vector2i }

type Plane struct {
	Normal Vector3
	D      float64
}

type Quaternion struct{ X, Y, Z, W float64 }

type AABB struct{ Position, Size Vector3 }

type Basis struct{ Rows [3]Vector3 }

type Transform2D struct{ Columns [3]Vector2 }

type Transform3D struct {
	Basis  Basis
	Origin Vector3
}

type Projection struct{ Columns [4]Vector4 }

// Color components are always stored in single precision.
type Color struct{ R, G, B, A float32 }

// NodePath addresses a node plus an optional property chain.
type NodePath struct {
	Names    []string
	Subnames []string
	Absolute bool
}

// RID is an opaque runtime resource handle; it never round-trips
// meaningfully.
type RID uint64

// ObjectRef is the wire form of an OBJECT value. The resource loader
// usually resolves it to a Resource through Decoder.ResolveObject; a
// bare decoder leaves it in place.
type ObjectRef struct {
	Kind  uint32 // ObjectEmpty, ObjectExternal, ObjectInternalIndex, ObjectExternalIndex
	Type  string // by-path form only
	Path  string // by-path form only
	Index uint32 // by-index forms
}

// DictEntry is one key/value pair of an ordered Dictionary.
type DictEntry struct {
	Key   Value
	Value Value
}

// Dictionary preserves entry order and the is-shared flag stored in the
// high bit of the count word.
type Dictionary struct {
	Entries []DictEntry
	Shared  bool
}

// Get returns the value stored under a string key, or nil.
func (d *Dictionary) Get(key string) Value {
	for _, e := range d.Entries {
		if s, ok := e.Key.(string); ok && s == key {
			return e.Value
		}
	}
	return nil
}

// Set replaces the value under a string key, appending when absent.
func (d *Dictionary) Set(key string, v Value) {
	for i, e := range d.Entries {
		if s, ok := e.Key.(string); ok && s == key {
			d.Entries[i].Value = v
			return
		}
	}
	d.Entries = append(d.Entries, DictEntry{Key: key, Value: v})
}

// Array preserves element order and the is-shared flag.
type Array struct {
	Elems  []Value
	Shared bool
}

// Packed array types.
type (
	PackedByteArray    []byte
	PackedInt32Array   []int32
	PackedInt64Array   []int64
	PackedFloat32Array []float32
	PackedFloat64Array []float64
	PackedStringArray  []string
	PackedVector2Array []Vector2
	PackedVector3Array []Vector3
	PackedVector4Array []Vector4
	PackedColorArray   []Color
)
