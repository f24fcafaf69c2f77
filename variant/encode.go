package variant

import (
	"fmt"
	"math"

	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/stream"
)

// Encoder writes variants in the same wire form the Decoder reads.
//
// The narrowest encoding wins: integers that fit 32 bits use the INT
// tag, floats that survive a round trip through float32 use FLOAT.
type Encoder struct {
	W             *stream.Writer
	FormatVersion int
	VariantMajor  int

	// StringIndex resolves a node-path name to its string-table index.
	// Names without an index are written inline with the high length
	// bit set. Nil means always inline.
	StringIndex func(s string) (uint32, bool)

	// MapObject converts values the encoder does not natively know
	// (typically resources) into an ObjectRef. Nil restricts object
	// encoding to literal ObjectRef values.
	MapObject func(v Value) (ObjectRef, error)
}

func (e *Encoder) storeTableString(s string) {
	if e.StringIndex != nil {
		if idx, ok := e.StringIndex(s); ok {
			e.W.StoreU32(idx)
			return
		}
	}
	e.W.StoreStringBitOnLen(s)
}

// Encode writes one variant.
func (e *Encoder) Encode(v Value) error {
	switch val := v.(type) {
	case nil:
		e.W.StoreU32(uint32(TagNil))

	case bool:
		e.W.StoreU32(uint32(TagBool))
		if val {
			e.W.StoreU32(1)
		} else {
			e.W.StoreU32(0)
		}

	case int64:
		if val > math.MaxInt32 || val < math.MinInt32 {
			e.W.StoreU32(uint32(TagInt64))
			e.W.StoreU64(uint64(val))
		} else {
			e.W.StoreU32(uint32(TagInt))
			e.W.StoreU32(uint32(int32(val)))
		}

	case int:
		return e.Encode(int64(val))

	case float64:
		if float64(float32(val)) != val {
			e.W.StoreU32(uint32(TagDouble))
			e.W.StoreDouble(val)
		} else {
			e.W.StoreU32(uint32(TagFloat))
			e.W.StoreReal(val)
		}

	case string:
		e.W.StoreU32(uint32(TagString))
		e.W.StoreString(val)

	case StringName:
		e.W.StoreU32(uint32(TagStringName))
		e.W.StoreString(string(val))

	case Vector2:
		e.W.StoreU32(uint32(TagVector2))
		e.storeVector2(val)

	case Vector2i:
		e.W.StoreU32(uint32(TagVector2i))
		e.W.StoreU32(uint32(val.X))
		e.W.StoreU32(uint32(val.Y))

	case Rect2:
		e.W.StoreU32(uint32(TagRect2))
		e.storeVector2(val.Position)
		e.storeVector2(val.Size)

	case Rect2i:
		e.W.StoreU32(uint32(TagRect2i))
		e.W.StoreU32(uint32(val.Position.X))
		e.W.StoreU32(uint32(val.Position.Y))
		e.W.StoreU32(uint32(val.Size.X))
		e.W.StoreU32(uint32(val.Size.Y))

	case Vector3:
		e.W.StoreU32(uint32(TagVector3))
		e.storeVector3(val)

	case Vector3i:
		e.W.StoreU32(uint32(TagVector3i))
		e.W.StoreU32(uint32(val.X))
		e.W.StoreU32(uint32(val.Y))
		e.W.StoreU32(uint32(val.Z))

	case Vector4:
		e.W.StoreU32(uint32(TagVector4))
		e.storeVector4(val)

	case Vector4i:
		e.W.StoreU32(uint32(TagVector4i))
		e.W.StoreU32(uint32(val.X))
		e.W.StoreU32(uint32(val.Y))
		e.W.StoreU32(uint32(val.Z))
		e.W.StoreU32(uint32(val.W))

	case Plane:
		e.W.StoreU32(uint32(TagPlane))
		e.storeVector3(val.Normal)
		e.W.StoreReal(val.D)

	case Quaternion:
		e.W.StoreU32(uint32(TagQuaternion))
		e.W.StoreReal(val.X)
		e.W.StoreReal(val.Y)
		e.W.StoreReal(val.Z)
		e.W.StoreReal(val.W)

	case AABB:
		e.W.StoreU32(uint32(TagAABB))
		e.storeVector3(val.Position)
		e.storeVector3(val.Size)

	case Transform2D:
		e.W.StoreU32(uint32(TagTransform2D))
		for _, c := range val.Columns {
			e.storeVector2(c)
		}

	case Basis:
		e.W.StoreU32(uint32(TagBasis))
		for _, r := range val.Rows {
			e.storeVector3(r)
		}

	case Transform3D:
		e.W.StoreU32(uint32(TagTransform3D))
		for _, r := range val.Basis.Rows {
			e.storeVector3(r)
		}
		e.storeVector3(val.Origin)

	case Projection:
		e.W.StoreU32(uint32(TagProjection))
		for _, c := range val.Columns {
			e.storeVector4(c)
		}

	case Color:
		e.W.StoreU32(uint32(TagColor))
		e.storeColor(val)

	case *Image:
		if e.VariantMajor > 2 {
			return fmt.Errorf("variant: image value in modern schema: %w", errs.ErrUnavailable)
		}
		e.W.StoreU32(uint32(TagImage))
		return e.encodeImageV2(val)

	case NodePath:
		e.W.StoreU32(uint32(TagNodePath))
		e.encodeNodePath(val)

	case RID:
		e.W.StoreU32(uint32(TagRID))
		e.W.StoreU32(uint32(val))

	case ObjectRef:
		e.W.StoreU32(uint32(TagObject))
		e.encodeObjectRef(val)

	case *Dictionary:
		e.W.StoreU32(uint32(TagDictionary))
		count := uint32(len(val.Entries))
		if val.Shared {
			count |= 0x80000000
		}
		e.W.StoreU32(count)
		for _, entry := range val.Entries {
			if err := e.Encode(entry.Key); err != nil {
				return err
			}
			if err := e.Encode(entry.Value); err != nil {
				return err
			}
		}

	case *Array:
		e.W.StoreU32(uint32(TagArray))
		count := uint32(len(val.Elems))
		if val.Shared {
			count |= 0x80000000
		}
		e.W.StoreU32(count)
		for _, elem := range val.Elems {
			if err := e.Encode(elem); err != nil {
				return err
			}
		}

	case PackedByteArray:
		e.W.StoreU32(uint32(TagPackedByteArray))
		e.W.StoreU32(uint32(len(val)))
		e.W.StoreBuffer(val)
		e.W.Pad(len(val))

	case PackedInt32Array:
		e.W.StoreU32(uint32(TagPackedInt32Array))
		e.W.StoreU32(uint32(len(val)))
		for _, x := range val {
			e.W.StoreU32(uint32(x))
		}

	case PackedInt64Array:
		e.W.StoreU32(uint32(TagPackedInt64Array))
		e.W.StoreU32(uint32(len(val)))
		for _, x := range val {
			e.W.StoreU64(uint64(x))
		}

	case PackedFloat32Array:
		e.W.StoreU32(uint32(TagPackedFloat32Array))
		e.W.StoreU32(uint32(len(val)))
		for _, x := range val {
			e.W.StoreFloat(x)
		}

	case PackedFloat64Array:
		e.W.StoreU32(uint32(TagPackedFloat64Array))
		e.W.StoreU32(uint32(len(val)))
		for _, x := range val {
			e.W.StoreDouble(x)
		}

	case PackedStringArray:
		e.W.StoreU32(uint32(TagPackedStringArray))
		e.W.StoreU32(uint32(len(val)))
		for _, s := range val {
			e.W.StoreString(s)
		}

	case PackedVector2Array:
		e.W.StoreU32(uint32(TagPackedVector2Array))
		e.W.StoreU32(uint32(len(val)))
		for _, x := range val {
			e.storeVector2(x)
		}

	case PackedVector3Array:
		e.W.StoreU32(uint32(TagPackedVector3Array))
		e.W.StoreU32(uint32(len(val)))
		for _, x := range val {
			e.storeVector3(x)
		}

	case PackedVector4Array:
		e.W.StoreU32(uint32(TagPackedVector4Array))
		e.W.StoreU32(uint32(len(val)))
		for _, x := range val {
			e.storeVector4(x)
		}

	case PackedColorArray:
		e.W.StoreU32(uint32(TagPackedColorArray))
		e.W.StoreU32(uint32(len(val)))
		for _, x := range val {
			e.storeColor(x)
		}

	default:
		if e.MapObject != nil {
			ref, err := e.MapObject(v)
			if err != nil {
				return err
			}
			e.W.StoreU32(uint32(TagObject))
			e.encodeObjectRef(ref)
			return nil
		}
		return fmt.Errorf("variant: cannot encode %T: %w", v, errs.ErrBug)
	}
	return nil
}

func (e *Encoder) storeVector2(v Vector2) {
	e.W.StoreReal(v.X)
	e.W.StoreReal(v.Y)
}

func (e *Encoder) storeVector3(v Vector3) {
	e.W.StoreReal(v.X)
	e.W.StoreReal(v.Y)
	e.W.StoreReal(v.Z)
}

func (e *Encoder) storeVector4(v Vector4) {
	e.W.StoreReal(v.X)
	e.W.StoreReal(v.Y)
	e.W.StoreReal(v.Z)
	e.W.StoreReal(v.W)
}

func (e *Encoder) storeColor(c Color) {
	e.W.StoreFloat(c.R)
	e.W.StoreFloat(c.G)
	e.W.StoreFloat(c.B)
	e.W.StoreFloat(c.A)
}

func (e *Encoder) encodeNodePath(np NodePath) {
	e.W.StoreU16(uint16(len(np.Names)))

	snc := len(np.Subnames)
	propertyIdx := -1
	if e.FormatVersion < 3 {
		// The property used to ride along as the last subname.
		if snc >= 2 {
			propertyIdx = snc - 1
			snc--
		}
	}
	flags := uint16(snc)
	if np.Absolute {
		flags |= 0x8000
	}
	e.W.StoreU16(flags)

	for _, n := range np.Names {
		e.storeTableString(n)
	}
	for i := 0; i < snc; i++ {
		e.storeTableString(np.Subnames[i])
	}
	if e.FormatVersion < 3 {
		if propertyIdx >= 0 {
			e.storeTableString(np.Subnames[propertyIdx])
		} else {
			// Resolves to a zero-length string for any reader version.
			e.W.StoreU32(0x80000000)
		}
	}
}

func (e *Encoder) encodeObjectRef(ref ObjectRef) {
	e.W.StoreU32(ref.Kind)
	switch ref.Kind {
	case ObjectEmpty:
	case ObjectExternal:
		e.W.StoreString(ref.Type)
		e.W.StoreString(ref.Path)
	case ObjectInternalIndex, ObjectExternalIndex:
		e.W.StoreU32(ref.Index)
	}
}
