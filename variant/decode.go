package variant

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/stream"
)

// Decoder reads variants from a stream.
//
// FormatVersion selects the node-path layout (format < 3 appends a
// property subname). VariantMajor selects the schema: 2 accepts the
// legacy image and input-event tags, 3 and 4 the modern tag set.
type Decoder struct {
	R             *stream.Reader
	FormatVersion int
	VariantMajor  int

	// LookupString resolves a string-table index. Nil when the stream
	// has no string table (bytecode constants); table references then
	// fail as corrupt.
	LookupString func(idx uint32) (string, error)

	// ResolveObject maps a decoded object reference to its final value.
	// Nil leaves the ObjectRef in place.
	ResolveObject func(ref ObjectRef) (Value, error)

	// ConvertIndexed reconstitutes palettized legacy images into
	// truecolor instead of keeping the raw indexed payload.
	ConvertIndexed bool

	Logger hclog.Logger
}

func (d *Decoder) logger() hclog.Logger {
	if d.Logger == nil {
		return hclog.NewNullLogger()
	}
	return d.Logger
}

// getString reads a u32 that is either a string-table index or, with
// the high bit set, an inline length-prefixed string.
func (d *Decoder) getString() (string, error) {
	id, err := d.R.GetU32()
	if err != nil {
		return "", err
	}
	if id&0x80000000 != 0 {
		length := int(id & 0x7FFFFFFF)
		if length == 0 {
			return "", nil
		}
		buf, err := d.R.GetBuffer(length)
		if err != nil {
			return "", err
		}
		for i, b := range buf {
			if b == 0 {
				buf = buf[:i]
				break
			}
		}
		return string(buf), nil
	}
	if d.LookupString == nil {
		return "", fmt.Errorf("variant: string table reference %d without table: %w", id, errs.ErrCorrupt)
	}
	return d.LookupString(id)
}

func (d *Decoder) getVector2() (Vector2, error) {
	var v Vector2
	var err error
	if v.X, err = d.R.GetReal(); err != nil {
		return v, err
	}
	v.Y, err = d.R.GetReal()
	return v, err
}

func (d *Decoder) getVector3() (Vector3, error) {
	var v Vector3
	var err error
	if v.X, err = d.R.GetReal(); err != nil {
		return v, err
	}
	if v.Y, err = d.R.GetReal(); err != nil {
		return v, err
	}
	v.Z, err = d.R.GetReal()
	return v, err
}

func (d *Decoder) getVector4() (Vector4, error) {
	var v Vector4
	var err error
	if v.X, err = d.R.GetReal(); err != nil {
		return v, err
	}
	if v.Y, err = d.R.GetReal(); err != nil {
		return v, err
	}
	if v.Z, err = d.R.GetReal(); err != nil {
		return v, err
	}
	v.W, err = d.R.GetReal()
	return v, err
}

func (d *Decoder) getColor() (Color, error) {
	var c Color
	var err error
	if c.R, err = d.R.GetFloat(); err != nil {
		return c, err
	}
	if c.G, err = d.R.GetFloat(); err != nil {
		return c, err
	}
	if c.B, err = d.R.GetFloat(); err != nil {
		return c, err
	}
	c.A, err = d.R.GetFloat()
	return c, err
}

// Decode reads one variant.
func (d *Decoder) Decode() (Value, error) {
	tag, err := d.R.GetU32()
	if err != nil {
		return nil, err
	}
	switch Tag(tag) {
	case TagNil:
		return nil, nil

	case TagBool:
		v, err := d.R.GetU32()
		return v != 0, err

	case TagInt:
		v, err := d.R.GetU32()
		return int64(int32(v)), err

	case TagInt64:
		v, err := d.R.GetU64()
		return int64(v), err

	case TagFloat:
		return d.R.GetReal()

	case TagDouble:
		return d.R.GetDouble()

	case TagString:
		return d.R.GetString()

	case TagStringName:
		s, err := d.R.GetString()
		return StringName(s), err

	case TagVector2:
		return d.getVector2()

	case TagVector2i:
		var v Vector2i
		if err := d.getInts(&v.X, &v.Y); err != nil {
			return nil, err
		}
		return v, nil

	case TagRect2:
		var v Rect2
		if v.Position, err = d.getVector2(); err != nil {
			return nil, err
		}
		if v.Size, err = d.getVector2(); err != nil {
			return nil, err
		}
		return v, nil

	case TagRect2i:
		var v Rect2i
		if err := d.getInts(&v.Position.X, &v.Position.Y, &v.Size.X, &v.Size.Y); err != nil {
			return nil, err
		}
		return v, nil

	case TagVector3:
		return d.getVector3()

	case TagVector3i:
		var v Vector3i
		if err := d.getInts(&v.X, &v.Y, &v.Z); err != nil {
			return nil, err
		}
		return v, nil

	case TagVector4:
		return d.getVector4()

	case TagVector4i:
		var v Vector4i
		if err := d.getInts(&v.X, &v.Y, &v.Z, &v.W); err != nil {
			return nil, err
		}
		return v, nil

	case TagPlane:
		var v Plane
		if v.Normal, err = d.getVector3(); err != nil {
			return nil, err
		}
		if v.D, err = d.R.GetReal(); err != nil {
			return nil, err
		}
		return v, nil

	case TagQuaternion:
		var v Quaternion
		if err := d.getReals(&v.X, &v.Y, &v.Z, &v.W); err != nil {
			return nil, err
		}
		return v, nil

	case TagAABB:
		var v AABB
		if v.Position, err = d.getVector3(); err != nil {
			return nil, err
		}
		if v.Size, err = d.getVector3(); err != nil {
			return nil, err
		}
		return v, nil

	case TagTransform2D:
		var v Transform2D
		for i := range v.Columns {
			if v.Columns[i], err = d.getVector2(); err != nil {
				return nil, err
			}
		}
		return v, nil

	case TagBasis:
		var v Basis
		for i := range v.Rows {
			if v.Rows[i], err = d.getVector3(); err != nil {
				return nil, err
			}
		}
		return v, nil

	case TagTransform3D:
		var v Transform3D
		for i := range v.Basis.Rows {
			if v.Basis.Rows[i], err = d.getVector3(); err != nil {
				return nil, err
			}
		}
		if v.Origin, err = d.getVector3(); err != nil {
			return nil, err
		}
		return v, nil

	case TagProjection:
		var v Projection
		for i := range v.Columns {
			if v.Columns[i], err = d.getVector4(); err != nil {
				return nil, err
			}
		}
		return v, nil

	case TagColor:
		return d.getColor()

	case TagImage:
		if d.VariantMajor > 2 {
			return nil, fmt.Errorf("variant: image tag in modern schema: %w", errs.ErrCorrupt)
		}
		return d.decodeImageV2()

	case TagInputEvent:
		// The engine never actually stored a payload for this tag.
		d.logger().Warn("encountered an InputEvent variant; payload is not stored, producing empty value")
		return nil, nil

	case TagNodePath:
		return d.decodeNodePath()

	case TagRID:
		d.logger().Warn("RID variant cannot be resolved; keeping opaque id")
		v, err := d.R.GetU32()
		return RID(v), err

	case TagObject:
		return d.decodeObject()

	case TagCallable:
		d.logger().Warn("Callable variant has no stored payload, producing empty value")
		return nil, nil

	case TagSignal:
		d.logger().Warn("Signal variant has no stored payload, producing empty value")
		return nil, nil

	case TagDictionary:
		count, err := d.R.GetU32()
		if err != nil {
			return nil, err
		}
		dict := &Dictionary{Shared: count&0x80000000 != 0}
		count &= 0x7FFFFFFF
		for i := uint32(0); i < count; i++ {
			key, err := d.Decode()
			if err != nil {
				return nil, err
			}
			val, err := d.Decode()
			if err != nil {
				return nil, err
			}
			dict.Entries = append(dict.Entries, DictEntry{Key: key, Value: val})
		}
		return dict, nil

	case TagArray:
		count, err := d.R.GetU32()
		if err != nil {
			return nil, err
		}
		arr := &Array{Shared: count&0x80000000 != 0}
		count &= 0x7FFFFFFF
		arr.Elems = make([]Value, 0, count)
		for i := uint32(0); i < count; i++ {
			v, err := d.Decode()
			if err != nil {
				return nil, err
			}
			arr.Elems = append(arr.Elems, v)
		}
		return arr, nil

	case TagPackedByteArray:
		count, err := d.R.GetU32()
		if err != nil {
			return nil, err
		}
		buf, err := d.R.GetBuffer(int(count))
		if err != nil {
			return nil, err
		}
		if err := d.R.AdvancePadding(int(count)); err != nil {
			return nil, err
		}
		return PackedByteArray(buf), nil

	case TagPackedInt32Array:
		count, err := d.R.GetU32()
		if err != nil {
			return nil, err
		}
		arr := make(PackedInt32Array, count)
		for i := range arr {
			v, err := d.R.GetU32()
			if err != nil {
				return nil, err
			}
			arr[i] = int32(v)
		}
		return arr, nil

	case TagPackedInt64Array:
		count, err := d.R.GetU32()
		if err != nil {
			return nil, err
		}
		arr := make(PackedInt64Array, count)
		for i := range arr {
			v, err := d.R.GetU64()
			if err != nil {
				return nil, err
			}
			arr[i] = int64(v)
		}
		return arr, nil

	case TagPackedFloat32Array:
		count, err := d.R.GetU32()
		if err != nil {
			return nil, err
		}
		arr := make(PackedFloat32Array, count)
		for i := range arr {
			if arr[i], err = d.R.GetFloat(); err != nil {
				return nil, err
			}
		}
		return arr, nil

	case TagPackedFloat64Array:
		count, err := d.R.GetU32()
		if err != nil {
			return nil, err
		}
		arr := make(PackedFloat64Array, count)
		for i := range arr {
			if arr[i], err = d.R.GetDouble(); err != nil {
				return nil, err
			}
		}
		return arr, nil

	case TagPackedStringArray:
		count, err := d.R.GetU32()
		if err != nil {
			return nil, err
		}
		arr := make(PackedStringArray, count)
		for i := range arr {
			if arr[i], err = d.R.GetString(); err != nil {
				return nil, err
			}
		}
		return arr, nil

	case TagPackedVector2Array:
		count, err := d.R.GetU32()
		if err != nil {
			return nil, err
		}
		arr := make(PackedVector2Array, count)
		for i := range arr {
			if arr[i], err = d.getVector2(); err != nil {
				return nil, err
			}
		}
		return arr, nil

	case TagPackedVector3Array:
		count, err := d.R.GetU32()
		if err != nil {
			return nil, err
		}
		arr := make(PackedVector3Array, count)
		for i := range arr {
			if arr[i], err = d.getVector3(); err != nil {
				return nil, err
			}
		}
		return arr, nil

	case TagPackedVector4Array:
		count, err := d.R.GetU32()
		if err != nil {
			return nil, err
		}
		arr := make(PackedVector4Array, count)
		for i := range arr {
			if arr[i], err = d.getVector4(); err != nil {
				return nil, err
			}
		}
		return arr, nil

	case TagPackedColorArray:
		count, err := d.R.GetU32()
		if err != nil {
			return nil, err
		}
		arr := make(PackedColorArray, count)
		for i := range arr {
			if arr[i], err = d.getColor(); err != nil {
				return nil, err
			}
		}
		return arr, nil

	default:
		return nil, fmt.Errorf("variant: unknown tag %d: %w", tag, errs.ErrCorrupt)
	}
}

func (d *Decoder) getInts(dst ...*int32) error {
	for _, p := range dst {
		v, err := d.R.GetU32()
		if err != nil {
			return err
		}
		*p = int32(v)
	}
	return nil
}

func (d *Decoder) getReals(dst ...*float64) error {
	for _, p := range dst {
		v, err := d.R.GetReal()
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

func (d *Decoder) decodeNodePath() (Value, error) {
	nameCount, err := d.R.GetU16()
	if err != nil {
		return nil, err
	}
	subnameCount, err := d.R.GetU16()
	if err != nil {
		return nil, err
	}
	np := NodePath{Absolute: subnameCount&0x8000 != 0}
	subnameCount &= 0x7FFF

	// Before format 3 a property field was appended as an extra subname.
	hasProperty := d.FormatVersion < 3
	if hasProperty {
		subnameCount++
	}

	for i := 0; i < int(nameCount); i++ {
		s, err := d.getString()
		if err != nil {
			return nil, err
		}
		np.Names = append(np.Names, s)
	}
	for i := 0; i < int(subnameCount); i++ {
		s, err := d.getString()
		if err != nil {
			return nil, err
		}
		np.Subnames = append(np.Subnames, s)
	}
	if hasProperty && len(np.Subnames) > 0 && np.Subnames[len(np.Subnames)-1] == "" {
		np.Subnames = np.Subnames[:len(np.Subnames)-1]
	}
	return np, nil
}

func (d *Decoder) decodeObject() (Value, error) {
	kind, err := d.R.GetU32()
	if err != nil {
		return nil, err
	}
	ref := ObjectRef{Kind: kind}
	switch kind {
	case ObjectEmpty:

	case ObjectExternal:
		if ref.Type, err = d.R.GetString(); err != nil {
			return nil, err
		}
		if ref.Path, err = d.R.GetString(); err != nil {
			return nil, err
		}

	case ObjectInternalIndex, ObjectExternalIndex:
		if ref.Index, err = d.R.GetU32(); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("variant: object sub-tag %d: %w", kind, errs.ErrCorrupt)
	}
	if d.ResolveObject != nil {
		return d.ResolveObject(ref)
	}
	return ref, nil
}
