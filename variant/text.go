package variant

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gdrec/gdrec/errs"
)

// RefWriter turns an object value into its text reference literal
// (SubResource/ExtResource). It reports false when it does not handle
// the value; an ObjectRef is then written as "null", and any other
// value is an error.
type RefWriter func(v Value) (string, bool)

// WriteText renders a variant as a text-resource literal in the grammar
// of the given engine major. Engine 2 and 3 literals put spaces inside
// constructor parentheses; engine 4 does not.
func WriteText(v Value, engineMajor int, refw RefWriter) (string, error) {
	tw := textWriter{major: engineMajor, refw: refw}
	var sb strings.Builder
	if err := tw.write(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type textWriter struct {
	major int
	refw  RefWriter
}

func (tw *textWriter) ctor(sb *strings.Builder, name string, args ...string) {
	sb.WriteString(name)
	if tw.major >= 4 {
		sb.WriteString("(")
		sb.WriteString(strings.Join(args, ", "))
		sb.WriteString(")")
	} else {
		sb.WriteString("( ")
		sb.WriteString(strings.Join(args, ", "))
		sb.WriteString(" )")
	}
}

func fmtReal(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func escapeString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// packedName maps a packed array to its per-era constructor name.
func (tw *textWriter) packedName(base string) string {
	switch tw.major {
	case 2:
		// RawArray, IntArray, RealArray, StringArray, Vector2Array, ...
		legacy := map[string]string{
			"PackedByteArray":    "RawArray",
			"PackedInt32Array":   "IntArray",
			"PackedFloat32Array": "RealArray",
			"PackedStringArray":  "StringArray",
			"PackedVector2Array": "Vector2Array",
			"PackedVector3Array": "Vector3Array",
			"PackedColorArray":   "ColorArray",
		}
		if n, ok := legacy[base]; ok {
			return n
		}
	case 3:
		pool := map[string]string{
			"PackedByteArray":    "PoolByteArray",
			"PackedInt32Array":   "PoolIntArray",
			"PackedFloat32Array": "PoolRealArray",
			"PackedStringArray":  "PoolStringArray",
			"PackedVector2Array": "PoolVector2Array",
			"PackedVector3Array": "PoolVector3Array",
			"PackedColorArray":   "PoolColorArray",
		}
		if n, ok := pool[base]; ok {
			return n
		}
	}
	return base
}

func (tw *textWriter) mathName(modern string) string {
	if tw.major == 2 {
		switch modern {
		case "Transform2D":
			return "Matrix32"
		case "Basis":
			return "Matrix3"
		case "Transform3D":
			return "Transform"
		case "Quaternion":
			return "Quat"
		}
	}
	if tw.major == 3 {
		switch modern {
		case "Transform2D":
			return "Transform2D"
		case "Transform3D":
			return "Transform"
		case "Quaternion":
			return "Quat"
		}
	}
	return modern
}

func (tw *textWriter) write(sb *strings.Builder, v Value) error {
	switch val := v.(type) {
	case nil:
		sb.WriteString("null")

	case bool:
		if val {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}

	case int64:
		sb.WriteString(strconv.FormatInt(val, 10))

	case int:
		sb.WriteString(strconv.Itoa(val))

	case float64:
		sb.WriteString(fmtReal(val))

	case string:
		sb.WriteString(`"` + escapeString(val) + `"`)

	case StringName:
		if tw.major >= 4 {
			sb.WriteString(`&"` + escapeString(string(val)) + `"`)
		} else {
			sb.WriteString(`"` + escapeString(string(val)) + `"`)
		}

	case Vector2:
		tw.ctor(sb, "Vector2", fmtReal(val.X), fmtReal(val.Y))

	case Vector2i:
		tw.ctor(sb, "Vector2i", itoa32(val.X), itoa32(val.Y))

	case Rect2:
		tw.ctor(sb, "Rect2", fmtReal(val.Position.X), fmtReal(val.Position.Y), fmtReal(val.Size.X), fmtReal(val.Size.Y))

	case Rect2i:
		tw.ctor(sb, "Rect2i", itoa32(val.Position.X), itoa32(val.Position.Y), itoa32(val.Size.X), itoa32(val.Size.Y))

	case Vector3:
		tw.ctor(sb, "Vector3", fmtReal(val.X), fmtReal(val.Y), fmtReal(val.Z))

	case Vector3i:
		tw.ctor(sb, "Vector3i", itoa32(val.X), itoa32(val.Y), itoa32(val.Z))

	case Vector4:
		tw.ctor(sb, "Vector4", fmtReal(val.X), fmtReal(val.Y), fmtReal(val.Z), fmtReal(val.W))

	case Vector4i:
		tw.ctor(sb, "Vector4i", itoa32(val.X), itoa32(val.Y), itoa32(val.Z), itoa32(val.W))

	case Plane:
		tw.ctor(sb, "Plane", fmtReal(val.Normal.X), fmtReal(val.Normal.Y), fmtReal(val.Normal.Z), fmtReal(val.D))

	case Quaternion:
		tw.ctor(sb, tw.mathName("Quaternion"), fmtReal(val.X), fmtReal(val.Y), fmtReal(val.Z), fmtReal(val.W))

	case AABB:
		tw.ctor(sb, "AABB",
			fmtReal(val.Position.X), fmtReal(val.Position.Y), fmtReal(val.Position.Z),
			fmtReal(val.Size.X), fmtReal(val.Size.Y), fmtReal(val.Size.Z))

	case Basis:
		args := make([]string, 0, 9)
		for _, r := range val.Rows {
			args = append(args, fmtReal(r.X), fmtReal(r.Y), fmtReal(r.Z))
		}
		tw.ctor(sb, tw.mathName("Basis"), args...)

	case Transform2D:
		args := make([]string, 0, 6)
		for _, c := range val.Columns {
			args = append(args, fmtReal(c.X), fmtReal(c.Y))
		}
		tw.ctor(sb, tw.mathName("Transform2D"), args...)

	case Transform3D:
		args := make([]string, 0, 12)
		for _, r := range val.Basis.Rows {
			args = append(args, fmtReal(r.X), fmtReal(r.Y), fmtReal(r.Z))
		}
		args = append(args, fmtReal(val.Origin.X), fmtReal(val.Origin.Y), fmtReal(val.Origin.Z))
		tw.ctor(sb, tw.mathName("Transform3D"), args...)

	case Projection:
		args := make([]string, 0, 16)
		for _, c := range val.Columns {
			args = append(args, fmtReal(c.X), fmtReal(c.Y), fmtReal(c.Z), fmtReal(c.W))
		}
		tw.ctor(sb, "Projection", args...)

	case Color:
		tw.ctor(sb, "Color",
			fmtReal(float64(val.R)), fmtReal(float64(val.G)),
			fmtReal(float64(val.B)), fmtReal(float64(val.A)))

	case NodePath:
		path := ""
		if val.Absolute {
			path = "/"
		}
		path += strings.Join(val.Names, "/")
		if len(val.Subnames) > 0 {
			path += ":" + strings.Join(val.Subnames, ":")
		}
		tw.ctor(sb, "NodePath", `"`+escapeString(path)+`"`)

	case RID:
		sb.WriteString("RID()")

	case *Image:
		args := []string{
			strconv.FormatUint(uint64(val.Width), 10),
			strconv.FormatUint(uint64(val.Height), 10),
			strconv.FormatUint(uint64(val.Mipmaps), 10),
			val.Format.String(),
		}
		for _, b := range val.Data {
			args = append(args, strconv.Itoa(int(b)))
		}
		tw.ctor(sb, "Image", args...)

	case *Dictionary:
		if len(val.Entries) == 0 {
			sb.WriteString("{}")
			return nil
		}
		sb.WriteString("{\n")
		for i, entry := range val.Entries {
			if err := tw.write(sb, entry.Key); err != nil {
				return err
			}
			sb.WriteString(": ")
			if err := tw.write(sb, entry.Value); err != nil {
				return err
			}
			if i < len(val.Entries)-1 {
				sb.WriteString(",")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("}")

	case *Array:
		opening, closing := "[ ", " ]"
		if tw.major >= 4 {
			opening, closing = "[", "]"
		}
		if len(val.Elems) == 0 {
			sb.WriteString("[]")
			return nil
		}
		sb.WriteString(opening)
		for i, elem := range val.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := tw.write(sb, elem); err != nil {
				return err
			}
		}
		sb.WriteString(closing)

	case PackedByteArray:
		args := make([]string, len(val))
		for i, b := range val {
			args[i] = strconv.Itoa(int(b))
		}
		tw.ctor(sb, tw.packedName("PackedByteArray"), args...)

	case PackedInt32Array:
		args := make([]string, len(val))
		for i, x := range val {
			args[i] = itoa32(x)
		}
		tw.ctor(sb, tw.packedName("PackedInt32Array"), args...)

	case PackedInt64Array:
		args := make([]string, len(val))
		for i, x := range val {
			args[i] = strconv.FormatInt(x, 10)
		}
		tw.ctor(sb, "PackedInt64Array", args...)

	case PackedFloat32Array:
		args := make([]string, len(val))
		for i, x := range val {
			args[i] = fmtReal(float64(x))
		}
		tw.ctor(sb, tw.packedName("PackedFloat32Array"), args...)

	case PackedFloat64Array:
		args := make([]string, len(val))
		for i, x := range val {
			args[i] = fmtReal(x)
		}
		tw.ctor(sb, "PackedFloat64Array", args...)

	case PackedStringArray:
		args := make([]string, len(val))
		for i, s := range val {
			args[i] = `"` + escapeString(s) + `"`
		}
		tw.ctor(sb, tw.packedName("PackedStringArray"), args...)

	case PackedVector2Array:
		args := make([]string, 0, len(val)*2)
		for _, x := range val {
			args = append(args, fmtReal(x.X), fmtReal(x.Y))
		}
		tw.ctor(sb, tw.packedName("PackedVector2Array"), args...)

	case PackedVector3Array:
		args := make([]string, 0, len(val)*3)
		for _, x := range val {
			args = append(args, fmtReal(x.X), fmtReal(x.Y), fmtReal(x.Z))
		}
		tw.ctor(sb, tw.packedName("PackedVector3Array"), args...)

	case PackedVector4Array:
		args := make([]string, 0, len(val)*4)
		for _, x := range val {
			args = append(args, fmtReal(x.X), fmtReal(x.Y), fmtReal(x.Z), fmtReal(x.W))
		}
		tw.ctor(sb, "PackedVector4Array", args...)

	case PackedColorArray:
		args := make([]string, 0, len(val)*4)
		for _, c := range val {
			args = append(args, fmtReal(float64(c.R)), fmtReal(float64(c.G)), fmtReal(float64(c.B)), fmtReal(float64(c.A)))
		}
		tw.ctor(sb, tw.packedName("PackedColorArray"), args...)

	default:
		if tw.refw != nil {
			if ref, ok := tw.refw(v); ok {
				sb.WriteString(ref)
				return nil
			}
		}
		if _, ok := v.(ObjectRef); ok {
			sb.WriteString("null")
			return nil
		}
		return fmt.Errorf("variant: cannot render %T as text: %w", v, errs.ErrBug)
	}
	return nil
}

func itoa32(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}
