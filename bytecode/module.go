package bytecode

import (
	"fmt"

	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/stream"
	"github.com/gdrec/gdrec/variant"
)

// ScriptMagic is the compiled-script container signature.
const ScriptMagic = "GDSC"

// identXor obfuscates identifier bytes on disk.
const identXor = 0xB6

// headerSize is the fixed container header: magic plus five counters.
const headerSize = 24

// Module is a parsed compiled script: the tables plus the raw token
// stream, ready for the emitter.
type Module struct {
	Version     int
	Identifiers []string
	Constants   []variant.Value
	// Lines maps token indices to packed line/column words.
	Lines  map[uint32]uint32
	Tokens []uint32
}

// LineFor returns the source line recorded for a token index, or 0.
func (m *Module) LineFor(token uint32) int {
	return int(m.Lines[token] & TokenLineMask)
}

// Read parses a compiled script buffer against a version record.
func Read(buf []byte, v *Version) (*Module, error) {
	if len(buf) < headerSize || string(buf[:4]) != ScriptMagic {
		return nil, fmt.Errorf("bytecode: bad magic: %w", errs.ErrUnrecognized)
	}
	r := stream.NewReaderBytes(buf[4:])

	m := &Module{Lines: make(map[uint32]uint32)}
	version, err := r.GetU32()
	if err != nil {
		return nil, err
	}
	m.Version = int(version)
	if m.Version > v.BytecodeVersion {
		return nil, fmt.Errorf("bytecode: format %d is newer than revision %s: %w", m.Version, v.Name, errs.ErrUnsupported)
	}

	identCount, err := r.GetU32()
	if err != nil {
		return nil, err
	}
	constCount, err := r.GetU32()
	if err != nil {
		return nil, err
	}
	lineCount, err := r.GetU32()
	if err != nil {
		return nil, err
	}
	tokenCount, err := r.GetU32()
	if err != nil {
		return nil, err
	}

	for i := uint32(0); i < identCount; i++ {
		length, err := r.GetU32()
		if err != nil {
			return nil, err
		}
		raw, err := r.GetBuffer(int(length))
		if err != nil {
			return nil, err
		}
		for j := range raw {
			raw[j] ^= identXor
		}
		for len(raw) > 0 && raw[len(raw)-1] == 0 {
			raw = raw[:len(raw)-1]
		}
		m.Identifiers = append(m.Identifiers, string(raw))
	}

	dec := &variant.Decoder{R: r, FormatVersion: 2, VariantMajor: v.VariantMajor}
	for i := uint32(0); i < constCount; i++ {
		val, err := dec.Decode()
		if err != nil {
			return nil, fmt.Errorf("bytecode: invalid constant: %w", err)
		}
		m.Constants = append(m.Constants, val)
	}

	for i := uint32(0); i < lineCount; i++ {
		token, err := r.GetU32()
		if err != nil {
			return nil, err
		}
		lineCol, err := r.GetU32()
		if err != nil {
			return nil, err
		}
		m.Lines[token] = lineCol
	}

	for i := uint32(0); i < tokenCount; i++ {
		b, err := r.GetU8()
		if err != nil {
			return nil, err
		}
		if b&TokenByteMask != 0 {
			// Long form: four little-endian bytes with the marker bit
			// cleared.
			rest, err := r.GetBuffer(3)
			if err != nil {
				return nil, err
			}
			word := uint32(b) | uint32(rest[0])<<8 | uint32(rest[1])<<16 | uint32(rest[2])<<24
			m.Tokens = append(m.Tokens, word&^uint32(TokenByteMask))
		} else {
			m.Tokens = append(m.Tokens, uint32(b))
		}
	}
	return m, nil
}

// builtinTypeNames lists variant type names by variant schema major,
// indexed by the BUILT_IN_TYPE payload.
var builtinTypeNames = map[int][]string{
	2: {
		"Nil", "bool", "int", "float", "String",
		"Vector2", "Rect2", "Vector3", "Matrix32",
		"Plane", "Quat", "AABB", "Matrix3", "Transform",
		"Color", "Image", "NodePath", "RID", "Object", "InputEvent",
		"Dictionary", "Array",
		"RawArray", "IntArray", "FloatArray", "StringArray",
		"Vector2Array", "Vector3Array", "ColorArray",
	},
	3: {
		"Nil", "bool", "int", "float", "String",
		"Vector2", "Rect2", "Vector3", "Transform2D",
		"Plane", "Quat", "AABB", "Basis", "Transform",
		"Color", "NodePath", "RID", "Object",
		"Dictionary", "Array",
		"PoolByteArray", "PoolIntArray", "PoolRealArray", "PoolStringArray",
		"PoolVector2Array", "PoolVector3Array", "PoolColorArray",
	},
}

// BuiltinTypeName resolves a BUILT_IN_TYPE payload for a schema major.
func BuiltinTypeName(idx, variantMajor int) string {
	names := builtinTypeNames[variantMajor]
	if names == nil {
		names = builtinTypeNames[3]
	}
	if idx >= 0 && idx < len(names) {
		return names[idx]
	}
	return "Variant"
}

// ConstantString renders a constant the way script source spells it.
func ConstantString(constants []variant.Value, id uint32, variantMajor int) (string, error) {
	if int(id) >= len(constants) {
		return "", fmt.Errorf("bytecode: constant %d out of range: %w", id, errs.ErrCorrupt)
	}
	return variant.WriteText(constants[id], variantMajor, nil)
}
