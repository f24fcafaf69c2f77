// Package endian provides byte order utilities for binary encoding and
// decoding.
//
// It combines the ByteOrder and AppendByteOrder interfaces from
// encoding/binary into a single engine interface so streams can carry
// one value for both read and append operations. Resource and pack
// headers store their byte order as a flag word; Select maps that flag
// to an engine once per stream.
package endian

import "encoding/binary"

// Engine combines ByteOrder and AppendByteOrder from encoding/binary.
//
// binary.LittleEndian and binary.BigEndian both satisfy it, so the
// engine is always one of the two stateless standard-library values.
type Engine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Little returns the little-endian engine, the default for every format
// this module reads.
func Little() Engine {
	return binary.LittleEndian
}

// Big returns the big-endian engine.
func Big() Engine {
	return binary.BigEndian
}

// Select maps a stored big-endian header flag to an engine.
func Select(bigEndian bool) Engine {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// IsBig reports whether the engine is the big-endian one.
func IsBig(e Engine) bool {
	return e == binary.BigEndian
}
