// Package fastlz implements the FastLZ level-1 block format used by
// legacy compressed resource containers. Only level 1 is ever emitted
// by the engines this module targets.
//
// The wire format is a stream of ops. An op whose control byte is
// below 32 is a literal run of (ctrl+1) bytes. Otherwise the top three
// bits hold a biased match length (7 escapes to a length extension
// byte) and the remaining 13 bits, split across the control byte and
// the final byte, hold the match distance minus one.
package fastlz

import (
	"errors"
	"fmt"
)

const (
	maxCopy     = 32
	maxLen      = 264
	maxDistance = 8192
	hashLog     = 13
	hashSize    = 1 << hashLog
	hashMask    = hashSize - 1
)

var errCorrupt = errors.New("fastlz: corrupt input")

func hashAt(src []byte, i int) uint32 {
	v := uint32(src[i]) | uint32(src[i+1])<<8
	v ^= (uint32(src[i+1]) | uint32(src[i+2])<<8) ^ (v >> (16 - hashLog))
	return v & hashMask
}

// Compress encodes src as a level-1 block. The output is always
// decodable by Decompress; it is format-compatible with other
// encoders, not byte-identical to them.
func Compress(src []byte) []byte {
	n := len(src)
	if n == 0 {
		return nil
	}
	out := make([]byte, 0, n+n/16+8)
	if n < 4 {
		out = append(out, byte(n-1))
		return append(out, src...)
	}

	var htab [hashSize]int
	lit := 0 // start of the pending literal run
	ip := 0

	flushLiterals := func(end int) {
		for lit < end {
			run := end - lit
			if run > maxCopy {
				run = maxCopy
			}
			out = append(out, byte(run-1))
			out = append(out, src[lit:lit+run]...)
			lit += run
		}
	}

	for ip+3 <= n {
		var matched bool
		var ref int
		if ip+2 < n {
			hv := hashAt(src, ip)
			ref = htab[hv]
			htab[hv] = ip
			distance := ip - ref
			matched = distance > 0 && distance <= maxDistance &&
				src[ref] == src[ip] && src[ref+1] == src[ip+1] && src[ref+2] == src[ip+2]
		}
		if !matched {
			ip++
			continue
		}

		m := 3
		for ip+m < n && src[ref+m] == src[ip+m] {
			m++
		}
		// Never leave a sub-3-byte tail chunk; hand it back to literals.
		emit := m
		if tail := m % maxLen; tail > 0 && tail < 3 && m > maxLen {
			emit = m - tail
		}

		flushLiterals(ip)
		dist := ip - ref - 1
		rest := emit
		for rest > 0 {
			chunk := rest
			if chunk > maxLen {
				chunk = maxLen
			}
			if rem := rest - chunk; rem > 0 && rem < 3 {
				chunk -= 3 - rem
			}
			if chunk-2 < 7 {
				out = append(out, byte((chunk-2)<<5)|byte(dist>>8), byte(dist))
			} else {
				out = append(out, byte(7<<5)|byte(dist>>8), byte(chunk-2-7), byte(dist))
			}
			rest -= chunk
		}
		ip += emit
		lit = ip
	}

	flushLiterals(n)
	return out
}

// Decompress decodes a level-1 block into exactly dstSize bytes.
func Decompress(src []byte, dstSize int) ([]byte, error) {
	if dstSize == 0 {
		return nil, nil
	}
	if len(src) == 0 {
		return nil, errCorrupt
	}
	dst := make([]byte, 0, dstSize)
	ip := 0
	ctrl := uint32(src[ip] & 31)
	ip++
	loop := true

	for loop {
		if ctrl >= 32 {
			length := int(ctrl>>5) - 1
			ofs := int(ctrl&31) << 8
			refpos := len(dst) - ofs
			if length == 6 {
				if ip >= len(src) {
					return nil, errCorrupt
				}
				length += int(src[ip])
				ip++
			}
			if ip >= len(src) {
				return nil, errCorrupt
			}
			refpos -= int(src[ip])
			ip++
			if len(dst)+length+3 > dstSize || refpos-1 < 0 {
				return nil, errCorrupt
			}
			if ip < len(src) {
				ctrl = uint32(src[ip])
				ip++
			} else {
				loop = false
			}
			r := refpos - 1
			for i := 0; i < length+3; i++ {
				dst = append(dst, dst[r])
				r++
			}
		} else {
			run := int(ctrl) + 1
			if len(dst)+run > dstSize || ip+run > len(src) {
				return nil, errCorrupt
			}
			dst = append(dst, src[ip:ip+run]...)
			ip += run
			loop = ip < len(src)
			if loop {
				ctrl = uint32(src[ip])
				ip++
			}
		}
	}
	if len(dst) != dstSize {
		return nil, fmt.Errorf("fastlz: decompressed %d bytes, want %d: %w", len(dst), dstSize, errCorrupt)
	}
	return dst, nil
}
