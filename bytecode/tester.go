package bytecode

import (
	"github.com/gdrec/gdrec/stream"
	"github.com/gdrec/gdrec/variant"
)

// TestBytecode probes a buffer against a version record without
// emitting source. FAIL means the buffer provably does not belong to
// the revision; PASS means it exercises tables only this revision (or
// a newer one) has; UNKNOWN means the probe cannot discriminate.
func TestBytecode(buf []byte, v *Version) TestResult {
	if len(buf) < headerSize || string(buf[:4]) != ScriptMagic {
		return TestCorrupt
	}
	r := stream.NewReaderBytes(buf[4:])

	version, err := r.GetU32()
	if err != nil {
		return TestCorrupt
	}
	if int(version) > v.BytecodeVersion {
		return TestFail
	}
	identCount, err := r.GetU32()
	if err != nil {
		return TestCorrupt
	}
	constCount, err := r.GetU32()
	if err != nil {
		return TestCorrupt
	}
	lineCount, err := r.GetU32()
	if err != nil {
		return TestCorrupt
	}
	tokenCount, err := r.GetU32()
	if err != nil {
		return TestCorrupt
	}

	for i := uint32(0); i < identCount; i++ {
		length, err := r.GetU32()
		if err != nil {
			return TestCorrupt
		}
		if _, err := r.GetBuffer(int(length)); err != nil {
			return TestCorrupt
		}
	}

	dec := &variant.Decoder{R: r, FormatVersion: 2, VariantMajor: v.VariantMajor}
	for i := uint32(0); i < constCount; i++ {
		if _, err := dec.Decode(); err != nil {
			return TestCorrupt
		}
	}
	for i := uint32(0); i < lineCount; i++ {
		if _, err := r.GetU32(); err != nil {
			return TestCorrupt
		}
		if _, err := r.GetU32(); err != nil {
			return TestCorrupt
		}
	}

	maxToken := -1
	maxFunc := -1
	for i := uint32(0); i < tokenCount; i++ {
		b, err := r.GetU8()
		if err != nil {
			return TestCorrupt
		}
		var word uint32
		if b&TokenByteMask != 0 {
			rest, err := r.GetBuffer(3)
			if err != nil {
				return TestCorrupt
			}
			word = (uint32(b) | uint32(rest[0])<<8 | uint32(rest[1])<<16 | uint32(rest[2])<<24) &^ uint32(TokenByteMask)
		} else {
			word = uint32(b)
		}
		op := int(word & TokenMask)
		if op > maxToken {
			maxToken = op
		}
		if op >= v.TokenMax() {
			return TestFail
		}
		if v.Global(op) == TkBuiltInFunc {
			fn := int(word >> TokenBits)
			if fn > maxFunc {
				maxFunc = fn
			}
			if fn >= len(v.Functions) {
				return TestFail
			}
		}
		if v.Global(op) == TkIdentifier && word>>TokenBits >= identCount {
			return TestFail
		}
		if v.Global(op) == TkConstant && word>>TokenBits >= constCount {
			return TestFail
		}
	}

	if v.PassFuncMin >= 0 && maxFunc >= v.PassFuncMin {
		return TestPass
	}
	return TestUnknown
}

// TestFiles narrows the 2.1.x and 3.1.x revision families by probing a
// set of script buffers and accumulating per-variant verdicts. It
// returns the chosen commit; when no buffer discriminates, that is the
// newest revision of the family. It returns 0 when the verdicts leave
// no candidate or the version is neither 2.1 nor 3.1.
func TestFiles(buffers [][]byte, verMajor, verMinor int) uint64 {
	switch {
	case verMajor == 2 && verMinor == 1:
		return testFiles21(buffers)
	case verMajor == 3 && verMinor == 1:
		return testFiles31(buffers)
	default:
		return 0
	}
}

func testFiles21(buffers [][]byte) uint64 {
	ed80f45 := ForCommit(0xed80f45)
	c85585c7 := ForCommit(0x85585c7)
	c7124599 := ForCommit(0x7124599)

	var edFailed, edPassed bool
	var c85Failed, c85Passed bool
	var c71Failed, c71Passed bool

	for _, data := range buffers {
		if len(data) == 0 {
			continue
		}
		if !edFailed && !edPassed {
			switch TestBytecode(data, ed80f45) {
			case TestFail:
				edFailed = true
			case TestPass:
				// Highest candidate for this bytecode version; done.
				return 0xed80f45
			}
		}
		if !c85Failed && !c85Passed {
			switch TestBytecode(data, c85585c7) {
			case TestFail:
				c85Failed = true
			case TestPass:
				c85Passed = true
				if edFailed {
					return 0x85585c7
				}
			}
		}
		if !c71Failed && !c71Passed {
			switch TestBytecode(data, c7124599) {
			case TestFail:
				c71Failed = true
			case TestPass:
				c71Passed = true
			}
		}
		if edFailed && c85Failed && c71Failed {
			break
		}
	}

	switch {
	case c85Passed:
		return 0x85585c7
	case edFailed && !c71Failed:
		if c85Failed {
			return 0x7124599
		}
		return 0x85585c7
	case !edFailed && !c85Failed && !c71Failed:
		// Nothing discriminated; the highest revision decompiles them
		// all the same way.
		return 0xed80f45
	}
	return 0
}

func testFiles31(buffers [][]byte) uint64 {
	c514a3fb := ForCommit(0x514a3fb)
	c1a36141 := ForCommit(0x1a36141)

	var c514Failed, c1aFailed bool
	for _, data := range buffers {
		if len(data) == 0 {
			continue
		}
		if !c514Failed && TestBytecode(data, c514a3fb) == TestFail {
			c514Failed = true
		}
		if !c1aFailed && TestBytecode(data, c1a36141) == TestFail {
			c1aFailed = true
		}
		if c514Failed && c1aFailed {
			break
		}
	}
	switch {
	case !c514Failed && !c1aFailed:
		return 0x514a3fb
	case c514Failed && !c1aFailed:
		return 0x1a36141
	}
	return 0
}
