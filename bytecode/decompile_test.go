package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gdrec/gdrec/cache"
	"github.com/gdrec/gdrec/pack"
	"github.com/gdrec/gdrec/stream"
	"github.com/gdrec/gdrec/variant"
)

func encryptForTest(w *stream.Writer, key [32]byte, data []byte) error {
	return pack.Encrypt(w, key, data)
}

// buildScript packs a token stream with the given identifiers and
// constants into the compiled-script container, with no line table.
func buildScript(t *testing.T, v *Version, identifiers []string, constants []variant.Value, tokens []uint32) []byte {
	t.Helper()

	w := stream.NewWriter()
	defer w.Release()
	w.StoreBuffer([]byte(ScriptMagic))
	w.StoreU32(uint32(v.BytecodeVersion))
	w.StoreU32(uint32(len(identifiers)))
	w.StoreU32(uint32(len(constants)))
	w.StoreU32(0) // no line table
	w.StoreU32(uint32(len(tokens)))

	for _, ident := range identifiers {
		padded := (len(ident) + 1 + 3) &^ 3
		w.StoreU32(uint32(padded))
		buf := make([]byte, padded)
		copy(buf, ident)
		for i := range buf {
			buf[i] ^= identXor
		}
		w.StoreBuffer(buf)
	}
	enc := &variant.Encoder{W: w, FormatVersion: 2, VariantMajor: v.VariantMajor}
	for _, c := range constants {
		require.NoError(t, enc.Encode(c))
	}
	for _, tok := range tokens {
		if tok > 0x7F {
			w.StoreU32(tok | TokenByteMask)
		} else {
			w.StoreU8(uint8(tok))
		}
	}
	out := make([]byte, len(w.Bytes()))
	copy(out, w.Bytes())
	return out
}

func local(t *testing.T, v *Version, tok GlobalToken) uint32 {
	t.Helper()
	idx := v.Local(tok)
	require.GreaterOrEqual(t, idx, 0)
	return uint32(idx)
}

func TestDecompileSingleStatement(t *testing.T) {
	require := require.New(t)

	v := ForCommit(0x1a36141) // 3.1-stable
	require.NotNil(v)

	tokens := []uint32{
		local(t, v, TkNewline), // indent 0
		local(t, v, TkPrVar),
		local(t, v, TkIdentifier), // #0
		local(t, v, TkOpAssign),
		local(t, v, TkConstant), // #0
		local(t, v, TkNewline),
	}
	buf := buildScript(t, v, []string{"x"}, []variant.Value{int64(1)}, tokens)

	src, err := Decompile(buf, v)
	require.NoError(err)
	require.Equal("var x = 1\n", src)
}

func TestCompileDecompileRoundTrip(t *testing.T) {
	require := require.New(t)

	v := ForCommit(0x1a36141)
	src := "extends Node\n" +
		"\n" +
		"var speed = 1.5\n" +
		"\n" +
		"func _ready():\n" +
		"\tif speed > 1:\n" +
		"\t\tprint(\"fast\")\n" +
		"\telse :\n" +
		"\t\tpass\n"

	buf, err := Compile(src, v)
	require.NoError(err)
	require.Equal(v.BytecodeVersion, ReadVersion(buf))

	out, err := Decompile(buf, v)
	require.NoError(err)
	require.Equal(src, out)
}

func TestCompileRejectsUnknownKeywordTokens(t *testing.T) {
	// "$" sugar does not exist in the 2.x tokenizer.
	v := ForCommit(0x23441ec)
	_, err := Compile("var n = $Node\n", v)
	require.Error(t, err)
}

func TestReadVersion(t *testing.T) {
	v := ForCommit(0x1a36141)
	buf := buildScript(t, v, nil, nil, []uint32{local(t, v, TkNewline)})
	require.Equal(t, 13, ReadVersion(buf))
	require.Equal(t, -1, ReadVersion([]byte("nope")))
}

func TestTestBytecodeVerdicts(t *testing.T) {
	require := require.New(t)

	v311 := ForCommit(0x514a3fb)
	v310 := ForCommit(0x1a36141)

	// A buffer exercising the last function slot of 3.1.1's table
	// overflows 3.1.0's shorter table.
	lastFn := uint32(len(v311.Functions) - 1)
	tokens := []uint32{
		local(t, v311, TkBuiltInFunc) | lastFn<<TokenBits,
		local(t, v311, TkParenthesisOpen),
		local(t, v311, TkParenthesisClose),
		local(t, v311, TkNewline),
	}
	buf := buildScript(t, v311, nil, nil, tokens)

	require.Equal(TestUnknown, TestBytecode(buf, v311))
	require.Equal(TestFail, TestBytecode(buf, v310))
	require.Equal(TestCorrupt, TestBytecode([]byte("GDS"), v311))
}

func TestFleetTester21(t *testing.T) {
	require := require.New(t)

	ed := ForCommit(0xed80f45)
	// "len" is the distinguishing tail entry of the 2.1.3+ table.
	buf, err := Compile("var n = len(things)\n", ed)
	require.NoError(err)

	require.Equal(TestPass, TestBytecode(buf, ed))
	require.EqualValues(0xed80f45, TestFiles([][]byte{buf}, 2, 1))

	// An undistinguished script cannot pick a revision positively but
	// defaults to the highest candidate.
	plain, err := Compile("var x = 1\n", ed)
	require.NoError(err)
	require.EqualValues(0xed80f45, TestFiles([][]byte{plain}, 2, 1))
}

func TestFleetTester31(t *testing.T) {
	require := require.New(t)

	v := ForCommit(0x514a3fb)
	buf, err := Compile("var x = 1\n", v)
	require.NoError(err)
	// Nothing discriminates; the highest 3.1 revision wins.
	require.EqualValues(0x514a3fb, TestFiles([][]byte{buf}, 3, 1))
}

func TestScriptStrings(t *testing.T) {
	require := require.New(t)

	v := ForCommit(0x1a36141)
	buf, err := Compile("var greeting = \"hello\"\n", v)
	require.NoError(err)

	strs, err := ScriptStrings(buf, v, false)
	require.NoError(err)
	require.Equal([]string{"hello"}, strs)

	withIdents, err := ScriptStrings(buf, v, true)
	require.NoError(err)
	require.Contains(withIdents, "greeting")
}

func TestEncryptedScriptRoundTrip(t *testing.T) {
	require := require.New(t)

	v := ForCommit(0x1a36141)
	buf, err := Compile("var x = 1\n", v)
	require.NoError(err)

	var key [32]byte
	key[0] = 0x5A
	w := stream.NewWriter()
	defer w.Release()
	require.NoError(encryptForTest(w, key, buf))

	err = cache.WithScriptKey(key, func() error {
		src, err := DecompileEncrypted(w.Bytes(), v)
		if err != nil {
			return err
		}
		require.Equal("var x = 1\n", src)
		return nil
	})
	require.NoError(err)

	// Key restored after the scoped operation.
	_, set := cache.ScriptKey()
	require.False(set)
}

func TestVersionRegistry(t *testing.T) {
	require := require.New(t)

	require.NotNil(ForCommit(0x054a2ac))
	require.Nil(ForCommit(0xdeadbeef))

	v := ForEngineVersion("3.1")
	require.NotNil(v)
	require.Equal(13, v.BytecodeVersion)

	v2 := ForEngineVersion("2.0")
	require.NotNil(v2)
	require.Equal(10, v2.BytecodeVersion)
}

func TestTokenRemapConsistency(t *testing.T) {
	// Every record's remap must round-trip local -> global -> local.
	for _, v := range Versions {
		for i := range v.Tokens {
			require.Equal(t, i, v.Local(v.Global(i)), "revision %s opcode %d", v.Name, i)
		}
		require.Less(t, v.TokenMax(), 0x80, "opcodes must fit the short token form")
	}
}
