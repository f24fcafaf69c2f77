package resource

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/format"
	"github.com/gdrec/gdrec/stream"
	"github.com/gdrec/gdrec/variant"
)

// buildMinimalResource assembles the smallest well-formed binary
// resource: one string, no externals, one internal resource with a
// single string property.
func buildMinimalResource(t *testing.T) []byte {
	t.Helper()

	w := stream.NewWriter()
	defer w.Release()
	w.StoreBuffer([]byte(Magic))
	w.StoreU32(0) // little endian
	w.StoreU32(0) // stored use_real64
	w.StoreU32(4) // engine major
	w.StoreU32(0) // engine minor
	w.StoreU32(5) // format version
	w.StoreString("Resource")
	w.StoreU64(0)                 // import metadata offset
	w.StoreU32(format.FlagUIDs)   // flags
	w.StoreU64(42)                // uid
	for i := 0; i < reservedFields; i++ {
		w.StoreU32(0)
	}
	w.StoreU32(1)
	w.StoreString("resource_name")
	w.StoreU32(0) // externals
	w.StoreU32(1) // internals
	w.StoreString("res://test.res")
	slot := w.Position()
	w.StoreU64(0)

	body := w.Position()
	w.StoreString("Resource")
	w.StoreU32(1) // property count
	w.StoreU32(0) // name index: resource_name
	w.StoreU32(uint32(variant.TagString))
	w.StoreString("x")
	w.StoreU64At(slot, uint64(body))
	w.StoreBuffer([]byte(Magic)) // trailing magic

	out := make([]byte, len(w.Bytes()))
	copy(out, w.Bytes())
	return out
}

func TestMinimalResourceRoundTrip(t *testing.T) {
	require := require.New(t)

	input := buildMinimalResource(t)
	l, err := Open(stream.NewReaderBytes(input), LoadConfig{Mode: format.LoadFake})
	require.NoError(err)
	l.ResPath = "res://test.res"

	res, err := l.Load()
	require.NoError(err)
	require.Equal("Resource", res.Class)
	require.Equal("x", res.Get("resource_name"))
	require.EqualValues(42, res.UID)
	require.NotNil(res.Info)
	require.Equal(5, res.Info.FormatVersion)
	require.Equal(4, res.Info.EngineMajor)
	require.True(res.Info.UsingUIDs)

	out, err := SaveBinary(res, SaveFlags{})
	require.NoError(err)
	require.Equal(input, out)
}

func TestHeaderRejections(t *testing.T) {
	require := require.New(t)

	// Wrong magic.
	_, err := Open(stream.NewReaderBytes([]byte("NOPE....")), LoadConfig{Mode: format.LoadFake})
	require.ErrorIs(err, errs.ErrUnrecognized)

	// Format version too new.
	w := stream.NewWriter()
	defer w.Release()
	w.StoreBuffer([]byte(Magic))
	w.StoreU32(0)
	w.StoreU32(0)
	w.StoreU32(4)
	w.StoreU32(0)
	w.StoreU32(format.MaxResourceFormat + 1)
	_, err = Open(stream.NewReaderBytes(w.Bytes()), LoadConfig{Mode: format.LoadFake})
	require.ErrorIs(err, errs.ErrUnsupported)
}

func TestSuspectVersionInference(t *testing.T) {
	require := require.New(t)

	w := stream.NewWriter()
	defer w.Release()
	w.StoreBuffer([]byte(Magic))
	w.StoreU32(0)
	w.StoreU32(0)
	w.StoreU32(0) // engine major missing
	w.StoreU32(0)
	w.StoreU32(2) // format 2: engine 3.1 guess
	w.StoreString("Resource")
	w.StoreU64(0)
	w.StoreU32(0)
	w.StoreU64(0)
	for i := 0; i < reservedFields; i++ {
		w.StoreU32(0)
	}

	l, err := OpenHeader(stream.NewReaderBytes(w.Bytes()), LoadConfig{Mode: format.LoadFake})
	require.NoError(err)
	require.True(l.Info.SuspectVersion)
	require.Equal(3, l.Info.EngineMajor)
	require.Equal(1, l.Info.EngineMinor)
}

// buildExtRefResource assembles a resource with one external script
// reference and a script property pointing at it by index.
func buildExtRefResource(t *testing.T) []byte {
	t.Helper()

	w := stream.NewWriter()
	defer w.Release()
	w.StoreBuffer([]byte(Magic))
	w.StoreU32(0)
	w.StoreU32(0)
	w.StoreU32(4)
	w.StoreU32(0)
	w.StoreU32(5)
	w.StoreString("Resource")
	w.StoreU64(0)
	w.StoreU32(0) // no flags
	w.StoreU64(0)
	for i := 0; i < reservedFields; i++ {
		w.StoreU32(0)
	}
	w.StoreU32(1)
	w.StoreString("script")
	w.StoreU32(1) // externals
	w.StoreString("GDScript")
	w.StoreString("res://foo.gd")
	w.StoreU32(1) // internals
	w.StoreString("res://thing.res")
	slot := w.Position()
	w.StoreU64(0)

	body := w.Position()
	w.StoreString("Resource")
	w.StoreU32(1)
	w.StoreU32(0) // script
	w.StoreU32(uint32(variant.TagObject))
	w.StoreU32(variant.ObjectExternalIndex)
	w.StoreU32(0)
	w.StoreU64At(slot, uint64(body))
	w.StoreBuffer([]byte(Magic))

	out := make([]byte, len(w.Bytes()))
	copy(out, w.Bytes())
	return out
}

func TestFakeLoadMissingExternalScript(t *testing.T) {
	require := require.New(t)

	input := buildExtRefResource(t)
	l, err := Open(stream.NewReaderBytes(input), LoadConfig{Mode: format.LoadFake})
	require.NoError(err)
	l.ResPath = "res://thing.res"

	res, err := l.Load()
	require.NoError(err)

	script, ok := res.Get("script").(*Resource)
	require.True(ok)
	require.True(script.Missing)
	require.True(script.External)
	require.Equal("GDScript", script.Class)
	require.Equal("res://foo.gd", script.Path)

	// Round trip preserves the external reference table and the index.
	out, err := SaveBinary(res, SaveFlags{})
	require.NoError(err)
	require.Equal(input, out)
}

func TestRealLoadAbortsOnMissingDependency(t *testing.T) {
	require := require.New(t)

	input := buildExtRefResource(t)
	l, err := Open(stream.NewReaderBytes(input), LoadConfig{
		Mode:           format.LoadReal,
		AbortOnMissing: true,
		LoadExternal: func(path, typeHint string, uid uint64) (*Resource, error) {
			return nil, errs.ErrNotFound
		},
	})
	require.NoError(err)
	l.ResPath = "res://thing.res"

	_, err = l.Load()
	require.ErrorIs(err, errs.ErrMissingDep)
}

func TestRealLoadSubstitutesPlaceholder(t *testing.T) {
	require := require.New(t)

	input := buildExtRefResource(t)
	l, err := Open(stream.NewReaderBytes(input), LoadConfig{
		Mode: format.LoadReal,
		LoadExternal: func(path, typeHint string, uid uint64) (*Resource, error) {
			return nil, errs.ErrNotFound
		},
	})
	require.NoError(err)
	l.ResPath = "res://thing.res"

	res, err := l.Load()
	require.NoError(err)
	// The placeholder stays in the property list, not the side
	// channel: the side channel is used only when the parent itself
	// is instantiated.
	require.True(res.Missing) // no registry configured, parent itself degrades
	script, ok := res.Get("script").(*Resource)
	require.True(ok)
	require.Equal("res://foo.gd", script.Path)
}

func TestCompressedResource(t *testing.T) {
	require := require.New(t)

	input := buildMinimalResource(t)
	// Compress by loading and re-saving with the flag.
	l, err := Open(stream.NewReaderBytes(input), LoadConfig{Mode: format.LoadFake})
	require.NoError(err)
	l.ResPath = "res://test.res"
	res, err := l.Load()
	require.NoError(err)

	packed, err := SaveBinary(res, SaveFlags{Compress: true})
	require.NoError(err)
	require.Equal(MagicCompressed, string(packed[:4]))

	l2, err := Open(stream.NewReaderBytes(packed), LoadConfig{Mode: format.LoadFake})
	require.NoError(err)
	l2.ResPath = "res://test.res"
	res2, err := l2.Load()
	require.NoError(err)
	require.Equal("x", res2.Get("resource_name"))
	require.True(res2.Info.Compressed)
}

func TestSaveText(t *testing.T) {
	require := require.New(t)

	input := buildMinimalResource(t)
	l, err := Open(stream.NewReaderBytes(input), LoadConfig{Mode: format.LoadFake})
	require.NoError(err)
	l.ResPath = "res://test.res"
	res, err := l.Load()
	require.NoError(err)

	out, err := SaveText(res)
	require.NoError(err)
	text := string(out)
	require.True(strings.HasPrefix(text, `[gd_resource type="Resource" format=3 uid="uid://`), text)
	require.Contains(text, "[resource]\n")
	require.Contains(text, "resource_name = \"x\"\n")
}

func TestSaveTextExternalRef(t *testing.T) {
	require := require.New(t)

	input := buildExtRefResource(t)
	l, err := Open(stream.NewReaderBytes(input), LoadConfig{Mode: format.LoadFake})
	require.NoError(err)
	l.ResPath = "res://thing.res"
	res, err := l.Load()
	require.NoError(err)

	out, err := SaveText(res)
	require.NoError(err)
	text := string(out)
	require.Contains(text, `[ext_resource type="GDScript" path="res://foo.gd" id="1"]`)
	require.Contains(text, `script = ExtResource("1")`)
	require.Contains(text, "load_steps=2")
}

func TestSetUID(t *testing.T) {
	require := require.New(t)

	input := buildMinimalResource(t)
	out, err := SetUID(input, 777)
	require.NoError(err)
	require.EqualValues(777, UIDOf(stream.NewReaderBytes(out)))

	// Everything else survives the rewrite.
	l, err := Open(stream.NewReaderBytes(out), LoadConfig{Mode: format.LoadFake})
	require.NoError(err)
	l.ResPath = "res://test.res"
	res, err := l.Load()
	require.NoError(err)
	require.Equal("x", res.Get("resource_name"))
}

func TestRenameDependencies(t *testing.T) {
	require := require.New(t)

	input := buildExtRefResource(t)
	out, err := RenameDependencies(input, map[string]string{"res://foo.gd": "res://bar.gd"})
	require.NoError(err)

	deps, err := Dependencies(stream.NewReaderBytes(out), true)
	require.NoError(err)
	require.Len(deps, 1)
	require.Equal("res://bar.gd", deps[0].Ref)
	require.Equal("GDScript", deps[0].Type)

	// The shifted internal offsets still load.
	l, err := Open(stream.NewReaderBytes(out), LoadConfig{Mode: format.LoadFake})
	require.NoError(err)
	l.ResPath = "res://thing.res"
	res, err := l.Load()
	require.NoError(err)
	script := res.Get("script").(*Resource)
	require.Equal("res://bar.gd", script.Path)
}

func TestClassesUsed(t *testing.T) {
	require := require.New(t)

	classes, err := ClassesUsed(stream.NewReaderBytes(buildMinimalResource(t)))
	require.NoError(err)
	require.True(classes["Resource"])
}

func TestProbe(t *testing.T) {
	require := require.New(t)

	info, err := Probe(stream.NewReaderBytes(buildMinimalResource(t)), nil)
	require.NoError(err)
	require.Equal("Resource", info.Type)
	require.Equal(5, info.FormatVersion)
	require.EqualValues(42, info.UID)
}
