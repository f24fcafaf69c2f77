package pack

import (
	"archive/zip"
	"bytes"
	"crypto/md5"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/format"
	"github.com/gdrec/gdrec/stream"
)

type testEntry struct {
	path      string
	data      []byte
	encrypted bool
}

// buildPackV2 assembles a format-2 monolithic pack.
func buildPackV2(t *testing.T, entries []testEntry, key [32]byte) []byte {
	t.Helper()

	type stored struct {
		pathPadded int
		blob       []byte
	}
	prepared := make([]stored, len(entries))
	dirSize := 0
	for i, e := range entries {
		padded := (len(e.path) + 3) &^ 3
		prepared[i].pathPadded = padded
		dirSize += 4 + padded + 8 + 8 + 16 + 4

		if e.encrypted {
			ew := stream.NewWriter()
			require.NoError(t, Encrypt(ew, key, e.data))
			prepared[i].blob = append([]byte(nil), ew.Bytes()...)
			ew.Release()
		} else {
			prepared[i].blob = e.data
		}
	}

	const headerSize = 4 + 4 + 12 + 4 + 8 + 64 + 4
	fileBase := uint64(headerSize + dirSize)

	w := stream.NewWriter()
	defer w.Release()
	w.StoreU32(PackMagic)
	w.StoreU32(2) // pack format
	w.StoreU32(4) // engine major
	w.StoreU32(1)
	w.StoreU32(0)
	w.StoreU32(0) // pack flags
	w.StoreU64(fileBase)
	for i := 0; i < 16; i++ {
		w.StoreU32(0)
	}
	w.StoreU32(uint32(len(entries)))

	offset := uint64(0)
	for i, e := range entries {
		padded := prepared[i].pathPadded
		w.StoreU32(uint32(padded))
		pathBuf := make([]byte, padded)
		copy(pathBuf, e.path)
		w.StoreBuffer(pathBuf)
		w.StoreU64(offset)
		w.StoreU64(uint64(len(e.data)))
		sum := md5.Sum(e.data)
		w.StoreBuffer(sum[:])
		var flags uint32
		if e.encrypted {
			flags |= format.PackFileEncrypted
		}
		w.StoreU32(flags)
		offset += uint64(len(prepared[i].blob))
	}
	for i := range entries {
		w.StoreBuffer(prepared[i].blob)
	}
	out := make([]byte, len(w.Bytes()))
	copy(out, w.Bytes())
	return out
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestOpenPlainPack(t *testing.T) {
	require := require.New(t)

	var key [32]byte
	data := buildPackV2(t, []testEntry{
		{path: "res://hello.txt", data: []byte("HELLO")},
		{path: "res://dir/inner.txt", data: []byte("inner")},
	}, key)
	p := writeTemp(t, "test.pck", data)

	r, err := Open(p, OpenOptions{})
	require.NoError(err)
	defer r.Close()

	require.Equal(format.ContainerPCK, r.Type)
	require.EqualValues(2, r.Version.PackFormat)
	require.Equal("4.1.0", r.Version.String)
	require.Equal([]string{"res://dir/inner.txt", "res://hello.txt"}, r.List())

	got, err := r.ReadFile("res://hello.txt")
	require.NoError(err)
	require.Equal("HELLO", string(got))

	// The directory tree stays in sync with the flat map.
	root := r.Root()
	require.Contains(root.Children, "dir")
	require.Contains(root.Children["dir"].Children, "inner.txt")
	require.NotNil(root.Children["dir"].Children["inner.txt"].File)
}

func TestEnumerationIdempotent(t *testing.T) {
	require := require.New(t)

	var key [32]byte
	data := buildPackV2(t, []testEntry{
		{path: "res://a.bin", data: []byte("aaa")},
		{path: "res://b.bin", data: []byte("bbbb")},
	}, key)
	p := writeTemp(t, "test.pck", data)

	type tuple struct {
		path   string
		offset uint64
		size   uint64
		digest [16]byte
	}
	list := func() []tuple {
		r, err := Open(p, OpenOptions{})
		require.NoError(err)
		defer r.Close()
		var out []tuple
		for _, lp := range r.List() {
			f, ok := r.FileInfo(lp)
			require.True(ok)
			out = append(out, tuple{f.Path, f.Offset, f.Size, f.MD5})
		}
		return out
	}
	require.Equal(list(), list())
}

func TestEncryptedFile(t *testing.T) {
	require := require.New(t)

	var key [32]byte // all-zero key
	data := buildPackV2(t, []testEntry{
		{path: "res://secret.bin", data: []byte("HELLO"), encrypted: true},
	}, key)
	p := writeTemp(t, "enc.pck", data)

	r, err := Open(p, OpenOptions{Key: &key})
	require.NoError(err)
	defer r.Close()

	info, ok := r.FileInfo("res://secret.bin")
	require.True(ok)
	require.True(info.Encrypted)

	got, err := r.ReadFile("res://secret.bin")
	require.NoError(err)
	require.Equal("HELLO", string(got))

	// A wrong key surfaces as an encryption error, not corruption.
	wrong := key
	wrong[0] = 1
	r2, err := Open(p, OpenOptions{Key: &wrong})
	require.NoError(err)
	defer r2.Close()
	_, err = r2.ReadFile("res://secret.bin")
	require.ErrorIs(err, errs.ErrEncryption)

	// No key at all is also an encryption error.
	r3, err := Open(p, OpenOptions{})
	require.NoError(err)
	defer r3.Close()
	_, err = r3.ReadFile("res://secret.bin")
	require.ErrorIs(err, errs.ErrEncryption)
}

func TestOpenUnrecognized(t *testing.T) {
	p := writeTemp(t, "garbage.bin", []byte("not a pack at all"))
	_, err := Open(p, OpenOptions{})
	require.ErrorIs(t, err, errs.ErrUnrecognized)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.pck"), OpenOptions{})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAPKAssetRewrite(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create("assets/project.binary")
	require.NoError(err)
	_, err = fw.Write([]byte("project"))
	require.NoError(err)
	fw, err = zw.Create("AndroidManifest.xml")
	require.NoError(err)
	_, err = fw.Write([]byte{0, 0, 0, 0})
	require.NoError(err)
	require.NoError(zw.Close())

	p := writeTemp(t, "game.apk", buf.Bytes())
	r, err := Open(p, OpenOptions{})
	require.NoError(err)
	defer r.Close()

	require.Equal(format.ContainerAPK, r.Type)
	// Asset entries move under res://; the manifest stays reachable by
	// its original name for the version probe.
	require.True(r.HasFile("res://project.binary"))
	require.True(r.HasFile("AndroidManifest.xml"))

	got, err := r.ReadFile("res://project.binary")
	require.NoError(err)
	require.Equal("project", string(got))
}

func TestDecryptRoundTrip(t *testing.T) {
	require := require.New(t)

	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	w := stream.NewWriter()
	defer w.Release()
	require.NoError(Encrypt(w, key, []byte("payload bytes")))

	r := stream.NewReaderBytes(w.Bytes())
	magic, err := r.GetBuffer(4)
	require.NoError(err)
	require.Equal(EncryptedMagic, string(magic))

	plain, err := DecryptAfterMagic(r, key)
	require.NoError(err)
	require.Equal("payload bytes", string(plain))
}
