// Package pack opens distributed game archives and serves per-entry
// byte streams.
//
// Three container flavors are auto-detected from the first four bytes:
// a monolithic GDPC pack, a pack appended to an ELF or PE executable
// (located through a section named "pck", then by the trailing magic),
// and ZIP/APK archives. APK asset entries are republished under the
// res:// prefix while non-asset entries stay visible under their
// original names so version probes can read the manifest.
package pack

import (
	"crypto/md5"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/format"
	"github.com/gdrec/gdrec/stream"
)

// PackMagic is the GDPC signature as a little-endian word.
const PackMagic uint32 = 0x43504447

// File is one pack entry.
type File struct {
	Path      string // logical path, usually res://...
	PackPath  string // archive the entry lives in
	Offset    uint64
	Size      uint64
	MD5       [16]byte
	Flags     uint32
	Encrypted bool

	// zip-backed entries carry their original archive name instead of
	// an offset window.
	zipName string
}

// Version identifies the engine build that produced a pack.
type Version struct {
	PackFormat uint32
	Major      uint32
	Minor      uint32
	Revision   uint32
	String     string
}

// OpenOptions tune Open.
type OpenOptions struct {
	// Key is the 32-byte encryption key for encrypted directories and
	// entries. Nil means unencrypted-only.
	Key *[32]byte
	// Offset is a caller-supplied pack start. Only valid for the
	// monolithic form.
	Offset uint64
	Logger hclog.Logger
}

// DirNode is one directory-tree node, keyed by path segment.
type DirNode struct {
	Name     string
	Children map[string]*DirNode
	File     *File // nil for directories
}

// Reader provides random access to an opened pack.
type Reader struct {
	Type    format.ContainerType
	Version Version

	path   string
	src    *os.File
	key    *[32]byte
	logger hclog.Logger

	// The flat digest map and the directory tree are kept in sync on
	// every insertion.
	byDigest map[[16]byte]*File
	root     *DirNode

	zip *zipBacking
}

// Open opens a pack, sniffing the container flavor from the leading
// magic bytes.
func Open(p string, opts OpenOptions) (*Reader, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("pack: %s: %w", p, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("pack: %s: %w", p, err)
	}

	var magic [4]byte
	if _, err := f.ReadAt(magic[:], int64(opts.Offset)); err != nil {
		f.Close()
		return nil, fmt.Errorf("pack: %s: %w", p, errs.ErrShortRead)
	}

	r := &Reader{
		path:     p,
		src:      f,
		key:      opts.Key,
		logger:   logger,
		byDigest: make(map[[16]byte]*File),
		root:     &DirNode{Children: make(map[string]*DirNode)},
	}

	switch {
	case leU32(magic[:]) == PackMagic:
		r.Type = format.ContainerPCK
		err = r.readGDPC(int64(opts.Offset) + 4)

	case magic[0] == 0x7F && magic[1] == 'E' && magic[2] == 'L' && magic[3] == 'F',
		magic[0] == 'M' && magic[1] == 'Z':
		if opts.Offset != 0 {
			f.Close()
			return nil, fmt.Errorf("pack: self-contained executable with offset: %w", errs.ErrUnsupported)
		}
		r.Type = format.ContainerEXE
		var off int64
		off, err = r.findAppendedPack(magic)
		if err == nil {
			err = r.readGDPC(off)
		}

	case magic[0] == 'P' && magic[1] == 'K' && magic[2] == 0x03 && magic[3] == 0x04:
		r.Type = format.ContainerZIP
		if strings.EqualFold(path.Ext(p), ".apk") {
			r.Type = format.ContainerAPK
		}
		err = r.readZip()

	default:
		err = fmt.Errorf("pack: %s: %w", p, errs.ErrUnrecognized)
	}

	if err != nil {
		f.Close()
		return nil, err
	}
	logger.Debug("opened pack", "path", p, "type", r.Type.String(), "files", len(r.byDigest))
	return r, nil
}

// Close releases the underlying archive.
func (r *Reader) Close() error {
	if r.src != nil {
		err := r.src.Close()
		r.src = nil
		return err
	}
	return nil
}

func (r *Reader) addFile(f *File) {
	f.PackPath = r.path
	r.byDigest[md5.Sum([]byte(f.Path))] = f

	node := r.root
	trimmed := strings.TrimPrefix(f.Path, "res://")
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == "" {
			continue
		}
		child, ok := node.Children[seg]
		if !ok {
			child = &DirNode{Name: seg, Children: make(map[string]*DirNode)}
			node.Children[seg] = child
		}
		node = child
	}
	node.File = f
}

// List returns every logical path in sorted order.
func (r *Reader) List() []string {
	out := make([]string, 0, len(r.byDigest))
	for _, f := range r.byDigest {
		out = append(out, f.Path)
	}
	sort.Strings(out)
	return out
}

// HasFile reports whether the logical path exists.
func (r *Reader) HasFile(logical string) bool {
	_, ok := r.byDigest[md5.Sum([]byte(logical))]
	return ok
}

// FileInfo returns the entry for a logical path.
func (r *Reader) FileInfo(logical string) (*File, bool) {
	f, ok := r.byDigest[md5.Sum([]byte(logical))]
	return f, ok
}

// Root returns the directory tree.
func (r *Reader) Root() *DirNode { return r.root }

// Open returns a stream over an entry's bytes, transparently decrypted
// when the entry is flagged encrypted.
func (r *Reader) Open(logical string) (*stream.Reader, error) {
	data, err := r.ReadFile(logical)
	if err != nil {
		return nil, err
	}
	return stream.NewReaderBytes(data), nil
}

// ReadFile returns an entry's full contents.
func (r *Reader) ReadFile(logical string) ([]byte, error) {
	f, ok := r.byDigest[md5.Sum([]byte(logical))]
	if !ok {
		return nil, fmt.Errorf("pack: %s: %w", logical, errs.ErrNotFound)
	}
	if f.zipName != "" {
		return r.zip.read(f.zipName)
	}

	if !f.Encrypted {
		buf := make([]byte, f.Size)
		if _, err := r.src.ReadAt(buf, int64(f.Offset)); err != nil {
			return nil, fmt.Errorf("pack: %s: %w", logical, errs.ErrShortRead)
		}
		return buf, nil
	}

	if r.key == nil {
		return nil, fmt.Errorf("pack: %s is encrypted and no key was supplied: %w", logical, errs.ErrEncryption)
	}
	// GDEC header (mode + digest + length) plus the padded ciphertext.
	header := 4 + 4 + 16 + 8
	padded := (f.Size + 15) &^ 15
	buf := make([]byte, uint64(header)+padded)
	if _, err := r.src.ReadAt(buf, int64(f.Offset)); err != nil {
		return nil, fmt.Errorf("pack: %s: %w", logical, errs.ErrShortRead)
	}
	sr := stream.NewReaderBytes(buf)
	magic, err := sr.GetBuffer(4)
	if err != nil || string(magic) != EncryptedMagic {
		return nil, fmt.Errorf("pack: %s: %w", logical, errs.ErrEncryption)
	}
	return DecryptAfterMagic(sr, *r.key)
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
