package resource

import (
	"fmt"

	"github.com/gdrec/gdrec/compress"
	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/format"
	"github.com/gdrec/gdrec/stream"
)

// The in-place rewriters reproduce a file byte-for-byte except for the
// fields they change. They work on whole buffers; callers own file
// I/O.

// SetUID rewrites the UID stored in a binary resource header, forcing
// the UIDs flag on. Files older than format 4 have no UID field and
// return ErrUnavailable.
func SetUID(data []byte, uid uint64) ([]byte, error) {
	payload, container, err := splitCompressed(data)
	if err != nil {
		return nil, err
	}
	r := stream.NewReaderBytes(payload)
	w := stream.NewWriter()
	defer w.Release()

	var hdr *headerCopy
	if err := copyHeaderThrough(r, w, func(h *headerCopy) {
		hdr = h
		h.flags |= format.FlagUIDs
		h.uid = uid
	}); err != nil {
		return nil, err
	}
	if hdr.verFormat <= format.FormatNoNodePathProperty {
		// Headers this old have no meaningful UID slot.
		return nil, fmt.Errorf("resource: format %d does not support UIDs: %w", hdr.verFormat, errs.ErrUnavailable)
	}

	rest, err := r.GetBuffer(int(r.Length() - r.Position()))
	if err != nil {
		return nil, err
	}
	w.StoreBuffer(rest)
	return assemble(w.Bytes(), container)
}

// RenameDependencies rewrites external-reference paths through remap,
// shifting the internal offset table and the metadata offset by the
// resulting size difference. Format 0 files cannot be rewritten.
func RenameDependencies(data []byte, remap map[string]string) ([]byte, error) {
	payload, container, err := splitCompressed(data)
	if err != nil {
		return nil, err
	}
	r := stream.NewReaderBytes(payload)
	w := stream.NewWriter()
	defer w.Release()

	var hdr *headerCopy
	if err := copyHeaderThrough(r, w, func(h *headerCopy) { hdr = h }); err != nil {
		return nil, err
	}
	if hdr.verFormat < format.FormatCanRenameDeps {
		return nil, fmt.Errorf("resource: format %d cannot rename dependencies: %w", hdr.verFormat, errs.ErrUnavailable)
	}

	// String table: copied verbatim.
	stringCount, err := r.GetU32()
	if err != nil {
		return nil, err
	}
	w.StoreU32(stringCount)
	for i := uint32(0); i < stringCount; i++ {
		s, err := r.GetString()
		if err != nil {
			return nil, err
		}
		w.StoreString(s)
	}

	// External table: paths rewritten.
	extCount, err := r.GetU32()
	if err != nil {
		return nil, err
	}
	w.StoreU32(extCount)
	usingUIDs := hdr.flags&format.FlagUIDs != 0
	for i := uint32(0); i < extCount; i++ {
		typ, err := r.GetString()
		if err != nil {
			return nil, err
		}
		path, err := r.GetString()
		if err != nil {
			return nil, err
		}
		var uid uint64
		if usingUIDs {
			if uid, err = r.GetU64(); err != nil {
				return nil, err
			}
		}
		if np, ok := remap[path]; ok {
			path = np
		}
		w.StoreString(typ)
		w.StoreString(path)
		if usingUIDs {
			w.StoreU64(uid)
		}
	}

	sizeDiff := w.Position() - r.Position()

	// Internal table: offsets shifted.
	intCount, err := r.GetU32()
	if err != nil {
		return nil, err
	}
	w.StoreU32(intCount)
	for i := uint32(0); i < intCount; i++ {
		path, err := r.GetString()
		if err != nil {
			return nil, err
		}
		ofs, err := r.GetU64()
		if err != nil {
			return nil, err
		}
		w.StoreString(path)
		w.StoreU64(uint64(int64(ofs) + sizeDiff))
	}

	rest, err := r.GetBuffer(int(r.Length() - r.Position()))
	if err != nil {
		return nil, err
	}
	w.StoreBuffer(rest)

	if hdr.importMetaOffset != 0 {
		w.StoreU64At(hdr.mdAt, uint64(int64(hdr.importMetaOffset)+sizeDiff))
	}
	return assemble(w.Bytes(), container)
}

type headerCopy struct {
	verFormat        uint32
	flags            uint32
	uid              uint64
	importMetaOffset uint64
	mdAt             int64 // offset of the metadata-offset slot in the output
}

// copyHeaderThrough copies the fixed header from r to w, letting mutate
// adjust the flags and UID before they are written.
func copyHeaderThrough(r *stream.Reader, w *stream.Writer, mutate func(*headerCopy)) error {
	magic, err := r.GetBuffer(4)
	if err != nil {
		return err
	}
	if string(magic) != Magic {
		return fmt.Errorf("resource: %w", errs.ErrUnrecognized)
	}
	w.StoreBuffer(magic)

	bigEndian, err := r.GetU32()
	if err != nil {
		return err
	}
	useReal64, err := r.GetU32()
	if err != nil {
		return err
	}
	w.StoreU32(bigEndian)
	w.StoreU32(useReal64)
	r.SetBigEndian(bigEndian != 0)
	w.SetBigEndian(bigEndian != 0)

	h := &headerCopy{}
	verMajor, err := r.GetU32()
	if err != nil {
		return err
	}
	verMinor, err := r.GetU32()
	if err != nil {
		return err
	}
	if h.verFormat, err = r.GetU32(); err != nil {
		return err
	}
	if h.verFormat > format.MaxResourceFormat || verMajor > format.MaxEngineMajor {
		return fmt.Errorf("resource: format %d / engine %d: %w", h.verFormat, verMajor, errs.ErrUnsupported)
	}
	w.StoreU32(verMajor)
	w.StoreU32(verMinor)
	w.StoreU32(h.verFormat)

	typ, err := r.GetString()
	if err != nil {
		return err
	}
	w.StoreString(typ)

	if h.importMetaOffset, err = r.GetU64(); err != nil {
		return err
	}
	if h.flags, err = r.GetU32(); err != nil {
		return err
	}
	if h.uid, err = r.GetU64(); err != nil {
		return err
	}
	hadScriptClass := h.flags&format.FlagHasScriptClass != 0

	mutate(h)

	h.mdAt = w.Position()
	w.StoreU64(h.importMetaOffset)
	w.StoreU32(h.flags)
	w.StoreU64(h.uid)

	if hadScriptClass {
		sc, err := r.GetString()
		if err != nil {
			return err
		}
		w.StoreString(sc)
	}
	for i := 0; i < reservedFields; i++ {
		v, err := r.GetU32()
		if err != nil {
			return err
		}
		w.StoreU32(v)
	}
	return nil
}

// splitCompressed peels an RSCC container off, returning the payload
// and the container description to re-wrap with, or the raw bytes.
func splitCompressed(data []byte) ([]byte, *compress.Container, error) {
	if len(data) >= 4 && string(data[:4]) == MagicCompressed {
		r := stream.NewReaderBytes(data[4:])
		inner, container, err := compress.OpenAfterMagic(r)
		if err != nil {
			return nil, nil, err
		}
		payload := make([]byte, inner.Length())
		full, err := inner.GetBuffer(int(inner.Length()))
		if err != nil {
			return nil, nil, err
		}
		copy(payload, full)
		// Compressed payloads carry no inner magic; reattach one so the
		// rewriters can treat both forms alike.
		return append([]byte(Magic), payload...), container, nil
	}
	return data, nil, nil
}

func assemble(payload []byte, container *compress.Container) ([]byte, error) {
	if container == nil {
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	}
	w := stream.NewWriter()
	defer w.Release()
	// Strip the synthetic magic before re-wrapping.
	if err := compress.Write(w, container.Mode, container.BlockSize, payload[4:]); err != nil {
		return nil, err
	}
	out := make([]byte, len(w.Bytes()))
	copy(out, w.Bytes())
	return out, nil
}
