package pack

import (
	"fmt"
	"io"

	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/format"
	"github.com/gdrec/gdrec/stream"
)

// readGDPC parses the monolithic pack directory. start points just
// past the GDPC magic.
func (r *Reader) readGDPC(start int64) error {
	sr, err := stream.NewReader(r.src)
	if err != nil {
		return err
	}
	if err := sr.Seek(start); err != nil {
		return err
	}

	version, err := sr.GetU32()
	if err != nil {
		return err
	}
	major, err := sr.GetU32()
	if err != nil {
		return err
	}
	minor, err := sr.GetU32()
	if err != nil {
		return err
	}
	rev, err := sr.GetU32()
	if err != nil {
		return err
	}
	if version > format.MaxPackFormat {
		return fmt.Errorf("pack: pack format %d: %w", version, errs.ErrUnsupported)
	}

	var packFlags uint32
	var fileBase uint64
	if version == 2 {
		if packFlags, err = sr.GetU32(); err != nil {
			return err
		}
		if fileBase, err = sr.GetU64(); err != nil {
			return err
		}
	}

	for i := 0; i < 16; i++ { // reserved
		if _, err := sr.GetU32(); err != nil {
			return err
		}
	}

	fileCount, err := sr.GetU32()
	if err != nil {
		return err
	}

	dir := sr
	if packFlags&format.PackDirEncrypted != 0 {
		if r.key == nil {
			return fmt.Errorf("pack: encrypted directory and no key supplied: %w", errs.ErrEncryption)
		}
		magic, err := sr.GetBuffer(4)
		if err != nil || string(magic) != EncryptedMagic {
			return fmt.Errorf("pack: encrypted directory: %w", errs.ErrEncryption)
		}
		plain, err := DecryptAfterMagic(sr, *r.key)
		if err != nil {
			return err
		}
		dir = stream.NewReaderBytes(plain)
	}

	// The revision word only started carrying real patch numbers in 3.2.
	verString := fmt.Sprintf("%d.%d.x", major, minor)
	if major > 3 || (major == 3 && minor >= 2) {
		verString = fmt.Sprintf("%d.%d.%d", major, minor, rev)
	}
	r.Version = Version{PackFormat: version, Major: major, Minor: minor, Revision: rev, String: verString}

	packStart := start - 4
	for i := uint32(0); i < fileCount; i++ {
		pathLen, err := dir.GetU32()
		if err != nil {
			return err
		}
		raw, err := dir.GetBuffer(int(pathLen))
		if err != nil {
			return err
		}
		// Paths are zero-padded to the stored length.
		for len(raw) > 0 && raw[len(raw)-1] == 0 {
			raw = raw[:len(raw)-1]
		}
		logical := string(raw)

		ofs, err := dir.GetU64()
		if err != nil {
			return err
		}
		size, err := dir.GetU64()
		if err != nil {
			return err
		}
		sum, err := dir.GetBuffer(16)
		if err != nil {
			return err
		}
		var flags uint32
		if version == 2 {
			if flags, err = dir.GetU32(); err != nil {
				return err
			}
		}

		f := &File{
			Path:      logical,
			Offset:    fileBase + ofs,
			Size:      size,
			Flags:     flags,
			Encrypted: flags&format.PackFileEncrypted != 0,
		}
		if version < 2 {
			// v1 offsets are absolute within the pack region.
			f.Offset = uint64(packStart) + ofs
		}
		copy(f.MD5[:], sum)
		r.addFile(f)
	}
	return nil
}

// findAppendedPack locates the pack inside an executable: first by an
// ELF/PE section named "pck", then by the trailing magic at EOF.
func (r *Reader) findAppendedPack(magic [4]byte) (int64, error) {
	var sectionOff int64
	var err error
	if magic[0] == 0x7F {
		sectionOff, err = elfPckSection(r.path)
	} else {
		sectionOff, err = pePckSection(r.path)
	}
	if err == nil && sectionOff != 0 {
		// Pack start and section start may have different alignment;
		// scan a few bytes for the header.
		var buf [4]byte
		for i := int64(0); i < 8; i++ {
			if _, err := r.src.ReadAt(buf[:], sectionOff+i); err != nil {
				break
			}
			if leU32(buf[:]) == PackMagic {
				r.logger.Debug("pack header found in executable pck section", "offset", sectionOff+i)
				return sectionOff + i + 4, nil
			}
		}
	}

	// Self-contained executable: trailing magic, then a directory size
	// to jump back over.
	end, err := r.src.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	var buf [4]byte
	if _, err := r.src.ReadAt(buf[:], end-4); err != nil {
		return 0, fmt.Errorf("pack: %w", errs.ErrShortRead)
	}
	if leU32(buf[:]) != PackMagic {
		return 0, fmt.Errorf("pack: no pack found in executable: %w", errs.ErrUnrecognized)
	}
	var dsBuf [8]byte
	if _, err := r.src.ReadAt(dsBuf[:], end-12); err != nil {
		return 0, fmt.Errorf("pack: %w", errs.ErrShortRead)
	}
	ds := int64(leU32(dsBuf[:4])) | int64(leU32(dsBuf[4:]))<<32
	headerPos := end - 12 - ds
	if headerPos < 0 {
		return 0, fmt.Errorf("pack: appended pack directory size out of range: %w", errs.ErrCorrupt)
	}
	if _, err := r.src.ReadAt(buf[:], headerPos); err != nil {
		return 0, fmt.Errorf("pack: %w", errs.ErrShortRead)
	}
	if leU32(buf[:]) != PackMagic {
		return 0, fmt.Errorf("pack: no pack found at end of executable: %w", errs.ErrUnrecognized)
	}
	r.logger.Debug("pack header found at end of executable", "offset", headerPos)
	return headerPos + 4, nil
}
