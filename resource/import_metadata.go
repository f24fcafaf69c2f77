package resource

import (
	"errors"

	"github.com/gdrec/gdrec/variant"
)

// ImportMetadataV2 is the engine-2 import metadata tail section:
// editor name, source list with digests, and an ordered option map.
// Present iff the header's metadata offset is non-zero.
type ImportMetadataV2 struct {
	Editor  string
	Sources []ImportSource
	Options []ImportOption
}

// ImportSource is one imported source file and its digest.
type ImportSource struct {
	Path string
	MD5  string
}

// ImportOption is one named import option.
type ImportOption struct {
	Name  string
	Value variant.Value
}

// Option returns the named option value, or nil.
func (m *ImportMetadataV2) Option(name string) variant.Value {
	for _, o := range m.Options {
		if o.Name == name {
			return o.Value
		}
	}
	return nil
}

// SetOption replaces or appends an option.
func (m *ImportMetadataV2) SetOption(name string, v variant.Value) {
	for i, o := range m.Options {
		if o.Name == name {
			m.Options[i].Value = v
			return
		}
	}
	m.Options = append(m.Options, ImportOption{Name: name, Value: v})
}

var errUnavailableMeta = errors.New("resource: no import metadata")

// loadImportMetadata reads the tail section and restores the stream
// position afterwards.
func (l *Loader) loadImportMetadata() error {
	if l.importMetaOffset == 0 {
		return errUnavailableMeta
	}
	pos := l.r.Position()
	defer func() { _ = l.r.Seek(pos) }()

	if err := l.r.Seek(int64(l.importMetaOffset)); err != nil {
		return err
	}
	imd := &ImportMetadataV2{}
	var err error
	if imd.Editor, err = l.r.GetString(); err != nil {
		return err
	}
	sourceCount, err := l.r.GetU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < sourceCount; i++ {
		var src ImportSource
		if src.Path, err = l.r.GetString(); err != nil {
			return err
		}
		if src.MD5, err = l.r.GetString(); err != nil {
			return err
		}
		imd.Sources = append(imd.Sources, src)
	}
	optionCount, err := l.r.GetU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < optionCount; i++ {
		var opt ImportOption
		if opt.Name, err = l.r.GetString(); err != nil {
			return err
		}
		if opt.Value, err = l.parseVariant(); err != nil {
			return err
		}
		imd.Options = append(imd.Options, opt)
	}
	l.Info.V2Metadata = imd
	return nil
}
