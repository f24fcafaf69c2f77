package resource

import (
	"fmt"
	"strconv"

	"github.com/gdrec/gdrec/compress"
	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/format"
	"github.com/gdrec/gdrec/stream"
	"github.com/gdrec/gdrec/variant"
)

// SaveFlags tune SaveBinary.
type SaveFlags struct {
	// Compress forces RSCC output even when the source was not
	// compressed.
	Compress bool
	// RelativePaths is accepted for interface compatibility; external
	// paths are stored as recorded on the resource.
	RelativePaths bool
}

// saver holds the state of one binary save.
type saver struct {
	info *Info

	strings   []string
	stringMap map[string]uint32

	external      []*Resource
	externalIndex map[*Resource]uint32

	saved       []*Resource
	savedSet    map[*Resource]bool
	resourceMap map[*Resource]uint32
}

type savedProperty struct {
	nameIdx uint32
	value   variant.Value
}

type savedResource struct {
	typeName   string
	properties []savedProperty
}

// SaveBinary re-emits a loaded resource in the binary format. Every
// header field (format version, engine version, endianness, real
// width, flags, compression) is driven by the compat metadata attached
// to the resource, not by ambient state.
func SaveBinary(res *Resource, flags SaveFlags) ([]byte, error) {
	if res == nil || res.Info == nil {
		return nil, fmt.Errorf("resource: resource has no compat metadata: %w", errs.ErrBug)
	}
	info := *res.Info

	if info.ResourceFormat != "binary" {
		// Text-born resources get the binary format matching their
		// engine version.
		switch {
		case info.EngineMajor > 4 || (info.EngineMajor == 4 && info.EngineMinor >= 3):
			info.FormatVersion = 6
		case info.UsingScriptClass:
			info.FormatVersion = 5
		case info.UsingNamedSceneIDs || info.EngineMajor == 4:
			info.FormatVersion = 4
		case info.EngineMajor == 3:
			info.FormatVersion = 3
		default:
			info.FormatVersion = 1
		}
	}

	s := &saver{
		info:          &info,
		stringMap:     make(map[string]uint32),
		externalIndex: make(map[*Resource]uint32),
		savedSet:      make(map[*Resource]bool),
		resourceMap:   make(map[*Resource]uint32),
	}
	s.findResources(res, true)

	// Assign property-name string indices before the table is written.
	bodies := make([]savedResource, 0, len(s.saved))
	for _, r := range s.saved {
		body := savedResource{typeName: r.Class}
		props := make([]Property, 0, len(r.Properties))
		props = append(props, r.Properties...)
		if r.MissingObjectProps != nil {
			for _, e := range r.MissingObjectProps.Entries {
				if name, ok := e.Key.(string); ok {
					props = append(props, Property{Name: name, Value: e.Value})
				}
			}
		}
		for _, p := range props {
			value := p.Value
			if p.Name == "_bundled" && r.Class == "PackedScene" {
				value = fixSceneBundle(value, info.PackedSceneVersion)
			}
			body.properties = append(body.properties, savedProperty{
				nameIdx: s.stringIndex(p.Name),
				value:   value,
			})
		}
		bodies = append(bodies, body)
	}

	w := stream.NewWriter()
	defer w.Release()

	// The magic is written only on uncompressed output, where offsets
	// count from the start of the file; compressed files start with the
	// RSCC container instead, and their offsets count from the start of
	// the decompressed payload.
	compressed := flags.Compress || info.Compressed
	if !compressed {
		w.StoreBuffer([]byte(Magic))
	}
	if info.BigEndian {
		w.StoreU32(1)
		w.SetBigEndian(true)
	} else {
		w.StoreU32(0)
	}
	if info.StoredUseReal64 {
		w.StoreU32(1)
	} else {
		w.StoreU32(0)
	}
	w.SetReal64(info.RealTIsDouble)

	w.StoreU32(uint32(info.EngineMajor))
	w.StoreU32(uint32(info.EngineMinor))
	w.StoreU32(uint32(info.FormatVersion))

	w.StoreString(res.Class)
	mdAt := w.Position()
	w.StoreU64(0) // import metadata offset, patched below

	var headerFlags uint32
	if info.UsingNamedSceneIDs {
		headerFlags |= format.FlagNamedSceneIDs
	}
	if info.UsingUIDs {
		headerFlags |= format.FlagUIDs
	}
	if info.UsingScriptClass && info.ScriptClass != "" {
		headerFlags |= format.FlagHasScriptClass
	}
	if info.RealTIsDouble {
		headerFlags |= format.FlagRealTIsDouble
	}
	w.StoreU32(headerFlags)
	if info.UsingUIDs {
		w.StoreU64(info.UID)
	} else {
		// Without the UIDs flag this slot is part of the reserved
		// zeros and must stay zero for byte-identical output.
		w.StoreU64(0)
	}
	if info.UsingScriptClass && info.ScriptClass != "" {
		w.StoreString(info.ScriptClass)
	}
	for i := 0; i < reservedFields; i++ {
		w.StoreU32(0)
	}

	w.StoreU32(uint32(len(s.strings)))
	for _, str := range s.strings {
		w.StoreString(str)
	}

	w.StoreU32(uint32(len(s.external)))
	for _, er := range s.external {
		w.StoreString(er.Class)
		w.StoreString(er.Path)
		if info.UsingUIDs {
			w.StoreU64(er.UID)
		}
	}

	// Internal table with placeholder offsets, patched after the bodies.
	w.StoreU32(uint32(len(s.saved)))
	usedIDs := make(map[string]bool)
	for _, r := range s.saved {
		if r.IsBuiltIn() && r.SceneUniqueID != "" {
			if usedIDs[r.SceneUniqueID] {
				r.SceneUniqueID = ""
			} else {
				usedIDs[r.SceneUniqueID] = true
			}
		}
	}
	offsetSlots := make([]int64, 0, len(s.saved))
	for i, r := range s.saved {
		if r.IsBuiltIn() {
			if r.SceneUniqueID == "" {
				id := r.Class + "_" + strconv.Itoa(i+1)
				for usedIDs[id] {
					id += "_"
				}
				r.SceneUniqueID = id
				usedIDs[id] = true
			}
			w.StoreString("local://" + r.SceneUniqueID)
		} else {
			w.StoreString(r.Path)
		}
		offsetSlots = append(offsetSlots, w.Position())
		w.StoreU64(0)
		s.resourceMap[r] = uint32(i)
	}

	enc := &variant.Encoder{
		W:             w,
		FormatVersion: info.FormatVersion,
		VariantMajor:  info.VariantMajor(),
		StringIndex: func(str string) (uint32, bool) {
			idx, ok := s.stringMap[str]
			return idx, ok
		},
		MapObject: s.mapObject,
	}

	for i, body := range bodies {
		w.StoreU64At(offsetSlots[i], uint64(w.Position()))
		w.StoreString(body.typeName)
		w.StoreU32(uint32(len(body.properties)))
		for _, p := range body.properties {
			w.StoreU32(p.nameIdx)
			if err := enc.Encode(p.value); err != nil {
				return nil, err
			}
		}
	}

	if info.V2Metadata != nil {
		mdPos := w.Position()
		imd := info.V2Metadata
		w.StoreString(imd.Editor)
		w.StoreU32(uint32(len(imd.Sources)))
		for _, src := range imd.Sources {
			w.StoreString(src.Path)
			w.StoreString(src.MD5)
		}
		w.StoreU32(uint32(len(imd.Options)))
		for _, opt := range imd.Options {
			w.StoreString(opt.Name)
			if err := enc.Encode(opt.Value); err != nil {
				return nil, err
			}
		}
		w.StoreU64At(mdAt, uint64(mdPos))
	}

	w.StoreBuffer([]byte(Magic)) // magic at end

	payload := w.Bytes()
	if compressed {
		cw := stream.NewWriter()
		defer cw.Release()
		mode := format.CompressionZstd
		if info.FormatVersion < 3 || info.EngineMajor < 3 {
			mode = format.CompressionFastLZ
		}
		if info.Compressed {
			mode = info.CompressionMode
		}
		if err := compress.Write(cw, mode, compress.DefaultBlockSize, payload); err != nil {
			return nil, err
		}
		out := make([]byte, len(cw.Bytes()))
		copy(out, cw.Bytes())
		return out, nil
	}

	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// findResources walks the value graph depth-first, collecting external
// references and ordering internal resources so that every resource
// precedes its dependents; the main resource lands last.
func (s *saver) findResources(v variant.Value, main bool) {
	switch val := v.(type) {
	case *Resource:
		if val == nil {
			return
		}
		if _, ok := s.externalIndex[val]; ok {
			return
		}
		if !main && !val.IsBuiltIn() {
			s.externalIndex[val] = uint32(len(s.external))
			s.external = append(s.external, val)
			return
		}
		if s.savedSet[val] {
			return
		}
		s.savedSet[val] = true
		for _, p := range val.Properties {
			s.findResources(p.Value, false)
		}
		if val.MissingObjectProps != nil {
			for _, e := range val.MissingObjectProps.Entries {
				s.findResources(e.Value, false)
			}
		}
		s.saved = append(s.saved, val)

	case *variant.Array:
		for _, elem := range val.Elems {
			s.findResources(elem, false)
		}

	case *variant.Dictionary:
		for _, e := range val.Entries {
			s.findResources(e.Key, false)
			s.findResources(e.Value, false)
		}

	case variant.NodePath:
		// Take the chance and intern node path strings.
		for _, n := range val.Names {
			s.stringIndex(n)
		}
		for _, n := range val.Subnames {
			s.stringIndex(n)
		}
	}
}

func (s *saver) stringIndex(str string) uint32 {
	if idx, ok := s.stringMap[str]; ok {
		return idx
	}
	idx := uint32(len(s.strings))
	s.stringMap[str] = idx
	s.strings = append(s.strings, str)
	return idx
}

func (s *saver) mapObject(v variant.Value) (variant.ObjectRef, error) {
	res, ok := v.(*Resource)
	if !ok {
		return variant.ObjectRef{}, fmt.Errorf("resource: cannot serialize %T: %w", v, errs.ErrBug)
	}
	if res == nil {
		return variant.ObjectRef{Kind: variant.ObjectEmpty}, nil
	}
	if idx, ok := s.externalIndex[res]; ok {
		return variant.ObjectRef{Kind: variant.ObjectExternalIndex, Index: idx}, nil
	}
	idx, ok := s.resourceMap[res]
	if !ok {
		// Most likely a circular reference; the engine stores an empty
		// object in this case as well.
		return variant.ObjectRef{Kind: variant.ObjectEmpty}, nil
	}
	return variant.ObjectRef{Kind: variant.ObjectInternalIndex, Index: idx}, nil
}
