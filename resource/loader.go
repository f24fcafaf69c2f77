package resource

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/gdrec/gdrec/compress"
	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/format"
	"github.com/gdrec/gdrec/stream"
	"github.com/gdrec/gdrec/variant"
)

// Loader deserializes one binary resource file. Create it with Open,
// then call Load. A Loader is single-use and not safe for concurrent
// use; concurrent sub-loads each get their own Loader.
type Loader struct {
	r   *stream.Reader
	cfg LoadConfig

	Info Info

	ResPath   string // logical path of the file being loaded
	LocalPath string // path used in diagnostics

	Strings  []string
	External []ExternalRef
	Internal []InternalRef

	importMetaOffset uint64
	internalCache    map[string]*Resource
	loadedInternals  []*Resource
	main             *Resource
}

func (l *Loader) logger() hclog.Logger {
	if l.cfg.Logger == nil {
		return hclog.NewNullLogger()
	}
	return l.cfg.Logger
}

// Open parses the header and the three tables, leaving the Loader ready
// for Load. Probes use OpenHeader, which reads only the header.
func Open(r *stream.Reader, cfg LoadConfig) (*Loader, error) {
	l := &Loader{r: r, cfg: cfg, internalCache: make(map[string]*Resource)}
	l.Info.PackedSceneVersion = -1
	l.Info.LoadType = cfg.Mode
	l.Info.ResourceFormat = "binary"
	if err := l.open(false); err != nil {
		return nil, err
	}
	return l, nil
}

// OpenHeader reads only the header, for version probes.
func OpenHeader(r *stream.Reader, cfg LoadConfig) (*Loader, error) {
	l := &Loader{r: r, cfg: cfg, internalCache: make(map[string]*Resource)}
	l.Info.PackedSceneVersion = -1
	l.Info.LoadType = cfg.Mode
	l.Info.ResourceFormat = "binary"
	if err := l.open(true); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) open(headerOnly bool) error {
	magic, err := l.r.GetBuffer(4)
	if err != nil {
		return err
	}
	switch string(magic) {
	case MagicCompressed:
		// The decompressor reads its own header right after the magic.
		inner, container, err := compress.OpenAfterMagic(l.r)
		if err != nil {
			return fmt.Errorf("resource: %s: %w", l.LocalPath, err)
		}
		l.r = inner
		l.Info.Compressed = true
		l.Info.CompressionMode = container.Mode
	case Magic:
	default:
		return fmt.Errorf("resource: %s: %w", l.LocalPath, errs.ErrUnrecognized)
	}

	bigEndian, err := l.r.GetU32()
	if err != nil {
		return err
	}
	useReal64, err := l.r.GetU32()
	if err != nil {
		return err
	}
	l.r.SetBigEndian(bigEndian != 0)
	l.Info.BigEndian = bigEndian != 0
	l.Info.StoredUseReal64 = useReal64 != 0

	verMajor, err := l.r.GetU32()
	if err != nil {
		return err
	}
	verMinor, err := l.r.GetU32()
	if err != nil {
		return err
	}
	verFormat, err := l.r.GetU32()
	if err != nil {
		return err
	}
	l.Info.EngineMajor = int(verMajor)
	l.Info.EngineMinor = int(verMinor)
	l.Info.FormatVersion = int(verFormat)

	if verMajor < 2 {
		// Engine 1.x headers did not write a real version; infer from
		// the format counter and mark the result suspect.
		switch verFormat {
		case 0:
			// Might genuinely be engine 1.x, format 0.
		case 1:
			l.Info.SuspectVersion = true
			l.Info.EngineMajor, l.Info.EngineMinor = 2, 0
		case 2, 3:
			l.Info.SuspectVersion = true
			l.Info.EngineMajor, l.Info.EngineMinor = 3, 1
		case 4, 5:
			l.Info.SuspectVersion = true
			l.Info.EngineMajor = 4
		case 6:
			l.Info.SuspectVersion = true
			l.Info.EngineMajor, l.Info.EngineMinor = 4, 3
		}
	}

	if verFormat > format.MaxResourceFormat || l.Info.EngineMajor > format.MaxEngineMajor {
		return fmt.Errorf("resource: %s uses format %d / engine %d.%d: %w",
			l.LocalPath, verFormat, l.Info.EngineMajor, l.Info.EngineMinor, errs.ErrUnsupported)
	}

	if l.Info.Type, err = l.r.GetString(); err != nil {
		return err
	}

	if l.importMetaOffset, err = l.r.GetU64(); err != nil {
		return err
	}
	flags, err := l.r.GetU32()
	if err != nil {
		return err
	}
	l.Info.UsingNamedSceneIDs = flags&format.FlagNamedSceneIDs != 0
	l.Info.UsingUIDs = flags&format.FlagUIDs != 0
	l.Info.RealTIsDouble = flags&format.FlagRealTIsDouble != 0
	l.r.SetReal64(l.Info.RealTIsDouble)

	uid, err := l.r.GetU64()
	if err != nil {
		return err
	}
	if l.Info.UsingUIDs {
		l.Info.UID = uid
	} else {
		l.Info.UID = invalidUID
	}

	if flags&format.FlagHasScriptClass != 0 {
		l.Info.UsingScriptClass = true
		if l.Info.ScriptClass, err = l.r.GetString(); err != nil {
			return err
		}
	}

	for i := 0; i < reservedFields; i++ {
		if _, err := l.r.GetU32(); err != nil {
			return err
		}
	}

	if headerOnly {
		return nil
	}

	stringCount, err := l.r.GetU32()
	if err != nil {
		return err
	}
	l.Strings = make([]string, stringCount)
	for i := range l.Strings {
		if l.Strings[i], err = l.r.GetString(); err != nil {
			return err
		}
	}

	extCount, err := l.r.GetU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < extCount; i++ {
		var er ExternalRef
		if er.Type, err = l.r.GetString(); err != nil {
			return err
		}
		if er.Path, err = l.r.GetString(); err != nil {
			return err
		}
		er.UID = invalidUID
		if l.Info.UsingUIDs {
			if er.UID, err = l.r.GetU64(); err != nil {
				return err
			}
			if l.cfg.isRealLoad() && !l.cfg.KeepUIDPaths && er.UID != invalidUID && l.cfg.UIDs != nil {
				if p, ok := l.cfg.UIDs.Path(er.UID); ok {
					er.Path = p
				} else {
					l.logger().Warn("invalid UID in external resource, using text path instead",
						"path", l.ResPath, "index", i, "fallback", er.Path)
				}
			}
		}
		l.External = append(l.External, er)
	}

	intCount, err := l.r.GetU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < intCount; i++ {
		var ir InternalRef
		if ir.Path, err = l.r.GetString(); err != nil {
			return err
		}
		if ir.Offset, err = l.r.GetU64(); err != nil {
			return err
		}
		l.Internal = append(l.Internal, ir)
	}

	if l.r.EOF() {
		return fmt.Errorf("resource: %s: premature end of file: %w", l.LocalPath, errs.ErrCorrupt)
	}
	return nil
}

const invalidUID = ^uint64(0)

// Load is the one-call form: open a resource from memory under its
// logical path and materialize it in the configured mode.
func Load(data []byte, resPath string, cfg LoadConfig) (*Resource, error) {
	l, err := Open(stream.NewReaderBytes(data), cfg)
	if err != nil {
		return nil, err
	}
	l.ResPath = resPath
	l.LocalPath = resPath
	return l.Load()
}

// Load materializes the resource graph and returns the main resource.
func (l *Loader) Load() (*Resource, error) {
	if err := l.loadExternals(); err != nil {
		return nil, err
	}

	for i := range l.Internal {
		main := i == len(l.Internal)-1

		var path, id string
		if !main {
			path = l.Internal[i].Path
			if strings.HasPrefix(path, "local://") {
				id = strings.TrimPrefix(path, "local://")
				path = l.ResPath + "::" + id
				l.Internal[i].Path = path
			}
			if !l.cfg.CacheReplace && l.cfg.isRealLoad() && l.cfg.Cache != nil {
				if cached, ok := l.cfg.Cache.Get(path).(*Resource); ok && cached != nil {
					l.internalCache[path] = cached
					l.loadedInternals = append(l.loadedInternals, cached)
					continue
				}
			}
		} else {
			path = l.ResPath
		}

		if err := l.r.Seek(int64(l.Internal[i].Offset)); err != nil {
			return nil, err
		}
		typeName, err := l.r.GetString()
		if err != nil {
			return nil, err
		}

		res := &Resource{Class: typeName, Path: path, SceneUniqueID: id}
		if l.cfg.Mode == format.LoadFake {
			res.Missing = true
		} else if l.cfg.Registry != nil {
			if inst, ok := l.cfg.Registry.Instantiate(typeName); ok {
				res.Instance = inst
			} else {
				res.Missing = true
			}
		} else {
			res.Missing = true
		}
		if main {
			res.UID = l.Info.UID
		}

		if !main {
			l.internalCache[path] = res
		} else {
			// Internal references may legally point at the main
			// resource's own path.
			l.internalCache[l.ResPath] = res
		}

		propCount, err := l.r.GetU32()
		if err != nil {
			return nil, err
		}
		isScene := typeName == "PackedScene"

		for j := uint32(0); j < propCount; j++ {
			name, err := l.getString()
			if err != nil {
				return nil, err
			}
			if name == "" {
				return nil, fmt.Errorf("resource: %s: empty property name: %w", l.LocalPath, errs.ErrCorrupt)
			}
			value, err := l.parseVariant()
			if err != nil {
				return nil, err
			}

			// On real loads an object property resolving to a missing
			// placeholder would not survive being set on the instance;
			// keep it in the side-channel dictionary instead.
			if l.cfg.isRealLoad() && !res.Missing {
				if mr, ok := value.(*Resource); ok && mr.Missing && !mr.External {
					if res.MissingObjectProps == nil {
						res.MissingObjectProps = &variant.Dictionary{}
					}
					res.MissingObjectProps.Set(name, mr)
					continue
				}
				if name == "script" {
					if mr, ok := value.(*Resource); ok && mr.Missing {
						if res.MissingObjectProps == nil {
							res.MissingObjectProps = &variant.Dictionary{}
						}
						res.MissingObjectProps.Set(name, mr)
						continue
					}
				}
			}

			if isScene && name == "_bundled" {
				if d, ok := value.(*variant.Dictionary); ok {
					if ver, ok := d.Get("version").(int64); ok {
						l.Info.PackedSceneVersion = int(ver)
					}
				}
			}

			res.Properties = append(res.Properties, Property{Name: name, Value: value})
		}

		l.loadedInternals = append(l.loadedInternals, res)

		if main {
			if l.Info.EngineMajor <= 2 {
				if err := l.loadImportMetadata(); err != nil && err != errUnavailableMeta {
					return nil, err
				}
			}
			l.main = res
			info := l.Info
			res.Info = &info
			if l.cfg.isRealLoad() && l.cfg.Cache != nil && l.cfg.Mode != format.LoadNonGlobal {
				l.cfg.Cache.Put(l.ResPath, res, l.cfg.CacheReplace)
			}
			return res, nil
		}
	}
	return nil, fmt.Errorf("resource: %s: no internal resources: %w", l.LocalPath, errs.ErrCorrupt)
}

// loadExternals resolves every external reference before any internal
// resource is materialized. Real loads may fan out to goroutines when
// UseSubThreads is set; the other modes synthesize placeholders.
func (l *Loader) loadExternals() error {
	if !l.cfg.isRealLoad() || l.cfg.LoadExternal == nil {
		for i := range l.External {
			er := &l.External[i]
			er.Resource = &Resource{
				Class:    er.Type,
				Path:     er.Path,
				UID:      er.UID,
				Missing:  true,
				External: true,
			}
		}
		return nil
	}

	if l.cfg.UseSubThreads {
		var wg sync.WaitGroup
		for i := range l.External {
			wg.Add(1)
			go func(er *ExternalRef) {
				defer wg.Done()
				er.Resource, er.Err = l.cfg.LoadExternal(er.Path, er.Type, er.UID)
			}(&l.External[i])
		}
		wg.Wait()
	} else {
		for i := range l.External {
			er := &l.External[i]
			er.Resource, er.Err = l.cfg.LoadExternal(er.Path, er.Type, er.UID)
		}
	}

	for i := range l.External {
		er := &l.External[i]
		if er.Err != nil || er.Resource == nil {
			if l.cfg.AbortOnMissing {
				return fmt.Errorf("resource: %s: can't load dependency %s: %w", l.LocalPath, er.Path, errs.ErrMissingDep)
			}
			l.logger().Warn("dependency error, substituting placeholder",
				"path", l.ResPath, "dependency", er.Path, "type", er.Type)
			er.Resource = &Resource{Class: er.Type, Path: er.Path, UID: er.UID, Missing: true, External: true}
			er.Err = nil
		}
	}
	return nil
}

// getString reads a u32 that is either a string-table index or an
// inline string with the high length bit set.
func (l *Loader) getString() (string, error) {
	id, err := l.r.GetU32()
	if err != nil {
		return "", err
	}
	if id&0x80000000 != 0 {
		length := int(id & 0x7FFFFFFF)
		if length == 0 {
			return "", nil
		}
		buf, err := l.r.GetBuffer(length)
		if err != nil {
			return "", err
		}
		for i, b := range buf {
			if b == 0 {
				buf = buf[:i]
				break
			}
		}
		return string(buf), nil
	}
	if int(id) >= len(l.Strings) {
		return "", fmt.Errorf("resource: %s: string table index %d out of range: %w", l.LocalPath, id, errs.ErrCorrupt)
	}
	return l.Strings[id], nil
}

func (l *Loader) parseVariant() (variant.Value, error) {
	dec := &variant.Decoder{
		R:             l.r,
		FormatVersion: l.Info.FormatVersion,
		VariantMajor:  l.Info.VariantMajor(),
		LookupString: func(idx uint32) (string, error) {
			if int(idx) >= len(l.Strings) {
				return "", fmt.Errorf("resource: string table index %d out of range: %w", idx, errs.ErrCorrupt)
			}
			return l.Strings[idx], nil
		},
		ResolveObject:  l.resolveObject,
		ConvertIndexed: l.cfg.ConvertIndexed,
		Logger:         l.cfg.Logger,
	}
	return dec.Decode()
}

func (l *Loader) resolveObject(ref variant.ObjectRef) (variant.Value, error) {
	switch ref.Kind {
	case variant.ObjectEmpty:
		return nil, nil

	case variant.ObjectInternalIndex:
		var path string
		if l.Info.UsingNamedSceneIDs {
			if int(ref.Index) >= len(l.Internal) {
				return nil, fmt.Errorf("resource: internal index %d out of range: %w", ref.Index, errs.ErrCorrupt)
			}
			path = l.Internal[ref.Index].Path
		} else {
			path = l.ResPath + "::" + strconv.Itoa(int(ref.Index))
		}
		res, ok := l.internalCache[path]
		if !ok {
			l.logger().Warn("couldn't resolve internal resource (no cache)", "path", path)
			return nil, nil
		}
		return res, nil

	case variant.ObjectExternal:
		// Legacy by-path form, kept for compatibility.
		if !l.cfg.isRealLoad() || l.cfg.LoadExternal == nil {
			return &Resource{Class: ref.Type, Path: ref.Path, UID: invalidUID, Missing: true, External: true}, nil
		}
		res, err := l.cfg.LoadExternal(ref.Path, ref.Type, invalidUID)
		if err != nil || res == nil {
			l.logger().Warn("couldn't load resource", "path", ref.Path)
			return nil, nil
		}
		return res, nil

	case variant.ObjectExternalIndex:
		if int(ref.Index) >= len(l.External) {
			l.logger().Warn("broken external resource, index out of range", "index", ref.Index)
			return nil, nil
		}
		er := &l.External[ref.Index]
		if er.Resource == nil {
			if l.cfg.AbortOnMissing && l.cfg.isRealLoad() {
				return nil, fmt.Errorf("resource: can't load dependency %s: %w", er.Path, errs.ErrMissingDep)
			}
			return nil, nil
		}
		return er.Resource, nil
	}
	return nil, fmt.Errorf("resource: object sub-tag %d: %w", ref.Kind, errs.ErrCorrupt)
}

// InternalResources returns every materialized internal resource in
// file order; the last one is the main resource. Valid after Load.
func (l *Loader) InternalResources() []*Resource { return l.loadedInternals }

// Main returns the loaded main resource.
func (l *Loader) Main() *Resource { return l.main }
