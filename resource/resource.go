// Package resource reads and writes the engine's binary resource
// format and re-emits loaded resources in binary or text form.
//
// Loading is a two-pass affair: Open parses the header and the string,
// external-reference and internal-offset tables; Load materializes the
// internal resources in file order, resolving object references
// against the tables. Four load modes are supported; everything except
// a real load produces property-preserving placeholders instead of
// instantiated types.
package resource

import (
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/gdrec/gdrec/cache"
	"github.com/gdrec/gdrec/class"
	"github.com/gdrec/gdrec/format"
	"github.com/gdrec/gdrec/variant"
)

// Magic values of the binary resource container.
const (
	Magic           = "RSRC"
	MagicCompressed = "RSCC"

	// reservedFields is the number of reserved u32 slots in the header.
	reservedFields = 11
)

// Property is one named value, ordered exactly as stored on disk.
type Property struct {
	Name  string
	Value variant.Value
}

// Resource is a loaded resource. In fake and non-global modes (and for
// unknown classes) it is a placeholder carrying only metadata and the
// ordered property bag; in real mode Instance holds the concrete type
// constructed through the class registry.
type Resource struct {
	Class         string
	Path          string
	SceneUniqueID string
	UID           uint64
	Properties    []Property

	// Missing marks a placeholder for a class that was never
	// instantiated.
	Missing bool
	// External marks a stand-in for an external reference resolved
	// without loading (fake/non-global modes, or broken dependencies).
	External bool

	Instance class.Instance

	// Info carries the compat metadata needed to re-emit the original
	// bytes. Set on the main resource of each load.
	Info *Info

	// MissingObjectProps holds object properties whose value was a
	// missing placeholder that could not be set on a real instance.
	// They are preserved here so a save keeps them.
	MissingObjectProps *variant.Dictionary
}

// Get returns the named property value, or nil.
func (r *Resource) Get(name string) variant.Value {
	for _, p := range r.Properties {
		if p.Name == name {
			return p.Value
		}
	}
	return nil
}

// Set replaces the named property, appending it when absent. Property
// order is preserved because scripted setters can be order-sensitive.
func (r *Resource) Set(name string, v variant.Value) {
	for i, p := range r.Properties {
		if p.Name == name {
			r.Properties[i].Value = v
			return
		}
	}
	r.Properties = append(r.Properties, Property{Name: name, Value: v})
}

// IsBuiltIn reports whether the resource lives inside another file
// rather than at its own path.
func (r *Resource) IsBuiltIn() bool {
	return r.Path == "" || strings.Contains(r.Path, "::") || strings.HasPrefix(r.Path, "local://")
}

// ExternalRef is one entry of the external-reference table.
type ExternalRef struct {
	Type string
	Path string
	UID  uint64

	// Resolved lazily by Load.
	Resource *Resource
	Err      error
}

// InternalRef is one entry of the internal-resource offset table. The
// last entry is the main resource.
type InternalRef struct {
	Path   string
	Offset uint64
}

// Info is the compat metadata attached to a loaded main resource so
// the same bytes can be re-emitted.
type Info struct {
	Type          string
	FormatVersion int
	EngineMajor   int
	EngineMinor   int
	UID           uint64

	BigEndian          bool
	StoredUseReal64    bool
	RealTIsDouble      bool
	UsingNamedSceneIDs bool
	UsingUIDs          bool
	UsingScriptClass   bool
	ScriptClass        string
	SuspectVersion     bool

	Compressed      bool
	CompressionMode format.CompressionType

	LoadType       format.LoadType
	ResourceFormat string // "binary" or "text"

	// PackedSceneVersion is the bundle version captured from
	// PackedScene._bundled, or -1.
	PackedSceneVersion int

	V2Metadata *ImportMetadataV2
}

// VariantMajor returns the variant schema selector for this file.
func (i *Info) VariantMajor() int {
	if i.EngineMajor <= 2 {
		return 2
	}
	return i.EngineMajor
}

// LoadConfig configures a load.
type LoadConfig struct {
	Mode format.LoadType

	// UseSubThreads fans external-reference resolution out to
	// goroutines on real loads.
	UseSubThreads bool

	// AbortOnMissing makes an unresolvable external reference fatal.
	// When false the reference degrades into a placeholder and a
	// dependency-error notification is emitted through the logger.
	AbortOnMissing bool

	// KeepUIDPaths disables rewriting external paths from the UID
	// registry.
	KeepUIDPaths bool

	// ConvertIndexed reconstitutes palettized legacy images.
	ConvertIndexed bool

	// CacheReplace selects replace semantics when inserting into the
	// global cache; reuse otherwise.
	CacheReplace bool

	Registry *class.Registry
	Cache    *cache.Resources
	UIDs     *cache.UIDs

	// LoadExternal loads an external dependency on real and GLTF
	// loads. Nil disables real external resolution.
	LoadExternal func(path, typeHint string, uid uint64) (*Resource, error)

	Logger hclog.Logger
}

func (c *LoadConfig) isRealLoad() bool {
	return c.Mode == format.LoadReal || c.Mode == format.LoadGLTF
}
