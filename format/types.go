// Package format defines the shared enumerations of the binary formats
// this module decodes: resource load modes, compression modes, pack
// container kinds and the flag words stored in pack and resource
// headers.
package format

type (
	LoadType        uint8
	CompressionType uint8
	ContainerType   uint8
)

const (
	// LoadReal instantiates concrete types through the class registry and
	// registers the result in the global resource cache.
	LoadReal LoadType = iota
	// LoadGLTF instantiates where a native type is available.
	LoadGLTF
	// LoadNonGlobal instantiates without touching any global cache.
	LoadNonGlobal
	// LoadFake replaces every typed object with a placeholder carrying
	// only the class name and property bag.
	LoadFake
)

const (
	CompressionFastLZ  CompressionType = 0 // legacy default for engine 2.x / format < 3
	CompressionDeflate CompressionType = 1
	CompressionZstd    CompressionType = 2
	CompressionGzip    CompressionType = 3
)

const (
	ContainerPCK ContainerType = iota // monolithic GDPC pack
	ContainerEXE                      // pack appended to an executable
	ContainerZIP
	ContainerAPK
)

// Resource header flag bits (format versions >= 4).
const (
	FlagNamedSceneIDs  = 1
	FlagUIDs           = 2
	FlagRealTIsDouble  = 4
	FlagHasScriptClass = 8
)

// Pack flag bits (pack format version >= 2).
const (
	PackDirEncrypted  = 1 << 0
	PackFileEncrypted = 1 << 0 // per-file flag word
)

// Format version bounds.
const (
	MaxResourceFormat = 6
	MaxEngineMajor    = 4
	MaxPackFormat     = 2

	// FormatCanRenameDeps is the first resource format whose dependency
	// table can be rewritten in place.
	FormatCanRenameDeps = 1
	// FormatNoNodePathProperty is the first resource format that dropped
	// the trailing node-path property subname.
	FormatNoNodePathProperty = 3
)

func (t LoadType) String() string {
	switch t {
	case LoadReal:
		return "real"
	case LoadGLTF:
		return "gltf"
	case LoadNonGlobal:
		return "non-global"
	case LoadFake:
		return "fake"
	default:
		return "unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionFastLZ:
		return "FastLZ"
	case CompressionDeflate:
		return "Deflate"
	case CompressionZstd:
		return "Zstd"
	case CompressionGzip:
		return "Gzip"
	default:
		return "Unknown"
	}
}

func (c ContainerType) String() string {
	switch c {
	case ContainerPCK:
		return "PCK"
	case ContainerEXE:
		return "EXE"
	case ContainerZIP:
		return "ZIP"
	case ContainerAPK:
		return "APK"
	default:
		return "Unknown"
	}
}
