package resource

import (
	"github.com/hashicorp/go-hclog"

	"github.com/gdrec/gdrec/format"
	"github.com/gdrec/gdrec/stream"
)

// Probe reads everything about a resource file short of materializing
// its resources: header fields, version, flags, and (for engine 2)
// the import metadata tail.
func Probe(r *stream.Reader, logger hclog.Logger) (*Info, error) {
	l, err := Open(r, LoadConfig{Mode: format.LoadFake, Logger: logger})
	if err != nil {
		return nil, err
	}
	if l.Info.EngineMajor <= 2 {
		if err := l.loadImportMetadata(); err != nil && err != errUnavailableMeta {
			return nil, err
		}
	}
	info := l.Info
	return &info, nil
}

// Recognize returns the main type name of a resource stream, or ""
// when the stream is not a binary resource.
func Recognize(r *stream.Reader) string {
	l, err := OpenHeader(r, LoadConfig{Mode: format.LoadFake})
	if err != nil {
		return ""
	}
	return l.Info.Type
}

// RecognizeScriptClass returns the script class recorded in the
// header, or "".
func RecognizeScriptClass(r *stream.Reader) string {
	l, err := OpenHeader(r, LoadConfig{Mode: format.LoadFake})
	if err != nil {
		return ""
	}
	return l.Info.ScriptClass
}

// UIDOf returns the resource UID from the header without a full load.
func UIDOf(r *stream.Reader) uint64 {
	l, err := OpenHeader(r, LoadConfig{Mode: format.LoadFake})
	if err != nil {
		return invalidUID
	}
	return l.Info.UID
}

// EngineVersionOf returns the engine major/minor of a resource stream
// and whether the version was heuristically inferred.
func EngineVersionOf(r *stream.Reader) (major, minor int, suspect bool, err error) {
	l, err := OpenHeader(r, LoadConfig{Mode: format.LoadFake})
	if err != nil {
		return 0, 0, false, err
	}
	return l.Info.EngineMajor, l.Info.EngineMinor, l.Info.SuspectVersion, nil
}

// Dependency is one external reference as reported by Dependencies.
type Dependency struct {
	// Ref is the UID text when one is recorded, the path otherwise.
	Ref  string
	Type string
	// FallbackPath is set when Ref is a UID.
	FallbackPath string
}

// Dependencies lists a file's external references without loading its
// resources.
func Dependencies(r *stream.Reader, addTypes bool) ([]Dependency, error) {
	l, err := Open(r, LoadConfig{Mode: format.LoadFake})
	if err != nil {
		return nil, err
	}
	out := make([]Dependency, 0, len(l.External))
	for _, er := range l.External {
		d := Dependency{Ref: er.Path}
		if er.UID != invalidUID {
			d.Ref = uidToText(er.UID)
			d.FallbackPath = er.Path
		}
		if addTypes {
			d.Type = er.Type
		}
		out = append(out, d)
	}
	return out, nil
}

// ClassesUsed returns the set of internal resource type names.
func ClassesUsed(r *stream.Reader) (map[string]bool, error) {
	l, err := Open(r, LoadConfig{Mode: format.LoadFake})
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, ir := range l.Internal {
		if err := l.r.Seek(int64(ir.Offset)); err != nil {
			return nil, err
		}
		t, err := l.r.GetString()
		if err != nil {
			return nil, err
		}
		if t != "" {
			out[t] = true
		}
	}
	return out, nil
}
