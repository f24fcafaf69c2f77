// Package errs defines the sentinel errors shared by every subsystem.
//
// Each error corresponds to one failure kind surfaced to callers; call
// sites wrap them with fmt.Errorf("...: %w", err) so errors.Is keeps
// working across package boundaries.
package errs

import "errors"

var (
	// ErrNotFound is returned when a file or pack entry does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrUnrecognized is returned when magic bytes match no known format.
	ErrUnrecognized = errors.New("file unrecognized")

	// ErrCorrupt is returned on short reads, bad tags and out-of-bounds
	// table indices.
	ErrCorrupt = errors.New("file corrupt")

	// ErrUnsupported is returned when the format version or engine major
	// is newer than this library understands.
	ErrUnsupported = errors.New("file unsupported")

	// ErrEncryption is returned whenever decryption fails. It is kept
	// distinct from ErrCorrupt because callers must prompt for a key.
	ErrEncryption = errors.New("encryption error")

	// ErrMissingDep is returned when an external reference cannot be
	// resolved and the load is configured to abort on missing resources.
	ErrMissingDep = errors.New("missing dependency")

	// ErrUnavailable is returned for deprecated formats that cannot be
	// represented in modern form. Non-fatal at read; the resource is
	// skipped.
	ErrUnavailable = errors.New("unavailable")

	// ErrBug signals a violated internal invariant.
	ErrBug = errors.New("bug")

	// ErrShortRead is returned by stream primitives on underreads.
	ErrShortRead = errors.New("short read")

	// ErrInvalidEncoding is returned for malformed UTF-8 in
	// length-prefixed strings.
	ErrInvalidEncoding = errors.New("invalid encoding")
)
