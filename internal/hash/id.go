// Package hash derives the 64-bit identifiers used to key the global
// resource cache and the UID registry's reverse index.
package hash

import "github.com/cespare/xxhash/v2"

// PathID computes the xxHash64 of a resource path.
func PathID(path string) uint64 {
	return xxhash.Sum64String(path)
}
