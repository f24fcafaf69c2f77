package resource

import "github.com/gdrec/gdrec/variant"

// fixSceneBundle rewrites a PackedScene bundle whose version was
// bumped during loading back to the version the original file stored.
// Bundle version 3 added per-connection "unbinds" counts; when no
// connection actually uses them the counts are stripped and the
// original version restored so the output stays byte-identical.
func fixSceneBundle(value variant.Value, originalVersion int) variant.Value {
	bundle, ok := value.(*variant.Dictionary)
	if !ok {
		return value
	}
	ver, _ := bundle.Get("version").(int64)
	if originalVersion >= 0 && int(ver) == originalVersion {
		return value
	}
	if ver > 3 {
		// Unknown future bundle layout; leave it alone.
		return value
	}

	connCount, _ := bundle.Get("conn_count").(int64)
	conns, _ := bundle.Get("conns").(variant.PackedInt32Array)
	if connCount == 0 && len(conns) == 0 {
		out := cloneBundle(bundle)
		out.Set("version", restoredVersion(originalVersion))
		return out
	}

	// Walk the packed connection records; any live unbind forces v3.
	idx := 0
	unbinds := make([]int32, 0, connCount)
	for c := int64(0); c < connCount; c++ {
		if idx+6 > len(conns) {
			return value // malformed, do not touch
		}
		idx += 5 // from, to, signal, method, flags
		bindCount := int(conns[idx])
		idx++
		idx += bindCount
		if idx >= len(conns) {
			return value
		}
		unbinds = append(unbinds, conns[idx])
		idx++
	}
	for _, u := range unbinds {
		if u > 0 {
			return value // genuinely requires version 3
		}
	}

	out := cloneBundle(bundle)
	newConns := make(variant.PackedInt32Array, 0, len(conns)-int(connCount))
	idx = 0
	for c := int64(0); c < connCount; c++ {
		newConns = append(newConns, conns[idx:idx+5]...)
		idx += 5
		bindCount := conns[idx]
		newConns = append(newConns, bindCount)
		idx++
		newConns = append(newConns, conns[idx:idx+int(bindCount)]...)
		idx += int(bindCount)
		idx++ // skip the unbind slot
	}
	out.Set("conns", newConns)
	out.Set("version", restoredVersion(originalVersion))
	return out
}

func restoredVersion(originalVersion int) int64 {
	if originalVersion > 0 {
		return int64(originalVersion)
	}
	return 2
}

func cloneBundle(d *variant.Dictionary) *variant.Dictionary {
	out := &variant.Dictionary{Shared: d.Shared, Entries: make([]variant.DictEntry, len(d.Entries))}
	copy(out.Entries, d.Entries)
	return out
}
