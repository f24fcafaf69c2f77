package resource

import (
	"fmt"
	"strings"

	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/variant"
)

// The PackedScene bundle packs its node tree into parallel arrays.
// These constants mirror the engine's packing.
const (
	sceneNameIndexBits = 18
	sceneFlagIDIsPath  = 1 << 30
	sceneFlagMask      = (1 << 24) - 1
	sceneTypeInstanced = 0x7FFFFFFF
	sceneFlagInstanceIsPlaceholder = 1 << 30

	connectPersist = 2
)

// sceneNode is one unpacked node record.
type sceneNode struct {
	Parent   int32 // raw reference: index, path-flagged, or negative
	Owner    int32
	Type     int32
	Name     int32
	Index    int32
	Instance int32
	Props    [][2]int32 // name index, variant index
	Groups   []int32
}

// sceneConnection is one unpacked connection record.
type sceneConnection struct {
	From, To       int32
	Signal, Method int32
	Flags          int32
	Unbinds        int32
	Binds          []int32
}

// sceneState is the unpacked form of a PackedScene bundle, sufficient
// for text emission.
type sceneState struct {
	Version   int
	Names     variant.PackedStringArray
	Variants  []variant.Value
	Nodes     []sceneNode
	Conns     []sceneConnection
	NodePaths []variant.NodePath
	Editable  []variant.NodePath
	BaseScene int32 // variant index, -1 when absent
}

// unpackSceneState decodes the _bundled dictionary of a PackedScene.
func unpackSceneState(bundle *variant.Dictionary) (*sceneState, error) {
	st := &sceneState{BaseScene: -1, Version: 1}
	if v, ok := bundle.Get("version").(int64); ok {
		st.Version = int(v)
	}
	if names, ok := bundle.Get("names").(variant.PackedStringArray); ok {
		st.Names = names
	}
	if vars, ok := bundle.Get("variants").(*variant.Array); ok {
		st.Variants = vars.Elems
	}
	if np, ok := bundle.Get("node_paths").(*variant.Array); ok {
		for _, e := range np.Elems {
			if p, ok := e.(variant.NodePath); ok {
				st.NodePaths = append(st.NodePaths, p)
			}
		}
	}
	if ei, ok := bundle.Get("editable_instances").(*variant.Array); ok {
		for _, e := range ei.Elems {
			if p, ok := e.(variant.NodePath); ok {
				st.Editable = append(st.Editable, p)
			}
		}
	}
	if bs, ok := bundle.Get("base_scene").(int64); ok {
		st.BaseScene = int32(bs)
	}

	nodeCount, _ := bundle.Get("node_count").(int64)
	nodes, _ := bundle.Get("nodes").(variant.PackedInt32Array)
	idx := 0
	next := func() (int32, error) {
		if idx >= len(nodes) {
			return 0, fmt.Errorf("resource: scene node array truncated: %w", errs.ErrCorrupt)
		}
		v := nodes[idx]
		idx++
		return v, nil
	}
	for n := int64(0); n < nodeCount; n++ {
		var nd sceneNode
		var err error
		if nd.Parent, err = next(); err != nil {
			return nil, err
		}
		if nd.Owner, err = next(); err != nil {
			return nil, err
		}
		if nd.Type, err = next(); err != nil {
			return nil, err
		}
		nameIndex, err := next()
		if err != nil {
			return nil, err
		}
		nd.Name = nameIndex & ((1 << sceneNameIndexBits) - 1)
		nd.Index = (nameIndex >> sceneNameIndexBits) - 1
		if nd.Instance, err = next(); err != nil {
			return nil, err
		}
		propCount, err := next()
		if err != nil {
			return nil, err
		}
		for p := int32(0); p < propCount; p++ {
			pn, err := next()
			if err != nil {
				return nil, err
			}
			pv, err := next()
			if err != nil {
				return nil, err
			}
			nd.Props = append(nd.Props, [2]int32{pn, pv})
		}
		groupCount, err := next()
		if err != nil {
			return nil, err
		}
		for g := int32(0); g < groupCount; g++ {
			gi, err := next()
			if err != nil {
				return nil, err
			}
			nd.Groups = append(nd.Groups, gi)
		}
		st.Nodes = append(st.Nodes, nd)
	}

	connCount, _ := bundle.Get("conn_count").(int64)
	conns, _ := bundle.Get("conns").(variant.PackedInt32Array)
	idx = 0
	cnext := func() (int32, error) {
		if idx >= len(conns) {
			return 0, fmt.Errorf("resource: scene connection array truncated: %w", errs.ErrCorrupt)
		}
		v := conns[idx]
		idx++
		return v, nil
	}
	for c := int64(0); c < connCount; c++ {
		var cd sceneConnection
		var err error
		if cd.From, err = cnext(); err != nil {
			return nil, err
		}
		if cd.To, err = cnext(); err != nil {
			return nil, err
		}
		if cd.Signal, err = cnext(); err != nil {
			return nil, err
		}
		if cd.Method, err = cnext(); err != nil {
			return nil, err
		}
		if cd.Flags, err = cnext(); err != nil {
			return nil, err
		}
		bindCount, err := cnext()
		if err != nil {
			return nil, err
		}
		for b := int32(0); b < bindCount; b++ {
			bi, err := cnext()
			if err != nil {
				return nil, err
			}
			cd.Binds = append(cd.Binds, bi)
		}
		if st.Version >= 3 {
			if cd.Unbinds, err = cnext(); err != nil {
				return nil, err
			}
		}
		st.Conns = append(st.Conns, cd)
	}
	return st, nil
}

func (st *sceneState) name(idx int32) string {
	if idx >= 0 && int(idx) < len(st.Names) {
		return st.Names[idx]
	}
	return ""
}

func (st *sceneState) variantAt(idx int32) variant.Value {
	if idx >= 0 && int(idx) < len(st.Variants) {
		return st.Variants[idx]
	}
	return nil
}

// nodePathOf returns a node's path relative to the root; the root is
// ".".
func (st *sceneState) nodePathOf(i int) string {
	if i <= 0 {
		return "."
	}
	var parts []string
	for cur := i; cur > 0; {
		nd := st.Nodes[cur]
		parts = append([]string{st.name(nd.Name)}, parts...)
		p := nd.Parent
		if p < 0 {
			break
		}
		if p&sceneFlagIDIsPath != 0 {
			// Parent lives behind an instanced scene; prepend its path.
			np := st.NodePaths[p&sceneFlagMask]
			prefix := strings.Join(np.Names, "/")
			if prefix != "" && prefix != "." {
				parts = append([]string{prefix}, parts...)
			}
			break
		}
		cur = int(p & sceneFlagMask)
		if cur == 0 {
			break
		}
	}
	return strings.Join(parts, "/")
}

// refPath resolves a node reference (index or path-flagged) to a path
// string relative to the root.
func (st *sceneState) refPath(ref int32) string {
	if ref < 0 {
		return ""
	}
	if ref&sceneFlagIDIsPath != 0 {
		np := st.NodePaths[ref&sceneFlagMask]
		s := strings.Join(np.Names, "/")
		if len(np.Subnames) > 0 {
			s += ":" + strings.Join(np.Subnames, ":")
		}
		if np.Absolute {
			s = "/" + s
		}
		return s
	}
	return st.nodePathOf(int(ref & sceneFlagMask))
}
