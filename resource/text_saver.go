package resource

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/variant"
)

// SaveText re-emits a loaded resource in the textual gd_scene /
// gd_resource form. The text format version is derived from the engine
// major recorded in the compat metadata: 1 for engine 2, 2 for engine
// 3, 3 for engine 4.
func SaveText(res *Resource) ([]byte, error) {
	if res == nil || res.Info == nil {
		return nil, fmt.Errorf("resource: resource has no compat metadata: %w", errs.ErrBug)
	}
	info := res.Info

	textFormat := 1
	switch {
	case info.EngineMajor == 3:
		textFormat = 2
	case info.EngineMajor >= 4:
		textFormat = 3
	}

	s := &saver{
		info:          info,
		stringMap:     make(map[string]uint32),
		externalIndex: make(map[*Resource]uint32),
		savedSet:      make(map[*Resource]bool),
		resourceMap:   make(map[*Resource]uint32),
	}
	s.findResources(res, true)
	for i, r := range s.saved {
		s.resourceMap[r] = uint32(i)
	}

	isScene := res.Class == "PackedScene"

	refw := func(v variant.Value) (string, bool) {
		r, ok := v.(*Resource)
		if !ok || r == nil {
			return "", false
		}
		if idx, ok := s.externalIndex[r]; ok {
			id := strconv.Itoa(int(idx) + 1)
			if textFormat >= 3 {
				return `ExtResource("` + id + `")`, true
			}
			return "ExtResource( " + id + " )", true
		}
		if idx, ok := s.resourceMap[r]; ok {
			id := strconv.Itoa(int(idx) + 1)
			if textFormat >= 3 {
				return `SubResource("` + id + `")`, true
			}
			return "SubResource( " + id + " )", true
		}
		return "null", true
	}

	writeValue := func(v variant.Value) (string, error) {
		return variant.WriteText(v, info.EngineMajor, refw)
	}

	var sb strings.Builder

	// Header.
	title := "[gd_resource "
	if isScene {
		title = "[gd_scene "
	} else {
		title += `type="` + res.Class + `" `
		if info.ScriptClass != "" && textFormat > 2 {
			title += `script_class="` + info.ScriptClass + `" `
		}
	}
	loadSteps := len(s.saved) + len(s.external)
	if loadSteps > 1 {
		title += "load_steps=" + strconv.Itoa(loadSteps) + " "
	}
	title += "format=" + strconv.Itoa(textFormat)
	if textFormat >= 3 && info.UID != invalidUID {
		title += ` uid="` + uidToText(info.UID) + `"`
	}
	sb.WriteString(title)
	sb.WriteString("]\n\n")

	// External references.
	for i, er := range s.external {
		if textFormat >= 3 {
			line := `[ext_resource type="` + er.Class + `"`
			if er.UID != invalidUID {
				line += ` uid="` + uidToText(er.UID) + `"`
			}
			line += ` path="` + er.Path + `" id="` + strconv.Itoa(i+1) + `"]`
			sb.WriteString(line + "\n")
		} else {
			sb.WriteString(`[ext_resource path="` + er.Path + `" type="` + er.Class +
				`" id=` + strconv.Itoa(i+1) + "]\n")
		}
	}
	if len(s.external) > 0 {
		sb.WriteString("\n")
	}

	// Internal resources; the main resource of a scene is emitted as
	// nodes instead.
	for i, r := range s.saved {
		main := i == len(s.saved)-1
		if main && isScene {
			break
		}
		if main {
			sb.WriteString("[resource]\n")
		} else {
			line := `[sub_resource type="` + r.Class + `" `
			id := strconv.Itoa(i + 1)
			if textFormat >= 3 {
				line += `id="` + id + `"]`
			} else {
				line += "id=" + id + "]"
			}
			if textFormat == 1 {
				// Engine 2 put a blank line between the header and the
				// first property.
				line += "\n"
			}
			sb.WriteString(line + "\n")
		}
		for _, p := range r.Properties {
			v, err := writeValue(p.Value)
			if err != nil {
				return nil, err
			}
			sb.WriteString(encodePropertyName(p.Name) + " = " + v + "\n")
		}
		if i < len(s.saved)-1 {
			sb.WriteString("\n")
		}
	}

	if isScene {
		bundle, ok := res.Get("_bundled").(*variant.Dictionary)
		if !ok {
			return nil, fmt.Errorf("resource: packed scene without bundle: %w", errs.ErrCorrupt)
		}
		st, err := unpackSceneState(bundle)
		if err != nil {
			return nil, err
		}
		if err := writeSceneNodes(&sb, st, textFormat, writeValue); err != nil {
			return nil, err
		}
	}

	return []byte(sb.String()), nil
}

func writeSceneNodes(sb *strings.Builder, st *sceneState, textFormat int, writeValue func(variant.Value) (string, error)) error {
	for i := range st.Nodes {
		nd := &st.Nodes[i]

		header := "[node"
		header += ` name="` + escapeTag(st.name(nd.Name)) + `"`
		if nd.Type != sceneTypeInstanced {
			header += ` type="` + st.name(nd.Type) + `"`
		}
		if i > 0 {
			header += ` parent="` + escapeTag(st.refPath(nd.Parent)) + `"`
		} else if st.BaseScene >= 0 {
			// Inherited scene; the base lands in the instance field.
			nd.Instance = st.BaseScene
		}
		if owner := st.refPath(nd.Owner); i > 0 && owner != "" && owner != "." {
			header += ` owner="` + escapeTag(owner) + `"`
		}
		if nd.Index >= 0 {
			header += ` index="` + strconv.Itoa(int(nd.Index)) + `"`
		}
		if len(nd.Groups) > 0 {
			groups := make([]string, 0, len(nd.Groups))
			for _, g := range nd.Groups {
				groups = append(groups, st.name(g))
			}
			sort.Strings(groups)
			header += " groups=[\n"
			for _, g := range groups {
				header += `"` + escapeTag(g) + "\",\n"
			}
			header += "]"
		}
		sb.WriteString(header)

		if nd.Instance >= 0 {
			if nd.Instance&sceneFlagInstanceIsPlaceholder != 0 {
				v, err := writeValue(st.variantAt(nd.Instance & sceneFlagMask))
				if err != nil {
					return err
				}
				sb.WriteString(" instance_placeholder=" + v)
			} else {
				v, err := writeValue(st.variantAt(nd.Instance & sceneFlagMask))
				if err != nil {
					return err
				}
				sb.WriteString(" instance=" + v)
			}
		}
		sb.WriteString("]\n")
		if textFormat == 1 && len(nd.Props) > 0 {
			// Engine 2 blank-line quirk, kept for diffability.
			sb.WriteString("\n")
		}

		for _, pv := range nd.Props {
			v, err := writeValue(st.variantAt(pv[1]))
			if err != nil {
				return err
			}
			sb.WriteString(encodePropertyName(st.name(pv[0])) + " = " + v + "\n")
		}
		if i < len(st.Nodes)-1 {
			sb.WriteString("\n")
		}
	}

	for i, cd := range st.Conns {
		if i == 0 {
			sb.WriteString("\n")
		}
		conn := "[connection"
		conn += ` signal="` + st.name(cd.Signal) + `"`
		conn += ` from="` + escapeTag(st.refPath(cd.From)) + `"`
		conn += ` to="` + escapeTag(st.refPath(cd.To)) + `"`
		conn += ` method="` + st.name(cd.Method) + `"`
		if cd.Flags != connectPersist {
			conn += " flags=" + strconv.Itoa(int(cd.Flags))
		}
		if cd.Unbinds > 0 {
			conn += " unbinds=" + strconv.Itoa(int(cd.Unbinds))
		}
		sb.WriteString(conn)
		if len(cd.Binds) > 0 {
			binds := &variant.Array{}
			for _, b := range cd.Binds {
				binds.Elems = append(binds.Elems, st.variantAt(b))
			}
			v, err := writeValue(binds)
			if err != nil {
				return err
			}
			sb.WriteString(" binds= " + v)
		}
		sb.WriteString("]\n")
		if textFormat == 1 {
			sb.WriteString("\n")
		}
	}

	for i, np := range st.Editable {
		if i == 0 {
			sb.WriteString("\n")
		}
		path := strings.Join(np.Names, "/")
		sb.WriteString(`[editable path="` + escapeTag(path) + "\"]\n")
	}
	return nil
}

// uidToText renders a resource UID the way the engine prints them:
// "uid://" followed by base-34 digits, letters first.
func uidToText(uid uint64) string {
	if uid == invalidUID {
		return "uid://<invalid>"
	}
	const letters = 25 // 'z'-'a'
	const base = letters + 9
	if uid == 0 {
		return "uid://"
	}
	var out []byte
	for uid > 0 {
		c := uid % base
		if c < letters {
			out = append([]byte{byte('a' + c)}, out...)
		} else {
			out = append([]byte{byte('0' + (c - letters))}, out...)
		}
		uid /= base
	}
	return "uid://" + string(out)
}

func escapeTag(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// encodePropertyName quotes names that would not survive as bare
// identifiers.
func encodePropertyName(name string) string {
	plain := name != ""
	for _, r := range name {
		if !(r == '_' || r == '/' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			plain = false
			break
		}
	}
	if plain {
		return name
	}
	return `"` + escapeTag(name) + `"`
}
