package bytecode

import (
	"fmt"
	"strings"

	"github.com/gdrec/gdrec/errs"
)

// Decompile turns a compiled script buffer back into source text for
// the given revision.
func Decompile(buf []byte, v *Version) (string, error) {
	m, err := Read(buf, v)
	if err != nil {
		return "", err
	}
	return Emit(m, v)
}

func ensureSpace(line *strings.Builder) {
	s := line.String()
	if s != "" && !strings.HasSuffix(s, " ") {
		line.WriteString(" ")
	}
}

// Emit walks the token stream, rebuilding the source line by line with
// the spacing rules of the era: operators get a leading space unless
// they open a line, unary minus after a newline stays bare, and the
// newline token flushes the pending line at its payload's indent.
func Emit(m *Module, v *Version) (string, error) {
	var script strings.Builder
	var line strings.Builder
	indent := 0

	prev := TkNewline
	for i := 0; i < len(m.Tokens); i++ {
		word := m.Tokens[i]
		tok := v.Global(int(word & TokenMask))
		payload := word >> TokenBits

		switch tok {
		case TkEmpty:
			// skip

		case TkIdentifier:
			if int(payload) >= len(m.Identifiers) {
				return "", fmt.Errorf("bytecode: identifier %d out of range: %w", payload, errs.ErrCorrupt)
			}
			line.WriteString(m.Identifiers[payload])

		case TkConstant:
			s, err := ConstantString(m.Constants, payload, v.VariantMajor)
			if err != nil {
				return "", err
			}
			line.WriteString(s)

		case TkSelf:
			line.WriteString("self")

		case TkBuiltInType:
			line.WriteString(BuiltinTypeName(int(payload), v.VariantMajor))

		case TkBuiltInFunc:
			if int(payload) >= len(v.Functions) {
				return "", fmt.Errorf("bytecode: function %d out of range: %w", payload, errs.ErrCorrupt)
			}
			line.WriteString(v.Functions[payload])

		case TkOpSub:
			// Unary minus opening a line stays flush left.
			if prev != TkNewline {
				ensureSpace(&line)
			}
			line.WriteString("- ")

		case TkCfIf, TkCfElse, TkPrExtends:
			if prev != TkNewline {
				ensureSpace(&line)
			}
			line.WriteString(keywordText[tok] + " ")

		case TkPrVar:
			if line.Len() != 0 && prev != TkPrOnready {
				line.WriteString(" ")
			}
			line.WriteString("var ")

		case TkPrSetget:
			line.WriteString(" setget ")

		case TkPrIs, TkPrAs:
			ensureSpace(&line)
			line.WriteString(keywordText[tok] + " ")

		case TkComma:
			line.WriteString(", ")

		case TkNewline:
			if i == 0 {
				// A stream-opening newline only sets the indent; there
				// is no line to flush yet.
				indent = int(payload)
				break
			}
			for j := 0; j < indent; j++ {
				script.WriteString("\t")
			}
			script.WriteString(line.String() + "\n")
			line.Reset()
			indent = int(payload)

		case TkError, TkEOF, TkCursor, TkMax:
			// invalid in stored streams; skip

		default:
			if op, ok := operatorText[tok]; ok {
				ensureSpace(&line)
				line.WriteString(op + " ")
			} else if kw, ok := keywordText[tok]; ok {
				line.WriteString(kw + " ")
			} else if txt, ok := bareText[tok]; ok {
				line.WriteString(txt)
			}
		}
		prev = tok
	}

	if line.Len() > 0 {
		for j := 0; j < indent; j++ {
			script.WriteString("\t")
		}
		script.WriteString(line.String() + "\n")
	}

	if script.Len() == 0 {
		return "", fmt.Errorf("bytecode: no tokens produced output: %w", errs.ErrCorrupt)
	}
	return script.String(), nil
}

// ScriptStrings extracts the string constants (and optionally the
// identifiers) of a compiled script.
func ScriptStrings(buf []byte, v *Version, includeIdentifiers bool) ([]string, error) {
	m, err := Read(buf, v)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, c := range m.Constants {
		if s, ok := c.(string); ok {
			out = append(out, s)
		}
	}
	if includeIdentifiers {
		out = append(out, m.Identifiers...)
	}
	return out, nil
}
