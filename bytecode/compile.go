package bytecode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/stream"
	"github.com/gdrec/gdrec/variant"
)

// Compile tokenizes source text into the compiled-script container for
// a revision. It supports the token surface Emit produces, which is
// what the round-trip tests exercise.
func Compile(source string, v *Version) ([]byte, error) {
	c := &compiler{v: v, identIndex: make(map[string]uint32)}
	if err := c.tokenize(source); err != nil {
		return nil, err
	}
	return c.serialize()
}

type compiler struct {
	v *Version

	identifiers []string
	identIndex  map[string]uint32
	constants   []variant.Value
	lines       [][2]uint32 // token index, packed line
	tokens      []uint32
}

func (c *compiler) emit(tok GlobalToken, payload uint32) error {
	local := c.v.Local(tok)
	if local < 0 {
		return fmt.Errorf("bytecode: token %d not present in revision %s: %w", tok, c.v.Name, errs.ErrUnsupported)
	}
	c.tokens = append(c.tokens, uint32(local)|payload<<TokenBits)
	return nil
}

func (c *compiler) identifier(name string) uint32 {
	if idx, ok := c.identIndex[name]; ok {
		return idx
	}
	idx := uint32(len(c.identifiers))
	c.identIndex[name] = idx
	c.identifiers = append(c.identifiers, name)
	return idx
}

func (c *compiler) constant(v variant.Value) uint32 {
	c.constants = append(c.constants, v)
	return uint32(len(c.constants) - 1)
}

// wordTokens maps word-shaped source text to tokens that are not plain
// identifiers.
var wordTokens = map[string]GlobalToken{
	"and": TkOpAnd, "or": TkOpOr, "not": TkOpNot, "in": TkOpIn,
	"if": TkCfIf, "elif": TkCfElif, "else": TkCfElse,
	"for": TkCfFor, "while": TkCfWhile, "match": TkCfMatch,
	"do": TkCfDo, "switch": TkCfSwitch, "case": TkCfCase,
	"break": TkCfBreak, "continue": TkCfContinue, "pass": TkCfPass, "return": TkCfReturn,
	"func": TkPrFunction, "class": TkPrClass, "class_name": TkPrClassName,
	"extends": TkPrExtends, "is": TkPrIs, "onready": TkPrOnready,
	"tool": TkPrTool, "static": TkPrStatic, "export": TkPrExport,
	"setget": TkPrSetget, "const": TkPrConst, "var": TkPrVar,
	"as": TkPrAs, "void": TkPrVoid, "enum": TkPrEnum,
	"preload": TkPrPreload, "assert": TkPrAssert, "yield": TkPrYield,
	"signal": TkPrSignal, "breakpoint": TkPrBreakpoint,
	"remote": TkPrRemote, "sync": TkPrSync, "master": TkPrMaster,
	"slave": TkPrSlave, "puppet": TkPrPuppet,
	"remotesync": TkPrRemotesync, "mastersync": TkPrMastersync,
	"puppetsync": TkPrPuppetsync, "slavesync": TkPrSlavesync,
	"self": TkSelf, "PI": TkConstPi, "TAU": TkConstTau,
	"INF": TkConstInf, "NAN": TkConstNan, "_": TkWildcard,
}

var symbolTokens = []struct {
	text string
	tok  GlobalToken
}{
	{"<<=", TkOpAssignShiftLeft}, {">>=", TkOpAssignShiftRight},
	{"==", TkOpEqual}, {"!=", TkOpNotEqual}, {"<=", TkOpLessEqual}, {">=", TkOpGreaterEqual},
	{"<<", TkOpShiftLeft}, {">>", TkOpShiftRight},
	{"+=", TkOpAssignAdd}, {"-=", TkOpAssignSub}, {"*=", TkOpAssignMul}, {"/=", TkOpAssignDiv},
	{"%=", TkOpAssignMod}, {"&=", TkOpAssignBitAnd}, {"|=", TkOpAssignBitOr}, {"^=", TkOpAssignBitXor},
	{"->", TkForwardArrow},
	{"+", TkOpAdd}, {"-", TkOpSub}, {"*", TkOpMul}, {"/", TkOpDiv}, {"%", TkOpMod},
	{"<", TkOpLess}, {">", TkOpGreater}, {"=", TkOpAssign},
	{"&", TkOpBitAnd}, {"|", TkOpBitOr}, {"^", TkOpBitXor}, {"~", TkOpBitInvert},
	{"!", TkOpNot},
	{"[", TkBracketOpen}, {"]", TkBracketClose},
	{"{", TkCurlyBracketOpen}, {"}", TkCurlyBracketClose},
	{"(", TkParenthesisOpen}, {")", TkParenthesisClose},
	{",", TkComma}, {";", TkSemicolon}, {"?", TkQuestionMark},
	{":", TkColon}, {"$", TkDollar}, {".", TkPeriod},
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func indentOf(line string) uint32 {
	n := uint32(0)
	for i := 0; i < len(line) && line[i] == '\t'; i++ {
		n++
	}
	return n
}

func (c *compiler) tokenize(source string) error {
	lines := strings.Split(source, "\n")
	// A trailing newline leaves an empty last element behind.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	for li, rawLine := range lines {
		c.lines = append(c.lines, [2]uint32{uint32(len(c.tokens)), uint32(li + 1)})
		text := strings.TrimLeft(rawLine, "\t")

		i := 0
	scan:
		for i < len(text) {
			ch := text[i]
			switch {
			case ch == ' ':
				i++

			case ch == '#':
				break scan // comment to end of line

			case ch == '"' || ch == '\'':
				quote := ch
				i++
				var sb strings.Builder
				for i < len(text) && text[i] != quote {
					if text[i] == '\\' && i+1 < len(text) {
						i++
						switch text[i] {
						case 'n':
							sb.WriteByte('\n')
						case 't':
							sb.WriteByte('\t')
						case 'r':
							sb.WriteByte('\r')
						default:
							sb.WriteByte(text[i])
						}
					} else {
						sb.WriteByte(text[i])
					}
					i++
				}
				if i >= len(text) {
					return fmt.Errorf("bytecode: unterminated string on line %d: %w", li+1, errs.ErrCorrupt)
				}
				i++
				if err := c.emit(TkConstant, c.constant(sb.String())); err != nil {
					return err
				}

			case ch >= '0' && ch <= '9', ch == '.' && i+1 < len(text) && text[i+1] >= '0' && text[i+1] <= '9':
				start := i
				isFloat := false
				if ch == '0' && i+1 < len(text) && (text[i+1] == 'x' || text[i+1] == 'X') {
					i += 2
					for i < len(text) && isHexDigit(text[i]) {
						i++
					}
				} else {
					for i < len(text) && (isDigit(text[i]) || text[i] == '.' || text[i] == 'e' || text[i] == 'E' ||
						((text[i] == '+' || text[i] == '-') && (text[i-1] == 'e' || text[i-1] == 'E'))) {
						if text[i] == '.' || text[i] == 'e' || text[i] == 'E' {
							isFloat = true
						}
						i++
					}
				}
				lit := text[start:i]
				if isFloat {
					f, err := strconv.ParseFloat(lit, 64)
					if err != nil {
						return fmt.Errorf("bytecode: bad number %q on line %d: %w", lit, li+1, errs.ErrCorrupt)
					}
					if err := c.emit(TkConstant, c.constant(f)); err != nil {
						return err
					}
				} else {
					n, err := strconv.ParseInt(lit, 0, 64)
					if err != nil {
						return fmt.Errorf("bytecode: bad number %q on line %d: %w", lit, li+1, errs.ErrCorrupt)
					}
					if err := c.emit(TkConstant, c.constant(n)); err != nil {
						return err
					}
				}

			case isIdentStart(ch):
				start := i
				for i < len(text) && isIdentPart(text[i]) {
					i++
				}
				word := text[start:i]

				if tok, ok := wordTokens[word]; ok {
					if c.v.Local(tok) >= 0 {
						if err := c.emit(tok, 0); err != nil {
							return err
						}
						continue
					}
					// Revisions without the keyword see a plain
					// identifier, matching their own tokenizer.
				}
				switch word {
				case "true":
					if err := c.emit(TkConstant, c.constant(true)); err != nil {
						return err
					}
					continue
				case "false":
					if err := c.emit(TkConstant, c.constant(false)); err != nil {
						return err
					}
					continue
				case "null":
					if err := c.emit(TkConstant, c.constant(nil)); err != nil {
						return err
					}
					continue
				}
				if fn := c.v.FunctionIndex(word); fn >= 0 && nextNonSpace(text, i) == '(' {
					if err := c.emit(TkBuiltInFunc, uint32(fn)); err != nil {
						return err
					}
					continue
				}
				if ti := builtinTypeIndex(word, c.v.VariantMajor); ti >= 0 {
					if err := c.emit(TkBuiltInType, uint32(ti)); err != nil {
						return err
					}
					continue
				}
				if err := c.emit(TkIdentifier, c.identifier(word)); err != nil {
					return err
				}

			default:
				matched := false
				for _, st := range symbolTokens {
					if strings.HasPrefix(text[i:], st.text) && c.v.Local(st.tok) >= 0 {
						if err := c.emit(st.tok, 0); err != nil {
							return err
						}
						i += len(st.text)
						matched = true
						break
					}
				}
				if !matched {
					return fmt.Errorf("bytecode: unexpected character %q on line %d: %w", ch, li+1, errs.ErrCorrupt)
				}
			}
		}

		// The newline carries the indent of the following line.
		nextIndent := uint32(0)
		if li+1 < len(lines) {
			nextIndent = indentOf(lines[li+1])
		}
		if err := c.emit(TkNewline, nextIndent); err != nil {
			return err
		}
	}
	return nil
}

func nextNonSpace(s string, i int) byte {
	for ; i < len(s); i++ {
		if s[i] != ' ' {
			return s[i]
		}
	}
	return 0
}

func isDigit(b byte) bool    { return b >= '0' && b <= '9' }
func isHexDigit(b byte) bool { return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F') }

func builtinTypeIndex(word string, variantMajor int) int {
	names := builtinTypeNames[variantMajor]
	if names == nil {
		names = builtinTypeNames[3]
	}
	for i, n := range names {
		if n == word {
			return i
		}
	}
	return -1
}

func (c *compiler) serialize() ([]byte, error) {
	w := stream.NewWriter()
	defer w.Release()

	w.StoreBuffer([]byte(ScriptMagic))
	w.StoreU32(uint32(c.v.BytecodeVersion))
	w.StoreU32(uint32(len(c.identifiers)))
	w.StoreU32(uint32(len(c.constants)))
	w.StoreU32(uint32(len(c.lines)))
	w.StoreU32(uint32(len(c.tokens)))

	for _, ident := range c.identifiers {
		// Stored length is NUL-padded to four bytes, bytes obfuscated.
		padded := (len(ident) + 1 + 3) &^ 3
		w.StoreU32(uint32(padded))
		buf := make([]byte, padded)
		copy(buf, ident)
		for i := range buf {
			buf[i] ^= identXor
		}
		w.StoreBuffer(buf)
	}

	enc := &variant.Encoder{W: w, FormatVersion: 2, VariantMajor: c.v.VariantMajor}
	for _, cv := range c.constants {
		if err := enc.Encode(cv); err != nil {
			return nil, err
		}
	}

	for _, ln := range c.lines {
		w.StoreU32(ln[0])
		w.StoreU32(ln[1])
	}

	for _, tok := range c.tokens {
		if tok&^uint32(TokenMask) != 0 || tok&TokenByteMask != 0 {
			w.StoreU32(tok | TokenByteMask)
		} else {
			w.StoreU8(uint8(tok))
		}
	}

	out := make([]byte, len(w.Bytes()))
	copy(out, w.Bytes())
	return out, nil
}
