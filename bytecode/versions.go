package bytecode

// Version is the data record describing one commit-pinned bytecode
// revision. The decoder, emitter and tester are parameterized by it;
// there is no per-revision code.
type Version struct {
	Commit          uint64 // pinned commit hash prefix
	Name            string
	BytecodeVersion int // the engine's internal format counter
	EngineMajor     int
	VariantMajor    int // selects the variant codec for constants
	EngineVersion   string
	MaxEngineVersion string

	// Tokens maps local opcodes (slice index) to global tokens.
	Tokens []GlobalToken
	// Functions maps built-in function opcodes to names.
	Functions []string

	// PassFuncMin is the lowest function index that distinguishes this
	// revision from its predecessors; a buffer using it makes the test
	// PASS outright. Negative when the revision has no pass condition.
	PassFuncMin int

	// NewlineAfterString records the tokenizer fix that affects
	// byte-identity of recompiled output.
	NewlineAfterString bool
}

// TokenMax returns the number of local opcodes.
func (v *Version) TokenMax() int { return len(v.Tokens) }

// Global maps a local opcode to its global token; out-of-range opcodes
// come back as TkMax.
func (v *Version) Global(local int) GlobalToken {
	if local < 0 || local >= len(v.Tokens) {
		return TkMax
	}
	return v.Tokens[local]
}

// Local maps a global token back to the local opcode, or -1.
func (v *Version) Local(tok GlobalToken) int {
	for i, t := range v.Tokens {
		if t == tok {
			return i
		}
	}
	return -1
}

// FunctionIndex returns the opcode of a built-in function, or -1.
func (v *Version) FunctionIndex(name string) int {
	for i, f := range v.Functions {
		if f == name {
			return i
		}
	}
	return -1
}

// tokensV13 is the local opcode order of the 3.1/3.2 tokenizer,
// straight from the pinned revision.
var tokensV13 = []GlobalToken{
	TkEmpty, TkIdentifier, TkConstant, TkSelf, TkBuiltInType, TkBuiltInFunc,
	TkOpIn, TkOpEqual, TkOpNotEqual, TkOpLess, TkOpLessEqual, TkOpGreater, TkOpGreaterEqual,
	TkOpAnd, TkOpOr, TkOpNot,
	TkOpAdd, TkOpSub, TkOpMul, TkOpDiv, TkOpMod,
	TkOpShiftLeft, TkOpShiftRight,
	TkOpAssign, TkOpAssignAdd, TkOpAssignSub, TkOpAssignMul, TkOpAssignDiv, TkOpAssignMod,
	TkOpAssignShiftLeft, TkOpAssignShiftRight, TkOpAssignBitAnd, TkOpAssignBitOr, TkOpAssignBitXor,
	TkOpBitAnd, TkOpBitOr, TkOpBitXor, TkOpBitInvert,
	TkCfIf, TkCfElif, TkCfElse, TkCfFor, TkCfWhile, TkCfBreak, TkCfContinue, TkCfPass, TkCfReturn, TkCfMatch,
	TkPrFunction, TkPrClass, TkPrClassName, TkPrExtends, TkPrIs, TkPrOnready, TkPrTool, TkPrStatic,
	TkPrExport, TkPrSetget, TkPrConst, TkPrVar, TkPrAs, TkPrVoid, TkPrEnum,
	TkPrPreload, TkPrAssert, TkPrYield, TkPrSignal, TkPrBreakpoint,
	TkPrRemote, TkPrSync, TkPrMaster, TkPrSlave, TkPrPuppet,
	TkPrRemotesync, TkPrMastersync, TkPrPuppetsync,
	TkBracketOpen, TkBracketClose, TkCurlyBracketOpen, TkCurlyBracketClose,
	TkParenthesisOpen, TkParenthesisClose,
	TkComma, TkSemicolon, TkPeriod, TkQuestionMark, TkColon, TkDollar, TkForwardArrow,
	TkNewline, TkConstPi, TkConstTau, TkWildcard, TkConstInf, TkConstNan,
	TkError, TkEOF, TkCursor,
}

// tokensV12 is the 3.0 order: before class_name, typed declarations
// and the puppet rpc keywords landed.
var tokensV12 = tokensWithout(tokensV13,
	TkPrClassName, TkPrAs, TkPrVoid,
	TkPrPuppet, TkPrRemotesync, TkPrMastersync, TkPrPuppetsync)

// tokensV10 is the 2.x order: no match, no $/-> sugar, do/switch/case
// still reserved.
var tokensV10 = []GlobalToken{
	TkEmpty, TkIdentifier, TkConstant, TkSelf, TkBuiltInType, TkBuiltInFunc,
	TkOpIn, TkOpEqual, TkOpNotEqual, TkOpLess, TkOpLessEqual, TkOpGreater, TkOpGreaterEqual,
	TkOpAnd, TkOpOr, TkOpNot,
	TkOpAdd, TkOpSub, TkOpMul, TkOpDiv, TkOpMod,
	TkOpShiftLeft, TkOpShiftRight,
	TkOpAssign, TkOpAssignAdd, TkOpAssignSub, TkOpAssignMul, TkOpAssignDiv, TkOpAssignMod,
	TkOpAssignShiftLeft, TkOpAssignShiftRight, TkOpAssignBitAnd, TkOpAssignBitOr, TkOpAssignBitXor,
	TkOpBitAnd, TkOpBitOr, TkOpBitXor, TkOpBitInvert,
	TkCfIf, TkCfElif, TkCfElse, TkCfFor, TkCfDo, TkCfWhile, TkCfSwitch, TkCfCase,
	TkCfBreak, TkCfContinue, TkCfPass, TkCfReturn,
	TkPrFunction, TkPrClass, TkPrExtends, TkPrOnready, TkPrTool, TkPrStatic,
	TkPrExport, TkPrSetget, TkPrConst, TkPrVar,
	TkPrPreload, TkPrAssert, TkPrYield, TkPrSignal, TkPrBreakpoint,
	TkPrRemote, TkPrSync, TkPrMaster, TkPrSlave,
	TkBracketOpen, TkBracketClose, TkCurlyBracketOpen, TkCurlyBracketClose,
	TkParenthesisOpen, TkParenthesisClose,
	TkComma, TkSemicolon, TkPeriod, TkQuestionMark, TkColon,
	TkNewline, TkConstPi,
	TkError, TkEOF, TkCursor,
}

// tokensV4 is the 1.1 order; tokensV3 drops what 1.1 introduced.
var (
	tokensV4 = tokensWithout(tokensV10,
		TkPrRemote, TkPrSync, TkPrMaster, TkPrSlave, TkPrBreakpoint)
	tokensV3 = tokensWithout(tokensV4, TkPrOnready, TkPrSetget, TkPrSignal)
)

func tokensWithout(base []GlobalToken, remove ...GlobalToken) []GlobalToken {
	drop := make(map[GlobalToken]bool, len(remove))
	for _, t := range remove {
		drop[t] = true
	}
	out := make([]GlobalToken, 0, len(base))
	for _, t := range base {
		if !drop[t] {
			out = append(out, t)
		}
	}
	return out
}

// funcsV13Full is the built-in function table of the 3.2-dev pinned
// revision, verbatim.
var funcsV13Full = []string{
	"sin", "cos", "tan", "sinh", "cosh", "tanh",
	"asin", "acos", "atan", "atan2", "sqrt",
	"fmod", "fposmod", "floor", "ceil", "round", "abs", "sign", "pow", "log", "exp",
	"is_nan", "is_inf", "is_equal_approx", "is_zero_approx",
	"ease", "decimals", "step_decimals", "stepify",
	"lerp", "inverse_lerp", "range_lerp", "smoothstep", "dectime",
	"randomize", "randi", "randf", "rand_range", "seed", "rand_seed",
	"deg2rad", "rad2deg", "linear2db", "db2linear",
	"polar2cartesian", "cartesian2polar", "wrapi", "wrapf",
	"max", "min", "clamp", "nearest_po2",
	"weakref", "funcref", "convert", "typeof", "type_exists", "char", "str",
	"print", "printt", "prints", "printerr", "printraw", "print_debug",
	"push_error", "push_warning",
	"var2str", "str2var", "var2bytes", "bytes2var",
	"range", "load", "inst2dict", "dict2inst",
	"validate_json", "parse_json", "to_json", "hash",
	"Color8", "ColorN", "print_stack", "get_stack",
	"instance_from_id", "len", "is_instance_valid",
}

var (
	funcs311    = funcsWithout(funcsV13Full, "step_decimals")
	funcs310    = funcsWithout(funcs311, "smoothstep")
	funcs31beta = funcsWithout(funcs310, "is_equal_approx", "is_zero_approx")
	funcs30     = funcsWithout(funcs31beta, "print_debug", "push_error", "push_warning")
)

// funcs21Base is the 2.0/2.1.0 table; later 2.1.x point releases only
// appended to it, which is what the fleet tester keys on.
var funcs21Base = []string{
	"sin", "cos", "tan", "sinh", "cosh", "tanh",
	"asin", "acos", "atan", "atan2", "sqrt",
	"fmod", "fposmod", "floor", "ceil", "round", "abs", "sign", "pow", "log", "exp",
	"is_nan", "is_inf", "ease", "decimals", "stepify", "lerp", "dectime",
	"randomize", "randi", "randf", "rand_range", "seed", "rand_seed",
	"deg2rad", "rad2deg", "linear2db", "db2linear",
	"max", "min", "clamp", "nearest_po2",
	"weakref", "funcref", "convert", "typeof", "type_exists", "char", "str",
	"print", "printt", "prints", "printerr", "printraw",
	"var2str", "str2var", "var2bytes", "bytes2var",
	"range", "load", "inst2dict", "dict2inst", "hash",
	"Color8", "print_stack", "instance_from_id",
}

var (
	funcs212 = append(append([]string{}, funcs21Base...), "ColorN")
	funcs215 = append(append([]string{}, funcs212...), "len")

	funcs11 = funcsWithout(funcs21Base,
		"var2str", "str2var", "var2bytes", "bytes2var", "Color8", "print_stack", "instance_from_id")
	funcs10 = funcsWithout(funcs11, "funcref", "prints")
)

func funcsWithout(base []string, remove ...string) []string {
	drop := make(map[string]bool, len(remove))
	for _, f := range remove {
		drop[f] = true
	}
	out := make([]string, 0, len(base))
	for _, f := range base {
		if !drop[f] {
			out = append(out, f)
		}
	}
	return out
}

// Development-era tables. Dev snapshots between releases share their
// generation's token layout; what moved was mostly the function list.
var (
	tokensV11 = tokensWithout(tokensV12, TkPrEnum)
	tokensV9  = tokensV10
	tokensV8  = tokensWithout(tokensV10, TkPrBreakpoint)
	tokensV7  = tokensV8
	tokensV6  = tokensWithout(tokensV8, TkPrSignal)
	tokensV5  = tokensV6

	funcs30dev  = funcsWithout(funcs30, "wrapi", "wrapf", "polar2cartesian", "cartesian2polar")
	funcs30early = funcsWithout(funcs30dev, "inverse_lerp", "range_lerp", "len", "is_instance_valid")
	funcs20dev  = funcsWithout(funcs21Base, "instance_from_id", "print_stack")
)

// Versions is the registry of pinned revisions, newest first, matching
// the order version pickers present them in.
var Versions = []*Version{
	{Commit: 0x620ec47, Name: "3.2 dev (620ec47)", BytecodeVersion: 13, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.2.0", MaxEngineVersion: "3.2.0",
		Tokens: tokensV13, Functions: funcsV13Full, PassFuncMin: len(funcsV13Full) - 1, NewlineAfterString: true},
	{Commit: 0x7f7d97f, Name: "3.2 dev (7f7d97f)", BytecodeVersion: 13, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.2.0", MaxEngineVersion: "3.2.0",
		Tokens: tokensV13, Functions: funcsV13Full, PassFuncMin: -1, NewlineAfterString: true},
	{Commit: 0x514a3fb, Name: "3.1.1 release (514a3fb)", BytecodeVersion: 13, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.1.1", MaxEngineVersion: "3.1.2",
		Tokens: tokensV13, Functions: funcs311, PassFuncMin: -1},
	{Commit: 0x1a36141, Name: "3.1.0 release (1a36141)", BytecodeVersion: 13, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.1.0", MaxEngineVersion: "3.1.0",
		Tokens: tokensV13, Functions: funcs310, PassFuncMin: -1},
	{Commit: 0x1ca61a3, Name: "3.1 beta (1ca61a3)", BytecodeVersion: 13, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.1.0-beta", MaxEngineVersion: "3.1.0-beta5",
		Tokens: tokensV13, Functions: funcs31beta, PassFuncMin: -1},
	{Commit: 0xd6b31da, Name: "3.1 dev (d6b31da)", BytecodeVersion: 13, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.1.0-dev", MaxEngineVersion: "3.1.0-dev",
		Tokens: tokensV13, Functions: funcs31beta, PassFuncMin: -1},
	{Commit: 0x8aab9a0, Name: "3.1 dev (8aab9a0)", BytecodeVersion: 13, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.1.0-dev", MaxEngineVersion: "3.1.0-dev",
		Tokens: tokensV13, Functions: funcs31beta, PassFuncMin: -1},
	{Commit: 0xa3f1ee5, Name: "3.1 dev (a3f1ee5)", BytecodeVersion: 13, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.1.0-dev", MaxEngineVersion: "3.1.0-dev",
		Tokens: tokensV13, Functions: funcs31beta, PassFuncMin: -1},
	{Commit: 0x8e35d93, Name: "3.1 dev (8e35d93)", BytecodeVersion: 12, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.1.0-dev", MaxEngineVersion: "3.1.0-dev",
		Tokens: tokensV12, Functions: funcs30, PassFuncMin: -1},
	{Commit: 0x3ea6d9f, Name: "3.1 dev (3ea6d9f)", BytecodeVersion: 12, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.1.0-dev", MaxEngineVersion: "3.1.0-dev",
		Tokens: tokensV12, Functions: funcs30, PassFuncMin: -1},
	{Commit: 0xa56d6ff, Name: "3.1 dev (a56d6ff)", BytecodeVersion: 12, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.1.0-dev", MaxEngineVersion: "3.1.0-dev",
		Tokens: tokensV12, Functions: funcs30, PassFuncMin: -1},
	{Commit: 0xff1e7cf, Name: "3.1 dev (ff1e7cf)", BytecodeVersion: 12, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.1.0-dev", MaxEngineVersion: "3.1.0-dev",
		Tokens: tokensV12, Functions: funcs30, PassFuncMin: -1},
	{Commit: 0x054a2ac, Name: "3.0.0 - 3.0.6 release (054a2ac)", BytecodeVersion: 12, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.0.0", MaxEngineVersion: "3.0.6",
		Tokens: tokensV12, Functions: funcs30, PassFuncMin: -1},
	{Commit: 0x91ca725, Name: "3.0 dev (91ca725)", BytecodeVersion: 12, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.0.0-dev", MaxEngineVersion: "3.0.0-dev",
		Tokens: tokensV12, Functions: funcs30dev, PassFuncMin: -1},
	{Commit: 0x216a8aa, Name: "3.0 dev (216a8aa)", BytecodeVersion: 12, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.0.0-dev", MaxEngineVersion: "3.0.0-dev",
		Tokens: tokensV12, Functions: funcs30dev, PassFuncMin: -1},
	{Commit: 0xd28da86, Name: "3.0 dev (d28da86)", BytecodeVersion: 12, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.0.0-dev", MaxEngineVersion: "3.0.0-dev",
		Tokens: tokensV12, Functions: funcs30dev, PassFuncMin: -1},
	{Commit: 0xc6120e7, Name: "3.0 dev (c6120e7)", BytecodeVersion: 12, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.0.0-dev", MaxEngineVersion: "3.0.0-dev",
		Tokens: tokensV12, Functions: funcs30dev, PassFuncMin: -1},
	{Commit: 0x015d36d, Name: "3.0 dev (015d36d)", BytecodeVersion: 12, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.0.0-dev", MaxEngineVersion: "3.0.0-dev",
		Tokens: tokensV12, Functions: funcs30early, PassFuncMin: -1},
	{Commit: 0x5e938f0, Name: "3.0 dev (5e938f0)", BytecodeVersion: 12, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.0.0-dev", MaxEngineVersion: "3.0.0-dev",
		Tokens: tokensV12, Functions: funcs30early, PassFuncMin: -1},
	{Commit: 0xc24c739, Name: "3.0 dev (c24c739)", BytecodeVersion: 12, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.0.0-dev", MaxEngineVersion: "3.0.0-dev",
		Tokens: tokensV12, Functions: funcs30early, PassFuncMin: -1},
	{Commit: 0xf8a7c46, Name: "3.0 dev (f8a7c46)", BytecodeVersion: 12, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.0.0-dev", MaxEngineVersion: "3.0.0-dev",
		Tokens: tokensV12, Functions: funcs30early, PassFuncMin: -1},
	{Commit: 0x62273e5, Name: "3.0 dev (62273e5)", BytecodeVersion: 12, EngineMajor: 3, VariantMajor: 3,
		EngineVersion: "3.0.0-dev", MaxEngineVersion: "3.0.0-dev",
		Tokens: tokensV12, Functions: funcs30early, PassFuncMin: -1},
	{Commit: 0x8b912d1, Name: "3.0 dev (8b912d1)", BytecodeVersion: 11, EngineMajor: 3, VariantMajor: 2,
		EngineVersion: "3.0.0-dev", MaxEngineVersion: "3.0.0-dev",
		Tokens: tokensV11, Functions: funcs30early, PassFuncMin: -1},
	{Commit: 0x23381a5, Name: "3.0 dev (23381a5)", BytecodeVersion: 11, EngineMajor: 3, VariantMajor: 2,
		EngineVersion: "3.0.0-dev", MaxEngineVersion: "3.0.0-dev",
		Tokens: tokensV11, Functions: funcs30early, PassFuncMin: -1},
	{Commit: 0x513c026, Name: "3.0 dev (513c026)", BytecodeVersion: 11, EngineMajor: 3, VariantMajor: 2,
		EngineVersion: "3.0.0-dev", MaxEngineVersion: "3.0.0-dev",
		Tokens: tokensV11, Functions: funcs30early, PassFuncMin: -1},
	{Commit: 0x4ee82a2, Name: "3.0 dev (4ee82a2)", BytecodeVersion: 11, EngineMajor: 3, VariantMajor: 2,
		EngineVersion: "3.0.0-dev", MaxEngineVersion: "3.0.0-dev",
		Tokens: tokensV11, Functions: funcs30early, PassFuncMin: -1},
	{Commit: 0x1add52b, Name: "3.0 dev (1add52b)", BytecodeVersion: 11, EngineMajor: 3, VariantMajor: 2,
		EngineVersion: "3.0.0-dev", MaxEngineVersion: "3.0.0-dev",
		Tokens: tokensV11, Functions: funcs30early, PassFuncMin: -1},
	{Commit: 0xed80f45, Name: "2.1.3 - 2.1.5 release (ed80f45)", BytecodeVersion: 10, EngineMajor: 2, VariantMajor: 2,
		EngineVersion: "2.1.3", MaxEngineVersion: "2.1.6",
		Tokens: tokensV10, Functions: funcs215, PassFuncMin: len(funcs215) - 1},
	{Commit: 0x85585c7, Name: "2.1.2 release (85585c7)", BytecodeVersion: 10, EngineMajor: 2, VariantMajor: 2,
		EngineVersion: "2.1.2", MaxEngineVersion: "2.1.2",
		Tokens: tokensV10, Functions: funcs212, PassFuncMin: len(funcs212) - 1},
	{Commit: 0x7124599, Name: "2.1.0 - 2.1.1 release (7124599)", BytecodeVersion: 10, EngineMajor: 2, VariantMajor: 2,
		EngineVersion: "2.1.0", MaxEngineVersion: "2.1.1",
		Tokens: tokensV10, Functions: funcs21Base, PassFuncMin: -1},
	{Commit: 0x23441ec, Name: "2.0.0 - 2.0.4-1 release (23441ec)", BytecodeVersion: 10, EngineMajor: 2, VariantMajor: 2,
		EngineVersion: "2.0.0", MaxEngineVersion: "2.0.4",
		Tokens: tokensV10, Functions: funcs21Base, PassFuncMin: -1},
	{Commit: 0x6174585, Name: "2.0 dev (6174585)", BytecodeVersion: 9, EngineMajor: 2, VariantMajor: 2,
		EngineVersion: "2.0.0-dev", MaxEngineVersion: "2.0.0-dev",
		Tokens: tokensV9, Functions: funcs20dev, PassFuncMin: -1},
	{Commit: 0x64872ca, Name: "2.0 dev (64872ca)", BytecodeVersion: 8, EngineMajor: 2, VariantMajor: 2,
		EngineVersion: "2.0.0-dev", MaxEngineVersion: "2.0.0-dev",
		Tokens: tokensV8, Functions: funcs20dev, PassFuncMin: -1},
	{Commit: 0x7d2d144, Name: "2.0 dev (7d2d144)", BytecodeVersion: 7, EngineMajor: 2, VariantMajor: 2,
		EngineVersion: "2.0.0-dev", MaxEngineVersion: "2.0.0-dev",
		Tokens: tokensV7, Functions: funcs20dev, PassFuncMin: -1},
	{Commit: 0x30c1229, Name: "2.0 dev (30c1229)", BytecodeVersion: 6, EngineMajor: 2, VariantMajor: 2,
		EngineVersion: "2.0.0-dev", MaxEngineVersion: "2.0.0-dev",
		Tokens: tokensV6, Functions: funcs20dev, PassFuncMin: -1},
	{Commit: 0x48f1d02, Name: "2.0 dev (48f1d02)", BytecodeVersion: 5, EngineMajor: 2, VariantMajor: 2,
		EngineVersion: "2.0.0-dev", MaxEngineVersion: "2.0.0-dev",
		Tokens: tokensV5, Functions: funcs20dev, PassFuncMin: -1},
	{Commit: 0x65d48d6, Name: "1.1.0 release (65d48d6)", BytecodeVersion: 4, EngineMajor: 1, VariantMajor: 2,
		EngineVersion: "1.1.0", MaxEngineVersion: "1.1.0",
		Tokens: tokensV4, Functions: funcs11, PassFuncMin: -1},
	{Commit: 0xbe46be7, Name: "1.1 dev (be46be7)", BytecodeVersion: 3, EngineMajor: 1, VariantMajor: 2,
		EngineVersion: "1.1.0-dev", MaxEngineVersion: "1.1.0-dev",
		Tokens: tokensV3, Functions: funcs11, PassFuncMin: -1},
	{Commit: 0x97f34a1, Name: "1.1 dev (97f34a1)", BytecodeVersion: 3, EngineMajor: 1, VariantMajor: 2,
		EngineVersion: "1.1.0-dev", MaxEngineVersion: "1.1.0-dev",
		Tokens: tokensV3, Functions: funcs10, PassFuncMin: -1},
	{Commit: 0x2185c01, Name: "1.1 dev (2185c01)", BytecodeVersion: 3, EngineMajor: 1, VariantMajor: 2,
		EngineVersion: "1.1.0-dev", MaxEngineVersion: "1.1.0-dev",
		Tokens: tokensV3, Functions: funcs10, PassFuncMin: -1},
	{Commit: 0xe82dc40, Name: "1.0.0 release (e82dc40)", BytecodeVersion: 3, EngineMajor: 1, VariantMajor: 2,
		EngineVersion: "1.0.0", MaxEngineVersion: "1.0.0",
		Tokens: tokensV3, Functions: funcs10, PassFuncMin: -1},
	{Commit: 0x8cab401, Name: "1.0 dev (8cab401)", BytecodeVersion: 2, EngineMajor: 1, VariantMajor: 2,
		EngineVersion: "1.0.0-dev", MaxEngineVersion: "1.0.0-dev",
		Tokens: tokensV3, Functions: funcs10, PassFuncMin: -1},
	{Commit: 0x703004f, Name: "1.0 dev (703004f)", BytecodeVersion: 2, EngineMajor: 1, VariantMajor: 2,
		EngineVersion: "1.0.0-dev", MaxEngineVersion: "1.0.0-dev",
		Tokens: tokensV3, Functions: funcs10, PassFuncMin: -1},
	{Commit: 0x31ce3c5, Name: "1.0 dev (31ce3c5)", BytecodeVersion: 2, EngineMajor: 1, VariantMajor: 2,
		EngineVersion: "1.0.0-dev", MaxEngineVersion: "1.0.0-dev",
		Tokens: tokensV3, Functions: funcs10, PassFuncMin: -1},
	{Commit: 0x8c1731b, Name: "1.0 dev (8c1731b)", BytecodeVersion: 2, EngineMajor: 1, VariantMajor: 2,
		EngineVersion: "1.0.0-dev", MaxEngineVersion: "1.0.0-dev",
		Tokens: tokensV3, Functions: funcs10, PassFuncMin: -1},
	{Commit: 0x0b806ee, Name: "1.0 dev (0b806ee)", BytecodeVersion: 1, EngineMajor: 1, VariantMajor: 2,
		EngineVersion: "1.0.0-dev", MaxEngineVersion: "1.0.0-dev",
		Tokens: tokensV3, Functions: funcs10, PassFuncMin: -1},
}

// ForCommit returns the record pinned to a commit hash prefix.
func ForCommit(commit uint64) *Version {
	for _, v := range Versions {
		if v.Commit == commit {
			return v
		}
	}
	return nil
}

// ForEngineVersion returns the newest record whose engine version
// range covers the given "major.minor" prefix.
func ForEngineVersion(ver string) *Version {
	for _, v := range Versions {
		if len(ver) <= len(v.EngineVersion) && v.EngineVersion[:len(ver)] == ver {
			return v
		}
	}
	return nil
}
