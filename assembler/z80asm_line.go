// z80asm_line.go - Source line model and line/operand parser

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package assembler

import (
	"strings"
)

// LineKind classifies a parsed source line. Every pragma and statement has
// its own kind; emitLine dispatches on it with an exhaustive switch.
type LineKind int

const (
	LineEmpty LineKind = iota
	LineLabelOnly
	LineInstruction
	LineInvocation // macro or struct invocation

	// Pragmas
	LineOrg
	LineBank
	LineEnt
	LineXent
	LineDisp
	LineXorg
	LineEqu
	LineVar
	LineDefb
	LineDefw
	LineDefm
	LineDefn
	LineDefc
	LineDefs
	LineFillb
	LineFillw
	LineDefh
	LineDefg
	LineDefgx
	LineSkip
	LineAlign
	LineTrace
	LineTraceHex
	LineRndSeed
	LineError
	LineIncludeBin
	LineCompareBin
	LineModel

	// Statements
	LineMacro
	LineEndm
	LineLoop
	LineEndl
	LineWhile
	LineEndw
	LineRepeat
	LineUntil
	LineFor
	LineNext
	LineIf
	LineIfUsed
	LineIfNUsed
	LineElif
	LineElse
	LineEndif
	LineBreak
	LineContinue
	LineProc
	LineEndp
	LineModule
	LineEndModule
	LineStruct
	LineEnds
)

var keywords = map[string]LineKind{
	"org": LineOrg, "bank": LineBank, "ent": LineEnt, "xent": LineXent, "disp": LineDisp,
	"xorg": LineXorg, "equ": LineEqu, "var": LineVar,
	"defb": LineDefb, "db": LineDefb, "defw": LineDefw, "dw": LineDefw,
	"defm": LineDefm, "dm": LineDefm, "defn": LineDefn, "dn": LineDefn,
	"defc": LineDefc, "dc": LineDefc, "defs": LineDefs, "ds": LineDefs,
	"fillb": LineFillb, "fillw": LineFillw, "defh": LineDefh, "dh": LineDefh,
	"defg": LineDefg, "dg": LineDefg, "defgx": LineDefgx, "dgx": LineDefgx,
	"skip": LineSkip, "align": LineAlign, "trace": LineTrace, "tracehex": LineTraceHex,
	"rndseed": LineRndSeed, "error": LineError,
	"includebin": LineIncludeBin, "include_bin": LineIncludeBin, "comparebin": LineCompareBin,
	"model": LineModel,

	"macro": LineMacro, "endm": LineEndm, "mend": LineEndm,
	"loop": LineLoop, "endl": LineEndl, "lend": LineEndl,
	"while": LineWhile, "endw": LineEndw, "wend": LineEndw,
	"repeat": LineRepeat, "until": LineUntil,
	"for": LineFor, "next": LineNext,
	"if": LineIf, "ifused": LineIfUsed, "ifnused": LineIfNUsed,
	"elif": LineElif, "else": LineElse, "endif": LineEndif,
	"break": LineBreak, "continue": LineContinue,
	"proc": LineProc, "endp": LineEndp, "pend": LineEndp,
	"module": LineModule, "scope": LineModule,
	"endmodule": LineEndModule, "moduleend": LineEndModule, "endscope": LineEndModule, "scopeend": LineEndModule,
	"struct": LineStruct, "ends": LineEnds,
}

// isByteEmitting lists the pragmas allowed in struct bodies and field
// assignments.
func (k LineKind) isByteEmitting() bool {
	switch k {
	case LineDefb, LineDefw, LineDefm, LineDefn, LineDefc, LineDefs,
		LineFillb, LineFillw, LineDefh, LineDefg, LineDefgx:
		return true
	}
	return false
}

// setsOwnLabel lists the kinds that consume the line label themselves.
func (k LineKind) setsOwnLabel() bool {
	switch k {
	case LineEqu, LineVar, LineOrg, LineMacro, LineStruct, LineModule:
		return true
	}
	return false
}

// blockEnd maps an opening statement to its closing kind and display name.
func (k LineKind) blockEnd() (LineKind, string, bool) {
	switch k {
	case LineMacro:
		return LineEndm, ".macro", true
	case LineLoop:
		return LineEndl, ".loop", true
	case LineWhile:
		return LineEndw, ".while", true
	case LineRepeat:
		return LineUntil, ".repeat", true
	case LineFor:
		return LineNext, ".for", true
	case LineIf:
		return LineEndif, ".if", true
	case LineIfUsed:
		return LineEndif, ".ifused", true
	case LineIfNUsed:
		return LineEndif, ".ifnused", true
	case LineProc:
		return LineEndp, ".proc", true
	case LineModule:
		return LineEndModule, ".module", true
	case LineStruct:
		return LineEnds, ".struct", true
	}
	return 0, "", false
}

// sourceLine is one physical line after preprocessing.
type sourceLine struct {
	fileIndex int
	line      int
	text      string
}

// asmLine is a parsed source line.
type asmLine struct {
	kind     LineKind
	label    string
	labelCol int
	field    bool // label -> .pragma

	keyword  string // directive as written, for messages
	mnemonic string
	operands []Operand
	exprs    []*Expr

	name       string // module, invocation, .ifused symbol, .for variable, .model
	nameGlobal bool
	params     []string // macro parameters
	args       []Operand
	raw        string // .defg pattern text

	macroParams bool
	toks        []token
	src         sourceLine
	col         int // column of the first non-label token
}

// ---------------------------------------------------------------------------
// Operands
// ---------------------------------------------------------------------------

type operandKind int

const (
	opNone        operandKind = iota // omitted macro argument
	opReg8                           // a b c d e h l
	opReg8Idx                        // xh xl yh yl
	opReg8Spec                       // i r
	opReg16                          // bc de hl sp
	opReg16Idx                       // ix iy
	opReg16Spec                      // af af'
	opRegIndirect                    // (bc) (de) (hl) (sp)
	opCPort                          // (c)
	opMemIndirect                    // (expr)
	opIndexed                        // (ix+d) (iy-d)
	opExpr
	opCondition
	opMacroParam // {{p}} before binding
)

// Operand is one instruction or macro-argument operand.
type Operand struct {
	kind operandKind
	reg  string // lower-case register or condition name
	expr *Expr
	sign byte // '+' or '-' on indexed operands with a displacement
	col  int
	text string // source text, used when the operand is passed to a macro
}

var registerKinds = map[string]operandKind{
	"a": opReg8, "b": opReg8, "c": opReg8, "d": opReg8, "e": opReg8, "h": opReg8, "l": opReg8,
	"xh": opReg8Idx, "xl": opReg8Idx, "yh": opReg8Idx, "yl": opReg8Idx,
	"ixh": opReg8Idx, "ixl": opReg8Idx, "iyh": opReg8Idx, "iyl": opReg8Idx,
	"i": opReg8Spec, "r": opReg8Spec,
	"bc": opReg16, "de": opReg16, "hl": opReg16, "sp": opReg16,
	"ix": opReg16Idx, "iy": opReg16Idx,
	"af": opReg16Spec, "af'": opReg16Spec,
}

var registerAliases = map[string]string{"ixh": "xh", "ixl": "xl", "iyh": "yh", "iyl": "yl"}

var registerNames = func() map[string]bool {
	m := make(map[string]bool, len(registerKinds))
	for name := range registerKinds {
		m[name] = true
	}
	return m
}()

var conditionNames = map[string]bool{
	"nz": true, "z": true, "nc": true, "po": true, "pe": true, "p": true, "m": true,
}

func regIs(name string) func(Operand) bool {
	return func(o Operand) bool {
		switch o.kind {
		case opReg8, opReg8Idx, opReg8Spec, opReg16, opReg16Idx, opReg16Spec:
			return o.reg == name
		}
		return false
	}
}

func kindIs(kinds ...operandKind) func(Operand) bool {
	return func(o Operand) bool {
		for _, k := range kinds {
			if o.kind == k {
				return true
			}
		}
		return false
	}
}

// macroTimeFuncs test the shape of a macro argument.
var macroTimeFuncs = map[string]func(Operand) bool{
	"def":           func(o Operand) bool { return o.kind != opNone },
	"isreg8":        kindIs(opReg8, opReg8Idx, opReg8Spec),
	"isreg8std":     kindIs(opReg8),
	"isreg8spec":    kindIs(opReg8Spec),
	"isreg8idx":     kindIs(opReg8Idx),
	"isreg16":       kindIs(opReg16, opReg16Idx, opReg16Spec),
	"isreg16std":    kindIs(opReg16),
	"isreg16idx":    kindIs(opReg16Idx),
	"isregindirect": kindIs(opRegIndirect),
	"iscport":       kindIs(opCPort),
	"isindexedaddr": kindIs(opIndexed),
	"isexpr":        kindIs(opExpr),
	"iscondition": func(o Operand) bool {
		return o.kind == opCondition || (o.kind == opReg8 && o.reg == "c")
	},
	"isrega": regIs("a"), "isregb": regIs("b"), "isregc": regIs("c"), "isregd": regIs("d"),
	"isrege": regIs("e"), "isregh": regIs("h"), "isregl": regIs("l"),
	"isregi": regIs("i"), "isregr": regIs("r"),
	"isregbc": regIs("bc"), "isregde": regIs("de"), "isreghl": regIs("hl"), "isregsp": regIs("sp"),
	"isregxh": regIs("xh"), "isregxl": regIs("xl"), "isregyh": regIs("yh"), "isregyl": regIs("yl"),
	"isregix": regIs("ix"), "isregiy": regIs("iy"), "isregaf": regIs("af"),
}

var halfRegisters = map[string][2]string{
	"af": {"a", ""}, "bc": {"b", "c"}, "de": {"d", "e"}, "hl": {"h", "l"},
	"ix": {"xh", "xl"}, "iy": {"yh", "yl"},
}

// parseOperand reads one instruction operand.
func (p *lineParser) parseOperand() (Operand, error) {
	start := p.pos
	t := p.peek()
	op, err := p.parseOperandBody()
	if err != nil {
		return op, err
	}
	op.col = t.col
	op.text = tokensText(p.toks[start:p.pos])
	return op, nil
}

func (p *lineParser) parseOperandBody() (Operand, error) {
	t := p.peek()
	switch t.kind {
	case tokNoneArg:
		p.pos++
		return Operand{kind: opNone}, nil

	case tokMacroParam:
		if next := p.peekAt(1); next.kind == tokEOL || next.is(tokOp, ",") || next.is(tokOp, ")") {
			p.pos++
			p.hasMacroParams = true
			return Operand{kind: opMacroParam, reg: t.text}, nil
		}

	case tokIdent:
		lower := strings.ToLower(t.text)
		if kind, ok := registerKinds[lower]; ok {
			p.pos++
			if alias, ok := registerAliases[lower]; ok {
				lower = alias
			}
			return Operand{kind: kind, reg: lower}, nil
		}
		if conditionNames[lower] {
			p.pos++
			return Operand{kind: opCondition, reg: lower}, nil
		}
		if (lower == "hreg" || lower == "lreg") && p.peekAt(1).is(tokOp, "(") {
			return p.parseHalfRegister(t, lower == "hreg")
		}

	case tokOp:
		if t.text == "(" {
			return p.parseParenOperand()
		}
	}

	expr, err := p.parseExpr()
	if err != nil {
		return Operand{}, err
	}
	return Operand{kind: opExpr, expr: expr}, nil
}

func (p *lineParser) parseHalfRegister(fn token, high bool) (Operand, error) {
	if !p.inMacro {
		return Operand{}, p.errorAt(fn, ErrMacroTimeFunc)
	}
	p.pos += 2 // name (
	inner, err := p.parseOperand()
	if err != nil {
		return Operand{}, err
	}
	if err := p.expectOp(")", ErrRParExpected); err != nil {
		return Operand{}, err
	}
	if inner.kind == opMacroParam {
		return inner, nil
	}
	halves, ok := halfRegisters[inner.reg]
	if !ok || (inner.kind != opReg16 && inner.kind != opReg16Idx && inner.kind != opReg16Spec) {
		return Operand{}, p.errorAt(fn, ErrParseTimeFunction)
	}
	name := halves[1]
	if high {
		name = halves[0]
	}
	if name == "" {
		return Operand{}, p.errorAt(fn, ErrParseTimeFunction)
	}
	return Operand{kind: registerKinds[name], reg: name}, nil
}

// parseParenOperand handles the operand forms that open with '('.
func (p *lineParser) parseParenOperand() (Operand, error) {
	inner := p.peekAt(1)
	if inner.kind == tokIdent {
		lower := strings.ToLower(inner.text)
		closing := p.peekAt(2).is(tokOp, ")")
		switch lower {
		case "c":
			if closing {
				p.pos += 3
				return Operand{kind: opCPort, reg: "c"}, nil
			}
		case "bc", "de", "hl", "sp":
			if closing {
				p.pos += 3
				return Operand{kind: opRegIndirect, reg: lower}, nil
			}
		case "ix", "iy":
			p.pos += 2
			if p.acceptOp(")") {
				return Operand{kind: opIndexed, reg: lower}, nil
			}
			signTok := p.peek()
			if !signTok.is(tokOp, "+") && !signTok.is(tokOp, "-") {
				return Operand{}, p.errorAt(signTok, ErrRParExpected)
			}
			p.pos++
			disp, err := p.parseExpr()
			if err != nil {
				return Operand{}, err
			}
			if err := p.expectOp(")", ErrRParExpected); err != nil {
				return Operand{}, err
			}
			return Operand{kind: opIndexed, reg: lower, sign: signTok.text[0], expr: disp}, nil
		}
	}

	start := p.pos
	expr, err := p.parseExpr()
	if err != nil {
		return Operand{}, err
	}
	if p.matchingParen(start) == p.pos-1 {
		return Operand{kind: opMemIndirect, expr: expr}, nil
	}
	return Operand{kind: opExpr, expr: expr}, nil
}

// matchingParen returns the index of the token closing the '(' at start.
func (p *lineParser) matchingParen(start int) int {
	depth := 0
	for i := start; i < len(p.toks); i++ {
		t := p.toks[i]
		if t.kind != tokOp {
			continue
		}
		switch t.text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Lines
// ---------------------------------------------------------------------------

// keywordOf returns the directive kind an identifier names, if any.
func keywordOf(t token) (LineKind, bool) {
	if t.kind != tokIdent {
		return 0, false
	}
	kind, ok := keywords[strings.TrimPrefix(strings.ToLower(t.text), ".")]
	return kind, ok
}

func isReservedWord(t token) bool {
	if _, ok := keywordOf(t); ok {
		return true
	}
	lower := strings.ToLower(t.text)
	return mnemonics[lower] || registerNames[lower] || conditionNames[lower]
}

// isLabelCandidate reports whether a token may name a label.
func isLabelCandidate(t token) bool {
	return t.kind == tokIdent && !strings.HasPrefix(t.text, ".")
}

// parseLine parses a preprocessed source line.
func parseLine(src sourceLine, inMacro bool) (*asmLine, error) {
	toks, lexErr := tokenize(src.text)
	if lexErr != nil {
		if lexErr.arg != "" {
			return nil, &parseError{code: lexErr.code, col: lexErr.col, args: []interface{}{lexErr.arg}}
		}
		return nil, &parseError{code: lexErr.code, col: lexErr.col}
	}
	return parseTokens(src, toks, inMacro)
}

// parseTokens parses an already tokenized line; macro expansion feeds
// spliced token streams through it.
func parseTokens(src sourceLine, toks []token, inMacro bool) (*asmLine, error) {
	p := &lineParser{toks: toks, inMacro: inMacro}
	line := &asmLine{src: src, toks: toks}
	if err := p.parseLineBody(line); err != nil {
		return nil, err
	}
	line.macroParams = p.hasMacroParams
	for _, t := range toks {
		if t.kind == tokMacroParam {
			line.macroParams = true
		}
	}
	return line, nil
}

func (p *lineParser) parseLineBody(line *asmLine) error {
	if p.atEnd() {
		line.kind = LineEmpty
		return nil
	}

	first := p.peek()
	if first.kind == tokDirective {
		return p.errorAt(first, ErrUnexpectedToken, "#"+first.text)
	}

	// Label forms
	if first.is(tokOp, "->") {
		line.field = true
		p.pos++
	} else if isLabelCandidate(first) {
		second := p.peekAt(1)
		switch {
		case second.is(tokOp, ":"):
			line.label, line.labelCol = first.text, first.col
			p.pos += 2
		case second.is(tokOp, "->"):
			line.label, line.labelCol, line.field = first.text, first.col, true
			p.pos += 2
		case second.kind == tokEOL && !isReservedWord(first):
			line.label, line.labelCol = first.text, first.col
			line.kind = LineLabelOnly
			p.pos++
			return nil
		case !isReservedWord(first) && (second.is(tokOp, "=") || second.is(tokOp, ":=") || isDirectiveOrMnemonic(second)):
			line.label, line.labelCol = first.text, first.col
			p.pos++
		}
	}

	if p.atEnd() {
		line.kind = LineLabelOnly
		if line.field {
			return p.errorAt(p.peek(), ErrUnexpectedToken, "->")
		}
		return nil
	}

	t := p.peek()
	line.col = t.col
	if t.is(tokOp, "=") || t.is(tokOp, ":=") {
		p.pos++
		line.kind, line.keyword = LineVar, t.text
		return p.parseExprList(line, 1, 1)
	}
	if kind, ok := keywordOf(t); ok {
		p.pos++
		line.kind, line.keyword = kind, t.text
		return p.parseDirective(line)
	}
	if t.kind == tokIdent {
		lower := strings.ToLower(t.text)
		if mnemonics[lower] {
			p.pos++
			line.kind, line.mnemonic = LineInstruction, lower
			return p.parseInstructionOperands(line)
		}
		if p.peekAt(1).is(tokOp, "(") && !strings.HasPrefix(t.text, ".") {
			p.pos++
			line.kind, line.name = LineInvocation, t.text
			return p.parseInvocationArgs(line)
		}
		if line.label == "" && p.peekAt(1).kind == tokEOL {
			line.kind, line.label, line.labelCol = LineLabelOnly, t.text, t.col
			p.pos++
			return nil
		}
	}
	return p.unexpected()
}

func isDirectiveOrMnemonic(t token) bool {
	if t.kind != tokIdent {
		return false
	}
	if _, ok := keywordOf(t); ok {
		return true
	}
	return mnemonics[strings.ToLower(t.text)]
}

func (p *lineParser) expectEnd() error {
	if p.atEnd() {
		return nil
	}
	return p.unexpected()
}

// parseExprList reads between minCount and maxCount comma-separated
// expressions (maxCount < 0 means unlimited).
func (p *lineParser) parseExprList(line *asmLine, minCount, maxCount int) error {
	if p.atEnd() {
		if minCount > 0 {
			return p.errorAt(p.peek(), ErrExpressionExpected)
		}
		return nil
	}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return err
		}
		line.exprs = append(line.exprs, e)
		if maxCount >= 0 && len(line.exprs) >= maxCount {
			return p.expectEnd()
		}
		if !p.acceptOp(",") {
			break
		}
	}
	if len(line.exprs) < minCount {
		return p.errorAt(p.peek(), ErrExpressionExpected)
	}
	return p.expectEnd()
}

func (p *lineParser) parseInstructionOperands(line *asmLine) error {
	if p.atEnd() {
		return nil
	}
	for {
		op, err := p.parseOperand()
		if err != nil {
			return err
		}
		line.operands = append(line.operands, op)
		if !p.acceptOp(",") {
			return p.expectEnd()
		}
	}
}

func (p *lineParser) parseInvocationArgs(line *asmLine) error {
	p.pos++ // (
	if p.acceptOp(")") {
		return p.expectEnd()
	}
	for {
		if p.isOp(",") || p.isOp(")") {
			line.args = append(line.args, Operand{kind: opNone, col: p.peek().col})
		} else {
			op, err := p.parseOperand()
			if err != nil {
				return err
			}
			line.args = append(line.args, op)
		}
		if p.acceptOp(",") {
			continue
		}
		if err := p.expectOp(")", ErrRParExpected); err != nil {
			return err
		}
		return p.expectEnd()
	}
}

func (p *lineParser) parseIdent() (string, bool, error) {
	global := p.acceptOp("::")
	t := p.peek()
	if t.kind != tokIdent {
		return "", false, p.errorAt(t, ErrIdentExpected)
	}
	p.pos++
	return t.text, global, nil
}

// parseDirective reads the operands of a pragma or statement.
func (p *lineParser) parseDirective(line *asmLine) error {
	switch line.kind {
	case LineOrg, LineEnt, LineXent, LineDisp, LineXorg, LineEqu, LineVar, LineLoop, LineWhile,
		LineUntil, LineIf, LineElif, LineError, LineDefm, LineDefn, LineDefc, LineDefh, LineDefgx:
		return p.parseExprList(line, 1, 1)

	case LineDefb, LineDefw, LineTrace, LineTraceHex:
		return p.parseExprList(line, 1, -1)

	case LineBank, LineSkip, LineDefs:
		return p.parseExprList(line, 1, 2)

	case LineFillb, LineFillw:
		return p.parseExprList(line, 2, 2)

	case LineAlign, LineRndSeed:
		return p.parseExprList(line, 0, 1)

	case LineIncludeBin, LineCompareBin:
		return p.parseExprList(line, 1, 3)

	case LineDefg:
		rest := p.peek()
		if rest.kind == tokEOL {
			return p.errorAt(rest, ErrExpressionExpected)
		}
		line.raw = rawRemainder(line.src.text, rest.col)
		p.pos = len(p.toks)
		return nil

	case LineModel:
		t := p.peek()
		if t.kind != tokIdent && t.kind != tokString && t.kind != tokNumber {
			return p.errorAt(t, ErrIdentExpected)
		}
		p.pos++
		line.name = t.text
		return p.expectEnd()

	case LineIfUsed, LineIfNUsed:
		name, global, err := p.parseIdent()
		if err != nil {
			return err
		}
		line.name, line.nameGlobal = name, global
		return p.expectEnd()

	case LineModule:
		if p.atEnd() {
			return nil
		}
		name, _, err := p.parseIdent()
		if err != nil {
			return err
		}
		line.name = name
		return p.expectEnd()

	case LineMacro:
		return p.parseMacroParams(line)

	case LineFor:
		return p.parseForHeader(line)

	case LineEndm, LineEndl, LineEndw, LineRepeat, LineNext, LineElse, LineEndif,
		LineBreak, LineContinue, LineProc, LineEndp, LineEndModule, LineStruct, LineEnds:
		return p.expectEnd()
	}
	return p.unexpected()
}

// rawRemainder returns the line text from col up to a comment.
func rawRemainder(text string, col int) string {
	rest := text[col-1:]
	if i := strings.IndexByte(rest, ';'); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

func (p *lineParser) parseMacroParams(line *asmLine) error {
	if err := p.expectOp("(", ErrLParExpected); err != nil {
		return err
	}
	if p.acceptOp(")") {
		return p.expectEnd()
	}
	for {
		t := p.peek()
		if t.kind != tokIdent {
			return p.errorAt(t, ErrIdentExpected)
		}
		p.pos++
		line.params = append(line.params, t.text)
		if p.acceptOp(",") {
			continue
		}
		if err := p.expectOp(")", ErrRParExpected); err != nil {
			return err
		}
		return p.expectEnd()
	}
}

// parseForHeader reads "var = from .to to [.step step]".
func (p *lineParser) parseForHeader(line *asmLine) error {
	name, _, err := p.parseIdent()
	if err != nil {
		return err
	}
	line.name = name
	if err := p.expectOp("=", ErrAssignExpected); err != nil {
		return err
	}
	from, err := p.parseExpr()
	if err != nil {
		return err
	}
	if !p.acceptWord("to") {
		return p.errorAt(p.peek(), ErrToExpected)
	}
	to, err := p.parseExpr()
	if err != nil {
		return err
	}
	line.exprs = []*Expr{from, to}
	if p.acceptWord("step") {
		step, err := p.parseExpr()
		if err != nil {
			return err
		}
		line.exprs = append(line.exprs, step)
	}
	return p.expectEnd()
}

// acceptWord consumes a keyword written with or without a leading dot.
func (p *lineParser) acceptWord(word string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(strings.TrimPrefix(t.text, "."), word) {
		p.pos++
		return true
	}
	return false
}
