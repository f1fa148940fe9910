// z80asm_expr.go - Expression tree and recursive-descent expression parser

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
	"fmt"
	"strings"
)

type exprKind int

const (
	exprLiteral exprKind = iota
	exprSymbol
	exprCurrentAddress
	exprLoopCounter
	exprUnary
	exprBinary
	exprConditional
	exprFunction
	exprMacroParam
)

// Expr is a node of a parsed expression. Children live in args: one operand
// for unary nodes, two for binary, three for the conditional operator.
type Expr struct {
	kind   exprKind
	value  Value  // literal
	name   string // symbol, function or macro parameter name; operator text
	global bool   // symbol written as ::name
	args   []*Expr
	col    int
}

// parseError is a syntax error at a column of the current line.
type parseError struct {
	code ErrorCode
	col  int
	args []interface{}
}

func (e *parseError) Error() string {
	return fmt.Sprintf("%d: %s %s", e.col, e.code, e.code.message(e.args...))
}

// lineParser walks the tokens of a single line.
type lineParser struct {
	toks []token
	pos  int

	// inMacro is set while parsing the lines of a macro definition or of an
	// expanded macro body.
	inMacro bool

	// hasMacroParams records that a {{param}} placeholder was consumed.
	hasMacroParams bool
}

func (p *lineParser) peek() token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return token{kind: tokEOL, col: p.endCol()}
}

func (p *lineParser) peekAt(offset int) token {
	if p.pos+offset < len(p.toks) {
		return p.toks[p.pos+offset]
	}
	return token{kind: tokEOL, col: p.endCol()}
}

func (p *lineParser) endCol() int {
	if len(p.toks) == 0 {
		return 1
	}
	last := p.toks[len(p.toks)-1]
	return last.col + len(last.text)
}

func (p *lineParser) next() token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *lineParser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *lineParser) isOp(text string) bool { return p.peek().is(tokOp, text) }

func (p *lineParser) acceptOp(text string) bool {
	if p.isOp(text) {
		p.pos++
		return true
	}
	return false
}

func (p *lineParser) expectOp(text string, code ErrorCode) error {
	if p.acceptOp(text) {
		return nil
	}
	return p.errorAt(p.peek(), code)
}

func (p *lineParser) errorAt(t token, code ErrorCode, args ...interface{}) error {
	return &parseError{code: code, col: t.col, args: args}
}

func (p *lineParser) unexpected() error {
	t := p.peek()
	if t.kind == tokEOL {
		return p.errorAt(t, ErrExpressionExpected)
	}
	return p.errorAt(t, ErrUnexpectedToken, tokensText([]token{t}))
}

// ---------------------------------------------------------------------------
// Expression grammar
// ---------------------------------------------------------------------------

// Binary operator levels from lowest to highest precedence. '**' and the
// unary operators sit above the last level.
var binaryLevels = [][]string{
	{"??"},
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!=", "===", "!=="},
	{"<", "<=", ">", ">="},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
	{"<?", ">?"},
}

func (p *lineParser) parseExpr() (*Expr, error) {
	cond, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if !p.isOp("?") {
		return cond, nil
	}
	q := p.next()
	consequent, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(":", ErrUnexpectedToken); err != nil {
		return nil, err
	}
	alternate, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Expr{kind: exprConditional, args: []*Expr{cond, consequent, alternate}, col: q.col}, nil
}

func (p *lineParser) parseBinary(level int) (*Expr, error) {
	if level == len(binaryLevels) {
		return p.parsePower()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || !containsString(binaryLevels[level], t.text) {
			return left, nil
		}
		p.pos++
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &Expr{kind: exprBinary, name: t.text, args: []*Expr{left, right}, col: t.col}
	}
}

func (p *lineParser) parsePower() (*Expr, error) {
	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if !p.isOp("**") {
		return base, nil
	}
	t := p.next()
	exp, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	return &Expr{kind: exprBinary, name: "**", args: []*Expr{base, exp}, col: t.col}, nil
}

func (p *lineParser) parseUnary() (*Expr, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "+" || t.text == "-" || t.text == "~" || t.text == "!") {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Expr{kind: exprUnary, name: t.text, args: []*Expr{operand}, col: t.col}, nil
	}
	return p.parsePrimary()
}

func (p *lineParser) parsePrimary() (*Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.pos++
		v := ParseNumber(t.text)
		if !v.IsValid() {
			return nil, p.errorAt(t, ErrInvalidLiteral, t.text)
		}
		return &Expr{kind: exprLiteral, value: v, col: t.col}, nil

	case tokString:
		p.pos++
		return &Expr{kind: exprLiteral, value: StringValue(string(DecodeString(t.text))), col: t.col}, nil

	case tokChar:
		p.pos++
		b := DecodeString(t.text)
		if len(b) == 0 {
			return nil, p.errorAt(t, ErrInvalidLiteral, "''")
		}
		return &Expr{kind: exprLiteral, value: IntValue(int64(b[0])), col: t.col}, nil

	case tokDollar:
		p.pos++
		return &Expr{kind: exprCurrentAddress, col: t.col}, nil

	case tokCounter:
		p.pos++
		return &Expr{kind: exprLoopCounter, col: t.col}, nil

	case tokMacroParam:
		p.pos++
		p.hasMacroParams = true
		return &Expr{kind: exprMacroParam, name: t.text, col: t.col}, nil

	case tokOp:
		switch t.text {
		case "*", ".":
			p.pos++
			return &Expr{kind: exprCurrentAddress, col: t.col}, nil
		case "(", "[":
			p.pos++
			inner, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			closing := ")"
			if t.text == "[" {
				closing = "]"
			}
			if err := p.expectOp(closing, ErrRParExpected); err != nil {
				return nil, err
			}
			return inner, nil
		case "::":
			p.pos++
			id := p.peek()
			if id.kind != tokIdent {
				return nil, p.errorAt(id, ErrIdentExpected)
			}
			p.pos++
			return &Expr{kind: exprSymbol, name: id.text, global: true, col: t.col}, nil
		}

	case tokIdent:
		return p.parseIdentExpr()
	}
	return nil, p.unexpected()
}

func (p *lineParser) parseIdentExpr() (*Expr, error) {
	t := p.next()
	lower := strings.ToLower(t.text)
	switch lower {
	case "true":
		return &Expr{kind: exprLiteral, value: BoolValue(true), col: t.col}, nil
	case "false":
		return &Expr{kind: exprLiteral, value: BoolValue(false), col: t.col}, nil
	}
	if !p.isOp("(") {
		return &Expr{kind: exprSymbol, name: t.text, col: t.col}, nil
	}

	if lower == "textof" || lower == "ltextof" {
		return p.parseTextOf(t, lower == "ltextof")
	}
	if macroTimeFuncs[lower] != nil {
		return p.parseMacroTimeFunc(t, lower)
	}

	p.pos++ // (
	call := &Expr{kind: exprFunction, name: lower, col: t.col}
	if p.acceptOp(")") {
		return call, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		if p.acceptOp(",") {
			continue
		}
		if err := p.expectOp(")", ErrRParExpected); err != nil {
			return nil, err
		}
		return call, nil
	}
}

// parseTextOf folds textof(x) and ltextof(x) into a string literal.
func (p *lineParser) parseTextOf(fn token, lower bool) (*Expr, error) {
	p.pos++ // (
	arg := p.next()
	if arg.kind == tokMacroParam {
		p.hasMacroParams = true
	} else if arg.kind != tokIdent || !isTextOfArg(strings.ToLower(arg.text)) {
		return nil, p.errorAt(arg, ErrParseTimeFunction)
	}
	if err := p.expectOp(")", ErrRParExpected); err != nil {
		return nil, err
	}
	text := strings.ToUpper(arg.text)
	if lower {
		text = strings.ToLower(arg.text)
	}
	return &Expr{kind: exprLiteral, value: StringValue(text), col: fn.col}, nil
}

func isTextOfArg(word string) bool {
	return mnemonics[word] || registerNames[word] || conditionNames[word]
}

// parseMacroTimeFunc evaluates an operand-testing function at parse time.
// Macro arguments are spliced into the body before the body is parsed, so
// the operand is concrete by then.
func (p *lineParser) parseMacroTimeFunc(fn token, name string) (*Expr, error) {
	if !p.inMacro {
		return nil, p.errorAt(fn, ErrMacroTimeFunc)
	}
	p.pos++ // (
	op, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(")", ErrRParExpected); err != nil {
		return nil, err
	}
	result := false
	if op.kind != opMacroParam {
		result = macroTimeFuncs[name](op)
	}
	return &Expr{kind: exprLiteral, value: BoolValue(result), col: fn.col}, nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
