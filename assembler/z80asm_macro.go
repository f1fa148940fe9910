// z80asm_macro.go - Macro definitions and invocations

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
	"errors"
	"strconv"
)

const maxMacroDepth = 64

// collectMacro records a .macro definition and skips its body.
func (a *Z80Assembler) collectMacro(lines []*asmLine, idx *int, label string) {
	opener := lines[*idx]
	failed := false
	name := a.fold(label)
	switch {
	case label == "":
		a.reportError(ErrMacroNoName)
		failed = true
	case isTemporary(label):
		a.reportError(ErrMacroTempName, label)
		failed = true
	case a.nameInUse(name):
		a.reportError(ErrMacroNameUsed, label)
		failed = true
	}

	params := make([]string, 0, len(opener.params))
	for _, p := range opener.params {
		key := a.fold(p)
		if containsString(params, key) {
			a.reportError(ErrMacroDupArg, p)
			failed = true
			continue
		}
		params = append(params, key)
	}

	first := *idx
	endLabel, found := a.searchForEnd(lines, idx)
	if !found {
		return
	}

	def := &macroDef{
		name:     name,
		params:   params,
		src:      opener.src,
		endLabel: endLabel,
		endLine:  lines[*idx],
	}
	for i := first + 1; i < *idx; i++ {
		line := lines[i]
		a.line = line
		if line.kind == LineMacro {
			a.reportError(ErrMacroNested)
			failed = true
		}
		for _, t := range line.toks {
			if t.kind == tokMacroParam && !containsString(params, a.fold(t.text)) {
				a.reportAt(line.src, t.col, a.macroChain, ErrMacroUnknownArg, t.text)
				failed = true
			}
		}
		def.lines = append(def.lines, line)
	}
	if failed {
		return
	}
	a.module().macros[name] = def
	a.log.Debug("macro defined", "name", name, "params", len(params), "lines", len(def.lines))
}

// processInvocation expands a macro or emits a struct.
func (a *Z80Assembler) processInvocation(line *asmLine) {
	name := a.fold(line.name)
	if def := a.modules.findStruct(a.current, name); def != nil {
		a.invokeStruct(line, def)
		return
	}
	def := a.modules.findMacro(a.current, name)
	if def == nil {
		a.reportError(ErrMacroUnknown, line.name)
		return
	}
	if len(line.args) > len(def.params) {
		a.reportError(ErrMacroTooManyArgs, line.name, len(def.params), len(line.args))
		return
	}
	if len(a.macroChain) >= maxMacroDepth {
		a.reportError(ErrMacroDepth, maxMacroDepth)
		return
	}

	bindings := make(map[string][]token, len(def.params))
	for i, p := range def.params {
		arg := Operand{kind: opNone}
		if i < len(line.args) {
			arg = line.args[i]
		}
		toks, ok := a.argumentTokens(arg)
		if !ok {
			return
		}
		bindings[p] = toks
	}

	a.macroChain = append(a.macroChain, line)
	defer func() { a.macroChain = a.macroChain[:len(a.macroChain)-1] }()

	body, ok := a.expandMacro(def, bindings)
	if !ok {
		return
	}

	scope := newScope(scopeMacro, nil)
	scope.symbols[def.name] = &symbolInfo{
		name:  def.name,
		value: IntValue(int64(a.currentAddress())),
		kind:  SymbolLabel,
	}
	a.pushScope(scope)
	a.runBody(body, 0, len(body))
	a.settleScope(scope, def.endLabel, def.endLine)
	a.popScope()
}

// expandMacro binds the arguments into the body lines. Parameters are
// replaced token by token and the line is parsed again.
func (a *Z80Assembler) expandMacro(def *macroDef, bindings map[string][]token) ([]*asmLine, bool) {
	body := make([]*asmLine, 0, len(def.lines))
	ok := true
	for _, line := range def.lines {
		if !hasParamTokens(line.toks) {
			body = append(body, line)
			continue
		}
		toks := make([]token, 0, len(line.toks))
		for _, t := range line.toks {
			if t.kind != tokMacroParam {
				toks = append(toks, t)
				continue
			}
			for _, bound := range bindings[a.fold(t.text)] {
				bound.col = t.col
				toks = append(toks, bound)
			}
		}
		expanded, err := parseTokens(line.src, toks, true)
		if err != nil {
			var pe *parseError
			if errors.As(err, &pe) {
				a.reportAt(line.src, pe.col, a.macroChain, pe.code, pe.args...)
			}
			ok = false
			continue
		}
		body = append(body, expanded)
	}
	return body, ok
}

func hasParamTokens(toks []token) bool {
	for _, t := range toks {
		if t.kind == tokMacroParam {
			return true
		}
	}
	return false
}

// argumentTokens turns a macro argument into the tokens spliced into the
// body. Expressions whose value is already known are passed as that value;
// anything else keeps its source tokens. Source text that does not
// tokenize is reported at the invocation.
func (a *Z80Assembler) argumentTokens(arg Operand) ([]token, bool) {
	switch arg.kind {
	case opNone:
		return []token{{kind: tokNoneArg, text: "<none>"}}, true
	case opExpr:
		v := a.evaluate(arg.expr)
		switch v.Type() {
		case ValueInteger:
			n := v.AsLong()
			if n < 0 {
				return []token{{kind: tokOp, text: "-"}, {kind: tokNumber, text: strconv.FormatInt(-n, 10)}}, true
			}
			return []token{{kind: tokNumber, text: strconv.FormatInt(n, 10)}}, true
		case ValueBool:
			return []token{{kind: tokIdent, text: v.AsString()}}, true
		}
	}
	toks, lexErr := tokenize(arg.text)
	if lexErr != nil {
		col := max(arg.col, 1) + lexErr.col - 1
		if lexErr.arg != "" {
			a.reportAt(a.line.src, col, a.macroChain, lexErr.code, lexErr.arg)
		} else {
			a.reportAt(a.line.src, col, a.macroChain, lexErr.code)
		}
		return nil, false
	}
	return toks, true
}
