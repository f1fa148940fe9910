// z80asm_flow.go - Block statements: loops, conditionals, procs and modules

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
	"math"
)

const maxLoopIterations = 0xffff

// searchForEnd advances *idx from a block opener to its end statement. It
// returns the label of the end line, or of a label-only line right before
// it, which the block defines at its end address.
func (a *Z80Assembler) searchForEnd(lines []*asmLine, idx *int) (string, bool) {
	start := lines[*idx]
	endKind, display, ok := start.kind.blockEnd()
	if !ok {
		return "", false
	}
	endLabel := ""
	for *idx++; *idx < len(lines); *idx++ {
		line := lines[*idx]
		if line.kind == endKind {
			if line.label != "" {
				return line.label, true
			}
			return endLabel, true
		}
		if line.kind == LineEmpty || line.kind == LineLabelOnly {
			endLabel = line.label
			continue
		}
		endLabel = ""
		if _, _, nested := line.kind.blockEnd(); nested {
			if _, found := a.searchForEnd(lines, idx); !found {
				a.reportAt(start.src, start.col, a.macroChain, ErrMissingEnd, display)
				return "", false
			}
		}
	}
	a.reportAt(start.src, start.col, a.macroChain, ErrMissingEnd, display)
	return "", false
}

// runBody emits lines[from:to]. It stops once .break or .continue fired in
// the innermost loop iteration.
func (a *Z80Assembler) runBody(lines []*asmLine, from, to int) {
	for i := from; i < to; i++ {
		a.emitLine(lines, &i)
		if a.interrupted() {
			return
		}
	}
}

func (a *Z80Assembler) interrupted() bool {
	iter := a.innermostIteration()
	return iter != nil && (iter.breakReached || iter.continueReached)
}

// settleScope finishes a block body running in scope: the end label is
// defined, a pending temporary scope is closed and the scope's fixups are
// resolved as far as possible. The caller pops scope.
func (a *Z80Assembler) settleScope(scope *symbolScope, endLabel string, endLine *asmLine) {
	if endLabel != "" {
		a.line = endLine
		a.addSymbol(endLabel, IntValue(int64(a.currentAddress())))
	}
	a.hangingLabel = nil
	if top := a.topScope(); top != nil && top != scope && top.kind == scopeTemporary {
		a.fixupSymbols(top.fixups, false)
		a.popScope()
	}
	if scope != nil {
		a.fixupSymbols(scope.fixups, false)
	}
}

// ---------------------------------------------------------------------------
// Loops
// ---------------------------------------------------------------------------

// loopRun holds the state shared by the loop forms.
type loopRun struct {
	a            *Z80Assembler
	opener       *asmLine
	lines        []*asmLine
	first, last  int
	endLabel     string
	scope        *symbolScope
	errorsBefore int
}

func (a *Z80Assembler) openLoop(lines []*asmLine, first, last int, endLabel string) *loopRun {
	scope := newScope(scopeLoop, nil)
	a.pushScope(scope)
	return &loopRun{
		a:            a,
		opener:       lines[first],
		lines:        lines,
		first:        first,
		last:         last,
		endLabel:     endLabel,
		scope:        scope,
		errorsBefore: a.out.ErrorCount(),
	}
}

// begin pushes a fresh iteration scope with the given $cnt value.
func (r *loopRun) begin(counter int64) *symbolScope {
	iter := newScope(scopeIteration, r.scope)
	iter.loopCounter = counter
	r.a.pushScope(iter)
	return iter
}

// body runs the loop body and settles the iteration scope, which stays on
// the stack.
func (r *loopRun) body(iter *symbolScope) {
	r.a.runBody(r.lines, r.first+1, r.last)
	r.a.settleScope(iter, r.endLabel, r.lines[r.last])
}

// tooManyErrors stops the loop once it produced MaxLoopErrors diagnostics.
func (r *loopRun) tooManyErrors() bool {
	if r.a.out.ErrorCount()-r.errorsBefore < r.a.opts.MaxLoopErrors {
		return false
	}
	r.a.line = r.opener
	r.a.reportError(ErrTooManyLoopErrs)
	return true
}

func (r *loopRun) close() { r.a.popScope() }

// evalCondition evaluates a loop or .if condition; ok is false when the loop cannot
// go on.
func (a *Z80Assembler) evalCondition(line *asmLine) (result, ok bool) {
	a.line = line
	v := a.evaluateImmediate(line.exprs[0])
	if !v.IsValid() {
		return false, false
	}
	if v.Type() == ValueString {
		a.reportError(ErrStringNotAllowed)
		return false, false
	}
	return v.AsBool(), true
}

func (a *Z80Assembler) processLoop(lines []*asmLine, idx *int) {
	first := *idx
	endLabel, found := a.searchForEnd(lines, idx)
	if !found {
		return
	}
	opener := lines[first]
	a.line = opener
	v, ok := a.evaluateNumber(opener.exprs[0])
	if !ok {
		return
	}
	count := v.AsLong()
	if count >= 0x10000 {
		a.reportError(ErrLoopTooLong)
		count = 1
	}

	run := a.openLoop(lines, first, *idx, endLabel)
	defer run.close()
	for i := int64(0); i < count; i++ {
		iter := run.begin(i + 1)
		run.body(iter)
		a.popScope()
		if run.tooManyErrors() || iter.breakReached {
			break
		}
	}
}

func (a *Z80Assembler) processWhile(lines []*asmLine, idx *int) {
	first := *idx
	endLabel, found := a.searchForEnd(lines, idx)
	if !found {
		return
	}
	run := a.openLoop(lines, first, *idx, endLabel)
	defer run.close()
	for count := int64(1); ; count++ {
		iter := run.begin(count)
		if cond, ok := a.evalCondition(run.opener); !ok || !cond {
			a.popScope()
			return
		}
		run.body(iter)
		a.popScope()
		if run.tooManyErrors() {
			return
		}
		if count+1 >= maxLoopIterations {
			a.line = run.opener
			a.reportError(ErrLoopTooLong)
			return
		}
		if iter.breakReached {
			return
		}
	}
}

func (a *Z80Assembler) processRepeat(lines []*asmLine, idx *int) {
	first := *idx
	endLabel, found := a.searchForEnd(lines, idx)
	if !found {
		return
	}
	until := lines[*idx]
	run := a.openLoop(lines, first, *idx, endLabel)
	defer run.close()
	for count := int64(1); ; count++ {
		iter := run.begin(count)
		run.body(iter)
		if run.tooManyErrors() || iter.breakReached {
			a.popScope()
			return
		}
		done, ok := a.evalCondition(until)
		a.popScope()
		if !ok || done {
			return
		}
		if count+1 >= maxLoopIterations {
			a.line = run.opener
			a.reportError(ErrLoopTooLong)
			return
		}
	}
}

func (a *Z80Assembler) processFor(lines []*asmLine, idx *int) {
	first := *idx
	endLabel, found := a.searchForEnd(lines, idx)
	if !found {
		return
	}
	opener := lines[first]
	a.line = opener
	from, ok := a.evaluateNumber(opener.exprs[0])
	if !ok {
		return
	}
	to, ok := a.evaluateNumber(opener.exprs[1])
	if !ok {
		return
	}
	step := IntValue(1)
	if len(opener.exprs) > 2 {
		if step, ok = a.evaluateNumber(opener.exprs[2]); !ok {
			return
		}
		if math.Abs(step.AsReal()) < 1e-15 {
			a.reportError(ErrZeroStep)
			return
		}
	}
	name := a.fold(opener.name)
	if _, _, exists := a.findSymbol(a.current, a.module().scopes, name, false); exists {
		a.reportError(ErrForVariableExists, opener.name)
		return
	}

	run := a.openLoop(lines, first, *idx, endLabel)
	defer run.close()
	variable := &symbolInfo{name: name, value: from, kind: SymbolVar}
	run.scope.symbols[name] = variable

	intLoop := from.isIntegral() && to.isIntegral() && step.isIntegral()
	ival, iend, istep := from.AsLong(), to.AsLong(), step.AsLong()
	rval, rend, rstep := from.AsReal(), to.AsReal(), step.AsReal()

	for count := int64(1); ; count++ {
		if intLoop {
			if (istep > 0 && ival > iend) || (istep < 0 && ival < iend) {
				return
			}
		} else if (rstep > 0 && rval > rend) || (rstep < 0 && rval < rend) {
			return
		}
		if count >= maxLoopIterations {
			a.line = opener
			a.reportError(ErrLoopTooLong)
			return
		}

		iter := run.begin(count)
		run.body(iter)
		a.popScope()
		if run.tooManyErrors() || iter.breakReached {
			return
		}
		if intLoop {
			ival += istep
			variable.value = IntValue(ival)
		} else {
			rval += rstep
			variable.value = RealValue(rval)
		}
	}
}

func (a *Z80Assembler) processBreak() {
	iter := a.innermostIteration()
	if iter == nil {
		a.reportError(ErrBreakOutside)
		return
	}
	iter.breakReached = true
}

func (a *Z80Assembler) processContinue() {
	iter := a.innermostIteration()
	if iter == nil {
		a.reportError(ErrContinueOutside)
		return
	}
	iter.continueReached = true
}

// ---------------------------------------------------------------------------
// Conditionals
// ---------------------------------------------------------------------------

// ifSection is one branch of an .if statement: lines (first, last)
// exclusive. opener is nil for the .else branch.
type ifSection struct {
	opener *asmLine
	first  int
	last   int
}

// ifSections maps the branches of the .if statement at *idx and advances
// *idx to its .endif.
func (a *Z80Assembler) ifSections(lines []*asmLine, idx *int) ([]ifSection, *ifSection, string, bool) {
	start := lines[*idx]
	_, display, _ := start.kind.blockEnd()
	var (
		sections []ifSection
		elseSec  *ifSection
		endLabel string
		elseSeen bool
		failed   bool
	)
	secStart, secLine := *idx, start

	for *idx++; *idx < len(lines); *idx++ {
		line := lines[*idx]
		switch line.kind {
		case LineEndif:
			if line.label != "" {
				endLabel = line.label
			}
			if elseSeen {
				elseSec = &ifSection{first: secStart, last: *idx}
			} else {
				sections = append(sections, ifSection{opener: secLine, first: secStart, last: *idx})
			}
			return sections, elseSec, endLabel, !failed

		case LineElif, LineElse:
			a.line = line
			if line.label != "" {
				endLabel = line.label
			}
			if endLabel != "" {
				a.reportError(ErrLabelNotAllowed, pragmaName(line))
			}
			if elseSeen {
				a.reportError(ErrDuplicateElse, pragmaName(line))
				failed = true
			} else {
				sections = append(sections, ifSection{opener: secLine, first: secStart, last: *idx})
				secLine, secStart = line, *idx
			}
			if line.kind == LineElse {
				elseSeen = true
			}
			endLabel = ""

		case LineEmpty, LineLabelOnly:
			if line.label != "" {
				endLabel = line.label
			}

		default:
			endLabel = ""
			if _, _, nested := line.kind.blockEnd(); nested {
				if _, found := a.searchForEnd(lines, idx); !found {
					a.reportAt(start.src, start.col, a.macroChain, ErrMissingEnd, display)
					return nil, nil, "", false
				}
			}
		}
	}
	a.reportAt(start.src, start.col, a.macroChain, ErrMissingEnd, display)
	return nil, nil, "", false
}

// processIf handles .if, .ifused and .ifnused with their .elif and .else
// branches. The first branch whose condition holds is emitted.
func (a *Z80Assembler) processIf(lines []*asmLine, idx *int) {
	sections, elseSec, endLabel, ok := a.ifSections(lines, idx)
	if !ok {
		return
	}
	endLine := lines[*idx]

	chosen := elseSec
	for i := range sections {
		sec := &sections[i]
		if a.branchTaken(sec.opener) {
			chosen = sec
			break
		}
	}
	if chosen != nil {
		a.runBody(lines, chosen.first+1, chosen.last)
	}
	if a.interrupted() {
		a.hangingLabel = nil
		return
	}
	if endLabel != "" {
		a.line = endLine
		a.addSymbol(endLabel, IntValue(int64(a.currentAddress())))
	}
	a.hangingLabel = nil
}

func (a *Z80Assembler) branchTaken(opener *asmLine) bool {
	switch opener.kind {
	case LineIfUsed, LineIfNUsed:
		sym, _, _ := a.findSymbol(a.current, a.module().scopes, opener.name, opener.nameGlobal)
		used := sym != nil && sym.used
		return used == (opener.kind == LineIfUsed)
	}
	result, ok := a.evalCondition(opener)
	return ok && result
}

// ---------------------------------------------------------------------------
// Procedures and modules
// ---------------------------------------------------------------------------

func (a *Z80Assembler) processProc(lines []*asmLine, idx *int) {
	first := *idx
	endLabel, found := a.searchForEnd(lines, idx)
	if !found {
		return
	}
	scope := newScope(scopeProc, nil)
	a.pushScope(scope)
	a.runBody(lines, first+1, *idx)
	a.settleScope(scope, endLabel, lines[*idx])
	a.popScope()
}

func (a *Z80Assembler) processModule(lines []*asmLine, idx *int, label string) {
	first := *idx
	endLabel, found := a.searchForEnd(lines, idx)
	if !found {
		return
	}
	opener := lines[first]
	a.line = opener
	name := opener.name
	if name == "" {
		name = label
	}
	switch {
	case name == "":
		a.reportError(ErrModuleNoName)
		return
	case isTemporary(name):
		a.reportError(ErrModuleTempName, name)
		return
	}
	key := a.fold(name)
	if _, exists := a.module().children[key]; exists {
		a.reportError(ErrModuleNameUsed, name)
		return
	}

	parent := a.current
	a.current = a.modules.add(key, parent)
	a.log.Debug("module", "name", a.modules.qualifiedName(a.current, ""))
	a.runBody(lines, first+1, *idx)
	a.settleScope(nil, endLabel, lines[*idx])
	a.fixupSymbols(a.module().fixups, false)
	a.current = parent
}
