// z80asm_fixup.go - Deferred expression resolution

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
	"math/rand/v2"
)

type fixupType int

const (
	fixupEqu fixupType = iota
	fixupBit8
	fixupBit16
	fixupBit16Be
	fixupJr
	fixupEnt
	fixupXent
	fixupStruct
)

// fieldValue is a struct field assignment whose value was not known when
// the field line was processed.
type fieldValue struct {
	offset int // relative to the struct start
	expr   *Expr
	word   bool
	src    sourceLine
	col    int
}

// fixup records an expression to re-evaluate once more symbols are known.
// It captures $, $cnt and the local scope stack of the line that created
// it, so later evaluation sees the same environment.
type fixup struct {
	asm     *Z80Assembler
	module  int
	scopes  []*symbolScope
	src     sourceLine
	col     int
	macros  []*asmLine // macro invocation chain at creation
	typ     fixupType
	segment int
	offset  int
	expr    *Expr

	address    uint16
	counter    int64
	hasCounter bool

	label  string       // .equ label
	target *symbolScope // scope receiving the .equ symbol; nil means the module

	structBytes map[int]byte
	fields      []fieldValue

	resolved bool
}

// CurrentAddress implements EvaluationContext.
func (f *fixup) CurrentAddress() uint16 { return f.address }

// SymbolValue implements EvaluationContext.
func (f *fixup) SymbolValue(name string, startFromGlobal bool) (Value, bool) {
	return f.asm.lookupSymbol(f.module, f.scopes, name, startFromGlobal)
}

// LoopCounterValue implements EvaluationContext.
func (f *fixup) LoopCounterValue() Value {
	if !f.hasCounter {
		f.ReportEvaluationError(ErrCounterOutside)
		return ErrorValue
	}
	return IntValue(f.counter)
}

// ReportEvaluationError implements EvaluationContext.
func (f *fixup) ReportEvaluationError(code ErrorCode, args ...interface{}) {
	f.asm.reportAt(f.src, f.col, f.macros, code, args...)
}

func (f *fixup) Random() *rand.Rand { return f.asm.rng }

// recordFixup registers a fixup for the byte(s) at the current emit
// position, or at offset when it is not negative.
func (a *Z80Assembler) recordFixup(typ fixupType, expr *Expr, offset int) *fixup {
	a.ensureSegment()
	if offset < 0 {
		offset = len(a.segment.Code)
	}
	mod := a.modules.node(a.current)
	f := &fixup{
		asm:     a,
		module:  a.current,
		scopes:  append([]*symbolScope(nil), mod.scopes...),
		src:     a.line.src,
		col:     a.line.col,
		macros:  append([]*asmLine(nil), a.macroChain...),
		typ:     typ,
		segment: a.segmentIndex(),
		offset:  offset,
		expr:    expr,
		address: a.instructionAddress(),
	}
	if iter := a.innermostIteration(); iter != nil {
		f.counter, f.hasCounter = iter.loopCounter, true
	}
	for _, scope := range mod.scopes {
		scope.fixups = append(scope.fixups, f)
	}
	for n := a.current; n >= 0; n = a.modules.node(n).parent {
		node := a.modules.node(n)
		node.fixups = append(node.fixups, f)
	}
	return f
}

// evaluateFixup evaluates the fixup expression. When final is false an
// expression with unknown symbols is left pending without a diagnostic.
func (a *Z80Assembler) evaluateFixup(f *fixup, e *Expr, numericOnly, final bool) (Value, bool) {
	if !final && !readyToEvaluate(f, e) {
		return NonEvaluated, false
	}
	v := Evaluate(f, e)
	if !v.IsValid() {
		return v, false
	}
	if numericOnly && v.Type() == ValueString {
		f.ReportEvaluationError(ErrStringNotAllowed)
		return ErrorValue, false
	}
	return v, true
}

// fixupSymbols tries to resolve the pending fixups of a list. It returns
// true when nothing is left pending.
func (a *Z80Assembler) fixupSymbols(list []*fixup, final bool) bool {
	success := true

	for _, f := range list {
		if f.resolved || f.typ != fixupEqu {
			continue
		}
		v, ok := a.evaluateFixup(f, f.expr, false, final)
		if !ok {
			success = false
			if v.Type() == ValueError {
				f.resolved = true
			}
			continue
		}
		f.resolved = true
		a.setFixupSymbol(f, v)
	}

	for _, f := range list {
		if f.resolved {
			continue
		}
		switch f.typ {
		case fixupBit8, fixupBit16, fixupBit16Be, fixupJr, fixupEnt, fixupXent:
		default:
			continue
		}
		v, ok := a.evaluateFixup(f, f.expr, true, final)
		if !ok {
			success = false
			if v.Type() == ValueError {
				f.resolved = true
			}
			continue
		}
		f.resolved = true
		seg := a.out.Segments[f.segment]
		switch f.typ {
		case fixupBit8:
			seg.patch(f.offset, v.AsByte())
		case fixupBit16:
			seg.patch(f.offset, v.AsByte())
			seg.patch(f.offset+1, byte(v.AsWord()>>8))
		case fixupBit16Be:
			seg.patch(f.offset, byte(v.AsWord()>>8))
			seg.patch(f.offset+1, v.AsByte())
		case fixupJr:
			dist := int(v.AsWord()) - (int(seg.addressAt(f.offset)) + 2)
			if dist < -128 || dist > 127 {
				f.ReportEvaluationError(ErrRelativeJump, dist)
				success = false
				continue
			}
			seg.patch(f.offset+1, byte(dist))
		case fixupEnt:
			addr := v.AsWord()
			a.out.EntryAddress = &addr
		case fixupXent:
			addr := v.AsWord()
			a.out.ExportEntryAddress = &addr
		}
	}

	for _, f := range list {
		if f.resolved || f.typ != fixupStruct {
			continue
		}
		if !a.applyStructFixup(f, final) {
			success = false
		}
	}
	return success
}

// applyStructFixup writes a struct invocation's field bytes. The overlay is
// applied only when every pending field value resolves.
func (a *Z80Assembler) applyStructFixup(f *fixup, final bool) bool {
	values := make([]Value, len(f.fields))
	for i, field := range f.fields {
		ctx := *f
		ctx.src, ctx.col = field.src, field.col
		v, ok := a.evaluateFixup(&ctx, field.expr, true, final)
		if !ok {
			if v.Type() == ValueError {
				f.resolved = true
			}
			return false
		}
		values[i] = v
	}
	f.resolved = true
	seg := a.out.Segments[f.segment]
	for rel, b := range f.structBytes {
		seg.overlay(f.offset+rel, b)
	}
	for i, field := range f.fields {
		seg.overlay(f.offset+field.offset, values[i].AsByte())
		if field.word {
			seg.overlay(f.offset+field.offset+1, byte(values[i].AsWord()>>8))
		}
	}
	return true
}

func (a *Z80Assembler) setFixupSymbol(f *fixup, v Value) {
	symbols := a.modules.node(f.module).symbols
	if f.target != nil {
		symbols = f.target.symbols
	}
	if sym, ok := symbols[f.label]; ok {
		sym.value = v
		return
	}
	symbols[f.label] = &symbolInfo{name: f.label, value: v, kind: SymbolLabel}
}

// resolveFixups runs the global sweeps after emission: resolve until no
// progress, then a final pass that reports whatever is still unknown.
func (a *Z80Assembler) resolveFixups() {
	root := a.modules.node(0)
	for sweep := 1; ; sweep++ {
		before := countPending(root.fixups)
		if a.fixupSymbols(root.fixups, false) {
			a.log.Debug("fixups resolved", "sweeps", sweep)
			return
		}
		if countPending(root.fixups) == before {
			break
		}
	}
	pending := countPending(root.fixups)
	a.log.Debug("final fixup pass", "pending", pending)
	a.fixupSymbols(root.fixups, true)
}

func countPending(list []*fixup) int {
	n := 0
	for _, f := range list {
		if !f.resolved {
			n++
		}
	}
	return n
}
