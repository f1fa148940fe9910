// z80asm.go - Z80 assembler: compile pipeline, line dispatch and symbols

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
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"
)

const defaultMaxLoopErrors = 16

// Options configure a compilation.
type Options struct {
	// Model is the target used by #ifmod when the source has no .model.
	Model string

	// Defines are predefined symbols. They are visible to #ifdef and #if
	// and are added to the global module as variables.
	Defines map[string]Value

	// IncludePaths are searched after the directory of the including file.
	IncludePaths []string

	// MaxLoopErrors stops a loop once this many errors were reported in it.
	MaxLoopErrors int

	CaseSensitive bool

	// DefaultStart is the start address of the first segment; zero selects
	// 0x8000.
	DefaultStart uint16

	// RandomSeed seeds rnd(); zero seeds from the clock.
	RandomSeed uint64

	Logger *slog.Logger
}

// Z80Assembler compiles Z80 assembly source. An assembler may be reused for
// several compilations but must not be shared between goroutines.
type Z80Assembler struct {
	opts     Options
	log      *slog.Logger
	out      *Output
	mainPath string

	modules moduleArena
	current int // module index

	segment      *Segment
	line         *asmLine
	hangingLabel *asmLine

	structInv     *structInvocation
	cloningStruct bool
	sizing        *int // byte counter while a struct definition is measured

	macroChain  []*asmLine // invocation lines of the macros being expanded
	compareBins []binaryComparison

	conditionSymbols map[string]Value
	rng              *rand.Rand
	usedBanks        map[int]bool

	parseInMacro bool
	parseFailed  bool
}

// NewZ80Assembler creates an assembler with the given options.
func NewZ80Assembler(opts Options) *Z80Assembler {
	if opts.MaxLoopErrors <= 0 {
		opts.MaxLoopErrors = defaultMaxLoopErrors
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Z80Assembler{opts: opts, log: logger}
}

// Assemble compiles source text that does not come from a file. Includes
// are resolved against the working directory and the include paths.
func (a *Z80Assembler) Assemble(source string) *Output {
	return a.compile("", source)
}

// AssembleFile reads and compiles a source file. The error reports host
// failures only; assembly diagnostics are in the output.
func (a *Z80Assembler) AssembleFile(path string) (*Output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	return a.compile(path, string(data)), nil
}

func (a *Z80Assembler) reset() {
	a.out = &Output{}
	a.modules = moduleArena{}
	a.current = a.modules.add("", -1)
	a.segment = nil
	a.line = &asmLine{}
	a.hangingLabel = nil
	a.structInv = nil
	a.cloningStruct = false
	a.macroChain = nil
	a.compareBins = nil
	a.usedBanks = make(map[int]bool)
	a.parseInMacro = false
	a.parseFailed = false

	a.sizing = nil
	seed := a.opts.RandomSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	a.seedRandom(seed)

	a.conditionSymbols = make(map[string]Value, len(a.opts.Defines))
	root := a.modules.node(0)
	for name, v := range a.opts.Defines {
		key := a.fold(name)
		a.conditionSymbols[key] = v
		root.symbols[key] = &symbolInfo{name: key, value: v, kind: SymbolVar}
	}
}

func (a *Z80Assembler) compile(path, text string) *Output {
	a.reset()
	a.mainPath = path
	start := time.Now()
	name := path
	if name == "" {
		name = "<source>"
	}
	a.out.SourceFiles = []string{name}
	a.log.Debug("compile start", "file", name)

	frame := &parseFrame{path: path, index: 0, included: make(map[string]bool)}
	lines := a.parseFile(frame, text)
	if a.parseFailed || a.out.ErrorCount() > 0 {
		a.out.Segments = nil
		return a.out
	}

	a.ensureSegment()
	a.emitLines(lines)
	a.finishEmission()
	if a.out.ErrorCount() == 0 {
		a.resolveFixups()
	}
	if a.out.ErrorCount() == 0 {
		a.compareBinaries()
	}
	if a.out.ErrorCount() > 0 {
		a.out.Segments = nil
	}
	a.out.Symbols = a.collectSymbols()
	a.log.Debug("compile done", "file", name, "errors", a.out.ErrorCount(),
		"segments", len(a.out.Segments), "elapsed", time.Since(start))
	return a.out
}

// finishEmission handles state left open at the end of the source.
func (a *Z80Assembler) finishEmission() {
	if a.hangingLabel != nil {
		a.line = a.hangingLabel
		a.addSymbol(a.hangingLabel.label, IntValue(int64(a.currentAddress())))
		a.hangingLabel = nil
	}
	if a.structInv != nil {
		a.closeStructInvocation()
	}
}

// ---------------------------------------------------------------------------
// Names and scopes
// ---------------------------------------------------------------------------

func (a *Z80Assembler) fold(name string) string {
	if a.opts.CaseSensitive {
		return name
	}
	return strings.ToLower(name)
}

func isTemporary(name string) bool { return strings.HasPrefix(name, "`") }

func (a *Z80Assembler) module() *assemblyModule { return a.modules.node(a.current) }

func (a *Z80Assembler) topScope() *symbolScope {
	scopes := a.module().scopes
	if len(scopes) == 0 {
		return nil
	}
	return scopes[len(scopes)-1]
}

func (a *Z80Assembler) pushScope(s *symbolScope) {
	mod := a.module()
	mod.scopes = append(mod.scopes, s)
}

func (a *Z80Assembler) popScope() {
	mod := a.module()
	if len(mod.scopes) > 0 {
		mod.scopes = mod.scopes[:len(mod.scopes)-1]
	}
}

// topNonTemporary returns the innermost scope that is not temporary.
func (a *Z80Assembler) topNonTemporary() *symbolScope {
	scopes := a.module().scopes
	for i := len(scopes) - 1; i >= 0; i-- {
		if scopes[i].kind != scopeTemporary {
			return scopes[i]
		}
	}
	return nil
}

func (a *Z80Assembler) inGlobalScope() bool { return a.topNonTemporary() == nil }

func (a *Z80Assembler) innermostIteration() *symbolScope {
	if s := a.topNonTemporary(); s != nil && s.kind == scopeIteration {
		return s
	}
	return nil
}

// fixupTemporaryScope resolves and discards a temporary scope on top.
func (a *Z80Assembler) fixupTemporaryScope() {
	if top := a.topScope(); top != nil && top.kind == scopeTemporary {
		a.fixupSymbols(top.fixups, false)
		a.popScope()
	}
}

// addSymbol defines a label in the innermost scope. Temporary labels live
// in a temporary scope; each regular label closes the open one and starts
// a new one, so references recorded after the label see the temporary
// labels that follow it.
func (a *Z80Assembler) addSymbol(name string, v Value) {
	name = a.fold(name)
	temporary := isTemporary(name)
	if top := a.topScope(); top != nil && top.kind == scopeTemporary {
		if !temporary {
			a.fixupTemporaryScope()
			a.pushScope(newScope(scopeTemporary, nil))
		}
	} else {
		a.pushScope(newScope(scopeTemporary, nil))
	}
	symbols := a.module().symbols
	if temporary {
		symbols = a.topScope().symbols
	} else if scope := a.topNonTemporary(); scope != nil {
		symbols = scope.symbols
	}
	if _, exists := symbols[name]; exists {
		a.reportError(ErrDuplicateSymbol, name)
		return
	}
	symbols[name] = &symbolInfo{name: name, value: v, kind: SymbolLabel}
}

// lookupSymbol resolves a name for module idx seen through scopes and marks
// the symbol used.
func (a *Z80Assembler) lookupSymbol(idx int, scopes []*symbolScope, name string, global bool) (Value, bool) {
	sym, v, ok := a.findSymbol(idx, scopes, name, global)
	if sym != nil {
		sym.used = true
	}
	return v, ok
}

func (a *Z80Assembler) findSymbol(idx int, scopes []*symbolScope, name string, global bool) (*symbolInfo, Value, bool) {
	name = a.fold(name)
	switch {
	case global:
		return a.modules.resolveCompound(idx, name, true)
	case strings.Contains(name, "."):
		if sym, v, ok := a.modules.resolveCompound(idx, name, false); ok {
			return sym, v, ok
		}
	}
	return a.modules.resolveSimple(idx, scopes, name)
}

// ---------------------------------------------------------------------------
// EvaluationContext
// ---------------------------------------------------------------------------

// CurrentAddress implements EvaluationContext; it is $ of the current line.
func (a *Z80Assembler) CurrentAddress() uint16 { return a.instructionAddress() }

// SymbolValue implements EvaluationContext.
func (a *Z80Assembler) SymbolValue(name string, startFromGlobal bool) (Value, bool) {
	return a.lookupSymbol(a.current, a.module().scopes, name, startFromGlobal)
}

// LoopCounterValue implements EvaluationContext.
func (a *Z80Assembler) LoopCounterValue() Value {
	iter := a.innermostIteration()
	if iter == nil {
		a.reportError(ErrCounterOutside)
		return ErrorValue
	}
	return IntValue(iter.loopCounter)
}

// ReportEvaluationError implements EvaluationContext.
func (a *Z80Assembler) ReportEvaluationError(code ErrorCode, args ...interface{}) {
	a.reportError(code, args...)
}

// Random returns the generator behind rnd().
func (a *Z80Assembler) Random() *rand.Rand { return a.rng }

func (a *Z80Assembler) seedRandom(seed uint64) {
	a.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
}

// evaluate returns NonEvaluated when the expression references symbols not
// defined yet; the caller records a fixup.
func (a *Z80Assembler) evaluate(e *Expr) Value {
	if !readyToEvaluate(a, e) {
		return NonEvaluated
	}
	return Evaluate(a, e)
}

// evaluateImmediate evaluates now; unknown symbols are errors.
func (a *Z80Assembler) evaluateImmediate(e *Expr) Value {
	return Evaluate(a, e)
}

// evaluateNumber evaluates immediately and rejects strings.
func (a *Z80Assembler) evaluateNumber(e *Expr) (Value, bool) {
	v := a.evaluateImmediate(e)
	if !v.IsValid() {
		return v, false
	}
	if v.Type() == ValueString {
		a.reportError(ErrStringNotAllowed)
		return ErrorValue, false
	}
	return v, true
}

// ---------------------------------------------------------------------------
// Error reporting
// ---------------------------------------------------------------------------

func (a *Z80Assembler) reportError(code ErrorCode, args ...interface{}) {
	a.reportAt(a.line.src, a.line.col, a.macroChain, code, args...)
}

// reportAt records a diagnostic. Inside a loop the same error of the same
// line is reported once; inside macro expansions the invocation chain is
// reported first.
func (a *Z80Assembler) reportAt(src sourceLine, col int, chain []*asmLine, code ErrorCode, args ...interface{}) {
	if loop := a.loopErrorScope(); loop != nil {
		key := reportKey{code: code, file: src.fileIndex, line: src.line}
		if loop.reported[key] {
			return
		}
		if loop.reported == nil {
			loop.reported = make(map[reportKey]bool)
		}
		loop.reported[key] = true
	}

	msg := code.message(args...)
	if len(chain) > 0 {
		nums := make([]string, len(chain))
		for i, inv := range chain {
			nums[i] = fmt.Sprint(inv.src.line)
			a.out.Errors = append(a.out.Errors, a.newError(inv.src, inv.col, ErrMacroInvocation, ErrMacroInvocation.message()))
		}
		msg = "(from macro invocation through " + strings.Join(nums, ", ") + ") " + msg
	}
	if col < 1 {
		col = 1
	}
	e := a.newError(src, col, code, msg)
	a.out.Errors = append(a.out.Errors, e)
	a.log.Debug("diagnostic", "code", string(code), "file", e.File, "line", e.Line, "message", msg)
}

func (a *Z80Assembler) newError(src sourceLine, col int, code ErrorCode, msg string) AssemblerError {
	file := ""
	if src.fileIndex >= 0 && src.fileIndex < len(a.out.SourceFiles) {
		file = a.out.SourceFiles[src.fileIndex]
	}
	return AssemblerError{
		Code:      code,
		Message:   msg,
		File:      file,
		FileIndex: src.fileIndex,
		Line:      src.line,
		Column:    col,
	}
}

// loopErrorScope returns the loop scope owning the current iteration.
func (a *Z80Assembler) loopErrorScope() *symbolScope {
	if a.out == nil || len(a.modules.nodes) == 0 {
		return nil
	}
	scopes := a.module().scopes
	for i := len(scopes) - 1; i >= 0; i-- {
		switch scopes[i].kind {
		case scopeIteration, scopeLoop:
			return scopes[i].errorOwner()
		case scopeTemporary:
			continue
		default:
			return nil
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Line processing
// ---------------------------------------------------------------------------

// emitLines processes a block of lines; statements consume their bodies by
// advancing the index.
func (a *Z80Assembler) emitLines(lines []*asmLine) {
	for idx := 0; idx < len(lines); idx++ {
		a.emitLine(lines, &idx)
	}
}

// emitLine processes lines[*idx].
func (a *Z80Assembler) emitLine(lines []*asmLine, idx *int) {
	line := lines[*idx]
	a.line = line
	a.ensureSegment()

	if line.kind == LineEmpty || line.kind == LineLabelOnly {
		if line.label == "" || a.cloningStruct {
			return
		}
		name := a.fold(line.label)
		if a.modules.findStruct(a.current, name) != nil {
			a.reportError(ErrStructNoParens, line.label)
			return
		}
		if a.modules.findMacro(a.current, name) != nil {
			a.reportError(ErrMacroNoParens, line.label)
			return
		}
		if a.hangingLabel != nil {
			a.createHangingLabel()
		}
		a.hangingLabel = line
		return
	}

	label := line.label
	if a.hangingLabel != nil {
		if label == "" {
			label = a.hangingLabel.label
		} else if !(a.cloningStruct || (line.kind.isByteEmitting() && a.structInv != nil)) {
			a.createHangingLabel()
		}
		a.hangingLabel = nil
	}

	if label != "" && !(line.kind.setsOwnLabel() || a.cloningStruct ||
		(line.field && line.kind.isByteEmitting() && a.structInv != nil)) {
		if !line.field {
			a.addSymbol(label, IntValue(int64(a.currentAddress())))
		}
	}

	if line.macroParams {
		if len(a.macroChain) > 0 {
			a.reportError(ErrMacroParamInBody)
		} else {
			a.reportError(ErrMacroParamOut)
		}
		return
	}

	if a.structInv != nil {
		if !line.field {
			if !a.closeStructInvocation() {
				return
			}
		} else {
			if !line.kind.isByteEmitting() {
				a.reportError(ErrStructLine)
				return
			}
			if label != "" && !a.selectStructField(label) {
				return
			}
		}
	} else if line.field {
		a.reportError(ErrFieldOutside)
		return
	}

	item := ListFileItem{
		FileIndex:         line.src.fileIndex,
		LineNumber:        line.src.line,
		Address:           a.currentAddress(),
		SegmentIndex:      a.segmentIndex(),
		CodeStartIndex:    len(a.segment.Code),
		SourceText:        line.src.text,
		IsMacroInvocation: len(a.macroChain) > 0,
	}
	segBefore := a.segment

	switch line.kind {
	case LineEmpty, LineLabelOnly:
		// handled above

	case LineInstruction:
		a.markInstructionStart()
		a.emitInstruction(line)

	case LineInvocation:
		a.markInstructionStart()
		a.processInvocation(line)

	case LineOrg:
		a.markInstructionStart()
		a.processOrg(line, label)
	case LineBank:
		a.markInstructionStart()
		a.processBank(line, label)
	case LineEnt, LineXent:
		a.markInstructionStart()
		a.processEnt(line)
	case LineDisp:
		a.markInstructionStart()
		a.processDisp(line)
	case LineXorg:
		a.processXorg(line)
	case LineEqu:
		a.markInstructionStart()
		a.processEqu(line, label)
	case LineVar:
		a.markInstructionStart()
		a.processVar(line, label)
	case LineDefb, LineDefw, LineDefm, LineDefn, LineDefc, LineDefs, LineFillb, LineFillw,
		LineDefh, LineDefg, LineDefgx:
		a.markInstructionStart()
		a.processDataPragma(line)
	case LineSkip:
		a.markInstructionStart()
		a.processSkip(line)
	case LineAlign:
		a.markInstructionStart()
		a.processAlign(line)
	case LineTrace, LineTraceHex:
		a.processTrace(line)
	case LineRndSeed:
		a.processRndSeed(line)
	case LineError:
		a.processErrorPragma(line)
	case LineIncludeBin:
		a.markInstructionStart()
		a.processIncludeBin(line)
	case LineCompareBin:
		a.processCompareBin(line)
	case LineModel:
		a.applyModel(line)

	case LineMacro:
		a.collectMacro(lines, idx, label)
	case LineStruct:
		a.collectStruct(lines, idx, label)
	case LineLoop:
		a.processLoop(lines, idx)
	case LineWhile:
		a.processWhile(lines, idx)
	case LineRepeat:
		a.processRepeat(lines, idx)
	case LineFor:
		a.processFor(lines, idx)
	case LineIf, LineIfUsed, LineIfNUsed:
		a.processIf(lines, idx)
	case LineProc:
		a.processProc(lines, idx)
	case LineModule:
		a.processModule(lines, idx, label)
	case LineBreak:
		a.processBreak()
	case LineContinue:
		a.processContinue()

	case LineEndm:
		a.reportError(ErrOrphanEnd, ".endm")
	case LineEndl:
		a.reportError(ErrOrphanEnd, ".endl")
	case LineEndw:
		a.reportError(ErrOrphanEnd, ".endw")
	case LineUntil:
		a.reportError(ErrOrphanEnd, ".until")
	case LineNext:
		a.reportError(ErrOrphanEnd, ".next")
	case LineElif:
		a.reportError(ErrOrphanEnd, ".elif")
	case LineElse:
		a.reportError(ErrOrphanEnd, ".else")
	case LineEndif:
		a.reportError(ErrOrphanEnd, ".endif")
	case LineEndp:
		a.reportError(ErrOrphanEnd, ".endp")
	case LineEndModule:
		a.reportError(ErrOrphanEnd, ".endmodule")
	case LineEnds:
		a.reportError(ErrOrphanEnd, ".ends")
	}

	if line.kind == LineInvocation && a.structInv == nil {
		return // the expanded macro lines are listed themselves
	}
	if !a.cloningStruct && a.segment == segBefore && len(a.segment.Code) > item.CodeStartIndex {
		item.CodeLength = len(a.segment.Code) - item.CodeStartIndex
		a.out.ListFileItems = append(a.out.ListFileItems, item)
	}
}

// createHangingLabel defines a label that stood alone on its line at the
// current address.
func (a *Z80Assembler) createHangingLabel() {
	saved := a.line
	a.line = a.hangingLabel
	a.addSymbol(a.hangingLabel.label, IntValue(int64(a.currentAddress())))
	a.line = saved
}
