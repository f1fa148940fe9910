// z80asm_pragma.go - Pragma processing: addresses, symbols and data emission

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
	"os"
	"path/filepath"
	"strings"
	"time"
)

// pragmaName returns the pragma as ".name" for messages.
func pragmaName(line *asmLine) string {
	return "." + strings.ToLower(strings.TrimPrefix(line.keyword, "."))
}

// put writes one byte of a data pragma. While a struct definition is being
// measured the byte is only counted; during a struct invocation it goes to
// the pending struct image.
func (a *Z80Assembler) put(b byte) {
	switch {
	case a.sizing != nil:
		*a.sizing++
	case a.structInv != nil:
		inv := a.structInv
		inv.bytes[inv.offset] = b
		inv.offset++
	default:
		a.emitByte(b)
	}
}

// fillLimit bounds the repeat count of .defs, .fillb and .fillw by the room
// left in the destination. One extra item is kept so that the overflow is
// still reported by the emitter.
func (a *Z80Assembler) fillLimit(count int64, width int) int64 {
	var room int
	switch {
	case a.sizing != nil:
		room = defaultSegmentMax + 1 - *a.sizing
	case a.structInv != nil:
		room = a.structInv.def.size - a.structInv.offset
	default:
		a.ensureSegment()
		room = a.segment.MaxLength - len(a.segment.Code)
	}
	return min(count, int64(max(room, 0)/width+1))
}

// putValue writes a .defb or .defw item. Values that depend on unknown
// symbols are emitted as zero and fixed up later.
func (a *Z80Assembler) putValue(e *Expr, word bool) {
	if a.sizing != nil {
		*a.sizing++
		if word {
			*a.sizing++
		}
		return
	}
	v := a.evaluate(e)
	switch {
	case v.IsNonEvaluated():
		if inv := a.structInv; inv != nil {
			inv.fields = append(inv.fields, fieldValue{
				offset: inv.offset, expr: e, word: word, src: a.line.src, col: a.line.col,
			})
		} else {
			typ := fixupBit8
			if word {
				typ = fixupBit16
			}
			a.recordFixup(typ, e, -1)
		}
		v = IntValue(0)
	case !v.IsValid():
		return
	case v.Type() == ValueString:
		a.reportError(ErrNumericExpected)
		return
	}
	a.put(v.AsByte())
	if word {
		a.put(byte(v.AsWord() >> 8))
	}
}

// ---------------------------------------------------------------------------
// Address and symbol pragmas
// ---------------------------------------------------------------------------

func (a *Z80Assembler) processOrg(line *asmLine, label string) {
	v, ok := a.evaluateNumber(line.exprs[0])
	if !ok {
		return
	}
	addr := v.AsWord()
	if len(a.segment.Code) > 0 {
		a.startSegment(addr, 0x10000-int(addr))
	} else {
		a.segment.StartAddress = addr
		a.segment.MaxLength = 0x10000 - int(addr)
	}
	a.segment.currentInstructionOffset = 0
	if label != "" {
		a.fixupTemporaryScope()
		a.addSymbol(label, IntValue(int64(addr)))
	}
}

func (a *Z80Assembler) processBank(line *asmLine, label string) {
	if label != "" {
		a.reportError(ErrBankWithLabel)
		return
	}
	v, ok := a.evaluateNumber(line.exprs[0])
	if !ok {
		return
	}
	bank := v.AsLong()
	if bank < 0 || bank > 7 {
		a.reportError(ErrBankRange)
		return
	}
	offset := int64(0)
	if len(line.exprs) > 1 {
		ov, ok := a.evaluateNumber(line.exprs[1])
		if !ok {
			return
		}
		offset = ov.AsLong()
		if offset < 0 || offset > bankSize-1 {
			a.reportError(ErrBankOffset)
			return
		}
	}
	if model := a.modelName(); model == "" || model == "SPECTRUM48" {
		a.reportError(ErrBankModel)
		return
	}
	if a.usedBanks[int(bank)] {
		a.reportError(ErrBankReused, bank)
		return
	}
	a.usedBanks[int(bank)] = true

	if len(a.segment.Code) > 0 || a.segment.Bank >= 0 {
		a.startSegment(0, 0)
	}
	seg := a.segment
	seg.StartAddress = uint16(bankStartAddress + offset)
	seg.Bank = int(bank)
	seg.BankOffset = int(offset)
	seg.MaxLength = bankSize - int(offset)
	seg.currentInstructionOffset = 0
}

// processEnt handles .ent and .xent.
func (a *Z80Assembler) processEnt(line *asmLine) {
	if !a.inGlobalScope() {
		a.reportError(ErrEntNotGlobal, pragmaName(line))
		return
	}
	v := a.evaluate(line.exprs[0])
	typ, target := fixupEnt, &a.out.EntryAddress
	if line.kind == LineXent {
		typ, target = fixupXent, &a.out.ExportEntryAddress
	}
	switch {
	case v.IsNonEvaluated():
		a.recordFixup(typ, line.exprs[0], -1)
	case !v.IsValid():
	case v.Type() == ValueString:
		a.reportError(ErrStringNotAllowed)
	default:
		addr := v.AsWord()
		*target = &addr
	}
}

func (a *Z80Assembler) processDisp(line *asmLine) {
	v, ok := a.evaluateNumber(line.exprs[0])
	if !ok {
		return
	}
	seg := a.segment
	seg.Displacement = int(v.AsLong())
	seg.hasDisp = true
	seg.dispOffset = len(seg.Code)
}

// processXorg sets the save address of the current segment. It may be
// changed freely until the segment has code.
func (a *Z80Assembler) processXorg(line *asmLine) {
	v, ok := a.evaluateNumber(line.exprs[0])
	if !ok {
		return
	}
	a.ensureSegment()
	seg := a.segment
	if len(seg.Code) > 0 && seg.XorgValue != nil {
		a.reportError(ErrXorgTwice)
		return
	}
	addr := v.AsWord()
	seg.XorgValue = &addr
}

func (a *Z80Assembler) processEqu(line *asmLine, label string) {
	if label == "" {
		a.reportError(ErrEquWithoutLabel)
		return
	}
	a.fixupTemporaryScope()
	name := a.fold(label)
	if a.symbolInScope(name) != nil {
		a.reportError(ErrDuplicateSymbol, name)
		return
	}
	v := a.evaluate(line.exprs[0])
	switch {
	case v.IsNonEvaluated():
		f := a.recordFixup(fixupEqu, line.exprs[0], -1)
		f.label = name
		f.target = a.topScope()
	case v.IsValid():
		a.addSymbol(name, v)
	}
}

// symbolInScope returns the symbol named name in the innermost scope, or
// in the current module when no local scope is open.
func (a *Z80Assembler) symbolInScope(name string) *symbolInfo {
	symbols := a.module().symbols
	if top := a.topScope(); top != nil {
		symbols = top.symbols
	}
	return symbols[name]
}

// findVariable returns an existing variable visible from the current
// scope: the local scopes outermost first, then the module.
func (a *Z80Assembler) findVariable(name string) *symbolInfo {
	mod := a.module()
	for _, scope := range mod.scopes {
		if sym, ok := scope.symbols[name]; ok && sym.kind == SymbolVar {
			return sym
		}
	}
	if sym, ok := mod.symbols[name]; ok && sym.kind == SymbolVar {
		return sym
	}
	return nil
}

func (a *Z80Assembler) processVar(line *asmLine, label string) {
	if label == "" {
		a.reportError(ErrVarWithoutLabel)
		return
	}
	a.fixupTemporaryScope()
	v := a.evaluateImmediate(line.exprs[0])
	if !v.IsValid() {
		return
	}
	name := a.fold(label)
	if sym := a.symbolInScope(name); sym != nil && sym.kind != SymbolVar {
		a.reportError(ErrVarReusesSymbol)
		return
	}
	if sym := a.findVariable(name); sym != nil {
		sym.value = v
		return
	}
	symbols := a.module().symbols
	if top := a.topScope(); top != nil {
		symbols = top.symbols
	}
	symbols[name] = &symbolInfo{name: name, value: v, kind: SymbolVar}
}

func (a *Z80Assembler) processSkip(line *asmLine) {
	v, ok := a.evaluateNumber(line.exprs[0])
	if !ok {
		return
	}
	target := v.AsWord()
	current := a.currentAddress()
	if target < current {
		a.reportError(ErrSkipBackwards, target, current)
		return
	}
	fill := byte(0xff)
	if len(line.exprs) > 1 {
		fv, ok := a.evaluateNumber(line.exprs[1])
		if !ok {
			return
		}
		fill = fv.AsByte()
	}
	for n := int(target) - int(current); n > 0; n-- {
		a.emitByte(fill)
	}
}

func (a *Z80Assembler) processAlign(line *asmLine) {
	alignment := 0x100
	if len(line.exprs) > 0 {
		v, ok := a.evaluateNumber(line.exprs[0])
		if !ok {
			return
		}
		n := v.AsLong()
		if n < 1 || n > bankSize {
			a.reportError(ErrAlignRange)
			return
		}
		alignment = int(n)
	}
	current := int(a.currentAddress())
	for addr := current; addr%alignment != 0; addr++ {
		a.emitByte(0)
	}
}

// ---------------------------------------------------------------------------
// Data pragmas
// ---------------------------------------------------------------------------

// processDataPragma handles the byte-emitting pragmas. It serves regular
// lines, struct field assignments and struct size measurement alike; the
// destination is chosen by put.
func (a *Z80Assembler) processDataPragma(line *asmLine) {
	switch line.kind {
	case LineDefb:
		for _, e := range line.exprs {
			a.putValue(e, false)
		}

	case LineDefw:
		for _, e := range line.exprs {
			a.putValue(e, true)
		}

	case LineDefm, LineDefn, LineDefc:
		v := a.evaluateImmediate(line.exprs[0])
		if !v.IsValid() {
			return
		}
		if v.Type() != ValueString {
			a.reportError(ErrStringValueExpected, pragmaName(line))
			return
		}
		data := []byte(v.AsString())
		if line.kind == LineDefc && len(data) > 0 {
			data[len(data)-1] |= 0x80
		}
		for _, b := range data {
			a.put(b)
		}
		if line.kind == LineDefn {
			a.put(0)
		}

	case LineDefh:
		v := a.evaluateImmediate(line.exprs[0])
		if !v.IsValid() {
			return
		}
		if v.Type() != ValueString {
			a.reportError(ErrDefhNotString)
			return
		}
		text := v.AsString()
		if len(text)%2 != 0 {
			a.reportError(ErrDefhInvalid)
			return
		}
		for i := 0; i < len(text); i += 2 {
			if !isHexDigit(text[i]) || !isHexDigit(text[i+1]) {
				a.reportError(ErrDefhInvalid)
				return
			}
		}
		for i := 0; i < len(text); i += 2 {
			a.put(hexNibble(text[i])<<4 | hexNibble(text[i+1]))
		}

	case LineDefs:
		count, ok := a.evaluateNumber(line.exprs[0])
		if !ok {
			return
		}
		fill := byte(0)
		if len(line.exprs) > 1 {
			fv, ok := a.evaluateNumber(line.exprs[1])
			if !ok {
				return
			}
			fill = fv.AsByte()
		}
		for n := a.fillLimit(count.AsLong(), 1); n > 0; n-- {
			a.put(fill)
		}

	case LineFillb, LineFillw:
		count, ok := a.evaluateNumber(line.exprs[0])
		if !ok {
			return
		}
		fv, ok := a.evaluateNumber(line.exprs[1])
		if !ok {
			return
		}
		width := 1
		if line.kind == LineFillw {
			width = 2
		}
		for n := a.fillLimit(count.AsLong(), width); n > 0; n-- {
			a.put(fv.AsByte())
			if line.kind == LineFillw {
				a.put(byte(fv.AsWord() >> 8))
			}
		}

	case LineDefg:
		a.putPattern(line.raw, false)

	case LineDefgx:
		v := a.evaluateImmediate(line.exprs[0])
		if !v.IsValid() {
			return
		}
		if v.Type() != ValueString {
			a.reportError(ErrDefgxNotString)
			return
		}
		a.putPattern(strings.TrimSpace(v.AsString()), true)
	}
}

// putPattern emits a .defg/.defgx bit pattern. Each character is one bit,
// '-', '.' and '_' are zeros; the last byte is padded on the right, or on
// the left when the pattern starts with '>'.
func (a *Z80Assembler) putPattern(pattern string, allowAlign bool) {
	if i := strings.Index(pattern, ";"); i >= 0 {
		pattern = pattern[:i]
	} else if i := strings.Index(pattern, "//"); i >= 0 {
		pattern = pattern[:i]
	}
	if pattern == "" {
		a.reportError(ErrDefgEmpty)
		return
	}
	alignLeft := true
	if allowAlign {
		switch pattern[0] {
		case '<':
			pattern = pattern[1:]
		case '>':
			alignLeft = false
			pattern = pattern[1:]
		}
	}
	pattern = strings.ReplaceAll(pattern, " ", "")
	if pattern == "" {
		return
	}
	if rem := len(pattern) % 8; rem > 0 {
		pad := strings.Repeat("_", 8-rem)
		if alignLeft {
			pattern += pad
		} else {
			pattern = pad + pattern
		}
	}

	var bits byte
	for i := 0; i < len(pattern); i++ {
		bits <<= 1
		switch pattern[i] {
		case '-', '.', '_':
		default:
			bits |= 1
		}
		if (i+1)%8 == 0 {
			a.put(bits)
			bits = 0
		}
	}
}

// ---------------------------------------------------------------------------
// Diagnostic and miscellaneous pragmas
// ---------------------------------------------------------------------------

// processTrace handles .trace and .tracehex.
func (a *Z80Assembler) processTrace(line *asmLine) {
	hex := line.kind == LineTraceHex
	var sb strings.Builder
	for _, e := range line.exprs {
		v := a.evaluateImmediate(e)
		switch v.Type() {
		case ValueBool:
			sb.WriteString(v.AsString())
		case ValueInteger:
			n := v.AsLong()
			switch {
			case !hex:
				fmt.Fprintf(&sb, "%d", n)
			case n > 0x10000:
				fmt.Fprintf(&sb, "%08x", n)
			default:
				fmt.Fprintf(&sb, "%04x", n)
			}
		case ValueReal:
			sb.WriteString(v.AsString())
		case ValueString:
			if hex {
				for _, b := range []byte(v.AsString()) {
					fmt.Fprintf(&sb, "%02x", b)
				}
			} else {
				sb.WriteString(v.AsString())
			}
		}
	}
	msg := sb.String()
	a.out.Traces = append(a.out.Traces, Trace{
		FileIndex: line.src.fileIndex,
		Line:      line.src.line,
		Message:   msg,
	})
	a.log.Info("trace", "line", line.src.line, "message", msg)
}

func (a *Z80Assembler) processRndSeed(line *asmLine) {
	seed := uint64(time.Now().UnixNano())
	if len(line.exprs) > 0 {
		v, ok := a.evaluateNumber(line.exprs[0])
		if !ok {
			return
		}
		seed = uint64(v.AsLong())
	}
	a.seedRandom(seed)
}

func (a *Z80Assembler) processErrorPragma(line *asmLine) {
	v := a.evaluateImmediate(line.exprs[0])
	if !v.IsValid() {
		return
	}
	a.reportError(ErrUserError, v.AsString())
}

// binaryCodes are the diagnostics of a pragma that reads a slice of a
// binary file.
type binaryCodes struct {
	name, offset, length, read ErrorCode
}

var (
	includeBinCodes = binaryCodes{ErrIncludeBinName, ErrIncludeBinOffset, ErrIncludeBinLength, ErrIncludeBinRead}
	compareBinCodes = binaryCodes{ErrCompareBinName, ErrCompareBinOffset, ErrCompareBinLength, ErrCompareBinRead}
)

// binaryArgs evaluates the file name, offset and length operands of
// .includebin and .comparebin. A missing length is returned as -1.
func (a *Z80Assembler) binaryArgs(line *asmLine, codes binaryCodes) (path string, offset, length int64, ok bool) {
	nameValue := a.evaluateImmediate(line.exprs[0])
	if !nameValue.IsValid() {
		return "", 0, 0, false
	}
	if nameValue.Type() != ValueString {
		a.reportError(codes.name)
		return "", 0, 0, false
	}

	length = -1
	if len(line.exprs) > 1 {
		v := a.evaluateImmediate(line.exprs[1])
		if !v.IsValid() {
			return "", 0, 0, false
		}
		if v.Type() != ValueInteger {
			a.reportError(ErrIntegerExpected)
			return "", 0, 0, false
		}
		offset = v.AsLong()
		if offset < 0 {
			a.reportError(codes.offset)
			return "", 0, 0, false
		}
	}
	if len(line.exprs) > 2 {
		v := a.evaluateImmediate(line.exprs[2])
		if !v.IsValid() {
			return "", 0, 0, false
		}
		if v.Type() != ValueInteger {
			a.reportError(ErrIntegerExpected)
			return "", 0, 0, false
		}
		length = v.AsLong()
		if length < 0 {
			a.reportError(codes.length)
			return "", 0, 0, false
		}
	}
	return a.binaryPath(line.src.fileIndex, nameValue.AsString()), offset, length, true
}

// readBinary returns length bytes of the file from offset, or the rest of
// the file when length is negative.
func (a *Z80Assembler) readBinary(path string, offset, length int64, codes binaryCodes) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		a.reportError(codes.read, path, err.Error())
		return nil, false
	}
	size := int64(len(data))
	if offset >= size {
		a.reportError(codes.offset)
		return nil, false
	}
	if length < 0 {
		length = size - offset
	}
	if offset+length > size {
		a.reportError(codes.length)
		return nil, false
	}
	return data[offset : offset+length], true
}

// processIncludeBin emits a slice of a binary file. Nothing is emitted
// unless the file, the offset and the length are all valid.
func (a *Z80Assembler) processIncludeBin(line *asmLine) {
	path, offset, length, ok := a.binaryArgs(line, includeBinCodes)
	if !ok {
		return
	}
	data, ok := a.readBinary(path, offset, length, includeBinCodes)
	if !ok {
		return
	}
	if len(a.segment.Code)+len(data) > a.segment.MaxLength {
		a.reportError(ErrSegmentTooLong, a.segment.MaxLength)
		return
	}
	a.log.Debug("includebin", "file", path, "offset", offset, "length", len(data))
	a.emitBytes(data...)
}

// binaryComparison is a .comparebin request. The code of segment emitted
// before the pragma is checked against the file once fixups are resolved.
type binaryComparison struct {
	line    *asmLine
	macros  []*asmLine
	segment *Segment
	emitted int
	path    string
	offset  int64
	length  int64
}

func (a *Z80Assembler) processCompareBin(line *asmLine) {
	path, offset, length, ok := a.binaryArgs(line, compareBinCodes)
	if !ok {
		return
	}
	a.ensureSegment()
	a.compareBins = append(a.compareBins, binaryComparison{
		line:    line,
		macros:  append([]*asmLine(nil), a.macroChain...),
		segment: a.segment,
		emitted: len(a.segment.Code),
		path:    path,
		offset:  offset,
		length:  length,
	})
}

// compareBinaries runs the recorded .comparebin checks. Each reports at
// most one difference.
func (a *Z80Assembler) compareBinaries() {
	saved := a.macroChain
	defer func() { a.macroChain = saved }()
	for _, c := range a.compareBins {
		a.line = c.line
		a.macroChain = c.macros
		data, ok := a.readBinary(c.path, c.offset, c.length, compareBinCodes)
		if !ok {
			continue
		}
		if c.emitted > len(data) {
			a.reportError(ErrCompareBinMismatch,
				fmt.Sprintf("the file has %d bytes to compare, the segment has %d", len(data), c.emitted))
			continue
		}
		for i, b := range c.segment.Code[:c.emitted] {
			if b != data[i] {
				a.reportError(ErrCompareBinMismatch,
					fmt.Sprintf("output byte at offset %d is $%02X, the file has $%02X", i, b, data[i]))
				break
			}
		}
		a.log.Debug("comparebin", "file", c.path, "bytes", c.emitted)
	}
}

// binaryPath resolves the file name of .includebin or .comparebin against
// the directory of the source file, then the include paths.
func (a *Z80Assembler) binaryPath(fileIndex int, name string) string {
	from := a.mainPath
	if fileIndex > 0 && fileIndex < len(a.out.SourceFiles) {
		from = a.out.SourceFiles[fileIndex]
	}
	if path, ok := a.resolveInclude(from, name); ok {
		return path
	}
	if filepath.IsAbs(name) || from == "" {
		return name
	}
	return filepath.Join(filepath.Dir(from), name)
}
