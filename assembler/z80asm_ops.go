// z80asm_ops.go - Z80 instruction encoder

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

// simpleOps are the instructions without operands.
var simpleOps = map[string]uint16{
	"nop": 0x00, "rlca": 0x07, "rrca": 0x0f, "rla": 0x17, "rra": 0x1f,
	"daa": 0x27, "cpl": 0x2f, "scf": 0x37, "ccf": 0x3f, "halt": 0x76,
	"exx": 0xd9, "di": 0xf3, "ei": 0xfb,
	"neg": 0xed44, "retn": 0xed45, "reti": 0xed4d, "rrd": 0xed67, "rld": 0xed6f,
	"ldi": 0xeda0, "cpi": 0xeda1, "ini": 0xeda2, "outi": 0xeda3,
	"ldd": 0xeda8, "cpd": 0xeda9, "ind": 0xedaa, "outd": 0xedab,
	"ldir": 0xedb0, "cpir": 0xedb1, "inir": 0xedb2, "otir": 0xedb3,
	"lddr": 0xedb8, "cpdr": 0xedb9, "indr": 0xedba, "otdr": 0xedbb,

	// ZX Spectrum Next extensions
	"swapnib": 0xed23, "swap": 0xed23, "mirror": 0xed24, "mul": 0xed30,
	"bsla": 0xed28, "bsra": 0xed29, "bsrl": 0xed2a, "bsrf": 0xed2b, "brlc": 0xed2c,
	"outinb": 0xed90, "otib": 0xed90, "pixeldn": 0xed93, "pxdn": 0xed93,
	"pixelad": 0xed94, "pxad": 0xed94, "setae": 0xed95, "stae": 0xed95,
	"ldix": 0xeda4, "ldws": 0xeda5, "lddx": 0xedac, "ldirx": 0xedb4, "lirx": 0xedb4,
	"ldpirx": 0xedb7, "lprx": 0xedb7, "lddrx": 0xedbc, "ldrx": 0xedbc,
}

var nextOnlyOps = map[string]bool{
	"swapnib": true, "swap": true, "mirror": true, "mul": true,
	"bsla": true, "bsra": true, "bsrl": true, "bsrf": true, "brlc": true,
	"outinb": true, "otib": true, "pixeldn": true, "pxdn": true,
	"pixelad": true, "pxad": true, "setae": true, "stae": true,
	"ldix": true, "ldws": true, "lddx": true, "ldirx": true, "lirx": true,
	"ldpirx": true, "lprx": true, "lddrx": true, "ldrx": true,
	"nextreg": true, "test": true,
}

var operandOps = []string{
	"ld", "push", "pop", "call", "jp", "jr", "djnz", "ret", "rst", "im",
	"inc", "dec", "ex", "add", "adc", "sbc", "sub", "and", "xor", "or", "cp",
	"in", "out", "rlc", "rrc", "rl", "rr", "sla", "sra", "sll", "sli", "srl",
	"bit", "res", "set", "nextreg", "test",
}

// mnemonics holds every instruction name the parser recognizes.
var mnemonics = func() map[string]bool {
	m := make(map[string]bool, len(simpleOps)+len(operandOps))
	for name := range simpleOps {
		m[name] = true
	}
	for _, name := range operandOps {
		m[name] = true
	}
	return m
}()

var (
	reg8Order      = map[string]int{"b": 0, "c": 1, "d": 2, "e": 3, "h": 4, "l": 5, "a": 7}
	reg16Order     = map[string]int{"bc": 0, "de": 1, "hl": 2, "sp": 3}
	conditionOrder = map[string]int{"nz": 0, "z": 1, "nc": 2, "c": 3, "po": 4, "pe": 5, "p": 6, "m": 7}
	aluOrder       = map[string]int{"add": 0, "adc": 1, "sub": 2, "sbc": 3, "and": 4, "xor": 5, "or": 6, "cp": 7}
	shiftOrder     = map[string]int{"rlc": 0, "rrc": 1, "rl": 2, "rr": 3, "sla": 4, "sra": 5, "sll": 6, "sli": 6, "srl": 7}
	popCodes       = map[string]uint16{"bc": 0xc1, "de": 0xd1, "hl": 0xe1, "af": 0xf1, "ix": 0xdde1, "iy": 0xfde1}
)

var incDecCodes = map[string][2]uint16{
	"bc": {0x03, 0x0b}, "de": {0x13, 0x1b}, "hl": {0x23, 0x2b}, "sp": {0x33, 0x3b},
	"ix": {0xdd23, 0xdd2b}, "iy": {0xfd23, 0xfd2b},
	"xh": {0xdd24, 0xdd25}, "xl": {0xdd2c, 0xdd2d},
	"yh": {0xfd24, 0xfd25}, "yl": {0xfd2c, 0xfd2d},
}

// indexPrefix returns DD for ix based registers and FD for iy based ones.
func indexPrefix(reg string) byte {
	if reg == "ix" || reg == "xh" || reg == "xl" {
		return 0xdd
	}
	return 0xfd
}

// halfLow reports whether an index half register is the low byte.
func halfLow(reg string) bool { return reg[1] == 'l' }

// emitInstruction encodes an instruction line.
func (a *Z80Assembler) emitInstruction(line *asmLine) {
	m, ops := line.mnemonic, line.operands
	if nextOnlyOps[m] && a.modelName() != "NEXT" {
		a.reportError(ErrNextOnly)
		return
	}
	if code, ok := simpleOps[m]; ok {
		if len(ops) != 0 {
			a.invalidOperands()
			return
		}
		a.emitOpCode(code)
		return
	}

	switch m {
	case "ld":
		if len(ops) != 2 {
			a.invalidOperands()
			return
		}
		a.emitLd(ops[0], ops[1])
	case "push", "pop":
		a.emitStack(m == "push", ops)
	case "call":
		a.emitCall(ops)
	case "jp":
		a.emitJp(ops)
	case "jr":
		a.emitJr(ops)
	case "djnz":
		if len(ops) != 1 {
			a.invalidOperands()
			return
		}
		a.emitRelativeJump(ops[0], 0x10)
	case "ret":
		a.emitRet(ops)
	case "rst":
		a.emitRst(ops)
	case "im":
		a.emitIm(ops)
	case "inc", "dec":
		a.emitIncDec(m == "inc", ops)
	case "ex":
		a.emitEx(ops)
	case "add", "adc", "sbc":
		a.emitAlu1(m, ops)
	case "sub", "and", "xor", "or", "cp":
		a.emitAlu2(m, ops)
	case "in":
		a.emitIn(ops)
	case "out":
		a.emitOut(ops)
	case "rlc", "rrc", "rl", "rr", "sla", "sra", "sll", "sli", "srl":
		a.emitShift(shiftOrder[m], ops)
	case "bit":
		a.emitBitOp(0x40, false, ops)
	case "res":
		a.emitBitOp(0x80, true, ops)
	case "set":
		a.emitBitOp(0xc0, true, ops)
	case "nextreg":
		a.emitNextReg(ops)
	case "test":
		if len(ops) != 1 || ops[0].kind != opExpr {
			a.invalidOperands()
			return
		}
		a.emitOpCode(0xed27)
		a.emitNumericExpr(ops[0].expr, fixupBit8)
	default:
		a.reportError(ErrUnknownInstruction, m)
	}
}

func (a *Z80Assembler) invalidOperands() { a.reportError(ErrInvalidOperands) }

// condition returns the order of a condition operand; the c register
// doubles as the carry condition.
func condition(op Operand) (int, bool) {
	if op.kind == opCondition || (op.kind == opReg8 && op.reg == "c") {
		return conditionOrder[op.reg], true
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Expression operands
// ---------------------------------------------------------------------------

// emitNumericExpr emits an 8 or 16 bit operand value, recording a fixup
// when it references symbols not defined yet.
func (a *Z80Assembler) emitNumericExpr(e *Expr, typ fixupType) {
	v := a.evaluate(e)
	switch {
	case v.Type() == ValueError:
		return
	case v.IsNonEvaluated():
		a.recordFixup(typ, e, -1)
		v = IntValue(0)
	case v.Type() == ValueString:
		a.reportError(ErrStringNotAllowed)
		v = IntValue(0)
	}
	w := v.AsWord()
	switch typ {
	case fixupBit16:
		a.emitWord(w)
	case fixupBit16Be:
		a.emitByte(byte(w >> 8))
		a.emitByte(byte(w))
	default:
		a.emitByte(byte(w))
	}
}

// emitRelativeJump emits jr/djnz with a displacement from $+2.
func (a *Z80Assembler) emitRelativeJump(target Operand, opcode byte) {
	if target.kind != opExpr {
		a.invalidOperands()
		return
	}
	v := a.evaluate(target.expr)
	dist := 0
	switch {
	case v.IsNonEvaluated():
		a.recordFixup(fixupJr, target.expr, -1)
	case !v.IsValid():
		return
	case v.Type() == ValueString:
		a.reportError(ErrStringNotAllowed)
		return
	default:
		dist = int(v.AsWord()) - (int(a.currentAddress()) + 2)
		if dist < -128 || dist > 127 {
			a.reportError(ErrRelativeJump, dist)
			return
		}
	}
	a.emitByte(opcode)
	a.emitByte(byte(dist))
}

// indexDisplacement evaluates the d of (ix+d). A pending displacement is
// returned as the expression to record, already negated for (ix-d).
func (a *Z80Assembler) indexDisplacement(op Operand) (byte, *Expr) {
	if op.expr == nil {
		return 0, nil
	}
	expr := op.expr
	if op.sign == '-' {
		expr = &Expr{kind: exprUnary, name: "-", args: []*Expr{op.expr}, col: op.expr.col}
	}
	v := a.evaluate(expr)
	switch {
	case v.IsNonEvaluated():
		return 0, expr
	case !v.IsValid():
		return 0, nil
	case v.Type() == ValueString:
		a.reportError(ErrStringNotAllowed)
		return 0, nil
	}
	return v.AsByte(), nil
}

// emitIndexed emits prefix, opcode and displacement of an (ix+d) form.
func (a *Z80Assembler) emitIndexed(op Operand, opcode byte) {
	disp, pending := a.indexDisplacement(op)
	a.emitByte(indexPrefix(op.reg))
	a.emitByte(opcode)
	if pending != nil {
		a.recordFixup(fixupBit8, pending, -1)
	}
	a.emitByte(disp)
}

// emitIndexedBit emits the DD CB d op form.
func (a *Z80Assembler) emitIndexedBit(op Operand, opcode byte) {
	disp, pending := a.indexDisplacement(op)
	a.emitByte(indexPrefix(op.reg))
	a.emitByte(0xcb)
	if pending != nil {
		a.recordFixup(fixupBit8, pending, -1)
	}
	a.emitByte(disp)
	a.emitByte(opcode)
}

// immediateInt evaluates an operand that must be known on this line.
func (a *Z80Assembler) immediateInt(op Operand) (int64, bool) {
	if op.kind != opExpr {
		a.invalidOperands()
		return 0, false
	}
	v, ok := a.evaluateNumber(op.expr)
	if !ok {
		return 0, false
	}
	return v.AsLong(), true
}

// ---------------------------------------------------------------------------
// Instruction groups
// ---------------------------------------------------------------------------

func (a *Z80Assembler) emitStack(push bool, ops []Operand) {
	if len(ops) != 1 {
		a.invalidOperands()
		return
	}
	op := ops[0]
	switch op.kind {
	case opExpr:
		if !push {
			a.reportError(ErrPopImmediate)
			return
		}
		if a.modelName() != "NEXT" {
			a.reportError(ErrNextOnly)
			return
		}
		a.emitOpCode(0xed8a)
		a.emitNumericExpr(op.expr, fixupBit16Be)
		return
	case opReg16, opReg16Idx, opReg16Spec:
		if code, ok := popCodes[op.reg]; ok {
			if push {
				code |= 0x04
			}
			a.emitOpCode(code)
			return
		}
	}
	a.reportError(ErrStackOperand)
}

func (a *Z80Assembler) emitCall(ops []Operand) {
	switch len(ops) {
	case 1:
		if ops[0].kind != opExpr {
			break
		}
		a.emitByte(0xcd)
		a.emitNumericExpr(ops[0].expr, fixupBit16)
		return
	case 2:
		cc, ok := condition(ops[0])
		if !ok || ops[1].kind != opExpr {
			break
		}
		a.emitByte(byte(0xc4 + cc*8))
		a.emitNumericExpr(ops[1].expr, fixupBit16)
		return
	}
	a.invalidOperands()
}

func (a *Z80Assembler) emitJp(ops []Operand) {
	switch len(ops) {
	case 1:
		op := ops[0]
		switch op.kind {
		case opExpr:
			a.emitByte(0xc3)
			a.emitNumericExpr(op.expr, fixupBit16)
			return
		case opReg16, opRegIndirect:
			if op.reg == "hl" {
				a.emitByte(0xe9)
				return
			}
		case opReg16Idx:
			a.emitOpCode(uint16(indexPrefix(op.reg))<<8 | 0xe9)
			return
		case opIndexed:
			if op.expr == nil {
				a.emitOpCode(uint16(indexPrefix(op.reg))<<8 | 0xe9)
				return
			}
		case opCPort:
			if a.modelName() != "NEXT" {
				a.reportError(ErrNextOnly)
				return
			}
			a.emitOpCode(0xed98)
			return
		}
	case 2:
		cc, ok := condition(ops[0])
		if !ok || ops[1].kind != opExpr {
			break
		}
		a.emitByte(byte(0xc2 + cc*8))
		a.emitNumericExpr(ops[1].expr, fixupBit16)
		return
	}
	a.invalidOperands()
}

func (a *Z80Assembler) emitJr(ops []Operand) {
	switch len(ops) {
	case 1:
		a.emitRelativeJump(ops[0], 0x18)
		return
	case 2:
		cc, ok := condition(ops[0])
		if !ok {
			break
		}
		if cc >= 4 {
			a.reportError(ErrJrCondition)
			return
		}
		a.emitRelativeJump(ops[1], byte(0x20+cc*8))
		return
	}
	a.invalidOperands()
}

func (a *Z80Assembler) emitRet(ops []Operand) {
	switch len(ops) {
	case 0:
		a.emitByte(0xc9)
		return
	case 1:
		if cc, ok := condition(ops[0]); ok {
			a.emitByte(byte(0xc0 + cc*8))
			return
		}
	}
	a.invalidOperands()
}

func (a *Z80Assembler) emitRst(ops []Operand) {
	if len(ops) != 1 {
		a.invalidOperands()
		return
	}
	v, ok := a.immediateInt(ops[0])
	if !ok {
		return
	}
	if v < 0 || v > 0x38 || v%8 != 0 {
		a.reportError(ErrRstTarget, v)
		return
	}
	a.emitByte(byte(0xc7 + v))
}

func (a *Z80Assembler) emitIm(ops []Operand) {
	if len(ops) != 1 {
		a.invalidOperands()
		return
	}
	v, ok := a.immediateInt(ops[0])
	if !ok {
		return
	}
	if v < 0 || v > 2 {
		a.reportError(ErrImMode, v)
		return
	}
	a.emitOpCode([3]uint16{0xed46, 0xed56, 0xed5e}[v])
}

func (a *Z80Assembler) emitIncDec(inc bool, ops []Operand) {
	if len(ops) != 1 {
		a.invalidOperands()
		return
	}
	op := ops[0]
	sel := 1
	if inc {
		sel = 0
	}
	switch op.kind {
	case opReg8:
		a.emitByte(byte(0x04 + sel + reg8Order[op.reg]*8))
		return
	case opReg8Idx, opReg16, opReg16Idx:
		a.emitOpCode(incDecCodes[op.reg][sel])
		return
	case opRegIndirect:
		if op.reg == "hl" {
			a.emitByte(byte(0x34 + sel))
			return
		}
	case opIndexed:
		a.emitIndexed(op, byte(0x34+sel))
		return
	}
	a.invalidOperands()
}

func (a *Z80Assembler) emitEx(ops []Operand) {
	if len(ops) == 2 {
		op1, op2 := ops[0], ops[1]
		switch {
		case op1.reg == "af" && op2.reg == "af'":
			a.emitByte(0x08)
			return
		case op1.kind == opReg16 && op1.reg == "de" && op2.kind == opReg16 && op2.reg == "hl":
			a.emitByte(0xeb)
			return
		case op1.kind == opRegIndirect && op1.reg == "sp":
			if op2.kind == opReg16 && op2.reg == "hl" {
				a.emitByte(0xe3)
				return
			}
			if op2.kind == opReg16Idx {
				a.emitOpCode(uint16(indexPrefix(op2.reg))<<8 | 0xe3)
				return
			}
		}
	}
	a.invalidOperands()
}

// emitAluOperand emits an 8-bit ALU operation on the accumulator.
func (a *Z80Assembler) emitAluOperand(alu int, op Operand) {
	switch op.kind {
	case opReg8:
		a.emitByte(byte(0x80 + alu*8 + reg8Order[op.reg]))
		return
	case opRegIndirect:
		if op.reg == "hl" {
			a.emitByte(byte(0x86 + alu*8))
			return
		}
	case opReg8Idx:
		code := 0x84
		if halfLow(op.reg) {
			code = 0x85
		}
		a.emitByte(indexPrefix(op.reg))
		a.emitByte(byte(code + alu*8))
		return
	case opIndexed:
		a.emitIndexed(op, byte(0x86+alu*8))
		return
	case opExpr:
		a.emitByte(byte(0xc6 + alu*8))
		a.emitNumericExpr(op.expr, fixupBit8)
		return
	}
	a.invalidOperands()
}

// emitAlu1 handles add, adc and sbc, which also have 16-bit forms.
func (a *Z80Assembler) emitAlu1(m string, ops []Operand) {
	alu := aluOrder[m]
	switch len(ops) {
	case 1:
		a.emitAluOperand(alu, ops[0])
		return
	case 2:
	default:
		a.invalidOperands()
		return
	}
	op1, op2 := ops[0], ops[1]
	switch op1.kind {
	case opReg8:
		if op1.reg != "a" {
			a.reportError(ErrAluFirstOperand)
			return
		}
		a.emitAluOperand(alu, op2)
		return

	case opReg16:
		switch op2.kind {
		case opReg16:
			if op1.reg != "hl" {
				break
			}
			base := map[string]uint16{"add": 0x09, "adc": 0xed4a, "sbc": 0xed42}[m]
			a.emitOpCode(base + uint16(reg16Order[op2.reg]*16))
			return
		case opReg8:
			if m != "add" || op1.reg == "sp" || op2.reg != "a" {
				break
			}
			if a.modelName() != "NEXT" {
				a.reportError(ErrNextOnly)
				return
			}
			a.emitOpCode(map[string]uint16{"hl": 0xed31, "de": 0xed32, "bc": 0xed33}[op1.reg])
			return
		case opExpr:
			if m != "add" || op1.reg == "sp" {
				break
			}
			if a.modelName() != "NEXT" {
				a.reportError(ErrNextOnly)
				return
			}
			a.emitOpCode(map[string]uint16{"hl": 0xed34, "de": 0xed35, "bc": 0xed36}[op1.reg])
			a.emitNumericExpr(op2.expr, fixupBit16)
			return
		}

	case opReg16Idx:
		if m != "add" {
			break
		}
		prefix := uint16(indexPrefix(op1.reg)) << 8
		switch {
		case op2.kind == opReg16 && op2.reg != "hl":
			a.emitOpCode(prefix | uint16(0x09+reg16Order[op2.reg]*16))
			return
		case op2.kind == opReg16Idx && op2.reg == op1.reg:
			a.emitOpCode(prefix | 0x29)
			return
		}
	}
	a.invalidOperands()
}

// emitAlu2 handles sub, and, xor, or and cp with an optional "a," prefix.
func (a *Z80Assembler) emitAlu2(m string, ops []Operand) {
	switch len(ops) {
	case 1:
		a.emitAluOperand(aluOrder[m], ops[0])
	case 2:
		if ops[0].kind != opReg8 || ops[0].reg != "a" {
			a.reportError(ErrAluAlternative)
			return
		}
		a.emitAluOperand(aluOrder[m], ops[1])
	default:
		a.invalidOperands()
	}
}

func (a *Z80Assembler) emitIn(ops []Operand) {
	switch len(ops) {
	case 1:
		if ops[0].kind == opCPort {
			a.emitOpCode(0xed70)
			return
		}
	case 2:
		op1, op2 := ops[0], ops[1]
		if op1.kind != opReg8 {
			break
		}
		if op1.reg == "a" && op2.kind == opMemIndirect {
			a.emitByte(0xdb)
			a.emitNumericExpr(op2.expr, fixupBit8)
			return
		}
		if op2.kind == opCPort {
			a.emitOpCode(0xed40 + uint16(reg8Order[op1.reg]*8))
			return
		}
	}
	a.invalidOperands()
}

func (a *Z80Assembler) emitOut(ops []Operand) {
	if len(ops) == 2 {
		op1, op2 := ops[0], ops[1]
		switch op1.kind {
		case opMemIndirect:
			if op2.kind == opReg8 && op2.reg == "a" {
				a.emitByte(0xd3)
				a.emitNumericExpr(op1.expr, fixupBit8)
				return
			}
		case opCPort:
			switch op2.kind {
			case opReg8:
				a.emitOpCode(0xed41 + uint16(reg8Order[op2.reg]*8))
				return
			case opExpr:
				v, ok := a.evaluateNumber(op2.expr)
				if !ok {
					return
				}
				if v.AsLong() != 0 {
					a.reportError(ErrOutZeroOnly)
					return
				}
				a.emitOpCode(0xed71)
				return
			}
		}
	}
	a.invalidOperands()
}

// emitShift handles the CB prefixed rotates and shifts.
func (a *Z80Assembler) emitShift(order int, ops []Operand) {
	code := order * 8
	switch {
	case len(ops) == 1 && ops[0].kind == opReg8:
		a.emitBytes(0xcb, byte(code+reg8Order[ops[0].reg]))
		return
	case len(ops) == 1 && ops[0].kind == opRegIndirect && ops[0].reg == "hl":
		a.emitBytes(0xcb, byte(code|0x06))
		return
	case len(ops) >= 1 && len(ops) <= 2 && ops[0].kind == opIndexed:
		if len(ops) == 1 {
			a.emitIndexedBit(ops[0], byte(code|0x06))
			return
		}
		if ops[1].kind == opReg8 {
			a.emitIndexedBit(ops[0], byte(code|reg8Order[ops[1].reg]))
			return
		}
	}
	a.invalidOperands()
}

// emitBitOp handles bit, res and set. res and set on (ix+d) may copy the
// result into a register given as third operand.
func (a *Z80Assembler) emitBitOp(base int, allowCopy bool, ops []Operand) {
	if len(ops) < 2 || len(ops) > 3 {
		a.invalidOperands()
		return
	}
	bit, ok := a.immediateInt(ops[0])
	if !ok {
		return
	}
	if bit < 0 || bit > 7 {
		a.reportError(ErrBitIndex, bit)
		return
	}
	code := base + int(bit)*8
	target := ops[1]
	switch target.kind {
	case opIndexed:
		switch {
		case len(ops) == 2:
			code |= 0x06
		case allowCopy && ops[2].kind == opReg8:
			code |= reg8Order[ops[2].reg]
		default:
			a.invalidOperands()
			return
		}
		a.emitIndexedBit(target, byte(code))
		return
	case opReg8:
		if len(ops) == 2 {
			a.emitBytes(0xcb, byte(code|reg8Order[target.reg]))
			return
		}
	case opRegIndirect:
		if len(ops) == 2 && target.reg == "hl" {
			a.emitBytes(0xcb, byte(code|0x06))
			return
		}
	}
	a.invalidOperands()
}

func (a *Z80Assembler) emitNextReg(ops []Operand) {
	if len(ops) != 2 || ops[0].kind != opExpr {
		a.invalidOperands()
		return
	}
	switch {
	case ops[1].kind == opExpr:
		a.emitOpCode(0xed91)
		a.emitNumericExpr(ops[0].expr, fixupBit8)
		a.emitNumericExpr(ops[1].expr, fixupBit8)
	case ops[1].kind == opReg8 && ops[1].reg == "a":
		a.emitOpCode(0xed92)
		a.emitNumericExpr(ops[0].expr, fixupBit8)
	default:
		a.invalidOperands()
	}
}

// emitLd encodes every form of ld.
func (a *Z80Assembler) emitLd(dst, src Operand) {
	switch dst.kind {
	case opReg8:
		d := reg8Order[dst.reg]
		switch src.kind {
		case opReg8:
			a.emitByte(byte(0x40 + d*8 + reg8Order[src.reg]))
			return
		case opRegIndirect:
			switch {
			case src.reg == "bc" && dst.reg == "a":
				a.emitByte(0x0a)
				return
			case src.reg == "de" && dst.reg == "a":
				a.emitByte(0x1a)
				return
			case src.reg == "hl":
				a.emitByte(byte(0x46 + d*8))
				return
			}
		case opReg8Spec:
			if dst.reg == "a" {
				if src.reg == "r" {
					a.emitOpCode(0xed5f)
				} else {
					a.emitOpCode(0xed57)
				}
				return
			}
		case opReg8Idx:
			if d == 4 || d == 5 {
				break
			}
			code := 0x44 + d*8
			if halfLow(src.reg) {
				code++
			}
			a.emitBytes(indexPrefix(src.reg), byte(code))
			return
		case opExpr:
			a.emitByte(byte(0x06 + d*8))
			a.emitNumericExpr(src.expr, fixupBit8)
			return
		case opMemIndirect:
			if dst.reg == "a" {
				a.emitByte(0x3a)
				a.emitNumericExpr(src.expr, fixupBit16)
				return
			}
		case opIndexed:
			a.emitIndexed(src, byte(0x46+d*8))
			return
		}

	case opReg8Idx:
		base := 0x60
		if halfLow(dst.reg) {
			base = 0x68
		}
		switch src.kind {
		case opReg8:
			s := reg8Order[src.reg]
			if s == 4 || s == 5 {
				break
			}
			a.emitBytes(indexPrefix(dst.reg), byte(base+s))
			return
		case opReg8Idx:
			if dst.reg[0] != src.reg[0] {
				break
			}
			code := base + 4
			if halfLow(src.reg) {
				code++
			}
			a.emitBytes(indexPrefix(dst.reg), byte(code))
			return
		case opExpr:
			code := 0x26
			if halfLow(dst.reg) {
				code = 0x2e
			}
			a.emitBytes(indexPrefix(dst.reg), byte(code))
			a.emitNumericExpr(src.expr, fixupBit8)
			return
		}

	case opReg8Spec:
		if src.kind == opReg8 && src.reg == "a" {
			if dst.reg == "r" {
				a.emitOpCode(0xed4f)
			} else {
				a.emitOpCode(0xed47)
			}
			return
		}

	case opRegIndirect:
		switch src.kind {
		case opReg8:
			switch {
			case dst.reg == "bc" && src.reg == "a":
				a.emitByte(0x02)
				return
			case dst.reg == "de" && src.reg == "a":
				a.emitByte(0x12)
				return
			case dst.reg == "hl":
				a.emitByte(byte(0x70 + reg8Order[src.reg]))
				return
			}
		case opExpr:
			if dst.reg == "hl" {
				a.emitByte(0x36)
				a.emitNumericExpr(src.expr, fixupBit8)
				return
			}
		}

	case opMemIndirect:
		var code uint16
		switch src.kind {
		case opReg8:
			if src.reg == "a" {
				code = 0x32
			}
		case opReg16:
			code = map[string]uint16{"bc": 0xed43, "de": 0xed53, "hl": 0x22, "sp": 0xed73}[src.reg]
		case opReg16Idx:
			code = uint16(indexPrefix(src.reg))<<8 | 0x22
		}
		if code != 0 {
			a.emitOpCode(code)
			a.emitNumericExpr(dst.expr, fixupBit16)
			return
		}

	case opReg16:
		switch src.kind {
		case opMemIndirect:
			a.emitOpCode(map[string]uint16{"bc": 0xed4b, "de": 0xed5b, "hl": 0x2a, "sp": 0xed7b}[dst.reg])
			a.emitNumericExpr(src.expr, fixupBit16)
			return
		case opExpr:
			a.emitByte(byte(0x01 + reg16Order[dst.reg]*16))
			a.emitNumericExpr(src.expr, fixupBit16)
			return
		case opReg16:
			if dst.reg == "sp" && src.reg == "hl" {
				a.emitByte(0xf9)
				return
			}
		case opReg16Idx:
			if dst.reg == "sp" {
				a.emitOpCode(uint16(indexPrefix(src.reg))<<8 | 0xf9)
				return
			}
		}

	case opReg16Idx:
		prefix := uint16(indexPrefix(dst.reg)) << 8
		switch src.kind {
		case opMemIndirect:
			a.emitOpCode(prefix | 0x2a)
			a.emitNumericExpr(src.expr, fixupBit16)
			return
		case opExpr:
			a.emitOpCode(prefix | 0x21)
			a.emitNumericExpr(src.expr, fixupBit16)
			return
		}

	case opIndexed:
		switch src.kind {
		case opReg8:
			a.emitIndexed(dst, byte(0x70+reg8Order[src.reg]))
			return
		case opExpr:
			a.emitIndexed(dst, 0x36)
			a.emitNumericExpr(src.expr, fixupBit8)
			return
		}
	}
	a.invalidOperands()
}
