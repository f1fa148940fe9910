// z80dis.go - Z80 disassembler for listings and encoder round-trip tests

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
)

// DisassembledLine is one decoded instruction.
type DisassembledLine struct {
	Address  uint16
	Bytes    []byte
	Mnemonic string
	IsBranch bool
	Target   uint16
}

var (
	disReg8   = [8]string{"b", "c", "d", "e", "h", "l", "(hl)", "a"}
	disReg16  = [4]string{"bc", "de", "hl", "sp"}
	disReg16P = [4]string{"bc", "de", "hl", "af"}
	disCond   = [8]string{"nz", "z", "nc", "c", "po", "pe", "p", "m"}
	disALU    = [8]string{"add a,", "adc a,", "sub ", "sbc a,", "and ", "xor ", "or ", "cp "}
	disRot    = [8]string{"rlc", "rrc", "rl", "rr", "sla", "sra", "sll", "srl"}
	disBlock  = [4][4]string{
		{"ldi", "cpi", "ini", "outi"},
		{"ldd", "cpd", "ind", "outd"},
		{"ldir", "cpir", "inir", "otir"},
		{"lddr", "cpdr", "indr", "otdr"},
	}
	disIM = [8]string{"0", "0", "1", "2", "0", "0", "1", "2"}
)

// DisassembleZ80 decodes the instruction at the start of code, located at
// pc. It returns the text in the assembler's own syntax and its size.
func DisassembleZ80(code []byte, pc uint16) (string, int) {
	if len(code) == 0 {
		return "", 0
	}
	d := &z80Decoder{data: code, pc: pc, ok: true}
	text := d.decode()
	if !d.ok {
		return fmt.Sprintf(".defb $%02x", code[0]), 1
	}
	return text, d.pos
}

// DisassembleAll decodes a whole code block starting at address start.
func DisassembleAll(code []byte, start uint16) []DisassembledLine {
	var lines []DisassembledLine
	for off := 0; off < len(code); {
		addr := start + uint16(off)
		text, size := DisassembleZ80(code[off:], addr)
		line := DisassembledLine{Address: addr, Bytes: code[off : off+size], Mnemonic: text}
		line.IsBranch, line.Target = branchTarget(line.Bytes, addr)
		lines = append(lines, line)
		off += size
	}
	return lines
}

// branchTarget detects absolute and relative jumps and calls.
func branchTarget(b []byte, addr uint16) (bool, uint16) {
	op := b[0]
	switch {
	case op == 0xc3 || op == 0xcd || (op&0xc7) == 0xc2 || (op&0xc7) == 0xc4:
		if len(b) >= 3 {
			return true, uint16(b[1]) | uint16(b[2])<<8
		}
	case op == 0x10 || op == 0x18 || (op&0xe7) == 0x20:
		if len(b) >= 2 {
			return true, addr + 2 + uint16(int8(b[1]))
		}
	}
	return false, 0
}

// z80Decoder walks one instruction. Under a DD or FD prefix idx holds the
// index register that replaces hl.
type z80Decoder struct {
	data []byte
	pc   uint16
	pos  int
	ok   bool

	idx     string
	memUsed bool // (ix+d) operand present; h and l keep their names
}

func (d *z80Decoder) next() byte {
	if d.pos >= len(d.data) {
		d.ok = false
		return 0
	}
	b := d.data[d.pos]
	d.pos++
	return b
}

func (d *z80Decoder) peek() byte {
	if d.pos >= len(d.data) {
		return 0
	}
	return d.data[d.pos]
}

func (d *z80Decoder) imm8() string { return fmt.Sprintf("$%02x", d.next()) }

func (d *z80Decoder) imm16() string {
	lo := d.next()
	hi := d.next()
	return fmt.Sprintf("$%04x", uint16(lo)|uint16(hi)<<8)
}

func (d *z80Decoder) rel() string {
	e := int8(d.next())
	return fmt.Sprintf("$%04x", d.pc+2+uint16(e))
}

// reg8 names register r; index prefixes turn (hl) into (ix+d) and, when no
// memory operand is involved, h and l into xh and xl.
func (d *z80Decoder) reg8(r byte) string {
	if d.idx == "" {
		return disReg8[r]
	}
	switch r {
	case 6:
		return fmt.Sprintf("(%s%+d)", d.idx, int8(d.next()))
	case 4, 5:
		if !d.memUsed {
			return d.idx[1:] + disReg8[r]
		}
	}
	return disReg8[r]
}

func (d *z80Decoder) reg16(p byte, table [4]string) string {
	if p == 2 && d.idx != "" {
		return d.idx
	}
	return table[p]
}

func (d *z80Decoder) decode() string {
	op := d.next()
	switch op {
	case 0xcb:
		return d.decodeCB(d.next())
	case 0xed:
		return d.decodeED(d.next())
	case 0xdd, 0xfd:
		d.idx = "ix"
		if op == 0xfd {
			d.idx = "iy"
		}
		switch d.peek() {
		case 0xdd, 0xed, 0xfd:
			return fmt.Sprintf(".defb $%02x", op)
		case 0xcb:
			d.next()
			disp := int8(d.next())
			return d.decodeIndexedCB(disp, d.next())
		}
		return d.decodeBase(d.next())
	}
	return d.decodeBase(op)
}

func (d *z80Decoder) decodeBase(op byte) string {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	switch x {
	case 0:
		switch z {
		case 0:
			switch y {
			case 0:
				return "nop"
			case 1:
				return "ex af,af'"
			case 2:
				return "djnz " + d.rel()
			case 3:
				return "jr " + d.rel()
			}
			return "jr " + disCond[y-4] + "," + d.rel()
		case 1:
			if q == 0 {
				return "ld " + d.reg16(p, disReg16) + "," + d.imm16()
			}
			return "add " + d.reg16(2, disReg16) + "," + d.reg16(p, disReg16)
		case 2:
			hl := d.reg16(2, disReg16)
			switch y {
			case 0:
				return "ld (bc),a"
			case 1:
				return "ld a,(bc)"
			case 2:
				return "ld (de),a"
			case 3:
				return "ld a,(de)"
			case 4:
				return "ld (" + d.imm16() + ")," + hl
			case 5:
				return "ld " + hl + ",(" + d.imm16() + ")"
			case 6:
				return "ld (" + d.imm16() + "),a"
			}
			return "ld a,(" + d.imm16() + ")"
		case 3:
			if q == 0 {
				return "inc " + d.reg16(p, disReg16)
			}
			return "dec " + d.reg16(p, disReg16)
		case 4:
			return "inc " + d.reg8(y)
		case 5:
			return "dec " + d.reg8(y)
		case 6:
			d.memUsed = y == 6
			r := d.reg8(y)
			return "ld " + r + "," + d.imm8()
		}
		return [8]string{"rlca", "rrca", "rla", "rra", "daa", "cpl", "scf", "ccf"}[y]

	case 1:
		if y == 6 && z == 6 {
			return "halt"
		}
		d.memUsed = y == 6 || z == 6
		dst := d.reg8(y)
		return "ld " + dst + "," + d.reg8(z)

	case 2:
		return disALU[y] + d.reg8(z)
	}

	switch z {
	case 0:
		return "ret " + disCond[y]
	case 1:
		if q == 0 {
			return "pop " + d.reg16(p, disReg16P)
		}
		switch p {
		case 0:
			return "ret"
		case 1:
			return "exx"
		case 2:
			return "jp (" + d.reg16(2, disReg16) + ")"
		}
		return "ld sp," + d.reg16(2, disReg16)
	case 2:
		return "jp " + disCond[y] + "," + d.imm16()
	case 3:
		switch y {
		case 0:
			return "jp " + d.imm16()
		case 2:
			return "out (" + d.imm8() + "),a"
		case 3:
			return "in a,(" + d.imm8() + ")"
		case 4:
			return "ex (sp)," + d.reg16(2, disReg16)
		case 5:
			return "ex de,hl"
		case 6:
			return "di"
		case 7:
			return "ei"
		}
	case 4:
		return "call " + disCond[y] + "," + d.imm16()
	case 5:
		if q == 0 {
			return "push " + d.reg16(p, disReg16P)
		}
		if p == 0 {
			return "call " + d.imm16()
		}
	case 6:
		return disALU[y] + d.imm8()
	case 7:
		return fmt.Sprintf("rst $%02x", y*8)
	}
	return fmt.Sprintf(".defb $%02x", op)
}

func (d *z80Decoder) decodeCB(op byte) string {
	x, y, z := op>>6, (op>>3)&7, op&7
	r := d.reg8(z)
	switch x {
	case 0:
		return disRot[y] + " " + r
	case 1:
		return fmt.Sprintf("bit %d,%s", y, r)
	case 2:
		return fmt.Sprintf("res %d,%s", y, r)
	}
	return fmt.Sprintf("set %d,%s", y, r)
}

// decodeIndexedCB handles DD CB d op and FD CB d op.
func (d *z80Decoder) decodeIndexedCB(disp int8, op byte) string {
	x, y := op>>6, (op>>3)&7
	mem := fmt.Sprintf("(%s%+d)", d.idx, disp)
	switch x {
	case 0:
		return disRot[y] + " " + mem
	case 1:
		return fmt.Sprintf("bit %d,%s", y, mem)
	case 2:
		return fmt.Sprintf("res %d,%s", y, mem)
	}
	return fmt.Sprintf("set %d,%s", y, mem)
}

func (d *z80Decoder) decodeED(op byte) string {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	if x == 1 {
		switch z {
		case 0:
			if y == 6 {
				return "in (c)"
			}
			return "in " + disReg8[y] + ",(c)"
		case 1:
			if y == 6 {
				return "out (c),0"
			}
			return "out (c)," + disReg8[y]
		case 2:
			if q == 0 {
				return "sbc hl," + disReg16[p]
			}
			return "adc hl," + disReg16[p]
		case 3:
			if q == 0 {
				return "ld (" + d.imm16() + ")," + disReg16[p]
			}
			return "ld " + disReg16[p] + ",(" + d.imm16() + ")"
		case 4:
			return "neg"
		case 5:
			if y == 1 {
				return "reti"
			}
			return "retn"
		case 6:
			return "im " + disIM[y]
		}
		if y < 6 {
			return [6]string{"ld i,a", "ld r,a", "ld a,i", "ld a,r", "rrd", "rld"}[y]
		}
	}
	if x == 2 && z <= 3 && y >= 4 {
		return disBlock[y-4][z]
	}
	return fmt.Sprintf(".defb $ed,$%02x", op)
}
