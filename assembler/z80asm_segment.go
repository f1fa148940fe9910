// z80asm_segment.go - Code segments and byte emission

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

const (
	defaultStartAddress = 0x8000
	defaultSegmentMax   = 0xffff
	bankSize            = 0x4000
	bankStartAddress    = 0xc000
)

// Segment is a run of emitted bytes bound to a start address and, when the
// .bank pragma created it, to a memory bank.
type Segment struct {
	Bank         int // -1 when not banked
	BankOffset   int
	StartAddress uint16
	Displacement int
	Code         []byte
	MaxLength    int

	// XorgValue, when set by .xorg, is the address the segment is saved to
	// in exported images. It does not change the addresses of the code.
	XorgValue *uint16

	hasDisp    bool
	dispOffset int // code offset where .disp took effect

	// currentInstructionOffset is the offset of the first byte of the line
	// being emitted; $ refers to it.
	currentInstructionOffset int

	overflowReported bool
	locked           map[int]bool // offsets written by struct field overlays
}

func newSegment(start uint16, maxLength int) *Segment {
	return &Segment{Bank: -1, StartAddress: start, MaxLength: maxLength}
}

// addressAt maps a code offset to its Z80 address.
func (s *Segment) addressAt(offset int) uint16 {
	addr := int(s.StartAddress) + offset
	if s.hasDisp && offset >= s.dispOffset {
		addr += s.Displacement
	}
	return uint16(addr & 0xffff)
}

// EndAddress is the address after the last emitted byte.
func (s *Segment) EndAddress() uint16 { return s.addressAt(len(s.Code)) }

// emit appends a byte. It reports false once the segment is full; the byte
// is dropped.
func (s *Segment) emit(b byte) bool {
	if len(s.Code) >= s.MaxLength {
		return false
	}
	s.Code = append(s.Code, b)
	return true
}

// patch writes a fixup byte unless a struct overlay owns the offset.
func (s *Segment) patch(offset int, b byte) {
	if offset < 0 || offset >= len(s.Code) || s.locked[offset] {
		return
	}
	s.Code[offset] = b
}

// overlay writes a struct field byte and locks the offset.
func (s *Segment) overlay(offset int, b byte) {
	if offset < 0 || offset >= len(s.Code) {
		return
	}
	if s.locked == nil {
		s.locked = make(map[int]bool)
	}
	s.Code[offset] = b
	s.locked[offset] = true
}

// ---------------------------------------------------------------------------
// Emission on the assembler
// ---------------------------------------------------------------------------

func (a *Z80Assembler) ensureSegment() {
	if a.segment != nil {
		return
	}
	a.startSegment(a.defaultStart(), defaultSegmentMax)
}

func (a *Z80Assembler) startSegment(start uint16, maxLength int) {
	a.segment = newSegment(start, maxLength)
	a.out.Segments = append(a.out.Segments, a.segment)
}

func (a *Z80Assembler) defaultStart() uint16 {
	if a.opts.DefaultStart != 0 {
		return a.opts.DefaultStart
	}
	return defaultStartAddress
}

func (a *Z80Assembler) segmentIndex() int { return len(a.out.Segments) - 1 }

// currentAddress is the address of the next byte to emit.
func (a *Z80Assembler) currentAddress() uint16 {
	a.ensureSegment()
	return a.segment.addressAt(len(a.segment.Code))
}

// instructionAddress is $, the address of the current line's first byte.
func (a *Z80Assembler) instructionAddress() uint16 {
	a.ensureSegment()
	return a.segment.addressAt(a.segment.currentInstructionOffset)
}

func (a *Z80Assembler) markInstructionStart() {
	a.ensureSegment()
	a.segment.currentInstructionOffset = len(a.segment.Code)
}

func (a *Z80Assembler) emitByte(b byte) {
	a.ensureSegment()
	if a.segment.emit(b) {
		return
	}
	if !a.segment.overflowReported {
		a.segment.overflowReported = true
		a.reportError(ErrSegmentTooLong, a.segment.MaxLength)
	}
}

func (a *Z80Assembler) emitWord(w uint16) {
	a.emitByte(byte(w))
	a.emitByte(byte(w >> 8))
}

// emitOpCode writes a one or two byte opcode; a zero high byte is omitted.
func (a *Z80Assembler) emitOpCode(code uint16) {
	if hi := byte(code >> 8); hi != 0 {
		a.emitByte(hi)
	}
	a.emitByte(byte(code))
}

func (a *Z80Assembler) emitBytes(data ...byte) {
	for _, b := range data {
		a.emitByte(b)
	}
}
