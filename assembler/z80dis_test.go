// z80dis_test.go - Z80 disassembler tests

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
	"testing"
)

func TestZ80Dis_Decode(t *testing.T) {
	tests := []struct {
		code []byte
		want string
		size int
	}{
		{[]byte{0x00}, "nop", 1},
		{[]byte{0x3E, 0x05}, "ld a,$05", 2},
		{[]byte{0x21, 0x34, 0x12}, "ld hl,$1234", 3},
		{[]byte{0x18, 0xFE}, "jr $8000", 2},
		{[]byte{0x20, 0x02}, "jr nz,$8004", 2},
		{[]byte{0xDD, 0x7E, 0x05}, "ld a,(ix+5)", 3},
		{[]byte{0xFD, 0x70, 0xFE}, "ld (iy-2),b", 3},
		{[]byte{0xDD, 0x66, 0x01}, "ld h,(ix+1)", 3},
		{[]byte{0xDD, 0x26, 0x20}, "ld xh,$20", 3},
		{[]byte{0xDD, 0xCB, 0x03, 0xC6}, "set 0,(ix+3)", 4},
		{[]byte{0xCB, 0x7C}, "bit 7,h", 2},
		{[]byte{0xED, 0xB0}, "ldir", 2},
		{[]byte{0xED, 0x4B, 0x00, 0x40}, "ld bc,($4000)", 4},
		{[]byte{0xC7}, "rst $00", 1},
		{[]byte{0xE9}, "jp (hl)", 1},
		{[]byte{0x08}, "ex af,af'", 1},
		{[]byte{0x76}, "halt", 1},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, size := DisassembleZ80(tt.code, 0x8000)
			if got != tt.want || size != tt.size {
				t.Fatalf("DisassembleZ80(% 02X) = %q/%d, want %q/%d", tt.code, got, size, tt.want, tt.size)
			}
		})
	}
}

func TestZ80Dis_Undecodable(t *testing.T) {
	tests := []struct {
		code []byte
		want string
		size int
	}{
		{[]byte{0xED, 0x00}, ".defb $ed,$00", 2},
		{[]byte{0xDD, 0xDD}, ".defb $dd", 1},
		{[]byte{0xC3, 0x00}, ".defb $c3", 1},
	}
	for _, tt := range tests {
		got, size := DisassembleZ80(tt.code, 0x8000)
		if got != tt.want || size != tt.size {
			t.Errorf("DisassembleZ80(% 02X) = %q/%d, want %q/%d", tt.code, got, size, tt.want, tt.size)
		}
	}
	if got, size := DisassembleZ80(nil, 0); got != "" || size != 0 {
		t.Errorf("empty input = %q/%d", got, size)
	}
}

func TestZ80Dis_All(t *testing.T) {
	code := []byte{
		0x3E, 0x01, // ld a,$01
		0xCD, 0x10, 0x80, // call $8010
		0x10, 0xF9, // djnz $8000
		0xC9, // ret
	}
	lines := DisassembleAll(code, 0x8000)
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}
	wantAddr := []uint16{0x8000, 0x8002, 0x8005, 0x8007}
	for i, line := range lines {
		if line.Address != wantAddr[i] {
			t.Errorf("line %d address = %#04x, want %#04x", i, line.Address, wantAddr[i])
		}
	}
	if !lines[1].IsBranch || lines[1].Target != 0x8010 {
		t.Errorf("call target = %v/%#04x", lines[1].IsBranch, lines[1].Target)
	}
	if !lines[2].IsBranch || lines[2].Target != 0x8000 {
		t.Errorf("djnz target = %v/%#04x", lines[2].IsBranch, lines[2].Target)
	}
	if lines[0].IsBranch || lines[3].IsBranch {
		t.Error("ld and ret are not branches")
	}
	if lines[2].Mnemonic != "djnz $8000" {
		t.Errorf("djnz text = %q", lines[2].Mnemonic)
	}
}

func TestZ80Dis_ListingRoundTrip(t *testing.T) {
	src := `
Start:
	ld hl,Data
	ld b,4
Again:
	ld a,(hl)
	xor $ff
	ld (hl),a
	inc hl
	djnz Again
	ret
Data:
	.defb 1,2,3,4
`
	out := assembleSource(t, src)
	code := out.Code()
	var text string
	for _, line := range DisassembleAll(code[:13], 0x8000) {
		text += "\t" + line.Mnemonic + "\n"
	}
	again := assembleSource(t, text)
	assertCode(t, again.Code(), code[:13])
}
