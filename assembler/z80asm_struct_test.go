// z80asm_struct_test.go - Struct definition and invocation tests

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

const pointStruct = `
Point: .struct
x: .defb 1
y: .defw $1234
	.ends
`

func TestZ80Asm_StructDefaults(t *testing.T) {
	out := assembleSource(t, pointStruct+"pt: Point()\n\t.defb Point\n")
	assertCode(t, out.Code(), []byte{0x01, 0x34, 0x12, 0x03})
	assertSymbol(t, out, "pt", 0x8000)
}

func TestZ80Asm_StructFieldAssignment(t *testing.T) {
	src := pointStruct + `
pt: Point()
y -> .defw $5678
	nop
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x01, 0x78, 0x56, 0x00})
}

func TestZ80Asm_StructAnonymousField(t *testing.T) {
	src := pointStruct + `
	Point()
-> .defb 9
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x09, 0x34, 0x12})
}

func TestZ80Asm_StructFieldForwardReference(t *testing.T) {
	src := pointStruct + `
	Point()
y -> .defw Later
Later:
	nop
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x01, 0x03, 0x80, 0x00})
}

func TestZ80Asm_StructRepeated(t *testing.T) {
	src := pointStruct + `
	Point()
x -> .defb 7
	Point()
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x07, 0x34, 0x12, 0x01, 0x34, 0x12})
}

func TestZ80Asm_StructErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code ErrorCode
	}{
		{"too long", pointStruct + "\tPoint()\ny -> .defw 1, 2\n", ErrStructTooLong},
		{"unknown field", pointStruct + "\tPoint()\nz -> .defb 1\n", ErrUnknownField},
		{"field outside", "x -> .defb 1\n", ErrFieldOutside},
		{"arguments", pointStruct + "\tPoint(1)\n", ErrStructArgs},
		{"missing parentheses", pointStruct + "Point\n", ErrStructNoParens},
		{"instruction in body", "S: .struct\n\tnop\n\t.ends\n", ErrStructLine},
		{"duplicate field", "S: .struct\nf: .defb 1\nf: .defb 2\n\t.ends\n", ErrDuplicateField},
		{"no name", "\t.struct\n\t.ends\n", ErrStructNoName},
		{"name in use", "S: nop\nS: .struct\n\t.ends\n", ErrStructNameUsed},
		{"missing end", "S: .struct\n\t.defb 1\n", ErrMissingEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assembleExpectError(t, tt.src, tt.code)
		})
	}
}
