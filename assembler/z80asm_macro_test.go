// z80asm_macro_test.go - Macro definition and expansion tests

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
	"strings"
	"testing"
)

func TestZ80Asm_MacroExpansion(t *testing.T) {
	src := `
Ld8: .macro(reg, val)
	ld {{reg}},{{val}}
	.endm
	Ld8(b, 7)
	Ld8(a, 3 + 4)
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x06, 0x07, 0x3E, 0x07})
}

func TestZ80Asm_MacroIndexedArgument(t *testing.T) {
	src := `
Store: .macro(off)
	ld (ix+{{off}}),a
	.endm
	Store(5)
	Store(-2)
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0xDD, 0x77, 0x05, 0xDD, 0x77, 0xFE})
}

func TestZ80Asm_MacroSymbolArgument(t *testing.T) {
	src := `
Jump: .macro(target)
	jp {{target}}
	.endm
	Jump(Later)
	nop
Later:
	ret
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0xC3, 0x04, 0x80, 0x00, 0xC9})
}

func TestZ80Asm_MacroOperandTests(t *testing.T) {
	src := `
Load: .macro(dst)
	.if isreg8({{dst}})
	ld {{dst}},0
	.else
	ld {{dst}},$1234
	.endif
	.endm
	Load(b)
	Load(hl)
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x06, 0x00, 0x21, 0x34, 0x12})
}

func TestZ80Asm_MacroOmittedArgument(t *testing.T) {
	src := `
Opt: .macro(val)
	.if def({{val}})
	.defb 1
	.else
	.defb 0
	.endif
	.endm
	Opt(7)
	Opt()
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x01, 0x00})
}

func TestZ80Asm_MacroTextOf(t *testing.T) {
	src := `
Name: .macro(reg)
	.defm textof({{reg}})
	.defm ltextof({{reg}})
	.endm
	Name(hl)
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte("HLhl"))
}

func TestZ80Asm_MacroLocalLabels(t *testing.T) {
	src := `
Delay: .macro()
Wait:
	djnz Wait
	.endm
	Delay()
	Delay()
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x10, 0xFE, 0x10, 0xFE})
}

func TestZ80Asm_MacroErrorChain(t *testing.T) {
	src := `
Fail: .macro()
	.error "bad value"
	.endm
	nop
	Fail()
`
	out := NewZ80Assembler(Options{}).Assemble(src)
	if len(out.Errors) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(out.Errors), out.Errors)
	}
	inv, body := out.Errors[0], out.Errors[1]
	if inv.Code != ErrMacroInvocation || inv.Line != 6 {
		t.Fatalf("first error = %s at line %d, want %s at line 6", inv.Code, inv.Line, ErrMacroInvocation)
	}
	if body.Code != ErrUserError || body.Line != 3 {
		t.Fatalf("second error = %s at line %d, want %s at line 3", body.Code, body.Line, ErrUserError)
	}
	if !strings.Contains(body.Message, "bad value") || !strings.Contains(body.Message, "6") {
		t.Fatalf("unexpected message %q", body.Message)
	}
	if len(out.Segments) != 0 {
		t.Fatal("segments should be empty after errors")
	}
}

func TestZ80Asm_MacroErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code ErrorCode
	}{
		{"recursion", "Deep: .macro()\n\tDeep()\n\t.endm\n\tDeep()\n", ErrMacroDepth},
		{"unknown macro", "\tNothing()\n", ErrMacroUnknown},
		{"too many arguments", "M: .macro(val)\n\t.endm\n\tM(1, 2)\n", ErrMacroTooManyArgs},
		{"missing parentheses", "M: .macro()\n\tnop\n\t.endm\nM\n", ErrMacroNoParens},
		{"duplicate parameter", "M: .macro(val, val)\n\t.endm\n", ErrMacroDupArg},
		{"unknown parameter", "M: .macro(val)\n\t.defb {{other}}\n\t.endm\n", ErrMacroUnknownArg},
		{"nested definition", "M: .macro()\nN: .macro()\n\t.endm\n\t.endm\n", ErrMacroNested},
		{"no name", "\t.macro()\n\t.endm\n", ErrMacroNoName},
		{"name in use", "M: nop\nM: .macro()\n\t.endm\n", ErrMacroNameUsed},
		{"operand test outside macro", "\t.if isreg8(a)\n\t.endif\n", ErrMacroTimeFunc},
		{"parameter outside macro", "\tld a,{{val}}\n", ErrMacroParamOut},
		{"missing end", "M: .macro()\n\tnop\n", ErrMissingEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assembleExpectError(t, tt.src, tt.code)
		})
	}
}

func TestZ80Asm_MacroArgumentLexError(t *testing.T) {
	a := NewZ80Assembler(Options{})
	a.Assemble("\tnop\n")
	a.out.Errors = nil
	a.line = &asmLine{src: sourceLine{line: 4}}

	toks, ok := a.argumentTokens(Operand{kind: opReg16, col: 8, text: "hl ` 1"})
	if ok || toks != nil {
		t.Fatalf("argumentTokens = %v, %v; want no tokens", toks, ok)
	}
	if len(a.out.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(a.out.Errors), a.out.Errors)
	}
	e := a.out.Errors[0]
	if e.Code != ErrInvalidToken || e.Line != 4 || e.Column != 11 {
		t.Fatalf("error = %s at %d:%d, want %s at 4:11", e.Code, e.Line, e.Column, ErrInvalidToken)
	}
}
