// z80asm_flow_test.go - Loop, conditional, procedure and module tests

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

// ---------------------------------------------------------------------------
// Loops
// ---------------------------------------------------------------------------

func TestZ80Asm_Loop(t *testing.T) {
	src := `
	.loop 3
	.defb $cnt
	.endl
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x01, 0x02, 0x03})
}

func TestZ80Asm_NestedLoopCounters(t *testing.T) {
	src := `
	.loop 2
	.loop 2
	.defb $cnt
	.endl
	.defb $cnt * 16
	.endl
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x01, 0x02, 0x10, 0x01, 0x02, 0x20})
}

func TestZ80Asm_LoopLabelsAreLocal(t *testing.T) {
	src := `
	.loop 2
Wait:
	djnz Wait
	.endl
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x10, 0xFE, 0x10, 0xFE})
}

func TestZ80Asm_ForStep(t *testing.T) {
	src := `
	.for val = 1 .to 5 .step 2
	.defb val
	.next
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x01, 0x03, 0x05})
}

func TestZ80Asm_ForDescending(t *testing.T) {
	src := `
	.for val = 3 .to 1 .step -1
	.defb val
	.next
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x03, 0x02, 0x01})
}

func TestZ80Asm_ForEmptyRange(t *testing.T) {
	out := assembleSource(t, "\t.for val = 5 .to 1\n\t.defb val\n\t.next\n\tnop\n")
	assertCode(t, out.Code(), []byte{0x00})
}

func TestZ80Asm_While(t *testing.T) {
	src := `
counter = 0
	.while counter < 3
	.defb counter
counter = counter + 1
	.endw
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x00, 0x01, 0x02})
}

func TestZ80Asm_WhileFalseAtStart(t *testing.T) {
	out := assembleSource(t, "\t.while false\n\t.defb 1\n\t.endw\n\tnop\n")
	assertCode(t, out.Code(), []byte{0x00})
}

func TestZ80Asm_Repeat(t *testing.T) {
	src := `
	.repeat
	.defb $cnt
	.until $cnt >= 3
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x01, 0x02, 0x03})
}

func TestZ80Asm_Break(t *testing.T) {
	src := `
	.loop 5
	.if $cnt == 3
	.break
	.endif
	.defb $cnt
	.endl
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x01, 0x02})
}

func TestZ80Asm_Continue(t *testing.T) {
	src := `
	.loop 4
	.if $cnt == 2
	.continue
	.endif
	.defb $cnt
	.endl
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x01, 0x03, 0x04})
}

func TestZ80Asm_BreakInEveryLoop(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []byte
	}{
		{"while", `
counter = 0
	.while true
counter = counter + 1
	.if counter == 3
	.break
	.endif
	.defb counter
	.endw
`, []byte{0x01, 0x02}},
		{"repeat", `
	.repeat
	.if $cnt == 3
	.break
	.endif
	.defb $cnt
	.until false
`, []byte{0x01, 0x02}},
		{"repeat skips the condition", `
	.repeat
	.defb 1
	.break
	.until Never
`, []byte{0x01}},
		{"for", `
	.for val = 10 .to 20 .step 5
	.if val == 20
	.break
	.endif
	.defb val
	.next
`, []byte{0x0A, 0x0F}},
		{"nested loop resumes outer", `
	.loop 2
	.defb $cnt * $10
	.loop 3
	.if $cnt == 2
	.break
	.endif
	.defb $cnt
	.endl
	.endl
`, []byte{0x10, 0x01, 0x20, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := assembleSource(t, tt.src)
			assertCode(t, out.Code(), tt.want)
		})
	}
}

func TestZ80Asm_BreakInIfOutsideLoop(t *testing.T) {
	out := assembleExpectError(t, "\t.if true\n\t.break\n\t.endif\n", ErrBreakOutside)
	if n := out.ErrorCount(); n != 1 {
		t.Fatalf("got %d errors, want 1: %v", n, out.Errors)
	}
	if len(out.Code()) != 0 {
		t.Fatalf("code emitted: % 02X", out.Code())
	}
}

func TestZ80Asm_LoopFixupKeepsCounter(t *testing.T) {
	src := `
	.loop 3
	.defb $cnt + Later
	.endl
Later .equ $10
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x11, 0x12, 0x13})
}

func TestZ80Asm_LoopErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code ErrorCode
	}{
		{"break outside", "\t.break\n", ErrBreakOutside},
		{"continue outside", "\t.continue\n", ErrContinueOutside},
		{"zero step", "\t.for val = 1 .to 5 .step 0\n\t.next\n", ErrZeroStep},
		{"missing end", "\t.loop 3\n\tnop\n", ErrMissingEnd},
		{"nested missing end", "\t.loop 3\n\t.if true\n\t.endl\n", ErrMissingEnd},
		{"too many iterations", "\t.loop $10000\n\t.endl\n", ErrLoopTooLong},
		{"counter outside", "\t.defb $cnt\n", ErrCounterOutside},
		{"for variable exists", "val .equ 1\n\t.for val = 1 .to 2\n\t.next\n", ErrForVariableExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assembleExpectError(t, tt.src, tt.code)
		})
	}
}

func TestZ80Asm_LoopErrorsReportedOnce(t *testing.T) {
	out := NewZ80Assembler(Options{}).Assemble("\t.loop 5\n\t.defb $cnt / 0\n\t.endl\n")
	if n := out.ErrorCount(); n != 1 {
		t.Fatalf("got %d errors, want 1: %v", n, out.Errors)
	}
	assertErrorCode(t, out, ErrEvaluation)
}

// ---------------------------------------------------------------------------
// Conditionals
// ---------------------------------------------------------------------------

func TestZ80Asm_IfElifElse(t *testing.T) {
	tests := []struct {
		mode int
		want byte
	}{
		{1, 0x01},
		{2, 0x02},
		{7, 0x03},
	}
	for _, tt := range tests {
		src := `
Mode .equ ` + string(rune('0'+tt.mode)) + `
	.if Mode == 1
	.defb 1
	.elif Mode == 2
	.defb 2
	.else
	.defb 3
	.endif
`
		out := assembleSource(t, src)
		assertCode(t, out.Code(), []byte{tt.want})
	}
}

func TestZ80Asm_IfFirstTrueBranch(t *testing.T) {
	src := `
	.if 2 > 1
	.defb 1
	.elif true
	.defb 2
	.endif
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x01})
}

func TestZ80Asm_IfEndLabel(t *testing.T) {
	src := `
	.if true
	nop
Done:
	.endif
	jp Done
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x00, 0xC3, 0x01, 0x80})
}

func TestZ80Asm_IfErrors(t *testing.T) {
	assembleExpectError(t, "\t.if true\n\t.else\n\t.else\n\t.endif\n", ErrDuplicateElse)
	assembleExpectError(t, "\t.if true\n\tnop\n", ErrMissingEnd)
	assembleExpectError(t, "\t.if \"text\"\n\t.endif\n", ErrStringNotAllowed)
}

func TestZ80Asm_IfUsed(t *testing.T) {
	src := `
Helper:
	ret
	call Helper
	.ifused Helper
	.defb 1
	.endif
	.ifnused Helper
	.defb 2
	.endif
	.ifnused Spare
	.defb 3
	.endif
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0xC9, 0xCD, 0x00, 0x80, 0x01, 0x03})
}

// ---------------------------------------------------------------------------
// Procedures and modules
// ---------------------------------------------------------------------------

func TestZ80Asm_ProcLocalLabels(t *testing.T) {
	src := `
	.proc
again:
	nop
	jr again
	.endp
	.proc
again:
	nop
	jr again
	.endp
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x00, 0x18, 0xFD, 0x00, 0x18, 0xFD})
}

func TestZ80Asm_ProcSeesOuterLabels(t *testing.T) {
	src := `
Start:
	nop
	.proc
	jp Start
	.endp
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x00, 0xC3, 0x00, 0x80})
}

func TestZ80Asm_Module(t *testing.T) {
	src := `
Top .equ 9
	.module Lib
Top .equ 5
	.defb Top, ::Top
	.endmodule
	.defb Lib.Top
`
	out := assembleSource(t, src)
	assertCode(t, out.Code(), []byte{0x05, 0x09, 0x05})
	assertSymbol(t, out, "lib.top", 5)
	assertSymbol(t, out, "top", 9)
}

func TestZ80Asm_ModuleErrors(t *testing.T) {
	assembleExpectError(t, "\t.module Lib\n\t.endmodule\n\t.module Lib\n\t.endmodule\n", ErrModuleNameUsed)
	assembleExpectError(t, "\t.module Lib\n\tnop\n", ErrMissingEnd)
}
