// z80asm_literal_test.go - Literal parsing, string escapes and tokenizer tests

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
	"bytes"
	"testing"
)

func TestZ80Asm_ParseNumber(t *testing.T) {
	tests := []struct {
		text string
		want int64
	}{
		{"12345", 12345},
		{"#1F", 0x1F},
		{"$1f", 0x1F},
		{"0x1F", 0x1F},
		{"1Fh", 0x1F},
		{"0FFFFH", 0xFFFF},
		{"$FFFF_FFFF", 0xFFFFFFFF},
		{"%1010_1010", 170},
		{"0b1010", 10},
		{"1010b", 10},
		{"17o", 15},
		{"17q", 15},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v := ParseNumber(tt.text)
			if v.Type() != ValueInteger {
				t.Fatalf("ParseNumber(%q) type = %v, want integer", tt.text, v.Type())
			}
			if got := v.AsLong(); got != tt.want {
				t.Fatalf("ParseNumber(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestZ80Asm_ParseReal(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"3.14E+2", 314},
		{".5", 0.5},
		{"1e3", 1000},
		{"2.5", 2.5},
	}
	for _, tt := range tests {
		v := ParseNumber(tt.text)
		if v.Type() != ValueReal || v.AsReal() != tt.want {
			t.Errorf("ParseNumber(%q) = %v (%v), want real %v", tt.text, v.AsReal(), v.Type(), tt.want)
		}
	}
}

func TestZ80Asm_ParseNumberInvalid(t *testing.T) {
	for _, text := range []string{"", "$123456789", "%", "12ab", "19o", "1.2.3", "0x"} {
		if v := ParseNumber(text); v.IsValid() {
			t.Errorf("ParseNumber(%q) = %v, want an error", text, v.AsLong())
		}
	}
}

func TestZ80Asm_DecodeString(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []byte
	}{
		{"plain", "abc", []byte("abc")},
		{"hex escape", `\x1A`, []byte{0x1A}},
		{"hex escape lower", `\x7f!`, []byte{0x7F, '!'}},
		{"control codes", `\i\p\f\b\I\o\a\t`, []byte{0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17}},
		{"pound and copyright", `\P\C`, []byte{0x60, 0x7F}},
		{"zero", `\0`, []byte{0x00}},
		{"quote", `\"`, []byte{'"'}},
		{"backslash", `\\`, []byte{'\\'}},
		{"unknown escape", `\q`, []byte{'q'}},
		{"single hex digit", `\x4`, []byte{0x04}},
		{"single hex digit followed", `\x4g`, []byte{0x04, 'g'}},
		{"no hex digit", `\xZ`, []byte{'x', 'Z'}},
		{"bare x at end", `\x`, []byte{'x'}},
		{"trailing backslash", `ab\`, []byte{'a', 'b', '\\'}},
		{"spectrum pound", "£", []byte{0x60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeString(tt.body)
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("DecodeString(%q) = % 02X, want % 02X", tt.body, got, tt.want)
			}
		})
	}
}

func TestZ80Asm_Tokenize(t *testing.T) {
	toks, err := tokenize(`label: ld a,(ix+4) ; comment`)
	if err != nil {
		t.Fatalf("tokenize failed: %v", err.code)
	}
	want := []string{"label", ":", "ld", "a", ",", "(", "ix", "+", "4", ")"}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].text != w {
			t.Errorf("token %d = %q, want %q", i, toks[i].text, w)
		}
	}
	if toks[2].col != 8 {
		t.Errorf("column of ld = %d, want 8", toks[2].col)
	}
}

func TestZ80Asm_TokenizePercent(t *testing.T) {
	tests := []struct {
		line string
		kind tokenKind
		text string
	}{
		{"ld a,%1010", tokNumber, "%1010"},
		{".defb %0101", tokNumber, "%0101"},
		{"x = 7 % 2", tokOp, "%"},
		{"x = y %10", tokOp, "%"},
	}
	for _, tt := range tests {
		toks, err := tokenize(tt.line)
		if err != nil {
			t.Fatalf("tokenize(%q) failed", tt.line)
		}
		found := false
		for _, tok := range toks {
			if tok.kind == tt.kind && tok.text == tt.text {
				found = true
			}
		}
		if !found {
			t.Errorf("tokenize(%q): no %q token of kind %v", tt.line, tt.text, tt.kind)
		}
	}
}

func TestZ80Asm_TokenizeSpecial(t *testing.T) {
	toks, err := tokenize("ex af,af' ; swap")
	if err != nil {
		t.Fatal("tokenize failed")
	}
	if len(toks) != 4 || toks[3].text != "af'" {
		t.Fatalf("unexpected tokens: %+v", toks)
	}

	toks, err = tokenize("jp $ + $cnt // trailing")
	if err != nil {
		t.Fatal("tokenize failed")
	}
	if toks[1].kind != tokDollar || toks[3].kind != tokCounter {
		t.Fatalf("unexpected tokens: %+v", toks)
	}

	toks, err = tokenize("ld a,{{value}}")
	if err != nil {
		t.Fatal("tokenize failed")
	}
	if last := toks[len(toks)-1]; last.kind != tokMacroParam || last.text != "value" {
		t.Fatalf("unexpected macro parameter token: %+v", last)
	}

	if _, err := tokenize("ld a,{{value"); err == nil || err.code != ErrMacroParamClose {
		t.Fatal("expected an unclosed macro parameter error")
	}
}

func TestZ80Asm_LiteralsInSource(t *testing.T) {
	out := assembleSource(t, "\t.defb %1010_1010, $ff, 0Ah, 17o, 'A'\n\t.defm \"\\x1A\\i\"\n")
	assertCode(t, out.Code(), []byte{0xAA, 0xFF, 0x0A, 0x0F, 0x41, 0x1A, 0x10})
}
