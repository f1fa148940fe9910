// writer_test.go - Binary and Intel HEX writer tests

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

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/intuitionamiga/z80asm/assembler"
)

func segment(start uint16, code ...byte) *assembler.Segment {
	return &assembler.Segment{Bank: -1, StartAddress: start, Code: code, MaxLength: 0xffff}
}

func bankSegment(bank, offset int, code ...byte) *assembler.Segment {
	return &assembler.Segment{Bank: bank, BankOffset: offset, StartAddress: uint16(0xc000 + offset), Code: code, MaxLength: 0x4000}
}

func TestWriter_BinaryGapFill(t *testing.T) {
	out := &assembler.Output{Segments: []*assembler.Segment{
		segment(0x8004, 0xC9),
		segment(0x8000, 0x3E, 0x01),
		segment(0x9000),
	}}
	var buf bytes.Buffer
	if err := writeBinary(&buf, out, 0xFF); err != nil {
		t.Fatalf("writeBinary: %v", err)
	}
	want := []byte{0x3E, 0x01, 0xFF, 0xFF, 0xC9}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("image = % 02X, want % 02X", buf.Bytes(), want)
	}
}

func TestWriter_BinaryOverlap(t *testing.T) {
	out := &assembler.Output{Segments: []*assembler.Segment{
		segment(0x8000, 1, 2, 3),
		segment(0x8002, 4),
	}}
	var buf bytes.Buffer
	if err := writeBinary(&buf, out, 0); err == nil {
		t.Fatal("overlapping segments accepted")
	}
}

func TestWriter_BinaryBanks(t *testing.T) {
	out := &assembler.Output{Segments: []*assembler.Segment{
		bankSegment(3, 0x10, 0xAA),
		segment(0x8000, 0x00),
	}}
	var buf bytes.Buffer
	if err := writeBinary(&buf, out, 0); err != nil {
		t.Fatalf("writeBinary: %v", err)
	}
	img := buf.Bytes()
	if len(img) != 1+0x4000 {
		t.Fatalf("image length = %d, want %d", len(img), 1+0x4000)
	}
	if img[0] != 0x00 || img[1+0x10] != 0xAA {
		t.Fatalf("bank byte not at its offset: % 02X", img[:0x12])
	}
}

func TestWriter_IntelHex(t *testing.T) {
	entry := uint16(0x8000)
	code := make([]byte, 18)
	for i := range code {
		code[i] = byte(i)
	}
	out := &assembler.Output{
		Segments:     []*assembler.Segment{segment(0x8000, code...)},
		EntryAddress: &entry,
	}
	var buf bytes.Buffer
	if err := writeIntelHex(&buf, out); err != nil {
		t.Fatalf("writeIntelHex: %v", err)
	}
	want := []string{
		":10800000000102030405060708090A0B0C0D0E0FF8",
		":0280100010114D",
		":040000050000800077",
		":00000001FF",
	}
	got := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("hex output:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestWriter_IntelHexBank(t *testing.T) {
	out := &assembler.Output{Segments: []*assembler.Segment{bankSegment(1, 0, 0x55)}}
	var buf bytes.Buffer
	if err := writeIntelHex(&buf, out); err != nil {
		t.Fatalf("writeIntelHex: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// bank 1 lives at linear address 0x14000
	want := []string{":020000040001F9", ":01400000556A", ":00000001FF"}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Fatalf("hex output:\n%s\nwant:\n%s", buf.String(), strings.Join(want, "\n"))
	}
}

func TestWriter_Xorg(t *testing.T) {
	saved := uint16(0x1000)
	moved := segment(0x8000, 0xC9)
	moved.XorgValue = &saved
	out := &assembler.Output{Segments: []*assembler.Segment{moved, segment(0x0FFC, 0x01, 0x02)}}

	var bin bytes.Buffer
	if err := writeBinary(&bin, out, 0); err != nil {
		t.Fatalf("writeBinary: %v", err)
	}
	if want := []byte{0x01, 0x02, 0x00, 0x00, 0xC9}; !bytes.Equal(bin.Bytes(), want) {
		t.Fatalf("image = % 02X, want % 02X", bin.Bytes(), want)
	}

	var hex bytes.Buffer
	if err := writeIntelHex(&hex, out); err != nil {
		t.Fatalf("writeIntelHex: %v", err)
	}
	want := []string{":020FFC000102F0", ":01100000C926", ":00000001FF"}
	if got := strings.Split(strings.TrimSpace(hex.String()), "\n"); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("hex output:\n%s\nwant:\n%s", hex.String(), strings.Join(want, "\n"))
	}
}

func TestWriter_Paths(t *testing.T) {
	tests := []struct {
		input, explicit, format string
		multi                   bool
		want                    string
	}{
		{"src/game.asm", "", formatBinary, false, filepath.Join("src", "game.bin")},
		{"src/game.asm", "", formatHex, true, filepath.Join("src", "game.hex")},
		{"src/game.asm", "out.bin", formatBinary, false, "out.bin"},
		{"src/game.asm", "build", formatBinary, true, filepath.Join("build", "game.bin")},
	}
	for _, tt := range tests {
		if got := outputPath(tt.input, tt.explicit, tt.format, tt.multi); got != tt.want {
			t.Errorf("outputPath(%q, %q) = %q, want %q", tt.input, tt.explicit, got, tt.want)
		}
	}
	if got := sidePath(filepath.Join("build", "game.bin"), ".lst"); got != filepath.Join("build", "game.lst") {
		t.Errorf("sidePath = %q", got)
	}
}
