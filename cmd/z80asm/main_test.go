// main_test.go - End-to-end command tests

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
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/intuitionamiga/z80asm/assembler"
)

func writeSources(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(text), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

func TestMain_RunBinary(t *testing.T) {
	dir := writeSources(t, map[string]string{
		"game.asm": "\t.org $8000\nStart:\n\tld a,VALUE\n\tjp Start\n",
	})
	cfg := defaultConfig()
	cfg.Defines["VALUE"] = assembler.IntValue(7)
	cfg.Listing = true
	cfg.Symbols = true

	var stderr bytes.Buffer
	src := filepath.Join(dir, "game.asm")
	if err := run(context.Background(), cfg, []string{src}, &stderr); err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}
	image := readFile(t, filepath.Join(dir, "game.bin"))
	want := []byte{0x3E, 0x07, 0xC3, 0x00, 0x80}
	if !bytes.Equal(image, want) {
		t.Fatalf("image = % 02X, want % 02X", image, want)
	}
	if lst := readFile(t, filepath.Join(dir, "game.lst")); !bytes.Contains(lst, []byte("8000  3E 07")) {
		t.Fatalf("listing missing first line:\n%s", lst)
	}
	if sym := readFile(t, filepath.Join(dir, "game.sym")); !bytes.Contains(sym, []byte("$8000")) {
		t.Fatalf("symbol file missing Start:\n%s", sym)
	}
}

func TestMain_RunHexWithEntry(t *testing.T) {
	dir := writeSources(t, map[string]string{
		"boot.asm": "\t.org $8000\n\tnop\nMain:\n\tret\n\t.ent Main\n",
	})
	cfg := defaultConfig()
	cfg.Format = formatHex
	cfg.Output = filepath.Join(dir, "out", "boot.hex")

	var stderr bytes.Buffer
	if err := run(context.Background(), cfg, []string{filepath.Join(dir, "boot.asm")}, &stderr); err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}
	hex := string(readFile(t, cfg.Output))
	if !strings.HasPrefix(hex, ":0280000000C9") {
		t.Fatalf("unexpected data record:\n%s", hex)
	}
	if !strings.Contains(hex, ":0400000500008001") {
		t.Fatalf("missing entry record:\n%s", hex)
	}
}

func TestMain_RunSeveralFiles(t *testing.T) {
	files := map[string]string{}
	var sources []string
	for i, name := range []string{"a.asm", "b.asm", "c.asm", "d.asm"} {
		files[name] = "\t.defb " + string(rune('1'+i)) + "\n"
		sources = append(sources, name)
	}
	dir := writeSources(t, files)
	for i := range sources {
		sources[i] = filepath.Join(dir, sources[i])
	}

	cfg := defaultConfig()
	cfg.Jobs = 2
	cfg.Output = filepath.Join(dir, "build")
	var stderr bytes.Buffer
	if err := run(context.Background(), cfg, sources, &stderr); err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}
	for i, name := range []string{"a.bin", "b.bin", "c.bin", "d.bin"} {
		image := readFile(t, filepath.Join(dir, "build", name))
		if len(image) != 1 || image[0] != byte(i+1) {
			t.Errorf("%s = % 02X, want %02X", name, image, i+1)
		}
	}
}

func TestMain_RunReportsDiagnosticsInOrder(t *testing.T) {
	dir := writeSources(t, map[string]string{
		"one.asm":   "\tld a,\n",
		"two.asm":   "\tnop\n",
		"three.asm": "\t.error \"stop\"\n",
	})
	sources := []string{
		filepath.Join(dir, "one.asm"),
		filepath.Join(dir, "two.asm"),
		filepath.Join(dir, "three.asm"),
	}
	var stderr bytes.Buffer
	err := run(context.Background(), defaultConfig(), sources, &stderr)
	if !errors.Is(err, errAssembly) {
		t.Fatalf("run error = %v, want errAssembly", err)
	}
	if !strings.Contains(err.Error(), "2 of 3") {
		t.Fatalf("error = %v", err)
	}
	text := stderr.String()
	first := strings.Index(text, "one.asm:1:")
	last := strings.Index(text, "three.asm:1: error Z2000:")
	if first < 0 || last < 0 || first > last {
		t.Fatalf("diagnostics out of order:\n%s", text)
	}
	if _, err := os.Stat(filepath.Join(dir, "one.bin")); err == nil {
		t.Fatal("failed source produced an image")
	}
	if _, err := os.Stat(filepath.Join(dir, "two.bin")); err != nil {
		t.Fatal("successful source was not written")
	}
}

func TestMain_RunMissingFile(t *testing.T) {
	var stderr bytes.Buffer
	err := run(context.Background(), defaultConfig(), []string{filepath.Join(t.TempDir(), "none.asm")}, &stderr)
	if err == nil || errors.Is(err, errAssembly) {
		t.Fatalf("run error = %v, want a host error", err)
	}
}

func TestMain_Traces(t *testing.T) {
	dir := writeSources(t, map[string]string{
		"t.asm": "\t.trace \"size \", 4\n\tnop\n",
	})
	var stderr bytes.Buffer
	if err := run(context.Background(), defaultConfig(), []string{filepath.Join(dir, "t.asm")}, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stderr.String(), "trace: size 4") {
		t.Fatalf("trace not printed:\n%s", stderr.String())
	}
}

func TestMain_CommandFlags(t *testing.T) {
	dir := writeSources(t, map[string]string{
		"inc/defs.asm": "Width .equ 32\n",
		"main.asm":     "#include \"defs.asm\"\n#ifdef FAST\n\t.defb Width, LEVEL\n#endif\n",
	})
	t.Chdir(dir)

	cmd := newRootCommand()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"-I", "inc", "-D", "FAST", "-D", "LEVEL=3", "--fill", "255", "-o", "main.out", "main.asm"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v\n%s", err, stderr.String())
	}
	image := readFile(t, filepath.Join(dir, "main.out"))
	if !bytes.Equal(image, []byte{32, 3}) {
		t.Fatalf("image = % 02X", image)
	}
}

func TestMain_CommandProjectFilePrecedence(t *testing.T) {
	dir := writeSources(t, map[string]string{
		projectFileName: "format = \"hex\"\ndefines = { LEVEL = 1 }\n",
		"main.asm":      "\t.defb LEVEL\n",
	})
	t.Chdir(dir)

	cmd := newRootCommand()
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-D", "LEVEL=2", "main.asm"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	hex := string(readFile(t, filepath.Join(dir, "main.hex")))
	if !strings.HasPrefix(hex, ":0180000002") {
		t.Fatalf("flag define did not win over the project file:\n%s", hex)
	}

	cmd = newRootCommand()
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-f", "bin", "main.asm"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if image := readFile(t, filepath.Join(dir, "main.bin")); !bytes.Equal(image, []byte{1}) {
		t.Fatalf("image = % 02X, want 01", image)
	}
}

func TestMain_CommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{}},
		{"bad format", []string{"-f", "srec", "x.asm"}},
		{"bad define", []string{"-D", "=1", "x.asm"}},
		{"missing config", []string{"--config", "/no/such/z80asm.lua", "x.asm"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			cmd := newRootCommand()
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs(tt.args)
			if err := cmd.ExecuteContext(context.Background()); err == nil {
				t.Fatal("command succeeded")
			}
		})
	}
}

func TestDiag_Format(t *testing.T) {
	var buf bytes.Buffer
	p := &diagPrinter{w: &buf}
	p.diagnostic("main.asm", assembler.AssemblerError{Code: "Z0401", Message: "unknown mnemonic", Line: 4})
	p.diagnostic("main.asm", assembler.AssemblerError{Code: "Z0302", Message: "model twice", File: "lib.asm", Line: 2, IsWarning: true})
	want := "main.asm:4: error Z0401: unknown mnemonic\nlib.asm:2: warning Z0302: model twice\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	p.color = true
	p.failure(errors.New("boom"))
	if !strings.Contains(buf.String(), ansiRed) || !strings.Contains(buf.String(), "boom") {
		t.Fatalf("coloured failure = %q", buf.String())
	}
}
