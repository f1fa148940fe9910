// diag.go - Diagnostic printing with optional terminal colours

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
	"fmt"
	"io"
	"os"

	"github.com/intuitionamiga/z80asm/assembler"
	"github.com/xyproto/env/v2"
	"golang.org/x/term"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

type diagPrinter struct {
	w     io.Writer
	color bool
}

// newDiagPrinter colours output when f is a terminal and NO_COLOR is unset.
func newDiagPrinter(f *os.File) *diagPrinter {
	color := term.IsTerminal(int(f.Fd())) && !env.Has("NO_COLOR")
	return &diagPrinter{w: f, color: color}
}

func (p *diagPrinter) paint(code, text string) string {
	if !p.color {
		return text
	}
	return code + text + ansiReset
}

// diagnostic prints "file:line: error Zxxxx: message".
func (p *diagPrinter) diagnostic(source string, e assembler.AssemblerError) {
	file := e.File
	if file == "" {
		file = source
	}
	kind, tint := "error", ansiRed
	if e.IsWarning {
		kind, tint = "warning", ansiYellow
	}
	fmt.Fprintf(p.w, "%s %s %s\n",
		p.paint(ansiBold, fmt.Sprintf("%s:%d:", file, e.Line)),
		p.paint(tint, fmt.Sprintf("%s %s:", kind, e.Code)),
		e.Message)
}

func (p *diagPrinter) trace(source string, t assembler.Trace, files []string) {
	file := source
	if t.FileIndex >= 0 && t.FileIndex < len(files) {
		file = files[t.FileIndex]
	}
	fmt.Fprintf(p.w, "%s %s %s\n",
		p.paint(ansiBold, fmt.Sprintf("%s:%d:", file, t.Line)),
		p.paint(ansiCyan, "trace:"),
		t.Message)
}

func (p *diagPrinter) failure(err error) {
	fmt.Fprintf(p.w, "%s %v\n", p.paint(ansiRed, "error:"), err)
}

// summary prints the per-file result line.
func (p *diagPrinter) summary(source string, out *assembler.Output, path string) {
	n := 0
	for _, s := range out.Segments {
		n += len(s.Code)
	}
	fmt.Fprintf(p.w, "%s: %d bytes in %d segment(s) -> %s\n", source, n, len(out.Segments), path)
}
