// z80asm_output.go - Compilation output, symbol table and listing writer

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
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ListFileItem maps a source line to the bytes it emitted.
type ListFileItem struct {
	FileIndex         int
	LineNumber        int
	Address           uint16
	SegmentIndex      int
	CodeStartIndex    int
	CodeLength        int
	SourceText        string
	IsMacroInvocation bool
}

// Symbol is an entry of the exported symbol table.
type Symbol struct {
	Name  string // qualified with the module path
	Value Value
	Kind  SymbolKind
	Used  bool
}

// Trace is a message produced by .trace or .tracehex.
type Trace struct {
	FileIndex int
	Line      int
	Message   string
}

// Output is the result of a compilation. Segments is empty whenever Errors
// holds a non-warning diagnostic.
type Output struct {
	Segments           []*Segment
	Errors             []AssemblerError
	Symbols            []Symbol
	SourceFiles        []string
	ListFileItems      []ListFileItem
	Traces             []Trace
	EntryAddress       *uint16
	ExportEntryAddress *uint16
	Model              string
}

// ErrorCount returns the number of non-warning diagnostics.
func (o *Output) ErrorCount() int {
	n := 0
	for _, e := range o.Errors {
		if !e.IsWarning {
			n++
		}
	}
	return n
}

// Err joins the non-warning diagnostics; nil means the compilation
// succeeded.
func (o *Output) Err() error { return errorList(o.Errors) }

// Symbol looks up an exported symbol by qualified name.
func (o *Output) Symbol(name string) (Symbol, bool) {
	for _, s := range o.Symbols {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

// Code returns the bytes of all segments concatenated in order.
func (o *Output) Code() []byte {
	var code []byte
	for _, s := range o.Segments {
		code = append(code, s.Code...)
	}
	return code
}

// collectSymbols flattens the module tree into a sorted symbol list.
func (a *Z80Assembler) collectSymbols() []Symbol {
	var list []Symbol
	for idx, node := range a.modules.nodes {
		for _, sym := range node.symbols {
			list = append(list, Symbol{
				Name:  a.modules.qualifiedName(idx, sym.name),
				Value: sym.value,
				Kind:  sym.kind,
				Used:  sym.used,
			})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// WriteListing prints an address/bytes/source listing. When disasm is true
// a disassembly column is added for instruction lines.
func (o *Output) WriteListing(w io.Writer, disasm bool) error {
	bw := bufio.NewWriter(w)
	for _, item := range o.ListFileItems {
		if item.SegmentIndex < 0 || item.SegmentIndex >= len(o.Segments) {
			continue
		}
		seg := o.Segments[item.SegmentIndex]
		end := min(item.CodeStartIndex+item.CodeLength, len(seg.Code))
		code := seg.Code[item.CodeStartIndex:end]

		// Long data lines continue on extra rows of 8 bytes each.
		for off := 0; off < len(code) || off == 0; off += 8 {
			chunk := code[off:min(off+8, len(code))]
			var hex strings.Builder
			for i, b := range chunk {
				if i > 0 {
					hex.WriteByte(' ')
				}
				fmt.Fprintf(&hex, "%02X", b)
			}
			source := ""
			if off == 0 {
				source = item.SourceText
				if disasm && item.CodeLength <= 4 {
					if text, n := DisassembleZ80(code, item.Address); n == len(code) {
						source = fmt.Sprintf("%-20s ; %s", text, strings.TrimSpace(source))
					}
				}
			}
			fmt.Fprintf(bw, "%04X  %-24s %s\n", uint16(int(item.Address)+off), hex.String(), source)
			if len(code) == 0 {
				break
			}
		}
	}
	return bw.Flush()
}

// WriteSymbols prints the symbol table as "name = value" lines.
func (o *Output) WriteSymbols(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, s := range o.Symbols {
		switch s.Value.Type() {
		case ValueInteger, ValueBool:
			fmt.Fprintf(bw, "%-32s = $%04X\n", s.Name, s.Value.AsWord())
		case ValueReal:
			fmt.Fprintf(bw, "%-32s = %g\n", s.Name, s.Value.AsReal())
		case ValueString:
			fmt.Fprintf(bw, "%-32s = %q\n", s.Name, s.Value.AsString())
		}
	}
	return bw.Flush()
}
