// writer.go - Binary and Intel HEX output writers

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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/intuitionamiga/z80asm/assembler"
)

const hexRecordSize = 16

// Intel HEX record types.
const (
	ihexData        = 0x00
	ihexEOF         = 0x01
	ihexExtLinear   = 0x04
	ihexStartLinear = 0x05
)

// saveAddress is where an unbanked segment goes in the image: its .xorg
// address when set, otherwise its start address.
func saveAddress(s *assembler.Segment) uint16 {
	if s.XorgValue != nil {
		return *s.XorgValue
	}
	return s.StartAddress
}

// orderedSegments returns the non-empty segments: unbanked ones by save
// address first, then banked ones by bank and offset.
func orderedSegments(out *assembler.Output) []*assembler.Segment {
	var segs []*assembler.Segment
	for _, s := range out.Segments {
		if len(s.Code) > 0 {
			segs = append(segs, s)
		}
	}
	slices.SortStableFunc(segs, func(a, b *assembler.Segment) int {
		if (a.Bank < 0) != (b.Bank < 0) {
			if a.Bank < 0 {
				return -1
			}
			return 1
		}
		if a.Bank != b.Bank {
			return a.Bank - b.Bank
		}
		if a.Bank >= 0 {
			return a.BankOffset - b.BankOffset
		}
		return int(saveAddress(a)) - int(saveAddress(b))
	})
	return segs
}

// writeBinary writes a flat memory image. Unbanked segments are laid out
// at their addresses starting from the lowest one, with gaps padded with
// fill. Banked segments follow, each bank padded to its full size.
func writeBinary(w io.Writer, out *assembler.Output, fill byte) error {
	bw := bufio.NewWriter(w)
	segs := orderedSegments(out)

	var image []byte
	base := -1
	bank := -1
	var bankImage []byte
	flushBank := func() {
		if bank >= 0 {
			for len(bankImage) < 0x4000 {
				bankImage = append(bankImage, fill)
			}
			image = append(image, bankImage...)
			bankImage = nil
		}
	}

	for _, s := range segs {
		if s.Bank >= 0 {
			if s.Bank != bank {
				flushBank()
				bank = s.Bank
			}
			end := s.BankOffset + len(s.Code)
			for len(bankImage) < end {
				bankImage = append(bankImage, fill)
			}
			copy(bankImage[s.BankOffset:end], s.Code)
			continue
		}
		start := int(saveAddress(s))
		if base < 0 {
			base = start
		}
		offset := start - base
		if offset < len(image) {
			return fmt.Errorf("segment at $%04X overlaps the previous one", start)
		}
		for len(image) < offset {
			image = append(image, fill)
		}
		image = append(image, s.Code...)
	}
	flushBank()

	if _, err := bw.Write(image); err != nil {
		return err
	}
	return bw.Flush()
}

// writeIntelHex writes the segments as Intel HEX records. Banked segments
// are placed above 64K using extended linear address records; the entry
// address, when set, becomes a start linear address record.
func writeIntelHex(w io.Writer, out *assembler.Output) error {
	bw := bufio.NewWriter(w)
	upper := 0
	for _, s := range orderedSegments(out) {
		addr := int(saveAddress(s))
		if s.Bank >= 0 {
			addr = 0x10000 + s.Bank*0x4000 + s.BankOffset
		}
		for off := 0; off < len(s.Code); off += hexRecordSize {
			chunk := s.Code[off:min(off+hexRecordSize, len(s.Code))]
			a := addr + off
			if a>>16 != upper {
				upper = a >> 16
				writeHexRecord(bw, 0, ihexExtLinear, []byte{byte(upper >> 8), byte(upper)})
			}
			// Records never cross a 64K boundary.
			if room := 0x10000 - a&0xffff; len(chunk) > room {
				writeHexRecord(bw, uint16(a), ihexData, chunk[:room])
				upper = (a + room) >> 16
				writeHexRecord(bw, 0, ihexExtLinear, []byte{byte(upper >> 8), byte(upper)})
				writeHexRecord(bw, 0, ihexData, chunk[room:])
				continue
			}
			writeHexRecord(bw, uint16(a), ihexData, chunk)
		}
	}
	if out.EntryAddress != nil {
		e := *out.EntryAddress
		writeHexRecord(bw, 0, ihexStartLinear, []byte{0, 0, byte(e >> 8), byte(e)})
	}
	writeHexRecord(bw, 0, ihexEOF, nil)
	return bw.Flush()
}

func writeHexRecord(w io.Writer, addr uint16, kind byte, data []byte) {
	sum := byte(len(data)) + byte(addr>>8) + byte(addr) + kind
	var sb strings.Builder
	fmt.Fprintf(&sb, ":%02X%04X%02X", len(data), addr, kind)
	for _, b := range data {
		fmt.Fprintf(&sb, "%02X", b)
		sum += b
	}
	fmt.Fprintf(&sb, "%02X\n", -sum)
	io.WriteString(w, sb.String())
}

// outputPath derives the image path for input. An explicit path is used as
// is for a single input and as a directory when several inputs are built.
func outputPath(input, explicit, format string, multi bool) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + "." + format
	switch {
	case explicit == "":
		return filepath.Join(filepath.Dir(input), name)
	case multi:
		return filepath.Join(explicit, name)
	}
	return explicit
}

// sidePath replaces the extension of an image path.
func sidePath(image, ext string) string {
	return strings.TrimSuffix(image, filepath.Ext(image)) + ext
}

// writeOutputs writes the image and, when requested, listing and symbol
// files of one successful compilation.
func writeOutputs(cfg *buildConfig, out *assembler.Output, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	write := func(path string, fn func(io.Writer) error) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		if err := fn(f); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return nil
	}

	var err error
	switch cfg.Format {
	case formatHex:
		err = write(path, func(w io.Writer) error { return writeIntelHex(w, out) })
	default:
		err = write(path, func(w io.Writer) error { return writeBinary(w, out, cfg.Fill) })
	}
	if err != nil {
		return err
	}
	if cfg.Listing {
		if err := write(sidePath(path, ".lst"), func(w io.Writer) error { return out.WriteListing(w, true) }); err != nil {
			return err
		}
	}
	if cfg.Symbols {
		if err := write(sidePath(path, ".sym"), out.WriteSymbols); err != nil {
			return err
		}
	}
	return nil
}
