// z80asm_literal.go - Numeric literal and ZX string escape parsing

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
	"strconv"
	"strings"
)

// ParseNumber converts the lexical form of a numeric literal to a Value.
// Malformed or out-of-range literals yield ErrorValue.
//
//	decimal   12345
//	hex       #1F  $1F  0x1F  1Fh  (h suffix needs a leading digit)
//	binary    %1010_1010  0b1010  1010b
//	octal     17o  17O  17q  17Q
//	real      3.14  .5  3.14E+2  1e3
func ParseNumber(text string) Value {
	if text == "" {
		return ErrorValue
	}
	switch {
	case text[0] == '#' || text[0] == '$':
		return parseRadix(text[1:], 16, 8)
	case text[0] == '%':
		return parseRadix(text[1:], 2, 32)
	case len(text) > 2 && (text[:2] == "0x" || text[:2] == "0X"):
		return parseRadix(text[2:], 16, 8)
	}

	last := text[len(text)-1]
	body := text[:len(text)-1]
	switch {
	case (last == 'h' || last == 'H') && isDigit(text[0]):
		return parseRadix(body, 16, 8)
	case last == 'o' || last == 'O' || last == 'q' || last == 'Q':
		return parseRadix(body, 8, 11)
	case len(text) > 2 && (text[:2] == "0b" || text[:2] == "0B") && isBinaryText(text[2:]):
		return parseRadix(text[2:], 2, 32)
	case (last == 'b' || last == 'B') && isBinaryText(body):
		return parseRadix(body, 2, 32)
	}

	if strings.ContainsAny(text, ".eE") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return ErrorValue
		}
		return RealValue(f)
	}
	for i := 0; i < len(text); i++ {
		if !isDigit(text[i]) {
			return ErrorValue
		}
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return ErrorValue
	}
	return IntValue(n)
}

// parseRadix parses digits in the given base. Underscores separate digit
// groups and are ignored; maxDigits bounds the significant digit count.
func parseRadix(digits string, base, maxDigits int) Value {
	clean := strings.ReplaceAll(digits, "_", "")
	if clean == "" || len(clean) > maxDigits {
		return ErrorValue
	}
	n, err := strconv.ParseUint(clean, base, 64)
	if err != nil {
		return ErrorValue
	}
	return IntValue(int64(n))
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isBinaryText(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '1' && s[i] != '_' {
			return false
		}
	}
	return true
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// zxEscapes maps single-character escapes to ZX Spectrum control codes.
var zxEscapes = map[byte]byte{
	'i': 0x10, // INK
	'p': 0x11, // PAPER
	'f': 0x12, // FLASH
	'b': 0x13, // BRIGHT
	'I': 0x14, // INVERSE
	'o': 0x15, // OVER
	'a': 0x16, // AT
	't': 0x17, // TAB
	'P': 0x60, // pound sign
	'C': 0x7F, // copyright sign
	'0': 0x00,
}

// DecodeString converts the body of a string or character literal (without
// quotes) to the bytes it denotes. A truncated escape at the end of the text
// is flushed with its partial meaning.
func DecodeString(body string) []byte {
	out := make([]byte, 0, len(body))
	const (
		stNormal = iota
		stEscape
		stHex1
		stHex2
	)
	state := stNormal
	var hexVal byte
	for _, r := range body {
		c := spectrumByte(r)
		switch state {
		case stNormal:
			if c == '\\' {
				state = stEscape
				continue
			}
			out = append(out, c)
		case stEscape:
			if c == 'x' {
				state = stHex1
				continue
			}
			if mapped, ok := zxEscapes[c]; ok {
				out = append(out, mapped)
			} else {
				out = append(out, c)
			}
			state = stNormal
		case stHex1:
			if isHexDigit(c) {
				hexVal = hexNibble(c)
				state = stHex2
				continue
			}
			out = append(out, 'x')
			state = stNormal
			if c == '\\' {
				state = stEscape
				continue
			}
			out = append(out, c)
		case stHex2:
			if isHexDigit(c) {
				out = append(out, hexVal<<4|hexNibble(c))
				state = stNormal
				continue
			}
			out = append(out, hexVal)
			state = stNormal
			if c == '\\' {
				state = stEscape
				continue
			}
			out = append(out, c)
		}
	}

	switch state {
	case stEscape:
		out = append(out, '\\')
	case stHex1:
		out = append(out, 'x')
	case stHex2:
		out = append(out, hexVal)
	}
	return out
}

// spectrumByte maps a source rune to the Spectrum character set.
func spectrumByte(r rune) byte {
	switch {
	case r == '£':
		return 0x60
	case r == '©':
		return 0x7F
	case r < 0x100:
		return byte(r)
	}
	return '?'
}
