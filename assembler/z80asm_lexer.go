// z80asm_lexer.go - Line tokenizer for Z80 assembly source

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
)

type tokenKind int

const (
	tokEOL        tokenKind = iota
	tokIdent                // identifier, keyword, register; may contain dots or start with '.' or '`'
	tokNumber               // numeric literal, text as written
	tokString               // "..." body without quotes
	tokChar                 // '...' body without quotes
	tokOp                   // operator or punctuation
	tokDollar               // $ (current address)
	tokCounter              // $cnt
	tokMacroParam           // {{name}}, text holds the name
	tokDirective            // #include, #if, ...; text holds the lower-case name
	tokNoneArg              // placeholder for an omitted macro argument
)

type token struct {
	kind tokenKind
	text string
	col  int // 1-based
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

// isOperandEnd reports whether a token can end an operand, which decides
// whether a following '%' is the modulo operator or a binary prefix.
func (t token) isOperandEnd() bool {
	switch t.kind {
	case tokIdent, tokNumber, tokString, tokChar, tokDollar, tokCounter, tokMacroParam:
		return true
	case tokOp:
		return t.text == ")" || t.text == "]"
	}
	return false
}

// Operators, longest first.
var operators = []string{
	"===", "!==",
	"<=", ">=", "==", "!=", "<<", ">>", "&&", "||", "??", "<?", ">?", "**", "->", "::", ":=",
	"(", ")", "[", "]", ",", ":", "=", "?", "|", "^", "&", "<", ">", "+", "-", "*", "/", "%", "~", "!", ".",
}

var preprocDirectives = map[string]bool{
	"include": true, "if": true, "ifdef": true, "ifndef": true, "ifmod": true,
	"ifnmod": true, "else": true, "endif": true, "define": true, "undef": true,
}

// lexError carries the code and column of a tokenizer failure.
type lexError struct {
	code ErrorCode
	col  int
	arg  string
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '@' || c == '`' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '@' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// tokenize splits one source line into tokens. Comments are dropped.
func tokenize(line string) ([]token, *lexError) {
	var toks []token
	i := 0
	n := len(line)
	emit := func(kind tokenKind, text string, start int) {
		toks = append(toks, token{kind: kind, text: text, col: start + 1})
	}
	prevIsOperand := func() bool {
		if len(toks) == 0 {
			return false
		}
		prev := toks[len(toks)-1]
		return prev.isOperandEnd() && !isDirectiveOrMnemonic(prev)
	}

	for i < n {
		c := line[i]
		if c == ' ' || c == '\t' || c == '\r' {
			i++
			continue
		}
		if c == ';' || (c == '/' && i+1 < n && line[i+1] == '/') {
			break
		}
		start := i

		switch {
		case c == '{' && i+1 < n && line[i+1] == '{':
			end := strings.Index(line[i+2:], "}}")
			if end < 0 {
				return nil, &lexError{code: ErrMacroParamClose, col: start + 1}
			}
			name := strings.TrimSpace(line[i+2 : i+2+end])
			if name == "" {
				return nil, &lexError{code: ErrIdentExpected, col: start + 1}
			}
			emit(tokMacroParam, name, start)
			i += end + 4

		case c == '#' && len(toks) == 0 && i+1 < n && isIdentStart(line[i+1]):
			j := i + 1
			for j < n && isIdentChar(line[j]) {
				j++
			}
			word := strings.ToLower(line[i+1 : j])
			if preprocDirectives[word] {
				emit(tokDirective, word, start)
				i = j
				continue
			}
			j = scanNumber(line, i+1)
			emit(tokNumber, line[i:j], start)
			i = j

		case (c == '#' || c == '$') && i+1 < n && isHexDigit(line[i+1]):
			if c == '$' && hasWordPrefix(line[i+1:], "cnt") {
				emit(tokCounter, "$cnt", start)
				i += 4
				continue
			}
			j := i + 1
			for j < n && (isHexDigit(line[j]) || line[j] == '_') {
				j++
			}
			emit(tokNumber, line[i:j], start)
			i = j

		case c == '$':
			if hasWordPrefix(line[i+1:], "cnt") {
				emit(tokCounter, "$cnt", start)
				i += 4
				continue
			}
			emit(tokDollar, "$", start)
			i++

		case c == '%' && !prevIsOperand() && i+1 < n && (line[i+1] == '0' || line[i+1] == '1'):
			j := i + 1
			for j < n && (line[j] == '0' || line[j] == '1' || line[j] == '_') {
				j++
			}
			emit(tokNumber, line[i:j], start)
			i = j

		case isDigit(c) || (c == '.' && i+1 < n && isDigit(line[i+1])):
			j := scanNumber(line, i)
			emit(tokNumber, line[i:j], start)
			i = j

		case c == '.' && i+1 < n && isIdentStart(line[i+1]) && line[i+1] != '`':
			j := scanIdent(line, i+1)
			emit(tokIdent, line[i:j], start)
			i = j

		case isIdentStart(c):
			j := scanIdent(line, i)
			word := line[i:j]
			if strings.EqualFold(word, "af") && j < n && line[j] == '\'' {
				j++
				word = line[i:j]
			}
			emit(tokIdent, word, start)
			i = j

		case c == '"':
			j, ok := scanQuoted(line, i, '"')
			if !ok {
				return nil, &lexError{code: ErrInvalidToken, col: start + 1, arg: line[i:]}
			}
			emit(tokString, line[i+1:j-1], start)
			i = j

		case c == '\'':
			j, ok := scanQuoted(line, i, '\'')
			if !ok {
				return nil, &lexError{code: ErrInvalidToken, col: start + 1, arg: line[i:]}
			}
			emit(tokChar, line[i+1:j-1], start)
			i = j

		default:
			op := ""
			for _, candidate := range operators {
				if strings.HasPrefix(line[i:], candidate) {
					op = candidate
					break
				}
			}
			if op == "" {
				return nil, &lexError{code: ErrInvalidToken, col: start + 1, arg: string(c)}
			}
			emit(tokOp, op, start)
			i += len(op)
		}
	}
	return toks, nil
}

// hasWordPrefix reports whether s starts with word (case-insensitive) and the
// word is not followed by another identifier character.
func hasWordPrefix(s, word string) bool {
	if len(s) < len(word) || !strings.EqualFold(s[:len(word)], word) {
		return false
	}
	return len(s) == len(word) || !isIdentChar(s[len(word)])
}

// scanIdent reads an identifier; inner dots join compound names.
func scanIdent(line string, i int) int {
	n := len(line)
	i++
	for i < n {
		if isIdentChar(line[i]) {
			i++
			continue
		}
		if line[i] == '.' && i+1 < n && isIdentChar(line[i+1]) {
			i += 2
			continue
		}
		break
	}
	return i
}

// scanNumber reads a literal body starting with a digit or a dot. An exponent
// sign is accepted after e/E when the text so far is a decimal mantissa.
func scanNumber(line string, i int) int {
	n := len(line)
	start := i
	for i < n {
		c := line[i]
		if isIdentChar(c) || c == '.' {
			i++
			continue
		}
		if (c == '+' || c == '-') && i > start && (line[i-1] == 'e' || line[i-1] == 'E') &&
			isDecimalMantissa(line[start:i-1]) && i+1 < n && isDigit(line[i+1]) {
			i++
			continue
		}
		break
	}
	return i
}

func isDecimalMantissa(s string) bool {
	if s == "" {
		return false
	}
	dots := 0
	for i := 0; i < len(s); i++ {
		switch {
		case isDigit(s[i]):
		case s[i] == '.':
			dots++
		default:
			return false
		}
	}
	return dots <= 1
}

// scanQuoted returns the index after the closing quote.
func scanQuoted(line string, i int, quote byte) (int, bool) {
	n := len(line)
	i++
	for i < n {
		switch line[i] {
		case '\\':
			i += 2
			continue
		case quote:
			return i + 1, true
		}
		i++
	}
	return i, false
}

// tokensText renders tokens back to source form; used for macro argument
// text and for re-lexing spliced lines.
func tokensText(toks []token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && needsSpace(toks[i-1], t) {
			sb.WriteByte(' ')
		}
		switch t.kind {
		case tokString:
			sb.WriteString(`"` + t.text + `"`)
		case tokChar:
			sb.WriteString("'" + t.text + "'")
		case tokMacroParam:
			sb.WriteString("{{" + t.text + "}}")
		case tokDirective:
			sb.WriteString("#" + t.text)
		default:
			sb.WriteString(t.text)
		}
	}
	return sb.String()
}

func needsSpace(prev, cur token) bool {
	if prev.kind == tokOp && (prev.text == "(" || prev.text == "[") {
		return false
	}
	if cur.kind == tokOp && (cur.text == ")" || cur.text == "]" || cur.text == ",") {
		return false
	}
	return true
}
