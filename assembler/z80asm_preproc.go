// z80asm_preproc.go - Parse phase: #include, conditional directives, .model

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
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// validModels lists the accepted .model and #ifmod names.
var validModels = map[string]bool{
	"SPECTRUM48": true, "SPECTRUM128": true, "SPECTRUMP3": true, "NEXT": true,
}

// parseFrame tracks one file being parsed.
type parseFrame struct {
	path     string
	index    int
	parent   *parseFrame
	included map[string]bool // files included directly by this one
}

func (f *parseFrame) inChain(path string) bool {
	for fr := f; fr != nil; fr = fr.parent {
		if fr.path == path {
			return true
		}
	}
	return false
}

// condState is the #if nesting of one file. Entries are true or false for
// evaluated branches and nil inside a skipped outer branch.
type condState struct {
	stack  []*bool
	active bool
}

func boolPtr(b bool) *bool { return &b }

// parseFile tokenizes and parses all lines of a file, applying directives.
func (a *Z80Assembler) parseFile(frame *parseFrame, text string) []*asmLine {
	var lines []*asmLine
	cond := &condState{active: true}
	physical := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var last sourceLine

	for i, raw := range physical {
		src := sourceLine{fileIndex: frame.index, line: i + 1, text: raw}
		last = src
		toks, lexErr := tokenize(raw)
		if lexErr == nil && len(toks) > 0 && toks[0].kind == tokDirective {
			lines = append(lines, a.applyDirective(frame, src, toks, cond)...)
			continue
		}
		if !cond.active {
			continue
		}
		if lexErr != nil {
			args := []interface{}{}
			if lexErr.arg != "" {
				args = append(args, lexErr.arg)
			}
			a.reportAt(src, lexErr.col, nil, lexErr.code, args...)
			a.parseFailed = true
			continue
		}

		line, err := parseTokens(src, toks, a.parseInMacro)
		if err != nil {
			var pe *parseError
			if errors.As(err, &pe) {
				a.reportAt(src, pe.col, nil, pe.code, pe.args...)
			}
			a.parseFailed = true
			continue
		}
		switch line.kind {
		case LineMacro:
			a.parseInMacro = true
		case LineEndm:
			a.parseInMacro = false
		case LineModel:
			a.line = line
			a.applyModel(line)
			continue
		}
		lines = append(lines, line)
	}

	if len(cond.stack) > 0 {
		a.reportAt(last, 1, nil, ErrDirectiveUnclosed)
	}
	return lines
}

// applyDirective processes a preprocessor directive line and returns the
// lines an #include contributes.
func (a *Z80Assembler) applyDirective(frame *parseFrame, src sourceLine, toks []token, cond *condState) []*asmLine {
	dir := toks[0]
	p := &lineParser{toks: toks, pos: 1}
	report := func(code ErrorCode, args ...interface{}) {
		a.reportAt(src, dir.col, nil, code, args...)
	}

	switch dir.text {
	case "if", "ifdef", "ifndef", "ifmod", "ifnmod":
		if !cond.active {
			cond.stack = append(cond.stack, nil)
			return nil
		}
		var result bool
		switch dir.text {
		case "if":
			expr, err := p.parseExpr()
			if err != nil {
				report(ErrExpressionExpected)
				break
			}
			v := Evaluate(&directiveContext{asm: a, src: src, col: dir.col}, expr)
			result = v.IsValid() && v.AsBool()
		case "ifmod", "ifnmod":
			name := strings.ToUpper(p.peek().text)
			if !validModels[name] {
				report(ErrDirectiveModel, p.peek().text)
				break
			}
			result = a.modelName() == name
			if dir.text == "ifnmod" {
				result = !result
			}
		default:
			_, defined := a.conditionSymbols[a.fold(p.peek().text)]
			result = defined == (dir.text == "ifdef")
		}
		cond.active = result
		cond.stack = append(cond.stack, boolPtr(result))

	case "else":
		if len(cond.stack) == 0 {
			report(ErrDirectiveElse)
			return nil
		}
		top := cond.stack[len(cond.stack)-1]
		if top != nil {
			cond.active = !*top
			cond.stack[len(cond.stack)-1] = boolPtr(cond.active)
		}

	case "endif":
		if len(cond.stack) == 0 {
			report(ErrDirectiveEndif)
			return nil
		}
		cond.stack = cond.stack[:len(cond.stack)-1]
		cond.active = len(cond.stack) == 0 || (cond.stack[len(cond.stack)-1] != nil && *cond.stack[len(cond.stack)-1])

	case "define", "undef":
		if !cond.active {
			return nil
		}
		name := p.peek()
		if name.kind != tokIdent {
			report(ErrIdentExpected)
			return nil
		}
		if dir.text == "define" {
			a.conditionSymbols[a.fold(name.text)] = BoolValue(true)
		} else {
			delete(a.conditionSymbols, a.fold(name.text))
		}

	case "include":
		if !cond.active {
			return nil
		}
		name := p.peek()
		if name.kind != tokString {
			report(ErrStringExpected)
			return nil
		}
		return a.includeFile(frame, src, dir.col, name.text)
	}
	return nil
}

// includeFile resolves, reads and parses an included source file.
func (a *Z80Assembler) includeFile(frame *parseFrame, src sourceLine, col int, name string) []*asmLine {
	path, ok := a.resolveInclude(frame.path, name)
	if !ok {
		a.reportAt(src, col, nil, ErrIncludeNotFound, name)
		return nil
	}
	if frame.included[path] {
		a.reportAt(src, col, nil, ErrIncludeRepeated, path)
		return nil
	}
	if frame.inChain(path) {
		a.reportAt(src, col, nil, ErrIncludeCircular, path)
		return nil
	}
	frame.included[path] = true

	data, err := os.ReadFile(path)
	if err != nil {
		a.reportAt(src, col, nil, ErrIncludeRead, path, err.Error())
		return nil
	}
	a.out.SourceFiles = append(a.out.SourceFiles, path)
	child := &parseFrame{
		path:     path,
		index:    len(a.out.SourceFiles) - 1,
		parent:   frame,
		included: make(map[string]bool),
	}
	a.log.Debug("include", "file", path, "from", frame.path)
	return a.parseFile(child, string(data))
}

// resolveInclude looks for name next to the including file, then in the
// configured include paths.
func (a *Z80Assembler) resolveInclude(from, name string) (string, bool) {
	candidates := make([]string, 0, len(a.opts.IncludePaths)+1)
	if filepath.IsAbs(name) {
		candidates = append(candidates, name)
	} else {
		dir := "."
		if from != "" {
			dir = filepath.Dir(from)
		}
		candidates = append(candidates, filepath.Join(dir, name))
		for _, inc := range a.opts.IncludePaths {
			candidates = append(candidates, filepath.Join(inc, name))
		}
	}
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err == nil && !info.IsDir() {
			return filepath.Clean(c), true
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return filepath.Clean(c), true
		}
	}
	return "", false
}

// applyModel handles the .model pragma during the parse phase so that
// #ifmod sees it.
func (a *Z80Assembler) applyModel(line *asmLine) {
	if a.out.Model != "" {
		a.reportError(ErrModelTwice)
		return
	}
	name := strings.ToUpper(line.name)
	if !validModels[name] {
		a.reportError(ErrModelUnknown, line.name)
		return
	}
	a.out.Model = name
}

// modelName is the effective model: the .model pragma, then Options.Model.
func (a *Z80Assembler) modelName() string {
	if a.out.Model != "" {
		return a.out.Model
	}
	return strings.ToUpper(a.opts.Model)
}

// directiveContext evaluates #if conditions against the conditional
// symbols only.
type directiveContext struct {
	asm *Z80Assembler
	src sourceLine
	col int
}

func (c *directiveContext) CurrentAddress() uint16 { return 0 }

func (c *directiveContext) SymbolValue(name string, _ bool) (Value, bool) {
	v, ok := c.asm.conditionSymbols[c.asm.fold(name)]
	return v, ok
}

func (c *directiveContext) LoopCounterValue() Value {
	c.ReportEvaluationError(ErrCounterOutside)
	return ErrorValue
}

func (c *directiveContext) ReportEvaluationError(code ErrorCode, args ...interface{}) {
	c.asm.reportAt(c.src, c.col, nil, code, args...)
}
