// z80asm_struct.go - Struct definitions, invocations and field assignments

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

// structInvocation is the state of an open struct invocation. Field
// assignment lines write into bytes; the image is applied over the default
// bytes when the first non-field line closes the invocation.
type structInvocation struct {
	def    *structDef
	line   *asmLine
	start  int // segment offset of the struct's first byte
	offset int // write position relative to start
	bytes  map[int]byte
	fields []fieldValue
}

// collectStruct records a .struct definition and skips its body.
func (a *Z80Assembler) collectStruct(lines []*asmLine, idx *int, label string) {
	failed := false
	name := a.fold(label)
	switch {
	case label == "":
		a.reportError(ErrStructNoName)
		failed = true
	case isTemporary(label):
		a.reportError(ErrStructTempName, label)
		failed = true
	case a.nameInUse(name):
		a.reportError(ErrStructNameUsed, label)
		failed = true
	}

	first := *idx
	endLabel, ok := a.searchForEnd(lines, idx)
	if !ok {
		return
	}
	if endLabel != "" {
		a.line = lines[*idx]
		a.reportError(ErrStructEndLabel)
		failed = true
	}

	def := &structDef{name: name, fields: make(map[string]structField)}
	size := 0
	lineErrors := 0
	for i := first + 1; i < *idx; i++ {
		line := lines[i]
		a.line = line
		if !line.kind.isByteEmitting() && line.kind != LineEmpty && line.kind != LineLabelOnly {
			a.reportError(ErrStructLine)
			failed = true
			lineErrors++
			if lineErrors > 16 {
				break
			}
		}
		if line.label != "" {
			field := a.fold(line.label)
			if _, dup := def.fields[field]; dup {
				a.reportError(ErrDuplicateField, line.label)
				failed = true
			} else {
				def.fields[field] = structField{name: field, offset: size}
				def.order = append(def.order, field)
			}
		}
		if line.kind.isByteEmitting() {
			size += a.measureLine(line)
		}
		def.lines = append(def.lines, line)
	}
	def.size = size
	if failed {
		return
	}
	a.module().structs[name] = def
	a.log.Debug("struct defined", "name", name, "size", size, "fields", len(def.order))
}

// measureLine returns the number of bytes a data pragma emits.
func (a *Z80Assembler) measureLine(line *asmLine) int {
	n := 0
	saved := a.sizing
	a.sizing = &n
	a.processDataPragma(line)
	a.sizing = saved
	return n
}

// nameInUse reports whether name is taken by a macro, symbol, module or
// struct of the current module.
func (a *Z80Assembler) nameInUse(name string) bool {
	mod := a.module()
	if _, ok := mod.macros[name]; ok {
		return true
	}
	if _, ok := mod.symbols[name]; ok {
		return true
	}
	if _, ok := mod.children[name]; ok {
		return true
	}
	_, ok := mod.structs[name]
	return ok
}

// invokeStruct emits the default bytes of a struct and opens the
// invocation for field assignments.
func (a *Z80Assembler) invokeStruct(line *asmLine, def *structDef) {
	if len(line.args) > 0 {
		a.reportError(ErrStructArgs, line.name)
	}
	a.ensureSegment()
	start := len(a.segment.Code)

	a.cloningStruct = true
	for i := 0; i < len(def.lines); i++ {
		a.emitLine(def.lines, &i)
	}
	a.cloningStruct = false
	a.line = line

	a.structInv = &structInvocation{
		def:   def,
		line:  line,
		start: start,
		bytes: make(map[int]byte),
	}
}

// selectStructField moves the write position to a named field.
func (a *Z80Assembler) selectStructField(label string) bool {
	inv := a.structInv
	field, ok := inv.def.fields[a.fold(label)]
	if !ok {
		a.reportError(ErrUnknownField, inv.def.name, label)
		return false
	}
	inv.offset = field.offset
	return true
}

// closeStructInvocation applies the field assignments of the open
// invocation. It returns false when the assignments overflow the struct.
func (a *Z80Assembler) closeStructInvocation() bool {
	inv := a.structInv
	a.structInv = nil
	if inv.offset > inv.def.size {
		saved := a.line
		a.line = inv.line
		a.reportError(ErrStructTooLong, inv.def.name, inv.def.size, inv.offset)
		a.line = saved
		return false
	}
	if len(inv.bytes) == 0 && len(inv.fields) == 0 {
		return true
	}

	saved := a.line
	a.line = inv.line
	f := a.recordFixup(fixupStruct, nil, inv.start)
	a.line = saved
	f.structBytes = inv.bytes
	f.fields = inv.fields
	if len(inv.fields) == 0 {
		a.applyStructFixup(f, false)
	}
	return true
}
