// z80asm_module.go - Module arena, local scopes and symbol resolution

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

// SymbolKind tells labels from reassignable variables.
type SymbolKind int

const (
	SymbolLabel SymbolKind = iota
	SymbolVar
)

type symbolInfo struct {
	name  string
	value Value
	kind  SymbolKind
	used  bool
}

type scopeKind int

const (
	scopeTemporary scopeKind = iota
	scopeLoop
	scopeIteration
	scopeProc
	scopeMacro
)

// reportKey identifies an error already reported inside a loop.
type reportKey struct {
	code ErrorCode
	file int
	line int
}

// symbolScope is a local scope stacked on top of a module.
type symbolScope struct {
	kind    scopeKind
	owner   *symbolScope // the loop scope of an iteration scope
	symbols map[string]*symbolInfo
	fixups  []*fixup

	loopCounter     int64
	breakReached    bool
	continueReached bool

	reported map[reportKey]bool
}

func newScope(kind scopeKind, owner *symbolScope) *symbolScope {
	return &symbolScope{kind: kind, owner: owner, symbols: make(map[string]*symbolInfo)}
}

// errorOwner returns the scope that records loop error reports.
func (s *symbolScope) errorOwner() *symbolScope {
	if s.owner != nil {
		return s.owner
	}
	return s
}

type macroDef struct {
	name     string
	params   []string
	lines    []*asmLine
	src      sourceLine
	endLabel string
	endLine  *asmLine
}

type structField struct {
	name   string
	offset int
}

type structDef struct {
	name   string
	fields map[string]structField
	order  []string
	lines  []*asmLine
	size   int
}

// assemblyModule is a node of the module tree. Nodes live in an arena and
// refer to their parent by index; the root has parent -1.
type assemblyModule struct {
	name     string
	parent   int
	children map[string]int
	symbols  map[string]*symbolInfo
	macros   map[string]*macroDef
	structs  map[string]*structDef
	scopes   []*symbolScope
	fixups   []*fixup
}

type moduleArena struct {
	nodes []*assemblyModule
}

func (m *moduleArena) add(name string, parent int) int {
	m.nodes = append(m.nodes, &assemblyModule{
		name:     name,
		parent:   parent,
		children: make(map[string]int),
		symbols:  make(map[string]*symbolInfo),
		macros:   make(map[string]*macroDef),
		structs:  make(map[string]*structDef),
	})
	idx := len(m.nodes) - 1
	if parent >= 0 {
		m.nodes[parent].children[name] = idx
	}
	return idx
}

func (m *moduleArena) node(idx int) *assemblyModule { return m.nodes[idx] }

// qualifiedName joins the module path of idx with name.
func (m *moduleArena) qualifiedName(idx int, name string) string {
	var parts []string
	for n := idx; n > 0; n = m.nodes[n].parent {
		parts = append(parts, m.nodes[n].name)
	}
	var sb strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		sb.WriteString(parts[i])
		sb.WriteByte('.')
	}
	sb.WriteString(name)
	return sb.String()
}

// findMacro searches the module chain outward for a macro definition.
func (m *moduleArena) findMacro(idx int, name string) *macroDef {
	for n := idx; n >= 0; n = m.nodes[n].parent {
		if def, ok := m.nodes[n].macros[name]; ok {
			return def
		}
	}
	return nil
}

// findStruct searches the module chain outward for a struct definition.
func (m *moduleArena) findStruct(idx int, name string) *structDef {
	for n := idx; n >= 0; n = m.nodes[n].parent {
		if def, ok := m.nodes[n].structs[name]; ok {
			return def
		}
	}
	return nil
}

// resolveSimple looks name up in the given local scopes (innermost first),
// then in the module and its ancestors.
func (m *moduleArena) resolveSimple(idx int, scopes []*symbolScope, name string) (*symbolInfo, Value, bool) {
	for i := len(scopes) - 1; i >= 0; i-- {
		if sym, ok := scopes[i].symbols[name]; ok {
			return sym, sym.value, true
		}
	}
	for n := idx; n >= 0; n = m.nodes[n].parent {
		node := m.nodes[n]
		if n != idx {
			for i := len(node.scopes) - 1; i >= 0; i-- {
				if sym, ok := node.scopes[i].symbols[name]; ok {
					return sym, sym.value, true
				}
			}
		}
		if sym, ok := node.symbols[name]; ok {
			return sym, sym.value, true
		}
		if def, ok := node.structs[name]; ok {
			return nil, IntValue(int64(def.size)), true
		}
	}
	return nil, NonEvaluated, false
}

// resolveCompound resolves a dotted name. Anchored lookups start at the
// root; others try every module from idx outward.
func (m *moduleArena) resolveCompound(idx int, name string, anchored bool) (*symbolInfo, Value, bool) {
	segs := strings.Split(name, ".")
	if anchored {
		return m.resolvePath(0, segs)
	}
	for n := idx; n >= 0; n = m.nodes[n].parent {
		if sym, v, ok := m.resolvePath(n, segs); ok {
			return sym, v, true
		}
	}
	return nil, NonEvaluated, false
}

func (m *moduleArena) resolvePath(start int, segs []string) (*symbolInfo, Value, bool) {
	node := start
	last := segs[len(segs)-1]
	for i, seg := range segs[:len(segs)-1] {
		if child, ok := m.nodes[node].children[seg]; ok {
			node = child
			continue
		}
		if i == len(segs)-2 {
			if def, ok := m.nodes[node].structs[seg]; ok {
				if field, ok := def.fields[last]; ok {
					return nil, IntValue(int64(field.offset)), true
				}
			}
		}
		return nil, NonEvaluated, false
	}
	if sym, ok := m.nodes[node].symbols[last]; ok {
		return sym, sym.value, true
	}
	if def, ok := m.nodes[node].structs[last]; ok {
		return nil, IntValue(int64(def.size)), true
	}
	return nil, NonEvaluated, false
}
