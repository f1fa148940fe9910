// config.go - Build configuration: project file, environment and defines

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
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/intuitionamiga/z80asm/assembler"
	"github.com/xyproto/env/v2"
	lua "github.com/yuin/gopher-lua"
)

const projectFileName = "z80asm.lua"

const (
	formatBinary = "bin"
	formatHex    = "hex"
)

// buildConfig holds the merged settings of a z80asm run.
type buildConfig struct {
	Model        string
	IncludePaths []string
	Defines      map[string]assembler.Value
	Output       string
	Format       string
	Listing      bool
	Symbols      bool
	Jobs         int
	Verbose      bool
	Fill         byte
}

func defaultConfig() *buildConfig {
	return &buildConfig{
		Defines: make(map[string]assembler.Value),
		Format:  formatBinary,
		Jobs:    runtime.NumCPU(),
	}
}

// options converts the configuration into assembler options.
func (c *buildConfig) options() assembler.Options {
	return assembler.Options{
		Model:        c.Model,
		Defines:      c.Defines,
		IncludePaths: c.IncludePaths,
	}
}

// loadProjectFile runs a Lua project file and copies the globals it sets
// into cfg. Globals that are not set leave cfg unchanged.
//
//	model         = "next"
//	include_paths = { "lib", "../common" }
//	defines       = { DEBUG = true, VERSION = 3, NAME = "demo" }
//	output        = "build/game.bin"
//	format        = "hex"
//	listing       = true
func loadProjectFile(path string, cfg *buildConfig) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.StringLibName, lua.OpenString},
		{lua.TabLibName, lua.OpenTable},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}

	var errs []error
	fail := func(name, want string, got lua.LValue) {
		errs = append(errs, fmt.Errorf("config %s: %s must be %s, got %s", path, name, want, got.Type()))
	}

	if v := L.GetGlobal("model"); v != lua.LNil {
		if s, ok := v.(lua.LString); ok {
			cfg.Model = string(s)
		} else {
			fail("model", "a string", v)
		}
	}
	if v := L.GetGlobal("output"); v != lua.LNil {
		if s, ok := v.(lua.LString); ok {
			cfg.Output = string(s)
		} else {
			fail("output", "a string", v)
		}
	}
	if v := L.GetGlobal("format"); v != lua.LNil {
		if s, ok := v.(lua.LString); ok {
			cfg.Format = string(s)
		} else {
			fail("format", "a string", v)
		}
	}
	if v := L.GetGlobal("listing"); v != lua.LNil {
		if b, ok := v.(lua.LBool); ok {
			cfg.Listing = bool(b)
		} else {
			fail("listing", "a boolean", v)
		}
	}

	// Relative include paths are taken from the project file's directory.
	base := filepath.Dir(path)
	if v := L.GetGlobal("include_paths"); v != lua.LNil {
		tbl, ok := v.(*lua.LTable)
		if !ok {
			fail("include_paths", "a table", v)
		} else {
			for i := 1; i <= tbl.Len(); i++ {
				entry, ok := tbl.RawGetInt(i).(lua.LString)
				if !ok {
					fail(fmt.Sprintf("include_paths[%d]", i), "a string", tbl.RawGetInt(i))
					continue
				}
				dir := string(entry)
				if !filepath.IsAbs(dir) {
					dir = filepath.Join(base, dir)
				}
				cfg.IncludePaths = append(cfg.IncludePaths, dir)
			}
		}
	}

	if v := L.GetGlobal("defines"); v != lua.LNil {
		tbl, ok := v.(*lua.LTable)
		if !ok {
			fail("defines", "a table", v)
		} else {
			tbl.ForEach(func(k, val lua.LValue) {
				name, ok := k.(lua.LString)
				if !ok {
					fail("defines key", "a string", k)
					return
				}
				switch x := val.(type) {
				case lua.LNumber:
					f := float64(x)
					if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
						cfg.Defines[string(name)] = assembler.IntValue(int64(f))
					} else {
						cfg.Defines[string(name)] = assembler.RealValue(f)
					}
				case lua.LString:
					cfg.Defines[string(name)] = assembler.StringValue(string(x))
				case lua.LBool:
					cfg.Defines[string(name)] = assembler.BoolValue(bool(x))
				default:
					fail("defines."+string(name), "a number, string or boolean", val)
				}
			})
		}
	}
	return errors.Join(errs...)
}

// findProjectFile returns the project file in dir, or "" when there is none.
func findProjectFile(dir string) string {
	path := filepath.Join(dir, projectFileName)
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		return path
	}
	return ""
}

// applyEnvironment overrides cfg from Z80ASM_* variables.
func applyEnvironment(cfg *buildConfig) {
	cfg.Model = env.Str("Z80ASM_MODEL", cfg.Model)
	if paths := env.Str("Z80ASM_INCLUDE"); paths != "" {
		for _, p := range filepath.SplitList(paths) {
			if p != "" {
				cfg.IncludePaths = append(cfg.IncludePaths, p)
			}
		}
	}
	cfg.Jobs = env.Int("Z80ASM_JOBS", cfg.Jobs)
	if env.Has("Z80ASM_VERBOSE") {
		cfg.Verbose = env.Bool("Z80ASM_VERBOSE")
	}
}

// parseDefine splits a -D argument of the form NAME or NAME=value. A bare
// name defines true; values are read as numbers, booleans or, failing
// that, strings (surrounding quotes are removed).
func parseDefine(arg string) (string, assembler.Value, error) {
	name, text, hasValue := strings.Cut(arg, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", assembler.Value{}, fmt.Errorf("invalid define %q: missing name", arg)
	}
	for i, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || i > 0 && r >= '0' && r <= '9') {
			return "", assembler.Value{}, fmt.Errorf("invalid define %q: bad symbol name", arg)
		}
	}
	if !hasValue {
		return name, assembler.BoolValue(true), nil
	}

	text = strings.TrimSpace(text)
	switch strings.ToLower(text) {
	case "true":
		return name, assembler.BoolValue(true), nil
	case "false":
		return name, assembler.BoolValue(false), nil
	}
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		return name, assembler.StringValue(text[1 : len(text)-1]), nil
	}
	neg := strings.HasPrefix(text, "-")
	v := assembler.ParseNumber(strings.TrimPrefix(text, "-"))
	switch {
	case !v.IsValid() || text == "" || text == "-":
		return name, assembler.StringValue(text), nil
	case neg && v.Type() == assembler.ValueReal:
		return name, assembler.RealValue(-v.AsReal()), nil
	case neg:
		return name, assembler.IntValue(-v.AsLong()), nil
	}
	return name, v, nil
}

func validateConfig(cfg *buildConfig) error {
	switch cfg.Format {
	case formatBinary, formatHex:
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", cfg.Format, formatBinary, formatHex)
	}
	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
	return nil
}
