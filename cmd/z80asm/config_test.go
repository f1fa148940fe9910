// config_test.go - Project file, environment and define parsing tests

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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/intuitionamiga/z80asm/assembler"
)

func writeProjectFile(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), projectFileName)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatalf("write project file: %v", err)
	}
	return path
}

func TestConfig_ProjectFile(t *testing.T) {
	path := writeProjectFile(t, `
model = "next"
include_paths = { "lib", "/opt/z80/include" }
defines = { DEBUG = true, VERSION = 3, RATIO = 0.5, NAME = "demo" }
output = "build/game.hex"
format = "hex"
listing = true
`)
	cfg := defaultConfig()
	if err := loadProjectFile(path, cfg); err != nil {
		t.Fatalf("loadProjectFile: %v", err)
	}
	if cfg.Model != "next" || cfg.Output != "build/game.hex" || cfg.Format != formatHex || !cfg.Listing {
		t.Fatalf("unexpected config %+v", cfg)
	}
	wantPaths := []string{filepath.Join(filepath.Dir(path), "lib"), "/opt/z80/include"}
	if len(cfg.IncludePaths) != 2 || cfg.IncludePaths[0] != wantPaths[0] || cfg.IncludePaths[1] != wantPaths[1] {
		t.Fatalf("include paths = %v, want %v", cfg.IncludePaths, wantPaths)
	}

	tests := []struct {
		name string
		typ  assembler.ValueType
		want string
	}{
		{"DEBUG", assembler.ValueBool, "true"},
		{"VERSION", assembler.ValueInteger, "3"},
		{"RATIO", assembler.ValueReal, "0.5"},
		{"NAME", assembler.ValueString, "demo"},
	}
	for _, tt := range tests {
		v, ok := cfg.Defines[tt.name]
		if !ok {
			t.Errorf("define %s missing", tt.name)
			continue
		}
		if v.Type() != tt.typ || v.AsString() != tt.want {
			t.Errorf("define %s = %q (%v), want %q (%v)", tt.name, v.AsString(), v.Type(), tt.want, tt.typ)
		}
	}
}

func TestConfig_ProjectFileUsesLua(t *testing.T) {
	path := writeProjectFile(t, `
local base = "lib"
include_paths = {}
for i = 1, 2 do
  table.insert(include_paths, base .. i)
end
defines = { SIZE = 4 * 256 }
`)
	cfg := defaultConfig()
	if err := loadProjectFile(path, cfg); err != nil {
		t.Fatalf("loadProjectFile: %v", err)
	}
	if len(cfg.IncludePaths) != 2 || filepath.Base(cfg.IncludePaths[1]) != "lib2" {
		t.Fatalf("include paths = %v", cfg.IncludePaths)
	}
	if v := cfg.Defines["SIZE"]; v.AsLong() != 1024 {
		t.Fatalf("SIZE = %v", v.AsString())
	}
}

func TestConfig_ProjectFileErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"syntax", "model = ", "config"},
		{"model type", "model = 48", "model must be a string"},
		{"listing type", "listing = \"yes\"", "listing must be a boolean"},
		{"paths type", "include_paths = \"lib\"", "include_paths must be a table"},
		{"define type", "defines = { F = function() end }", "defines.F"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := loadProjectFile(writeProjectFile(t, tt.text), defaultConfig())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestConfig_FindProjectFile(t *testing.T) {
	dir := t.TempDir()
	if got := findProjectFile(dir); got != "" {
		t.Fatalf("found %q in an empty directory", got)
	}
	path := filepath.Join(dir, projectFileName)
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if got := findProjectFile(dir); got != path {
		t.Fatalf("findProjectFile = %q, want %q", got, path)
	}
}

func TestConfig_Environment(t *testing.T) {
	t.Setenv("Z80ASM_MODEL", "spectrum128")
	t.Setenv("Z80ASM_INCLUDE", "a"+string(os.PathListSeparator)+"b")
	t.Setenv("Z80ASM_JOBS", "3")
	t.Setenv("Z80ASM_VERBOSE", "true")

	cfg := defaultConfig()
	cfg.Model = "next"
	cfg.IncludePaths = []string{"project"}
	applyEnvironment(cfg)

	if cfg.Model != "spectrum128" {
		t.Errorf("model = %q, want spectrum128", cfg.Model)
	}
	if strings.Join(cfg.IncludePaths, ",") != "project,a,b" {
		t.Errorf("include paths = %v", cfg.IncludePaths)
	}
	if cfg.Jobs != 3 {
		t.Errorf("jobs = %d, want 3", cfg.Jobs)
	}
	if !cfg.Verbose {
		t.Error("verbose not set")
	}
}

func TestConfig_ParseDefine(t *testing.T) {
	tests := []struct {
		arg  string
		name string
		typ  assembler.ValueType
		want string
	}{
		{"DEBUG", "DEBUG", assembler.ValueBool, "true"},
		{"VERSION=3", "VERSION", assembler.ValueInteger, "3"},
		{"BASE=$8000", "BASE", assembler.ValueInteger, "32768"},
		{"OFFSET=-4", "OFFSET", assembler.ValueInteger, "-4"},
		{"SCALE=1.5", "SCALE", assembler.ValueReal, "1.5"},
		{"FAST=false", "FAST", assembler.ValueBool, "false"},
		{"TITLE=\"My Game\"", "TITLE", assembler.ValueString, "My Game"},
		{"MODE=turbo", "MODE", assembler.ValueString, "turbo"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			name, v, err := parseDefine(tt.arg)
			if err != nil {
				t.Fatalf("parseDefine(%q): %v", tt.arg, err)
			}
			if name != tt.name || v.Type() != tt.typ || v.AsString() != tt.want {
				t.Fatalf("parseDefine(%q) = %s %q (%v), want %s %q (%v)", tt.arg, name, v.AsString(), v.Type(), tt.name, tt.want, tt.typ)
			}
		})
	}

	for _, bad := range []string{"", "=1", "1ABC=2", "A-B"} {
		if _, _, err := parseDefine(bad); err == nil {
			t.Errorf("parseDefine(%q) succeeded, want an error", bad)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Format = "srec"
	if err := validateConfig(cfg); err == nil {
		t.Fatal("unknown format accepted")
	}
	cfg.Format = formatHex
	cfg.Jobs = 0
	if err := validateConfig(cfg); err != nil || cfg.Jobs != 1 {
		t.Fatalf("validateConfig = %v, jobs %d", err, cfg.Jobs)
	}
}
