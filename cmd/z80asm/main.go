// main.go - z80asm command line assembler

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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/intuitionamiga/z80asm/assembler"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// errAssembly marks a run where at least one source had diagnostics; they
// were already printed.
var errAssembly = errors.New("assembly failed")

type buildResult struct {
	source string
	out    *assembler.Output
	path   string
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		output     string
		format     string
		listing    bool
		symbols    bool
		includes   []string
		defines    []string
		model      string
		jobs       int
		verbose    bool
		fill       uint8
	)

	cmd := &cobra.Command{
		Use:   "z80asm [flags] file...",
		Short: "Assemble Z80 source files",
		Long: `z80asm assembles Z80 and ZX Spectrum Next source files into raw binary
images or Intel HEX files.

Settings are taken from command line flags, then Z80ASM_* environment
variables, then the project file (z80asm.lua in the working directory or
the file named by --config).`,
		Example: `  z80asm game.asm
  z80asm -m next -I lib -D DEBUG -o build/game.bin game.asm
  z80asm -f hex -l -j 4 level1.asm level2.asm level3.asm`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := defaultConfig()

			project := configPath
			if project == "" {
				project = findProjectFile(".")
			}
			if project != "" {
				if err := loadProjectFile(project, cfg); err != nil {
					return err
				}
			}
			applyEnvironment(cfg)

			flags := cmd.Flags()
			if flags.Changed("model") {
				cfg.Model = model
			}
			if flags.Changed("output") {
				cfg.Output = output
			}
			if flags.Changed("format") {
				cfg.Format = format
			}
			if flags.Changed("list") {
				cfg.Listing = listing
			}
			if flags.Changed("symbols") {
				cfg.Symbols = symbols
			}
			if flags.Changed("jobs") {
				cfg.Jobs = jobs
			}
			if flags.Changed("verbose") {
				cfg.Verbose = verbose
			}
			cfg.Fill = fill
			// Command line include paths are searched first.
			cfg.IncludePaths = append(append([]string(nil), includes...), cfg.IncludePaths...)
			for _, d := range defines {
				name, v, err := parseDefine(d)
				if err != nil {
					return err
				}
				cfg.Defines[name] = v
			}
			if err := validateConfig(cfg); err != nil {
				return err
			}

			return run(cmd.Context(), cfg, args, cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "project file (default ./"+projectFileName+" when present)")
	f.StringVarP(&output, "output", "o", "", "output file, or directory when several files are assembled")
	f.StringVarP(&format, "format", "f", formatBinary, "output format: bin or hex")
	f.BoolVarP(&listing, "list", "l", false, "write a listing file next to the output")
	f.BoolVar(&symbols, "symbols", false, "write a symbol file next to the output")
	f.StringSliceVarP(&includes, "include", "I", nil, "add an include search path")
	f.StringArrayVarP(&defines, "define", "D", nil, "predefine a symbol (name or name=value)")
	f.StringVarP(&model, "model", "m", "", "target model: spectrum48, spectrum128, spectrump3 or next")
	f.IntVarP(&jobs, "jobs", "j", 0, "number of files assembled in parallel (default number of CPUs)")
	f.BoolVarP(&verbose, "verbose", "v", false, "log compilation phases")
	f.Uint8Var(&fill, "fill", 0, "byte used to pad gaps in binary output")
	return cmd
}

// run assembles every source concurrently, then reports and writes the
// results in input order.
func run(ctx context.Context, cfg *buildConfig, sources []string, stderr io.Writer) error {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	multi := len(sources) > 1
	results := make([]buildResult, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Jobs)
	for i, source := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			opts := cfg.options()
			opts.Logger = logger.With("source", source)
			out, err := assembler.NewZ80Assembler(opts).AssembleFile(source)
			if err != nil {
				return fmt.Errorf("%s: %w", source, err)
			}
			results[i] = buildResult{
				source: source,
				out:    out,
				path:   outputPath(source, cfg.Output, cfg.Format, multi),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	diag := &diagPrinter{w: stderr}
	if f, ok := stderr.(*os.File); ok {
		diag = newDiagPrinter(f)
	}

	failed := 0
	for _, r := range results {
		for _, t := range r.out.Traces {
			diag.trace(r.source, t, r.out.SourceFiles)
		}
		for _, e := range r.out.Errors {
			diag.diagnostic(r.source, e)
		}
		if r.out.ErrorCount() > 0 {
			failed++
			continue
		}
		if err := writeOutputs(cfg, r.out, r.path); err != nil {
			return err
		}
		if cfg.Verbose {
			diag.summary(r.source, r.out, r.path)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d file(s) had errors", errAssembly, failed, len(sources))
	}
	return nil
}

func main() {
	cmd := newRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if errors.Is(err, errAssembly) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
