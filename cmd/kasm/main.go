// Command kasm is the command-line driver for the KASM assembler: it
// parses flags, merges an optional project config file, reads the input
// source, runs the core pipeline, and renders diagnostics to stderr
// (spec §1: "the command-line surface ... the terminal diagnostic
// renderer ... out of scope" for the core, owned here instead).
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/kerbalasm/kasm"
	"github.com/kerbalasm/kasm/diag"
	"github.com/kerbalasm/kasm/source"
)

type includeDirs []string

func (d *includeDirs) String() string { return strings.Join(*d, ",") }

func (d *includeDirs) Set(v string) error {
	*d = append(*d, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("kasm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	var (
		outPath     string
		includes    includeDirs
		sourceName  string
		comment     string
		quietWarn   bool
		skipPreproc bool
		preprocOnly bool
		showHelp    bool
	)
	fs.StringVar(&outPath, "o", "", "output path (required)")
	fs.Var(&includes, "i", "include search directory (repeatable)")
	fs.StringVar(&sourceName, "f", "", "source-symbol name recorded in the KO")
	fs.StringVar(&comment, "c", "", "comment string embedded for the linker")
	fs.BoolVar(&quietWarn, "w", false, "suppress warnings")
	fs.BoolVar(&skipPreproc, "a", false, "skip preprocessing; input is already preprocessed")
	fs.BoolVar(&preprocOnly, "p", false, "run preprocessing only; write result to -o")
	fs.BoolVar(&showHelp, "help", false, "print usage")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if showHelp {
		printUsage(stdout)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "kasm: exactly one input file is required")
		printUsage(stderr)
		return 2
	}
	if outPath == "" {
		fmt.Fprintln(stderr, "kasm: -o is required")
		return 2
	}
	inPath := fs.Arg(0)

	cfg, err := loadProjectConfig(inPath)
	if err != nil {
		fmt.Fprintf(stderr, "kasm: %v\n", err)
		return 1
	}
	mergeIncludes(&cfg, includes)

	data, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(stderr, "kasm: %v\n", err)
		return 1
	}

	var diagnostics []*diag.Diagnostic
	reporter := diag.NewReporter(
		func(d *diag.Diagnostic) error { diagnostics = append(diagnostics, d); return d },
		func(d *diag.Diagnostic) {
			if !quietWarn {
				diagnostics = append(diagnostics, d)
			}
		},
	)

	asmCfg := kasm.Config{
		IncludeDirs:    cfg.IncludeDirs,
		Reporter:       reporter,
		SkipPreprocess: skipPreproc,
		SourceName:     sourceName,
		Comment:        firstNonEmpty(comment, cfg.Comment),
	}
	asm := kasm.New(asmCfg)
	unit := source.NewUnit(displayName(sourceName, inPath), inPath, data)

	var runErr error
	if preprocOnly {
		var out string
		out, runErr = asm.Preprocess(unit)
		if runErr == nil {
			runErr = os.WriteFile(outPath, []byte(out), 0o644)
		}
	} else {
		var obj []byte
		obj, runErr = asm.Assemble(unit)
		if runErr == nil {
			runErr = os.WriteFile(outPath, obj, 0o644)
		}
	}

	for _, d := range diagnostics {
		fmt.Fprintln(stderr, d.Error())
	}
	if runErr != nil {
		return 1
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func displayName(sourceName, inPath string) string {
	if sourceName != "" {
		return sourceName
	}
	return inPath
}

func printUsage(w *os.File) {
	fmt.Fprintln(w, "usage: kasm [flags] <input.kasm>")
	fmt.Fprintln(w, "  -o path   output KO path (required)")
	fmt.Fprintln(w, "  -i dir    include search directory (repeatable)")
	fmt.Fprintln(w, "  -f name   source-symbol name recorded in the KO")
	fmt.Fprintln(w, "  -c text   comment embedded for the linker")
	fmt.Fprintln(w, "  -w        suppress warnings")
	fmt.Fprintln(w, "  -a        skip preprocessing")
	fmt.Fprintln(w, "  -p        preprocess only; write result to -o")
	fmt.Fprintln(w, "  --help    print this message")
}
