package kasm

import "github.com/kerbalasm/kasm/diag"

// Config controls one assembly run (spec §6 describes the CLI surface
// this maps onto; the core only needs the fields below, never argv
// parsing or a YAML file — that belongs to cmd/kasm).
type Config struct {
	// IncludeDirs are searched, in order, after the including file's own
	// directory, for `.include` targets (spec §4.2, the `-i` flag).
	IncludeDirs []string

	// Reporter receives every diagnostic raised during assembly. A nil
	// Reporter uses diag's default: the first error halts its phase
	// immediately, and warnings are collected but never rendered.
	Reporter diag.Reporter

	// SkipPreprocess treats the input as already preprocessed, skipping
	// the preprocess.Run stage entirely (the `-a` flag).
	SkipPreprocess bool

	// SourceName overrides the source-symbol name recorded in the KO
	// output (the `-f` flag); defaults to the input Unit's Name().
	SourceName string

	// Comment is embedded in the KO output for the linker to place into
	// the final KSM (the `-c` flag).
	Comment string
}
