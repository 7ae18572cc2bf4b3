// Package kasm is the core assembler API (spec §1): it wires the lexer,
// preprocessor, parser, two-pass assembler, and KO emitter into a single
// entry point. The command-line surface, file I/O, and diagnostic
// rendering live in cmd/kasm; this package only consumes and produces
// in-memory values (spec §1 "out of scope").
package kasm

import (
	"github.com/kerbalasm/kasm/assemble"
	"github.com/kerbalasm/kasm/diag"
	"github.com/kerbalasm/kasm/ko"
	"github.com/kerbalasm/kasm/lexer"
	"github.com/kerbalasm/kasm/parser"
	"github.com/kerbalasm/kasm/preprocess"
	"github.com/kerbalasm/kasm/source"
	"github.com/kerbalasm/kasm/token"
)

// Assembler runs the full KASM pipeline for one Config. It holds no
// per-run state, so one Assembler can process many units sequentially
// (spec §5: "strictly sequential ... shared state ... owned by the
// pipeline driver" — here, each call owns a fresh Handler and
// Preprocessor rather than reusing one across units).
type Assembler struct {
	cfg      Config
	resolver source.Resolver
}

// New builds an Assembler for cfg. IncludeDirs are wired into a
// source.FileResolver; a unit that never uses `.include` works fine even
// with an empty IncludeDirs list, since the including file's own
// directory is always searched first.
func New(cfg Config) *Assembler {
	return &Assembler{
		cfg:      cfg,
		resolver: &source.FileResolver{IncludeDirs: cfg.IncludeDirs},
	}
}

func (a *Assembler) newHandler() *diag.Handler {
	return diag.NewHandler(a.cfg.Reporter)
}

// tokens lexes unit and, unless SkipPreprocess is set, preprocesses it,
// returning the final token stream along with the Preprocessor (so its
// accumulated single-line definitions can resolve zero-arity identifiers
// the parser encounters in operand expressions, spec §4.3).
func (a *Assembler) tokens(unit *source.Unit, h *diag.Handler) ([]token.Token, *preprocess.Preprocessor, error) {
	toks, err := lexer.New(unit, h).Lex()
	if err != nil {
		return nil, nil, err
	}
	pp := preprocess.New(a.resolver, h)
	if a.cfg.SkipPreprocess {
		return toks, pp, nil
	}
	out, err := pp.Run(unit, toks)
	return out, pp, err
}

// Preprocess runs the lexer and preprocessor only, rendering the
// resulting token stream back to KASM source text (the `-p` flag: "write
// preprocessed source to -o"). The output is valid input for a later
// Assemble call with SkipPreprocess set (spec §8: "running with -a on
// the output of -p yields a KO identical to running the original input
// without -a/-p").
func (a *Assembler) Preprocess(unit *source.Unit) (string, error) {
	h := a.newHandler()
	toks, _, err := a.tokens(unit, h)
	if err != nil {
		return "", err
	}
	return token.Render(toks), nil
}

// AssembleObject runs the full pipeline through pass 2, stopping short of
// KO serialization — useful for introspection and tests that want the
// resolved Object without caring about the binary container.
func (a *Assembler) AssembleObject(unit *source.Unit) (*assemble.Object, error) {
	h := a.newHandler()
	toks, pp, err := a.tokens(unit, h)
	if err != nil {
		return nil, err
	}
	prog, err := parser.New(toks, pp.Definitions(), h).Parse()
	if err != nil {
		return nil, err
	}
	return assemble.Assemble(prog, h)
}

// Assemble runs the complete pipeline and serializes the result to a KO
// container (spec §4.7, §6).
func (a *Assembler) Assemble(unit *source.Unit) ([]byte, error) {
	obj, err := a.AssembleObject(unit)
	if err != nil {
		return nil, err
	}
	sourceName := a.cfg.SourceName
	if sourceName == "" {
		sourceName = unit.Name()
	}
	return ko.Encode(obj, ko.Meta{SourceName: sourceName, Comment: a.cfg.Comment})
}
