// Package diag carries every operator-visible message the assembler ever
// produces. No phase writes to stdout/stderr or calls the log package
// directly (spec §7); everything flows through a Handler so a host can
// collect, render, or suppress diagnostics without the core caring how.
package diag

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kerbalasm/kasm/source"
)

// Severity distinguishes a diagnostic that halts the pipeline from one that
// is merely reported and assembly continues (spec §7: "warnings never halt
// a phase; errors halt at the next phase boundary").
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Kind groups a diagnostic by the pipeline stage that raised it, so a
// Reporter can filter or color by stage without string-matching messages.
type Kind int

const (
	KindIO Kind = iota
	KindLex
	KindPreprocess
	KindExpr
	KindParse
	KindPass1
	KindPass2
	KindEmit
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindLex:
		return "lex"
	case KindPreprocess:
		return "preprocess"
	case KindExpr:
		return "expr"
	case KindParse:
		return "parse"
	case KindPass1:
		return "pass1"
	case KindPass2:
		return "pass2"
	case KindEmit:
		return "emit"
	default:
		return "diag"
	}
}

// ErrInvalidSource is returned by Handler.Error when at least one error
// diagnostic was reported but the installed Reporter swallowed it (returned
// nil from Error), so the caller still learns assembly failed.
var ErrInvalidSource = errors.New("kasm: invalid source")

// Diagnostic is a single reported message. It implements error, carries the
// span it applies to, and unwraps to any underlying cause (e.g. an os.*
// error from the source loader).
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Span     source.Span
	Msg      string
	cause    error
}

func (d *Diagnostic) Error() string {
	if d.Span.Unit == nil {
		return fmt.Sprintf("%s: %s", d.Severity, d.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", d.Span, d.Severity, d.Msg)
}

func (d *Diagnostic) Unwrap() error { return d.cause }

// Errorf builds an Error-severity Diagnostic at span.
func Errorf(kind Kind, span source.Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{Severity: Error, Kind: kind, Span: span, Msg: fmt.Sprintf(format, args...)}
}

// Warningf builds a Warning-severity Diagnostic at span.
func Warningf(kind Kind, span source.Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{Severity: Warning, Kind: kind, Span: span, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error-severity Diagnostic around an underlying error (e.g.
// an IO failure), preserving it for errors.Unwrap/errors.Is.
func Wrap(kind Kind, span source.Span, cause error) *Diagnostic {
	return &Diagnostic{Severity: Error, Kind: kind, Span: span, Msg: cause.Error(), cause: cause}
}

// ErrorReporter is invoked for every Error-severity diagnostic. A non-nil
// return aborts the current phase immediately with that error; a nil
// return lets the phase keep collecting further diagnostics before halting
// at the next phase boundary (spec §7).
type ErrorReporter func(*Diagnostic) error

// WarningReporter is invoked for every Warning-severity diagnostic. Its
// return value is not used to make control-flow decisions.
type WarningReporter func(*Diagnostic)

// Reporter is the pluggable sink a Handler delivers diagnostics to.
type Reporter interface {
	Error(*Diagnostic) error
	Warning(*Diagnostic)
}

// NewReporter builds a Reporter from two func values; either may be nil.
func NewReporter(errs ErrorReporter, warnings WarningReporter) Reporter {
	return reporterFuncs{errs: errs, warnings: warnings}
}

type reporterFuncs struct {
	errs     ErrorReporter
	warnings WarningReporter
}

func (r reporterFuncs) Error(d *Diagnostic) error {
	if r.errs == nil {
		return d
	}
	return r.errs(d)
}

func (r reporterFuncs) Warning(d *Diagnostic) {
	if r.warnings != nil {
		r.warnings(d)
	}
}

// Handler accumulates diagnostics for one assembly run. Every phase
// constructor takes a *Handler (spec §7); the first Error-severity
// diagnostic whose Reporter returns a non-nil error becomes the handler's
// terminal error, and every later HandleError call returns that same error
// without invoking the Reporter again, so a phase can keep calling
// HandleError in a loop and simply check the return value to know when to
// stop.
type Handler struct {
	reporter Reporter

	mu           sync.Mutex
	errsReported bool
	err          error
	all          []*Diagnostic
}

// NewHandler builds a Handler. A nil Reporter collects diagnostics silently
// (every Error halts immediately, every Warning is recorded but never
// rendered) — useful for tests that only want the final diagnostic list.
func NewHandler(rep Reporter) *Handler {
	if rep == nil {
		rep = NewReporter(nil, nil)
	}
	return &Handler{reporter: rep}
}

// HandleError reports d. Returns nil if the phase should keep going, or the
// terminal error once the phase must halt.
func (h *Handler) HandleError(d *Diagnostic) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.err != nil {
		return h.err
	}
	h.errsReported = true
	h.all = append(h.all, d)
	err := h.reporter.Error(d)
	h.err = err
	return err
}

// HandleWarning reports d and never halts the phase.
func (h *Handler) HandleWarning(d *Diagnostic) {
	h.mu.Lock()
	h.all = append(h.all, d)
	h.mu.Unlock()
	h.reporter.Warning(d)
}

// Error returns the handler's terminal error, or ErrInvalidSource if errors
// were reported but the Reporter never surfaced one, or nil if assembly
// never reported an error.
func (h *Handler) Error() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.errsReported && h.err == nil {
		return ErrInvalidSource
	}
	return h.err
}

// All returns every diagnostic reported so far, errors and warnings alike,
// in report order. The caller must not mutate the returned slice.
func (h *Handler) All() []*Diagnostic {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.all
}
