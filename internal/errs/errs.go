// Package errs defines the closed error-code enumeration shared by every
// stage of the Noir -> NMF pipeline, and the distinction between
// input-driven errors (returned) and caller-contract violations (panics).
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code identifies the reason an input-driven operation failed.
type Code int

const (
	_ Code = iota

	// NMF codec
	CodeBadSignature
	CodeBadBasis
	CodeBadSectionCount
	CodeBadNoteCount
	CodeBadSectionOffset
	CodeBadField
	CodeTooManySections
	CodeTooManyNotes
	CodeNoteBeforeSection
	CodeShortRead
	CodeEmptyNMF

	// Tokenizer
	CodeInvalidChar
	CodeTokenTooLong
	CodeBadBOM

	// Entity parser
	CodeUnexpectedClose
	CodeUnclosedGroup
	CodeNestingOverflow
	CodeBadPitch
	CodeBadRhythm
	CodeGraceInRhythmGroup
	CodeBadOperator

	// Virtual machine
	CodeUndefinedPitch
	CodeUndefinedDuration
	CodeStackOverflow
	CodeStackUnderflow
	CodeStacksNotEmpty
	CodeDanglingArticulation
	CodeSectionOverflow
	CodeArithOverflow
	CodeBadCue

	// Tempo map
	CodeTempoNotFirst
	CodeTempoNotIncreasing
	CodeTooManyTempi
	CodeDanglingRamp
	CodeBadTempoSyntax

	// Graph builder
	CodeDanglingGraph
	CodeDuplicateTime
	CodeFirstNotZero
)

var names = map[Code]string{
	CodeBadSignature:         "bad signature",
	CodeBadBasis:             "bad quantum basis",
	CodeBadSectionCount:      "bad section count",
	CodeBadNoteCount:         "bad note count",
	CodeBadSectionOffset:     "non-monotonic section offset",
	CodeBadField:             "field out of range",
	CodeTooManySections:      "too many sections",
	CodeTooManyNotes:         "too many notes",
	CodeNoteBeforeSection:    "note precedes its section",
	CodeShortRead:            "short read",
	CodeEmptyNMF:             "no notes to serialize",
	CodeInvalidChar:          "invalid character",
	CodeTokenTooLong:         "token too long",
	CodeBadBOM:               "malformed byte-order mark",
	CodeUnexpectedClose:      "unexpected close",
	CodeUnclosedGroup:        "unclosed group",
	CodeNestingOverflow:      "nesting too deep",
	CodeBadPitch:             "pitch out of range",
	CodeBadRhythm:            "bad rhythm token",
	CodeGraceInRhythmGroup:   "grace note inside rhythm group",
	CodeBadOperator:          "bad operator",
	CodeUndefinedPitch:       "pitch undefined",
	CodeUndefinedDuration:    "duration undefined",
	CodeStackOverflow:        "stack overflow",
	CodeStackUnderflow:       "stack underflow",
	CodeStacksNotEmpty:       "stacks not empty",
	CodeDanglingArticulation: "dangling articulation",
	CodeSectionOverflow:      "too many sections",
	CodeArithOverflow:        "arithmetic overflow",
	CodeBadCue:               "cue number out of range",
	CodeTempoNotFirst:        "first tempo not at t=0",
	CodeTempoNotIncreasing:   "tempo offsets not strictly increasing",
	CodeTooManyTempi:         "too many tempi",
	CodeDanglingRamp:         "dangling ramp",
	CodeBadTempoSyntax:       "bad tempo-map syntax",
	CodeDanglingGraph:        "dangling dynamics layer",
	CodeDuplicateTime:        "duplicate time in dynamics layer",
	CodeFirstNotZero:         "first dynamic not at t=0",
}

func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error is an input-driven failure: a closed code, an optional 1-based
// line number (0 when not applicable), and a human-readable message.
type Error struct {
	Code  Code
	Line  int
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[Line %d] %s", e.Line, e.Msg)
	}
	return e.Msg
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with no line context.
func New(code Code, format string, args ...interface{}) *Error {
	msg := code.String()
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Msg: msg}
}

// NewAt builds an Error carrying a 1-based line number.
func NewAt(code Code, line int, format string, args ...interface{}) *Error {
	e := New(code, format, args...)
	e.Line = line
	return e
}

// Wrap attaches a lower-level cause to a new input-driven Error, preserving
// it via github.com/pkg/errors so the original failure remains inspectable
// without changing the public error surface.
func Wrap(code Code, line int, cause error, format string, args ...interface{}) *Error {
	e := NewAt(code, line, format, args...)
	e.cause = errors.Wrap(cause, e.Msg)
	return e
}

// Fault reports a caller-contract violation (§7.2): null arguments,
// out-of-range internal parameters, use-after-finish, reentry of a
// once-only operation, or a broken trusted invariant. It panics instead
// of returning, since these are not recoverable input errors; the CLI
// frontends recover the panic and exit with a non-zero status.
func Fault(format string, args ...interface{}) {
	panic(errors.Errorf("fault: "+format, args...))
}
