// Package logging builds the zerolog.Logger shared by the six CLI
// frontends: console-writer formatted on a terminal, JSON otherwise.
// Library packages never import this package; they report failure
// exclusively through return values (spec.md §1.2/§5).
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New returns a Logger writing to w, named for the calling tool.
// Console formatting is used when w is a terminal; otherwise JSON.
func New(w io.Writer, tool string) zerolog.Logger {
	out := w
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).With().Timestamp().Str("tool", tool).Logger()
}
