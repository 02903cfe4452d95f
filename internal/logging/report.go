package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"noir/internal/errs"
)

// Report prints a recovered Fault the same way as an ordinary error (§7.2):
// it writes the textual "[Line N] message" (or bare message) form to stderr,
// logs the error at the error level, and returns the process exit code.
// err is nil on success.
func Report(log zerolog.Logger, stderr io.Writer, tool string, err error) int {
	if err == nil {
		return 0
	}
	if ae, ok := err.(*errs.Error); ok {
		fmt.Fprintf(stderr, "%s: %s\n", tool, ae.Error())
	} else {
		fmt.Fprintf(stderr, "%s: %s\n", tool, err.Error())
	}
	log.Error().Err(err).Msg("run failed")
	return 1
}

// Recover turns a recovered panic whose value is an error, such as the
// one errs.Fault raises, into an error, leaving any other panic value to
// propagate.
func Recover(perr *error) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*perr = e
			return
		}
		panic(r)
	}
}

// Debugf logs the one-line-per-run diagnostic described in §1.2.
func Debugf(log zerolog.Logger, start time.Time, fields map[string]interface{}) {
	ev := log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Dur("elapsed", time.Since(start)).Msg("run complete")
}
