// Command nmfsimple reads a fixed-rate NMF file and writes its notes as
// Retro synthesizer note-event lines, always on instrument one and layer
// one (spec.md §6, nmfsimple row). Grace notes and zero-duration cues are
// skipped.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"noir/internal/errs"
	"noir/internal/logging"
	"noir/internal/nmf"
)

func report(w io.Writer, obj *nmf.NMF) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < obj.NoteCount(); i++ {
		n := obj.NoteAt(i)
		if n.Dur < 1 {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%d %d %d 1 1 n\n", n.T, n.Dur, n.Pitch); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func run(cmd *cobra.Command, args []string) (err error) {
	defer logging.Recover(&err)

	start := time.Now()
	log := logging.New(cmd.ErrOrStderr(), "nmfsimple")

	obj, err := nmf.Parse(cmd.InOrStdin())
	if err != nil {
		return err
	}

	if obj.Basis() != nmf.BasisF44100 && obj.Basis() != nmf.BasisF48000 {
		return errs.New(errs.CodeBadBasis, "input must have fixed-rate basis")
	}

	obj.Sort()

	if err := report(cmd.OutOrStdout(), obj); err != nil {
		return err
	}
	logging.Debugf(log, start, map[string]interface{}{"notes": obj.NoteCount()})
	return nil
}

func main() {
	root := &cobra.Command{
		Use:           "nmfsimple",
		Short:         "emit Retro note-event lines from a fixed-rate NMF file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	if err := root.Execute(); err != nil {
		log := logging.New(os.Stderr, "nmfsimple")
		os.Exit(logging.Report(log, os.Stderr, "nmfsimple", err))
	}
}
