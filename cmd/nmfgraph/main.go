// Command nmfgraph reads a fixed-rate NMF file whose notes encode
// per-layer dynamics curves and writes Retro-synthesizer layer blocks
// (spec.md §6/§4.G, nmfgraph row). The optional gamma argument is an
// integer equal to 1000 times the desired gamma value (1000 = 1.0).
package main

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"noir/internal/errs"
	"noir/internal/graph"
	"noir/internal/logging"
	"noir/internal/nmf"
)

func run(cmd *cobra.Command, args []string) (err error) {
	defer logging.Recover(&err)

	start := time.Now()
	log := logging.New(cmd.ErrOrStderr(), "nmfgraph")

	gamma := 1.0
	if len(args) == 1 {
		gi, perr := strconv.ParseInt(args[0], 10, 32)
		if perr != nil {
			return errs.New(errs.CodeBadField, "can't parse gamma argument as integer")
		}
		if gi < 1 {
			return errs.New(errs.CodeBadField, "gamma value out of range")
		}
		gamma = float64(gi) / 1000.0
	}

	obj, err := nmf.Parse(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if obj.Basis() != nmf.BasisF44100 && obj.Basis() != nmf.BasisF48000 {
		return errs.New(errs.CodeBadBasis, "NMF file has wrong basis")
	}
	obj.Sort()

	b := graph.New()
	for i := 0; i < obj.NoteCount(); i++ {
		n := obj.NoteAt(i)
		if err := b.Note(n.LayerI, n.T, n.Dur, n.Pitch, n.Art, i+1); err != nil {
			return err
		}
	}
	if err := b.Finish(obj.NoteCount()); err != nil {
		return err
	}

	if err := b.Render(cmd.OutOrStdout(), gamma); err != nil {
		return err
	}
	logging.Debugf(log, start, map[string]interface{}{"notes": obj.NoteCount(), "gamma": gamma})
	return nil
}

func main() {
	root := &cobra.Command{
		Use:           "nmfgraph [gamma]",
		Short:         "extract per-layer dynamics curves from a fixed-rate NMF file",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	if err := root.Execute(); err != nil {
		log := logging.New(os.Stderr, "nmfgraph")
		os.Exit(logging.Report(log, os.Stderr, "nmfgraph", err))
	}
}
