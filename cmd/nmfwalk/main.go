// Command nmfwalk parses an NMF file from standard input, validates it,
// and (unless -check or --check is given) prints a textual description of its
// contents (spec.md §6, nmfwalk row).
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"noir/internal/logging"
	"noir/internal/nmf"
)

func basisName(b nmf.Basis) string {
	switch b {
	case nmf.BasisQ96:
		return "96 quanta per quarter"
	case nmf.BasisF44100:
		return "44,100 quanta per second"
	case nmf.BasisF48000:
		return "48,000 quanta per second"
	}
	return "unknown"
}

func report(w io.Writer, obj *nmf.NMF) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "BASIS   : %s\n", basisName(obj.Basis()))
	fmt.Fprintf(bw, "SECTIONS: %d\n", obj.SectionCount())
	fmt.Fprintf(bw, "NOTES   : %d\n", obj.NoteCount())
	fmt.Fprintf(bw, "\n")

	for i := 0; i < obj.SectionCount(); i++ {
		fmt.Fprintf(bw, "SECTION %d AT %d\n", i, obj.SectionOffset(i))
	}
	fmt.Fprintf(bw, "\n")

	for i := 0; i < obj.NoteCount(); i++ {
		n := obj.NoteAt(i)
		fmt.Fprintf(bw, "NOTE T=%d DUR=%d P=%d A=%d S=%d L=%d\n",
			n.T, n.Dur, n.Pitch, n.Art, n.Sect, n.LayerI+1)
	}

	return bw.Flush()
}

func run(cmd *cobra.Command, args []string) (err error) {
	defer logging.Recover(&err)

	start := time.Now()
	log := logging.New(cmd.ErrOrStderr(), "nmfwalk")

	check, _ := cmd.Flags().GetBool("check")

	obj, err := nmf.Parse(cmd.InOrStdin())
	if err != nil {
		logging.Debugf(log, start, map[string]interface{}{"check": check})
		return err
	}

	if !check {
		if err := report(cmd.OutOrStdout(), obj); err != nil {
			return err
		}
	}

	logging.Debugf(log, start, map[string]interface{}{
		"check": check,
		"notes": obj.NoteCount(),
	})
	return nil
}

func main() {
	root := &cobra.Command{
		Use:           "nmfwalk",
		Short:         "validate and optionally dump an NMF file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().Bool("check", false, "validate only, print nothing on success")

	args := os.Args[1:]
	for i, a := range args {
		if a == "-check" {
			args[i] = "--check"
		}
	}
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		log := logging.New(os.Stderr, "nmfwalk")
		os.Exit(logging.Report(log, os.Stderr, "nmfwalk", err))
	}
}
