// Command nmftempo interprets a Shastina-style tempo-map file and applies
// it to a Q96 NMF file read from standard input, producing a fixed-rate
// NMF file (spec.md §6/§4.F, nmftempo row).
package main

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"noir/internal/errs"
	"noir/internal/logging"
	"noir/internal/nmf"
	"noir/internal/tempo"
)

func run(cmd *cobra.Command, args []string) (err error) {
	defer logging.Recover(&err)

	start := time.Now()
	log := logging.New(cmd.ErrOrStderr(), "nmftempo")

	srate, perr := strconv.ParseInt(args[1], 10, 32)
	if perr != nil {
		return errs.New(errs.CodeBadField, "can't parse srate parameter")
	}
	if srate != 44100 && srate != 48000 {
		return errs.New(errs.CodeBadBasis, "invalid sampling rate")
	}
	outBasis := nmf.BasisF44100
	if srate == 48000 {
		outBasis = nmf.BasisF48000
	}

	in, err := nmf.Parse(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if in.Basis() != nmf.BasisQ96 {
		return errs.New(errs.CodeBadBasis, "input must have Q96 basis")
	}

	mapFile, err := os.Open(args[0])
	if err != nil {
		return errs.New(errs.CodeBadTempoSyntax, "can't open tempo map file")
	}
	defer mapFile.Close()

	sections := make([]uint32, in.SectionCount())
	for i := 0; i < in.SectionCount(); i++ {
		sections[i] = in.SectionOffset(i)
	}

	m, err := tempo.Parse(mapFile, int32(srate), sections)
	if err != nil {
		return err
	}

	out, err := tempo.Apply(in, m, outBasis)
	if err != nil {
		return err
	}

	if err := out.Serialize(cmd.OutOrStdout()); err != nil {
		return err
	}
	logging.Debugf(log, start, map[string]interface{}{"notes": out.NoteCount()})
	return nil
}

func main() {
	root := &cobra.Command{
		Use:           "nmftempo [map] [srate]",
		Short:         "apply a tempo map to a Q96 NMF file",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	if err := root.Execute(); err != nil {
		log := logging.New(os.Stderr, "nmftempo")
		os.Exit(logging.Report(log, os.Stderr, "nmftempo", err))
	}
}
