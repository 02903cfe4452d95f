// Command nmfrate converts a Q96 NMF file to a fixed-rate NMF file under
// a single constant tempo (spec.md §6, §4.H nmfrate row).
package main

import (
	"math"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"noir/internal/errs"
	"noir/internal/logging"
	"noir/internal/nmf"
)

func quantize(f float64) (int32, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errs.New(errs.CodeArithOverflow, "computation error")
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, errs.New(errs.CodeArithOverflow, "computation error")
	}
	return int32(f), nil
}

func convert(in *nmf.NMF, srate, tempo, qbeat int32, outBasis nmf.Basis) (*nmf.NMF, error) {
	qdur := (600.0 / float64(tempo)) * float64(srate) / float64(qbeat)

	out := nmf.Alloc()
	out.Rebase(outBasis)

	for i := 1; i < in.SectionCount(); i++ {
		v, err := quantize(qdur * float64(in.SectionOffset(i)))
		if err != nil {
			return nil, err
		}
		if v < 0 {
			v = 0
		}
		if err := out.Sect(uint32(v)); err != nil {
			return nil, err
		}
	}

	for i := 0; i < in.NoteCount(); i++ {
		n := in.NoteAt(i)

		t, err := quantize(qdur * float64(n.T))
		if err != nil {
			return nil, err
		}
		if t < 0 {
			t = 0
		}
		n.T = uint32(t)

		if n.Dur > 0 {
			d, err := quantize(qdur * float64(n.Dur))
			if err != nil {
				return nil, err
			}
			if d < 1 {
				d = 1
			}
			n.Dur = d
		}

		if err := out.Append(n); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func run(cmd *cobra.Command, args []string) (err error) {
	defer logging.Recover(&err)

	start := time.Now()
	log := logging.New(cmd.ErrOrStderr(), "nmfrate")

	srate, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return errs.New(errs.CodeBadField, "can't parse srate parameter")
	}
	tempo, err := strconv.ParseInt(args[1], 10, 32)
	if err != nil {
		return errs.New(errs.CodeBadField, "can't parse tempo parameter")
	}
	qbeat, err := strconv.ParseInt(args[2], 10, 32)
	if err != nil {
		return errs.New(errs.CodeBadField, "can't parse qbeat parameter")
	}

	var basis nmf.Basis
	switch srate {
	case 48000:
		basis = nmf.BasisF48000
	case 44100:
		basis = nmf.BasisF44100
	default:
		return errs.New(errs.CodeBadBasis, "invalid sampling rate")
	}
	if tempo < 1 {
		return errs.New(errs.CodeBadField, "invalid tempo")
	}
	if qbeat < 1 {
		return errs.New(errs.CodeBadField, "invalid beat")
	}

	in, err := nmf.Parse(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if in.Basis() != nmf.BasisQ96 {
		return errs.New(errs.CodeBadBasis, "input must have Q96 basis")
	}

	out, err := convert(in, int32(srate), int32(tempo), int32(qbeat), basis)
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
		Use:           "nmfrate [srate] [tempo] [qbeat]",
		Short:         "apply a constant tempo to a Q96 NMF file",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	if err := root.Execute(); err != nil {
		log := logging.New(os.Stderr, "nmfrate")
		os.Exit(logging.Report(log, os.Stderr, "nmfrate", err))
	}
}
