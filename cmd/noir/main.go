// Command noir compiles Noir notation text on standard input into a
// serialized NMF file on standard output (spec.md §6, compiler row).
package main

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"noir/internal/entity"
	"noir/internal/event"
	"noir/internal/logging"
	"noir/internal/nmf"
	"noir/internal/token"
	"noir/internal/vm"
)

func compile(src []byte) (*nmf.NMF, error) {
	tok := token.New(bytes.NewReader(src))
	ev := event.New()
	m := vm.New(ev)
	p := entity.New(tok, m)
	return p.Run()
}

func run(cmd *cobra.Command, args []string) (err error) {
	defer logging.Recover(&err)

	start := time.Now()
	log := logging.New(cmd.ErrOrStderr(), "noir")

	src, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return err
	}

	result, err := compile(src)
	if err != nil {
		logging.Debugf(log, start, map[string]interface{}{"source_bytes": len(src)})
		return err
	}

	if err := result.Serialize(cmd.OutOrStdout()); err != nil {
		return err
	}
	logging.Debugf(log, start, map[string]interface{}{
		"source_bytes": len(src),
		"notes":        result.NoteCount(),
	})
	return nil
}

func main() {
	root := &cobra.Command{
		Use:           "noir",
		Short:         "compile Noir notation into an NMF file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	if err := root.Execute(); err != nil {
		log := logging.New(os.Stderr, "noir")
		os.Exit(logging.Report(log, os.Stderr, "noir", err))
	}
}
