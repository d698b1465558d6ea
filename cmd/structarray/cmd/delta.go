package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/internal/pool"
	"github.com/arloliu/structarray/record"
)

type deltaFunc func(dst io.Writer, src io.Reader, stride int) error

func newDeltaCommand(a *app) *cobra.Command {
	var stride int

	cmd := &cobra.Command{
		Use:   "delta",
		Short: "XOR consecutive records to help general-purpose compressors",
		Long: `Replace every record after the first with its XOR against the previous
record, or reverse the transform. Slowly changing records become runs of zero
bytes.

Example:
  structarray delta encode --stride 256 run.reb run.xor`,
	}

	cmd.PersistentFlags().IntVar(&stride, "stride", 0, "Record size in bytes (required)")
	_ = cmd.MarkPersistentFlagRequired("stride")

	sub := func(use, short string, fn deltaFunc) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <in> <out>",
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runDelta(cmd, fn, args[0], args[1], stride)
			},
		}
	}

	cmd.AddCommand(
		sub("encode", "XOR every record with the previous one", record.EncodeBlockDelta),
		sub("decode", "Undo delta encode", record.DecodeBlockDelta),
	)

	return cmd
}

func (a *app) runDelta(cmd *cobra.Command, fn deltaFunc, inPath, outPath string, stride int) error {
	in, err := os.Open(inPath)
	if err != nil {
		return errs.IO("open input", err)
	}
	defer in.Close()

	w, done, err := createOutput(cmd, outPath)
	if err != nil {
		return err
	}

	if err := fn(w, bufio.NewReaderSize(in, pool.SectionBufferDefaultSize), stride); err != nil {
		_ = done()
		return fmt.Errorf("%s %s: %w", cmd.Name(), inPath, err)
	}

	a.log.Info("delta transform done", zap.String("mode", cmd.Name()), zap.String("input", inPath), zap.Int("stride", stride))

	return done()
}
