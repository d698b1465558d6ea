package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arloliu/structarray/layout"
)

func newLayoutCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Inspect and rewrite layout files",
	}

	cmd.AddCommand(newLayoutConvertCommand(a), newLayoutCheckCommand(a))

	return cmd
}

func newLayoutConvertCommand(a *app) *cobra.Command {
	var relative, compact bool

	cmd := &cobra.Command{
		Use:   "convert <in.tsv> <out.tsv>",
		Short: "Rewrite a layout with relative offsets and/or compacted names",
		Long: `Rewrite a layout file. Without flags the output uses absolute offsets and
full field names.

Example:
  structarray layout convert --relative --compact big.tsv small.tsv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := layout.LoadFile(args[0])
			if err != nil {
				return err
			}

			w, done, err := createOutput(cmd, args[1])
			if err != nil {
				return err
			}
			if err := l.Dump(w, relative, compact); err != nil {
				_ = done()
				return err
			}

			a.log.Info("layout converted",
				zap.String("layout", l.Name()),
				zap.Int("fields", l.Len()),
				zap.Bool("relative", relative),
				zap.Bool("compact", compact),
			)

			return done()
		},
	}

	cmd.Flags().BoolVar(&relative, "relative", false, "Write offsets relative to the end of the previous field")
	cmd.Flags().BoolVar(&compact, "compact", false, "Write names as references to the previous names")

	return cmd
}

func newLayoutCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <layout.tsv>",
		Short: "Report fields that are not aligned on their own width",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := layout.LoadFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			misaligned := l.Misaligned()
			for _, f := range misaligned {
				fmt.Fprintf(out, "%s\t%s\t%d\n", f.Name, f.Code, f.Offset)
			}

			if len(misaligned) == 0 {
				fmt.Fprintf(out, "%s: all %d fields aligned, stride %d\n", l.Name(), l.Len(), l.Stride())
			} else {
				a.log.Warn("misaligned fields", zap.String("layout", l.Name()), zap.Int("count", len(misaligned)))
			}

			return nil
		},
	}
}
