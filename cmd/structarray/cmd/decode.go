package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arloliu/structarray/layout"
)

func newSearchCommand(a *app) *cobra.Command {
	var (
		layoutPath string
		useRegexp  bool
	)

	cmd := &cobra.Command{
		Use:   "search --layout <layout.tsv> <pattern>",
		Short: "List the fields whose name matches a pattern",
		Long: `List the data fields whose name matches a pattern, ignoring the case of
ASCII letters. The pattern is a glob where '*' matches any text, or a regular
expression with --regexp.

Example:
  structarray search --layout run.tsv 'motor*speed'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := layout.LoadFile(layoutPath)
			if err != nil {
				return err
			}

			mode := layout.SearchGlob
			if useRegexp {
				mode = layout.SearchRegexp
			}

			names, err := l.Search(args[0], mode)
			if err != nil {
				return err
			}

			a.log.Debug("search", zap.String("pattern", args[0]), zap.Stringer("mode", mode), zap.Int("matches", len(names)))
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&layoutPath, "layout", "l", "", "Layout file (required)")
	cmd.Flags().BoolVar(&useRegexp, "regexp", false, "Interpret the pattern as a regular expression")
	_ = cmd.MarkFlagRequired("layout")

	return cmd
}

// recordRange holds the --start/--stop flags shared by the export commands.
type recordRange struct {
	start, stop int
}

func (r *recordRange) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&r.start, "start", 0, "First record, negative counts from the end")
	cmd.Flags().IntVar(&r.stop, "stop", 0, "Record after the last one, negative counts from the end (default: record count)")
}

func (r *recordRange) bounds(cmd *cobra.Command, records int) (int, int) {
	stop := r.stop
	if !cmd.Flags().Changed("stop") {
		stop = records
	}

	return r.start, stop
}

func newExtractCommand(a *app) *cobra.Command {
	var (
		layoutPath string
		selected   []string
		rng        recordRange
	)

	cmd := &cobra.Command{
		Use:   "extract --layout <layout.tsv> <data> <out.tsv>",
		Short: "Export decoded records as a tab-separated table",
		Long: `Export records as a table with one column per field and one row per
record. Use "-" as output for standard output.

Example:
  structarray extract --layout run.tsv --select 'motor*' --start -100 run.reb tail.tsv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dec, closeCache, err := a.openDecoder(layoutPath, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			names, err := dec.Layout().Select(selected...)
			if err != nil {
				return err
			}

			w, done, err := createOutput(cmd, args[1])
			if err != nil {
				return err
			}

			start, stop := rng.bounds(cmd, dec.RecordCount())
			if err := dec.WriteTSV(w, names, start, stop); err != nil {
				_ = done()
				return err
			}

			a.log.Info("records extracted",
				zap.Int("fields", len(names)),
				zap.Int("records", dec.RecordCount()),
			)

			return done()
		},
	}

	cmd.Flags().StringVarP(&layoutPath, "layout", "l", "", "Layout file (required)")
	cmd.Flags().StringSliceVarP(&selected, "select", "s", nil, "Glob patterns selecting the exported fields")
	rng.register(cmd)
	_ = cmd.MarkFlagRequired("layout")

	return cmd
}

func newListingCommand(a *app) *cobra.Command {
	var (
		layoutPath string
		selected   []string
		at         int
		rng        recordRange
	)

	cmd := &cobra.Command{
		Use:   "listing --layout <layout.tsv> <data> <out.tsv>",
		Short: "Export decoded records transposed, one row per field",
		Long: `Export records as one row per field: the field name followed by its
values. --at lists a single record.

Example:
  structarray listing --layout run.tsv --at 42 run.reb -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dec, closeCache, err := a.openDecoder(layoutPath, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			names, err := dec.Layout().Select(selected...)
			if err != nil {
				return err
			}

			start, stop := rng.bounds(cmd, dec.RecordCount())
			if cmd.Flags().Changed("at") {
				start, stop = at, at+1
				if at == -1 {
					stop = dec.RecordCount()
				}
			}

			w, done, err := createOutput(cmd, args[1])
			if err != nil {
				return err
			}
			if err := dec.WriteListing(w, names, start, stop); err != nil {
				_ = done()
				return err
			}

			return done()
		},
	}

	cmd.Flags().StringVarP(&layoutPath, "layout", "l", "", "Layout file (required)")
	cmd.Flags().StringSliceVarP(&selected, "select", "s", nil, "Glob patterns selecting the listed fields")
	cmd.Flags().IntVar(&at, "at", 0, "List only this record, negative counts from the end")
	rng.register(cmd)
	_ = cmd.MarkFlagRequired("layout")

	return cmd
}

func newNaNCommand(a *app) *cobra.Command {
	var layoutPath string

	cmd := &cobra.Command{
		Use:   "nan --layout <layout.tsv> <data>",
		Short: "Find the first record holding a NaN float",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dec, closeCache, err := a.openDecoder(layoutPath, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			idx, names, err := dec.FirstNaN()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if idx < 0 {
				fmt.Fprintln(out, "no NaN")
				return nil
			}

			fmt.Fprintf(out, "record %d\n", idx)
			for _, name := range names {
				fmt.Fprintln(out, name)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&layoutPath, "layout", "l", "", "Layout file (required)")
	_ = cmd.MarkFlagRequired("layout")

	return cmd
}
