package cmd

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arloliu/structarray/archive"
	"github.com/arloliu/structarray/column"
	"github.com/arloliu/structarray/record"
	"github.com/arloliu/structarray/tabular"
)

// errArchiveMismatch reports an archive that does not reproduce its records.
var errArchiveMismatch = errors.New("archive does not match the record file")

func newPackCommand(a *app) *cobra.Command {
	var layoutPath, mapCodec, columnCodec string

	cmd := &cobra.Command{
		Use:   "pack --layout <layout.tsv> <data> <out.rez>",
		Short: "Pack every field of a record file into a deduplicated archive",
		Long: `Decode every data field and write them to a columnar archive. Constant
fields are stored once as a value and identical columns are stored once.

Example:
  structarray pack --layout run.tsv --column-compression lz4 run.reb run.rez`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mapCodec != "" {
				a.cfg.Archive.MapCompression = mapCodec
			}
			if columnCodec != "" {
				a.cfg.Archive.ColumnCompression = columnCodec
			}

			mc, err := a.cfg.MapCompression()
			if err != nil {
				return err
			}
			cc, err := a.cfg.ColumnCompression()
			if err != nil {
				return err
			}

			dec, closeCache, err := a.openDecoder(layoutPath, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			b, err := archive.NewBuilder(dec.Layout(),
				archive.WithFieldMapCompression(mc),
				archive.WithColumnCompression(cc),
				archive.WithLogger(a.log),
				archive.WithMetrics(a.metrics),
			)
			if err != nil {
				return err
			}

			if err := b.Build(dec, dec.RecordCount()); err != nil {
				return err
			}
			if err := b.Save(args[1]); err != nil {
				return err
			}

			s := b.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records, %d fields (%d constants, %d duplicates), %d unique columns, %d bytes\n",
				args[1], s.RecordCount, s.Fields, s.Constants, s.Duplicates, s.UniqueColumns, s.Size)

			return nil
		},
	}

	cmd.Flags().StringVarP(&layoutPath, "layout", "l", "", "Layout file (required)")
	cmd.Flags().StringVar(&mapCodec, "map-compression", "", "Field map codec: none, zstd, s2 or lz4")
	cmd.Flags().StringVar(&columnCodec, "column-compression", "", "Column codec: none, zstd, s2 or lz4")
	_ = cmd.MarkFlagRequired("layout")

	return cmd
}

func newGetCommand(a *app) *cobra.Command {
	var (
		output string
		rng    recordRange
	)

	cmd := &cobra.Command{
		Use:   "get <archive.rez> <name>...",
		Short: "Export fields from an archive as a tab-separated table",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := archive.Open(args[0], archive.WithReaderMetrics(a.metrics))
			if err != nil {
				return err
			}

			names := args[1:]
			cols := make([]column.Column, len(names))
			for i, name := range names {
				if cols[i], err = r.Column(name); err != nil {
					return err
				}
			}

			w, done, err := createOutput(cmd, output)
			if err != nil {
				return err
			}

			start, stop := rng.bounds(cmd, r.RecordCount())
			start, stop = record.ClampRange(start, stop, r.RecordCount())

			tw := tabular.NewWriter(w)
			err = tw.Write(names...)
			row := make([]string, len(cols))
			for i := start; i < stop && err == nil; i++ {
				for j, c := range cols {
					row[j] = c.At(i).String()
				}
				err = tw.Write(row...)
			}
			if err == nil {
				err = tw.Flush()
			}
			if err != nil {
				_ = done()
				return err
			}

			return done()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, \"-\" for standard output")
	rng.register(cmd)

	return cmd
}

func newVerifyCommand(a *app) *cobra.Command {
	var layoutPath string

	cmd := &cobra.Command{
		Use:   "verify --layout <layout.tsv> <data> <archive.rez>",
		Short: "Check that an archive reproduces every field of a record file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dec, closeCache, err := a.openDecoder(layoutPath, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			r, err := archive.Open(args[1], archive.WithReaderMetrics(a.metrics))
			if err != nil {
				return err
			}

			if r.RecordCount() != dec.RecordCount() {
				return fmt.Errorf("%w: %d records archived, %d decoded", errArchiveMismatch, r.RecordCount(), dec.RecordCount())
			}

			out := cmd.OutOrStdout()
			checked, failed := 0, 0
			for f := range dec.Layout().Fields() {
				want, err := dec.Column(f.Name)
				if err != nil {
					return err
				}

				got, err := r.Column(f.Name)
				if err != nil {
					return err
				}

				checked++
				if !got.Equal(want) {
					failed++
					fmt.Fprintf(out, "MISMATCH\t%s\t%s\n", f.Name, f.Code)
				}
			}

			if failed > 0 {
				a.log.Error("archive verification failed", zap.Int("fields", checked), zap.Int("mismatches", failed))
				return fmt.Errorf("%w: %d of %d fields differ", errArchiveMismatch, failed, checked)
			}

			fmt.Fprintf(out, "OK\t%d fields\t%d records\n", checked, r.RecordCount())

			return nil
		},
	}

	cmd.Flags().StringVarP(&layoutPath, "layout", "l", "", "Layout file (required)")
	_ = cmd.MarkFlagRequired("layout")

	return cmd
}

// archiveInfo is the JSON report of the info command.
type archiveInfo struct {
	Path    string          `json:"path"`
	Version uint8           `json:"version"`
	Summary archive.Summary `json:"summary"`

	// FieldsByCode counts the fields of each type code.
	FieldsByCode map[string]int `json:"fields_by_code"`
}

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <archive.rez>",
		Short: "Describe an archive as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := archive.Open(args[0], archive.WithReaderMetrics(a.metrics))
			if err != nil {
				return err
			}

			info := archiveInfo{
				Path:         args[0],
				Version:      r.Header().Version,
				Summary:      r.Stats().Summary(),
				FieldsByCode: make(map[string]int),
			}
			for _, name := range r.Names() {
				e, err := r.Entry(name)
				if err != nil {
					return err
				}
				info.FieldsByCode[e.Code.String()]++
			}

			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("encode archive info: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))

			return err
		},
	}
}
