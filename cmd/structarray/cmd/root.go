// Package cmd implements the structarray command line.
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arloliu/structarray/cache"
	"github.com/arloliu/structarray/config"
	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/internal/logger"
	"github.com/arloliu/structarray/internal/metrics"
	"github.com/arloliu/structarray/layout"
	"github.com/arloliu/structarray/record"
)

// app carries the state shared by every command of one invocation.
type app struct {
	configPath  string
	logLevel    string
	metricsFile string
	noCache     bool

	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewRootCommand builds the structarray command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "structarray",
		Short: "Decode fixed-stride binary records and archive their columns",
		Long: `structarray decodes files of fixed-size binary records described by a
tab-separated layout, exports the decoded fields as tables, and packs them into
deduplicated columnar archives.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides the configuration")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus text metrics to this file on exit")
	flags.BoolVar(&a.noCache, "no-cache", false, "Disable the persistent field cache of large record files")

	root.AddCommand(
		newLayoutCommand(a),
		newSearchCommand(a),
		newExtractCommand(a),
		newListingCommand(a),
		newNaNCommand(a),
		newPackCommand(a),
		newGetCommand(a),
		newVerifyCommand(a),
		newInfoCommand(a),
		newDeltaCommand(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.metricsFile != "" {
		cfg.Metrics.File = a.metricsFile
	}
	if a.noCache {
		cfg.Decoder.Cache.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log.Named(cmd.Name())
	a.metrics = metrics.New(nil)

	return nil
}

func (a *app) teardown() error {
	if a.log != nil {
		_ = a.log.Sync()
	}

	if a.cfg == nil || a.cfg.Metrics.File == "" {
		return nil
	}

	return a.metrics.WriteTextfile(a.cfg.Metrics.File)
}

// openDecoder loads the layout and opens the record file. Large files get the
// persistent field cache; the returned function closes it.
func (a *app) openDecoder(layoutPath, dataPath string) (*record.Decoder, func() error, error) {
	l, err := layout.LoadFile(layoutPath)
	if err != nil {
		return nil, nil, err
	}

	src, err := record.OpenSource(dataPath, a.cfg.Decoder.LargeFileThreshold)
	if err != nil {
		return nil, nil, err
	}

	order, err := a.cfg.ByteOrder()
	if err != nil {
		return nil, nil, err
	}

	opts := []record.DecoderOption{
		record.WithByteOrder(order),
		record.WithLogger(a.log),
		record.WithMetrics(a.metrics),
	}

	closer := func() error { return nil }
	if fs, ok := src.(*record.FileSource); ok {
		if path := a.cfg.CachePath(fs.Path()); path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, nil, fmt.Errorf("create cache directory: %w", err)
			}

			c, err := cache.OpenBolt(path)
			if err != nil {
				return nil, nil, err
			}
			a.log.Debug("field cache attached", zap.String("path", c.Path()))
			opts = append(opts, record.WithFieldCache(c))
			closer = c.Close
		}
	}

	dec, err := record.NewDecoder(l, src, opts...)
	if err != nil {
		_ = closer()
		return nil, nil, err
	}

	return dec, closer, nil
}

// createOutput opens path for buffered writing, "-" meaning standard output.
// The returned function flushes and closes it.
func createOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errs.IO("create output", err)
	}

	bw := bufio.NewWriter(f)
	done := func() error {
		if err := bw.Flush(); err != nil {
			_ = f.Close()
			return errs.IO("write output", err)
		}

		return f.Close()
	}

	return bw, done, nil
}
