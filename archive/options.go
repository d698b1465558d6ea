package archive

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
	"github.com/arloliu/structarray/internal/hash"
	"github.com/arloliu/structarray/internal/logger"
	"github.com/arloliu/structarray/internal/metrics"
	"github.com/arloliu/structarray/internal/options"
)

type builderConfig struct {
	mapCompression    format.CompressionType
	columnCompression format.CompressionType
	hash              hash.Func
	logger            *zap.Logger
	metrics           *metrics.Metrics
}

func defaultBuilderConfig() builderConfig {
	return builderConfig{
		mapCompression:    format.CompressionZstd,
		columnCompression: format.CompressionZstd,
		hash:              hash.Bytes,
		logger:            logger.Nop(),
	}
}

// BuilderOption configures a Builder.
type BuilderOption = options.Option[*builderConfig]

// WithFieldMapCompression sets the codec of the field map. Zstd is the default.
func WithFieldMapCompression(ct format.CompressionType) BuilderOption {
	return options.New(func(c *builderConfig) error {
		if !ct.IsValid() {
			return fmt.Errorf("%w: field map codec %d", errs.ErrInvalidCodec, ct)
		}
		c.mapCompression = ct

		return nil
	})
}

// WithColumnCompression sets the codec of table rows. Zstd is the default.
func WithColumnCompression(ct format.CompressionType) BuilderOption {
	return options.New(func(c *builderConfig) error {
		if !ct.IsValid() {
			return fmt.Errorf("%w: column codec %d", errs.ErrInvalidCodec, ct)
		}
		c.columnCompression = ct

		return nil
	})
}

// WithHashFunc replaces the content hash used to find duplicate columns.
// Archives do not record the hash, so any function yields a readable archive;
// a weak one only costs more byte comparisons.
func WithHashFunc(fn hash.Func) BuilderOption {
	return options.New(func(c *builderConfig) error {
		if fn == nil {
			return fmt.Errorf("nil hash function")
		}
		c.hash = fn

		return nil
	})
}

// WithLogger sets the builder logger.
func WithLogger(l *zap.Logger) BuilderOption {
	return options.NoError(func(c *builderConfig) {
		c.logger = logger.OrNop(l)
	})
}

// WithMetrics reports archive counters to m.
func WithMetrics(m *metrics.Metrics) BuilderOption {
	return options.NoError(func(c *builderConfig) {
		c.metrics = m
	})
}

type readerConfig struct {
	metrics *metrics.Metrics
}

// ReaderOption configures a Reader.
type ReaderOption = options.Option[*readerConfig]

// WithReaderMetrics reports reconstructed columns to m.
func WithReaderMetrics(m *metrics.Metrics) ReaderOption {
	return options.NoError(func(c *readerConfig) {
		c.metrics = m
	})
}
