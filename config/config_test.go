package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/structarray/endian"
	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
	"github.com/arloliu/structarray/record"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "structarray.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))

	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, record.LargeFileThreshold, cfg.Decoder.LargeFileThreshold)

	ct, err := cfg.ColumnCompression()
	require.NoError(t, err)
	require.Equal(t, format.CompressionZstd, ct)

	order, err := cfg.ByteOrder()
	require.NoError(t, err)
	require.Equal(t, "little", endian.Name(order))
}

func TestLoad(t *testing.T) {
	t.Setenv("STRUCTARRAY_CACHE_DIR", "/var/cache/structarray")

	path := writeConfig(t, `
logging:
  level: debug
decoder:
  byte_order: big
  large_file_threshold: 1048576
  cache:
    dir: ${STRUCTARRAY_CACHE_DIR}
archive:
  column_compression: ${STRUCTARRAY_CODEC:-lz4}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "console", cfg.Logging.Encoding, "unset keys keep their default")
	require.Equal(t, int64(1<<20), cfg.Decoder.LargeFileThreshold)
	require.True(t, cfg.Decoder.Cache.Enabled)
	require.Equal(t, "/var/cache/structarray", cfg.Decoder.Cache.Dir)

	ct, err := cfg.ColumnCompression()
	require.NoError(t, err)
	require.Equal(t, format.CompressionLZ4, ct)

	mc, err := cfg.MapCompression()
	require.NoError(t, err)
	require.Equal(t, format.CompressionZstd, mc)

	order, err := cfg.ByteOrder()
	require.NoError(t, err)
	require.Equal(t, "big", endian.Name(order))

	require.Equal(t, "debug", cfg.LoggerConfig().Level)
	require.Equal(t, "/var/cache/structarray/run.reb.cache", cfg.CachePath("/data/run.reb"))
}

func TestCachePath(t *testing.T) {
	cfg := Default()
	require.Equal(t, "/data/run.reb.cache", cfg.CachePath("/data/run.reb"))

	cfg.Decoder.Cache.Enabled = false
	require.Empty(t, cfg.CachePath("/data/run.reb"))
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"level":     "logging:\n  level: loud\n",
		"order":     "decoder:\n  byte_order: middle\n",
		"threshold": "decoder:\n  large_file_threshold: -1\n",
		"codec":     "archive:\n  map_compression: brotli\n",
		"yaml":      "logging: [\n",
	}

	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, text))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, errs.ErrIO)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("SA_SET", "value")
	t.Setenv("SA_EMPTY", "")

	require.Equal(t, "a value b", substituteEnvVars("a ${SA_SET} b"))
	require.Equal(t, "fallback", substituteEnvVars("${SA_EMPTY:-fallback}"))
	require.Equal(t, "", substituteEnvVars("${SA_UNSET_VARIABLE}"))
	require.Equal(t, "$SA_SET", substituteEnvVars("$SA_SET"))
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Archive.ColumnCompression = "s2"
	cfg.Metrics.File = "/tmp/metrics.prom"

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}
