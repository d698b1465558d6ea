package cmd

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/structarray/cache"
	"github.com/arloliu/structarray/errs"
)

const pairLayout = "pair\t8\na\tZ4\t0\nb\tZ4\t4\n"

// fixture writes the pair layout and a record file holding a = [1 2 1] and
// b = [1 1 1].
func fixture(t *testing.T) (dir, layoutPath, dataPath string) {
	t.Helper()

	dir = t.TempDir()
	layoutPath = filepath.Join(dir, "pair.tsv")
	dataPath = filepath.Join(dir, "pair.reb")

	require.NoError(t, os.WriteFile(layoutPath, []byte(pairLayout), 0o600))
	writeRecords(t, dataPath, [][2]int32{{1, 1}, {2, 1}, {1, 1}})

	return dir, layoutPath, dataPath
}

func writeRecords(t *testing.T, path string, rows [][2]int32) {
	t.Helper()

	data := make([]byte, 0, 8*len(rows))
	for _, r := range rows {
		data = binary.LittleEndian.AppendUint32(data, uint32(r[0]))
		data = binary.LittleEndian.AppendUint32(data, uint32(r[1]))
	}
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()

	return out.String(), err
}

func TestSearch(t *testing.T) {
	_, layoutPath, _ := fixture(t)

	out, err := run(t, "search", "--layout", layoutPath, "*")
	require.NoError(t, err)
	require.Equal(t, "a\nb\n", out)

	out, err = run(t, "search", "--layout", layoutPath, "--regexp", "^B$")
	require.NoError(t, err)
	require.Equal(t, "b\n", out)

	_, err = run(t, "search", "*")
	require.Error(t, err, "layout flag is required")
}

func TestExtractAndListing(t *testing.T) {
	dir, layoutPath, dataPath := fixture(t)

	out, err := run(t, "extract", "--layout", layoutPath, dataPath, "-")
	require.NoError(t, err)
	require.Equal(t, "a\tb\n1\t1\n2\t1\n1\t1\n", out)

	out, err = run(t, "extract", "--layout", layoutPath, "--select", "b", "--start", "1", dataPath, "-")
	require.NoError(t, err)
	require.Equal(t, "b\n1\n1\n", out)

	tsv := filepath.Join(dir, "out.tsv")
	_, err = run(t, "extract", "--layout", layoutPath, "--stop", "-1", dataPath, tsv)
	require.NoError(t, err)
	got, err := os.ReadFile(tsv)
	require.NoError(t, err)
	require.Equal(t, "a\tb\n1\t1\n2\t1\n", string(got))

	out, err = run(t, "listing", "--layout", layoutPath, "--at", "1", dataPath, "-")
	require.NoError(t, err)
	require.Equal(t, "a\t2\nb\t1\n", out)

	out, err = run(t, "listing", "--layout", layoutPath, "--at", "-1", "--select", "a", dataPath, "-")
	require.NoError(t, err)
	require.Equal(t, "a\t1\n", out)
}

func TestPackGetVerifyInfo(t *testing.T) {
	dir, layoutPath, dataPath := fixture(t)
	rez := filepath.Join(dir, "pair.rez")

	out, err := run(t, "pack", "--layout", layoutPath, "--column-compression", "lz4", dataPath, rez)
	require.NoError(t, err)
	require.Contains(t, out, "3 records, 2 fields (1 constants, 0 duplicates)")

	out, err = run(t, "get", rez, "b", "a")
	require.NoError(t, err)
	require.Equal(t, "b\ta\n1\t1\n1\t2\n1\t1\n", out)

	_, err = run(t, "get", rez, "missing")
	require.ErrorIs(t, err, errs.ErrUnknownField)

	out, err = run(t, "verify", "--layout", layoutPath, dataPath, rez)
	require.NoError(t, err)
	require.Equal(t, "OK\t2 fields\t3 records\n", out)

	out, err = run(t, "info", rez)
	require.NoError(t, err)

	var info struct {
		Version uint8 `json:"version"`
		Summary struct {
			RecordCount int    `json:"record_count"`
			Fields      int    `json:"fields"`
			Constants   int    `json:"constants"`
			ColumnCodec string `json:"column_codec"`
		} `json:"summary"`
		FieldsByCode map[string]int `json:"fields_by_code"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.Equal(t, uint8(1), info.Version)
	require.Equal(t, 3, info.Summary.RecordCount)
	require.Equal(t, 2, info.Summary.Fields)
	require.Equal(t, 1, info.Summary.Constants)
	require.Equal(t, "LZ4", info.Summary.ColumnCodec)
	require.Equal(t, map[string]int{"Z4": 2}, info.FieldsByCode)
}

func TestVerifyMismatch(t *testing.T) {
	dir, layoutPath, dataPath := fixture(t)
	rez := filepath.Join(dir, "pair.rez")

	_, err := run(t, "pack", "--layout", layoutPath, dataPath, rez)
	require.NoError(t, err)

	writeRecords(t, dataPath, [][2]int32{{1, 1}, {2, 2}, {1, 1}})

	out, err := run(t, "verify", "--layout", layoutPath, dataPath, rez)
	require.ErrorIs(t, err, errArchiveMismatch)
	require.Equal(t, "MISMATCH\tb\tZ4\n", out)

	writeRecords(t, dataPath, [][2]int32{{1, 1}})
	_, err = run(t, "verify", "--layout", layoutPath, dataPath, rez)
	require.ErrorIs(t, err, errArchiveMismatch)
}

func TestDeltaRoundTrip(t *testing.T) {
	dir, _, dataPath := fixture(t)
	enc := filepath.Join(dir, "pair.xor")
	dec := filepath.Join(dir, "pair.out")

	_, err := run(t, "delta", "encode", "--stride", "8", dataPath, enc)
	require.NoError(t, err)
	_, err = run(t, "delta", "decode", "--stride", "8", enc, dec)
	require.NoError(t, err)

	want, err := os.ReadFile(dataPath)
	require.NoError(t, err)
	encoded, err := os.ReadFile(enc)
	require.NoError(t, err)
	got, err := os.ReadFile(dec)
	require.NoError(t, err)

	require.Equal(t, want, got)
	require.Equal(t, want[:8], encoded[:8])
	require.NotEqual(t, want, encoded)

	_, err = run(t, "delta", "encode", "--stride", "5", dataPath, enc)
	require.ErrorIs(t, err, errs.ErrTruncatedSource)
}

func TestLayoutConvertAndCheck(t *testing.T) {
	dir, layoutPath, _ := fixture(t)
	converted := filepath.Join(dir, "relative.tsv")

	_, err := run(t, "layout", "convert", "--relative", layoutPath, converted)
	require.NoError(t, err)
	text, err := os.ReadFile(converted)
	require.NoError(t, err)
	require.Equal(t, "pair\t8\na\tZ4\nb\tZ4\n", string(text))

	out, err := run(t, "layout", "check", converted)
	require.NoError(t, err)
	require.Equal(t, "pair: all 2 fields aligned, stride 8\n", out)

	odd := filepath.Join(dir, "odd.tsv")
	require.NoError(t, os.WriteFile(odd, []byte("odd\t8\nflag\tN1\t0\nvalue\tZ4\t1\n"), 0o600))
	out, err = run(t, "layout", "check", odd)
	require.NoError(t, err)
	require.Equal(t, "value\tZ4\t1\n", out)
}

func TestConfigFileCacheAndMetrics(t *testing.T) {
	dir, layoutPath, dataPath := fixture(t)
	cacheDir := filepath.Join(dir, "cache")
	metricsPath := filepath.Join(dir, "metrics.prom")
	cfgPath := filepath.Join(dir, "structarray.yaml")

	cfg := strings.Join([]string{
		"decoder:",
		"  large_file_threshold: 1",
		"  cache:",
		"    dir: " + cacheDir,
		"metrics:",
		"  file: " + metricsPath,
	}, "\n")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	for range 2 {
		out, err := run(t, "--config", cfgPath, "extract", "--layout", layoutPath, dataPath, "-")
		require.NoError(t, err)
		require.Equal(t, "a\tb\n1\t1\n2\t1\n1\t1\n", out)
	}

	require.FileExists(t, filepath.Join(cacheDir, "pair.reb"+cache.Suffix))

	text, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	require.Contains(t, string(text), `structarray_field_cache_lookups_total{result="hit"} 2`)

	_, err = run(t, "--config", cfgPath, "--no-cache", "extract", "--layout", layoutPath, dataPath, "-")
	require.NoError(t, err)
	text, err = os.ReadFile(metricsPath)
	require.NoError(t, err)
	require.NotContains(t, string(text), "field_cache_lookups_total")
}

func TestInvalidLogLevel(t *testing.T) {
	_, layoutPath, _ := fixture(t)

	_, err := run(t, "--log-level", "loud", "search", "--layout", layoutPath, "*")
	require.Error(t, err)
}
