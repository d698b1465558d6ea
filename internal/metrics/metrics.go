// Package metrics defines the Prometheus counters reported by the decoder, the
// field caches and the archive builder.
//
// Counters live on a registry owned by the caller, never on the global default
// registry, so several decoders in one process do not collide. All methods are
// safe to call on a nil *Metrics, which records nothing.
//
//	m := metrics.New(prometheus.NewRegistry())
//	dec, _ := record.NewDecoder(l, src, record.WithMetrics(m))
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "structarray"

// Decode paths.
const (
	PathFast     = "fast"
	PathFallback = "fallback"
	PathFile     = "file"
)

// Archive entry kinds.
const (
	EntryConstant  = "constant"
	EntryUnique    = "unique"
	EntryDuplicate = "duplicate"
	EntryReference = "reference"
)

// Metrics groups every counter of the module.
type Metrics struct {
	registry *prometheus.Registry

	columnsDecoded  *prometheus.CounterVec
	bytesRead       prometheus.Counter
	truncatedBytes  prometheus.Counter
	cacheLookups    *prometheus.CounterVec
	archiveEntries  *prometheus.CounterVec
	hashCollisions  prometheus.Counter
	archiveBytes    prometheus.Counter
	columnsRestored *prometheus.CounterVec
}

// New registers the counters on reg. A nil reg creates a private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		columnsDecoded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "columns_decoded_total",
			Help:      "Number of field columns decoded from record sources, by decode path.",
		}, []string{"path"}),
		bytesRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_bytes_read_total",
			Help:      "Bytes read from file-backed record sources.",
		}),
		truncatedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "truncated_bytes_total",
			Help:      "Trailing bytes discarded because they do not form a complete record.",
		}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_cache_lookups_total",
			Help:      "Field cache lookups, by result.",
		}, []string{"result"}),
		archiveEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_entries_total",
			Help:      "Fields written to archives, by entry kind and type code.",
		}, []string{"kind", "code"}),
		hashCollisions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_hash_collisions_total",
			Help:      "Columns whose content hash matched a stored column with different bytes.",
		}),
		archiveBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_bytes_written_total",
			Help:      "Bytes written to archives.",
		}),
		columnsRestored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_columns_read_total",
			Help:      "Columns reconstructed from archives, by entry kind.",
		}, []string{"kind"}),
	}
}

// Registry returns the registry the counters are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}

// ColumnDecoded counts one decoded column on the given path.
func (m *Metrics) ColumnDecoded(path string) {
	if m == nil {
		return
	}
	m.columnsDecoded.WithLabelValues(path).Inc()
}

// FileBytesRead adds n bytes read from a file-backed source.
func (m *Metrics) FileBytesRead(n int) {
	if m == nil {
		return
	}
	m.bytesRead.Add(float64(n))
}

// Truncated adds n discarded trailing bytes.
func (m *Metrics) Truncated(n int64) {
	if m == nil {
		return
	}
	m.truncatedBytes.Add(float64(n))
}

// CacheLookup counts a field cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ArchiveEntry counts one archived field.
func (m *Metrics) ArchiveEntry(kind, code string) {
	if m == nil {
		return
	}
	m.archiveEntries.WithLabelValues(kind, code).Inc()
}

// HashCollision counts a content hash collision resolved by byte comparison.
func (m *Metrics) HashCollision() {
	if m == nil {
		return
	}
	m.hashCollisions.Inc()
}

// ArchiveWritten adds n bytes written to an archive.
func (m *Metrics) ArchiveWritten(n int64) {
	if m == nil {
		return
	}
	m.archiveBytes.Add(float64(n))
}

// ColumnRead counts one column reconstructed from an archive.
func (m *Metrics) ColumnRead(kind string) {
	if m == nil {
		return
	}
	m.columnsRestored.WithLabelValues(kind).Inc()
}

// WriteTextfile writes the current values in the Prometheus text format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	return nil
}
