package archive

import (
	"github.com/arloliu/structarray/compress"
	"github.com/arloliu/structarray/format"
)

// Stats summarizes the content of an archive.
type Stats struct {
	RecordCount int `json:"record_count"`
	Fields      int `json:"fields"`
	Constants   int `json:"constants"`
	// References counts fields stored as a table row, Duplicates those among
	// them sharing their row with an earlier field.
	References    int `json:"references"`
	Duplicates    int `json:"duplicates"`
	UniqueColumns int `json:"unique_columns"`
	Tables        int `json:"tables"`
	// Collisions counts distinct columns that shared a content hash. Archives
	// do not record it, so it is zero for opened archives.
	Collisions int `json:"collisions"`

	MapCompression    format.CompressionType `json:"-"`
	ColumnCompression format.CompressionType `json:"-"`
	FieldMap          compress.Stats         `json:"-"`
	Columns           compress.Stats         `json:"-"`
	Size              int64                  `json:"size"`
}

// Summary is a flat, serializable view of Stats.
type Summary struct {
	Stats

	MapCodec          string  `json:"map_codec"`
	ColumnCodec       string  `json:"column_codec"`
	FieldMapBytes     int64   `json:"field_map_bytes"`
	ColumnBytes       int64   `json:"column_bytes"`
	StoredColumnBytes int64   `json:"stored_column_bytes"`
	ColumnRatio       float64 `json:"column_ratio"`
}

// Summary flattens s for reports.
func (s Stats) Summary() Summary {
	return Summary{
		Stats:             s,
		MapCodec:          s.MapCompression.String(),
		ColumnCodec:       s.ColumnCompression.String(),
		FieldMapBytes:     s.FieldMap.CompressedSize,
		ColumnBytes:       s.Columns.OriginalSize,
		StoredColumnBytes: s.Columns.CompressedSize,
		ColumnRatio:       s.Columns.Ratio(),
	}
}
