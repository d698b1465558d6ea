// Package structarray decodes files of fixed-stride binary records and stores
// their fields as deduplicated columnar archives.
//
// A record file is a plain concatenation of fixed-size C-like structs. Its
// layout, a tab-separated text file, names every field together with its type
// code and byte offset. Decoding turns one field of every record into a typed
// column; packing stores every column of a file in an archive where constant
// fields become a single value and identical columns are kept once.
//
// # Basic Usage
//
// Decoding a field:
//
//	dec, _ := structarray.OpenDecoder("run.tsv", "run.reb")
//	speed, _ := dec.Column("motor.speed")
//	for i, v := range speed.All() {
//	    fmt.Println(i, v)
//	}
//
// Packing a record file and reading it back:
//
//	stats, _ := structarray.Pack(dec, "run.rez",
//	    archive.WithColumnCompression(format.CompressionLZ4),
//	)
//	fmt.Printf("%d unique columns for %d fields\n", stats.UniqueColumns, stats.Fields)
//
//	r, _ := structarray.OpenArchive("run.rez")
//	speed, _ = r.Column("motor.speed")
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the layout, record
// and archive packages. For fine-grained control, use those packages directly.
package structarray

import (
	"github.com/arloliu/structarray/archive"
	"github.com/arloliu/structarray/layout"
	"github.com/arloliu/structarray/record"
)

// OpenLayout loads the layout file at path.
//
// Both absolute and relative offsets are accepted, with full or compacted field
// names.
func OpenLayout(path string) (*layout.Layout, error) {
	return layout.LoadFile(path)
}

// NewDecoder creates a decoder of the record file at dataPath described by l.
//
// Files smaller than record.LargeFileThreshold are loaded in memory; larger ones
// are read from disk one field at a time.
//
// Parameters:
//   - l: The record layout
//   - dataPath: The record file
//   - opts: Optional configuration functions (see record.DecoderOption)
//
// Returns:
//   - *record.Decoder: The created decoder.
//   - error: An error if the file cannot be opened or an option is invalid.
//
// Available options:
//   - record.WithByteOrder(engine)
//   - record.WithFieldCache(cache)
//   - record.WithLogger(logger)
//   - record.WithMetrics(metrics)
func NewDecoder(l *layout.Layout, dataPath string, opts ...record.DecoderOption) (*record.Decoder, error) {
	src, err := record.OpenSource(dataPath, record.LargeFileThreshold)
	if err != nil {
		return nil, err
	}

	return record.NewDecoder(l, src, opts...)
}

// OpenDecoder loads the layout at layoutPath and creates a decoder of the record
// file at dataPath.
func OpenDecoder(layoutPath, dataPath string, opts ...record.DecoderOption) (*record.Decoder, error) {
	l, err := OpenLayout(layoutPath)
	if err != nil {
		return nil, err
	}

	return NewDecoder(l, dataPath, opts...)
}

// Pack decodes every data field of dec and saves them as an archive at
// archivePath.
//
// Parameters:
//   - dec: The decoder providing the columns
//   - archivePath: The archive file to create
//   - opts: Optional configuration functions (see archive.BuilderOption)
//
// Returns:
//   - archive.Stats: What the archive holds and how well it compressed.
//   - error: An error if a field cannot be decoded or the archive not written.
//
// Example:
//
//	stats, err := structarray.Pack(dec, "run.rez",
//	    archive.WithFieldMapCompression(format.CompressionZstd),
//	    archive.WithColumnCompression(format.CompressionS2),
//	)
func Pack(dec *record.Decoder, archivePath string, opts ...archive.BuilderOption) (archive.Stats, error) {
	b, err := archive.NewBuilder(dec.Layout(), opts...)
	if err != nil {
		return archive.Stats{}, err
	}

	if err := b.Build(dec, dec.RecordCount()); err != nil {
		return archive.Stats{}, err
	}

	if err := b.Save(archivePath); err != nil {
		return archive.Stats{}, err
	}

	return b.Stats(), nil
}

// OpenArchive opens the archive at path.
func OpenArchive(path string, opts ...archive.ReaderOption) (*archive.Reader, error) {
	return archive.Open(path, opts...)
}
