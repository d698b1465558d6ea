package archive

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/arloliu/structarray/column"
	"github.com/arloliu/structarray/compress"
	"github.com/arloliu/structarray/endian"
	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
	"github.com/arloliu/structarray/internal/hash"
	"github.com/arloliu/structarray/internal/metrics"
	"github.com/arloliu/structarray/internal/options"
	"github.com/arloliu/structarray/section"
)

var le = endian.GetLittleEndianEngine()

// maxRecords keeps the byte size of the widest column within an int.
const maxRecords = math.MaxInt / 8

// Reader reconstructs columns from an archive.
//
// Constant fields are rebuilt from the value stored in the field map without
// touching the tables. Other fields decompress one row of their type's table.
//
// Opening an archive loads its header, table directory and field map only.
// Each Column call opens the archive again and reads a single table row, so a
// Reader holds no file handle and is safe for concurrent use.
type Reader struct {
	path   string
	data   []byte
	size   int64
	header section.Header
	tables map[format.Code]section.TableEntry
	// tableBytes is the compressed size of the rows of each table.
	tableBytes map[format.Code]uint64
	mapText    int
	entries    []Entry
	index      map[string]int
	codec      compress.Codec
	cfg        readerConfig
}

// Open opens the archive stored at path.
//
// Parameters:
//   - path: Archive file written by Builder.Save or Builder.WriteTo
//   - opts: Optional settings (metrics)
//
// Returns:
//   - *Reader: Reader holding the header, table directory and field map
//   - error: errs.ErrIO when the file cannot be read, errs.ErrInvalidMagic or
//     errs.ErrInvalidHeaderSize for a file that is not an archive, or
//     errs.ErrCorruptArchive when a section is inconsistent
//
// Example:
//
//	r, err := archive.Open("run.rez")
//	if err != nil {
//	    return err
//	}
//	speed, err := r.Column("ctrl.state.speed")
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO("open archive", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errs.IO("stat archive", err)
	}

	r := &Reader{path: path, size: info.Size()}
	if err := r.load(f, opts); err != nil {
		return nil, err
	}

	return r, nil
}

// OpenBytes opens an archive held in memory. data must not be modified while
// the Reader is in use.
func OpenBytes(data []byte, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{data: data, size: int64(len(data))}
	if err := r.load(bytes.NewReader(data), opts); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Reader) load(ra io.ReaderAt, opts []ReaderOption) error {
	if err := options.Apply(&r.cfg, opts...); err != nil {
		return err
	}

	if r.size < section.HeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	head, err := r.readAt(ra, 0, section.HeaderSize)
	if err != nil {
		return err
	}
	if err := r.header.Parse(head); err != nil {
		return err
	}
	if r.header.RecordCount > maxRecords {
		return fmt.Errorf("%w: %d records", errs.ErrCorruptArchive, r.header.RecordCount)
	}

	if r.codec, err = compress.GetCodec(r.header.ColumnCompression); err != nil {
		return err
	}

	if err := r.loadDirectory(ra); err != nil {
		return err
	}

	return r.loadFieldMap(ra)
}

func (r *Reader) loadDirectory(ra io.ReaderAt) error {
	raw, err := r.readAt(ra, section.DirectoryOffset, uint64(r.header.DirectoryLength())) //nolint: gosec
	if err != nil {
		return err
	}

	directory, err := section.ParseDirectory(raw, int(r.header.TableCount))
	if err != nil {
		return err
	}

	r.tables = make(map[format.Code]section.TableEntry, len(directory))
	r.tableBytes = make(map[format.Code]uint64, len(directory))
	for _, t := range directory {
		if _, dup := r.tables[t.Code]; dup {
			return fmt.Errorf("%w: two %s tables", errs.ErrCorruptArchive, t.Code)
		}

		end, err := r.readAt(ra, t.RowOffsetPos(int(t.Rows)), section.RowOffsetSize)
		if err != nil {
			return err
		}
		size := le.Uint64(end)
		if t.PayloadStart()+size > uint64(r.size) { //nolint: gosec
			return fmt.Errorf("%w: %s table overruns the archive", errs.ErrCorruptArchive, t.Code)
		}

		r.tables[t.Code] = t
		r.tableBytes[t.Code] = size
	}

	return nil
}

func (r *Reader) loadFieldMap(ra io.ReaderAt) error {
	packed, err := r.readAt(ra, r.header.MapOffset, r.header.MapLength)
	if err != nil {
		return err
	}

	if hash.Bytes(packed) != r.header.MapChecksum {
		return fmt.Errorf("%w: field map checksum mismatch", errs.ErrCorruptArchive)
	}

	mapCodec, err := compress.GetCodec(r.header.MapCompression)
	if err != nil {
		return err
	}

	text, err := mapCodec.Decompress(packed)
	if err != nil {
		return fmt.Errorf("%w: field map: %w", errs.ErrCorruptArchive, err)
	}
	r.mapText = len(text)

	records, entries, err := parseFieldMap(text)
	if err != nil {
		return err
	}

	if uint64(records) != r.header.RecordCount { //nolint: gosec
		return fmt.Errorf("%w: field map has %d records, header %d", errs.ErrCorruptArchive, records, r.header.RecordCount)
	}
	if len(entries) != int(r.header.FieldCount) {
		return fmt.Errorf("%w: field map has %d fields, header %d", errs.ErrCorruptArchive, len(entries), r.header.FieldCount)
	}

	r.entries = entries
	r.index = make(map[string]int, len(entries))
	for i, e := range entries {
		if _, dup := r.index[e.Name]; dup {
			return fmt.Errorf("%w: %q: %w", errs.ErrCorruptArchive, e.Name, errs.ErrDuplicateField)
		}
		if !e.Constant {
			t, ok := r.tables[e.Code]
			if !ok || e.Row >= int(t.Rows) {
				return fmt.Errorf("%w: %q references missing %s row %d", errs.ErrCorruptArchive, e.Name, e.Code, e.Row)
			}
		}
		r.index[e.Name] = i
	}

	return nil
}

// readAt reads n bytes at off, failing when they are not all inside the archive.
func (r *Reader) readAt(ra io.ReaderAt, off, n uint64) ([]byte, error) {
	if off > uint64(r.size) || n > uint64(r.size)-off { //nolint: gosec
		return nil, fmt.Errorf("%w: section [%d, %d) beyond %d bytes", errs.ErrCorruptArchive, off, off+n, r.size)
	}

	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := ra.ReadAt(buf, int64(off)); err != nil { //nolint: gosec
		return nil, errs.IO("read archive", err)
	}

	return buf, nil
}

// RecordCount returns the number of records of every column.
func (r *Reader) RecordCount() int {
	return int(r.header.RecordCount) //nolint: gosec
}

// Names returns the field names in declaration order.
func (r *Reader) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}

	return names
}

// Entry returns how the named field is stored.
func (r *Reader) Entry(name string) (Entry, error) {
	i, ok := r.index[name]
	if !ok {
		return Entry{}, errs.Field(name, errs.ErrUnknownField)
	}

	return r.entries[i], nil
}

// Header returns the archive header.
func (r *Reader) Header() section.Header {
	return r.header
}

// Column reconstructs the column of the named field.
//
// Parameters:
//   - name: Full field name as declared in the archived layout
//
// Returns:
//   - column.Column: One value per record, equal to the column the Builder stored
//   - error: errs.ErrUnknownField for a name the archive lacks, or
//     errs.ErrCorruptArchive when the stored row is damaged
func (r *Reader) Column(name string) (column.Column, error) {
	e, err := r.Entry(name)
	if err != nil {
		return column.Column{}, err
	}

	if e.Constant {
		r.cfg.metrics.ColumnRead(metrics.EntryConstant)
		return column.Repeat(e.Value, r.RecordCount()), nil
	}

	c, err := r.readRow(e)
	if err != nil {
		return column.Column{}, errs.Field(name, err)
	}
	r.cfg.metrics.ColumnRead(metrics.EntryReference)

	return c, nil
}

func (r *Reader) readRow(e Entry) (column.Column, error) {
	var ra io.ReaderAt
	if r.data != nil {
		ra = bytes.NewReader(r.data)
	} else {
		f, err := os.Open(r.path)
		if err != nil {
			return column.Column{}, errs.IO("open archive", err)
		}
		defer f.Close()
		ra = f
	}

	t := r.tables[e.Code]
	bounds, err := r.readAt(ra, t.RowOffsetPos(e.Row), 2*section.RowOffsetSize)
	if err != nil {
		return column.Column{}, err
	}

	start, end := le.Uint64(bounds[0:8]), le.Uint64(bounds[8:16])
	if end < start || end > r.tableBytes[e.Code] {
		return column.Column{}, fmt.Errorf("%w: %s row %d spans [%d, %d)", errs.ErrCorruptArchive, e.Code, e.Row, start, end)
	}

	want := r.RecordCount() * e.Code.Width()
	if r.header.ColumnCompression == format.CompressionNone && end-start != uint64(want) { //nolint: gosec
		return column.Column{}, fmt.Errorf("%w: %s row %d holds %d bytes, want %d", errs.ErrCorruptArchive, e.Code, e.Row, end-start, want)
	}

	packed, err := r.readAt(ra, t.PayloadStart()+start, end-start)
	if err != nil {
		return column.Column{}, err
	}

	data, err := compress.DecompressSize(r.codec, packed, want)
	if err != nil {
		return column.Column{}, fmt.Errorf("%w: %s row %d: %w", errs.ErrCorruptArchive, e.Code, e.Row, err)
	}
	if len(data) != want {
		return column.Column{}, fmt.Errorf("%w: %s row %d holds %d bytes, want %d", errs.ErrCorruptArchive, e.Code, e.Row, len(data), want)
	}

	return column.FromBytes(e.Code, data)
}

// Stats summarizes the archive content.
func (r *Reader) Stats() Stats {
	s := Stats{
		RecordCount:       r.RecordCount(),
		Fields:            len(r.entries),
		Tables:            len(r.tables),
		MapCompression:    r.header.MapCompression,
		ColumnCompression: r.header.ColumnCompression,
		FieldMap: compress.Stats{
			Algorithm:      r.header.MapCompression,
			Sections:       1,
			OriginalSize:   int64(r.mapText),
			CompressedSize: int64(r.header.MapLength), //nolint: gosec
		},
		Columns: compress.Stats{Algorithm: r.header.ColumnCompression},
		Size:    r.size,
	}

	for _, e := range r.entries {
		if e.Constant {
			s.Constants++
		} else {
			s.References++
		}
	}

	for code, t := range r.tables {
		s.UniqueColumns += int(t.Rows)
		s.Columns.Sections += int(t.Rows)
		s.Columns.OriginalSize += int64(t.Rows) * int64(r.RecordCount()*code.Width())
		s.Columns.CompressedSize += int64(r.tableBytes[code]) //nolint: gosec
	}
	s.Duplicates = s.References - s.UniqueColumns

	return s
}
