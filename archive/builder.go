package archive

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/arloliu/structarray/column"
	"github.com/arloliu/structarray/compress"
	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
	"github.com/arloliu/structarray/internal/collision"
	"github.com/arloliu/structarray/internal/hash"
	"github.com/arloliu/structarray/internal/metrics"
	"github.com/arloliu/structarray/internal/options"
	"github.com/arloliu/structarray/internal/pool"
	"github.com/arloliu/structarray/layout"
	"github.com/arloliu/structarray/section"
)

// ColumnSource provides the decoded column of a field. *record.Decoder
// implements it.
type ColumnSource interface {
	Column(name string) (column.Column, error)
}

// State is the lifecycle stage of a Builder.
type State uint8

const (
	// Uninitialized builders have not been given columns yet.
	Uninitialized State = iota
	// Building builders hold deduplicated tables ready to be written.
	Building
	// Sealed builders have written their archive and accept nothing more.
	Sealed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Building:
		return "building"
	case Sealed:
		return "sealed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Builder deduplicates the columns of a layout and writes them as an archive.
//
// Fields whose column holds a single repeated value are stored as constants.
// Every other column is looked up by content among the columns of the same type
// already stored: an identical column is referenced, a new one is appended to
// the type's table.
//
// A Builder moves through the states Uninitialized, Building and Sealed: Build
// fills it, WriteTo or Save writes the archive once and seals it. Pointer fields
// are skipped and do not appear in the archive.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	layout  *layout.Layout
	cfg     builderConfig
	state   State
	records int
	entries []Entry
	tables  map[format.Code]*collision.Table[struct{}]
	stats   Stats
}

// NewBuilder creates a builder for l.
//
// Parameters:
//   - l: Layout whose data fields are archived
//   - opts: Optional settings (field map and column codecs, hash, logger, metrics)
//
// Returns:
//   - *Builder: Uninitialized builder
//   - error: Invalid option, such as an unknown compression type
//
// Example:
//
//	b, err := archive.NewBuilder(l, archive.WithColumnCompression(format.CompressionZstd))
//	if err != nil {
//	    return err
//	}
//	if err := b.Build(dec, dec.RecordCount()); err != nil {
//	    return err
//	}
//	err = b.Save("run.rez")
func NewBuilder(l *layout.Layout, opts ...BuilderOption) (*Builder, error) {
	cfg := defaultBuilderConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	return &Builder{
		layout: l,
		cfg:    cfg,
		tables: make(map[format.Code]*collision.Table[struct{}]),
	}, nil
}

// State returns the lifecycle stage.
func (b *Builder) State() State {
	return b.state
}

// Stats returns the statistics of the last build, completed with compression
// sizes once the archive is written.
func (b *Builder) Stats() Stats {
	return b.stats
}

// Entries returns the field entries in declaration order.
func (b *Builder) Entries() []Entry {
	return append([]Entry(nil), b.entries...)
}

// Build decodes every data field of the layout from src and deduplicates the
// columns, type code by type code. Every column must hold recordCount elements.
//
// Building again before the archive is written discards the previous build. A
// failed build leaves the builder Uninitialized.
//
// Parameters:
//   - src: Column source, usually a *record.Decoder over the layout
//   - recordCount: Number of elements of every column
//
// Returns:
//   - error: errs.ErrArchiveSealed after WriteTo, errs.ErrRecordCountMismatch for a
//     column of another length, errs.ErrTypeMismatch for a column of another type,
//     or the error of src
func (b *Builder) Build(src ColumnSource, recordCount int) error {
	if b.state == Sealed {
		return errs.ErrArchiveSealed
	}
	if recordCount < 0 {
		return fmt.Errorf("%w: negative record count %d", errs.ErrRecordCountMismatch, recordCount)
	}

	b.reset()
	b.records = recordCount

	byName := make(map[string]Entry, b.layout.Len())
	for _, f := range b.layout.AllFields() {
		if !f.Code.IsData() && !f.Code.IsPointer() {
			return errs.Field(f.Name, fmt.Errorf("%w: code %s", errs.ErrTypeMismatch, f.Code))
		}
	}

	for _, code := range format.DataCodes() {
		for f := range b.layout.Fields() {
			if f.Code != code {
				continue
			}

			e, err := b.add(src, f)
			if err != nil {
				b.reset()
				return err
			}
			byName[f.Name] = e
		}
	}

	for f := range b.layout.Fields() {
		b.entries = append(b.entries, byName[f.Name])
	}

	b.stats.RecordCount = recordCount
	b.stats.Fields = len(b.entries)
	for _, code := range format.DataCodes() {
		if t, ok := b.tables[code]; ok {
			b.stats.Tables++
			b.stats.UniqueColumns += t.Len()
			b.stats.Collisions += t.Collisions()
		}
	}
	b.state = Building

	b.cfg.logger.Debug("archive built",
		zap.String("layout", b.layout.Name()),
		zap.Int("records", recordCount),
		zap.Int("fields", b.stats.Fields),
		zap.Int("constants", b.stats.Constants),
		zap.Int("unique_columns", b.stats.UniqueColumns),
		zap.Int("collisions", b.stats.Collisions),
	)

	return nil
}

func (b *Builder) add(src ColumnSource, f layout.Field) (Entry, error) {
	col, err := src.Column(f.Name)
	if err != nil {
		return Entry{}, err
	}

	if col.Code() != f.Code {
		return Entry{}, errs.Field(f.Name, fmt.Errorf("%w: decoded %s, declared %s", errs.ErrTypeMismatch, col.Code(), f.Code))
	}
	if col.Len() != b.records {
		return Entry{}, errs.Field(f.Name, fmt.Errorf("%w: %d elements, want %d", errs.ErrRecordCountMismatch, col.Len(), b.records))
	}

	e := Entry{Name: f.Name, Code: f.Code}

	if col.IsUniform() {
		e.Constant = true
		e.Value = col.At(0)
		b.stats.Constants++
		b.cfg.metrics.ArchiveEntry(metrics.EntryConstant, f.Code.String())

		return e, nil
	}

	t, ok := b.tables[f.Code]
	if !ok {
		t = collision.NewTable[struct{}](b.cfg.hash)
		b.tables[f.Code] = t
	}

	collisions := t.Collisions()
	slot, added := t.Intern(col.Bytes(), struct{}{})
	if t.Collisions() > collisions {
		b.cfg.metrics.HashCollision()
		b.cfg.logger.Debug("column hash collision resolved",
			zap.String("field", f.Name),
			zap.Stringer("code", f.Code),
			zap.Int("row", slot),
		)
	}

	e.Row = slot
	b.stats.References++
	if added {
		b.cfg.metrics.ArchiveEntry(metrics.EntryUnique, f.Code.String())
	} else {
		b.stats.Duplicates++
		b.cfg.metrics.ArchiveEntry(metrics.EntryDuplicate, f.Code.String())
	}

	return e, nil
}

func (b *Builder) reset() {
	b.entries = b.entries[:0]
	for code := range b.tables {
		delete(b.tables, code)
	}
	b.stats = Stats{
		MapCompression:    b.cfg.mapCompression,
		ColumnCompression: b.cfg.columnCompression,
	}
	b.records = 0
	b.state = Uninitialized
}

// WriteTo writes the archive to w and seals the builder.
//
// The rows of each table and the field map are compressed with the configured
// codecs; Stats then carries the compressed sizes.
//
// Returns:
//   - int64: Number of bytes written
//   - error: errs.ErrArchiveNotBuilt before Build, errs.ErrArchiveSealed after a
//     previous write, or a compression or I/O error
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	switch b.state {
	case Uninitialized:
		return 0, errs.ErrArchiveNotBuilt
	case Sealed:
		return 0, errs.ErrArchiveSealed
	}

	mapCodec, err := compress.GetCodec(b.cfg.mapCompression)
	if err != nil {
		return 0, err
	}
	colCodec, err := compress.GetCodec(b.cfg.columnCompression)
	if err != nil {
		return 0, err
	}

	h := section.NewHeader(b.cfg.mapCompression, b.cfg.columnCompression)
	h.FieldCount = uint32(len(b.entries)) //nolint: gosec
	h.RecordCount = uint64(b.records)     //nolint: gosec

	// compress every row first: the directory needs the table sizes
	var (
		directory []section.TableEntry
		rows      [][][]byte
	)
	offset := uint64(section.HeaderSize)
	for _, code := range format.DataCodes() {
		t, ok := b.tables[code]
		if ok {
			directory = append(directory, section.TableEntry{Code: code, Rows: uint32(t.Len())}) //nolint: gosec
		}
	}
	h.TableCount = uint32(len(directory)) //nolint: gosec
	offset += uint64(h.DirectoryLength())

	b.stats.Columns = compress.Stats{Algorithm: b.cfg.columnCompression}
	for i := range directory {
		entry := &directory[i]
		t := b.tables[entry.Code]

		packed := make([][]byte, t.Len())
		size := uint64(0)
		for slot := range packed {
			key := t.Key(slot)
			packed[slot], err = colCodec.Compress(key)
			if err != nil {
				return 0, fmt.Errorf("compress %s row %d: %w", entry.Code, slot, err)
			}
			size += uint64(len(packed[slot]))
			b.stats.Columns.Add(len(key), len(packed[slot]))
		}

		entry.Offset = offset
		offset += entry.OffsetsLength() + size
		rows = append(rows, packed)
	}

	text := pool.GetSectionBuffer()
	defer pool.PutSectionBuffer(text)
	if err := writeFieldMap(text, b.records, b.entries); err != nil {
		return 0, err
	}

	fieldMap, err := mapCodec.Compress(text.Bytes())
	if err != nil {
		return 0, fmt.Errorf("compress field map: %w", err)
	}
	b.stats.FieldMap = compress.Stats{Algorithm: b.cfg.mapCompression}
	b.stats.FieldMap.Add(text.Len(), len(fieldMap))

	h.MapOffset = offset
	h.MapLength = uint64(len(fieldMap))
	h.MapChecksum = hash.Bytes(fieldMap)

	n, err := b.write(w, h, directory, rows, fieldMap)
	b.cfg.metrics.ArchiveWritten(n)
	if err != nil {
		return n, errs.IO("write archive", err)
	}

	b.state = Sealed
	b.stats.Size = n
	b.cfg.logger.Info("archive written",
		zap.String("layout", b.layout.Name()),
		zap.Int64("bytes", n),
		zap.Int("fields", b.stats.Fields),
		zap.Int("unique_columns", b.stats.UniqueColumns),
		zap.Float64("column_ratio", b.stats.Columns.Ratio()),
	)

	return n, nil
}

func (b *Builder) write(w io.Writer, h *section.Header, directory []section.TableEntry, rows [][][]byte, fieldMap []byte) (int64, error) {
	buf := pool.GetSectionBuffer()
	defer pool.PutSectionBuffer(buf)

	var written int64
	flush := func() error {
		n, err := buf.WriteTo(w)
		written += n
		buf.Reset()

		return err
	}

	_, _ = buf.Write(h.Bytes())
	for i := range directory {
		_, _ = buf.Write(directory[i].Bytes())
	}

	var word [section.RowOffsetSize]byte
	putOffset := func(pos uint64) {
		le.PutUint64(word[:], pos)
		_, _ = buf.Write(word[:])
	}

	for _, packed := range rows {
		pos := uint64(0)
		putOffset(pos)
		for _, row := range packed {
			pos += uint64(len(row))
			putOffset(pos)
		}
		if err := flush(); err != nil {
			return written, err
		}

		for _, row := range packed {
			n, err := w.Write(row)
			written += int64(n)
			if err != nil {
				return written, err
			}
		}
	}

	_, _ = buf.Write(fieldMap)
	if err := flush(); err != nil {
		return written, err
	}

	return written, nil
}

// Save writes the archive to the file at path and seals the builder.
func (b *Builder) Save(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errs.IO("create archive", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errs.IO("close archive", cerr)
		}
	}()

	bw := bufio.NewWriterSize(f, pool.SectionBufferDefaultSize)
	if _, err := b.WriteTo(bw); err != nil {
		return err
	}

	if err := bw.Flush(); err != nil {
		return errs.IO("flush archive", err)
	}

	return nil
}

// Compress builds the archive of l from src and writes it to w.
func Compress(l *layout.Layout, src ColumnSource, recordCount int, w io.Writer, opts ...BuilderOption) (Stats, error) {
	b, err := NewBuilder(l, opts...)
	if err != nil {
		return Stats{}, err
	}

	if err := b.Build(src, recordCount); err != nil {
		return Stats{}, err
	}

	if _, err := b.WriteTo(w); err != nil {
		return Stats{}, err
	}

	return b.Stats(), nil
}
