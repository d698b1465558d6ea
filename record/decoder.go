package record

import (
	"fmt"
	"os"
	"unsafe"

	"go.uber.org/zap"

	"github.com/arloliu/structarray/column"
	"github.com/arloliu/structarray/endian"
	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
	"github.com/arloliu/structarray/internal/logger"
	"github.com/arloliu/structarray/internal/metrics"
	"github.com/arloliu/structarray/internal/options"
	"github.com/arloliu/structarray/layout"
)

var le = endian.GetLittleEndianEngine()

// FieldCache stores decoded columns by field name.
//
// Implementations are owned by a single decoder and need not be safe for
// concurrent use.
type FieldCache interface {
	// Load returns the cached column of the named field, if any.
	Load(name string) (column.Column, bool, error)
	// Store records the column of the named field.
	Store(name string, col column.Column) error
}

type decoderConfig struct {
	engine  endian.EndianEngine
	cache   FieldCache
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// DecoderOption configures a Decoder.
type DecoderOption = options.Option[*decoderConfig]

// WithByteOrder sets the byte order of the record source. Little-endian is the
// default.
func WithByteOrder(engine endian.EndianEngine) DecoderOption {
	return options.New(func(c *decoderConfig) error {
		if engine == nil {
			return fmt.Errorf("nil byte order engine")
		}
		c.engine = engine

		return nil
	})
}

// WithFieldCache attaches a cache consulted before decoding a field and filled
// after. It is most useful with file-backed sources, where each field costs a
// full scan of the file.
func WithFieldCache(cache FieldCache) DecoderOption {
	return options.NoError(func(c *decoderConfig) {
		c.cache = cache
	})
}

// WithLogger sets the logger. The decoder logs nothing by default.
func WithLogger(l *zap.Logger) DecoderOption {
	return options.NoError(func(c *decoderConfig) {
		c.logger = logger.OrNop(l)
	})
}

// WithMetrics reports decode counters to m.
func WithMetrics(m *metrics.Metrics) DecoderOption {
	return options.NoError(func(c *decoderConfig) {
		c.metrics = m
	})
}

// Decoder turns a record source into per-field columns.
//
// The source is a flat array of records of Layout().Stride() bytes. Columns are
// decoded on first access and memoized, so each field is decoded at most once
// per Decoder. With a FieldCache attached, a field decoded by an earlier Decoder
// of the same source is loaded instead of decoded.
//
// Pointer fields describe the record but hold no data: they have no column.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	layout    *layout.Layout
	src       Source
	cfg       decoderConfig
	records   int
	truncated int64
	memo      map[string]column.Column
}

// NewDecoder creates a decoder of src described by l.
//
// When the source size is not a multiple of the stride, the trailing partial
// record is discarded and reported with a warning; this is not an error.
//
// Parameters:
//   - l: Layout of one record; its stride splits src into records
//   - src: Record source, from NewMemorySource or OpenSource
//   - opts: Optional settings (byte order, field cache, logger, metrics)
//
// Returns:
//   - *Decoder: Decoder over the complete records of src
//   - error: Invalid option
//
// Example:
//
//	dec, err := record.NewDecoder(l, record.NewMemorySource(data),
//	    record.WithLogger(log),
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(dec.RecordCount(), dec.Truncated())
func NewDecoder(l *layout.Layout, src Source, opts ...DecoderOption) (*Decoder, error) {
	cfg := decoderConfig{
		engine: le,
		logger: logger.Nop(),
	}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	stride := int64(l.Stride())
	d := &Decoder{
		layout:    l,
		src:       src,
		cfg:       cfg,
		records:   int(src.Size() / stride),
		truncated: src.Size() % stride,
		memo:      make(map[string]column.Column),
	}

	if d.truncated != 0 {
		d.cfg.logger.Warn("incomplete trailing record discarded",
			zap.Stringer("source", src),
			zap.Int64("truncated_at", int64(d.records)*stride),
			zap.Int64("trailing_bytes", d.truncated),
			zap.Int("records", d.records),
		)
		d.cfg.metrics.Truncated(d.truncated)
	}

	return d, nil
}

// Layout returns the record layout.
func (d *Decoder) Layout() *layout.Layout {
	return d.layout
}

// Source returns the record source.
func (d *Decoder) Source() Source {
	return d.src
}

// RecordCount returns the number of complete records.
func (d *Decoder) RecordCount() int {
	return d.records
}

// Truncated returns the number of trailing bytes that do not form a complete
// record.
func (d *Decoder) Truncated() int64 {
	return d.truncated
}

// Column returns the decoded column of the named field.
//
// Parameters:
//   - name: Full field name as declared in the layout
//
// Returns:
//   - column.Column: One value per complete record, typed by the field's code
//   - error: errs.ErrUnknownField for a name the layout lacks, errs.ErrPointerField
//     for a pointer field, or an I/O or cache error for file sources
//
// Memory sources use grid reinterpretation when the field is eligible and scalar
// unpacking otherwise; file sources read the field of every record from disk.
// The returned column is shared with later calls and must not be modified.
func (d *Decoder) Column(name string) (column.Column, error) {
	if c, ok := d.memo[name]; ok {
		return c, nil
	}

	f, err := d.dataField(name)
	if err != nil {
		return column.Column{}, err
	}

	if d.cfg.cache != nil {
		c, ok, err := d.cfg.cache.Load(name)
		if err != nil {
			return column.Column{}, errs.Field(name, err)
		}
		// a cache built for another layout or another file size is ignored
		ok = ok && c.Code() == f.Code && c.Len() == d.records
		d.cfg.metrics.CacheLookup(ok)
		if ok {
			d.memo[name] = c
			return c, nil
		}
	}

	var c column.Column
	switch src := d.src.(type) {
	case *MemorySource:
		if d.canFast(f, src) {
			c = d.fast(f, src)
		} else {
			c = d.unpack(f, src)
		}
	case *FileSource:
		c, err = d.scanFile(f, src)
	default:
		err = fmt.Errorf("unsupported record source %T", d.src)
	}
	if err != nil {
		return column.Column{}, errs.Field(name, err)
	}

	if d.cfg.cache != nil {
		if err := d.cfg.cache.Store(name, c); err != nil {
			return column.Column{}, errs.Field(name, err)
		}
	}
	d.memo[name] = c

	return c, nil
}

// DecodeFast decodes the named field by grid reinterpretation, bypassing the
// memo. It fails with errs.ErrFastPathUnavailable when the field is not eligible.
func (d *Decoder) DecodeFast(name string) (column.Column, error) {
	f, err := d.dataField(name)
	if err != nil {
		return column.Column{}, err
	}

	src, ok := d.src.(*MemorySource)
	if !ok || !d.canFast(f, src) {
		return column.Column{}, errs.Field(name, errs.ErrFastPathUnavailable)
	}

	return d.fast(f, src), nil
}

// DecodeFallback decodes the named field by unpacking one scalar per record,
// bypassing the memo. It works for every field of a memory source.
func (d *Decoder) DecodeFallback(name string) (column.Column, error) {
	f, err := d.dataField(name)
	if err != nil {
		return column.Column{}, err
	}

	src, ok := d.src.(*MemorySource)
	if !ok {
		return column.Column{}, errs.Field(name, fmt.Errorf("scalar unpacking needs a memory source, have %s", d.src))
	}

	return d.unpack(f, src), nil
}

func (d *Decoder) dataField(name string) (layout.Field, error) {
	f, err := d.layout.Field(name)
	if err != nil {
		return layout.Field{}, err
	}

	if f.Code.IsPointer() {
		return layout.Field{}, errs.Field(name, errs.ErrPointerField)
	}

	return f, nil
}

// canFast reports whether the memory grid can be reinterpreted as elements of the
// field type: the source order must be the host order and little-endian, the
// stride and the offset must be multiples of the width, and the buffer must be
// aligned on the width.
func (d *Decoder) canFast(f layout.Field, src *MemorySource) bool {
	if !endian.IsNativeLittleEndian() || !endian.CompareNativeEndian(d.cfg.engine) {
		return false
	}

	w := f.Width()
	if d.layout.Stride()%w != 0 || f.Offset%w != 0 {
		return false
	}

	if d.records == 0 {
		return true
	}

	return uintptr(unsafe.Pointer(unsafe.SliceData(src.data)))%uintptr(w) == 0
}

func (d *Decoder) fast(f layout.Field, src *MemorySource) column.Column {
	w := f.Width()
	cols := d.layout.Stride() / w
	col := f.Offset / w

	var data []byte
	switch w {
	case 1:
		data = gridColumn[uint8](src.data, d.records, cols, col)
	case 2:
		data = gridColumn[uint16](src.data, d.records, cols, col)
	case 4:
		data = gridColumn[uint32](src.data, d.records, cols, col)
	default:
		data = gridColumn[uint64](src.data, d.records, cols, col)
	}

	d.cfg.metrics.ColumnDecoded(metrics.PathFast)

	return mustColumn(f.Code, data)
}

// gridColumn views data as a records x cols grid of T and copies grid column col.
func gridColumn[T uint8 | uint16 | uint32 | uint64](data []byte, records, cols, col int) []byte {
	if records == 0 {
		return []byte{}
	}

	grid := unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(data))), records*cols)

	out := make([]T, records)
	for i := range out {
		out[i] = grid[i*cols+col]
	}

	var zero T

	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(out))), records*int(unsafe.Sizeof(zero)))
}

func (d *Decoder) unpack(f layout.Field, src *MemorySource) column.Column {
	w := f.Width()
	stride := d.layout.Stride()

	out := make([]byte, d.records*w)
	for i := 0; i < d.records; i++ {
		pos := f.Offset + i*stride
		s, err := format.DecodeScalar(f.Code, src.data[pos:pos+w], d.cfg.engine)
		if err != nil {
			// fields are validated against the stride, so every record holds them
			panic(err)
		}
		s.Put(out[i*w:], le)
	}

	d.cfg.metrics.ColumnDecoded(metrics.PathFallback)

	return mustColumn(f.Code, out)
}

func (d *Decoder) scanFile(f layout.Field, src *FileSource) (column.Column, error) {
	file, err := os.Open(src.path)
	if err != nil {
		return column.Column{}, errs.IO("open record source", err)
	}
	defer file.Close()

	w := f.Width()
	stride := int64(d.layout.Stride())
	buf := make([]byte, w)
	out := make([]byte, d.records*w)

	for i := 0; i < d.records; i++ {
		pos := int64(f.Offset) + int64(i)*stride
		if _, err := file.ReadAt(buf, pos); err != nil {
			return column.Column{}, errs.IO(fmt.Sprintf("read record %d", i), err)
		}

		s, err := format.DecodeScalar(f.Code, buf, d.cfg.engine)
		if err != nil {
			return column.Column{}, err
		}
		s.Put(out[i*w:], le)
	}

	d.cfg.metrics.ColumnDecoded(metrics.PathFile)
	d.cfg.metrics.FileBytesRead(len(out))
	d.cfg.logger.Debug("field scanned from file",
		zap.String("field", f.Name),
		zap.Stringer("source", src),
		zap.Int("records", d.records),
	)

	return mustColumn(f.Code, out), nil
}

func mustColumn(code format.Code, data []byte) column.Column {
	c, err := column.FromBytes(code, data)
	if err != nil {
		panic(err)
	}

	return c
}
