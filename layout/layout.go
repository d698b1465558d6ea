// Package layout describes where each named field lives inside one fixed-size record.
//
// A Layout is an ordered list of fields, each with a dotted hierarchical name, a
// primitive type code and a byte offset, plus the record name and stride. Layouts
// are immutable once built and safe for concurrent reads.
//
// Layouts are stored as tab-separated text, see Load and Dump. The order of the
// fields is the declaration order of the record and is preserved end to end: both
// the relative offset encoding and the name compaction depend on it.
package layout

import (
	"fmt"
	"iter"

	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
)

// Field is one scalar slot of a record.
type Field struct {
	Name   string
	Code   format.Code
	Offset int
}

// Width returns the size of the field in bytes.
func (f Field) Width() int {
	return f.Code.Width()
}

// End returns the offset of the first byte after the field.
func (f Field) End() int {
	return f.Offset + f.Code.Width()
}

// IsAligned reports whether the field offset is a multiple of its width.
func (f Field) IsAligned() bool {
	w := f.Code.Width()
	return w > 0 && f.Offset%w == 0
}

// Layout is the ordered description of all fields of one record type.
type Layout struct {
	name   string
	stride int
	fields []Field
	index  map[string]int
}

// New builds a layout from fields given in declaration order.
//
// It fails with a *errs.LayoutError when the stride is not positive, a field does
// not fit inside the stride, offsets decrease, a code is invalid or a name is
// repeated. The reported row is the 1-based position of the offending field.
func New(name string, stride int, fields []Field) (*Layout, error) {
	if stride <= 0 {
		return nil, errs.NewLayoutError(0, []string{name, fmt.Sprint(stride)}, errs.ErrInvalidStride)
	}

	l := &Layout{
		name:   name,
		stride: stride,
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}

	for _, f := range fields {
		if err := l.push(f); err != nil {
			return nil, err
		}
	}

	return l, nil
}

func (l *Layout) push(f Field) error {
	row := len(l.fields) + 1
	cells := []string{f.Name, f.Code.String(), fmt.Sprint(f.Offset)}

	if !f.Code.IsValid() {
		return errs.NewLayoutError(row, cells, errs.ErrUnknownTypeCode)
	}

	if f.Offset < 0 || f.End() > l.stride {
		return errs.NewLayoutError(row, cells,
			fmt.Errorf("%w: ends at %d, stride is %d", errs.ErrFieldOutOfRecord, f.End(), l.stride))
	}

	if n := len(l.fields); n > 0 && f.Offset < l.fields[n-1].Offset {
		return errs.NewLayoutError(row, cells,
			fmt.Errorf("%w: offset %d is before previous offset %d", errs.ErrLayout, f.Offset, l.fields[n-1].Offset))
	}

	if _, ok := l.index[f.Name]; ok {
		return errs.NewLayoutError(row, cells, errs.ErrDuplicateField)
	}

	l.index[f.Name] = len(l.fields)
	l.fields = append(l.fields, f)

	return nil
}

// Name returns the record name.
func (l *Layout) Name() string {
	return l.name
}

// Stride returns the record size in bytes.
func (l *Layout) Stride() int {
	return l.stride
}

// Len returns the number of fields, pointer placeholders included.
func (l *Layout) Len() int {
	return len(l.fields)
}

// Field returns the field with the given name.
func (l *Layout) Field(name string) (Field, error) {
	i, ok := l.index[name]
	if !ok {
		return Field{}, errs.Field(name, errs.ErrFieldNotFound)
	}

	return l.fields[i], nil
}

// Fields yields the data fields in declaration order. Pointer placeholders are
// skipped.
func (l *Layout) Fields() iter.Seq[Field] {
	return func(yield func(Field) bool) {
		for _, f := range l.fields {
			if f.Code.IsPointer() {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

// Names returns the names of the data fields in declaration order.
func (l *Layout) Names() []string {
	names := make([]string, 0, len(l.fields))
	for f := range l.Fields() {
		names = append(names, f.Name)
	}

	return names
}

// AllFields returns a copy of every field, pointer placeholders included.
func (l *Layout) AllFields() []Field {
	out := make([]Field, len(l.fields))
	copy(out, l.fields)

	return out
}

// IsAligned reports whether the named field offset is a multiple of its width.
func (l *Layout) IsAligned(name string) (bool, error) {
	f, err := l.Field(name)
	if err != nil {
		return false, err
	}

	return f.IsAligned(), nil
}

// Misaligned returns every field, pointers included, whose offset is not a
// multiple of its width.
func (l *Layout) Misaligned() []Field {
	var out []Field
	for _, f := range l.fields {
		if !f.IsAligned() {
			out = append(out, f)
		}
	}

	return out
}

// Equal reports whether both layouts have the same name, stride and fields.
func (l *Layout) Equal(other *Layout) bool {
	if l == nil || other == nil {
		return l == other
	}

	if l.name != other.name || l.stride != other.stride || len(l.fields) != len(other.fields) {
		return false
	}

	for i := range l.fields {
		if l.fields[i] != other.fields[i] {
			return false
		}
	}

	return true
}
