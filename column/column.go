// Package column holds decoded field columns.
//
// A Column is the sequence of one field's values across all records. Values are
// stored packed in little-endian order whatever the byte order of the record
// source, so two columns are equal exactly when their bytes are equal. This is
// what the archive codec relies on to hash and deduplicate columns.
package column

import (
	"bytes"
	"fmt"
	"iter"

	"github.com/arloliu/structarray/endian"
	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
	"github.com/arloliu/structarray/internal/hash"
)

var le = endian.GetLittleEndianEngine()

// Column is an immutable sequence of scalars of a single data code.
//
// Columns returned by the decoder and the archive reader share no memory with
// their source, except when documented otherwise.
type Column struct {
	code format.Code
	n    int
	data []byte
}

// FromBytes wraps packed little-endian data as a column. The slice is not copied.
func FromBytes(code format.Code, data []byte) (Column, error) {
	if !code.IsData() {
		return Column{}, fmt.Errorf("%w: %s is not a data code", errs.ErrTypeMismatch, code)
	}

	w := code.Width()
	if len(data)%w != 0 {
		return Column{}, fmt.Errorf("%w: %d bytes is not a multiple of %s width", errs.ErrCorruptArchive, len(data), code)
	}

	return Column{code: code, n: len(data) / w, data: data}, nil
}

// Repeat returns a column of n copies of s.
func Repeat(s format.Scalar, n int) Column {
	w := s.Code.Width()
	data := make([]byte, w*n)
	if n > 0 {
		s.Put(data[:w], le)
		// doubling copy
		for filled := w; filled < len(data); filled *= 2 {
			copy(data[filled:], data[:filled])
		}
	}

	return Column{code: s.Code, n: n, data: data}
}

// FromScalars builds a column from scalars of the given code.
func FromScalars(code format.Code, values []format.Scalar) (Column, error) {
	if !code.IsData() {
		return Column{}, fmt.Errorf("%w: %s is not a data code", errs.ErrTypeMismatch, code)
	}

	data := make([]byte, 0, len(values)*code.Width())
	for i, v := range values {
		if v.Code != code {
			return Column{}, fmt.Errorf("%w: value %d is %s, column is %s", errs.ErrTypeMismatch, i, v.Code, code)
		}
		data = v.Append(data, le)
	}

	return Column{code: code, n: len(values), data: data}, nil
}

// Of builds a column from Go values; the code is inferred from T.
func Of[T int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64](values ...T) Column {
	var zero T
	sample, _ := format.ScalarOf(zero)

	data := make([]byte, 0, len(values)*sample.Code.Width())
	for _, v := range values {
		s, _ := format.ScalarOf(v)
		data = s.Append(data, le)
	}

	return Column{code: sample.Code, n: len(values), data: data}
}

// Code returns the type code of the elements.
func (c Column) Code() format.Code {
	return c.code
}

// Len returns the number of elements.
func (c Column) Len() int {
	return c.n
}

// Bytes returns the packed little-endian elements. The caller must not modify it.
func (c Column) Bytes() []byte {
	return c.data
}

// At returns element i. It panics when i is out of range.
func (c Column) At(i int) format.Scalar {
	w := c.code.Width()
	s, err := format.DecodeScalar(c.code, c.data[i*w:(i+1)*w], le)
	if err != nil {
		panic(err)
	}

	return s
}

// All yields every element with its index.
func (c Column) All() iter.Seq2[int, format.Scalar] {
	return func(yield func(int, format.Scalar) bool) {
		for i := 0; i < c.n; i++ {
			if !yield(i, c.At(i)) {
				return
			}
		}
	}
}

// Scalars returns every element.
func (c Column) Scalars() []format.Scalar {
	out := make([]format.Scalar, c.n)
	for i := range out {
		out[i] = c.At(i)
	}

	return out
}

// Int64s returns the elements as signed integers.
func (c Column) Int64s() []int64 {
	out := make([]int64, c.n)
	for i := range out {
		out[i] = c.At(i).Int64()
	}

	return out
}

// Uint64s returns the elements as unsigned integers.
func (c Column) Uint64s() []uint64 {
	out := make([]uint64, c.n)
	for i := range out {
		out[i] = c.At(i).Uint64()
	}

	return out
}

// Float64s returns the elements as float64 values.
func (c Column) Float64s() []float64 {
	out := make([]float64, c.n)
	for i := range out {
		out[i] = c.At(i).Float64()
	}

	return out
}

// Slice returns elements [start, stop). Bounds must satisfy 0 <= start <= stop <= Len.
// The result shares memory with c.
func (c Column) Slice(start, stop int) Column {
	w := c.code.Width()
	return Column{code: c.code, n: stop - start, data: c.data[start*w : stop*w]}
}

// IsUniform reports whether every element is bit-identical to the first one.
// An empty column is not uniform.
func (c Column) IsUniform() bool {
	if c.n == 0 {
		return false
	}

	w := c.code.Width()
	first := c.data[:w]
	if !bytes.Equal(first, c.data[len(c.data)-w:]) {
		return false
	}

	for i := w; i < len(c.data); i += w {
		if !bytes.Equal(first, c.data[i:i+w]) {
			return false
		}
	}

	return true
}

// Equal reports whether both columns have the same code and the same bytes.
func (c Column) Equal(other Column) bool {
	return c.code == other.code && c.n == other.n && bytes.Equal(c.data, other.data)
}

// Hash returns the content hash of the packed elements.
func (c Column) Hash() uint64 {
	return hash.Bytes(c.data)
}

// Clone returns a copy of c that shares no memory with it.
func (c Column) Clone() Column {
	return Column{code: c.code, n: c.n, data: bytes.Clone(c.data)}
}

func (c Column) String() string {
	return fmt.Sprintf("%s[%d]", c.code, c.n)
}
