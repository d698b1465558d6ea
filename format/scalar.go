package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arloliu/structarray/endian"
	"github.com/arloliu/structarray/errs"
)

// Scalar is one decoded element: its type code and its raw bit pattern,
// zero-extended to 64 bits.
//
// Keeping the raw bits rather than a converted value makes equality bit exact,
// including for NaN payloads and negative zero.
type Scalar struct {
	Code Code
	Bits uint64
}

// DecodeScalar reads one element of the given code from b using engine.
//
// b must hold at least c.Width() bytes.
func DecodeScalar(c Code, b []byte, engine endian.EndianEngine) (Scalar, error) {
	if !c.IsData() {
		return Scalar{}, errs.ErrTypeMismatch
	}

	width := c.Width()
	if len(b) < width {
		return Scalar{}, fmt.Errorf("%w: need %d bytes, have %d", errs.ErrTruncatedSource, width, len(b))
	}

	return Scalar{Code: c, Bits: readBits(width, b, engine)}, nil
}

func readBits(width int, b []byte, engine endian.EndianEngine) uint64 {
	switch width {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(engine.Uint16(b))
	case 4:
		return uint64(engine.Uint32(b))
	default:
		return engine.Uint64(b)
	}
}

// Put writes the scalar into b using engine. b must hold Code.Width() bytes.
func (s Scalar) Put(b []byte, engine endian.EndianEngine) {
	switch s.Code.Width() {
	case 1:
		b[0] = byte(s.Bits)
	case 2:
		engine.PutUint16(b, uint16(s.Bits)) //nolint: gosec
	case 4:
		engine.PutUint32(b, uint32(s.Bits)) //nolint: gosec
	case 8:
		engine.PutUint64(b, s.Bits)
	}
}

// Append appends the encoded scalar to dst.
func (s Scalar) Append(dst []byte, engine endian.EndianEngine) []byte {
	switch s.Code.Width() {
	case 1:
		return append(dst, byte(s.Bits))
	case 2:
		return engine.AppendUint16(dst, uint16(s.Bits)) //nolint: gosec
	case 4:
		return engine.AppendUint32(dst, uint32(s.Bits)) //nolint: gosec
	case 8:
		return engine.AppendUint64(dst, s.Bits)
	}

	return dst
}

// Int64 returns the value as a signed integer, sign-extending Z codes.
// Float codes are truncated toward zero.
func (s Scalar) Int64() int64 {
	switch {
	case s.Code.IsFloat():
		return int64(s.Float64())
	case s.Code.IsSigned():
		shift := 64 - 8*s.Code.Width()
		return int64(s.Bits<<shift) >> shift //nolint: gosec
	default:
		return int64(s.Bits) //nolint: gosec
	}
}

// Uint64 returns the value as an unsigned integer.
func (s Scalar) Uint64() uint64 {
	switch {
	case s.Code.IsFloat():
		return uint64(s.Float64())
	case s.Code.IsSigned():
		return uint64(s.Int64()) //nolint: gosec
	default:
		return s.Bits
	}
}

// Float64 returns the value as a float64. R4 values are widened exactly.
func (s Scalar) Float64() float64 {
	switch s.Code {
	case R4:
		return float64(math.Float32frombits(uint32(s.Bits))) //nolint: gosec
	case R8:
		return math.Float64frombits(s.Bits)
	}

	if s.Code.IsSigned() {
		return float64(s.Int64())
	}

	return float64(s.Bits)
}

// IsNaN reports whether the scalar is a float NaN.
func (s Scalar) IsNaN() bool {
	return s.Code.IsFloat() && math.IsNaN(s.Float64())
}

// Value returns the scalar as the natural Go type of its code
// (int8, uint16, float32, ...).
func (s Scalar) Value() any {
	switch s.Code {
	case N1:
		return uint8(s.Bits) //nolint: gosec
	case N2:
		return uint16(s.Bits) //nolint: gosec
	case N4:
		return uint32(s.Bits) //nolint: gosec
	case N8:
		return s.Bits
	case Z1:
		return int8(s.Int64()) //nolint: gosec
	case Z2:
		return int16(s.Int64()) //nolint: gosec
	case Z4:
		return int32(s.Int64()) //nolint: gosec
	case Z8:
		return s.Int64()
	case R4:
		return math.Float32frombits(uint32(s.Bits)) //nolint: gosec
	case R8:
		return math.Float64frombits(s.Bits)
	default:
		return nil
	}
}

// String formats the value in a form ParseScalar reads back bit for bit.
//
// NaN values keep their payload as "nan:0x<bits>".
func (s Scalar) String() string {
	switch {
	case s.Code.IsSigned():
		return strconv.FormatInt(s.Int64(), 10)
	case s.Code.IsUnsigned():
		return strconv.FormatUint(s.Bits, 10)
	case s.Code == R4:
		f := math.Float32frombits(uint32(s.Bits)) //nolint: gosec
		if math.IsNaN(float64(f)) {
			return "nan:0x" + strconv.FormatUint(s.Bits, 16)
		}

		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	case s.Code == R8:
		f := math.Float64frombits(s.Bits)
		if math.IsNaN(f) {
			return "nan:0x" + strconv.FormatUint(s.Bits, 16)
		}

		return strconv.FormatFloat(f, 'g', -1, 64)
	default:
		return "?"
	}
}

// ParseScalar parses text produced by Scalar.String for the given code.
func ParseScalar(c Code, text string) (Scalar, error) {
	if !c.IsData() {
		return Scalar{}, errs.ErrTypeMismatch
	}

	bitSize := 8 * c.Width()

	switch {
	case c.IsSigned():
		v, err := strconv.ParseInt(text, 10, bitSize)
		if err != nil {
			return Scalar{}, fmt.Errorf("parse %s scalar: %w", c, err)
		}
		mask := uint64(math.MaxUint64) >> (64 - bitSize)

		return Scalar{Code: c, Bits: uint64(v) & mask}, nil //nolint: gosec
	case c.IsUnsigned():
		v, err := strconv.ParseUint(text, 10, bitSize)
		if err != nil {
			return Scalar{}, fmt.Errorf("parse %s scalar: %w", c, err)
		}

		return Scalar{Code: c, Bits: v}, nil
	}

	if hex, ok := strings.CutPrefix(text, "nan:0x"); ok {
		bits, err := strconv.ParseUint(hex, 16, bitSize)
		if err != nil {
			return Scalar{}, fmt.Errorf("parse %s nan payload: %w", c, err)
		}

		return Scalar{Code: c, Bits: bits}, nil
	}

	v, err := strconv.ParseFloat(text, bitSize)
	if err != nil {
		return Scalar{}, fmt.Errorf("parse %s scalar: %w", c, err)
	}
	if c == R4 {
		return Scalar{Code: c, Bits: uint64(math.Float32bits(float32(v)))}, nil
	}

	return Scalar{Code: c, Bits: math.Float64bits(v)}, nil
}

// ScalarOf builds a scalar from a Go value, inferring the code from the value's
// type: int8 is Z1, uint16 is N2, float32 is R4, and so on.
func ScalarOf(v any) (Scalar, error) {
	switch x := v.(type) {
	case uint8:
		return Scalar{Code: N1, Bits: uint64(x)}, nil
	case uint16:
		return Scalar{Code: N2, Bits: uint64(x)}, nil
	case uint32:
		return Scalar{Code: N4, Bits: uint64(x)}, nil
	case uint64:
		return Scalar{Code: N8, Bits: x}, nil
	case int8:
		return Scalar{Code: Z1, Bits: uint64(uint8(x))}, nil
	case int16:
		return Scalar{Code: Z2, Bits: uint64(uint16(x))}, nil
	case int32:
		return Scalar{Code: Z4, Bits: uint64(uint32(x))}, nil
	case int64:
		return Scalar{Code: Z8, Bits: uint64(x)}, nil //nolint: gosec
	case float32:
		return Scalar{Code: R4, Bits: uint64(math.Float32bits(x))}, nil
	case float64:
		return Scalar{Code: R8, Bits: math.Float64bits(x)}, nil
	default:
		return Scalar{}, fmt.Errorf("%w: unsupported value type %T", errs.ErrTypeMismatch, v)
	}
}
