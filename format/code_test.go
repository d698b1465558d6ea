package format

import (
	"math"
	"testing"

	"github.com/arloliu/structarray/endian"
	"github.com/arloliu/structarray/errs"
	"github.com/stretchr/testify/require"
)

func TestParseCode(t *testing.T) {
	tests := []struct {
		text    string
		code    Code
		width   int
		pointer bool
	}{
		{"N1", N1, 1, false},
		{"N2", N2, 2, false},
		{"N4", N4, 4, false},
		{"N8", N8, 8, false},
		{"Z1", Z1, 1, false},
		{"Z2", Z2, 2, false},
		{"Z4", Z4, 4, false},
		{"Z8", Z8, 8, false},
		{"R4", R4, 4, false},
		{"R8", R8, 8, false},
		{"P4", P4, 4, true},
		{"P8", P8, 8, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			code, err := ParseCode(tt.text)
			require.NoError(t, err)
			require.Equal(t, tt.code, code)
			require.Equal(t, tt.width, code.Width())
			require.Equal(t, tt.pointer, code.IsPointer())
			require.Equal(t, !tt.pointer, code.IsData())
			require.Equal(t, tt.text, code.String())
		})
	}

	_, err := ParseCode("Q4")
	require.ErrorIs(t, err, errs.ErrUnknownTypeCode)
	require.Equal(t, 0, Invalid.Width())
	require.Equal(t, "??", Code(200).String())
}

func TestDataCodes(t *testing.T) {
	codes := DataCodes()
	require.Len(t, codes, 10)
	for _, c := range codes {
		require.True(t, c.IsData())
	}

	codes[0] = P4
	require.Equal(t, R8, DataCodes()[0], "DataCodes must return a copy")
}

func TestScalarDecode(t *testing.T) {
	le := endian.GetLittleEndianEngine()
	be := endian.GetBigEndianEngine()

	s, err := DecodeScalar(Z4, []byte{0xff, 0xff, 0xff, 0xff}, le)
	require.NoError(t, err)
	require.Equal(t, int64(-1), s.Int64())
	require.Equal(t, int32(-1), s.Value())

	s, err = DecodeScalar(N2, []byte{0x01, 0x02}, be)
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102), s.Uint64())

	s, err = DecodeScalar(R4, le.AppendUint32(nil, math.Float32bits(1.5)), le)
	require.NoError(t, err)
	require.InDelta(t, 1.5, s.Float64(), 0)

	_, err = DecodeScalar(Z8, []byte{1, 2, 3}, le)
	require.ErrorIs(t, err, errs.ErrTruncatedSource)

	_, err = DecodeScalar(P8, make([]byte, 8), le)
	require.ErrorIs(t, err, errs.ErrTypeMismatch)
}

func TestScalarPutAppend(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	for _, c := range DataCodes() {
		mask := uint64(math.MaxUint64) >> uint(64-8*c.Width())
		s := Scalar{Code: c, Bits: 0x0102030405060708 & mask}

		buf := make([]byte, c.Width())
		s.Put(buf, engine)
		require.Equal(t, buf, s.Append(nil, engine))

		back, err := DecodeScalar(c, buf, engine)
		require.NoError(t, err)
		require.Equal(t, s, back)
	}
}

func TestScalarStringRoundTrip(t *testing.T) {
	values := []any{
		uint8(255), uint16(65535), uint32(7), uint64(math.MaxUint64),
		int8(-128), int16(-2), int32(-123456), int64(math.MinInt64),
		float32(0.1), float32(math.Inf(-1)), float64(-0.0), math.Copysign(0, -1),
		math.Inf(1), math.Float64frombits(0x7ff8000000000123),
		math.Float32frombits(0x7fc00042),
	}

	for _, v := range values {
		s, err := ScalarOf(v)
		require.NoError(t, err)

		back, err := ParseScalar(s.Code, s.String())
		require.NoError(t, err, "value %v text %q", v, s.String())
		require.Equal(t, s.Bits, back.Bits, "value %v text %q", v, s.String())
	}

	_, err := ParseScalar(Z1, "300")
	require.Error(t, err)
	_, err = ParseScalar(P4, "0")
	require.ErrorIs(t, err, errs.ErrTypeMismatch)
	_, err = ScalarOf("text")
	require.ErrorIs(t, err, errs.ErrTypeMismatch)
}

func TestScalarIsNaN(t *testing.T) {
	s, err := ScalarOf(math.NaN())
	require.NoError(t, err)
	require.True(t, s.IsNaN())

	s, err = ScalarOf(int32(3))
	require.NoError(t, err)
	require.False(t, s.IsNaN())
	require.InDelta(t, 3.0, s.Float64(), 0)
}

func TestParseCompressionType(t *testing.T) {
	for _, c := range []CompressionType{CompressionNone, CompressionZstd, CompressionS2, CompressionLZ4} {
		got, err := ParseCompressionType(c.String())
		require.NoError(t, err)
		require.Equal(t, c, got)
		require.True(t, c.IsValid())
	}

	_, err := ParseCompressionType("brotli")
	require.Error(t, err)
	require.Equal(t, "Unknown", CompressionType(0).String())
}
