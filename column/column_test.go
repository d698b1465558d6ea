package column

import (
	"math"
	"testing"

	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	c := Of[int32](1, 2, -1)
	require.Equal(t, format.Z4, c.Code())
	require.Equal(t, 3, c.Len())
	require.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}, c.Bytes())
	require.Equal(t, []int64{1, 2, -1}, c.Int64s())

	f := Of(1.5, math.Inf(-1))
	require.Equal(t, format.R8, f.Code())
	require.Equal(t, []float64{1.5, math.Inf(-1)}, f.Float64s())

	u := Of[uint16](7, 65535)
	require.Equal(t, []uint64{7, 65535}, u.Uint64s())
}

func TestFromBytes(t *testing.T) {
	c, err := FromBytes(format.N2, []byte{1, 0, 2, 0})
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	require.Equal(t, uint64(2), c.At(1).Uint64())

	_, err = FromBytes(format.N2, []byte{1, 0, 2})
	require.ErrorIs(t, err, errs.ErrCorruptArchive)

	_, err = FromBytes(format.P8, make([]byte, 8))
	require.ErrorIs(t, err, errs.ErrTypeMismatch)
}

func TestRepeat(t *testing.T) {
	s, err := format.ScalarOf(int16(-3))
	require.NoError(t, err)

	for _, n := range []int{0, 1, 2, 3, 7, 64} {
		c := Repeat(s, n)
		require.Equal(t, n, c.Len())
		require.Len(t, c.Bytes(), 2*n)
		for i, v := range c.All() {
			require.Equal(t, s, v, "element %d of %d", i, n)
		}
		require.Equal(t, n > 0, c.IsUniform())
	}
}

func TestFromScalars(t *testing.T) {
	a, _ := format.ScalarOf(uint8(1))
	b, _ := format.ScalarOf(uint8(9))

	c, err := FromScalars(format.N1, []format.Scalar{a, b})
	require.NoError(t, err)
	require.Equal(t, []format.Scalar{a, b}, c.Scalars())

	_, err = FromScalars(format.N2, []format.Scalar{a})
	require.ErrorIs(t, err, errs.ErrTypeMismatch)
}

func TestIsUniform(t *testing.T) {
	require.True(t, Of[int32](1, 1, 1).IsUniform())
	require.False(t, Of[int32](1, 2, 1).IsUniform())
	require.False(t, Of[int32](1, 1, 2).IsUniform())
	require.False(t, Of[int32]().IsUniform())

	// bit equality, not numeric equality
	require.False(t, Of(0.0, math.Copysign(0, -1)).IsUniform())
	nan := math.Float64frombits(0x7ff8000000000001)
	require.True(t, Of(nan, nan).IsUniform())
}

func TestSliceEqualClone(t *testing.T) {
	c := Of[int64](10, 20, 30, 40)

	s := c.Slice(1, 3)
	require.Equal(t, []int64{20, 30}, s.Int64s())
	require.True(t, s.Equal(Of[int64](20, 30)))
	require.False(t, s.Equal(Of[uint64](20, 30)))
	require.Equal(t, 0, c.Slice(2, 2).Len())

	cl := c.Clone()
	require.True(t, cl.Equal(c))
	require.Equal(t, c.Hash(), cl.Hash())
	require.NotEqual(t, c.Hash(), s.Hash())
	require.Equal(t, "Z8[4]", c.String())
}

func TestAllStopsEarly(t *testing.T) {
	c := Of[uint8](1, 2, 3)

	n := 0
	for range c.All() {
		n++
		break
	}
	require.Equal(t, 1, n)
}
