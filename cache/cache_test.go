package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/structarray/column"
	"github.com/arloliu/structarray/format"
)

func TestMemory(t *testing.T) {
	m := NewMemory()

	_, ok, err := m.Load("a")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.Store("a", column.Of[int32](1, 2, 1)))
	require.NoError(t, m.Store("b", column.Of[int32](1, 2, 1)))
	// same bytes, different code
	require.NoError(t, m.Store("c", column.Of[uint32](1, 2, 1)))

	a, ok, err := m.Load("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int64{1, 2, 1}, a.Int64s())

	c, ok, err := m.Load("c")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, format.N4, c.Code())

	require.Equal(t, 3, m.Len())
	require.Equal(t, 2, m.Unique())
}

func TestBolt(t *testing.T) {
	path := PathFor(filepath.Join(t.TempDir(), "run.reb"))
	require.Equal(t, ".cache", filepath.Ext(path))

	b, err := OpenBolt(path)
	require.NoError(t, err)

	_, ok, err := b.Load("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, b.Store("x", column.Of(1.5, 2.5)))
	require.NoError(t, b.Store("y", column.Of(1.5, 2.5)))
	require.NoError(t, b.Store("z", column.Of[int8](-1)))
	require.NoError(t, b.Store("empty", column.Of[uint16]()))

	names, cols, err := b.Stats()
	require.NoError(t, err)
	require.Equal(t, 4, names)
	require.Equal(t, 3, cols)
	require.Equal(t, path, b.Path())
	require.NoError(t, b.Close())

	// reopen: entries persist
	b, err = OpenBolt(path)
	require.NoError(t, err)
	defer b.Close()

	y, ok, err := b.Load("y")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, column.Of(1.5, 2.5).Equal(y))

	z, ok, err := b.Load("z")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int64{-1}, z.Int64s())

	empty, ok, err := b.Load("empty")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, format.N2, empty.Code())
	require.Equal(t, 0, empty.Len())
}

func TestBoltOverwrite(t *testing.T) {
	b, err := OpenBolt(filepath.Join(t.TempDir(), "x.cache"))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Store("f", column.Of[uint8](1)))
	require.NoError(t, b.Store("f", column.Of[uint8](2)))

	f, ok, err := b.Load("f")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []uint64{2}, f.Uint64s())
}
