package compress

import (
	"bytes"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
)

func allCodecs() map[string]Codec {
	return map[string]Codec{
		"NoOp": NewNoOpCompressor(),
		"Zstd": NewZstdCompressor(),
		"S2":   NewS2Compressor(),
		"LZ4":  NewLZ4Compressor(),
	}
}

// columnRow packs n int32 values shaped like a slowly changing counter.
func columnRow(n int) []byte {
	row := make([]byte, 4*n)
	for i := range n {
		binary.LittleEndian.PutUint32(row[4*i:], uint32(i/16))
	}

	return row
}

func TestGetCodec(t *testing.T) {
	for _, ct := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		codec, err := GetCodec(ct)
		require.NoError(t, err, ct.String())
		require.NotNil(t, codec)
	}

	_, err := GetCodec(format.CompressionType(0))
	require.ErrorIs(t, err, errs.ErrInvalidCodec)

	_, err = GetCodec(format.CompressionType(99))
	require.ErrorIs(t, err, errs.ErrInvalidCodec)
}

func TestCodecsRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"single_byte", []byte{0x42}},
		{"small_text", []byte("rec.a\tZ4\tr0\n")},
		{"column_row", columnRow(4096)},
		{"zeros", make([]byte, 1<<20)},
		{"semi_random", func() []byte {
			data := make([]byte, 4096)
			for i := range data {
				data[i] = byte((i*7 + i*i) % 251)
			}

			return data
		}()},
	}

	for name, codec := range allCodecs() {
		t.Run(name, func(t *testing.T) {
			for _, tc := range cases {
				t.Run(tc.name, func(t *testing.T) {
					packed, err := codec.Compress(tc.data)
					require.NoError(t, err)

					got, err := codec.Decompress(packed)
					require.NoError(t, err)
					require.True(t, bytes.Equal(tc.data, got))

					got, err = DecompressSize(codec, packed, len(tc.data))
					require.NoError(t, err)
					require.True(t, bytes.Equal(tc.data, got))
				})
			}
		})
	}
}

func TestCodecsEmptyInput(t *testing.T) {
	for name, codec := range allCodecs() {
		t.Run(name, func(t *testing.T) {
			packed, err := codec.Compress([]byte{})
			require.NoError(t, err)

			got, err := codec.Decompress(packed)
			require.NoError(t, err)
			require.Empty(t, got)
		})
	}
}

func TestCodecsRejectGarbage(t *testing.T) {
	garbage := []byte("this is not compressed data")

	for name, codec := range allCodecs() {
		if name == "NoOp" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			_, err := codec.Decompress(garbage)
			require.Error(t, err)
		})
	}
}

func TestCodecsConcurrentUse(t *testing.T) {
	row := columnRow(1024)

	for name, codec := range allCodecs() {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			errc := make(chan error, 16)

			for range 16 {
				wg.Add(1)
				go func() {
					defer wg.Done()

					packed, err := codec.Compress(row)
					if err != nil {
						errc <- err
						return
					}
					got, err := codec.Decompress(packed)
					if err == nil && !bytes.Equal(got, row) {
						err = errs.ErrCorruptArchive
					}
					errc <- err
				}()
			}
			wg.Wait()
			close(errc)

			for err := range errc {
				require.NoError(t, err)
			}
		})
	}
}

func TestCompressionShrinksColumns(t *testing.T) {
	row := columnRow(8192)

	for _, name := range []string{"Zstd", "S2", "LZ4"} {
		packed, err := allCodecs()[name].Compress(row)
		require.NoError(t, err)
		require.Less(t, len(packed), len(row)/4, name)
	}
}

func TestStats(t *testing.T) {
	var s Stats
	require.Zero(t, s.Ratio())
	require.Zero(t, s.SpaceSavings())

	s.Add(100, 25)
	s.Add(100, 25)
	require.Equal(t, 2, s.Sections)
	require.InDelta(t, 0.25, s.Ratio(), 1e-9)
	require.InDelta(t, 75, s.SpaceSavings(), 1e-9)
}

func TestLZ4DecompressSizeBound(t *testing.T) {
	c := NewLZ4Compressor()
	row := columnRow(1024)

	packed, err := c.Compress(row)
	require.NoError(t, err)

	got, err := c.DecompressSize(packed, len(row))
	require.NoError(t, err)
	require.Equal(t, row, got)

	_, err = c.DecompressSize(packed, len(packed)*(maxLZ4Ratio+1))
	require.Error(t, err)
	_, err = c.DecompressSize(packed, -1)
	require.Error(t, err)
}
