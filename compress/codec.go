package compress

import (
	"fmt"

	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
)

// Compressor compresses one archive section.
//
// The returned slice may share memory with data (NoOp does), so callers must not
// modify data while they use the result.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses a Compressor. It fails on corrupted input or input
// produced by another algorithm.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// SizedDecompressor is implemented by decompressors that decode faster, or only
// reliably, when the original size is known.
type SizedDecompressor interface {
	DecompressSize(data []byte, size int) ([]byte, error)
}

// DecompressSize decompresses data with d, passing the expected original size
// when d can use it. The result is not checked against size.
func DecompressSize(d Decompressor, data []byte, size int) ([]byte, error) {
	if sd, ok := d.(SizedDecompressor); ok {
		return sd.DecompressSize(data, size)
	}

	return d.Decompress(data)
}

// Codec compresses and decompresses with one algorithm.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec returns the built-in codec of a compression type. Unknown types fail
// with errs.ErrInvalidCodec.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCodec, compressionType)
}

// Stats summarizes the effect of compression on a set of sections.
type Stats struct {
	Algorithm      format.CompressionType
	Sections       int
	OriginalSize   int64
	CompressedSize int64
}

// Add accounts for one section.
func (s *Stats) Add(original, compressed int) {
	s.Sections++
	s.OriginalSize += int64(original)
	s.CompressedSize += int64(compressed)
}

// Ratio returns compressed size over original size, or 0 when nothing was
// compressed.
func (s Stats) Ratio() float64 {
	if s.OriginalSize == 0 {
		return 0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// SpaceSavings returns the saved space as a percentage.
func (s Stats) SpaceSavings() float64 {
	if s.OriginalSize == 0 {
		return 0
	}

	return (1 - s.Ratio()) * 100
}
