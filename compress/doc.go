// Package compress provides the codecs applied to archive sections.
//
// An archive compresses its field map and every unique-column row independently,
// so that one row can be read without touching the others. The codec of each kind
// of section is recorded in the archive header as a format.CompressionType:
//
//   - None: sections are stored as is
//   - Zstd: best ratio, the default for both sections
//   - S2: faster, lower ratio
//   - LZ4: fastest decompression
//
// Codecs are stateless values safe for concurrent use; the zstd and lz4 codecs
// pool their encoders internally.
//
//	codec, err := compress.GetCodec(format.CompressionZstd)
//	packed, err := codec.Compress(row)
//	row, err = codec.Decompress(packed)
package compress
