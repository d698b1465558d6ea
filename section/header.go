package section

import (
	"fmt"

	"github.com/arloliu/structarray/endian"
	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
)

var le = endian.GetLittleEndianEngine()

// Header is the fixed-size section at the start of an archive.
type Header struct {
	Magic   uint16 // byte offset 0-1
	Version uint8  // byte offset 2; byte 3 is reserved

	// MapCompression is the codec of the field map.
	MapCompression format.CompressionType // byte offset 4
	// ColumnCompression is the codec of every table row.
	ColumnCompression format.CompressionType // byte offset 5; bytes 6-7 are reserved

	FieldCount  uint32 // byte offset 8-11
	TableCount  uint32 // byte offset 12-15
	RecordCount uint64 // byte offset 16-23

	// MapOffset and MapLength locate the compressed field map.
	MapOffset uint64 // byte offset 24-31
	MapLength uint64 // byte offset 32-39
	// MapChecksum is the xxHash64 of the compressed field map.
	MapChecksum uint64 // byte offset 40-47
}

// NewHeader creates a version 1 header with the given codecs. Counts and offsets
// are filled in when the archive is written.
func NewHeader(mapCompression, columnCompression format.CompressionType) *Header {
	return &Header{
		Magic:             MagicArchiveV1,
		Version:           Version,
		MapCompression:    mapCompression,
		ColumnCompression: columnCompression,
	}
}

// Parse parses the header from exactly HeaderSize bytes.
func (h *Header) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	h.Magic = le.Uint16(data[0:2])
	h.Version = data[2]
	h.MapCompression = format.CompressionType(data[4])
	h.ColumnCompression = format.CompressionType(data[5])
	h.FieldCount = le.Uint32(data[8:12])
	h.TableCount = le.Uint32(data[12:16])
	h.RecordCount = le.Uint64(data[16:24])
	h.MapOffset = le.Uint64(data[24:32])
	h.MapLength = le.Uint64(data[32:40])
	h.MapChecksum = le.Uint64(data[40:48])

	return h.Validate()
}

// Validate checks the magic number, the version and the codecs.
func (h *Header) Validate() error {
	if h.Magic != MagicArchiveV1 {
		return fmt.Errorf("%w: 0x%04X", errs.ErrInvalidMagic, h.Magic)
	}

	if h.Version != Version {
		return fmt.Errorf("%w: unsupported version %d", errs.ErrCorruptArchive, h.Version)
	}

	if !h.MapCompression.IsValid() {
		return fmt.Errorf("%w: field map codec %d", errs.ErrInvalidCodec, h.MapCompression)
	}

	if !h.ColumnCompression.IsValid() {
		return fmt.Errorf("%w: column codec %d", errs.ErrInvalidCodec, h.ColumnCompression)
	}

	return nil
}

// Bytes serializes the header.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)

	le.PutUint16(b[0:2], h.Magic)
	b[2] = h.Version
	b[4] = uint8(h.MapCompression)
	b[5] = uint8(h.ColumnCompression)
	le.PutUint32(b[8:12], h.FieldCount)
	le.PutUint32(b[12:16], h.TableCount)
	le.PutUint64(b[16:24], h.RecordCount)
	le.PutUint64(b[24:32], h.MapOffset)
	le.PutUint64(b[32:40], h.MapLength)
	le.PutUint64(b[40:48], h.MapChecksum)

	return b
}

// DirectoryLength returns the byte length of the table directory.
func (h *Header) DirectoryLength() int {
	return int(h.TableCount) * TableEntrySize
}

// ParseHeader parses a header from the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, errs.ErrInvalidHeaderSize
	}

	var h Header
	if err := h.Parse(data[:HeaderSize]); err != nil {
		return Header{}, err
	}

	return h, nil
}
