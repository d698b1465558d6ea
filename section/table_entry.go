package section

import (
	"fmt"

	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
)

// TableEntry locates the unique-column table of one type code.
type TableEntry struct {
	// Code is the type code of every column of the table.
	//
	// Offset: 0, Size: 1 byte, followed by 3 reserved bytes
	Code format.Code

	// Rows is the number of distinct columns stored.
	//
	// Offset: 4, Size: 4 bytes
	Rows uint32

	// Offset is the absolute byte offset of the table's row offset array.
	//
	// Offset: 8, Size: 8 bytes
	Offset uint64
}

// Parse parses the entry from exactly TableEntrySize bytes.
func (e *TableEntry) Parse(data []byte) error {
	if len(data) != TableEntrySize {
		return fmt.Errorf("%w: table entry of %d bytes", errs.ErrCorruptArchive, len(data))
	}

	e.Code = format.Code(data[0])
	e.Rows = le.Uint32(data[4:8])
	e.Offset = le.Uint64(data[8:16])

	if !e.Code.IsData() {
		return fmt.Errorf("%w: table of type code %d", errs.ErrCorruptArchive, data[0])
	}

	return nil
}

// Bytes serializes the entry.
func (e *TableEntry) Bytes() []byte {
	b := make([]byte, TableEntrySize)
	e.WriteToSlice(b)

	return b
}

// WriteToSlice serializes the entry into b, which must hold TableEntrySize bytes.
func (e *TableEntry) WriteToSlice(b []byte) {
	b[0] = uint8(e.Code)
	b[1], b[2], b[3] = 0, 0, 0
	le.PutUint32(b[4:8], e.Rows)
	le.PutUint64(b[8:16], e.Offset)
}

// OffsetsLength returns the byte length of the row offset array.
func (e *TableEntry) OffsetsLength() uint64 {
	return (uint64(e.Rows) + 1) * RowOffsetSize
}

// RowOffsetPos returns the absolute position of the offset of row.
func (e *TableEntry) RowOffsetPos(row int) uint64 {
	return e.Offset + uint64(row)*RowOffsetSize //nolint: gosec
}

// PayloadStart returns the absolute position the row offsets are relative to.
func (e *TableEntry) PayloadStart() uint64 {
	return e.Offset + e.OffsetsLength()
}

// ParseDirectory parses count consecutive entries.
func ParseDirectory(data []byte, count int) ([]TableEntry, error) {
	if len(data) < count*TableEntrySize {
		return nil, fmt.Errorf("%w: table directory truncated", errs.ErrCorruptArchive)
	}

	entries := make([]TableEntry, count)
	for i := range entries {
		if err := entries[i].Parse(data[i*TableEntrySize : (i+1)*TableEntrySize]); err != nil {
			return nil, err
		}
	}

	return entries, nil
}
