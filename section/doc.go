// Package section defines the fixed-size binary structures of the columnar
// archive: the header and the table directory entries.
//
// Every integer is little-endian. An archive is laid out as
//
//	┌──────────────────────────────────────────────┐
//	│ Header (48 bytes)                            │
//	├──────────────────────────────────────────────┤
//	│ Table directory (16 bytes per table)         │
//	├──────────────────────────────────────────────┤
//	│ Table 0: (rows+1) uint64 row offsets,        │
//	│          then the compressed rows            │
//	│ ...                                          │
//	├──────────────────────────────────────────────┤
//	│ Field map (compressed text)                  │
//	└──────────────────────────────────────────────┘
//
// A table holds the distinct columns of one type code, one compressed row per
// column. Row offsets are relative to the end of the offset array, so row i
// spans [offsets[i], offsets[i+1]) there and can be read with two seeks.
package section
