// Package record decodes fixed-stride binary records into per-field columns.
//
// A record source is a flat array of repeated C structures, one per cycle of the
// producing program. Given the Layout of one record, a Decoder extracts any field
// as a column holding one value per record:
//
//	l, _ := layout.LoadFile("mapping.tsv")
//	src, _ := record.OpenSource("run.reb", record.LargeFileThreshold)
//	dec, _ := record.NewDecoder(l, src)
//	speed, _ := dec.Column("ctrl.pos.vx")
//
// # Decode paths
//
// Memory sources are decoded by grid reinterpretation when the field allows it:
// the buffer is viewed as a records x (stride / width) grid of the field type and
// the field is one grid column. This needs a little-endian host reading a
// little-endian source, a stride and an offset that are multiples of the width,
// and a buffer aligned on the width. Every other field of a memory source is
// unpacked one scalar per record. Both paths produce bit-identical columns.
//
// File sources, selected by OpenSource for files of LargeFileThreshold bytes or
// more, are never loaded whole: each field scan opens the file, reads the width
// of the field at every record and closes it. A FieldCache such as cache.Bolt
// keeps those scans across runs.
//
// # Truncation
//
// A source whose size is not a multiple of the stride ends with a partial record.
// It is ignored, a warning is logged, and Truncated reports its size.
package record
