// Package archive stores the columns of a record source as a compact,
// deduplicated columnar archive, and reads them back one at a time.
//
// A Builder groups the data fields of a layout by type code. A field whose
// column repeats one value is stored as that constant. The other columns are
// deduplicated by content: fields with byte-identical columns of the same type
// share one row of the type's table. Rows are compressed independently, so a
// Reader reconstructs any field with a single row read:
//
//	dec, _ := record.NewDecoder(l, src)
//	stats, err := archive.Compress(l, dec, dec.RecordCount(), w)
//
//	r, err := archive.Open("run.rez")
//	col, err := r.Column("ctrl.state.speed")
//
// The field map stored in the archive lists every field in declaration order
// with its compacted name, its type code and either its constant value or its
// row index. See package section for the binary container.
package archive
