package record

import (
	"io"

	"github.com/arloliu/structarray/column"
	"github.com/arloliu/structarray/tabular"
)

// ClampRange resolves [start, stop) against n elements the way slice expressions
// with negative indices work in many scripting languages: negative bounds count
// from the end, and out of range bounds are clamped to [0, n]. An empty range has
// start == stop.
func ClampRange(start, stop, n int) (int, int) {
	clamp := func(i int) int {
		if i < 0 {
			i += n
		}

		return min(max(i, 0), n)
	}

	start, stop = clamp(start), clamp(stop)
	if stop < start {
		stop = start
	}

	return start, stop
}

// Extract decodes every data field once and returns records [start, stop) of
// each, keyed by field name. Bounds follow ClampRange; use 0 and RecordCount() for
// everything. Repeated calls reuse already decoded columns.
func (d *Decoder) Extract(start, stop int) (map[string]column.Column, error) {
	start, stop = ClampRange(start, stop, d.records)

	out := make(map[string]column.Column, d.layout.Len())
	for f := range d.layout.Fields() {
		c, err := d.Column(f.Name)
		if err != nil {
			return nil, err
		}
		out[f.Name] = c.Slice(start, stop)
	}

	return out, nil
}

func (d *Decoder) columns(names []string) ([]column.Column, error) {
	cols := make([]column.Column, len(names))
	for i, name := range names {
		c, err := d.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}

	return cols, nil
}

// WriteTSV writes records [start, stop) as a table with one header row of field
// names and one row per record. No names means every data field.
func (d *Decoder) WriteTSV(w io.Writer, names []string, start, stop int) error {
	if len(names) == 0 {
		names = d.layout.Names()
	}

	cols, err := d.columns(names)
	if err != nil {
		return err
	}

	start, stop = ClampRange(start, stop, d.records)

	tw := tabular.NewWriter(w)
	if err := tw.Write(names...); err != nil {
		return err
	}

	row := make([]string, len(cols))
	for i := start; i < stop; i++ {
		for j, c := range cols {
			row[j] = c.At(i).String()
		}
		if err := tw.Write(row...); err != nil {
			return err
		}
	}

	return tw.Flush()
}

// WriteListing writes records [start, stop) transposed: one row per field, made
// of the field name followed by its values. No names means every data field.
func (d *Decoder) WriteListing(w io.Writer, names []string, start, stop int) error {
	if len(names) == 0 {
		names = d.layout.Names()
	}

	start, stop = ClampRange(start, stop, d.records)

	tw := tabular.NewWriter(w)
	row := make([]string, 0, stop-start+1)
	for _, name := range names {
		c, err := d.Column(name)
		if err != nil {
			return err
		}

		row = append(row[:0], name)
		for i := start; i < stop; i++ {
			row = append(row, c.At(i).String())
		}
		if err := tw.Write(row...); err != nil {
			return err
		}
	}

	return tw.Flush()
}

// FirstNaN finds the first record holding a NaN in any float field. It returns
// the record index and the names of the NaN fields, or -1 when there is none.
func (d *Decoder) FirstNaN() (int, []string, error) {
	var names []string
	var cols []column.Column
	for f := range d.layout.Fields() {
		if !f.Code.IsFloat() {
			continue
		}

		c, err := d.Column(f.Name)
		if err != nil {
			return -1, nil, err
		}
		names = append(names, f.Name)
		cols = append(cols, c)
	}

	for i := 0; i < d.records; i++ {
		var hits []string
		for j, c := range cols {
			if c.At(i).IsNaN() {
				hits = append(hits, names[j])
			}
		}
		if len(hits) > 0 {
			return i, hits, nil
		}
	}

	return -1, nil, nil
}
