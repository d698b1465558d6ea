package layout

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
	"github.com/arloliu/structarray/internal/naming"
	"github.com/arloliu/structarray/tabular"
)

// Text form of a layout:
//
//	<record name>	<stride>[	<origin>]
//	<name>	<code>[	<padding>]    relative form
//	<name>	<code>	<offset>      absolute form
//
// The first data row decides the form: two cells mean relative rows, three cells
// mean absolute offsets. In the relative form the running offset starts at the
// origin (0 by default) and advances by the field width plus the optional padding
// cell. A third header cell forces the relative form and gives its origin; Dump
// writes it only when the first data row alone would be misread.
//
// Names may be compacted as "<k>/<suffix>" against the previous expanded name.

// Load parses a layout from its tab-separated text form.
func Load(r io.Reader) (*Layout, error) {
	rows, err := tabular.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}

	return parseRows(rows)
}

// LoadFile parses the layout stored at path.
func LoadFile(path string) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO("open layout", err)
	}
	defer f.Close()

	return Load(f)
}

// entryState is the fold carried across data rows while parsing.
type entryState struct {
	relative bool
	offset   int
	names    naming.Expander
}

func parseRows(rows [][]string) (*Layout, error) {
	if len(rows) == 0 {
		return nil, errs.NewLayoutError(0, nil, fmt.Errorf("%w: missing header row", errs.ErrMalformedRow))
	}

	header := rows[0]
	if len(header) != 2 && len(header) != 3 {
		return nil, errs.NewLayoutError(0, header, errs.ErrMalformedRow)
	}

	stride, err := strconv.Atoi(header[1])
	if err != nil {
		return nil, errs.NewLayoutError(0, header, fmt.Errorf("%w: %w", errs.ErrInvalidStride, err))
	}

	l, err := New(header[0], stride, nil)
	if err != nil {
		return nil, err
	}

	data := rows[1:]

	var st entryState
	switch {
	case len(header) == 3:
		st.relative = true
		st.offset, err = strconv.Atoi(header[2])
		if err != nil {
			return nil, errs.NewLayoutError(0, header, fmt.Errorf("%w: bad origin: %w", errs.ErrMalformedRow, err))
		}
	case len(data) > 0:
		st.relative = len(data[0]) == 2
	}

	for i, cells := range data {
		f, err := st.next(cells)
		if err != nil {
			return nil, errs.NewLayoutError(i+1, cells, err)
		}

		if err := l.push(f); err != nil {
			var le *errs.LayoutError
			if errors.As(err, &le) {
				le.Row = i + 1
				le.Cells = cells
			}

			return nil, err
		}
	}

	return l, nil
}

func (st *entryState) next(cells []string) (Field, error) {
	var value int
	switch len(cells) {
	case 2:
		if !st.relative {
			return Field{}, errs.ErrMixedRowShapes
		}
	case 3:
		v, err := strconv.Atoi(cells[2])
		if err != nil {
			return Field{}, fmt.Errorf("%w: %w", errs.ErrMalformedRow, err)
		}
		value = v
	default:
		return Field{}, fmt.Errorf("%w: expected 2 or 3 cells, got %d", errs.ErrMalformedRow, len(cells))
	}

	code, err := format.ParseCode(cells[1])
	if err != nil {
		return Field{}, fmt.Errorf("%w %q", err, cells[1])
	}

	name, err := st.names.Next(cells[0])
	if err != nil {
		return Field{}, err
	}

	if !st.relative {
		return Field{Name: name, Code: code, Offset: value}, nil
	}

	f := Field{Name: name, Code: code, Offset: st.offset}
	st.offset += code.Width() + value

	return f, nil
}

// Dump writes the layout in its tab-separated text form.
//
// With relative set, rows carry the padding that follows each field instead of
// absolute offsets; the padding cell is omitted when zero and the last row pads up
// to the stride. With compact set, names are compacted against the previous name.
// Load reads back an identical layout for every combination of flags.
func (l *Layout) Dump(w io.Writer, relative, compact bool) error {
	tw := tabular.NewWriter(w)
	for _, row := range l.rows(relative, compact) {
		if err := tw.Write(row...); err != nil {
			return err
		}
	}

	return tw.Flush()
}

// DumpFile writes the layout to path, replacing any existing file.
func (l *Layout) DumpFile(path string, relative, compact bool) error {
	return tabular.Save(path, l.rows(relative, compact))
}

func (l *Layout) rows(relative, compact bool) [][]string {
	header := []string{l.name, strconv.Itoa(l.stride)}
	rows := make([][]string, 0, len(l.fields)+1)
	rows = append(rows, header)

	var names naming.Compactor
	for _, f := range l.fields {
		name := naming.Escape(f.Name)
		if compact {
			name = names.Next(f.Name)
		}

		if relative {
			rows = append(rows, []string{name, f.Code.String()})
		} else {
			rows = append(rows, []string{name, f.Code.String(), strconv.Itoa(f.Offset)})
		}
	}

	if !relative || len(l.fields) == 0 {
		return rows
	}

	// padding after field i is the gap up to field i+1, or up to the stride for the last one
	for i, f := range l.fields {
		next := l.stride
		if i+1 < len(l.fields) {
			next = l.fields[i+1].Offset
		}

		if pad := next - f.End(); pad != 0 {
			rows[i+1] = append(rows[i+1], strconv.Itoa(pad))
		}
	}

	if origin := l.fields[0].Offset; origin != 0 || len(rows[1]) == 3 {
		rows[0] = append(header, strconv.Itoa(origin))
	}

	return rows
}

// String returns the absolute, uncompacted text form.
func (l *Layout) String() string {
	var sb strings.Builder
	_ = l.Dump(&sb, false, false)

	return sb.String()
}
