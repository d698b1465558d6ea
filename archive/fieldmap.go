package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
	"github.com/arloliu/structarray/internal/naming"
	"github.com/arloliu/structarray/tabular"
)

// Entry kinds as written in the field map payload cell.
const (
	constantTag  = 'c'
	referenceTag = 'r'
)

// Entry describes how one field is stored in an archive.
type Entry struct {
	Name string
	Code format.Code
	// Constant reports whether every record holds Value. Otherwise the column
	// is row Row of the table of Code.
	Constant bool
	Value    format.Scalar
	Row      int
}

// Kind returns "constant" or "reference".
func (e Entry) Kind() string {
	if e.Constant {
		return "constant"
	}

	return "reference"
}

func (e Entry) payload() string {
	if e.Constant {
		return string(constantTag) + e.Value.String()
	}

	return string(referenceTag) + strconv.Itoa(e.Row)
}

// writeFieldMap writes the field map text: the record count alone on the first
// row, then one row per entry in declaration order with its compacted name, its
// type code and its payload.
func writeFieldMap(w io.Writer, records int, entries []Entry) error {
	tw := tabular.NewWriter(w)
	if err := tw.Write(strconv.Itoa(records)); err != nil {
		return err
	}

	var names naming.Compactor
	for _, e := range entries {
		if err := tw.Write(names.Next(e.Name), e.Code.String(), e.payload()); err != nil {
			return err
		}
	}

	return tw.Flush()
}

// parseFieldMap reverses writeFieldMap.
func parseFieldMap(text []byte) (int, []Entry, error) {
	tr := tabular.NewReader(bytes.NewReader(text))

	head, err := tr.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil, fmt.Errorf("%w: empty field map", errs.ErrCorruptArchive)
	}
	if err != nil {
		return 0, nil, err
	}

	records, err := strconv.Atoi(head[0])
	if len(head) != 1 || err != nil || records < 0 {
		return 0, nil, fmt.Errorf("%w: field map record count %q", errs.ErrCorruptArchive, head)
	}

	var (
		entries []Entry
		names   naming.Expander
	)
	for n := 1; ; n++ {
		row, err := tr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, nil, err
		}

		e, err := parseEntry(row, &names)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: field map row %d: %w", errs.ErrCorruptArchive, n, err)
		}
		entries = append(entries, e)
	}

	return records, entries, nil
}

func parseEntry(row []string, names *naming.Expander) (Entry, error) {
	if len(row) != 3 || row[2] == "" {
		return Entry{}, fmt.Errorf("want 3 cells, have %q", row)
	}

	name, err := names.Next(row[0])
	if err != nil {
		return Entry{}, err
	}

	code, err := format.ParseCode(row[1])
	if err != nil {
		return Entry{}, fmt.Errorf("%q: %w", row[1], err)
	}
	if !code.IsData() {
		return Entry{}, fmt.Errorf("%s: %w", code, errs.ErrPointerField)
	}

	e := Entry{Name: name, Code: code}
	payload := row[2][1:]

	switch row[2][0] {
	case constantTag:
		e.Constant = true
		e.Value, err = format.ParseScalar(code, payload)
	case referenceTag:
		e.Row, err = strconv.Atoi(payload)
		if err == nil && e.Row < 0 {
			err = fmt.Errorf("negative row %d", e.Row)
		}
	default:
		err = fmt.Errorf("unknown entry kind %q", strings.TrimSpace(row[2][:1]))
	}
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", name, err)
	}

	return e, nil
}
