// Package tabular reads and writes the tab-separated tables used for layout files
// and exported record data.
//
// Rows are separated by newlines and cells by tabs. Blank rows and rows starting
// with '#' are skipped on read. Quotes carry no meaning: a cell is the text between
// two tabs.
//
// Cells are trimmed of leading and trailing white space on write and on read, so
// such space does not survive a round trip. The characters that would break the
// row structure are escaped as \t, \n, \", \# and \\.
package tabular

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/arloliu/structarray/errs"
)

var (
	escaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\t", `\t`, `"`, `\"`, "#", `\#`)
	unescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\t`, "\t", `\"`, `"`, `\#`, "#")
)

// Reader reads rows from a tab-separated stream.
type Reader struct {
	r *csv.Reader
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	return &Reader{r: cr}
}

// Read returns the next row, or io.EOF when the stream is exhausted.
func (r *Reader) Read() ([]string, error) {
	for {
		row, err := r.r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}

			return nil, errs.IO("read table row", err)
		}

		if isBlank(row) {
			continue
		}

		for i, cell := range row {
			row[i] = strings.TrimSpace(unescaper.Replace(cell))
		}

		return row, nil
	}
}

// ReadAll reads every remaining row.
func (r *Reader) ReadAll() ([][]string, error) {
	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}

// Writer writes rows to a tab-separated stream.
//
// Output is buffered; call Flush when done.
type Writer struct {
	w *bufio.Writer
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Comment writes a '#' comment line.
func (w *Writer) Comment(text string) error {
	line := "# " + strings.ReplaceAll(text, "\n", " ") + "\n"
	if _, err := w.w.WriteString(line); err != nil {
		return errs.IO("write table comment", err)
	}

	return nil
}

// Write writes one row.
func (w *Writer) Write(row ...string) error {
	for i, cell := range row {
		if i > 0 {
			if err := w.w.WriteByte('\t'); err != nil {
				return errs.IO("write table row", err)
			}
		}
		if _, err := w.w.WriteString(escaper.Replace(strings.TrimSpace(cell))); err != nil {
			return errs.IO("write table row", err)
		}
	}

	if err := w.w.WriteByte('\n'); err != nil {
		return errs.IO("write table row", err)
	}

	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return errs.IO("flush table", err)
	}

	return nil
}

// Load reads every row of the table stored at path.
func Load(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO("open table", err)
	}
	defer f.Close()

	return NewReader(f).ReadAll()
}

// Save writes rows to path, replacing any existing file.
func Save(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.IO("create table", err)
	}
	defer f.Close()

	w := NewWriter(f)
	for _, row := range rows {
		if err := w.Write(row...); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}

	if err := f.Close(); err != nil {
		return errs.IO("close table", err)
	}

	return nil
}
