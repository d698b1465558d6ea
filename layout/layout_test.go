package layout

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
	"github.com/stretchr/testify/require"
)

func sampleLayout(t *testing.T) *Layout {
	t.Helper()

	l, err := New("ctrl_state", 48, []Field{
		{Name: "ctrl.mode", Code: format.N1, Offset: 0},
		{Name: "ctrl.flags", Code: format.N1, Offset: 1},
		{Name: "ctrl.pos.x", Code: format.R8, Offset: 8},
		{Name: "ctrl.pos.y", Code: format.R8, Offset: 16},
		{Name: "ctrl.next", Code: format.P8, Offset: 24},
		{Name: "ctrl.count", Code: format.Z4, Offset: 32},
		{Name: "ctrl.gain[2]", Code: format.R4, Offset: 37},
		{Name: "status", Code: format.N2, Offset: 42},
	})
	require.NoError(t, err)

	return l
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		stride int
		fields []Field
		want   error
	}{
		{"zero stride", 0, nil, errs.ErrInvalidStride},
		{"past stride", 4, []Field{{Name: "a", Code: format.Z4, Offset: 1}}, errs.ErrFieldOutOfRecord},
		{"negative offset", 4, []Field{{Name: "a", Code: format.N1, Offset: -1}}, errs.ErrFieldOutOfRecord},
		{"decreasing", 8, []Field{
			{Name: "a", Code: format.Z4, Offset: 4},
			{Name: "b", Code: format.Z4, Offset: 0},
		}, errs.ErrLayout},
		{"duplicate", 8, []Field{
			{Name: "a", Code: format.Z4, Offset: 0},
			{Name: "a", Code: format.Z4, Offset: 4},
		}, errs.ErrDuplicateField},
		{"invalid code", 8, []Field{{Name: "a", Code: format.Invalid}}, errs.ErrUnknownTypeCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("rec", tt.stride, tt.fields)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, errs.ErrLayout)
		})
	}
}

func TestFieldLookup(t *testing.T) {
	l := sampleLayout(t)

	f, err := l.Field("ctrl.pos.y")
	require.NoError(t, err)
	require.Equal(t, format.R8, f.Code)
	require.Equal(t, 16, f.Offset)

	_, err = l.Field("ctrl.pos.z")
	require.ErrorIs(t, err, errs.ErrFieldNotFound)

	var fe *errs.FieldError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, "ctrl.pos.z", fe.Field)

	// pointer placeholders can be looked up but are not iterated
	f, err = l.Field("ctrl.next")
	require.NoError(t, err)
	require.True(t, f.Code.IsPointer())
	require.NotContains(t, l.Names(), "ctrl.next")
	require.Len(t, l.Names(), 7)
	require.Equal(t, 8, l.Len())
}

func TestFieldsStopsEarly(t *testing.T) {
	l := sampleLayout(t)

	var seen []string
	for f := range l.Fields() {
		seen = append(seen, f.Name)
		if len(seen) == 2 {
			break
		}
	}
	require.Equal(t, []string{"ctrl.mode", "ctrl.flags"}, seen)
}

func TestAlignment(t *testing.T) {
	l := sampleLayout(t)

	ok, err := l.IsAligned("ctrl.pos.x")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.IsAligned("ctrl.gain[2]")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = l.IsAligned("missing")
	require.ErrorIs(t, err, errs.ErrFieldNotFound)

	mis := l.Misaligned()
	require.Len(t, mis, 1)
	require.Equal(t, "ctrl.gain[2]", mis[0].Name)
}

func TestDumpLoadRoundTrip(t *testing.T) {
	layouts := map[string]*Layout{"sample": sampleLayout(t)}

	leading, err := New("leading_gap", 16, []Field{
		{Name: "a.b", Code: format.Z4, Offset: 4},
		{Name: "a.c", Code: format.Z4, Offset: 12},
	})
	require.NoError(t, err)
	layouts["leading gap"] = leading

	padded, err := New("first_padded", 16, []Field{
		{Name: "x", Code: format.N1, Offset: 0},
		{Name: "y", Code: format.R8, Offset: 8},
	})
	require.NoError(t, err)
	layouts["first row padded"] = padded

	overlap, err := New("union", 8, []Field{
		{Name: "u.as_int", Code: format.Z8, Offset: 0},
		{Name: "u.as_float", Code: format.R8, Offset: 0},
	})
	require.NoError(t, err)
	layouts["overlap"] = overlap

	odd, err := New("odd_names", 16, []Field{
		{Name: `"x`, Code: format.Z4, Offset: 0},
		{Name: "1/c", Code: format.Z4, Offset: 4},
		{Name: "#h.a", Code: format.Z4, Offset: 8},
		{Name: "#h.b", Code: format.Z4, Offset: 12},
	})
	require.NoError(t, err)
	layouts["odd names"] = odd

	empty, err := New("empty", 4, nil)
	require.NoError(t, err)
	layouts["empty"] = empty

	for name, l := range layouts {
		for _, relative := range []bool{false, true} {
			for _, compact := range []bool{false, true} {
				var buf bytes.Buffer
				require.NoError(t, l.Dump(&buf, relative, compact))

				back, err := Load(&buf)
				require.NoError(t, err, "%s relative=%v compact=%v", name, relative, compact)
				require.True(t, l.Equal(back), "%s relative=%v compact=%v\n%s", name, relative, compact, back)
				require.Equal(t, l.AllFields(), back.AllFields())
			}
		}
	}
}

func TestDumpRelativeText(t *testing.T) {
	l, err := New("rec", 12, []Field{
		{Name: "s.a", Code: format.Z4, Offset: 0},
		{Name: "s.b", Code: format.N1, Offset: 4},
		{Name: "s.c", Code: format.N2, Offset: 6},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, l.Dump(&buf, true, true))
	require.Equal(t, "rec\t12\ns.a\tZ4\n1/b\tN1\t1\n1/c\tN2\t4\n", buf.String())

	buf.Reset()
	require.NoError(t, l.Dump(&buf, false, false))
	require.Equal(t, "rec\t12\ns.a\tZ4\t0\ns.b\tN1\t4\ns.c\tN2\t6\n", buf.String())
	require.Equal(t, buf.String(), l.String())
}

func TestLoadAbsolute(t *testing.T) {
	l, err := Load(strings.NewReader("rec\t8\na\tZ4\t0\nb\tZ4\t4\n"))
	require.NoError(t, err)
	require.Equal(t, "rec", l.Name())
	require.Equal(t, 8, l.Stride())
	require.Equal(t, []string{"a", "b"}, l.Names())

	f, err := l.Field("b")
	require.NoError(t, err)
	require.Equal(t, 4, f.Offset)
}

func TestLoadRelativeCompacted(t *testing.T) {
	text := strings.Join([]string{
		"out\t24\t0",
		"_O0_output.pub.vx.is_requested\tN1\t3",
		"3/cmd\tR4",
		"3/der\tR4\t4",
		"2/vy.is_requested\tN1\t7",
	}, "\n")

	l, err := Load(strings.NewReader(text))
	require.NoError(t, err)
	require.Equal(t, []Field{
		{Name: "_O0_output.pub.vx.is_requested", Code: format.N1, Offset: 0},
		{Name: "_O0_output.pub.vx.cmd", Code: format.R4, Offset: 4},
		{Name: "_O0_output.pub.vx.der", Code: format.R4, Offset: 8},
		{Name: "_O0_output.pub.vy.is_requested", Code: format.N1, Offset: 16},
	}, l.AllFields())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		row  int
		want error
	}{
		{"empty", "", 0, errs.ErrMalformedRow},
		{"bad header", "rec\n", 0, errs.ErrMalformedRow},
		{"bad stride", "rec\tbig\n", 0, errs.ErrInvalidStride},
		{"one cell", "rec\t8\na\n", 1, errs.ErrMalformedRow},
		{"four cells", "rec\t8\na\tZ4\t0\t1\n", 1, errs.ErrMalformedRow},
		{"bad code", "rec\t8\na\tQ4\t0\n", 1, errs.ErrUnknownTypeCode},
		{"bad number", "rec\t8\na\tZ4\tfour\n", 1, errs.ErrMalformedRow},
		{"mixed shapes", "rec\t8\na\tZ4\t0\nb\tZ4\n", 2, errs.ErrMixedRowShapes},
		{"undefined reference", "rec\t8\n1/a\tZ4\n", 1, errs.ErrUndefinedReference},
		{"reference too deep", "rec\t8\na.b\tZ2\n3/c\tZ2\n", 2, errs.ErrUndefinedReference},
		{"out of record", "rec\t4\na\tZ4\nb\tZ4\n", 2, errs.ErrFieldOutOfRecord},
		{"duplicate", "rec\t8\na\tZ4\t0\na\tZ4\t4\n", 2, errs.ErrDuplicateField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.text))
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, errs.ErrLayout)

			var le *errs.LayoutError
			require.True(t, errors.As(err, &le))
			require.Equal(t, tt.row, le.Row)
		})
	}
}

func TestDumpFileLoadFile(t *testing.T) {
	l := sampleLayout(t)
	path := filepath.Join(t.TempDir(), "layout.tsv")

	require.NoError(t, l.DumpFile(path, true, true))

	back, err := LoadFile(path)
	require.NoError(t, err)
	require.True(t, l.Equal(back))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.tsv"))
	require.ErrorIs(t, err, errs.ErrIO)
}

func TestEqual(t *testing.T) {
	a := sampleLayout(t)
	b := sampleLayout(t)
	require.True(t, a.Equal(b))

	c, err := New("ctrl_state", 48, a.AllFields()[:3])
	require.NoError(t, err)
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(nil))
}

func TestSearch(t *testing.T) {
	l := sampleLayout(t)

	got, err := l.Search("POS.*", SearchGlob)
	require.NoError(t, err)
	require.Equal(t, []string{"ctrl.pos.x", "ctrl.pos.y"}, got)

	// '.' is literal in glob mode
	got, err = l.Search("ctrl.m", SearchGlob)
	require.NoError(t, err)
	require.Equal(t, []string{"ctrl.mode"}, got)

	got, err = l.Search("gain[2]", SearchGlob)
	require.NoError(t, err)
	require.Equal(t, []string{"ctrl.gain[2]"}, got)

	got, err = l.Search(`^ctrl\.(mode|count)$`, SearchRegexp)
	require.NoError(t, err)
	require.Equal(t, []string{"ctrl.mode", "ctrl.count"}, got)

	// pointer fields are never matched
	got, err = l.Search("next", SearchGlob)
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = l.Search("(", SearchRegexp)
	require.Error(t, err)
}

func TestSearchFoldsASCIIOnly(t *testing.T) {
	l, err := New("rec", 16, []Field{
		{Name: "\u212Aelvin", Code: format.Z4, Offset: 0},
		{Name: "\u017Fpeed", Code: format.Z4, Offset: 4},
		{Name: "Kelvin.Speed", Code: format.Z4, Offset: 8},
		{Name: "speed", Code: format.Z4, Offset: 12},
	})
	require.NoError(t, err)

	for _, mode := range []SearchMode{SearchGlob, SearchRegexp} {
		got, err := l.Search("kelvin", mode)
		require.NoError(t, err)
		require.Equal(t, []string{"Kelvin.Speed"}, got, mode)

		got, err = l.Search("SPEED", mode)
		require.NoError(t, err)
		require.Equal(t, []string{"Kelvin.Speed", "speed"}, got, mode)
	}

	// escapes and flags keep their meaning
	got, err := l.Search(`^\p{Lu}`, SearchRegexp)
	require.NoError(t, err)
	require.Equal(t, []string{"\u212Aelvin"}, got)

	got, err = l.Search(`\PL`, SearchRegexp)
	require.NoError(t, err)
	require.Equal(t, []string{"Kelvin.Speed"}, got)

	got, err = l.Search(`\AS\S*$`, SearchRegexp)
	require.NoError(t, err)
	require.Equal(t, []string{"speed"}, got)

	got, err = l.Search(`(?U)^(?P<Head>K.+)\.`, SearchRegexp)
	require.NoError(t, err)
	require.Equal(t, []string{"Kelvin.Speed"}, got)

	got, err = l.Search(`\p{Greek}`, SearchRegexp)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSelect(t *testing.T) {
	l := sampleLayout(t)

	got, err := l.Select("status", "*.x", "ctrl.mode")
	require.NoError(t, err)
	require.Equal(t, []string{"ctrl.mode", "ctrl.pos.x", "status"}, got)

	got, err = l.Select()
	require.NoError(t, err)
	require.Equal(t, l.Names(), got)
}
