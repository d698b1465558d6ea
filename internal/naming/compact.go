// Package naming implements the prefix-sharing compaction of dotted field names.
//
// A compacted entry "<k>/<suffix>" means: keep the first k dot-separated segments
// of the previous expanded name and append the segments of suffix. Entries without
// a "<digits>/" prefix are full names. Both directions are folds over the name
// sequence, so names must be processed in declaration order.
package naming

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/structarray/errs"
)

const separator = "."

// Compactor turns full names into compacted entries.
//
// The zero value is ready to use. A Compactor is not safe for concurrent use.
type Compactor struct {
	prev []string
}

// Next returns the compacted form of name relative to the previous name.
func (c *Compactor) Next(name string) string {
	segs := strings.Split(name, separator)

	q := 0
	for q < len(c.prev) && q < len(segs) && c.prev[q] == segs[q] {
		q++
	}
	// at least one segment stays in the suffix, otherwise "k/" would expand to a
	// trailing empty segment
	if q == len(segs) {
		q--
	}

	c.prev = segs
	if q == 0 {
		return Escape(name)
	}

	return strconv.Itoa(q) + "/" + strings.Join(segs[q:], separator)
}

// Reset forgets the previous name.
func (c *Compactor) Reset() {
	c.prev = nil
}

// Expander turns compacted entries back into full names.
//
// The zero value is ready to use. An Expander is not safe for concurrent use.
type Expander struct {
	prev []string
}

// Next expands entry against the previous expanded name.
//
// It fails with errs.ErrUndefinedReference when entry reuses more segments than
// the previous name has, or when there is no previous name at all.
func (e *Expander) Next(entry string) (string, error) {
	k, suffix, ok := splitEntry(entry)
	if !ok {
		e.prev = strings.Split(entry, separator)
		return entry, nil
	}

	if k > len(e.prev) {
		return "", fmt.Errorf("%w: %q reuses %d segments, previous name has %d",
			errs.ErrUndefinedReference, entry, k, len(e.prev))
	}

	segs := make([]string, 0, k+strings.Count(suffix, separator)+1)
	segs = append(segs, e.prev[:k]...)
	segs = append(segs, strings.Split(suffix, separator)...)
	e.prev = segs

	return strings.Join(segs, separator), nil
}

// Reset forgets the previous name.
func (e *Expander) Reset() {
	e.prev = nil
}

// Escape returns name in a form an Expander reads back unchanged. A name that
// reads as a reference gets an empty "0/" prefix; any other name is returned as is.
func Escape(name string) string {
	if IsCompacted(name) {
		return "0/" + name
	}

	return name
}

// IsCompacted reports whether entry uses the "<k>/<suffix>" form.
func IsCompacted(entry string) bool {
	_, _, ok := splitEntry(entry)
	return ok
}

// splitEntry parses "<k>/<suffix>" with k made of ASCII digits only.
func splitEntry(entry string) (int, string, bool) {
	head, suffix, found := strings.Cut(entry, "/")
	if !found || head == "" {
		return 0, "", false
	}

	for i := 0; i < len(head); i++ {
		if head[i] < '0' || head[i] > '9' {
			return 0, "", false
		}
	}

	k, err := strconv.Atoi(head)
	if err != nil {
		return 0, "", false
	}

	return k, suffix, true
}

// Compact compacts an ordered list of names.
func Compact(names []string) []string {
	var c Compactor

	out := make([]string, len(names))
	for i, name := range names {
		out[i] = c.Next(name)
	}

	return out
}

// Expand undoes Compact.
func Expand(entries []string) ([]string, error) {
	var e Expander

	out := make([]string, len(entries))
	for i, entry := range entries {
		name, err := e.Next(entry)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out[i] = name
	}

	return out, nil
}
