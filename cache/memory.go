// Package cache provides field caches for record decoders.
//
// A field cache maps field names to decoded columns so that a field of a huge
// file-backed source is scanned once. Memory keeps columns for the lifetime of
// the process; Bolt persists them next to the record file. Both store identical
// columns once, keyed by content hash and verified byte for byte.
//
// Caches are append-only and owned by a single decoder: they are not safe for
// concurrent population.
package cache

import (
	"github.com/arloliu/structarray/column"
	"github.com/arloliu/structarray/format"
	"github.com/arloliu/structarray/internal/collision"
)

type slotRef struct {
	code format.Code
	slot int
}

// Memory is an in-process field cache.
type Memory struct {
	names  map[string]slotRef
	tables map[format.Code]*collision.Table[column.Column]
}

// NewMemory returns an empty memory cache.
func NewMemory() *Memory {
	return &Memory{
		names:  make(map[string]slotRef),
		tables: make(map[format.Code]*collision.Table[column.Column]),
	}
}

// Load returns the column stored for name.
func (m *Memory) Load(name string) (column.Column, bool, error) {
	ref, ok := m.names[name]
	if !ok {
		return column.Column{}, false, nil
	}

	return m.tables[ref.code].At(ref.slot), true, nil
}

// Store records col under name. A column equal to one already stored shares its
// storage.
func (m *Memory) Store(name string, col column.Column) error {
	t, ok := m.tables[col.Code()]
	if !ok {
		t = collision.NewTable[column.Column](nil)
		m.tables[col.Code()] = t
	}

	slot, _ := t.Intern(col.Bytes(), col)
	m.names[name] = slotRef{code: col.Code(), slot: slot}

	return nil
}

// Len returns the number of cached names.
func (m *Memory) Len() int {
	return len(m.names)
}

// Unique returns the number of distinct columns stored.
func (m *Memory) Unique() int {
	n := 0
	for _, t := range m.tables {
		n += t.Len()
	}

	return n
}
