// Package tabular is the persistence layer of the storage engine: named tables
// of string cells, grouped into workbook files that are loaded, mutated and
// rewritten as a whole under a per-file lock.
package tabular

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNoTable     = errors.New("table not found")
	ErrUnknownFile = errors.New("unknown storage file")
)

// Record maps header names to cell values for a single row.
// An absent key means "not provided"; an empty value means null.
type Record map[string]string

// Table is a header row followed by data rows. Row positions are only valid
// until the next structural change; callers resolve them by id each time.
type Table struct {
	Name   string
	Header []string
	Keyed  bool
	rows   [][]string
}

func NewTable(name string, keyed bool, header ...string) *Table {
	h := make([]string, len(header))
	copy(h, header)
	return &Table{Name: name, Header: h, Keyed: keyed}
}

func (t *Table) Len() int { return len(t.rows) }

// Column returns the index of a header name, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Record returns row i keyed by header. ok is false when i is past the end or
// the key cell is blank, which marks a row as empty.
func (t *Table) Record(i int) (Record, bool) {
	if i < 0 || i >= len(t.rows) {
		return nil, false
	}
	row := t.rows[i]
	if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
		return nil, false
	}
	rec := make(Record, len(t.Header))
	for j, h := range t.Header {
		if j < len(row) {
			rec[h] = row[j]
		} else {
			rec[h] = ""
		}
	}
	return rec, true
}

// Records returns every non-empty row in table order.
func (t *Table) Records() []Record {
	out := make([]Record, 0, len(t.rows))
	for i := range t.rows {
		if rec, ok := t.Record(i); ok {
			out = append(out, rec)
		}
	}
	return out
}

// ParseID reads a key cell. Keys are plain base-10 integers.
func ParseID(cell string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// FormatID is the inverse of ParseID.
func FormatID(id int64) string { return strconv.FormatInt(id, 10) }

// NextID returns max(existing ids)+1, or 1 for an empty table.
func (t *Table) NextID() int64 {
	var max int64
	for _, row := range t.rows {
		if len(row) == 0 {
			continue
		}
		if id, ok := ParseID(row[0]); ok && id > max {
			max = id
		}
	}
	return max + 1
}

// FindRow returns the position of the row whose key equals id, or -1.
func (t *Table) FindRow(id int64) int {
	for i, row := range t.rows {
		if len(row) == 0 {
			continue
		}
		if v, ok := ParseID(row[0]); ok && v == id {
			return i
		}
	}
	return -1
}

// Append adds a row built from rec; columns missing from rec are left blank.
// Nothing is added when a value fails CheckCell.
func (t *Table) Append(rec Record) error {
	if err := checkFields(t, rec); err != nil {
		return err
	}
	row := make([]string, len(t.Header))
	for j, h := range t.Header {
		row[j] = rec[h]
	}
	t.rows = append(t.rows, row)
	return nil
}

// Update overwrites the cells of row i named in fields. Other cells keep
// their values; names outside the header are ignored. The row is left as is
// when a value fails CheckCell.
func (t *Table) Update(i int, fields Record) error {
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("%s: row %d out of range", t.Name, i)
	}
	if err := checkFields(t, fields); err != nil {
		return err
	}
	row := t.rows[i]
	if len(row) < len(t.Header) {
		padded := make([]string, len(t.Header))
		copy(padded, row)
		row = padded
	}
	for j, h := range t.Header {
		if v, ok := fields[h]; ok {
			row[j] = v
		}
	}
	t.rows[i] = row
	return nil
}

// DeleteRow removes row i; later rows shift up by one.
func (t *Table) DeleteRow(i int) error {
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("%s: row %d out of range", t.Name, i)
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return nil
}

// DeleteWhere removes every non-empty row matching pred and reports how many
// were removed.
func (t *Table) DeleteWhere(pred func(Record) bool) int {
	kept := t.rows[:0]
	removed := 0
	for i, row := range t.rows {
		if rec, ok := t.Record(i); ok && pred(rec) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	t.rows = kept
	return removed
}

// Set is the in-memory image of one file: its tables in sheet order plus the
// id high-water marks.
type Set struct {
	tables []*Table
	seq    map[string]int64
}

func newSet(schemas []TableSchema) *Set {
	s := &Set{seq: make(map[string]int64)}
	for _, sc := range schemas {
		s.tables = append(s.tables, NewTable(sc.Name, sc.Keyed, sc.Columns...))
	}
	return s
}

// Table returns the named table.
func (s *Set) Table(name string) (*Table, error) {
	for _, t := range s.tables {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoTable, name)
}

// Tables returns the tables in sheet order.
func (s *Set) Tables() []*Table { return s.tables }
