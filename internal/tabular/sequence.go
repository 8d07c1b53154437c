package tabular

import "sort"

// sequencesTable is a hidden sheet holding the last id handed out per table.
const sequencesTable = "_sequences"

var sequencesHeader = []string{"table", "last_id"}

// AllocateID reserves the next id of a keyed table. It never returns an id
// that was handed out before, even when the row holding the current maximum
// has since been deleted.
func (s *Set) AllocateID(t *Table) int64 {
	id := t.NextID()
	if last := s.seq[t.Name]; last >= id {
		id = last + 1
	}
	s.seq[t.Name] = id
	return id
}

// LastID reports the high-water mark recorded for a table.
func (s *Set) LastID(table string) int64 { return s.seq[table] }

func (s *Set) loadSequences(rows [][]string) {
	for _, row := range rows {
		if len(row) < 2 || row[0] == "" {
			continue
		}
		if id, ok := ParseID(row[1]); ok {
			s.seq[row[0]] = id
		}
	}
}

func (s *Set) sequenceRows() [][]string {
	names := make([]string, 0, len(s.seq))
	for name := range s.seq {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, FormatID(s.seq[name])})
	}
	return rows
}
