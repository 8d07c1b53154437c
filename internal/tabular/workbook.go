package tabular

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// readWorkbook loads every sheet of path into a Set laid out by schemas.
// Tables missing from the file are created empty from their schema; sheets
// the schema does not know are carried along so a save does not drop them.
func readWorkbook(path string, schemas []TableSchema) (*Set, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheets := make(map[string][][]string)
	var order []string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s/%s: %w", filepath.Base(path), name, err)
		}
		sheets[name] = rows
		order = append(order, name)
	}

	set := &Set{seq: make(map[string]int64)}
	known := map[string]bool{sequencesTable: true}
	for _, sc := range schemas {
		known[sc.Name] = true
		set.tables = append(set.tables, tableFromRows(sc.Name, sc.Keyed, sc.Columns, sheets[sc.Name]))
	}
	for _, name := range order {
		if known[name] {
			continue
		}
		set.tables = append(set.tables, tableFromRows(name, false, nil, sheets[name]))
	}
	if rows, ok := sheets[sequencesTable]; ok && len(rows) > 1 {
		set.loadSequences(rows[1:])
	}
	return set, nil
}

func tableFromRows(name string, keyed bool, columns []string, rows [][]string) *Table {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return NewTable(name, keyed, columns...)
	}
	t := NewTable(name, keyed, rows[0]...)
	for _, row := range rows[1:] {
		r := make([]string, len(row))
		copy(r, row)
		t.rows = append(t.rows, r)
	}
	return t
}

// writeWorkbook serializes set to path. The workbook is written to a temp
// file in the same directory and renamed over the target, so a crash leaves
// either the old or the new file on disk.
func writeWorkbook(path string, set *Set) (err error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	first := f.GetSheetName(0)
	for i, t := range set.tables {
		if i == 0 {
			if err := f.SetSheetName(first, t.Name); err != nil {
				return fmt.Errorf("rename sheet %s: %w", t.Name, err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", t.Name, err)
		}
		if err := writeRows(f, t.Name, t.Header, t.rows); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(sequencesTable); err != nil {
		return fmt.Errorf("create sheet %s: %w", sequencesTable, err)
	}
	if err := writeRows(f, sequencesTable, sequencesHeader, set.sequenceRows()); err != nil {
		return err
	}
	if err := f.SetSheetVisible(sequencesTable, false); err != nil {
		return fmt.Errorf("hide sheet %s: %w", sequencesTable, err)
	}
	f.SetActiveSheet(0)

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.xlsx")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = f.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeRows(f *excelize.File, sheet string, header []string, rows [][]string) error {
	all := make([][]string, 0, len(rows)+1)
	all = append(all, header)
	all = append(all, rows...)
	for i := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &all[i]); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
