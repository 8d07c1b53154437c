package tabular

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ErrInvalidCell marks a value the workbook format cannot store as given.
var ErrInvalidCell = errors.New("value cannot be stored in a cell")

// CheckCell reports whether v survives a save unchanged. excelize truncates
// values past TotalCellChars runes and replaces characters XML 1.0 forbids,
// so both are rejected up front along with invalid UTF-8.
func CheckCell(v string) error {
	if !utf8.ValidString(v) {
		return fmt.Errorf("%w: invalid UTF-8", ErrInvalidCell)
	}
	if n := utf8.RuneCountInString(v); n > excelize.TotalCellChars {
		return fmt.Errorf("%w: %d characters, limit is %d", ErrInvalidCell, n, excelize.TotalCellChars)
	}
	for _, r := range v {
		if !xmlChar(r) {
			return fmt.Errorf("%w: control character %U", ErrInvalidCell, r)
		}
	}
	return nil
}

func xmlChar(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= utf8.MaxRune:
		return true
	}
	return false
}

func checkFields(t *Table, rec Record) error {
	for _, h := range t.Header {
		v, ok := rec[h]
		if !ok {
			continue
		}
		if err := CheckCell(v); err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name, h, err)
		}
	}
	return nil
}
