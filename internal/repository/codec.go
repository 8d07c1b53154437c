package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/voidview/internal/tabular"
	"github.com/spf13/cast"
)

// Cells are strings on disk; these helpers are the only place that knows how
// typed fields are spelled there. Empty cells are null.

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func formatOptTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTime(cell string) (time.Time, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, cell); err == nil {
		return t, nil
	}
	// hand-edited sheets carry local ISO timestamps without an offset
	return cast.ToTimeE(cell)
}

func parseOptTime(cell string) (*time.Time, error) {
	if strings.TrimSpace(cell) == "" {
		return nil, nil
	}
	t, err := parseTime(cell)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseBool(cell string) (bool, error) {
	if strings.TrimSpace(cell) == "" {
		return false, nil
	}
	return cast.ToBoolE(strings.TrimSpace(cell))
}

func formatBool(b bool) string { return cast.ToString(b) }

func parseID(cell string) (int64, error) {
	id, ok := tabular.ParseID(cell)
	if !ok {
		return 0, fmt.Errorf("bad id %q", cell)
	}
	return id, nil
}

func parseOptID(cell string) (*int64, error) {
	if strings.TrimSpace(cell) == "" {
		return nil, nil
	}
	id, err := parseID(cell)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func formatOptID(id *int64) string {
	if id == nil {
		return ""
	}
	return tabular.FormatID(*id)
}

func optString(cell string) *string {
	if cell == "" {
		return nil
	}
	s := cell
	return &s
}

func formatOptString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// decodeErr tags a row decoding failure with the table and raw key.
func decodeErr(table string, rec tabular.Record, err error) error {
	key := ""
	for _, k := range []string{"id", "experiment_id"} {
		if v, ok := rec[k]; ok {
			key = v
			break
		}
	}
	return fmt.Errorf("decode %s row %q: %w", table, key, err)
}
