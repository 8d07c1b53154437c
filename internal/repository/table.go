package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmehdipour/voidview/internal/tabular"
)

// Shared plumbing for the id-keyed tables. Everything here runs inside a
// single View or Update cycle, so row positions never outlive the lock.

type decodeFunc[T any] func(tabular.Record) (T, error)

func decodeTable[T any](t *tabular.Table, decode decodeFunc[T]) ([]T, error) {
	recs := t.Records()
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := decode(rec)
		if err != nil {
			return nil, decodeErr(t.Name, rec, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// decodeRow resolves id to its current row. It returns (nil, -1, nil) when
// the id is absent.
func decodeRow[T any](t *tabular.Table, id int64, decode decodeFunc[T]) (*T, int, error) {
	i := t.FindRow(id)
	if i < 0 {
		return nil, -1, nil
	}
	rec, ok := t.Record(i)
	if !ok {
		return nil, -1, nil
	}
	v, err := decode(rec)
	if err != nil {
		return nil, -1, decodeErr(t.Name, rec, err)
	}
	return &v, i, nil
}

// appendRow and updateRow report values the workbook cannot hold unchanged
// as ErrInvalidInput.
func appendRow(t *tabular.Table, rec tabular.Record) error {
	return cellErr(t.Append(rec))
}

func updateRow(t *tabular.Table, i int, fields tabular.Record) error {
	return cellErr(t.Update(i, fields))
}

func cellErr(err error) error {
	if errors.Is(err, tabular.ErrInvalidCell) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}

func viewList[T any](ctx context.Context, b *tabular.Backend, file tabular.File, table string, decode decodeFunc[T], keep func(T) bool) ([]T, error) {
	var out []T
	err := b.View(ctx, file, func(set *tabular.Set) error {
		t, err := set.Table(table)
		if err != nil {
			return err
		}
		all, err := decodeTable(t, decode)
		if err != nil {
			return err
		}
		out = make([]T, 0, len(all))
		for _, v := range all {
			if keep == nil || keep(v) {
				out = append(out, v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func viewFirst[T any](ctx context.Context, b *tabular.Backend, file tabular.File, table string, decode decodeFunc[T], match func(T) bool) (*T, error) {
	all, err := viewList(ctx, b, file, table, decode, match)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return &all[0], nil
}

func viewByID[T any](ctx context.Context, b *tabular.Backend, file tabular.File, table string, id int64, decode decodeFunc[T]) (*T, error) {
	var out *T
	err := b.View(ctx, file, func(set *tabular.Set) error {
		t, err := set.Table(table)
		if err != nil {
			return err
		}
		out, _, err = decodeRow(t, id, decode)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func deleteByID(ctx context.Context, b *tabular.Backend, file tabular.File, table string, id int64, what string) error {
	return b.Update(ctx, file, func(set *tabular.Set) error {
		t, err := set.Table(table)
		if err != nil {
			return err
		}
		i := t.FindRow(id)
		if i < 0 {
			return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
		}
		return t.DeleteRow(i)
	})
}
