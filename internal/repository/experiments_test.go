package repository

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/jmehdipour/voidview/internal/model"
	"github.com/jmehdipour/voidview/internal/tabular"
	"github.com/stretchr/testify/require"
)

func TestExperiments_CreateAssignsPaletteAndLinks(t *testing.T) {
	b := newBackend(t)
	repo := NewExperimentsRepository(b)
	ctx := context.Background()

	e, err := repo.Create(ctx, model.NewExperiment{Name: "exp-A", TemplateIDs: []int64{2, 1, 2}, CreatedBy: 1})
	require.NoError(t, err)
	require.Equal(t, int64(1), e.ID)
	require.Equal(t, model.Palette[1], e.Color)
	require.Equal(t, model.StatusDraft, e.Status)
	require.Equal(t, model.ReferenceNew, e.ReferenceType)
	require.Nil(t, e.UpdatedAt)
	require.Equal(t, []int64{2, 1}, e.TemplateIDs)

	detail, err := repo.GetDetail(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, "exp-A", detail.Name)
	require.Equal(t, []int64{2, 1}, detail.TemplateIDs)

	missing, err := repo.GetDetail(ctx, 99)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestExperiments_CreateValidation(t *testing.T) {
	repo := NewExperimentsRepository(newBackend(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, model.NewExperiment{Name: " ", CreatedBy: 1})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = repo.Create(ctx, model.NewExperiment{Name: "x"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = repo.Create(ctx, model.NewExperiment{Name: "x", CreatedBy: 1, Status: "paused"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = repo.Create(ctx, model.NewExperiment{Name: "x", CreatedBy: 1, ReferenceType: "other"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestExperiments_ColorFollowsIDAfterDelete(t *testing.T) {
	repo := NewExperimentsRepository(newBackend(t))
	ctx := context.Background()

	var last *model.ExperimentDetail
	for i := 0; i < 3; i++ {
		e, err := repo.Create(ctx, model.NewExperiment{Name: fmt.Sprintf("e%d", i), CreatedBy: 1})
		require.NoError(t, err)
		last = e
	}
	require.NoError(t, repo.Delete(ctx, last.ID))

	e, err := repo.Create(ctx, model.NewExperiment{Name: "again", CreatedBy: 1})
	require.NoError(t, err)
	require.Equal(t, int64(4), e.ID)
	require.Equal(t, model.PaletteColor(4), e.Color)
}

func TestExperiments_UpdateStampsUpdatedAt(t *testing.T) {
	repo := NewExperimentsRepository(newBackend(t))
	ctx := context.Background()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	e, err := repo.Create(ctx, model.NewExperiment{Name: "exp", CreatedBy: 1, ReferenceType: model.ReferenceSelf})
	require.NoError(t, err)

	repo.now = func() time.Time { return fixed }
	running := model.StatusRunning
	up, err := repo.Update(ctx, e.ID, model.ExperimentPatch{Status: &running})
	require.NoError(t, err)
	require.Equal(t, model.StatusRunning, up.Status)
	require.Equal(t, "exp", up.Name)
	require.Equal(t, model.ReferenceSelf, up.ReferenceType)
	require.True(t, up.UpdatedAt.Equal(fixed))

	// empty patch still stamps
	later := fixed.Add(time.Hour)
	repo.now = func() time.Time { return later }
	up, err = repo.Update(ctx, e.ID, model.ExperimentPatch{})
	require.NoError(t, err)
	require.True(t, up.UpdatedAt.Equal(later))

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.True(t, got.UpdatedAt.Equal(later))
	require.Equal(t, model.StatusRunning, got.Status)
}

func TestExperiments_ColorOverride(t *testing.T) {
	repo := NewExperimentsRepository(newBackend(t))
	ctx := context.Background()

	e, err := repo.Create(ctx, model.NewExperiment{Name: "exp", CreatedBy: 1})
	require.NoError(t, err)

	up, err := repo.Update(ctx, e.ID, model.ExperimentPatch{Color: strPtr("#000000")})
	require.NoError(t, err)
	require.Equal(t, "#000000", up.Color)

	up, err = repo.Update(ctx, e.ID, model.ExperimentPatch{Color: strPtr("")})
	require.NoError(t, err)
	require.Equal(t, model.PaletteColor(e.ID), up.Color)

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, model.PaletteColor(e.ID), got.Color)
}

func TestExperiments_UpdateErrors(t *testing.T) {
	repo := NewExperimentsRepository(newBackend(t))
	ctx := context.Background()

	_, err := repo.Update(ctx, 1, model.ExperimentPatch{Name: strPtr("x")})
	require.ErrorIs(t, err, ErrNotFound)

	e, err := repo.Create(ctx, model.NewExperiment{Name: "exp", CreatedBy: 1})
	require.NoError(t, err)
	bad := model.ExperimentStatus("paused")
	_, err = repo.Update(ctx, e.ID, model.ExperimentPatch{Status: &bad})
	require.ErrorIs(t, err, ErrInvalidInput)

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.Nil(t, got.UpdatedAt)
}

func TestExperiments_DeleteCascadesLinks(t *testing.T) {
	b := newBackend(t)
	repo := NewExperimentsRepository(b)
	links := NewLinksRepository(b)
	ctx := context.Background()

	e1, err := repo.Create(ctx, model.NewExperiment{Name: "one", TemplateIDs: []int64{1, 2}, CreatedBy: 1})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.NewExperiment{Name: "two", TemplateIDs: []int64{1}, CreatedBy: 1})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, e1.ID))
	require.ErrorIs(t, repo.Delete(ctx, e1.ID), ErrNotFound)

	ids, err := links.ExperimentIDs(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{2}, ids)
	ids, err = links.TemplateIDs(ctx, e1.ID)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestExperiments_ListFiltersAndPages(t *testing.T) {
	repo := NewExperimentsRepository(newBackend(t))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		in := model.NewExperiment{Name: fmt.Sprintf("e%d", i), CreatedBy: 1}
		if i%2 == 0 {
			in.TemplateIDs = []int64{7}
			in.Status = model.StatusRunning
		}
		_, err := repo.Create(ctx, in)
		require.NoError(t, err)
	}

	page, total, err := repo.List(ctx, model.ExperimentFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page, 2)
	require.Equal(t, "e3", page[0].Name)

	page, total, err = repo.List(ctx, model.ExperimentFilter{TemplateID: idPtr(7)})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, []string{"e2", "e4"}, []string{page[0].Name, page[1].Name})

	draft := model.StatusDraft
	_, total, err = repo.List(ctx, model.ExperimentFilter{Status: &draft})
	require.NoError(t, err)
	require.Equal(t, 3, total)

	running := model.StatusRunning
	_, total, err = repo.List(ctx, model.ExperimentFilter{TemplateID: idPtr(7), Status: &running})
	require.NoError(t, err)
	require.Equal(t, 2, total)

	page, total, err = repo.List(ctx, model.ExperimentFilter{Page: 9, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.NotNil(t, page)
	require.Empty(t, page)

	page, _, err = repo.List(ctx, model.ExperimentFilter{Page: 0, PageSize: 0})
	require.NoError(t, err)
	require.Len(t, page, 5)
}

func TestExperiments_ListHugePage(t *testing.T) {
	repo := NewExperimentsRepository(newBackend(t))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := repo.Create(ctx, model.NewExperiment{Name: fmt.Sprintf("e%d", i), CreatedBy: 1})
		require.NoError(t, err)
	}

	page, total, err := repo.List(ctx, model.ExperimentFilter{Page: math.MaxInt, PageSize: 20})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Empty(t, page)

	page, _, err = repo.List(ctx, model.ExperimentFilter{Page: 1, PageSize: math.MaxInt})
	require.NoError(t, err)
	require.Len(t, page, 3)
}

func TestPageBounds(t *testing.T) {
	cases := []struct {
		total, page, size int
		start, end        int
	}{
		{total: 5, page: 1, size: 2, start: 0, end: 2},
		{total: 5, page: 3, size: 2, start: 4, end: 5},
		{total: 5, page: 4, size: 2, start: 5, end: 5},
		{total: 0, page: 1, size: 20, start: 0, end: 0},
		{total: 5, page: math.MaxInt, size: 20, start: 5, end: 5},
		{total: 5, page: 2, size: math.MaxInt, start: 5, end: 5},
		{total: 5, page: 1, size: math.MaxInt, start: 0, end: 5},
	}
	for _, tc := range cases {
		start, end := PageBounds(tc.total, tc.page, tc.size)
		require.Equal(t, tc.start, start, "%+v", tc)
		require.Equal(t, tc.end, end, "%+v", tc)
	}
}

func TestExperiments_BlankColorCellDecodesToPalette(t *testing.T) {
	b := newBackend(t)
	repo := NewExperimentsRepository(b)
	ctx := context.Background()

	e, err := repo.Create(ctx, model.NewExperiment{Name: "exp", CreatedBy: 1})
	require.NoError(t, err)

	// simulate a hand-edited sheet with the color cell cleared
	require.NoError(t, b.Update(ctx, tabular.FileExperiments, func(set *tabular.Set) error {
		tbl, err := set.Table(tabular.TableExperiments)
		if err != nil {
			return err
		}
		return tbl.Update(tbl.FindRow(e.ID), tabular.Record{"color": ""})
	}))

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, model.PaletteColor(e.ID), got.Color)
}
