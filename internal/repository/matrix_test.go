package repository

import (
	"context"
	"testing"

	"github.com/jmehdipour/voidview/internal/model"
	"github.com/stretchr/testify/require"
)

func TestMatrix_Build(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	customers := NewCustomersRepository(b)
	apps := NewAppsRepository(b)
	templates := NewTemplatesRepository(b)
	experiments := NewExperimentsRepository(b)

	acme, err := customers.Create(ctx, model.NewCustomer{Name: "Acme"})
	require.NoError(t, err)
	player, err := apps.Create(ctx, model.NewApp{CustomerID: acme.ID, Name: "Player"})
	require.NoError(t, err)
	hd5, err := templates.Create(ctx, model.NewTemplate{AppID: player.ID, Name: "hd5"})
	require.NoError(t, err)
	// template of an app that does not exist
	_, err = templates.Create(ctx, model.NewTemplate{AppID: 99, Name: "lost"})
	require.NoError(t, err)

	expA, err := experiments.Create(ctx, model.NewExperiment{Name: "exp-A", TemplateIDs: []int64{hd5.ID}, CreatedBy: 1})
	require.NoError(t, err)
	unlinked, err := experiments.Create(ctx, model.NewExperiment{Name: "exp-B", CreatedBy: 1})
	require.NoError(t, err)

	m, err := NewMatrixRepository(b).Build(ctx)
	require.NoError(t, err)

	require.Len(t, m.Rows, 1)
	row := m.Rows[0]
	require.Equal(t, "Acme", row.CustomerName)
	require.Equal(t, "Player", row.AppName)
	require.Equal(t, "hd5", row.TemplateName)
	require.Equal(t, map[int64]model.ExperimentBrief{
		expA.ID: {ID: expA.ID, Name: "exp-A", Status: model.StatusDraft, Color: model.PaletteColor(expA.ID)},
	}, row.Experiments)

	require.Len(t, m.Experiments, 2)
	require.Equal(t, unlinked.ID, m.Experiments[1].ID)
}

func TestMatrix_AfterDeletes(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	customers := NewCustomersRepository(b)
	apps := NewAppsRepository(b)
	templates := NewTemplatesRepository(b)
	experiments := NewExperimentsRepository(b)

	acme, err := customers.Create(ctx, model.NewCustomer{Name: "Acme"})
	require.NoError(t, err)
	player, err := apps.Create(ctx, model.NewApp{CustomerID: acme.ID, Name: "Player"})
	require.NoError(t, err)
	hd5, err := templates.Create(ctx, model.NewTemplate{AppID: player.ID, Name: "hd5"})
	require.NoError(t, err)
	uhd, err := templates.Create(ctx, model.NewTemplate{AppID: player.ID, Name: "uhd"})
	require.NoError(t, err)
	exp, err := experiments.Create(ctx, model.NewExperiment{Name: "exp", TemplateIDs: []int64{hd5.ID, uhd.ID}, CreatedBy: 1})
	require.NoError(t, err)

	// a deleted template leaves its link behind but no row
	require.NoError(t, templates.Delete(ctx, uhd.ID))
	m, err := NewMatrixRepository(b).Build(ctx)
	require.NoError(t, err)
	require.Len(t, m.Rows, 1)
	require.Contains(t, m.Rows[0].Experiments, exp.ID)

	// a deleted experiment disappears from every cell
	require.NoError(t, experiments.Delete(ctx, exp.ID))
	m, err = NewMatrixRepository(b).Build(ctx)
	require.NoError(t, err)
	require.Empty(t, m.Rows[0].Experiments)
	require.Empty(t, m.Experiments)

	// a deleted customer drops the whole path
	require.NoError(t, customers.Delete(ctx, acme.ID))
	m, err = NewMatrixRepository(b).Build(ctx)
	require.NoError(t, err)
	require.Empty(t, m.Rows)
}

func TestBuildMatrix_Join(t *testing.T) {
	customers := []model.Customer{{ID: 1, Name: "Acme"}, {ID: 2, Name: "Beta"}}
	apps := []model.App{{ID: 10, CustomerID: 1, Name: "Player"}, {ID: 11, CustomerID: 3, Name: "Orphan"}}
	templates := []model.Template{
		{ID: 100, AppID: 10, Name: "hd5"},
		{ID: 101, AppID: 11, Name: "lost"},
		{ID: 102, AppID: 10, Name: "uhd"},
	}
	experiments := []model.Experiment{
		{ID: 1, Name: "exp-A", Status: model.StatusRunning},
		{ID: 2, Name: "exp-B", Status: model.StatusDraft, Color: "#123456"},
	}
	links := []MatrixLink{
		{ExperimentID: 1, TemplateID: 100},
		{ExperimentID: 2, TemplateID: 100},
		{ExperimentID: 9, TemplateID: 100},
		{ExperimentID: 1, TemplateID: 101},
	}

	m := BuildMatrix(customers, apps, templates, experiments, links)
	require.Len(t, m.Rows, 2)

	hd5 := m.Rows[0]
	require.Equal(t, int64(100), hd5.TemplateID)
	require.Equal(t, int64(1), hd5.CustomerID)
	require.Len(t, hd5.Experiments, 2)
	require.Equal(t, model.Palette[1], hd5.Experiments[1].Color)
	require.Equal(t, "#123456", hd5.Experiments[2].Color)

	uhd := m.Rows[1]
	require.Equal(t, int64(102), uhd.TemplateID)
	require.NotNil(t, uhd.Experiments)
	require.Empty(t, uhd.Experiments)

	require.Equal(t, model.Palette[1], m.Experiments[0].Color)
}

func TestBuildMatrix_Empty(t *testing.T) {
	m := BuildMatrix(nil, nil, nil, nil, nil)
	require.NotNil(t, m.Rows)
	require.Empty(t, m.Rows)
	require.Empty(t, m.Experiments)
}
