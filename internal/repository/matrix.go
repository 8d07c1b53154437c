package repository

import (
	"context"

	"github.com/jmehdipour/voidview/internal/model"
	"github.com/jmehdipour/voidview/internal/tabular"
)

type MatrixRepository interface {
	// Build reads the entities file and then the experiments file. The two
	// reads are separate lock cycles; a write landing between them can show
	// up as an orphan, which the join drops.
	Build(ctx context.Context) (model.Matrix, error)
}

type MatrixRepositoryImpl struct {
	b *tabular.Backend
}

func NewMatrixRepository(b *tabular.Backend) *MatrixRepositoryImpl {
	return &MatrixRepositoryImpl{b: b}
}

var _ MatrixRepository = (*MatrixRepositoryImpl)(nil)

// MatrixLink is one experiment/template pair as stored.
type MatrixLink struct {
	ExperimentID int64
	TemplateID   int64
}

func (r *MatrixRepositoryImpl) Build(ctx context.Context) (model.Matrix, error) {
	var (
		customers []model.Customer
		apps      []model.App
		templates []model.Template
	)
	err := r.b.View(ctx, tabular.FileEntities, func(set *tabular.Set) error {
		t, err := set.Table(tabular.TableCustomers)
		if err != nil {
			return err
		}
		if customers, err = decodeTable(t, decodeCustomer); err != nil {
			return err
		}
		if t, err = set.Table(tabular.TableApps); err != nil {
			return err
		}
		if apps, err = decodeTable(t, decodeApp); err != nil {
			return err
		}
		if t, err = set.Table(tabular.TableTemplates); err != nil {
			return err
		}
		templates, err = decodeTable(t, decodeTemplate)
		return err
	})
	if err != nil {
		return model.Matrix{}, err
	}

	var (
		experiments []model.Experiment
		links       []MatrixLink
	)
	err = r.b.View(ctx, tabular.FileExperiments, func(set *tabular.Set) error {
		exps, lt, err := experimentTables(set)
		if err != nil {
			return err
		}
		if experiments, err = decodeTable(exps, decodeExperiment); err != nil {
			return err
		}
		for _, l := range readLinks(lt) {
			links = append(links, MatrixLink{ExperimentID: l.experimentID, TemplateID: l.templateID})
		}
		return nil
	})
	if err != nil {
		return model.Matrix{}, err
	}

	return BuildMatrix(customers, apps, templates, experiments, links), nil
}

// BuildMatrix joins templates to their app and customer and attaches the
// experiments linked to each template. Templates whose app or customer is gone
// are dropped, as are links to experiments that no longer exist. Rows follow
// template order.
func BuildMatrix(customers []model.Customer, apps []model.App, templates []model.Template,
	experiments []model.Experiment, links []MatrixLink) model.Matrix {
	customerByID := make(map[int64]model.Customer, len(customers))
	for _, c := range customers {
		customerByID[c.ID] = c
	}
	appByID := make(map[int64]model.App, len(apps))
	for _, a := range apps {
		appByID[a.ID] = a
	}
	expByID := make(map[int64]model.Experiment, len(experiments))
	for _, e := range experiments {
		if e.Color == "" {
			e.Color = model.PaletteColor(e.ID)
		}
		expByID[e.ID] = e
	}
	byTemplate := make(map[int64][]int64)
	for _, l := range links {
		byTemplate[l.TemplateID] = append(byTemplate[l.TemplateID], l.ExperimentID)
	}

	rows := make([]model.MatrixRow, 0, len(templates))
	for _, tp := range templates {
		app, ok := appByID[tp.AppID]
		if !ok {
			continue
		}
		customer, ok := customerByID[app.CustomerID]
		if !ok {
			continue
		}
		row := model.MatrixRow{
			CustomerID:   customer.ID,
			CustomerName: customer.Name,
			AppID:        app.ID,
			AppName:      app.Name,
			TemplateID:   tp.ID,
			TemplateName: tp.Name,
			Experiments:  make(map[int64]model.ExperimentBrief),
		}
		for _, expID := range byTemplate[tp.ID] {
			if e, ok := expByID[expID]; ok {
				row.Experiments[expID] = e.Brief()
			}
		}
		rows = append(rows, row)
	}

	all := make([]model.Experiment, 0, len(expByID))
	for _, e := range experiments {
		all = append(all, expByID[e.ID])
	}
	return model.Matrix{Rows: rows, Experiments: all}
}
