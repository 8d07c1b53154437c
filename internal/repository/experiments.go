package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/voidview/internal/model"
	"github.com/jmehdipour/voidview/internal/tabular"
	"github.com/jmehdipour/voidview/internal/util"
)

const DefaultPageSize = 20

type ExperimentsRepository interface {
	// List filters in memory and returns the requested page plus the total
	// number of matches.
	List(ctx context.Context, f model.ExperimentFilter) ([]model.Experiment, int, error)
	GetByID(ctx context.Context, id int64) (*model.Experiment, error)
	GetDetail(ctx context.Context, id int64) (*model.ExperimentDetail, error)
	Create(ctx context.Context, in model.NewExperiment) (*model.ExperimentDetail, error)
	Update(ctx context.Context, id int64, patch model.ExperimentPatch) (*model.Experiment, error)
	// Delete removes the experiment and all of its template links.
	Delete(ctx context.Context, id int64) error
}

type ExperimentsRepositoryImpl struct {
	b   *tabular.Backend
	now func() time.Time
}

func NewExperimentsRepository(b *tabular.Backend) *ExperimentsRepositoryImpl {
	return &ExperimentsRepositoryImpl{b: b, now: time.Now}
}

var _ ExperimentsRepository = (*ExperimentsRepositoryImpl)(nil)

func decodeExperiment(rec tabular.Record) (model.Experiment, error) {
	var (
		e   model.Experiment
		err error
	)
	if e.ID, err = parseID(rec["id"]); err != nil {
		return e, err
	}
	e.Name = rec["name"]
	e.Status = model.ExperimentStatus(rec["status"])
	e.ReferenceType = model.ReferenceType(rec["reference_type"])
	e.Color = rec["color"]
	if e.Color == "" {
		e.Color = model.PaletteColor(e.ID)
	}
	if e.CreatedAt, err = parseTime(rec["created_at"]); err != nil {
		return e, err
	}
	if e.CreatedBy, err = parseID(rec["created_by"]); err != nil {
		return e, err
	}
	if e.UpdatedAt, err = parseOptTime(rec["updated_at"]); err != nil {
		return e, err
	}
	return e, nil
}

func encodeExperiment(e model.Experiment) tabular.Record {
	return tabular.Record{
		"id":             tabular.FormatID(e.ID),
		"name":           e.Name,
		"status":         e.Status.String(),
		"reference_type": e.ReferenceType.String(),
		"color":          e.Color,
		"created_at":     formatTime(e.CreatedAt),
		"created_by":     tabular.FormatID(e.CreatedBy),
		"updated_at":     formatOptTime(e.UpdatedAt),
	}
}

// experimentTables resolves the two tables every experiment operation needs.
func experimentTables(set *tabular.Set) (exps, links *tabular.Table, err error) {
	if exps, err = set.Table(tabular.TableExperiments); err != nil {
		return nil, nil, err
	}
	if links, err = set.Table(tabular.TableExperimentTemplates); err != nil {
		return nil, nil, err
	}
	return exps, links, nil
}

func (r *ExperimentsRepositoryImpl) List(ctx context.Context, f model.ExperimentFilter) ([]model.Experiment, int, error) {
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	var matched []model.Experiment
	err := r.b.View(ctx, tabular.FileExperiments, func(set *tabular.Set) error {
		exps, links, err := experimentTables(set)
		if err != nil {
			return err
		}
		all, err := decodeTable(exps, decodeExperiment)
		if err != nil {
			return err
		}

		var linked map[int64]bool
		if f.TemplateID != nil {
			linked = make(map[int64]bool)
			for _, id := range experimentIDsOf(links, *f.TemplateID) {
				linked[id] = true
			}
		}
		for _, e := range all {
			if linked != nil && !linked[e.ID] {
				continue
			}
			if f.Status != nil && e.Status != *f.Status {
				continue
			}
			matched = append(matched, e)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	start, end := PageBounds(len(matched), page, size)
	if start == end {
		return []model.Experiment{}, len(matched), nil
	}
	return matched[start:end], len(matched), nil
}

// PageBounds returns the slice bounds of page (1-based) over total items.
// Pages past the end, however large, give an empty range.
func PageBounds(total, page, size int) (start, end int) {
	if total <= 0 || page < 1 || size < 1 {
		return 0, 0
	}
	pages := (total-1)/size + 1
	if page-1 >= pages {
		return total, total
	}
	start = (page - 1) * size
	end = total
	if total-start > size {
		end = start + size
	}
	return start, end
}

func (r *ExperimentsRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.Experiment, error) {
	return viewByID(ctx, r.b, tabular.FileExperiments, tabular.TableExperiments, id, decodeExperiment)
}

func (r *ExperimentsRepositoryImpl) GetDetail(ctx context.Context, id int64) (*model.ExperimentDetail, error) {
	var out *model.ExperimentDetail
	err := r.b.View(ctx, tabular.FileExperiments, func(set *tabular.Set) error {
		exps, links, err := experimentTables(set)
		if err != nil {
			return err
		}
		e, _, err := decodeRow(exps, id, decodeExperiment)
		if err != nil || e == nil {
			return err
		}
		out = &model.ExperimentDetail{Experiment: *e, TemplateIDs: templateIDsOf(links, id)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Create allocates the id, derives the palette color from it, and writes the
// experiment together with its template links. Template ids are not checked.
func (r *ExperimentsRepositoryImpl) Create(ctx context.Context, in model.NewExperiment) (*model.ExperimentDetail, error) {
	name := util.NormalizeName(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: experiment name is required", ErrInvalidInput)
	}
	if in.CreatedBy <= 0 {
		return nil, fmt.Errorf("%w: created_by is required", ErrInvalidInput)
	}
	status := in.Status
	if status == "" {
		status = model.StatusDraft
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidInput, in.Status)
	}
	ref := in.ReferenceType
	if ref == "" {
		ref = model.ReferenceNew
	}
	if !ref.Valid() {
		return nil, fmt.Errorf("%w: reference_type %q", ErrInvalidInput, in.ReferenceType)
	}

	var out model.ExperimentDetail
	err := r.b.Update(ctx, tabular.FileExperiments, func(set *tabular.Set) error {
		exps, links, err := experimentTables(set)
		if err != nil {
			return err
		}
		id := set.AllocateID(exps)
		e := model.Experiment{
			ID:            id,
			Name:          name,
			Status:        status,
			ReferenceType: ref,
			Color:         model.PaletteColor(id),
			CreatedAt:     r.now().UTC(),
			CreatedBy:     in.CreatedBy,
		}
		if err := appendRow(exps, encodeExperiment(e)); err != nil {
			return err
		}
		if _, err := linkTemplates(links, id, in.TemplateIDs); err != nil {
			return err
		}

		out = model.ExperimentDetail{Experiment: e, TemplateIDs: templateIDsOf(links, id)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update merges the patch and always stamps updated_at.
func (r *ExperimentsRepositoryImpl) Update(ctx context.Context, id int64, p model.ExperimentPatch) (*model.Experiment, error) {
	var out *model.Experiment
	err := r.b.Update(ctx, tabular.FileExperiments, func(set *tabular.Set) error {
		exps, err := set.Table(tabular.TableExperiments)
		if err != nil {
			return err
		}
		cur, i, err := decodeRow(exps, id, decodeExperiment)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: experiment %d", ErrNotFound, id)
		}

		fields := tabular.Record{}
		if p.Name != nil {
			name := util.NormalizeName(*p.Name)
			if name == "" {
				return fmt.Errorf("%w: experiment name is required", ErrInvalidInput)
			}
			cur.Name = name
			fields["name"] = name
		}
		if p.Status != nil {
			if !p.Status.Valid() {
				return fmt.Errorf("%w: status %q", ErrInvalidInput, *p.Status)
			}
			cur.Status = *p.Status
			fields["status"] = cur.Status.String()
		}
		if p.ReferenceType != nil {
			if !p.ReferenceType.Valid() {
				return fmt.Errorf("%w: reference_type %q", ErrInvalidInput, *p.ReferenceType)
			}
			cur.ReferenceType = *p.ReferenceType
			fields["reference_type"] = cur.ReferenceType.String()
		}
		if p.Color != nil {
			// blank clears the override and falls back to the palette
			fields["color"] = strings.TrimSpace(*p.Color)
			cur.Color = fields["color"]
			if cur.Color == "" {
				cur.Color = model.PaletteColor(cur.ID)
			}
		}
		now := r.now().UTC()
		cur.UpdatedAt = &now
		fields["updated_at"] = formatTime(now)

		out = cur
		return updateRow(exps, i, fields)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ExperimentsRepositoryImpl) Delete(ctx context.Context, id int64) error {
	return r.b.Update(ctx, tabular.FileExperiments, func(set *tabular.Set) error {
		exps, links, err := experimentTables(set)
		if err != nil {
			return err
		}
		i := exps.FindRow(id)
		if i < 0 {
			return fmt.Errorf("%w: experiment %d", ErrNotFound, id)
		}
		if err := exps.DeleteRow(i); err != nil {
			return err
		}
		removeLinks(links, func(l link) bool { return l.experimentID == id })
		return nil
	})
}
