package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/voidview/internal/model"
	"github.com/jmehdipour/voidview/internal/tabular"
	"github.com/jmehdipour/voidview/internal/util"
)

type TemplatesRepository interface {
	// List returns every template, or only those of appID when it is set.
	List(ctx context.Context, appID *int64) ([]model.Template, error)
	GetByID(ctx context.Context, id int64) (*model.Template, error)
	GetByName(ctx context.Context, appID int64, name string) (*model.Template, error)
	Create(ctx context.Context, in model.NewTemplate) (*model.Template, error)
	Update(ctx context.Context, id int64, patch model.TemplatePatch) (*model.Template, error)
	Delete(ctx context.Context, id int64) error
}

type TemplatesRepositoryImpl struct {
	b   *tabular.Backend
	now func() time.Time
}

func NewTemplatesRepository(b *tabular.Backend) *TemplatesRepositoryImpl {
	return &TemplatesRepositoryImpl{b: b, now: time.Now}
}

var _ TemplatesRepository = (*TemplatesRepositoryImpl)(nil)

func decodeTemplate(rec tabular.Record) (model.Template, error) {
	id, err := parseID(rec["id"])
	if err != nil {
		return model.Template{}, err
	}
	appID, err := parseID(rec["app_id"])
	if err != nil {
		return model.Template{}, err
	}
	created, err := parseTime(rec["created_at"])
	if err != nil {
		return model.Template{}, err
	}
	return model.Template{
		ID:          id,
		AppID:       appID,
		Name:        rec["name"],
		Description: optString(rec["description"]),
		CreatedAt:   created,
	}, nil
}

func encodeTemplate(tp model.Template) tabular.Record {
	return tabular.Record{
		"id":          tabular.FormatID(tp.ID),
		"app_id":      tabular.FormatID(tp.AppID),
		"name":        tp.Name,
		"description": formatOptString(tp.Description),
		"created_at":  formatTime(tp.CreatedAt),
	}
}

func (r *TemplatesRepositoryImpl) List(ctx context.Context, appID *int64) ([]model.Template, error) {
	var keep func(model.Template) bool
	if appID != nil {
		keep = func(tp model.Template) bool { return tp.AppID == *appID }
	}
	return viewList(ctx, r.b, tabular.FileEntities, tabular.TableTemplates, decodeTemplate, keep)
}

func (r *TemplatesRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.Template, error) {
	return viewByID(ctx, r.b, tabular.FileEntities, tabular.TableTemplates, id, decodeTemplate)
}

func (r *TemplatesRepositoryImpl) GetByName(ctx context.Context, appID int64, name string) (*model.Template, error) {
	name = util.NormalizeName(name)
	return viewFirst(ctx, r.b, tabular.FileEntities, tabular.TableTemplates, decodeTemplate,
		func(tp model.Template) bool { return tp.AppID == appID && tp.Name == name })
}

func templateNameTaken(t *tabular.Table, appID int64, name string, skipID int64) (bool, error) {
	all, err := decodeTable(t, decodeTemplate)
	if err != nil {
		return false, err
	}
	for _, tp := range all {
		if tp.ID != skipID && tp.AppID == appID && tp.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Create does not check that the app exists; callers do.
func (r *TemplatesRepositoryImpl) Create(ctx context.Context, in model.NewTemplate) (*model.Template, error) {
	name := util.NormalizeName(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: template name is required", ErrInvalidInput)
	}
	if in.AppID <= 0 {
		return nil, fmt.Errorf("%w: app_id is required", ErrInvalidInput)
	}

	var out model.Template
	err := r.b.Update(ctx, tabular.FileEntities, func(set *tabular.Set) error {
		t, err := set.Table(tabular.TableTemplates)
		if err != nil {
			return err
		}
		taken, err := templateNameTaken(t, in.AppID, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: template %q for app %d", ErrDuplicate, name, in.AppID)
		}

		out = model.Template{
			ID:          set.AllocateID(t),
			AppID:       in.AppID,
			Name:        name,
			Description: util.OptionalString(in.Description),
			CreatedAt:   r.now().UTC(),
		}
		if err := appendRow(t, encodeTemplate(out)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *TemplatesRepositoryImpl) Update(ctx context.Context, id int64, patch model.TemplatePatch) (*model.Template, error) {
	var out *model.Template
	err := r.b.Update(ctx, tabular.FileEntities, func(set *tabular.Set) error {
		t, err := set.Table(tabular.TableTemplates)
		if err != nil {
			return err
		}
		cur, i, err := decodeRow(t, id, decodeTemplate)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: template %d", ErrNotFound, id)
		}

		fields := tabular.Record{}
		name, appID := cur.Name, cur.AppID
		if patch.Name != nil {
			name = util.NormalizeName(*patch.Name)
			if name == "" {
				return fmt.Errorf("%w: template name is required", ErrInvalidInput)
			}
			fields["name"] = name
		}
		if patch.AppID != nil {
			if *patch.AppID <= 0 {
				return fmt.Errorf("%w: app_id is required", ErrInvalidInput)
			}
			appID = *patch.AppID
			fields["app_id"] = tabular.FormatID(appID)
		}
		if patch.Name != nil || patch.AppID != nil {
			taken, err := templateNameTaken(t, appID, name, id)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: template %q for app %d", ErrDuplicate, name, appID)
			}
		}
		cur.Name, cur.AppID = name, appID
		if patch.Description != nil {
			cur.Description = util.OptionalString(patch.Description)
			fields["description"] = formatOptString(cur.Description)
		}

		out = cur
		return updateRow(t, i, fields)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the template row only. Join rows that reference it are left
// in place; the matrix skips them because the template no longer resolves.
func (r *TemplatesRepositoryImpl) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.b, tabular.FileEntities, tabular.TableTemplates, id, "template")
}
