package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/voidview/internal/model"
	"github.com/jmehdipour/voidview/internal/tabular"
	"github.com/jmehdipour/voidview/internal/util"
)

type AppsRepository interface {
	// List returns every app, or only those of customerID when it is set.
	List(ctx context.Context, customerID *int64) ([]model.App, error)
	GetByID(ctx context.Context, id int64) (*model.App, error)
	GetByName(ctx context.Context, customerID int64, name string) (*model.App, error)
	Create(ctx context.Context, in model.NewApp) (*model.App, error)
	Update(ctx context.Context, id int64, patch model.AppPatch) (*model.App, error)
	Delete(ctx context.Context, id int64) error
}

type AppsRepositoryImpl struct {
	b   *tabular.Backend
	now func() time.Time
}

func NewAppsRepository(b *tabular.Backend) *AppsRepositoryImpl {
	return &AppsRepositoryImpl{b: b, now: time.Now}
}

var _ AppsRepository = (*AppsRepositoryImpl)(nil)

func decodeApp(rec tabular.Record) (model.App, error) {
	id, err := parseID(rec["id"])
	if err != nil {
		return model.App{}, err
	}
	customerID, err := parseID(rec["customer_id"])
	if err != nil {
		return model.App{}, err
	}
	created, err := parseTime(rec["created_at"])
	if err != nil {
		return model.App{}, err
	}
	return model.App{
		ID:          id,
		CustomerID:  customerID,
		Name:        rec["name"],
		Description: optString(rec["description"]),
		CreatedAt:   created,
	}, nil
}

func encodeApp(a model.App) tabular.Record {
	return tabular.Record{
		"id":          tabular.FormatID(a.ID),
		"customer_id": tabular.FormatID(a.CustomerID),
		"name":        a.Name,
		"description": formatOptString(a.Description),
		"created_at":  formatTime(a.CreatedAt),
	}
}

func (r *AppsRepositoryImpl) List(ctx context.Context, customerID *int64) ([]model.App, error) {
	var keep func(model.App) bool
	if customerID != nil {
		keep = func(a model.App) bool { return a.CustomerID == *customerID }
	}
	return viewList(ctx, r.b, tabular.FileEntities, tabular.TableApps, decodeApp, keep)
}

func (r *AppsRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.App, error) {
	return viewByID(ctx, r.b, tabular.FileEntities, tabular.TableApps, id, decodeApp)
}

func (r *AppsRepositoryImpl) GetByName(ctx context.Context, customerID int64, name string) (*model.App, error) {
	name = util.NormalizeName(name)
	return viewFirst(ctx, r.b, tabular.FileEntities, tabular.TableApps, decodeApp,
		func(a model.App) bool { return a.CustomerID == customerID && a.Name == name })
}

func appNameTaken(t *tabular.Table, customerID int64, name string, skipID int64) (bool, error) {
	all, err := decodeTable(t, decodeApp)
	if err != nil {
		return false, err
	}
	for _, a := range all {
		if a.ID != skipID && a.CustomerID == customerID && a.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Create does not check that the customer exists; callers do.
func (r *AppsRepositoryImpl) Create(ctx context.Context, in model.NewApp) (*model.App, error) {
	name := util.NormalizeName(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: app name is required", ErrInvalidInput)
	}
	if in.CustomerID <= 0 {
		return nil, fmt.Errorf("%w: customer_id is required", ErrInvalidInput)
	}

	var out model.App
	err := r.b.Update(ctx, tabular.FileEntities, func(set *tabular.Set) error {
		t, err := set.Table(tabular.TableApps)
		if err != nil {
			return err
		}
		taken, err := appNameTaken(t, in.CustomerID, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: app %q for customer %d", ErrDuplicate, name, in.CustomerID)
		}

		out = model.App{
			ID:          set.AllocateID(t),
			CustomerID:  in.CustomerID,
			Name:        name,
			Description: util.OptionalString(in.Description),
			CreatedAt:   r.now().UTC(),
		}
		if err := appendRow(t, encodeApp(out)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *AppsRepositoryImpl) Update(ctx context.Context, id int64, patch model.AppPatch) (*model.App, error) {
	var out *model.App
	err := r.b.Update(ctx, tabular.FileEntities, func(set *tabular.Set) error {
		t, err := set.Table(tabular.TableApps)
		if err != nil {
			return err
		}
		cur, i, err := decodeRow(t, id, decodeApp)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: app %d", ErrNotFound, id)
		}

		fields := tabular.Record{}
		name, customerID := cur.Name, cur.CustomerID
		if patch.Name != nil {
			name = util.NormalizeName(*patch.Name)
			if name == "" {
				return fmt.Errorf("%w: app name is required", ErrInvalidInput)
			}
			fields["name"] = name
		}
		if patch.CustomerID != nil {
			if *patch.CustomerID <= 0 {
				return fmt.Errorf("%w: customer_id is required", ErrInvalidInput)
			}
			customerID = *patch.CustomerID
			fields["customer_id"] = tabular.FormatID(customerID)
		}
		if patch.Name != nil || patch.CustomerID != nil {
			taken, err := appNameTaken(t, customerID, name, id)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: app %q for customer %d", ErrDuplicate, name, customerID)
			}
		}
		cur.Name, cur.CustomerID = name, customerID
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

// Delete removes the app row only; its templates stay and drop out of the
// matrix.
func (r *AppsRepositoryImpl) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.b, tabular.FileEntities, tabular.TableApps, id, "app")
}
