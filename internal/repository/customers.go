package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/voidview/internal/model"
	"github.com/jmehdipour/voidview/internal/tabular"
	"github.com/jmehdipour/voidview/internal/util"
)

type CustomersRepository interface {
	List(ctx context.Context) ([]model.Customer, error)
	GetByID(ctx context.Context, id int64) (*model.Customer, error)
	GetByName(ctx context.Context, name string) (*model.Customer, error)
	Create(ctx context.Context, in model.NewCustomer) (*model.Customer, error)
	Update(ctx context.Context, id int64, patch model.CustomerPatch) (*model.Customer, error)
	Delete(ctx context.Context, id int64) error
}

type CustomersRepositoryImpl struct {
	b   *tabular.Backend
	now func() time.Time
}

func NewCustomersRepository(b *tabular.Backend) *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{b: b, now: time.Now}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

func decodeCustomer(rec tabular.Record) (model.Customer, error) {
	id, err := parseID(rec["id"])
	if err != nil {
		return model.Customer{}, err
	}
	created, err := parseTime(rec["created_at"])
	if err != nil {
		return model.Customer{}, err
	}
	return model.Customer{
		ID:          id,
		Name:        rec["name"],
		Contact:     optString(rec["contact"]),
		Description: optString(rec["description"]),
		CreatedAt:   created,
	}, nil
}

func encodeCustomer(c model.Customer) tabular.Record {
	return tabular.Record{
		"id":          tabular.FormatID(c.ID),
		"name":        c.Name,
		"contact":     formatOptString(c.Contact),
		"description": formatOptString(c.Description),
		"created_at":  formatTime(c.CreatedAt),
	}
}

func (r *CustomersRepositoryImpl) List(ctx context.Context) ([]model.Customer, error) {
	return viewList(ctx, r.b, tabular.FileEntities, tabular.TableCustomers, decodeCustomer, nil)
}

func (r *CustomersRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	return viewByID(ctx, r.b, tabular.FileEntities, tabular.TableCustomers, id, decodeCustomer)
}

func (r *CustomersRepositoryImpl) GetByName(ctx context.Context, name string) (*model.Customer, error) {
	name = util.NormalizeName(name)
	return viewFirst(ctx, r.b, tabular.FileEntities, tabular.TableCustomers, decodeCustomer,
		func(c model.Customer) bool { return c.Name == name })
}

// customerNameTaken reports whether another customer (not skipID) uses name.
func customerNameTaken(t *tabular.Table, name string, skipID int64) (bool, error) {
	all, err := decodeTable(t, decodeCustomer)
	if err != nil {
		return false, err
	}
	for _, c := range all {
		if c.ID != skipID && c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Create checks the name and appends the row in one locked cycle.
func (r *CustomersRepositoryImpl) Create(ctx context.Context, in model.NewCustomer) (*model.Customer, error) {
	name := util.NormalizeName(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	}

	var out model.Customer
	err := r.b.Update(ctx, tabular.FileEntities, func(set *tabular.Set) error {
		t, err := set.Table(tabular.TableCustomers)
		if err != nil {
			return err
		}
		taken, err := customerNameTaken(t, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: customer %q", ErrDuplicate, name)
		}

		out = model.Customer{
			ID:          set.AllocateID(t),
			Name:        name,
			Contact:     util.OptionalString(in.Contact),
			Description: util.OptionalString(in.Description),
			CreatedAt:   r.now().UTC(),
		}
		if err := appendRow(t, encodeCustomer(out)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *CustomersRepositoryImpl) Update(ctx context.Context, id int64, patch model.CustomerPatch) (*model.Customer, error) {
	var out *model.Customer
	err := r.b.Update(ctx, tabular.FileEntities, func(set *tabular.Set) error {
		t, err := set.Table(tabular.TableCustomers)
		if err != nil {
			return err
		}
		cur, i, err := decodeRow(t, id, decodeCustomer)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: customer %d", ErrNotFound, id)
		}

		fields := tabular.Record{}
		if patch.Name != nil {
			name := util.NormalizeName(*patch.Name)
			if name == "" {
				return fmt.Errorf("%w: customer name is required", ErrInvalidInput)
			}
			taken, err := customerNameTaken(t, name, id)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: customer %q", ErrDuplicate, name)
			}
			cur.Name = name
			fields["name"] = name
		}
		if patch.Contact != nil {
			cur.Contact = util.OptionalString(patch.Contact)
			fields["contact"] = formatOptString(cur.Contact)
		}
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

// Delete removes the customer row only; its apps stay and drop out of the
// matrix.
func (r *CustomersRepositoryImpl) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.b, tabular.FileEntities, tabular.TableCustomers, id, "customer")
}
