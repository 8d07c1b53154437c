package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/voidview/internal/model"
	"github.com/jmehdipour/voidview/internal/tabular"
	"github.com/jmehdipour/voidview/internal/util"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength applies to every password the store hashes.
const MinPasswordLength = 6

type UsersRepository interface {
	List(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, in model.NewUser) (*model.User, error)
	Update(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error)
	Delete(ctx context.Context, id int64) error

	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error
	ResetPassword(ctx context.Context, id int64, newPassword string) error
}

type UsersRepositoryImpl struct {
	b    *tabular.Backend
	cost int
	now  func() time.Time
}

// NewUsersRepository hashes with the given bcrypt cost; 0 means bcrypt.DefaultCost.
func NewUsersRepository(b *tabular.Backend, cost int) *UsersRepositoryImpl {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UsersRepositoryImpl{b: b, cost: cost, now: time.Now}
}

var _ UsersRepository = (*UsersRepositoryImpl)(nil)

// RootAccount describes the account seeded into a new users file.
type RootAccount struct {
	Username    string
	Password    string
	DisplayName string
	Cost        int
}

// SeedRoot returns the seed for the users file: one active root account that
// has to change its password on first login.
func SeedRoot(acc RootAccount) tabular.SeedFunc {
	return func(set *tabular.Set) error {
		if len(acc.Password) < MinPasswordLength {
			return fmt.Errorf("%w: root password shorter than %d", ErrInvalidInput, MinPasswordLength)
		}
		cost := acc.Cost
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(acc.Password), cost)
		if err != nil {
			return err
		}
		t, err := set.Table(tabular.TableUsers)
		if err != nil {
			return err
		}
		return appendRow(t, encodeUser(model.User{
			ID:                 set.AllocateID(t),
			Username:           strings.TrimSpace(acc.Username),
			PasswordHash:       string(hash),
			DisplayName:        acc.DisplayName,
			Role:               model.RoleRoot,
			IsActive:           true,
			MustChangePassword: true,
			CreatedAt:          time.Now().UTC(),
		}))
	}
}

func decodeUser(rec tabular.Record) (model.User, error) {
	var (
		u   model.User
		err error
	)
	if u.ID, err = parseID(rec["id"]); err != nil {
		return u, err
	}
	u.Username = rec["username"]
	u.PasswordHash = rec["password_hash"]
	u.DisplayName = rec["display_name"]
	u.Role = model.Role(rec["role"])
	if u.IsActive, err = parseBool(rec["is_active"]); err != nil {
		return u, err
	}
	if u.MustChangePassword, err = parseBool(rec["must_change_password"]); err != nil {
		return u, err
	}
	if u.CreatedAt, err = parseTime(rec["created_at"]); err != nil {
		return u, err
	}
	if u.CreatedBy, err = parseOptID(rec["created_by"]); err != nil {
		return u, err
	}
	if u.LastLoginAt, err = parseOptTime(rec["last_login_at"]); err != nil {
		return u, err
	}
	return u, nil
}

func encodeUser(u model.User) tabular.Record {
	return tabular.Record{
		"id":                   tabular.FormatID(u.ID),
		"username":             u.Username,
		"password_hash":        u.PasswordHash,
		"display_name":         u.DisplayName,
		"role":                 u.Role.String(),
		"is_active":            formatBool(u.IsActive),
		"must_change_password": formatBool(u.MustChangePassword),
		"created_at":           formatTime(u.CreatedAt),
		"created_by":           formatOptID(u.CreatedBy),
		"last_login_at":        formatOptTime(u.LastLoginAt),
	}
}

func (r *UsersRepositoryImpl) List(ctx context.Context) ([]model.User, error) {
	return viewList(ctx, r.b, tabular.FileUsers, tabular.TableUsers, decodeUser, nil)
}

func (r *UsersRepositoryImpl) Count(ctx context.Context) (int, error) {
	var n int
	err := r.b.View(ctx, tabular.FileUsers, func(set *tabular.Set) error {
		t, err := set.Table(tabular.TableUsers)
		if err != nil {
			return err
		}
		n = len(t.Records())
		return nil
	})
	return n, err
}

func (r *UsersRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return viewByID(ctx, r.b, tabular.FileUsers, tabular.TableUsers, id, decodeUser)
}

func (r *UsersRepositoryImpl) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	return viewFirst(ctx, r.b, tabular.FileUsers, tabular.TableUsers, decodeUser,
		func(u model.User) bool { return u.Username == username })
}

func (r *UsersRepositoryImpl) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("%w: password shorter than %d", ErrInvalidInput, MinPasswordLength)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Create hashes outside the file lock, then checks the username and appends
// the row in one locked cycle. New accounts must change their password.
func (r *UsersRepositoryImpl) Create(ctx context.Context, in model.NewUser) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || strings.ContainsAny(username, " \t\n") {
		return nil, fmt.Errorf("%w: username %q", ErrInvalidInput, in.Username)
	}
	display := util.NormalizeName(in.DisplayName)
	if display == "" {
		return nil, fmt.Errorf("%w: display name is required", ErrInvalidInput)
	}
	role := in.Role
	if role == "" {
		role = model.RoleTester
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidInput, in.Role)
	}
	hash, err := r.hash(in.Password)
	if err != nil {
		return nil, err
	}

	var out model.User
	err = r.b.Update(ctx, tabular.FileUsers, func(set *tabular.Set) error {
		t, err := set.Table(tabular.TableUsers)
		if err != nil {
			return err
		}
		all, err := decodeTable(t, decodeUser)
		if err != nil {
			return err
		}
		for _, u := range all {
			if u.Username == username {
				return fmt.Errorf("%w: user %q", ErrDuplicate, username)
			}
		}

		out = model.User{
			ID:                 set.AllocateID(t),
			Username:           username,
			PasswordHash:       hash,
			DisplayName:        display,
			Role:               role,
			IsActive:           true,
			MustChangePassword: true,
			CreatedAt:          r.now().UTC(),
			CreatedBy:          in.CreatedBy,
		}
		if err := appendRow(t, encodeUser(out)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// patch applies fields to user id in one locked cycle and returns the result.
func (r *UsersRepositoryImpl) patch(ctx context.Context, id int64, build func(*model.User) (tabular.Record, error)) (*model.User, error) {
	var out *model.User
	err := r.b.Update(ctx, tabular.FileUsers, func(set *tabular.Set) error {
		t, err := set.Table(tabular.TableUsers)
		if err != nil {
			return err
		}
		cur, i, err := decodeRow(t, id, decodeUser)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		fields, err := build(cur)
		if err != nil {
			return err
		}
		out = cur
		return updateRow(t, i, fields)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UsersRepositoryImpl) Update(ctx context.Context, id int64, p model.UserPatch) (*model.User, error) {
	return r.patch(ctx, id, func(u *model.User) (tabular.Record, error) {
		fields := tabular.Record{}
		if p.DisplayName != nil {
			display := util.NormalizeName(*p.DisplayName)
			if display == "" {
				return nil, fmt.Errorf("%w: display name is required", ErrInvalidInput)
			}
			u.DisplayName = display
			fields["display_name"] = display
		}
		if p.Role != nil {
			if !p.Role.Valid() {
				return nil, fmt.Errorf("%w: role %q", ErrInvalidInput, *p.Role)
			}
			u.Role = *p.Role
			fields["role"] = u.Role.String()
		}
		if p.IsActive != nil {
			u.IsActive = *p.IsActive
			fields["is_active"] = formatBool(u.IsActive)
		}
		return fields, nil
	})
}

func (r *UsersRepositoryImpl) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.b, tabular.FileUsers, tabular.TableUsers, id, "user")
}

// Authenticate verifies the credentials and stamps last_login_at. The lookup
// and the stamp are separate cycles; bcrypt runs with no lock held.
func (r *UsersRepositoryImpl) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := r.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := r.now().UTC()
	out, err := r.patch(ctx, u.ID, func(cur *model.User) (tabular.Record, error) {
		cur.LastLoginAt = &now
		return tabular.Record{"last_login_at": formatTime(now)}, nil
	})
	if errors.Is(err, ErrNotFound) {
		// deleted between lookup and stamp
		return nil, ErrInvalidCredentials
	}
	return out, err
}

// ChangePassword is the self-service path: it needs the current password and
// clears must_change_password.
func (r *UsersRepositoryImpl) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := r.hash(newPassword)
	if err != nil {
		return err
	}
	_, err = r.patch(ctx, id, func(*model.User) (tabular.Record, error) {
		return tabular.Record{
			"password_hash":        hash,
			"must_change_password": formatBool(false),
		}, nil
	})
	return err
}

// ResetPassword is the administrator path: no old password, and the user has
// to change it again on next login.
func (r *UsersRepositoryImpl) ResetPassword(ctx context.Context, id int64, newPassword string) error {
	hash, err := r.hash(newPassword)
	if err != nil {
		return err
	}
	_, err = r.patch(ctx, id, func(*model.User) (tabular.Record, error) {
		return tabular.Record{
			"password_hash":        hash,
			"must_change_password": formatBool(true),
		}, nil
	})
	return err
}
