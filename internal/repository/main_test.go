package repository

import (
	"context"
	"testing"

	"github.com/jmehdipour/voidview/internal/lock"
	"github.com/jmehdipour/voidview/internal/tabular"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	rootUser = "root"
	rootPass = "root123"
)

// newBackend opens a fresh storage dir with the root account seeded at the
// cheapest bcrypt cost.
func newBackend(t *testing.T) *tabular.Backend {
	t.Helper()
	b, err := tabular.Open(context.Background(), t.TempDir(), lock.NewLocal(),
		tabular.WithSeed(tabular.FileUsers, SeedRoot(RootAccount{
			Username:    rootUser,
			Password:    rootPass,
			DisplayName: "Administrator",
			Cost:        bcrypt.MinCost,
		})),
	)
	require.NoError(t, err)
	return b
}

func strPtr(s string) *string { return &s }

func idPtr(id int64) *int64 { return &id }
