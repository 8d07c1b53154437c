package auth

import (
	"testing"
	"time"

	"github.com/jmehdipour/voidview/internal/model"
	"github.com/stretchr/testify/require"
)

func TestIssuer_RoundTrip(t *testing.T) {
	iss := NewIssuer("secret", time.Minute, time.Hour)
	pair, err := iss.Issue(model.User{ID: 7, Role: model.RoleRoot})
	require.NoError(t, err)
	require.Equal(t, "bearer", pair.TokenType)

	claims, err := iss.Validate(pair.AccessToken, TypeAccess)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
	require.Equal(t, model.RoleRoot, claims.Role)

	claims, err = iss.Validate(pair.RefreshToken, TypeRefresh)
	require.NoError(t, err)
	require.Empty(t, claims.Role)
}

func TestIssuer_RejectsWrongKind(t *testing.T) {
	iss := NewIssuer("secret", time.Minute, time.Hour)
	pair, err := iss.Issue(model.User{ID: 7, Role: model.RoleTester})
	require.NoError(t, err)

	_, err = iss.Validate(pair.RefreshToken, TypeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = iss.Validate(pair.AccessToken, TypeRefresh)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_RejectsForeignSecretAndExpiry(t *testing.T) {
	iss := NewIssuer("secret", time.Minute, time.Hour)
	pair, err := iss.Issue(model.User{ID: 7, Role: model.RoleTester})
	require.NoError(t, err)

	_, err = NewIssuer("other", time.Minute, time.Hour).Validate(pair.AccessToken, TypeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)

	iss.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = iss.Validate(pair.AccessToken, TypeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Validate("not-a-token", TypeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
}
