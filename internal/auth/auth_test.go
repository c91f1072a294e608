package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/housecup/backend/internal/apperrors"
)

func TestIssueAndParse(t *testing.T) {
	v := NewVerifier("test-secret")
	house := 3

	token, err := v.Issue(Identity{UserID: 42, Role: RoleStudent, HouseID: &house}, time.Hour)
	require.NoError(t, err)

	id, err := v.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, 42, id.UserID)
	assert.Equal(t, RoleStudent, id.Role)
	require.NotNil(t, id.HouseID)
	assert.Equal(t, 3, *id.HouseID)
	assert.False(t, id.IsAdmin())
}

func TestParseRejects(t *testing.T) {
	v := NewVerifier("test-secret")

	expired, err := v.Issue(Identity{UserID: 1, Role: RoleAdmin}, -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewVerifier("other").Issue(Identity{UserID: 1, Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)

	badRole, err := v.Issue(Identity{UserID: 1, Role: "janitor"}, time.Hour)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"role":    "admin",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": 1,
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"expired":   expired,
		"wrong key": otherKey,
		"bad role":  badRole,
		"no exp":    noExp,
		"alg none":  none,
		"garbage":   "not.a.token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Parse(token)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	assert.NoError(t, Identity{UserID: 1, Role: RoleAdmin}.RequireAdmin())
	err := Identity{UserID: 2, Role: RoleStudent}.RequireAdmin()
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
}
