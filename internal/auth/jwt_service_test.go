package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formini/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	svc := NewJWTService("test-secret", 0).WithClock(fixedClock(now))
	accountID := uuid.New()

	issued, err := svc.Issue(accountID, model.RoleInstructor)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.NotEmpty(t, issued.ID)
	assert.Equal(t, now.Add(24*time.Hour), issued.ExpiresAt)

	claims, err := svc.Validate(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.AccountID)
	assert.Equal(t, model.RoleInstructor, claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, issued.ExpiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestJWTService_Validate_Rejections(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	issuer := NewJWTService("test-secret", time.Hour).WithClock(fixedClock(now))
	issued, err := issuer.Issue(uuid.New(), model.RoleStudent)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		AccountID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name      string
		validator *JWTService
		token     string
	}{
		{"expired", NewJWTService("test-secret", time.Hour).WithClock(fixedClock(now.Add(2 * time.Hour))), issued.Token},
		{"wrong secret", NewJWTService("other-secret", time.Hour).WithClock(fixedClock(now)), issued.Token},
		{"garbage", issuer, "not-a-jwt"},
		{"empty", issuer, ""},
		{"none algorithm", issuer, noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := tt.validator.Validate(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestTokenStore_NilCacheFailsOpen(t *testing.T) {
	store := NewTokenStore(nil)

	require.NoError(t, store.Revoke(context.Background(), "jti", time.Minute))
	revoked, err := store.IsRevoked(context.Background(), "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)

	hash, err := h.Hash("password1")
	require.NoError(t, err)
	assert.NotEqual(t, "password1", hash)

	assert.NoError(t, h.Compare(hash, "password1"))
	assert.ErrorIs(t, h.Compare(hash, "password2"), ErrMismatchedPassword)
	assert.Error(t, h.Compare("not-a-hash", "password1"))
}

func TestBcryptHasher_LongPasswords(t *testing.T) {
	h := NewBcryptHasher(4)

	for _, n := range []int{72, 73} {
		password := strings.Repeat("a", n)
		hash, err := h.Hash(password)
		require.NoError(t, err, "%d bytes", n)
		assert.NoError(t, h.Compare(hash, password), "%d bytes", n)
	}

	long := strings.Repeat("a", 100)
	hash, err := h.Hash(long)
	require.NoError(t, err)
	assert.ErrorIs(t, h.Compare(hash, strings.Repeat("a", 99)+"b"), ErrMismatchedPassword)
	assert.ErrorIs(t, h.Compare(hash, strings.Repeat("a", 72)), ErrMismatchedPassword)
}

func TestNewBcryptHasher_OutOfRangeCost(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(1).cost)
	assert.Equal(t, 10, NewBcryptHasher(10).cost)
}
