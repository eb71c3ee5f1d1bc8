package auth

import (
	"testing"
	"time"

	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.True(t, IsHashed(hash))

	ok, rehash := CheckPassword(hash, "secret1")
	assert.True(t, ok)
	assert.False(t, rehash)

	ok, _ = CheckPassword(hash, "wrong")
	assert.False(t, ok)
}

func TestPassword_LegacyPlaintext(t *testing.T) {
	ok, rehash := CheckPassword("plain123", "plain123")
	assert.True(t, ok)
	assert.True(t, rehash)

	ok, rehash = CheckPassword("plain123", "plain12")
	assert.False(t, ok)
	assert.False(t, rehash)

	ok, _ = CheckPassword("", "")
	assert.False(t, ok)
}

func TestTokenManager(t *testing.T) {
	m := NewTokenManager("s3cret", time.Hour)
	user := &domain.User{ID: "rec1", Name: "Ada", Email: "ada@uni.edu", UserType: domain.UserTypeSeller}

	token, expires, err := m.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "rec1", claims.Subject)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, "ada@uni.edu", claims.Email)
	assert.Equal(t, "Seller", claims.UserType)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager("s3cret", time.Hour)
	token, _, err := m.Issue(&domain.User{ID: "rec1"})
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Hour).Parse(token)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Parse(token)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	_, err = m.Parse("not.a.token")
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
}
