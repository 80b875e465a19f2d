package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenFixture(t *testing.T) (*fakeStore, *TokenService) {
	t.Helper()
	store := newFakeStore()
	store.addAccount(RoleUser, "u1", "worker@example.com", "Password123", StatusActive)
	return store, NewTokenService(store, "secret", 15*time.Minute, 24*time.Hour)
}

func TestIssueEmbedsSessionInAccessToken(t *testing.T) {
	store, tokens := newTokenFixture(t)

	pair, err := tokens.Issue(context.Background(), UserContext{SubjectID: "u1", Role: RoleUser}, ClientMeta{IP: "203.0.113.1"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := ParseToken("secret", pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.SubjectID)
	assert.NotEmpty(t, claims.SessionID)
	assert.Equal(t, 1, store.activeTokens("u1"))
}

func TestRefreshRotatesToken(t *testing.T) {
	store, tokens := newTokenFixture(t)
	ctx := context.Background()

	first, err := tokens.Issue(ctx, UserContext{SubjectID: "u1", Role: RoleUser}, ClientMeta{})
	require.NoError(t, err)

	second, subject, err := tokens.Refresh(ctx, first.RefreshToken, ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, "u1", subject.SubjectID)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, 1, store.activeTokens("u1"))
}

func TestRefreshReuseRevokesFamily(t *testing.T) {
	store, tokens := newTokenFixture(t)
	ctx := context.Background()

	first, err := tokens.Issue(ctx, UserContext{SubjectID: "u1", Role: RoleUser}, ClientMeta{})
	require.NoError(t, err)
	second, _, err := tokens.Refresh(ctx, first.RefreshToken, ClientMeta{})
	require.NoError(t, err)

	_, _, err = tokens.Refresh(ctx, first.RefreshToken, ClientMeta{})
	assert.ErrorIs(t, err, ErrRefreshTokenReused)
	assert.Equal(t, 0, store.activeTokens("u1"))

	_, _, err = tokens.Refresh(ctx, second.RefreshToken, ClientMeta{})
	assert.Error(t, err)
}

func TestRefreshExpired(t *testing.T) {
	_, tokens := newTokenFixture(t)
	ctx := context.Background()

	pair, err := tokens.Issue(ctx, UserContext{SubjectID: "u1", Role: RoleUser}, ClientMeta{})
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, _, err = tokens.Refresh(ctx, pair.RefreshToken, ClientMeta{})
	assert.ErrorIs(t, err, ErrRefreshTokenExpired)
}

func TestRefreshRejectsSuspendedAccount(t *testing.T) {
	store, tokens := newTokenFixture(t)
	ctx := context.Background()

	pair, err := tokens.Issue(ctx, UserContext{SubjectID: "u1", Role: RoleUser}, ClientMeta{})
	require.NoError(t, err)

	creds := store.accounts[RoleUser+":u1"]
	creds.Status = StatusSuspended
	store.accounts[RoleUser+":u1"] = creds

	_, _, err = tokens.Refresh(ctx, pair.RefreshToken, ClientMeta{})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestRevokeAndUnknownToken(t *testing.T) {
	store, tokens := newTokenFixture(t)
	ctx := context.Background()

	pair, err := tokens.Issue(ctx, UserContext{SubjectID: "u1", Role: RoleUser}, ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, tokens.Revoke(ctx, pair.RefreshToken))
	assert.Equal(t, 0, store.activeTokens("u1"))
	assert.NoError(t, tokens.Revoke(ctx, "not-a-token"))

	_, _, err = tokens.Refresh(ctx, pair.RefreshToken, ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestPurgeExpired(t *testing.T) {
	store, tokens := newTokenFixture(t)
	ctx := context.Background()

	_, err := tokens.Issue(ctx, UserContext{SubjectID: "u1", Role: RoleUser}, ClientMeta{})
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(72 * time.Hour) }
	deleted, err := tokens.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Empty(t, store.tokens)
}
