package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-auth/internal/domain/user"
	"shop-auth/internal/permission"
	apperrors "shop-auth/pkg/errors"
	"shop-auth/pkg/logger"
)

type memoryIdentities struct {
	mu        sync.Mutex
	users     map[string]*user.User
	passwords map[string]string
	failWith  error
}

func newMemoryIdentities() *memoryIdentities {
	return &memoryIdentities{users: map[string]*user.User{}, passwords: map[string]string{}}
}

func (m *memoryIdentities) add(u *user.User, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Username] = u
	m.passwords[u.Username] = password
}

func (m *memoryIdentities) VerifyCredentials(_ context.Context, username, password string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.users[username]
	if !ok || m.passwords[username] != password || !u.Enabled {
		return nil, apperrors.InvalidCredentials()
	}
	copied := *u
	return &copied, nil
}

func (m *memoryIdentities) FindByUsername(_ context.Context, username string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	copied := *u
	return &copied, nil
}

func (m *memoryIdentities) UpdateRefreshFingerprint(_ context.Context, username, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return apperrors.NotFound("user not found")
	}
	u.RefreshFingerprint = fingerprint
	return nil
}

type gateFixture struct {
	*fixture
	ids  *memoryIdentities
	gate *Gate
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	f := newFixture(t)
	ids := newMemoryIdentities()
	ids.add(&user.User{
		Username:    "alice",
		Role:        "USER",
		Permissions: f.perms(t, "alice", "ITEM_READ"),
		Enabled:     true,
	}, "wonderland")

	gate := NewGate(f.issuer, f.codec, ids, GateConfig{AccessTTLHours: 1, RefreshTTLHours: 24}, logger.Discard())
	return &gateFixture{fixture: f, ids: ids, gate: gate}
}

func TestTokensForCredentials(t *testing.T) {
	g := newGateFixture(t)

	pair, err := g.gate.TokensForCredentials(context.Background(), "alice", "wonderland")
	require.NoError(t, err)

	access, err := g.codec.Decode(pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, access.IsAccess())
	assert.Equal(t, []string{"ITEM_READ"}, access.Permissions)
	assert.True(t, access.ExpiresAt.Equal(g.now.Add(time.Hour)))

	refresh, err := g.codec.Decode(pair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, refresh.IsRefresh())
	assert.True(t, refresh.ExpiresAt.Equal(g.now.Add(24*time.Hour)))

	stored, _ := g.ids.FindByUsername(context.Background(), "alice")
	assert.True(t, MatchesFingerprint(pair.RefreshToken, stored.RefreshFingerprint))
}

func TestTokensForCredentialsRejectsBadCredentials(t *testing.T) {
	g := newGateFixture(t)

	for _, tc := range []struct{ username, password string }{
		{"alice", "wrong"},
		{"mallory", "wonderland"},
	} {
		_, err := g.gate.TokensForCredentials(context.Background(), tc.username, tc.password)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}
}

func TestTokensForCredentialsSurfacesStoreFailure(t *testing.T) {
	g := newGateFixture(t)
	g.ids.failWith = errors.New("connection refused")

	_, err := g.gate.TokensForCredentials(context.Background(), "alice", "wonderland")
	assert.ErrorIs(t, err, apperrors.ErrInternalServer)
	assert.NotErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestEveryLoginReissues(t *testing.T) {
	g := newGateFixture(t)
	ctx := context.Background()

	first, err := g.gate.TokensForCredentials(ctx, "alice", "wonderland")
	require.NoError(t, err)
	second, err := g.gate.TokensForCredentials(ctx, "alice", "wonderland")
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)

	_, err = g.gate.RefreshAccessToken(ctx, first.RefreshToken, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = g.gate.RefreshAccessToken(ctx, second.RefreshToken, 0)
	assert.NoError(t, err)

	_, err = g.codec.Decode(first.AccessToken)
	assert.NoError(t, err)
}

func TestRefreshAccessTokenUsesCurrentPermissions(t *testing.T) {
	g := newGateFixture(t)
	ctx := context.Background()

	pair, err := g.gate.TokensForCredentials(ctx, "alice", "wonderland")
	require.NoError(t, err)

	g.ids.mu.Lock()
	alice := g.ids.users["alice"]
	require.NoError(t, g.model.AddFunction(alice.Permissions, "SYSTEM", permission.FunctionRead))
	alice.Role = "STAFF"
	g.ids.mu.Unlock()

	token, err := g.gate.RefreshAccessToken(ctx, pair.RefreshToken, 2)
	require.NoError(t, err)

	claims, err := g.codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "ROLE_STAFF", claims.Role)
	assert.Equal(t, []string{"ITEM_READ", "SYSTEM_READ"}, claims.Permissions)
	assert.True(t, claims.ExpiresAt.Equal(g.now.Add(2*time.Hour)))
}

func TestRefreshAccessTokenRejections(t *testing.T) {
	g := newGateFixture(t)
	ctx := context.Background()

	pair, err := g.gate.TokensForCredentials(ctx, "alice", "wonderland")
	require.NoError(t, err)

	_, err = g.gate.RefreshAccessToken(ctx, pair.AccessToken, 1)
	assert.ErrorIs(t, err, apperrors.ErrWrongTokenType)

	_, err = g.gate.RefreshAccessToken(ctx, "not-a-token", 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = g.gate.RefreshAccessToken(ctx, pair.RefreshToken, -1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	g.now = g.now.Add(25 * time.Hour)
	_, err = g.gate.RefreshAccessToken(ctx, pair.RefreshToken, 1)
	assert.ErrorIs(t, err, apperrors.ErrExpired)
}

func TestRefreshAccessTokenForVanishedOrDisabledUser(t *testing.T) {
	g := newGateFixture(t)
	ctx := context.Background()

	pair, err := g.gate.TokensForCredentials(ctx, "alice", "wonderland")
	require.NoError(t, err)

	g.ids.mu.Lock()
	g.ids.users["alice"].Enabled = false
	g.ids.mu.Unlock()
	_, err = g.gate.RefreshAccessToken(ctx, pair.RefreshToken, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	g.ids.mu.Lock()
	delete(g.ids.users, "alice")
	g.ids.mu.Unlock()
	_, err = g.gate.RefreshAccessToken(ctx, pair.RefreshToken, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRefreshAfterKeyRotation(t *testing.T) {
	g := newGateFixture(t)
	ctx := context.Background()

	pair, err := g.gate.TokensForCredentials(ctx, "alice", "wonderland")
	require.NoError(t, err)

	_, err = g.keys.Rotate(testKey("k2"))
	require.NoError(t, err)

	_, err = g.gate.RefreshAccessToken(ctx, pair.RefreshToken, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestNewRefreshToken(t *testing.T) {
	g := newGateFixture(t)
	ctx := context.Background()

	pair, err := g.gate.TokensForCredentials(ctx, "alice", "wonderland")
	require.NoError(t, err)

	refresh, err := g.gate.NewRefreshToken(ctx, "alice", "wonderland", 48)
	require.NoError(t, err)

	claims, err := g.codec.Decode(refresh)
	require.NoError(t, err)
	assert.True(t, claims.IsRefresh())
	assert.True(t, claims.ExpiresAt.Equal(g.now.Add(48*time.Hour)))

	_, err = g.gate.RefreshAccessToken(ctx, pair.RefreshToken, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	_, err = g.gate.RefreshAccessToken(ctx, refresh, 1)
	assert.NoError(t, err)

	_, err = g.gate.NewRefreshToken(ctx, "alice", "nope", 48)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
