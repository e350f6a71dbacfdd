package account

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"shop-auth/internal/domain/user"
	"shop-auth/internal/permission"
	apperrors "shop-auth/pkg/errors"
	"shop-auth/pkg/logger"
	"shop-auth/pkg/password"
)

type memoryRepo struct {
	mu      sync.Mutex
	users   map[string]*user.User
	saves   int
	failGet error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[string]*user.User{}}
}

func (r *memoryRepo) Create(_ context.Context, in user.CreateUserInput) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(in)
}

func (r *memoryRepo) CreateFirst(_ context.Context, in user.CreateUserInput, firstRole permission.Role, firstPerms *permission.Set) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.users) == 0 {
		in.Role = firstRole
		in.Permissions = firstPerms
	}
	return r.insert(in)
}

func (r *memoryRepo) insert(in user.CreateUserInput) (*user.User, error) {
	if _, ok := r.users[in.Username]; ok {
		return nil, apperrors.Conflict("username already taken")
	}
	u := &user.User{
		ID:           uuid.New(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		Permissions:  in.Permissions,
		Enabled:      true,
	}
	r.users[u.Username] = u
	copied := *u
	return &copied, nil
}

func (r *memoryRepo) GetByUsername(_ context.Context, username string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	u, ok := r.users[username]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	copied := *u
	return &copied, nil
}

func (r *memoryRepo) ListByRole(_ context.Context, role permission.Role) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*user.User
	for _, u := range r.users {
		if u.Role == role {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memoryRepo) ModifyPermissions(_ context.Context, username string, modify func(*permission.Set) (bool, error)) (*permission.Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}

	perms := permission.NewSet(username)
	if u.Permissions != nil {
		perms = u.Permissions.Clone()
	}
	changed, err := modify(perms)
	if err != nil {
		return nil, err
	}
	if changed {
		u.Permissions = perms.Clone()
		r.saves++
	}
	return perms, nil
}

func (r *memoryRepo) UpdateRole(_ context.Context, username string, role permission.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return apperrors.NotFound("user not found")
	}
	u.Role = role
	return nil
}

func (r *memoryRepo) UpdateRefreshFingerprint(_ context.Context, username, fingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return apperrors.NotFound("user not found")
	}
	u.RefreshFingerprint = fingerprint
	return nil
}

func newTestModel() *permission.Model {
	return permission.NewModel(
		permission.MustHierarchy("USER", "STAFF", "ADMIN"),
		permission.MustCatalog("ITEM", "USER", "SYSTEM"),
	)
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, newTestModel(), password.NewHasher(bcrypt.MinCost), logger.Discard())
}

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Register(ctx, "alice", "alice@example.com", "secret-1")
	require.NoError(t, err)
	assert.Equal(t, permission.Role("ADMIN"), first.Role)
	assert.Equal(t, 3, first.Permissions.Len())

	second, err := svc.Register(ctx, "bob", "bob@example.com", "secret-2")
	require.NoError(t, err)
	assert.Equal(t, permission.Role("USER"), second.Role)
	assert.Equal(t, 0, second.Permissions.Len())

	_, err = svc.Register(ctx, "bob", "other@example.com", "secret-3")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestVerifyCredentials(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "secret-1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "carol", "carol@example.com", "secret-2")
	require.NoError(t, err)
	repo.users["carol"].Enabled = false

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"valid", "alice", "secret-1", nil},
		{"wrong password", "alice", "nope", apperrors.ErrInvalidCredentials},
		{"unknown user", "mallory", "secret-1", apperrors.ErrInvalidCredentials},
		{"disabled user", "carol", "secret-2", apperrors.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := svc.VerifyCredentials(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, u)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.username, u.Username)
		})
	}
}

func TestVerifyCredentialsRepositoryFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.failGet = errors.New("connection reset")

	_, err := newTestService(repo).VerifyCredentials(context.Background(), "alice", "secret")
	assert.ErrorIs(t, err, apperrors.ErrInternalServer)
	assert.NotErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	u, err := svc.EnsureAdmin(ctx, "root", "root@example.com", "bootstrap")
	require.NoError(t, err)
	assert.Equal(t, permission.Role("ADMIN"), u.Role)

	again, err := svc.EnsureAdmin(ctx, "root", "root@example.com", "other")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Len(t, repo.users, 1)
}

func TestAddAndRemovePermission(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "secret-1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "bob@example.com", "secret-2")
	require.NoError(t, err)

	before := repo.saves
	perms, err := svc.AddPermission(ctx, "bob", "ITEM", permission.FunctionRead)
	require.NoError(t, err)
	assert.True(t, perms.Authorities().Has("ITEM_READ"))
	assert.True(t, repo.users["bob"].Permissions.Authorities().Has("ITEM_READ"))

	_, err = svc.AddPermission(ctx, "bob", "ITEM", permission.FunctionRead)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.users["bob"].Permissions.Len())

	assert.Equal(t, before+1, repo.saves, "granting a held function must not write")

	saves := repo.saves
	_, err = svc.RemovePermission(ctx, "bob", "ITEM", permission.FunctionDelete)
	require.NoError(t, err)
	assert.Equal(t, saves, repo.saves, "removing an absent function must not write")

	perms, err = svc.RemovePermission(ctx, "bob", "ITEM", permission.FunctionRead)
	require.NoError(t, err)
	assert.Equal(t, 0, perms.Len())
	assert.Equal(t, 0, repo.users["bob"].Permissions.Len())
}

func TestConcurrentGrantsAreAllKept(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "secret-1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "bob@example.com", "secret-2")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, op := range []permission.Operation{"ITEM", "USER", "SYSTEM"} {
		for _, fn := range permission.Functions() {
			wg.Add(1)
			go func(op permission.Operation, fn permission.Function) {
				defer wg.Done()
				_, err := svc.AddPermission(ctx, "bob", op, fn)
				assert.NoError(t, err)
			}(op, fn)
		}
	}
	wg.Wait()

	assert.True(t, newTestModel().GrantAll("bob").Authorities().Equal(repo.users["bob"].Permissions.Authorities()))
}

func TestAddPermissionRejectsUnknownOperation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "secret-1")
	require.NoError(t, err)

	_, err = svc.AddPermission(ctx, "alice", "WAREHOUSE", permission.FunctionRead)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.AddPermission(ctx, "nobody", "ITEM", permission.FunctionRead)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAddMissingAdminPermissions(t *testing.T) {
	repo := newMemoryRepo()
	ctx := context.Background()

	narrow := permission.NewModel(
		permission.MustHierarchy("USER", "STAFF", "ADMIN"),
		permission.MustCatalog("ITEM"),
	)
	old := NewService(repo, narrow, password.NewHasher(bcrypt.MinCost), logger.Discard())
	_, err := old.Register(ctx, "alice", "alice@example.com", "secret-1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.users["alice"].Permissions.Len())

	svc := newTestService(repo)
	changed, err := svc.AddMissingAdminPermissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, 3, repo.users["alice"].Permissions.Len())

	changed, err = svc.AddMissingAdminPermissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}
