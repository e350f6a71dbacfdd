package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"shop-auth/internal/domain/user"
	"shop-auth/internal/permission"
	"shop-auth/internal/repository"
	apperrors "shop-auth/pkg/errors"
	"shop-auth/pkg/password"
)

const (
	errHashPassword       = "failed to hash password"
	errLoadUser           = "failed to load user"
	errSavePermissionsFmt = "failed to save permissions of %s"
)

// Service owns user records and the credential check used by the auth gate.
type Service struct {
	repo   repository.UserRepository
	model  *permission.Model
	hasher *password.Hasher
	log    logrus.FieldLogger
}

func NewService(repo repository.UserRepository, model *permission.Model, hasher *password.Hasher, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, model: model, hasher: hasher, log: log}
}

// VerifyCredentials answers unknown user, disabled user and wrong password
// identically, and spends a bcrypt comparison in each case.
func (s *Service) VerifyCredentials(ctx context.Context, username, pw string) (*user.User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			password.BurnVerify(pw)
			return nil, apperrors.InvalidCredentials()
		}
		return nil, apperrors.InternalServer(errLoadUser, err)
	}

	if !password.Verify(pw, u.PasswordHash) || !u.Enabled {
		return nil, apperrors.InvalidCredentials()
	}
	return u, nil
}

func (s *Service) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *Service) UpdateRefreshFingerprint(ctx context.Context, username, fingerprint string) error {
	return s.repo.UpdateRefreshFingerprint(ctx, username, fingerprint)
}

// Register creates a user with the lowest role and no permissions, unless
// nobody is registered yet, in which case the user becomes the top role with
// every permission.
func (s *Service) Register(ctx context.Context, username, email, pw string) (*user.User, error) {
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return nil, apperrors.InternalServer(errHashPassword, err)
	}

	h := s.model.Hierarchy()
	input := user.CreateUserInput{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         h.Lowest(),
		Permissions:  permission.NewSet(username),
	}

	u, err := s.repo.CreateFirst(ctx, input, h.Highest(), s.model.GrantAll(username))
	if err != nil {
		return nil, err
	}

	if u.Role == h.Highest() {
		s.log.WithField("username", u.Username).Info("first user registered as administrator")
	}
	return u, nil
}

// EnsureAdmin creates the configured administrator if it does not exist yet.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, pw string) (*user.User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.InternalServer(errLoadUser, err)
	}

	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return nil, apperrors.InternalServer(errHashPassword, err)
	}

	h := s.model.Hierarchy()
	u, err = s.repo.Create(ctx, user.CreateUserInput{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         h.Highest(),
		Permissions:  s.model.GrantAll(username),
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("username", username).Info("bootstrap administrator created")
	return u, nil
}

// AddPermission grants fn on op. Granting twice is a no-op.
func (s *Service) AddPermission(ctx context.Context, username string, op permission.Operation, fn permission.Function) (*permission.Set, error) {
	return s.modifyPermissions(ctx, username, func(perms *permission.Set) (bool, error) {
		held := perms.Authorities().Has(permission.Authority(op, fn))
		if err := s.model.AddFunction(perms, op, fn); err != nil {
			return false, err
		}
		return !held, nil
	})
}

// RemovePermission revokes fn on op. Revoking something not held is a no-op.
func (s *Service) RemovePermission(ctx context.Context, username string, op permission.Operation, fn permission.Function) (*permission.Set, error) {
	return s.modifyPermissions(ctx, username, func(perms *permission.Set) (bool, error) {
		return s.model.RemoveFunction(perms, op, fn)
	})
}

// AddMissingAdminPermissions tops up every top-role user with any permission
// introduced since they were granted everything. It returns how many users
// changed.
func (s *Service) AddMissingAdminPermissions(ctx context.Context) (int, error) {
	admins, err := s.repo.ListByRole(ctx, s.model.Hierarchy().Highest())
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, u := range admins {
		var added int
		_, err := s.modifyPermissions(ctx, u.Username, func(perms *permission.Set) (bool, error) {
			for _, p := range s.model.MissingFrom(perms) {
				for _, fn := range p.Functions() {
					if err := s.model.AddFunction(perms, p.Operation, fn); err != nil {
						return false, err
					}
					added++
				}
			}
			return added > 0, nil
		})
		if err != nil {
			return changed, err
		}
		if added == 0 {
			continue
		}
		changed++
		s.log.WithFields(logrus.Fields{"username": u.Username, "added": added}).Info("added missing administrator permissions")
	}
	return changed, nil
}

// modifyPermissions passes domain errors through and wraps storage failures.
func (s *Service) modifyPermissions(ctx context.Context, username string, modify func(*permission.Set) (bool, error)) (*permission.Set, error) {
	perms, err := s.repo.ModifyPermissions(ctx, username, modify)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.InternalServer(fmt.Sprintf(errSavePermissionsFmt, username), err)
	}
	return perms, nil
}
