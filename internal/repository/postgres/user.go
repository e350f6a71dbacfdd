package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"shop-auth/internal/domain/user"
	"shop-auth/internal/permission"
	apperrors "shop-auth/pkg/errors"
)

const userColumns = `id, username, email, password_hash, role, permissions, enabled, refresh_fingerprint, created_at, updated_at`

type UserRepository struct {
	db    *DB
	model *permission.Model
	log   logrus.FieldLogger
}

// NewUserRepository needs the model to decode stored permissions.
func NewUserRepository(db *DB, model *permission.Model, log logrus.FieldLogger) *UserRepository {
	return &UserRepository{db: db, model: model, log: log}
}

func (r *UserRepository) Create(ctx context.Context, input user.CreateUserInput) (*user.User, error) {
	return r.insert(ctx, r.db.Pool, input)
}

func (r *UserRepository) CreateFirst(ctx context.Context, input user.CreateUserInput, firstRole permission.Role, firstPerms *permission.Set) (*user.User, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, errFailedStartTransaction(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return nil, errFailedLockUsers(err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists); err != nil {
		return nil, errFailedGetUser(err)
	}
	if !exists {
		input.Role = firstRole
		input.Permissions = firstPerms
	}

	u, err := r.insert(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errFailedCommitTransaction(err)
	}
	return u, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *UserRepository) insert(ctx context.Context, q queryRower, input user.CreateUserInput) (*user.User, error) {
	perms, err := encodePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, role, permissions)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	u, err := r.scan(q.QueryRow(ctx, query, uuid.New(), input.Username, input.Email, input.PasswordHash, string(input.Role), perms))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict(errUsernameTaken)
		}
		return nil, errFailedCreateUser(err)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	u, err := r.scan(r.db.Pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(errUserNotFound)
		}
		return nil, errFailedGetUser(err)
	}
	return u, nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role permission.Role) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at`

	rows, err := r.db.Pool.Query(ctx, query, string(role))
	if err != nil {
		return nil, errFailedListUsers(err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := r.scan(rows)
		if err != nil {
			return nil, errFailedScanUser(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errIterateUsers(err)
	}
	return users, nil
}

func (r *UserRepository) ModifyPermissions(ctx context.Context, username string, modify func(*permission.Set) (bool, error)) (*permission.Set, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, errFailedStartTransaction(err)
	}
	defer tx.Rollback(ctx)

	var data []byte
	err = tx.QueryRow(ctx, `SELECT permissions FROM users WHERE username = $1 FOR UPDATE`, username).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(errUserNotFound)
		}
		return nil, errFailedGetUser(err)
	}

	perms, err := r.decodePermissions(username, data)
	if err != nil {
		return nil, err
	}

	changed, err := modify(perms)
	if err != nil {
		return nil, err
	}
	if !changed {
		return perms, nil
	}

	encoded, err := encodePermissions(perms)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE users SET permissions = $2, updated_at = NOW() WHERE username = $1`, username, encoded); err != nil {
		return nil, errFailedUpdateUser(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errFailedCommitTransaction(err)
	}
	return perms, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, username string, role permission.Role) error {
	return r.update(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE username = $1`, username, string(role))
}

func (r *UserRepository) UpdateRefreshFingerprint(ctx context.Context, username, fingerprint string) error {
	return r.update(ctx, `UPDATE users SET refresh_fingerprint = $2, updated_at = NOW() WHERE username = $1`, username, fingerprint)
}

func (r *UserRepository) update(ctx context.Context, query, username string, value any) error {
	tag, err := r.db.Pool.Exec(ctx, query, username, value)
	if err != nil {
		return errFailedUpdateUser(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound(errUserNotFound)
	}
	return nil
}

func (r *UserRepository) scan(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	var role string
	var perms []byte

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&role,
		&perms,
		&u.Enabled,
		&u.RefreshFingerprint,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Role = permission.Role(role)
	u.Permissions, err = r.decodePermissions(u.Username, perms)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// decodePermissions drops entries the current catalog no longer knows so a
// narrowed SECURITY_OPERATIONS never locks a user out.
func (r *UserRepository) decodePermissions(username string, data []byte) (*permission.Set, error) {
	perms, skipped, err := r.model.DecodeStoredSet(username, data)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		r.log.WithFields(logrus.Fields{
			"username": username,
			"skipped":  skipped,
		}).Warn("ignoring stored permissions unknown to the current catalog")
	}
	return perms, nil
}

func encodePermissions(perms *permission.Set) ([]byte, error) {
	if perms == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(perms)
	if err != nil {
		return nil, errFailedEncodePermission(err)
	}
	return data, nil
}
