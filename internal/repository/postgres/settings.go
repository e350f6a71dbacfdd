package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	apperrors "shop-auth/pkg/errors"
)

type SettingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context, name string) (string, error) {
	var value string
	err := r.db.Pool.QueryRow(ctx, `SELECT value FROM app_settings WHERE name = $1`, name).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NotFound(errSettingNotFound)
		}
		return "", errFailedGetSetting(err)
	}
	return value, nil
}

func (r *SettingsRepository) Set(ctx context.Context, name, value string) error {
	query := `
		INSERT INTO app_settings (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := r.db.Pool.Exec(ctx, query, name, value); err != nil {
		return errFailedSetSetting(err)
	}
	return nil
}

func (r *SettingsRepository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM app_settings WHERE name = $1`, name); err != nil {
		return errFailedDeleteSetting(err)
	}
	return nil
}
