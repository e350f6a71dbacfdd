package system

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"shop-auth/internal/auth"
	"shop-auth/internal/repository"
	apperrors "shop-auth/pkg/errors"
)

const (
	errLoadSetting    = "failed to load setting"
	errPersistSetting = "failed to persist setting"
	errDropSetting    = "failed to delete setting"
	errGenerateKey    = "failed to generate signing key"
)

// Config is what the environment offers when nothing has been persisted yet.
type Config struct {
	SigningKey string
	Location   *time.Location
}

// Service manages the signing key and the token time zone.
type Service struct {
	// rotateMu keeps the persisted key and the active key the same key.
	rotateMu sync.Mutex
	keys     *auth.KeyManager
	settings repository.SettingsRepository
	cfg      Config
	log      logrus.FieldLogger
}

func NewService(keys *auth.KeyManager, settings repository.SettingsRepository, cfg Config, log logrus.FieldLogger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{keys: keys, settings: settings, cfg: cfg, log: log}
}

// Bootstrap installs the signing key before the first request is served.
// A persisted key wins over the configured one. A persisted key that no
// longer passes validation is deleted and replaced by the configured key.
func (s *Service) Bootstrap(ctx context.Context) error {
	installed, err := s.installPersistedKey(ctx)
	if err != nil {
		return err
	}

	if !installed {
		if err := s.keys.Install([]byte(s.cfg.SigningKey)); err != nil {
			return err
		}
		if err := s.settings.Set(ctx, repository.SettingSigningKey, s.cfg.SigningKey); err != nil {
			return apperrors.InternalServer(errPersistSetting, err)
		}
		s.log.WithField("fingerprint", s.keys.Current().Fingerprint()).Info("configured signing key installed and persisted")
	}

	return s.recordTimeZone(ctx)
}

func (s *Service) installPersistedKey(ctx context.Context) (bool, error) {
	stored, err := s.settings.Get(ctx, repository.SettingSigningKey)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, apperrors.InternalServer(errLoadSetting, err)
	}

	if err := s.keys.Install([]byte(stored)); err != nil {
		s.log.WithError(err).Warn("persisted signing key rejected, falling back to configured key")
		if err := s.settings.Delete(ctx, repository.SettingSigningKey); err != nil {
			return false, apperrors.InternalServer(errDropSetting, err)
		}
		return false, nil
	}

	s.log.WithField("fingerprint", s.keys.Current().Fingerprint()).Info("persisted signing key installed")
	return true, nil
}

// recordTimeZone stores the zone on first boot. Token timestamps are always
// interpreted in the configured zone; a different stored zone is only reported.
func (s *Service) recordTimeZone(ctx context.Context) error {
	zone := s.cfg.Location.String()

	stored, err := s.settings.Get(ctx, repository.SettingTimeZone)
	switch {
	case err == nil:
		if stored != zone {
			s.log.WithFields(logrus.Fields{"stored": stored, "configured": zone}).Warn("time zone changed since first boot")
		}
		return nil
	case errors.Is(err, apperrors.ErrNotFound):
		if err := s.settings.Set(ctx, repository.SettingTimeZone, zone); err != nil {
			return apperrors.InternalServer(errPersistSetting, err)
		}
		return nil
	default:
		return apperrors.InternalServer(errLoadSetting, err)
	}
}

// KeyRotation identifies the replaced and the new key by fingerprint.
type KeyRotation struct {
	Previous string
	Current  string
}

// RotateKey validates candidate, persists it and only then swaps it in, so a
// failed write leaves both the store and the active key untouched.
// Rotations are serialized; verification does not wait on them.
func (s *Service) RotateKey(ctx context.Context, candidate string) (KeyRotation, error) {
	if err := s.keys.Validate([]byte(candidate)); err != nil {
		return KeyRotation{}, err
	}

	s.rotateMu.Lock()
	defer s.rotateMu.Unlock()

	if err := s.settings.Set(ctx, repository.SettingSigningKey, candidate); err != nil {
		return KeyRotation{}, apperrors.InternalServer(errPersistSetting, err)
	}

	previous, err := s.keys.Rotate([]byte(candidate))
	if err != nil {
		return KeyRotation{}, err
	}

	rotation := KeyRotation{Previous: previous, Current: s.keys.Current().Fingerprint()}
	s.log.WithFields(logrus.Fields{
		"previous": rotation.Previous,
		"current":  rotation.Current,
	}).Info("signing key rotated")
	return rotation, nil
}

// RotateToGeneratedKey installs a fresh random key. The key material never
// leaves the process; callers only learn the fingerprints.
func (s *Service) RotateToGeneratedKey(ctx context.Context) (KeyRotation, error) {
	key, err := auth.GenerateKey()
	if err != nil {
		return KeyRotation{}, apperrors.InternalServer(errGenerateKey, err)
	}
	return s.RotateKey(ctx, key)
}

func (s *Service) TimeZone() string {
	return s.cfg.Location.String()
}
