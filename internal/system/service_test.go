package system

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-auth/internal/auth"
	"shop-auth/internal/repository"
	apperrors "shop-auth/pkg/errors"
	"shop-auth/pkg/logger"
)

type memorySettings struct {
	mu       sync.Mutex
	values   map[string]string
	failSet  error
	setDelay time.Duration
}

func newMemorySettings() *memorySettings {
	return &memorySettings{values: map[string]string{}}
}

func (m *memorySettings) Get(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[name]
	if !ok {
		return "", apperrors.NotFound("setting not found")
	}
	return v, nil
}

func (m *memorySettings) Set(_ context.Context, name, value string) error {
	time.Sleep(m.setDelay)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.values[name] = value
	return nil
}

func (m *memorySettings) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, name)
	return nil
}

func key(seed string) string {
	return strings.Repeat(seed, auth.MinKeyBytes/len(seed)+1)[:auth.MinKeyBytes]
}

func newTestService(settings *memorySettings, configured string) (*Service, *auth.KeyManager) {
	keys := auth.NewKeyManager()
	loc := time.FixedZone("UTC+2", 2*60*60)
	return NewService(keys, settings, Config{SigningKey: configured, Location: loc}, logger.Discard()), keys
}

func TestBootstrapPersistsConfiguredKey(t *testing.T) {
	settings := newMemorySettings()
	svc, keys := newTestService(settings, key("config"))

	require.NoError(t, svc.Bootstrap(context.Background()))

	require.NotNil(t, keys.Current())
	assert.Equal(t, key("config"), settings.values[repository.SettingSigningKey])
	assert.Equal(t, "UTC+2", settings.values[repository.SettingTimeZone])
}

func TestBootstrapPrefersPersistedKey(t *testing.T) {
	settings := newMemorySettings()
	settings.values[repository.SettingSigningKey] = key("stored")
	svc, keys := newTestService(settings, key("config"))

	require.NoError(t, svc.Bootstrap(context.Background()))

	assert.Equal(t, auth.FingerprintKey([]byte(key("stored"))), keys.Current().Fingerprint())
	assert.Equal(t, key("stored"), settings.values[repository.SettingSigningKey])
}

func TestBootstrapReplacesInvalidPersistedKey(t *testing.T) {
	settings := newMemorySettings()
	settings.values[repository.SettingSigningKey] = "too-short"
	svc, keys := newTestService(settings, key("config"))

	require.NoError(t, svc.Bootstrap(context.Background()))

	assert.Equal(t, auth.FingerprintKey([]byte(key("config"))), keys.Current().Fingerprint())
	assert.Equal(t, key("config"), settings.values[repository.SettingSigningKey])
}

func TestBootstrapRejectsWeakConfiguredKey(t *testing.T) {
	svc, keys := newTestService(newMemorySettings(), "short")

	err := svc.Bootstrap(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrWeakKey)
	assert.Nil(t, keys.Current())
}

func TestBootstrapKeepsStoredTimeZone(t *testing.T) {
	settings := newMemorySettings()
	settings.values[repository.SettingTimeZone] = "Europe/Berlin"
	svc, _ := newTestService(settings, key("config"))

	require.NoError(t, svc.Bootstrap(context.Background()))
	assert.Equal(t, "Europe/Berlin", settings.values[repository.SettingTimeZone])
	assert.Equal(t, "UTC+2", svc.TimeZone())
}

func TestRotateKey(t *testing.T) {
	settings := newMemorySettings()
	svc, keys := newTestService(settings, key("config"))
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx))
	before := keys.Current().Fingerprint()

	rotation, err := svc.RotateKey(ctx, key("rotated"))
	require.NoError(t, err)
	assert.Equal(t, before, rotation.Previous)
	assert.Equal(t, auth.FingerprintKey([]byte(key("rotated"))), rotation.Current)
	assert.Equal(t, rotation.Current, keys.Current().Fingerprint())
	assert.Equal(t, key("rotated"), settings.values[repository.SettingSigningKey])
}

func TestConcurrentRotationsPersistTheActiveKey(t *testing.T) {
	settings := newMemorySettings()
	svc, keys := newTestService(settings, key("config"))
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx))
	settings.setDelay = time.Millisecond

	var wg sync.WaitGroup
	for _, seed := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		wg.Add(1)
		go func(seed string) {
			defer wg.Done()
			_, err := svc.RotateKey(ctx, key(seed))
			assert.NoError(t, err)
		}(seed)
	}
	wg.Wait()

	persisted := settings.values[repository.SettingSigningKey]
	assert.Equal(t, auth.FingerprintKey([]byte(persisted)), keys.Current().Fingerprint())
}

func TestRotateKeyRejectsWeakCandidate(t *testing.T) {
	settings := newMemorySettings()
	svc, keys := newTestService(settings, key("config"))
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx))
	before := keys.Current()

	_, err := svc.RotateKey(ctx, "short")
	assert.ErrorIs(t, err, apperrors.ErrWeakKey)
	assert.Same(t, before, keys.Current())
	assert.Equal(t, key("config"), settings.values[repository.SettingSigningKey])
}

func TestRotateKeyKeepsActiveKeyWhenPersistFails(t *testing.T) {
	settings := newMemorySettings()
	svc, keys := newTestService(settings, key("config"))
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx))
	before := keys.Current()

	settings.failSet = errors.New("disk full")
	_, err := svc.RotateKey(ctx, key("rotated"))
	assert.ErrorIs(t, err, apperrors.ErrInternalServer)
	assert.Same(t, before, keys.Current())
}

func TestRotateToGeneratedKey(t *testing.T) {
	settings := newMemorySettings()
	svc, keys := newTestService(settings, key("config"))
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx))
	before := keys.Current().Fingerprint()

	rotation, err := svc.RotateToGeneratedKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, rotation.Previous)
	assert.NotEqual(t, before, rotation.Current)
	assert.Equal(t, rotation.Current, keys.Current().Fingerprint())

	persisted := settings.values[repository.SettingSigningKey]
	assert.Equal(t, rotation.Current, auth.FingerprintKey([]byte(persisted)))
	assert.NoError(t, keys.Validate([]byte(persisted)))
}
