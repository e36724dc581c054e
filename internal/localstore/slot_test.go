package localstore

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-med/whitecard/internal/config"
	"github.com/lumen-med/whitecard/internal/domain"
)

func openTestSlot(t *testing.T) *Slot {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "whitecard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadMissingYieldsDefaults(t *testing.T) {
	s := openTestSlot(t)
	settings, found, err := s.Load()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, domain.LanguageZH, settings.Language)
	assert.Equal(t, domain.DefaultGeminiModel, settings.ActiveConfig.ModelName)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestSlot(t)

	settings := domain.DefaultSettings()
	settings.Language = domain.LanguageEN
	cfg := settings.Configs[domain.ProviderDify]
	cfg.BaseURL = "https://dify.example"
	cfg.ModelName = "dify-pro"
	settings.Configs[domain.ProviderDify] = cfg
	settings.ActiveConfig = cfg
	require.NoError(t, s.Save(settings))

	got, found, err := s.Load()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, domain.LanguageEN, got.Language)
	assert.Equal(t, "dify-pro", got.ActiveConfig.ModelName)
	assert.Equal(t, "https://dify.example", got.Configs[domain.ProviderDify].BaseURL)
}

func TestSaveIsIdempotentUpsert(t *testing.T) {
	s := openTestSlot(t)
	settings := domain.DefaultSettings()
	require.NoError(t, s.Save(settings))
	settings.Language = domain.LanguageEN
	require.NoError(t, s.Save(settings))

	got, _, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageEN, got.Language)

	var count int64
	require.NoError(t, s.db.Model(&record{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPersistedRecordNeverContainsSessions(t *testing.T) {
	s := openTestSlot(t)
	require.NoError(t, s.Save(domain.DefaultSettings()))

	var rec record
	require.NoError(t, s.db.First(&rec, "key = ?", config.StorageKey).Error)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Value, &raw))
	assert.Contains(t, raw, "configs")
	assert.Contains(t, raw, "activeConfig")
	assert.Contains(t, raw, "language")
	assert.NotContains(t, raw, "sessions")
	assert.NotContains(t, string(rec.Value), "image")
}

func TestSaveOverQuota(t *testing.T) {
	s := openTestSlot(t)
	s.maxBytes = 16

	err := s.Save(domain.DefaultSettings())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	// Nothing was written.
	_, found, err := s.Load()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPurgeLegacy(t *testing.T) {
	s := openTestSlot(t)

	for _, key := range config.LegacyStorageKeys {
		require.NoError(t, s.db.Create(&record{
			Key:       key,
			Value:     []byte(strings.Repeat("x", 64)),
			UpdatedAt: time.Now(),
		}).Error)
	}
	require.NoError(t, s.Save(domain.DefaultSettings()))

	require.NoError(t, s.PurgeLegacy())

	var count int64
	require.NoError(t, s.db.Model(&record{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// The current generation survives the purge.
	_, found, err := s.Load()
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCorruptSlotHeals(t *testing.T) {
	s := openTestSlot(t)
	require.NoError(t, s.db.Create(&record{
		Key:       config.StorageKey,
		Value:     []byte("{not json"),
		UpdatedAt: time.Now(),
	}).Error)

	settings, found, err := s.Load()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, domain.LanguageZH, settings.Language)
}
