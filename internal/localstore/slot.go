// Package localstore is the durable local cache: a single versioned
// slot holding only small bounded state (provider configs, language).
// Sessions and embedded report images are deliberately kept out so the
// cache can never outgrow its quota.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/lumen-med/whitecard/internal/config"
	"github.com/lumen-med/whitecard/internal/domain"
)

type Slot struct {
	db       *gorm.DB
	key      string
	maxBytes int
}

type record struct {
	Key       string `gorm:"primaryKey;column:key"`
	Value     []byte `gorm:"column:value"`
	UpdatedAt time.Time
}

func (record) TableName() string { return "slots" }

// Open opens (or creates) the slot database at path and purges
// superseded storage generations.
func Open(path string) (*Slot, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate local store: %w", err)
	}

	s := &Slot{db: db, key: config.StorageKey, maxBytes: config.MaxSlotBytes}
	if err := s.PurgeLegacy(); err != nil {
		slog.Warn("legacy slot cleanup failed", "error", err)
	}
	return s, nil
}

// Load reads the current-generation settings. A missing or unreadable
// record yields factory defaults; the second return value reports
// whether a persisted record was actually found.
func (s *Slot) Load() (domain.Settings, bool, error) {
	var rec record
	err := s.db.First(&rec, "key = ?", s.key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.DefaultSettings(), false, nil
	}
	if err != nil {
		return domain.DefaultSettings(), false, fmt.Errorf("load slot: %w", err)
	}

	var settings domain.Settings
	if err := json.Unmarshal(rec.Value, &settings); err != nil {
		// A corrupt slot heals itself: fall back to defaults, the next
		// save overwrites it.
		slog.Warn("slot record corrupt, using defaults", "key", s.key, "error", err)
		return domain.DefaultSettings(), false, nil
	}
	return settings, true, nil
}

// Save persists the settings under the current generation key. Writes
// exceeding the slot bound, or hitting sqlite's disk-full condition,
// are reported as domain.ErrQuotaExceeded.
func (s *Slot) Save(settings domain.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode slot: %w", err)
	}
	if len(raw) > s.maxBytes {
		return fmt.Errorf("%w: payload is %d bytes", domain.ErrQuotaExceeded, len(raw))
	}

	rec := record{Key: s.key, Value: raw, UpdatedAt: time.Now()}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
		if isDiskFull(err) {
			return fmt.Errorf("%w: %v", domain.ErrQuotaExceeded, err)
		}
		return fmt.Errorf("save slot: %w", err)
	}
	return nil
}

// PurgeLegacy removes every superseded storage generation. Run at
// startup and again whenever a quota error is recognized.
func (s *Slot) PurgeLegacy() error {
	res := s.db.Where("key IN ?", config.LegacyStorageKeys).Delete(&record{})
	if res.Error != nil {
		return fmt.Errorf("purge legacy slots: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		slog.Info("removed superseded slot generations", "count", res.RowsAffected)
	}
	return nil
}

func (s *Slot) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func isDiskFull(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database or disk is full") ||
		strings.Contains(msg, "SQLITE_FULL")
}
