package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"upbit_bot/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage persists the market catalog and small runtime values.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite database at path.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		return nil, errors.New("empty database path")
	}

	// Ensure directory exists
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.MarketInfo{}, &domain.AppConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Market Operations
// ======================================================================================

// UpsertMarket creates or updates one catalog row
func (s *Storage) UpsertMarket(m *domain.MarketInfo) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market"}},
		UpdateAll: true,
	}).Create(m).Error
}

// ReplaceMarkets upserts markets and marks every other row inactive.
func (s *Storage) ReplaceMarkets(markets []domain.MarketInfo) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.MarketInfo{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		for i := range markets {
			markets[i].IsActive = true
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "market"}},
				UpdateAll: true,
			}).Create(&markets[i]).Error; err != nil {
				return fmt.Errorf("upsert %s: %w", markets[i].Market, err)
			}
		}
		return nil
	})
}

// GetMarket retrieves one catalog row, or nil if unknown
func (s *Storage) GetMarket(market string) (*domain.MarketInfo, error) {
	var m domain.MarketInfo
	err := s.db.First(&m, "market = ?", market).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ActiveMarkets returns listed markets ordered by code.
func (s *Storage) ActiveMarkets() ([]domain.MarketInfo, error) {
	var markets []domain.MarketInfo
	err := s.db.Where("is_active = ?", true).Order("market").Find(&markets).Error
	return markets, err
}

// WarnedMarkets returns the set of active markets flagged by the exchange.
func (s *Storage) WarnedMarkets() (map[string]bool, error) {
	var codes []string
	err := s.db.Model(&domain.MarketInfo{}).
		Where("is_active = ? AND warning = ?", true, true).
		Pluck("market", &codes).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]bool, len(codes))
	for _, c := range codes {
		out[c] = true
	}
	return out, nil
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SaveConfig stores a runtime value
func (s *Storage) SaveConfig(key, value string) error {
	config := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&config).Error
}

// LoadConfig returns the value stored under key.
func (s *Storage) LoadConfig(key string) (string, bool, error) {
	var cfg domain.AppConfig
	err := s.db.Where(&domain.AppConfig{Key: key}).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return cfg.Value, true, nil
}

// LoadConfigMap loads all runtime values as a map
func (s *Storage) LoadConfigMap() (map[string]string, error) {
	var configs []domain.AppConfig
	if err := s.db.Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}
	return result, nil
}

// SaveTime stores t under key in RFC3339 form.
func (s *Storage) SaveTime(key string, t time.Time) error {
	return s.SaveConfig(key, t.UTC().Format(time.RFC3339))
}

// LoadTime reads a value written by SaveTime.
func (s *Storage) LoadTime(key string) (time.Time, bool, error) {
	v, ok, err := s.LoadConfig(key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return t, true, nil
}
