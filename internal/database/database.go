package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trading-assistant/internal/models"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// The trades ledger survives restarts, so migration must be additive only.
	if err := db.AutoMigrate(&models.Trade{}, &models.BotConfig{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return db, nil
}

// Store wraps the gorm handle with the ledger and config operations the
// rest of the application needs.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store backed by the given gorm handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SaveTrade appends one trade record to the ledger.
func (s *Store) SaveTrade(trade *models.Trade) error {
	if err := s.db.Create(trade).Error; err != nil {
		return fmt.Errorf("failed to save trade record: %w", err)
	}
	return nil
}

// ListTrades returns all ledger rows, most recent first.
func (s *Store) ListTrades() ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.db.Order("id desc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// UpsertBotConfig replaces the singleton strategy configuration row.
func (s *Store) UpsertBotConfig(cfg *models.BotConfig) error {
	cfg.ID = models.BotConfigID
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(cfg).Error
	if err != nil {
		return fmt.Errorf("failed to save bot config: %w", err)
	}
	return nil
}

// GetBotConfig fetches the singleton strategy configuration row.
// It returns gorm.ErrRecordNotFound when the operator has not configured
// the bot yet.
func (s *Store) GetBotConfig() (*models.BotConfig, error) {
	var cfg models.BotConfig
	if err := s.db.First(&cfg, models.BotConfigID).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}
