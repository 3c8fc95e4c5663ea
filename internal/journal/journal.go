// Package journal persists a record of every entry and exit. It is a trade
// log, not a state store: open positions are not rehydrated on restart.
package journal

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Journal wraps the trade database
type Journal struct {
	db *gorm.DB
}

// Trade is one round trip (or the open half of one)
type Trade struct {
	ID         string          `gorm:"primaryKey"`
	TokenID    string          `gorm:"index"`
	Side       string          // "UP" or "DOWN"
	EntryPrice decimal.Decimal `gorm:"type:decimal(10,6)"`
	ExitPrice  decimal.Decimal `gorm:"type:decimal(10,6)"`
	Size       decimal.Decimal `gorm:"type:decimal(20,6)"`
	RefReturn  decimal.Decimal `gorm:"type:decimal(10,6)"`
	Status     string          `gorm:"index"` // "open", "closed"
	DryRun     bool
	Profit     decimal.Decimal `gorm:"type:decimal(20,6)"`
	EnteredAt  time.Time
	ExitedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New opens the journal. A postgres:// DSN selects PostgreSQL; anything else
// is treated as a SQLite file path.
func New(dbPath string) (*Journal, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Journal connected (PostgreSQL)")
	} else {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("Journal initialized (SQLite)")
	}

	if err := db.AutoMigrate(&Trade{}); err != nil {
		return nil, err
	}

	return &Journal{db: db}, nil
}

// RecordEntry saves the open half of a trade
func (j *Journal) RecordEntry(trade *Trade) error {
	trade.Status = "open"
	return j.db.Create(trade).Error
}

// RecordExit closes a trade with its exit price and profit
func (j *Journal) RecordExit(id string, exitPrice, profit decimal.Decimal, exitedAt time.Time) error {
	return j.db.Model(&Trade{}).Where("id = ?", id).Updates(map[string]interface{}{
		"exit_price": exitPrice,
		"profit":     profit,
		"status":     "closed",
		"exited_at":  exitedAt,
	}).Error
}

// CloseOpenTrade closes the most recent open trade for a token. Used when the
// exit event does not carry the entry's trade ID.
func (j *Journal) CloseOpenTrade(tokenID string, exitPrice, profit decimal.Decimal, exitedAt time.Time) error {
	var trade Trade
	err := j.db.Where("token_id = ? AND status = ?", tokenID, "open").
		Order("entered_at DESC").
		First(&trade).Error
	if err != nil {
		return err
	}
	return j.RecordExit(trade.ID, exitPrice, profit, exitedAt)
}

// GetTrade fetches a single trade by ID
func (j *Journal) GetTrade(id string) (*Trade, error) {
	var trade Trade
	err := j.db.First(&trade, "id = ?", id).Error
	return &trade, err
}

// GetOpenTrades returns trades without a recorded exit
func (j *Journal) GetOpenTrades() ([]Trade, error) {
	var trades []Trade
	err := j.db.Where("status = ?", "open").Order("entered_at DESC").Find(&trades).Error
	return trades, err
}

// GetRecentTrades returns the most recent trades
func (j *Journal) GetRecentTrades(limit int) ([]Trade, error) {
	var trades []Trade
	err := j.db.Order("entered_at DESC").Limit(limit).Find(&trades).Error
	return trades, err
}

// GetStats returns aggregate trading statistics
func (j *Journal) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalCount int64
	j.db.Model(&Trade{}).Count(&totalCount)
	stats["total_trades"] = totalCount

	var closedCount int64
	j.db.Model(&Trade{}).Where("status = ?", "closed").Count(&closedCount)
	stats["closed_trades"] = closedCount

	var wonCount int64
	j.db.Model(&Trade{}).Where("status = ? AND profit > 0", "closed").Count(&wonCount)
	stats["won_trades"] = wonCount

	var profitResult struct {
		Total decimal.Decimal
	}
	j.db.Model(&Trade{}).Select("COALESCE(SUM(profit), 0) as total").Scan(&profitResult)
	stats["total_profit"] = profitResult.Total

	return stats, nil
}
