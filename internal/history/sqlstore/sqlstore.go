// Package sqlstore persists calculation history with gorm.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"optionpricer/internal/history"
	"optionpricer/internal/logging"
)

// timestampLayout is the ISO-8601 seconds format stored in the timestamp column.
const timestampLayout = "2006-01-02T15:04:05"

// calculation is the row layout of the calculations table.
type calculation struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"`
	Timestamp    string  `gorm:"column:timestamp;not null"`
	SpotPrice    float64 `gorm:"column:spot_price;not null"`
	StrikePrice  float64 `gorm:"column:strike_price;not null"`
	TimeToExpiry float64 `gorm:"column:time_to_expiry;not null"`
	RiskFreeRate float64 `gorm:"column:risk_free_rate;not null"`
	Volatility   float64 `gorm:"column:volatility;not null"`
	CallPrice    float64 `gorm:"column:call_price;not null"`
	PutPrice     float64 `gorm:"column:put_price;not null"`
}

func (calculation) TableName() string { return "calculations" }

func fromRecord(r history.Record) calculation {
	return calculation{
		Timestamp:    r.Timestamp.UTC().Format(timestampLayout),
		SpotPrice:    r.Spot,
		StrikePrice:  r.Strike,
		TimeToExpiry: r.Expiry,
		RiskFreeRate: r.Rate,
		Volatility:   r.Volatility,
		CallPrice:    r.CallPrice,
		PutPrice:     r.PutPrice,
	}
}

func (c calculation) record() (history.Record, error) {
	ts, err := time.ParseInLocation(timestampLayout, c.Timestamp, time.UTC)
	if err != nil {
		return history.Record{}, fmt.Errorf("parse timestamp of row %d: %w", c.ID, err)
	}
	return history.Record{
		Timestamp:  ts,
		Spot:       c.SpotPrice,
		Strike:     c.StrikePrice,
		Expiry:     c.TimeToExpiry,
		Rate:       c.RiskFreeRate,
		Volatility: c.Volatility,
		CallPrice:  c.CallPrice,
		PutPrice:   c.PutPrice,
	}, nil
}

// Store is a history.Store backed by a SQL database.
type Store struct {
	db *gorm.DB
}

var _ history.Store = (*Store)(nil)

// Open connects with the named driver ("sqlite" or "postgres") and migrates the table.
func Open(driver, dsn string, log *logrus.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	if log == nil {
		log = logging.Discard()
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.NewGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == "sqlite" {
		// a single connection serialises writers on the same file
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	return New(db)
}

// New wraps an existing connection and migrates the table.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&calculation{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Append(ctx context.Context, r history.Record) error {
	row := fromRecord(r)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert calculation: %w", err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]history.Record, error) {
	if limit <= 0 {
		return []history.Record{}, nil
	}
	var rows []calculation
	if err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select calculations: %w", err)
	}
	out := make([]history.Record, 0, len(rows))
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
