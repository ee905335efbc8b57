package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tradelog/internal/models"
)

// ContentMatchParams identifies an economic event for fallback
// deduplication when no broker ticket is available.
type ContentMatchParams struct {
	UserID       uint64
	InstrumentID uint64
	Direction    string
	EntryPrice   decimal.Decimal
	EntryTime    time.Time
	CreatedAfter time.Time
}

type ListTradesParams struct {
	UserID       uint64
	AccountID    *uint64
	InstrumentID *uint64
	Status       *string
	Since        *time.Time
	Until        *time.Time
	Limit        int
	Offset       int
	OrderBy      string
	Asc          *bool
}

type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Users
	GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	// Accounts
	CreateAccount(ctx context.Context, item *models.Account) error
	GetAccountByID(ctx context.Context, id uint64) (*models.Account, error)
	ListAccountsByUserID(ctx context.Context, userID uint64) ([]models.Account, error)
	FirstAccountByUserID(ctx context.Context, userID uint64) (*models.Account, error)

	// Instrument catalog
	UpsertInstrument(ctx context.Context, item *models.Instrument) error
	GetInstrumentByID(ctx context.Context, id uint64) (*models.Instrument, error)
	GetInstrumentByCode(ctx context.Context, code string) (*models.Instrument, error)
	ListInstruments(ctx context.Context) ([]models.Instrument, error)

	// Daily checklist
	UpsertDailyChecklist(ctx context.Context, item *models.DailyChecklist) error
	GetDailyChecklist(ctx context.Context, userID uint64, day time.Time) (*models.DailyChecklist, error)
	GetDailyChecklistTx(tx *gorm.DB, userID uint64, day time.Time) (*models.DailyChecklist, error)

	// Readiness gate counter. The increment applies only while the stored
	// count is below the limit; the bool reports whether it applied.
	IncrementDayCounterTx(tx *gorm.DB, userID uint64, day time.Time, limit int) (bool, error)
	DecrementDayCounterTx(tx *gorm.DB, userID uint64, day time.Time) error

	// Trades
	InsertTradeTx(tx *gorm.DB, item *models.Trade) error
	FindTradeByExternalIDTx(tx *gorm.DB, userID uint64, externalID string) (*models.Trade, error)
	FindContentDuplicateTx(tx *gorm.DB, params ContentMatchParams) (*models.Trade, error)
	GetTradeByID(ctx context.Context, userID uint64, id uint64) (*models.Trade, error)
	ListTrades(ctx context.Context, params ListTradesParams) ([]models.Trade, error)
	CountTrades(ctx context.Context, params ListTradesParams) (int64, error)
	SaveTrade(ctx context.Context, item *models.Trade) error
	// DeleteTradeTx reports the number of rows removed so callers can tie
	// follow-up bookkeeping to the delete actually landing.
	DeleteTradeTx(tx *gorm.DB, userID uint64, id uint64) (int64, error)
	ListClosedTrades(ctx context.Context, userID uint64, from, to *time.Time) ([]models.Trade, error)
	CountActiveTradesOn(ctx context.Context, userID uint64, day time.Time) (int64, error)

	// Daily stats snapshots
	UpsertDailyStat(ctx context.Context, item *models.DailyStat) error
	ListDailyStats(ctx context.Context, userID uint64, since time.Time) ([]models.DailyStat, error)
}
