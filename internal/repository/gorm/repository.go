package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradelog/internal/models"
	"tradelog/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Users -------------------------------------------------------------------

func (s *Store) GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("api_key = ?", apiKey).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.User
	if err := s.db.WithContext(ctx).Model(&models.User{}).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Accounts ----------------------------------------------------------------

func (s *Store) CreateAccount(ctx context.Context, item *models.Account) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetAccountByID(ctx context.Context, id uint64) (*models.Account, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Account
	err := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAccountsByUserID(ctx context.Context, userID uint64) ([]models.Account, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Account
	if err := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) FirstAccountByUserID(ctx context.Context, userID uint64) (*models.Account, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Account
	err := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("user_id = ?", userID).
		Order("id asc").
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Instrument catalog ------------------------------------------------------

func (s *Store) UpsertInstrument(ctx context.Context, item *models.Instrument) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Code) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"tick_size",
			"tick_value",
			"session_times",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetInstrumentByID(ctx context.Context, id uint64) (*models.Instrument, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Instrument
	err := s.db.WithContext(ctx).Model(&models.Instrument{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetInstrumentByCode(ctx context.Context, code string) (*models.Instrument, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var item models.Instrument
	err := s.db.WithContext(ctx).Model(&models.Instrument{}).Where("code = ?", code).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListInstruments(ctx context.Context) ([]models.Instrument, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Instrument
	if err := s.db.WithContext(ctx).Model(&models.Instrument{}).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Daily checklist ---------------------------------------------------------

func (s *Store) UpsertDailyChecklist(ctx context.Context, item *models.DailyChecklist) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Date = item.Date.Truncate(24 * time.Hour)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score_percentage",
			"passed",
			"responses",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetDailyChecklist(ctx context.Context, userID uint64, day time.Time) (*models.DailyChecklist, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return getChecklist(s.db.WithContext(ctx), userID, day)
}

func (s *Store) GetDailyChecklistTx(tx *gorm.DB, userID uint64, day time.Time) (*models.DailyChecklist, error) {
	if tx == nil {
		return nil, nil
	}
	return getChecklist(tx, userID, day)
}

func getChecklist(q *gorm.DB, userID uint64, day time.Time) (*models.DailyChecklist, error) {
	var item models.DailyChecklist
	err := q.Model(&models.DailyChecklist{}).
		Where("user_id = ? AND date = ?", userID, day.Truncate(24*time.Hour)).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Readiness gate counter --------------------------------------------------

// IncrementDayCounterTx advances the per-user-per-day trade counter with a
// guarded UPDATE. The count predicate makes the check-and-increment a
// single atomic statement, so two racing ingestions cannot both pass a
// nearly-exhausted limit.
func (s *Store) IncrementDayCounterTx(tx *gorm.DB, userID uint64, day time.Time, limit int) (bool, error) {
	if tx == nil {
		return false, nil
	}
	day = day.Truncate(24 * time.Hour)
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(&models.TradeDayCounter{UserID: userID, Date: day}).Error; err != nil {
		return false, err
	}
	res := tx.Exec(
		`UPDATE trade_day_counters
		 SET count = count + 1, updated_at = NOW()
		 WHERE user_id = ? AND date = ? AND count < ?`,
		userID, day, limit,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) DecrementDayCounterTx(tx *gorm.DB, userID uint64, day time.Time) error {
	if tx == nil {
		return nil
	}
	return tx.Exec(
		`UPDATE trade_day_counters
		 SET count = count - 1, updated_at = NOW()
		 WHERE user_id = ? AND date = ? AND count > 0`,
		userID, day.Truncate(24*time.Hour),
	).Error
}

// --- Trades ------------------------------------------------------------------

func (s *Store) InsertTradeTx(tx *gorm.DB, item *models.Trade) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.Create(item).Error
}

func (s *Store) FindTradeByExternalIDTx(tx *gorm.DB, userID uint64, externalID string) (*models.Trade, error) {
	if tx == nil {
		return nil, nil
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, nil
	}
	var item models.Trade
	err := tx.Model(&models.Trade{}).
		Where("user_id = ? AND external_id = ?", userID, externalID).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) FindContentDuplicateTx(tx *gorm.DB, params repository.ContentMatchParams) (*models.Trade, error) {
	if tx == nil {
		return nil, nil
	}
	var item models.Trade
	err := tx.Model(&models.Trade{}).
		Where("user_id = ?", params.UserID).
		Where("instrument_id = ?", params.InstrumentID).
		Where("direction = ?", params.Direction).
		Where("entry_price = ?", params.EntryPrice).
		Where("entry_time = ?", params.EntryTime).
		Where("created_at >= ?", params.CreatedAfter).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetTradeByID(ctx context.Context, userID uint64, id uint64) (*models.Trade, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Trade
	err := s.db.WithContext(ctx).Model(&models.Trade{}).
		Where("user_id = ? AND id = ?", userID, id).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func tradeQuery(q *gorm.DB, params repository.ListTradesParams) *gorm.DB {
	q = q.Where("user_id = ?", params.UserID)
	if params.AccountID != nil && *params.AccountID > 0 {
		q = q.Where("account_id = ?", *params.AccountID)
	}
	if params.InstrumentID != nil && *params.InstrumentID > 0 {
		q = q.Where("instrument_id = ?", *params.InstrumentID)
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		q = q.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Since != nil && !params.Since.IsZero() {
		q = q.Where("entry_time >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		q = q.Where("entry_time < ?", *params.Until)
	}
	return q
}

func (s *Store) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := tradeQuery(s.db.WithContext(ctx).Model(&models.Trade{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "entry_time")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Trade
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTrades(ctx context.Context, params repository.ListTradesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := tradeQuery(s.db.WithContext(ctx).Model(&models.Trade{}), params).Count(&total).Error
	return total, err
}

func (s *Store) SaveTrade(ctx context.Context, item *models.Trade) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) DeleteTradeTx(tx *gorm.DB, userID uint64, id uint64) (int64, error) {
	if tx == nil || id == 0 {
		return 0, nil
	}
	res := tx.Where("user_id = ? AND id = ?", userID, id).Delete(&models.Trade{})
	return res.RowsAffected, res.Error
}

func (s *Store) ListClosedTrades(ctx context.Context, userID uint64, from, to *time.Time) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Trade{}).
		Where("user_id = ?", userID).
		Where("status = ?", models.TradeStatusClosed)
	if from != nil && !from.IsZero() {
		query = query.Where("entry_time >= ?", *from)
	}
	if to != nil && !to.IsZero() {
		query = query.Where("entry_time < ?", *to)
	}
	var items []models.Trade
	if err := query.Order("entry_time asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountActiveTradesOn(ctx context.Context, userID uint64, day time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	dayStart := day.Truncate(24 * time.Hour)
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Trade{}).
		Where("user_id = ?", userID).
		Where("status <> ?", models.TradeStatusCancelled).
		Where("entry_time >= ? AND entry_time < ?", dayStart, dayStart.AddDate(0, 0, 1)).
		Count(&total).Error
	return total, err
}

// --- Daily stats -------------------------------------------------------------

func (s *Store) UpsertDailyStat(ctx context.Context, item *models.DailyStat) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Date = item.Date.Truncate(24 * time.Hour)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"trades_count",
			"win_count",
			"loss_count",
			"net_pnl",
			"cumulative_pnl",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListDailyStats(ctx context.Context, userID uint64, since time.Time) ([]models.DailyStat, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.DailyStat{}).Where("user_id = ?", userID)
	if !since.IsZero() {
		query = query.Where("date >= ?", since.Truncate(24*time.Hour))
	}
	var items []models.DailyStat
	if err := query.Order("date asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Helpers -----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
