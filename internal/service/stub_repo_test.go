package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"

	"tradelog/internal/models"
	"tradelog/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// InTx serializes callers and restores counters and trades when the
// callback fails, mirroring transactional rollback.
type stubRepo struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users       map[uint64]*models.User
	accounts    map[uint64]*models.Account
	instruments map[uint64]*models.Instrument
	checklists  map[string]*models.DailyChecklist
	counters    map[string]int
	trades      []*models.Trade
	stats       map[string]*models.DailyStat

	nextTradeID uint64

	// clock stamps CreatedAt on inserts; tests pin it alongside the
	// service clock.
	clock func() time.Time
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:       map[uint64]*models.User{},
		accounts:    map[uint64]*models.Account{},
		instruments: map[uint64]*models.Instrument{},
		checklists:  map[string]*models.DailyChecklist{},
		counters:    map[string]int{},
		stats:       map[string]*models.DailyStat{},
	}
}

func (s *stubRepo) now() time.Time {
	if s.clock != nil {
		return s.clock().UTC()
	}
	return time.Now().UTC()
}

func dayKey(userID uint64, day time.Time) string {
	return strconv.FormatUint(userID, 10) + "/" + day.UTC().Format("2006-01-02")
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	counterSnap := make(map[string]int, len(s.counters))
	for k, v := range s.counters {
		counterSnap[k] = v
	}
	tradesSnap := append([]*models.Trade(nil), s.trades...)
	s.mu.Unlock()

	err := fn(nil)
	if err != nil {
		s.mu.Lock()
		s.counters = counterSnap
		s.trades = tradesSnap
		s.mu.Unlock()
	}
	return err
}

func (s *stubRepo) GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.APIKey == apiKey {
			return u, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *stubRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubRepo) CreateAccount(ctx context.Context, item *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = uint64(len(s.accounts) + 1)
	}
	s.accounts[item.ID] = item
	return nil
}

func (s *stubRepo) GetAccountByID(ctx context.Context, id uint64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id], nil
}

func (s *stubRepo) ListAccountsByUserID(ctx context.Context, userID uint64) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubRepo) FirstAccountByUserID(ctx context.Context, userID uint64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first *models.Account
	for _, a := range s.accounts {
		if a.UserID == userID && (first == nil || a.ID < first.ID) {
			first = a
		}
	}
	return first, nil
}

func (s *stubRepo) UpsertInstrument(ctx context.Context, item *models.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ins := range s.instruments {
		if ins.Code == item.Code {
			item.ID = ins.ID
			s.instruments[ins.ID] = item
			return nil
		}
	}
	if item.ID == 0 {
		item.ID = uint64(len(s.instruments) + 1)
	}
	s.instruments[item.ID] = item
	return nil
}

func (s *stubRepo) GetInstrumentByID(ctx context.Context, id uint64) (*models.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instruments[id], nil
}

func (s *stubRepo) GetInstrumentByCode(ctx context.Context, code string) (*models.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ins := range s.instruments {
		if ins.Code == code {
			return ins, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListInstruments(ctx context.Context) ([]models.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Instrument
	for _, ins := range s.instruments {
		out = append(out, *ins)
	}
	return out, nil
}

func (s *stubRepo) UpsertDailyChecklist(ctx context.Context, item *models.DailyChecklist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checklists[dayKey(item.UserID, item.Date)] = item
	return nil
}

func (s *stubRepo) GetDailyChecklist(ctx context.Context, userID uint64, day time.Time) (*models.DailyChecklist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checklists[dayKey(userID, day)], nil
}

func (s *stubRepo) GetDailyChecklistTx(tx *gorm.DB, userID uint64, day time.Time) (*models.DailyChecklist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checklists[dayKey(userID, day)], nil
}

func (s *stubRepo) IncrementDayCounterTx(tx *gorm.DB, userID uint64, day time.Time, limit int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dayKey(userID, day)
	if s.counters[key] >= limit {
		return false, nil
	}
	s.counters[key]++
	return true, nil
}

func (s *stubRepo) DecrementDayCounterTx(tx *gorm.DB, userID uint64, day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dayKey(userID, day)
	if s.counters[key] > 0 {
		s.counters[key]--
	}
	return nil
}

func (s *stubRepo) InsertTradeTx(tx *gorm.DB, item *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTradeID++
	item.ID = s.nextTradeID
	item.CreatedAt = s.now()
	s.trades = append(s.trades, item)
	return nil
}

func (s *stubRepo) FindTradeByExternalIDTx(tx *gorm.DB, userID uint64, externalID string) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trades {
		if t.UserID == userID && t.ExternalID != nil && *t.ExternalID == externalID {
			return t, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) FindContentDuplicateTx(tx *gorm.DB, params repository.ContentMatchParams) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trades {
		if t.UserID == params.UserID &&
			t.InstrumentID == params.InstrumentID &&
			t.Direction == params.Direction &&
			t.EntryPrice.Equal(params.EntryPrice) &&
			t.EntryTime.Equal(params.EntryTime) &&
			t.CreatedAt.After(params.CreatedAfter) {
			return t, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetTradeByID(ctx context.Context, userID uint64, id uint64) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trades {
		if t.UserID == userID && t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Trade
	for _, t := range s.trades {
		if t.UserID != params.UserID {
			continue
		}
		if params.Status != nil && t.Status != *params.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *stubRepo) CountTrades(ctx context.Context, params repository.ListTradesParams) (int64, error) {
	items, err := s.ListTrades(ctx, params)
	return int64(len(items)), err
}

func (s *stubRepo) SaveTrade(ctx context.Context, item *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.trades {
		if t.ID == item.ID {
			s.trades[i] = item
			return nil
		}
	}
	return nil
}

func (s *stubRepo) DeleteTradeTx(tx *gorm.DB, userID uint64, id uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.trades {
		if t.UserID == userID && t.ID == id {
			s.trades = append(s.trades[:i], s.trades[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *stubRepo) ListClosedTrades(ctx context.Context, userID uint64, from, to *time.Time) ([]models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Trade
	for _, t := range s.trades {
		if t.UserID != userID || t.Status != models.TradeStatusClosed {
			continue
		}
		if from != nil && t.EntryTime.Before(*from) {
			continue
		}
		if to != nil && !t.EntryTime.Before(*to) {
			continue
		}
		out = append(out, *t)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].EntryTime.Before(out[j-1].EntryTime); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (s *stubRepo) CountActiveTradesOn(ctx context.Context, userID uint64, day time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dayStart := day.UTC().Truncate(24 * time.Hour)
	var n int64
	for _, t := range s.trades {
		if t.UserID == userID &&
			t.Status != models.TradeStatusCancelled &&
			t.EntryTime.UTC().Truncate(24*time.Hour).Equal(dayStart) {
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) UpsertDailyStat(ctx context.Context, item *models.DailyStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[dayKey(item.UserID, item.Date)] = item
	return nil
}

func (s *stubRepo) ListDailyStats(ctx context.Context, userID uint64, since time.Time) ([]models.DailyStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DailyStat
	for _, st := range s.stats {
		if st.UserID == userID && !st.Date.Before(since) {
			out = append(out, *st)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Date.Before(out[j-1].Date); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}
