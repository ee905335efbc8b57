package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tradelog/internal/broker"
	"tradelog/internal/config"
	"tradelog/internal/gate"
	"tradelog/internal/models"
	"tradelog/internal/notify"
	"tradelog/internal/pnl"
	"tradelog/internal/repository"
	"tradelog/internal/symbol"
)

type IngestOutcome string

const (
	OutcomeAdmitted         IngestOutcome = "admitted"
	OutcomeDuplicateIgnored IngestOutcome = "duplicate_ignored"
	OutcomeRejected         IngestOutcome = "rejected"
)

const ReasonUnresolvedInstrument = "unresolved_instrument"

// IngestResult is the tagged outcome of an ingestion attempt. Callers can
// always tell an insert from a silently absorbed duplicate from a
// rejection.
type IngestResult struct {
	Outcome IngestOutcome `json:"outcome"`
	Reason  string        `json:"reason,omitempty"`
	Message string        `json:"message,omitempty"`
	Trade   *models.Trade `json:"trade,omitempty"`
}

// ValidationError marks caller-side input failures; handlers surface it
// as a 400-class response instead of a server error.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Control-flow sentinels used to roll back the ingestion transaction
// without losing the outcome.
var (
	errDuplicateEvent = errors.New("duplicate event")
	errGateRejected   = errors.New("gate rejected")
)

type IngestService struct {
	Repo     repository.Repository
	Gate     *gate.Gate
	Notifier notify.Notifier
	Logger   *zap.Logger
	Config   config.IngestConfig

	// Now is a test seam; production wiring leaves it nil.
	Now func() time.Time
}

func (s *IngestService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

type ManualTradeInput struct {
	User         *models.User
	AccountID    uint64
	InstrumentID uint64
	Direction    string
	EntryPrice   decimal.Decimal
	ExitPrice    *decimal.Decimal
	StopLoss     *decimal.Decimal
	TakeProfit   *decimal.Decimal
	PositionSize decimal.Decimal
	Fees         decimal.Decimal
	EntryTime    time.Time
	ExitTime     *time.Time

	SetupQuality     *int
	ExecutionQuality *int
	EmotionalState   string
	Notes            string
}

// IngestManual records a trade entered by hand. The entry is already in
// canonical time and tied to a known instrument, so no resolution or
// offset normalization happens on this path.
func (s *IngestService) IngestManual(ctx context.Context, in ManualTradeInput) (IngestResult, error) {
	if in.User == nil {
		return IngestResult{}, validationf("user missing")
	}
	if !in.PositionSize.IsPositive() {
		return IngestResult{}, validationf("position_size must be positive")
	}
	if in.Fees.IsNegative() {
		return IngestResult{}, validationf("fees must not be negative")
	}
	if in.Direction != models.DirectionLong && in.Direction != models.DirectionShort {
		return IngestResult{}, validationf("direction must be LONG or SHORT")
	}
	if in.EntryTime.IsZero() {
		return IngestResult{}, validationf("entry_time missing")
	}

	account, err := s.Repo.GetAccountByID(ctx, in.AccountID)
	if err != nil {
		return IngestResult{}, err
	}
	if account == nil || account.UserID != in.User.ID {
		return IngestResult{}, validationf("account %d not found", in.AccountID)
	}
	instrument, err := s.Repo.GetInstrumentByID(ctx, in.InstrumentID)
	if err != nil {
		return IngestResult{}, err
	}
	if instrument == nil {
		return IngestResult{}, validationf("instrument %d not found", in.InstrumentID)
	}

	trade := &models.Trade{
		UserID:           in.User.ID,
		AccountID:        account.ID,
		InstrumentID:     instrument.ID,
		Direction:        in.Direction,
		EntryPrice:       in.EntryPrice,
		ExitPrice:        in.ExitPrice,
		StopLoss:         in.StopLoss,
		TakeProfit:       in.TakeProfit,
		PositionSize:     in.PositionSize,
		Fees:             in.Fees,
		EntryTime:        in.EntryTime.UTC(),
		ExitTime:         in.ExitTime,
		SetupQuality:     in.SetupQuality,
		ExecutionQuality: in.ExecutionQuality,
		EmotionalState:   in.EmotionalState,
		Notes:            in.Notes,
	}
	ApplyComputation(trade, instrument)

	return s.insertGated(ctx, in.User, trade, s.manualWindow())
}

// IngestWebhook records a trade delivered by the broker feed: the symbol
// is resolved against the catalog and timestamps are shifted by the
// account's broker offset before the shared gated insert runs.
func (s *IngestService) IngestWebhook(ctx context.Context, user *models.User, req broker.WebhookRequest) (IngestResult, error) {
	if user == nil {
		return IngestResult{}, validationf("user missing")
	}

	account, err := s.webhookAccount(ctx, user, req.AccountID)
	if err != nil {
		return IngestResult{}, err
	}

	catalog, err := s.Repo.ListInstruments(ctx)
	if err != nil {
		return IngestResult{}, err
	}
	instrument, err := symbol.Resolve(req.Trade.Symbol, catalog)
	if err != nil {
		var nf *symbol.NotFoundError
		if errors.As(err, &nf) {
			if s.Logger != nil {
				s.Logger.Info("webhook: instrument unresolved",
					zap.Uint64("user_id", user.ID),
					zap.String("symbol", req.Trade.Symbol),
				)
			}
			return IngestResult{
				Outcome: OutcomeRejected,
				Reason:  ReasonUnresolvedInstrument,
				Message: nf.Error(),
			}, nil
		}
		return IngestResult{}, err
	}

	direction, err := broker.Direction(req.Trade.Type)
	if err != nil {
		return IngestResult{}, &ValidationError{Msg: err.Error()}
	}

	entryTime, err := broker.ParseTime(req.Trade.EntryTime)
	if err != nil {
		return IngestResult{}, &ValidationError{Msg: err.Error()}
	}
	entryTime = broker.NormalizeTime(entryTime, account.BrokerTimeOffset)

	var exitTime *time.Time
	if strings.TrimSpace(req.Trade.ExitTime) != "" {
		et, err := broker.ParseTime(req.Trade.ExitTime)
		if err != nil {
			return IngestResult{}, &ValidationError{Msg: err.Error()}
		}
		et = broker.NormalizeTime(et, account.BrokerTimeOffset)
		exitTime = &et
	}
	// A positive exit price is what closes the trade; some bridges omit the
	// exit timestamp on the close report.
	var exitPrice *decimal.Decimal
	if req.Trade.ExitPrice.IsPositive() {
		ep := req.Trade.ExitPrice
		exitPrice = &ep
	} else if exitTime != nil {
		return IngestResult{}, validationf("exit_price must be positive on closed trades")
	}

	var stopLoss *decimal.Decimal
	if req.Trade.StopLoss != nil && !req.Trade.StopLoss.IsZero() {
		stopLoss = req.Trade.StopLoss
	}
	var takeProfit *decimal.Decimal
	if req.Trade.TakeProfit != nil && !req.Trade.TakeProfit.IsZero() {
		takeProfit = req.Trade.TakeProfit
	}

	var externalID *string
	if ticket := strings.TrimSpace(req.Trade.Ticket.String()); ticket != "" {
		externalID = &ticket
	}

	// MT4/MT5 reports commission and swap as signed charges.
	fees := req.Trade.Commission.Abs().Add(req.Trade.Swap.Abs())

	trade := &models.Trade{
		UserID:       user.ID,
		AccountID:    account.ID,
		InstrumentID: instrument.ID,
		Direction:    direction,
		EntryPrice:   req.Trade.EntryPrice,
		ExitPrice:    exitPrice,
		StopLoss:     stopLoss,
		TakeProfit:   takeProfit,
		PositionSize: req.Trade.Volume,
		Fees:         fees,
		EntryTime:    entryTime,
		ExitTime:     exitTime,
		ExternalID:   externalID,
	}
	ApplyComputation(trade, instrument)

	return s.insertGated(ctx, user, trade, s.webhookWindow())
}

func (s *IngestService) webhookAccount(ctx context.Context, user *models.User, accountID *uint64) (*models.Account, error) {
	if accountID != nil && *accountID > 0 {
		account, err := s.Repo.GetAccountByID(ctx, *accountID)
		if err != nil {
			return nil, err
		}
		if account == nil || account.UserID != user.ID {
			return nil, validationf("account %d not found", *accountID)
		}
		return account, nil
	}
	account, err := s.Repo.FirstAccountByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, validationf("user has no trading account")
	}
	return account, nil
}

// insertGated runs gate, dedup and insert in a single transaction. A
// duplicate or rejection rolls the whole transaction back, which also
// restores the day counter.
func (s *IngestService) insertGated(ctx context.Context, user *models.User, trade *models.Trade, window time.Duration) (IngestResult, error) {
	var result IngestResult
	now := s.now()
	// The gate is keyed on the trade's entry date, the same quantity the
	// status endpoint reports, so a backfilled trade consumes that day's
	// budget rather than today's.
	day := trade.EntryTime.UTC().Truncate(24 * time.Hour)

	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		decision, err := s.Gate.AdmitTx(ctx, tx, user, day)
		if err != nil {
			return err
		}
		if !decision.Admitted {
			result = IngestResult{
				Outcome: OutcomeRejected,
				Reason:  string(decision.Reason),
				Message: decision.Reason.Message(),
			}
			return errGateRejected
		}

		// A broker ticket is authoritative: the event is a duplicate iff
		// the ticket was seen before. The content match is the fallback
		// for unticketed events only; partial fills share price and time
		// across distinct tickets and must all persist.
		if trade.ExternalID != nil {
			existing, err := s.Repo.FindTradeByExternalIDTx(tx, user.ID, *trade.ExternalID)
			if err != nil {
				return err
			}
			if existing != nil {
				result = IngestResult{Outcome: OutcomeDuplicateIgnored, Trade: existing}
				return errDuplicateEvent
			}
		} else {
			existing, err := s.Repo.FindContentDuplicateTx(tx, repository.ContentMatchParams{
				UserID:       user.ID,
				InstrumentID: trade.InstrumentID,
				Direction:    trade.Direction,
				EntryPrice:   trade.EntryPrice,
				EntryTime:    trade.EntryTime,
				CreatedAfter: now.Add(-window),
			})
			if err != nil {
				return err
			}
			if existing != nil {
				result = IngestResult{Outcome: OutcomeDuplicateIgnored, Trade: existing}
				return errDuplicateEvent
			}
		}

		if err := s.Repo.InsertTradeTx(tx, trade); err != nil {
			if isExternalIDConflict(err) {
				result = IngestResult{Outcome: OutcomeDuplicateIgnored}
				return errDuplicateEvent
			}
			return err
		}
		result = IngestResult{Outcome: OutcomeAdmitted, Trade: trade}
		return nil
	})

	switch {
	case err == nil:
		if s.Logger != nil {
			s.Logger.Info("trade ingested",
				zap.Uint64("user_id", user.ID),
				zap.Uint64("trade_id", trade.ID),
				zap.String("direction", trade.Direction),
				zap.String("status", trade.Status),
			)
		}
		return result, nil
	case errors.Is(err, errDuplicateEvent):
		if s.Logger != nil {
			s.Logger.Info("duplicate trade ignored", zap.Uint64("user_id", user.ID))
		}
		return result, nil
	case errors.Is(err, errGateRejected):
		if result.Reason == string(gate.ReasonLimitReached) && s.Notifier != nil {
			s.Notifier.OvertradingLimitReached(ctx, user.ID, day, s.Gate.Limit(user))
		}
		return result, nil
	default:
		return IngestResult{}, err
	}
}

// DeleteTrade removes a trade and frees its slot in the entry day's
// budget. Delete and decrement run in one transaction, and the decrement
// is tied to the delete having affected a row, so concurrent deletes of
// the same trade cannot free the slot twice.
func (s *IngestService) DeleteTrade(ctx context.Context, user *models.User, id uint64) (bool, error) {
	if user == nil || id == 0 {
		return false, nil
	}
	trade, err := s.Repo.GetTradeByID(ctx, user.ID, id)
	if err != nil {
		return false, err
	}
	if trade == nil {
		return false, nil
	}

	deleted := false
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		n, err := s.Repo.DeleteTradeTx(tx, user.ID, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		deleted = true
		if trade.Status == models.TradeStatusCancelled {
			return nil
		}
		day := trade.EntryTime.UTC().Truncate(24 * time.Hour)
		return s.Repo.DecrementDayCounterTx(tx, user.ID, day)
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (s *IngestService) manualWindow() time.Duration {
	if s.Config.ManualDedupWindow > 0 {
		return s.Config.ManualDedupWindow
	}
	return 10 * time.Second
}

func (s *IngestService) webhookWindow() time.Duration {
	if s.Config.WebhookDedupWindow > 0 {
		return s.Config.WebhookDedupWindow
	}
	return 60 * time.Second
}

// ApplyComputation recomputes every derived field from scratch. Updates
// call it as well, so derived values are never incrementally patched.
func ApplyComputation(trade *models.Trade, instrument *models.Instrument) {
	res := pnl.Compute(pnl.Input{
		Direction:    trade.Direction,
		EntryPrice:   trade.EntryPrice,
		ExitPrice:    trade.ExitPrice,
		StopLoss:     trade.StopLoss,
		PositionSize: trade.PositionSize,
		Fees:         trade.Fees,
		TickSize:     instrument.TickSize,
		TickValue:    instrument.TickValue,
	})
	trade.GrossPnL = res.GrossPnL
	trade.NetPnL = res.NetPnL
	trade.RMultiple = res.RMultiple
	if trade.Status != models.TradeStatusCancelled {
		trade.Status = res.Status
	}
}

// isExternalIDConflict matches the partial unique index on
// (user_id, external_id); any other unique violation is a transient
// failure the caller may retry.
func isExternalIDConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == "idx_trades_user_external"
}
