package affinity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	interf "github.com/glkeru/affinity/internal/interfaces"
	model "github.com/glkeru/affinity/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type LedgerService struct {
	logger *zap.Logger
	db     interf.WalletStorage
	cache  interf.CacheStorage
	wealth *TierResolver
	clock  interf.Clock
}

// cache может быть nil
func NewLedgerService(logger *zap.Logger, db interf.WalletStorage, cache interf.CacheStorage, wealth *TierResolver, clock interf.Clock) *LedgerService {
	if clock == nil {
		clock = SystemClock()
	}
	return &LedgerService{logger, db, cache, wealth, clock}
}

func (l *LedgerService) WealthTiers() *TierResolver {
	return l.wealth
}

// Изменить баланс на delta. Запись в журнал и кошелек - одной операцией
func (l *LedgerService) ApplyDelta(ctx context.Context, ownerID string, delta decimal.Decimal, source model.Source, reference string) (entry model.LedgerEntry, err error) {
	if err = validateDelta(ownerID, delta, source); err != nil {
		return model.LedgerEntry{}, err
	}

	ctx, span := tracer.Start(ctx, "ApplyDelta")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner", ownerID),
		attribute.String("source", string(source)),
		attribute.String("delta", delta.String()),
	)

	now := l.clock.Now()
	var saved model.Wallet
	err = l.db.UpdateWallet(ctx, ownerID, now, func(tx interf.WalletTx) error {
		w := tx.Wallet()
		after := w.Balance.Add(delta)
		if after.IsNegative() {
			return &model.InsufficientBalanceError{OwnerID: ownerID, Balance: w.Balance, Delta: delta}
		}

		entry = model.LedgerEntry{
			ID:            uuid.New(),
			OwnerID:       ownerID,
			Delta:         delta,
			BalanceBefore: w.Balance,
			BalanceAfter:  after,
			Source:        source,
			Reference:     reference,
			Timestamp:     now,
		}

		w.Balance = after
		// в wealth идет только купленная валюта
		if source == model.PURCHASED && delta.IsPositive() {
			w.TotalPurchased = w.TotalPurchased.Add(delta)
		}
		if delta.IsNegative() {
			w.TotalSpent = w.TotalSpent.Add(delta.Abs())
		}
		w.TransactionCount++
		w.UpdatedAt = now
		entry.Seq = w.TransactionCount

		saved = w
		return tx.Append(ctx, w, entry)
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, model.ErrInsufficientBalance) {
			insufficientTotal.Inc()
			l.logger.Info("debit rejected",
				zap.String("owner", ownerID),
				zap.String("delta", delta.String()),
				zap.Error(err),
			)
		} else {
			l.logger.Error("apply delta",
				zap.String("owner", ownerID),
				zap.String("source", string(source)),
				zap.Error(err),
			)
		}
		return model.LedgerEntry{}, err
	}

	ledgerEntriesTotal.WithLabelValues(string(source)).Inc()
	l.refresh(ctx, saved)
	return entry, nil
}

// Пополнение из платежного сервиса; списания этим путем не проходят
func (l *LedgerService) TopUp(ctx context.Context, t model.TopUp) (model.LedgerEntry, error) {
	switch t.Source {
	case model.PURCHASED, model.BONUS, model.REFUND:
	default:
		return model.LedgerEntry{}, fmt.Errorf("topup source %q: %w", t.Source, model.ErrInvalidSource)
	}
	if !t.Amount.IsPositive() {
		return model.LedgerEntry{}, fmt.Errorf("topup amount %s: %w", t.Amount.String(), model.ErrNegativeInput)
	}
	return l.ApplyDelta(ctx, t.OwnerID, t.Amount, t.Source, t.TopUpID)
}

// TopUpJSON - пополнение из очереди, всегда возвращает подтверждение
func (l *LedgerService) TopUpJSON(ctx context.Context, payload []byte) model.TopUpConfirm {
	var t model.TopUp
	if err := json.Unmarshal(payload, &t); err != nil {
		l.logger.Error("topup message", zap.Error(err))
		return model.TopUpConfirm{Error: err.Error()}
	}
	if _, err := l.TopUp(ctx, t); err != nil {
		return model.TopUpConfirm{TopUpID: t.TopUpID, Error: err.Error()}
	}
	return model.TopUpConfirm{TopUpID: t.TopUpID, Success: true}
}

func validateDelta(ownerID string, delta decimal.Decimal, source model.Source) error {
	if ownerID == "" {
		return model.ErrEmptyOwner
	}
	switch source {
	case model.PURCHASED, model.BONUS, model.REFUND, model.EARNED:
		if delta.IsNegative() {
			return fmt.Errorf("%s delta %s: %w", source, delta.String(), model.ErrNegativeInput)
		}
	case model.CONSUMED:
		if delta.IsPositive() {
			return fmt.Errorf("consumed delta %s must not be positive: %w", delta.String(), model.ErrInvalidSource)
		}
	default:
		return fmt.Errorf("source %q: %w", source, model.ErrInvalidSource)
	}
	return nil
}

// Кошелек: кэш, затем база
func (l *LedgerService) GetWallet(ctx context.Context, ownerID string) (model.Wallet, error) {
	if l.cache != nil {
		w, err := l.cache.GetWallet(ctx, ownerID)
		if err == nil {
			return w, nil
		}
	}
	w, err := l.db.GetWallet(ctx, ownerID)
	if err != nil {
		return model.Wallet{}, err
	}
	if l.cache != nil {
		if err := l.cache.SetWallet(ctx, w); err != nil {
			l.logger.Error("cache set", zap.String("owner", ownerID), zap.Error(err))
		}
	}
	return w, nil
}

// Уровень богатства по купленной валюте
func (l *LedgerService) WealthTier(ctx context.Context, ownerID string) (model.TierDefinition, error) {
	w, err := l.GetWallet(ctx, ownerID)
	if err != nil {
		return model.TierDefinition{}, err
	}
	return l.wealth.Resolve(w.TotalPurchased.IntPart()), nil
}

// История операций
func (l *LedgerService) History(ctx context.Context, ownerID string, from time.Time, to time.Time) ([]model.LedgerEntry, error) {
	return l.db.GetEntries(ctx, ownerID, from, to)
}

// записать новую версию кошелька в кэш; при ошибке - сбросить
func (l *LedgerService) refresh(ctx context.Context, w model.Wallet) {
	if l.cache == nil {
		return
	}
	err := l.cache.SetWallet(ctx, w)
	if err == nil {
		return
	}
	l.logger.Error("cache set", zap.String("owner", w.OwnerID), zap.Error(err))
	if err := l.cache.InvalidateWallet(ctx, w.OwnerID); err != nil {
		l.logger.Error("cache invalidate", zap.String("owner", w.OwnerID), zap.Error(err))
	}
}
