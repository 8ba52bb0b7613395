package affinity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	interf "github.com/glkeru/affinity/internal/interfaces"
	model "github.com/glkeru/affinity/internal/models"
	"go.uber.org/zap"
)

// Проверка целостности журнала
type AuditService struct {
	logger  *zap.Logger
	db      interf.WalletStorage
	workers int
}

func NewAuditService(logger *zap.Logger, db interf.WalletStorage, workers int) *AuditService {
	if workers <= 0 {
		workers = 1
	}
	return &AuditService{logger, db, workers}
}

// VerifyOwner проверяет цепочку записей одного владельца и итоговый баланс.
// Кошелек и журнал читаются раздельно: записи, добавленные между чтениями, отбрасываются
func (a *AuditService) VerifyOwner(ctx context.Context, ownerID string) error {
	w, err := a.db.GetWallet(ctx, ownerID)
	if err != nil {
		return err
	}
	entries, err := a.db.GetEntries(ctx, ownerID, time.Time{}, time.Time{})
	if err != nil {
		return err
	}

	n := len(entries)
	for n > 0 && entries[n-1].Seq > w.TransactionCount {
		n--
	}
	if n < len(entries) {
		// лишние записи допустимы, только если кошелек их уже учел
		after, err := a.db.GetWallet(ctx, ownerID)
		if err != nil {
			return err
		}
		if last := entries[len(entries)-1].Seq; last > after.TransactionCount {
			return fmt.Errorf("owner %s: entry seq %d, transactionCount %d: %w",
				ownerID, last, after.TransactionCount, model.ErrLedgerBroken)
		}
	}
	return verifyChain(w, entries[:n])
}

func verifyChain(w model.Wallet, entries []model.LedgerEntry) error {
	if int64(len(entries)) != w.TransactionCount {
		return fmt.Errorf("owner %s: %d entries, transactionCount %d: %w",
			w.OwnerID, len(entries), w.TransactionCount, model.ErrLedgerBroken)
	}
	for i, e := range entries {
		if e.Seq != int64(i+1) {
			return fmt.Errorf("owner %s: entry %d has seq %d: %w", w.OwnerID, i+1, e.Seq, model.ErrLedgerBroken)
		}
		if !e.BalanceBefore.Add(e.Delta).Equal(e.BalanceAfter) {
			return fmt.Errorf("owner %s: seq %d: %s + %s != %s: %w", w.OwnerID, e.Seq,
				e.BalanceBefore, e.Delta, e.BalanceAfter, model.ErrLedgerBroken)
		}
		if e.BalanceAfter.IsNegative() {
			return fmt.Errorf("owner %s: seq %d: negative balance %s: %w", w.OwnerID, e.Seq, e.BalanceAfter, model.ErrLedgerBroken)
		}
		if i == 0 {
			if !e.BalanceBefore.IsZero() {
				return fmt.Errorf("owner %s: first entry starts at %s: %w", w.OwnerID, e.BalanceBefore, model.ErrLedgerBroken)
			}
			continue
		}
		if !entries[i-1].BalanceAfter.Equal(e.BalanceBefore) {
			return fmt.Errorf("owner %s: seq %d starts at %s, previous ends at %s: %w", w.OwnerID, e.Seq,
				e.BalanceBefore, entries[i-1].BalanceAfter, model.ErrLedgerBroken)
		}
	}
	if len(entries) > 0 && !entries[len(entries)-1].BalanceAfter.Equal(w.Balance) {
		return fmt.Errorf("owner %s: last entry %s, wallet %s: %w", w.OwnerID,
			entries[len(entries)-1].BalanceAfter, w.Balance, model.ErrLedgerBroken)
	}
	return nil
}

// VerifyAll - проверка всех владельцев, возвращает владельцев с нарушенной цепочкой
func (a *AuditService) VerifyAll(ctx context.Context) (broken []string, err error) {
	owners, err := a.db.GetOwners(ctx)
	if err != nil {
		return nil, err
	}

	// семафор
	semch := make(chan struct{}, a.workers)
	wg := &sync.WaitGroup{}
	mu := &sync.Mutex{}

	for _, owner := range owners {
		if ctx.Err() != nil {
			break
		}
		semch <- struct{}{}
		wg.Add(1)
		go func(owner string) {
			defer func() {
				wg.Done()
				<-semch
			}()
			err := a.VerifyOwner(ctx, owner)
			if err == nil {
				return
			}
			if !errors.Is(err, model.ErrLedgerBroken) {
				a.logger.Error("audit owner", zap.String("owner", owner), zap.Error(err))
				return
			}
			a.logger.Warn("ledger broken", zap.String("owner", owner), zap.Error(err))
			mu.Lock()
			broken = append(broken, owner)
			mu.Unlock()
		}(owner)
	}
	wg.Wait()

	a.logger.Info("audit finished",
		zap.Int("owners", len(owners)),
		zap.Int("broken", len(broken)),
	)
	return broken, ctx.Err()
}
