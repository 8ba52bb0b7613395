package affinity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	db "github.com/glkeru/affinity/internal/db"
	model "github.com/glkeru/affinity/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newLedgerService(t *testing.T) (*LedgerService, *db.MemoryDB) {
	t.Helper()
	wealth, err := NewTierResolver(model.DefaultWealthTiers())
	require.NoError(t, err)
	storage := db.NewMemoryDB()
	return NewLedgerService(zap.NewNop(), storage, nil, wealth, fixedClock{testNow}), storage
}

func TestApplyDeltaInsufficientBalance(t *testing.T) {
	serv, _ := newLedgerService(t)
	ctx := context.Background()

	entry, err := serv.ApplyDelta(ctx, "alice", dec("50"), model.PURCHASED, "pay-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), entry.Seq)
	require.True(t, entry.BalanceBefore.IsZero())
	require.True(t, entry.BalanceAfter.Equal(dec("50")))
	require.Equal(t, "pay-1", entry.Reference)
	require.Equal(t, testNow, entry.Timestamp)

	_, err = serv.ApplyDelta(ctx, "alice", dec("-80"), model.CONSUMED, "gift-1")
	require.ErrorIs(t, err, model.ErrInsufficientBalance)
	var ierr *model.InsufficientBalanceError
	require.True(t, errors.As(err, &ierr))
	require.True(t, ierr.Balance.Equal(dec("50")))
	require.True(t, ierr.Delta.Equal(dec("-80")))

	w, err := serv.GetWallet(ctx, "alice")
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(dec("50")))
	require.Equal(t, int64(1), w.TransactionCount)
	require.True(t, w.TotalSpent.IsZero())

	entries, err := serv.History(ctx, "alice", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestApplyDeltaExactBalance(t *testing.T) {
	serv, _ := newLedgerService(t)
	ctx := context.Background()

	_, err := serv.ApplyDelta(ctx, "alice", dec("10.50"), model.BONUS, "")
	require.NoError(t, err)
	entry, err := serv.ApplyDelta(ctx, "alice", dec("-10.5"), model.CONSUMED, "")
	require.NoError(t, err)
	require.True(t, entry.BalanceAfter.IsZero())

	w, err := serv.GetWallet(ctx, "alice")
	require.NoError(t, err)
	require.True(t, w.Balance.IsZero())
	require.True(t, w.TotalSpent.Equal(dec("10.5")))
	require.Equal(t, int64(2), w.TransactionCount)
}

// в wealth идет только PURCHASED
func TestWealthCountsPurchasedOnly(t *testing.T) {
	serv, _ := newLedgerService(t)
	ctx := context.Background()

	_, err := serv.ApplyDelta(ctx, "alice", dec("100"), model.PURCHASED, "")
	require.NoError(t, err)
	_, err = serv.ApplyDelta(ctx, "alice", dec("100"), model.BONUS, "")
	require.NoError(t, err)
	_, err = serv.ApplyDelta(ctx, "alice", dec("30"), model.EARNED, "")
	require.NoError(t, err)
	_, err = serv.ApplyDelta(ctx, "alice", dec("-150"), model.CONSUMED, "")
	require.NoError(t, err)
	_, err = serv.ApplyDelta(ctx, "alice", dec("20"), model.REFUND, "")
	require.NoError(t, err)

	w, err := serv.GetWallet(ctx, "alice")
	require.NoError(t, err)
	require.True(t, w.TotalPurchased.Equal(dec("100")), w.TotalPurchased.String())
	require.True(t, w.Balance.Equal(dec("100")), w.Balance.String())
	require.True(t, w.TotalSpent.Equal(dec("150")))
	require.Equal(t, int64(5), w.TransactionCount)

	tier, err := serv.WealthTier(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 2, tier.Tier)
}

func TestWealthTierFloorsPurchased(t *testing.T) {
	serv, _ := newLedgerService(t)
	ctx := context.Background()

	_, err := serv.ApplyDelta(ctx, "alice", dec("99.99"), model.PURCHASED, "")
	require.NoError(t, err)
	tier, err := serv.WealthTier(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, tier.Tier)

	_, err = serv.WealthTier(ctx, "nobody")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestApplyDeltaValidation(t *testing.T) {
	serv, storage := newLedgerService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		owner    string
		delta    string
		source   model.Source
		expected error
	}{
		{"empty owner", "", "10", model.PURCHASED, model.ErrEmptyOwner},
		{"negative purchase", "alice", "-10", model.PURCHASED, model.ErrNegativeInput},
		{"negative bonus", "alice", "-1", model.BONUS, model.ErrNegativeInput},
		{"negative refund", "alice", "-1", model.REFUND, model.ErrNegativeInput},
		{"negative earned", "alice", "-1", model.EARNED, model.ErrNegativeInput},
		{"positive consume", "alice", "5", model.CONSUMED, model.ErrInvalidSource},
		{"unknown source", "alice", "5", model.Source("vip"), model.ErrInvalidSource},
	}
	for _, ts := range tests {
		_, err := serv.ApplyDelta(ctx, ts.owner, dec(ts.delta), ts.source, "")
		require.ErrorIs(t, err, ts.expected, ts.name)
	}

	_, err := storage.GetWallet(ctx, "alice")
	require.ErrorIs(t, err, model.ErrNotFound)
}

// первая неудачная операция не создает кошелек
func TestFailedFirstDebitLeavesNoWallet(t *testing.T) {
	serv, storage := newLedgerService(t)
	ctx := context.Background()

	_, err := serv.ApplyDelta(ctx, "alice", dec("-1"), model.CONSUMED, "")
	require.ErrorIs(t, err, model.ErrInsufficientBalance)

	_, err = serv.GetWallet(ctx, "alice")
	require.ErrorIs(t, err, model.ErrNotFound)
	owners, err := storage.GetOwners(ctx)
	require.NoError(t, err)
	require.Empty(t, owners)
}

func TestApplyDeltaConcurrent(t *testing.T) {
	serv, storage := newLedgerService(t)
	ctx := context.Background()

	_, err := serv.ApplyDelta(ctx, "alice", dec("100"), model.PURCHASED, "")
	require.NoError(t, err)

	// 300 списаний по 1 при балансе 100 + 100 пополнений по 1
	wg := &sync.WaitGroup{}
	var mu sync.Mutex
	debited, rejected := 0, 0
	for i := 0; i < 300; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := serv.ApplyDelta(ctx, "alice", dec("-1"), model.CONSUMED, fmt.Sprintf("d-%d", i))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				debited++
				return
			}
			assert.ErrorIs(t, err, model.ErrInsufficientBalance)
			rejected++
		}(i)
	}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := serv.ApplyDelta(ctx, "alice", dec("1"), model.BONUS, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 300, debited+rejected)
	require.GreaterOrEqual(t, debited, 100)

	w, err := storage.GetWallet(ctx, "alice")
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.NewFromInt(int64(200-debited))), w.Balance.String())
	require.Equal(t, int64(1+100+debited), w.TransactionCount)

	entries, err := storage.GetEntries(ctx, "alice", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.NoError(t, verifyChain(w, entries))
}

func TestHistoryRange(t *testing.T) {
	wealth, err := NewTierResolver(model.DefaultWealthTiers())
	require.NoError(t, err)
	storage := db.NewMemoryDB()
	ctx := context.Background()

	days := []time.Time{
		time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC),
	}
	for _, d := range days {
		serv := NewLedgerService(zap.NewNop(), storage, nil, wealth, fixedClock{d})
		_, err := serv.ApplyDelta(ctx, "alice", dec("1"), model.PURCHASED, "")
		require.NoError(t, err)
	}

	serv := NewLedgerService(zap.NewNop(), storage, nil, wealth, nil)
	entries, err := serv.History(ctx, "alice", days[1], time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, int64(2), entries[0].Seq)

	entries, err = serv.History(ctx, "alice", days[0], days[1])
	require.NoError(t, err)
	require.Len(t, entries, 2)

	_, err = serv.History(ctx, "bob", time.Time{}, time.Time{})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestLedgerCache(t *testing.T) {
	cont := gomock.NewController(t)
	defer cont.Finish()

	wealth, err := NewTierResolver(model.DefaultWealthTiers())
	require.NoError(t, err)
	cache := NewMockCacheStorage(cont)
	serv := NewLedgerService(zap.NewNop(), db.NewMemoryDB(), cache, wealth, fixedClock{testNow})
	ctx := context.Background()

	// запись кладет в кэш новую версию кошелька
	cache.EXPECT().SetWallet(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, w model.Wallet) error {
		require.Equal(t, int64(1), w.TransactionCount)
		require.True(t, w.Balance.Equal(dec("10")))
		return nil
	})
	_, err = serv.ApplyDelta(ctx, "alice", dec("10"), model.PURCHASED, "")
	require.NoError(t, err)

	// промах - чтение из базы и запись в кэш
	var cached model.Wallet
	cache.EXPECT().GetWallet(gomock.Any(), "alice").Return(model.Wallet{}, model.ErrNotFound)
	cache.EXPECT().SetWallet(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, w model.Wallet) error {
		cached = w
		return nil
	})
	w, err := serv.GetWallet(ctx, "alice")
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(dec("10")))
	require.Equal(t, "alice", cached.OwnerID)

	// попадание - база не нужна
	cache.EXPECT().GetWallet(gomock.Any(), "alice").Return(cached, nil)
	w, err = serv.GetWallet(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, cached, w)

	// ошибка кэша не ломает операцию, кэш сбрасывается
	cache.EXPECT().SetWallet(gomock.Any(), gomock.Any()).Return(errors.New("redis is down"))
	cache.EXPECT().InvalidateWallet(gomock.Any(), "alice").Return(errors.New("redis is down"))
	_, err = serv.ApplyDelta(ctx, "alice", dec("-5"), model.CONSUMED, "")
	require.NoError(t, err)

	// отклоненное списание кэш не трогает
	_, err = serv.ApplyDelta(ctx, "alice", dec("-500"), model.CONSUMED, "")
	require.ErrorIs(t, err, model.ErrInsufficientBalance)
}

func TestTopUp(t *testing.T) {
	serv, _ := newLedgerService(t)
	ctx := context.Background()

	entry, err := serv.TopUp(ctx, model.TopUp{TopUpID: "t-1", OwnerID: "alice", Amount: dec("25"), Source: model.PURCHASED})
	require.NoError(t, err)
	require.Equal(t, "t-1", entry.Reference)

	_, err = serv.TopUp(ctx, model.TopUp{TopUpID: "t-2", OwnerID: "alice", Amount: dec("5"), Source: model.CONSUMED})
	require.ErrorIs(t, err, model.ErrInvalidSource)
	_, err = serv.TopUp(ctx, model.TopUp{TopUpID: "t-3", OwnerID: "alice", Amount: dec("0"), Source: model.BONUS})
	require.ErrorIs(t, err, model.ErrNegativeInput)

	confirm := serv.TopUpJSON(ctx, []byte(`{"topupId":"t-4","ownerId":"alice","amount":"7.5","source":"bonus"}`))
	require.Equal(t, model.TopUpConfirm{TopUpID: "t-4", Success: true}, confirm)

	confirm = serv.TopUpJSON(ctx, []byte(`{"topupId":"t-5","ownerId":"alice","amount":"7.5","source":"earned"}`))
	require.False(t, confirm.Success)
	require.Equal(t, "t-5", confirm.TopUpID)
	require.NotEmpty(t, confirm.Error)

	confirm = serv.TopUpJSON(ctx, []byte(`not json`))
	require.False(t, confirm.Success)

	w, err := serv.GetWallet(ctx, "alice")
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(dec("32.5")))
	require.True(t, w.TotalPurchased.Equal(dec("25")))
}
