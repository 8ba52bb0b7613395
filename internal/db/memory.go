package affinity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	interf "github.com/glkeru/affinity/internal/interfaces"
	model "github.com/glkeru/affinity/internal/models"
	"github.com/google/uuid"
)

// MemoryDB - хранилище в памяти. Каждый ключ имеет свою ячейку со своим мьютексом,
// общих блокировок между ключами нет
type MemoryDB struct {
	scores  sync.Map // scoreKey -> *scoreSlot
	grants  sync.Map // uuid.UUID -> scoreKey
	wallets sync.Map // ownerID -> *walletSlot
}

type scoreKey struct {
	owner       string
	counterpart string
}

type scoreSlot struct {
	mu     sync.Mutex
	rec    *model.ScoreRecord
	grants map[int]model.RewardGrant
}

type walletSlot struct {
	mu      sync.Mutex
	wallet  *model.Wallet
	entries []model.LedgerEntry
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{}
}

func (m *MemoryDB) scoreSlot(key scoreKey) *scoreSlot {
	v, _ := m.scores.LoadOrStore(key, &scoreSlot{grants: map[int]model.RewardGrant{}})
	return v.(*scoreSlot)
}

func (m *MemoryDB) walletSlot(ownerID string) *walletSlot {
	v, _ := m.wallets.LoadOrStore(ownerID, &walletSlot{})
	return v.(*walletSlot)
}

// scores

type memScoreTx struct {
	slot    *scoreSlot
	rec     model.ScoreRecord
	saved   bool
	newRec  model.ScoreRecord
	newGrts []model.RewardGrant
}

func (t *memScoreTx) Record() model.ScoreRecord {
	return t.rec
}

func (t *memScoreTx) GrantExists(ctx context.Context, tier int) (bool, error) {
	_, ok := t.slot.grants[tier]
	return ok, nil
}

func (t *memScoreTx) Save(ctx context.Context, rec model.ScoreRecord, grants []model.RewardGrant) error {
	for _, g := range grants {
		if _, ok := t.slot.grants[g.Tier]; ok {
			return fmt.Errorf("grant for tier %d already exists", g.Tier)
		}
	}
	t.saved = true
	t.newRec = rec
	t.newGrts = grants
	return nil
}

func (m *MemoryDB) UpdateScore(ctx context.Context, ownerID, counterpartID string, now time.Time, fn func(tx interf.ScoreTx) error) error {
	key := scoreKey{ownerID, counterpartID}
	slot := m.scoreSlot(key)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	tx := &memScoreTx{slot: slot}
	if slot.rec != nil {
		tx.rec = *slot.rec
	} else {
		tx.rec = model.NewScoreRecord(ownerID, counterpartID, now)
	}

	if err := fn(tx); err != nil {
		return err
	}
	if !tx.saved {
		return nil
	}

	// изменения применяются только после успешного fn
	rec := tx.newRec
	slot.rec = &rec
	for _, g := range tx.newGrts {
		slot.grants[g.Tier] = g
		m.grants.Store(g.ID, key)
	}
	return nil
}

func (m *MemoryDB) GetScore(ctx context.Context, ownerID, counterpartID string) (model.ScoreRecord, error) {
	v, ok := m.scores.Load(scoreKey{ownerID, counterpartID})
	if !ok {
		return model.ScoreRecord{}, fmt.Errorf("score %w", model.ErrNotFound)
	}
	slot := v.(*scoreSlot)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.rec == nil {
		return model.ScoreRecord{}, fmt.Errorf("score %w", model.ErrNotFound)
	}
	return *slot.rec, nil
}

func (m *MemoryDB) GetGrants(ctx context.Context, ownerID, counterpartID string) ([]model.RewardGrant, error) {
	v, ok := m.scores.Load(scoreKey{ownerID, counterpartID})
	if !ok {
		return nil, nil
	}
	slot := v.(*scoreSlot)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	grants := make([]model.RewardGrant, 0, len(slot.grants))
	for _, g := range slot.grants {
		grants = append(grants, g)
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Tier < grants[j].Tier })
	return grants, nil
}

func (m *MemoryDB) ClaimGrant(ctx context.Context, grantID uuid.UUID, ownerID string, now time.Time) (model.RewardGrant, error) {
	v, ok := m.grants.Load(grantID)
	if !ok {
		return model.RewardGrant{}, fmt.Errorf("grant %w", model.ErrNotFound)
	}
	key := v.(scoreKey)
	if key.owner != ownerID {
		return model.RewardGrant{}, fmt.Errorf("grant %w", model.ErrNotFound)
	}
	slot := m.scoreSlot(key)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	for tier, g := range slot.grants {
		if g.ID != grantID {
			continue
		}
		if g.Claimed {
			return model.RewardGrant{}, model.ErrAlreadyClaimed
		}
		g.Claimed = true
		claimedAt := now
		g.ClaimedAt = &claimedAt
		slot.grants[tier] = g
		return g, nil
	}
	return model.RewardGrant{}, fmt.Errorf("grant %w", model.ErrNotFound)
}

// wallets

type memWalletTx struct {
	wallet   model.Wallet
	appended bool
	newW     model.Wallet
	entry    model.LedgerEntry
}

func (t *memWalletTx) Wallet() model.Wallet {
	return t.wallet
}

func (t *memWalletTx) Append(ctx context.Context, w model.Wallet, entry model.LedgerEntry) error {
	if t.appended {
		return fmt.Errorf("one entry per wallet update")
	}
	t.appended = true
	t.newW = w
	t.entry = entry
	return nil
}

func (m *MemoryDB) UpdateWallet(ctx context.Context, ownerID string, now time.Time, fn func(tx interf.WalletTx) error) error {
	slot := m.walletSlot(ownerID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	tx := &memWalletTx{}
	if slot.wallet != nil {
		tx.wallet = *slot.wallet
	} else {
		tx.wallet = model.NewWallet(ownerID, now)
	}

	if err := fn(tx); err != nil {
		return err
	}
	if !tx.appended {
		return nil
	}
	if tx.newW.Balance.IsNegative() {
		return fmt.Errorf("wallet %s: negative balance rejected", ownerID)
	}
	w := tx.newW
	slot.wallet = &w
	slot.entries = append(slot.entries, tx.entry)
	return nil
}

func (m *MemoryDB) GetWallet(ctx context.Context, ownerID string) (model.Wallet, error) {
	v, ok := m.wallets.Load(ownerID)
	if !ok {
		return model.Wallet{}, fmt.Errorf("wallet %w", model.ErrNotFound)
	}
	slot := v.(*walletSlot)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.wallet == nil {
		return model.Wallet{}, fmt.Errorf("wallet %w", model.ErrNotFound)
	}
	return *slot.wallet, nil
}

func (m *MemoryDB) GetEntries(ctx context.Context, ownerID string, from time.Time, to time.Time) ([]model.LedgerEntry, error) {
	v, ok := m.wallets.Load(ownerID)
	if !ok {
		return nil, fmt.Errorf("wallet %w", model.ErrNotFound)
	}
	slot := v.(*walletSlot)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	var entries []model.LedgerEntry
	for _, e := range slot.entries {
		if !from.IsZero() && e.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && e.Timestamp.After(to) {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (m *MemoryDB) GetOwners(ctx context.Context) ([]string, error) {
	var owners []string
	m.wallets.Range(func(k, v any) bool {
		slot := v.(*walletSlot)
		slot.mu.Lock()
		exists := slot.wallet != nil
		slot.mu.Unlock()
		if exists {
			owners = append(owners, k.(string))
		}
		return true
	})
	sort.Strings(owners)
	return owners, nil
}
