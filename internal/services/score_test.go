package affinity

import (
	"context"
	"sync"
	"testing"
	"time"

	db "github.com/glkeru/affinity/internal/db"
	model "github.com/glkeru/affinity/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newScoreService(t *testing.T, tiers []model.TierDefinition) (*ScoreService, *db.MemoryDB) {
	t.Helper()
	r, err := NewTierResolver(tiers)
	require.NoError(t, err)
	storage := db.NewMemoryDB()
	return NewScoreService(zap.NewNop(), storage, r, fixedClock{testNow}), storage
}

func TestApplyActionCreatesRecord(t *testing.T) {
	serv, _ := newScoreService(t, smallTable())
	ctx := context.Background()

	_, err := serv.GetScore(ctx, "alice", "bob")
	require.ErrorIs(t, err, model.ErrNotFound)

	res, err := serv.ApplyAction(ctx, "alice", "bob", model.MESSAGE, 5, 0)
	require.NoError(t, err)
	require.Equal(t, int64(0), res.ScoreBefore)
	require.Equal(t, int64(5), res.ScoreAfter)
	require.Equal(t, 1, res.TierBefore)
	require.Equal(t, 1, res.TierAfter)
	require.False(t, res.LeveledUp)
	require.Empty(t, res.Grants)
	require.Equal(t, int64(1), res.Record.Counters.MessageCount)
	require.Equal(t, testNow, res.Record.CreatedAt)

	rec, err := serv.GetScore(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, res.Record, rec)

	// направление важно: bob -> alice отдельная запись
	_, err = serv.GetScore(ctx, "bob", "alice")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestApplyActionCounters(t *testing.T) {
	serv, _ := newScoreService(t, smallTable())
	ctx := context.Background()

	actions := []model.ActionType{model.MESSAGE, model.MESSAGE, model.GIFT, model.VIDEOCALL, model.VOICECALL, model.VOICECALL, model.VOICECALL}
	for _, a := range actions {
		_, err := serv.ApplyAction(ctx, "alice", "bob", a, 1, 2)
		require.NoError(t, err)
	}
	rec, err := serv.GetScore(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, model.Counters{MessageCount: 2, GiftCount: 1, VideoMinutes: 1, VoiceMinutes: 3}, rec.Counters)
	require.Equal(t, int64(7), rec.Score)
	require.Equal(t, int64(14), rec.TotalSpent)
}

func TestApplyActionSingleTierUp(t *testing.T) {
	serv, _ := newScoreService(t, smallTable())
	ctx := context.Background()

	_, err := serv.ApplyAction(ctx, "alice", "bob", model.MESSAGE, 90, 0)
	require.NoError(t, err)

	res, err := serv.ApplyAction(ctx, "alice", "bob", model.GIFT, 20, 10)
	require.NoError(t, err)
	require.Equal(t, int64(90), res.ScoreBefore)
	require.Equal(t, int64(110), res.ScoreAfter)
	require.Equal(t, 1, res.TierBefore)
	require.Equal(t, 2, res.TierAfter)
	require.True(t, res.LeveledUp)
	require.Len(t, res.Grants, 1)
	require.Equal(t, 2, res.Grants[0].Tier)
	require.Equal(t, "alice", res.Grants[0].OwnerID)
	require.Equal(t, "bob", res.Grants[0].CounterpartID)
	require.False(t, res.Grants[0].Claimed)
}

func TestApplyActionMultiTierSkip(t *testing.T) {
	serv, _ := newScoreService(t, smallTable())
	ctx := context.Background()

	_, err := serv.ApplyAction(ctx, "alice", "bob", model.MESSAGE, 90, 0)
	require.NoError(t, err)

	res, err := serv.ApplyAction(ctx, "alice", "bob", model.GIFT, 450, 0)
	require.NoError(t, err)
	require.Equal(t, int64(540), res.ScoreAfter)
	require.Equal(t, 3, res.TierAfter)
	require.True(t, res.LeveledUp)
	require.Len(t, res.Grants, 2)
	require.Equal(t, 2, res.Grants[0].Tier)
	require.Equal(t, 3, res.Grants[1].Tier)

	grants, err := serv.Grants(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, grants, 2)
}

func TestApplyActionCopiesReward(t *testing.T) {
	serv, _ := newScoreService(t, model.DefaultIntimacyTiers())

	res, err := serv.ApplyAction(context.Background(), "alice", "bob", model.GIFT, 2500, 0)
	require.NoError(t, err)
	require.Equal(t, 4, res.TierAfter)
	require.Len(t, res.Grants, 3)

	last := res.Grants[2]
	require.Equal(t, model.RewardUnlock, last.RewardType)
	require.Equal(t, model.FeaturePrivatePhoto, last.RewardPayload.Unlock.Feature)
}

func TestApplyActionValidation(t *testing.T) {
	serv, storage := newScoreService(t, smallTable())
	ctx := context.Background()

	tests := []struct {
		name     string
		owner    string
		cp       string
		action   model.ActionType
		weight   int64
		coins    int64
		expected error
	}{
		{"unknown action", "alice", "bob", model.ActionType(42), 1, 0, model.ErrInvalidAction},
		{"zero action", "alice", "bob", 0, 1, 0, model.ErrInvalidAction},
		{"negative weight", "alice", "bob", model.MESSAGE, -1, 0, model.ErrNegativeInput},
		{"negative coins", "alice", "bob", model.GIFT, 1, -5, model.ErrNegativeInput},
		{"empty owner", "", "bob", model.MESSAGE, 1, 0, model.ErrEmptyOwner},
		{"empty counterpart", "alice", "", model.MESSAGE, 1, 0, model.ErrEmptyOwner},
		{"self", "alice", "alice", model.MESSAGE, 1, 0, model.ErrInvalidAction},
	}
	for _, ts := range tests {
		_, err := serv.ApplyAction(ctx, ts.owner, ts.cp, ts.action, ts.weight, ts.coins)
		require.ErrorIs(t, err, ts.expected, ts.name)
	}

	// ничего не создано
	_, err := storage.GetScore(ctx, "alice", "bob")
	require.ErrorIs(t, err, model.ErrNotFound)
}

// уровень не понижается, даже если новая таблица ставит score ниже
func TestTierIsMonotonic(t *testing.T) {
	storage := db.NewMemoryDB()
	ctx := context.Background()

	r, err := NewTierResolver(smallTable())
	require.NoError(t, err)
	serv := NewScoreService(zap.NewNop(), storage, r, fixedClock{testNow})
	res, err := serv.ApplyAction(ctx, "alice", "bob", model.GIFT, 150, 0)
	require.NoError(t, err)
	require.Equal(t, 2, res.TierAfter)

	raised, err := NewTierResolver([]model.TierDefinition{tier(1, 0), tier(2, 1000), tier(3, 5000)})
	require.NoError(t, err)
	serv = NewScoreService(zap.NewNop(), storage, raised, fixedClock{testNow})

	res, err = serv.ApplyAction(ctx, "alice", "bob", model.MESSAGE, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 2, res.TierBefore)
	require.Equal(t, 2, res.TierAfter)
	require.False(t, res.LeveledUp)

	// при повторном прохождении уровня 2 награда не дублируется
	res, err = serv.ApplyAction(ctx, "alice", "bob", model.GIFT, 5000, 0)
	require.NoError(t, err)
	require.Equal(t, 3, res.TierAfter)
	require.Len(t, res.Grants, 1)
	require.Equal(t, 3, res.Grants[0].Tier)
}

func TestApplyActionConcurrent(t *testing.T) {
	serv, _ := newScoreService(t, model.DefaultIntimacyTiers())
	ctx := context.Background()

	const goroutines = 50
	const perGoroutine = 40

	wg := &sync.WaitGroup{}
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				_, err := serv.ApplyAction(ctx, "alice", "bob", model.MESSAGE, 3, 1)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	rec, err := serv.GetScore(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, int64(goroutines*perGoroutine*3), rec.Score)
	require.Equal(t, int64(goroutines*perGoroutine), rec.Counters.MessageCount)
	require.Equal(t, int64(goroutines*perGoroutine), rec.TotalSpent)
	require.Equal(t, serv.Tiers().Resolve(rec.Score).Tier, rec.Tier)

	// 6000 очков - уровни 2..4, по одной награде на уровень
	grants, err := serv.Grants(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, grants, 3)
	seen := map[int]bool{}
	for _, g := range grants {
		require.False(t, seen[g.Tier], "tier %d granted twice", g.Tier)
		seen[g.Tier] = true
	}
}

func TestApplyActionIndependentKeys(t *testing.T) {
	serv, _ := newScoreService(t, smallTable())
	ctx := context.Background()

	wg := &sync.WaitGroup{}
	owners := []string{"u1", "u2", "u3", "u4"}
	for _, owner := range owners {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := serv.ApplyAction(ctx, owner, "star", model.GIFT, 1, 0)
				assert.NoError(t, err)
			}
		}(owner)
	}
	wg.Wait()

	for _, owner := range owners {
		rec, err := serv.GetScore(ctx, owner, "star")
		require.NoError(t, err)
		require.Equal(t, int64(100), rec.Score)
		require.Equal(t, 2, rec.Tier)
	}
}

func TestProgress(t *testing.T) {
	serv, _ := newScoreService(t, smallTable())
	ctx := context.Background()

	_, err := serv.Progress(ctx, "alice", "bob")
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = serv.ApplyAction(ctx, "alice", "bob", model.MESSAGE, 120, 0)
	require.NoError(t, err)
	p, err := serv.Progress(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, 2, p.Current.Tier)
	require.NotNil(t, p.Next)
	require.Equal(t, 3, p.Next.Tier)
	require.Equal(t, int64(380), p.Remaining)

	_, err = serv.ApplyAction(ctx, "alice", "bob", model.MESSAGE, 1000, 0)
	require.NoError(t, err)
	p, err = serv.Progress(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, 3, p.Current.Tier)
	require.Nil(t, p.Next)
	require.Zero(t, p.Remaining)
}

func TestClaimGrant(t *testing.T) {
	serv, _ := newScoreService(t, smallTable())
	ctx := context.Background()

	res, err := serv.ApplyAction(ctx, "alice", "bob", model.GIFT, 100, 0)
	require.NoError(t, err)
	require.Len(t, res.Grants, 1)
	id := res.Grants[0].ID

	// чужая награда не видна
	_, err = serv.ClaimGrant(ctx, id, "bob")
	require.ErrorIs(t, err, model.ErrNotFound)
	_, err = serv.ClaimGrant(ctx, uuid.New(), "alice")
	require.ErrorIs(t, err, model.ErrNotFound)

	grant, err := serv.ClaimGrant(ctx, id, "alice")
	require.NoError(t, err)
	require.True(t, grant.Claimed)
	require.NotNil(t, grant.ClaimedAt)
	require.Equal(t, testNow, *grant.ClaimedAt)

	_, err = serv.ClaimGrant(ctx, id, "alice")
	require.ErrorIs(t, err, model.ErrAlreadyClaimed)

	grants, err := serv.Grants(ctx, "alice", "bob")
	require.NoError(t, err)
	require.True(t, grants[0].Claimed)
}

func TestClaimGrantConcurrent(t *testing.T) {
	serv, _ := newScoreService(t, smallTable())
	ctx := context.Background()

	res, err := serv.ApplyAction(ctx, "alice", "bob", model.GIFT, 100, 0)
	require.NoError(t, err)
	id := res.Grants[0].ID

	var mu sync.Mutex
	claimed := 0
	wg := &sync.WaitGroup{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := serv.ClaimGrant(ctx, id, "alice"); err == nil {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, claimed)
}
