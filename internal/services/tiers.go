package affinity

import (
	"context"
	"errors"
	"fmt"
	"sort"

	interf "github.com/glkeru/affinity/internal/interfaces"
	model "github.com/glkeru/affinity/internal/models"
)

// TierResolver - неизменяемая таблица уровней
type TierResolver struct {
	tiers []model.TierDefinition
}

func NewTierResolver(tiers []model.TierDefinition) (*TierResolver, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("empty table: %w", model.ErrInvalidTiers)
	}
	sorted := make([]model.TierDefinition, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tier < sorted[j].Tier })

	if sorted[0].Tier != 1 {
		return nil, fmt.Errorf("first tier must be 1, got %d: %w", sorted[0].Tier, model.ErrInvalidTiers)
	}
	if sorted[0].MinScore != 0 {
		return nil, fmt.Errorf("tier %d: first minScore must be 0: %w", sorted[0].Tier, model.ErrInvalidTiers)
	}
	for i, t := range sorted {
		if err := t.RewardPayload.Validate(); err != nil {
			return nil, fmt.Errorf("tier %d: %w", t.Tier, err)
		}
		if t.RewardPayload.Kind != t.RewardType {
			return nil, fmt.Errorf("tier %d: reward type %q does not match payload %q: %w",
				t.Tier, t.RewardType, t.RewardPayload.Kind, model.ErrInvalidTiers)
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if t.Tier == prev.Tier {
			return nil, fmt.Errorf("duplicate tier %d: %w", t.Tier, model.ErrInvalidTiers)
		}
		if t.MinScore <= prev.MinScore {
			return nil, fmt.Errorf("tier %d: minScore %d is not above %d: %w",
				t.Tier, t.MinScore, prev.MinScore, model.ErrInvalidTiers)
		}
	}
	return &TierResolver{sorted}, nil
}

// LoadTierResolver читает таблицу из хранилища. fallback - только если таблица не сохранена;
// ошибки чтения и испорченная таблица возвращаются
func LoadTierResolver(ctx context.Context, db interf.TierStorage, table string, fallback []model.TierDefinition) (*TierResolver, error) {
	tiers, err := db.GetTiers(ctx, table)
	if err != nil {
		if fallback == nil || !errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("tier table %s: %w", table, err)
		}
		return NewTierResolver(fallback)
	}
	return NewTierResolver(tiers)
}

// Resolve - уровень с наибольшим minScore <= score
func (r *TierResolver) Resolve(score int64) model.TierDefinition {
	i := sort.Search(len(r.tiers), func(i int) bool { return r.tiers[i].MinScore > score })
	if i == 0 {
		return r.tiers[0]
	}
	return r.tiers[i-1]
}

func (r *TierResolver) Get(tier int) (model.TierDefinition, bool) {
	i := sort.Search(len(r.tiers), func(i int) bool { return r.tiers[i].Tier >= tier })
	if i < len(r.tiers) && r.tiers[i].Tier == tier {
		return r.tiers[i], true
	}
	return model.TierDefinition{}, false
}

// Next - следующий уровень; false если tier максимальный
func (r *TierResolver) Next(tier int) (model.TierDefinition, bool) {
	i := sort.Search(len(r.tiers), func(i int) bool { return r.tiers[i].Tier > tier })
	if i == len(r.tiers) {
		return model.TierDefinition{}, false
	}
	return r.tiers[i], true
}

// Between - уровни from < tier <= to по возрастанию
func (r *TierResolver) Between(from, to int) []model.TierDefinition {
	var out []model.TierDefinition
	for _, t := range r.tiers {
		if t.Tier > from && t.Tier <= to {
			out = append(out, t)
		}
	}
	return out
}

// ToNext - сколько очков осталось до следующего уровня
func (r *TierResolver) ToNext(score int64) (int64, bool) {
	next, ok := r.Next(r.Resolve(score).Tier)
	if !ok {
		return 0, false
	}
	return next.MinScore - score, true
}

func (r *TierResolver) Tiers() []model.TierDefinition {
	out := make([]model.TierDefinition, len(r.tiers))
	copy(out, r.tiers)
	return out
}
