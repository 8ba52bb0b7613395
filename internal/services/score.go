package affinity

import (
	"context"
	"fmt"

	interf "github.com/glkeru/affinity/internal/interfaces"
	model "github.com/glkeru/affinity/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ScoreService struct {
	logger *zap.Logger
	db     interf.ScoreStorage
	tiers  *TierResolver
	clock  interf.Clock
}

func NewScoreService(logger *zap.Logger, db interf.ScoreStorage, tiers *TierResolver, clock interf.Clock) *ScoreService {
	if clock == nil {
		clock = SystemClock()
	}
	return &ScoreService{logger, db, tiers, clock}
}

func (s *ScoreService) Tiers() *TierResolver {
	return s.tiers
}

// Применить действие к паре owner -> counterpart
func (s *ScoreService) ApplyAction(ctx context.Context, ownerID, counterpartID string, action model.ActionType, weight int64, coinsSpent int64) (result model.MutationResult, err error) {
	if err = validateAction(ownerID, counterpartID, action, weight, coinsSpent); err != nil {
		return model.MutationResult{}, err
	}

	ctx, span := tracer.Start(ctx, "ApplyAction")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner", ownerID),
		attribute.String("counterpart", counterpartID),
		attribute.String("action", action.String()),
	)

	now := s.clock.Now()
	err = s.db.UpdateScore(ctx, ownerID, counterpartID, now, func(tx interf.ScoreTx) error {
		rec := tx.Record()
		result = model.MutationResult{
			ScoreBefore: rec.Score,
			TierBefore:  rec.Tier,
		}

		rec.Counters.Inc(action)
		rec.Score += weight
		rec.TotalSpent += coinsSpent
		rec.UpdatedAt = now

		// уровень не понижается, даже если таблица поменялась
		newTier := s.tiers.Resolve(rec.Score).Tier
		if newTier < rec.Tier {
			newTier = rec.Tier
		}

		// награды за все пройденные уровни, включая перепрыгнутые
		var grants []model.RewardGrant
		if newTier > rec.Tier {
			result.LeveledUp = true
			for _, def := range s.tiers.Between(rec.Tier, newTier) {
				exists, err := tx.GrantExists(ctx, def.Tier)
				if err != nil {
					return err
				}
				if exists {
					continue
				}
				grants = append(grants, model.RewardGrant{
					ID:            uuid.New(),
					OwnerID:       ownerID,
					CounterpartID: counterpartID,
					Tier:          def.Tier,
					RewardType:    def.RewardType,
					RewardPayload: def.RewardPayload,
					CreatedAt:     now,
				})
			}
		}
		rec.Tier = newTier

		if err := tx.Save(ctx, rec, grants); err != nil {
			return err
		}

		result.Record = rec
		result.ScoreAfter = rec.Score
		result.TierAfter = rec.Tier
		result.Grants = grants
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error("apply action",
			zap.String("owner", ownerID),
			zap.String("counterpart", counterpartID),
			zap.String("action", action.String()),
			zap.Error(err),
		)
		return model.MutationResult{}, err
	}

	actionsTotal.WithLabelValues(action.String()).Inc()
	if result.LeveledUp {
		levelUpsTotal.Inc()
		grantsTotal.Add(float64(len(result.Grants)))
		s.logger.Info("level up",
			zap.String("owner", ownerID),
			zap.String("counterpart", counterpartID),
			zap.Int("from", result.TierBefore),
			zap.Int("to", result.TierAfter),
			zap.Int("grants", len(result.Grants)),
		)
	}
	return result, nil
}

func validateAction(ownerID, counterpartID string, action model.ActionType, weight int64, coinsSpent int64) error {
	if !action.Valid() {
		return fmt.Errorf("action %d: %w", int(action), model.ErrInvalidAction)
	}
	if ownerID == "" || counterpartID == "" {
		return fmt.Errorf("ownerId and counterpartId: %w", model.ErrEmptyOwner)
	}
	if ownerID == counterpartID {
		return fmt.Errorf("owner %s acts on itself: %w", ownerID, model.ErrInvalidAction)
	}
	if weight < 0 {
		return fmt.Errorf("weight %d: %w", weight, model.ErrNegativeInput)
	}
	if coinsSpent < 0 {
		return fmt.Errorf("coinsSpent %d: %w", coinsSpent, model.ErrNegativeInput)
	}
	return nil
}

// Запись близости без создания
func (s *ScoreService) GetScore(ctx context.Context, ownerID, counterpartID string) (model.ScoreRecord, error) {
	return s.db.GetScore(ctx, ownerID, counterpartID)
}

// Прогресс пары: текущий и следующий уровень
type Progress struct {
	Record    model.ScoreRecord     `json:"record"`
	Current   model.TierDefinition  `json:"current"`
	Next      *model.TierDefinition `json:"next,omitempty"`
	Remaining int64                 `json:"remaining"`
}

func (s *ScoreService) Progress(ctx context.Context, ownerID, counterpartID string) (Progress, error) {
	rec, err := s.db.GetScore(ctx, ownerID, counterpartID)
	if err != nil {
		return Progress{}, err
	}
	// уровень записи не понижается, поэтому берем его, а не Resolve(score)
	current, ok := s.tiers.Get(rec.Tier)
	if !ok {
		current = s.tiers.Resolve(rec.Score)
	}
	p := Progress{Record: rec, Current: current}
	if next, ok := s.tiers.Next(p.Current.Tier); ok {
		p.Next = &next
		p.Remaining = max(next.MinScore-rec.Score, 0)
	}
	return p, nil
}

func (s *ScoreService) Grants(ctx context.Context, ownerID, counterpartID string) ([]model.RewardGrant, error) {
	return s.db.GetGrants(ctx, ownerID, counterpartID)
}

// Получить награду - только один раз
func (s *ScoreService) ClaimGrant(ctx context.Context, grantID uuid.UUID, ownerID string) (model.RewardGrant, error) {
	grant, err := s.db.ClaimGrant(ctx, grantID, ownerID, s.clock.Now())
	if err != nil {
		return model.RewardGrant{}, err
	}
	s.logger.Info("reward claimed",
		zap.String("owner", ownerID),
		zap.String("grant", grantID.String()),
		zap.Int("tier", grant.Tier),
	)
	return grant, nil
}
