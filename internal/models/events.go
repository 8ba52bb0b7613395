package affinity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Уведомление о повышении уровня близости
type LevelUpEvent struct {
	OwnerID       string        `json:"ownerId"`
	CounterpartID string        `json:"counterpartId"`
	TierBefore    int           `json:"tierBefore"`
	TierAfter     int           `json:"tierAfter"`
	Score         int64         `json:"score"`
	Grants        []RewardGrant `json:"grants"`
	Timestamp     time.Time     `json:"timestamp"`
}

// NewLevelUpEvent - событие по результату мутации; false если уровень не менялся
func NewLevelUpEvent(r MutationResult) (LevelUpEvent, bool) {
	if !r.LeveledUp {
		return LevelUpEvent{}, false
	}
	return LevelUpEvent{
		OwnerID:       r.Record.OwnerID,
		CounterpartID: r.Record.CounterpartID,
		TierBefore:    r.TierBefore,
		TierAfter:     r.TierAfter,
		Score:         r.ScoreAfter,
		Grants:        r.Grants,
		Timestamp:     r.Record.UpdatedAt,
	}, true
}

// Пополнение кошелька из платежного сервиса
type TopUp struct {
	TopUpID string          `json:"topupId"`
	OwnerID string          `json:"ownerId"`
	Amount  decimal.Decimal `json:"amount"`
	Source  Source          `json:"source"`
}

// Ответ платежному сервису
type TopUpConfirm struct {
	TopUpID string `json:"topupId"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
