package affinity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Тип действия пользователя
type ActionType int

const (
	MESSAGE ActionType = iota + 1
	GIFT
	VIDEOCALL
	VOICECALL
)

var actionNames = map[ActionType]string{
	MESSAGE:   "message",
	GIFT:      "gift",
	VIDEOCALL: "video_call",
	VOICECALL: "voice_call",
}

func (a ActionType) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

func (a ActionType) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction принимает имя действия из JSON/очереди
func ParseAction(name string) (ActionType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("action %q: %w", name, ErrInvalidAction)
}

func (a ActionType) MarshalJSON() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("action %d: %w", int(a), ErrInvalidAction)
	}
	return json.Marshal(a.String())
}

func (a *ActionType) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return fmt.Errorf("action: %w", ErrInvalidAction)
	}
	parsed, err := ParseAction(name)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Счетчики взаимодействий (только растут)
type Counters struct {
	MessageCount int64 `json:"messageCount"`
	GiftCount    int64 `json:"giftCount"`
	VideoMinutes int64 `json:"videoMinutes"`
	VoiceMinutes int64 `json:"voiceMinutes"`
}

// Увеличить счетчик по типу действия. Звонок тарифицируется поминутно: одно действие - одна минута
func (c *Counters) Inc(action ActionType) {
	switch action {
	case MESSAGE:
		c.MessageCount++
	case GIFT:
		c.GiftCount++
	case VIDEOCALL:
		c.VideoMinutes++
	case VOICECALL:
		c.VoiceMinutes++
	}
}

// Близость пары (owner -> counterpart)
type ScoreRecord struct {
	OwnerID       string    `json:"ownerId"`
	CounterpartID string    `json:"counterpartId"`
	Score         int64     `json:"score"`
	Tier          int       `json:"tier"`
	Counters      Counters  `json:"counters"`
	TotalSpent    int64     `json:"totalSpent"` // монеты, потраченные на counterpart
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewScoreRecord - запись при первом взаимодействии
func NewScoreRecord(ownerID, counterpartID string, now time.Time) ScoreRecord {
	return ScoreRecord{
		OwnerID:       ownerID,
		CounterpartID: counterpartID,
		Tier:          1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Уровень
type TierDefinition struct {
	Tier          int           `bson:"tier" json:"tier"`
	MinScore      int64         `bson:"minScore" json:"minScore"`
	RewardType    RewardKind    `bson:"rewardType" json:"rewardType"`
	RewardPayload RewardPayload `bson:"-" json:"rewardPayload"`
}

// Таблицы уровней
const (
	IntimacyTable = "intimacy"
	WealthTable   = "wealth"
)

// Награда за достижение уровня
type RewardGrant struct {
	ID            uuid.UUID     `json:"id"`
	OwnerID       string        `json:"ownerId"`
	CounterpartID string        `json:"counterpartId"`
	Tier          int           `json:"tier"`
	RewardType    RewardKind    `json:"rewardType"`
	RewardPayload RewardPayload `json:"rewardPayload"`
	Claimed       bool          `json:"claimed"`
	CreatedAt     time.Time     `json:"createdAt"`
	ClaimedAt     *time.Time    `json:"claimedAt,omitempty"`
}

// Результат ApplyAction
type MutationResult struct {
	Record      ScoreRecord   `json:"record"`
	ScoreBefore int64         `json:"scoreBefore"`
	ScoreAfter  int64         `json:"scoreAfter"`
	TierBefore  int           `json:"tierBefore"`
	TierAfter   int           `json:"tierAfter"`
	LeveledUp   bool          `json:"leveledUp"`
	Grants      []RewardGrant `json:"grants"`
}

// Кошелек пользователя
type Wallet struct {
	OwnerID          string          `json:"ownerId"`
	Balance          decimal.Decimal `json:"balance"`
	TotalPurchased   decimal.Decimal `json:"totalPurchased"` // только купленное, для wealth
	TotalSpent       decimal.Decimal `json:"totalSpent"`
	TransactionCount int64           `json:"transactionCount"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func NewWallet(ownerID string, now time.Time) Wallet {
	return Wallet{
		OwnerID:        ownerID,
		Balance:        decimal.Zero,
		TotalPurchased: decimal.Zero,
		TotalSpent:     decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Источник движения средств
type Source string

const (
	PURCHASED Source = "purchased"
	BONUS     Source = "bonus"
	CONSUMED  Source = "consumed"
	REFUND    Source = "refund"
	EARNED    Source = "earned"
)

func (s Source) Valid() bool {
	switch s {
	case PURCHASED, BONUS, CONSUMED, REFUND, EARNED:
		return true
	}
	return false
}

func ParseSource(name string) (Source, error) {
	s := Source(strings.ToLower(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", fmt.Errorf("source %q: %w", name, ErrInvalidSource)
	}
	return s, nil
}

// Запись журнала, не изменяется после записи
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       string          `json:"ownerId"`
	Seq           int64           `json:"seq"`
	Delta         decimal.Decimal `json:"delta"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	Source        Source          `json:"source"`
	Reference     string          `json:"reference,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}
