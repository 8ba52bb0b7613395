package affinity

import (
	"context"
	"time"

	model "github.com/glkeru/affinity/internal/models"
	"github.com/google/uuid"
)

//go:generate mockgen -destination=./../services/mock_affinity_test.go -package=affinity . CacheStorage,TierStorage,LevelUpPublisher

type Clock interface {
	Now() time.Time
}

// Доступ к записи близости внутри атомарной операции
type ScoreTx interface {
	// текущая запись; если ее нет - новая с score=0, tier=1
	Record() model.ScoreRecord
	GrantExists(ctx context.Context, tier int) (bool, error)
	Save(ctx context.Context, rec model.ScoreRecord, grants []model.RewardGrant) error
}

type ScoreStorage interface {
	// fn выполняется эксклюзивно для пары (owner, counterpart); ошибка fn отменяет все изменения
	UpdateScore(ctx context.Context, ownerID, counterpartID string, now time.Time, fn func(tx ScoreTx) error) error
	GetScore(ctx context.Context, ownerID, counterpartID string) (model.ScoreRecord, error)
	GetGrants(ctx context.Context, ownerID, counterpartID string) ([]model.RewardGrant, error)
	ClaimGrant(ctx context.Context, grantID uuid.UUID, ownerID string, now time.Time) (model.RewardGrant, error)
}

// Доступ к кошельку внутри атомарной операции
type WalletTx interface {
	// текущий кошелек; если его нет - новый с нулевым балансом
	Wallet() model.Wallet
	Append(ctx context.Context, w model.Wallet, entry model.LedgerEntry) error
}

type WalletStorage interface {
	// fn выполняется эксклюзивно для owner; ошибка fn отменяет все изменения
	UpdateWallet(ctx context.Context, ownerID string, now time.Time, fn func(tx WalletTx) error) error
	GetWallet(ctx context.Context, ownerID string) (model.Wallet, error)
	// записи по возрастанию seq; нулевые from/to - без ограничения
	GetEntries(ctx context.Context, ownerID string, from time.Time, to time.Time) ([]model.LedgerEntry, error)
	GetOwners(ctx context.Context) ([]string, error)
}

type TierStorage interface {
	GetTiers(ctx context.Context, table string) ([]model.TierDefinition, error)
	SaveTiers(ctx context.Context, table string, tiers []model.TierDefinition) error
}

type CacheStorage interface {
	GetWallet(ctx context.Context, ownerID string) (model.Wallet, error)
	SetWallet(ctx context.Context, w model.Wallet) error
	InvalidateWallet(ctx context.Context, ownerID string) error
}

type LevelUpPublisher interface {
	PublishLevelUp(ctx context.Context, evt model.LevelUpEvent) error
}
