package affinity

import (
	"context"
	"time"

	config "github.com/glkeru/affinity/internal/config"
	db "github.com/glkeru/affinity/internal/db"
	interf "github.com/glkeru/affinity/internal/interfaces"
	model "github.com/glkeru/affinity/internal/models"
	services "github.com/glkeru/affinity/internal/services"
	"go.uber.org/zap"
)

// App - сервисы ядра поверх хранилищ из окружения
type App struct {
	Scores       *services.ScoreService
	Ledger       *services.LedgerService
	Interactions *services.InteractionService
	Audit        *services.AuditService
	closers      []func()
}

type Storages struct {
	Scores  interf.ScoreStorage
	Wallets interf.WalletStorage
	Cache   interf.CacheStorage
	Tiers   interf.TierStorage
}

// New - PostgreSQL обязателен; без Redis работаем без кэша, без MongoDB - на таблицах по умолчанию
func New(ctx context.Context, logger *zap.Logger, publisher interf.LevelUpPublisher) (*App, error) {
	pg, err := db.NewPostgresDB(ctx, logger)
	if err != nil {
		return nil, err
	}
	st := Storages{Scores: pg, Wallets: pg}
	closers := []func(){pg.Close}

	cache, err := db.NewCacheService(ctx)
	if err != nil {
		logger.Error("cache is disabled", zap.Error(err))
	} else {
		st.Cache = cache
		closers = append(closers, func() { _ = cache.Close() })
	}

	tiers, err := db.NewTiersDB()
	if err != nil {
		logger.Error("tier storage is disabled, using default tables", zap.Error(err))
	} else {
		st.Tiers = tiers
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tiers.Close(ctx)
		})
	}

	app, err := NewWithStorages(ctx, logger, st, publisher, nil)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}
	app.closers = closers
	return app, nil
}

// NewWithStorages - сборка на готовых хранилищах. Tiers и Cache могут быть nil
func NewWithStorages(ctx context.Context, logger *zap.Logger, st Storages, publisher interf.LevelUpPublisher, clock interf.Clock) (*App, error) {
	intimacy, wealth, err := loadTiers(ctx, logger, st.Tiers)
	if err != nil {
		return nil, err
	}

	scores := services.NewScoreService(logger, st.Scores, intimacy, clock)
	ledger := services.NewLedgerService(logger, st.Wallets, st.Cache, wealth, clock)
	share := int64(config.IntEnv("AFFINITY_RECEIVER_SHARE", 50))
	return &App{
		Scores:       scores,
		Ledger:       ledger,
		Interactions: services.NewInteractionService(logger, ledger, scores, share, publisher),
		Audit:        services.NewAuditService(logger, st.Wallets, config.CountEnv("AFFINITY_AUDIT_COUNT", 3)),
	}, nil
}

func loadTiers(ctx context.Context, logger *zap.Logger, storage interf.TierStorage) (intimacy, wealth *services.TierResolver, err error) {
	if storage == nil {
		if intimacy, err = services.NewTierResolver(model.DefaultIntimacyTiers()); err != nil {
			return nil, nil, err
		}
		wealth, err = services.NewTierResolver(model.DefaultWealthTiers())
		return intimacy, wealth, err
	}

	intimacy, err = services.LoadTierResolver(ctx, storage, model.IntimacyTable, model.DefaultIntimacyTiers())
	if err != nil {
		return nil, nil, err
	}
	wealth, err = services.LoadTierResolver(ctx, storage, model.WealthTable, model.DefaultWealthTiers())
	if err != nil {
		return nil, nil, err
	}
	logger.Info("tier tables loaded",
		zap.Int("intimacy", len(intimacy.Tiers())),
		zap.Int("wealth", len(wealth.Tiers())),
	)
	return intimacy, wealth, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
