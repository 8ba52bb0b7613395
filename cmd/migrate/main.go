// Схема PostgreSQL и таблицы уровней по умолчанию в MongoDB
package main

import (
	"context"
	"errors"
	"time"

	config "github.com/glkeru/affinity/internal/config"
	db "github.com/glkeru/affinity/internal/db"
	model "github.com/glkeru/affinity/internal/models"
	services "github.com/glkeru/affinity/internal/services"
	"go.uber.org/zap"
)

func main() {
	// log
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	config.LoadDotEnv(logger)

	dsn, err := db.PostgresDSN()
	if err != nil {
		panic(err)
	}
	if err = db.Migrate(logger, dsn); err != nil {
		panic(err)
	}

	tiers, err := db.NewTiersDB()
	if err != nil {
		logger.Warn("tier storage is not available, skip seeding", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer tiers.Close(ctx)

	defaults := map[string][]model.TierDefinition{
		model.IntimacyTable: model.DefaultIntimacyTiers(),
		model.WealthTable:   model.DefaultWealthTiers(),
	}
	for table, defs := range defaults {
		_, err := tiers.GetTiers(ctx, table)
		if err == nil {
			logger.Info("tier table exists", zap.String("table", table))
			continue
		}
		if !errors.Is(err, model.ErrNotFound) {
			panic(err)
		}
		if _, err := services.NewTierResolver(defs); err != nil {
			panic(err)
		}
		if err := tiers.SaveTiers(ctx, table, defs); err != nil {
			panic(err)
		}
		logger.Info("tier table seeded", zap.String("table", table), zap.Int("tiers", len(defs)))
	}
}
