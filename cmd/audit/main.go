// Job - периодическая проверка целостности журнала
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/glkeru/affinity/internal/app"
	config "github.com/glkeru/affinity/internal/config"
	"github.com/go-co-op/gocron/v2"
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
	interval := time.Duration(config.CountEnv("AFFINITY_AUDIT_MINUTES", 60)) * time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, err := app.New(ctx, logger, nil)
	if err != nil {
		panic(err)
	}
	defer core.Close()

	sched, err := gocron.NewScheduler()
	if err != nil {
		panic(err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			broken, err := core.Audit.VerifyAll(ctx)
			if err != nil {
				logger.Error("audit", zap.Error(err))
				return
			}
			if len(broken) > 0 {
				logger.Error("broken ledgers", zap.Strings("owners", broken))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		panic(err)
	}
	sched.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt
	cancel()
	if err := sched.Shutdown(); err != nil {
		logger.Error("scheduler shutdown", zap.Error(err))
	}
}
