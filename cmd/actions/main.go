// Job - обработка действий пользователей
// Kafka interactions -> списание, начисление, близость -> Kafka levelups
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	app "github.com/glkeru/affinity/internal/app"
	config "github.com/glkeru/affinity/internal/config"
	kafka "github.com/glkeru/affinity/internal/external/kafka"
	otel "github.com/glkeru/affinity/observability/otel"
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

	// kafka
	reader, err := kafka.GetNewReader(kafka.InteractionsTopic)
	if err != nil {
		panic(err)
	}
	defer reader.CloseReader()

	writer, err := kafka.NewLevelUpWriter()
	if err != nil {
		panic(err)
	}
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := otel.InitTracer(ctx, logger, "affinity-actions")
	if err != nil {
		panic(err)
	}
	defer shutdown()

	// services
	core, err := app.New(ctx, logger, writer)
	if err != nil {
		panic(err)
	}
	defer core.Close()

	// start
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		cancel()
	}()

	wg := &sync.WaitGroup{}
	semaphore := make(chan struct{}, config.CountEnv("AFFINITY_ACTIONS_COUNT", 5))

	for ctx.Err() == nil {
		msg, err := reader.GetNewMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("read interaction", zap.Error(err))
			}
			break
		}

		semaphore <- struct{}{}
		wg.Add(1)
		go func(msg []byte) {
			defer wg.Done()
			defer func() { <-semaphore }()
			if _, err := core.Interactions.PerformJSON(ctx, msg); err != nil {
				logger.Error("interaction failed", zap.ByteString("message", msg), zap.Error(err))
			}
		}(msg)
	}
	wg.Wait()
}
