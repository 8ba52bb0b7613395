// Job - пополнения кошельков из платежного сервиса
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	app "github.com/glkeru/affinity/internal/app"
	config "github.com/glkeru/affinity/internal/config"
	rabbit "github.com/glkeru/affinity/internal/external/rabbitmq"
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
	semcount := config.CountEnv("AFFINITY_TOPUPS_COUNT", 5)

	// rabbitmq
	reader, err := rabbit.NewRabbitConsumer(semcount)
	if err != nil {
		logger.Error(err.Error())
		panic(err)
	}
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// services
	core, err := app.New(ctx, logger, nil)
	if err != nil {
		logger.Error(err.Error())
		panic(err)
	}
	defer core.Close()

	// os signals
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		cancel()
	}()

	// workers
	wg := &sync.WaitGroup{}
	wg.Add(semcount)
	for i := 0; i < semcount; i++ {
		go worker(ctx, core.Ledger, wg, logger, reader)
	}
	wg.Wait()
}

// worker for rabbitmq messages
func worker(ctx context.Context, ledger *services.LedgerService, wg *sync.WaitGroup, logger *zap.Logger, reader *rabbit.RabbitConsumer) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-reader.Msg:
			if !ok {
				return
			}
			confirm := ledger.TopUpJSON(ctx, msg.Body)
			if !confirm.Success {
				logger.Error("topup failed", zap.String("topup", confirm.TopUpID), zap.String("error", confirm.Error))
			}
			if err := reader.Processed(ctx, confirm); err != nil {
				logger.Error("topup confirm", zap.String("topup", confirm.TopUpID), zap.Error(err))
				_ = msg.Nack(false, true)
				continue
			}
			if err := msg.Ack(false); err != nil {
				logger.Error("ack", zap.Error(err))
			}
		}
	}
}
