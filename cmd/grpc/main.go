// gRPC server - чтение кошельков, близости и истории операций
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	serv "github.com/glkeru/affinity/internal/api/grpc"
	app "github.com/glkeru/affinity/internal/app"
	config "github.com/glkeru/affinity/internal/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	// log
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// config
	config.LoadDotEnv(logger)
	port := config.MustEnv("AFFINITY_GRPC_PORT")

	core, err := app.New(context.Background(), logger, nil)
	if err != nil {
		panic(err)
	}
	defer core.Close()

	lis, err := net.Listen("tcp", "0.0.0.0:"+port)
	if err != nil {
		panic(err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	grpcServer := grpc.NewServer()
	serv.RegisterAffinityServer(grpcServer, serv.NewAffinityService(core.Scores, core.Ledger, logger))

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server failed", zap.Error(err))
			interrupt <- syscall.SIGTERM
		}
	}()

	<-interrupt
	grpcServer.GracefulStop()
}
