// Command docstore serves the shared document store over gRPC.
// Several instances can share a database when REDIS_ADDR carries their change feed.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"folio-chat/auth"
	"folio-chat/infrastructure/grpc/docstore"
	"folio-chat/infrastructure/grpc/server"
	"folio-chat/internal"
	"folio-chat/runtime/workers"

	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const reportInterval = time.Minute

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Docstore terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run keeps every deferred cleanup on the way out, os.Exit is left to main.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	backend, db, err := internal.OpenBackend(ctx, config)
	if err != nil {
		return exitRuntime, err
	}
	store, redisClient := internal.OpenStore(log, backend, config)
	defer func() {
		log.Info("Closing store...", "backend", config.StoreBackend)
		_ = store.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}()

	if db != nil && log.Enabled(ctx, slog.LevelDebug) {
		internal.StartDebugServer(log, db, config.DebugPort, "/inspect", func() map[string]any {
			return map[string]any{"subscribers": store.SubscriberCounts()}
		})
	}

	// 3. gRPC
	tokens := auth.NewTokens(config.JWTSecret, config.AuthTokenDuration)
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(auth.AuthInterceptor(tokens)))
	docstore.Register(grpcServer, server.NewDocumentStoreServer(log, store))

	// 4. Supervision
	sup := workers.NewSupervisor(log)
	sup.Add(
		store,
		workers.NewGRPCServerWorker(log, grpcServer, fmt.Sprintf(":%d", config.GRPCPort)),
		workers.NewSubscriberReportWorker(log, store, reportInterval),
	)
	log.Info("Docstore starting", "backend", config.StoreBackend, "port", config.GRPCPort)
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return exitOK, nil
}
