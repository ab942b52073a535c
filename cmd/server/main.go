// Command server is the browser facing chat gateway.
// It talks to a docstore process when DOCSTORE_ADDR is set and embeds a store otherwise.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"folio-chat/auth"
	"folio-chat/contract"
	"folio-chat/infrastructure/gateway"
	"folio-chat/infrastructure/grpc/client"
	"folio-chat/internal"
	"folio-chat/runtime/workers"
	"folio-chat/services"

	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	sup := workers.NewSupervisor(log)

	// 2. Document store, remote or embedded
	var store contract.DocumentStore
	if config.DocstoreAddr != "" {
		conn, err := client.Dial(config.DocstoreAddr)
		if err != nil {
			return exitRuntime, fmt.Errorf("docstore connection failed: %w", err)
		}
		defer conn.Close()
		store = client.NewDocumentStoreClient(log, conn)
		log.Info("Using remote docstore", "address", config.DocstoreAddr)
	} else {
		backend, _, err := internal.OpenBackend(ctx, config)
		if err != nil {
			return exitRuntime, err
		}
		local, redisClient := internal.OpenStore(log, backend, config)
		defer func() {
			_ = local.Close()
			if redisClient != nil {
				_ = redisClient.Close()
			}
		}()
		sup.Add(local)
		store = local
		log.Info("Using embedded store", "backend", config.StoreBackend)
	}

	// 3. Chat service & moderation
	moderator, err := internal.OpenModerator(log, config)
	if err != nil {
		return exitConfig, err
	}
	var censor services.Censor
	if moderator != nil {
		censor = moderator
	}
	chat := services.NewChatService(log, store, censor, config.MaxMessageLength)

	// 4. HTTP gateway
	tokens := auth.NewTokens(config.JWTSecret, config.AuthTokenDuration)
	gw := gateway.NewGateway(log, chat, tokens, gateway.Settings{
		WriteTimeout:   config.WSWriteTimeout,
		PingInterval:   config.WSPingInterval,
		ReadTimeout:    config.WSReadTimeout,
		AllowedOrigins: config.Origins(),
	})
	httpServer := &http.Server{Addr: config.HTTPAddr, Handler: gw.Router()}
	sup.Add(workers.NewHTTPServerWorker(log, httpServer, config.ShutdownTimeout))

	sup.Run(ctx)
	log.Info("Program stopped cleanly")
	return exitOK, nil
}
