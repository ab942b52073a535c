package workers

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
)

// GRPCServerWorker serves a gRPC server until ctx ends.
// It listens again on every run so the supervisor can restart it.
type GRPCServerWorker struct {
	log     *slog.Logger
	server  *grpc.Server
	address string
}

func NewGRPCServerWorker(log *slog.Logger, server *grpc.Server, address string) *GRPCServerWorker {
	return &GRPCServerWorker{log: log, server: server, address: address}
}

func (w *GRPCServerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC server", "address", w.address, "at", time.Now().UTC())
		errChan <- w.server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		w.server.GracefulStop()
		return nil
	case err := <-errChan:
		if err == nil || err == grpc.ErrServerStopped {
			return nil
		}
		return fmt.Errorf("gRPC server error: %w", err)
	}
}

// HTTPServerWorker serves an http.Server until ctx ends, then shuts it down.
type HTTPServerWorker struct {
	log             *slog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

func NewHTTPServerWorker(log *slog.Logger, server *http.Server, shutdownTimeout time.Duration) *HTTPServerWorker {
	return &HTTPServerWorker{log: log, server: server, shutdownTimeout: shutdownTimeout}
}

func (w *HTTPServerWorker) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting HTTP server", "address", w.server.Addr, "at", time.Now().UTC())
		errChan <- w.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()
		if err := w.server.Shutdown(shutdownCtx); err != nil {
			w.log.Warn("HTTP server shutdown incomplete", "error", err)
		}
		return nil
	case err := <-errChan:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("HTTP server error: %w", err)
	}
}
