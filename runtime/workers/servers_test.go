package workers

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func freeAddress(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	require.NoError(t, listener.Close())
	return address
}

func TestGRPCServerWorker_StopsWithContext(t *testing.T) {
	req := require.New(t)
	address := freeAddress(t)
	worker := NewGRPCServerWorker(logs.GetLoggerFromLevel(slog.LevelDebug), grpc.NewServer(), address)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Then the port accepts connections
	req.Eventually(func() bool {
		conn, err := net.Dial("tcp", address)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	// When the context ends, the worker returns cleanly
	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		t.Fatal("gRPC worker did not stop")
	}
}

func TestGRPCServerWorker_PortTaken(t *testing.T) {
	req := require.New(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	defer listener.Close()

	worker := NewGRPCServerWorker(logs.GetLoggerFromLevel(slog.LevelDebug), grpc.NewServer(), listener.Addr().String())

	req.ErrorContains(worker.Run(context.Background()), "failed to listen")
}

func TestHTTPServerWorker_StopsWithContext(t *testing.T) {
	req := require.New(t)
	address := freeAddress(t)
	server := &http.Server{Addr: address, Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})}
	worker := NewHTTPServerWorker(logs.GetLoggerFromLevel(slog.LevelDebug), server, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	req.Eventually(func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/", address))
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		t.Fatal("HTTP worker did not stop")
	}
}

type fakeCounter struct {
	calls atomic.Int32
}

func (f *fakeCounter) SubscriberCounts() map[string]int {
	f.calls.Add(1)
	return map[string]int{"general": 2, "random": 1}
}

func TestSubscriberReportWorker_SamplesUntilDone(t *testing.T) {
	req := require.New(t)
	counter := &fakeCounter{}
	worker := NewSubscriberReportWorker(logs.GetLoggerFromLevel(slog.LevelDebug), counter, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req.NoError(worker.Run(ctx))
	req.GreaterOrEqual(counter.calls.Load(), int32(2))
}
