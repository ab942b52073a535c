package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"folio-chat/auth"
	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/errors"
	"folio-chat/infrastructure/grpc/docstore"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultMinBackoff = 200 * time.Millisecond
	defaultMaxBackoff = 10 * time.Second
)

// DocumentStoreClient is a contract.DocumentStore living in another process.
// Subscriptions survive server restarts: the stream is reopened with backoff and
// the listener is told about the outage in between.
type DocumentStoreClient struct {
	log        *slog.Logger
	conn       grpc.ClientConnInterface
	minBackoff time.Duration
	maxBackoff time.Duration
}

type Option func(*DocumentStoreClient)

func WithBackoff(minWait, maxWait time.Duration) Option {
	return func(c *DocumentStoreClient) {
		c.minBackoff, c.maxBackoff = minWait, maxWait
	}
}

func NewDocumentStoreClient(log *slog.Logger, conn grpc.ClientConnInterface, opts ...Option) *DocumentStoreClient {
	c := &DocumentStoreClient{log: log, conn: conn, minBackoff: defaultMinBackoff, maxBackoff: defaultMaxBackoff}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial opens a plaintext connection, the store sits on a private network.
func Dial(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// Insert forwards the token carried by ctx (see auth.WithToken).
func (c *DocumentStoreClient) Insert(ctx context.Context, collection string, fields domain.Fields) (string, error) {
	req, err := docstore.NewInsertRequest(collection, fields)
	if err != nil {
		return "", err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(auth.OutgoingContext(ctx), docstore.InsertMethod, req, out); err != nil {
		return "", errors.FromGRPCError(err)
	}
	return docstore.ParseInsertResponse(out)
}

func (c *DocumentStoreClient) SubscribeOrdered(collection, orderField string, listener contract.SnapshotListener) (contract.Unsubscribe, error) {
	ctx, cancel := context.WithCancel(context.Background())
	req := docstore.NewSubscribeRequest(collection, orderField)
	go c.follow(ctx, collection, req, listener)

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

// follow keeps one stream open at a time until ctx is cancelled.
func (c *DocumentStoreClient) follow(ctx context.Context, collection string, req *structpb.Struct, listener contract.SnapshotListener) {
	wait := c.minBackoff
	for {
		received, err := c.stream(ctx, req, listener)
		if ctx.Err() != nil {
			return
		}
		if received {
			wait = c.minBackoff
		}
		listener.OnError(fmt.Errorf("%w: %w", errors.ErrSubscription, errors.FromGRPCError(err)))
		if permanent(err) {
			c.log.Error("Remote subscription refused", "collection", collection, "error", err)
			return
		}

		c.log.Warn("Remote subscription lost, reconnecting", "collection", collection, "error", err, "in", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		wait = min(2*wait, c.maxBackoff)
	}
}

// stream reports whether at least one snapshot arrived before it failed.
func (c *DocumentStoreClient) stream(ctx context.Context, req *structpb.Struct, listener contract.SnapshotListener) (bool, error) {
	stream, err := c.conn.NewStream(ctx, docstore.SubscribeOrderedStream, docstore.SubscribeOrderedMethod)
	if err != nil {
		return false, err
	}
	if err := stream.SendMsg(req); err != nil {
		return false, err
	}
	if err := stream.CloseSend(); err != nil {
		return false, err
	}

	received := false
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if err == io.EOF {
				err = fmt.Errorf("stream closed by server")
			}
			return received, err
		}
		docs, err := docstore.ParseSnapshot(msg)
		if err != nil {
			return received, err
		}
		if ctx.Err() != nil {
			return received, ctx.Err()
		}
		listener.OnSnapshot(docs)
		received = true
	}
}

// permanent errors would fail the same way on every retry.
func permanent(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied, codes.Unimplemented:
		return true
	default:
		return false
	}
}

var _ contract.DocumentStore = (*DocumentStoreClient)(nil)
