package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"folio-chat/auth"
	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/errors"
	"folio-chat/feed"
	"folio-chat/infrastructure/grpc/docstore"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// DocumentStoreServer exposes a contract.DocumentStore to remote chat gateways.
type DocumentStoreServer struct {
	log   *slog.Logger
	store contract.DocumentStore
}

func NewDocumentStoreServer(log *slog.Logger, store contract.DocumentStore) *DocumentStoreServer {
	return &DocumentStoreServer{log: log, store: store}
}

// Insert writes a document for the caller identified by the auth interceptor.
// A caller can only write messages signed with its own id.
func (s *DocumentStoreServer) Insert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		return nil, errors.MapToGRPCError(errors.ErrUnauthenticated)
	}
	collection, fields, err := docstore.ParseInsertRequest(req)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	if author, ok := fields[feed.FieldAuthorID]; ok && author != identity.ID {
		s.log.Warn("Rejected insert signed by someone else", "user", identity.ID, "author", author)
		return nil, errors.MapToGRPCError(fmt.Errorf("%w: %s can't write as %v", errors.ErrForbidden, identity.ID, author))
	}

	id, err := s.store.Insert(ctx, collection, fields)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return docstore.NewInsertResponse(id), nil
}

// SubscribeOrdered blocks until the client disconnects or the store subscription fails.
// A failure ends the stream with Unavailable, clients reconnect on their own.
func (s *DocumentStoreServer) SubscribeOrdered(req *structpb.Struct, stream grpc.ServerStream) error {
	collection, orderField := docstore.ParseSubscribeRequest(req)
	relay := newRelay()
	release, err := s.store.SubscribeOrdered(collection, orderField, relay)
	if err != nil {
		return errors.MapToGRPCError(err)
	}
	defer release()
	s.log.Debug("Remote subscriber connected", "collection", collection)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("Remote subscriber left", "collection", collection)
			return nil
		case <-relay.ready:
			docs, failure := relay.take()
			if failure != nil {
				return errors.MapToGRPCError(failure)
			}
			msg, err := docstore.NewSnapshot(docs)
			if err != nil {
				return errors.MapToGRPCError(err)
			}
			if err := stream.SendMsg(msg); err != nil {
				s.log.Error("failed to push snapshot to stream", "collection", collection, "error", err)
				return err
			}
		}
	}
}

// relay hands store callbacks to the stream loop. Only the latest snapshot is kept.
type relay struct {
	mu      sync.Mutex
	docs    []domain.Document
	failure error
	ready   chan struct{}
}

func newRelay() *relay {
	return &relay{ready: make(chan struct{}, 1)}
}

func (r *relay) OnSnapshot(docs []domain.Document) {
	r.mu.Lock()
	r.docs = docs
	r.mu.Unlock()
	r.signal()
}

func (r *relay) OnError(err error) {
	r.mu.Lock()
	r.failure = err
	r.mu.Unlock()
	r.signal()
}

func (r *relay) take() ([]domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs, r.failure
}

func (r *relay) signal() {
	select {
	case r.ready <- struct{}{}:
	default:
	}
}

var _ docstore.Server = (*DocumentStoreServer)(nil)
