package client_test

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"folio-chat/auth"
	"folio-chat/domain"
	"folio-chat/errors"
	"folio-chat/feed"
	"folio-chat/infrastructure/grpc/client"
	"folio-chat/infrastructure/grpc/docstore"
	"folio-chat/infrastructure/grpc/server"
	"folio-chat/repositories"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

const secret = "docstore-test-secret"

var al = domain.Identity{ID: "u1", DisplayName: "Al"}

type harness struct {
	store  *repositories.Store
	tokens *auth.Tokens
	server *grpc.Server
	client *client.DocumentStoreClient
}

func newHarness(t *testing.T) *harness {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := repositories.NewStore(log, repositories.NewMemoryBackend())
	tokens := auth.NewTokens(secret, time.Hour)

	lis := bufconn.Listen(1024 * 1024)
	s := grpc.NewServer(grpc.UnaryInterceptor(auth.AuthInterceptor(tokens)))
	docstore.Register(s, server.NewDocumentStoreServer(log, store))
	go func() { _ = s.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		s.Stop()
		_ = store.Close()
	})
	return &harness{
		store:  store,
		tokens: tokens,
		server: s,
		client: client.NewDocumentStoreClient(log, conn, client.WithBackoff(10*time.Millisecond, 50*time.Millisecond)),
	}
}

func (h *harness) signedIn(t *testing.T, identity domain.Identity) context.Context {
	token, err := h.tokens.Generate(identity)
	require.NoError(t, err)
	return auth.WithToken(context.Background(), token)
}

func TestDocumentStoreClient_Insert_RequiresToken(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	_, err := h.client.Insert(context.Background(), "general", feed.ToFields("hi", al))

	req.ErrorIs(err, errors.ErrUnauthenticated)
}

func TestDocumentStoreClient_Insert_RejectsImpersonation(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	mallory := domain.Identity{ID: "u2", DisplayName: "Mallory"}

	// When Mallory posts a message signed as Al
	_, err := h.client.Insert(h.signedIn(t, mallory), "general", feed.ToFields("hi", al))

	req.ErrorIs(err, errors.ErrForbidden)
}

func TestDocumentStoreClient_Insert_RefusesForgedCreatedAt(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := h.signedIn(t, al)
	_, err := h.client.Insert(ctx, "general", feed.ToFields("first", al))
	req.NoError(err)

	// When Al sends messages carrying a createdAt of their own
	for _, forged := range []time.Time{
		time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		fields := feed.ToFields("forged", al)
		fields[feed.OrderField] = forged
		_, err := h.client.Insert(ctx, "general", fields)
		req.ErrorIs(err, errors.ErrInvalidDocument)
	}
	_, err = h.client.Insert(ctx, "general", feed.ToFields("after", al))
	req.NoError(err)

	// Then the feed holds only the store stamped messages, in posting order
	messages, err := feed.Fetch(context.Background(), h.client, "general")
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal("first", messages[0].Text)
	req.Equal("after", messages[1].Text)
	req.Less(messages[1].CreatedAt.Year(), 2100)
}

func TestDocumentStoreClient_InsertAndSubscribe(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	sub := feed.New(logs.GetLoggerFromLevel(slog.LevelDebug), h.client)
	defer sub.Unsubscribe()

	// Given a remote feed on general
	req.NoError(sub.Subscribe("general"))
	waitLive(t, sub, 0)

	// When Al posts through the remote store
	req.NoError(sub.Append(h.signedIn(t, al), "hi", &al))

	// Then the server timestamp and the message come back through the stream
	update := waitLive(t, sub, 1)
	req.Equal("hi", update.Items[0].Text)
	req.Equal("u1", update.Items[0].AuthorID)
	req.NotNil(update.Items[0].CreatedAt)
}

func TestDocumentStoreClient_ServerGone_ReportsSubscriptionError(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	sub := feed.New(logs.GetLoggerFromLevel(slog.LevelDebug), h.client)
	defer sub.Unsubscribe()
	req.NoError(sub.Subscribe("general"))
	waitLive(t, sub, 0)

	// When the store process goes away
	h.server.Stop()

	// Then the feed is in error
	timeout := time.After(5 * time.Second)
	for {
		select {
		case update := <-sub.Updates():
			if update.State == domain.StateError {
				req.ErrorIs(update.Err, errors.ErrSubscription)
				return
			}
		case <-timeout:
			req.Fail("no error reported")
			return
		}
	}
}

func TestDocumentStoreClient_InvalidCollection_IsPermanent(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	errs := make(chan error, 10)
	listener := listenerFunc{onError: func(err error) { errs <- err }}

	release, err := h.client.SubscribeOrdered("a:b", feed.OrderField, listener)
	req.NoError(err)
	defer release()

	select {
	case err := <-errs:
		req.ErrorIs(err, errors.ErrSubscription)
		req.ErrorIs(err, errors.ErrInvalidDocument)
	case <-time.After(2 * time.Second):
		req.Fail("no error reported")
	}
	// And no retry follows
	select {
	case err := <-errs:
		req.Failf("unexpected retry", "%v", err)
	case <-time.After(200 * time.Millisecond):
	}
}

type listenerFunc struct {
	onError func(error)
}

func (l listenerFunc) OnSnapshot([]domain.Document) {}
func (l listenerFunc) OnError(err error)             { l.onError(err) }

func waitLive(t *testing.T, sub *feed.Subscription, n int) feed.Update {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case update := <-sub.Updates():
			if update.State == domain.StateLive && len(update.Items) == n {
				return update
			}
		case <-timeout:
			t.Fatalf("feed never went live with %d items", n)
			return feed.Update{}
		}
	}
}
