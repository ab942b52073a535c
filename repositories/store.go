package repositories

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/errors"

	"github.com/oklog/ulid/v2"
)

// Backend persists documents. Scan returns them in write order.
type Backend interface {
	Put(ctx context.Context, collection string, doc domain.Document, at time.Time) error
	Scan(ctx context.Context, collection string) ([]domain.Document, error)
	Close() error
}

// Store is the contract.DocumentStore served to chat clients.
// It owns ordering: ids and server timestamps are assigned here, under one lock.
type Store struct {
	mu       sync.Mutex
	log      *slog.Logger
	backend  Backend
	clock    *ServerClock
	entropy  io.Reader
	hub      *Hub
	notifier contract.ChangeNotifier
	limit    int
}

type Option func(*Store)

func WithClock(clock *ServerClock) Option {
	return func(s *Store) { s.clock = clock }
}

// WithNotifier makes the store publish its inserts and refresh on remote ones.
func WithNotifier(notifier contract.ChangeNotifier) Option {
	return func(s *Store) { s.notifier = notifier }
}

// WithLimit keeps only the last n documents of each snapshot.
func WithLimit(n int) Option {
	return func(s *Store) { s.limit = n }
}

func NewStore(log *slog.Logger, backend Backend, opts ...Option) *Store {
	s := &Store{
		log:     log,
		backend: backend,
		clock:   NewServerClock(time.Now),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(log, s.Snapshot)
	return s
}

func (s *Store) SubscribeOrdered(collection, orderField string, listener contract.SnapshotListener) (contract.Unsubscribe, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	return s.hub.Subscribe(collection, orderField, listener)
}

// Insert writes fields as a new document and returns its id.
// ServerTimestamp values become the write time. Times are only ever set by the store,
// a concrete time.Time in fields is refused with ErrInvalidDocument.
func (s *Store) Insert(ctx context.Context, collection string, fields domain.Fields) (string, error) {
	if err := validateCollection(collection); err != nil {
		return "", err
	}
	if err := validateFields(fields); err != nil {
		return "", err
	}

	s.mu.Lock()
	at := s.clock.Now()
	id, err := ulid.New(ulid.Timestamp(at), s.entropy)
	if err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("generating document id: %w", err)
	}
	doc := domain.Document{ID: id.String(), Fields: resolve(fields, at)}
	err = s.backend.Put(ctx, collection, doc, at)
	s.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("writing into %s: %w", collection, err)
	}

	s.hub.Refresh(collection)
	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, collection); err != nil {
			s.log.Warn("Unable to publish change", "collection", collection, "error", err)
		}
	}
	s.log.Debug("Document inserted", "collection", collection, "id", doc.ID)
	return doc.ID, nil
}

// Snapshot returns the documents having orderField, sorted on it.
// Ties keep the write order.
func (s *Store) Snapshot(ctx context.Context, collection, orderField string) ([]domain.Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	docs, err := s.backend.Scan(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", collection, err)
	}

	ordered := make([]domain.Document, 0, len(docs))
	var latest time.Time
	for _, doc := range docs {
		at, ok := doc.Time(orderField)
		if !ok {
			continue
		}
		if at.After(latest) {
			latest = at
		}
		ordered = append(ordered, doc)
	}
	slices.SortStableFunc(ordered, func(a, b domain.Document) int {
		ta, _ := a.Time(orderField)
		tb, _ := b.Time(orderField)
		return ta.Compare(tb)
	})
	s.clock.Observe(latest)

	if s.limit > 0 && len(ordered) > s.limit {
		ordered = ordered[len(ordered)-s.limit:]
	}
	return ordered, nil
}

// Run listens to the notifier and refreshes subscribers on remote changes.
// It returns when the notifier fails, so a supervisor can restart it.
func (s *Store) Run(ctx context.Context) error {
	if s.notifier == nil {
		<-ctx.Done()
		return nil
	}
	err := s.notifier.Listen(ctx, s.hub.Refresh)
	if ctx.Err() != nil {
		return nil
	}
	if err == nil {
		err = fmt.Errorf("change feed stopped")
	}
	s.hub.Fail(fmt.Errorf("%w: %w", errors.ErrSubscription, err))
	return err
}

// Subscribers is the number of open subscriptions on collection.
func (s *Store) Subscribers(collection string) int {
	return s.hub.Count(collection)
}

// SubscriberCounts is the number of open subscriptions per collection.
func (s *Store) SubscriberCounts() map[string]int {
	return s.hub.Counts()
}

func (s *Store) Close() error {
	s.hub.Close()
	return s.backend.Close()
}

func validateCollection(collection string) error {
	if collection == "" || collection == contract.AllCollections || strings.ContainsAny(collection, ":/") {
		return fmt.Errorf("%w: %q", errors.ErrInvalidCollection, collection)
	}
	return nil
}

func validateFields(fields domain.Fields) error {
	for name, value := range fields {
		if _, ok := value.(time.Time); ok {
			return fmt.Errorf("%w: %q must be a server timestamp", errors.ErrInvalidDocument, name)
		}
	}
	return nil
}

func resolve(fields domain.Fields, at time.Time) domain.Fields {
	out := make(domain.Fields, len(fields))
	for name, value := range fields {
		if _, ok := value.(domain.ServerTimestampValue); ok {
			out[name] = at
			continue
		}
		out[name] = value
	}
	return out
}
