package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/errors"
)

// Loader reads the ordered snapshot of a collection.
type Loader func(ctx context.Context, collection, orderField string) ([]domain.Document, error)

type set map[uint64]struct{}

// Hub keeps the live subscriptions of a store and pushes snapshots to them.
// Each subscriber owns one goroutine, so its listener is never called concurrently
// and a newer snapshot can't be overtaken by an older one.
type Hub struct {
	mu          sync.RWMutex
	log         *slog.Logger
	load        Loader
	nextID      uint64
	subscribers map[uint64]*subscriber
	collections map[string]set
	closed      bool
	wg          sync.WaitGroup
}

func NewHub(log *slog.Logger, load Loader) *Hub {
	return &Hub{
		log:         log,
		load:        load,
		subscribers: make(map[uint64]*subscriber),
		collections: make(map[string]set),
	}
}

// Subscribe registers listener and schedules the initial snapshot.
// It returns immediately; the snapshot is delivered from the subscriber goroutine.
func (h *Hub) Subscribe(collection, orderField string, listener contract.SnapshotListener) (contract.Unsubscribe, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errors.ErrStoreClosed
	}

	h.nextID++
	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscriber{
		id:         h.nextID,
		collection: collection,
		orderField: orderField,
		listener:   listener,
		wake:       make(chan struct{}, 1),
		cancel:     cancel,
	}
	h.subscribers[sub.id] = sub
	if _, ok := h.collections[collection]; !ok {
		h.collections[collection] = make(set)
	}
	h.collections[collection][sub.id] = struct{}{}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		sub.run(ctx, h.load)
	}()
	sub.markRefresh()

	h.log.Debug("Subscriber registered", "collection", collection, "subscriber", sub.id)
	var once sync.Once
	return func() {
		once.Do(func() { h.remove(sub) })
	}, nil
}

// remove unregisters the subscriber and leaves no empty collection entry behind.
func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub.cancel()
	delete(h.subscribers, sub.id)
	if members, ok := h.collections[sub.collection]; ok {
		delete(members, sub.id)
		if len(members) == 0 {
			delete(h.collections, sub.collection)
		}
	}
	h.log.Debug("Subscriber removed", "collection", sub.collection, "subscriber", sub.id)
}

// Refresh schedules a new snapshot for every subscriber of collection.
func (h *Hub) Refresh(collection string) {
	if collection == contract.AllCollections {
		h.RefreshAll()
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.collections[collection] {
		h.subscribers[id].markRefresh()
	}
}

func (h *Hub) RefreshAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers {
		sub.markRefresh()
	}
}

// Fail reports err to every subscriber. A later refresh brings them back to live.
func (h *Hub) Fail(err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers {
		sub.markFailure(err)
	}
}

// Count returns how many subscriptions are open on collection.
func (h *Hub) Count(collection string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.collections[collection])
}

// Counts returns the open subscriptions per collection.
func (h *Hub) Counts() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	counts := make(map[string]int, len(h.collections))
	for collection, members := range h.collections {
		counts[collection] = len(members)
	}
	return counts
}

// Close stops every subscriber goroutine and waits for them.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for id, sub := range h.subscribers {
		sub.cancel()
		delete(h.subscribers, id)
	}
	h.collections = make(map[string]set)
	h.mu.Unlock()
	h.wg.Wait()
}

type subscriber struct {
	id         uint64
	collection string
	orderField string
	listener   contract.SnapshotListener
	wake       chan struct{}
	cancel     context.CancelFunc

	mu      sync.Mutex
	refresh bool
	failure error
}

func (s *subscriber) markRefresh() {
	s.mu.Lock()
	s.refresh = true
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) markFailure(err error) {
	s.mu.Lock()
	s.failure = err
	s.mu.Unlock()
	s.signal()
}

// signal never blocks: a pending wake-up already covers the new work.
func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run(ctx context.Context, load Loader) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		s.mu.Lock()
		failure, refresh := s.failure, s.refresh
		s.failure, s.refresh = nil, false
		s.mu.Unlock()

		if failure != nil && ctx.Err() == nil {
			s.listener.OnError(failure)
		}
		if !refresh {
			continue
		}

		docs, err := load(ctx, s.collection, s.orderField)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.listener.OnError(fmt.Errorf("%w: %w", errors.ErrSubscription, err))
			continue
		}
		s.listener.OnSnapshot(docs)
	}
}
