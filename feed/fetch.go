package feed

import (
	"context"
	"fmt"
	"sync"

	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/errors"
)

// Fetch reads the current ordered messages of channel once.
// It opens a store subscription, waits for its first answer, then releases it.
func Fetch(ctx context.Context, store contract.DocumentStore, channel string) ([]domain.Message, error) {
	first := &firstSnapshot{done: make(chan struct{})}
	release, err := store.SubscribeOrdered(channel, OrderField, first)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
	defer release()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-first.done:
	}
	if first.err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, first.err)
	}
	return ToMessages(first.docs), nil
}

type firstSnapshot struct {
	once sync.Once
	done chan struct{}
	docs []domain.Document
	err  error
}

func (f *firstSnapshot) OnSnapshot(docs []domain.Document) {
	f.once.Do(func() {
		f.docs = docs
		close(f.done)
	})
}

func (f *firstSnapshot) OnError(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}
