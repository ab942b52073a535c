// Package feed keeps a live ordered view of one chat channel and posts into it.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/errors"
)

// Update is what the UI layer renders. Items always replace the previous ones.
type Update struct {
	Items []domain.Message
	State domain.ConnectionState
	Err   error
}

// Subscription is the feed of a single mounted chat pane.
// Updates are coalesced: a slow reader only ever sees the latest one.
type Subscription struct {
	log       *slog.Logger
	store     contract.DocumentStore
	maxLength int

	mu         sync.Mutex
	channel    string
	generation uint64
	release    contract.Unsubscribe
	subscribed bool
	closed     bool
	current    Update
	updates    chan Update
}

type Option func(*Subscription)

// WithMaxLength rejects messages longer than n runes once trimmed. Zero means no limit.
func WithMaxLength(n int) Option {
	return func(s *Subscription) { s.maxLength = n }
}

func New(log *slog.Logger, store contract.DocumentStore, opts ...Option) *Subscription {
	s := &Subscription{
		log:     log,
		store:   store,
		updates: make(chan Update, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Updates is closed by Unsubscribe.
func (s *Subscription) Updates() <-chan Update {
	return s.updates
}

// Current returns the last published update.
func (s *Subscription) Current() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Update{Items: cloneMessages(s.current.Items), State: s.current.State, Err: s.current.Err}
}

// Channel returns the subscribed channel, empty before the first Subscribe.
func (s *Subscription) Channel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// Subscribe starts following channel. It does not wait for the first snapshot.
// Subscribing again to the followed channel is a no-op unless the feed is in error;
// otherwise the previous store subscription is released before the new one opens.
func (s *Subscription) Subscribe(channel string) error {
	if channel == "" {
		return fmt.Errorf("%w: empty channel", errors.ErrInvalidCollection)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.ErrSubscriptionClosed
	}
	if s.subscribed && s.channel == channel && s.current.State != domain.StateError {
		s.mu.Unlock()
		return nil
	}
	previous := s.release
	s.release = nil
	s.generation++
	generation := s.generation
	s.channel = channel
	s.subscribed = true
	s.current = Update{State: domain.StateConnecting}
	s.publishLocked()
	s.mu.Unlock()

	if previous != nil {
		previous()
	}

	release, err := s.store.SubscribeOrdered(channel, OrderField, &listener{sub: s, generation: generation})
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		err = fmt.Errorf("%w: %w", errors.ErrSubscription, err)
		if generation == s.generation {
			s.current = Update{State: domain.StateError, Err: err}
			s.publishLocked()
		}
		return err
	}
	if generation != s.generation {
		// Replaced or closed while the store was answering.
		release()
		return nil
	}
	s.release = release
	s.log.Debug("Feed subscribed", "channel", channel)
	return nil
}

// Unsubscribe releases the store subscription and closes Updates.
// No update is published after it returns. Later calls do nothing.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	release, channel := s.release, s.channel
	s.release = nil
	select {
	case <-s.updates:
	default:
	}
	close(s.updates)
	s.mu.Unlock()

	if release != nil {
		release()
	}
	s.log.Debug("Feed unsubscribed", "channel", channel)
}

// Append posts text as identity into the subscribed channel and waits for the store.
// Items are left untouched, the message shows up with the next snapshot.
func (s *Subscription) Append(ctx context.Context, text string, identity *domain.Identity) error {
	trimmed, err := Validate(text, identity, s.maxLength)
	if err != nil {
		return err
	}

	s.mu.Lock()
	closed, subscribed, channel := s.closed, s.subscribed, s.channel
	s.mu.Unlock()
	switch {
	case closed:
		return errors.ErrSubscriptionClosed
	case !subscribed:
		return errors.ErrNotSubscribed
	}

	_, err = insert(ctx, s.store, channel, trimmed, *identity)
	return err
}

func (s *Subscription) onSnapshot(generation uint64, docs []domain.Document) {
	messages := ToMessages(docs)
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return
	}
	s.current = Update{Items: messages, State: domain.StateLive}
	s.publishLocked()
}

// onError keeps the last items visible next to the error.
func (s *Subscription) onError(generation uint64, err error) {
	if !errors.Is(err, errors.ErrSubscription) {
		err = fmt.Errorf("%w: %w", errors.ErrSubscription, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return
	}
	s.log.Warn("Feed subscription failed", "channel", s.channel, "error", err)
	s.current = Update{Items: s.current.Items, State: domain.StateError, Err: err}
	s.publishLocked()
}

// publishLocked replaces any unread update with the current one. Callers hold mu.
func (s *Subscription) publishLocked() {
	update := Update{Items: cloneMessages(s.current.Items), State: s.current.State, Err: s.current.Err}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- update:
	default:
	}
}

// listener binds store callbacks to the subscription generation they were opened for.
type listener struct {
	sub        *Subscription
	generation uint64
}

func (l *listener) OnSnapshot(docs []domain.Document) {
	l.sub.onSnapshot(l.generation, docs)
}

func (l *listener) OnError(err error) {
	l.sub.onError(l.generation, err)
}

// Validate checks a message before it reaches the store and returns its trimmed text.
func Validate(text string, identity *domain.Identity, maxLength int) (string, error) {
	if identity == nil {
		return "", errors.ErrUnauthenticated
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", errors.ErrEmptyMessage
	}
	if identity.ID == "" {
		return "", fmt.Errorf("%w: missing id", errors.ErrInvalidIdentity)
	}
	if maxLength > 0 && utf8.RuneCountInString(trimmed) > maxLength {
		return "", fmt.Errorf("%w: %d characters max", errors.ErrMessageTooLong, maxLength)
	}
	return trimmed, nil
}

// Post validates and writes one message into channel without holding a subscription.
// It returns the id assigned by the store.
func Post(ctx context.Context, store contract.DocumentStore, channel, text string, identity *domain.Identity, maxLength int) (string, error) {
	trimmed, err := Validate(text, identity, maxLength)
	if err != nil {
		return "", err
	}
	return insert(ctx, store, channel, trimmed, *identity)
}

func insert(ctx context.Context, store contract.DocumentStore, channel, text string, identity domain.Identity) (string, error) {
	id, err := store.Insert(ctx, channel, ToFields(text, identity))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
	return id, nil
}
