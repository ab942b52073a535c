// Package identity provides the signed-in user to chat panes.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"folio-chat/auth"
	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/errors"
)

// Authenticator resolves who is signing in.
type Authenticator interface {
	Authenticate(ctx context.Context) (domain.Identity, error)
}

// Session is an in-memory contract.IdentityProvider.
type Session struct {
	log           *slog.Logger
	authenticator Authenticator

	// notifyMu keeps listeners seeing changes in the order current took them.
	// Listeners must not sign in or out from their callback.
	notifyMu sync.Mutex

	mu        sync.Mutex
	current   *domain.Identity
	nextID    uint64
	listeners map[uint64]func(*domain.Identity)
}

func NewSession(log *slog.Logger, authenticator Authenticator) *Session {
	return &Session{
		log:           log,
		authenticator: authenticator,
		listeners:     make(map[uint64]func(*domain.Identity)),
	}
}

// NewSignedIn starts a session already holding identity.
func NewSignedIn(log *slog.Logger, identity domain.Identity) *Session {
	s := NewSession(log, nil)
	s.current = identity.Clone()
	return s
}

// OnChange calls fn with the current identity right away, then on every change.
func (s *Session) OnChange(fn func(*domain.Identity)) func() {
	s.notifyMu.Lock()
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	current := s.current.Clone()
	s.mu.Unlock()

	fn(current)
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) SignIn(ctx context.Context) error {
	if s.authenticator == nil {
		return fmt.Errorf("%w: no authenticator configured", errors.ErrUnauthenticated)
	}
	identity, err := s.authenticator.Authenticate(ctx)
	if err != nil {
		return err
	}
	if err := auth.ValidateIdentity(identity); err != nil {
		return err
	}
	s.log.Info("Signed in", "user", identity.ID)
	s.set(&identity)
	return nil
}

func (s *Session) SignOut(_ context.Context) error {
	s.set(nil)
	return nil
}

func (s *Session) Current() *domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// set notifies listeners in registration order, one change at a time.
func (s *Session) set(identity *domain.Identity) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.current = identity.Clone()
	listeners := make([]func(*domain.Identity), 0, len(s.listeners))
	for _, id := range slices.Sorted(maps.Keys(s.listeners)) {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(identity.Clone())
	}
}

var _ contract.IdentityProvider = (*Session)(nil)
