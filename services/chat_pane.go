package services

import (
	"context"
	"log/slog"
	"sync"

	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/errors"
	"folio-chat/feed"
)

// ChatPane ties a feed subscription to the identity of whoever looks at it.
// It follows the mount / unmount lifecycle of the pane.
type ChatPane struct {
	log      *slog.Logger
	service  *ChatService
	provider contract.IdentityProvider
	feed     *feed.Subscription

	mu           sync.Mutex
	identity     *domain.Identity
	stopIdentity func()
	listening    bool
	unmounted    bool
}

// Mount starts following identity changes and channel.
// Providers replay the current identity from OnChange, so it is called without holding mu.
func (p *ChatPane) Mount(channel string) error {
	p.mu.Lock()
	if p.unmounted {
		p.mu.Unlock()
		return errors.ErrSubscriptionClosed
	}
	register := !p.listening
	p.listening = true
	p.mu.Unlock()

	if register {
		stop := p.provider.OnChange(func(identity *domain.Identity) {
			p.mu.Lock()
			p.identity = identity
			p.mu.Unlock()
		})
		p.mu.Lock()
		unmounted := p.unmounted
		if !unmounted {
			p.stopIdentity = stop
		}
		p.mu.Unlock()
		if unmounted {
			stop()
			return errors.ErrSubscriptionClosed
		}
	}
	return p.feed.Subscribe(channel)
}

// Unmount releases the identity listener and the store subscription. Safe to repeat.
func (p *ChatPane) Unmount() {
	p.mu.Lock()
	if p.unmounted {
		p.mu.Unlock()
		return
	}
	p.unmounted = true
	stop := p.stopIdentity
	p.stopIdentity = nil
	p.mu.Unlock()

	if stop != nil {
		stop()
	}
	p.feed.Unsubscribe()
}

// Send posts text as the current identity. Signed out panes get ErrUnauthenticated.
func (p *ChatPane) Send(ctx context.Context, text string) error {
	return p.feed.Append(ctx, p.service.moderate(text), p.Identity())
}

func (p *ChatPane) SignIn(ctx context.Context) error {
	return p.provider.SignIn(ctx)
}

func (p *ChatPane) SignOut(ctx context.Context) error {
	return p.provider.SignOut(ctx)
}

func (p *ChatPane) Updates() <-chan feed.Update {
	return p.feed.Updates()
}

func (p *ChatPane) Current() feed.Update {
	return p.feed.Current()
}

func (p *ChatPane) Channel() string {
	return p.feed.Channel()
}

func (p *ChatPane) Identity() *domain.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identity.Clone()
}
