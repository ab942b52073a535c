package services

import (
	"context"
	"log/slog"

	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/feed"
)

// Censor masks blocked words. *moderation.Moderator implements it.
type Censor interface {
	Censor(text string) (string, []string)
}

type IChatService interface {
	PostMessage(ctx context.Context, channel, text string, identity *domain.Identity) (string, error)
	GetMessages(ctx context.Context, channel string) ([]domain.Message, error)
	OpenPane(identity contract.IdentityProvider) *ChatPane
}

// ChatService is what the transports talk to. It applies moderation and the
// message length limit to every write, whichever path it takes.
type ChatService struct {
	log       *slog.Logger
	store     contract.DocumentStore
	censor    Censor
	maxLength int
}

// NewChatService accepts a nil censor, messages are then stored as typed.
func NewChatService(log *slog.Logger, store contract.DocumentStore, censor Censor, maxLength int) *ChatService {
	return &ChatService{log: log, store: store, censor: censor, maxLength: maxLength}
}

func (s *ChatService) PostMessage(ctx context.Context, channel, text string, identity *domain.Identity) (string, error) {
	return feed.Post(ctx, s.store, channel, s.moderate(text), identity, s.maxLength)
}

func (s *ChatService) GetMessages(ctx context.Context, channel string) ([]domain.Message, error) {
	return feed.Fetch(ctx, s.store, channel)
}

// OpenPane prepares the feed of one chat pane. Nothing is subscribed before Mount.
func (s *ChatService) OpenPane(identity contract.IdentityProvider) *ChatPane {
	return &ChatPane{
		log:      s.log,
		service:  s,
		provider: identity,
		feed:     feed.New(s.log, s.store, feed.WithMaxLength(s.maxLength)),
	}
}

func (s *ChatService) moderate(text string) string {
	if s.censor == nil {
		return text
	}
	censored, words := s.censor.Censor(text)
	if len(words) > 0 {
		s.log.Info("Message moderated", "words", len(words))
	}
	return censored
}
