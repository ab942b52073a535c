package auth

import (
	"context"
	"testing"
	"time"

	"folio-chat/domain"
	"folio-chat/errors"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

func TestTokens_RoundTrip(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("secret", time.Hour)
	identity := domain.Identity{ID: "u1", DisplayName: "Al", AvatarURL: lo.ToPtr("https://example.com/al.png")}

	token, err := tokens.Generate(identity)
	req.NoError(err)

	claims, err := tokens.Validate(token)
	req.NoError(err)
	req.Equal(identity, claims.Identity())
	req.Equal("folio-chat", claims.Issuer)
}

func TestTokens_Expired(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("secret", time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := tokens.Generate(domain.Identity{ID: "u1", DisplayName: "Al"})
	req.NoError(err)

	tokens.now = time.Now
	_, err = tokens.Validate(token)
	req.ErrorIs(err, errors.ErrUnauthenticated)
}

func TestTokens_RejectsInvalidIdentity(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("secret", time.Hour)

	testCases := []struct {
		name     string
		identity domain.Identity
	}{
		{name: "missing id", identity: domain.Identity{DisplayName: "Al"}},
		{name: "missing name", identity: domain.Identity{ID: "u1"}},
		{name: "avatar is not a url", identity: domain.Identity{ID: "u1", DisplayName: "Al", AvatarURL: lo.ToPtr("not a url")}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tokens.Generate(tc.identity)
			req.ErrorIs(err, errors.ErrInvalidIdentity)
		})
	}
}

func TestBearerToken(t *testing.T) {
	req := require.New(t)
	req.Equal("abc", BearerToken("Bearer abc"))
	req.Equal("abc", BearerToken("  Bearer  abc "))
	req.Empty(BearerToken("Basic abc"))
	req.Empty(BearerToken(""))
}

func TestOutgoingContext_ForwardsToken(t *testing.T) {
	req := require.New(t)

	ctx := OutgoingContext(WithToken(context.Background(), "abc"))

	md, ok := metadata.FromOutgoingContext(ctx)
	req.True(ok)
	req.Equal([]string{"Bearer abc"}, md.Get("authorization"))

	_, ok = metadata.FromOutgoingContext(OutgoingContext(context.Background()))
	req.False(ok)
}

func TestTokenAuthenticator(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("secret", time.Hour)
	token, err := tokens.Generate(domain.Identity{ID: "u1", DisplayName: "Al"})
	req.NoError(err)
	authenticator := NewTokenAuthenticator(tokens, nil)

	identity, err := authenticator.Authenticate(WithToken(context.Background(), token))
	req.NoError(err)
	req.Equal("u1", identity.ID)

	_, err = authenticator.Authenticate(context.Background())
	req.ErrorIs(err, errors.ErrUnauthenticated)
}
