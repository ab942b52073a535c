package auth

import (
	"context"

	"folio-chat/domain"
	"folio-chat/errors"
)

// TokenAuthenticator signs in whoever holds a valid token.
// It stands where an external sign-in popup would be.
type TokenAuthenticator struct {
	tokens *Tokens
	token  func(ctx context.Context) string
}

// NewTokenAuthenticator reads the token from ctx (see WithToken) unless token is given.
func NewTokenAuthenticator(tokens *Tokens, token func(ctx context.Context) string) *TokenAuthenticator {
	if token == nil {
		token = TokenFromContext
	}
	return &TokenAuthenticator{tokens: tokens, token: token}
}

func (a *TokenAuthenticator) Authenticate(ctx context.Context) (domain.Identity, error) {
	token := a.token(ctx)
	if token == "" {
		return domain.Identity{}, errors.ErrUnauthenticated
	}
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return domain.Identity{}, err
	}
	return claims.Identity(), nil
}
