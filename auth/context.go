package auth

import (
	"context"
	"strings"

	"folio-chat/domain"

	"google.golang.org/grpc/metadata"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	tokenKey    contextKey = "token"
)

const authorizationHeader = "authorization"

func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the identity a token was validated for, nil otherwise.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	if !ok {
		return nil
	}
	return identity.Clone()
}

// WithToken keeps the raw token so a remote store call can forward it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// OutgoingContext attaches the token carried by ctx as gRPC metadata.
func OutgoingContext(ctx context.Context) context.Context {
	token := TokenFromContext(ctx)
	if token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, authorizationHeader, "Bearer "+token)
}

// BearerToken extracts the token of a "Bearer <token>" header value.
func BearerToken(header string) string {
	token, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
