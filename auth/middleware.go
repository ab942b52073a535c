package auth

import (
	"folio-chat/domain"
	"folio-chat/errors"

	"github.com/gin-gonic/gin"
)

const identityGinKey = "identity"

// RequireToken rejects requests without a valid bearer token.
// Browsers can't set headers on a websocket upgrade, so ?token= is accepted too.
func RequireToken(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			abort(c, errors.ErrUnauthenticated)
			return
		}
		claims, err := tokens.Validate(token)
		if err != nil {
			abort(c, err)
			return
		}

		identity := claims.Identity()
		c.Set(identityGinKey, identity)
		ctx := WithToken(WithIdentity(c.Request.Context(), identity), token)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(errors.MapToHTTPStatus(err), gin.H{"error": errors.Code(err)})
}

// IdentityFromGin returns the identity set by RequireToken.
func IdentityFromGin(c *gin.Context) *domain.Identity {
	value, ok := c.Get(identityGinKey)
	if !ok {
		return nil
	}
	identity := value.(domain.Identity)
	return identity.Clone()
}
