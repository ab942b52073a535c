package auth

import (
	"fmt"
	"time"

	"folio-chat/domain"
	"folio-chat/errors"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "folio-chat"

// CustomClaims defines the structure of the data stored inside the JWT.
// The identity travels whole, the gateway never looks users up.
type CustomClaims struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

func (c CustomClaims) Identity() domain.Identity {
	return domain.Identity{ID: c.UserID, DisplayName: c.DisplayName, AvatarURL: c.AvatarURL}
}

// Tokens signs and checks HS256 tokens with a shared secret.
type Tokens struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

func NewTokens(secret string, duration time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), duration: duration, now: time.Now}
}

// Generate creates a signed JWT for identity.
func (t *Tokens) Generate(identity domain.Identity) (string, error) {
	if err := ValidateIdentity(identity); err != nil {
		return "", err
	}
	now := t.now()
	claims := &CustomClaims{
		UserID:      identity.ID,
		DisplayName: identity.DisplayName,
		AvatarURL:   identity.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate parses and validates the signature and expiration of a JWT string.
func (t *Tokens) Validate(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, jwt.ErrSignatureInvalid)
	}
	if err := ValidateIdentity(claims.Identity()); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrUnauthenticated, err)
	}
	return claims, nil
}
