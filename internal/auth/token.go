package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Execution context tags carried by every token: a token is scoped either to
// the shared core database or to exactly one tenant.
const (
	ContextCore   = "core"
	ContextTenant = "tenant"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds the signed token payload: user id, execution context tag and,
// for tenant context, the tenant identifier.
type Claims struct {
	UserID  int64  `json:"user_id"`
	Context string `json:"context"`
	Tenant  string `json:"tenant,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed, time-limited identity tokens.
// Tokens are stateless: there is no revocation list, so an issued token
// stays valid until its expiry. Expiry is checked against the verifier's
// clock with no leeway; clock skew is deliberately not compensated.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a token service with the given signing secret and
// token lifetime in minutes.
func NewTokenService(secret string, expireMinutes int) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    time.Duration(expireMinutes) * time.Minute,
	}
}

// Generate creates a new HS256 token for the user in the given execution
// context. tenant must be set iff execContext is ContextTenant.
func (s *TokenService) Generate(userID int64, execContext, tenant string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  userID,
		Context: execContext,
		Tenant:  tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and verifies a token, returning its claims. Malformed,
// tampered and expired tokens all report ErrInvalidToken; Validate never
// panics and has no side effects.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
