// Package auth signs and verifies the bearer tokens issued to accounts.
//
// Four kinds of token exist. Each kind has its own HMAC secret and lifetime,
// and the kind is also embedded in the claims, so a token of one kind is
// never accepted where another kind is expected.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenMissing          = errors.New("token missing")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenKindMismatch     = errors.New("token kind mismatch")
	ErrUnknownKind           = errors.New("unknown token kind")
)

// Kind tells tokens apart. The numeric values are part of the wire format.
type Kind int

const (
	AccessToken Kind = iota
	RefreshToken
	ForgotPasswordToken
	EmailVerifyToken
)

func (k Kind) String() string {
	switch k {
	case AccessToken:
		return "access"
	case RefreshToken:
		return "refresh"
	case ForgotPasswordToken:
		return "forgot_password"
	case EmailVerifyToken:
		return "email_verify"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Claims is the decoded token payload.
type Claims struct {
	UserID string              `json:"user_id"`
	Kind   Kind                `json:"token_type"`
	Verify models.VerifyStatus `json:"verify"`
	jwt.RegisteredClaims
}

// KindConfig is the key material and lifetime of one token kind.
type KindConfig struct {
	Secret []byte
	TTL    time.Duration
}

// TokenService signs and verifies tokens of every kind.
type TokenService struct {
	kinds map[Kind]KindConfig
	now   func() time.Time
}

type Option func(*TokenService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService requires a non-empty secret and a positive TTL for all
// four kinds.
func NewTokenService(kinds map[Kind]KindConfig, opts ...Option) (*TokenService, error) {
	for _, k := range []Kind{AccessToken, RefreshToken, ForgotPasswordToken, EmailVerifyToken} {
		kc, ok := kinds[k]
		if !ok || len(kc.Secret) == 0 {
			return nil, fmt.Errorf("%s token: empty secret", k)
		}
		if kc.TTL <= 0 {
			return nil, fmt.Errorf("%s token: ttl must be positive", k)
		}
	}

	s := &TokenService{kinds: kinds, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// NewTokenServiceFromConfig builds the service from server configuration.
func NewTokenServiceFromConfig(c *config.Config, opts ...Option) (*TokenService, error) {
	return NewTokenService(map[Kind]KindConfig{
		AccessToken:         {Secret: []byte(c.AccessTokenSecret), TTL: c.AccessTokenTTL},
		RefreshToken:        {Secret: []byte(c.RefreshTokenSecret), TTL: c.RefreshTokenTTL},
		EmailVerifyToken:    {Secret: []byte(c.EmailVerifyTokenSecret), TTL: c.EmailVerifyTokenTTL},
		ForgotPasswordToken: {Secret: []byte(c.ForgotPasswordTokenSecret), TTL: c.ForgotPasswordTokenTTL},
	}, opts...)
}

// Sign issues a token of the given kind for userID.
// Every token carries a random jti, so two tokens issued within the same
// second still differ.
func (s *TokenService) Sign(kind Kind, userID string, verify models.VerifyStatus) (string, error) {
	kc, ok := s.kinds[kind]
	if !ok {
		return "", ErrUnknownKind
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Kind:   kind,
		Verify: verify,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(kc.TTL)),
		},
	})

	return token.SignedString(kc.Secret)
}

// Verify checks signature, expiry and kind of token and returns its claims.
func (s *TokenService) Verify(kind Kind, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}
	kc, ok := s.kinds[kind]
	if !ok {
		return nil, ErrUnknownKind
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return kc.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrTokenSignatureInvalid
	default:
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if claims.Kind != kind {
		return nil, ErrTokenKindMismatch
	}
	if claims.UserID == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// TTL returns the configured lifetime of kind.
func (s *TokenService) TTL(kind Kind) time.Duration {
	return s.kinds[kind].TTL
}

// ParseBearer extracts the token from an Authorization header value.
// Anything other than "Bearer <token>" counts as no token.
func ParseBearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", ErrTokenMissing
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenMissing
	}
	return token, nil
}
