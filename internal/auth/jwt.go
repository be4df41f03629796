// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/templates/rbac-backend/internal/config"
	"github.com/carterperez-dev/templates/rbac-backend/internal/core"
	"github.com/carterperez-dev/templates/rbac-backend/internal/middleware"
)

// TokenManager signs and checks HS256 bearer tokens with one shared secret.
// It is immutable after construction.
type TokenManager struct {
	key        jwk.Key
	issuer     string
	defaultTTL time.Duration
	leeway     time.Duration
	now        func() time.Time
}

type Token struct {
	AccessToken string
	ExpiresAt   time.Time
	TTL         time.Duration
}

type Claims struct {
	Subject   string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func NewTokenManager(cfg config.JWTConfig) (*TokenManager, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token manager: empty secret")
	}

	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}

	if setErr := key.Set(jwk.AlgorithmKey, jwa.HS256()); setErr != nil {
		return nil, fmt.Errorf("set algorithm: %w", setErr)
	}

	return &TokenManager{
		key:        key,
		issuer:     cfg.Issuer,
		defaultTTL: cfg.AccessTokenExpire,
		leeway:     cfg.Leeway,
		now:        time.Now,
	}, nil
}

// Issue signs a token for subject. A non-positive ttl selects the default.
func (m *TokenManager) Issue(subject string, ttl time.Duration) (*Token, error) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	now := m.now()
	expiresAt := now.Add(ttl)

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.issuer).
		Subject(subject).
		IssuedAt(now).
		NotBefore(now).
		Expiration(expiresAt).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.key))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Token{
		AccessToken: string(signed),
		ExpiresAt:   expiresAt.Truncate(time.Second),
		TTL:         ttl,
	}, nil
}

// Validate checks signature, issuer and time claims. An expired token
// yields core.ErrTokenExpired; every other failure core.ErrTokenInvalid.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}

	err = jwt.Validate(token,
		jwt.WithClock(jwt.ClockFunc(m.now)),
		jwt.WithAcceptableSkew(m.leeway),
		jwt.WithIssuer(m.issuer),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
	)
	if err != nil {
		if errors.Is(err, jwt.TokenExpiredError()) {
			return nil, fmt.Errorf("validate token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("validate token: %w", core.ErrTokenInvalid)
	}

	return claimsOf(token), nil
}

// ValidateIgnoringExpiry checks signature and issuer only. It backs token
// refresh, where an expired but authentic token proves prior login.
func (m *TokenManager) ValidateIgnoringExpiry(tokenString string) (*Claims, error) {
	token, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}

	return claimsOf(token), nil
}

func (m *TokenManager) VerifyAccessToken(
	_ context.Context,
	tokenString string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := m.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	return &middleware.AccessTokenClaims{
		Subject:   claims.Subject,
		TokenID:   claims.TokenID,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

func (m *TokenManager) DefaultTTL() time.Duration {
	return m.defaultTTL
}

// parse verifies the signature and the claims every mode requires: issuer
// and a non-empty subject.
func (m *TokenManager) parse(tokenString string) (jwt.Token, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), m.key),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", core.ErrTokenInvalid)
	}

	if iss, _ := token.Issuer(); iss != m.issuer {
		return nil, fmt.Errorf("parse token: issuer mismatch: %w", core.ErrTokenInvalid)
	}

	if sub, ok := token.Subject(); !ok || sub == "" {
		return nil, fmt.Errorf("parse token: missing subject: %w", core.ErrTokenInvalid)
	}

	return token, nil
}

func claimsOf(token jwt.Token) *Claims {
	c := &Claims{}
	c.Subject, _ = token.Subject()
	c.TokenID, _ = token.JwtID()
	c.IssuedAt, _ = token.IssuedAt()
	c.ExpiresAt, _ = token.Expiration()
	return c
}

var _ middleware.TokenVerifier = (*TokenManager)(nil)
