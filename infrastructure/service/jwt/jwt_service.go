package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fixora/accounts/application/port/outbound"
	"github.com/fixora/accounts/infrastructure/config"
)

var (
	ErrMissingSecret = errors.New("jwt: access and refresh secrets are required")
	ErrSharedSecret  = errors.New("jwt: access and refresh secrets must differ")
	ErrInvalidTTL    = errors.New("jwt: token TTLs must be positive")
)

// tokenClaims is the signed body of both token kinds: {"payload":{"id","role"},"iat","exp"}.
type tokenClaims struct {
	Payload outbound.IdentityClaim `json:"payload"`
	jwt.RegisteredClaims
}

type JWTService struct {
	accessSecret    []byte
	refreshSecret   []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	now             func() time.Time
}

type Option func(*JWTService)

// WithClock replaces the time source used for issuing and verifying tokens.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		s.now = now
	}
}

var _ outbound.TokenService = (*JWTService)(nil)

func NewJWTService(cfg *config.Config, opts ...Option) (*JWTService, error) {
	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.JWTSecret == cfg.JWTRefreshSecret {
		return nil, ErrSharedSecret
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, ErrInvalidTTL
	}

	service := &JWTService{
		accessSecret:    []byte(cfg.JWTSecret),
		refreshSecret:   []byte(cfg.JWTRefreshSecret),
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

func (s *JWTService) IssueAccessToken(claim outbound.IdentityClaim) (string, error) {
	token, err := s.sign(claim, s.accessSecret, s.accessTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

func (s *JWTService) IssueRefreshToken(claim outbound.IdentityClaim) (string, error) {
	token, err := s.sign(claim, s.refreshSecret, s.refreshTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return token, nil
}

func (s *JWTService) VerifyAccessToken(tokenString string) (outbound.IdentityClaim, bool) {
	return s.verify(tokenString, s.accessSecret)
}

func (s *JWTService) VerifyRefreshToken(tokenString string) (outbound.IdentityClaim, bool) {
	return s.verify(tokenString, s.refreshSecret)
}

func (s *JWTService) sign(claim outbound.IdentityClaim, secret []byte, ttl time.Duration) (string, error) {
	issuedAt := s.now()
	claims := tokenClaims{
		Payload: claim,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *JWTService) verify(tokenString string, secret []byte) (outbound.IdentityClaim, bool) {
	if tokenString == "" {
		return outbound.IdentityClaim{}, false
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return outbound.IdentityClaim{}, false
	}

	if claims.Payload.ID == "" {
		return outbound.IdentityClaim{}, false
	}

	return claims.Payload, true
}
