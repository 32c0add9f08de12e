package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Guest sessions are short-lived HS256 JWTs. There is no refresh flow and
// no server-side revocation: logout is a client-side discard.
const (
	// GuestTokenExpiry is how long a guest token is valid.
	GuestTokenExpiry = 1 * time.Hour

	DefaultIssuer   = "farefuse"
	DefaultAudience = "farefuse-api"
)

// Predefined JWT errors.
var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
)

// JWTClaims represents the claims in guest access tokens.
type JWTClaims struct {
	jwt.RegisteredClaims

	// Guest marks tokens issued without credential checks.
	Guest bool `json:"guest"`
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	expiry     time.Duration
	now        func() time.Time
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	// SigningKey is the secret key used to sign JWTs.
	SigningKey string

	// Issuer is the issuer claim. Default: DefaultIssuer.
	Issuer string

	// Audience is the audience claim. Default: DefaultAudience.
	Audience string

	// Expiry overrides GuestTokenExpiry.
	Expiry time.Duration

	// Now overrides the clock used when issuing tokens.
	Now func() time.Time
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}
	if cfg.Expiry == 0 {
		cfg.Expiry = GuestTokenExpiry
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &JWTService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		expiry:     cfg.Expiry,
		now:        cfg.Now,
	}
}

// GenerateGuestToken creates a token for subject.
func (s *JWTService) GenerateGuestToken(subject string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)

	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Guest: true,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateAccessToken validates a token and returns its claims.
func (s *JWTService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAccessTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccessToken, err.Error())
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}
