package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/monsters-of-interest/moi-api/internal/shared"
)

// DefaultTokenTTL is the fixed validity window of an identity token.
const DefaultTokenTTL = 24 * time.Hour

// Verification failures. Each is distinguishable with errors.Is.
var (
	ErrTokenExpired      = errors.New("auth: token expired")
	ErrTokenInvalid      = errors.New("auth: token failed verification")
	ErrTokenMalformed    = errors.New("auth: token malformed")
	ErrSigningKeyMissing = errors.New("auth: signing key unavailable")
)

// Claims is the signed identity payload.
type Claims struct {
	UserID      int64  `json:"userId"`
	Email       string `json:"email"`
	AccountTier string `json:"accountTier"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 identity tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenService constructs a TokenService. An empty secret is accepted so
// the fault surfaces per call as ErrSigningKeyMissing.
func NewTokenService(secret []byte, ttl time.Duration, issuer string) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: secret, ttl: ttl, issuer: issuer, now: time.Now}
}

// WithClock overrides the time source.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue signs a token for id that expires ttl after now, truncated to the
// second. Verify accepts it strictly before the returned expiry.
func (s *TokenService) Issue(id shared.Identity) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrSigningKeyMissing
	}
	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)
	claims := Claims{
		UserID:      id.UserID,
		Email:       id.Email,
		AccountTier: id.AccountTier,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry and returns the embedded identity.
func (s *TokenService) Verify(token string) (shared.Identity, error) {
	if len(s.secret) == 0 {
		return shared.Identity{}, ErrSigningKeyMissing
	}
	if strings.TrimSpace(token) == "" {
		return shared.Identity{}, ErrTokenMalformed
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return shared.Identity{}, mapJWTError(err)
	}
	if !parsed.Valid || claims.UserID <= 0 {
		return shared.Identity{}, ErrTokenInvalid
	}

	return shared.Identity{
		UserID:      claims.UserID,
		Email:       claims.Email,
		AccountTier: claims.AccountTier,
	}, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}
