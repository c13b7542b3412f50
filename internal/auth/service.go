package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/monsters-of-interest/moi-api/internal/shared"
)

// bcrypt ignores input past 72 bytes; longer passwords are refused.
const maxPasswordBytes = 72

// TokenIssuer signs identity tokens.
type TokenIssuer interface {
	Issue(id shared.Identity) (string, time.Time, error)
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=6"`
	DisplayName *string `json:"displayName" validate:"omitempty,max=100"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries the issued token and the authenticated user.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

// Service wraps registration and authentication rules.
type Service struct {
	repo     Repository
	hasher   PasswordHasher
	tokens   TokenIssuer
	validate *validator.Validate

	dummyOnce   sync.Once
	dummyDigest string
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher PasswordHasher, tokens TokenIssuer) *Service {
	return &Service{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		validate: validator.New(),
	}
}

// Register validates input, hashes the password and stores the account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, registerValidationError(err)
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, shared.Invalid(fmt.Sprintf("Password must be at most %d bytes long.", maxPasswordBytes))
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, NewUser{
		Email:        in.Email,
		PasswordHash: digest,
		DisplayName:  normalizeDisplayName(in.DisplayName),
	})
}

// Login checks credentials and issues a token. Unknown email and wrong
// password both yield shared.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, shared.Invalid("Email and password are required.")
	}

	user, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Burn the same bcrypt cost so response time does not reveal the account.
			_, _ = s.hasher.Verify(in.Password, s.dummy())
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("auth: verify user %d: %w", user.ID, err)
	}
	if !ok {
		return nil, shared.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(shared.Identity{
		UserID:      user.ID,
		Email:       user.Email,
		AccountTier: user.AccountTier,
	})
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		buf := make([]byte, 16)
		_, _ = rand.Read(buf)
		digest, err := s.hasher.Hash(hex.EncodeToString(buf))
		if err == nil {
			s.dummyDigest = digest
		}
	})
	return s.dummyDigest
}

func normalizeDisplayName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(norm.NFC.String(*name))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func registerValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return shared.Invalid("Invalid registration data.")
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return shared.Invalid("Email and password are required.")
		}
	}
	fe := fieldErrs[0]
	switch {
	case fe.Field() == "Password" && fe.Tag() == "min":
		return shared.Invalid(fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLength))
	case fe.Field() == "Email":
		return shared.Invalid("Email address is not valid.")
	case fe.Field() == "DisplayName":
		return shared.Invalid("Display name must be at most 100 characters.")
	default:
		return shared.Invalid("Invalid registration data.")
	}
}
