package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parchmentlabs/recall/internal/domain"
)

const tokenPrefix = "rcl_"

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

type TokenRepository interface {
	Create(ctx context.Context, token *domain.AccessToken) error
	GetByHash(ctx context.Context, hash string) (*domain.AccessToken, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.AccessToken, error)
	Revoke(ctx context.Context, id string) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

var _ UUIDGenerator = (*DefaultUUIDGenerator)(nil)

// AuthService manages user accounts and their bearer tokens. Tokens are
// opaque values of the form rcl_<64 hex chars>; only their SHA-256 hash is
// stored.
type AuthService struct {
	userRepo  UserRepository
	tokenRepo TokenRepository
	uuidGen   UUIDGenerator
}

func NewAuthService(userRepo UserRepository, tokenRepo TokenRepository) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewAuthServiceWithUUIDGen creates an AuthService with a custom UUID
// generator (for testing).
func NewAuthServiceWithUUIDGen(userRepo UserRepository, tokenRepo TokenRepository, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		uuidGen:   uuidGen,
	}
}

func (s *AuthService) CreateUser(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "email is required")
	}

	user := &domain.User{
		ID:        s.uuidGen.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	if err := domain.ValidateUser(user); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	return s.userRepo.GetByID(ctx, id)
}

func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.List(ctx)
}

func (s *AuthService) SetUserActive(ctx context.Context, id string, active bool) error {
	if id == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	return s.userRepo.SetActive(ctx, id, active)
}

// IssueToken creates a new bearer token for the user and returns the raw
// token value. The raw value is shown once and cannot be recovered.
func (s *AuthService) IssueToken(ctx context.Context, userID, name string) (string, error) {
	if userID == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	if name == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "token name is required")
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return "", err
	}

	raw, err := generateToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate token", err)
	}

	token := &domain.AccessToken{
		ID:        s.uuidGen.NewString(),
		UserID:    userID,
		Name:      name,
		TokenHash: hashToken(raw),
		CreatedAt: time.Now().UTC(),
	}

	if err := domain.ValidateAccessToken(token); err != nil {
		return "", err
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return "", err
	}

	return raw, nil
}

// ValidateToken resolves a raw bearer token to the principal it belongs to.
// Malformed, unknown and revoked tokens all map to ErrInvalidToken so a
// caller cannot distinguish them.
func (s *AuthService) ValidateToken(ctx context.Context, raw string) (*domain.Principal, error) {
	if !IsValidTokenFormat(raw) {
		return nil, domain.ErrInvalidToken
	}

	token, err := s.tokenRepo.GetByHash(ctx, hashToken(raw))
	if err != nil {
		if err == domain.ErrTokenNotFound {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}

	if token.Revoked() {
		return nil, domain.ErrTokenRevoked
	}

	user, err := s.userRepo.GetByID(ctx, token.UserID)
	if err != nil {
		if err == domain.ErrUserNotFound {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}

	if !user.Active {
		return nil, domain.ErrInactiveUser
	}

	return &domain.Principal{
		UserID: user.ID,
		Email:  user.Email,
		Active: user.Active,
	}, nil
}

func (s *AuthService) RevokeToken(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "token ID is required")
	}
	return s.tokenRepo.Revoke(ctx, tokenID)
}

func (s *AuthService) ListTokens(ctx context.Context, userID string) ([]*domain.AccessToken, error) {
	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	return s.tokenRepo.ListByUser(ctx, userID)
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return tokenPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func IsValidTokenFormat(token string) bool {
	if !strings.HasPrefix(token, tokenPrefix) {
		return false
	}
	hexPart := token[len(tokenPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
