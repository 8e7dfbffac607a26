package service

import (
	"context"

	"github.com/parchmentlabs/recall/internal/domain"
	"github.com/parchmentlabs/recall/internal/pagination"
	"github.com/parchmentlabs/recall/internal/telemetry"
)

// DocumentRepository defines the repository interface for document metadata
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByUserAndHash(ctx context.Context, userID, contentHash string) (*domain.Document, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	ListByUserWithCursor(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
}

type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// DocumentService answers metadata questions about a user's library.
type DocumentService struct {
	docRepo DocumentRepository
}

func NewDocumentService(docRepo DocumentRepository) *DocumentService {
	return &DocumentService{docRepo: docRepo}
}

func (s *DocumentService) List(ctx context.Context, userID, cursorStr string, limit int) (*DocumentPageResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.List", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "list",
	})
	defer span.End()

	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	cursor, err := pagination.DecodeCursor(cursorStr)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}

	return s.docRepo.ListByUserWithCursor(ctx, userID, cursor, limit)
}

func (s *DocumentService) Count(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	return s.docRepo.CountByUser(ctx, userID)
}
