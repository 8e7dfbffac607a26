package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parchmentlabs/recall/internal/domain"
	"github.com/parchmentlabs/recall/internal/pagination"
	"github.com/parchmentlabs/recall/internal/service"
)

// DocumentRepository persists document metadata, the relational side of an
// ingestion.
type DocumentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO documents (id, user_id, filename, original_size, chunk_count, content_hash, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID, doc.UserID, doc.Filename, doc.OriginalSize, doc.ChunkCount, doc.ContentHash, doc.UploadedAt,
	)
	return err
}

// GetByUserAndHash looks up a document by owner and content hash; used for
// duplicate-upload detection.
func (r *DocumentRepository) GetByUserAndHash(ctx context.Context, userID, contentHash string) (*domain.Document, error) {
	var doc domain.Document
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, filename, original_size, chunk_count, content_hash, uploaded_at
		 FROM documents WHERE user_id = $1 AND content_hash = $2`,
		userID, contentHash,
	).Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.OriginalSize, &doc.ChunkCount, &doc.ContentHash, &doc.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DocumentRepository) ListByUserWithCursor(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.pool.Query(ctx,
			`SELECT id, user_id, filename, original_size, chunk_count, content_hash, uploaded_at
			 FROM documents
			 WHERE user_id = $1 AND (uploaded_at, id) < ($2, $3)
			 ORDER BY uploaded_at DESC, id DESC
			 LIMIT $4`,
			userID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT id, user_id, filename, original_size, chunk_count, content_hash, uploaded_at
			 FROM documents
			 WHERE user_id = $1
			 ORDER BY uploaded_at DESC, id DESC
			 LIMIT $2`,
			userID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.OriginalSize, &doc.ChunkCount, &doc.ContentHash, &doc.UploadedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}

	result := &service.DocumentPageResult{
		Items:   docs,
		HasMore: hasMore,
	}
	if hasMore && len(docs) > 0 {
		last := docs[len(docs)-1]
		result.NextCursor = pagination.EncodeCursor(last.ID, last.UploadedAt)
	}

	return result, nil
}
