package vector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/parchmentlabs/recall/internal/domain"
)

// pgUndefinedTable is the SQLSTATE for "relation does not exist".
const pgUndefinedTable = "42P01"

// Payload is the structured metadata attached to a stored vector.
type Payload struct {
	Text       string
	Source     string
	UserID     string
	UploadedAt time.Time
}

// Point is the unit stored in a namespace: a vector plus its payload. Row
// identifiers are assigned by the store.
type Point struct {
	Vector  []float32
	Payload Payload
}

// SearchHit is one ranked search result.
type SearchHit struct {
	Payload Payload
	Score   float32
}

// Store reads and writes vector points scoped to a single namespace per
// call. A single Store is shared by all requests.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store instance
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Upsert writes all points into the namespace in one transaction: either
// every point is stored or none are. The write is detached from request
// cancellation so an aborted request cannot leave a batch half-written.
func (s *Store) Upsert(ctx context.Context, namespace string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	writeCtx := context.WithoutCancel(ctx)

	tx, err := s.pool.Begin(writeCtx)
	if err != nil {
		return domain.NewVectorStoreError("upsert", err)
	}
	defer tx.Rollback(writeCtx)

	insert := fmt.Sprintf(
		`INSERT INTO %s.%s (content, source, user_id, uploaded_at, embedding)
		 VALUES ($1, $2, $3, $4, $5)`, SchemaName, namespace)

	for _, p := range points {
		_, err := tx.Exec(writeCtx, insert,
			p.Payload.Text,
			p.Payload.Source,
			p.Payload.UserID,
			p.Payload.UploadedAt,
			pgvector.NewVector(p.Vector),
		)
		if err != nil {
			return domain.NewVectorStoreError("upsert", err)
		}
	}

	if err := tx.Commit(writeCtx); err != nil {
		return domain.NewVectorStoreError("upsert", err)
	}
	return nil
}

// Search returns up to limit hits ordered by descending cosine similarity.
// A namespace that was never provisioned is a normal "no results yet" state
// and returns an empty slice; genuine store failures are reported as
// VECTOR_STORE_ERROR.
func (s *Store) Search(ctx context.Context, namespace string, queryVector []float32, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 3
	}

	query := fmt.Sprintf(
		`SELECT content, source, user_id, uploaded_at, 1 - (embedding <=> $1) AS score
		 FROM %s.%s
		 ORDER BY embedding <=> $1
		 LIMIT $2`, SchemaName, namespace)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(queryVector), limit)
	if err != nil {
		if isUndefinedTable(err) {
			return []SearchHit{}, nil
		}
		return nil, domain.NewVectorStoreError("search", err)
	}
	defer rows.Close()

	hits := make([]SearchHit, 0, limit)
	for rows.Next() {
		var hit SearchHit
		if err := rows.Scan(
			&hit.Payload.Text,
			&hit.Payload.Source,
			&hit.Payload.UserID,
			&hit.Payload.UploadedAt,
			&hit.Score,
		); err != nil {
			return nil, domain.NewVectorStoreError("search", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return []SearchHit{}, nil
		}
		return nil, domain.NewVectorStoreError("search", err)
	}

	return hits, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}
