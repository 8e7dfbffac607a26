// Package vector implements per-user vector namespaces and the store
// adapter on Postgres with pgvector. Each user's chunks live in their own
// lazily created table; all search and upsert operations are scoped to one
// namespace.
package vector

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parchmentlabs/recall/internal/domain"
)

const (
	// SchemaName is the Postgres schema holding all tenant tables.
	SchemaName = "tenant"

	namespacePrefix = "kb_user_"

	// maxIndexedDimension is pgvector's HNSW limit; namespaces with larger
	// vectors are created without an ANN index and fall back to exact scan.
	maxIndexedDimension = 2000
)

// NamespaceFor derives the deterministic namespace name for a user. It keeps
// only lowercase alphanumerics from the user ID, which is collision-free for
// UUIDs and yields a valid SQL identifier.
func NamespaceFor(userID string) string {
	var b strings.Builder
	b.WriteString(namespacePrefix)
	for _, r := range strings.ToLower(userID) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Manager lazily provisions tenant namespaces with a fixed dimensionality.
type Manager struct {
	pool *pgxpool.Pool

	mu          sync.Mutex
	provisioned map[string]int
}

// NewManager creates a new Manager instance
func NewManager(pool *pgxpool.Pool) *Manager {
	return &Manager{
		pool:        pool,
		provisioned: make(map[string]int),
	}
}

// NamespaceFor returns the namespace name for a user without touching the
// store.
func (m *Manager) NamespaceFor(userID string) string {
	return NamespaceFor(userID)
}

// Ensure provisions the user's namespace with exactly dim dimensions and
// cosine distance, creating it if absent. It is idempotent and safe under
// concurrent first-uploads: creation runs under a transactional advisory
// lock keyed by the namespace, so two racing calls cannot create conflicting
// tables. An existing namespace has its dimensionality verified; a mismatch
// is a provisioning error, never a silent widening.
func (m *Manager) Ensure(ctx context.Context, userID string, dim int) (string, error) {
	ns := NamespaceFor(userID)
	if dim <= 0 {
		return "", domain.NewNamespaceProvisionError(ns, fmt.Errorf("invalid dimension %d", dim))
	}

	m.mu.Lock()
	if known, ok := m.provisioned[ns]; ok {
		m.mu.Unlock()
		if known != dim {
			return "", domain.NewNamespaceProvisionError(ns,
				fmt.Errorf("namespace has %d dimensions, provider produces %d", known, dim))
		}
		return ns, nil
	}
	m.mu.Unlock()

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return "", domain.NewNamespaceProvisionError(ns, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ns); err != nil {
		return "", domain.NewNamespaceProvisionError(ns, err)
	}

	// ns contains only [a-z0-9_] by construction, so interpolating it as an
	// identifier is safe.
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			id BIGSERIAL PRIMARY KEY,
			content TEXT NOT NULL,
			source TEXT NOT NULL,
			user_id TEXT NOT NULL,
			uploaded_at TIMESTAMPTZ NOT NULL,
			embedding vector(%d) NOT NULL
		)`, SchemaName, ns, dim)
	if _, err := tx.Exec(ctx, createTable); err != nil {
		return "", domain.NewNamespaceProvisionError(ns, err)
	}

	if dim <= maxIndexedDimension {
		createIndex := fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s.%s USING hnsw (embedding vector_cosine_ops)`,
			ns, SchemaName, ns)
		if _, err := tx.Exec(ctx, createIndex); err != nil {
			return "", domain.NewNamespaceProvisionError(ns, err)
		}
	}

	existingDim, err := embeddingDimension(ctx, tx, ns)
	if err != nil {
		return "", domain.NewNamespaceProvisionError(ns, err)
	}
	if existingDim != dim {
		return "", domain.NewNamespaceProvisionError(ns,
			fmt.Errorf("namespace has %d dimensions, provider produces %d", existingDim, dim))
	}

	if err := tx.Commit(ctx); err != nil {
		return "", domain.NewNamespaceProvisionError(ns, err)
	}

	m.mu.Lock()
	m.provisioned[ns] = dim
	m.mu.Unlock()

	return ns, nil
}

// embeddingDimension reads the declared dimension of a namespace's embedding
// column. For vector columns atttypmod carries the dimension directly.
func embeddingDimension(ctx context.Context, tx pgx.Tx, ns string) (int, error) {
	var dim int
	err := tx.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute
		 WHERE attrelid = ($1::text)::regclass AND attname = 'embedding'`,
		SchemaName+"."+ns,
	).Scan(&dim)
	if err != nil {
		return 0, fmt.Errorf("failed to read namespace dimension: %w", err)
	}
	return dim, nil
}
