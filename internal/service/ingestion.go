package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/parchmentlabs/recall/internal/chunker"
	"github.com/parchmentlabs/recall/internal/domain"
	"github.com/parchmentlabs/recall/internal/embedding"
	"github.com/parchmentlabs/recall/internal/parser"
	"github.com/parchmentlabs/recall/internal/telemetry"
	"github.com/parchmentlabs/recall/internal/vector"
)

// DocumentParser extracts plain text from an uploaded file.
type DocumentParser interface {
	Parse(path string, declaredType string) (string, error)
}

// NamespaceProvisioner guarantees a user's vector namespace exists before a
// write and reports its name.
type NamespaceProvisioner interface {
	NamespaceFor(userID string) string
	Ensure(ctx context.Context, userID string, dim int) (string, error)
}

// VectorWriter persists embedded chunks into a namespace.
type VectorWriter interface {
	Upsert(ctx context.Context, namespace string, points []vector.Point) error
}

// Archiver stores a copy of the raw upload in object storage. Archival is
// best effort; failures never fail an ingestion.
type Archiver interface {
	Archive(ctx context.Context, key string, body []byte, contentType string) error
}

// IngestInput describes an upload already spooled to a local temp file.
type IngestInput struct {
	Path         string
	Filename     string
	DeclaredType string
	Size         int64
}

type IngestResult struct {
	Document  *domain.Document
	Duplicate bool
}

// IngestionService runs the upload pipeline: validate, dedup, parse, chunk,
// embed, provision the namespace and write vectors, then record metadata.
type IngestionService struct {
	docRepo    DocumentRepository
	parser     DocumentParser
	embedder   embedding.Provider
	namespaces NamespaceProvisioner
	vectors    VectorWriter
	archiver   Archiver
	chunkCfg   chunker.Config
	uuidGen    UUIDGenerator
}

func NewIngestionService(
	docRepo DocumentRepository,
	docParser DocumentParser,
	embedder embedding.Provider,
	namespaces NamespaceProvisioner,
	vectors VectorWriter,
	chunkCfg chunker.Config,
) *IngestionService {
	return &IngestionService{
		docRepo:    docRepo,
		parser:     docParser,
		embedder:   embedder,
		namespaces: namespaces,
		vectors:    vectors,
		chunkCfg:   chunkCfg,
		uuidGen:    &DefaultUUIDGenerator{},
	}
}

// WithArchiver enables best-effort archival of raw uploads.
func (s *IngestionService) WithArchiver(archiver Archiver) *IngestionService {
	s.archiver = archiver
	return s
}

// WithUUIDGen replaces the ID generator (for testing).
func (s *IngestionService) WithUUIDGen(uuidGen UUIDGenerator) *IngestionService {
	s.uuidGen = uuidGen
	return s
}

// Ingest processes one upload. The temp file at input.Path is removed before
// Ingest returns, on every path.
func (s *IngestionService) Ingest(ctx context.Context, userID string, input IngestInput) (*IngestResult, error) {
	defer func() {
		if err := os.Remove(input.Path); err != nil && !os.IsNotExist(err) {
			log.Printf("ingest: failed to remove temp file %s: %v", input.Path, err)
		}
	}()

	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "ingest",
	})
	defer span.End()

	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	if input.Filename == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "filename is required")
	}
	if !parser.IsSupported(input.DeclaredType) {
		return nil, domain.NewInvalidFileTypeError(input.DeclaredType, parser.SupportedTypes())
	}

	raw, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to read upload", err)
	}

	hash := sha256.Sum256(raw)
	contentHash := hex.EncodeToString(hash[:])

	// A byte-identical re-upload by the same user is a success, not an
	// error; the existing record is returned untouched.
	existing, err := s.docRepo.GetByUserAndHash(ctx, userID, contentHash)
	if err == nil {
		return &IngestResult{Document: existing, Duplicate: true}, nil
	}
	if err != domain.ErrDocumentNotFound {
		return nil, err
	}

	text, err := s.parser.Parse(input.Path, input.DeclaredType)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewEmptyDocumentError(input.Filename)
	}

	chunks := chunker.Chunk(text, s.chunkCfg)
	if len(chunks) == 0 {
		return nil, domain.NewEmptyDocumentError(input.Filename)
	}

	vectors, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, domain.NewEmbeddingProviderError(
			fmt.Errorf("expected %d vectors, got %d", len(chunks), len(vectors)))
	}

	namespace, err := s.namespaces.Ensure(ctx, userID, s.embedder.Dimension())
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	uploadedAt := time.Now().UTC()
	points := make([]vector.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = vector.Point{
			Vector: vectors[i],
			Payload: vector.Payload{
				Text:       chunk,
				Source:     input.Filename,
				UserID:     userID,
				UploadedAt: uploadedAt,
			},
		}
	}

	// Writes run on a detached context: once embedding succeeded, an
	// aborted request must not tear down the batch mid-write.
	writeCtx := context.WithoutCancel(ctx)

	if err := s.vectors.Upsert(writeCtx, namespace, points); err != nil {
		span.SetError(err)
		return nil, err
	}

	doc := &domain.Document{
		ID:           s.uuidGen.NewString(),
		UserID:       userID,
		Filename:     input.Filename,
		OriginalSize: input.Size,
		ChunkCount:   len(chunks),
		ContentHash:  contentHash,
		UploadedAt:   uploadedAt,
	}

	// The vectors are already searchable at this point. A metadata write
	// failure is logged and reported, not surfaced to the uploader.
	if err := s.docRepo.Create(writeCtx, doc); err != nil {
		log.Printf("ingest: metadata write failed for user %s file %s: %v", userID, input.Filename, err)
		telemetry.CaptureError(ctx, err)
	}

	if s.archiver != nil {
		key := fmt.Sprintf("%s/%s/%s", userID, doc.ID, input.Filename)
		if err := s.archiver.Archive(writeCtx, key, raw, contentTypeFor(input.DeclaredType)); err != nil {
			log.Printf("ingest: archival failed for %s: %v", key, err)
		}
	}

	return &IngestResult{Document: doc}, nil
}

func contentTypeFor(declaredType string) string {
	switch parser.NormalizeType(declaredType) {
	case parser.FileTypePDF:
		return "application/pdf"
	case parser.FileTypeDocx:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/plain; charset=utf-8"
	}
}
