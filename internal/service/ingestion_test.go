package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parchmentlabs/recall/internal/chunker"
	"github.com/parchmentlabs/recall/internal/domain"
	"github.com/parchmentlabs/recall/internal/vector"
)

func writeUpload(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func hashOf(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

type ingestFixture struct {
	docs       *MockDocumentRepository
	parser     *MockParser
	embedder   *MockEmbedder
	namespaces *MockNamespaces
	vectors    *MockVectorStore
	svc        *IngestionService
}

func newIngestFixture() *ingestFixture {
	f := &ingestFixture{
		docs:       new(MockDocumentRepository),
		parser:     new(MockParser),
		embedder:   new(MockEmbedder),
		namespaces: new(MockNamespaces),
		vectors:    new(MockVectorStore),
	}
	f.svc = NewIngestionService(f.docs, f.parser, f.embedder, f.namespaces, f.vectors, chunker.DefaultConfig()).
		WithUUIDGen(NewMockUUIDGenerator("doc-1"))
	return f
}

func TestIngestionService_Ingest(t *testing.T) {
	const content = "The quick brown fox jumps over the lazy dog."

	t.Run("full pipeline", func(t *testing.T) {
		f := newIngestFixture()
		path := writeUpload(t, content)

		f.docs.On("GetByUserAndHash", mock.Anything, "user-1", hashOf(content)).
			Return(nil, domain.ErrDocumentNotFound)
		f.parser.On("Parse", path, "txt").Return(content, nil)
		f.embedder.On("EmbedBatch", mock.Anything, []string{content}).
			Return([][]float32{{0.1, 0.2}}, nil)
		f.embedder.On("Dimension").Return(2)
		f.namespaces.On("Ensure", mock.Anything, "user-1", 2).Return("kb_user_1", nil)
		f.vectors.On("Upsert", mock.Anything, "kb_user_1", mock.MatchedBy(func(points []vector.Point) bool {
			return len(points) == 1 &&
				points[0].Payload.Text == content &&
				points[0].Payload.Source == "notes.txt" &&
				points[0].Payload.UserID == "user-1"
		})).Return(nil)
		f.docs.On("Create", mock.Anything, mock.MatchedBy(func(doc *domain.Document) bool {
			return doc.ID == "doc-1" &&
				doc.UserID == "user-1" &&
				doc.Filename == "notes.txt" &&
				doc.ChunkCount == 1 &&
				doc.ContentHash == hashOf(content)
		})).Return(nil)

		result, err := f.svc.Ingest(context.Background(), "user-1", IngestInput{
			Path: path, Filename: "notes.txt", DeclaredType: "txt", Size: int64(len(content)),
		})
		require.NoError(t, err)
		assert.False(t, result.Duplicate)
		assert.Equal(t, "doc-1", result.Document.ID)

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "temp file should be removed")

		f.docs.AssertExpectations(t)
		f.vectors.AssertExpectations(t)
	})

	t.Run("duplicate upload short-circuits", func(t *testing.T) {
		f := newIngestFixture()
		path := writeUpload(t, content)

		existing := &domain.Document{
			ID: "doc-old", UserID: "user-1", Filename: "notes.txt",
			ChunkCount: 4, ContentHash: hashOf(content), UploadedAt: time.Now().UTC(),
		}
		f.docs.On("GetByUserAndHash", mock.Anything, "user-1", hashOf(content)).
			Return(existing, nil)

		result, err := f.svc.Ingest(context.Background(), "user-1", IngestInput{
			Path: path, Filename: "notes.txt", DeclaredType: "txt",
		})
		require.NoError(t, err)
		assert.True(t, result.Duplicate)
		assert.Equal(t, "doc-old", result.Document.ID)
		assert.Equal(t, 4, result.Document.ChunkCount)

		f.parser.AssertNotCalled(t, "Parse", mock.Anything, mock.Anything)
		f.embedder.AssertNotCalled(t, "EmbedBatch", mock.Anything, mock.Anything)
	})

	t.Run("unsupported file type", func(t *testing.T) {
		f := newIngestFixture()
		path := writeUpload(t, content)

		_, err := f.svc.Ingest(context.Background(), "user-1", IngestInput{
			Path: path, Filename: "malware.exe", DeclaredType: "exe",
		})
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeInvalidFileType, domainErr.Code)

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "temp file removed even on rejection")
	})

	t.Run("empty document", func(t *testing.T) {
		f := newIngestFixture()
		path := writeUpload(t, "   \n\t  ")

		f.docs.On("GetByUserAndHash", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.ErrDocumentNotFound)
		f.parser.On("Parse", path, "txt").Return("   \n\t  ", nil)

		_, err := f.svc.Ingest(context.Background(), "user-1", IngestInput{
			Path: path, Filename: "blank.txt", DeclaredType: "txt",
		})
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeEmptyDocument, domainErr.Code)
	})

	t.Run("parse failure propagates", func(t *testing.T) {
		f := newIngestFixture()
		path := writeUpload(t, "%PDF-broken")

		parseErr := domain.NewParseFailureError("broken.pdf", errors.New("bad xref"))
		f.docs.On("GetByUserAndHash", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.ErrDocumentNotFound)
		f.parser.On("Parse", path, "pdf").Return("", parseErr)

		_, err := f.svc.Ingest(context.Background(), "user-1", IngestInput{
			Path: path, Filename: "broken.pdf", DeclaredType: "pdf",
		})
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeParseFailure, domainErr.Code)
	})

	t.Run("embedding failure aborts before any write", func(t *testing.T) {
		f := newIngestFixture()
		path := writeUpload(t, content)

		f.docs.On("GetByUserAndHash", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.ErrDocumentNotFound)
		f.parser.On("Parse", path, "txt").Return(content, nil)
		f.embedder.On("EmbedBatch", mock.Anything, mock.Anything).
			Return(nil, domain.NewEmbeddingProviderError(errors.New("backend down")))

		_, err := f.svc.Ingest(context.Background(), "user-1", IngestInput{
			Path: path, Filename: "notes.txt", DeclaredType: "txt",
		})
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeEmbeddingProvider, domainErr.Code)

		f.vectors.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
		f.docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("metadata write failure is not surfaced", func(t *testing.T) {
		f := newIngestFixture()
		path := writeUpload(t, content)

		f.docs.On("GetByUserAndHash", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.ErrDocumentNotFound)
		f.parser.On("Parse", path, "txt").Return(content, nil)
		f.embedder.On("EmbedBatch", mock.Anything, mock.Anything).
			Return([][]float32{{0.1, 0.2}}, nil)
		f.embedder.On("Dimension").Return(2)
		f.namespaces.On("Ensure", mock.Anything, "user-1", 2).Return("kb_user_1", nil)
		f.vectors.On("Upsert", mock.Anything, "kb_user_1", mock.Anything).Return(nil)
		f.docs.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

		result, err := f.svc.Ingest(context.Background(), "user-1", IngestInput{
			Path: path, Filename: "notes.txt", DeclaredType: "txt",
		})
		require.NoError(t, err)
		assert.Equal(t, "doc-1", result.Document.ID)
	})

	t.Run("archiver failure is not surfaced", func(t *testing.T) {
		f := newIngestFixture()
		archiver := new(MockArchiver)
		f.svc.WithArchiver(archiver)
		path := writeUpload(t, content)

		f.docs.On("GetByUserAndHash", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.ErrDocumentNotFound)
		f.parser.On("Parse", path, "txt").Return(content, nil)
		f.embedder.On("EmbedBatch", mock.Anything, mock.Anything).
			Return([][]float32{{0.1, 0.2}}, nil)
		f.embedder.On("Dimension").Return(2)
		f.namespaces.On("Ensure", mock.Anything, "user-1", 2).Return("kb_user_1", nil)
		f.vectors.On("Upsert", mock.Anything, "kb_user_1", mock.Anything).Return(nil)
		f.docs.On("Create", mock.Anything, mock.Anything).Return(nil)
		archiver.On("Archive", mock.Anything, "user-1/doc-1/notes.txt", []byte(content), "text/plain; charset=utf-8").
			Return(errors.New("bucket gone"))

		result, err := f.svc.Ingest(context.Background(), "user-1", IngestInput{
			Path: path, Filename: "notes.txt", DeclaredType: "txt",
		})
		require.NoError(t, err)
		assert.False(t, result.Duplicate)
		archiver.AssertExpectations(t)
	})

	t.Run("missing user ID", func(t *testing.T) {
		f := newIngestFixture()
		path := writeUpload(t, content)

		_, err := f.svc.Ingest(context.Background(), "", IngestInput{
			Path: path, Filename: "notes.txt", DeclaredType: "txt",
		})
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	})
}
