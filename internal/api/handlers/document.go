package handlers

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parchmentlabs/recall/internal/api"
	"github.com/parchmentlabs/recall/internal/api/middleware"
	"github.com/parchmentlabs/recall/internal/domain"
	"github.com/parchmentlabs/recall/internal/service"
)

type IngestionService interface {
	Ingest(ctx context.Context, userID string, input service.IngestInput) (*service.IngestResult, error)
}

type DocumentService interface {
	List(ctx context.Context, userID, cursor string, limit int) (*service.DocumentPageResult, error)
}

type DocumentHandler struct {
	ingestion IngestionService
	documents DocumentService
	uploadDir string
}

func NewDocumentHandler(ingestion IngestionService, documents DocumentService, uploadDir string) *DocumentHandler {
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	return &DocumentHandler{
		ingestion: ingestion,
		documents: documents,
		uploadDir: uploadDir,
	}
}

type DocumentResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalSize int64  `json:"original_size"`
	ChunkCount   int    `json:"chunk_count"`
	UploadedAt   string `json:"uploaded_at"`
}

type IngestResponse struct {
	Document  *DocumentResponse `json:"document"`
	Duplicate bool              `json:"duplicate"`
}

type ListDocumentsResponse struct {
	Documents  []*DocumentResponse `json:"documents"`
	NextCursor string              `json:"next_cursor,omitempty"`
	HasMore    bool                `json:"has_more"`
}

func documentToResponse(doc *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:           doc.ID,
		Filename:     doc.Filename,
		OriginalSize: doc.OriginalSize,
		ChunkCount:   doc.ChunkCount,
		UploadedAt:   doc.UploadedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// Upload accepts a multipart upload, spools it to a temp file and runs the
// ingestion pipeline. The file part must be named "file"; the document type
// is taken from the filename extension.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." {
		api.Error(w, http.StatusBadRequest, "missing filename")
		return
	}

	tmp, err := os.CreateTemp(h.uploadDir, "upload-*")
	if err != nil {
		api.HandleError(w, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to spool upload", err))
		return
	}

	size, err := io.Copy(tmp, file)
	closeErr := tmp.Close()
	if err != nil || closeErr != nil {
		os.Remove(tmp.Name())
		api.Error(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result, err := h.ingestion.Ingest(r.Context(), userID, service.IngestInput{
		Path:         tmp.Name(),
		Filename:     filename,
		DeclaredType: strings.TrimPrefix(filepath.Ext(filename), "."),
		Size:         size,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	api.Success(w, status, IngestResponse{
		Document:  documentToResponse(result.Document),
		Duplicate: result.Duplicate,
	})
}

// List returns the caller's documents, newest first, with cursor pagination.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.documents.List(r.Context(), userID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	docs := make([]*DocumentResponse, len(page.Items))
	for i, doc := range page.Items {
		docs[i] = documentToResponse(doc)
	}

	api.Success(w, http.StatusOK, ListDocumentsResponse{
		Documents:  docs,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}
