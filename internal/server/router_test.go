package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parchmentlabs/recall/internal/api/handlers"
	"github.com/parchmentlabs/recall/internal/domain"
	"github.com/parchmentlabs/recall/internal/service"
)

type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(ctx context.Context, token string) (*domain.Principal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Principal), args.Error(1)
}

type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) Ingest(ctx context.Context, userID string, input service.IngestInput) (*service.IngestResult, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) List(ctx context.Context, userID, cursor string, limit int) (*service.DocumentPageResult, error) {
	args := m.Called(ctx, userID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentPageResult), args.Error(1)
}

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Query(ctx context.Context, userID, question string) (*service.QueryResult, error) {
	args := m.Called(ctx, userID, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QueryResult), args.Error(1)
}

func newTestRouter(t *testing.T, validator *MockTokenValidator, ingestion *MockIngestionService, documents *MockDocumentService, queries *MockQueryService) http.Handler {
	t.Helper()
	return NewRouter(RouterConfig{
		TokenValidator:  validator,
		DocumentHandler: handlers.NewDocumentHandler(ingestion, documents, t.TempDir()),
		QueryHandler:    handlers.NewQueryHandler(queries),
	})
}

func TestRouter(t *testing.T) {
	principal := &domain.Principal{UserID: "user-1", Email: "alice@example.com", Active: true}

	t.Run("health is public", func(t *testing.T) {
		router := newTestRouter(t, new(MockTokenValidator), new(MockIngestionService), new(MockDocumentService), new(MockQueryService))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "ok")
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("v1 routes require auth", func(t *testing.T) {
		router := newTestRouter(t, new(MockTokenValidator), new(MockIngestionService), new(MockDocumentService), new(MockQueryService))

		for _, route := range []struct {
			method, path string
		}{
			{http.MethodPost, "/v1/documents"},
			{http.MethodGet, "/v1/documents"},
			{http.MethodPost, "/v1/query"},
		} {
			req := httptest.NewRequest(route.method, route.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
		}
	})

	t.Run("query round trip", func(t *testing.T) {
		validator := new(MockTokenValidator)
		queries := new(MockQueryService)
		router := newTestRouter(t, validator, new(MockIngestionService), new(MockDocumentService), queries)

		validator.On("ValidateToken", mock.Anything, "rcl_good").Return(principal, nil)
		queries.On("Query", mock.Anything, "user-1", "what changed?").Return(&service.QueryResult{
			Answer:  "Nothing.",
			Sources: []service.SourceChunk{},
		}, nil)

		body, _ := json.Marshal(handlers.QueryRequest{Question: "what changed?"})
		req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer rcl_good")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Nothing.")
	})

	t.Run("document listing round trip", func(t *testing.T) {
		validator := new(MockTokenValidator)
		documents := new(MockDocumentService)
		router := newTestRouter(t, validator, new(MockIngestionService), documents, new(MockQueryService))

		validator.On("ValidateToken", mock.Anything, "rcl_good").Return(principal, nil)
		documents.On("List", mock.Anything, "user-1", "", 0).Return(&service.DocumentPageResult{
			Items: []*domain.Document{
				{ID: "doc-1", Filename: "a.txt", UploadedAt: time.Now().UTC()},
			},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
		req.Header.Set("Authorization", "Bearer rcl_good")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data handlers.ListDocumentsResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data.Documents, 1)
		assert.Equal(t, "a.txt", resp.Data.Documents[0].Filename)
	})

	t.Run("oversized body is rejected", func(t *testing.T) {
		validator := new(MockTokenValidator)
		router := NewRouter(RouterConfig{
			TokenValidator:  validator,
			DocumentHandler: handlers.NewDocumentHandler(new(MockIngestionService), new(MockDocumentService), t.TempDir()),
			QueryHandler:    handlers.NewQueryHandler(new(MockQueryService)),
			MaxBodyBytes:    16,
		})

		body := bytes.NewReader(bytes.Repeat([]byte("x"), 64))
		req := httptest.NewRequest(http.MethodPost, "/v1/query", body)
		req.Header.Set("Authorization", "Bearer rcl_good")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}
