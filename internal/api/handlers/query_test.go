package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parchmentlabs/recall/internal/domain"
	"github.com/parchmentlabs/recall/internal/service"
)

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

func TestQueryHandler_Query(t *testing.T) {
	t.Run("returns answer with sources", func(t *testing.T) {
		svc := new(MockQueryService)
		handler := NewQueryHandler(svc)

		svc.On("Query", mock.Anything, "user-1", "what is the deadline?").Return(&service.QueryResult{
			Answer: "March 3rd.",
			Sources: []service.SourceChunk{
				{Text: "The deadline is March 3rd.", Source: "plan.txt", Score: 0.92},
			},
		}, nil)

		body, _ := json.Marshal(QueryRequest{Question: "what is the deadline?"})
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(body)), "user-1")
		rec := httptest.NewRecorder()

		handler.Query(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data service.QueryResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "March 3rd.", resp.Data.Answer)
		require.Len(t, resp.Data.Sources, 1)
		assert.Equal(t, "plan.txt", resp.Data.Sources[0].Source)
	})

	t.Run("invalid body", func(t *testing.T) {
		handler := NewQueryHandler(new(MockQueryService))

		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewBufferString("{not json")), "user-1")
		rec := httptest.NewRecorder()

		handler.Query(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty question maps to 400", func(t *testing.T) {
		svc := new(MockQueryService)
		handler := NewQueryHandler(svc)

		svc.On("Query", mock.Anything, "user-1", "").Return(nil, domain.ErrEmptyQuery)

		body, _ := json.Marshal(QueryRequest{Question: ""})
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(body)), "user-1")
		rec := httptest.NewRecorder()

		handler.Query(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("provider outage maps to 503", func(t *testing.T) {
		svc := new(MockQueryService)
		handler := NewQueryHandler(svc)

		svc.On("Query", mock.Anything, "user-1", "q").
			Return(nil, domain.NewServiceUnavailableError("embeddings", context.DeadlineExceeded))

		body, _ := json.Marshal(QueryRequest{Question: "q"})
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(body)), "user-1")
		rec := httptest.NewRecorder()

		handler.Query(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("no principal", func(t *testing.T) {
		handler := NewQueryHandler(new(MockQueryService))

		req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewBufferString(`{"question":"q"}`))
		rec := httptest.NewRecorder()

		handler.Query(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
