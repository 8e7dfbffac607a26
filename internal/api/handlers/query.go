package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/parchmentlabs/recall/internal/api"
	"github.com/parchmentlabs/recall/internal/api/middleware"
	"github.com/parchmentlabs/recall/internal/service"
)

type QueryService interface {
	Query(ctx context.Context, userID, question string) (*service.QueryResult, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Question string `json:"question"`
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Query(r.Context(), userID, req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}
