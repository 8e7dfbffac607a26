package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/parchmentlabs/recall/internal/domain"
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

func TestBearerAuth(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(GetUserID(r.Context())))
	})

	t.Run("valid token passes principal through", func(t *testing.T) {
		validator := new(MockTokenValidator)
		validator.On("ValidateToken", mock.Anything, "rcl_good").Return(&domain.Principal{
			UserID: "user-1", Email: "alice@example.com", Active: true,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
		req.Header.Set("Authorization", "Bearer rcl_good")
		rec := httptest.NewRecorder()

		BearerAuth(validator)(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", rec.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		validator := new(MockTokenValidator)

		req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
		rec := httptest.NewRecorder()

		BearerAuth(validator)(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		validator.AssertNotCalled(t, "ValidateToken", mock.Anything, mock.Anything)
	})

	t.Run("non-bearer scheme", func(t *testing.T) {
		validator := new(MockTokenValidator)

		req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()

		BearerAuth(validator)(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		validator := new(MockTokenValidator)
		validator.On("ValidateToken", mock.Anything, "rcl_bad").Return(nil, domain.ErrInvalidToken)

		req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
		req.Header.Set("Authorization", "Bearer rcl_bad")
		rec := httptest.NewRecorder()

		BearerAuth(validator)(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("inactive user gets 403", func(t *testing.T) {
		validator := new(MockTokenValidator)
		validator.On("ValidateToken", mock.Anything, "rcl_inactive").Return(nil, domain.ErrInactiveUser)

		req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
		req.Header.Set("Authorization", "Bearer rcl_inactive")
		rec := httptest.NewRecorder()

		BearerAuth(validator)(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestGetUserID(t *testing.T) {
	assert.Empty(t, GetUserID(context.Background()))

	ctx := context.WithValue(context.Background(), PrincipalKey, &domain.Principal{UserID: "user-1"})
	assert.Equal(t, "user-1", GetUserID(ctx))
}
