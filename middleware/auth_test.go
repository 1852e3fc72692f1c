package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbor-payment-api/models"
	"arbor-payment-api/services/auth"
)

type fakeValidator struct {
	client    *models.APIClient
	err       error
	lastToken string
}

func (f *fakeValidator) ValidateToken(token string) (*models.APIClient, error) {
	f.lastToken = token
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

func protectedHandler(t *testing.T, sawClient **models.APIClient) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*sawClient = GetClientFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddlewareAllowsValidToken(t *testing.T) {
	validator := &fakeValidator{client: &models.APIClient{ClientID: "client-1", Name: "Test", IsActive: true}}
	var sawClient *models.APIClient
	handler := AuthMiddleware(validator)(protectedHandler(t, &sawClient))

	req := httptest.NewRequest("GET", "/charges/t1", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "good-token", validator.lastToken)
	require.NotNil(t, sawClient)
	assert.Equal(t, "client-1", sawClient.ClientID)
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	var sawClient *models.APIClient
	handler := AuthMiddleware(&fakeValidator{})(protectedHandler(t, &sawClient))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/charges/t1", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Nil(t, sawClient)
}

func TestAuthMiddlewareBadHeaderFormat(t *testing.T) {
	var sawClient *models.APIClient
	handler := AuthMiddleware(&fakeValidator{})(protectedHandler(t, &sawClient))

	req := httptest.NewRequest("GET", "/charges/t1", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Nil(t, sawClient)
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	validator := &fakeValidator{err: auth.ErrTokenExpired}
	var sawClient *models.APIClient
	handler := AuthMiddleware(validator)(protectedHandler(t, &sawClient))

	req := httptest.NewRequest("GET", "/charges/t1", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Token expired")
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	validator := &fakeValidator{err: auth.ErrInvalidToken}
	var sawClient *models.APIClient
	handler := AuthMiddleware(validator)(protectedHandler(t, &sawClient))

	req := httptest.NewRequest("GET", "/charges/t1", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid token")
}

func TestGetClientFromContextWithoutClient(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	assert.Nil(t, GetClientFromContext(req.Context()))
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}
