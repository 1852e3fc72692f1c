package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbor-payment-api/models"
	"arbor-payment-api/services/auth"
)

type fakeIssuer struct {
	response   *models.AuthResponse
	authErr    error
	refreshErr error

	lastClientID string
	lastSecret   string
	lastRefresh  string
}

func (f *fakeIssuer) Authenticate(clientID, clientSecret string) (*models.AuthResponse, error) {
	f.lastClientID, f.lastSecret = clientID, clientSecret
	if f.authErr != nil {
		return nil, f.authErr
	}
	return f.response, nil
}

func (f *fakeIssuer) RefreshToken(refreshToken string) (*models.AuthResponse, error) {
	f.lastRefresh = refreshToken
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.response, nil
}

func authResponseFixture() *models.AuthResponse {
	return &models.AuthResponse{
		Token:        "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(15 * time.Minute),
		Client:       models.APIClient{ClientID: "client-1", Name: "Test Client", IsActive: true},
	}
}

func TestTokenSuccess(t *testing.T) {
	issuer := &fakeIssuer{response: authResponseFixture()}
	h := NewAuthHandler(issuer)

	req := jsonRequest(t, "POST", "/auth/token", models.AuthRequest{
		ClientID:     "client-1",
		ClientSecret: "s3cret",
	})
	rr := httptest.NewRecorder()
	h.Token(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "client-1", issuer.lastClientID)
	assert.Equal(t, "s3cret", issuer.lastSecret)

	resp := decodeResponse(t, rr)
	assert.Equal(t, "success", resp.Status)
}

func TestTokenInvalidCredentials(t *testing.T) {
	issuer := &fakeIssuer{authErr: auth.ErrInvalidCredentials}
	h := NewAuthHandler(issuer)

	req := jsonRequest(t, "POST", "/auth/token", models.AuthRequest{
		ClientID:     "client-1",
		ClientSecret: "wrong",
	})
	rr := httptest.NewRecorder()
	h.Token(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid client credentials", decodeResponse(t, rr).Message)
}

func TestTokenInactiveClient(t *testing.T) {
	issuer := &fakeIssuer{authErr: auth.ErrClientInactive}
	h := NewAuthHandler(issuer)

	req := jsonRequest(t, "POST", "/auth/token", models.AuthRequest{
		ClientID:     "client-1",
		ClientSecret: "s3cret",
	})
	rr := httptest.NewRecorder()
	h.Token(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestTokenMissingFields(t *testing.T) {
	h := NewAuthHandler(&fakeIssuer{})

	req := jsonRequest(t, "POST", "/auth/token", models.AuthRequest{ClientID: "client-1"})
	rr := httptest.NewRecorder()
	h.Token(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRefreshSuccess(t *testing.T) {
	issuer := &fakeIssuer{response: authResponseFixture()}
	h := NewAuthHandler(issuer)

	req := jsonRequest(t, "POST", "/auth/refresh", models.RefreshRequest{RefreshToken: "refresh-token"})
	rr := httptest.NewRecorder()
	h.Refresh(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "refresh-token", issuer.lastRefresh)
}

func TestRefreshInvalidToken(t *testing.T) {
	issuer := &fakeIssuer{refreshErr: auth.ErrInvalidToken}
	h := NewAuthHandler(issuer)

	req := jsonRequest(t, "POST", "/auth/refresh", models.RefreshRequest{RefreshToken: "garbage"})
	rr := httptest.NewRecorder()
	h.Refresh(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid or expired refresh token", decodeResponse(t, rr).Message)
}

func TestRefreshMissingToken(t *testing.T) {
	h := NewAuthHandler(&fakeIssuer{})

	req := jsonRequest(t, "POST", "/auth/refresh", models.RefreshRequest{})
	rr := httptest.NewRecorder()
	h.Refresh(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
