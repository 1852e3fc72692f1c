package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"arbor-payment-api/models"
	"arbor-payment-api/services/auth"
	"arbor-payment-api/utils"
)

// tokenIssuer is the slice of the JWT service the auth endpoints need.
type tokenIssuer interface {
	Authenticate(clientID, clientSecret string) (*models.AuthResponse, error)
	RefreshToken(refreshToken string) (*models.AuthResponse, error)
}

type AuthHandler struct {
	jwtService tokenIssuer
}

func NewAuthHandler(jwtService tokenIssuer) *AuthHandler {
	return &AuthHandler{
		jwtService: jwtService,
	}
}

// Token exchanges client credentials for a JWT pair.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req models.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Error decoding token request: %v", err)
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ClientID == "" || req.ClientSecret == "" {
		utils.SendErrorResponse(w, http.StatusBadRequest, "client_id and client_secret are required")
		return
	}

	log.Printf("Token request for client: %s", req.ClientID)

	authResponse, err := h.jwtService.Authenticate(req.ClientID, req.ClientSecret)
	if err != nil {
		log.Printf("Authentication failed for client %s: %v", req.ClientID, err)

		var message string
		var statusCode int

		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			message = "Invalid client credentials"
			statusCode = http.StatusUnauthorized
		case errors.Is(err, auth.ErrClientInactive):
			message = "Client is inactive"
			statusCode = http.StatusForbidden
		default:
			message = "Authentication failed"
			statusCode = http.StatusInternalServerError
		}

		utils.SendErrorResponse(w, statusCode, message)
		return
	}

	log.Printf("Issued token pair for client: %s", req.ClientID)

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Authentication successful",
		Data:    authResponse,
	})
}

// Refresh exchanges a refresh token for a new JWT pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Error decoding refresh request: %v", err)
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.RefreshToken == "" {
		utils.SendErrorResponse(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	authResponse, err := h.jwtService.RefreshToken(req.RefreshToken)
	if err != nil {
		log.Printf("Token refresh failed: %v", err)
		utils.SendErrorResponse(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	log.Printf("Token refreshed for client: %s", authResponse.Client.ClientID)

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Token refreshed successfully",
		Data:    authResponse,
	})
}
