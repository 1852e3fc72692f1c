package models

import "time"

// APIClient is a server-to-server consumer of this API, identified by a
// client id and a SHA-256 hashed secret.
type APIClient struct {
	ClientID   string    `json:"client_id"`
	Name       string    `json:"name"`
	SecretHash string    `json:"-"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type AuthRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthResponse struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Client       APIClient `json:"client"`
}
