package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"arbor-payment-api/models"
	"arbor-payment-api/services/auth"
	"arbor-payment-api/utils"
)

type contextKey string

const ClientContextKey contextKey = "api_client"

// TokenValidator is the part of the auth service the middleware needs.
// *auth.JWTService satisfies it.
type TokenValidator interface {
	ValidateToken(token string) (*models.APIClient, error)
}

// AuthMiddleware requires a valid Bearer access token and puts the calling
// API client on the request context.
func AuthMiddleware(jwtService TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Printf("Missing Authorization header from %s", r.RemoteAddr)
				utils.SendErrorResponse(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Printf("Invalid Authorization header format from %s", r.RemoteAddr)
				utils.SendErrorResponse(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			token := parts[1]

			client, err := jwtService.ValidateToken(token)
			if err != nil {
				log.Printf("Token validation failed from %s: %v", r.RemoteAddr, err)

				var message string
				switch err {
				case auth.ErrTokenExpired:
					message = "Token expired"
				case auth.ErrInvalidToken:
					message = "Invalid token"
				default:
					message = "Authentication failed"
				}

				utils.SendErrorResponse(w, http.StatusUnauthorized, message)
				return
			}

			ctx := context.WithValue(r.Context(), ClientContextKey, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientFromContext extracts the authenticated API client, or nil when
// the request was not authenticated.
func GetClientFromContext(ctx context.Context) *models.APIClient {
	client, ok := ctx.Value(ClientContextKey).(*models.APIClient)
	if !ok {
		return nil
	}
	return client
}

// SecurityHeaders sets response headers appropriate for a JSON payment API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// AuthLoggingMiddleware logs requests on the authenticated router group
// with the calling client attached.
func AuthLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		client := GetClientFromContext(r.Context())

		name := "anonymous"
		if client != nil {
			name = client.ClientID
		}

		log.Printf("AUTH %s %s %s %d %v",
			r.Method, r.RequestURI, name, wrapper.status, duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
