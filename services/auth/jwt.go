package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"arbor-payment-api/database"
	"arbor-payment-api/models"
	"arbor-payment-api/utils"
)

const (
	AccessTokenDuration  = 15 * time.Minute
	RefreshTokenDuration = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid client id or secret")
	ErrClientInactive     = errors.New("api client inactive")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
)

// clientStore is the part of the database layer the auth service needs.
type clientStore interface {
	GetAPIClient(clientID string) (*models.APIClient, error)
}

type JWTService struct {
	secretKey []byte
	issuer    string
	db        clientStore
}

type Claims struct {
	ClientID  string `json:"client_id"`
	Name      string `json:"client_name"`
	TokenType string `json:"token_type"` // "access" or "refresh"
	jwt.RegisteredClaims
}

func NewJWTService(secretKey, issuer string, db clientStore) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		db:        db,
	}
}

// Authenticate checks a client id and secret against the api_clients table
// and issues an access and refresh token pair.
func (j *JWTService) Authenticate(clientID, clientSecret string) (*models.AuthResponse, error) {
	client, err := j.db.GetAPIClient(clientID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("database error: %v", err)
	}

	hashed := utils.HashSecret(clientSecret)
	if subtle.ConstantTimeCompare([]byte(hashed), []byte(client.SecretHash)) != 1 {
		return nil, ErrInvalidCredentials
	}

	if !client.IsActive {
		return nil, ErrClientInactive
	}

	return j.issueTokenPair(*client)
}

func (j *JWTService) issueTokenPair(client models.APIClient) (*models.AuthResponse, error) {
	accessToken, err := j.GenerateToken(client, "access", AccessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %v", err)
	}

	refreshToken, err := j.GenerateToken(client, "refresh", RefreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %v", err)
	}

	client.SecretHash = ""
	return &models.AuthResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(AccessTokenDuration),
		Client:       client,
	}, nil
}

func (j *JWTService) GenerateToken(client models.APIClient, tokenType string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ClientID:  client.ClientID,
		Name:      client.Name,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   client.ClientID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// ValidateToken verifies an access token and returns the client identity
// carried in its claims.
func (j *JWTService) ValidateToken(tokenString string) (*models.APIClient, error) {
	claims, err := j.parseClaims(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != "access" {
		return nil, ErrInvalidToken
	}

	return &models.APIClient{
		ClientID: claims.ClientID,
		Name:     claims.Name,
		IsActive: true,
	}, nil
}

// RefreshToken exchanges a refresh token for a new token pair. The client
// is re-read from the database so revoked clients stop refreshing.
func (j *JWTService) RefreshToken(refreshTokenString string) (*models.AuthResponse, error) {
	claims, err := j.parseClaims(refreshTokenString)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != "refresh" {
		return nil, ErrInvalidToken
	}

	client, err := j.db.GetAPIClient(claims.ClientID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !client.IsActive {
		return nil, ErrClientInactive
	}

	return j.issueTokenPair(*client)
}

func (j *JWTService) parseClaims(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
