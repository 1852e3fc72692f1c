package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"arbor-payment-api/models"
)

// GetAPIClient looks up an API client by its public client id.
func (c *Connection) GetAPIClient(clientID string) (*models.APIClient, error) {
	if err := c.ensureConnection(); err != nil {
		return nil, fmt.Errorf("database connection check failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
        SELECT client_id, name, secret_hash, is_active, created_at
        FROM api_clients
        WHERE client_id = ?
    `

	var client models.APIClient
	err := c.db.QueryRowContext(ctx, query, clientID).Scan(
		&client.ClientID,
		&client.Name,
		&client.SecretHash,
		&client.IsActive,
		&client.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting api client: %v", err)
	}

	return &client, nil
}
