package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"arbor-payment-api/models"
)

type Transaction struct {
	tx *sql.Tx
}

func (t *Transaction) Commit() error {
	return t.tx.Commit()
}

func (t *Transaction) Rollback() error {
	return t.tx.Rollback()
}

const transactionColumns = `
    id, gateway_transaction_id, type, amount, status,
    card_number, card_type, auth_code, avs_result, cvv_result,
    order_id, customer_profile_id, payment_profile_id,
    created_at, updated_at
`

// SaveTransaction inserts a stored gateway transaction record. Card
// numbers must already be masked by the caller.
func (c *Connection) SaveTransaction(txn *models.Transaction) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
        INSERT INTO payment_transactions (
            id, gateway_transaction_id, type, amount, status,
            card_number, card_type, auth_code, avs_result, cvv_result,
            order_id, customer_profile_id, payment_profile_id,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
    `

	_, err := c.db.ExecContext(ctx, query,
		txn.ID, txn.GatewayID, txn.Type, txn.Amount, txn.Status,
		txn.CardNumber, txn.CardType, txn.AuthCode, txn.AVSResult, txn.CVVResult,
		txn.OrderID, txn.CustomerProfileID, txn.PaymentProfileID,
	)
	if err != nil {
		log.Printf("Error saving transaction %s: %v", txn.ID, err)
		return fmt.Errorf("failed to save transaction: %v", err)
	}

	log.Printf("Saved transaction %s (gateway id %s, status %s)", txn.ID, txn.GatewayID, txn.Status)
	return nil
}

func (c *Connection) GetTransaction(id string) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	row := c.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM payment_transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (c *Connection) GetTransactionByGatewayID(gatewayID string) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	row := c.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM payment_transactions WHERE gateway_transaction_id = ?`, gatewayID)
	return scanTransaction(row)
}

func scanTransaction(row *sql.Row) (*models.Transaction, error) {
	var txn models.Transaction
	err := row.Scan(
		&txn.ID, &txn.GatewayID, &txn.Type, &txn.Amount, &txn.Status,
		&txn.CardNumber, &txn.CardType, &txn.AuthCode, &txn.AVSResult, &txn.CVVResult,
		&txn.OrderID, &txn.CustomerProfileID, &txn.PaymentProfileID,
		&txn.CreatedAt, &txn.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading transaction: %v", err)
	}
	return &txn, nil
}

func (c *Connection) UpdateTransactionStatus(id, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := c.db.ExecContext(ctx,
		`UPDATE payment_transactions SET status = ?, updated_at = NOW() WHERE id = ?`,
		status, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %v", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	log.Printf("Transaction %s moved to status %s", id, status)
	return nil
}

// UpdateTransactionStatusByGatewayID updates status from gateway
// notifications, which only carry the gateway transaction id.
func (c *Connection) UpdateTransactionStatusByGatewayID(gatewayID, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := c.db.ExecContext(ctx,
		`UPDATE payment_transactions SET status = ?, updated_at = NOW() WHERE gateway_transaction_id = ?`,
		status, gatewayID)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %v", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	log.Printf("Transaction with gateway id %s moved to status %s", gatewayID, status)
	return nil
}

// UpdateTransactionAmount records the final amount of a partial capture.
func (c *Connection) UpdateTransactionAmount(id string, amount float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := c.db.ExecContext(ctx,
		`UPDATE payment_transactions SET amount = ?, updated_at = NOW() WHERE id = ?`,
		amount, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction amount: %v", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
