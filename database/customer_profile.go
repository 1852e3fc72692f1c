package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"arbor-payment-api/models"
)

// SaveCustomerProfile inserts or refreshes the stored record of a gateway
// customer profile, keyed by the gateway profile id.
func (t *Transaction) SaveCustomerProfile(p *models.CustomerProfileData) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
        INSERT INTO customer_profiles
        (id, customer_profile_id, merchant_customer_id, email, description, created_at)
        VALUES (?, ?, ?, ?, ?, NOW())
        ON DUPLICATE KEY UPDATE
        merchant_customer_id = VALUES(merchant_customer_id),
        email = VALUES(email),
        description = VALUES(description),
        updated_at = NOW()
    `

	_, err := t.tx.ExecContext(ctx, query,
		p.ID, p.CustomerProfileID, p.MerchantCustomerID, p.Email, p.Description)
	if err != nil {
		log.Printf("Error saving customer profile %s: %v", p.CustomerProfileID, err)
		return fmt.Errorf("error saving customer profile: %v", err)
	}

	return nil
}

// SavePaymentProfile inserts the stored record of one payment profile.
// The card number must already be masked.
func (t *Transaction) SavePaymentProfile(p *models.PaymentProfileData) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
        INSERT INTO payment_profiles
        (id, customer_profile_id, payment_profile_id, card_number, card_type,
         exp_month, exp_year, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, NOW())
    `

	_, err := t.tx.ExecContext(ctx, query,
		p.ID, p.CustomerProfileID, p.PaymentProfileID,
		p.CardNumber, p.CardType, p.ExpMonth, p.ExpYear)
	if err != nil {
		log.Printf("Error saving payment profile %s: %v", p.PaymentProfileID, err)
		return fmt.Errorf("error saving payment profile: %v", err)
	}

	return nil
}

// SaveProfileRecords stores a customer profile together with its payment
// profiles in one transaction, so either every record the gateway accepted
// is mirrored locally or none are.
func (c *Connection) SaveProfileRecords(profile *models.CustomerProfileData, payments []models.PaymentProfileData) error {
	tx, err := c.BeginTransaction()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.SaveCustomerProfile(profile); err != nil {
		return err
	}
	for i := range payments {
		if err := tx.SavePaymentProfile(&payments[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing profile records: %v", err)
	}

	return nil
}

// SavePaymentProfile records one payment profile added to an existing
// customer profile.
func (c *Connection) SavePaymentProfile(p *models.PaymentProfileData) error {
	tx, err := c.BeginTransaction()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.SavePaymentProfile(p); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing payment profile save: %v", err)
	}

	return nil
}

func (c *Connection) GetCustomerProfile(customerProfileID string) (*models.CustomerProfileData, error) {
	if err := c.ensureConnection(); err != nil {
		return nil, fmt.Errorf("database connection check failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
        SELECT id, customer_profile_id, merchant_customer_id, email, description,
               created_at, updated_at
        FROM customer_profiles
        WHERE customer_profile_id = ?
    `

	var profile models.CustomerProfileData
	err := c.db.QueryRowContext(ctx, query, customerProfileID).Scan(
		&profile.ID,
		&profile.CustomerProfileID,
		&profile.MerchantCustomerID,
		&profile.Email,
		&profile.Description,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Printf("Error getting customer profile: %v", err)
		return nil, fmt.Errorf("error getting customer profile: %v", err)
	}

	return &profile, nil
}

func (c *Connection) GetPaymentProfile(customerProfileID, paymentProfileID string) (*models.PaymentProfileData, error) {
	if err := c.ensureConnection(); err != nil {
		return nil, fmt.Errorf("database connection check failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
        SELECT id, customer_profile_id, payment_profile_id, card_number, card_type,
               exp_month, exp_year, created_at
        FROM payment_profiles
        WHERE customer_profile_id = ? AND payment_profile_id = ?
    `

	var p models.PaymentProfileData
	err := c.db.QueryRowContext(ctx, query, customerProfileID, paymentProfileID).Scan(
		&p.ID,
		&p.CustomerProfileID,
		&p.PaymentProfileID,
		&p.CardNumber,
		&p.CardType,
		&p.ExpMonth,
		&p.ExpYear,
		&p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Printf("Error getting payment profile: %v", err)
		return nil, fmt.Errorf("error getting payment profile: %v", err)
	}

	return &p, nil
}

func (c *Connection) ListPaymentProfiles(customerProfileID string) ([]models.PaymentProfileData, error) {
	if err := c.ensureConnection(); err != nil {
		return nil, fmt.Errorf("database connection check failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
        SELECT id, customer_profile_id, payment_profile_id, card_number, card_type,
               exp_month, exp_year, created_at
        FROM payment_profiles
        WHERE customer_profile_id = ?
        ORDER BY created_at ASC
    `

	rows, err := c.db.QueryContext(ctx, query, customerProfileID)
	if err != nil {
		log.Printf("Error listing payment profiles: %v", err)
		return nil, fmt.Errorf("error listing payment profiles: %v", err)
	}
	defer rows.Close()

	var profiles []models.PaymentProfileData
	for rows.Next() {
		var p models.PaymentProfileData
		err := rows.Scan(
			&p.ID,
			&p.CustomerProfileID,
			&p.PaymentProfileID,
			&p.CardNumber,
			&p.CardType,
			&p.ExpMonth,
			&p.ExpYear,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning payment profile row: %v", err)
		}
		profiles = append(profiles, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment profile rows: %v", err)
	}

	return profiles, nil
}

// UpdatePaymentProfileCard refreshes the stored card details after a
// payment profile update at the gateway.
func (c *Connection) UpdatePaymentProfileCard(customerProfileID, paymentProfileID, maskedCard, cardType string, expMonth, expYear int) error {
	if err := c.ensureConnection(); err != nil {
		return fmt.Errorf("database connection check failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
        UPDATE payment_profiles
        SET card_number = ?, card_type = ?, exp_month = ?, exp_year = ?
        WHERE customer_profile_id = ? AND payment_profile_id = ?
    `

	result, err := c.db.ExecContext(ctx, query,
		maskedCard, cardType, expMonth, expYear, customerProfileID, paymentProfileID)
	if err != nil {
		log.Printf("Error updating payment profile: %v", err)
		return fmt.Errorf("error updating payment profile: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteCustomerProfile removes a stored profile and its payment profiles.
func (c *Connection) DeleteCustomerProfile(customerProfileID string) error {
	tx, err := c.BeginTransaction()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := tx.tx.ExecContext(ctx,
		`DELETE FROM payment_profiles WHERE customer_profile_id = ?`, customerProfileID); err != nil {
		return fmt.Errorf("error deleting payment profiles: %v", err)
	}

	result, err := tx.tx.ExecContext(ctx,
		`DELETE FROM customer_profiles WHERE customer_profile_id = ?`, customerProfileID)
	if err != nil {
		return fmt.Errorf("error deleting customer profile: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing profile delete: %v", err)
	}

	log.Printf("Deleted customer profile %s", customerProfileID)
	return nil
}

func (c *Connection) DeletePaymentProfile(customerProfileID, paymentProfileID string) error {
	if err := c.ensureConnection(); err != nil {
		return fmt.Errorf("database connection check failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := c.db.ExecContext(ctx,
		`DELETE FROM payment_profiles WHERE customer_profile_id = ? AND payment_profile_id = ?`,
		customerProfileID, paymentProfileID)
	if err != nil {
		log.Printf("Error deleting payment profile: %v", err)
		return fmt.Errorf("error deleting payment profile: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	log.Printf("Deleted payment profile %s under customer profile %s", paymentProfileID, customerProfileID)
	return nil
}
