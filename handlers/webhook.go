package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"arbor-payment-api/database"
	"arbor-payment-api/models"
)

// webhookStore is the slice of the database layer silent post processing needs.
type webhookStore interface {
	GetTransactionByGatewayID(gatewayID string) (*models.Transaction, error)
	UpdateTransactionStatusByGatewayID(gatewayID, status string) error
}

// WebhookHandler receives Authorize.Net silent post notifications and keeps
// stored transaction statuses in line with what the gateway reports.
type WebhookHandler struct {
	db webhookStore
}

func NewWebhookHandler(db webhookStore) (*WebhookHandler, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &WebhookHandler{db: db}, nil
}

// HandleSilentPost acknowledges the notification immediately and applies it
// in the background. Authorize.Net retries slow receivers, so the 200 must
// not wait on the database.
func (h *WebhookHandler) HandleSilentPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Printf("Error parsing silent post form: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	gatewayID := r.FormValue("x_trans_id")
	responseCode := r.FormValue("x_response_code")
	transactionType := r.FormValue("x_type")

	log.Printf("Received silent post for transaction %s: code=%s, type=%s, reason=%s",
		gatewayID, responseCode, transactionType, r.FormValue("x_response_reason_text"))

	w.WriteHeader(http.StatusOK)

	if gatewayID == "" {
		return
	}
	go h.processNotification(gatewayID, responseCode, transactionType)
}

func (h *WebhookHandler) processNotification(gatewayID, responseCode, transactionType string) {
	txn, err := h.db.GetTransactionByGatewayID(gatewayID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Silent posts also fire for transactions made outside this
			// service, like ones created in the merchant portal.
			log.Printf("Silent post for unknown transaction %s, ignoring", gatewayID)
			return
		}
		log.Printf("Error looking up transaction %s: %v", gatewayID, err)
		return
	}

	if responseCode != "1" {
		if txn.Status == models.TransactionStatusSettling {
			log.Printf("Gateway reported settlement failure for transaction %s (code %s)", gatewayID, responseCode)
			if err := h.db.UpdateTransactionStatusByGatewayID(gatewayID, models.TransactionStatusFailed); err != nil {
				log.Printf("Error marking transaction %s failed: %v", gatewayID, err)
			}
		}
		return
	}

	var status string
	switch strings.ToUpper(transactionType) {
	case "AUTH_ONLY":
		// A held auth cleared review.
		status = models.TransactionStatusAuthorized
	case "AUTH_CAPTURE", "PRIOR_AUTH_CAPTURE":
		status = models.TransactionStatusCaptured
	case "VOID":
		status = models.TransactionStatusVoided
	case "CREDIT":
		status = models.TransactionStatusRefunded
	default:
		log.Printf("Silent post with unhandled type %s for transaction %s", transactionType, gatewayID)
		return
	}

	if txn.Status == status {
		return
	}

	if err := h.db.UpdateTransactionStatusByGatewayID(gatewayID, status); err != nil {
		log.Printf("Error updating transaction %s to %s: %v", gatewayID, status, err)
		return
	}
	log.Printf("Silent post moved transaction %s from %s to %s", gatewayID, txn.Status, status)
}
