package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"arbor-payment-api/database"
	"arbor-payment-api/models"
	"arbor-payment-api/queue"
	"arbor-payment-api/services/payment/authorizenet"
	"arbor-payment-api/types"
	"arbor-payment-api/utils"
)

// authReleaseWindow is how long an uncaptured authorization is held before
// the worker voids it. Authorize.Net lets auths linger for about 30 days;
// releasing after 7 keeps the hold on the customer's funds short.
const authReleaseWindow = 7 * 24 * time.Hour

// chargeService is the slice of the payment service the charge endpoints need.
type chargeService interface {
	Charge(req *models.ChargeRequest) (*authorizenet.TransactionResult, error)
	Settle(transactionID string, amount *float64) (*authorizenet.TransactionResult, error)
	Refund(transactionID, cardLast4 string, amount float64) (*authorizenet.TransactionResult, error)
	Void(transactionID string) (*authorizenet.TransactionResult, error)
	RefundProfile(customerProfileID, paymentProfileID, transactionID string, amount float64) (*authorizenet.TransactionResult, error)
	VoidProfile(customerProfileID, paymentProfileID, transactionID string) (*authorizenet.TransactionResult, error)
}

// transactionStore is the slice of the database layer the charge endpoints need.
type transactionStore interface {
	SaveTransaction(txn *models.Transaction) error
	GetTransaction(id string) (*models.Transaction, error)
	UpdateTransactionStatus(id, status string) error
	UpdateTransactionAmount(id string, amount float64) error
	LockTransaction(transactionID string) (bool, error)
	ReleaseTransactionLock(transactionID string) error
}

// jobQueue is the slice of the queue the charge endpoints need.
type jobQueue interface {
	Enqueue(ctx context.Context, jobType queue.JobType, data map[string]interface{}) error
	EnqueueDelayed(ctx context.Context, jobType queue.JobType, data map[string]interface{}, delay time.Duration) error
}

type PaymentHandler struct {
	db    transactionStore
	svc   chargeService
	queue jobQueue
}

func NewPaymentHandler(db transactionStore, svc chargeService, q jobQueue) (*PaymentHandler, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("payment service is required")
	}
	if q == nil {
		return nil, fmt.Errorf("queue is required")
	}

	return &PaymentHandler{
		db:    db,
		svc:   svc,
		queue: q,
	}, nil
}

// gatewayStatus maps a charge error to an HTTP status. Gateway declines come
// back as 402, transport failures as 502, everything else is a bad request.
func gatewayStatus(err error) int {
	switch {
	case authorizenet.IsResponseError(err):
		return http.StatusPaymentRequired
	case authorizenet.IsConnectionError(err):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// CreateCharge authorizes a new charge. The card is only ever authorized
// synchronously; when capture is requested the settlement runs on the worker
// so a slow gateway never blocks the request past the auth.
func (h *PaymentHandler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	log.Printf("[RequestID: %s] Starting charge", requestID)

	var req models.ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[RequestID: %s] Invalid request body: %v", requestID, err)
		utils.SendErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	capture := req.Capture
	req.Capture = false

	result, err := h.svc.Charge(&req)
	if err != nil {
		log.Printf("[RequestID: %s] Charge failed for card %s: %v", requestID, req.Card.MaskedNumber(), err)
		utils.SendErrorResponse(w, gatewayStatus(err), fmt.Sprintf("Charge failed: %v", err))
		return
	}

	if !result.Approved() {
		log.Printf("[RequestID: %s] Gateway returned unrecognized response code %q for card %s",
			requestID, result.ResponseCode, req.Card.MaskedNumber())
		utils.SendErrorResponse(w, http.StatusBadGateway, "Gateway returned an unrecognized response")
		return
	}

	status := models.TransactionStatusAuthorized
	if result.Held() {
		status = models.TransactionStatusHeld
	} else if capture {
		status = models.TransactionStatusSettling
	}

	txn := &models.Transaction{
		ID:         uuid.New().String(),
		GatewayID:  result.TransactionID,
		Type:       models.TransactionTypeAuthorize,
		Amount:     req.Amount,
		Status:     status,
		CardNumber: req.Card.MaskedNumber(),
		CardType:   req.Card.CardType(),
		AuthCode:   result.AuthorizationCode,
		AVSResult:  result.AVSResponse,
		CVVResult:  result.CVVResponse,
		OrderID:    req.OrderID,
	}

	if err := h.db.SaveTransaction(txn); err != nil {
		log.Printf("[RequestID: %s] Failed to save transaction %s (gateway %s): %v",
			requestID, txn.ID, txn.GatewayID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to record transaction")
		return
	}

	ctx := r.Context()

	switch status {
	case models.TransactionStatusSettling:
		err = h.queue.Enqueue(ctx, queue.JobTypeSettleTransaction, types.SettleJob(txn.ID, txn.GatewayID, nil))
		if err != nil {
			log.Printf("[RequestID: %s] Error enqueueing settle job for %s: %v", requestID, txn.ID, err)
			if uerr := h.db.UpdateTransactionStatus(txn.ID, models.TransactionStatusAuthorized); uerr != nil {
				log.Printf("[RequestID: %s] Error reverting transaction %s to authorized: %v", requestID, txn.ID, uerr)
			}
			utils.SendErrorResponse(w, http.StatusInternalServerError,
				"Charge authorized but settlement could not be scheduled")
			return
		}
	case models.TransactionStatusAuthorized:
		err = h.queue.EnqueueDelayed(ctx, queue.JobTypeVoidTransaction,
			types.VoidJob(txn.ID, txn.GatewayID), authReleaseWindow)
		if err != nil {
			// The auth will still lapse at the gateway, just later.
			log.Printf("[RequestID: %s] Warning: Failed to schedule expiry void for %s: %v", requestID, txn.ID, err)
		}
	}

	log.Printf("[RequestID: %s] Charge %s %s for %.2f (gateway %s)",
		requestID, txn.ID, txn.Status, txn.Amount, txn.GatewayID)

	utils.SendDataResponse(w, http.StatusCreated, "Charge created", txn)
}

// GetCharge returns a stored transaction by its internal ID.
func (h *PaymentHandler) GetCharge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	txn, err := h.db.GetTransaction(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.SendErrorResponse(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Printf("Error loading transaction %s: %v", id, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Error loading transaction")
		return
	}

	utils.SendDataResponse(w, http.StatusOK, "Transaction retrieved", txn)
}

// CaptureCharge settles an authorization synchronously. The transaction lock
// keeps a concurrent worker settle from capturing the same auth twice.
func (h *PaymentHandler) CaptureCharge(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	id := mux.Vars(r)["id"]

	var req models.CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.SendErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	locked, err := h.db.LockTransaction(id)
	if err != nil {
		log.Printf("[RequestID: %s] Error acquiring lock for %s: %v", requestID, id, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !locked {
		utils.SendErrorResponse(w, http.StatusConflict, "Transaction is already being processed")
		return
	}
	defer h.db.ReleaseTransactionLock(id)

	txn, err := h.db.GetTransaction(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.SendErrorResponse(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Printf("[RequestID: %s] Error loading transaction %s: %v", requestID, id, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Error loading transaction")
		return
	}

	if txn.Status != models.TransactionStatusAuthorized && txn.Status != models.TransactionStatusSettling {
		utils.SendErrorResponse(w, http.StatusConflict,
			fmt.Sprintf("Transaction is %s and cannot be captured", txn.Status))
		return
	}

	if req.Amount != nil && (*req.Amount <= 0 || *req.Amount > txn.Amount) {
		utils.SendErrorResponse(w, http.StatusBadRequest,
			"Capture amount must be positive and no more than the authorized amount")
		return
	}

	if _, err := h.svc.Settle(txn.GatewayID, req.Amount); err != nil {
		log.Printf("[RequestID: %s] Capture of %s failed: %v", requestID, id, err)
		if authorizenet.IsResponseError(err) {
			if uerr := h.db.UpdateTransactionStatus(id, models.TransactionStatusFailed); uerr != nil {
				log.Printf("[RequestID: %s] Error marking transaction %s failed: %v", requestID, id, uerr)
			}
		}
		utils.SendErrorResponse(w, gatewayStatus(err), fmt.Sprintf("Capture failed: %v", err))
		return
	}

	if err := h.db.UpdateTransactionStatus(id, models.TransactionStatusCaptured); err != nil {
		log.Printf("[RequestID: %s] Error updating transaction %s status: %v", requestID, id, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Capture succeeded but status update failed")
		return
	}
	txn.Status = models.TransactionStatusCaptured

	if req.Amount != nil && *req.Amount != txn.Amount {
		if err := h.db.UpdateTransactionAmount(id, *req.Amount); err != nil {
			log.Printf("[RequestID: %s] Error updating transaction %s amount: %v", requestID, id, err)
		} else {
			txn.Amount = *req.Amount
		}
	}

	log.Printf("[RequestID: %s] Captured transaction %s for %.2f", requestID, id, txn.Amount)
	utils.SendDataResponse(w, http.StatusOK, "Transaction captured", txn)
}

// RefundCharge credits a settled transaction back to the card. Charges made
// against a stored profile are refunded through the profile; direct charges
// need the card's last four digits to match the stored record.
func (h *PaymentHandler) RefundCharge(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	id := mux.Vars(r)["id"]

	var req models.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	txn, err := h.db.GetTransaction(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.SendErrorResponse(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Printf("[RequestID: %s] Error loading transaction %s: %v", requestID, id, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Error loading transaction")
		return
	}

	if txn.Status != models.TransactionStatusCaptured {
		utils.SendErrorResponse(w, http.StatusConflict,
			fmt.Sprintf("Transaction is %s; only captured transactions can be refunded", txn.Status))
		return
	}

	if req.Amount > txn.Amount {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Refund amount exceeds the transaction amount")
		return
	}

	if txn.CustomerProfileID != "" && txn.PaymentProfileID != "" {
		_, err = h.svc.RefundProfile(txn.CustomerProfileID, txn.PaymentProfileID, txn.GatewayID, req.Amount)
	} else {
		if !strings.HasSuffix(txn.CardNumber, req.CardLast4) {
			utils.SendErrorResponse(w, http.StatusBadRequest, "Card digits do not match the transaction")
			return
		}
		_, err = h.svc.Refund(txn.GatewayID, req.CardLast4, req.Amount)
	}
	if err != nil {
		log.Printf("[RequestID: %s] Refund of %s failed: %v", requestID, id, err)
		utils.SendErrorResponse(w, gatewayStatus(err), fmt.Sprintf("Refund failed: %v", err))
		return
	}

	if err := h.db.UpdateTransactionStatus(id, models.TransactionStatusRefunded); err != nil {
		log.Printf("[RequestID: %s] Error updating transaction %s status: %v", requestID, id, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Refund succeeded but status update failed")
		return
	}
	txn.Status = models.TransactionStatusRefunded

	log.Printf("[RequestID: %s] Refunded transaction %s for %.2f", requestID, id, req.Amount)
	utils.SendDataResponse(w, http.StatusOK, "Transaction refunded", txn)
}

// VoidCharge cancels a transaction that has not settled yet.
func (h *PaymentHandler) VoidCharge(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	id := mux.Vars(r)["id"]

	locked, err := h.db.LockTransaction(id)
	if err != nil {
		log.Printf("[RequestID: %s] Error acquiring lock for %s: %v", requestID, id, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !locked {
		utils.SendErrorResponse(w, http.StatusConflict, "Transaction is already being processed")
		return
	}
	defer h.db.ReleaseTransactionLock(id)

	txn, err := h.db.GetTransaction(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.SendErrorResponse(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Printf("[RequestID: %s] Error loading transaction %s: %v", requestID, id, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Error loading transaction")
		return
	}

	switch txn.Status {
	case models.TransactionStatusAuthorized, models.TransactionStatusSettling, models.TransactionStatusHeld:
		// voidable
	case models.TransactionStatusCaptured:
		utils.SendErrorResponse(w, http.StatusConflict, "Captured transactions must be refunded, not voided")
		return
	default:
		utils.SendErrorResponse(w, http.StatusConflict,
			fmt.Sprintf("Transaction is %s and cannot be voided", txn.Status))
		return
	}

	if txn.CustomerProfileID != "" && txn.PaymentProfileID != "" {
		_, err = h.svc.VoidProfile(txn.CustomerProfileID, txn.PaymentProfileID, txn.GatewayID)
	} else {
		_, err = h.svc.Void(txn.GatewayID)
	}
	if err != nil {
		log.Printf("[RequestID: %s] Void of %s failed: %v", requestID, id, err)
		utils.SendErrorResponse(w, gatewayStatus(err), fmt.Sprintf("Void failed: %v", err))
		return
	}

	if err := h.db.UpdateTransactionStatus(id, models.TransactionStatusVoided); err != nil {
		log.Printf("[RequestID: %s] Error updating transaction %s status: %v", requestID, id, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Void succeeded but status update failed")
		return
	}
	txn.Status = models.TransactionStatusVoided

	log.Printf("[RequestID: %s] Voided transaction %s", requestID, id)
	utils.SendDataResponse(w, http.StatusOK, "Transaction voided", txn)
}
