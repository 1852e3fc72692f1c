package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"arbor-payment-api/database"
	"arbor-payment-api/models"
	"arbor-payment-api/services/payment/authorizenet"
	"arbor-payment-api/utils"
)

// profileService is the slice of the payment service the profile endpoints need.
type profileService interface {
	SaveProfile(req *models.ProfileRequest) (*authorizenet.ProfileResult, error)
	AddPaymentProfile(customerProfileID string, req *models.PaymentProfileRequest) (string, error)
	UpdatePaymentProfile(customerProfileID, paymentProfileID string, req *models.PaymentProfileRequest) error
	RemovePaymentProfile(customerProfileID, paymentProfileID string) error
	RemoveProfile(customerProfileID string) error
	ChargeProfile(customerProfileID string, req *models.ProfileChargeRequest) (*authorizenet.TransactionResult, error)
}

// profileStore is the slice of the database layer the profile endpoints need.
type profileStore interface {
	SaveProfileRecords(profile *models.CustomerProfileData, payments []models.PaymentProfileData) error
	SavePaymentProfile(p *models.PaymentProfileData) error
	GetCustomerProfile(customerProfileID string) (*models.CustomerProfileData, error)
	GetPaymentProfile(customerProfileID, paymentProfileID string) (*models.PaymentProfileData, error)
	ListPaymentProfiles(customerProfileID string) ([]models.PaymentProfileData, error)
	UpdatePaymentProfileCard(customerProfileID, paymentProfileID, maskedCard, cardType string, expMonth, expYear int) error
	DeleteCustomerProfile(customerProfileID string) error
	DeletePaymentProfile(customerProfileID, paymentProfileID string) error
	SaveTransaction(txn *models.Transaction) error
}

// ProfileHandler exposes the stored customer profile endpoints. Gateway
// writes go first; the local tables mirror what the gateway accepted.
type ProfileHandler struct {
	db  profileStore
	svc profileService
}

func NewProfileHandler(db profileStore, svc profileService) (*ProfileHandler, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("payment service is required")
	}

	return &ProfileHandler{db: db, svc: svc}, nil
}

// CreateProfile registers a customer profile and its cards at the gateway,
// then records them locally inside one database transaction.
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	var req models.ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.svc.SaveProfile(&req)
	if err != nil {
		log.Printf("[RequestID: %s] Profile creation failed: %v", requestID, err)
		utils.SendErrorResponse(w, gatewayStatus(err), fmt.Sprintf("Profile creation failed: %v", err))
		return
	}

	profile := &models.CustomerProfileData{
		ID:                 uuid.New().String(),
		CustomerProfileID:  result.CustomerProfileID,
		MerchantCustomerID: req.MerchantCustomerID,
		Email:              req.Email,
		Description:        req.Description,
	}

	payments := make([]models.PaymentProfileData, 0, len(result.PaymentProfileIDs))
	for i, ppID := range result.PaymentProfileIDs {
		if i >= len(req.PaymentProfiles) {
			break
		}
		card := req.PaymentProfiles[i].Card
		payments = append(payments, models.PaymentProfileData{
			ID:                uuid.New().String(),
			CustomerProfileID: result.CustomerProfileID,
			PaymentProfileID:  ppID,
			CardNumber:        card.MaskedNumber(),
			CardType:          card.CardType(),
			ExpMonth:          card.ExpMonth,
			ExpYear:           card.ExpYear,
		})
	}

	if err := h.db.SaveProfileRecords(profile, payments); err != nil {
		log.Printf("[RequestID: %s] Failed to record profile %s: %v", requestID, result.CustomerProfileID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Profile %s created at gateway but could not be recorded", result.CustomerProfileID))
		return
	}

	log.Printf("[RequestID: %s] Created profile %s with %d payment profiles",
		requestID, result.CustomerProfileID, len(result.PaymentProfileIDs))

	utils.SendDataResponse(w, http.StatusCreated, "Profile created", models.ProfileResponse{
		CustomerProfileID: result.CustomerProfileID,
		PaymentProfileIDs: result.PaymentProfileIDs,
	})
}

// GetProfile returns the locally stored profile and its payment profiles.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	profile, err := h.db.GetCustomerProfile(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.SendErrorResponse(w, http.StatusNotFound, "Profile not found")
			return
		}
		log.Printf("Error loading profile %s: %v", id, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Error loading profile")
		return
	}

	cards, err := h.db.ListPaymentProfiles(id)
	if err != nil {
		log.Printf("Error loading payment profiles for %s: %v", id, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Error loading payment profiles")
		return
	}

	utils.SendDataResponse(w, http.StatusOK, "Profile retrieved", map[string]interface{}{
		"profile":          profile,
		"payment_profiles": cards,
	})
}

// DeleteProfile removes the profile at the gateway and locally.
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	id := mux.Vars(r)["id"]

	if err := h.svc.RemoveProfile(id); err != nil {
		log.Printf("[RequestID: %s] Profile deletion failed for %s: %v", requestID, id, err)
		utils.SendErrorResponse(w, gatewayStatus(err), fmt.Sprintf("Profile deletion failed: %v", err))
		return
	}

	if err := h.db.DeleteCustomerProfile(id); err != nil && !errors.Is(err, database.ErrNotFound) {
		log.Printf("[RequestID: %s] Profile %s deleted at gateway but local delete failed: %v", requestID, id, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Profile deleted at gateway but could not be removed locally")
		return
	}

	log.Printf("[RequestID: %s] Deleted profile %s", requestID, id)
	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Profile deleted",
	})
}

// AddPaymentProfile attaches another card to an existing profile.
func (h *ProfileHandler) AddPaymentProfile(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	id := mux.Vars(r)["id"]

	var req models.PaymentProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if _, err := h.db.GetCustomerProfile(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.SendErrorResponse(w, http.StatusNotFound, "Profile not found")
			return
		}
		log.Printf("[RequestID: %s] Error loading profile %s: %v", requestID, id, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Error loading profile")
		return
	}

	ppID, err := h.svc.AddPaymentProfile(id, &req)
	if err != nil {
		log.Printf("[RequestID: %s] Adding payment profile to %s failed: %v", requestID, id, err)
		utils.SendErrorResponse(w, gatewayStatus(err), fmt.Sprintf("Adding payment profile failed: %v", err))
		return
	}

	err = h.db.SavePaymentProfile(&models.PaymentProfileData{
		ID:                uuid.New().String(),
		CustomerProfileID: id,
		PaymentProfileID:  ppID,
		CardNumber:        req.Card.MaskedNumber(),
		CardType:          req.Card.CardType(),
		ExpMonth:          req.Card.ExpMonth,
		ExpYear:           req.Card.ExpYear,
	})
	if err != nil {
		log.Printf("[RequestID: %s] Payment profile %s created at gateway but could not be recorded: %v",
			requestID, ppID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Payment profile %s created at gateway but could not be recorded", ppID))
		return
	}

	log.Printf("[RequestID: %s] Added payment profile %s to %s", requestID, ppID, id)
	utils.SendDataResponse(w, http.StatusCreated, "Payment profile added", map[string]interface{}{
		"payment_profile_id": ppID,
	})
}

// UpdatePaymentProfile replaces the card on a payment profile.
func (h *ProfileHandler) UpdatePaymentProfile(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	vars := mux.Vars(r)
	id, ppID := vars["id"], vars["ppid"]

	var req models.PaymentProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if _, err := h.db.GetPaymentProfile(id, ppID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.SendErrorResponse(w, http.StatusNotFound, "Payment profile not found")
			return
		}
		log.Printf("[RequestID: %s] Error loading payment profile %s: %v", requestID, ppID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Error loading payment profile")
		return
	}

	if err := h.svc.UpdatePaymentProfile(id, ppID, &req); err != nil {
		log.Printf("[RequestID: %s] Updating payment profile %s failed: %v", requestID, ppID, err)
		utils.SendErrorResponse(w, gatewayStatus(err), fmt.Sprintf("Updating payment profile failed: %v", err))
		return
	}

	err := h.db.UpdatePaymentProfileCard(id, ppID,
		req.Card.MaskedNumber(), req.Card.CardType(), req.Card.ExpMonth, req.Card.ExpYear)
	if err != nil {
		log.Printf("[RequestID: %s] Payment profile %s updated at gateway but local update failed: %v",
			requestID, ppID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError,
			"Payment profile updated at gateway but could not be recorded")
		return
	}

	log.Printf("[RequestID: %s] Updated payment profile %s on %s", requestID, ppID, id)
	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Payment profile updated",
	})
}

// DeletePaymentProfile removes one card from a profile.
func (h *ProfileHandler) DeletePaymentProfile(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	vars := mux.Vars(r)
	id, ppID := vars["id"], vars["ppid"]

	if err := h.svc.RemovePaymentProfile(id, ppID); err != nil {
		log.Printf("[RequestID: %s] Deleting payment profile %s failed: %v", requestID, ppID, err)
		utils.SendErrorResponse(w, gatewayStatus(err), fmt.Sprintf("Deleting payment profile failed: %v", err))
		return
	}

	if err := h.db.DeletePaymentProfile(id, ppID); err != nil && !errors.Is(err, database.ErrNotFound) {
		log.Printf("[RequestID: %s] Payment profile %s deleted at gateway but local delete failed: %v",
			requestID, ppID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError,
			"Payment profile deleted at gateway but could not be removed locally")
		return
	}

	log.Printf("[RequestID: %s] Deleted payment profile %s from %s", requestID, ppID, id)
	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Payment profile deleted",
	})
}

// ChargeProfile charges a stored card. Profile charges settle synchronously
// at the gateway, so no settle job is queued.
func (h *ProfileHandler) ChargeProfile(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	id := mux.Vars(r)["id"]

	var req models.ProfileChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	pp, err := h.db.GetPaymentProfile(id, req.PaymentProfileID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.SendErrorResponse(w, http.StatusNotFound, "Payment profile not found")
			return
		}
		log.Printf("[RequestID: %s] Error loading payment profile %s: %v", requestID, req.PaymentProfileID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Error loading payment profile")
		return
	}

	result, err := h.svc.ChargeProfile(id, &req)
	if err != nil {
		log.Printf("[RequestID: %s] Profile charge on %s failed: %v", requestID, id, err)
		utils.SendErrorResponse(w, gatewayStatus(err), fmt.Sprintf("Charge failed: %v", err))
		return
	}

	if !result.Approved() {
		log.Printf("[RequestID: %s] Gateway returned unrecognized response code %q for profile charge on %s",
			requestID, result.ResponseCode, id)
		utils.SendErrorResponse(w, http.StatusBadGateway, "Gateway returned an unrecognized response")
		return
	}

	txnType := models.TransactionTypeAuthorize
	status := models.TransactionStatusAuthorized
	if result.Held() {
		status = models.TransactionStatusHeld
	} else if req.Capture {
		txnType = models.TransactionTypeCapture
		status = models.TransactionStatusCaptured
	}

	txn := &models.Transaction{
		ID:                uuid.New().String(),
		GatewayID:         result.TransactionID,
		Type:              txnType,
		Amount:            req.Amount,
		Status:            status,
		CardNumber:        pp.CardNumber,
		CardType:          pp.CardType,
		AuthCode:          result.AuthorizationCode,
		AVSResult:         result.AVSResponse,
		CVVResult:         result.CVVResponse,
		CustomerProfileID: id,
		PaymentProfileID:  req.PaymentProfileID,
	}

	if err := h.db.SaveTransaction(txn); err != nil {
		log.Printf("[RequestID: %s] Failed to save transaction %s (gateway %s): %v",
			requestID, txn.ID, txn.GatewayID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to record transaction")
		return
	}

	log.Printf("[RequestID: %s] Profile charge %s %s for %.2f (gateway %s)",
		requestID, txn.ID, txn.Status, txn.Amount, txn.GatewayID)

	utils.SendDataResponse(w, http.StatusCreated, "Charge created", txn)
}
