package handlers

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"arbor-payment-api/config"
	"arbor-payment-api/models"
	"arbor-payment-api/utils"
)

func init() {
	gob.Register(models.CheckoutOrder{})
}

const checkoutSessionName = "checkout-session"

// CheckoutHandler runs the embedded checkout flow: an order is staged in a
// cookie session, then paid in one synchronous auth-and-capture.
type CheckoutHandler struct {
	db    transactionStore
	svc   chargeService
	store *sessions.CookieStore
}

func NewCheckoutHandler(db transactionStore, svc chargeService, cfg *config.Config) *CheckoutHandler {
	store := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cfg.Session.Domain,
		MaxAge:   cfg.Session.MaxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &CheckoutHandler{db: db, svc: svc, store: store}
}

// CreateOrder stages an order in the visitor's session.
func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.Get(r, checkoutSessionName)
	if err != nil {
		log.Printf("Error getting session: %v", err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Session error")
		return
	}

	var req models.CheckoutOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if len(req.Items) == 0 {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Order has no items")
		return
	}

	var total float64
	for _, item := range req.Items {
		if item.Quantity <= 0 || item.UnitPrice <= 0 {
			utils.SendErrorResponse(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid quantity or price for item %q", item.Name))
			return
		}
		total += float64(item.Quantity) * item.UnitPrice
	}
	total = utils.Round(total)

	if !utils.ValidAmount(total) {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Order total is out of range")
		return
	}

	order := models.CheckoutOrder{
		OrderID:   "ord-" + utils.GenerateRandomString(12),
		Email:     req.Email,
		Items:     req.Items,
		Total:     total,
		CreatedAt: time.Now(),
	}

	session.Values["order"] = order
	if err := session.Save(r, w); err != nil {
		log.Printf("Error saving session: %v", err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Session error")
		return
	}

	log.Printf("Staged checkout order %s for %.2f", order.OrderID, order.Total)
	utils.SendDataResponse(w, http.StatusCreated, "Order created", order)
}

// GetOrder returns the order staged in the session, if any.
func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.Get(r, checkoutSessionName)
	if err != nil {
		log.Printf("Error getting session: %v", err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Session error")
		return
	}

	order, ok := session.Values["order"].(models.CheckoutOrder)
	if !ok {
		utils.SendErrorResponse(w, http.StatusNotFound, "No open order")
		return
	}

	utils.SendDataResponse(w, http.StatusOK, "Order retrieved", order)
}

// Pay charges the staged order. Checkout captures in the same call so the
// shopper sees a final result; the order is dropped from the session once
// the gateway accepts it.
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	session, err := h.store.Get(r, checkoutSessionName)
	if err != nil {
		log.Printf("[RequestID: %s] Error getting session: %v", requestID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Session error")
		return
	}

	order, ok := session.Values["order"].(models.CheckoutOrder)
	if !ok {
		utils.SendErrorResponse(w, http.StatusNotFound, "No open order")
		return
	}

	var req models.CheckoutPayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	month, year, err := utils.ParseExpiry(req.Expiry)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid expiry: %v", err))
		return
	}

	charge := &models.ChargeRequest{
		Amount:  order.Total,
		Capture: true,
		Card: models.CreditCard{
			Number:    req.CardNumber,
			ExpMonth:  month,
			ExpYear:   year,
			CVV:       req.CVV,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		},
		Address: req.Address,
		OrderID: order.OrderID,
	}

	result, err := h.svc.Charge(charge)
	if err != nil {
		log.Printf("[RequestID: %s] Checkout payment for order %s failed: %v", requestID, order.OrderID, err)
		utils.SendErrorResponse(w, gatewayStatus(err), fmt.Sprintf("Payment failed: %v", err))
		return
	}

	if !result.Approved() {
		log.Printf("[RequestID: %s] Gateway returned unrecognized response code %q for order %s",
			requestID, result.ResponseCode, order.OrderID)
		utils.SendErrorResponse(w, http.StatusBadGateway, "Gateway returned an unrecognized response")
		return
	}

	status := models.TransactionStatusCaptured
	if result.Held() {
		status = models.TransactionStatusHeld
	}

	txn := &models.Transaction{
		ID:         uuid.New().String(),
		GatewayID:  result.TransactionID,
		Type:       models.TransactionTypeCapture,
		Amount:     order.Total,
		Status:     status,
		CardNumber: charge.Card.MaskedNumber(),
		CardType:   charge.Card.CardType(),
		AuthCode:   result.AuthorizationCode,
		AVSResult:  result.AVSResponse,
		CVVResult:  result.CVVResponse,
		OrderID:    order.OrderID,
	}

	if err := h.db.SaveTransaction(txn); err != nil {
		log.Printf("[RequestID: %s] Failed to save transaction %s (gateway %s): %v",
			requestID, txn.ID, txn.GatewayID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to record transaction")
		return
	}

	delete(session.Values, "order")
	if err := session.Save(r, w); err != nil {
		log.Printf("[RequestID: %s] Warning: Failed to clear order from session: %v", requestID, err)
	}

	log.Printf("[RequestID: %s] Checkout order %s paid, transaction %s (gateway %s)",
		requestID, order.OrderID, txn.ID, txn.GatewayID)

	utils.SendDataResponse(w, http.StatusOK, "Payment accepted", txn)
}
