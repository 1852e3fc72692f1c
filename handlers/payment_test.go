package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbor-payment-api/database"
	"arbor-payment-api/models"
	"arbor-payment-api/queue"
	"arbor-payment-api/services/payment"
	"arbor-payment-api/services/payment/authorizenet"
)

func testCard() models.CreditCard {
	return models.CreditCard{
		Number:    "4111111111111111",
		ExpMonth:  12,
		ExpYear:   2030,
		CVV:       "123",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func approvedResult() *authorizenet.TransactionResult {
	return &authorizenet.TransactionResult{
		ResponseCode:      "1",
		AuthorizationCode: "ABC123",
		AVSResponse:       "Y",
		TransactionID:     "2171062816",
	}
}

func declinedError() error {
	return &authorizenet.GatewayError{
		Kind:    authorizenet.ErrorKindResponse,
		Code:    "2",
		Message: "This transaction has been declined.",
	}
}

func connectionError() error {
	return &authorizenet.GatewayError{
		Kind:    authorizenet.ErrorKindConnection,
		Message: "gateway request failed: connection refused",
	}
}

type refundCall struct {
	txnID  string
	last4  string
	amount float64
}

type fakeChargeService struct {
	chargeResult *authorizenet.TransactionResult
	chargeErr    error
	lastCharge   models.ChargeRequest
	chargeCalled bool

	settleErr        error
	lastSettleID     string
	lastSettleAmount *float64

	refundErr  error
	lastRefund refundCall

	voidErr    error
	lastVoidID string

	profileRefundErr    error
	profileRefundCalled bool
	profileVoidErr      error
	profileVoidCalled   bool
}

func (f *fakeChargeService) Charge(req *models.ChargeRequest) (*authorizenet.TransactionResult, error) {
	f.chargeCalled = true
	f.lastCharge = *req
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	if f.chargeResult != nil {
		return f.chargeResult, nil
	}
	return approvedResult(), nil
}

func (f *fakeChargeService) Settle(transactionID string, amount *float64) (*authorizenet.TransactionResult, error) {
	f.lastSettleID, f.lastSettleAmount = transactionID, amount
	if f.settleErr != nil {
		return nil, f.settleErr
	}
	return approvedResult(), nil
}

func (f *fakeChargeService) Refund(transactionID, cardLast4 string, amount float64) (*authorizenet.TransactionResult, error) {
	f.lastRefund = refundCall{txnID: transactionID, last4: cardLast4, amount: amount}
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return approvedResult(), nil
}

func (f *fakeChargeService) Void(transactionID string) (*authorizenet.TransactionResult, error) {
	f.lastVoidID = transactionID
	if f.voidErr != nil {
		return nil, f.voidErr
	}
	return approvedResult(), nil
}

func (f *fakeChargeService) RefundProfile(customerProfileID, paymentProfileID, transactionID string, amount float64) (*authorizenet.TransactionResult, error) {
	f.profileRefundCalled = true
	if f.profileRefundErr != nil {
		return nil, f.profileRefundErr
	}
	return approvedResult(), nil
}

func (f *fakeChargeService) VoidProfile(customerProfileID, paymentProfileID, transactionID string) (*authorizenet.TransactionResult, error) {
	f.profileVoidCalled = true
	if f.profileVoidErr != nil {
		return nil, f.profileVoidErr
	}
	return approvedResult(), nil
}

type fakeTxnStore struct {
	txns       map[string]*models.Transaction
	saved      []*models.Transaction
	statuses   map[string]string
	amounts    map[string]float64
	saveErr    error
	lockDenied bool
	released   []string
}

func newFakeTxnStore(txns ...*models.Transaction) *fakeTxnStore {
	s := &fakeTxnStore{
		txns:     make(map[string]*models.Transaction),
		statuses: make(map[string]string),
		amounts:  make(map[string]float64),
	}
	for _, t := range txns {
		s.txns[t.ID] = t
	}
	return s
}

func (f *fakeTxnStore) SaveTransaction(txn *models.Transaction) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, txn)
	f.txns[txn.ID] = txn
	return nil
}

func (f *fakeTxnStore) GetTransaction(id string) (*models.Transaction, error) {
	t, ok := f.txns[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTxnStore) UpdateTransactionStatus(id, status string) error {
	t, ok := f.txns[id]
	if !ok {
		return database.ErrNotFound
	}
	t.Status = status
	f.statuses[id] = status
	return nil
}

func (f *fakeTxnStore) UpdateTransactionAmount(id string, amount float64) error {
	t, ok := f.txns[id]
	if !ok {
		return database.ErrNotFound
	}
	t.Amount = amount
	f.amounts[id] = amount
	return nil
}

func (f *fakeTxnStore) LockTransaction(transactionID string) (bool, error) {
	return !f.lockDenied, nil
}

func (f *fakeTxnStore) ReleaseTransactionLock(transactionID string) error {
	f.released = append(f.released, transactionID)
	return nil
}

type enqueuedJob struct {
	jobType queue.JobType
	data    map[string]interface{}
	delay   time.Duration
	delayed bool
}

type fakeJobQueue struct {
	jobs       []enqueuedJob
	enqueueErr error
}

func (f *fakeJobQueue) Enqueue(ctx context.Context, jobType queue.JobType, data map[string]interface{}) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.jobs = append(f.jobs, enqueuedJob{jobType: jobType, data: data})
	return nil
}

func (f *fakeJobQueue) EnqueueDelayed(ctx context.Context, jobType queue.JobType, data map[string]interface{}, delay time.Duration) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.jobs = append(f.jobs, enqueuedJob{jobType: jobType, data: data, delay: delay, delayed: true})
	return nil
}

func newChargeRouter(h *PaymentHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/charges", h.CreateCharge).Methods("POST")
	r.HandleFunc("/charges/{id}", h.GetCharge).Methods("GET")
	r.HandleFunc("/charges/{id}/capture", h.CaptureCharge).Methods("POST")
	r.HandleFunc("/charges/{id}/refund", h.RefundCharge).Methods("POST")
	r.HandleFunc("/charges/{id}/void", h.VoidCharge).Methods("POST")
	return r
}

func jsonRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, url, nil)
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, url, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func TestCreateChargeAuthOnly(t *testing.T) {
	svc := &fakeChargeService{}
	store := newFakeTxnStore()
	q := &fakeJobQueue{}
	h, err := NewPaymentHandler(store, svc, q)
	require.NoError(t, err)

	req := jsonRequest(t, "POST", "/charges", models.ChargeRequest{
		Amount:  20.50,
		Card:    testCard(),
		OrderID: "ord-1",
	})
	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, store.saved, 1)

	txn := store.saved[0]
	assert.Equal(t, models.TransactionStatusAuthorized, txn.Status)
	assert.Equal(t, models.TransactionTypeAuthorize, txn.Type)
	assert.Equal(t, "XXXX1111", txn.CardNumber)
	assert.Equal(t, "2171062816", txn.GatewayID)
	assert.Equal(t, "ord-1", txn.OrderID)

	// An auth-only charge gets a delayed void so the hold is released.
	require.Len(t, q.jobs, 1)
	assert.Equal(t, queue.JobTypeVoidTransaction, q.jobs[0].jobType)
	assert.True(t, q.jobs[0].delayed)
	assert.Equal(t, authReleaseWindow, q.jobs[0].delay)
}

func TestCreateChargeWithCaptureQueuesSettlement(t *testing.T) {
	svc := &fakeChargeService{}
	store := newFakeTxnStore()
	q := &fakeJobQueue{}
	h, err := NewPaymentHandler(store, svc, q)
	require.NoError(t, err)

	req := jsonRequest(t, "POST", "/charges", models.ChargeRequest{
		Amount:  20.50,
		Capture: true,
		Card:    testCard(),
	})
	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	// The gateway call is always auth-only; settlement runs on the worker.
	assert.False(t, svc.lastCharge.Capture)

	require.Len(t, store.saved, 1)
	assert.Equal(t, models.TransactionStatusSettling, store.saved[0].Status)

	require.Len(t, q.jobs, 1)
	assert.Equal(t, queue.JobTypeSettleTransaction, q.jobs[0].jobType)
	assert.False(t, q.jobs[0].delayed)
	assert.Equal(t, store.saved[0].ID, q.jobs[0].data["transaction_id"])
	assert.Equal(t, "2171062816", q.jobs[0].data["gateway_transaction_id"])
}

func TestCreateChargeHeldForReview(t *testing.T) {
	result := approvedResult()
	result.ResponseCode = "4"
	svc := &fakeChargeService{chargeResult: result}
	store := newFakeTxnStore()
	q := &fakeJobQueue{}
	h, err := NewPaymentHandler(store, svc, q)
	require.NoError(t, err)

	req := jsonRequest(t, "POST", "/charges", models.ChargeRequest{
		Amount:  20.50,
		Capture: true,
		Card:    testCard(),
	})
	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, store.saved, 1)
	assert.Equal(t, models.TransactionStatusHeld, store.saved[0].Status)

	// Held charges wait for review; nothing gets queued.
	assert.Empty(t, q.jobs)
}

func TestCreateChargeUnknownResponseCode(t *testing.T) {
	result := approvedResult()
	result.ResponseCode = "5"
	svc := &fakeChargeService{chargeResult: result}
	store := newFakeTxnStore()
	q := &fakeJobQueue{}
	h, err := NewPaymentHandler(store, svc, q)
	require.NoError(t, err)

	req := jsonRequest(t, "POST", "/charges", models.ChargeRequest{
		Amount:  20.50,
		Capture: true,
		Card:    testCard(),
	})
	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, req)

	// A response code outside the documented set is not an authorization;
	// nothing is recorded or queued.
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Empty(t, store.saved)
	assert.Empty(t, q.jobs)
}

func TestCreateChargeDeclined(t *testing.T) {
	svc := &fakeChargeService{chargeErr: declinedError()}
	store := newFakeTxnStore()
	h, err := NewPaymentHandler(store, svc, &fakeJobQueue{})
	require.NoError(t, err)

	req := jsonRequest(t, "POST", "/charges", models.ChargeRequest{Amount: 20.50, Card: testCard()})
	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	assert.Empty(t, store.saved)
	assert.Equal(t, "error", decodeResponse(t, rr).Status)
}

func TestCreateChargeGatewayUnreachable(t *testing.T) {
	svc := &fakeChargeService{chargeErr: connectionError()}
	h, err := NewPaymentHandler(newFakeTxnStore(), svc, &fakeJobQueue{})
	require.NoError(t, err)

	req := jsonRequest(t, "POST", "/charges", models.ChargeRequest{Amount: 20.50, Card: testCard()})
	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestCreateChargeValidationFailure(t *testing.T) {
	svc := &fakeChargeService{chargeErr: payment.ErrInvalidAmount}
	h, err := NewPaymentHandler(newFakeTxnStore(), svc, &fakeJobQueue{})
	require.NoError(t, err)

	req := jsonRequest(t, "POST", "/charges", models.ChargeRequest{Amount: -1, Card: testCard()})
	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateChargeBadBody(t *testing.T) {
	h, err := NewPaymentHandler(newFakeTxnStore(), &fakeChargeService{}, &fakeJobQueue{})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/charges", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetCharge(t *testing.T) {
	txn := &models.Transaction{ID: "t1", GatewayID: "2171062816", Status: models.TransactionStatusAuthorized}
	h, err := NewPaymentHandler(newFakeTxnStore(txn), &fakeChargeService{}, &fakeJobQueue{})
	require.NoError(t, err)
	router := newChargeRouter(h)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/charges/t1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "success", decodeResponse(t, rr).Status)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/charges/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCaptureCharge(t *testing.T) {
	txn := &models.Transaction{
		ID:        "t1",
		GatewayID: "2171062816",
		Amount:    30,
		Status:    models.TransactionStatusSettling,
	}
	svc := &fakeChargeService{}
	store := newFakeTxnStore(txn)
	h, err := NewPaymentHandler(store, svc, &fakeJobQueue{})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, httptest.NewRequest("POST", "/charges/t1/capture", nil))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, models.TransactionStatusCaptured, store.statuses["t1"])
	assert.Equal(t, "2171062816", svc.lastSettleID)
	assert.Nil(t, svc.lastSettleAmount)
	assert.Contains(t, store.released, "t1")
}

func TestCaptureChargePartialAmount(t *testing.T) {
	txn := &models.Transaction{
		ID:        "t1",
		GatewayID: "2171062816",
		Amount:    30,
		Status:    models.TransactionStatusAuthorized,
	}
	svc := &fakeChargeService{}
	store := newFakeTxnStore(txn)
	h, err := NewPaymentHandler(store, svc, &fakeJobQueue{})
	require.NoError(t, err)

	req := jsonRequest(t, "POST", "/charges/t1/capture", models.CaptureRequest{Amount: ptrFloat(12.5)})
	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NotNil(t, svc.lastSettleAmount)
	assert.Equal(t, 12.5, *svc.lastSettleAmount)
	assert.Equal(t, 12.5, store.amounts["t1"])
}

func TestCaptureChargeRejectsOversizedAmount(t *testing.T) {
	txn := &models.Transaction{ID: "t1", GatewayID: "g", Amount: 30, Status: models.TransactionStatusAuthorized}
	h, err := NewPaymentHandler(newFakeTxnStore(txn), &fakeChargeService{}, &fakeJobQueue{})
	require.NoError(t, err)

	req := jsonRequest(t, "POST", "/charges/t1/capture", models.CaptureRequest{Amount: ptrFloat(31)})
	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCaptureChargeWrongState(t *testing.T) {
	txn := &models.Transaction{ID: "t1", GatewayID: "g", Amount: 30, Status: models.TransactionStatusCaptured}
	h, err := NewPaymentHandler(newFakeTxnStore(txn), &fakeChargeService{}, &fakeJobQueue{})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, httptest.NewRequest("POST", "/charges/t1/capture", nil))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCaptureChargeLocked(t *testing.T) {
	txn := &models.Transaction{ID: "t1", GatewayID: "g", Amount: 30, Status: models.TransactionStatusSettling}
	store := newFakeTxnStore(txn)
	store.lockDenied = true
	h, err := NewPaymentHandler(store, &fakeChargeService{}, &fakeJobQueue{})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, httptest.NewRequest("POST", "/charges/t1/capture", nil))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCaptureChargeDeclineMarksFailed(t *testing.T) {
	txn := &models.Transaction{ID: "t1", GatewayID: "g", Amount: 30, Status: models.TransactionStatusSettling}
	svc := &fakeChargeService{settleErr: declinedError()}
	store := newFakeTxnStore(txn)
	h, err := NewPaymentHandler(store, svc, &fakeJobQueue{})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, httptest.NewRequest("POST", "/charges/t1/capture", nil))

	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	assert.Equal(t, models.TransactionStatusFailed, store.statuses["t1"])
}

func TestRefundCharge(t *testing.T) {
	txn := &models.Transaction{
		ID:         "t1",
		GatewayID:  "2171062816",
		Amount:     30,
		Status:     models.TransactionStatusCaptured,
		CardNumber: "XXXX1111",
	}
	svc := &fakeChargeService{}
	store := newFakeTxnStore(txn)
	h, err := NewPaymentHandler(store, svc, &fakeJobQueue{})
	require.NoError(t, err)

	req := jsonRequest(t, "POST", "/charges/t1/refund", models.RefundRequest{Amount: 30, CardLast4: "1111"})
	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, models.TransactionStatusRefunded, store.statuses["t1"])
	assert.Equal(t, refundCall{txnID: "2171062816", last4: "1111", amount: 30}, svc.lastRefund)
	assert.False(t, svc.profileRefundCalled)
}

func TestRefundChargeWrongLast4(t *testing.T) {
	txn := &models.Transaction{
		ID: "t1", GatewayID: "g", Amount: 30,
		Status: models.TransactionStatusCaptured, CardNumber: "XXXX1111",
	}
	svc := &fakeChargeService{}
	h, err := NewPaymentHandler(newFakeTxnStore(txn), svc, &fakeJobQueue{})
	require.NoError(t, err)

	req := jsonRequest(t, "POST", "/charges/t1/refund", models.RefundRequest{Amount: 30, CardLast4: "2222"})
	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, svc.lastRefund.txnID)
}

func TestRefundChargeUsesProfileWhenStored(t *testing.T) {
	txn := &models.Transaction{
		ID: "t1", GatewayID: "g", Amount: 30,
		Status:            models.TransactionStatusCaptured,
		CardNumber:        "XXXX1111",
		CustomerProfileID: "123456",
		PaymentProfileID:  "654321",
	}
	svc := &fakeChargeService{}
	store := newFakeTxnStore(txn)
	h, err := NewPaymentHandler(store, svc, &fakeJobQueue{})
	require.NoError(t, err)

	req := jsonRequest(t, "POST", "/charges/t1/refund", models.RefundRequest{Amount: 30})
	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, svc.profileRefundCalled)
	assert.Empty(t, svc.lastRefund.txnID)
	assert.Equal(t, models.TransactionStatusRefunded, store.statuses["t1"])
}

func TestRefundChargeWrongState(t *testing.T) {
	txn := &models.Transaction{ID: "t1", GatewayID: "g", Amount: 30, Status: models.TransactionStatusAuthorized}
	h, err := NewPaymentHandler(newFakeTxnStore(txn), &fakeChargeService{}, &fakeJobQueue{})
	require.NoError(t, err)

	req := jsonRequest(t, "POST", "/charges/t1/refund", models.RefundRequest{Amount: 30, CardLast4: "1111"})
	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestVoidCharge(t *testing.T) {
	txn := &models.Transaction{ID: "t1", GatewayID: "2171062816", Amount: 30, Status: models.TransactionStatusAuthorized}
	svc := &fakeChargeService{}
	store := newFakeTxnStore(txn)
	h, err := NewPaymentHandler(store, svc, &fakeJobQueue{})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, httptest.NewRequest("POST", "/charges/t1/void", nil))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, models.TransactionStatusVoided, store.statuses["t1"])
	assert.Equal(t, "2171062816", svc.lastVoidID)
}

func TestVoidChargeCapturedConflicts(t *testing.T) {
	txn := &models.Transaction{ID: "t1", GatewayID: "g", Amount: 30, Status: models.TransactionStatusCaptured}
	svc := &fakeChargeService{}
	h, err := NewPaymentHandler(newFakeTxnStore(txn), svc, &fakeJobQueue{})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, httptest.NewRequest("POST", "/charges/t1/void", nil))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Empty(t, svc.lastVoidID)
}

func TestVoidChargeUsesProfileWhenStored(t *testing.T) {
	txn := &models.Transaction{
		ID: "t1", GatewayID: "g", Amount: 30,
		Status:            models.TransactionStatusAuthorized,
		CustomerProfileID: "123456",
		PaymentProfileID:  "654321",
	}
	svc := &fakeChargeService{}
	h, err := NewPaymentHandler(newFakeTxnStore(txn), svc, &fakeJobQueue{})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	newChargeRouter(h).ServeHTTP(rr, httptest.NewRequest("POST", "/charges/t1/void", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, svc.profileVoidCalled)
	assert.Empty(t, svc.lastVoidID)
}

func ptrFloat(f float64) *float64 { return &f }
