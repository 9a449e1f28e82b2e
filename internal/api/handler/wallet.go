// internal/api/handler/wallet.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront-wallet/internal/api/types"
	"storefront-wallet/internal/currency"
	"storefront-wallet/internal/domain"
	"storefront-wallet/internal/service"
	"storefront-wallet/internal/util"
)

// DefaultTimeout bounds one inbound request end to end.
const DefaultTimeout = 60 * time.Second

// WalletHandler handles HTTP requests for the wallet ledger.
type WalletHandler struct {
	service   service.WalletService
	converter currency.Converter
	logger    *slog.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(svc service.WalletService, converter currency.Converter, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		service:   svc,
		converter: converter,
		logger:    logger,
	}
}

// Helper function to send JSON responses.
func (h *WalletHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to send error responses.
func (h *WalletHandler) respondWithError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrInvalidInput), util.IsError(err, util.ErrInvalidAmount), util.IsError(err, util.ErrUnsupportedCurrency):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case util.IsError(err, util.ErrNotFound), util.IsError(err, util.ErrWalletNotFound), util.IsError(err, util.ErrUserNotFound):
		statusCode = http.StatusNotFound
		message = "Resource not found"
	case util.IsError(err, util.ErrInsufficientFunds):
		statusCode = http.StatusPaymentRequired // 402 Payment Required
		message = "Insufficient funds"
	case util.IsError(err, util.ErrDuplicateEntry):
		statusCode = http.StatusConflict
		message = "Duplicate entry"
	default:
		h.logger.Error("Unhandled service error", "error", err)
	}

	h.respondWithJSON(w, statusCode, map[string]string{"error": message})
}

func (h *WalletHandler) userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return 0, false
	}
	return userID, true
}

// CreateUserRequest represents the request body for user creation.
type CreateUserRequest struct {
	Username string `json:"username"`
	Currency string `json:"currency"`
}

// CreateUser handles the create user request.
// POST /users
func (h *WalletHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}
	if req.Username == "" {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	user, wallet, err := h.service.CreateUserAndWallet(r.Context(), req.Username, req.Currency)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"user_id":            user.ID,
		"username":           user.Username,
		"wallet_id":          wallet.ID,
		"preferred_currency": wallet.PreferredCurrency,
		"balance":            wallet.Balance,
	})
}

// GetWallet handles the get wallet balance request.
// GET /wallets/{userID}
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	wallet, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":            wallet.UserID,
		"balance":            wallet.Balance,
		"preferred_currency": wallet.PreferredCurrency,
	})
}

// TopUpRequest represents the request body for a wallet top-up.
type TopUpRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Reference string          `json:"reference"`
}

// TopUp handles the top-up request. The amount must meet the $1-equivalent
// minimum in the chosen currency. A client-supplied reference makes the
// top-up idempotent; absent one, a fresh reference is generated.
// POST /wallets/{userID}/topup
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	var req TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		h.respondWithError(w, util.ErrInvalidAmount)
		return
	}
	if req.Currency == "" || !currency.IsSupported(req.Currency) {
		h.respondWithError(w, util.ErrUnsupportedCurrency)
		return
	}

	minAmount := h.service.MinTopUp(r.Context(), req.Currency)
	if req.Amount.LessThan(minAmount) {
		h.respondWithJSON(w, http.StatusBadRequest, map[string]string{
			"error": "amount below minimum top-up of " + minAmount.StringFixed(2) + " " + req.Currency,
		})
		return
	}

	reference := req.Reference
	if reference == "" {
		reference = uuid.NewString()
	}

	wallet, transaction, err := h.service.Credit(r.Context(), userID, req.Amount, req.Currency,
		domain.TransactionKindTopUp, "Wallet top-up "+req.Amount.StringFixed(2)+" "+req.Currency, &reference)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Top-up successful",
		"user_id":        wallet.UserID,
		"new_balance":    wallet.Balance,
		"currency":       wallet.PreferredCurrency,
		"credited":       transaction.Amount,
		"transaction_id": transaction.ID,
		"reference":      reference,
	})
}

// ChargeRequest represents the request body for a checkout charge.
type ChargeRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
}

// Charge handles the checkout debit request.
// POST /wallets/{userID}/charge
func (h *WalletHandler) Charge(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	var req ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		h.respondWithError(w, util.ErrInvalidAmount)
		return
	}
	if req.Currency == "" || !currency.IsSupported(req.Currency) {
		h.respondWithError(w, util.ErrUnsupportedCurrency)
		return
	}

	var reference *string
	if req.Reference != "" {
		reference = &req.Reference
	}

	wallet, transaction, err := h.service.Debit(r.Context(), userID, req.Amount, req.Currency,
		false, domain.TransactionKindPurchaseDeduct, req.Description, reference)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Charge successful",
		"user_id":        wallet.UserID,
		"new_balance":    wallet.Balance,
		"currency":       wallet.PreferredCurrency,
		"charged":        transaction.Amount.Neg(),
		"transaction_id": transaction.ID,
	})
}

// ChangeCurrencyRequest represents the request body for a currency change.
type ChangeCurrencyRequest struct {
	Currency string `json:"currency"`
}

// ChangeCurrency handles the preferred currency change request.
// PUT /wallets/{userID}/currency
func (h *WalletHandler) ChangeCurrency(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	var req ChangeCurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}
	if req.Currency == "" {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	wallet, err := h.service.ChangePreferredCurrency(r.Context(), userID, req.Currency)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":            "Preferred currency updated",
		"user_id":            wallet.UserID,
		"preferred_currency": wallet.PreferredCurrency,
		"balance":            wallet.Balance,
	})
}

// GetTransactionHistory handles the transaction history request.
// GET /wallets/{userID}/transactions?kind=&from=&to=&limit=&offset=
func (h *WalletHandler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 25
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	filter := domain.TransactionFilter{
		Kind: domain.TransactionKind(r.URL.Query().Get("kind")),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			h.respondWithError(w, util.ErrInvalidInput)
			return
		}
		filter.From = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			h.respondWithError(w, util.ErrInvalidInput)
			return
		}
		// Inclusive end date: history rows strictly before the next day.
		t = t.AddDate(0, 0, 1)
		filter.To = &t
	}

	transactions, totalCount, err := h.service.GetTransactionHistory(r.Context(), userID, filter, limit, offset)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[domain.WalletTransaction]{
		Data:       transactions,
		Limit:      limit,
		Offset:     offset,
		TotalCount: totalCount,
	})
}

// ConvertQuote handles the read-only conversion quote used by price display.
// GET /rates/convert?amount=&from=&to=
func (h *WalletHandler) ConvertQuote(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	converted, convErr := h.converter.Convert(r.Context(), amount, from, to)
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"amount":    amount,
		"from":      from,
		"to":        to,
		"converted": converted,
		// True when the resolver degraded to the identity conversion.
		"approximate": convErr != nil,
	})
}
