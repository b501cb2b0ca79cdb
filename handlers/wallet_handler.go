package handlers

import (
	"net/http"
	"strconv"

	"github.com/arenaforge/esports-platform/middleware"
	"github.com/arenaforge/esports-platform/services"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	walletService *services.WalletService
}

func NewWalletHandler(walletService *services.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// BalanceHandler handles GET /wallet.
func (h *WalletHandler) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	wallet, err := h.walletService.GetBalance(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"wallet": wallet}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TransactionsHandler handles GET /wallet/transactions.
func (h *WalletHandler) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, convErr := strconv.Atoi(v); convErr == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, convErr := strconv.Atoi(v); convErr == nil && n >= 0 {
			offset = n
		}
	}

	transactions, err := h.walletService.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"transactions": transactions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type depositInput struct {
	UserID    int             `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// DepositHandler handles POST /wallet/deposits, the payment gateway
// callback. Gateway signature validation happens at the edge before this
// route is reached.
func (h *WalletHandler) DepositHandler(w http.ResponseWriter, r *http.Request) {
	var input depositInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	txn, err := h.walletService.Deposit(r.Context(), input.UserID, input.Amount, input.Reference)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"transaction": txn}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type withdrawalInput struct {
	Amount decimal.Decimal `json:"amount"`
}

// WithdrawHandler handles POST /wallet/withdrawals. The amount is held
// immediately; an admin later approves or rejects the request.
func (h *WalletHandler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input withdrawalInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	txn, err := h.walletService.RequestWithdrawal(r.Context(), userID, input.Amount)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"transaction": txn}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ApproveTransactionHandler handles POST /admin/transactions/{transactionID}/approve.
func (h *WalletHandler) ApproveTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "transactionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.walletService.ApproveTransaction(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "approved"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RejectTransactionHandler handles POST /admin/transactions/{transactionID}/reject.
func (h *WalletHandler) RejectTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "transactionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.walletService.RejectTransaction(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "rejected"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
