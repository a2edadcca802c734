package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/wolfauto/marketer/internal/models"
	"github.com/wolfauto/marketer/internal/payments"
	"github.com/wolfauto/marketer/internal/storage"
)

// WalletHandler serves /api/wallet.
type WalletHandler struct {
	store  storage.Store
	wallet *payments.Service
	logger *slog.Logger
}

// NewWalletHandler creates a wallet handler.
func NewWalletHandler(store storage.Store, wallet *payments.Service, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{store: store, wallet: wallet, logger: logger}
}

// HandleWallet handles GET /api/wallet: balance plus the remaining daily
// withdrawal allowance.
func (h *WalletHandler) HandleWallet(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	balance, err := h.wallet.Balance(r.Context())
	if err != nil {
		writeInternalError(w, h.logger, "failed to read balance", err)
		return
	}
	remaining, err := h.wallet.RemainingToday(r.Context())
	if err != nil {
		writeInternalError(w, h.logger, "failed to compute remaining allowance", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance_cents":   balance,
		"balance":         balance.String(),
		"remaining_today": remaining.String(),
	})
}

type withdrawRequest struct {
	AmountCents models.Cents `json:"amount_cents"`
	Method      string       `json:"method"`
}

// HandleWithdraw handles POST /api/wallet/withdraw. Limit violations come
// back as 400s carrying the remaining allowance; they never touch the
// balance.
func (h *WalletHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, "method is required")
		return
	}

	withdrawal, err := h.wallet.Withdraw(r.Context(), req.AmountCents, req.Method)
	if err != nil {
		var limitErr *payments.LimitError
		switch {
		case errors.As(err, &limitErr):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":           limitErr.Error(),
				"remaining_today": limitErr.Remaining.String(),
			})
		case errors.Is(err, payments.ErrInsufficientBalance):
			writeError(w, http.StatusBadRequest, "Insufficient balance")
		default:
			writeInternalError(w, h.logger, "withdrawal failed", err)
		}
		return
	}

	h.logActivity(r, models.Activity{
		Type:  models.ActivityTypePayment,
		Title: "Withdrew $" + withdrawal.Amount.String() + " via " + withdrawal.Method,
		Data:  map[string]interface{}{"withdrawal_id": withdrawal.ID},
	})
	writeJSON(w, http.StatusCreated, withdrawal)
}

func (h *WalletHandler) logActivity(r *http.Request, a models.Activity) {
	if _, err := h.store.LogActivity(r.Context(), a); err != nil {
		h.logger.Error("failed to log activity", "title", a.Title, "error", err)
	}
}
