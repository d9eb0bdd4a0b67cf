package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"canteen-be/internal/utils"
	"canteen-be/internal/wallet"

	"github.com/shopspring/decimal"
)

type walletResponse struct {
	ID        int64  `json:"id"`
	CanteenID int64  `json:"canteenId"`
	Balance   string `json:"balance"`
}

func (h *Handler) getWallets(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	wallets, err := h.wallets.GetWallets(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]walletResponse, 0, len(wallets))
	for _, wl := range wallets {
		out = append(out, walletResponse{ID: wl.ID, CanteenID: wl.CanteenID, Balance: wl.Balance.StringFixed(2)})
	}
	utils.WriteJSON(w, out, http.StatusOK)
}

type transactionResponse struct {
	ID          int64     `json:"id"`
	WalletID    int64     `json:"walletId"`
	Amount      string    `json:"amount"`
	Reference   string    `json:"reference"`
	PerformedBy string    `json:"performedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *Handler) getTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := h.wallets.GetTransactions(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{
			ID:          tx.ID,
			WalletID:    tx.WalletID,
			Amount:      tx.Amount.StringFixed(2),
			Reference:   tx.Reference,
			PerformedBy: tx.PerformedBy,
			CreatedAt:   tx.CreatedAt,
		})
	}
	utils.WriteJSON(w, out, http.StatusOK)
}

type addFundsRequest struct {
	UserID    string `json:"userId"`
	CanteenID int64  `json:"canteenId"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

func (h *Handler) addWalletFunds(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !requireRole(w, r, utils.RoleAdmin) {
		return
	}

	var req addFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, r, wallet.ErrInvalidAmount)
		return
	}

	if err := h.wallets.AddFunds(r.Context(), adminID, req.UserID, req.CanteenID, amount, req.Reference); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
