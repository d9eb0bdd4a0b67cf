package httpapi

import (
	"errors"
	"net/http"

	"canteen-be/internal/basket"
	"canteen-be/internal/canteen"
	"canteen-be/internal/logger"
	"canteen-be/internal/menu"
	"canteen-be/internal/order"
	"canteen-be/internal/user"
	"canteen-be/internal/utils"
	"canteen-be/internal/wallet"

	"go.uber.org/zap"
)

// Handler exposes the ordering core over JSON endpoints. Transport concerns
// only: identity comes from middleware, everything else is delegated.
type Handler struct {
	users    user.Service
	baskets  basket.Service
	orders   order.Service
	wallets  wallet.Service
	menus    menu.Repository
	canteens canteen.Repository
}

func NewHandler(
	users user.Service,
	baskets basket.Service,
	orders order.Service,
	wallets wallet.Service,
	menus menu.Repository,
	canteens canteen.Repository,
) *Handler {
	return &Handler{
		users:    users,
		baskets:  baskets,
		orders:   orders,
		wallets:  wallets,
		menus:    menus,
		canteens: canteens,
	}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", h.register)
	mux.HandleFunc("POST /auth/login", h.login)

	mux.HandleFunc("GET /canteens", h.listCanteens)
	mux.HandleFunc("GET /canteens/{id}/menu", h.getMenu)
	mux.HandleFunc("GET /canteens/{id}/orders", h.getCanteenOrders)

	mux.HandleFunc("GET /baskets", h.listBaskets)
	mux.HandleFunc("GET /baskets/{canteenID}", h.getBasket)
	mux.HandleFunc("DELETE /baskets/{canteenID}", h.clearBasket)
	mux.HandleFunc("POST /baskets/items", h.addToBasket)
	mux.HandleFunc("PATCH /baskets/items/{id}", h.updateBasketItem)
	mux.HandleFunc("DELETE /baskets/items/{id}", h.removeBasketItem)
	mux.HandleFunc("POST /baskets/{canteenID}/share", h.shareBasket)
	mux.HandleFunc("POST /baskets/join", h.joinBasket)
	mux.HandleFunc("POST /baskets/{canteenID}/leave", h.leaveBasket)

	mux.HandleFunc("POST /orders", h.placeOrder)
	mux.HandleFunc("GET /orders", h.getUserOrders)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("POST /orders/{id}/cancel", h.cancelOrder)
	mux.HandleFunc("PATCH /orders/{id}/status", h.updateOrderStatus)

	mux.HandleFunc("GET /wallets", h.getWallets)
	mux.HandleFunc("GET /wallets/transactions", h.getTransactions)
	mux.HandleFunc("POST /wallets/funds", h.addWalletFunds)

	return mux
}

// requireUser resolves the authenticated user or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok || userID == "" {
		utils.WriteJSONError(w, "authentication required", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

func requireRole(w http.ResponseWriter, r *http.Request, roles ...string) bool {
	role := utils.GetUserRoleFromContext(r.Context())
	for _, want := range roles {
		if role == want {
			return true
		}
	}
	utils.WriteJSONError(w, "insufficient role", http.StatusForbidden)
	return false
}

func pathID(r *http.Request, name string) (int64, error) {
	return utils.ToInt64(r.PathValue(name))
}

// writeError maps domain sentinels onto HTTP statuses so the client can tell
// "top up your wallet" from "your basket is empty".
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, basket.ErrBasketNotFound),
		errors.Is(err, basket.ErrLineNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrBasketNotFound),
		errors.Is(err, order.ErrWalletNotFound),
		errors.Is(err, wallet.ErrWalletNotFound),
		errors.Is(err, canteen.ErrCanteenNotFound),
		errors.Is(err, menu.ErrItemNotFound),
		errors.Is(err, menu.ErrVariantNotFound),
		errors.Is(err, menu.ErrAddonNotFound),
		errors.Is(err, user.ErrUserNotFound):
		status = http.StatusNotFound

	case errors.Is(err, basket.ErrForbidden),
		errors.Is(err, order.ErrForbidden):
		status = http.StatusForbidden

	case errors.Is(err, order.ErrInsufficientFunds):
		status = http.StatusPaymentRequired

	case errors.Is(err, order.ErrEmptyBasket),
		errors.Is(err, order.ErrInvalidState),
		errors.Is(err, canteen.ErrCanteenClosed):
		status = http.StatusConflict

	case errors.Is(err, basket.ErrInvalidQuantity),
		errors.Is(err, basket.ErrInvalidAccessCode),
		errors.Is(err, basket.ErrOwnShare),
		errors.Is(err, menu.ErrItemUnavailable),
		errors.Is(err, order.ErrInvalidPin),
		errors.Is(err, order.ErrInvalidPayment),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, user.ErrEmailExists):
		status = http.StatusBadRequest

	case errors.Is(err, user.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed", zap.Error(err))
		utils.WriteJSONError(w, "internal error", status)
		return
	}
	utils.WriteJSONError(w, err.Error(), status)
}
