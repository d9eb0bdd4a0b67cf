package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"canteen-be/internal/order"
	"canteen-be/internal/utils"
)

type orderItemResponse struct {
	MenuItemID   int64                `json:"menuItemId"`
	Name         string               `json:"name"`
	UnitPrice    string               `json:"unitPrice"`
	VariantName  *string              `json:"variantName,omitempty"`
	VariantPrice string               `json:"variantPrice"`
	Quantity     int                  `json:"quantity"`
	Subtotal     string               `json:"subtotal"`
	Addons       []orderAddonResponse `json:"addons"`
}

type orderAddonResponse struct {
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
}

type orderResponse struct {
	ID            int64               `json:"id"`
	OrderNumber   string              `json:"orderNumber"`
	UserID        string              `json:"userId"`
	CanteenID     int64               `json:"canteenId"`
	Status        string              `json:"status"`
	TotalAmount   string              `json:"totalAmount"`
	Prepaid       bool                `json:"prepaid"`
	Linked        bool                `json:"linked"`
	LinkingNumber *string             `json:"linkingNumber,omitempty"`
	OTP           string              `json:"otp,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	ConfirmedAt   *time.Time          `json:"confirmedAt,omitempty"`
	PreparedAt    *time.Time          `json:"preparedAt,omitempty"`
	ReadyAt       *time.Time          `json:"readyAt,omitempty"`
	CompletedAt   *time.Time          `json:"completedAt,omitempty"`
	CancelledAt   *time.Time          `json:"cancelledAt,omitempty"`
	CancelledBy   *string             `json:"cancelledBy,omitempty"`
	Items         []orderItemResponse `json:"items"`
}

// toOrderResponse shapes an order for the caller. The pickup code is shown
// only to the order's owner; staff learn it from the customer at the counter.
func toOrderResponse(o *order.Order, includeOTP bool) orderResponse {
	out := orderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		CanteenID:     o.CanteenID,
		Status:        string(o.Status),
		TotalAmount:   o.TotalAmount.StringFixed(2),
		Prepaid:       o.Prepaid,
		Linked:        o.Linked,
		LinkingNumber: o.LinkingNumber,
		CreatedAt:     o.CreatedAt,
		ConfirmedAt:   o.ConfirmedAt,
		PreparedAt:    o.PreparedAt,
		ReadyAt:       o.ReadyAt,
		CompletedAt:   o.CompletedAt,
		CancelledAt:   o.CancelledAt,
		CancelledBy:   o.CancelledBy,
		Items:         make([]orderItemResponse, 0, len(o.Items)),
	}
	if includeOTP {
		out.OTP = o.OTP
	}
	for _, it := range o.Items {
		item := orderItemResponse{
			MenuItemID:   it.MenuItemID,
			Name:         it.Name,
			UnitPrice:    it.UnitPrice.StringFixed(2),
			VariantName:  it.VariantName,
			VariantPrice: it.VariantPrice.StringFixed(2),
			Quantity:     it.Quantity,
			Subtotal:     it.Subtotal.StringFixed(2),
			Addons:       make([]orderAddonResponse, 0, len(it.Addons)),
		}
		for _, a := range it.Addons {
			item.Addons = append(item.Addons, orderAddonResponse{
				Name: a.Name, UnitPrice: a.UnitPrice.StringFixed(2),
			})
		}
		out.Items = append(out.Items, item)
	}
	return out
}

type placeOrderRequest struct {
	CanteenID     int64   `json:"canteenId"`
	PaymentMethod string  `json:"paymentMethod"`
	AccessCode    *string `json:"accessCode,omitempty"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.orders.PlaceOrder(r.Context(), userID, req.CanteenID, req.PaymentMethod, req.AccessCode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	orderNumbers := make([]string, 0, len(result.Orders))
	for _, o := range result.Orders {
		orderNumbers = append(orderNumbers, o.OrderNumber)
	}

	resp := map[string]any{"orderNumbers": orderNumbers}
	if result.LinkingNumber != nil {
		resp["linkingNumber"] = *result.LinkingNumber
	}
	utils.WriteJSON(w, resp, http.StatusCreated)
}

func (h *Handler) getUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := h.orders.GetUserOrders(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o, true))
	}
	utils.WriteJSON(w, out, http.StatusOK)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return
	}

	o, err := h.orders.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, toOrderResponse(o, true), http.StatusOK)
}

func (h *Handler) getCanteenOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	if !requireRole(w, r, utils.RoleCanteen, utils.RoleAdmin) {
		return
	}

	canteenID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSONError(w, "invalid canteen id", http.StatusBadRequest)
		return
	}

	// staff tokens are pinned to one canteen
	if staffCanteen, ok := utils.GetCanteenIDFromContext(r.Context()); ok && staffCanteen != canteenID {
		utils.WriteJSONError(w, "not your canteen", http.StatusForbidden)
		return
	}

	var statuses []order.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st := order.Status(strings.TrimSpace(s))
			if !st.Valid() {
				utils.WriteJSONError(w, "unknown order status", http.StatusBadRequest)
				return
			}
			statuses = append(statuses, st)
		}
	}

	orders, err := h.orders.GetCanteenOrders(r.Context(), canteenID, statuses)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o, false))
	}
	utils.WriteJSON(w, out, http.StatusOK)
}

type updateStatusRequest struct {
	Status string  `json:"status"`
	Pin    *string `json:"pin,omitempty"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !requireRole(w, r, utils.RoleCanteen, utils.RoleAdmin) {
		return
	}

	orderID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var actorCanteenID *int64
	if staffCanteen, ok := utils.GetCanteenIDFromContext(r.Context()); ok {
		actorCanteenID = &staffCanteen
	}

	if err := h.orders.UpdateStatus(r.Context(), userID, actorCanteenID, orderID, order.Status(req.Status), req.Pin); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return
	}

	if err := h.orders.Cancel(r.Context(), userID, orderID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
