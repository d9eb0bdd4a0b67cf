package httpapi

import (
	"encoding/json"
	"net/http"

	"canteen-be/internal/basket"
	"canteen-be/internal/utils"
)

type basketLineResponse struct {
	ID           int64                 `json:"id"`
	MenuItemID   int64                 `json:"menuItemId"`
	Name         string                `json:"name"`
	Price        string                `json:"price"`
	VariantID    *int64                `json:"variantId,omitempty"`
	VariantName  *string               `json:"variantName,omitempty"`
	VariantPrice *string               `json:"variantPrice,omitempty"`
	Quantity     int                   `json:"quantity"`
	AddedBy      string                `json:"addedBy"`
	Addons       []basketAddonResponse `json:"addons"`
}

type basketAddonResponse struct {
	AddonID int64  `json:"addonId"`
	Name    string `json:"name"`
	Price   string `json:"price"`
}

func toBasketLineResponse(l *basket.Line) basketLineResponse {
	out := basketLineResponse{
		ID:         l.ID,
		MenuItemID: l.MenuItemID,
		Name:       l.MenuItemName,
		Price:      l.MenuItemPrice.StringFixed(2),
		VariantID:  l.VariantID,
		Quantity:   l.Quantity,
		AddedBy:    l.AddedBy,
		Addons:     make([]basketAddonResponse, 0, len(l.Addons)),
	}
	if l.VariantName != nil {
		out.VariantName = l.VariantName
	}
	if l.VariantPrice != nil {
		p := l.VariantPrice.StringFixed(2)
		out.VariantPrice = &p
	}
	for _, a := range l.Addons {
		out.Addons = append(out.Addons, basketAddonResponse{
			AddonID: a.AddonID, Name: a.Name, Price: a.Price.StringFixed(2),
		})
	}
	return out
}

type basketResponse struct {
	ID         string  `json:"id"`
	CanteenID  int64   `json:"canteenId"`
	AccessCode *string `json:"accessCode,omitempty"`
	Shared     bool    `json:"shared"`
}

func (h *Handler) listBaskets(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	baskets, err := h.baskets.GetBaskets(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]basketResponse, 0, len(baskets))
	for _, b := range baskets {
		out = append(out, basketResponse{
			ID:         b.ID,
			CanteenID:  b.CanteenID,
			AccessCode: b.AccessCode,
			Shared:     b.AccessCode != nil,
		})
	}
	utils.WriteJSON(w, out, http.StatusOK)
}

func (h *Handler) getBasket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	canteenID, err := pathID(r, "canteenID")
	if err != nil {
		utils.WriteJSONError(w, "invalid canteen id", http.StatusBadRequest)
		return
	}

	lines, err := h.baskets.GetBasketLines(r.Context(), userID, canteenID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]basketLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, toBasketLineResponse(l))
	}
	utils.WriteJSON(w, out, http.StatusOK)
}

type addToBasketRequest struct {
	CanteenID  int64   `json:"canteenId"`
	MenuItemID int64   `json:"menuItemId"`
	VariantID  *int64  `json:"variantId,omitempty"`
	Quantity   int     `json:"quantity"`
	AddonIDs   []int64 `json:"addonIds"`
}

func (h *Handler) addToBasket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req addToBasketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.baskets.AddItem(r.Context(), basket.AddItemParams{
		UserID:     userID,
		CanteenID:  req.CanteenID,
		MenuItemID: req.MenuItemID,
		VariantID:  req.VariantID,
		Quantity:   req.Quantity,
		AddonIDs:   req.AddonIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) updateBasketItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	lineID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSONError(w, "invalid basket item id", http.StatusBadRequest)
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.baskets.UpdateQuantity(r.Context(), userID, lineID, req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeBasketItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	lineID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSONError(w, "invalid basket item id", http.StatusBadRequest)
		return
	}

	if err := h.baskets.RemoveItem(r.Context(), userID, lineID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearBasket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	canteenID, err := pathID(r, "canteenID")
	if err != nil {
		utils.WriteJSONError(w, "invalid canteen id", http.StatusBadRequest)
		return
	}

	if err := h.baskets.Clear(r.Context(), userID, canteenID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) shareBasket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	canteenID, err := pathID(r, "canteenID")
	if err != nil {
		utils.WriteJSONError(w, "invalid canteen id", http.StatusBadRequest)
		return
	}

	code, err := h.baskets.Share(r.Context(), userID, canteenID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, map[string]string{"accessCode": code}, http.StatusOK)
}

type joinBasketRequest struct {
	AccessCode string `json:"accessCode"`
}

func (h *Handler) joinBasket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req joinBasketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.baskets.Join(r.Context(), userID, req.AccessCode); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) leaveBasket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	canteenID, err := pathID(r, "canteenID")
	if err != nil {
		utils.WriteJSONError(w, "invalid canteen id", http.StatusBadRequest)
		return
	}

	if err := h.baskets.Leave(r.Context(), userID, canteenID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
