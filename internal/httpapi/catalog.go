package httpapi

import (
	"net/http"

	"canteen-be/internal/canteen"
	"canteen-be/internal/menu"
	"canteen-be/internal/utils"
)

type canteenResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Acronym string `json:"acronym"`
	Timings string `json:"timings"`
	IsOpen  bool   `json:"isOpen"`
}

func toCanteenResponse(c *canteen.Canteen) canteenResponse {
	return canteenResponse{
		ID:      c.ID,
		Name:    c.Name,
		Acronym: c.Acronym,
		Timings: c.Timings,
		IsOpen:  c.IsOpen,
	}
}

func (h *Handler) listCanteens(w http.ResponseWriter, r *http.Request) {
	canteens, err := h.canteens.ListActive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]canteenResponse, 0, len(canteens))
	for _, c := range canteens {
		out = append(out, toCanteenResponse(c))
	}
	utils.WriteJSON(w, out, http.StatusOK)
}

type variantResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	IsAvailable bool   `json:"isAvailable"`
}

type addonResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Type        string `json:"type"`
	IsAvailable bool   `json:"isAvailable"`
}

type menuItemResponse struct {
	ID          int64             `json:"id"`
	Category    string            `json:"category"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       string            `json:"price"`
	IsNonVeg    bool              `json:"isNonVeg"`
	IsAvailable bool              `json:"isAvailable"`
	Variants    []variantResponse `json:"variants"`
	Addons      []addonResponse   `json:"addons"`
}

func toMenuItemResponse(m *menu.MenuItem) menuItemResponse {
	item := menuItemResponse{
		ID:          m.ID,
		Category:    m.Category,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price.StringFixed(2),
		IsNonVeg:    m.IsNonVeg,
		IsAvailable: m.IsAvailable,
		Variants:    make([]variantResponse, 0, len(m.Variants)),
		Addons:      make([]addonResponse, 0, len(m.Addons)),
	}
	for _, v := range m.Variants {
		item.Variants = append(item.Variants, variantResponse{
			ID: v.ID, Name: v.Name, Price: v.Price.StringFixed(2), IsAvailable: v.IsAvailable,
		})
	}
	for _, a := range m.Addons {
		item.Addons = append(item.Addons, addonResponse{
			ID: a.ID, Name: a.Name, Price: a.Price.StringFixed(2), Type: a.Type, IsAvailable: a.IsAvailable,
		})
	}
	return item
}

func (h *Handler) getMenu(w http.ResponseWriter, r *http.Request) {
	canteenID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSONError(w, "invalid canteen id", http.StatusBadRequest)
		return
	}

	items, err := h.menus.GetMenu(r.Context(), canteenID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]menuItemResponse, 0, len(items))
	for _, m := range items {
		out = append(out, toMenuItemResponse(m))
	}
	utils.WriteJSON(w, out, http.StatusOK)
}
