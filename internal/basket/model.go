package basket

import (
	"time"

	"github.com/shopspring/decimal"
)

type Basket struct {
	ID         string
	CreatedBy  string
	CanteenID  int64
	AccessCode *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Line is a basket row joined with the catalog data needed to render and
// price it. MenuItemID keeps the raw reference; a line whose menu item has
// been deleted from the catalog scans with nil MenuItem fields and is
// filtered out at checkout.
type Line struct {
	ID         int64
	BasketID   string
	MenuItemID int64
	VariantID  *int64
	Quantity   int
	AddedBy    string
	CreatedAt  time.Time

	MenuItemName  string
	MenuItemPrice decimal.Decimal
	VariantName   *string
	VariantPrice  *decimal.Decimal

	Addons []LineAddon
}

type LineAddon struct {
	AddonID int64
	Name    string
	Price   decimal.Decimal
}

type AddItemParams struct {
	UserID     string
	CanteenID  int64
	MenuItemID int64
	VariantID  *int64
	Quantity   int
	AddonIDs   []int64
}

type insertLineParams struct {
	BasketID   string
	MenuItemID int64
	VariantID  *int64
	Quantity   int
	AddedBy    string
	AddonIDs   []int64
}
