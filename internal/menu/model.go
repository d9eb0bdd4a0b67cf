package menu

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID          int64
	CanteenID   int64
	Category    string
	Name        string
	Description string
	Price       decimal.Decimal
	IsNonVeg    bool
	IsAvailable bool
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Variants []Variant
	Addons   []Addon
}

type Variant struct {
	ID          int64
	ItemID      int64
	Name        string
	Price       decimal.Decimal
	IsAvailable bool
	Active      bool
}

type Addon struct {
	ID          int64
	ItemID      int64
	Name        string
	Price       decimal.Decimal
	Type        string
	IsAvailable bool
	Active      bool
}
