package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var statusRank = map[Status]int{
	StatusPending:   0,
	StatusConfirmed: 1,
	StatusPreparing: 2,
	StatusReady:     3,
	StatusCompleted: 4,
}

func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from -> to is a legal move: one step forward
// along the pipeline, or into cancelled from any non-terminal state.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank == fromRank+1
}

const (
	PaymentWallet   = "wallet"
	PaymentPostpaid = "postpaid"
)

// Order is minted only by the placement transaction. Everything except the
// status and its timestamp fields is immutable afterwards.
type Order struct {
	ID            int64
	OrderNumber   string
	UserID        string
	CanteenID     int64
	Status        Status
	TotalAmount   decimal.Decimal
	Prepaid       bool
	Linked        bool
	LinkingNumber *string
	OTP           string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	ConfirmedAt *time.Time
	PreparedAt  *time.Time
	ReadyAt     *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
	CancelledBy *string

	Items []*Item
}

// Item is a frozen snapshot of a basket line at order time. Prices are
// captured here so later catalog edits never change a placed order's amount.
type Item struct {
	ID           int64
	OrderID      int64
	MenuItemID   int64
	Name         string
	UnitPrice    decimal.Decimal
	VariantID    *int64
	VariantName  *string
	VariantPrice decimal.Decimal
	Quantity     int
	Subtotal     decimal.Decimal

	Addons []ItemAddon
}

type ItemAddon struct {
	AddonID   int64
	Name      string
	UnitPrice decimal.Decimal
}

type PlaceOrderParams struct {
	UserID        string
	CanteenID     int64
	PaymentMethod string
	AccessCode    *string
}

// PlacedOrder is what the placement transaction reports back per contributor.
type PlacedOrder struct {
	ID          int64
	OrderNumber string
	UserID      string
	TotalAmount decimal.Decimal
}

type PlaceOrderResult struct {
	Orders        []PlacedOrder
	LinkingNumber *string
}
