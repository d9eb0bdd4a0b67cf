package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID        int64
	UserID    string
	CanteenID int64
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is one append-only ledger row. Amount is signed: positive for
// credits, negative for debits. The sum of a wallet's transactions must equal
// its balance column at all times.
type Transaction struct {
	ID          int64
	WalletID    int64
	Amount      decimal.Decimal
	Reference   string
	PerformedBy string
	CreatedAt   time.Time
}
