package order

import "errors"

var (
	// lookup failures
	ErrOrderNotFound  = errors.New("order not found")
	ErrBasketNotFound = errors.New("no basket to checkout")
	ErrWalletNotFound = errors.New("wallet not found for this canteen")

	// precondition failures, checked inside the placement transaction
	ErrForbidden         = errors.New("not allowed")
	ErrEmptyBasket       = errors.New("basket is empty")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// status machine
	ErrInvalidPin   = errors.New("invalid pickup code")
	ErrInvalidState = errors.New("invalid status transition")

	// input validation, rejected before any transaction opens
	ErrInvalidPayment = errors.New("invalid payment method")
	ErrInvalidStatus  = errors.New("unknown order status")

	// generic rollback, wraps the underlying store error
	ErrTransactionFailed = errors.New("order transaction failed")
)
