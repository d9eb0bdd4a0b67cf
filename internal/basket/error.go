package basket

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidQuantity   = errors.New("invalid basket quantity")
	ErrInvalidAccessCode = errors.New("invalid or expired access code")

	// -- Authorization --
	ErrForbidden = errors.New("basket line belongs to another user")
	ErrOwnShare  = errors.New("cannot join your own shared basket")

	// -- Resource State --
	ErrBasketNotFound = errors.New("basket not found")
	ErrLineNotFound   = errors.New("basket item not found")
)
