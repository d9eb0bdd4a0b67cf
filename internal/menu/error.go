package menu

import "errors"

var (
	ErrItemNotFound    = errors.New("menu item not found")
	ErrVariantNotFound = errors.New("variant not found")
	ErrAddonNotFound   = errors.New("addon not found")
	ErrItemUnavailable = errors.New("menu item not available")
)
