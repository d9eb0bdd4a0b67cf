package user

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	// CanteenID is set for canteen staff accounts and scopes their
	// dashboard to one canteen.
	CanteenID *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RegisterParams struct {
	Name     string
	Email    string
	Password string
	Role     string
}
