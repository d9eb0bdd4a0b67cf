package utils

import "context"

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "email"
	UserRoleKey  contextKey = "role"
)

const (
	RoleConsumer = "consumer"
	RoleCanteen  = "canteen"
	RoleAdmin    = "admin"
)

// SetUserContext sets user info into context (called by middleware)
func SetUserContext(ctx context.Context, id, email, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id)
	ctx = context.WithValue(ctx, UserEmailKey, email)
	ctx = context.WithValue(ctx, UserRoleKey, role)
	return ctx
}

const CanteenIDKey contextKey = "canteen_id"

// SetCanteenContext scopes a staff request to their canteen.
func SetCanteenContext(ctx context.Context, canteenID int64) context.Context {
	return context.WithValue(ctx, CanteenIDKey, canteenID)
}

func GetCanteenIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(CanteenIDKey).(int64)
	return id, ok
}

// GetUserIDFromContext retrieves userID safely
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok
}

func GetUserEmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(UserEmailKey).(string)
	return email
}

func GetUserRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}
