package middleware

import (
	"net/http"
	"strings"

	"canteen-be/internal/user"
	"canteen-be/internal/utils"
)

// AuthMiddleware resolves a bearer token into request-scoped identity.
// Requests without a valid token pass through anonymous; the handlers decide
// whether authentication is required.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := user.ParseJWT(tokenStr)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := utils.SetUserContext(r.Context(), claims.UserID, claims.Email, claims.Role)
		if claims.CanteenID != nil {
			ctx = utils.SetCanteenContext(ctx, *claims.CanteenID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
