package middleware

import (
	"net/http"

	"fmbq-backend/internal/domain"
)

// DeliveryMiddleware ensures the authenticated user may perform hand-off
// scans. Admins pass too so support can unblock stuck packages.
// MUST be used AFTER AuthMiddleware.
func DeliveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := r.Context().Value(domain.UserContextKey).(*domain.User)
		if !ok || user == nil {
			http.Error(w, "Unauthorized: No user found in context", http.StatusUnauthorized)
			return
		}

		if user.Role != domain.RoleDelivery && user.Role != domain.RoleAdmin {
			http.Error(w, "Forbidden: Delivery staff only", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
