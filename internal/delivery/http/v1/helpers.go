package v1

import (
	"errors"
	"net/http"

	"fmbq-backend/internal/domain"
	"fmbq-backend/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var validate = validator.New()

// decodeAndValidate parses the JSON body into dst and runs struct validation.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ErrValidation
	}
	if err := validate.Struct(dst); err != nil {
		return errors.Join(domain.ErrValidation, err)
	}
	return nil
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		utils.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		utils.WriteError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		utils.WriteError(w, http.StatusConflict, "order was modified concurrently, retry")
	case errors.Is(err, domain.ErrInsufficientStock):
		utils.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUpstreamFailure):
		utils.WriteError(w, http.StatusBadGateway, "upstream service unavailable")
	default:
		utils.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// currentUser pulls the authenticated user set by AuthMiddleware.
func currentUser(r *http.Request) (*domain.User, bool) {
	user, ok := r.Context().Value(domain.UserContextKey).(*domain.User)
	return user, ok && user != nil
}
