package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cafeapi"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
	"github.com/vasiliy-maslov/cafe-storefront/internal/order"
	"github.com/vasiliy-maslov/cafe-storefront/internal/preference"
	"github.com/vasiliy-maslov/cafe-storefront/internal/session"
	"github.com/vasiliy-maslov/cafe-storefront/internal/storefront"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the error response itself and reports whether the caller may go on.
func (h *StorefrontHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if !decodeJSON(w, r, dst) {
		return false
	}

	err := h.validate.Struct(dst)
	if err == nil {
		return true
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   "Validation failed",
			Details: formatValidationErrors(validationErrors),
		})
		return false
	}
	log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
	respondWithError(w, http.StatusInternalServerError, "Internal validation error")
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload: %v", err))
		return false
	}
	return true
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required", "required_without":
			details[fe.Field()] = "is required"
		case "email":
			details[fe.Field()] = "must be a valid email"
		case "oneof":
			details[fe.Field()] = "must be one of: " + fe.Param()
		case "min", "gte":
			details[fe.Field()] = "must be at least " + fe.Param()
		case "max", "lte":
			details[fe.Field()] = "must be at most " + fe.Param()
		default:
			details[fe.Field()] = "failed on " + fe.Tag()
		}
	}
	return details
}

func mapErrorToStatusCode(err error) int {
	var rej *cafeapi.RejectionError
	var transport *cafeapi.TransportError

	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrMissingContact),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidOptions),
		errors.Is(err, cart.ErrIndexOutOfRange),
		errors.Is(err, preference.ErrInvalidPreference),
		errors.Is(err, preference.ErrNothingToSave),
		errors.Is(err, session.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, preference.ErrNoSelector),
		errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrNotAMember),
		errors.Is(err, order.ErrMembersOnly):
		return http.StatusForbidden
	case errors.Is(err, order.ErrSubmissionInProgress),
		errors.Is(err, order.ErrNoPendingVerification),
		errors.Is(err, order.ErrInvalidStateTransition):
		return http.StatusConflict
	case errors.Is(err, order.ErrNotVerified),
		errors.Is(err, preference.ErrNothingToApply),
		errors.Is(err, storefront.ErrNothingToReorder):
		return http.StatusUnprocessableEntity
	case errors.As(err, &rej):
		if rej.Status >= 400 && rej.Status < 500 {
			return rej.Status
		}
		return http.StatusBadGateway
	case errors.As(err, &transport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage prefers the shopper-facing notice the controller produced.
func clientMessage(err error, notice string) string {
	if notice != "" {
		return notice
	}
	var rej *cafeapi.RejectionError
	var transport *cafeapi.TransportError
	if errors.As(err, &rej) || errors.As(err, &transport) {
		return cafeapi.Reason(err)
	}
	if mapErrorToStatusCode(err) == http.StatusInternalServerError {
		return "Internal server error"
	}
	return err.Error()
}
