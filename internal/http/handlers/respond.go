package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}

// domainStatus maps the error taxonomy onto HTTP statuses. Operator
// mistakes are 4xx, upstream rejections 502, outages 503.
func domainStatus(err error) int {
	switch insurance.KindOf(err) {
	case insurance.KindInvalidMemberID, insurance.KindEmptyBasket:
		return http.StatusBadRequest
	case insurance.KindUnverifiedMember, insurance.KindInactiveMember,
		insurance.KindNoSession, insurance.KindNoAuthorization:
		return http.StatusUnprocessableEntity
	case insurance.KindDuplicateClaim:
		return http.StatusConflict
	case insurance.KindTransient:
		return http.StatusServiceUnavailable
	case insurance.KindProviderValidationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeJSON(w, domainStatus(err), errorResponse{Error: err.Error(), Kind: string(insurance.KindOf(err))})
}
