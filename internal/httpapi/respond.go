package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	// OutOfStockItems заполняется при отказе коммита по стоку.
	OutOfStockItems []string `json:"out_of_stock_items,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Warn("failed to encode response")
	}
}

// respondError переводит доменную ошибку в HTTP-статус.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	response := errorResponse{Error: err.Error()}

	var oosErr *domain.OutOfStockError
	if errors.As(err, &oosErr) {
		response.OutOfStockItems = oosErr.ItemIDs
	}

	s.respondJSON(w, statusFor(err), response)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrIdempotencyKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrItemAlreadyExists),
		errors.Is(err, domain.ErrOutOfStock),
		errors.Is(err, domain.ErrCommitInProgress),
		errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrPaymentRecordedOrderFailed):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrCartEmpty),
		errors.Is(err, domain.ErrGuestEmailRequired),
		errors.Is(err, domain.ErrItemTagRequired),
		errors.Is(err, domain.ErrItemBreedRequired),
		errors.Is(err, domain.ErrItemPriceInvalid),
		errors.Is(err, domain.ErrItemQuantityNegative),
		errors.Is(err, domain.ErrItemStatusInvalid),
		errors.Is(err, domain.ErrRecipientRequired),
		errors.Is(err, domain.ErrPhoneRequired),
		errors.Is(err, domain.ErrAddressRequired),
		errors.Is(err, domain.ErrPaymentReferenceRequired),
		errors.Is(err, domain.ErrOrderItemRequired),
		errors.Is(err, domain.ErrPricePolicyInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dst interface{}) error {
	defer func() { _ = r.Body.Close() }()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
