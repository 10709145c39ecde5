package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"subtrack/internal/core"
	"subtrack/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the service error taxonomy onto HTTP codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrMalformedInput),
		errors.Is(err, core.ErrOutOfRange),
		errors.Is(err, core.ErrUnknownCurrency),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNameTooLong),
		errors.Is(err, core.ErrInvalidPeriod),
		errors.Is(err, services.ErrUnknownDecision):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrPendingExpired):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, services.ErrSubscriptionLimit):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func userIDFromQuery(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("user_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "missing or invalid user_id")
		return 0, false
	}
	return id, true
}

// subscriptionJSON is the wire shape of a subscription, with the price
// both machine-readable and preformatted for display.
type subscriptionJSON struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	PriceDisplay   string `json:"price_display"`
	NextDate       string `json:"next_date"`
	Period         string `json:"period"`
	LastChargeDate string `json:"last_charge_date,omitempty"`
	Category       string `json:"category"`
	Paused         bool   `json:"paused"`
}

func toSubscriptionJSON(sub core.Subscription) subscriptionJSON {
	out := subscriptionJSON{
		ID:           sub.ID,
		Name:         sub.Name,
		AmountCents:  sub.Price.Cents,
		Currency:     string(sub.Price.Currency),
		PriceDisplay: core.FormatPrice(sub.Price),
		NextDate:     sub.NextDate.ISO(),
		Period:       string(sub.Period),
		Category:     sub.Category,
		Paused:       sub.Paused,
	}
	if !sub.LastCharge.IsZero() {
		out.LastChargeDate = sub.LastCharge.ISO()
	}
	return out
}
