// internal/httpapi/respond.go
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"biblio/internal/borrower"
	"biblio/internal/catalog"
	"biblio/internal/circulation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError renders business-rule failures as distinguishable error codes
// so clients can show a specific message. Anything unrecognized is a store
// or programming failure and stays opaque.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, borrower.ErrNotFound):
		status, code = http.StatusNotFound, "borrower_not_found"
	case errors.Is(err, catalog.ErrNotFound):
		status, code = http.StatusNotFound, "book_not_found"
	case errors.Is(err, circulation.ErrLoanNotFound):
		status, code = http.StatusNotFound, "loan_not_found"
	case errors.Is(err, catalog.ErrNoCopies):
		status, code = http.StatusConflict, "no_copy_available"
	case errors.Is(err, circulation.ErrLoanLimitExceeded):
		status, code = http.StatusConflict, "loan_limit_exceeded"
	case errors.Is(err, circulation.ErrFineThreshold):
		status, code = http.StatusConflict, "fine_threshold_exceeded"
	case errors.Is(err, circulation.ErrAlreadyReturned):
		status, code = http.StatusConflict, "already_returned"
	case errors.Is(err, circulation.ErrInvalidPayment):
		status, code = http.StatusBadRequest, "invalid_payment"
	case errors.Is(err, borrower.ErrDuplicateCard):
		status, code = http.StatusConflict, "duplicate_card_id"
	case errors.Is(err, catalog.ErrDuplicateISBN):
		status, code = http.StatusConflict, "duplicate_isbn"
	case errors.Is(err, borrower.ErrInvalidCardID):
		status, code = http.StatusBadRequest, "invalid_card_id"
	case errors.Is(err, borrower.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "rate_limited"
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal error"})
		return
	}

	writeJSON(w, status, errorBody{Error: code, Message: err.Error()})
}
