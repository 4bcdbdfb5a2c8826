// internal/httpapi/handlers.go
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"biblio/internal/borrower"
	"biblio/internal/catalog"
	"biblio/internal/circulation"
)

// Handler serves the librarian-facing HTTP API.
type Handler struct {
	circulation circulation.Service
	catalog     catalog.Service
	borrowers   borrower.Service
}

func NewHandler(circ circulation.Service, cat catalog.Service, bor borrower.Service) *Handler {
	return &Handler{circulation: circ, catalog: cat, borrowers: bor}
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing_query", Message: "missing search query"})
		return
	}

	by := catalog.SearchBy(r.URL.Query().Get("by"))
	if by == "" {
		by = catalog.SearchByTitle
	}
	switch by {
	case catalog.SearchByTitle, catalog.SearchByAuthor, catalog.SearchByISBN:
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_search_mode", Message: "by must be title, author, or isbn"})
		return
	}

	books, err := h.circulation.Search(r.Context(), query, by)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if books == nil {
		books = []catalog.Book{}
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *Handler) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var req catalog.Book
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}

	book, err := h.catalog.AddBook(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.catalog.GetBook(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) handleRegisterBorrower(w http.ResponseWriter, r *http.Request) {
	var req borrower.Borrower
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}

	registered, err := h.borrowers.Register(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registered)
}

func (h *Handler) handleGetBorrower(w http.ResponseWriter, r *http.Request) {
	holder, err := h.borrowers.Get(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, holder)
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardID string `json:"card_id"`
		ISBN   string `json:"isbn"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}

	loan, err := h.circulation.Checkout(r.Context(), req.CardID, req.ISBN)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(chi.URLParam(r, "loanID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "invalid loan id"})
		return
	}

	loan, err := h.circulation.Return(r.Context(), loanID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *Handler) handlePayFine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}

	balance, err := h.circulation.PayFine(r.Context(), chi.URLParam(r, "cardID"), req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"fine_balance": balance})
}

func (h *Handler) handleLoanHistory(w http.ResponseWriter, r *http.Request) {
	loans, err := h.circulation.LoanHistory(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if loans == nil {
		loans = []circulation.Loan{}
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
