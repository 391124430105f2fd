package http

import (
	"net/http"

	"expenses/internal/core"
	applog "expenses/internal/log"
)

type transactionRequest struct {
	Description   string      `json:"description"`
	Amount        amountInput `json:"amount"`
	CategoryID    int64       `json:"categoryId"`
	SubcategoryID *int64      `json:"subcategoryId"`
	Date          string      `json:"date"`
	Notes         string      `json:"notes"`
}

type suggestRequest struct {
	Description string `json:"description"`
}

var transactionErrors = errorMessages{
	notFound:  "Transaction not found",
	internal:  "Failed to save transaction",
	operation: applog.OpUpdate,
}

// toTransaction checks the required fields and converts the request.
func (req transactionRequest) toTransaction() (core.Transaction, string) {
	desc := sanitizeInput(req.Description)
	if desc == "" || !req.Amount.set || req.CategoryID == 0 || req.Date == "" {
		return core.Transaction{}, "Missing required fields: description, amount, categoryId, date"
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err.Error()
	}
	return core.Transaction{
		Description:   desc,
		Amount:        req.Amount.Money,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		Date:          date,
		Notes:         sanitizeInput(req.Notes),
	}, ""
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	page, err := s.deps.Services.Transactions.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err, errorMessages{internal: "Failed to fetch transactions", operation: applog.OpList})
		return
	}
	NewJSONResponse().Body(toTransactionPageJSON(page)).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t, err := s.deps.Services.Transactions.Get(r.Context(), id)
	if err != nil {
		msgs := transactionErrors
		msgs.internal = "Failed to fetch transaction"
		msgs.operation = applog.OpRead
		s.writeError(w, r, err, msgs)
		return
	}
	NewJSONResponse().Body(toTransactionJSON(t)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t, problem := req.toTransaction()
	if problem != "" {
		BadRequestError(problem).Write(w)
		return
	}

	created, err := s.deps.Services.Transactions.Create(r.Context(), t)
	if err != nil {
		msgs := transactionErrors
		msgs.notFound = "Category not found"
		msgs.operation = applog.OpCreate
		s.writeError(w, r, err, msgs)
		return
	}
	s.logger.LogTransactionCreated(r.Context(), created.ID, created.Description, created.Amount.Cents, created.CategoryID)
	NewJSONResponse().Status(http.StatusCreated).Body(toTransactionJSON(created)).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t, problem := req.toTransaction()
	if problem != "" {
		BadRequestError(problem).Write(w)
		return
	}
	t.ID = id

	updated, err := s.deps.Services.Transactions.Update(r.Context(), t)
	if err != nil {
		s.writeError(w, r, err, transactionErrors)
		return
	}
	NewJSONResponse().Body(toTransactionJSON(updated)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.deps.Services.Transactions.Delete(r.Context(), id); err != nil {
		msgs := transactionErrors
		msgs.internal = "Failed to delete transaction"
		msgs.operation = applog.OpDelete
		s.writeError(w, r, err, msgs)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleSuggestCategory ranks categories for a description. Only a missing
// or empty description is rejected; a blank one yields no suggestions.
func (s *Server) handleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if req.Description == "" {
		BadRequestError("Description is required").Write(w)
		return
	}
	desc := sanitizeInput(req.Description)

	suggestions, err := s.deps.Suggester.Suggest(r.Context(), desc)
	if err != nil {
		s.logger.LogError(r.Context(), "Failed to get category suggestions", err,
			applog.ErrorTypeInternal, applog.OpSuggest, applog.NewFields().WithSuggestion(desc, 0, 0))
		InternalServerError("Failed to get category suggestions").Write(w)
		return
	}

	top := 0
	if len(suggestions) > 0 {
		top = suggestions[0].Confidence
	}
	s.logger.LogSuggestion(r.Context(), desc, len(suggestions), top)
	NewJSONResponse().Body(toSuggestionsJSON(suggestions)).Write(w)
}
