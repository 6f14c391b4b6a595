/*
handlers.go - HTTP API handlers for the savings engine

PURPOSE:
  Exposes transaction models and their contribution schedules via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  budget and schedule packages.

ENDPOINTS:
  Models:
    GET    /api/models                    List all models
    POST   /api/models                    Create a model (computes its chain)
    GET    /api/models/{id}               Get model details
    DELETE /api/models/{id}               Delete a model
    POST   /api/models/{id}/recalculate   Rebuild the chain for a new date
    POST   /api/models/{id}/ameliorate    Absorb an overspend
    GET    /api/models/{id}/rate          Contribution rate on a date

  Schedules:
    POST   /api/schedule/preview          Compute a chain without persisting

  Transactions:
    GET    /api/transactions              List observed transactions
    POST   /api/transactions              Record an observed transaction
    DELETE /api/transactions/{id}         Delete an observed transaction

  Reports:
    GET    /api/reports/affordability     Day-by-day budget report

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (budget, schedule)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid windows or dates
  - 404: Model or transaction not found
  - 422: Well-formed but unsatisfiable (rate would round to zero, or no
         sustainable contribution exists)
  - 500: Internal errors, schedule invariant violations

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/fernbank/savings-engine/budget"
	"github.com/fernbank/savings-engine/factory"
	"github.com/fernbank/savings-engine/schedule"
	"github.com/fernbank/savings-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	// Clock supplies the reference date used when a request omits as_of.
	// Tests pin it for reproducible chains.
	Clock func() schedule.Date
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store: store,
		Clock: schedule.Today,
	}
}

func (h *Handler) asOf(s string) (schedule.Date, error) {
	if s == "" {
		return h.Clock(), nil
	}
	return schedule.ParseDate(s)
}

// =============================================================================
// MODEL HANDLERS
// =============================================================================

// ListModels returns all models.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.Store.ListModels(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list models", err)
		return
	}

	dtos := make([]ModelDTO, len(models))
	for i, m := range models {
		dtos[i] = toModelDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateModel creates a model and computes its contribution chain.
func (h *Handler) CreateModel(w http.ResponseWriter, r *http.Request) {
	var req CreateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Model name is required", nil)
		return
	}

	value, err := parseValue(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid value", err)
		return
	}
	rule, err := factory.FromJSON(req.Rule)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule", err)
		return
	}
	start, err := schedule.ParseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date", err)
		return
	}
	var end *schedule.Date
	if req.End != nil {
		e, err := schedule.ParseDate(*req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end date", err)
			return
		}
		end = &e
	}
	now, err := h.asOf(req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	model, err := budget.NewModel(req.Name, value, rule, start, end, now)
	if err != nil {
		writeDomainError(w, "Failed to compute schedule", err)
		return
	}
	model.Matcher = budget.Matcher{Category: req.Category, Descriptions: req.Descriptions}

	if err := h.Store.SaveModel(r.Context(), model); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save model", err)
		return
	}
	writeJSON(w, http.StatusCreated, toModelDTO(model))
}

// GetModel returns a single model.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	model, ok := h.loadModel(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toModelDTO(model))
}

// DeleteModel removes a model.
func (h *Handler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	id, err := modelID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid model id", err)
		return
	}
	if err := h.Store.DeleteModel(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete model", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecalculateModel rebuilds a model's chain against a new reference date.
func (h *Handler) RecalculateModel(w http.ResponseWriter, r *http.Request) {
	model, ok := h.loadModel(w, r)
	if !ok {
		return
	}

	var req RecalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	now, err := h.asOf(req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	if err := model.Recalculate(now); err != nil {
		writeDomainError(w, "Failed to recalculate schedule", err)
		return
	}
	if err := h.Store.SaveModel(r.Context(), model); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save model", err)
		return
	}
	writeJSON(w, http.StatusOK, toModelDTO(model))
}

// AmeliorateModel absorbs an overspend into a model's schedule.
func (h *Handler) AmeliorateModel(w http.ResponseWriter, r *http.Request) {
	model, ok := h.loadModel(w, r)
	if !ok {
		return
	}

	var req AmeliorateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	on, err := schedule.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	if err := model.Ameliorate(amount, on); err != nil {
		writeDomainError(w, "Failed to ameliorate", err)
		return
	}
	if err := h.Store.SaveModel(r.Context(), model); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save model", err)
		return
	}
	writeJSON(w, http.StatusOK, toModelDTO(model))
}

// GetModelRate returns a model's contribution rate on a date (today by
// default).
func (h *Handler) GetModelRate(w http.ResponseWriter, r *http.Request) {
	model, ok := h.loadModel(w, r)
	if !ok {
		return
	}
	date, err := h.asOf(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	writeJSON(w, http.StatusOK, RateDTO{
		Date: date.String(),
		Rate: model.RateOn(date).String(),
	})
}

func (h *Handler) loadModel(w http.ResponseWriter, r *http.Request) (*budget.Model, bool) {
	id, err := modelID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid model id", err)
		return nil, false
	}
	model, err := h.Store.GetModel(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to load model", err)
		return nil, false
	}
	return model, true
}

func modelID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// =============================================================================
// SCHEDULE PREVIEW
// =============================================================================

// PreviewSchedule computes a contribution chain without persisting anything.
func (h *Handler) PreviewSchedule(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	value, err := parseValue(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid value", err)
		return
	}
	rule, err := factory.FromJSON(req.Rule)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule", err)
		return
	}
	start, err := schedule.ParseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date", err)
		return
	}
	var end *schedule.Date
	if req.End != nil {
		e, err := schedule.ParseDate(*req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end date", err)
			return
		}
		end = &e
	}
	now, err := h.asOf(req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	segments, err := schedule.Build(value.Funded(), rule, start, end, now)
	if err != nil {
		writeDomainError(w, "Failed to compute schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewDTO{Segments: toSegmentDTOs(segments)})
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns observed transactions, optionally bounded by
// from/to query parameters.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	var (
		txs []budget.Transaction
		err error
	)

	fromStr, toStr := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if fromStr != "" || toStr != "" {
		from, to, perr := parseWindow(fromStr, toStr)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "Invalid date window", perr)
			return
		}
		txs, err = h.Store.ListTransactionsRange(r.Context(), from, to)
	} else {
		txs, err = h.Store.ListTransactions(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTransaction records an observed transaction.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	tx := &budget.Transaction{
		Amount:      amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        date,
	}
	if err := h.Store.SaveTransaction(r.Context(), tx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// DeleteTransaction removes an observed transaction.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction id", err)
		return
	}
	if err := h.Store.DeleteTransaction(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REPORTS
// =============================================================================

// GetAffordability returns the day-by-day budget report over [from, to].
func (h *Handler) GetAffordability(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date window", err)
		return
	}

	models, err := h.Store.ListModels(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list models", err)
		return
	}
	txs, err := h.Store.ListTransactionsRange(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}

	report, err := budget.Affordability(models, txs, from, to)
	if err != nil {
		writeDomainError(w, "Failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, toAffordabilityDTO(report))
}

func parseWindow(fromStr, toStr string) (schedule.Date, schedule.Date, error) {
	from, err := schedule.ParseDate(fromStr)
	if err != nil {
		return schedule.Date{}, schedule.Date{}, err
	}
	to, err := schedule.ParseDate(toStr)
	if err != nil {
		return schedule.Date{}, schedule.Date{}, err
	}
	return from, to, nil
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset wipes all models and transactions. Intended for development and
// integration tests.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, sqlite.ErrModelNotFound),
		errors.Is(err, sqlite.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case schedule.IsInfeasible(err):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case errors.Is(err, schedule.ErrHistoricalStartDate),
		errors.Is(err, schedule.ErrNoPayments),
		errors.Is(err, budget.ErrExcessiveDateRange),
		errors.Is(err, budget.ErrOutsideSchedule):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		// Includes schedule invariant violations; nothing a client can fix.
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
