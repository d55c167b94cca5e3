package http

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/services"
	"fintrack/internal/transfer"
)

// removedBody reports how many records a delete removed. Zero is not an
// error: deleting an unknown id leaves the ledger unchanged.
type removedBody struct {
	Removed int `json:"removed"`
}

type csvImportBody struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(s.ledger.Dashboard()).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := s.ledger.Search(q.Get("q"), query.SortKey(q.Get("sort")))
	if res.PatternError != "" {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Invalid search pattern", "pattern", res.Pattern)
	}
	NewResponse().JSON(res).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	txn, err := s.ledger.CreateTransaction(r.Context(), core.TransactionForm{
		Type:            p.Get("type"),
		Description:     p.Get("description"),
		Category:        p.Get("category"),
		SenderRecipient: p.Get("senderRecipient"),
		Amount:          p.Get("amount"),
		Date:            p.Get("date"),
	})
	if err != nil {
		s.writeLedgerError(w, r, applog.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(txn).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed := s.ledger.DeleteTransaction(r.Context(), id)
	logDelete(r, "transaction", id, removed)
	NewResponse().JSON(removedBody{Removed: removed}).Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(s.ledger.Budgets()).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	b, err := s.ledger.CreateBudget(r.Context(), core.BudgetForm{
		Name:  p.Get("name"),
		Limit: p.Get("limit"),
	})
	if err != nil {
		s.writeLedgerError(w, r, applog.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(b).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed := s.ledger.DeleteBudget(r.Context(), id)
	logDelete(r, "budget", id, removed)
	NewResponse().JSON(removedBody{Removed: removed}).Write(w)
}

func (s *Server) handleReallocateBudget(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.ledger.ReallocateBudget(r.Context(), id, p.Get("limit")); err != nil {
		s.writeLedgerError(w, r, applog.OpReallocate, err)
		return
	}
	for _, b := range s.ledger.Budgets() {
		if b.ID == id {
			NewResponse().JSON(b).Write(w)
			return
		}
	}
	// Deleted between the update and the read.
	NotFoundError(services.ErrBudgetNotFound.Error()).Write(w)
}

func (s *Server) handleImportJSON(w http.ResponseWriter, r *http.Request) {
	body, closeBody, err := importReader(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	defer closeBody()

	summary, err := s.ledger.ImportDocument(r.Context(), body)
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Document import rejected", applog.FieldError, err)
		switch {
		case errors.Is(err, transfer.ErrMissingCollections):
			BadRequestError(transfer.ErrMissingCollections.Error()).Write(w)
		default:
			BadRequestError(transfer.ErrMalformedDocument.Error()).Write(w)
		}
		return
	}
	NewResponse().JSON(summary).Write(w)
}

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	body, closeBody, err := importReader(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	defer closeBody()

	res, err := s.ledger.ImportCSV(r.Context(), body)
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "CSV import failed", applog.FieldError, err)
		BadRequestError("failed to read CSV").Write(w)
		return
	}
	NewResponse().JSON(csvImportBody{Imported: res.Imported, Skipped: res.Skipped}).Write(w)
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.ledger.ExportDocument(&buf); err != nil {
		s.events.LogError(r.Context(), "Export failed", err, applog.ComponentHTTP, applog.OpExport, nil)
		InternalServerError("export failed").Write(w)
		return
	}
	NewResponse().Attachment("finance_export.json", "application/json", buf.Bytes()).Write(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.ledger.ExportCSV(&buf); err != nil {
		s.events.LogError(r.Context(), "Export failed", err, applog.ComponentHTTP, applog.OpExport, nil)
		InternalServerError("export failed").Write(w)
		return
	}
	NewResponse().Attachment("finance_export.csv", "text/csv; charset=utf-8", buf.Bytes()).Write(w)
}

// writeLedgerError maps service errors to status codes.
func (s *Server) writeLedgerError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verrs core.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		ValidationError(verrs).Write(w)
	case errors.Is(err, services.ErrBudgetNotFound):
		NotFoundError(services.ErrBudgetNotFound.Error()).Write(w)
	default:
		s.events.LogError(r.Context(), "Ledger operation failed", err, applog.ComponentLedger, op, nil)
		InternalServerError("internal error").Write(w)
	}
}

func logDelete(r *http.Request, entity, id string, removed int) {
	fields := applog.NewFields().WithOperation(applog.OpDelete).WithRecord(entity, id)
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Delete handled",
		append(fields.ToSlice(), applog.FieldCount, removed)...)
}
