package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/query"
	"fintrack/internal/stats"
	"fintrack/internal/store"
	"fintrack/internal/transfer"
)

var ErrBudgetNotFound = errors.New("budget not found")

// ChangePublisher announces store mutations to other processes.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

type (
	// Dashboard is everything the summary view renders.
	Dashboard struct {
		Stats        core.DerivedStats     `json:"stats"`
		Budgets      []core.BudgetStat     `json:"budgets"`
		Categories   []core.CategoryAmount `json:"categories"`
		Transactions int                   `json:"transactionCount"`
	}

	// TransactionRow pairs a transaction with its highlighted display fields.
	TransactionRow struct {
		Transaction core.Transaction              `json:"transaction"`
		Highlighted query.HighlightedTransaction `json:"highlighted"`
	}

	// SearchResult is the transaction list for one pattern and ordering.
	// When the pattern does not compile PatternError is set and every
	// transaction is listed.
	SearchResult struct {
		Pattern      string           `json:"pattern"`
		PatternError string           `json:"patternError,omitempty"`
		Sort         query.SortKey    `json:"sort"`
		Rows         []TransactionRow `json:"rows"`
		Total        int              `json:"total"`
	}

	// ImportSummary reports the size of a structured import.
	ImportSummary struct {
		Transactions int `json:"transactions"`
		Budgets      int `json:"budgets"`
	}
)

// LedgerService validates user input, applies it to the store and publishes
// a change message after each successful mutation.
type LedgerService struct {
	store     *store.Store
	patterns  *query.Compiler
	publisher ChangePublisher
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*LedgerService)

// WithPublisher enables change messages. Publish failures are logged only.
func WithPublisher(p ChangePublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(st *store.Store, patterns *query.Compiler, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:    st,
		patterns: patterns,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.patterns == nil {
		s.patterns = query.NewCompiler(128, 10*time.Minute)
	}
	return s
}

// NewTransactionID returns a fresh transaction identifier.
func NewTransactionID() string { return "txn_" + uuid.NewString() }

// NewBudgetID returns a fresh budget identifier.
func NewBudgetID() string { return "bud_" + uuid.NewString() }

// CreateTransaction validates form and appends the resulting transaction.
// Validation failures are returned as core.ValidationErrors.
func (s *LedgerService) CreateTransaction(ctx context.Context, form core.TransactionForm) (core.Transaction, error) {
	txn, err := form.Build(NewTransactionID(), s.now().UTC())
	if err != nil {
		return core.Transaction{}, err
	}
	s.store.AddTransaction(ctx, txn)
	s.logger.InfoContext(ctx, "Transaction created", "id", txn.ID, "type", txn.Type)
	s.publish(ctx, amqp.OpCreate, amqp.EntityTransaction, txn.ID, 1)
	return txn, nil
}

// DeleteTransaction removes the transaction and reports how many records
// were removed.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) int {
	removed := s.store.DeleteTransaction(ctx, id)
	s.logger.InfoContext(ctx, "Transaction deleted", "id", id, "removed", removed)
	if removed > 0 {
		s.publish(ctx, amqp.OpDelete, amqp.EntityTransaction, id, removed)
	}
	return removed
}

// CreateBudget validates form and appends the resulting budget.
func (s *LedgerService) CreateBudget(ctx context.Context, form core.BudgetForm) (core.Budget, error) {
	b, err := form.Build(NewBudgetID(), s.now().UTC())
	if err != nil {
		return core.Budget{}, err
	}
	s.store.AddBudget(ctx, b)
	s.logger.InfoContext(ctx, "Budget created", "id", b.ID, "name", b.Name)
	s.publish(ctx, amqp.OpCreate, amqp.EntityBudget, b.ID, 1)
	return b, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, id string) int {
	removed := s.store.DeleteBudget(ctx, id)
	s.logger.InfoContext(ctx, "Budget deleted", "id", id, "removed", removed)
	if removed > 0 {
		s.publish(ctx, amqp.OpDelete, amqp.EntityBudget, id, removed)
	}
	return removed
}

// ReallocateBudget sets a new positive limit on the budget.
func (s *LedgerService) ReallocateBudget(ctx context.Context, id, limit string) error {
	newLimit, err := core.ParseLimit(limit)
	if err != nil {
		return err
	}
	if !s.store.ReallocateBudget(ctx, id, newLimit) {
		return fmt.Errorf("reallocate %s: %w", id, ErrBudgetNotFound)
	}
	s.logger.InfoContext(ctx, "Budget reallocated", "id", id, "limit", newLimit.String())
	s.publish(ctx, amqp.OpReallocate, amqp.EntityBudget, id, 1)
	return nil
}

func (s *LedgerService) Budgets() []core.Budget {
	return s.store.Budgets()
}

// Dashboard aggregates one consistent snapshot.
func (s *LedgerService) Dashboard() Dashboard {
	snap := s.store.Snapshot()
	return Dashboard{
		Stats:        stats.ComputeStats(snap.Transactions),
		Budgets:      stats.ComputeBudgetStats(snap.Budgets, snap.Transactions),
		Categories:   stats.CategoryTotals(snap.Transactions),
		Transactions: len(snap.Transactions),
	}
}

// Search filters and sorts the transaction list. An invalid pattern is
// reported in the result and disables filtering rather than failing.
func (s *LedgerService) Search(pattern string, sortKey query.SortKey) SearchResult {
	res := SearchResult{Pattern: pattern, Sort: sortKey}

	m, err := s.patterns.Compile(pattern)
	if err != nil {
		res.PatternError = "Invalid regular expression"
		m = nil
	}

	txns := query.FilterAndSort(s.store.Transactions(), m, sortKey)
	res.Rows = make([]TransactionRow, len(txns))
	for i, t := range txns {
		res.Rows[i] = TransactionRow{
			Transaction: t,
			Highlighted: query.HighlightTransaction(t, m),
		}
	}
	res.Total = len(res.Rows)
	return res
}

// ImportDocument replaces the whole store with the document read from r.
// A rejected document leaves the store untouched.
func (s *LedgerService) ImportDocument(ctx context.Context, r io.Reader) (ImportSummary, error) {
	doc, err := transfer.DecodeDocument(r)
	if err != nil {
		return ImportSummary{}, err
	}
	s.store.Replace(ctx, doc)

	summary := ImportSummary{Transactions: len(doc.Transactions), Budgets: len(doc.Budgets)}
	s.logger.InfoContext(ctx, "Document imported",
		"transactions", summary.Transactions,
		"budgets", summary.Budgets)
	s.publish(ctx, amqp.OpImport, amqp.EntityDocument, "", summary.Transactions+summary.Budgets)
	return summary, nil
}

// ImportCSV appends every well-formed row of the tabular document in r.
func (s *LedgerService) ImportCSV(ctx context.Context, r io.Reader) (transfer.CSVResult, error) {
	res, err := transfer.ImportCSV(r, s.now().UTC(), NewTransactionID)
	if err != nil {
		return res, err
	}
	s.store.AddTransactions(ctx, res.Transactions)

	s.logger.InfoContext(ctx, "CSV imported", "imported", res.Imported, "skipped", res.Skipped)
	if res.Imported > 0 {
		s.publish(ctx, amqp.OpImport, amqp.EntityTransaction, "", res.Imported)
	}
	return res, nil
}

func (s *LedgerService) ExportDocument(w io.Writer) error {
	return transfer.EncodeDocument(w, s.store.Snapshot())
}

func (s *LedgerService) ExportCSV(w io.Writer) error {
	return transfer.ExportCSV(w, s.store.Transactions())
}

func (s *LedgerService) publish(ctx context.Context, op, entity, id string, count int) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, amqp.NewChangeMessage(op, entity, id, count)); err != nil {
		// The store is already updated; the mirror catches up on its next sync.
		s.logger.ErrorContext(ctx, "Failed to publish change message",
			"op", op,
			"entity", entity,
			"id", id,
			"error", err)
	}
}
