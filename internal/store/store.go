// Package store owns the transaction and budget collections and keeps them
// in sync with a single persistence slot.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Key is the slot key the document is stored under.
const Key = "finance:data"

// Slot is the key-value persistence boundary. Load reports found=false when
// nothing has been stored yet.
type Slot interface {
	Load(ctx context.Context) (data []byte, found bool, err error)
	Save(ctx context.Context, data []byte) error
}

// Seeder supplies the initial document when the slot is empty.
type Seeder interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Store holds the collections in insertion order. Mutations run under a
// write lock and persist before returning, so readers never observe a
// half-applied change.
type Store struct {
	mu           sync.RWMutex
	slot         Slot
	logger       *slog.Logger
	transactions []core.Transaction
	budgets      []core.Budget
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open loads the document from slot. Only when the slot holds nothing is
// the seeder asked once for a document, which is stored verbatim. A failed
// seed leaves the store empty and the slot untouched. A slot that cannot be
// read or decoded is an error: its bytes are never overwritten.
func Open(ctx context.Context, slot Slot, seeder Seeder, opts ...Option) (*Store, error) {
	if slot == nil {
		return nil, fmt.Errorf("open store: nil slot")
	}
	s := &Store{slot: slot, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	doc, found, err := s.loadSlot(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		doc = s.loadSeed(ctx, seeder)
	}
	doc = doc.Normalize()
	s.transactions = doc.Transactions
	s.budgets = doc.Budgets

	s.logger.InfoContext(ctx, "Store loaded",
		"transactions", len(s.transactions),
		"budgets", len(s.budgets))
	return s, nil
}

func (s *Store) loadSlot(ctx context.Context) (core.Document, bool, error) {
	data, found, err := s.slot.Load(ctx)
	if err != nil {
		return core.Document{}, false, fmt.Errorf("load slot: %w", err)
	}
	if !found {
		return core.Document{}, false, nil
	}
	var doc core.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.Document{}, true, fmt.Errorf("parse stored document: %w", err)
	}
	return doc, true, nil
}

func (s *Store) loadSeed(ctx context.Context, seeder Seeder) core.Document {
	if seeder == nil {
		return core.Document{}
	}
	data, err := seeder.Fetch(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load seed document", "error", err)
		return core.Document{}
	}
	var doc core.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.ErrorContext(ctx, "Failed to parse seed document", "error", err)
		return core.Document{}
	}
	if err := s.slot.Save(ctx, data); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save seed document", "error", err)
	}
	return doc
}

// AddTransaction appends txn. The caller is responsible for validation.
func (s *Store) AddTransaction(ctx context.Context, txn core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, txn.Clone())
	s.persist(ctx)
}

// AddTransactions appends txns in order and persists once.
func (s *Store) AddTransactions(ctx context.Context, txns []core.Transaction) {
	if len(txns) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range txns {
		s.transactions = append(s.transactions, t.Clone())
	}
	s.persist(ctx)
}

// DeleteTransaction removes every transaction with id and reports how many
// were removed. Unknown ids are a no-op.
func (s *Store) DeleteTransaction(ctx context.Context, id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]core.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	removed := len(s.transactions) - len(kept)
	s.transactions = kept
	s.persist(ctx)
	return removed
}

// AddBudget appends b. The caller is responsible for validation.
func (s *Store) AddBudget(ctx context.Context, b core.Budget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = append(s.budgets, b)
	s.persist(ctx)
}

// DeleteBudget removes every budget with id. Transactions referencing the
// budget name keep their category.
func (s *Store) DeleteBudget(ctx context.Context, id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]core.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	removed := len(s.budgets) - len(kept)
	s.budgets = kept
	s.persist(ctx)
	return removed
}

// ReallocateBudget sets a new limit on the first budget with id. It reports
// whether the budget exists; nothing is persisted when it does not. The
// caller guarantees newLimit > 0.
func (s *Store) ReallocateBudget(ctx context.Context, id string, newLimit decimal.Decimal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.budgets {
		if s.budgets[i].ID == id {
			s.budgets[i].Limit = newLimit
			s.persist(ctx)
			return true
		}
	}
	return false
}

// Replace swaps both collections at once, as a structured import does.
func (s *Store) Replace(ctx context.Context, doc core.Document) {
	doc = cloneDocument(doc.Normalize())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = doc.Transactions
	s.budgets = doc.Budgets
	s.persist(ctx)
}

// Transactions returns a copy of the transactions in insertion order.
func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTransactions(s.transactions)
}

// Budgets returns a copy of the budgets in insertion order.
func (s *Store) Budgets() []core.Budget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Budget{}, s.budgets...)
}

// Snapshot returns a consistent copy of both collections.
func (s *Store) Snapshot() core.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDocument(core.Document{Transactions: s.transactions, Budgets: s.budgets})
}

// persist overwrites the slot with the full document. Failures are logged
// and swallowed: memory stays authoritative for the session. Callers hold
// the write lock.
func (s *Store) persist(ctx context.Context) {
	doc := core.Document{Transactions: s.transactions, Budgets: s.budgets}.Normalize()
	data, err := json.Marshal(doc)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode document", "error", err)
		return
	}
	if err := s.slot.Save(ctx, data); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save data", "error", err)
	}
}

func cloneTransactions(in []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

func cloneDocument(d core.Document) core.Document {
	return core.Document{
		Transactions: cloneTransactions(d.Transactions),
		Budgets:      append([]core.Budget{}, d.Budgets...),
	}
}
