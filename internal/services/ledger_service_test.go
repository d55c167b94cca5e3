package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/query"
	"fintrack/internal/storage"
	"fintrack/internal/store"
	"fintrack/internal/transfer"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.ChangeMessage
	err  error
}

func (p *recordingPublisher) PublishChange(_ context.Context, msg *amqp.ChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.Op + ":" + m.Entity
	}
	return out
}

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, pub ChangePublisher) (*LedgerService, *storage.MemorySlot) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	slot := storage.NewMemorySlot()
	st, err := store.Open(context.Background(), slot, nil, store.WithLogger(logger))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	opts := []Option{WithLogger(logger), WithClock(func() time.Time { return fixedNow })}
	if pub != nil {
		opts = append(opts, WithPublisher(pub))
	}
	return NewLedgerService(st, query.NewCompiler(16, time.Minute), opts...), slot
}

func debitForm(desc, category, amount, date string) core.TransactionForm {
	return core.TransactionForm{
		Type:            "debit",
		Description:     desc,
		Category:        category,
		SenderRecipient: "Shop",
		Amount:          amount,
		Date:            date,
	}
}

func TestCreateTransaction(t *testing.T) {
	pub := &recordingPublisher{}
	svc, slot := newTestService(t, pub)
	ctx := context.Background()

	txn, err := svc.CreateTransaction(ctx, debitForm("Weekly groceries", "Food", "54.20", "2025-05-30"))
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if !strings.HasPrefix(txn.ID, "txn_") {
		t.Errorf("unexpected id %q", txn.ID)
	}
	if !txn.CreatedAt.Equal(fixedNow) || !txn.UpdatedAt.Equal(fixedNow) {
		t.Errorf("timestamps not set from clock: %v %v", txn.CreatedAt, txn.UpdatedAt)
	}
	if got := pub.ops(); len(got) != 1 || got[0] != "create:transaction" {
		t.Errorf("published %v", got)
	}
	if data, found, _ := slot.Load(ctx); !found || !bytes.Contains(data, []byte(txn.ID)) {
		t.Errorf("transaction not persisted")
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, pub)

	_, err := svc.CreateTransaction(context.Background(), debitForm("Lunch lunch", "Food", "012", "2025-02-30"))
	var verrs core.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	want := map[string]string{
		"description": core.MsgDuplicateWords,
		"amount":      core.MsgInvalidAmount,
		"date":        core.MsgInvalidDate,
	}
	for field, msg := range want {
		if verrs[field] != msg {
			t.Errorf("%s: got %q, want %q", field, verrs[field], msg)
		}
	}
	if len(pub.ops()) != 0 {
		t.Errorf("nothing should be published on validation failure")
	}
	if len(svc.Search("", "").Rows) != 0 {
		t.Errorf("invalid transaction was stored")
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	svc, _ := newTestService(t, &recordingPublisher{err: errors.New("broker down")})
	if _, err := svc.CreateBudget(context.Background(), core.BudgetForm{Name: "Food", Limit: "200"}); err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}
	if len(svc.Budgets()) != 1 {
		t.Errorf("budget not stored")
	}
}

func TestBudgetLifecycle(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, pub)
	ctx := context.Background()

	b, err := svc.CreateBudget(ctx, core.BudgetForm{Name: "Food", Limit: "200"})
	if err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}
	if !strings.HasPrefix(b.ID, "bud_") {
		t.Errorf("unexpected id %q", b.ID)
	}

	if err := svc.ReallocateBudget(ctx, b.ID, "350.50"); err != nil {
		t.Fatalf("ReallocateBudget() error = %v", err)
	}
	if !svc.Budgets()[0].Limit.Equal(decimal.RequireFromString("350.50")) {
		t.Errorf("limit not updated")
	}

	var verrs core.ValidationErrors
	if err := svc.ReallocateBudget(ctx, b.ID, "0"); !errors.As(err, &verrs) {
		t.Errorf("expected validation error for zero limit, got %v", err)
	}
	if err := svc.ReallocateBudget(ctx, "bud_missing", "10"); !errors.Is(err, ErrBudgetNotFound) {
		t.Errorf("expected ErrBudgetNotFound, got %v", err)
	}

	if n := svc.DeleteBudget(ctx, b.ID); n != 1 {
		t.Errorf("DeleteBudget() = %d", n)
	}
	if n := svc.DeleteBudget(ctx, b.ID); n != 0 {
		t.Errorf("second DeleteBudget() = %d", n)
	}

	want := []string{"create:budget", "reallocate:budget", "delete:budget"}
	got := pub.ops()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("published %v, want %v", got, want)
	}
}

func TestDashboard(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	mustCreate := func(f core.TransactionForm) {
		t.Helper()
		if _, err := svc.CreateTransaction(ctx, f); err != nil {
			t.Fatalf("CreateTransaction(%+v) error = %v", f, err)
		}
	}
	mustCreate(core.TransactionForm{Type: "credit", Description: "Salary", SenderRecipient: "ACME", Amount: "3000", Date: "2025-05-01"})
	mustCreate(debitForm("Groceries", "Food", "180", "2025-05-02"))
	mustCreate(debitForm("Restaurant", "Food", "45", "2025-05-03"))
	mustCreate(debitForm("Rent", "Housing", "1200", "2025-05-01"))
	if _, err := svc.CreateBudget(ctx, core.BudgetForm{Name: "Food", Limit: "200"}); err != nil {
		t.Fatal(err)
	}

	d := svc.Dashboard()
	if !d.Stats.Income.Equal(decimal.NewFromInt(3000)) || !d.Stats.Expenses.Equal(decimal.NewFromInt(1425)) {
		t.Errorf("unexpected stats %+v", d.Stats)
	}
	if !d.Stats.Balance.Equal(decimal.NewFromInt(1575)) {
		t.Errorf("balance = %s", d.Stats.Balance)
	}
	if len(d.Stats.TopSpendings) != 2 || d.Stats.TopSpendings[0].Name != "Housing" {
		t.Errorf("unexpected top spendings %+v", d.Stats.TopSpendings)
	}
	if len(d.Budgets) != 1 || d.Budgets[0].Level != core.LevelDanger || !d.Budgets[0].OverBudget {
		t.Errorf("unexpected budget stats %+v", d.Budgets)
	}
	if d.Transactions != 4 {
		t.Errorf("transaction count = %d", d.Transactions)
	}
}

func TestSearch(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	for _, f := range []core.TransactionForm{
		debitForm("Coffee beans", "Food", "12.50", "2025-05-02"),
		debitForm("Bus ticket", "Transport", "2.40", "2025-05-03"),
		debitForm("Coffee machine", "Home", "89.99", "2025-05-01"),
	} {
		if _, err := svc.CreateTransaction(ctx, f); err != nil {
			t.Fatal(err)
		}
	}

	res := svc.Search("coffee", query.AmountDesc)
	if res.PatternError != "" || res.Total != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Rows[0].Transaction.Description != "Coffee machine" {
		t.Errorf("amount-desc order broken: %s first", res.Rows[0].Transaction.Description)
	}
	if res.Rows[0].Highlighted.Description != "<mark>Coffee</mark> machine" {
		t.Errorf("highlight = %q", res.Rows[0].Highlighted.Description)
	}

	bad := svc.Search("([", query.DateDesc)
	if bad.PatternError == "" || bad.Total != 3 {
		t.Errorf("invalid pattern should list everything with an error, got %+v", bad)
	}
	if bad.Rows[0].Transaction.Date.String() != "2025-05-03" {
		t.Errorf("date-desc order broken")
	}
}

func TestImportDocument(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, pub)
	ctx := context.Background()

	if _, err := svc.CreateTransaction(ctx, debitForm("Old", "Food", "1", "2025-01-01")); err != nil {
		t.Fatal(err)
	}

	_, err := svc.ImportDocument(ctx, strings.NewReader(`{"transactions":[]}`))
	if !errors.Is(err, transfer.ErrMissingCollections) {
		t.Fatalf("expected ErrMissingCollections, got %v", err)
	}
	if svc.Dashboard().Transactions != 1 {
		t.Fatalf("rejected import must leave the store untouched")
	}

	sum, err := svc.ImportDocument(ctx, strings.NewReader(`{"transactions":[{"id":"t9","type":"credit","description":"Gift","category":null,"senderRecipient":"Aunt","amount":50,"date":"2025-02-01"}],"budgets":[]}`))
	if err != nil {
		t.Fatalf("ImportDocument() error = %v", err)
	}
	if sum.Transactions != 1 || sum.Budgets != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if rows := svc.Search("", "").Rows; len(rows) != 1 || rows[0].Transaction.ID != "t9" {
		t.Errorf("store not replaced: %+v", rows)
	}
	if got := pub.ops(); got[len(got)-1] != "import:document" {
		t.Errorf("published %v", got)
	}
}

func TestImportAndExportCSV(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	input := "Date,Description,Category,Sender/Recipient,Amount\n" +
		"2025-03-01,Salary,,ACME,2000\n" +
		"2025-03-02,Groceries,Food,Market,-60\n" +
		"2025-03-03,Taxi,Transport,Cab,-15.5\n" +
		"2025-03-04,Broken\n"

	res, err := svc.ImportCSV(ctx, strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportCSV() error = %v", err)
	}
	if res.Imported != 3 {
		t.Fatalf("Imported = %d, want 3", res.Imported)
	}
	for _, txn := range res.Transactions {
		if !strings.HasPrefix(txn.ID, "txn_") {
			t.Errorf("unexpected id %q", txn.ID)
		}
	}

	var buf bytes.Buffer
	if err := svc.ExportCSV(&buf); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	want := "Date,Description,Category,Sender/Recipient,Amount\n" +
		"2025-03-01,Salary,,ACME,2000\n" +
		"2025-03-02,Groceries,Food,Market,-60\n" +
		"2025-03-03,Taxi,Transport,Cab,-15.5\n"
	if buf.String() != want {
		t.Errorf("ExportCSV() =\n%s\nwant\n%s", buf.String(), want)
	}

	buf.Reset()
	if err := svc.ExportDocument(&buf); err != nil {
		t.Fatalf("ExportDocument() error = %v", err)
	}
	doc, err := transfer.DecodeDocument(&buf)
	if err != nil || len(doc.Transactions) != 3 {
		t.Errorf("exported document did not round trip: %v", err)
	}
}
