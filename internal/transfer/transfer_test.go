package transfer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("txn_%d", n)
	}
}

func TestDecodeDocument(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		txns    int
		budgets int
	}{
		{
			name:    "full document",
			input:   `{"transactions":[{"id":"t1","type":"credit","description":"Salary","category":null,"senderRecipient":"ACME","amount":1000,"date":"2025-01-01"}],"budgets":[{"id":"b1","name":"Food","limit":300}]}`,
			txns:    1,
			budgets: 1,
		},
		{
			name:  "empty collections are present",
			input: `{"transactions":[],"budgets":[]}`,
		},
		{
			name:    "missing budgets",
			input:   `{"transactions":[]}`,
			wantErr: ErrMissingCollections,
		},
		{
			name:    "null transactions",
			input:   `{"transactions":null,"budgets":[]}`,
			wantErr: ErrMissingCollections,
		},
		{
			name:    "not json",
			input:   `transactions,budgets`,
			wantErr: ErrMalformedDocument,
		},
		{
			name:    "wrong collection type",
			input:   `{"transactions":{},"budgets":[]}`,
			wantErr: ErrMalformedDocument,
		},
		{
			name:    "non-string date inside",
			input:   `{"transactions":[{"id":"t","date":20250101}],"budgets":[]}`,
			wantErr: ErrMalformedDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := DecodeDocument(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeDocument() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeDocument() error = %v", err)
			}
			if len(doc.Transactions) != tt.txns || len(doc.Budgets) != tt.budgets {
				t.Errorf("got %d transactions, %d budgets", len(doc.Transactions), len(doc.Budgets))
			}
			if doc.Transactions == nil || doc.Budgets == nil {
				t.Errorf("collections must be non-nil")
			}
		})
	}
}

func TestDecodeDocumentKeepsUnparseableDate(t *testing.T) {
	input := `{"transactions":[{"id":"t","date":"2025-13-01","amount":5}],"budgets":[]}`
	doc, err := DecodeDocument(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeDocument() error = %v", err)
	}
	got := doc.Transactions[0].Date
	if got.Valid() {
		t.Error("date should not be valid")
	}
	if got.String() != "2025-13-01" {
		t.Errorf("date = %q, want original text", got.String())
	}
}

func TestEncodeDocumentRoundTrip(t *testing.T) {
	doc := core.Document{
		Transactions: []core.Transaction{{
			ID:          "t1",
			Type:        core.Debit,
			Description: "Groceries",
			Category:    core.StrPtr("Food"),
			Amount:      decimal.RequireFromString("42.5"),
			Date:        core.NewDate(2025, 3, 14),
		}},
	}

	var buf bytes.Buffer
	if err := EncodeDocument(&buf, doc); err != nil {
		t.Fatalf("EncodeDocument() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"budgets": []`) {
		t.Errorf("nil budgets should encode as an empty array:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), `"amount": 42.5`) {
		t.Errorf("amount should be a JSON number:\n%s", buf.String())
	}

	back, err := DecodeDocument(&buf)
	if err != nil {
		t.Fatalf("DecodeDocument() error = %v", err)
	}
	if back.Transactions[0].Date.String() != "2025-03-14" || *back.Transactions[0].Category != "Food" {
		t.Errorf("round trip lost data: %+v", back.Transactions[0])
	}
}

func TestImportCSVCountsWellFormedRows(t *testing.T) {
	input := strings.Join([]string{
		"Date,Description,Category,Sender/Recipient,Amount",
		"2025-01-05,Salary,,ACME,2500",
		"2025-01-06,Groceries,Food,Market,-54.20",
		"2025-01-07,Bus pass,Transport,City,-30",
		"2025-01-08,Broken row,Food",
	}, "\n")

	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	res, err := ImportCSV(strings.NewReader(input), now, sequentialIDs())
	if err != nil {
		t.Fatalf("ImportCSV() error = %v", err)
	}
	if res.Imported != 3 || len(res.Transactions) != 3 {
		t.Fatalf("Imported = %d, want 3", res.Imported)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}

	salary := res.Transactions[0]
	if salary.Type != core.Credit || salary.Category != nil || !salary.Amount.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("unexpected credit row %+v", salary)
	}
	groceries := res.Transactions[1]
	if groceries.Type != core.Debit || *groceries.Category != "Food" || groceries.Amount.String() != "54.2" {
		t.Errorf("unexpected debit row %+v", groceries)
	}
	if groceries.ID != "txn_2" || !groceries.CreatedAt.Equal(now) || !groceries.UpdatedAt.Equal(now) {
		t.Errorf("id/timestamps not assigned: %+v", groceries)
	}
}

func TestImportCSVSkipsMalformedValues(t *testing.T) {
	input := strings.Join([]string{
		"Date,Description,Category,Sender/Recipient,Amount",
		"2025-01-05,Coffee,Food,Cafe,abc",
		"05/01/2025,Coffee,Food,Cafe,-3",
		"",
		"2025-01-05,Coffee,,Cafe,0",
	}, "\n")

	res, err := ImportCSV(strings.NewReader(input), time.Now(), sequentialIDs())
	if err != nil {
		t.Fatalf("ImportCSV() error = %v", err)
	}
	if res.Imported != 1 || res.Skipped != 2 {
		t.Fatalf("Imported = %d, Skipped = %d", res.Imported, res.Skipped)
	}
	zero := res.Transactions[0]
	if zero.Type != core.Debit || zero.Category != nil {
		t.Errorf("zero amount should be an uncategorized debit, got %+v", zero)
	}
}

func TestImportCSVHeaderOnly(t *testing.T) {
	res, err := ImportCSV(strings.NewReader("Date,Description,Category,Sender/Recipient,Amount\n"), time.Now(), sequentialIDs())
	if err != nil || res.Imported != 0 {
		t.Fatalf("got %+v, %v", res, err)
	}
}

func TestExportCSV(t *testing.T) {
	txns := []core.Transaction{
		{Type: core.Credit, Description: "Salary", SenderRecipient: "ACME", Amount: decimal.NewFromInt(2500), Date: core.NewDate(2025, 1, 5)},
		{Type: core.Debit, Description: "Dinner, drinks", Category: core.StrPtr("Food"), SenderRecipient: "Bistro", Amount: decimal.RequireFromString("48.5"), Date: core.NewDate(2025, 1, 6)},
	}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, txns); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	want := "Date,Description,Category,Sender/Recipient,Amount\n" +
		"2025-01-05,Salary,,ACME,2500\n" +
		"2025-01-06,\"Dinner, drinks\",Food,Bistro,-48.5\n"
	if buf.String() != want {
		t.Errorf("ExportCSV() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	txns := []core.Transaction{
		{Type: core.Debit, Description: "Rent", Category: core.StrPtr("Housing"), SenderRecipient: "Landlord", Amount: decimal.NewFromInt(900), Date: core.NewDate(2025, 2, 1)},
		{Type: core.Credit, Description: "Refund", SenderRecipient: "Shop", Amount: decimal.RequireFromString("12.99"), Date: core.NewDate(2025, 2, 2)},
	}
	var buf bytes.Buffer
	if err := ExportCSV(&buf, txns); err != nil {
		t.Fatal(err)
	}
	res, err := ImportCSV(&buf, time.Now(), sequentialIDs())
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 2 {
		t.Fatalf("Imported = %d", res.Imported)
	}
	for i, got := range res.Transactions {
		want := txns[i]
		if got.Type != want.Type || !got.Amount.Equal(want.Amount) || !got.Date.Equal(want.Date.Time) {
			t.Errorf("row %d: got %+v want %+v", i, got, want)
		}
	}
}
