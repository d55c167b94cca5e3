package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01-01", true},
		{"2024-02-29", true},
		{"2025-02-29", false},
		{"2025-04-31", false},
		{"2025-13-01", false},
		{"25-01-01", false},
		{"", false},
	}
	for _, tc := range cases {
		_, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestTransactionJSONShape(t *testing.T) {
	txn := Transaction{
		ID:              "txn_1",
		Type:            Debit,
		Description:     "Groceries",
		Category:        StrPtr("Food"),
		SenderRecipient: "Market",
		Amount:          decimal.RequireFromString("12.5"),
		Date:            NewDate(2025, 3, 9),
		CreatedAt:       time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(txn)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"amount":12.5`, `"date":"2025-03-09"`, `"category":"Food"`, `"senderRecipient":"Market"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}

	credit := Transaction{ID: "txn_2", Type: Credit, Amount: decimal.NewFromInt(5)}
	data, _ = json.Marshal(credit)
	if !strings.Contains(string(data), `"category":null`) {
		t.Fatalf("credit category should encode as null: %s", data)
	}
}

func TestTransactionUnmarshalSeedShape(t *testing.T) {
	raw := `{"id":"txn_9","type":"debit","description":"Bus","category":"Transport",
		"senderRecipient":"City","amount":3,"date":"2025-01-15",
		"createdAt":"2025-01-15T08:00:00.000Z","updatedAt":"2025-01-15T08:00:00.000Z"}`
	var txn Transaction
	if err := json.Unmarshal([]byte(raw), &txn); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !txn.Amount.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("amount = %s", txn.Amount)
	}
	if cat, ok := txn.CategoryName(); !ok || cat != "Transport" {
		t.Fatalf("category = %q %v", cat, ok)
	}
	if txn.Date.String() != "2025-01-15" {
		t.Fatalf("date = %s", txn.Date)
	}

	if err := json.Unmarshal([]byte(`{"date":123}`), &txn); err == nil {
		t.Fatalf("expected non-string date to fail")
	}
}

func TestDateKeepsUnparseableText(t *testing.T) {
	for _, in := range []string{"2024-1-5", "2025-02-30", "yesterday"} {
		var txn Transaction
		if err := json.Unmarshal([]byte(`{"date":"`+in+`"}`), &txn); err != nil {
			t.Fatalf("unmarshal %q: %v", in, err)
		}
		if txn.Date.Valid() {
			t.Errorf("%q should not be a valid date", in)
		}
		if txn.Date.String() != in {
			t.Errorf("String() = %q, want %q", txn.Date.String(), in)
		}
		data, _ := json.Marshal(txn.Date)
		if string(data) != `"`+in+`"` {
			t.Errorf("marshal = %s, want %q", data, in)
		}
	}
	if !NewDate(2025, 1, 5).Valid() {
		t.Error("NewDate should be valid")
	}
}

func TestCategoryNameAbsent(t *testing.T) {
	if _, ok := (Transaction{}).CategoryName(); ok {
		t.Fatalf("nil category should be absent")
	}
	if _, ok := (Transaction{Category: StrPtr("")}).CategoryName(); ok {
		t.Fatalf("empty category should be absent")
	}
}

func TestCloneDoesNotShareCategory(t *testing.T) {
	orig := Transaction{Category: StrPtr("Food")}
	c := orig.Clone()
	*c.Category = "Rent"
	if *orig.Category != "Food" {
		t.Fatalf("clone mutated original")
	}
}

func TestDocumentNormalize(t *testing.T) {
	data, _ := json.Marshal(Document{}.Normalize())
	if string(data) != `{"transactions":[],"budgets":[]}` {
		t.Fatalf("unexpected %s", data)
	}
}
