package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Credit TxType = "credit"
	Debit  TxType = "debit"
)

// DateLayout is the calendar date format used for transactions.
const DateLayout = "2006-01-02"

// Uncategorized is the bucket for debits without a category.
const Uncategorized = "Uncategorized"

type (
	TxType string

	// Date is a calendar day. Text that is not a valid YYYY-MM-DD date is
	// kept verbatim with a zero time so stored documents round-trip.
	Date struct {
		time.Time
		raw string
	}

	Transaction struct {
		ID              string          `json:"id"`
		Type            TxType          `json:"type"`
		Description     string          `json:"description"`
		Category        *string         `json:"category"` // soft reference to Budget.Name, nil for credits
		SenderRecipient string          `json:"senderRecipient"`
		Amount          decimal.Decimal `json:"amount"`
		Date            Date            `json:"date"`
		CreatedAt       time.Time       `json:"createdAt"`
		UpdatedAt       time.Time       `json:"updatedAt"`
	}

	Budget struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"` // also the category key
		Limit     decimal.Decimal `json:"limit"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	// Document is the unit written to the persistence slot.
	Document struct {
		Transactions []Transaction `json:"transactions"`
		Budgets      []Budget      `json:"budgets"`
	}
)

var ErrInvalidDate = errors.New("invalid date")

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	if d.raw != "" {
		return d.raw
	}
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidDate
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		*d = Date{raw: s}
		return nil
	}
	*d = parsed
	return nil
}

// Valid reports whether d holds a parsed calendar date.
func (d Date) Valid() bool {
	return d.raw == "" && !d.IsZero()
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}

// IsCredit reports whether the transaction counts as income. Every other
// type is treated as a debit.
func (t Transaction) IsCredit() bool {
	return t.Type == Credit
}

// CategoryName returns the category and whether one is set.
func (t Transaction) CategoryName() (string, bool) {
	if t.Category == nil || *t.Category == "" {
		return "", false
	}
	return *t.Category, true
}

// Clone returns a copy that shares no pointers with t.
func (t Transaction) Clone() Transaction {
	if t.Category != nil {
		t.Category = StrPtr(*t.Category)
	}
	return t
}

// Normalize replaces nil collections with empty ones so the document
// always encodes as two arrays.
func (d Document) Normalize() Document {
	if d.Transactions == nil {
		d.Transactions = []Transaction{}
	}
	if d.Budgets == nil {
		d.Budgets = []Budget{}
	}
	return d
}
