package core

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field error messages shown next to form inputs.
const (
	MsgRequired          = "Field is required"
	MsgDuplicateWords    = "Duplicate words detected"
	MsgInvalidType       = "Invalid transaction type"
	MsgInvalidDesc       = "Invalid description"
	MsgInvalidAmount     = "Invalid amount format"
	MsgInvalidDate       = "Invalid date format (YYYY-MM-DD)"
	MsgInvalidCategory   = "Invalid category name"
	MsgInvalidBudgetName = "Letters only for budget name"
	MsgInvalidLimit      = "Valid positive number required"
)

// ValidationErrors maps a form field to its error message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f, v[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type (
	// TransactionForm carries raw user input for a new transaction.
	TransactionForm struct {
		Type            string `json:"type"`
		Description     string `json:"description"`
		Category        string `json:"category"`
		SenderRecipient string `json:"senderRecipient"`
		Amount          string `json:"amount"`
		Date            string `json:"date"`
	}

	// BudgetForm carries raw user input for a new budget.
	BudgetForm struct {
		Name  string `json:"name"`
		Limit string `json:"limit"`
	}
)

// checkField applies the shared required / duplicate-word / rule sequence.
func checkField(errs ValidationErrors, field, value string, rule *regexp.Regexp, msg string, checkDuplicates bool) {
	if value == "" {
		errs[field] = MsgRequired
		return
	}
	if checkDuplicates && HasDuplicateWord(value) {
		errs[field] = MsgDuplicateWords
		return
	}
	if !rule.MatchString(value) {
		errs[field] = msg
	}
}

func (f TransactionForm) Validate() error {
	errs := ValidationErrors{}
	switch TxType(f.Type) {
	case Credit, Debit:
	default:
		errs["type"] = MsgInvalidType
	}
	checkField(errs, "description", f.Description, DescriptionRule, MsgInvalidDesc, true)
	checkField(errs, "amount", f.Amount, AmountRule, MsgInvalidAmount, false)
	checkField(errs, "date", f.Date, DateRule, MsgInvalidDate, false)
	if _, ok := errs["date"]; !ok {
		// The rule allows 31 in every month; the calendar does not.
		if _, err := ParseDate(f.Date); err != nil {
			errs["date"] = MsgInvalidDate
		}
	}
	if TxType(f.Type) == Debit {
		checkField(errs, "category", f.Category, CategoryRule, MsgInvalidCategory, false)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Build converts a validated form into a Transaction.
func (f TransactionForm) Build(id string, now time.Time) (Transaction, error) {
	if err := f.Validate(); err != nil {
		return Transaction{}, err
	}
	amount, err := ParseAmount(f.Amount)
	if err != nil {
		return Transaction{}, err
	}
	date, err := ParseDate(f.Date)
	if err != nil {
		return Transaction{}, err
	}
	t := Transaction{
		ID:              id,
		Type:            TxType(f.Type),
		Description:     strings.TrimSpace(f.Description),
		SenderRecipient: strings.TrimSpace(f.SenderRecipient),
		Amount:          amount,
		Date:            date,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if t.Type == Debit {
		t.Category = StrPtr(f.Category)
	}
	return t, nil
}

func (f BudgetForm) Validate() error {
	errs := ValidationErrors{}
	checkField(errs, "name", f.Name, CategoryRule, MsgInvalidBudgetName, true)
	checkField(errs, "limit", f.Limit, AmountRule, MsgInvalidLimit, false)
	if _, ok := errs["limit"]; !ok {
		if limit, err := ParseAmount(f.Limit); err != nil || !limit.IsPositive() {
			errs["limit"] = MsgInvalidLimit
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Build converts a validated form into a Budget.
func (f BudgetForm) Build(id string, now time.Time) (Budget, error) {
	if err := f.Validate(); err != nil {
		return Budget{}, err
	}
	limit, err := ParseAmount(f.Limit)
	if err != nil {
		return Budget{}, err
	}
	return Budget{
		ID:        id,
		Name:      strings.TrimSpace(f.Name),
		Limit:     limit,
		CreatedAt: now,
	}, nil
}

// ParseLimit validates a reallocation limit.
func ParseLimit(s string) (decimal.Decimal, error) {
	limit, err := ParseAmount(strings.TrimSpace(s))
	if err != nil || !limit.IsPositive() {
		return decimal.Zero, ValidationErrors{"limit": MsgInvalidLimit}
	}
	return limit, nil
}
