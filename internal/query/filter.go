package query

import (
	"html/template"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"fintrack/internal/core"
)

const (
	DateDesc       SortKey = "date-desc"
	DateAsc        SortKey = "date-asc"
	DescriptionAsc SortKey = "desc-asc"
	AmountDesc     SortKey = "amount-desc"
)

// SortKey selects the ordering of the transaction list.
type SortKey string

// Valid reports whether k is a recognized ordering.
func (k SortKey) Valid() bool {
	switch k {
	case DateDesc, DateAsc, DescriptionAsc, AmountDesc:
		return true
	}
	return false
}

// FilterAndSort returns a sorted and filtered copy of txns. The input slice
// is never reordered. An unknown or empty key keeps the input order; a nil
// matcher keeps every transaction.
func FilterAndSort(txns []core.Transaction, m *Matcher, key SortKey) []core.Transaction {
	out := make([]core.Transaction, len(txns))
	for i, t := range txns {
		out[i] = t.Clone()
	}
	sortTransactions(out, key)
	return Filter(out, m)
}

// Filter keeps the transactions with at least one searchable field matching m.
func Filter(txns []core.Transaction, m *Matcher) []core.Transaction {
	if m == nil {
		return txns
	}
	out := make([]core.Transaction, 0, len(txns))
	for _, t := range txns {
		if Matches(t, m) {
			out = append(out, t)
		}
	}
	return out
}

// Matches tests description, amount, date, category and sender/recipient.
// An absent category is skipped rather than tested as text.
func Matches(t core.Transaction, m *Matcher) bool {
	if m == nil {
		return true
	}
	if m.MatchString(t.Description) ||
		m.MatchString(t.Amount.String()) ||
		m.MatchString(t.Date.String()) ||
		m.MatchString(t.SenderRecipient) {
		return true
	}
	if cat, ok := t.CategoryName(); ok {
		return m.MatchString(cat)
	}
	return false
}

func sortTransactions(txns []core.Transaction, key SortKey) {
	var less func(a, b core.Transaction) bool
	switch key {
	case DateDesc:
		less = func(a, b core.Transaction) bool { return a.Date.After(b.Date.Time) }
	case DateAsc:
		less = func(a, b core.Transaction) bool { return a.Date.Before(b.Date.Time) }
	case DescriptionAsc:
		// Collators keep internal buffers, so each sort gets its own.
		col := collate.New(language.Und)
		less = func(a, b core.Transaction) bool {
			return col.CompareString(a.Description, b.Description) < 0
		}
	case AmountDesc:
		less = func(a, b core.Transaction) bool { return a.Amount.GreaterThan(b.Amount) }
	default:
		return
	}
	sort.SliceStable(txns, func(i, j int) bool { return less(txns[i], txns[j]) })
}

const (
	markOpen  = "<mark>"
	markClose = "</mark>"
)

// Highlight HTML-escapes text and wraps every non-empty match of m in
// <mark> tags. Matches are located on the raw text and each segment is
// escaped on its own, so markup in the data can never be injected or split.
// A nil matcher returns the escaped text.
func Highlight(text string, m *Matcher) string {
	if m == nil {
		return template.HTMLEscapeString(text)
	}
	var b strings.Builder
	prev := 0
	for _, loc := range m.re.FindAllStringIndex(text, -1) {
		if loc[0] == loc[1] {
			continue
		}
		b.WriteString(template.HTMLEscapeString(text[prev:loc[0]]))
		b.WriteString(markOpen)
		b.WriteString(template.HTMLEscapeString(text[loc[0]:loc[1]]))
		b.WriteString(markClose)
		prev = loc[1]
	}
	b.WriteString(template.HTMLEscapeString(text[prev:]))
	return b.String()
}

// HighlightedTransaction holds markup-safe display strings for one row.
type HighlightedTransaction struct {
	Description     string `json:"description"`
	Amount          string `json:"amount"`
	Date            string `json:"date"`
	Category        string `json:"category"`
	SenderRecipient string `json:"senderRecipient"`
}

// HighlightTransaction renders every searchable field of t. A missing
// category is shown as "-".
func HighlightTransaction(t core.Transaction, m *Matcher) HighlightedTransaction {
	cat, ok := t.CategoryName()
	if !ok {
		cat = "-"
	}
	return HighlightedTransaction{
		Description:     Highlight(t.Description, m),
		Amount:          Highlight(t.Amount.StringFixed(2), m),
		Date:            Highlight(t.Date.String(), m),
		Category:        Highlight(cat, m),
		SenderRecipient: Highlight(t.SenderRecipient, m),
	}
}
