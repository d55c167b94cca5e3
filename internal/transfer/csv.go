package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Header is the first row of every tabular export.
var Header = []string{"Date", "Description", "Category", "Sender/Recipient", "Amount"}

const minFields = 5

// CSVResult summarizes a tabular import.
type CSVResult struct {
	Transactions []core.Transaction
	Imported     int
	Skipped      int
}

// ImportCSV parses a tabular export. The first row is a header and is
// skipped. A row is imported when it has at least five fields, a numeric
// amount and a valid date; the amount sign selects the type (positive is
// credit) and the stored amount is its absolute value. Any other row is
// skipped and counted. Only read failures return an error.
func ImportCSV(r io.Reader, now time.Time, newID func() string) (CSVResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var res CSVResult
	for line := 0; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				if line > 0 {
					res.Skipped++
				}
				continue
			}
			return res, fmt.Errorf("read csv: %w", err)
		}
		if line == 0 {
			continue
		}

		txn, ok := rowToTransaction(record, now)
		if !ok {
			res.Skipped++
			continue
		}
		txn.ID = newID()
		res.Transactions = append(res.Transactions, txn)
	}
	res.Imported = len(res.Transactions)
	return res, nil
}

func rowToTransaction(record []string, now time.Time) (core.Transaction, bool) {
	if len(record) < minFields {
		return core.Transaction{}, false
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	amount, err := core.ParseSignedAmount(record[4])
	if err != nil {
		return core.Transaction{}, false
	}
	date, err := core.ParseDate(record[0])
	if err != nil {
		return core.Transaction{}, false
	}

	txn := core.Transaction{
		Type:            core.Debit,
		Description:     record[1],
		SenderRecipient: record[3],
		Amount:          amount.Abs(),
		Date:            date,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if amount.IsPositive() {
		txn.Type = core.Credit
	} else if record[2] != "" {
		txn.Category = core.StrPtr(record[2])
	}
	return txn, true
}

// Rows renders txns as tabular rows, header first. Debit amounts are negated.
func Rows(txns []core.Transaction) [][]string {
	rows := make([][]string, 0, len(txns)+1)
	rows = append(rows, append([]string(nil), Header...))
	for _, t := range txns {
		category, _ := t.CategoryName()
		amount := t.Amount
		if !t.IsCredit() {
			amount = amount.Neg()
		}
		rows = append(rows, []string{
			t.Date.String(),
			t.Description,
			category,
			t.SenderRecipient,
			amount.String(),
		})
	}
	return rows
}

// ExportCSV writes txns in tabular form.
func ExportCSV(w io.Writer, txns []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Rows(txns)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
