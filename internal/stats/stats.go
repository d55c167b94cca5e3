// Package stats computes the dashboard figures from the store contents.
//
// Every function here is pure: it reads the slices it is given and returns
// fresh values, so results can be recomputed on each request.
package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// TopSpendingsLimit is the number of categories reported on the dashboard.
const TopSpendingsLimit = 3

// ComputeStats totals income and expenses in one pass and ranks the debit
// categories by amount.
func ComputeStats(txns []core.Transaction) core.DerivedStats {
	income := decimal.Zero
	expenses := decimal.Zero
	for _, t := range txns {
		if t.IsCredit() {
			income = income.Add(t.Amount)
		} else {
			expenses = expenses.Add(t.Amount)
		}
	}

	totals := CategoryTotals(txns)
	// Stable sort keeps first-appearance order for equal amounts.
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Amount.GreaterThan(totals[j].Amount)
	})
	if len(totals) > TopSpendingsLimit {
		totals = totals[:TopSpendingsLimit]
	}

	return core.DerivedStats{
		Income:       income,
		Expenses:     expenses,
		Balance:      income.Sub(expenses),
		TopSpendings: totals,
	}
}

// CategoryTotals sums debit amounts per category in order of first
// appearance. Debits without a category fall under core.Uncategorized.
func CategoryTotals(txns []core.Transaction) []core.CategoryAmount {
	index := map[string]int{}
	out := []core.CategoryAmount{}
	for _, t := range txns {
		if t.IsCredit() {
			continue
		}
		name, ok := t.CategoryName()
		if !ok {
			name = core.Uncategorized
		}
		i, seen := index[name]
		if !seen {
			index[name] = len(out)
			out = append(out, core.CategoryAmount{Name: name, Amount: t.Amount})
			continue
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	return out
}

// ComputeBudgetStats reports consumption for each budget, in budget order.
// A debit counts against a budget only when its category equals the budget
// name exactly; there is no referential integrity between the two.
func ComputeBudgetStats(budgets []core.Budget, txns []core.Transaction) []core.BudgetStat {
	out := make([]core.BudgetStat, 0, len(budgets))
	for _, b := range budgets {
		spent := decimal.Zero
		for _, t := range txns {
			if t.Type != core.Debit {
				continue
			}
			if t.Category != nil && *t.Category == b.Name {
				spent = spent.Add(t.Amount)
			}
		}
		pct := core.Percentage(spent, b.Limit)
		out = append(out, core.BudgetStat{
			Budget:     b,
			Spent:      spent,
			Percentage: pct,
			OverBudget: spent.GreaterThan(b.Limit),
			Level:      core.LevelFor(spent, b.Limit, pct),
		})
	}
	return out
}
