package core

import "github.com/shopspring/decimal"

const (
	LevelOK      BudgetLevel = "ok"
	LevelWarning BudgetLevel = "warning"
	LevelDanger  BudgetLevel = "danger"
)

// warningPercentage is the consumption above which a budget is flagged.
const warningPercentage = 80

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// DerivedStats is recomputed on every read and never persisted.
type DerivedStats struct {
	Income       decimal.Decimal  `json:"income"`
	Expenses     decimal.Decimal  `json:"expenses"`
	Balance      decimal.Decimal  `json:"balance"`
	TopSpendings []CategoryAmount `json:"topSpendings"`
}

type BudgetLevel string

// BudgetStat is a budget with its consumption.
type BudgetStat struct {
	Budget
	Spent      decimal.Decimal `json:"spent"`
	Percentage float64         `json:"percentage"`
	OverBudget bool            `json:"overBudget"`
	Level      BudgetLevel     `json:"level"`
}

// LevelFor maps consumption to the progress indicator state.
func LevelFor(spent, limit decimal.Decimal, percentage float64) BudgetLevel {
	switch {
	case spent.GreaterThan(limit):
		return LevelDanger
	case percentage > warningPercentage:
		return LevelWarning
	default:
		return LevelOK
	}
}
