// Package finance contains the pure aggregation functions over
// transaction lists. Amounts are decimal to keep money arithmetic exact.
package finance

import (
	"errors"
	"fmt"
	"time"

	"fintrack/internal/models"

	"github.com/shopspring/decimal"
)

// ErrInvalidType is returned by CalculateBalance when a record carries a
// type that is neither INCOME nor EXPENSE.
var ErrInvalidType = errors.New("invalid transaction type")

// ErrInvalidPeriod is returned by FilterByPeriod for unparseable bounds
// or a start date after the end date.
var ErrInvalidPeriod = errors.New("invalid period")

// Stats summarizes a list of transactions.
type Stats struct {
	TotalIncome      decimal.Decimal `json:"totalIncome"`
	TotalExpenses    decimal.Decimal `json:"totalExpenses"`
	Balance          decimal.Decimal `json:"balance"`
	TransactionCount int             `json:"transactionCount"`
	AverageIncome    decimal.Decimal `json:"averageIncome"`
	AverageExpense   decimal.Decimal `json:"averageExpense"`
}

// CalculateBalance returns the sum of income amounts minus the sum of
// expense amounts. A record with an unrecognized type is an error, never
// a silent zero. The result is independent of input order.
func CalculateBalance(transactions []models.Transaction) (decimal.Decimal, error) {
	balance := decimal.Zero
	for _, t := range transactions {
		switch t.Type {
		case models.TypeIncome:
			balance = balance.Add(t.Amount)
		case models.TypeExpense:
			balance = balance.Sub(t.Amount)
		default:
			return decimal.Zero, fmt.Errorf("%w: %q (must be INCOME or EXPENSE)", ErrInvalidType, t.Type)
		}
	}
	return balance, nil
}

// CalculateTotalIncome sums the INCOME records. Empty input yields zero.
func CalculateTotalIncome(transactions []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range transactions {
		if t.Type == models.TypeIncome {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// CalculateTotalExpenses sums the EXPENSE records. Empty input yields zero.
func CalculateTotalExpenses(transactions []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range transactions {
		if t.Type == models.TypeExpense {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// CalculateStats derives totals, balance, count and per-record averages.
// Averages are zero when the list is empty; the count guard is explicit.
func CalculateStats(transactions []models.Transaction) Stats {
	totalIncome := CalculateTotalIncome(transactions)
	totalExpenses := CalculateTotalExpenses(transactions)
	count := len(transactions)

	avgIncome := decimal.Zero
	avgExpense := decimal.Zero
	if count > 0 {
		n := decimal.NewFromInt(int64(count))
		avgIncome = totalIncome.Div(n)
		avgExpense = totalExpenses.Div(n)
	}

	return Stats{
		TotalIncome:      totalIncome,
		TotalExpenses:    totalExpenses,
		Balance:          totalIncome.Sub(totalExpenses),
		TransactionCount: count,
		AverageIncome:    avgIncome,
		AverageExpense:   avgExpense,
	}
}

// FilterByPeriod returns the transactions whose date falls within
// [startDate, endDate], both bounds inclusive. Bounds are "2006-01-02"
// dates or RFC 3339 timestamps; a date-only end bound covers its whole
// day. Fails when either bound is unparseable or start is after end.
func FilterByPeriod(transactions []models.Transaction, startDate, endDate string) ([]models.Transaction, error) {
	start, _, err := parseBound(startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: bad start date %q", ErrInvalidPeriod, startDate)
	}
	end, dateOnly, err := parseBound(endDate)
	if err != nil {
		return nil, fmt.Errorf("%w: bad end date %q", ErrInvalidPeriod, endDate)
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: start date must not be after end date", ErrInvalidPeriod)
	}
	if dateOnly {
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	filtered := make([]models.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if !t.Date.Before(start) && !t.Date.After(end) {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

func parseBound(s string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, err
}
