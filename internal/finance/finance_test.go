package finance

import (
	"testing"
	"time"

	"fintrack/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(amount string, typ models.TransactionType, date string) models.Transaction {
	d, _ := time.Parse("2006-01-02", date)
	return models.Transaction{
		Amount: decimal.RequireFromString(amount),
		Type:   typ,
		Date:   d,
	}
}

func TestCalculateBalance(t *testing.T) {
	transactions := []models.Transaction{
		tx("1000", models.TypeIncome, "2024-01-01"),
		tx("500", models.TypeExpense, "2024-01-02"),
		tx("250.50", models.TypeIncome, "2024-01-03"),
	}

	balance, err := CalculateBalance(transactions)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("750.50")), "got %s", balance)
}

func TestCalculateBalanceEmpty(t *testing.T) {
	balance, err := CalculateBalance(nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	balance, err = CalculateBalance([]models.Transaction{})
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestCalculateBalanceOrderIndependent(t *testing.T) {
	a := tx("1000", models.TypeIncome, "2024-01-01")
	b := tx("300", models.TypeExpense, "2024-01-02")
	c := tx("45.25", models.TypeIncome, "2024-01-03")

	orders := [][]models.Transaction{
		{a, b, c},
		{c, b, a},
		{b, a, c},
	}
	want, err := CalculateBalance(orders[0])
	require.NoError(t, err)
	for _, perm := range orders[1:] {
		got, err := CalculateBalance(perm)
		require.NoError(t, err)
		assert.True(t, got.Equal(want), "permuting input changed the result: %s != %s", got, want)
	}
}

func TestCalculateBalanceInvalidType(t *testing.T) {
	_, err := CalculateBalance([]models.Transaction{
		tx("100", models.TypeIncome, "2024-01-01"),
		tx("50", "TRANSFER", "2024-01-02"),
	})
	assert.ErrorIs(t, err, ErrInvalidType)
	assert.Contains(t, err.Error(), "TRANSFER")

	_, err = CalculateBalance([]models.Transaction{tx("50", "", "2024-01-02")})
	assert.ErrorIs(t, err, ErrInvalidType, "missing type is an error, not a silent zero")
}

func TestCalculateTotals(t *testing.T) {
	transactions := []models.Transaction{
		tx("1000", models.TypeIncome, "2024-01-01"),
		tx("500", models.TypeExpense, "2024-01-02"),
		tx("200", models.TypeExpense, "2024-01-03"),
	}

	income := CalculateTotalIncome(transactions)
	assert.True(t, income.Equal(decimal.NewFromInt(1000)))

	expenses := CalculateTotalExpenses(transactions)
	assert.True(t, expenses.Equal(decimal.NewFromInt(700)))

	assert.True(t, CalculateTotalIncome(nil).IsZero())
	assert.True(t, CalculateTotalExpenses(nil).IsZero())
}

func TestCalculateStats(t *testing.T) {
	transactions := []models.Transaction{
		tx("1000", models.TypeIncome, "2024-01-01"),
		tx("500", models.TypeExpense, "2024-01-02"),
	}

	stats := CalculateStats(transactions)
	assert.True(t, stats.TotalIncome.Equal(decimal.NewFromInt(1000)))
	assert.True(t, stats.TotalExpenses.Equal(decimal.NewFromInt(500)))
	assert.True(t, stats.Balance.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 2, stats.TransactionCount)
	assert.True(t, stats.AverageIncome.Equal(decimal.NewFromInt(500)))
	assert.True(t, stats.AverageExpense.Equal(decimal.NewFromInt(250)))
}

func TestCalculateStatsEmpty(t *testing.T) {
	stats := CalculateStats(nil)
	assert.Equal(t, 0, stats.TransactionCount)
	assert.True(t, stats.Balance.IsZero())
	assert.True(t, stats.AverageIncome.IsZero(), "no division by zero")
	assert.True(t, stats.AverageExpense.IsZero())
}

func TestFilterByPeriod(t *testing.T) {
	transactions := []models.Transaction{
		tx("10", models.TypeIncome, "2024-01-15"),
		tx("20", models.TypeIncome, "2024-01-16"),
		tx("30", models.TypeIncome, "2024-01-17"),
		tx("40", models.TypeIncome, "2024-01-18"),
	}

	filtered, err := FilterByPeriod(transactions, "2024-01-16", "2024-01-17")
	require.NoError(t, err)
	require.Len(t, filtered, 2, "both boundary days are inclusive")
	assert.True(t, filtered[0].Amount.Equal(decimal.NewFromInt(20)))
	assert.True(t, filtered[1].Amount.Equal(decimal.NewFromInt(30)))
}

func TestFilterByPeriodStartAfterEnd(t *testing.T) {
	_, err := FilterByPeriod(nil, "2024-02-01", "2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestFilterByPeriodBadDates(t *testing.T) {
	_, err := FilterByPeriod(nil, "not-a-date", "2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = FilterByPeriod(nil, "2024-01-01", "soon")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestFilterByPeriodEmptyResult(t *testing.T) {
	transactions := []models.Transaction{tx("10", models.TypeIncome, "2024-06-01")}
	filtered, err := FilterByPeriod(transactions, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Empty(t, filtered)
}
