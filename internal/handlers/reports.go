package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"time"

	"fintrack/internal/finance"
	"fintrack/internal/models"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"
)

type reportSummary struct {
	TotalIncome      decimal.Decimal `json:"totalIncome"`
	TotalExpense     decimal.Decimal `json:"totalExpense"`
	Balance          decimal.Decimal `json:"balance"`
	TransactionCount int             `json:"transactionCount"`
	Period           string          `json:"period"`
	StartDate        time.Time       `json:"startDate"`
	EndDate          time.Time       `json:"endDate"`
}

type dailyPoint struct {
	Date    string          `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

type conceptStat struct {
	Concept string          `json:"concept"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Count   int             `json:"count"`
}

type reportResponse struct {
	Summary       reportSummary        `json:"summary"`
	ChartData     []dailyPoint         `json:"chartData"`
	CategoryStats []conceptStat        `json:"categoryStats"`
	Transactions  []models.Transaction `json:"transactions"`
}

// reportPeriod resolves the period query parameter to a date range ending
// now. Unknown values fall back to the current month.
func reportPeriod(period string, now time.Time) (time.Time, string) {
	switch period {
	case "week":
		return time.Date(now.Year(), now.Month(), now.Day()-7, 0, 0, 0, 0, now.Location()), "week"
	case "year":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), "year"
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), "month"
	}
}

// ReportsAPI handles GET /api/admin/reports: totals, daily series and
// per-concept stats over a week/month/year window, in JSON or CSV.
func (h *Handlers) ReportsAPI(w http.ResponseWriter, r *http.Request, user *models.User) {
	now := time.Now()
	startDate, period := reportPeriod(r.URL.Query().Get("period"), now)

	transactions, err := h.db.ListTransactionsByPeriod(startDate, now)
	if err != nil {
		log.Error("report query failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		h.writeReportCSV(w, transactions, period)
		return
	}

	totalIncome := finance.CalculateTotalIncome(transactions)
	totalExpense := finance.CalculateTotalExpenses(transactions)

	writeJSON(w, http.StatusOK, reportResponse{
		Summary: reportSummary{
			TotalIncome:      totalIncome,
			TotalExpense:     totalExpense,
			Balance:          totalIncome.Sub(totalExpense),
			TransactionCount: len(transactions),
			Period:           period,
			StartDate:        startDate,
			EndDate:          now,
		},
		ChartData:     dailySeries(transactions),
		CategoryStats: conceptStats(transactions),
		Transactions:  firstN(transactions, 10),
	})
}

// ReportChartAPI handles GET /api/admin/reports/chart.png and renders the
// daily income/expense series as a PNG.
func (h *Handlers) ReportChartAPI(w http.ResponseWriter, r *http.Request, user *models.User) {
	now := time.Now()
	startDate, _ := reportPeriod(r.URL.Query().Get("period"), now)

	transactions, err := h.db.ListTransactionsByPeriod(startDate, now)
	if err != nil {
		log.Error("report query failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	points := dailySeries(transactions)
	if len(points) < 2 {
		// go-chart needs at least two x values to draw a series.
		jsonError(w, http.StatusNotFound, "not enough data to draw a chart")
		return
	}

	xValues := make([]time.Time, len(points))
	incomeValues := make([]float64, len(points))
	expenseValues := make([]float64, len(points))
	for i, p := range points {
		xValues[i], _ = time.Parse("2006-01-02", p.Date)
		incomeValues[i], _ = p.Income.Float64()
		expenseValues[i], _ = p.Expense.Float64()
	}

	graph := chart.Chart{
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 30, Left: 30, Right: 30, Bottom: 30},
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("Jan 02"),
		},
		Series: []chart.Series{
			chart.TimeSeries{Name: "Income", XValues: xValues, YValues: incomeValues},
			chart.TimeSeries{Name: "Expenses", XValues: xValues, YValues: expenseValues},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	w.Header().Set("Content-Type", "image/png")
	if err := graph.Render(chart.PNG, w); err != nil {
		log.Error("chart render failed", "err", err)
	}
}

func (h *Handlers) writeReportCSV(w http.ResponseWriter, transactions []models.Transaction, period string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("report-%s-%d.csv", period, time.Now().Unix())))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Date", "Concept", "Amount", "Type", "User"})
	for _, t := range transactions {
		owner := t.User.Name
		if owner == "" {
			owner = t.User.Email
		}
		_ = cw.Write([]string{
			t.Date.Format("2006-01-02"),
			t.Concept,
			t.Amount.String(),
			string(t.Type),
			owner,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Error("csv write failed", "err", err)
	}
}

// dailySeries groups transactions into per-day income/expense totals,
// sorted by date ascending.
func dailySeries(transactions []models.Transaction) []dailyPoint {
	byDay := make(map[string]*dailyPoint)
	for _, t := range transactions {
		day := t.Date.Format("2006-01-02")
		p, ok := byDay[day]
		if !ok {
			p = &dailyPoint{Date: day}
			byDay[day] = p
		}
		if t.Type == models.TypeIncome {
			p.Income = p.Income.Add(t.Amount)
		} else {
			p.Expense = p.Expense.Add(t.Amount)
		}
	}

	points := make([]dailyPoint, 0, len(byDay))
	for _, p := range byDay {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// conceptStats groups transactions by concept, sorted by row count
// descending.
func conceptStats(transactions []models.Transaction) []conceptStat {
	byConcept := make(map[string]*conceptStat)
	for _, t := range transactions {
		s, ok := byConcept[t.Concept]
		if !ok {
			s = &conceptStat{Concept: t.Concept}
			byConcept[t.Concept] = s
		}
		if t.Type == models.TypeIncome {
			s.Income = s.Income.Add(t.Amount)
		} else {
			s.Expense = s.Expense.Add(t.Amount)
		}
		s.Count++
	}

	stats := make([]conceptStat, 0, len(byConcept))
	for _, s := range byConcept {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Concept < stats[j].Concept
	})
	return stats
}
