package analytics

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/zombor/spend-tracker/internal/category"
	"github.com/zombor/spend-tracker/internal/expense"
)

const (
	// SeriesDays is the number of most recent days kept in the daily series.
	SeriesDays = 7
	// RecentCount is how many of the newest records a View carries.
	RecentCount = 5

	averageDays = 30
	dayLabel    = "Jan 02"
)

// Budget states.
const (
	OnTrack   = "On Track"
	OverLimit = "Over Limit"
)

// CategoryTotal is the spend for one category.
type CategoryTotal struct {
	Category category.Category `json:"name"`
	Total    decimal.Decimal   `json:"value"`
}

// DailyAmount is the spend for one calendar day.
type DailyAmount struct {
	Day    string          `json:"day"`  // YYYY-MM-DD
	Label  string          `json:"date"` // e.g. "Jan 02"
	Amount decimal.Decimal `json:"amount"`
}

// View holds the dashboard metrics derived from the expense list.
type View struct {
	MonthlyTotal   decimal.Decimal   `json:"monthlyTotal"`
	CategoryTotals []CategoryTotal   `json:"categoryTotals"`
	DailySeries    []DailyAmount     `json:"dailySeries"`
	ReceiptCount   int               `json:"receiptCount"`
	DailyAverage   decimal.Decimal   `json:"dailyAverage"`
	Budget         decimal.Decimal   `json:"budget"`
	BudgetStatus   string            `json:"budgetStatus"`
	Recent         []*expense.Record `json:"recent"`
}

// Aggregate computes the View for records (newest first) as of now.
// It is a pure function of its arguments.
func Aggregate(records []*expense.Record, now time.Time, budget decimal.Decimal) View {
	records = slices.DeleteFunc(slices.Clone(records), func(r *expense.Record) bool { return r == nil })
	monthly := MonthlyTotal(records, now)

	status := OnTrack
	if monthly.GreaterThan(budget) {
		status = OverLimit
	}

	recent := append([]*expense.Record{}, records[:min(len(records), RecentCount)]...)

	return View{
		MonthlyTotal:   monthly,
		CategoryTotals: CategoryTotals(records),
		DailySeries:    DailySeries(records),
		ReceiptCount:   len(records),
		DailyAverage:   monthly.Div(decimal.NewFromInt(averageDays)).Round(2),
		Budget:         budget,
		BudgetStatus:   status,
		Recent:         recent,
	}
}

// MonthlyTotal sums records dated in now's calendar month. Records with
// unparseable dates are skipped.
func MonthlyTotal(records []*expense.Record, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r == nil {
			continue
		}
		d, err := civil.ParseDate(r.Date)
		if err != nil {
			continue
		}
		if d.Year == now.Year() && d.Month == now.Month() {
			total = total.Add(r.Total)
		}
	}
	return total
}

// CategoryTotals sums records per category in order of first appearance.
// Categories outside the enumeration are counted as General.
func CategoryTotals(records []*expense.Record) []CategoryTotal {
	totals := make([]CategoryTotal, 0)
	index := make(map[category.Category]int)
	for _, r := range records {
		if r == nil {
			continue
		}
		c := r.Category
		if c != category.General {
			c = category.OrGeneral(string(c))
		}
		i, ok := index[c]
		if !ok {
			i = len(totals)
			index[c] = i
			totals = append(totals, CategoryTotal{Category: c, Total: decimal.Zero})
		}
		totals[i].Total = totals[i].Total.Add(r.Total)
	}
	return totals
}

// DailySeries sums records per calendar day in ascending order and keeps
// the last SeriesDays days that have data.
func DailySeries(records []*expense.Record) []DailyAmount {
	type dated struct {
		day   civil.Date
		total decimal.Decimal
	}

	var entries []dated
	for _, r := range records {
		if r == nil {
			continue
		}
		d, err := civil.ParseDate(r.Date)
		if err != nil {
			continue
		}
		entries = append(entries, dated{day: d, total: r.Total})
	}
	slices.SortStableFunc(entries, func(a, b dated) int {
		switch {
		case a.day.Before(b.day):
			return -1
		case a.day.After(b.day):
			return 1
		}
		return 0
	})

	series := make([]DailyAmount, 0)
	for i, e := range entries {
		if i > 0 && e.day == entries[i-1].day {
			last := &series[len(series)-1]
			last.Amount = last.Amount.Add(e.total)
			continue
		}
		series = append(series, DailyAmount{
			Day:    e.day.String(),
			Label:  e.day.In(time.UTC).Format(dayLabel),
			Amount: e.total,
		})
	}

	if len(series) > SeriesDays {
		series = series[len(series)-SeriesDays:]
	}
	return series
}
