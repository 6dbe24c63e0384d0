// Package analytics derives the dashboard figures from a transaction list.
//
// Aggregate is pure and recomputes everything from scratch; Memo caches the
// result per list content for callers that render often.
package analytics

import (
	"github.com/shopspring/decimal"

	"kitchenledger/internal/core"
)

// ExpensePalette colours expense-by-category slices, cycled by index.
var ExpensePalette = []string{
	"#ef4444", "#3b82f6", "#10b981", "#f59e0b", "#8b5cf6",
	"#f97316", "#06b6d4", "#84cc16", "#ec4899", "#14b8a6",
}

// RevenuePalette colours revenue-by-source slices, cycled by index.
var RevenuePalette = []string{
	"#3b82f6", "#ef4444", "#10b981", "#f59e0b", "#8b5cf6",
	"#06b6d4", "#f97316", "#84cc16", "#ec4899", "#6b7280",
}

const (
	fillRevenue  = "#10b981"
	fillExpenses = "#ef4444"
	fillProfit   = "#3b82f6"
	fillLoss     = "#f59e0b"
)

var hundred = decimal.NewFromInt(100)

// Slice is one category or source in a breakdown.
type Slice struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
	Count  int        `json:"count"`
	Share  float64    `json:"share"` // percent of the breakdown total
	Color  string     `json:"color"`
}

// RadialPoint is one ring of the revenue/expenses/profit comparison.
type RadialPoint struct {
	Label   string     `json:"label"`
	Value   core.Money `json:"value"`
	Percent float64    `json:"percent"` // of the largest magnitude of the three
	Fill    string     `json:"fill"`
}

type Report struct {
	TotalRevenue            core.Money    `json:"total_revenue"`
	TotalExpenses           core.Money    `json:"total_expenses"`
	NetProfit               core.Money    `json:"net_profit"`
	ProfitMargin            float64       `json:"profit_margin"`
	RevenueCount            int           `json:"revenue_count"`
	ExpenseCount            int           `json:"expense_count"`
	TransactionCount        int           `json:"transaction_count"`
	AverageTransactionValue core.Money    `json:"average_transaction_value"`
	ExpenseByCategory       []Slice       `json:"expense_by_category"`
	RevenueBySource         []Slice       `json:"revenue_by_source"`
	Radial                  []RadialPoint `json:"radial"`
	IsLoss                  bool          `json:"is_loss"`
	HasData                 bool          `json:"has_data"`
}

// Aggregate computes the report for txs. Transactions of unknown kind are
// counted in TransactionCount only.
func Aggregate(txs []core.Transaction) Report {
	var (
		rep      Report
		expenses = newGrouping()
		revenues = newGrouping()
	)
	rep.TransactionCount = len(txs)

	for _, tx := range txs {
		switch tx.Kind {
		case core.Expense:
			rep.ExpenseCount++
			rep.TotalExpenses = rep.TotalExpenses.Plus(tx.Amount)
			expenses.add(tx.CategorySource, tx.Amount)
		case core.Revenue:
			rep.RevenueCount++
			rep.TotalRevenue = rep.TotalRevenue.Plus(tx.Amount)
			revenues.add(tx.CategorySource, tx.Amount)
		}
	}

	rep.NetProfit = rep.TotalRevenue.Minus(rep.TotalExpenses)
	rep.IsLoss = rep.NetProfit.IsNegative()
	rep.ProfitMargin = ProfitMargin(rep.TotalRevenue, rep.NetProfit)
	if rep.RevenueCount > 0 {
		avg := rep.TotalRevenue.Div(decimal.NewFromInt(int64(rep.RevenueCount))).Round(2)
		rep.AverageTransactionValue = core.MoneyFromDecimal(avg)
	}

	rep.ExpenseByCategory = expenses.slices(rep.TotalExpenses, ExpensePalette)
	rep.RevenueBySource = revenues.slices(rep.TotalRevenue, RevenuePalette)
	rep.Radial = Radial(rep.TotalRevenue, rep.TotalExpenses, rep.NetProfit)
	rep.HasData = !(rep.TotalRevenue.IsZero() && rep.TotalExpenses.IsZero() && rep.NetProfit.IsZero())
	return rep
}

// ProfitMargin is net/revenue as a percentage rounded to one decimal, or 0
// when there is no revenue.
func ProfitMargin(revenue, net core.Money) float64 {
	if revenue.IsZero() {
		return 0
	}
	return percent(net.Decimal, revenue.Decimal)
}

// Radial normalises revenue, expenses and net against the largest magnitude
// of the three. A negative net is shown as a Loss ring of its absolute value.
func Radial(revenue, expenses, net core.Money) []RadialPoint {
	netLabel, netFill := "Profit", fillProfit
	if net.IsNegative() {
		netLabel, netFill = "Loss", fillLoss
	}
	netAbs := core.MoneyFromDecimal(net.Abs())

	points := []RadialPoint{
		{Label: "Revenue", Value: revenue, Fill: fillRevenue},
		{Label: "Expenses", Value: expenses, Fill: fillExpenses},
		{Label: netLabel, Value: netAbs, Fill: netFill},
	}

	top := decimal.Max(revenue.Abs(), expenses.Abs(), netAbs.Decimal)
	if top.IsZero() {
		return points
	}
	for i := range points {
		points[i].Percent = percent(points[i].Value.Abs(), top)
	}
	return points
}

func percent(part, whole decimal.Decimal) float64 {
	return part.Div(whole).Mul(hundred).Round(1).InexactFloat64()
}

// grouping sums amounts per name, keeping first-occurrence order.
type grouping struct {
	order  []string
	totals map[string]core.Money
	counts map[string]int
}

func newGrouping() *grouping {
	return &grouping{totals: make(map[string]core.Money), counts: make(map[string]int)}
}

func (g *grouping) add(name string, amount core.Money) {
	if _, seen := g.totals[name]; !seen {
		g.order = append(g.order, name)
	}
	g.totals[name] = g.totals[name].Plus(amount)
	g.counts[name]++
}

func (g *grouping) slices(total core.Money, palette []string) []Slice {
	out := make([]Slice, 0, len(g.order))
	for i, name := range g.order {
		s := Slice{
			Name:   name,
			Amount: g.totals[name],
			Count:  g.counts[name],
			Color:  palette[i%len(palette)],
		}
		if !total.IsZero() {
			s.Share = percent(s.Amount.Decimal, total.Decimal)
		}
		out = append(out, s)
	}
	return out
}

// Totals returns the map form of a breakdown, for callers that only need sums.
func Totals(slices []Slice) map[string]core.Money {
	out := make(map[string]core.Money, len(slices))
	for _, s := range slices {
		out[s.Name] = s.Amount
	}
	return out
}
