package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"category"`
	Amount Money  `json:"amount"`
}

// CategoryBreakdown is one expense bucket of a period.
type CategoryBreakdown struct {
	Name       string  `json:"name"`
	Color      *string `json:"color"`
	Amount     Money   `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// PeriodTotals are income and expense sums for one month.
type PeriodTotals struct {
	Period  string `json:"period"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
}

// TrendPoint is a month bucket of the multi-month trend.
type TrendPoint struct {
	Month   string `json:"month"`
	Period  string `json:"period"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
}

// PeriodSummary is the headline block of the dashboard.
type PeriodSummary struct {
	TotalBalance Money  `json:"totalBalance"`
	TotalIncome  Money  `json:"totalIncome"`
	TotalExpense Money  `json:"totalExpense"`
	NetCashFlow  Money  `json:"netCashFlow"`
	Period       string `json:"period"`
}

// Dashboard is the aggregate served to the dashboard view.
type Dashboard struct {
	Summary           PeriodSummary       `json:"summary"`
	Accounts          []Account           `json:"accounts"`
	CategoryBreakdown []CategoryBreakdown `json:"categoryBreakdown"`
	MonthlyTrend      []TrendPoint        `json:"monthlyTrend"`
	TransactionCount  int                 `json:"transactionCount"`
}

// MonthlyComparison compares the expense of a month against the one before.
type MonthlyComparison struct {
	CurrentMonth     Money   `json:"currentMonth"`
	PreviousMonth    Money   `json:"previousMonth"`
	PercentageChange float64 `json:"percentageChange"`
}

// FinancialSummary is the structured input of insight generation.
type FinancialSummary struct {
	Period               string            `json:"period"`
	TotalIncome          Money             `json:"totalIncome"`
	TotalExpense         Money             `json:"totalExpense"`
	Balance              Money             `json:"balance"`
	TopExpenseCategories []CategoryAmount  `json:"topExpenseCategories"`
	MonthlyComparison    MonthlyComparison `json:"monthlyComparison"`
}

// IsEmpty reports a period without any income or expense.
func (s FinancialSummary) IsEmpty() bool {
	return s.TotalIncome.IsZero() && s.TotalExpense.IsZero()
}
