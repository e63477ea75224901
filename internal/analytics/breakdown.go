package analytics

import (
	"sort"

	"dompet/internal/core"
	"dompet/internal/storage"
)

// MonthRange is the inclusive day interval of a calendar month.
func MonthRange(year, month int) (core.DateRange, error) {
	p, err := core.NewPeriod(year, month)
	if err != nil {
		return core.DateRange{}, err
	}
	return p.Range(), nil
}

// BuildBreakdown groups expense totals by category name. Uncategorized money
// goes to core.UncategorizedLabel. Buckets are sorted by amount, largest
// first, and carry their share of the summed expense.
func BuildBreakdown(totals []storage.CategoryTotal) []core.CategoryBreakdown {
	var (
		sum   core.Money
		index = map[string]int{}
		out   = []core.CategoryBreakdown{}
	)
	for _, t := range totals {
		name := t.Name
		if t.CategoryID == "" || name == "" {
			name = core.UncategorizedLabel
		}
		i, ok := index[name]
		if !ok {
			out = append(out, core.CategoryBreakdown{Name: name})
			i = len(out) - 1
			index[name] = i
		}
		if out[i].Color == nil && t.Color != "" {
			color := t.Color
			out[i].Color = &color
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
		sum = sum.Add(t.Amount)
	}

	for i := range out {
		out[i].Percentage = core.Percent(out[i].Amount, sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TopCategories returns at most n breakdown entries as name/amount pairs.
func TopCategories(b []core.CategoryBreakdown, n int) []core.CategoryAmount {
	n = max(0, min(n, len(b)))
	out := make([]core.CategoryAmount, 0, n)
	for _, c := range b[:n] {
		out = append(out, core.CategoryAmount{Name: c.Name, Amount: c.Amount})
	}
	return out
}
