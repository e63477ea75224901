package insight

import (
	"fmt"
	"math"
	"strings"

	"dompet/internal/core"
)

// DefaultTitle is used when the generated text has no usable first line.
const DefaultTitle = "Financial Insight"

// BuildPrompt renders the instruction sent to the text generator for an
// insight of type t.
func BuildPrompt(s core.FinancialSummary, t core.InsightType) string {
	var b strings.Builder
	b.WriteString("Kamu adalah asisten keuangan pribadi untuk pengguna di Indonesia berusia 18 sampai 35 tahun.\n")
	b.WriteString("Pakai bahasa Indonesia yang santai namun tetap jelas.\n")
	b.WriteString("Baris pertama jawabanmu adalah judul singkat, lalu isi penjelasannya.\n\n")

	fmt.Fprintf(&b, "Data keuangan periode %s:\n", s.Period)
	fmt.Fprintf(&b, "- Total pemasukan: %s\n", s.TotalIncome.Rupiah())
	fmt.Fprintf(&b, "- Total pengeluaran: %s\n", s.TotalExpense.Rupiah())
	fmt.Fprintf(&b, "- Saldo: %s\n", s.Balance.Rupiah())

	top := make([]string, 0, len(s.TopExpenseCategories))
	for _, c := range s.TopExpenseCategories {
		top = append(top, fmt.Sprintf("%s (%s)", c.Name, c.Amount.Rupiah()))
	}
	if len(top) == 0 {
		top = append(top, "belum ada")
	}
	fmt.Fprintf(&b, "- Kategori pengeluaran terbesar: %s\n", strings.Join(top, ", "))

	switch t {
	case core.InsightSpendingAlert:
		c := s.MonthlyComparison
		direction := "naik"
		if c.PercentageChange < 0 {
			direction = "turun"
		}
		fmt.Fprintf(&b, "\nPengeluaran bulan ini %s %.1f%% dibanding bulan lalu (%s lalu, %s sekarang).\n",
			direction, math.Abs(c.PercentageChange), c.PreviousMonth.Rupiah(), c.CurrentMonth.Rupiah())
		b.WriteString("\nTugas: beri peringatan tentang pengeluaran yang perlu diwaspadai. ")
		b.WriteString("Soroti kategori paling boros dan beri saran nyata untuk menguranginya. ")
		b.WriteString("Nada mendukung, tidak menghakimi. Paling banyak 2 paragraf.")
	case core.InsightSavingTip:
		b.WriteString("\nTugas: beri 2 sampai 3 tips hemat yang sesuai dengan pola pengeluaran di atas. ")
		b.WriteString("Tips harus spesifik dan bisa langsung dilakukan. ")
		b.WriteString("Misalnya bila pengeluaran makanan tinggi, sarankan masak sendiri atau memanfaatkan promo. ")
		b.WriteString("Paling banyak 3 poin dengan penjelasan singkat.")
	default:
		b.WriteString("\nTugas: buat ringkasan keuangan bulanan yang mudah dipahami. ")
		b.WriteString("Jelaskan pola pengeluaran, apakah sehat atau perlu perhatian, lalu beri 1 sampai 2 tips singkat. ")
		b.WriteString("Paling banyak 3 paragraf.")
	}
	return b.String()
}

// ParseResponse splits generated text into a title and a body. The title is
// the first non-blank line without leading '#' marks; the body is every other
// non-blank line, or the whole text when there is none.
func ParseResponse(text string) (title, content string) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	title = DefaultTitle
	if len(lines) > 0 {
		if t := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(lines[0]), "#")); t != "" {
			title = t
		}
	}

	if len(lines) > 1 {
		content = strings.TrimSpace(strings.Join(lines[1:], "\n"))
	}
	if content == "" {
		content = strings.TrimSpace(text)
	}
	return title, content
}
