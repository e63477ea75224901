package reports

import (
	"io"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"dompet/internal/core"
)

var colW = []float64{24, 22, 70, 36, 30}

// Filename is the attachment name of a rendered statement.
func Filename(s Statement) string {
	return "dompet-statement-" + s.Range.From.String() + "-to-" + s.Range.To.String() + ".pdf"
}

// RenderPDF writes s as an A4 PDF.
func RenderPDF(w io.Writer, s Statement) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(false, 14)
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Laporan Keuangan Dompet")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, "Periode: "+s.Range.From.String()+" s/d "+s.Range.To.String())
	pdf.Ln(5)
	pdf.Cell(0, 6, "Pengguna: "+maskID(s.UserID))
	pdf.Ln(10)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 11)

	sumW := []float64{60.6, 60.6, 60.6}
	pdf.CellFormat(sumW[0], 10, "Pemasukan", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[1], 10, "Pengeluaran", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[2], 10, "Selisih", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(sumW[0], 10, s.Income.Rupiah(), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[1], 10, s.Expense.Rupiah(), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[2], 10, s.Net().Rupiah(), "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	tableHeader(pdf)
	for _, it := range s.Items {
		if pdf.GetY() > 270 {
			pdf.AddPage()
			tableHeader(pdf)
		}

		kind := "Keluar"
		if it.Kind == core.KindIncome {
			kind = "Masuk"
		}
		pdf.CellFormat(colW[0], 8, it.Date.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[1], 8, kind, "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[2], 8, tr(trimTo(it.Title, 40)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[3], 8, tr(trimTo(it.Category, 20)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[4], 8, signed(it), "1", 1, "R", false, 0, "")
	}
	if len(s.Items) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, "Tidak ada transaksi pada periode ini", "1", 1, "C", false, 0, "")
	}
	if s.Truncated {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, "Daftar dipotong, terlalu banyak transaksi", "1", 1, "C", false, 0, "")
	}

	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Dibuat oleh Dompet "+s.GeneratedAt.Format(time.RFC3339), "", 0, "C", false, 0, "")

	return pdf.Output(w)
}

func tableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(colW[0], 8, "TANGGAL", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colW[1], 8, "TIPE", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colW[2], 8, "KETERANGAN", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[3], 8, "KATEGORI", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[4], 8, "JUMLAH", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(30, 30, 30)
}

func signed(it StatementItem) string {
	if it.Kind == core.KindExpense {
		return it.Amount.Neg().Rupiah()
	}
	return it.Amount.Rupiah()
}

func maskID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) <= 8 {
		return id
	}
	return id[:4] + "..." + id[len(id)-4:]
}

func trimTo(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max-3]) + "..."
}
