package sheets

import (
	"context"

	"dompet/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter mirrors ledger rows into an external spreadsheet,
	// one row per transaction keyed by its id.
	TransactionExporter interface {
		// Upsert writes t, replacing the row that already carries t.ID.
		Upsert(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// Remove deletes the row of transactionID. A missing row is not an error.
		Remove(ctx context.Context, transactionID string) error
	}
)

// Header is the first row of an exported sheet.
var Header = []string{"ID", "Tanggal", "Tipe", "Jumlah", "Akun", "Kategori", "Merchant", "Deskripsi", "Diperbarui"}

// Row renders t in Header column order.
func Row(t core.Transaction) []string {
	updated := ""
	if !t.UpdatedAt.IsZero() {
		updated = t.UpdatedAt.UTC().Format("2006-01-02 15:04:05")
	}
	return []string{
		t.ID,
		t.Date.String(),
		string(t.Kind),
		t.Amount.String(),
		t.AccountID,
		t.CategoryID,
		t.Merchant,
		t.Description,
		updated,
	}
}
