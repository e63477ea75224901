package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dompet/internal/core"
	"dompet/internal/storage"
)

const createTransaction = `INSERT INTO transactions
    (id, user_id, account_id, category_id, type, amount_cents, description, merchant, transaction_date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.ID, t.UserID, t.AccountID, nullString(t.CategoryID), string(t.Kind), t.Amount.Cents,
		t.Description, t.Merchant, t.Date.String(), formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create transaction: %w", translate(err))
	}
	return nil
}

const selectTransaction = `SELECT id, user_id, account_id, COALESCE(category_id, ''), type, amount_cents,
    description, merchant, transaction_date, created_at, updated_at
FROM transactions`

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                core.Transaction
		kind, date       string
		created, updated string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &kind, &t.Amount.Cents,
		&t.Description, &t.Merchant, &date, &created, &updated); err != nil {
		return core.Transaction{}, translate(err)
	}
	t.Kind = core.Kind(kind)
	var err error
	if t.Date, err = parseDate(date); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return core.Transaction{}, err
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (q *Queries) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ? AND user_id = ?`, id, userID)
	return scanTransaction(row)
}

// transactionWhere builds the filter clause shared by the page and count queries.
func transactionWhere(userID string, f core.TransactionFilter) (string, []interface{}) {
	conds := []string{"user_id = ?"}
	args := []interface{}{userID}
	if f.AccountID != "" {
		conds = append(conds, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CategoryID != "" {
		conds = append(conds, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Kind != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Kind))
	}
	if !f.Range.From.IsZero() {
		conds = append(conds, "transaction_date >= ?")
		args = append(args, f.Range.From.String())
	}
	if !f.Range.To.IsZero() {
		conds = append(conds, "transaction_date <= ?")
		args = append(args, f.Range.To.String())
	}
	if f.Search != "" {
		conds = append(conds, `(LOWER(description) LIKE ? ESCAPE '\' OR LOWER(merchant) LIKE ? ESCAPE '\')`)
		pattern := storage.ContainsPattern(f.Search)
		args = append(args, pattern, pattern)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (q *Queries) ListTransactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, int, error) {
	where, args := transactionWhere(userID, f)

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	query := selectTransaction + where + ` ORDER BY transaction_date DESC, created_at DESC LIMIT ? OFFSET ?`
	rows, err := q.db.QueryContext(ctx, query, append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

const updateTransaction = `UPDATE transactions
SET category_id = ?, type = ?, amount_cents = ?, description = ?, merchant = ?, transaction_date = ?, updated_at = ?
WHERE id = ? AND user_id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	return affected(q.db.ExecContext(ctx, updateTransaction,
		nullString(t.CategoryID), string(t.Kind), t.Amount.Cents, t.Description, t.Merchant,
		t.Date.String(), formatTime(t.UpdatedAt), t.ID, t.UserID))
}

func (q *Queries) DeleteTransaction(ctx context.Context, userID, id string) error {
	return affected(q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID))
}

const sumByKind = `SELECT
    COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents END), 0),
    COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents END), 0)
FROM transactions
WHERE user_id = ? AND transaction_date BETWEEN ? AND ?`

func (q *Queries) SumByKind(ctx context.Context, userID string, r core.DateRange) (core.Money, core.Money, error) {
	from, to := rangeBounds(r)
	var income, expense int64
	if err := q.db.QueryRowContext(ctx, sumByKind, userID, from, to).Scan(&income, &expense); err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("sum by kind: %w", err)
	}
	return core.Cents(income), core.Cents(expense), nil
}

const expenseByCategory = `SELECT COALESCE(t.category_id, ''), c.name, c.color, SUM(t.amount_cents)
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id
WHERE t.user_id = ? AND t.type = 'expense' AND t.transaction_date BETWEEN ? AND ?
GROUP BY COALESCE(t.category_id, '')`

func (q *Queries) ExpenseByCategory(ctx context.Context, userID string, r core.DateRange) ([]storage.CategoryTotal, error) {
	from, to := rangeBounds(r)
	rows, err := q.db.QueryContext(ctx, expenseByCategory, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("expense by category: %w", err)
	}
	defer rows.Close()

	var out []storage.CategoryTotal
	for rows.Next() {
		var (
			ct          storage.CategoryTotal
			name, color sql.NullString
		)
		if err := rows.Scan(&ct.CategoryID, &name, &color, &ct.Amount.Cents); err != nil {
			return nil, err
		}
		ct.Name, ct.Color = name.String, color.String
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (q *Queries) CountTransactions(ctx context.Context, userID string, r core.DateRange) (int, error) {
	from, to := rangeBounds(r)
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = ? AND transaction_date BETWEEN ? AND ?`,
		userID, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}
