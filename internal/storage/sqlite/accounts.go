package sqlite

import (
	"context"
	"fmt"
	"time"

	"dompet/internal/core"
)

const createAccount = `INSERT INTO accounts
    (id, user_id, name, type, balance_cents, icon, color, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := q.db.ExecContext(ctx, createAccount,
		a.ID, a.UserID, a.Name, string(a.Kind), a.Balance.Cents, a.Icon, a.Color,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create account: %w", translate(err))
	}
	return nil
}

const selectAccount = `SELECT id, user_id, name, type, balance_cents, icon, color, created_at, updated_at FROM accounts`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		a                core.Account
		kind             string
		created, updated string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &kind, &a.Balance.Cents, &a.Icon, &a.Color, &created, &updated); err != nil {
		return core.Account{}, translate(err)
	}
	a.Kind = core.AccountKind(kind)
	var err error
	if a.CreatedAt, err = parseTime(created); err != nil {
		return core.Account{}, err
	}
	if a.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func (q *Queries) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	row := q.db.QueryRowContext(ctx, selectAccount+` WHERE id = ? AND user_id = ?`, id, userID)
	return scanAccount(row)
}

func (q *Queries) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, selectAccount+` WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := []core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const updateAccount = `UPDATE accounts
SET name = ?, type = ?, balance_cents = ?, icon = ?, color = ?, updated_at = ?
WHERE id = ? AND user_id = ?`

func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) error {
	return affected(q.db.ExecContext(ctx, updateAccount,
		a.Name, string(a.Kind), a.Balance.Cents, a.Icon, a.Color, formatTime(a.UpdatedAt), a.ID, a.UserID))
}

func (q *Queries) DeleteAccount(ctx context.Context, userID, id string) error {
	if err := affected(q.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ? AND user_id = ?`, id, userID)); err != nil {
		return err
	}
	// The foreign key cascades too; this covers connections without foreign_keys.
	if _, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = ?`, id); err != nil {
		return fmt.Errorf("delete account transactions: %w", err)
	}
	return nil
}

const adjustBalance = `UPDATE accounts
SET balance_cents = balance_cents + ?, updated_at = ?
WHERE id = ? AND user_id = ?`

func (q *Queries) AdjustBalance(ctx context.Context, userID, accountID string, delta core.Money) error {
	return affected(q.db.ExecContext(ctx, adjustBalance, delta.Cents, formatTime(time.Now()), accountID, userID))
}

func (q *Queries) CountAccountTransactions(ctx context.Context, userID, accountID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = ? AND user_id = ?`, accountID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count account transactions: %w", err)
	}
	return n, nil
}
