package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"dompet/internal/core"
	"dompet/internal/storage"
)

func (q *Queries) CreateUser(ctx context.Context, u core.User) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

const selectUser = `SELECT id, name, email, password_hash, created_at FROM users`

func (q *Queries) GetUser(ctx context.Context, id string) (core.User, error) {
	return q.scanUser(ctx, selectUser+` WHERE id = $1`, id)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return q.scanUser(ctx, selectUser+` WHERE email = $1`, email)
}

func (q *Queries) scanUser(ctx context.Context, query, arg string) (core.User, error) {
	var u core.User
	err := q.db.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return core.User{}, translate(err)
	}
	return u, nil
}

func (q *Queries) ListActiveUserIDs(ctx context.Context, r core.DateRange) ([]string, error) {
	from, to := rangeBounds(r)
	rows, err := q.db.Query(ctx, `SELECT DISTINCT user_id FROM transactions
WHERE ($1::date IS NULL OR transaction_date >= $1) AND ($2::date IS NULL OR transaction_date <= $2)
ORDER BY user_id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

const selectAccount = `SELECT id, user_id, name, type, balance_cents, icon, color, created_at, updated_at FROM accounts`

func scanAccount(row pgx.Row) (core.Account, error) {
	var (
		a    core.Account
		kind string
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &kind, &a.Balance.Cents, &a.Icon, &a.Color, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return core.Account{}, translate(err)
	}
	a.Kind = core.AccountKind(kind)
	return a, nil
}

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := q.db.Exec(ctx, `INSERT INTO accounts
    (id, user_id, name, type, balance_cents, icon, color, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.UserID, a.Name, string(a.Kind), a.Balance.Cents, a.Icon, a.Color, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create account: %w", translate(err))
	}
	return nil
}

func (q *Queries) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	return scanAccount(q.db.QueryRow(ctx, selectAccount+` WHERE id = $1 AND user_id = $2`, id, userID))
}

func (q *Queries) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := q.db.Query(ctx, selectAccount+` WHERE user_id = $1 ORDER BY created_at, id`, userID)
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

func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) error {
	return affected(q.db.Exec(ctx, `UPDATE accounts
SET name = $1, type = $2, balance_cents = $3, icon = $4, color = $5, updated_at = $6
WHERE id = $7 AND user_id = $8`,
		a.Name, string(a.Kind), a.Balance.Cents, a.Icon, a.Color, a.UpdatedAt, a.ID, a.UserID))
}

func (q *Queries) DeleteAccount(ctx context.Context, userID, id string) error {
	return affected(q.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1 AND user_id = $2`, id, userID))
}

func (q *Queries) AdjustBalance(ctx context.Context, userID, accountID string, delta core.Money) error {
	return affected(q.db.Exec(ctx, `UPDATE accounts
SET balance_cents = balance_cents + $1, updated_at = $2
WHERE id = $3 AND user_id = $4`, delta.Cents, time.Now().UTC(), accountID, userID))
}

func (q *Queries) CountAccountTransactions(ctx context.Context, userID, accountID string) (int, error) {
	var n int
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = $1 AND user_id = $2`, accountID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count account transactions: %w", err)
	}
	return n, nil
}

const insertCategory = `INSERT INTO categories
    (id, user_id, name, type, icon, color, keywords, is_default, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func categoryArgs(c core.Category) []interface{} {
	return []interface{}{
		c.ID, nullable(c.UserID), c.Name, string(c.Kind), c.Icon, c.Color, c.Keywords, c.IsDefault, c.CreatedAt,
	}
}

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) error {
	if _, err := q.db.Exec(ctx, insertCategory, categoryArgs(c)...); err != nil {
		return fmt.Errorf("create category: %w", translate(err))
	}
	return nil
}

func (q *Queries) EnsureCategory(ctx context.Context, c core.Category) (bool, error) {
	tag, err := q.db.Exec(ctx, insertCategory+` ON CONFLICT DO NOTHING`, categoryArgs(c)...)
	if err != nil {
		return false, fmt.Errorf("ensure category: %w", translate(err))
	}
	return tag.RowsAffected() > 0, nil
}

const selectCategory = `SELECT id, COALESCE(user_id, ''), name, type, icon, color, keywords, is_default, created_at FROM categories`

func scanCategory(row pgx.Row) (core.Category, error) {
	var (
		c    core.Category
		kind string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &kind, &c.Icon, &c.Color, &c.Keywords, &c.IsDefault, &c.CreatedAt); err != nil {
		return core.Category{}, translate(err)
	}
	c.Kind = core.Kind(kind)
	return c, nil
}

func (q *Queries) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	return scanCategory(q.db.QueryRow(ctx,
		selectCategory+` WHERE id = $1 AND (user_id = $2 OR user_id IS NULL)`, id, userID))
}

func (q *Queries) ListCategories(ctx context.Context, userID string, kind core.Kind) ([]core.Category, error) {
	rows, err := q.db.Query(ctx,
		selectCategory+` WHERE (user_id = $1 OR user_id IS NULL) AND ($2 = '' OR type = $2) ORDER BY seq`,
		userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateCategory(ctx context.Context, c core.Category) error {
	return affected(q.db.Exec(ctx, `UPDATE categories
SET name = $1, type = $2, icon = $3, color = $4, keywords = $5
WHERE id = $6 AND user_id = $7`,
		c.Name, string(c.Kind), c.Icon, c.Color, c.Keywords, c.ID, c.UserID))
}

func (q *Queries) DeleteCategory(ctx context.Context, userID, id string) error {
	return affected(q.db.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID))
}

const selectTransaction = `SELECT id, user_id, account_id, COALESCE(category_id, ''), type, amount_cents,
    description, merchant, transaction_date, created_at, updated_at
FROM transactions`

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t    core.Transaction
		kind string
		date time.Time
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &kind, &t.Amount.Cents,
		&t.Description, &t.Merchant, &date, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return core.Transaction{}, translate(err)
	}
	t.Kind = core.Kind(kind)
	t.Date = core.DateOf(date)
	return t, nil
}

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := q.db.Exec(ctx, `INSERT INTO transactions
    (id, user_id, account_id, category_id, type, amount_cents, description, merchant, transaction_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.UserID, t.AccountID, nullable(t.CategoryID), string(t.Kind), t.Amount.Cents,
		t.Description, t.Merchant, t.Date.Time, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", translate(err))
	}
	return nil
}

func (q *Queries) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, selectTransaction+` WHERE id = $1 AND user_id = $2`, id, userID))
}

func transactionWhere(userID string, f core.TransactionFilter) (string, []interface{}) {
	args := []interface{}{userID}
	conds := []string{"user_id = $1"}
	add := func(cond string, vals ...interface{}) {
		for _, v := range vals {
			args = append(args, v)
			cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		conds = append(conds, cond)
	}
	if f.AccountID != "" {
		add("account_id = ?", f.AccountID)
	}
	if f.CategoryID != "" {
		add("category_id = ?", f.CategoryID)
	}
	if f.Kind != "" {
		add("type = ?", string(f.Kind))
	}
	if !f.Range.From.IsZero() {
		add("transaction_date >= ?", f.Range.From.Time)
	}
	if !f.Range.To.IsZero() {
		add("transaction_date <= ?", f.Range.To.Time)
	}
	if f.Search != "" {
		pattern := storage.ContainsPattern(f.Search)
		add(`(LOWER(description) LIKE ? ESCAPE '\' OR LOWER(merchant) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (q *Queries) ListTransactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, int, error) {
	where, args := transactionWhere(userID, f)

	var total int
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = noLimit
	}
	query := fmt.Sprintf("%s%s ORDER BY transaction_date DESC, created_at DESC LIMIT $%d OFFSET $%d",
		selectTransaction, where, len(args)+1, len(args)+2)
	rows, err := q.db.Query(ctx, query, append(args, limit, f.Offset)...)
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

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	return affected(q.db.Exec(ctx, `UPDATE transactions
SET category_id = $1, type = $2, amount_cents = $3, description = $4, merchant = $5, transaction_date = $6, updated_at = $7
WHERE id = $8 AND user_id = $9`,
		nullable(t.CategoryID), string(t.Kind), t.Amount.Cents, t.Description, t.Merchant,
		t.Date.Time, t.UpdatedAt, t.ID, t.UserID))
}

func (q *Queries) DeleteTransaction(ctx context.Context, userID, id string) error {
	return affected(q.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID))
}

const inRange = `($2::date IS NULL OR transaction_date >= $2) AND ($3::date IS NULL OR transaction_date <= $3)`

func (q *Queries) SumByKind(ctx context.Context, userID string, r core.DateRange) (core.Money, core.Money, error) {
	from, to := rangeBounds(r)
	var income, expense int64
	err := q.db.QueryRow(ctx, `SELECT
    COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents END), 0)::bigint,
    COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents END), 0)::bigint
FROM transactions
WHERE user_id = $1 AND `+inRange, userID, from, to).Scan(&income, &expense)
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("sum by kind: %w", err)
	}
	return core.Cents(income), core.Cents(expense), nil
}

func (q *Queries) ExpenseByCategory(ctx context.Context, userID string, r core.DateRange) ([]storage.CategoryTotal, error) {
	from, to := rangeBounds(r)
	rows, err := q.db.Query(ctx, `SELECT COALESCE(t.category_id, ''), COALESCE(MAX(c.name), ''), COALESCE(MAX(c.color), ''),
    SUM(t.amount_cents)::bigint
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id
WHERE t.user_id = $1 AND t.type = 'expense'
    AND ($2::date IS NULL OR t.transaction_date >= $2) AND ($3::date IS NULL OR t.transaction_date <= $3)
GROUP BY COALESCE(t.category_id, '')`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("expense by category: %w", err)
	}
	defer rows.Close()

	var out []storage.CategoryTotal
	for rows.Next() {
		var ct storage.CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.Name, &ct.Color, &ct.Amount.Cents); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (q *Queries) CountTransactions(ctx context.Context, userID string, r core.DateRange) (int, error) {
	from, to := rangeBounds(r)
	var n int
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND `+inRange, userID, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (q *Queries) UpsertInsight(ctx context.Context, in core.Insight) (core.Insight, error) {
	err := q.db.QueryRow(ctx, `INSERT INTO insights (id, user_id, type, title, content, period, is_read, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id, type, period) DO UPDATE SET
    title = EXCLUDED.title,
    content = EXCLUDED.content,
    is_read = EXCLUDED.is_read,
    created_at = EXCLUDED.created_at
RETURNING id`,
		in.ID, in.UserID, string(in.Type), in.Title, in.Content, in.Period, in.IsRead, in.CreatedAt,
	).Scan(&in.ID)
	if err != nil {
		return core.Insight{}, fmt.Errorf("upsert insight: %w", translate(err))
	}
	return in, nil
}

func (q *Queries) ListInsights(ctx context.Context, userID string, f core.InsightFilter) ([]core.Insight, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = noLimit
	}
	rows, err := q.db.Query(ctx, `SELECT id, user_id, type, title, content, period, is_read, created_at
FROM insights
WHERE user_id = $1 AND ($2 = '' OR type = $2) AND (NOT $3::boolean OR is_read = FALSE)
ORDER BY created_at DESC
LIMIT $4`, userID, string(f.Type), f.UnreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	out := []core.Insight{}
	for rows.Next() {
		var (
			in  core.Insight
			typ string
		)
		if err := rows.Scan(&in.ID, &in.UserID, &typ, &in.Title, &in.Content, &in.Period, &in.IsRead, &in.CreatedAt); err != nil {
			return nil, err
		}
		in.Type = core.InsightType(typ)
		out = append(out, in)
	}
	return out, rows.Err()
}

func (q *Queries) MarkInsightRead(ctx context.Context, userID, id string) error {
	return affected(q.db.Exec(ctx, `UPDATE insights SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID))
}

func (q *Queries) DeleteInsight(ctx context.Context, userID, id string) error {
	return affected(q.db.Exec(ctx, `DELETE FROM insights WHERE id = $1 AND user_id = $2`, id, userID))
}
