package sqlite

import (
	"context"
	"fmt"

	"dompet/internal/core"
)

const insertCategory = `INSERT INTO categories
    (id, user_id, name, type, icon, color, keywords, is_default, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func categoryArgs(c core.Category) []interface{} {
	return []interface{}{
		c.ID, nullString(c.UserID), c.Name, string(c.Kind), c.Icon, c.Color, c.Keywords, c.IsDefault, formatTime(c.CreatedAt),
	}
}

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) error {
	if _, err := q.db.ExecContext(ctx, insertCategory, categoryArgs(c)...); err != nil {
		return fmt.Errorf("create category: %w", translate(err))
	}
	return nil
}

func (q *Queries) EnsureCategory(ctx context.Context, c core.Category) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertCategory+` ON CONFLICT DO NOTHING`, categoryArgs(c)...)
	if err != nil {
		return false, fmt.Errorf("ensure category: %w", translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const selectCategory = `SELECT id, COALESCE(user_id, ''), name, type, icon, color, keywords, is_default, created_at FROM categories`

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c       core.Category
		kind    string
		created string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &kind, &c.Icon, &c.Color, &c.Keywords, &c.IsDefault, &created); err != nil {
		return core.Category{}, translate(err)
	}
	c.Kind = core.Kind(kind)
	var err error
	if c.CreatedAt, err = parseTime(created); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (q *Queries) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	row := q.db.QueryRowContext(ctx, selectCategory+` WHERE id = ? AND (user_id = ? OR user_id IS NULL)`, id, userID)
	return scanCategory(row)
}

func (q *Queries) ListCategories(ctx context.Context, userID string, kind core.Kind) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		selectCategory+` WHERE (user_id = ? OR user_id IS NULL) AND (? = '' OR type = ?) ORDER BY seq`,
		userID, string(kind), string(kind))
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

const updateCategory = `UPDATE categories
SET name = ?, type = ?, icon = ?, color = ?, keywords = ?
WHERE id = ? AND user_id = ?`

func (q *Queries) UpdateCategory(ctx context.Context, c core.Category) error {
	return affected(q.db.ExecContext(ctx, updateCategory,
		c.Name, string(c.Kind), c.Icon, c.Color, c.Keywords, c.ID, c.UserID))
}

func (q *Queries) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := affected(q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)); err != nil {
		return err
	}
	if _, err := q.db.ExecContext(ctx, `UPDATE transactions SET category_id = NULL WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("detach category: %w", err)
	}
	return nil
}
