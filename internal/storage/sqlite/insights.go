package sqlite

import (
	"context"
	"fmt"

	"dompet/internal/core"
)

const upsertInsight = `INSERT INTO insights (id, user_id, type, title, content, period, is_read, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, type, period) DO UPDATE SET
    title = excluded.title,
    content = excluded.content,
    is_read = excluded.is_read,
    created_at = excluded.created_at
RETURNING id`

func (q *Queries) UpsertInsight(ctx context.Context, in core.Insight) (core.Insight, error) {
	err := q.db.QueryRowContext(ctx, upsertInsight,
		in.ID, in.UserID, string(in.Type), in.Title, in.Content, in.Period, in.IsRead, formatTime(in.CreatedAt),
	).Scan(&in.ID)
	if err != nil {
		return core.Insight{}, fmt.Errorf("upsert insight: %w", translate(err))
	}
	return in, nil
}

const listInsights = `SELECT id, user_id, type, title, content, period, is_read, created_at
FROM insights
WHERE user_id = ? AND (? = '' OR type = ?) AND (? = 0 OR is_read = 0)
ORDER BY created_at DESC
LIMIT ?`

func (q *Queries) ListInsights(ctx context.Context, userID string, f core.InsightFilter) ([]core.Insight, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := q.db.QueryContext(ctx, listInsights, userID, string(f.Type), string(f.Type), f.UnreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	out := []core.Insight{}
	for rows.Next() {
		var (
			in      core.Insight
			typ     string
			created string
		)
		if err := rows.Scan(&in.ID, &in.UserID, &typ, &in.Title, &in.Content, &in.Period, &in.IsRead, &created); err != nil {
			return nil, err
		}
		in.Type = core.InsightType(typ)
		if in.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (q *Queries) MarkInsightRead(ctx context.Context, userID, id string) error {
	return affected(q.db.ExecContext(ctx, `UPDATE insights SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID))
}

func (q *Queries) DeleteInsight(ctx context.Context, userID, id string) error {
	return affected(q.db.ExecContext(ctx, `DELETE FROM insights WHERE id = ? AND user_id = ?`, id, userID))
}
