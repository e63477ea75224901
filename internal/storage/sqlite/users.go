package sqlite

import (
	"context"
	"fmt"

	"dompet/internal/core"
)

const createUser = `INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, u core.User) error {
	_, err := q.db.ExecContext(ctx, createUser, u.ID, u.Name, u.Email, u.PasswordHash, formatTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

const selectUser = `SELECT id, name, email, password_hash, created_at FROM users`

func (q *Queries) GetUser(ctx context.Context, id string) (core.User, error) {
	return q.scanUser(ctx, selectUser+` WHERE id = ?`, id)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return q.scanUser(ctx, selectUser+` WHERE email = ?`, email)
}

func (q *Queries) scanUser(ctx context.Context, query string, arg string) (core.User, error) {
	var (
		u       core.User
		created string
	)
	err := q.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created)
	if err != nil {
		return core.User{}, translate(err)
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return core.User{}, err
	}
	return u, nil
}

const listActiveUserIDs = `SELECT DISTINCT user_id FROM transactions
WHERE transaction_date BETWEEN ? AND ?
ORDER BY user_id`

func (q *Queries) ListActiveUserIDs(ctx context.Context, r core.DateRange) ([]string, error) {
	from, to := rangeBounds(r)
	rows, err := q.db.QueryContext(ctx, listActiveUserIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
