// Package storage defines the persistence port shared by the memory, SQLite
// and Postgres backends.
package storage

import (
	"context"

	"dompet/internal/core"
)

// CategoryTotal is an expense sum grouped by category. An empty CategoryID
// groups transactions without a category.
type CategoryTotal struct {
	CategoryID string
	Name       string
	Color      string
	Amount     core.Money
}

// Repository is the set of operations every backend provides. Lookups keyed by
// user return core.ErrNotFound both for missing rows and for rows owned by
// another user.
type Repository interface {
	CreateUser(ctx context.Context, u core.User) error
	GetUser(ctx context.Context, id string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	// ListActiveUserIDs returns users with at least one transaction in r.
	ListActiveUserIDs(ctx context.Context, r core.DateRange) ([]string, error)

	CreateAccount(ctx context.Context, a core.Account) error
	GetAccount(ctx context.Context, userID, id string) (core.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	// DeleteAccount removes the account and its transactions.
	DeleteAccount(ctx context.Context, userID, id string) error
	// AdjustBalance adds delta to the stored balance in a single statement.
	AdjustBalance(ctx context.Context, userID, accountID string, delta core.Money) error
	CountAccountTransactions(ctx context.Context, userID, accountID string) (int, error)

	CreateCategory(ctx context.Context, c core.Category) error
	// EnsureCategory inserts c unless a category with the same owner, name and
	// kind exists. It reports whether a row was inserted.
	EnsureCategory(ctx context.Context, c core.Category) (bool, error)
	// GetCategory returns a category owned by userID or a shared default.
	GetCategory(ctx context.Context, userID, id string) (core.Category, error)
	// ListCategories returns the user's categories and the shared defaults in
	// insertion order. An empty kind lists both kinds.
	ListCategories(ctx context.Context, userID string, kind core.Kind) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, userID, id string) error

	CreateTransaction(ctx context.Context, t core.Transaction) error
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	// ListTransactions returns a page ordered by date then creation time, newest
	// first, with the total count of matching rows.
	ListTransactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, int, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
	SumByKind(ctx context.Context, userID string, r core.DateRange) (income, expense core.Money, err error)
	ExpenseByCategory(ctx context.Context, userID string, r core.DateRange) ([]CategoryTotal, error)
	CountTransactions(ctx context.Context, userID string, r core.DateRange) (int, error)

	// UpsertInsight replaces the insight for (user, type, period) if present.
	UpsertInsight(ctx context.Context, in core.Insight) (core.Insight, error)
	ListInsights(ctx context.Context, userID string, f core.InsightFilter) ([]core.Insight, error)
	MarkInsightRead(ctx context.Context, userID, id string) error
	DeleteInsight(ctx context.Context, userID, id string) error
}

// Store is a Repository with transactions and lifecycle.
type Store interface {
	Repository
	// InTx runs fn against a transactional view. A returned error rolls back.
	InTx(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}
