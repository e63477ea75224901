// Package memory is an in-process storage backend for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"dompet/internal/core"
	"dompet/internal/storage"
)

type Store struct {
	// writeMu is held by InTx and by every write made outside one.
	writeMu sync.Mutex
	mu      sync.Mutex
	data    state
}

type state struct {
	users        []core.User
	accounts     []core.Account
	categories   []core.Category
	transactions []core.Transaction
	insights     []core.Insight
}

func (s state) clone() state {
	return state{
		users:        slices.Clone(s.users),
		accounts:     slices.Clone(s.accounts),
		categories:   slices.Clone(s.categories),
		transactions: slices.Clone(s.transactions),
		insights:     slices.Clone(s.insights),
	}
}

func New() *Store {
	return &Store{}
}

var _ storage.Store = (*Store)(nil)

// InTx runs fn against a private copy of the data and installs the copy only
// when fn succeeds and ctx is still live. Writes outside a transaction wait
// for it, so a commit never overwrites them.
func (s *Store) InTx(ctx context.Context, fn func(storage.Repository) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	tx := &Store{data: s.data.clone()}
	s.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	return nil
}

// lockWrite holds off transactions for the length of one write.
func (s *Store) lockWrite() func() {
	s.writeMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.writeMu.Unlock()
	}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	defer s.lockWrite()()
	for _, existing := range s.data.users {
		if existing.Email == u.Email {
			return fmt.Errorf("email %s: %w", u.Email, core.ErrConflict)
		}
	}
	s.data.users = append(s.data.users, u)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) ListActiveUserIDs(_ context.Context, r core.DateRange) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, t := range s.data.transactions {
		if r.Contains(t.Date) && !seen[t.UserID] {
			seen[t.UserID] = true
			out = append(out, t.UserID)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) error {
	defer s.lockWrite()()
	s.data.accounts = append(s.data.accounts, a)
	return nil
}

func (s *Store) GetAccount(_ context.Context, userID, id string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.accountIndex(userID, id)
	if i < 0 {
		return core.Account{}, core.ErrNotFound
	}
	return s.data.accounts[i], nil
}

func (s *Store) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Account{}
	for _, a := range s.data.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) error {
	defer s.lockWrite()()
	i := s.accountIndex(a.UserID, a.ID)
	if i < 0 {
		return core.ErrNotFound
	}
	s.data.accounts[i] = a
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, userID, id string) error {
	defer s.lockWrite()()
	i := s.accountIndex(userID, id)
	if i < 0 {
		return core.ErrNotFound
	}
	s.data.accounts = slices.Delete(s.data.accounts, i, i+1)
	s.data.transactions = slices.DeleteFunc(s.data.transactions, func(t core.Transaction) bool {
		return t.AccountID == id
	})
	return nil
}

func (s *Store) AdjustBalance(_ context.Context, userID, accountID string, delta core.Money) error {
	defer s.lockWrite()()
	i := s.accountIndex(userID, accountID)
	if i < 0 {
		return core.ErrNotFound
	}
	s.data.accounts[i].Balance = s.data.accounts[i].Balance.Add(delta)
	return nil
}

func (s *Store) CountAccountTransactions(_ context.Context, userID, accountID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.data.transactions {
		if t.UserID == userID && t.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	defer s.lockWrite()()
	if s.categoryExists(c) {
		return fmt.Errorf("category %q: %w", c.Name, core.ErrConflict)
	}
	s.data.categories = append(s.data.categories, c)
	return nil
}

func (s *Store) EnsureCategory(_ context.Context, c core.Category) (bool, error) {
	defer s.lockWrite()()
	if s.categoryExists(c) {
		return false, nil
	}
	s.data.categories = append(s.data.categories, c)
	return true, nil
}

func (s *Store) GetCategory(_ context.Context, userID, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.data.categories {
		if c.ID == id && (c.UserID == userID || c.UserID == "") {
			return c, nil
		}
	}
	return core.Category{}, core.ErrNotFound
}

func (s *Store) ListCategories(_ context.Context, userID string, kind core.Kind) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Category{}
	for _, c := range s.data.categories {
		if c.UserID != userID && c.UserID != "" {
			continue
		}
		if kind != "" && c.Kind != kind {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	defer s.lockWrite()()
	for i, existing := range s.data.categories {
		if existing.ID == c.ID && existing.UserID == c.UserID {
			s.data.categories[i] = c
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteCategory(_ context.Context, userID, id string) error {
	defer s.lockWrite()()
	i := slices.IndexFunc(s.data.categories, func(c core.Category) bool {
		return c.ID == id && c.UserID == userID
	})
	if i < 0 {
		return core.ErrNotFound
	}
	s.data.categories = slices.Delete(s.data.categories, i, i+1)
	for j := range s.data.transactions {
		if s.data.transactions[j].CategoryID == id {
			s.data.transactions[j].CategoryID = ""
		}
	}
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	defer s.lockWrite()()
	if s.accountIndex(t.UserID, t.AccountID) < 0 {
		return core.ErrNotFound
	}
	s.data.transactions = append(s.data.transactions, t)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.transactionIndex(userID, id)
	if i < 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return s.data.transactions[i], nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []core.Transaction
	for _, t := range s.data.transactions {
		if t.UserID == userID && f.Matches(t) {
			matched = append(matched, t)
		}
	}
	slices.SortStableFunc(matched, func(a, b core.Transaction) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := len(matched)
	start := min(f.Offset, total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return append([]core.Transaction{}, matched[start:end]...), total, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	defer s.lockWrite()()
	i := s.transactionIndex(t.UserID, t.ID)
	if i < 0 {
		return core.ErrNotFound
	}
	s.data.transactions[i] = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	defer s.lockWrite()()
	i := s.transactionIndex(userID, id)
	if i < 0 {
		return core.ErrNotFound
	}
	s.data.transactions = slices.Delete(s.data.transactions, i, i+1)
	return nil
}

func (s *Store) SumByKind(_ context.Context, userID string, r core.DateRange) (core.Money, core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var income, expense core.Money
	for _, t := range s.data.transactions {
		if t.UserID != userID || !r.Contains(t.Date) {
			continue
		}
		switch t.Kind {
		case core.KindIncome:
			income = income.Add(t.Amount)
		case core.KindExpense:
			expense = expense.Add(t.Amount)
		}
	}
	return income, expense, nil
}

func (s *Store) ExpenseByCategory(_ context.Context, userID string, r core.DateRange) ([]storage.CategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := map[string]int{}
	var out []storage.CategoryTotal
	for _, t := range s.data.transactions {
		if t.UserID != userID || t.Kind != core.KindExpense || !r.Contains(t.Date) {
			continue
		}
		i, ok := index[t.CategoryID]
		if !ok {
			ct := storage.CategoryTotal{CategoryID: t.CategoryID}
			if c, found := s.category(t.CategoryID); found {
				ct.Name, ct.Color = c.Name, c.Color
			}
			out = append(out, ct)
			i = len(out) - 1
			index[t.CategoryID] = i
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	return out, nil
}

func (s *Store) CountTransactions(_ context.Context, userID string, r core.DateRange) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.data.transactions {
		if t.UserID == userID && r.Contains(t.Date) {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpsertInsight(_ context.Context, in core.Insight) (core.Insight, error) {
	defer s.lockWrite()()
	for i, existing := range s.data.insights {
		if existing.UserID == in.UserID && existing.Type == in.Type && existing.Period == in.Period {
			in.ID = existing.ID
			s.data.insights[i] = in
			return in, nil
		}
	}
	s.data.insights = append(s.data.insights, in)
	return in, nil
}

func (s *Store) ListInsights(_ context.Context, userID string, f core.InsightFilter) ([]core.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Insight{}
	for _, in := range s.data.insights {
		if in.UserID != userID {
			continue
		}
		if f.Type != "" && in.Type != f.Type {
			continue
		}
		if f.UnreadOnly && in.IsRead {
			continue
		}
		out = append(out, in)
	}
	slices.SortStableFunc(out, func(a, b core.Insight) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) MarkInsightRead(_ context.Context, userID, id string) error {
	defer s.lockWrite()()
	for i, in := range s.data.insights {
		if in.ID == id && in.UserID == userID {
			s.data.insights[i].IsRead = true
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteInsight(_ context.Context, userID, id string) error {
	defer s.lockWrite()()
	i := slices.IndexFunc(s.data.insights, func(in core.Insight) bool {
		return in.ID == id && in.UserID == userID
	})
	if i < 0 {
		return core.ErrNotFound
	}
	s.data.insights = slices.Delete(s.data.insights, i, i+1)
	return nil
}

func (s *Store) accountIndex(userID, id string) int {
	return slices.IndexFunc(s.data.accounts, func(a core.Account) bool {
		return a.ID == id && a.UserID == userID
	})
}

func (s *Store) transactionIndex(userID, id string) int {
	return slices.IndexFunc(s.data.transactions, func(t core.Transaction) bool {
		return t.ID == id && t.UserID == userID
	})
}

func (s *Store) category(id string) (core.Category, bool) {
	if id == "" {
		return core.Category{}, false
	}
	for _, c := range s.data.categories {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

// categoryExists applies the (owner, name, kind) uniqueness rule.
func (s *Store) categoryExists(c core.Category) bool {
	for _, existing := range s.data.categories {
		if existing.UserID == c.UserID && existing.Kind == c.Kind && existing.Name == c.Name {
			return true
		}
	}
	return false
}
