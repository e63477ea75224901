package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dompet/internal/amqp"
	"dompet/internal/categorize"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/storage"
)

// TransactionService records transactions and keeps account balances equal to
// their initial balance plus the signed effect of every transaction.
type TransactionService struct {
	store    storage.Store
	events   EventPublisher
	notifier ChangeNotifier
	now      func() time.Time
}

// NewTransactionService wires the ledger. events and notifier may be nil.
func NewTransactionService(store storage.Store, events EventPublisher, notifier ChangeNotifier) *TransactionService {
	return &TransactionService{
		store:    store,
		events:   events,
		notifier: notifier,
		now:      time.Now,
	}
}

// Create stores a transaction and applies its effect to the account balance.
// Without a category, one is picked by keyword from the merchant or description.
func (s *TransactionService) Create(ctx context.Context, userID string, in core.TransactionInput) (core.TransactionDetail, error) {
	if err := in.Validate(); err != nil {
		return core.TransactionDetail{}, err
	}

	now := s.now().UTC()
	t := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		AccountID:   strings.TrimSpace(in.AccountID),
		CategoryID:  strings.TrimSpace(in.CategoryID),
		Kind:        in.Kind,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Merchant:    strings.TrimSpace(in.Merchant),
		Date:        in.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var detail core.TransactionDetail
	err := s.store.InTx(ctx, func(repo storage.Repository) error {
		account, err := repo.GetAccount(ctx, userID, t.AccountID)
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}

		category, err := resolveCategory(ctx, repo, &t)
		if err != nil {
			return err
		}

		if err := repo.CreateTransaction(ctx, t); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		if err := repo.AdjustBalance(ctx, userID, t.AccountID, t.Effect()); err != nil {
			return fmt.Errorf("adjust balance: %w", err)
		}

		account.Balance = account.Balance.Add(t.Effect())
		detail = core.TransactionDetail{Transaction: t, Account: &account, Category: category}
		return nil
	})
	if err != nil {
		return core.TransactionDetail{}, err
	}

	log.NewStructuredLogger(log.FromContext(ctx)).LogTransaction(ctx, log.OpCreate, t, t.Effect())
	changed(ctx, s.events, s.notifier, amqp.RoutingTransactionCreated, t)
	return detail, nil
}

// resolveCategory checks an explicit category or auto-categorizes t in place.
func resolveCategory(ctx context.Context, repo storage.Repository, t *core.Transaction) (*core.Category, error) {
	if t.CategoryID != "" {
		c, err := repo.GetCategory(ctx, t.UserID, t.CategoryID)
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.FieldError("categoryId", "category not found")
		}
		if err != nil {
			return nil, fmt.Errorf("get category: %w", err)
		}
		return &c, nil
	}

	input := t.MatchInput()
	if input == "" {
		return nil, nil
	}
	candidates, err := repo.ListCategories(ctx, t.UserID, t.Kind)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	c, ok := categorize.Match(input, t.Kind, candidates)
	if !ok {
		return nil, nil
	}
	t.CategoryID = c.ID
	return &c, nil
}

// Get returns one transaction with its account and category.
func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.TransactionDetail, error) {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.TransactionDetail{}, fmt.Errorf("get transaction: %w", err)
	}
	return loadDetail(ctx, s.store, t)
}

func loadDetail(ctx context.Context, repo storage.Repository, t core.Transaction) (core.TransactionDetail, error) {
	d := core.TransactionDetail{Transaction: t}
	account, err := repo.GetAccount(ctx, t.UserID, t.AccountID)
	if err != nil {
		return core.TransactionDetail{}, fmt.Errorf("get account: %w", err)
	}
	d.Account = &account

	if t.CategoryID != "" {
		c, err := repo.GetCategory(ctx, t.UserID, t.CategoryID)
		switch {
		case err == nil:
			d.Category = &c
		case !errors.Is(err, core.ErrNotFound):
			return core.TransactionDetail{}, fmt.Errorf("get category: %w", err)
		}
	}
	return d, nil
}

// List returns one page of the user's transactions and the total match count.
func (s *TransactionService) List(ctx context.Context, userID string, f core.TransactionFilter) ([]core.TransactionDetail, int, error) {
	if err := f.Normalize(); err != nil {
		return nil, 0, err
	}

	txs, total, err := s.store.ListTransactions(ctx, userID, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}

	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	categories, err := s.store.ListCategories(ctx, userID, "")
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}

	accountByID := make(map[string]core.Account, len(accounts))
	for _, a := range accounts {
		accountByID[a.ID] = a
	}
	categoryByID := make(map[string]core.Category, len(categories))
	for _, c := range categories {
		categoryByID[c.ID] = c
	}

	out := make([]core.TransactionDetail, 0, len(txs))
	for _, t := range txs {
		d := core.TransactionDetail{Transaction: t}
		if a, ok := accountByID[t.AccountID]; ok {
			d.Account = &a
		}
		if c, ok := categoryByID[t.CategoryID]; ok {
			d.Category = &c
		}
		out = append(out, d)
	}
	return out, total, nil
}

// Update applies a partial change and moves the account balance by the
// difference between the new and the old effect.
func (s *TransactionService) Update(ctx context.Context, userID, id string, p core.TransactionPatch) (core.TransactionDetail, error) {
	if err := p.Validate(); err != nil {
		return core.TransactionDetail{}, err
	}

	var (
		updated core.Transaction
		delta   core.Money
		detail  core.TransactionDetail
	)
	err := s.store.InTx(ctx, func(repo storage.Repository) error {
		old, err := repo.GetTransaction(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if p.AccountID != nil && strings.TrimSpace(*p.AccountID) != old.AccountID {
			return core.FieldError("accountId", "moving a transaction to another account is not supported")
		}

		updated = old
		p.Apply(&updated)
		updated.Description = strings.TrimSpace(updated.Description)
		updated.Merchant = strings.TrimSpace(updated.Merchant)
		updated.CategoryID = strings.TrimSpace(updated.CategoryID)
		updated.UpdatedAt = s.now().UTC()

		if !p.ClearCategory && p.CategoryID != nil && updated.CategoryID != "" {
			if _, err := resolveCategory(ctx, repo, &updated); err != nil {
				return err
			}
		}

		if err := repo.UpdateTransaction(ctx, updated); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}

		delta = updated.Effect().Sub(old.Effect())
		if !delta.IsZero() {
			if err := repo.AdjustBalance(ctx, userID, updated.AccountID, delta); err != nil {
				return fmt.Errorf("adjust balance: %w", err)
			}
		}

		detail, err = loadDetail(ctx, repo, updated)
		return err
	})
	if err != nil {
		return core.TransactionDetail{}, err
	}

	log.NewStructuredLogger(log.FromContext(ctx)).LogTransaction(ctx, log.OpUpdate, updated, delta)
	changed(ctx, s.events, s.notifier, amqp.RoutingTransactionUpdated, updated)
	return detail, nil
}

// Delete removes a transaction and reverses its effect on the balance.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	var t core.Transaction
	err := s.store.InTx(ctx, func(repo storage.Repository) error {
		var err error
		t, err = repo.GetTransaction(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if err := repo.DeleteTransaction(ctx, userID, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		if err := repo.AdjustBalance(ctx, userID, t.AccountID, t.Effect().Neg()); err != nil {
			return fmt.Errorf("adjust balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.NewStructuredLogger(log.FromContext(ctx)).LogTransaction(ctx, log.OpDelete, t, t.Effect().Neg())
	changed(ctx, s.events, s.notifier, amqp.RoutingTransactionDeleted, t)
	return nil
}
