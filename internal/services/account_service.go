package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/storage"
)

// AccountService manages the accounts money is kept in.
type AccountService struct {
	store    storage.Store
	notifier ChangeNotifier
	now      func() time.Time
}

func NewAccountService(store storage.Store, notifier ChangeNotifier) *AccountService {
	return &AccountService{store: store, notifier: notifier, now: time.Now}
}

func (s *AccountService) List(ctx context.Context, userID string) ([]core.Account, error) {
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *AccountService) Get(ctx context.Context, userID, id string) (core.Account, error) {
	a, err := s.store.GetAccount(ctx, userID, id)
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// Create opens an account. The balance defaults to zero.
func (s *AccountService) Create(ctx context.Context, userID string, in core.AccountInput) (core.Account, error) {
	if err := in.Validate(); err != nil {
		return core.Account{}, err
	}

	now := s.now().UTC()
	a := core.Account{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(in.Name),
		Kind:      in.Kind,
		Balance:   in.Balance,
		Icon:      in.Icon,
		Color:     in.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.changed(ctx, userID, log.OpCreate, a.ID)
	return a, nil
}

// Update edits account fields. A balance in the patch overwrites the stored
// one directly.
func (s *AccountService) Update(ctx context.Context, userID, id string, p core.AccountPatch) (core.Account, error) {
	if err := p.Validate(); err != nil {
		return core.Account{}, err
	}

	var a core.Account
	err := s.store.InTx(ctx, func(repo storage.Repository) error {
		var err error
		a, err = repo.GetAccount(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		p.Apply(&a)
		a.UpdatedAt = s.now().UTC()
		if err := repo.UpdateAccount(ctx, a); err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}

	s.changed(ctx, userID, log.OpUpdate, a.ID)
	return a, nil
}

// Impact reports how many transactions deleting the account would remove.
func (s *AccountService) Impact(ctx context.Context, userID, id string) (int, error) {
	if _, err := s.store.GetAccount(ctx, userID, id); err != nil {
		return 0, fmt.Errorf("get account: %w", err)
	}
	n, err := s.store.CountAccountTransactions(ctx, userID, id)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// Delete removes the account together with its transactions. When it still
// has transactions, confirm must be set or core.ErrConflict is returned.
func (s *AccountService) Delete(ctx context.Context, userID, id string, confirm bool) (int, error) {
	var removed int
	err := s.store.InTx(ctx, func(repo storage.Repository) error {
		if _, err := repo.GetAccount(ctx, userID, id); err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		n, err := repo.CountAccountTransactions(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}
		if n > 0 && !confirm {
			return fmt.Errorf("%w: account has %d transactions, confirm to delete them", core.ErrConflict, n)
		}
		if err := repo.DeleteAccount(ctx, userID, id); err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.changed(ctx, userID, log.OpDelete, id, "removed_transactions", removed)
	return removed, nil
}

func (s *AccountService) changed(ctx context.Context, userID, op, accountID string, extra ...any) {
	if s.notifier != nil {
		s.notifier.Invalidate(userID)
	}
	args := append([]any{
		log.FieldOperation, op,
		log.FieldUserID, userID,
		log.FieldAccountID, accountID,
	}, extra...)
	log.FromContext(ctx).WithComponent(log.ComponentAccount).InfoContext(ctx, "Account "+op+"d", args...)
}
