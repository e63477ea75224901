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

// CategoryService manages user categories next to the shared defaults.
type CategoryService struct {
	store    storage.Store
	notifier ChangeNotifier
	now      func() time.Time
}

func NewCategoryService(store storage.Store, notifier ChangeNotifier) *CategoryService {
	return &CategoryService{store: store, notifier: notifier, now: time.Now}
}

// List returns the user's categories and the defaults, optionally of one kind.
func (s *CategoryService) List(ctx context.Context, userID string, kind core.Kind) ([]core.Category, error) {
	if kind != "" && !kind.IsValid() {
		return nil, core.FieldError("type", "must be income or expense")
	}
	categories, err := s.store.ListCategories(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) Create(ctx context.Context, userID string, in core.CategoryInput) (core.Category, error) {
	if err := in.Validate(); err != nil {
		return core.Category{}, err
	}

	c := core.Category{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(in.Name),
		Kind:      in.Kind,
		Icon:      in.Icon,
		Color:     in.Color,
		Keywords:  in.Keywords,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	s.changed(ctx, userID, log.OpCreate, c.ID)
	return c, nil
}

// Update edits a category the user owns. Defaults cannot be changed and are
// reported as not found.
func (s *CategoryService) Update(ctx context.Context, userID, id string, p core.CategoryPatch) (core.Category, error) {
	if err := p.Validate(); err != nil {
		return core.Category{}, err
	}

	var c core.Category
	err := s.store.InTx(ctx, func(repo storage.Repository) error {
		var err error
		c, err = ownedCategory(ctx, repo, userID, id)
		if err != nil {
			return err
		}
		p.Apply(&c)
		if err := repo.UpdateCategory(ctx, c); err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}

	s.changed(ctx, userID, log.OpUpdate, id)
	return c, nil
}

// Delete removes an owned category. Its transactions become uncategorized.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	err := s.store.InTx(ctx, func(repo storage.Repository) error {
		if _, err := ownedCategory(ctx, repo, userID, id); err != nil {
			return err
		}
		if err := repo.DeleteCategory(ctx, userID, id); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.changed(ctx, userID, log.OpDelete, id)
	return nil
}

func ownedCategory(ctx context.Context, repo storage.Repository, userID, id string) (core.Category, error) {
	c, err := repo.GetCategory(ctx, userID, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	if c.UserID != userID || c.IsDefault {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	return c, nil
}

// SeedDefaults inserts the shared default categories that are not stored yet
// and returns how many were added. Running it again adds nothing.
func (s *CategoryService) SeedDefaults(ctx context.Context, defaults []core.Category) (int, error) {
	added := 0
	err := s.store.InTx(ctx, func(repo storage.Repository) error {
		now := s.now().UTC()
		for _, d := range defaults {
			d.ID = uuid.NewString()
			d.UserID = ""
			d.IsDefault = true
			d.CreatedAt = now
			ok, err := repo.EnsureCategory(ctx, d)
			if err != nil {
				return fmt.Errorf("seed category %q: %w", d.Name, err)
			}
			if ok {
				added++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.FromContext(ctx).WithComponent(log.ComponentCategory).InfoContext(ctx, "Default categories seeded",
		log.FieldOperation, log.OpSeed,
		"added", added,
		"total", len(defaults))
	return added, nil
}

func (s *CategoryService) changed(ctx context.Context, userID, op, categoryID string) {
	if s.notifier != nil {
		s.notifier.Invalidate(userID)
	}
	log.FromContext(ctx).WithComponent(log.ComponentCategory).InfoContext(ctx, "Category "+op+"d",
		log.FieldOperation, op,
		log.FieldUserID, userID,
		log.FieldCategoryID, categoryID)
}
