package mockapi

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/repository"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrNotItemOwner = errors.New("not the owner of this item")
)

type ItemsAPI struct {
	items repository.ItemRepository
	delay Delayer
	now   func() time.Time
}

func NewItemsAPI(items repository.ItemRepository, delay Delayer) *ItemsAPI {
	return &ItemsAPI{
		items: items,
		delay: delay,
		now:   time.Now,
	}
}

// ListItems returns the items matching f, newest first.
func (a *ItemsAPI) ListItems(ctx context.Context, f domain.Filter) ([]*domain.Item, error) {
	if err := a.delay.Delay(ctx, ListItemsDelay); err != nil {
		return nil, err
	}

	all, err := a.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	out := domain.FilterItems(all, f)
	sortNewestFirst(out)
	return out, nil
}

// ListItemsBefore returns up to limit items created strictly before the
// cursor, newest first. It backs "load more" pagination.
func (a *ItemsAPI) ListItemsBefore(ctx context.Context, before time.Time, limit int) ([]*domain.Item, error) {
	if err := a.delay.Delay(ctx, ListItemsDelay); err != nil {
		return nil, err
	}

	all, err := a.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	sortNewestFirst(all)
	out := make([]*domain.Item, 0, limit)
	for _, it := range all {
		if len(out) == limit {
			break
		}
		if it.CreatedAt.Before(before) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (a *ItemsAPI) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	if err := a.delay.Delay(ctx, DefaultDelay); err != nil {
		return nil, err
	}
	return a.get(ctx, id)
}

// CreateItem publishes a new available item owned by owner.
func (a *ItemsAPI) CreateItem(ctx context.Context, owner *domain.User, input domain.CreateItemInput) (*domain.Item, error) {
	if owner == nil {
		return nil, ErrNotAuthenticated
	}
	if err := a.delay.Delay(ctx, CreateItemDelay); err != nil {
		return nil, err
	}

	item := input.NewItem(uuid.NewString(), domain.NewOwnerSnapshot(owner), a.now())
	if err := a.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}
	return item, nil
}

func (a *ItemsAPI) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error) {
	if err := a.delay.Delay(ctx, UpdateItemDelay); err != nil {
		return nil, err
	}

	item, err := a.get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := patch.Apply(item, a.now())
	if err := a.items.Update(ctx, updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("updating item: %w", err)
	}
	return updated, nil
}

func (a *ItemsAPI) DeleteItem(ctx context.Context, id string) error {
	if err := a.delay.Delay(ctx, DefaultDelay); err != nil {
		return err
	}

	if err := a.items.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// IncrementCounter bumps one engagement counter. It does not wait.
func (a *ItemsAPI) IncrementCounter(ctx context.Context, id string, counter repository.Counter) (*domain.Item, error) {
	item, err := a.items.Increment(ctx, id, counter)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("incrementing %s: %w", counter, err)
	}
	return item, nil
}

// CheckOwner reports ErrNotItemOwner unless userID owns the item.
func (a *ItemsAPI) CheckOwner(ctx context.Context, id, userID string) error {
	item, err := a.get(ctx, id)
	if err != nil {
		return err
	}
	if item.Owner.ID != userID {
		return ErrNotItemOwner
	}
	return nil
}

// RefreshOwner rewrites the owner snapshot on every item user owns.
func (a *ItemsAPI) RefreshOwner(ctx context.Context, user *domain.User) (int, error) {
	n, err := a.items.RefreshOwner(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("refreshing owner snapshots: %w", err)
	}
	return n, nil
}

func (a *ItemsAPI) Categories() []domain.Category {
	return domain.Categories()
}

func (a *ItemsAPI) get(ctx context.Context, id string) (*domain.Item, error) {
	item, err := a.items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func sortNewestFirst(items []*domain.Item) {
	slices.SortStableFunc(items, func(a, b *domain.Item) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
