package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/mockapi"
	"github.com/vedran77/geev/internal/repository"
	"github.com/vedran77/geev/pkg/validator"
)

// ItemsState is a snapshot of the item feed.
type ItemsState struct {
	Items         []*domain.Item `json:"items"`
	FilteredItems []*domain.Item `json:"filtered_items"`
	CurrentItem   *domain.Item   `json:"current_item,omitempty"`
	IsLoading     bool           `json:"is_loading"`
	Error         string         `json:"error,omitempty"`
	Filters       domain.Filter  `json:"filters"`
	SearchQuery   string         `json:"search_query"`
	HasMore       bool           `json:"has_more"`
	Page          int            `json:"page"`
}

type ItemsService struct {
	api     ItemsAPI
	session Session
	logger  *zap.Logger

	mu          sync.RWMutex
	items       []*domain.Item
	filtered    []*domain.Item
	current     *domain.Item
	isLoading   bool
	err         string
	filters     domain.Filter
	searchQuery string
	hasMore     bool
	page        int
}

func NewItemsService(api ItemsAPI, session Session, logger *zap.Logger) *ItemsService {
	return &ItemsService{
		api:      api,
		session:  session,
		logger:   logger.Named("items"),
		filtered: []*domain.Item{},
		hasMore:  true,
		page:     1,
	}
}

func (s *ItemsService) State() ItemsState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ItemsState{
		Items:         cloneItems(s.items),
		FilteredItems: cloneItems(s.filtered),
		CurrentItem:   s.current.Clone(),
		IsLoading:     s.isLoading,
		Error:         s.err,
		Filters:       s.filters.Clone(),
		SearchQuery:   s.searchQuery,
		HasMore:       s.hasMore,
		Page:          s.page,
	}
}

// LoadItems replaces the feed with the full item list, newest first.
func (s *ItemsService) LoadItems(ctx context.Context) {
	s.mu.Lock()
	s.isLoading = true
	s.err = ""
	s.mu.Unlock()

	items, err := s.api.ListItems(ctx, domain.Filter{})
	if err != nil {
		s.logger.Error("loading items", zap.Error(err))
		s.fail(fmt.Errorf("loading items: %w", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.page = 1
	s.hasMore = len(items) >= PageSize
	s.isLoading = false
	s.recompute()
}

func (s *ItemsService) RefreshItems(ctx context.Context) {
	s.LoadItems(ctx)
}

// LoadMoreItems appends the next page. It does nothing when the feed is
// exhausted or a load is already running.
func (s *ItemsService) LoadMoreItems(ctx context.Context) {
	s.mu.Lock()
	if !s.hasMore || s.isLoading {
		s.mu.Unlock()
		return
	}
	s.isLoading = true
	cursor := s.cursor()
	s.mu.Unlock()

	next, err := s.api.ListItemsBefore(ctx, cursor, PageSize)
	if err != nil {
		s.logger.Error("loading more items", zap.Error(err))
		s.fail(fmt.Errorf("loading more items: %w", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range next {
		if !slices.ContainsFunc(s.items, func(have *domain.Item) bool { return have.ID == it.ID }) {
			s.items = append(s.items, it)
		}
	}
	s.page++
	s.hasMore = len(next) >= PageSize
	s.isLoading = false
	s.recompute()
}

// SearchItems sets the free-text query of the filtered view.
func (s *ItemsService) SearchItems(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchQuery = query
	s.recompute()
}

func (s *ItemsService) FilterByCategory(category domain.Category) {
	s.SetFilters(domain.Filter{Category: &category})
}

// SetFilters merges partial into the active filters.
func (s *ItemsService) SetFilters(partial domain.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = s.filters.Merge(partial)
	s.recompute()
}

// ClearFilters resets both the filters and the search query.
func (s *ItemsService) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = domain.Filter{}
	s.searchQuery = ""
	s.recompute()
}

// GetItemByID looks in the loaded feed first, then asks the facade. It
// returns nil when neither knows the id.
func (s *ItemsService) GetItemByID(ctx context.Context, id string) *domain.Item {
	s.mu.Lock()
	if i := s.index(id); i >= 0 {
		s.current = s.items[i].Clone()
		item := s.items[i].Clone()
		s.mu.Unlock()
		return item
	}
	s.mu.Unlock()

	item, err := s.api.GetItem(ctx, id)
	if errors.Is(err, mockapi.ErrItemNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Error("fetching item", zap.String("item_id", id), zap.Error(err))
		s.fail(fmt.Errorf("fetching item: %w", err))
		return nil
	}

	s.mu.Lock()
	s.current = item.Clone()
	s.mu.Unlock()
	return item
}

// CreateItem publishes input as the signed-in user and returns the new id.
func (s *ItemsService) CreateItem(ctx context.Context, input domain.CreateItemInput) (string, error) {
	owner := s.session.CurrentUser()
	if owner == nil {
		s.fail(ErrNotAuthenticated)
		return "", ErrNotAuthenticated
	}

	if errs := validator.ValidateItem(input.Title, input.Description, input.Images,
		input.Category.Valid(), input.Condition.Valid()); errs.HasErrors() {
		s.fail(errs)
		return "", errs
	}

	s.begin()
	item, err := s.api.CreateItem(ctx, owner, input)
	if err != nil {
		s.logger.Error("creating item", zap.Error(err))
		s.fail(err)
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Insert(s.items, 0, item)
	s.isLoading = false
	s.recompute()
	s.logger.Info("item created", zap.String("item_id", item.ID), zap.String("owner_id", owner.ID))
	return item.ID, nil
}

// UpdateItem merges patch into the item. An unknown id is recorded and
// logged but not returned.
func (s *ItemsService) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) error {
	return s.update(ctx, id, patch, true)
}

func (s *ItemsService) update(ctx context.Context, id string, patch domain.ItemPatch, recordMissing bool) error {
	if errs := validator.ValidateItemPatch(patch.Title, patch.Description, patch.Images); errs.HasErrors() {
		s.fail(errs)
		return errs
	}
	if patch.Category != nil && !patch.Category.Valid() {
		err := fmt.Errorf("invalid category %q", *patch.Category)
		s.fail(err)
		return err
	}
	if patch.Condition != nil && !patch.Condition.Valid() {
		err := fmt.Errorf("invalid condition %q", *patch.Condition)
		s.fail(err)
		return err
	}

	s.begin()
	item, err := s.api.UpdateItem(ctx, id, patch)
	if errors.Is(err, mockapi.ErrItemNotFound) {
		s.logger.Warn("update of unknown item", zap.String("item_id", id))
		if recordMissing {
			s.fail(err)
		} else {
			s.fail(nil)
		}
		return nil
	}
	if err != nil {
		s.logger.Error("updating item", zap.String("item_id", id), zap.Error(err))
		s.fail(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(item)
	s.isLoading = false
	return nil
}

// DeleteItem removes the item everywhere. Deleting an unknown id is a
// no-op.
func (s *ItemsService) DeleteItem(ctx context.Context, id string) error {
	s.begin()
	err := s.api.DeleteItem(ctx, id)
	if err != nil && !errors.Is(err, mockapi.ErrItemNotFound) {
		s.logger.Error("deleting item", zap.String("item_id", id), zap.Error(err))
		s.fail(err)
		return err
	}
	if err != nil {
		s.logger.Debug("delete of unknown item", zap.String("item_id", id))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.DeleteFunc(s.items, func(it *domain.Item) bool { return it.ID == id })
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.isLoading = false
	s.recompute()
	return nil
}

func (s *ItemsService) MarkItemAsReserved(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, domain.ItemStatusReserved)
}

func (s *ItemsService) MarkItemAsGiven(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, domain.ItemStatusGiven)
}

// setStatus overwrites the status whatever it was before. An unknown id
// is silently ignored.
func (s *ItemsService) setStatus(ctx context.Context, id string, status domain.ItemStatus) error {
	return s.update(ctx, id, domain.ItemPatch{Status: &status}, false)
}

func (s *ItemsService) IncrementViewCount(ctx context.Context, id string) {
	s.increment(ctx, id, repository.CounterViews)
}

func (s *ItemsService) IncrementInterestedCount(ctx context.Context, id string) {
	s.increment(ctx, id, repository.CounterInterested)
}

func (s *ItemsService) increment(ctx context.Context, id string, counter repository.Counter) {
	item, err := s.api.IncrementCounter(ctx, id, counter)
	if errors.Is(err, mockapi.ErrItemNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("incrementing counter", zap.String("item_id", id), zap.String("counter", string(counter)), zap.Error(err))
		s.fail(err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Responses may land out of order; counters only move forward.
	apply := func(it *domain.Item) {
		it.ViewCount = max(it.ViewCount, item.ViewCount)
		it.InterestedCount = max(it.InterestedCount, item.InterestedCount)
	}
	if i := s.index(id); i >= 0 {
		apply(s.items[i])
	}
	for _, it := range s.filtered {
		if it.ID == id {
			apply(it)
		}
	}
	if s.current != nil && s.current.ID == id {
		apply(s.current)
	}
}

// RefreshOwner rewrites the owner snapshot on every item user owns, in
// the store and in the feed.
func (s *ItemsService) RefreshOwner(ctx context.Context, user *domain.User) {
	n, err := s.api.RefreshOwner(ctx, user)
	if err != nil {
		s.logger.Error("refreshing owner snapshots", zap.String("user_id", user.ID), zap.Error(err))
		s.fail(err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.Owner.ID == user.ID {
			it.Owner.Refresh(user)
		}
	}
	if s.current != nil && s.current.Owner.ID == user.ID {
		s.current.Owner.Refresh(user)
	}
	s.recompute()
	s.logger.Debug("owner snapshots refreshed", zap.String("user_id", user.ID), zap.Int("store_items", n))
}

func (s *ItemsService) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

func (s *ItemsService) Categories() []domain.Category {
	return domain.Categories()
}

func (s *ItemsService) begin() {
	s.mu.Lock()
	s.isLoading = true
	s.err = ""
	s.mu.Unlock()
}

func (s *ItemsService) fail(err error) {
	s.mu.Lock()
	s.isLoading = false
	s.err = errString(err)
	s.mu.Unlock()
}

// replace swaps the stored copies of item. Caller holds the lock.
func (s *ItemsService) replace(item *domain.Item) {
	if i := s.index(item.ID); i >= 0 {
		s.items[i] = item.Clone()
	}
	if s.current != nil && s.current.ID == item.ID {
		s.current = item.Clone()
	}
	s.recompute()
}

// recompute derives the filtered view. Caller holds the lock.
func (s *ItemsService) recompute() {
	f := s.filters.Clone()
	if s.searchQuery != "" {
		f.Search = s.searchQuery
	}
	s.filtered = domain.FilterItems(s.items, f)
}

// cursor is the creation time of the oldest loaded item. Caller holds the lock.
func (s *ItemsService) cursor() time.Time {
	if len(s.items) == 0 {
		return time.Now()
	}
	oldest := s.items[0].CreatedAt
	for _, it := range s.items[1:] {
		if it.CreatedAt.Before(oldest) {
			oldest = it.CreatedAt
		}
	}
	return oldest
}

func (s *ItemsService) index(id string) int {
	return slices.IndexFunc(s.items, func(it *domain.Item) bool { return it.ID == id })
}
