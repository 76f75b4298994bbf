package mockapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/repository"
)

func itemIDs(items []*domain.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestItemsAPI_ListItems(t *testing.T) {
	ctx := context.Background()
	api := NewItemsAPI(newStore(t).Items, NoDelay)

	t.Run("newest first", func(t *testing.T) {
		items, err := api.ListItems(ctx, domain.Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "5", "2", "3", "4"}, itemIDs(items))
	})

	t.Run("filtered", func(t *testing.T) {
		cat := domain.CategoryFurniture
		items, err := api.ListItems(ctx, domain.Filter{Category: &cat})
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "4"}, itemIDs(items))
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		slow := NewItemsAPI(newStore(t).Items, Latency{Scale: 1})
		_, err := slow.ListItems(cctx, domain.Filter{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestItemsAPI_ListItemsBefore(t *testing.T) {
	ctx := context.Background()
	api := NewItemsAPI(newStore(t).Items, NoDelay)

	items, err := api.ListItemsBefore(ctx, time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, itemIDs(items))

	items, err = api.ListItemsBefore(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 20)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestItemsAPI_CreateThenGet(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	api := NewItemsAPI(store.Items, NoDelay)

	owner, err := store.Users.GetByID(ctx, "1")
	require.NoError(t, err)

	input := domain.CreateItemInput{
		Title:       "Lampe de bureau",
		Description: "Lampe LED orientable",
		Category:    domain.CategoryHomeGarden,
		Condition:   domain.ConditionGood,
		Images:      []string{"https://picsum.photos/400/300?random=99"},
		Tags:        []string{"lampe"},
	}
	before := time.Now()
	created, err := api.CreateItem(ctx, owner, input)
	require.NoError(t, err)

	got, err := api.GetItem(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, input.Title, got.Title)
	assert.Equal(t, input.Description, got.Description)
	assert.Equal(t, input.Category, got.Category)
	assert.Equal(t, input.Images, got.Images)
	assert.Equal(t, domain.ItemStatusAvailable, got.Status)
	assert.Zero(t, got.ViewCount)
	assert.Zero(t, got.InterestedCount)
	assert.Equal(t, "1", got.Owner.ID)
	assert.False(t, got.CreatedAt.Before(before))
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)

	all, err := store.Items.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, all[0].ID)

	_, err = api.CreateItem(ctx, nil, input)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestItemsAPI_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	api := NewItemsAPI(newStore(t).Items, NoDelay)

	given := domain.ItemStatusGiven
	updated, err := api.UpdateItem(ctx, "3", domain.ItemPatch{Status: &given})
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusGiven, updated.Status)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	_, err = api.UpdateItem(ctx, "missing", domain.ItemPatch{})
	assert.ErrorIs(t, err, ErrItemNotFound)

	require.NoError(t, api.DeleteItem(ctx, "3"))
	assert.ErrorIs(t, api.DeleteItem(ctx, "3"), ErrItemNotFound)

	_, err = api.GetItem(ctx, "3")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestItemsAPI_IncrementCounter(t *testing.T) {
	ctx := context.Background()
	api := NewItemsAPI(newStore(t).Items, NoDelay)

	before, err := api.GetItem(ctx, "1")
	require.NoError(t, err)

	_, err = api.IncrementCounter(ctx, "1", repository.CounterViews)
	require.NoError(t, err)
	after, err := api.IncrementCounter(ctx, "1", repository.CounterViews)
	require.NoError(t, err)

	assert.Equal(t, before.ViewCount+2, after.ViewCount)
	assert.Equal(t, before.InterestedCount, after.InterestedCount)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)

	_, err = api.IncrementCounter(ctx, "missing", repository.CounterInterested)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestItemsAPI_CheckOwner(t *testing.T) {
	ctx := context.Background()
	api := NewItemsAPI(newStore(t).Items, NoDelay)

	assert.NoError(t, api.CheckOwner(ctx, "1", "1"))
	assert.ErrorIs(t, api.CheckOwner(ctx, "1", "2"), ErrNotItemOwner)
	assert.ErrorIs(t, api.CheckOwner(ctx, "missing", "1"), ErrItemNotFound)
}

func TestItemsAPI_RefreshOwner(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	api := NewItemsAPI(store.Items, NoDelay)

	user, err := store.Users.GetByID(ctx, "1")
	require.NoError(t, err)
	user.FirstName = "Marion"

	n, err := api.RefreshOwner(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	item, err := api.GetItem(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, "Marion", item.Owner.FirstName)
}
