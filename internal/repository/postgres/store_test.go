package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/geev/internal/database"
	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/repository"
	"github.com/vedran77/geev/internal/repository/memory"
)

// newStore connects to TEST_DATABASE_URL, resets the tables and loads the
// demo dataset.
func newStore(t *testing.T) *repository.Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE messages, conversations, items, users`)
	require.NoError(t, err)

	store := New(pool)
	seed, err := memory.DefaultSeed()
	require.NoError(t, err)
	require.NoError(t, memory.Load(ctx, store, seed))
	return store
}

func TestItemRepo(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	items, err := store.Items.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, "Marie", items[0].Owner.FirstName)

	owner, err := store.Users.GetByID(ctx, "2")
	require.NoError(t, err)
	require.NotNil(t, owner)

	now := time.Now().UTC().Truncate(time.Microsecond)
	created := domain.CreateItemInput{
		Title:     "Lampe",
		Category:  domain.CategoryHomeGarden,
		Condition: domain.ConditionGood,
	}.NewItem("pg-1", domain.NewOwnerSnapshot(owner), now)
	require.NoError(t, store.Items.Create(ctx, created))

	items, err = store.Items.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pg-1", items[0].ID)

	got, err := store.Items.GetByID(ctx, "pg-1")
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Owner, got.Owner)
	assert.Empty(t, got.Tags)
	assert.True(t, now.Equal(got.CreatedAt))

	bumped, err := store.Items.Increment(ctx, "pg-1", repository.CounterViews)
	require.NoError(t, err)
	assert.Equal(t, 1, bumped.ViewCount)

	_, err = store.Items.Increment(ctx, "missing", repository.CounterViews)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.Items.Delete(ctx, "pg-1"))
	assert.ErrorIs(t, store.Items.Delete(ctx, "pg-1"), repository.ErrNotFound)

	marie, err := store.Users.GetByID(ctx, "1")
	require.NoError(t, err)
	marie.FirstName = "Marion"
	n, err := store.Items.RefreshOwner(ctx, marie)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestConversationAndMessageRepo(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	convs, err := store.Conversations.ListByUser(ctx, "2")
	require.NoError(t, err)
	assert.Len(t, convs, 2)

	conv, err := store.Conversations.GetByItemAndUsers(ctx, "1", "2", "1")
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, "conv-1-2", conv.ID)

	unread, err := store.Messages.CountUnread(ctx, "conv-1-2", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	msgs, err := store.Messages.ListByItem(ctx, "2")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "4", msgs[0].ID)

	user, err := store.Users.GetByID(ctx, "3")
	require.NoError(t, err)
	user.LastName = "Bernardi"
	n, err := store.Conversations.RefreshParticipant(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
