package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/mockapi"
	"github.com/vedran77/geev/internal/securestore"
)

var errDisk = errors.New("disk unavailable")

type brokenStore struct {
	securestore.Store
	failGet, failSet, failDelete bool
}

func (b *brokenStore) Get(ctx context.Context, key string) (string, bool, error) {
	if b.failGet {
		return "", false, errDisk
	}
	return b.Store.Get(ctx, key)
}

func (b *brokenStore) Set(ctx context.Context, key, value string) error {
	if b.failSet {
		return errDisk
	}
	return b.Store.Set(ctx, key, value)
}

func (b *brokenStore) Delete(ctx context.Context, key string) error {
	if b.failDelete {
		return errDisk
	}
	return b.Store.Delete(ctx, key)
}

func TestAuthService_LoginPersistsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mockapi.NoDelay)

	f.login(t)

	st := f.auth.State()
	require.True(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)
	assert.Equal(t, "1", st.User.ID)
	assert.NotEmpty(t, f.auth.Token())

	raw, ok, err := f.secure.Get(ctx, securestore.UserKey)
	require.NoError(t, err)
	require.True(t, ok)
	var stored domain.User
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, "1", stored.ID)

	token, ok, err := f.secure.Get(ctx, securestore.TokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f.auth.Token(), token)

	// A fresh container over the same storage restores the same user.
	restored := NewAuthService(mockapi.NewAuthAPI(f.store.Users, mockapi.NoDelay, "test-secret"), f.secure, zap.NewNop())
	restored.CheckAuthStatus(ctx)

	rst := restored.State()
	assert.True(t, rst.IsAuthenticated)
	assert.Equal(t, "1", rst.User.ID)
	assert.Equal(t, token, restored.Token())
}

func TestAuthService_LoginFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mockapi.NoDelay)

	err := f.auth.Login(ctx, mockapi.Credentials{Email: "pierre.martin@email.com", Password: "demo123"})
	assert.ErrorIs(t, err, mockapi.ErrInvalidCreds)

	st := f.auth.State()
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.Nil(t, st.User)
	assert.Equal(t, mockapi.ErrInvalidCreds.Error(), st.Error)

	_, ok, err := f.secure.Get(ctx, securestore.TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)

	f.auth.ClearError()
	assert.Empty(t, f.auth.State().Error)
}

func TestAuthService_LoginValidation(t *testing.T) {
	f := newFixture(t, mockapi.NoDelay)

	err := f.auth.Login(context.Background(), mockapi.Credentials{Email: "nope"})
	require.Error(t, err)
	assert.False(t, f.auth.State().IsAuthenticated)
	assert.NotEmpty(t, f.auth.State().Error)
}

func TestAuthService_LoginStorageFailure(t *testing.T) {
	f := newFixture(t, mockapi.NoDelay)
	store := &brokenStore{Store: securestore.NewMemory(), failSet: true}
	auth := NewAuthService(mockapi.NewAuthAPI(f.store.Users, mockapi.NoDelay, "test-secret"), store, zap.NewNop())

	err := auth.Login(context.Background(), mockapi.Credentials{Email: mockapi.DemoEmail, Password: mockapi.DemoPassword})
	assert.ErrorIs(t, err, errDisk)
	assert.False(t, auth.State().IsAuthenticated)
}

func TestAuthService_CheckAuthStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("empty storage", func(t *testing.T) {
		f := newFixture(t, mockapi.NoDelay)
		f.auth.CheckAuthStatus(ctx)
		st := f.auth.State()
		assert.False(t, st.IsAuthenticated)
		assert.False(t, st.IsLoading)
		assert.Empty(t, st.Error)
	})

	t.Run("token without user", func(t *testing.T) {
		f := newFixture(t, mockapi.NoDelay)
		require.NoError(t, f.secure.Set(ctx, securestore.TokenKey, "tok"))
		f.auth.CheckAuthStatus(ctx)
		assert.False(t, f.auth.State().IsAuthenticated)
	})

	t.Run("corrupt user", func(t *testing.T) {
		f := newFixture(t, mockapi.NoDelay)
		require.NoError(t, f.secure.Set(ctx, securestore.TokenKey, "tok"))
		require.NoError(t, f.secure.Set(ctx, securestore.UserKey, "{not json"))
		f.auth.CheckAuthStatus(ctx)
		assert.False(t, f.auth.State().IsAuthenticated)
	})

	t.Run("storage error counts as no session", func(t *testing.T) {
		f := newFixture(t, mockapi.NoDelay)
		store := &brokenStore{Store: securestore.NewMemory(), failGet: true}
		auth := NewAuthService(mockapi.NewAuthAPI(f.store.Users, mockapi.NoDelay, "test-secret"), store, zap.NewNop())
		auth.CheckAuthStatus(ctx)
		st := auth.State()
		assert.False(t, st.IsAuthenticated)
		assert.Empty(t, st.Error)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("clears storage and state", func(t *testing.T) {
		f := newFixture(t, mockapi.NoDelay)
		f.login(t)

		f.auth.Logout(ctx)

		st := f.auth.State()
		assert.False(t, st.IsAuthenticated)
		assert.Nil(t, st.User)
		assert.Empty(t, f.auth.Token())
		_, ok, _ := f.secure.Get(ctx, securestore.UserKey)
		assert.False(t, ok)
		_, ok, _ = f.secure.Get(ctx, securestore.TokenKey)
		assert.False(t, ok)
	})

	t.Run("storage failure still signs out", func(t *testing.T) {
		f := newFixture(t, mockapi.NoDelay)
		store := &brokenStore{Store: securestore.NewMemory()}
		auth := NewAuthService(mockapi.NewAuthAPI(f.store.Users, mockapi.NoDelay, "test-secret"), store, zap.NewNop())
		require.NoError(t, auth.Login(ctx, mockapi.Credentials{Email: mockapi.DemoEmail, Password: mockapi.DemoPassword}))

		store.failDelete = true
		auth.Logout(ctx)
		assert.False(t, auth.State().IsAuthenticated)
	})
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mockapi.NoDelay)

	err := f.auth.Register(ctx, mockapi.RegisterInput{Email: "lea@example.com", Password: "short"})
	require.Error(t, err)
	assert.False(t, f.auth.State().IsAuthenticated)

	require.NoError(t, f.auth.Register(ctx, mockapi.RegisterInput{
		Email:     "lea@example.com",
		Password:  "Secret123",
		FirstName: "Léa",
		LastName:  "Petit",
	}))
	st := f.auth.State()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, "Léa", st.User.FirstName)
	assert.False(t, st.User.Verified)
}

func TestAuthService_LoginWithGoogle(t *testing.T) {
	f := newFixture(t, mockapi.NoDelay)

	require.NoError(t, f.auth.LoginWithGoogle(context.Background()))
	st := f.auth.State()
	assert.True(t, st.IsAuthenticated)
	assert.True(t, st.User.Verified)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a session", func(t *testing.T) {
		f := newFixture(t, mockapi.NoDelay)
		err := f.auth.UpdateProfile(ctx, domain.ProfilePatch{FirstName: ptr("Marion")})
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		assert.Equal(t, ErrNotAuthenticated.Error(), f.auth.State().Error)
	})

	t.Run("refreshes snapshots", func(t *testing.T) {
		f := newFixture(t, mockapi.NoDelay)
		f.login(t)
		f.items.LoadItems(ctx)
		f.chat.LoadConversations(ctx)

		require.NoError(t, f.auth.UpdateProfile(ctx, domain.ProfilePatch{FirstName: ptr("Marion")}))
		assert.Equal(t, "Marion", f.auth.CurrentUser().FirstName)

		raw, _, err := f.secure.Get(ctx, securestore.UserKey)
		require.NoError(t, err)
		assert.Contains(t, raw, `"first_name":"Marion"`)

		for _, it := range f.items.State().Items {
			if it.Owner.ID == "1" {
				assert.Equal(t, "Marion", it.Owner.FirstName, it.ID)
			}
		}
		stored, err := f.store.Items.GetByID(ctx, "4")
		require.NoError(t, err)
		assert.Equal(t, "Marion", stored.Owner.FirstName)

		convs := f.chat.State().Conversations
		require.Len(t, convs, 1)
		assert.Equal(t, "Marion", convs[0].Participants[0].FirstName)
	})

	t.Run("invalid patch", func(t *testing.T) {
		f := newFixture(t, mockapi.NoDelay)
		f.login(t)
		err := f.auth.UpdateProfile(ctx, domain.ProfilePatch{FirstName: ptr("")})
		require.Error(t, err)
		assert.Equal(t, "Marie", f.auth.CurrentUser().FirstName)
	})
}
