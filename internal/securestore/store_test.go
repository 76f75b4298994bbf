package securestore

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

// exercise runs the behaviour every backend shares.
func exercise(t *testing.T, s Store) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, TokenKey, "token-1"))
	require.NoError(t, s.Set(ctx, UserKey, `{"id":"1"}`))

	v, ok, err := s.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "token-1", v)

	require.NoError(t, s.Set(ctx, TokenKey, "token-2"))
	v, _, err = s.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "token-2", v)

	require.NoError(t, s.Delete(ctx, TokenKey))
	require.NoError(t, s.Delete(ctx, TokenKey))
	_, ok, err = s.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err = s.Get(ctx, UserKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"1"}`, v)

	require.NoError(t, s.Delete(ctx, UserKey))
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	sealer, err := NewAESSealer(testKey(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "secure.db")
	s, err := OpenSQLite(ctx, path, sealer)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	exercise(t, s)

	t.Run("values are encrypted at rest", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, TokenKey, "plain-token"))

		var raw []byte
		require.NoError(t, s.db.QueryRowContext(ctx,
			`SELECT value FROM secure_values WHERE key = ?`, TokenKey).Scan(&raw))
		assert.NotContains(t, string(raw), "plain-token")
	})

	t.Run("rows cannot be swapped", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, TokenKey, "the-token"))
		require.NoError(t, s.Set(ctx, UserKey, `{"id":"1"}`))

		_, err := s.db.ExecContext(ctx,
			`UPDATE secure_values SET value = (SELECT value FROM secure_values WHERE key = ?) WHERE key = ?`,
			TokenKey, UserKey)
		require.NoError(t, err)

		_, _, err = s.Get(ctx, UserKey)
		assert.Error(t, err)
		v, ok, err := s.Get(ctx, TokenKey)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "the-token", v)
	})

	t.Run("survives reopen", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, UserKey, "kept"))
		require.NoError(t, s.Close())

		reopened, err := OpenSQLite(ctx, path, sealer)
		require.NoError(t, err)
		defer reopened.Close()

		v, ok, err := reopened.Get(ctx, UserKey)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "kept", v)
	})
}

func TestRedis(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	s, err := OpenRedis(context.Background(), url)
	require.NoError(t, err)
	defer s.Close()

	exercise(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	require.NoError(t, closeFn())

	_, _, err = Open(ctx, Options{Backend: BackendSQLite, Path: filepath.Join(t.TempDir(), "s.db")})
	assert.Error(t, err)

	s, closeFn, err = Open(ctx, Options{
		Backend: BackendSQLite,
		Path:    filepath.Join(t.TempDir(), "s.db"),
		Key:     testKey(t),
	})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, closeFn())

	_, _, err = Open(ctx, Options{Backend: "keychain"})
	assert.Error(t, err)
}

func TestAESSealer(t *testing.T) {
	sealer, err := NewAESSealer(testKey(t))
	require.NoError(t, err)

	sealed, err := sealer.Seal(TokenKey, []byte("secret"))
	require.NoError(t, err)

	plain, err := sealer.Open(TokenKey, sealed)
	require.NoError(t, err)
	assert.Equal(t, "secret", string(plain))

	_, err = sealer.Open(UserKey, sealed)
	assert.Error(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = sealer.Open(TokenKey, sealed)
	assert.Error(t, err)

	_, err = sealer.Open(TokenKey, []byte("x"))
	assert.ErrorIs(t, err, ErrSealedTooShort)

	_, err = NewAESSealer("")
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = NewAESSealer(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrKeySize)
}
