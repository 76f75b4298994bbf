package mockapi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vedran77/geev/internal/repository"
	"github.com/vedran77/geev/internal/repository/memory"
)

const testSecret = "test-secret"

func newStore(t *testing.T) *repository.Store {
	t.Helper()
	store, err := memory.NewDefault()
	require.NoError(t, err)
	return store
}

func ptr[T any](v T) *T { return &v }
