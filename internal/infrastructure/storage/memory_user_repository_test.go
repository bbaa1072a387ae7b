package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"plant-monitor/internal/domain/entity"
)

func TestMemoryUserRepository_Subscribed(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	_, err := repo.Get(ctx, 2, 20)
	require.NoError(t, err)
	_, err = repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	_, err = repo.Get(ctx, 3, 30)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateState(ctx, 2, entity.StateSubscribed))
	require.NoError(t, repo.UpdateState(ctx, 1, entity.StateSubscribed))

	subs, err := repo.Subscribed(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, int64(1), subs[0].ID)
	require.Equal(t, int64(2), subs[1].ID)
}
