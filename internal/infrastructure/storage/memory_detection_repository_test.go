package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lpr-gate/internal/domain/entity"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestMemoryDetectionRepository_ExistsInclusiveRange(t *testing.T) {
	repo := NewMemoryDetectionRepository()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, entity.NewDetectionRecord("ABC1234", t0)))

	ok, err := repo.Exists(ctx, "ABC1234", t0, t0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Exists(ctx, "ABC1234", t0.Add(time.Nanosecond), t0.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.Exists(ctx, "ABC1234", t0.Add(-time.Minute), t0.Add(-time.Nanosecond))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.Exists(ctx, "XYZ1234", t0.Add(-time.Hour), t0.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryDetectionRepository_RecentNewestFirst(t *testing.T) {
	repo := NewMemoryDetectionRepository()
	ctx := context.Background()
	for i, p := range []string{"AAA1111", "BBB2222", "CCC3333"} {
		require.NoError(t, repo.Insert(ctx, entity.NewDetectionRecord(p, t0.Add(time.Duration(i)*time.Minute))))
	}

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "CCC3333", recent[0].Plate)
	require.Equal(t, "BBB2222", recent[1].Plate)

	all, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestMemoryDetectionRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryDetectionRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Exists(ctx, "ABC1234", t0, t0)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, repo.Insert(ctx, entity.NewDetectionRecord("ABC1234", t0)), context.Canceled)
	require.Zero(t, repo.Count())
}
