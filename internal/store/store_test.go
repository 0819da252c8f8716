package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "acme/web", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, Summary{Repo: "acme/web", RunID: 1, Workflow: "QA US - Smoke", Text: "first"}))
	require.NoError(t, s.Save(ctx, Summary{Repo: "acme/web", RunID: 1, Workflow: "QA US - Smoke", Text: "second"}))

	got, err := s.Get(ctx, "acme/web", 1)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Text)
	assert.False(t, got.CreatedAt.IsZero(), "CreatedAt should default to now")

	_, err = s.Get(ctx, "acme/api", 1)
	assert.ErrorIs(t, err, ErrNotFound, "repos are isolated")
}

func TestMemoryStore_ListSince(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := NewMemoryStore()

	for i, offset := range []time.Duration{0, time.Hour, 2 * time.Hour, 3 * time.Hour} {
		require.NoError(t, s.Save(ctx, Summary{
			Repo:      "acme/web",
			RunID:     int64(100 + i),
			Text:      "failure",
			CreatedAt: base.Add(offset),
		}))
	}
	require.NoError(t, s.Save(ctx, Summary{Repo: "acme/api", RunID: 1, CreatedAt: base.Add(3 * time.Hour)}))

	got, err := s.ListSince(ctx, "acme/web", base.Add(time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{103, 102, 101}, runIDs(got))

	limited, err := s.ListSince(ctx, "acme/web", base, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{103, 102}, runIDs(limited))
}

func runIDs(summaries []Summary) []int64 {
	ids := make([]int64, len(summaries))
	for i, s := range summaries {
		ids[i] = s.RunID
	}
	return ids
}
