package vectorindex

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docqa/internal/platform/database"
)

type index interface {
	Insert(ctx context.Context, handle string, records []Record) error
	Upsert(ctx context.Context, handle string, records []Record) error
	Query(ctx context.Context, handle string, vector []float32, k int) ([]Match, error)
	Count(ctx context.Context, handle string) (int, error)
}

func backends(t *testing.T) map[string]index {
	t.Helper()
	db, err := database.NewTestDB(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return map[string]index{
		"memory": NewMemory(),
		"sql":    NewSQL(db),
	}
}

func sampleRecords(handle string) []Record {
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0.9, 0.1, 0}}
	records := make([]Record, len(vectors))
	for i, v := range vectors {
		records[i] = Record{
			ID:       fmt.Sprintf("%s:%d", handle, i),
			Vector:   v,
			Text:     fmt.Sprintf("chunk %d", i),
			Metadata: Metadata{DocumentID: "doc-" + handle, ChunkIndex: i},
		}
	}
	return records
}

func TestIndexBackends(t *testing.T) {
	for name, idx := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			records := sampleRecords("h1")

			require.NoError(t, idx.Insert(ctx, "h1", records))
			assert.ErrorIs(t, idx.Insert(ctx, "h1", records[:1]), ErrChunksExist)

			require.NoError(t, idx.Upsert(ctx, "h1", records))
			count, err := idx.Count(ctx, "h1")
			require.NoError(t, err)
			assert.Equal(t, 3, count)

			matches, err := idx.Query(ctx, "h1", []float32{1, 0, 0}, 2)
			require.NoError(t, err)
			require.Len(t, matches, 2)
			assert.Equal(t, "h1:0", matches[0].ID)
			assert.Equal(t, "h1:2", matches[1].ID)
			assert.InDelta(t, 0, matches[0].Distance, 1e-6)
			assert.Equal(t, "doc-h1", matches[0].Metadata.DocumentID)

			other, err := idx.Query(ctx, "unknown", []float32{1, 0, 0}, 3)
			require.NoError(t, err)
			assert.Empty(t, other)

			none, err := idx.Query(ctx, "h1", []float32{1, 0, 0}, 0)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestUpsertOverwritesText(t *testing.T) {
	for name, idx := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			records := sampleRecords("h2")
			require.NoError(t, idx.Insert(ctx, "h2", records))

			records[1].Text = "rewritten"
			require.NoError(t, idx.Upsert(ctx, "h2", records))

			matches, err := idx.Query(ctx, "h2", []float32{0, 1, 0}, 1)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, "rewritten", matches[0].Text)

			count, err := idx.Count(ctx, "h2")
			require.NoError(t, err)
			assert.Equal(t, 3, count)
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}
