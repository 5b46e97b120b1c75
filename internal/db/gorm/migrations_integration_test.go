package gorm

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/thebtf/inkmatch/internal/vector/pgvector"
	"github.com/thebtf/inkmatch/pkg/models"
)

// TestStoreIntegration runs migrations, upserts artists and searches them
// through the pgvector client. Requires DATABASE_DSN.
func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		t.Skip("DATABASE_DSN not set, skipping integration test")
	}

	const dims = 4
	store, err := NewStore(Config{DSN: dsn, MaxConns: 2, EmbeddingDims: dims, LogLevel: logger.Warn})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.DB.Exec("DELETE FROM artists WHERE id IN ('it-mika','it-jo')").Error)

	mika := models.Artist{ID: "it-mika", Name: "Mika", City: "Austin", Styles: []string{"Anime"}, Available: true}
	jo := models.Artist{ID: "it-jo", Name: "Jo", City: "Denver", Styles: []string{"Blackwork"}, Available: true}
	require.NoError(t, store.UpsertArtist(ctx, mika, []float32{1, 0, 0, 0}))
	require.NoError(t, store.UpsertArtist(ctx, jo, []float32{0, 1, 0, 0}))

	// Upsert without an embedding keeps the stored vector.
	mika.HourlyRate = 150
	require.NoError(t, store.UpsertArtist(ctx, mika, nil))

	assert.Error(t, store.UpsertArtist(ctx, jo, []float32{1, 2}))

	got, err := store.GetArtistsByIDs(ctx, []string{"it-mika"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 150.0, got[0].HourlyRate)
	assert.Equal(t, []string{"Anime"}, got[0].Styles)

	vc, err := pgvector.NewClient(pgvector.Config{DB: store.DB, Dims: store.EmbeddingDims()})
	require.NoError(t, err)
	hits, err := vc.SearchSimilar(ctx, []float32{0.9, 0.1, 0, 0}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "it-mika", hits[0].ID)
	assert.Greater(t, hits[0].Score, 0.9)

	var actual int
	row := store.DB.Raw("SELECT atttypmod FROM pg_attribute WHERE attrelid = 'artists'::regclass AND attname = 'embedding' AND atttypmod > 0").Row()
	require.NoError(t, row.Scan(&actual))
	assert.Equal(t, dims, actual)
}
