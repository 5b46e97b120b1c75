package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/inkmatch/pkg/models"
)

const sampleYAML = `
artists:
  - id: a2
    name: Jo Park
    city: Denver
    styles: [Blackwork]
    hourly_rate: 90
    available: true
  - id: a1
    name: Mika Tanaka
    city: Austin
    styles: [Anime, Traditional]
    tags: [dragon]
    latitude: 30.26
    longitude: -97.74
    available: true
`

func TestParseYAML(t *testing.T) {
	c, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)

	artists, err := c.ListArtists(context.Background())
	require.NoError(t, err)
	require.Len(t, artists, 2)

	assert.Equal(t, "a1", artists[0].ID)
	assert.Equal(t, []string{"Anime", "Traditional"}, artists[0].Styles)
	require.True(t, artists[0].HasCoordinates())
	assert.Equal(t, 30.26, *artists[0].Latitude)
	assert.Equal(t, 90.0, artists[1].HourlyRate)
}

func TestParseYAML_Errors(t *testing.T) {
	_, err := ParseYAML([]byte("artists:\n  - name: no id\n"))
	assert.Error(t, err)

	_, err = ParseYAML([]byte("artists: [::"))
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	c, err := LoadYAML(path)
	require.NoError(t, err)
	artists, err := c.ListArtists(context.Background())
	require.NoError(t, err)
	assert.Len(t, artists, 2)

	_, err = LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStatic_ReturnsCopy(t *testing.T) {
	c := NewStatic([]models.Artist{{ID: "a1", Name: "Mika"}})

	first, err := c.ListArtists(context.Background())
	require.NoError(t, err)
	first[0].Name = "changed"

	second, err := c.ListArtists(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Mika", second[0].Name)
}

func TestStatic_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStatic(nil).ListArtists(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLite_PutAndList(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	lat, lng := 30.26, -97.74
	mika := models.Artist{
		ID:         "a1",
		Name:       "Mika Tanaka",
		City:       "Austin",
		Contact:    "@mika",
		Styles:     []string{"Anime"},
		Tags:       []string{"dragon"},
		Portfolio:  []string{"1.jpg"},
		Latitude:   &lat,
		Longitude:  &lng,
		HourlyRate: 150,
		Available:  true,
	}
	require.NoError(t, db.Put(ctx, mika))
	require.NoError(t, db.Put(ctx, models.Artist{ID: "a2", Name: "Away", Available: false}))
	require.NoError(t, db.Put(ctx, models.Artist{ID: "a0", Name: "Jo", Available: true}))

	artists, err := db.ListArtists(ctx)
	require.NoError(t, err)
	require.Len(t, artists, 2)

	assert.Equal(t, "a0", artists[0].ID)
	assert.Nil(t, artists[0].Styles)
	assert.False(t, artists[0].HasCoordinates())
	assert.Equal(t, mika, artists[1])

	mika.Name = "Mika T."
	require.NoError(t, db.Put(ctx, mika))
	artists, err = db.ListArtists(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Mika T.", artists[1].Name)
}
