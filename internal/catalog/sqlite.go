package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/thebtf/inkmatch/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS artists (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	city        TEXT NOT NULL DEFAULT '',
	contact     TEXT NOT NULL DEFAULT '',
	styles      TEXT,
	tags        TEXT,
	portfolio   TEXT,
	latitude    REAL,
	longitude   REAL,
	hourly_rate REAL NOT NULL DEFAULT 0,
	available   INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_artists_city ON artists(city);`

// SQLite is a catalog stored in a local SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a catalog database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping catalog database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}

	log.Debug().Str("path", path).Msg("Catalog database opened")
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Put inserts or replaces an artist.
func (s *SQLite) Put(ctx context.Context, a models.Artist) error {
	const q = `INSERT OR REPLACE INTO artists
		(id, name, city, contact, styles, tags, portfolio, latitude, longitude, hourly_rate, available)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		a.ID, a.Name, a.City, a.Contact,
		models.StringArray(a.Styles), models.StringArray(a.Tags), models.StringArray(a.Portfolio),
		a.Latitude, a.Longitude, a.HourlyRate, a.Available,
	)
	if err != nil {
		return fmt.Errorf("put artist %s: %w", a.ID, err)
	}
	return nil
}

// ListArtists returns available artists ordered by id.
func (s *SQLite) ListArtists(ctx context.Context) ([]models.Artist, error) {
	const q = `SELECT id, name, city, contact, styles, tags, portfolio,
		latitude, longitude, hourly_rate, available
		FROM artists WHERE available = 1 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	defer rows.Close()

	var artists []models.Artist
	for rows.Next() {
		var (
			a                       models.Artist
			styles, tags, portfolio models.StringArray
			lat, lng                sql.NullFloat64
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.City, &a.Contact,
			&styles, &tags, &portfolio, &lat, &lng, &a.HourlyRate, &a.Available); err != nil {
			return nil, fmt.Errorf("scan artist: %w", err)
		}
		a.Styles, a.Tags, a.Portfolio = styles, tags, portfolio
		if lat.Valid && lng.Valid {
			a.Latitude, a.Longitude = &lat.Float64, &lng.Float64
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}
