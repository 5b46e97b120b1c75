package gorm

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB, embeddingDims int) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations(embeddingDims))
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func migrations(embeddingDims int) []*gormigrate.Migration {
	return []*gormigrate.Migration{
		// Migration 001: pgvector extension
		{
			ID: "001_vector_extension",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error
			},
			Rollback: func(tx *gorm.DB) error {
				return nil
			},
		},

		// Migration 002: Artist profiles
		{
			ID: "002_artists",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&ArtistRecord{}); err != nil {
					return err
				}
				return tx.Exec(fmt.Sprintf(
					"ALTER TABLE artists ADD COLUMN IF NOT EXISTS embedding vector(%d)", embeddingDims,
				)).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("artists")
			},
		},

		// Migration 003: HNSW index for cosine distance
		{
			ID: "003_artists_embedding_hnsw",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(
					"CREATE INDEX IF NOT EXISTS idx_artists_embedding ON artists USING hnsw (embedding vector_cosine_ops)",
				).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP INDEX IF EXISTS idx_artists_embedding").Error
			},
		},

		// Migration 004: GIN index for style filters
		{
			ID: "004_artists_styles_gin",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec("CREATE INDEX IF NOT EXISTS idx_artists_styles ON artists USING gin (styles)").Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP INDEX IF EXISTS idx_artists_styles").Error
			},
		},
	}
}
