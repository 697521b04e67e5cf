// Package mariadb reads photo metadata from a PhotoPrism-compatible MariaDB
// catalog. Access is read only; the dedupe engine never writes to the catalog.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/photo-dedup/internal/config"
	"github.com/kozaktomas/photo-dedup/internal/database"
)

// Catalog is a read-only connection to the photo catalog.
type Catalog struct {
	db *sql.DB
}

// Open connects to the catalog database. The catalog is only touched during
// sync runs, so idle connections are released quickly.
func Open(cfg *config.CatalogConfig) (*Catalog, error) {
	if cfg.DSN == "" {
		return nil, errors.New("catalog DSN is required")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging catalog database: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the catalog connection.
func (c *Catalog) Close() error {
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			return fmt.Errorf("closing catalog connection: %w", err)
		}
	}
	return nil
}

// ListPhotos returns all non-deleted photos of the owner with their primary
// file's dimensions and thumbnail path. Photos without a primary file are
// skipped.
func (c *Catalog) ListPhotos(ctx context.Context, owner string) ([]database.Photo, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT p.photo_uid, f.file_name, f.file_width, f.file_height, f.file_size,
			p.photo_private
		FROM photos p
		JOIN files f ON f.photo_id = p.id AND f.file_primary = 1
		WHERE p.created_by = ? AND p.deleted_at IS NULL
		ORDER BY p.photo_uid`, owner)
	if err != nil {
		return nil, fmt.Errorf("querying catalog photos: %w", err)
	}
	defer rows.Close()

	var photos []database.Photo
	for rows.Next() {
		var p database.Photo
		var fileName sql.NullString
		var width, height sql.NullInt64
		var size sql.NullInt64
		var private bool
		if err := rows.Scan(&p.ID, &fileName, &width, &height, &size, &private); err != nil {
			return nil, fmt.Errorf("scanning catalog photo: %w", err)
		}
		p.Owner = owner
		p.ThumbnailPath = fileName.String
		p.Width = int(width.Int64)
		p.Height = int(height.Int64)
		p.Size = size.Int64
		p.Hidden = private
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating catalog photos: %w", err)
	}
	return photos, nil
}

// CountPhotos returns the number of non-deleted photos of the owner.
func (c *Catalog) CountPhotos(ctx context.Context, owner string) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM photos
		WHERE created_by = ? AND deleted_at IS NULL`, owner).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting catalog photos: %w", err)
	}
	return count, nil
}
