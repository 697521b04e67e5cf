package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/kozaktomas/photo-dedup/internal/database"
)

// PhotoStore implements database.PhotoStore on PostgreSQL.
type PhotoStore struct {
	pool *Pool
}

// NewPhotoStore creates a photo store backed by the pool.
func NewPhotoStore(pool *Pool) *PhotoStore {
	return &PhotoStore{pool: pool}
}

const photoColumns = `id, owner, perceptual_hash, thumbnail_path, width, height, size, hidden, in_trash, COALESCE(duplicate_group_id::text, '')`

func scanPhoto(row interface{ Scan(...any) error }) (*database.Photo, error) {
	var p database.Photo
	err := row.Scan(&p.ID, &p.Owner, &p.PerceptualHash, &p.ThumbnailPath,
		&p.Width, &p.Height, &p.Size, &p.Hidden, &p.InTrash, &p.GroupID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get retrieves a photo by ID.
func (s *PhotoStore) Get(ctx context.Context, id string) (*database.Photo, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id)
	p, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting photo %s: %w", id, err)
	}
	return p, nil
}

// ListMissingHash returns non-hidden photos of the owner without a fingerprint.
func (s *PhotoStore) ListMissingHash(ctx context.Context, owner string) ([]database.Photo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+photoColumns+`
		FROM photos
		WHERE owner = $1 AND NOT hidden AND perceptual_hash = ''
		ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("listing photos without hash: %w", err)
	}
	return collectPhotos(rows)
}

// ListCandidates returns the comparison pool for an owner.
func (s *PhotoStore) ListCandidates(ctx context.Context, owner string, includeGrouped bool) ([]database.Photo, error) {
	query := `
		SELECT ` + photoColumns + `
		FROM photos
		WHERE owner = $1 AND NOT hidden AND NOT in_trash AND perceptual_hash <> ''`
	if !includeGrouped {
		query += ` AND duplicate_group_id IS NULL`
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("listing candidate photos: %w", err)
	}
	return collectPhotos(rows)
}

// ListGroupMembers returns all photos currently in the group.
func (s *PhotoStore) ListGroupMembers(ctx context.Context, groupID string) ([]database.Photo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+photoColumns+`
		FROM photos
		WHERE duplicate_group_id = $1
		ORDER BY id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing group members: %w", err)
	}
	return collectPhotos(rows)
}

func collectPhotos(rows *sql.Rows) ([]database.Photo, error) {
	defer rows.Close()
	var photos []database.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning photo: %w", err)
		}
		photos = append(photos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating photos: %w", err)
	}
	return photos, nil
}

// UpdateHash persists a computed fingerprint for one photo.
func (s *PhotoStore) UpdateHash(ctx context.Context, photoID, hash string) error {
	result, err := s.pool.Exec(ctx, `UPDATE photos SET perceptual_hash = $1 WHERE id = $2`, hash, photoID)
	if err != nil {
		return fmt.Errorf("updating hash for %s: %w", photoID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking hash update: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// AssignGroup links a photo to a group unless it already belongs to another.
func (s *PhotoStore) AssignGroup(ctx context.Context, photoID, groupID string) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		UPDATE photos SET duplicate_group_id = $1
		WHERE id = $2 AND (duplicate_group_id IS NULL OR duplicate_group_id = $1)`,
		groupID, photoID)
	if err != nil {
		return false, fmt.Errorf("assigning photo %s to group: %w", photoID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking group assignment: %w", err)
	}
	return affected > 0, nil
}

// ClearGroup unlinks every member of a group and returns the count.
func (s *PhotoStore) ClearGroup(ctx context.Context, groupID string) (int, error) {
	result, err := s.pool.Exec(ctx, `UPDATE photos SET duplicate_group_id = NULL WHERE duplicate_group_id = $1`, groupID)
	if err != nil {
		return 0, fmt.Errorf("clearing group %s: %w", groupID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking group clear: %w", err)
	}
	return int(affected), nil
}

// SetTrash flags or unflags photos as in-trash and returns the number changed.
func (s *PhotoStore) SetTrash(ctx context.Context, photoIDs []string, inTrash bool) (int, error) {
	if len(photoIDs) == 0 {
		return 0, nil
	}
	result, err := s.pool.Exec(ctx, `
		UPDATE photos SET in_trash = $1
		WHERE id = ANY($2) AND in_trash <> $1`,
		inTrash, pq.Array(photoIDs))
	if err != nil {
		return 0, fmt.Errorf("setting trash flag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking trash update: %w", err)
	}
	return int(affected), nil
}

// Upsert inserts or refreshes catalog photos. Hash, trash flag, and group
// membership survive a refresh since the catalog does not own them.
func (s *PhotoStore) Upsert(ctx context.Context, photos []database.Photo) (int, error) {
	if len(photos) == 0 {
		return 0, nil
	}

	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var placeholders []string
	var args []any
	for i, p := range photos {
		base := i * 8
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		args = append(args, p.ID, p.Owner, p.PerceptualHash, p.ThumbnailPath, p.Width, p.Height, p.Size, p.Hidden)
	}

	query := `
		INSERT INTO photos (id, owner, perceptual_hash, thumbnail_path, width, height, size, hidden)
		VALUES ` + strings.Join(placeholders, ", ") + `
		ON CONFLICT (id) DO UPDATE SET
			owner = EXCLUDED.owner,
			thumbnail_path = EXCLUDED.thumbnail_path,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			size = EXCLUDED.size,
			hidden = EXCLUDED.hidden`

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("upserting photos: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing upsert: %w", err)
	}
	return len(photos), nil
}

var _ database.PhotoStore = (*PhotoStore)(nil)
