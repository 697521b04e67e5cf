package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/photo-dedup/internal/database"
)

// GroupStore implements database.GroupStore on PostgreSQL.
type GroupStore struct {
	pool *Pool
}

// NewGroupStore creates a group store backed by the pool.
func NewGroupStore(pool *Pool) *GroupStore {
	return &GroupStore{pool: pool}
}

// Create inserts a new group.
func (s *GroupStore) Create(ctx context.Context, group *database.DuplicateGroup) error {
	if group.Status == "" {
		group.Status = database.GroupStatusPending
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO duplicate_groups (id, owner, status, preferred_photo_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		group.ID, group.Owner, group.Status, group.PreferredPhotoID)
	if err := row.Scan(&group.CreatedAt, &group.UpdatedAt); err != nil {
		return fmt.Errorf("creating group: %w", err)
	}
	return nil
}

// Get retrieves a group by ID.
func (s *GroupStore) Get(ctx context.Context, id string) (*database.DuplicateGroup, error) {
	var g database.DuplicateGroup
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner, status, preferred_photo_id, created_at, updated_at
		FROM duplicate_groups WHERE id = $1`, id)
	err := row.Scan(&g.ID, &g.Owner, &g.Status, &g.PreferredPhotoID, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting group %s: %w", id, err)
	}
	return &g, nil
}

// Update persists status and preferred photo changes.
func (s *GroupStore) Update(ctx context.Context, group *database.DuplicateGroup) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE duplicate_groups
		SET status = $1, preferred_photo_id = $2, updated_at = NOW()
		WHERE id = $3`,
		group.Status, group.PreferredPhotoID, group.ID)
	if err != nil {
		return fmt.Errorf("updating group %s: %w", group.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking group update: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Delete removes the group record. Member unlinking is the caller's job;
// the photo FK falls back to NULL either way.
func (s *GroupStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM duplicate_groups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting group %s: %w", id, err)
	}
	return nil
}

// ListPendingIDs returns IDs of the owner's pending groups.
func (s *GroupStore) ListPendingIDs(ctx context.Context, owner string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM duplicate_groups
		WHERE owner = $1 AND status = $2
		ORDER BY id`, owner, database.GroupStatusPending)
	if err != nil {
		return nil, fmt.Errorf("listing pending groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending groups: %w", err)
	}
	return ids, nil
}

// List returns the owner's groups with member counts, newest first. Groups
// with fewer than two members are hidden from listings.
func (s *GroupStore) List(ctx context.Context, owner string, status database.GroupStatus, page, pageSize int) ([]database.GroupWithCount, int, error) {
	if page < 1 {
		page = 1
	}

	where := `g.owner = $1`
	args := []any{owner}
	if status != "" {
		where += ` AND g.status = $2`
		args = append(args, status)
	}

	countQuery := `
		SELECT COUNT(*) FROM duplicate_groups g
		WHERE ` + where + ` AND
			(SELECT COUNT(*) FROM photos p WHERE p.duplicate_group_id = g.id) >= 2`
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting groups: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT g.id, g.owner, g.status, g.preferred_photo_id, g.created_at, g.updated_at,
			(SELECT COUNT(*) FROM photos p WHERE p.duplicate_group_id = g.id) AS photo_count
		FROM duplicate_groups g
		WHERE %s AND
			(SELECT COUNT(*) FROM photos p WHERE p.duplicate_group_id = g.id) >= 2
		ORDER BY g.created_at DESC, g.id
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	var groups []database.GroupWithCount
	for rows.Next() {
		var g database.GroupWithCount
		if err := rows.Scan(&g.ID, &g.Owner, &g.Status, &g.PreferredPhotoID,
			&g.CreatedAt, &g.UpdatedAt, &g.PhotoCount); err != nil {
			return nil, 0, fmt.Errorf("scanning group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating groups: %w", err)
	}
	return groups, total, nil
}

// Stats summarizes duplicate detection state for one owner.
func (s *GroupStore) Stats(ctx context.Context, owner string) (*database.GroupStats, error) {
	stats := &database.GroupStats{}

	row := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3)
		FROM duplicate_groups WHERE owner = $1`,
		owner, database.GroupStatusPending, database.GroupStatusReviewed)
	if err := row.Scan(&stats.TotalGroups, &stats.PendingGroups, &stats.ReviewedGroups); err != nil {
		return nil, fmt.Errorf("counting groups: %w", err)
	}

	row = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE perceptual_hash <> ''),
			COUNT(*) FILTER (WHERE duplicate_group_id IS NOT NULL)
		FROM photos WHERE owner = $1`, owner)
	if err := row.Scan(&stats.TotalPhotos, &stats.PhotosWithHash, &stats.PhotosInGroups); err != nil {
		return nil, fmt.Errorf("counting photos: %w", err)
	}

	return stats, nil
}

var _ database.GroupStore = (*GroupStore)(nil)
