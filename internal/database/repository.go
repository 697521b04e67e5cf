package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// PhotoStore provides access to catalog photos and the dedupe-owned fields
// on them (perceptual hash, trash flag, group membership).
type PhotoStore interface {
	// Get retrieves a photo by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Photo, error)

	// ListMissingHash returns non-hidden photos of the owner whose perceptual
	// hash is absent or empty, ordered by ID.
	ListMissingHash(ctx context.Context, owner string) ([]Photo, error)

	// ListCandidates returns the comparison pool: non-hidden, non-trashed
	// photos of the owner with a fingerprint, ordered by ID. Photos already
	// in a group are excluded unless includeGrouped is true.
	ListCandidates(ctx context.Context, owner string, includeGrouped bool) ([]Photo, error)

	// ListGroupMembers returns all photos currently in the group, ordered by ID.
	ListGroupMembers(ctx context.Context, groupID string) ([]Photo, error)

	// UpdateHash persists a computed fingerprint for one photo.
	UpdateHash(ctx context.Context, photoID, hash string) error

	// AssignGroup links a photo to a group. A photo that already belongs to
	// a different group is left untouched; the bool reports whether the link
	// was made.
	AssignGroup(ctx context.Context, photoID, groupID string) (bool, error)

	// ClearGroup unlinks every member of a group and returns the count.
	ClearGroup(ctx context.Context, groupID string) (int, error)

	// SetTrash flags or unflags the given photos as in-trash and returns the
	// number of photos whose flag actually changed.
	SetTrash(ctx context.Context, photoIDs []string, inTrash bool) (int, error)

	// Upsert inserts or refreshes catalog photos. Dedupe-owned fields
	// (hash, trash flag, group membership) are preserved on conflict.
	Upsert(ctx context.Context, photos []Photo) (int, error)
}

// GroupStore persists duplicate groups.
type GroupStore interface {
	// Create inserts a new group.
	Create(ctx context.Context, group *DuplicateGroup) error

	// Get retrieves a group by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*DuplicateGroup, error)

	// Update persists status and preferred photo changes.
	Update(ctx context.Context, group *DuplicateGroup) error

	// Delete removes the group record. Member unlinking is the caller's job.
	Delete(ctx context.Context, id string) error

	// ListPendingIDs returns IDs of the owner's pending groups.
	ListPendingIDs(ctx context.Context, owner string) ([]string, error)

	// List returns the owner's groups with member counts, newest first,
	// optionally filtered by status. Only groups with at least two members
	// are returned. page is 1-based.
	List(ctx context.Context, owner string, status GroupStatus, page, pageSize int) ([]GroupWithCount, int, error)

	// Stats summarizes duplicate detection state for one owner.
	Stats(ctx context.Context, owner string) (*GroupStats, error)
}

// JobStore persists detection job records.
type JobStore interface {
	// Create inserts a new job record.
	Create(ctx context.Context, job *DetectionJob) error

	// Update persists progress and outcome changes.
	Update(ctx context.Context, job *DetectionJob) error

	// Get retrieves a job by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*DetectionJob, error)
}
