package database

import (
	"time"
)

// GroupStatus is the review state of a duplicate group.
type GroupStatus string

const (
	// GroupStatusPending means the group awaits user review.
	GroupStatusPending GroupStatus = "pending"
	// GroupStatusReviewed means the user kept one photo; revertible.
	GroupStatusReviewed GroupStatus = "reviewed"
	// GroupStatusDismissed means the user marked the group as not duplicates.
	GroupStatusDismissed GroupStatus = "dismissed"
)

// Photo is a catalog photo referenced by the dedupe engine. The engine never
// creates or deletes photos; it only updates the perceptual hash, the trash
// flag, and the group membership.
type Photo struct {
	ID             string
	Owner          string
	PerceptualHash string // hex fingerprint, empty when not yet computed
	ThumbnailPath  string // best rendered thumbnail, source for hash backfill
	Width          int
	Height         int
	Size           int64
	Hidden         bool
	InTrash        bool
	GroupID        string // owning duplicate group, empty when ungrouped
}

// DuplicateGroup is a persisted cluster of photos deemed near-duplicates.
type DuplicateGroup struct {
	ID               string
	Owner            string
	Status           GroupStatus
	PreferredPhotoID string // empty until auto-selected or resolved
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// GroupWithCount pairs a group with its member count for listings.
type GroupWithCount struct {
	DuplicateGroup
	PhotoCount int
}

// GroupStats summarizes duplicate detection state for one owner.
type GroupStats struct {
	TotalGroups    int
	PendingGroups  int
	ReviewedGroups int
	PhotosInGroups int
	PhotosWithHash int
	TotalPhotos    int
}

// DetectionJob tracks the progress and outcome of one batch detection run.
// A failed job is still marked finished so pollers never block indefinitely.
type DetectionJob struct {
	ID              string
	Owner           string
	ProgressCurrent int
	ProgressTarget  int
	ProgressStep    string
	Result          map[string]any
	Finished        bool
	Failed          bool
	QueuedAt        time.Time
	StartedAt       time.Time
	FinishedAt      time.Time
}
