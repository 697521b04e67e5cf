package dedupe

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-dedup/internal/constants"
	"github.com/kozaktomas/photo-dedup/internal/database"
	"github.com/kozaktomas/photo-dedup/internal/fingerprint"
)

// Options configures one detection run.
type Options struct {
	// Threshold is the maximum Hamming distance for two photos to count as
	// duplicates (documented range 1-20, smaller = stricter).
	Threshold int

	// ClearExisting deletes the owner's pending groups before detection,
	// allowing a re-run with different settings.
	ClearExisting bool

	// Progress, when non-nil, receives the clustering progress updates in
	// addition to the job record (e.g. to drive a CLI progress bar).
	Progress ProgressFunc
}

// Result summarizes a finished detection run.
type Result struct {
	JobID            string
	Threshold        int
	PhotosAnalyzed   int
	HashesCalculated int
	GroupsFound      int
	ClearedGroups    int
}

// Detector runs batch duplicate detection for one owner at a time. A run is
// a single sequential pass; the BK-tree and union-find forest are run-local,
// so runs for distinct owners may execute concurrently as independent
// invocations. Serializing at most one active run per owner is the caller's
// responsibility.
type Detector struct {
	photos   database.PhotoStore
	groups   database.GroupStore
	jobs     database.JobStore
	thumbDir string
	hashSize int

	// hashFile computes a fingerprint from a thumbnail file. Swappable in
	// tests.
	hashFile func(path string, hashSize int) (string, error)
}

// NewDetector creates a detector. thumbDir is the base directory against
// which relative thumbnail paths resolve; it may be empty when the catalog
// stores absolute paths.
func NewDetector(photos database.PhotoStore, groups database.GroupStore, jobs database.JobStore, thumbDir string) *Detector {
	return &Detector{
		photos:   photos,
		groups:   groups,
		jobs:     jobs,
		thumbDir: thumbDir,
		hashSize: constants.DefaultHashSize,
		hashFile: fingerprint.ComputeFile,
	}
}

// Run executes a detection run synchronously. The job record is created,
// updated throughout, and marked finished (or failed and finished) before
// Run returns.
func (d *Detector) Run(ctx context.Context, owner string, opts Options) (*Result, error) {
	job, err := d.createJob(ctx, owner, opts)
	if err != nil {
		return nil, err
	}
	return d.run(ctx, job, opts)
}

// Start creates the job record and executes the run in the background,
// returning the job ID immediately for status polling.
func (d *Detector) Start(ctx context.Context, owner string, opts Options) (string, error) {
	job, err := d.createJob(ctx, owner, opts)
	if err != nil {
		return "", err
	}
	go func() {
		// The run outlives the request that started it.
		if _, err := d.run(context.Background(), job, opts); err != nil {
			log.Printf("duplicate detection failed for %s: %v", owner, err)
		}
	}()
	return job.ID, nil
}

func (d *Detector) createJob(ctx context.Context, owner string, opts Options) (*database.DetectionJob, error) {
	now := time.Now().UTC()
	job := &database.DetectionJob{
		ID:           uuid.NewString(),
		Owner:        owner,
		QueuedAt:     now,
		StartedAt:    now,
		ProgressStep: "Initializing...",
		Result: map[string]any{
			"threshold":         opts.Threshold,
			"clear_existing":    opts.ClearExisting,
			"photos_analyzed":   0,
			"hashes_calculated": 0,
			"groups_found":      0,
			"cleared_groups":    0,
		},
	}
	if err := d.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job record: %w", err)
	}
	return job, nil
}

// run executes the detection steps. Per-item failures inside the hash
// backfill are logged, counted, and skipped; any other error marks the whole
// job failed but still finished, so pollers never wait forever.
func (d *Detector) run(ctx context.Context, job *database.DetectionJob, opts Options) (result *Result, err error) {
	defer func() {
		if err != nil {
			d.failJob(job, err)
		}
	}()

	owner := job.Owner

	// Step 1: clear previously-created pending groups if requested.
	cleared := 0
	if opts.ClearExisting {
		job.ProgressStep = "Clearing existing pending groups..."
		d.saveJob(ctx, job)

		cleared, err = d.clearPendingGroups(ctx, owner)
		if err != nil {
			return nil, err
		}
		job.Result["cleared_groups"] = cleared
		d.saveJob(ctx, job)
	}

	// Step 2: backfill fingerprints for photos that lack one.
	hashesCalculated, err := d.backfillHashes(ctx, job, owner)
	if err != nil {
		return nil, err
	}

	// Step 3: collect the comparison pool.
	candidates, err := d.photos.ListCandidates(ctx, owner, opts.ClearExisting)
	if err != nil {
		return nil, fmt.Errorf("listing candidate photos: %w", err)
	}

	result = &Result{
		JobID:            job.ID,
		Threshold:        opts.Threshold,
		HashesCalculated: hashesCalculated,
		ClearedGroups:    cleared,
	}

	// Step 4: nothing to compare.
	if len(candidates) < 2 {
		job.ProgressStep = "Not enough photos to compare"
		d.finishJob(ctx, job)
		return result, nil
	}

	// Step 5: cluster via BK-tree + union-find with coalesced progress.
	result.PhotosAnalyzed = len(candidates)
	job.Result["photos_analyzed"] = len(candidates)
	job.ProgressCurrent = 0
	job.ProgressTarget = len(candidates)
	job.ProgressStep = fmt.Sprintf("Building BK-tree for %d photos...", len(candidates))
	d.saveJob(ctx, job)

	pool := make([]HashedPhoto, len(candidates))
	for i, p := range candidates {
		pool[i] = HashedPhoto{ID: p.ID, Hash: p.PerceptualHash}
	}

	clusters := Cluster(pool, opts.Threshold, func(current, total, duplicatesFound int) {
		job.ProgressCurrent = current
		job.Result["duplicates_found"] = duplicatesFound
		percent := current * 100 / total
		job.ProgressStep = fmt.Sprintf("Comparing photos... %d%% (%d/%d)", percent, current, total)
		d.saveJob(ctx, job)
		if opts.Progress != nil {
			opts.Progress(current, total, duplicatesFound)
		}
	})

	// Step 6: persist one group per cluster and pick the preferred photo.
	groupsCreated, err := d.persistGroups(ctx, owner, clusters)
	if err != nil {
		return nil, err
	}

	// Step 7: done.
	result.GroupsFound = groupsCreated
	job.Result["groups_found"] = groupsCreated
	job.ProgressCurrent = len(candidates)
	job.ProgressStep = fmt.Sprintf("Complete! Found %d duplicate groups", groupsCreated)
	d.finishJob(ctx, job)

	return result, nil
}

// clearPendingGroups unlinks and deletes all pending groups of the owner.
func (d *Detector) clearPendingGroups(ctx context.Context, owner string) (int, error) {
	ids, err := d.groups.ListPendingIDs(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("listing pending groups: %w", err)
	}
	for _, id := range ids {
		if _, err := d.photos.ClearGroup(ctx, id); err != nil {
			return 0, fmt.Errorf("unlinking group %s: %w", id, err)
		}
		if err := d.groups.Delete(ctx, id); err != nil {
			return 0, fmt.Errorf("deleting group %s: %w", id, err)
		}
	}
	return len(ids), nil
}

// backfillHashes computes fingerprints for photos that lack one, from their
// best rendered thumbnail. A missing thumbnail or a failed decode is logged
// and skipped, never fatal. Computed hashes are persisted incrementally.
func (d *Detector) backfillHashes(ctx context.Context, job *database.DetectionJob, owner string) (int, error) {
	missing, err := d.photos.ListMissingHash(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("listing photos without hash: %w", err)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	job.ProgressStep = fmt.Sprintf("Calculating hashes for %d photos...", len(missing))
	job.ProgressCurrent = 0
	job.ProgressTarget = len(missing)
	d.saveJob(ctx, job)

	calculated := 0
	for i, photo := range missing {
		if hash, ok := d.hashPhoto(photo); ok {
			if err := d.photos.UpdateHash(ctx, photo.ID, hash); err != nil {
				return calculated, fmt.Errorf("saving hash for %s: %w", photo.ID, err)
			}
			calculated++
		}

		job.ProgressCurrent = i + 1
		job.Result["hashes_calculated"] = calculated
		if (i+1)%constants.HashSaveInterval == 0 || i+1 == len(missing) {
			d.saveJob(ctx, job)
		}
	}

	return calculated, nil
}

// hashPhoto computes one photo's fingerprint from its thumbnail. Returns
// false when the photo has no thumbnail or hashing failed.
func (d *Detector) hashPhoto(photo database.Photo) (string, bool) {
	if photo.ThumbnailPath == "" {
		return "", false
	}
	path := photo.ThumbnailPath
	if !filepath.IsAbs(path) && d.thumbDir != "" {
		path = filepath.Join(d.thumbDir, path)
	}
	hash, err := d.hashFile(path, d.hashSize)
	if err != nil {
		log.Printf("error calculating hash for %s: %v", photo.ID, err)
		return "", false
	}
	return hash, true
}

// persistGroups creates one duplicate group per cluster, links the members,
// and auto-selects the preferred photo. A member that already belongs to
// another group is skipped rather than stolen; a group left with fewer than
// two linked members is rolled back.
func (d *Detector) persistGroups(ctx context.Context, owner string, clusters [][]string) (int, error) {
	created := 0
	for _, members := range clusters {
		group := &database.DuplicateGroup{
			ID:     uuid.NewString(),
			Owner:  owner,
			Status: database.GroupStatusPending,
		}
		if err := d.groups.Create(ctx, group); err != nil {
			return created, fmt.Errorf("creating group: %w", err)
		}

		linked := 0
		for _, photoID := range members {
			ok, err := d.photos.AssignGroup(ctx, photoID, group.ID)
			if err != nil {
				return created, fmt.Errorf("linking photo %s: %w", photoID, err)
			}
			if ok {
				linked++
			} else {
				log.Printf("photo %s already grouped, skipping for group %s", photoID, group.ID)
			}
		}

		if linked < 2 {
			if _, err := d.photos.ClearGroup(ctx, group.ID); err != nil {
				return created, fmt.Errorf("rolling back group %s: %w", group.ID, err)
			}
			if err := d.groups.Delete(ctx, group.ID); err != nil {
				return created, fmt.Errorf("rolling back group %s: %w", group.ID, err)
			}
			continue
		}

		linkedMembers, err := d.photos.ListGroupMembers(ctx, group.ID)
		if err != nil {
			return created, fmt.Errorf("loading group members: %w", err)
		}
		group.PreferredPhotoID = SelectPreferred(linkedMembers)
		if err := d.groups.Update(ctx, group); err != nil {
			return created, fmt.Errorf("saving preferred photo: %w", err)
		}
		created++
	}
	return created, nil
}

// saveJob persists a progress update. Progress writes are best effort: a
// failed update must not abort the run itself.
func (d *Detector) saveJob(ctx context.Context, job *database.DetectionJob) {
	if err := d.jobs.Update(ctx, job); err != nil {
		log.Printf("error saving job %s progress: %v", job.ID, err)
	}
}

func (d *Detector) finishJob(ctx context.Context, job *database.DetectionJob) {
	job.Finished = true
	job.FinishedAt = time.Now().UTC()
	d.saveJob(ctx, job)
}

// failJob marks the job failed and finished with a truncated error message,
// so status pollers see a terminal state instead of waiting forever.
func (d *Detector) failJob(job *database.DetectionJob, cause error) {
	msg := cause.Error()
	if len(msg) > constants.JobErrorMaxLen {
		msg = msg[:constants.JobErrorMaxLen]
	}
	job.ProgressStep = "Error: " + msg
	job.Failed = true
	job.Finished = true
	job.FinishedAt = time.Now().UTC()
	// The run's context may already be the failure cause; fall back to a
	// fresh one so the terminal state still lands.
	d.saveJob(context.Background(), job)
}
