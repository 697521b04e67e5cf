//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/photo-dedup/internal/config"
	"github.com/kozaktomas/photo-dedup/internal/database"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	// Run migrations
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	versions, err := pool.MigrationsApplied(ctx)
	if err != nil || len(versions) == 0 {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Expected applied migrations, got %v (err: %v)", versions, err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestPhotoStore(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	photos := NewPhotoStore(pool)
	groups := NewGroupStore(pool)

	seed := []database.Photo{
		{ID: "p1", Owner: "alice", ThumbnailPath: "thumbs/p1.jpg", Width: 1920, Height: 1080, Size: 1000},
		{ID: "p2", Owner: "alice", ThumbnailPath: "thumbs/p2.jpg", Width: 800, Height: 600, Size: 500},
		{ID: "p3", Owner: "alice", ThumbnailPath: "thumbs/p3.jpg", Width: 800, Height: 600, Size: 500, Hidden: true},
		{ID: "p4", Owner: "bob", ThumbnailPath: "thumbs/p4.jpg", Width: 640, Height: 480, Size: 200},
	}
	if _, err := photos.Upsert(ctx, seed); err != nil {
		t.Fatalf("Failed to upsert photos: %v", err)
	}

	t.Run("GetAndNotFound", func(t *testing.T) {
		got, err := photos.Get(ctx, "p1")
		if err != nil {
			t.Fatalf("Failed to get photo: %v", err)
		}
		if got.Owner != "alice" || got.Width != 1920 {
			t.Errorf("Unexpected photo: %+v", got)
		}

		if _, err := photos.Get(ctx, "missing"); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListMissingHash", func(t *testing.T) {
		missing, err := photos.ListMissingHash(ctx, "alice")
		if err != nil {
			t.Fatalf("Failed to list missing hashes: %v", err)
		}
		// p3 is hidden, p4 belongs to bob
		if len(missing) != 2 {
			t.Fatalf("Expected 2 photos without hash, got %d", len(missing))
		}
		if missing[0].ID != "p1" || missing[1].ID != "p2" {
			t.Errorf("Expected [p1 p2], got [%s %s]", missing[0].ID, missing[1].ID)
		}
	})

	t.Run("UpdateHashAndCandidates", func(t *testing.T) {
		if err := photos.UpdateHash(ctx, "p1", "d5a9e1c3b7f20486"); err != nil {
			t.Fatalf("Failed to update hash: %v", err)
		}
		if err := photos.UpdateHash(ctx, "p2", "d5a9e1c3b7f20487"); err != nil {
			t.Fatalf("Failed to update hash: %v", err)
		}

		candidates, err := photos.ListCandidates(ctx, "alice", false)
		if err != nil {
			t.Fatalf("Failed to list candidates: %v", err)
		}
		if len(candidates) != 2 {
			t.Fatalf("Expected 2 candidates, got %d", len(candidates))
		}

		if err := photos.UpdateHash(ctx, "missing", "abcd"); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GroupAssignment", func(t *testing.T) {
		group := &database.DuplicateGroup{ID: uuid.NewString(), Owner: "alice"}
		if err := groups.Create(ctx, group); err != nil {
			t.Fatalf("Failed to create group: %v", err)
		}

		ok, err := photos.AssignGroup(ctx, "p1", group.ID)
		if err != nil || !ok {
			t.Fatalf("Expected assignment to succeed, ok=%v err=%v", ok, err)
		}
		ok, err = photos.AssignGroup(ctx, "p2", group.ID)
		if err != nil || !ok {
			t.Fatalf("Expected assignment to succeed, ok=%v err=%v", ok, err)
		}

		// A photo in one group must not be stolen by another.
		other := &database.DuplicateGroup{ID: uuid.NewString(), Owner: "alice"}
		if err := groups.Create(ctx, other); err != nil {
			t.Fatalf("Failed to create group: %v", err)
		}
		ok, err = photos.AssignGroup(ctx, "p1", other.ID)
		if err != nil {
			t.Fatalf("AssignGroup failed: %v", err)
		}
		if ok {
			t.Error("Expected assignment to an already-grouped photo to be refused")
		}

		members, err := photos.ListGroupMembers(ctx, group.ID)
		if err != nil {
			t.Fatalf("Failed to list members: %v", err)
		}
		if len(members) != 2 {
			t.Fatalf("Expected 2 members, got %d", len(members))
		}

		// Grouped photos leave the default candidate pool.
		candidates, err := photos.ListCandidates(ctx, "alice", false)
		if err != nil {
			t.Fatalf("Failed to list candidates: %v", err)
		}
		if len(candidates) != 0 {
			t.Errorf("Expected 0 ungrouped candidates, got %d", len(candidates))
		}
		candidates, err = photos.ListCandidates(ctx, "alice", true)
		if err != nil {
			t.Fatalf("Failed to list candidates: %v", err)
		}
		if len(candidates) != 2 {
			t.Errorf("Expected 2 candidates with includeGrouped, got %d", len(candidates))
		}

		unlinked, err := photos.ClearGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("Failed to clear group: %v", err)
		}
		if unlinked != 2 {
			t.Errorf("Expected 2 unlinked, got %d", unlinked)
		}
	})

	t.Run("SetTrash", func(t *testing.T) {
		changed, err := photos.SetTrash(ctx, []string{"p1", "p2"}, true)
		if err != nil {
			t.Fatalf("Failed to set trash: %v", err)
		}
		if changed != 2 {
			t.Errorf("Expected 2 changed, got %d", changed)
		}

		// Second call is a no-op.
		changed, err = photos.SetTrash(ctx, []string{"p1", "p2"}, true)
		if err != nil {
			t.Fatalf("Failed to set trash: %v", err)
		}
		if changed != 0 {
			t.Errorf("Expected 0 changed, got %d", changed)
		}

		changed, err = photos.SetTrash(ctx, []string{"p1", "p2"}, false)
		if err != nil {
			t.Fatalf("Failed to restore: %v", err)
		}
		if changed != 2 {
			t.Errorf("Expected 2 restored, got %d", changed)
		}
	})

	t.Run("UpsertPreservesDedupeFields", func(t *testing.T) {
		if _, err := photos.Upsert(ctx, []database.Photo{
			{ID: "p1", Owner: "alice", ThumbnailPath: "thumbs/p1-v2.jpg", Width: 3840, Height: 2160, Size: 4000},
		}); err != nil {
			t.Fatalf("Failed to re-upsert: %v", err)
		}
		got, err := photos.Get(ctx, "p1")
		if err != nil {
			t.Fatalf("Failed to get photo: %v", err)
		}
		if got.PerceptualHash == "" {
			t.Error("Expected hash to survive catalog refresh")
		}
		if got.Width != 3840 || got.ThumbnailPath != "thumbs/p1-v2.jpg" {
			t.Errorf("Expected catalog fields to refresh, got %+v", got)
		}
	})
}

func TestGroupStore(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	photos := NewPhotoStore(pool)
	groups := NewGroupStore(pool)

	seed := []database.Photo{
		{ID: "g1", Owner: "alice", Width: 100, Height: 100},
		{ID: "g2", Owner: "alice", Width: 100, Height: 100},
		{ID: "g3", Owner: "alice", Width: 100, Height: 100},
	}
	if _, err := photos.Upsert(ctx, seed); err != nil {
		t.Fatalf("Failed to upsert photos: %v", err)
	}

	group := &database.DuplicateGroup{ID: uuid.NewString(), Owner: "alice"}
	if err := groups.Create(ctx, group); err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	if group.Status != database.GroupStatusPending {
		t.Errorf("Expected pending status, got %s", group.Status)
	}
	if group.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}

	for _, id := range []string{"g1", "g2"} {
		if _, err := photos.AssignGroup(ctx, id, group.ID); err != nil {
			t.Fatalf("Failed to assign %s: %v", id, err)
		}
	}

	t.Run("UpdateAndGet", func(t *testing.T) {
		group.Status = database.GroupStatusReviewed
		group.PreferredPhotoID = "g1"
		if err := groups.Update(ctx, group); err != nil {
			t.Fatalf("Failed to update group: %v", err)
		}

		got, err := groups.Get(ctx, group.ID)
		if err != nil {
			t.Fatalf("Failed to get group: %v", err)
		}
		if got.Status != database.GroupStatusReviewed || got.PreferredPhotoID != "g1" {
			t.Errorf("Unexpected group: %+v", got)
		}
	})

	t.Run("List", func(t *testing.T) {
		listed, total, err := groups.List(ctx, "alice", "", 1, 20)
		if err != nil {
			t.Fatalf("Failed to list groups: %v", err)
		}
		if total != 1 || len(listed) != 1 {
			t.Fatalf("Expected 1 group, got total=%d len=%d", total, len(listed))
		}
		if listed[0].PhotoCount != 2 {
			t.Errorf("Expected 2 members, got %d", listed[0].PhotoCount)
		}

		// Status filter excludes reviewed groups.
		listed, total, err = groups.List(ctx, "alice", database.GroupStatusPending, 1, 20)
		if err != nil {
			t.Fatalf("Failed to list groups: %v", err)
		}
		if total != 0 || len(listed) != 0 {
			t.Errorf("Expected no pending groups, got total=%d len=%d", total, len(listed))
		}
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := groups.Stats(ctx, "alice")
		if err != nil {
			t.Fatalf("Failed to get stats: %v", err)
		}
		if stats.TotalGroups != 1 || stats.ReviewedGroups != 1 {
			t.Errorf("Unexpected group counts: %+v", stats)
		}
		if stats.TotalPhotos != 3 || stats.PhotosInGroups != 2 {
			t.Errorf("Unexpected photo counts: %+v", stats)
		}
	})

	t.Run("DeleteSetsPhotoFKNull", func(t *testing.T) {
		if err := groups.Delete(ctx, group.ID); err != nil {
			t.Fatalf("Failed to delete group: %v", err)
		}
		got, err := photos.Get(ctx, "g1")
		if err != nil {
			t.Fatalf("Failed to get photo: %v", err)
		}
		if got.GroupID != "" {
			t.Errorf("Expected group link cleared, got %q", got.GroupID)
		}
		if _, err := groups.Get(ctx, group.ID); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestJobStore(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	jobs := NewJobStore(pool)

	job := &database.DetectionJob{
		ID:           uuid.NewString(),
		Owner:        "alice",
		ProgressStep: "Initializing...",
		QueuedAt:     time.Now().UTC(),
		StartedAt:    time.Now().UTC(),
		Result:       map[string]any{"threshold": 10},
	}
	if err := jobs.Create(ctx, job); err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	job.ProgressCurrent = 50
	job.ProgressTarget = 100
	job.ProgressStep = "Comparing photos... 50% (50/100)"
	job.Result["groups_found"] = 3
	if err := jobs.Update(ctx, job); err != nil {
		t.Fatalf("Failed to update job: %v", err)
	}

	job.Finished = true
	job.FinishedAt = time.Now().UTC()
	if err := jobs.Update(ctx, job); err != nil {
		t.Fatalf("Failed to finish job: %v", err)
	}

	got, err := jobs.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if !got.Finished || got.Failed {
		t.Errorf("Unexpected job state: %+v", got)
	}
	if got.ProgressCurrent != 50 {
		t.Errorf("Expected progress 50, got %d", got.ProgressCurrent)
	}
	// JSONB numbers decode as float64.
	if v, ok := got.Result["groups_found"].(float64); !ok || v != 3 {
		t.Errorf("Expected groups_found=3, got %v", got.Result["groups_found"])
	}
	if got.FinishedAt.IsZero() {
		t.Error("Expected finished_at to be set")
	}

	if _, err := jobs.Get(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
