package dedupe

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/photo-dedup/internal/database"
	"github.com/kozaktomas/photo-dedup/internal/database/mock"
)

// newTestGroup seeds a pending group with three members and returns the
// stores and a resolver.
func newTestGroup(t *testing.T, status database.GroupStatus) (*mock.MockPhotoStore, *mock.MockGroupStore, *Resolver) {
	t.Helper()

	photos := mock.NewMockPhotoStore()
	groups := mock.NewMockGroupStore(photos)

	groups.AddGroup(database.DuplicateGroup{ID: "grp", Owner: "alice", Status: status})
	photos.AddPhoto(database.Photo{ID: "p1", Owner: "alice", GroupID: "grp", Width: 4000, Height: 3000})
	photos.AddPhoto(database.Photo{ID: "p2", Owner: "alice", GroupID: "grp", Width: 800, Height: 600})
	photos.AddPhoto(database.Photo{ID: "p3", Owner: "alice", GroupID: "grp", Width: 640, Height: 480})

	return photos, groups, NewResolver(photos, groups)
}

func TestResolve(t *testing.T) {
	photos, groups, resolver := newTestGroup(t, database.GroupStatusPending)

	trashed, err := resolver.Resolve(context.Background(), "grp", "p2", true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if trashed != 2 {
		t.Errorf("trashed = %d; want 2", trashed)
	}

	group, _ := groups.Group("grp")
	if group.Status != database.GroupStatusReviewed {
		t.Errorf("status = %s; want reviewed", group.Status)
	}
	if group.PreferredPhotoID != "p2" {
		t.Errorf("preferred = %s; want p2", group.PreferredPhotoID)
	}

	// The kept photo stays out of trash; others go in. Membership is kept
	// so the resolution can be reverted.
	for _, tc := range []struct {
		id      string
		inTrash bool
	}{
		{"p1", true}, {"p2", false}, {"p3", true},
	} {
		p, _ := photos.Photo(tc.id)
		if p.InTrash != tc.inTrash {
			t.Errorf("%s InTrash = %v; want %v", tc.id, p.InTrash, tc.inTrash)
		}
		if p.GroupID != "grp" {
			t.Errorf("%s should stay linked, got %q", tc.id, p.GroupID)
		}
	}
}

func TestResolveWithoutTrashing(t *testing.T) {
	photos, groups, resolver := newTestGroup(t, database.GroupStatusPending)

	trashed, err := resolver.Resolve(context.Background(), "grp", "p1", false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if trashed != 0 {
		t.Errorf("trashed = %d; want 0", trashed)
	}

	group, _ := groups.Group("grp")
	if group.Status != database.GroupStatusReviewed || group.PreferredPhotoID != "p1" {
		t.Errorf("unexpected group: %+v", group)
	}
	for _, id := range []string{"p1", "p2", "p3"} {
		p, _ := photos.Photo(id)
		if p.InTrash {
			t.Errorf("%s should not be trashed", id)
		}
	}
}

func TestResolveReReviewAllowed(t *testing.T) {
	// Re-resolving a reviewed group replaces the kept photo.
	_, groups, resolver := newTestGroup(t, database.GroupStatusReviewed)

	if _, err := resolver.Resolve(context.Background(), "grp", "p3", false); err != nil {
		t.Fatalf("re-resolve failed: %v", err)
	}
	group, _ := groups.Group("grp")
	if group.PreferredPhotoID != "p3" {
		t.Errorf("preferred = %s; want p3", group.PreferredPhotoID)
	}
}

func TestResolveRejections(t *testing.T) {
	t.Run("dismissed group", func(t *testing.T) {
		_, _, resolver := newTestGroup(t, database.GroupStatusDismissed)
		_, err := resolver.Resolve(context.Background(), "grp", "p1", false)
		if !errors.Is(err, ErrWrongStatus) {
			t.Errorf("expected ErrWrongStatus, got %v", err)
		}
	})

	t.Run("non-member photo", func(t *testing.T) {
		_, _, resolver := newTestGroup(t, database.GroupStatusPending)
		_, err := resolver.Resolve(context.Background(), "grp", "stranger", false)
		if !errors.Is(err, ErrNotMember) {
			t.Errorf("expected ErrNotMember, got %v", err)
		}
	})

	t.Run("member owned by another user", func(t *testing.T) {
		photos, groups, resolver := newTestGroup(t, database.GroupStatusPending)
		photos.AddPhoto(database.Photo{ID: "p4", Owner: "bob", GroupID: "grp", Width: 8000, Height: 6000})

		_, err := resolver.Resolve(context.Background(), "grp", "p4", true)
		if !errors.Is(err, ErrNotMember) {
			t.Errorf("expected ErrNotMember, got %v", err)
		}

		// Rejection must leave the group and its members untouched.
		group, _ := groups.Group("grp")
		if group.Status != database.GroupStatusPending || group.PreferredPhotoID != "" {
			t.Errorf("group should be unchanged: %+v", group)
		}
		for _, id := range []string{"p1", "p2", "p3", "p4"} {
			p, _ := photos.Photo(id)
			if p.InTrash {
				t.Errorf("%s should not be trashed", id)
			}
		}
	})

	t.Run("missing group", func(t *testing.T) {
		_, _, resolver := newTestGroup(t, database.GroupStatusPending)
		_, err := resolver.Resolve(context.Background(), "missing", "p1", false)
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRevert(t *testing.T) {
	photos, groups, resolver := newTestGroup(t, database.GroupStatusPending)

	if _, err := resolver.Resolve(context.Background(), "grp", "p1", true); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	restored, err := resolver.Revert(context.Background(), "grp")
	if err != nil {
		t.Fatalf("Revert failed: %v", err)
	}
	if restored != 2 {
		t.Errorf("restored = %d; want 2", restored)
	}

	group, _ := groups.Group("grp")
	if group.Status != database.GroupStatusPending {
		t.Errorf("status = %s; want pending", group.Status)
	}
	if group.PreferredPhotoID != "" {
		t.Errorf("preferred should be cleared, got %q", group.PreferredPhotoID)
	}
	for _, id := range []string{"p1", "p2", "p3"} {
		p, _ := photos.Photo(id)
		if p.InTrash {
			t.Errorf("%s should be restored from trash", id)
		}
		if p.GroupID != "grp" {
			t.Errorf("%s should stay linked", id)
		}
	}
}

func TestRevertRequiresReviewed(t *testing.T) {
	for _, status := range []database.GroupStatus{database.GroupStatusPending, database.GroupStatusDismissed} {
		t.Run(string(status), func(t *testing.T) {
			_, _, resolver := newTestGroup(t, status)
			_, err := resolver.Revert(context.Background(), "grp")
			if !errors.Is(err, ErrWrongStatus) {
				t.Errorf("expected ErrWrongStatus, got %v", err)
			}
		})
	}
}

func TestDismiss(t *testing.T) {
	photos, groups, resolver := newTestGroup(t, database.GroupStatusPending)

	unlinked, err := resolver.Dismiss(context.Background(), "grp")
	if err != nil {
		t.Fatalf("Dismiss failed: %v", err)
	}
	if unlinked != 3 {
		t.Errorf("unlinked = %d; want 3", unlinked)
	}

	group, _ := groups.Group("grp")
	if group.Status != database.GroupStatusDismissed {
		t.Errorf("status = %s; want dismissed", group.Status)
	}
	// Members return to the candidate pool of future runs.
	for _, id := range []string{"p1", "p2", "p3"} {
		p, _ := photos.Photo(id)
		if p.GroupID != "" {
			t.Errorf("%s should be unlinked, got %q", id, p.GroupID)
		}
	}
}

func TestDismissRequiresPending(t *testing.T) {
	for _, status := range []database.GroupStatus{database.GroupStatusReviewed, database.GroupStatusDismissed} {
		t.Run(string(status), func(t *testing.T) {
			_, _, resolver := newTestGroup(t, status)
			_, err := resolver.Dismiss(context.Background(), "grp")
			if !errors.Is(err, ErrWrongStatus) {
				t.Errorf("expected ErrWrongStatus, got %v", err)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for _, status := range []database.GroupStatus{
		database.GroupStatusPending,
		database.GroupStatusReviewed,
		database.GroupStatusDismissed,
	} {
		t.Run(string(status), func(t *testing.T) {
			photos, groups, resolver := newTestGroup(t, status)

			unlinked, err := resolver.Delete(context.Background(), "grp")
			if err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if unlinked != 3 {
				t.Errorf("unlinked = %d; want 3", unlinked)
			}
			if _, ok := groups.Group("grp"); ok {
				t.Error("group record should be gone")
			}
			// Photos are never deleted, only unlinked.
			for _, id := range []string{"p1", "p2", "p3"} {
				if _, ok := photos.Photo(id); !ok {
					t.Errorf("%s should still exist", id)
				}
			}
		})
	}
}

func TestDeleteKeepsTrashFlags(t *testing.T) {
	photos, _, resolver := newTestGroup(t, database.GroupStatusPending)

	if _, err := resolver.Resolve(context.Background(), "grp", "p1", true); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, err := resolver.Delete(context.Background(), "grp"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// Deleting the group does not undo a resolution's trash flags.
	p, _ := photos.Photo("p2")
	if !p.InTrash {
		t.Error("p2 should remain in trash after group deletion")
	}
}

func TestDeleteMissingGroup(t *testing.T) {
	_, _, resolver := newTestGroup(t, database.GroupStatusPending)
	_, err := resolver.Delete(context.Background(), "missing")
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
