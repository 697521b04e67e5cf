package dedupe

import (
	"context"
	"fmt"

	"github.com/kozaktomas/photo-dedup/internal/database"
)

// Resolver implements the duplicate group review workflow. It operates on
// group membership and trash flags only; photos themselves are never deleted.
type Resolver struct {
	photos database.PhotoStore
	groups database.GroupStore
}

func NewResolver(photos database.PhotoStore, groups database.GroupStore) *Resolver {
	return &Resolver{photos: photos, groups: groups}
}

// Resolve marks keepID as the group's preferred photo and moves the group to
// reviewed. When trashOthers is set, every other member is flagged in-trash.
// Returns the number of photos trashed.
//
// A pending or already-reviewed group may be resolved (re-resolving replaces
// the kept photo); a dismissed group may not. keepID must be a current member
// of the group owned by the group's owner.
func (r *Resolver) Resolve(ctx context.Context, groupID, keepID string, trashOthers bool) (int, error) {
	group, err := r.groups.Get(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if group.Status == database.GroupStatusDismissed {
		return 0, fmt.Errorf("resolving group %s: %w", groupID, ErrWrongStatus)
	}

	members, err := r.photos.ListGroupMembers(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("loading members of group %s: %w", groupID, err)
	}

	var others []string
	var keep *database.Photo
	for i, p := range members {
		if p.ID == keepID {
			keep = &members[i]
			continue
		}
		others = append(others, p.ID)
	}
	// The kept photo must be a linked member owned by the group's owner.
	if keep == nil || keep.Owner != group.Owner {
		return 0, fmt.Errorf("resolving group %s with photo %s: %w", groupID, keepID, ErrNotMember)
	}

	trashed := 0
	if trashOthers && len(others) > 0 {
		trashed, err = r.photos.SetTrash(ctx, others, true)
		if err != nil {
			return 0, fmt.Errorf("trashing members of group %s: %w", groupID, err)
		}
	}

	group.Status = database.GroupStatusReviewed
	group.PreferredPhotoID = keepID
	if err := r.groups.Update(ctx, group); err != nil {
		return trashed, fmt.Errorf("saving group %s: %w", groupID, err)
	}
	return trashed, nil
}

// Revert undoes a resolution: members are restored from trash, the preferred
// photo is cleared, and the group returns to pending. Only reviewed groups
// may be reverted. Returns the number of photos restored.
func (r *Resolver) Revert(ctx context.Context, groupID string) (int, error) {
	group, err := r.groups.Get(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if group.Status != database.GroupStatusReviewed {
		return 0, fmt.Errorf("reverting group %s: %w", groupID, ErrWrongStatus)
	}

	members, err := r.photos.ListGroupMembers(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("loading members of group %s: %w", groupID, err)
	}
	ids := make([]string, len(members))
	for i, p := range members {
		ids[i] = p.ID
	}

	restored := 0
	if len(ids) > 0 {
		restored, err = r.photos.SetTrash(ctx, ids, false)
		if err != nil {
			return 0, fmt.Errorf("restoring members of group %s: %w", groupID, err)
		}
	}

	group.Status = database.GroupStatusPending
	group.PreferredPhotoID = ""
	if err := r.groups.Update(ctx, group); err != nil {
		return restored, fmt.Errorf("saving group %s: %w", groupID, err)
	}
	return restored, nil
}

// Dismiss marks a pending group as a false positive and unlinks its members
// so they rejoin the candidate pool of future runs. Returns the number of
// photos unlinked.
func (r *Resolver) Dismiss(ctx context.Context, groupID string) (int, error) {
	group, err := r.groups.Get(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if group.Status != database.GroupStatusPending {
		return 0, fmt.Errorf("dismissing group %s: %w", groupID, ErrWrongStatus)
	}

	unlinked, err := r.photos.ClearGroup(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("unlinking members of group %s: %w", groupID, err)
	}

	group.Status = database.GroupStatusDismissed
	if err := r.groups.Update(ctx, group); err != nil {
		return unlinked, fmt.Errorf("saving group %s: %w", groupID, err)
	}
	return unlinked, nil
}

// Delete removes the group record in any status, first unlinking its members.
// Photos are never deleted; trash flags set by a prior resolution are kept.
// Returns the number of photos unlinked.
func (r *Resolver) Delete(ctx context.Context, groupID string) (int, error) {
	if _, err := r.groups.Get(ctx, groupID); err != nil {
		return 0, err
	}

	unlinked, err := r.photos.ClearGroup(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("unlinking members of group %s: %w", groupID, err)
	}
	if err := r.groups.Delete(ctx, groupID); err != nil {
		return unlinked, fmt.Errorf("deleting group %s: %w", groupID, err)
	}
	return unlinked, nil
}
