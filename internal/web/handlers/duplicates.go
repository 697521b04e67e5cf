package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-dedup/internal/config"
	"github.com/kozaktomas/photo-dedup/internal/constants"
	"github.com/kozaktomas/photo-dedup/internal/database"
	"github.com/kozaktomas/photo-dedup/internal/dedupe"
)

// DuplicatesHandler handles duplicate group endpoints
type DuplicatesHandler struct {
	config   *config.Config
	photos   database.PhotoStore
	groups   database.GroupStore
	detector *dedupe.Detector
	resolver *dedupe.Resolver
}

// NewDuplicatesHandler creates a new duplicates handler
func NewDuplicatesHandler(cfg *config.Config, photos database.PhotoStore, groups database.GroupStore, detector *dedupe.Detector) *DuplicatesHandler {
	return &DuplicatesHandler{
		config:   cfg,
		photos:   photos,
		groups:   groups,
		detector: detector,
		resolver: dedupe.NewResolver(photos, groups),
	}
}

type detectRequest struct {
	Sensitivity   string `json:"sensitivity"`
	Threshold     *int   `json:"threshold"`
	ClearExisting bool   `json:"clear_existing"`
}

// Detect starts an asynchronous detection run and returns the job ID.
func (h *DuplicatesHandler) Detect(w http.ResponseWriter, r *http.Request) {
	owner := requestOwner(r)
	if owner == "" {
		respondError(w, http.StatusBadRequest, "owner is required")
		return
	}

	var req detectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	threshold := h.config.Sensitivity.Threshold(req.Sensitivity)
	if req.Threshold != nil {
		threshold = config.ClampThreshold(*req.Threshold)
	}

	jobID, err := h.detector.Start(r.Context(), owner, dedupe.Options{
		Threshold:     threshold,
		ClearExisting: req.ClearExisting,
	})
	if err != nil {
		log.Printf("error starting detection for %s: %v", sanitizeForLog(owner), err)
		respondError(w, http.StatusInternalServerError, "failed to start detection")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id":    jobID,
		"threshold": threshold,
	})
}

type groupResponse struct {
	ID               string               `json:"id"`
	Status           database.GroupStatus `json:"status"`
	PreferredPhotoID string               `json:"preferred_photo_id,omitempty"`
	PhotoCount       int                  `json:"photo_count,omitempty"`
	Photos           []photoResponse      `json:"photos,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

type photoResponse struct {
	ID            string `json:"id"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Size          int64  `json:"size"`
	InTrash       bool   `json:"in_trash"`
}

// List returns the owner's duplicate groups, paginated and optionally
// filtered by status.
func (h *DuplicatesHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := requestOwner(r)
	if owner == "" {
		respondError(w, http.StatusBadRequest, "owner is required")
		return
	}

	status := database.GroupStatus(r.URL.Query().Get("status"))
	switch status {
	case "", database.GroupStatusPending, database.GroupStatusReviewed, database.GroupStatusDismissed:
	default:
		respondError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", constants.DefaultGroupPageSize)
	if pageSize > constants.MaxGroupPageSize {
		pageSize = constants.MaxGroupPageSize
	}
	if page < 1 || pageSize < 1 {
		respondError(w, http.StatusBadRequest, "invalid pagination")
		return
	}

	groups, total, err := h.groups.List(r.Context(), owner, status, page, pageSize)
	if err != nil {
		log.Printf("error listing groups for %s: %v", sanitizeForLog(owner), err)
		respondError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}

	results := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		results = append(results, groupResponse{
			ID:               g.ID,
			Status:           g.Status,
			PreferredPhotoID: g.PreferredPhotoID,
			PhotoCount:       g.PhotoCount,
			CreatedAt:        g.CreatedAt,
			UpdatedAt:        g.UpdatedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"groups":    results,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get returns one group with its member photos.
func (h *DuplicatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, ok := h.loadGroup(w, r)
	if !ok {
		return
	}

	members, err := h.photos.ListGroupMembers(r.Context(), group.ID)
	if err != nil {
		log.Printf("error loading members of group %s: %v", sanitizeForLog(group.ID), err)
		respondError(w, http.StatusInternalServerError, "failed to load group members")
		return
	}

	resp := groupResponse{
		ID:               group.ID,
		Status:           group.Status,
		PreferredPhotoID: group.PreferredPhotoID,
		PhotoCount:       len(members),
		CreatedAt:        group.CreatedAt,
		UpdatedAt:        group.UpdatedAt,
	}
	for _, p := range members {
		resp.Photos = append(resp.Photos, photoResponse{
			ID:            p.ID,
			ThumbnailPath: p.ThumbnailPath,
			Width:         p.Width,
			Height:        p.Height,
			Size:          p.Size,
			InTrash:       p.InTrash,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

type resolveRequest struct {
	KeepPhotoID string `json:"keep_photo_id"`
	TrashOthers bool   `json:"trash_others"`
}

// Resolve keeps one photo and optionally trashes the rest.
func (h *DuplicatesHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	group, ok := h.loadGroup(w, r)
	if !ok {
		return
	}

	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil || req.KeepPhotoID == "" {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	trashed, err := h.resolver.Resolve(r.Context(), group.ID, req.KeepPhotoID, req.TrashOthers)
	if err != nil {
		h.respondWorkflowError(w, group.ID, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":         database.GroupStatusReviewed,
		"kept_photo_id":  req.KeepPhotoID,
		"photos_trashed": trashed,
	})
}

// Revert undoes a resolution, restoring trashed members.
func (h *DuplicatesHandler) Revert(w http.ResponseWriter, r *http.Request) {
	group, ok := h.loadGroup(w, r)
	if !ok {
		return
	}

	restored, err := h.resolver.Revert(r.Context(), group.ID)
	if err != nil {
		h.respondWorkflowError(w, group.ID, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":          database.GroupStatusPending,
		"photos_restored": restored,
	})
}

// Dismiss marks a pending group as a false positive.
func (h *DuplicatesHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	group, ok := h.loadGroup(w, r)
	if !ok {
		return
	}

	unlinked, err := h.resolver.Dismiss(r.Context(), group.ID)
	if err != nil {
		h.respondWorkflowError(w, group.ID, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":          database.GroupStatusDismissed,
		"photos_unlinked": unlinked,
	})
}

// Delete removes a group record without touching photos.
func (h *DuplicatesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	group, ok := h.loadGroup(w, r)
	if !ok {
		return
	}

	unlinked, err := h.resolver.Delete(r.Context(), group.ID)
	if err != nil {
		h.respondWorkflowError(w, group.ID, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"deleted":         true,
		"photos_unlinked": unlinked,
	})
}

// Stats summarizes duplicate detection state for the owner.
func (h *DuplicatesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	owner := requestOwner(r)
	if owner == "" {
		respondError(w, http.StatusBadRequest, "owner is required")
		return
	}

	stats, err := h.groups.Stats(r.Context(), owner)
	if err != nil {
		log.Printf("error loading stats for %s: %v", sanitizeForLog(owner), err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"total_groups":     stats.TotalGroups,
		"pending_groups":   stats.PendingGroups,
		"reviewed_groups":  stats.ReviewedGroups,
		"photos_in_groups": stats.PhotosInGroups,
		"photos_with_hash": stats.PhotosWithHash,
		"total_photos":     stats.TotalPhotos,
	})
}

// loadGroup fetches the group from the URL and verifies the owner scope.
// On failure, sends an error response and returns (nil, false).
func (h *DuplicatesHandler) loadGroup(w http.ResponseWriter, r *http.Request) (*database.DuplicateGroup, bool) {
	owner := requestOwner(r)
	if owner == "" {
		respondError(w, http.StatusBadRequest, "owner is required")
		return nil, false
	}

	groupID := chi.URLParam(r, "groupID")
	group, err := h.groups.Get(r.Context(), groupID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "group not found")
		return nil, false
	}
	if err != nil {
		log.Printf("error loading group %s: %v", sanitizeForLog(groupID), err)
		respondError(w, http.StatusInternalServerError, "failed to load group")
		return nil, false
	}
	if group.Owner != owner {
		// Hide the existence of other users' groups.
		respondError(w, http.StatusNotFound, "group not found")
		return nil, false
	}
	return group, true
}

func (h *DuplicatesHandler) respondWorkflowError(w http.ResponseWriter, groupID string, err error) {
	switch {
	case errors.Is(err, dedupe.ErrWrongStatus):
		respondError(w, http.StatusConflict, "operation not allowed for group status")
	case errors.Is(err, dedupe.ErrNotMember):
		respondError(w, http.StatusBadRequest, "photo is not a member of the group")
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "group not found")
	default:
		log.Printf("error updating group %s: %v", sanitizeForLog(groupID), err)
		respondError(w, http.StatusInternalServerError, "failed to update group")
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}
