// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/photo-dedup/internal/database"
)

// MockPhotoStore is a mock implementation of database.PhotoStore
type MockPhotoStore struct {
	mu     sync.RWMutex
	photos map[string]*database.Photo

	// Track calls
	UpdateHashCalls  []UpdateHashCall
	AssignGroupCalls []AssignGroupCall
	SetTrashCalls    []SetTrashCall

	// Error injection
	GetError              error
	ListMissingHashError  error
	ListCandidatesError   error
	ListGroupMembersError error
	UpdateHashError       error
	AssignGroupError      error
	ClearGroupError       error
	SetTrashError         error
	UpsertError           error
}

// UpdateHashCall tracks an UpdateHash call
type UpdateHashCall struct {
	PhotoID string
	Hash    string
}

// AssignGroupCall tracks an AssignGroup call
type AssignGroupCall struct {
	PhotoID string
	GroupID string
}

// SetTrashCall tracks a SetTrash call
type SetTrashCall struct {
	PhotoIDs []string
	InTrash  bool
}

// NewMockPhotoStore creates a new mock photo store
func NewMockPhotoStore() *MockPhotoStore {
	return &MockPhotoStore{
		photos: make(map[string]*database.Photo),
	}
}

// AddPhoto adds a photo to the mock store
func (m *MockPhotoStore) AddPhoto(p database.Photo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos[p.ID] = &p
}

// Photo returns a copy of a stored photo for assertions
func (m *MockPhotoStore) Photo(id string) (database.Photo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.photos[id]
	if !ok {
		return database.Photo{}, false
	}
	return *p, true
}

// Get retrieves a photo by ID
func (m *MockPhotoStore) Get(ctx context.Context, id string) (*database.Photo, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.photos[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListMissingHash returns the owner's photos without a fingerprint
func (m *MockPhotoStore) ListMissingHash(ctx context.Context, owner string) ([]database.Photo, error) {
	if m.ListMissingHashError != nil {
		return nil, m.ListMissingHashError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Photo
	for _, p := range m.photos {
		if p.Owner == owner && !p.Hidden && p.PerceptualHash == "" {
			result = append(result, *p)
		}
	}
	sortPhotos(result)
	return result, nil
}

// ListCandidates returns the comparison pool for an owner
func (m *MockPhotoStore) ListCandidates(ctx context.Context, owner string, includeGrouped bool) ([]database.Photo, error) {
	if m.ListCandidatesError != nil {
		return nil, m.ListCandidatesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Photo
	for _, p := range m.photos {
		if p.Owner != owner || p.Hidden || p.InTrash || p.PerceptualHash == "" {
			continue
		}
		if p.GroupID != "" && !includeGrouped {
			continue
		}
		result = append(result, *p)
	}
	sortPhotos(result)
	return result, nil
}

// ListGroupMembers returns all photos in a group
func (m *MockPhotoStore) ListGroupMembers(ctx context.Context, groupID string) ([]database.Photo, error) {
	if m.ListGroupMembersError != nil {
		return nil, m.ListGroupMembersError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Photo
	for _, p := range m.photos {
		if p.GroupID == groupID {
			result = append(result, *p)
		}
	}
	sortPhotos(result)
	return result, nil
}

// UpdateHash stores a computed fingerprint
func (m *MockPhotoStore) UpdateHash(ctx context.Context, photoID, hash string) error {
	if m.UpdateHashError != nil {
		return m.UpdateHashError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateHashCalls = append(m.UpdateHashCalls, UpdateHashCall{PhotoID: photoID, Hash: hash})
	if p, ok := m.photos[photoID]; ok {
		p.PerceptualHash = hash
	}
	return nil
}

// AssignGroup links a photo to a group unless it already belongs to another
func (m *MockPhotoStore) AssignGroup(ctx context.Context, photoID, groupID string) (bool, error) {
	if m.AssignGroupError != nil {
		return false, m.AssignGroupError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AssignGroupCalls = append(m.AssignGroupCalls, AssignGroupCall{PhotoID: photoID, GroupID: groupID})
	p, ok := m.photos[photoID]
	if !ok {
		return false, database.ErrNotFound
	}
	if p.GroupID != "" && p.GroupID != groupID {
		return false, nil
	}
	p.GroupID = groupID
	return true, nil
}

// ClearGroup unlinks every member of a group
func (m *MockPhotoStore) ClearGroup(ctx context.Context, groupID string) (int, error) {
	if m.ClearGroupError != nil {
		return 0, m.ClearGroupError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, p := range m.photos {
		if p.GroupID == groupID {
			p.GroupID = ""
			count++
		}
	}
	return count, nil
}

// SetTrash flags or unflags photos as in-trash
func (m *MockPhotoStore) SetTrash(ctx context.Context, photoIDs []string, inTrash bool) (int, error) {
	if m.SetTrashError != nil {
		return 0, m.SetTrashError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetTrashCalls = append(m.SetTrashCalls, SetTrashCall{PhotoIDs: photoIDs, InTrash: inTrash})
	count := 0
	for _, id := range photoIDs {
		if p, ok := m.photos[id]; ok && p.InTrash != inTrash {
			p.InTrash = inTrash
			count++
		}
	}
	return count, nil
}

// Upsert inserts or refreshes catalog photos, preserving dedupe-owned fields
func (m *MockPhotoStore) Upsert(ctx context.Context, photos []database.Photo) (int, error) {
	if m.UpsertError != nil {
		return 0, m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range photos {
		p := photos[i]
		if existing, ok := m.photos[p.ID]; ok {
			p.PerceptualHash = existing.PerceptualHash
			p.InTrash = existing.InTrash
			p.GroupID = existing.GroupID
		}
		m.photos[p.ID] = &p
	}
	return len(photos), nil
}

func sortPhotos(photos []database.Photo) {
	sort.Slice(photos, func(i, j int) bool { return photos[i].ID < photos[j].ID })
}

// MockGroupStore is a mock implementation of database.GroupStore
type MockGroupStore struct {
	mu     sync.RWMutex
	groups map[string]*database.DuplicateGroup
	photos *MockPhotoStore // for member counts in List/Stats, may be nil

	// Error injection
	CreateError         error
	GetError            error
	UpdateError         error
	DeleteError         error
	ListPendingIDsError error
	ListError           error
	StatsError          error
}

// NewMockGroupStore creates a new mock group store. The photo store, when
// given, provides member counts for List and Stats.
func NewMockGroupStore(photos *MockPhotoStore) *MockGroupStore {
	return &MockGroupStore{
		groups: make(map[string]*database.DuplicateGroup),
		photos: photos,
	}
}

// AddGroup adds a group to the mock store
func (m *MockGroupStore) AddGroup(g database.DuplicateGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[g.ID] = &g
}

// Group returns a copy of a stored group for assertions
func (m *MockGroupStore) Group(id string) (database.DuplicateGroup, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[id]
	if !ok {
		return database.DuplicateGroup{}, false
	}
	return *g, true
}

// Count returns the number of stored groups
func (m *MockGroupStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.groups)
}

// Create inserts a new group
func (m *MockGroupStore) Create(ctx context.Context, group *database.DuplicateGroup) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *group
	m.groups[group.ID] = &cp
	return nil
}

// Get retrieves a group by ID
func (m *MockGroupStore) Get(ctx context.Context, id string) (*database.DuplicateGroup, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

// Update persists group changes
func (m *MockGroupStore) Update(ctx context.Context, group *database.DuplicateGroup) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[group.ID]; !ok {
		return database.ErrNotFound
	}
	cp := *group
	m.groups[group.ID] = &cp
	return nil
}

// Delete removes a group record
func (m *MockGroupStore) Delete(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.groups, id)
	return nil
}

// ListPendingIDs returns IDs of the owner's pending groups
func (m *MockGroupStore) ListPendingIDs(ctx context.Context, owner string) ([]string, error) {
	if m.ListPendingIDsError != nil {
		return nil, m.ListPendingIDsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, g := range m.groups {
		if g.Owner == owner && g.Status == database.GroupStatusPending {
			ids = append(ids, g.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// List returns the owner's groups with member counts
func (m *MockGroupStore) List(ctx context.Context, owner string, status database.GroupStatus, page, pageSize int) ([]database.GroupWithCount, int, error) {
	if m.ListError != nil {
		return nil, 0, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []database.GroupWithCount
	for _, g := range m.groups {
		if g.Owner != owner {
			continue
		}
		if status != "" && g.Status != status {
			continue
		}
		gc := database.GroupWithCount{DuplicateGroup: *g}
		if m.photos != nil {
			members, _ := m.photos.ListGroupMembers(ctx, g.ID)
			gc.PhotoCount = len(members)
			if gc.PhotoCount < 2 {
				continue
			}
		}
		all = append(all, gc)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

// Stats summarizes detection state for an owner
func (m *MockGroupStore) Stats(ctx context.Context, owner string) (*database.GroupStats, error) {
	if m.StatsError != nil {
		return nil, m.StatsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &database.GroupStats{}
	for _, g := range m.groups {
		if g.Owner != owner {
			continue
		}
		stats.TotalGroups++
		switch g.Status {
		case database.GroupStatusPending:
			stats.PendingGroups++
		case database.GroupStatusReviewed:
			stats.ReviewedGroups++
		}
	}
	if m.photos != nil {
		m.photos.mu.RLock()
		for _, p := range m.photos.photos {
			if p.Owner != owner {
				continue
			}
			stats.TotalPhotos++
			if p.PerceptualHash != "" {
				stats.PhotosWithHash++
			}
			if p.GroupID != "" {
				stats.PhotosInGroups++
			}
		}
		m.photos.mu.RUnlock()
	}
	return stats, nil
}

// MockJobStore is a mock implementation of database.JobStore
type MockJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*database.DetectionJob

	// Track calls
	UpdateCount int

	// Error injection
	CreateError error
	UpdateError error
	GetError    error
}

// NewMockJobStore creates a new mock job store
func NewMockJobStore() *MockJobStore {
	return &MockJobStore{
		jobs: make(map[string]*database.DetectionJob),
	}
}

// Single returns the only stored job, for tests that run one detection.
func (m *MockJobStore) Single() (database.DetectionJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.jobs) != 1 {
		return database.DetectionJob{}, false
	}
	for _, j := range m.jobs {
		return *j, true
	}
	return database.DetectionJob{}, false
}

// Job returns a copy of a stored job for assertions
func (m *MockJobStore) Job(id string) (database.DetectionJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return database.DetectionJob{}, false
	}
	return *j, true
}

// Create inserts a new job record
func (m *MockJobStore) Create(ctx context.Context, job *database.DetectionJob) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

// Update persists job progress changes
func (m *MockJobStore) Update(ctx context.Context, job *database.DetectionJob) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCount++
	cp := *job
	if job.Result != nil {
		cp.Result = make(map[string]any, len(job.Result))
		for k, v := range job.Result {
			cp.Result[k] = v
		}
	}
	m.jobs[job.ID] = &cp
	return nil
}

// Get retrieves a job by ID
func (m *MockJobStore) Get(ctx context.Context, id string) (*database.DetectionJob, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

// Verify interface compliance
var _ database.PhotoStore = (*MockPhotoStore)(nil)
var _ database.GroupStore = (*MockGroupStore)(nil)
var _ database.JobStore = (*MockJobStore)(nil)
