package dedupe

import (
	"sort"
)

// HashedPhoto is one comparison-pool entry. Callers must filter out photos
// without a fingerprint before clustering.
type HashedPhoto struct {
	ID   string
	Hash string
}

// ProgressFunc receives coalesced progress updates during clustering: the
// number of photos processed so far, the total, and the duplicate relations
// found. It is invoked synchronously on the clustering pass.
type ProgressFunc func(current, total, duplicatesFound int)

// Cluster groups photos whose fingerprints are within threshold Hamming
// distance, using a BK-tree so each pair is compared at most once:
// every photo first queries the tree (which only contains photos processed
// before it), unions with each match, then inserts itself.
//
// Photos are processed in ascending ID order so results are reproducible
// across runs with identical input. Clustering is transitive by design: if
// A-B and B-C are within threshold, {A,B,C} form one group even when A-C is
// not. Groups of size one are discarded.
//
// The progress callback, when non-nil, fires roughly every 1% of the pool
// and always on the last photo.
func Cluster(photos []HashedPhoto, threshold int, progress ProgressFunc) [][]string {
	n := len(photos)
	if n < 2 {
		return nil
	}

	sorted := make([]HashedPhoto, n)
	copy(sorted, photos)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	ids := make([]string, n)
	for i, p := range sorted {
		ids[i] = p.ID
	}
	uf := newUnionFind(ids)

	tree := NewBKTree()
	step := n / 100
	if step < 1 {
		step = 1
	}
	lastUpdate := 0

	for i, photo := range sorted {
		for _, match := range tree.Search(photo.Hash, threshold) {
			uf.union(photo.ID, match.ID)
		}
		tree.Insert(photo.ID, photo.Hash)

		if progress != nil && (i-lastUpdate >= step || i == n-1) {
			progress(i+1, n, uf.merges)
			lastUpdate = i
		}
	}

	// Group photos by their component root.
	components := make(map[string][]string)
	for _, id := range ids {
		root := uf.find(id)
		components[root] = append(components[root], id)
	}

	var groups [][]string
	for _, members := range components {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		groups = append(groups, members)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })

	return groups
}
