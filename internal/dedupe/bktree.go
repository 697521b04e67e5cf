// Package dedupe implements near-duplicate photo detection: a BK-tree metric
// index over perceptual hashes, incremental union-find clustering, the batch
// detection job, and the group review workflow.
package dedupe

import (
	"github.com/kozaktomas/photo-dedup/internal/fingerprint"
)

// Match is a single range-query result.
type Match struct {
	ID       string
	Distance int
}

// bkNode is one tree node. Children are keyed by their exact Hamming distance
// to this node; each node is exclusively owned by its parent.
type bkNode struct {
	id       string
	hash     string
	children map[int]*bkNode
}

// BKTree is a Burkhard-Keller tree for threshold range-queries under Hamming
// distance. Instead of a linear scan per query, it prunes branches that the
// triangle inequality proves cannot contain matches, giving O(log n) average
// lookups for well-spread fingerprints (O(n) worst case on clustered input).
//
// The tree is run-scoped: it is rebuilt for every detection pass and never
// persisted. Insertion order determines the shape; there is no rebalancing.
type BKTree struct {
	distance func(a, b string) int
	root     *bkNode
	size     int
}

// NewBKTree creates an empty tree using fingerprint.HammingDistance.
func NewBKTree() *BKTree {
	return &BKTree{distance: fingerprint.HammingDistance}
}

// Size returns the number of inserted items.
func (t *BKTree) Size() int {
	return t.size
}

// Insert adds an item to the tree. Items inserted after a Search call are
// invisible to that call.
func (t *BKTree) Insert(id, hash string) {
	t.size++
	if t.root == nil {
		t.root = &bkNode{id: id, hash: hash, children: make(map[int]*bkNode)}
		return
	}

	node := t.root
	for {
		dist := t.distance(hash, node.hash)
		child, ok := node.children[dist]
		if !ok {
			node.children[dist] = &bkNode{id: id, hash: hash, children: make(map[int]*bkNode)}
			return
		}
		node = child
	}
}

// Search returns all items within threshold Hamming distance of the query.
//
// At each visited node with d = distance(query, node), a child at edge
// distance k can only contain items whose distance to the query lies in
// [d-threshold, d+threshold], so subtrees outside |d-k| <= threshold are
// skipped. The pruning never drops a true match: the result set is identical
// to a brute-force scan regardless of insertion order.
func (t *BKTree) Search(hash string, threshold int) []Match {
	if t.root == nil {
		return nil
	}

	var results []Match
	candidates := []*bkNode{t.root}

	for len(candidates) > 0 {
		node := candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]

		dist := t.distance(hash, node.hash)
		if dist <= threshold {
			results = append(results, Match{ID: node.id, Distance: dist})
		}

		minDist := dist - threshold
		maxDist := dist + threshold
		for k, child := range node.children {
			if k >= minDist && k <= maxDist {
				candidates = append(candidates, child)
			}
		}
	}

	return results
}
