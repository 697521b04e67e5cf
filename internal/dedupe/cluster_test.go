package dedupe

import (
	"reflect"
	"testing"
)

func TestClusterTooFewPhotos(t *testing.T) {
	if got := Cluster(nil, 10, nil); got != nil {
		t.Errorf("expected nil for empty pool, got %v", got)
	}
	one := []HashedPhoto{{ID: "a", Hash: "0000000000000000"}}
	if got := Cluster(one, 10, nil); got != nil {
		t.Errorf("expected nil for single photo, got %v", got)
	}
}

func TestClusterIdenticalHashes(t *testing.T) {
	photos := []HashedPhoto{
		{ID: "c", Hash: "abcdabcdabcdabcd"},
		{ID: "a", Hash: "abcdabcdabcdabcd"},
		{ID: "b", Hash: "abcdabcdabcdabcd"},
	}

	groups := Cluster(photos, 10, nil)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if !reflect.DeepEqual(groups[0], []string{"a", "b", "c"}) {
		t.Errorf("expected sorted members [a b c], got %v", groups[0])
	}
}

func TestClusterNoDuplicates(t *testing.T) {
	photos := []HashedPhoto{
		{ID: "a", Hash: "0000000000000000"},
		{ID: "b", Hash: "ffffffffffffffff"},
		{ID: "c", Hash: "00000000ffffffff"},
	}

	if groups := Cluster(photos, 10, nil); groups != nil {
		t.Errorf("expected no groups, got %v", groups)
	}
}

func TestClusterTransitive(t *testing.T) {
	// a-b and b-c are each within the threshold but a-c is not; transitive
	// closure still puts all three in one group.
	photos := []HashedPhoto{
		{ID: "a", Hash: "0000000000000000"}, // distance to b: 5
		{ID: "b", Hash: "000000000000001f"}, // distance to c: 5
		{ID: "c", Hash: "00000000000003ff"}, // distance to a: 10
	}

	groups := Cluster(photos, 6, nil)
	if len(groups) != 1 {
		t.Fatalf("expected 1 transitive group, got %d: %v", len(groups), groups)
	}
	if !reflect.DeepEqual(groups[0], []string{"a", "b", "c"}) {
		t.Errorf("expected [a b c], got %v", groups[0])
	}
}

func TestClusterSeparateGroups(t *testing.T) {
	photos := []HashedPhoto{
		{ID: "a1", Hash: "0000000000000000"},
		{ID: "a2", Hash: "0000000000000001"},
		{ID: "b1", Hash: "ffffffffffffffff"},
		{ID: "b2", Hash: "fffffffffffffffe"},
		{ID: "solo", Hash: "00000000ffffffff"},
	}

	groups := Cluster(photos, 5, nil)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d: %v", len(groups), groups)
	}
	// Groups sort by their first member.
	if !reflect.DeepEqual(groups[0], []string{"a1", "a2"}) {
		t.Errorf("expected [a1 a2], got %v", groups[0])
	}
	if !reflect.DeepEqual(groups[1], []string{"b1", "b2"}) {
		t.Errorf("expected [b1 b2], got %v", groups[1])
	}
}

func TestClusterThresholdMonotonic(t *testing.T) {
	photos := []HashedPhoto{
		{ID: "a", Hash: "0000000000000000"},
		{ID: "b", Hash: "000000000000000f"}, // 4 bits from a
		{ID: "c", Hash: "0000000000000fff"}, // 12 bits from a, 8 from b
	}

	// Strict threshold links nothing.
	if groups := Cluster(photos, 3, nil); groups != nil {
		t.Errorf("threshold 3: expected no groups, got %v", groups)
	}
	// Threshold 4 links a-b only.
	groups := Cluster(photos, 4, nil)
	if len(groups) != 1 || !reflect.DeepEqual(groups[0], []string{"a", "b"}) {
		t.Errorf("threshold 4: expected [[a b]], got %v", groups)
	}
	// Threshold 8 pulls c in via b.
	groups = Cluster(photos, 8, nil)
	if len(groups) != 1 || !reflect.DeepEqual(groups[0], []string{"a", "b", "c"}) {
		t.Errorf("threshold 8: expected [[a b c]], got %v", groups)
	}
}

func TestClusterDeterministic(t *testing.T) {
	// Input order must not change the result.
	forward := []HashedPhoto{
		{ID: "a", Hash: "0000000000000000"},
		{ID: "b", Hash: "0000000000000001"},
		{ID: "c", Hash: "ffffffffffffffff"},
		{ID: "d", Hash: "fffffffffffffffe"},
	}
	backward := []HashedPhoto{forward[3], forward[2], forward[1], forward[0]}

	g1 := Cluster(forward, 5, nil)
	g2 := Cluster(backward, 5, nil)
	if !reflect.DeepEqual(g1, g2) {
		t.Errorf("cluster result depends on input order: %v vs %v", g1, g2)
	}
}

func TestClusterProgress(t *testing.T) {
	photos := make([]HashedPhoto, 10)
	for i := range photos {
		photos[i] = HashedPhoto{ID: string(rune('a' + i)), Hash: "0000000000000000"}
	}

	var calls int
	var lastCurrent, lastTotal, lastFound int
	Cluster(photos, 0, func(current, total, duplicatesFound int) {
		calls++
		lastCurrent, lastTotal, lastFound = current, total, duplicatesFound
	})

	if calls == 0 {
		t.Fatal("expected progress callbacks")
	}
	// The final callback always reports the last photo.
	if lastCurrent != 10 || lastTotal != 10 {
		t.Errorf("final progress = %d/%d; want 10/10", lastCurrent, lastTotal)
	}
	// 10 identical photos produce 9 merges.
	if lastFound != 9 {
		t.Errorf("duplicates found = %d; want 9", lastFound)
	}
}

func TestUnionFind(t *testing.T) {
	uf := newUnionFind([]string{"a", "b", "c", "d"})

	if !uf.union("a", "b") {
		t.Error("first union should merge")
	}
	if uf.union("a", "b") {
		t.Error("repeated union should not merge")
	}
	if !uf.union("b", "c") {
		t.Error("transitive union should merge")
	}
	if uf.find("a") != uf.find("c") {
		t.Error("a and c should share a root")
	}
	if uf.find("d") == uf.find("a") {
		t.Error("d should remain separate")
	}
	if uf.merges != 2 {
		t.Errorf("merges = %d; want 2", uf.merges)
	}
}
