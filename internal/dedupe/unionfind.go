package dedupe

// unionFind tracks connected components of photos incrementally. IDs are
// opaque string keys; parent links are map entries, not references, so there
// are no cycle concerns.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
	merges int
}

func newUnionFind(ids []string) *unionFind {
	uf := &unionFind{
		parent: make(map[string]string, len(ids)),
		rank:   make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

// find returns the component root with path compression.
func (uf *unionFind) find(x string) string {
	if uf.parent[x] != x {
		uf.parent[x] = uf.find(uf.parent[x])
	}
	return uf.parent[x]
}

// union merges the components of x and y by rank. Returns true when two
// previously distinct components were merged, i.e. one duplicate relation
// was found.
func (uf *unionFind) union(x, y string) bool {
	px, py := uf.find(x), uf.find(y)
	if px == py {
		return false
	}
	if uf.rank[px] < uf.rank[py] {
		px, py = py, px
	}
	uf.parent[py] = px
	if uf.rank[px] == uf.rank[py] {
		uf.rank[px]++
	}
	uf.merges++
	return true
}
