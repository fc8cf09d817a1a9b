package sorts

// DisjointSet is a union-find over 0..n-1 with path compression and
// union by rank.
type DisjointSet struct {
	parent []int
	rank   []int
}

// NewDisjointSet creates n singleton sets.
func NewDisjointSet(n int) *DisjointSet {
	d := &DisjointSet{parent: make([]int, n), rank: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
	}
	return d
}

// Len returns the number of elements.
func (d *DisjointSet) Len() int { return len(d.parent) }

// Find returns the representative of i's set.
func (d *DisjointSet) Find(i int) int {
	root := i
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for d.parent[i] != root {
		d.parent[i], i = root, d.parent[i]
	}
	return root
}

// Union merges the sets of i and j and returns the new representative.
func (d *DisjointSet) Union(i, j int) int {
	ri, rj := d.Find(i), d.Find(j)
	if ri == rj {
		return ri
	}
	switch {
	case d.rank[ri] < d.rank[rj]:
		ri, rj = rj, ri
	case d.rank[ri] == d.rank[rj]:
		d.rank[ri]++
	}
	d.parent[rj] = ri
	return ri
}

// Classes returns the number of distinct sets.
func (d *DisjointSet) Classes() int {
	n := 0
	for i := range d.parent {
		if d.Find(i) == i {
			n++
		}
	}
	return n
}
