package cluster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Link is one agglomeration step. A and B are cluster labels: labels below n
// are original observations and label n+i is the cluster formed by step i.
// A is always the smaller label.
type Link struct {
	A        int
	B        int
	Distance float64
	Size     int
}

// Ward computes the Ward variance-minimizing linkage of the observation
// vectors using Euclidean distances. It returns n-1 links ordered by distance.
func Ward(obs [][]float64) []Link {
	n := len(obs)
	if n < 2 {
		return nil
	}
	d := make([]float64, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d[condensed(n, i, j)] = floats.Distance(obs[i], obs[j], 2)
		}
	}
	links := nnChain(d, n)
	sort.SliceStable(links, func(i, j int) bool { return links[i].Distance < links[j].Distance })
	relabel(links, n)
	return links
}

func condensed(n, i, j int) int {
	if i > j {
		i, j = j, i
	}
	return n*i - i*(i+1)/2 + (j - i - 1)
}

// wardUpdate is the Lance-Williams update for Ward linkage.
func wardUpdate(dxi, dyi, dxy float64, nx, ny, ni int) float64 {
	t := 1.0 / float64(nx+ny+ni)
	v := float64(ni+nx)*t*dxi*dxi +
		float64(ni+ny)*t*dyi*dyi -
		float64(ni)*t*dxy*dxy
	return math.Sqrt(math.Max(v, 0))
}

// nnChain runs the nearest-neighbour chain algorithm. Links hold slot indices;
// a merged cluster is stored in the slot of its larger index.
func nnChain(d []float64, n int) []Link {
	links := make([]Link, 0, n-1)
	size := make([]int, n)
	for i := range size {
		size[i] = 1
	}
	chain := make([]int, 0, n)

	for k := 0; k < n-1; k++ {
		if len(chain) == 0 {
			for i := 0; i < n; i++ {
				if size[i] > 0 {
					chain = append(chain, i)
					break
				}
			}
		}

		var x, y int
		var best float64
		for {
			x = chain[len(chain)-1]
			if len(chain) > 1 {
				y = chain[len(chain)-2]
				best = d[condensed(n, x, y)]
			} else {
				best = math.Inf(1)
			}
			for i := 0; i < n; i++ {
				if size[i] == 0 || i == x {
					continue
				}
				if dist := d[condensed(n, x, i)]; dist < best {
					best = dist
					y = i
				}
			}
			if len(chain) > 1 && y == chain[len(chain)-2] {
				break
			}
			chain = append(chain, y)
		}
		chain = chain[:len(chain)-2]

		if x > y {
			x, y = y, x
		}
		nx, ny := size[x], size[y]
		links = append(links, Link{A: x, B: y, Distance: best, Size: nx + ny})
		size[x] = 0
		size[y] = nx + ny

		for i := 0; i < n; i++ {
			ni := size[i]
			if ni == 0 || i == y {
				continue
			}
			d[condensed(n, i, y)] = wardUpdate(d[condensed(n, i, x)], d[condensed(n, i, y)], best, nx, ny, ni)
		}
	}
	return links
}

// relabel rewrites slot indices as cluster labels using a union-find over
// the sorted links.
func relabel(links []Link, n int) {
	parent := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = i
	}
	size := make([]int, 2*n-1)
	for i := 0; i < n; i++ {
		size[i] = 1
	}
	find := func(x int) int {
		root := x
		for parent[root] != root {
			root = parent[root]
		}
		for parent[x] != root {
			parent[x], x = root, parent[x]
		}
		return root
	}
	next := n
	for i := range links {
		a, b := find(links[i].A), find(links[i].B)
		if a > b {
			a, b = b, a
		}
		parent[a], parent[b] = next, next
		size[next] = size[a] + size[b]
		links[i].A, links[i].B, links[i].Size = a, b, size[next]
		next++
	}
}
