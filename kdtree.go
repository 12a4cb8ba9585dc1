package pointcloud

import (
	"container/heap"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// KDTree is a k-dimensional tree over a fixed set of coordinates. The same
// structure serves 3D point queries and D-dimensional feature queries; the
// dimension is set at construction. A built tree is read-only and safe for
// concurrent searches.
type KDTree struct {
	dim  int
	data [][]float64
	root *kdNode
}

type kdNode struct {
	index       int
	axis        int
	left, right *kdNode
}

// ToKDTree builds a 3-dimensional KDTree over the points of a cloud. Search
// results are indices into the cloud.
func ToKDTree(cloud *PointCloud) *KDTree {
	data := make([][]float64, cloud.Size())
	for i, p := range cloud.Points() {
		data[i] = []float64{p.X, p.Y, p.Z}
	}
	t, _ := NewKDTreeFromData(3, data)
	return t
}

// NewKDTreeFromData builds a KDTree of the given dimension over a set of
// coordinate vectors. Search results are indices into data.
func NewKDTreeFromData(dim int, data [][]float64) (*KDTree, error) {
	if dim <= 0 {
		return nil, errors.Errorf("invalid kd-tree dimension %d", dim)
	}
	for i, d := range data {
		if len(d) != dim {
			return nil, errors.Errorf("kd-tree datum %d has dimension %d, expected %d", i, len(d), dim)
		}
	}
	t := &KDTree{dim: dim, data: data}
	indices := make([]int, len(data))
	for i := range indices {
		indices[i] = i
	}
	t.root = t.build(indices, 0)
	return t, nil
}

// Dim returns the dimension the tree was built over.
func (t *KDTree) Dim() int {
	return t.dim
}

// Size returns the number of indexed vectors.
func (t *KDTree) Size() int {
	return len(t.data)
}

func (t *KDTree) build(indices []int, depth int) *kdNode {
	if len(indices) == 0 {
		return nil
	}
	axis := depth % t.dim
	sort.Slice(indices, func(i, j int) bool {
		return t.data[indices[i]][axis] < t.data[indices[j]][axis]
	})
	median := len(indices) / 2
	return &kdNode{
		index: indices[median],
		axis:  axis,
		left:  t.build(indices[:median], depth+1),
		right: t.build(indices[median+1:], depth+1),
	}
}

// neighborHeap is a bounded max-heap of candidate neighbors keyed on squared
// distance, so the worst candidate is always on top.
type neighborHeap []neighbor

type neighbor struct {
	index int
	dist2 float64
}

func (h neighborHeap) Len() int            { return len(h) }
func (h neighborHeap) Less(i, j int) bool  { return h[i].dist2 > h[j].dist2 }
func (h neighborHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *neighborHeap) Push(x interface{}) { *h = append(*h, x.(neighbor)) }
func (h *neighborHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// SearchKNN returns the indices of the k nearest neighbors to the query,
// together with their squared distances, ordered nearest first. Fewer than k
// results are returned when the tree holds fewer than k vectors.
func (t *KDTree) SearchKNN(query []float64, k int) ([]int, []float64) {
	return t.search(query, k, -1)
}

// SearchHybrid returns up to k nearest neighbors within the given radius of
// the query, ordered nearest first. A radius <= 0 returns no neighbors.
func (t *KDTree) SearchHybrid(query []float64, radius float64, k int) ([]int, []float64) {
	if radius <= 0 {
		return nil, nil
	}
	return t.search(query, k, radius*radius)
}

// SearchKNNPoint is SearchKNN for a 3-dimensional tree.
func (t *KDTree) SearchKNNPoint(query r3.Vector, k int) ([]int, []float64) {
	return t.SearchKNN([]float64{query.X, query.Y, query.Z}, k)
}

// SearchHybridPoint is SearchHybrid for a 3-dimensional tree.
func (t *KDTree) SearchHybridPoint(query r3.Vector, radius float64, k int) ([]int, []float64) {
	return t.SearchHybrid([]float64{query.X, query.Y, query.Z}, radius, k)
}

// search walks the tree collecting candidates in a bounded max-heap.
// maxDist2 < 0 means unbounded.
func (t *KDTree) search(query []float64, k int, maxDist2 float64) ([]int, []float64) {
	if k <= 0 || t.root == nil {
		return nil, nil
	}
	h := make(neighborHeap, 0, k)
	t.searchNode(t.root, query, k, maxDist2, &h)

	indices := make([]int, len(h))
	dists := make([]float64, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		n := heap.Pop(&h).(neighbor)
		indices[i] = n.index
		dists[i] = n.dist2
	}
	return indices, dists
}

func (t *KDTree) searchNode(node *kdNode, query []float64, k int, maxDist2 float64, h *neighborHeap) {
	if node == nil {
		return
	}
	d2 := t.squaredDistance(node.index, query)
	if (maxDist2 < 0 || d2 <= maxDist2) && (h.Len() < k || d2 < (*h)[0].dist2) {
		if h.Len() == k {
			heap.Pop(h)
		}
		heap.Push(h, neighbor{index: node.index, dist2: d2})
	}

	diff := query[node.axis] - t.data[node.index][node.axis]
	near, far := node.left, node.right
	if diff > 0 {
		near, far = far, near
	}
	t.searchNode(near, query, k, maxDist2, h)

	// The far subtree can only contain closer candidates if the splitting
	// plane is within the current search bound.
	bound := maxDist2
	if h.Len() == k && (bound < 0 || (*h)[0].dist2 < bound) {
		bound = (*h)[0].dist2
	}
	if bound < 0 || diff*diff <= bound {
		t.searchNode(far, query, k, maxDist2, h)
	}
}

func (t *KDTree) squaredDistance(index int, query []float64) float64 {
	var sum float64
	for i, q := range query {
		d := t.data[index][i] - q
		sum += d * d
	}
	return sum
}
