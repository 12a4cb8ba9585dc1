package registration

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/pointcloud"
)

// Feature holds per-point descriptors as a column-major D x N matrix: column
// i describes point i of its cloud.
type Feature struct {
	dim  int
	data *mat.Dense
}

// NewFeature returns an empty feature matrix of the given descriptor
// dimension and point count.
func NewFeature(dim, num int) (*Feature, error) {
	if dim <= 0 || num <= 0 {
		return nil, errors.Errorf("invalid feature shape %d x %d", dim, num)
	}
	return &Feature{dim: dim, data: mat.NewDense(dim, num, nil)}, nil
}

// NewFeatureFromData returns a feature matrix wrapping the given column-major
// data, len(data) == dim*num with column i at data[i*dim : (i+1)*dim].
func NewFeatureFromData(dim, num int, data []float64) (*Feature, error) {
	f, err := NewFeature(dim, num)
	if err != nil {
		return nil, err
	}
	if len(data) != dim*num {
		return nil, errors.Errorf("feature data length %d does not match shape %d x %d", len(data), dim, num)
	}
	for i := 0; i < num; i++ {
		f.SetColumn(i, data[i*dim:(i+1)*dim])
	}
	return f, nil
}

// Dim returns the descriptor dimension D.
func (f *Feature) Dim() int {
	return f.dim
}

// Num returns the number of described points N.
func (f *Feature) Num() int {
	_, n := f.data.Dims()
	return n
}

// Column returns a copy of descriptor i.
func (f *Feature) Column(i int) []float64 {
	col := make([]float64, f.dim)
	mat.Col(col, i, f.data)
	return col
}

// SetColumn overwrites descriptor i.
func (f *Feature) SetColumn(i int, desc []float64) {
	f.data.SetCol(i, desc)
}

// toKDTree builds a D-dimensional KD-tree over the descriptor columns.
func (f *Feature) toKDTree() (*pointcloud.KDTree, error) {
	data := make([][]float64, f.Num())
	for i := range data {
		data[i] = f.Column(i)
	}
	return pointcloud.NewKDTreeFromData(f.dim, data)
}
