package registration

import (
	"testing"

	"go.viam.com/test"
)

func TestFeatureBasic(t *testing.T) {
	feature, err := NewFeature(2, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, feature.Dim(), test.ShouldEqual, 2)
	test.That(t, feature.Num(), test.ShouldEqual, 3)

	feature.SetColumn(1, []float64{0.5, -1.5})
	test.That(t, feature.Column(1), test.ShouldResemble, []float64{0.5, -1.5})
	test.That(t, feature.Column(0), test.ShouldResemble, []float64{0, 0})

	_, err = NewFeature(0, 3)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFeatureFromData(t *testing.T) {
	feature, err := NewFeatureFromData(2, 2, []float64{1, 2, 3, 4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, feature.Column(0), test.ShouldResemble, []float64{1, 2})
	test.That(t, feature.Column(1), test.ShouldResemble, []float64{3, 4})

	_, err = NewFeatureFromData(2, 2, []float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFeatureKDTree(t *testing.T) {
	feature, err := NewFeatureFromData(2, 3, []float64{
		0, 0,
		1, 1,
		4, 4,
	})
	test.That(t, err, test.ShouldBeNil)
	tree, err := feature.toKDTree()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tree.Dim(), test.ShouldEqual, 2)

	indices, dists := tree.SearchKNN([]float64{1.2, 1.2}, 1)
	test.That(t, indices, test.ShouldResemble, []int{1})
	test.That(t, dists[0], test.ShouldAlmostEqual, 0.08)
}
