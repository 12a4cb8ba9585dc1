package registration

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/pointcloud"
)

func TestCheckerBasedOnEdgeLength(t *testing.T) {
	source := pointcloud.NewFromPoints([]r3.Vector{
		{X: 0}, {X: 1}, {Y: 1},
	})
	sameShape := pointcloud.NewFromPoints([]r3.Vector{
		{X: 5}, {X: 6}, {X: 5, Y: 1},
	})
	squashed := pointcloud.NewFromPoints([]r3.Vector{
		{X: 0}, {X: 0.5}, {Y: 0.5},
	})
	corres := identityCorrespondences(3)

	checker := NewCorrespondenceCheckerBasedOnEdgeLength()
	test.That(t, checker.RequiresPointCloudAlignment(), test.ShouldBeFalse)
	test.That(t, checker.SimilarityThreshold, test.ShouldEqual, 0.9)
	test.That(t, checker.Check(source, sameShape, corres, nil), test.ShouldBeTrue)
	test.That(t, checker.Check(source, squashed, corres, nil), test.ShouldBeFalse)
}

func TestCheckerBasedOnDistance(t *testing.T) {
	source := tetrahedronCloud()
	target := source.Clone()
	shift := translation(0.5, 0, 0)
	target.Transform(shift)
	corres := identityCorrespondences(source.Size())

	checker := NewCorrespondenceCheckerBasedOnDistance(0.05)
	test.That(t, checker.RequiresPointCloudAlignment(), test.ShouldBeTrue)
	test.That(t, checker.Check(source, target, corres, shift), test.ShouldBeTrue)
	test.That(t, checker.Check(source, target, corres, IdentityTransform()), test.ShouldBeFalse)
}

func TestCheckerBasedOnNormal(t *testing.T) {
	source := pointcloud.New()
	source.AddWithNormal(r3.Vector{X: 1}, r3.Vector{X: 1})
	target := pointcloud.New()
	target.AddWithNormal(r3.Vector{X: 1}, r3.Vector{Y: 1})
	corres := identityCorrespondences(1)

	checker := NewCorrespondenceCheckerBasedOnNormal(0.2)
	test.That(t, checker.RequiresPointCloudAlignment(), test.ShouldBeTrue)
	// normals differ by 90 degrees under identity
	test.That(t, checker.Check(source, target, corres, IdentityTransform()), test.ShouldBeFalse)
	// a quarter turn about z aligns them
	test.That(t, checker.Check(source, target, corres, rotationZ(math.Pi/2)), test.ShouldBeTrue)

	// clouds without normals pass
	test.That(t, checker.Check(tetrahedronCloud(), tetrahedronCloud(), corres, IdentityTransform()), test.ShouldBeTrue)
}
