package registration

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/pointcloud"
)

func tetrahedronCloud() *pointcloud.PointCloud {
	return pointcloud.NewFromPoints([]r3.Vector{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1},
	})
}

func translation(x, y, z float64) *mat.Dense {
	t := IdentityTransform()
	t.Set(0, 3, x)
	t.Set(1, 3, y)
	t.Set(2, 3, z)
	return t
}

func rotationZ(theta float64) *mat.Dense {
	c, s := math.Cos(theta), math.Sin(theta)
	t := IdentityTransform()
	t.Set(0, 0, c)
	t.Set(0, 1, -s)
	t.Set(1, 0, s)
	t.Set(1, 1, c)
	return t
}

func TestEvaluateRegistrationIdentity(t *testing.T) {
	cloud := tetrahedronCloud()
	result := EvaluateRegistration(cloud, cloud, 0.01, nil)
	test.That(t, result.Fitness, test.ShouldEqual, 1.0)
	test.That(t, result.InlierRMSE, test.ShouldEqual, 0.0)
	test.That(t, result.CorrespondenceSet, test.ShouldHaveLength, 4)
	for _, c := range result.CorrespondenceSet {
		test.That(t, c.TargetIndex, test.ShouldEqual, c.SourceIndex)
	}
	test.That(t, isIdentityTransform(result.Transformation), test.ShouldBeTrue)
}

func TestEvaluateRegistrationTransformConsistency(t *testing.T) {
	source := tetrahedronCloud()
	transform := composeTransforms(translation(0.2, -0.1, 0.3), rotationZ(0.7))
	target := source.Clone()
	target.Transform(transform)

	result := EvaluateRegistration(source, target, 0.1, transform)
	test.That(t, result.Fitness, test.ShouldEqual, 1.0)
	test.That(t, result.InlierRMSE, test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, result.CorrespondenceSet, test.ShouldHaveLength, 4)
}

func TestEvaluateRegistrationInvalidMaxDist(t *testing.T) {
	cloud := tetrahedronCloud()
	init := translation(1, 2, 3)
	result := EvaluateRegistration(cloud, cloud, 0, init)
	test.That(t, result.Fitness, test.ShouldEqual, 0.0)
	test.That(t, result.InlierRMSE, test.ShouldEqual, 0.0)
	test.That(t, result.CorrespondenceSet, test.ShouldHaveLength, 0)
	test.That(t, mat.EqualApprox(result.Transformation, init, 0), test.ShouldBeTrue)
}

func TestEvaluateRegistrationPartialOverlap(t *testing.T) {
	source := tetrahedronCloud()
	target := pointcloud.NewFromPoints([]r3.Vector{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 100, Y: 100, Z: 100},
	})
	result := EvaluateRegistration(source, target, 0.25, nil)
	test.That(t, result.Fitness, test.ShouldEqual, 0.5)
	test.That(t, result.CorrespondenceSet, test.ShouldHaveLength, 2)
	test.That(t, result.InlierRMSE, test.ShouldEqual, 0.0)
}

func TestResultComparator(t *testing.T) {
	better := RegistrationResult{Fitness: 0.9, InlierRMSE: 0.2}
	worse := RegistrationResult{Fitness: 0.5, InlierRMSE: 0.1}
	test.That(t, better.betterThan(worse), test.ShouldBeTrue)
	test.That(t, worse.betterThan(better), test.ShouldBeFalse)

	tieBreak := RegistrationResult{Fitness: 0.9, InlierRMSE: 0.1}
	test.That(t, tieBreak.betterThan(better), test.ShouldBeTrue)
	test.That(t, better.betterThan(tieBreak), test.ShouldBeFalse)

	equal := RegistrationResult{Fitness: 0.9, InlierRMSE: 0.2}
	test.That(t, equal.betterThan(better), test.ShouldBeFalse)
}
