package registration

import (
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestICPPureTranslation(t *testing.T) {
	source := tetrahedronCloud()
	target := source.Clone()
	target.Transform(translation(0.5, 0, 0))

	result := RegistrationICP(source, target, 1.0, nil, nil, ICPConvergenceCriteria{})
	test.That(t, result.Fitness, test.ShouldEqual, 1.0)
	test.That(t, result.InlierRMSE, test.ShouldAlmostEqual, 0.0, 1e-4)
	test.That(t, result.Transformation.At(0, 3), test.ShouldAlmostEqual, 0.5, 1e-4)
	test.That(t, result.Transformation.At(1, 3), test.ShouldAlmostEqual, 0.0, 1e-4)
	test.That(t, result.Transformation.At(2, 3), test.ShouldAlmostEqual, 0.0, 1e-4)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			test.That(t, result.Transformation.At(i, j), test.ShouldAlmostEqual, want, 1e-4)
		}
	}
}

func TestICPFixedPoint(t *testing.T) {
	source := asymmetricCloud()
	truth := composeTransforms(translation(0.3, -0.2, 0.1), rotationZ(0.4))
	target := source.Clone()
	target.Transform(truth)

	// starting at the optimum, ICP must stay there
	result := RegistrationICP(source, target, 0.5, truth, nil, NewICPConvergenceCriteria())
	test.That(t, result.Fitness, test.ShouldEqual, 1.0)
	test.That(t, result.InlierRMSE, test.ShouldAlmostEqual, 0.0, 1e-6)
	test.That(t, mat.EqualApprox(result.Transformation, truth, 1e-6), test.ShouldBeTrue)
}

func TestICPInvalidMaxDist(t *testing.T) {
	source := tetrahedronCloud()
	init := translation(1, 2, 3)
	result := RegistrationICP(source, source, 0, init, nil, NewICPConvergenceCriteria())
	test.That(t, result.Fitness, test.ShouldEqual, 0.0)
	test.That(t, result.InlierRMSE, test.ShouldEqual, 0.0)
	test.That(t, result.CorrespondenceSet, test.ShouldHaveLength, 0)
	test.That(t, mat.EqualApprox(result.Transformation, init, 0), test.ShouldBeTrue)
}

func TestICPConvergesWithinCriteria(t *testing.T) {
	source := asymmetricCloud()
	target := source.Clone()
	target.Transform(translation(0.05, -0.05, 0.02))

	criteria := NewICPConvergenceCriteria()
	criteria.MaxIteration = 50
	result := RegistrationICP(source, target, 0.5, nil, NewTransformationEstimationPointToPoint(false), criteria)
	test.That(t, result.Fitness, test.ShouldEqual, 1.0)
	test.That(t, result.InlierRMSE, test.ShouldAlmostEqual, 0.0, 1e-4)
}
