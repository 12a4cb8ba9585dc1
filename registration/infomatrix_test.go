package registration

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/pointcloud"
)

func TestInformationMatrixHandComputed(t *testing.T) {
	source := pointcloud.NewFromPoints([]r3.Vector{{}, {}})
	target := pointcloud.NewFromPoints([]r3.Vector{
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
	})
	result := NewRegistrationResult(nil)
	result.CorrespondenceSet = identityCorrespondences(2)

	got := GetInformationMatrixFromRegistrationResult(source, target, result)

	want := mat.NewSymDense(6, []float64{
		3, 0, 0, 0, 0, -2,
		0, 3, 0, 0, 0, 2,
		0, 0, 3, 2, -2, 0,
		0, 0, 2, 5, 0, 0,
		0, 0, -2, 0, 5, 0,
		-2, 2, 0, 0, 0, 9,
	})
	test.That(t, mat.EqualApprox(got, want, 1e-12), test.ShouldBeTrue)
}

func TestInformationMatrixEmptyResult(t *testing.T) {
	source := tetrahedronCloud()
	target := tetrahedronCloud()
	got := GetInformationMatrixFromRegistrationResult(source, target, NewRegistrationResult(nil))

	identity := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		identity.SetSym(i, i, 1)
	}
	test.That(t, mat.EqualApprox(got, identity, 0), test.ShouldBeTrue)
}

func TestInformationMatrixPositiveDefinite(t *testing.T) {
	source := randomCloud(9, 50, 2.0)
	target := source.Clone()
	result := EvaluateRegistration(source, target, 0.01, nil)
	test.That(t, result.Fitness, test.ShouldEqual, 1.0)

	info := GetInformationMatrixFromRegistrationResult(source, target, result)

	// symmetric positive definite iff the Cholesky factorization exists
	var chol mat.Cholesky
	test.That(t, chol.Factorize(info), test.ShouldBeTrue)
}
