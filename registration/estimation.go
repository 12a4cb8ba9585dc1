package registration

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/pointcloud"
)

// TransformationEstimationType identifies a concrete estimation strategy.
type TransformationEstimationType int

const (
	// TransformationEstimationTypeUnspecified is an unknown strategy.
	TransformationEstimationTypeUnspecified TransformationEstimationType = iota
	// TransformationEstimationTypePointToPoint is the Umeyama closed-form fit.
	TransformationEstimationTypePointToPoint
	// TransformationEstimationTypePointToPlane is the point-to-plane Gauss-Newton step.
	TransformationEstimationTypePointToPlane
)

// TransformationEstimation produces a best-fit 4x4 transform mapping the
// source points of a correspondence set onto their target points.
//
// Implementations must tolerate degenerate input (too few, coincident or
// collinear correspondences) without failing, returning identity or some
// other valid transform; drivers treat the resulting low-fitness trial as any
// other.
type TransformationEstimation interface {
	EstimationType() TransformationEstimationType
	ComputeTransformation(source, target *pointcloud.PointCloud, corres CorrespondenceSet) *mat.Dense
}

// TransformationEstimationPointToPoint computes the closed-form least-squares
// rigid transform between corresponding points, optionally with a uniform
// scale factor.
type TransformationEstimationPointToPoint struct {
	WithScaling bool
}

// NewTransformationEstimationPointToPoint returns a point-to-point estimator.
func NewTransformationEstimationPointToPoint(withScaling bool) TransformationEstimationPointToPoint {
	return TransformationEstimationPointToPoint{WithScaling: withScaling}
}

// EstimationType returns the strategy tag.
func (e TransformationEstimationPointToPoint) EstimationType() TransformationEstimationType {
	return TransformationEstimationTypePointToPoint
}

// ComputeTransformation runs the Umeyama alignment over the correspondence set.
func (e TransformationEstimationPointToPoint) ComputeTransformation(
	source, target *pointcloud.PointCloud, corres CorrespondenceSet,
) *mat.Dense {
	if len(corres) < 3 {
		return IdentityTransform()
	}

	n := float64(len(corres))
	var meanSource, meanTarget r3.Vector
	for _, c := range corres {
		meanSource = meanSource.Add(source.Point(c.SourceIndex))
		meanTarget = meanTarget.Add(target.Point(c.TargetIndex))
	}
	meanSource = meanSource.Mul(1 / n)
	meanTarget = meanTarget.Mul(1 / n)

	// Cross-covariance of the demeaned pairs, target rows by source columns,
	// and the source variance for the scale estimate.
	sigma := mat.NewDense(3, 3, nil)
	varSource := 0.0
	for _, c := range corres {
		s := source.Point(c.SourceIndex).Sub(meanSource)
		t := target.Point(c.TargetIndex).Sub(meanTarget)
		sCoords := []float64{s.X, s.Y, s.Z}
		tCoords := []float64{t.X, t.Y, t.Z}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				sigma.Set(i, j, sigma.At(i, j)+tCoords[i]*sCoords[j]/n)
			}
		}
		varSource += s.Norm2() / n
	}
	if varSource == 0 {
		return IdentityTransform()
	}

	var svd mat.SVD
	if ok := svd.Factorize(sigma, mat.SVDFull); !ok {
		return IdentityTransform()
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	// Correct an improper rotation by flipping the smallest singular
	// direction.
	sign := []float64{1, 1, 1}
	if mat.Det(&u)*mat.Det(&v) < 0 {
		sign[2] = -1
	}

	rotation := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += u.At(i, k) * sign[k] * v.At(j, k)
			}
			rotation.Set(i, j, sum)
		}
	}

	scale := 1.0
	if e.WithScaling {
		traceDS := 0.0
		for k := 0; k < 3; k++ {
			traceDS += values[k] * sign[k]
		}
		scale = traceDS / varSource
	}

	translation := meanTarget.Sub(rotateScale(rotation, meanSource, scale))

	out := IdentityTransform()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, scale*rotation.At(i, j))
		}
	}
	out.Set(0, 3, translation.X)
	out.Set(1, 3, translation.Y)
	out.Set(2, 3, translation.Z)
	return out
}

func rotateScale(rotation *mat.Dense, v r3.Vector, scale float64) r3.Vector {
	return r3.Vector{
		X: scale * (rotation.At(0, 0)*v.X + rotation.At(0, 1)*v.Y + rotation.At(0, 2)*v.Z),
		Y: scale * (rotation.At(1, 0)*v.X + rotation.At(1, 1)*v.Y + rotation.At(1, 2)*v.Z),
		Z: scale * (rotation.At(2, 0)*v.X + rotation.At(2, 1)*v.Y + rotation.At(2, 2)*v.Z),
	}
}

// TransformationEstimationPointToPlane takes one Gauss-Newton step on the
// point-to-plane error. The target cloud must carry normals; without them the
// estimator returns identity.
type TransformationEstimationPointToPlane struct{}

// NewTransformationEstimationPointToPlane returns a point-to-plane estimator.
func NewTransformationEstimationPointToPlane() TransformationEstimationPointToPlane {
	return TransformationEstimationPointToPlane{}
}

// EstimationType returns the strategy tag.
func (e TransformationEstimationPointToPlane) EstimationType() TransformationEstimationType {
	return TransformationEstimationTypePointToPlane
}

// ComputeTransformation solves the linearized point-to-plane normal equations
// over the correspondence set.
func (e TransformationEstimationPointToPlane) ComputeTransformation(
	source, target *pointcloud.PointCloud, corres CorrespondenceSet,
) *mat.Dense {
	if len(corres) == 0 || !target.HasNormals() {
		return IdentityTransform()
	}

	var ata [6][6]float64
	var atb [6]float64
	for _, c := range corres {
		p := source.Point(c.SourceIndex)
		q := target.Point(c.TargetIndex)
		normal := target.Normal(c.TargetIndex)
		residual := p.Sub(q).Dot(normal)
		a := p.Cross(normal)
		row := [6]float64{a.X, a.Y, a.Z, normal.X, normal.Y, normal.Z}
		for i := 0; i < 6; i++ {
			for j := 0; j < 6; j++ {
				ata[i][j] += row[i] * row[j]
			}
			atb[i] -= residual * row[i]
		}
	}

	sym := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		for j := i; j < 6; j++ {
			sym.SetSym(i, j, ata[i][j])
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return IdentityTransform()
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, mat.NewVecDense(6, atb[:])); err != nil {
		return IdentityTransform()
	}
	return transformFromPose6(x.AtVec(0), x.AtVec(1), x.AtVec(2), x.AtVec(3), x.AtVec(4), x.AtVec(5))
}

// transformFromPose6 builds the 4x4 transform for a small-angle pose update
// (alpha, beta, gamma) about X, Y, Z plus a translation, composed as
// RotZ(gamma) * RotY(beta) * RotX(alpha).
func transformFromPose6(alpha, beta, gamma, tx, ty, tz float64) *mat.Dense {
	ca, sa := math.Cos(alpha), math.Sin(alpha)
	cb, sb := math.Cos(beta), math.Sin(beta)
	cg, sg := math.Cos(gamma), math.Sin(gamma)

	out := IdentityTransform()
	out.Set(0, 0, cg*cb)
	out.Set(0, 1, cg*sb*sa-sg*ca)
	out.Set(0, 2, cg*sb*ca+sg*sa)
	out.Set(1, 0, sg*cb)
	out.Set(1, 1, sg*sb*sa+cg*ca)
	out.Set(1, 2, sg*sb*ca-cg*sa)
	out.Set(2, 0, -sb)
	out.Set(2, 1, cb*sa)
	out.Set(2, 2, cb*ca)
	out.Set(0, 3, tx)
	out.Set(1, 3, ty)
	out.Set(2, 3, tz)
	return out
}
