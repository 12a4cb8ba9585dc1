package registration

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/pointcloud"
)

// RegistrationICP refines the initial transform by iterative closest point:
// alternating nearest neighbor correspondence assignment within maxDist and
// a least-squares pose update from the estimator, until both fitness and
// inlier RMSE change less than the criteria bounds or MaxIteration is hit.
//
// A nil init means identity, a nil estimation means point-to-point without
// scaling, and a zero criteria means the defaults.
func RegistrationICP(
	source, target *pointcloud.PointCloud,
	maxDist float64,
	init *mat.Dense,
	estimation TransformationEstimation,
	criteria ICPConvergenceCriteria,
) RegistrationResult {
	if init == nil {
		init = IdentityTransform()
	}
	if estimation == nil {
		estimation = NewTransformationEstimationPointToPoint(false)
	}
	criteria = criteria.orDefault()

	if maxDist <= 0 {
		return NewRegistrationResult(init)
	}

	transformation := cloneTransform(init)
	tree := pointcloud.ToKDTree(target)
	pcd := source.Clone()
	if !isIdentityTransform(init) {
		pcd.Transform(init)
	}
	result := registrationResultAndCorrespondences(pcd, target, tree, maxDist, transformation)
	for i := 0; i < criteria.MaxIteration; i++ {
		logger.Debugf("ICP Iteration #%d: Fitness %.4f, RMSE %.4f", i, result.Fitness, result.InlierRMSE)
		// The update is applied incrementally to the working cloud rather
		// than re-applying the composed transform to the original, keeping
		// each iteration O(|source|).
		update := estimation.ComputeTransformation(pcd, target, result.CorrespondenceSet)
		transformation = composeTransforms(update, transformation)
		pcd.Transform(update)
		backup := result
		result = registrationResultAndCorrespondences(pcd, target, tree, maxDist, transformation)
		if math.Abs(backup.Fitness-result.Fitness) < criteria.RelativeFitness &&
			math.Abs(backup.InlierRMSE-result.InlierRMSE) < criteria.RelativeRMSE {
			break
		}
	}
	return result
}
