// Package registration aligns a source point cloud to a target point cloud
// by computing a rigid (or, with a scaled estimator, affine) 4x4 homogeneous
// transform.
//
// Three algorithms share one supporting machinery: iterative closest point
// refinement from an initial guess, RANSAC over a supplied putative
// correspondence set, and RANSAC over per-point feature descriptors. A
// registration result can additionally be summarized as a 6x6 information
// matrix for downstream pose graph optimization.
//
// Invalid configurations (a non-positive correspondence distance, an
// undersized sample or correspondence set) are not errors: drivers return a
// trivial result carrying the supplied transform with zero fitness.
package registration

import (
	"github.com/edaniels/golog"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/pointcloud"
)

var logger = golog.NewLogger("registration")

// EvaluateRegistration scores how well the given transform aligns source to
// target: every source point within maxDist of a target point under the
// transform counts as an inlier.
func EvaluateRegistration(
	source, target *pointcloud.PointCloud,
	maxDist float64,
	transformation *mat.Dense,
) RegistrationResult {
	if transformation == nil {
		transformation = IdentityTransform()
	}
	tree := pointcloud.ToKDTree(target)
	pcd := source
	if !isIdentityTransform(transformation) {
		pcd = source.Clone()
		pcd.Transform(transformation)
	}
	return registrationResultAndCorrespondences(pcd, target, tree, maxDist, transformation)
}
