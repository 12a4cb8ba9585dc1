package registration

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/pointcloud"
)

// CorrespondenceChecker quickly rejects a sampled correspondence set before
// the full KD-tree scoring pass. Checkers that do not require alignment run
// before the estimator is invoked and receive a meaningless transform;
// checkers that do require alignment run after and receive the estimate.
type CorrespondenceChecker interface {
	// RequiresPointCloudAlignment reports whether the transform passed to
	// Check is meaningful at the time of the call.
	RequiresPointCloudAlignment() bool
	Check(source, target *pointcloud.PointCloud, corres CorrespondenceSet, transformation *mat.Dense) bool
}

// CorrespondenceCheckerBasedOnEdgeLength rejects samples whose polygon edges
// change length too much between source and target: every pair of
// correspondences must have edge lengths within SimilarityThreshold of each
// other in both directions. Runs before alignment.
type CorrespondenceCheckerBasedOnEdgeLength struct {
	SimilarityThreshold float64
}

// NewCorrespondenceCheckerBasedOnEdgeLength returns an edge length checker
// with the conventional threshold of 0.9.
func NewCorrespondenceCheckerBasedOnEdgeLength() CorrespondenceCheckerBasedOnEdgeLength {
	return CorrespondenceCheckerBasedOnEdgeLength{SimilarityThreshold: 0.9}
}

// RequiresPointCloudAlignment reports that this checker runs pre-alignment.
func (c CorrespondenceCheckerBasedOnEdgeLength) RequiresPointCloudAlignment() bool {
	return false
}

// Check compares all pairwise edge lengths.
func (c CorrespondenceCheckerBasedOnEdgeLength) Check(
	source, target *pointcloud.PointCloud, corres CorrespondenceSet, transformation *mat.Dense,
) bool {
	for i := 0; i < len(corres); i++ {
		for j := i + 1; j < len(corres); j++ {
			distSource := source.Point(corres[i].SourceIndex).Distance(source.Point(corres[j].SourceIndex))
			distTarget := target.Point(corres[i].TargetIndex).Distance(target.Point(corres[j].TargetIndex))
			if distSource < c.SimilarityThreshold*distTarget ||
				distTarget < c.SimilarityThreshold*distSource {
				return false
			}
		}
	}
	return true
}

// CorrespondenceCheckerBasedOnDistance rejects samples where any transformed
// source point lies farther than DistanceThreshold from its target point.
// Runs after alignment.
type CorrespondenceCheckerBasedOnDistance struct {
	DistanceThreshold float64
}

// NewCorrespondenceCheckerBasedOnDistance returns a distance checker.
func NewCorrespondenceCheckerBasedOnDistance(threshold float64) CorrespondenceCheckerBasedOnDistance {
	return CorrespondenceCheckerBasedOnDistance{DistanceThreshold: threshold}
}

// RequiresPointCloudAlignment reports that this checker needs the estimate.
func (c CorrespondenceCheckerBasedOnDistance) RequiresPointCloudAlignment() bool {
	return true
}

// Check verifies every correspondence under the candidate transform.
func (c CorrespondenceCheckerBasedOnDistance) Check(
	source, target *pointcloud.PointCloud, corres CorrespondenceSet, transformation *mat.Dense,
) bool {
	threshold2 := c.DistanceThreshold * c.DistanceThreshold
	for _, corr := range corres {
		p := pointcloud.TransformPoint(transformation, source.Point(corr.SourceIndex))
		if p.Sub(target.Point(corr.TargetIndex)).Norm2() > threshold2 {
			return false
		}
	}
	return true
}

// CorrespondenceCheckerBasedOnNormal rejects samples where the angle between
// a rotated source normal and its target normal exceeds
// NormalAngleThreshold (radians). Both clouds must carry normals; a cloud
// without them passes the check. Runs after alignment.
type CorrespondenceCheckerBasedOnNormal struct {
	NormalAngleThreshold float64
}

// NewCorrespondenceCheckerBasedOnNormal returns a normal consistency checker.
func NewCorrespondenceCheckerBasedOnNormal(angleThreshold float64) CorrespondenceCheckerBasedOnNormal {
	return CorrespondenceCheckerBasedOnNormal{NormalAngleThreshold: angleThreshold}
}

// RequiresPointCloudAlignment reports that this checker needs the estimate.
func (c CorrespondenceCheckerBasedOnNormal) RequiresPointCloudAlignment() bool {
	return true
}

// Check compares normal directions under the candidate transform's rotation.
func (c CorrespondenceCheckerBasedOnNormal) Check(
	source, target *pointcloud.PointCloud, corres CorrespondenceSet, transformation *mat.Dense,
) bool {
	if !source.HasNormals() || !target.HasNormals() {
		return true
	}
	cosThreshold := math.Cos(c.NormalAngleThreshold)
	for _, corr := range corres {
		rotated := pointcloud.RotateVector(transformation, source.Normal(corr.SourceIndex))
		if rotated.Dot(target.Normal(corr.TargetIndex)) < cosThreshold {
			return false
		}
	}
	return true
}
