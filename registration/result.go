package registration

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/pointcloud"
	"go.viam.com/pointcloud/utils"
)

// RegistrationResult is the outcome of a registration call: the aligning
// transform, the inlier correspondences found under it, the fraction of
// source points matched (Fitness; for RANSAC over a supplied correspondence
// set, the fraction of that set) and the RMSE over the inliers.
//
// Fitness is zero exactly when CorrespondenceSet is empty, and InlierRMSE is
// then zero too. A perfect alignment also has a zero InlierRMSE.
type RegistrationResult struct {
	Transformation    *mat.Dense
	CorrespondenceSet CorrespondenceSet
	Fitness           float64
	InlierRMSE        float64
}

// NewRegistrationResult returns an empty result recording the given
// transform. A nil transform records identity.
func NewRegistrationResult(transformation *mat.Dense) RegistrationResult {
	if transformation == nil {
		transformation = IdentityTransform()
	}
	return RegistrationResult{Transformation: transformation}
}

// betterThan is the lexicographic (fitness, -rmse) comparator shared by the
// RANSAC incumbent updates and the final worker reduction. ICP does not use
// it; its convergence test compares absolute changes. Exact ties favor the
// incumbent.
func (r RegistrationResult) betterThan(other RegistrationResult) bool {
	if r.Fitness != other.Fitness {
		return r.Fitness > other.Fitness
	}
	return r.InlierRMSE < other.InlierRMSE
}

// registrationResultAndCorrespondences scores an already-transformed source
// cloud against the target via the target's KD-tree: every source point with
// a target neighbor within maxDist becomes a correspondence. The passed
// transformation is recorded verbatim; it is not applied here.
//
// The per-point searches fan out over the worker pool; each worker fills a
// private slot so the concatenation order is fixed by the work partition.
func registrationResultAndCorrespondences(
	source, target *pointcloud.PointCloud,
	targetTree *pointcloud.KDTree,
	maxDist float64,
	transformation *mat.Dense,
) RegistrationResult {
	result := NewRegistrationResult(transformation)
	if maxDist <= 0 {
		return result
	}

	var groupCorres []CorrespondenceSet
	var groupError2 []float64
	//nolint:errcheck
	utils.GroupWorkParallel(
		context.Background(),
		source.Size(),
		func(numGroups int) {
			groupCorres = make([]CorrespondenceSet, numGroups)
			groupError2 = make([]float64, numGroups)
		},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			corres := make(CorrespondenceSet, 0, groupSize)
			error2 := 0.0
			work := func(memberNum, workNum int) {
				indices, dists := targetTree.SearchHybridPoint(source.Point(workNum), maxDist, 1)
				if len(indices) > 0 {
					corres = append(corres, Correspondence{SourceIndex: workNum, TargetIndex: indices[0]})
					error2 += dists[0]
				}
			}
			done := func() {
				groupCorres[groupNum] = corres
				groupError2[groupNum] = error2
			}
			return work, done
		},
	)

	error2 := 0.0
	for i, corres := range groupCorres {
		result.CorrespondenceSet = append(result.CorrespondenceSet, corres...)
		error2 += groupError2[i]
	}
	finishResult(&result, error2, source.Size())
	return result
}

// scoreRegistration is the single-threaded form of
// registrationResultAndCorrespondences, used inside trials that are already
// running on the worker pool.
func scoreRegistration(
	source, target *pointcloud.PointCloud,
	targetTree *pointcloud.KDTree,
	maxDist float64,
	transformation *mat.Dense,
) RegistrationResult {
	result := NewRegistrationResult(transformation)
	if maxDist <= 0 {
		return result
	}
	error2 := 0.0
	for i := 0; i < source.Size(); i++ {
		indices, dists := targetTree.SearchHybridPoint(source.Point(i), maxDist, 1)
		if len(indices) > 0 {
			result.CorrespondenceSet = append(result.CorrespondenceSet, Correspondence{SourceIndex: i, TargetIndex: indices[0]})
			error2 += dists[0]
		}
	}
	finishResult(&result, error2, source.Size())
	return result
}

// evaluateRANSACBasedOnCorrespondence scores a candidate transform against a
// fixed putative correspondence set: an entry is an inlier when the
// transformed source point lies within maxDist of its target point. The
// fitness denominator is the size of the putative set.
func evaluateRANSACBasedOnCorrespondence(
	source, target *pointcloud.PointCloud,
	corres CorrespondenceSet,
	maxDist float64,
	transformation *mat.Dense,
) RegistrationResult {
	result := NewRegistrationResult(transformation)
	error2 := 0.0
	maxDist2 := maxDist * maxDist
	for _, c := range corres {
		p := pointcloud.TransformPoint(transformation, source.Point(c.SourceIndex))
		dist2 := p.Sub(target.Point(c.TargetIndex)).Norm2()
		if dist2 < maxDist2 {
			result.CorrespondenceSet = append(result.CorrespondenceSet, c)
			error2 += dist2
		}
	}
	finishResult(&result, error2, len(corres))
	return result
}

func finishResult(result *RegistrationResult, error2 float64, total int) {
	if len(result.CorrespondenceSet) == 0 {
		result.Fitness = 0
		result.InlierRMSE = 0
		return
	}
	n := len(result.CorrespondenceSet)
	result.Fitness = float64(n) / float64(total)
	result.InlierRMSE = math.Sqrt(error2 / float64(n))
}
