package registration

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/pointcloud"
	"go.viam.com/pointcloud/utils"
)

// DefaultRANSACCorrespondenceSampleSize is the minimal sample size for
// RANSAC over a supplied correspondence set.
const DefaultRANSACCorrespondenceSampleSize = 6

// DefaultRANSACFeatureSampleSize is the minimal sample size for RANSAC over
// feature matches.
const DefaultRANSACFeatureSampleSize = 4

// RegistrationRANSACBasedOnCorrespondence fits a transform to a putative
// correspondence set by repeated minimal-sample estimation: each trial
// samples ransacN correspondences with replacement, fits a transform, and
// scores it against the whole set. The best (fitness, -rmse) trial wins.
// Both criteria fields bound the same serial trial loop.
//
// ransacN of 0 means the default of 6; a ransacN below 3, an undersized
// correspondence set, or a non-positive maxDist returns the trivial result.
func RegistrationRANSACBasedOnCorrespondence(
	source, target *pointcloud.PointCloud,
	corres CorrespondenceSet,
	maxDist float64,
	estimation TransformationEstimation,
	ransacN int,
	criteria RANSACConvergenceCriteria,
) RegistrationResult {
	if estimation == nil {
		estimation = NewTransformationEstimationPointToPoint(false)
	}
	if ransacN == 0 {
		ransacN = DefaultRANSACCorrespondenceSampleSize
	}
	criteria = criteria.orDefault()

	if ransacN < 3 || len(corres) < ransacN || maxDist <= 0 {
		return NewRegistrationResult(nil)
	}

	seed := criteria.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	//nolint:gosec
	rng := rand.New(rand.NewSource(seed))

	result := NewRegistrationResult(nil)
	sample := make(CorrespondenceSet, ransacN)
	for itr := 0; itr < criteria.MaxIteration && itr < criteria.MaxValidation; itr++ {
		for j := 0; j < ransacN; j++ {
			sample[j] = corres[rng.Intn(len(corres))]
		}
		transformation := estimation.ComputeTransformation(source, target, sample)
		thisResult := evaluateRANSACBasedOnCorrespondence(source, target, corres, maxDist, transformation)
		if thisResult.betterThan(result) {
			result = thisResult
		}
	}
	logger.Debugf("RANSAC: Fitness %.4f, RMSE %.4f", result.Fitness, result.InlierRMSE)
	return result
}

// RegistrationRANSACBasedOnFeatureMatching aligns source to target globally
// using per-point descriptors: each trial draws ransacN random source
// points, matches each to its nearest target descriptor, filters the sample
// through the checkers, fits a transform and scores it with the KD-tree
// accumulator. Trials run on a fixed pool of utils.ParallelFactor workers
// competing for the best (fitness, -rmse) result; once MaxValidation trials
// have been fully scored the remaining iterations become no-ops.
//
// A source descriptor with no target neighbor is matched to target index 0;
// such degenerate samples are reported at debug level and left to lose on
// fitness.
//
// ransacN of 0 means the default of 4. A ransacN below 3 or a non-positive
// maxDist returns the trivial result. Mismatched descriptor shapes are a
// contract violation and return an error.
func RegistrationRANSACBasedOnFeatureMatching(
	source, target *pointcloud.PointCloud,
	sourceFeature, targetFeature *Feature,
	maxDist float64,
	estimation TransformationEstimation,
	ransacN int,
	checkers []CorrespondenceChecker,
	criteria RANSACConvergenceCriteria,
) (RegistrationResult, error) {
	if estimation == nil {
		estimation = NewTransformationEstimationPointToPoint(false)
	}
	if ransacN == 0 {
		ransacN = DefaultRANSACFeatureSampleSize
	}
	criteria = criteria.orDefault()

	if sourceFeature == nil || targetFeature == nil {
		return NewRegistrationResult(nil), errors.New("source and target features must be non-nil")
	}
	if sourceFeature.Dim() != targetFeature.Dim() {
		return NewRegistrationResult(nil), errors.Errorf(
			"source feature dimension %d does not match target feature dimension %d",
			sourceFeature.Dim(), targetFeature.Dim())
	}
	if sourceFeature.Num() != source.Size() || targetFeature.Num() != target.Size() {
		return NewRegistrationResult(nil), errors.Errorf(
			"feature counts %d/%d do not match cloud sizes %d/%d",
			sourceFeature.Num(), targetFeature.Num(), source.Size(), target.Size())
	}
	if ransacN < 3 || maxDist <= 0 || source.Size() == 0 {
		return NewRegistrationResult(nil), nil
	}

	// The point and feature trees are read-only once built and shared by all
	// workers.
	var tree, featureTree *pointcloud.KDTree
	_, err := utils.RunInParallel(context.Background(), []utils.SimpleFunc{
		func(ctx context.Context) error {
			tree = pointcloud.ToKDTree(target)
			return nil
		},
		func(ctx context.Context) error {
			var err error
			featureTree, err = targetFeature.toKDTree()
			return err
		},
	})
	if err != nil {
		return NewRegistrationResult(nil), err
	}

	baseSeed := criteria.Seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	best := NewRegistrationResult(nil)
	var mu sync.Mutex
	totalValidation := 0
	var finished atomic.Bool

	//nolint:errcheck
	utils.GroupWorkParallel(
		context.Background(),
		criteria.MaxIteration,
		func(numGroups int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			// Each worker owns its PRNG stream, its incumbent, and a working
			// clone of the source cloud reused across trials.
			//nolint:gosec
			rng := rand.New(rand.NewSource(baseSeed * int64(groupNum+1)))
			resultPrivate := NewRegistrationResult(nil)
			sample := make(CorrespondenceSet, ransacN)
			pcd := pointcloud.NewWithPrealloc(source.Size())

			work := func(memberNum, workNum int) {
				if finished.Load() {
					return
				}
				for j := 0; j < ransacN; j++ {
					sourceIndex := rng.Intn(source.Size())
					indices, _ := featureTree.SearchKNN(sourceFeature.Column(sourceIndex), 1)
					if len(indices) == 0 {
						logger.Debug("found a feature without neighbors")
						sample[j] = Correspondence{SourceIndex: sourceIndex, TargetIndex: 0}
					} else {
						sample[j] = Correspondence{SourceIndex: sourceIndex, TargetIndex: indices[0]}
					}
				}
				// Cheap checkers run before the estimator and see a
				// placeholder transform.
				unset := IdentityTransform()
				for _, checker := range checkers {
					if !checker.RequiresPointCloudAlignment() && !checker.Check(source, target, sample, unset) {
						return
					}
				}
				transformation := estimation.ComputeTransformation(source, target, sample)
				for _, checker := range checkers {
					if checker.RequiresPointCloudAlignment() && !checker.Check(source, target, sample, transformation) {
						return
					}
				}
				pcd.CopyFrom(source)
				pcd.Transform(transformation)
				thisResult := scoreRegistration(pcd, target, tree, maxDist, transformation)
				if thisResult.betterThan(resultPrivate) {
					resultPrivate = thisResult
				}
				mu.Lock()
				totalValidation++
				if totalValidation >= criteria.MaxValidation {
					finished.Store(true)
				}
				mu.Unlock()
			}
			done := func() {
				mu.Lock()
				if resultPrivate.betterThan(best) {
					best = resultPrivate
				}
				mu.Unlock()
			}
			return work, done
		},
	)

	logger.Debugf("RANSAC: Fitness %.4f, RMSE %.4f", best.Fitness, best.InlierRMSE)
	return best, nil
}
