package registration

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/pointcloud"
	"go.viam.com/pointcloud/utils"
)

// GetInformationMatrixFromRegistrationResult builds the 6x6 Gauss-Newton
// approximation of the alignment's sensitivity over the result's
// correspondence set, for use as an edge information matrix in pose graph
// optimization. Each matched target point (x, y, z) contributes three rank-1
// updates on top of an identity prior, which keeps the matrix positive
// definite even with few correspondences.
func GetInformationMatrixFromRegistrationResult(
	source, target *pointcloud.PointCloud,
	result RegistrationResult,
) *mat.SymDense {
	var groupGTG [][6][6]float64
	//nolint:errcheck
	utils.GroupWorkParallel(
		context.Background(),
		len(result.CorrespondenceSet),
		func(numGroups int) {
			groupGTG = make([][6][6]float64, numGroups)
		},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			var gtg [6][6]float64
			work := func(memberNum, workNum int) {
				t := target.Point(result.CorrespondenceSet[workNum].TargetIndex)
				addRankOne(&gtg, [6]float64{1, 0, 0, 0, 2 * t.Z, -2 * t.Y})
				addRankOne(&gtg, [6]float64{0, 1, 0, -2 * t.Z, 0, 2 * t.X})
				addRankOne(&gtg, [6]float64{0, 0, 1, 2 * t.Y, -2 * t.X, 0})
			}
			done := func() {
				groupGTG[groupNum] = gtg
			}
			return work, done
		},
	)

	out := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		out.SetSym(i, i, 1)
	}
	for _, gtg := range groupGTG {
		for i := 0; i < 6; i++ {
			for j := i; j < 6; j++ {
				out.SetSym(i, j, out.At(i, j)+gtg[i][j])
			}
		}
	}
	return out
}

func addRankOne(gtg *[6][6]float64, g [6]float64) {
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			gtg[i][j] += g[i] * g[j]
		}
	}
}
