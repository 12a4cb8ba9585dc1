package registration

import (
	"gonum.org/v1/gonum/mat"
)

// IdentityTransform returns a new 4x4 identity transform.
func IdentityTransform() *mat.Dense {
	t := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		t.Set(i, i, 1)
	}
	return t
}

func isIdentityTransform(t *mat.Dense) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if t.At(i, j) != want {
				return false
			}
		}
	}
	return true
}

// composeTransforms returns a * b, the transform applying b first and then a.
func composeTransforms(a, b *mat.Dense) *mat.Dense {
	out := mat.NewDense(4, 4, nil)
	out.Mul(a, b)
	return out
}

func cloneTransform(t *mat.Dense) *mat.Dense {
	out := mat.NewDense(4, 4, nil)
	out.Copy(t)
	return out
}
