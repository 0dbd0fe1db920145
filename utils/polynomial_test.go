package utils

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPolynomialRoots(t *testing.T) {
	tests := []struct {
		name  string
		eqn   CubicEqn
		roots []float64
	}{
		{"three distinct", CubicEqn{1, -6, 11, -6}, []float64{1, 2, 3}},
		{"double root", CubicEqn{1, 0, -3, 2}, []float64{-2, 1}},
		{"triple root", CubicEqn{1, -3, 3, -1}, []float64{1}},
		{"one real", CubicEqn{1, 0, 1, -2}, []float64{1}},
		{"quadratic", CubicEqn{0, 1, -1, -2}, []float64{-1, 2}},
		{"linear", CubicEqn{0, 0, 2, -1}, []float64{0.5}},
		{"constant", CubicEqn{0, 0, 0, 1}, nil},
		{"complex quadratic", CubicEqn{0, 1, 0, 1}, nil},
		{"tiny leading coefficient", CubicEqn{1e-20, 1, -3, 2}, []float64{-1e20, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roots := tt.eqn.Roots()
			require.Len(t, roots, len(tt.roots))
			for i, r := range tt.roots {
				assert.InDelta(t, r, roots[i], 1e-7*math.Max(1, math.Abs(r)))
			}
		})
	}
}

// companionRoots returns the real eigenvalues of the companion matrix of a
// monic cubic
func companionRoots(t *testing.T, e CubicEqn) (roots []float64) {
	b, c, d := e.B/e.A, e.C/e.A, e.D/e.A
	companion := mat.NewDense(3, 3, []float64{
		-b, -c, -d,
		1, 0, 0,
		0, 1, 0,
	})
	var eig mat.Eigen
	require.True(t, eig.Factorize(companion, mat.EigenNone))
	for _, v := range eig.Values(nil) {
		if math.Abs(imag(v)) < 1e-9 {
			roots = append(roots, real(v))
		}
	}
	sort.Float64s(roots)
	return
}

func TestCubicAgainstCompanionMatrix(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		// Well separated real roots so both methods agree on the count
		r := []float64{rng.Float64() - 2, rng.Float64(), rng.Float64() + 2}
		scale := math.Pow(10, 4*rng.Float64()-2)
		e := CubicEqn{
			A: scale,
			B: -scale * (r[0] + r[1] + r[2]),
			C: scale * (r[0]*r[1] + r[1]*r[2] + r[0]*r[2]),
			D: -scale * r[0] * r[1] * r[2],
		}
		roots := e.Roots()
		expected := companionRoots(t, e)
		require.Len(t, roots, 3)
		require.Len(t, expected, 3)
		for k := range roots {
			assert.InDelta(t, expected[k], roots[k], 1e-9)
			assert.InDelta(t, r[k], roots[k], 1e-9)
			assert.InDelta(t, 0, e.Value(roots[k]), 1e-9*scale)
		}
	}
}
