package tetrahedra

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func randomVec(rng *rand.Rand) r3.Vec {
	return r3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
}

func randomBarycentric(rng *rand.Rand) Barycentric {
	y := Barycentric{rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()}
	return y.Scale(1 / y.Sum())
}

func assertVecInDelta(t *testing.T, expected, actual r3.Vec, delta float64) {
	t.Helper()
	assert.InDelta(t, expected.X, actual.X, delta)
	assert.InDelta(t, expected.Y, actual.Y, delta)
	assert.InDelta(t, expected.Z, actual.Z, delta)
}

func TestReverseTransform(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	{ // Test the reverse transform recovers the coordinates of random points
		for i := 0; i < 50; i++ {
			A := NewBarycentricTensor(randomVec(rng), randomVec(rng), randomVec(rng), randomVec(rng))
			y := randomBarycentric(rng)
			x := A.Apply(y)
			centre, detA, T := ReverseTransform(A)
			got := CentreCoordinates.Scale(detA).Add(T.Project(r3.Sub(x, centre)))
			for k := 0; k < 4; k++ {
				assert.InDelta(t, detA*y[k], got[k], 1e-12)
			}
			back := ToBarycentric(A, x)
			assert.InDelta(t, 1, back.Sum(), 1e-12)
		}
	}
	{ // Test an inverted tet gives a negative determinant and still inverts
		A := NewBarycentricTensor(
			r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Z: 1}, r3.Vec{Y: 1},
		)
		_, detA, _ := ReverseTransform(A)
		assert.InDelta(t, -1, detA, 1e-15)
		y := Barycentric{0.1, 0.2, 0.3, 0.4}
		got := ToBarycentric(A, A.Apply(y))
		for k := 0; k < 4; k++ {
			assert.InDelta(t, y[k], got[k], 1e-14)
		}
	}
	{ // Test a flat tet has zero determinant and does not panic
		A := NewBarycentricTensor(
			r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{X: 1, Y: 1},
		)
		assert.NotPanics(t, func() {
			_, detA, _ := ReverseTransform(A)
			assert.Equal(t, 0., detA)
		})
	}
}

func TestMovingReverseTransform(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 20; i++ {
		var A Pair[BarycentricTensor]
		for k := 0; k < 4; k++ {
			A[0][k] = randomVec(rng)
			A[1][k] = r3.Scale(0.3, randomVec(rng))
		}
		centre, detA, T := MovingReverseTransform(A)
		for _, tt := range []float64{0, 0.25, 0.7, 1} {
			At := A[0].Add(A[1].Scale(tt))
			c, d, Tt := ReverseTransform(At)
			assertVecInDelta(t, c, r3.Add(centre[0], r3.Scale(tt, centre[1])), 1e-14)
			poly := detA[0] + tt*(detA[1]+tt*(detA[2]+tt*detA[3]))
			assert.InDelta(t, d, poly, 1e-13)
			for k := 0; k < 4; k++ {
				v := r3.Add(T[0][k], r3.Scale(tt, r3.Add(T[1][k], r3.Scale(tt, T[2][k]))))
				assertVecInDelta(t, Tt[k], v, 1e-13)
			}
		}
	}
}

func TestBarycentric(t *testing.T) {
	y := Barycentric{0.5, -0.25, 0.5, 0.25}
	assert.Equal(t, 1., y.Sum())
	assert.Equal(t, Barycentric{1, -0.5, 1, 0.5}, y.Add(y))
	assert.Equal(t, Barycentric{}, y.Sub(y))
	n := TriangleNormal(r3.Vec{}, r3.Vec{X: 2}, r3.Vec{Y: 3})
	assert.Equal(t, r3.Vec{Z: 1}, n)
	assert.InDelta(t, 1./6, Volume(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: 1}), 1e-15)
}
