package tetrahedra

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// ReverseTransform inverts the tet transform A without dividing by its
// determinant. For any Cartesian x:
//
//	detA·y = detA·(1,0,0,0) + (x - centre)·T
//
// A flat or inverted tet gives detA <= 0; nothing here fails on it.
func ReverseTransform(A BarycentricTensor) (centre r3.Vec, detA float64, T BarycentricTensor) {
	ab := r3.Sub(A[1], A[0])
	ac := r3.Sub(A[2], A[0])
	ad := r3.Sub(A[3], A[0])
	bc := r3.Sub(A[2], A[1])
	bd := r3.Sub(A[3], A[1])

	centre = A[0]
	detA = r3.Dot(ab, r3.Cross(ac, ad))
	T = BarycentricTensor{
		r3.Cross(bd, bc),
		r3.Cross(ac, ad),
		r3.Cross(ad, ab),
		r3.Cross(ab, ac),
	}
	return
}

// ToBarycentric returns the coordinates of x in the tet A. The caller must
// ensure the tet is not flat.
func ToBarycentric(A BarycentricTensor, x r3.Vec) Barycentric {
	centre, detA, T := ReverseTransform(A)
	return CentreCoordinates.Add(T.Project(r3.Sub(x, centre)).Scale(1 / detA))
}

// MovingReverseTransform is ReverseTransform for a tet whose vertices move
// linearly over the track, A(t) = A[0] + t·A[1]. The results are polynomial
// in t: the centre is linear, the determinant cubic and T quadratic, with
// coefficients in ascending powers of t.
func MovingReverseTransform(A Pair[BarycentricTensor]) (centre Pair[r3.Vec], detA [4]float64, T [3]BarycentricTensor) {
	var ab, ac, ad, bc, bd Pair[r3.Vec]
	for i := 0; i < 2; i++ {
		ab[i] = r3.Sub(A[i][1], A[i][0])
		ac[i] = r3.Sub(A[i][2], A[i][0])
		ad[i] = r3.Sub(A[i][3], A[i][0])
		bc[i] = r3.Sub(A[i][2], A[i][1])
		bd[i] = r3.Sub(A[i][3], A[i][1])
	}

	centre = Pair[r3.Vec]{A[0][0], A[1][0]}

	triple := func(u, v, w r3.Vec) float64 { return r3.Dot(u, r3.Cross(v, w)) }
	detA[0] = triple(ab[0], ac[0], ad[0])
	detA[1] = triple(ab[1], ac[0], ad[0]) + triple(ab[0], ac[1], ad[0]) + triple(ab[0], ac[0], ad[1])
	detA[2] = triple(ab[0], ac[1], ad[1]) + triple(ab[1], ac[0], ad[1]) + triple(ab[1], ac[1], ad[0])
	detA[3] = triple(ab[1], ac[1], ad[1])

	// Each entry of T is a cross product of two linearly varying edges
	cross := func(u, v Pair[r3.Vec]) [3]r3.Vec {
		return [3]r3.Vec{
			r3.Cross(u[0], v[0]),
			r3.Add(r3.Cross(u[0], v[1]), r3.Cross(u[1], v[0])),
			r3.Cross(u[1], v[1]),
		}
	}
	entries := [4][3]r3.Vec{cross(bd, bc), cross(ac, ad), cross(ad, ab), cross(ab, ac)}
	for k := 0; k < 3; k++ {
		for i := 0; i < 4; i++ {
			T[k][i] = entries[i][k]
		}
	}
	return
}

// Volume returns the signed volume of the tet with vertices a, b, c, d
func Volume(a, b, c, d r3.Vec) float64 {
	return r3.Dot(r3.Sub(b, a), r3.Cross(r3.Sub(c, a), r3.Sub(d, a))) / 6
}

// TriangleNormal returns the unit normal of the triangle a, b, c, oriented by
// the right hand rule. A degenerate triangle gives the zero vector.
func TriangleNormal(a, b, c r3.Vec) r3.Vec {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	if mag := r3.Norm(n); mag > 0 {
		return r3.Scale(1/mag, n)
	}
	return r3.Vec{}
}
