package tetrahedra

import "gonum.org/v1/gonum/spatial/r3"

// Barycentric is a position within a tetrahedron given as the weights of its
// four vertices (a, b, c, d). The weights of a valid coordinate sum to one.
type Barycentric [4]float64

// CentreCoordinates places a point on vertex a, the cell centre of a tracking tet.
var CentreCoordinates = Barycentric{1, 0, 0, 0}

func NewBarycentric(a, b, c, d float64) Barycentric {
	return Barycentric{a, b, c, d}
}

func (y Barycentric) Sum() float64 {
	return y[0] + y[1] + y[2] + y[3]
}

func (y Barycentric) Add(z Barycentric) Barycentric {
	return Barycentric{y[0] + z[0], y[1] + z[1], y[2] + z[2], y[3] + z[3]}
}

func (y Barycentric) Sub(z Barycentric) Barycentric {
	return Barycentric{y[0] - z[0], y[1] - z[1], y[2] - z[2], y[3] - z[3]}
}

func (y Barycentric) Scale(f float64) Barycentric {
	return Barycentric{f * y[0], f * y[1], f * y[2], f * y[3]}
}

// BarycentricTensor maps barycentric coordinates to Cartesian positions.
// Entry i is the Cartesian position of vertex i, so that x = A·y.
//
// The same layout holds the reverse transform T, whose entry i is the
// Cartesian direction that projects a displacement onto weight i.
type BarycentricTensor [4]r3.Vec

func NewBarycentricTensor(a, b, c, d r3.Vec) BarycentricTensor {
	return BarycentricTensor{a, b, c, d}
}

// Apply returns the Cartesian position of y
func (A BarycentricTensor) Apply(y Barycentric) r3.Vec {
	var x r3.Vec
	for i := range A {
		x = r3.Add(x, r3.Scale(y[i], A[i]))
	}
	return x
}

// Project returns the four components of v·T
func (T BarycentricTensor) Project(v r3.Vec) Barycentric {
	return Barycentric{
		r3.Dot(v, T[0]), r3.Dot(v, T[1]), r3.Dot(v, T[2]), r3.Dot(v, T[3]),
	}
}

func (A BarycentricTensor) Add(B BarycentricTensor) BarycentricTensor {
	return BarycentricTensor{
		r3.Add(A[0], B[0]), r3.Add(A[1], B[1]), r3.Add(A[2], B[2]), r3.Add(A[3], B[3]),
	}
}

func (A BarycentricTensor) Scale(f float64) BarycentricTensor {
	return BarycentricTensor{
		r3.Scale(f, A[0]), r3.Scale(f, A[1]), r3.Scale(f, A[2]), r3.Scale(f, A[3]),
	}
}

// Pair holds a quantity that varies linearly over a track: the value at the
// start of the track and its change over the whole track.
type Pair[T any] [2]T
