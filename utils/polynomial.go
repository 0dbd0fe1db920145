package utils

import (
	"math"
	"sort"
)

// LinearEqn is A·x + B
type LinearEqn struct {
	A, B float64
}

func (e LinearEqn) Value(x float64) float64 { return e.A*x + e.B }

// Roots returns the root, or none when A is zero
func (e LinearEqn) Roots() []float64 {
	if e.A == 0 {
		return nil
	}
	return []float64{-e.B / e.A}
}

// QuadraticEqn is A·x² + B·x + C
type QuadraticEqn struct {
	A, B, C float64
}

func (e QuadraticEqn) Value(x float64) float64 { return (e.A*x+e.B)*x + e.C }

func (e QuadraticEqn) Derivative(x float64) float64 { return 2*e.A*x + e.B }

// Roots returns the distinct real roots in ascending order
func (e QuadraticEqn) Roots() []float64 {
	if e.A == 0 {
		return LinearEqn{e.B, e.C}.Roots()
	}
	disc := e.B*e.B - 4*e.A*e.C
	switch {
	case disc < 0:
		return nil
	case disc == 0:
		return []float64{-e.B / (2 * e.A)}
	}
	// Avoids cancellation between B and the root of the discriminant
	q := -0.5 * (e.B + math.Copysign(math.Sqrt(disc), e.B))
	roots := []float64{q / e.A, e.C / q}
	sort.Float64s(roots)
	return roots
}

// CubicEqn is A·x³ + B·x² + C·x + D
type CubicEqn struct {
	A, B, C, D float64
}

func (e CubicEqn) Value(x float64) float64 { return ((e.A*x+e.B)*x+e.C)*x + e.D }

func (e CubicEqn) Derivative(x float64) float64 { return (3*e.A*x+2*e.B)*x + e.C }

// rootBound caps the search interval for the outermost roots of a cubic
// whose leading coefficient is tiny against the others
const rootBound = 1e150

// Roots returns the distinct real roots in ascending order. A vanishing
// leading coefficient reduces the equation to a quadratic or linear one.
//
// The turning points split the real line into intervals on which the cubic
// is monotonic. Each interval that brackets a sign change holds exactly one
// root, which is found by safeguarded Newton iteration. This stays accurate
// when the leading coefficient is many orders of magnitude smaller than the
// rest, where the closed form loses the small roots to cancellation.
func (e CubicEqn) Roots() []float64 {
	if e.A == 0 {
		return QuadraticEqn{e.B, e.C, e.D}.Roots()
	}
	bound := 1 + math.Max(math.Abs(e.B), math.Max(math.Abs(e.C), math.Abs(e.D)))/math.Abs(e.A)
	bound = math.Min(bound, rootBound)

	edges := []float64{-bound}
	for _, x := range (QuadraticEqn{3 * e.A, 2 * e.B, e.C}).Roots() {
		if x > -bound && x < bound {
			edges = append(edges, x)
		}
	}
	edges = append(edges, bound)

	var roots []float64
	add := func(x float64) {
		if n := len(roots); n == 0 || roots[n-1] != x {
			roots = append(roots, x)
		}
	}
	for i := 0; i+1 < len(edges); i++ {
		lo, hi := edges[i], edges[i+1]
		flo, fhi := e.Value(lo), e.Value(hi)
		switch {
		case flo == 0:
			add(lo)
		case fhi == 0:
			// Added as the low edge of the next interval, or below
		case (flo < 0) != (fhi < 0):
			add(e.bracketedRoot(lo, hi, flo))
		}
	}
	if last := edges[len(edges)-1]; e.Value(last) == 0 {
		add(last)
	}
	return roots
}

// bracketedRoot finds the single root of a monotonic interval
func (e CubicEqn) bracketedRoot(lo, hi, flo float64) float64 {
	x := 0.5 * (lo + hi)
	for iter := 0; iter < 200; iter++ {
		fx := e.Value(x)
		if fx == 0 {
			return x
		}
		if (fx < 0) == (flo < 0) {
			lo, flo = x, fx
		} else {
			hi = x
		}
		if hi-lo <= 4*epsilon*math.Max(math.Abs(lo), math.Abs(hi)) {
			break
		}
		next := x - fx/e.Derivative(x)
		if !(next > lo && next < hi) || math.IsNaN(next) {
			next = 0.5 * (lo + hi)
		}
		x = next
	}
	return x
}

const epsilon = 0x1p-52
