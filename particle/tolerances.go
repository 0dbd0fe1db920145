package particle

import "fmt"

// Tolerances controls the numerical decisions of the tracking kernel
type Tolerances struct {
	// Small scales the threshold below which a displacement is taken as
	// parallel to a tet triangle
	Small float64
	// Tie is the track fraction within which two exit triangles are hit
	// together; the lower triangle index wins
	Tie float64
	// MinStep is the smallest fraction of the remaining displacement a tet
	// change must complete to count as progress
	MinStep float64
	// MaxStalls is the number of consecutive steps without progress after
	// which a track is abandoned in place
	MaxStalls int
}

var DefaultTolerances = Tolerances{
	Small:     1e-15,
	Tie:       1e-12,
	MinStep:   1e-12,
	MaxStalls: 1000,
}

var tolerances = DefaultTolerances

// Debug enables trace logging of degenerate tracking events
var Debug bool

// SetTolerances replaces the tracking tolerances. It must not be called
// while particles are being tracked.
func SetTolerances(tol Tolerances) error {
	if tol.Small < 0 || tol.Tie < 0 || tol.MinStep < 0 || tol.MinStep >= 1 || tol.MaxStalls < 1 {
		return fmt.Errorf("invalid tracking tolerances %+v", tol)
	}
	tolerances = tol
	return nil
}

func CurrentTolerances() Tolerances { return tolerances }
