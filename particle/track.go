package particle

import (
	"log"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/barytrack/tetrahedra"
	"github.com/notargets/barytrack/utils"
)

const vGreat = 1e300

// isNormal reports whether x is a finite, non-zero, non-subnormal number
func isNormal(x float64) bool {
	return x != 0 && !math.IsInf(x, 0) && !math.IsNaN(x) && math.Abs(x) >= 0x1p-1022
}

// exitTracker selects the exit triangle among candidate hits. muH starts as
// the hit parameter of the track end, so only hits before it are taken.
type exitTracker struct {
	iH     int
	muH    float64
	tieTol float64 // Tie tolerance in units of the hit parameter
}

func newExitTracker(detA float64) exitTracker {
	e := exitTracker{iH: -1, muH: vGreat}
	if isNormal(detA) && detA > 0 {
		e.muH = 1 / detA
	}
	if isNormal(detA) {
		e.tieTol = tolerances.Tie / math.Abs(detA)
	}
	return e
}

// consider takes the hit on triangle i at mu if it comes first. Triangles
// are offered in ascending order, so near ties keep the lower index.
func (e *exitTracker) consider(i int, mu float64) {
	if mu < 0 {
		return
	}
	if e.iH == -1 {
		if mu < e.muH {
			e.iH, e.muH = i, mu
		}
		return
	}
	if mu < e.muH-e.tieTol {
		e.iH, e.muH = i, mu
	}
}

// TrackToTri tracks along displacement within the current tet, covering
// fraction of the time step, until the end of the displacement or the first
// tet triangle. It returns the proportion of the displacement not completed
// and the index of the triangle hit, -1 for none.
func (p *Particle) TrackToTri(displacement r3.Vec, fraction float64) (float64, int) {
	if p.mesh.Moving() {
		return p.TrackToMovingTri(displacement, fraction)
	}
	return p.TrackToStationaryTri(displacement, fraction)
}

// TrackToStationaryTri is TrackToTri on a static mesh. A tet triangle is hit
// where its coordinate, y0 + mu·(displacement·T), reaches zero while
// decreasing.
func (p *Particle) TrackToStationaryTri(displacement r3.Vec, fraction float64) (float64, int) {
	y0 := p.coordinates
	_, detA, T := tetrahedra.ReverseTransform(p.tetTransform())
	Tx1 := T.Project(displacement)

	exit := newExitTracker(detA)
	for i := 0; i < 4; i++ {
		if Tx1[i] < -detA*tolerances.Small {
			// A weight already at or below zero that keeps falling is hit
			// where the particle stands
			exit.consider(i, math.Max(-y0[i]/Tx1[i], 0))
		}
	}

	if exit.iH == -1 && exit.muH == vGreat {
		// A flat or inverted tet with no exit, nothing can move through it
		return p.completeTrack(fraction, "degenerate tet")
	}

	yH := y0.Add(Tx1.Scale(exit.muH))
	if exit.iH == -1 {
		p.coordinates = yH
		p.stepFraction += fraction
		return 0, -1
	}
	p.coordinates = onTriangle(yH, exit.iH)
	progress := clampFraction(exit.muH * detA)
	p.stepFraction += fraction * progress
	return 1 - progress, exit.iH
}

// clampFraction keeps the progress of an inverted tet within the track
func clampFraction(f float64) float64 {
	return math.Max(0, math.Min(f, 1))
}

// onTriangle puts coordinates on triangle i. The other weights are left as
// they are so the position does not move.
func onTriangle(y tetrahedra.Barycentric, i int) tetrahedra.Barycentric {
	y[i] = 0
	return y
}

// completeTrack leaves the particle in place and books the whole fraction
func (p *Particle) completeTrack(fraction float64, reason string) (float64, int) {
	if Debug {
		log.Printf("Particle %d/%d held at %v in %v: %s",
			p.origProc, p.origID, p.coordinates, p.CurrentTetIndices(), reason)
	}
	p.stepFraction += fraction
	return 0, -1
}

// TrackToMovingTri is TrackToTri on a mesh whose points move linearly over
// the track. The tet coordinates of the particle become rational in the hit
// parameter mu: each is a cubic divided by the cubic determinant, and a
// triangle is hit where its cubic numerator crosses zero while decreasing.
func (p *Particle) TrackToMovingTri(displacement r3.Vec, fraction float64) (float64, int) {
	y0 := p.coordinates
	A := p.movingTetTransform(fraction)
	x0 := A[0].Apply(y0)
	centre, detA, T := tetrahedra.MovingReverseTransform(A)

	x0Rel := r3.Sub(x0, centre[0])
	x1Rel := r3.Sub(displacement, centre[1])
	yC := tetrahedra.CentreCoordinates

	// Substituting t = detA[0]·mu keeps the coefficients well scaled
	d0, d00 := detA[0], detA[0]*detA[0]
	detAEqn := utils.CubicEqn{A: d00 * detA[3], B: d0 * detA[2], C: detA[1], D: 1}
	hitA := T[2].Project(x1Rel).Add(yC.Scale(detA[3])).Scale(d00)
	hitB := T[1].Project(x1Rel).Add(T[2].Project(x0Rel)).Add(yC.Scale(detA[2])).Scale(d0)
	hitC := T[0].Project(x1Rel).Add(T[1].Project(x0Rel)).Add(yC.Scale(detA[1]))
	var hitEqn [4]utils.CubicEqn
	for i := range hitEqn {
		hitEqn[i] = utils.CubicEqn{A: hitA[i], B: hitB[i], C: hitC[i], D: y0[i]}
	}

	exit := newExitTracker(d0)
	for i := 0; i < 4; i++ {
		if y0[i] <= 0 && hitEqn[i].C < -d0*tolerances.Small {
			exit.consider(i, 0)
			continue
		}
		for _, mu := range hitEqn[i].Roots() {
			if hitEqn[i].Derivative(mu) < -d0*tolerances.Small {
				exit.consider(i, mu)
			}
		}
	}

	if exit.iH == -1 && exit.muH == vGreat {
		return p.completeTrack(fraction, "degenerate moving tet")
	}

	var yH tetrahedra.Barycentric
	for i := range yH {
		yH[i] = hitEqn[i].Value(exit.muH)
	}
	detAH := detAEqn.Value(exit.muH)
	if math.Abs(detAH) < tolerances.Small {
		// The tet collapses at the hit; the numerators still give the
		// direction of the coordinates
		if Debug {
			log.Printf("Particle %d/%d: tet determinant %g at hit in %v",
				p.origProc, p.origID, detAH, p.CurrentTetIndices())
		}
		detAH = yH.Sum()
		if math.Abs(detAH) < tolerances.Small {
			return p.completeTrack(fraction, "collapsed moving tet")
		}
	}
	yH = yH.Scale(1 / detAH)

	if exit.iH == -1 {
		p.coordinates = yH
		p.stepFraction += fraction
		return 0, -1
	}
	p.coordinates = onTriangle(yH, exit.iH)
	progress := clampFraction(exit.muH * d0)
	p.stepFraction += fraction * progress
	return 1 - progress, exit.iH
}

// TrackToFace tracks along displacement through the tets of the current
// cell until the end of the displacement or a face of the cell. It returns
// the proportion of the displacement not completed. The particle's face is
// set when the track stops on a face.
func (p *Particle) TrackToFace(displacement r3.Vec, fraction float64) float64 {
	if p.Referred() {
		return 1
	}
	var (
		f      = 1.
		stalls = 0
	)
	p.face = -1
	for {
		fPrev := f
		fr, tetTriI := p.TrackToTri(r3.Scale(f, displacement), f*fraction)
		f *= fr
		switch tetTriI {
		case -1:
			return 0
		case 0:
			p.face = p.tetFace
			return f
		}
		if fPrev-f < tolerances.MinStep*fPrev {
			stalls++
		} else {
			stalls = 0
		}
		if stalls > tolerances.MaxStalls {
			p.abandonTrack(f, fraction)
			return 0
		}
		p.changeTet(tetTriI)
	}
}

// abandonTrack stops a track that makes no progress, booking the remaining
// proportion f of the track as complete
func (p *Particle) abandonTrack(f, fraction float64) {
	log.Printf("Particle %d/%d abandoned a track after %d steps without progress at %v",
		p.origProc, p.origID, tolerances.MaxStalls, p.CurrentTetIndices())
	p.face = -1
	p.stepFraction += f * fraction
}

// Track tracks along displacement across internal faces until the end of
// the displacement or a boundary face. It returns the proportion of the
// displacement not completed, and the step fraction grows by
// fraction·(1 - f).
func (p *Particle) Track(displacement r3.Vec, fraction float64) float64 {
	f := p.TrackToFace(displacement, fraction)
	stalls := 0
	for p.OnInternalFace() {
		fPrev := f
		p.changeCell()
		f *= p.TrackToFace(r3.Scale(f, displacement), f*fraction)
		if fPrev-f < tolerances.MinStep*fPrev {
			stalls++
		} else {
			stalls = 0
		}
		if stalls > tolerances.MaxStalls && p.OnInternalFace() {
			p.abandonTrack(f, fraction)
			return 0
		}
	}
	return f
}
