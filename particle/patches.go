package particle

import (
	"log"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/barytrack/mesh"
)

// Hooks let the owning collection add physics to face and patch hits. Nil
// hooks take the default behaviour.
type Hooks struct {
	// Face runs on every face hit, before the hit is handled
	Face func(p *Particle, td *TrackingData)
	// Patch runs first on boundary hits; returning true claims the hit
	Patch func(p *Particle, td *TrackingData) bool
	// Wall handles wall hits; the default stops the track on the wall
	Wall func(p *Particle, td *TrackingData)
	// Generic handles open patches; the default stops the track on the face
	Generic func(p *Particle, td *TrackingData)
}

// TrackingData carries the flags a track sets for its owner, the hooks and
// the owning collection
type TrackingData struct {
	// SwitchProcessor is set when the particle reaches a processor patch
	SwitchProcessor bool
	// KeepParticle is cleared when the particle should be removed
	KeepParticle bool
	Hooks        Hooks

	owner any
}

func NewTrackingData(owner any, hooks Hooks) *TrackingData {
	return &TrackingData{KeepParticle: true, Hooks: hooks, owner: owner}
}

func (td *TrackingData) Owner() any { return td.owner }

// OwnerAs returns the owner of td as a T
func OwnerAs[T any](td *TrackingData) (T, bool) {
	o, ok := td.owner.(T)
	return o, ok
}

// TrackToAndHitFace tracks to the next face and handles the hit: an internal
// face moves the particle into the next cell, a boundary face is passed to
// the handler of its patch kind. It returns the proportion of displacement
// not completed.
func (p *Particle) TrackToAndHitFace(displacement r3.Vec, fraction float64, td *TrackingData) float64 {
	f := p.TrackToFace(displacement, fraction)
	if !p.OnFace() {
		return f
	}
	if td.Hooks.Face != nil {
		td.Hooks.Face(p, td)
	}
	switch {
	case p.OnInternalFace():
		p.changeCell()
	case p.OnBoundaryFace():
		f = p.hitBoundaryFace(displacement, f, fraction, td)
	}
	return f
}

func (p *Particle) hitBoundaryFace(displacement r3.Vec, f, fraction float64, td *TrackingData) float64 {
	if td.Hooks.Patch != nil && td.Hooks.Patch(p, td) {
		return f
	}
	patch := p.mesh.Patches()[p.Patch()]
	switch patch.Kind {
	case mesh.Wedge:
		p.hitWedgePatch(patch)
	case mesh.SymmetryPlane:
		p.hitSymmetryPlanePatch(patch)
	case mesh.Symmetry:
		p.hitSymmetryPatch()
	case mesh.Cyclic:
		p.hitCyclicPatch(patch)
	case mesh.CyclicAMI:
		p.hitCyclicAMIPatch(patch, displacement, td)
	case mesh.Processor:
		td.SwitchProcessor = true
	case mesh.Wall:
		if td.Hooks.Wall != nil {
			td.Hooks.Wall(p, td)
		} else {
			f = p.stopTrack(f, fraction)
		}
	default:
		if td.Hooks.Generic != nil {
			td.Hooks.Generic(p, td)
		} else {
			f = p.stopTrack(f, fraction)
		}
	}
	return f
}

// stopTrack ends the time step of the particle where it stands
func (p *Particle) stopTrack(f, fraction float64) float64 {
	p.stepFraction += f * fraction
	return 0
}

// reflection returns I - 2nn for the unit normal n
func reflection(n r3.Vec) *r3.Mat {
	n = r3.Unit(n)
	R := r3.NewMat([]float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	O := r3.NewMat(nil)
	O.Outer(-2, n, n)
	R.Add(R, O)
	return R
}

func (p *Particle) hitWedgePatch(patch *mesh.Patch) {
	p.TransformProperties(reflection(patch.Normal))
}

func (p *Particle) hitSymmetryPlanePatch(patch *mesh.Patch) {
	p.TransformProperties(reflection(patch.Normal))
}

func (p *Particle) hitSymmetryPatch() {
	p.TransformProperties(reflection(p.Normal()))
}

// hitCyclicPatch moves the particle onto the coupled face, which is the
// same patch-local face of the partner patch, into the owner cell
func (p *Particle) hitCyclicPatch(patch *mesh.Patch) {
	receive := p.mesh.Patches()[patch.NeighbPatch]
	p.face = receive.Start + patch.WhichFace(p.face)
	p.tetFace = p.face
	p.cell = p.mesh.FaceOwner()[p.face]
	p.tetPt = len(p.mesh.Faces()[p.tetFace]) - 1 - p.tetPt
	p.reflect()
	p.transformCoupled(patch.Transform)
}

// hitCyclicAMIPatch maps the position onto the non-conformal partner patch
// and locates the particle there, arriving in the direction of travel
func (p *Particle) hitCyclicAMIPatch(patch *mesh.Patch, displacement r3.Vec, td *TrackingData) {
	receive := p.mesh.Patches()[patch.NeighbPatch]
	position := p.Position()
	receiveFacei, mapped := p.mesh.PointFace(p.Patch(), patch.WhichFace(p.face), position)
	if receiveFacei < 0 {
		td.KeepParticle = false
		log.Printf("Particle %d/%d lost on cyclicAMI patch %s at %v: no receiving face on %s",
			p.origProc, p.origID, patch.Name, position, receive.Name)
		return
	}
	p.face = receive.Start + receiveFacei
	p.tetFace = p.face
	direction := patch.Transform.TransformDirection(displacement)
	// The mapped position is on the receiving face, so the particle is
	// expected to stop on it
	if _, err := p.locate(mapped, &direction, p.mesh.FaceOwner()[p.face]); err != nil {
		td.KeepParticle = false
		log.Printf("Particle %d/%d lost on cyclicAMI patch %s: %v", p.origProc, p.origID, patch.Name, err)
		return
	}
	p.face = p.tetFace
	p.transformCoupled(patch.Transform)
}

// transformCoupled applies the transform of a coupled patch to the payload
func (p *Particle) transformCoupled(t mesh.CoupledTransform) {
	if !t.Parallel() {
		p.TransformProperties(t.Rotation)
	} else if t.Separated() {
		p.TransformPropertiesSeparation(t.Separation)
	}
}

// TransformProperties applies the rotation or reflection T to the payload
func (p *Particle) TransformProperties(T *r3.Mat) {
	if p.props != nil {
		p.props.TransformTensor(T)
	}
}

// TransformPropertiesSeparation applies the translation s to the payload
func (p *Particle) TransformPropertiesSeparation(s r3.Vec) {
	if p.props != nil {
		p.props.TransformSeparation(s)
	}
}
