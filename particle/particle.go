package particle

import (
	"encoding"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/barytrack/tetrahedra"
)

// Properties is the caller-defined payload a particle carries. Tensor-valued
// content (velocities, orientations) must follow the particle through
// coupled and symmetry boundaries, and the payload travels inside particle
// records.
type Properties interface {
	// TransformTensor applies the rotation or reflection T
	TransformTensor(T *r3.Mat)
	// TransformSeparation applies the translation s
	TransformSeparation(s r3.Vec)
	Clone() Properties
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	encoding.TextMarshaler
	encoding.TextUnmarshaler
}

var particleCount atomic.Int64

// NewParticleID returns the next identifier of this process
func NewParticleID() int {
	return int(particleCount.Add(1) - 1)
}

// ResetParticleCount restarts identifiers from zero
func ResetParticleCount() {
	particleCount.Store(0)
}

// Particle is a point located in a tet of a polyhedral mesh. The tet is the
// cell centre together with triangle tetPt of face tetFace; the position
// within it is held as barycentric coordinates.
type Particle struct {
	mesh Mesh

	coordinates tetrahedra.Barycentric
	cell        int
	tetFace     int
	tetPt       int
	// face is the mesh face the particle sits on, -1 for none
	face int
	// stepFraction is the proportion of the time step completed
	stepFraction float64

	origProc int
	origID   int

	props Properties
}

// New constructs a particle from its coordinates and tet
func New(m Mesh, coordinates tetrahedra.Barycentric, celli, tetFacei, tetPti int) *Particle {
	return &Particle{
		mesh:        m,
		coordinates: coordinates,
		cell:        celli,
		tetFace:     tetFacei,
		tetPt:       tetPti,
		face:        -1,
		origProc:    m.ProcNo(),
		origID:      NewParticleID(),
	}
}

// NewAt constructs a particle at a Cartesian position. The search starts in
// celli, or in the cell found by the mesh when celli is negative. A position
// outside the mesh leaves the particle on the boundary with a warning.
func NewAt(m Mesh, position r3.Vec, celli int) (*Particle, error) {
	p := &Particle{
		mesh:     m,
		cell:     -1,
		tetFace:  -1,
		tetPt:    -1,
		face:     -1,
		origProc: m.ProcNo(),
		origID:   NewParticleID(),
	}
	if err := p.Locate(position, nil, celli, false,
		"Particle initialised with a location outside of the mesh"); err != nil {
		return nil, err
	}
	return p, nil
}

// Copy returns an independent copy with the same identity
func (p *Particle) Copy() *Particle {
	c := *p
	if p.props != nil {
		c.props = p.props.Clone()
	}
	return &c
}

// CopyToMesh copies the particle onto another mesh with the same topology
func (p *Particle) CopyToMesh(m Mesh) *Particle {
	c := p.Copy()
	c.mesh = m
	return c
}

// Equal reports whether a and b are the same particle, judged by identity
func Equal(a, b *Particle) bool {
	return a.origProc == b.origProc && a.origID == b.origID
}

func (p *Particle) Mesh() Mesh                          { return p.mesh }
func (p *Particle) Coordinates() tetrahedra.Barycentric { return p.coordinates }
func (p *Particle) Cell() int                           { return p.cell }
func (p *Particle) TetFace() int                        { return p.tetFace }
func (p *Particle) TetPt() int                          { return p.tetPt }
func (p *Particle) Face() int                           { return p.face }
func (p *Particle) StepFraction() float64               { return p.stepFraction }
func (p *Particle) OrigProc() int                       { return p.origProc }
func (p *Particle) OrigID() int                         { return p.origID }
func (p *Particle) Properties() Properties              { return p.props }

func (p *Particle) SetStepFraction(f float64)      { p.stepFraction = f }
func (p *Particle) SetProperties(props Properties) { p.props = props }

func (p *Particle) CurrentTetIndices() TetIndices {
	return TetIndices{Cell: p.cell, Face: p.tetFace, TetPt: p.tetPt}
}

// Position returns the Cartesian position at the current step fraction. A
// referred particle holds its position in the last three coordinates.
func (p *Particle) Position() r3.Vec {
	if p.Referred() {
		return r3.Vec{X: p.coordinates[1], Y: p.coordinates[2], Z: p.coordinates[3]}
	}
	if p.mesh.Moving() {
		return p.movingTetTransform(0)[0].Apply(p.coordinates)
	}
	return p.tetTransform().Apply(p.coordinates)
}

// Normal returns the unit normal of the tet face triangle, pointing out of
// the particle's cell
func (p *Particle) Normal() r3.Vec {
	tri := p.CurrentTetIndices().FaceTri(p.mesh, p.mesh.Points())
	return tetrahedra.TriangleNormal(tri[0], tri[1], tri[2])
}

// OldNormal is Normal at the start of the time step
func (p *Particle) OldNormal() r3.Vec {
	tri := p.CurrentTetIndices().FaceTri(p.mesh, p.mesh.OldPoints())
	return tetrahedra.TriangleNormal(tri[0], tri[1], tri[2])
}

func (p *Particle) OnFace() bool { return p.face >= 0 }

func (p *Particle) OnInternalFace() bool {
	return p.OnFace() && p.face < p.mesh.NInternalFaces()
}

func (p *Particle) OnBoundaryFace() bool {
	return p.OnFace() && p.face >= p.mesh.NInternalFaces()
}

// Patch returns the patch of the face the particle sits on
func (p *Particle) Patch() int {
	return p.mesh.WhichPatch(p.face)
}

// PatchFace converts mesh face facei to its index within patch patchi
func (p *Particle) PatchFace(patchi, facei int) int {
	return p.mesh.Patches()[patchi].WhichFace(facei)
}

// Referred particles have had their topology removed for transfer to an
// interaction list and cannot be tracked
func (p *Particle) Referred() bool { return p.cell < 0 }
