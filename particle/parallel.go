package particle

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/barytrack/tetrahedra"
)

// PrepareForParallelTransfer converts the face of a particle on processor
// patch patchi to its patch-local index, which is also the local index on
// the neighbouring partition
func (p *Particle) PrepareForParallelTransfer(patchi int) {
	p.face = p.mesh.Patches()[patchi].WhichFace(p.face)
}

// CorrectAfterParallelTransfer completes a transfer received through
// processor patch patchi: the particle enters the cell behind the face from
// the other side, so its tet is mirrored
func (p *Particle) CorrectAfterParallelTransfer(patchi int) {
	patch := p.mesh.Patches()[patchi]
	p.transformCoupled(patch.Transform.Inverse())

	p.face += patch.Start
	p.cell = p.mesh.FaceOwner()[p.face]
	p.tetFace = p.face
	p.tetPt = len(p.mesh.Faces()[p.tetFace]) - 1 - p.tetPt
	p.reflect()
}

// ProcTetPt returns the tet point of the particle's tet as seen from
// procCell and procTetFace of procMesh, the same face on another
// decomposition of the mesh
func (p *Particle) ProcTetPt(procMesh Mesh, procCell, procTetFace int) int {
	ownerHere := p.mesh.FaceOwner()[p.tetFace] == p.cell
	ownerThere := procMesh.FaceOwner()[procTetFace] == procCell
	if ownerHere == ownerThere {
		return p.tetPt
	}
	return len(procMesh.Faces()[procTetFace]) - 1 - p.tetPt
}

// VectorTensorTransform is x' = R·x + T, with R nil for a translation
type VectorTensorTransform struct {
	T r3.Vec
	R *r3.Mat
}

func (t VectorTensorTransform) HasR() bool { return t.R != nil }

func (t VectorTensorTransform) TransformPosition(x r3.Vec) r3.Vec {
	if t.R != nil {
		x = t.R.MulVec(x)
	}
	return r3.Add(x, t.T)
}

func (t VectorTensorTransform) InvTransformPosition(x r3.Vec) r3.Vec {
	x = r3.Sub(x, t.T)
	if t.R != nil {
		x = t.R.MulVecTrans(x)
	}
	return x
}

// PrepareForInteractionListReferral strips the topology from the particle,
// keeping the inverse transformed position, so it can be referred to
// another interaction list. The particle cannot be tracked until
// CorrectAfterInteractionListReferral.
func (p *Particle) PrepareForInteractionListReferral(t VectorTensorTransform) {
	pos := t.InvTransformPosition(p.Position())
	p.cell, p.tetFace, p.tetPt, p.face = -1, -1, -1, -1
	p.coordinates = tetrahedra.Barycentric{1 - pos.X - pos.Y - pos.Z, pos.X, pos.Y, pos.Z}

	p.TransformPropertiesSeparation(r3.Scale(-1, t.T))
	if t.HasR() {
		Rt := r3.NewMat(nil)
		Rt.CloneFrom(t.R.T())
		p.TransformProperties(Rt)
	}
}

// CorrectAfterInteractionListReferral restores the topology of a referred
// particle in celli, which must contain its position
func (p *Particle) CorrectAfterInteractionListReferral(celli int) {
	pos := p.Position()
	p.cell = celli
	p.tetFace = p.mesh.Cells()[celli][0]
	p.tetPt = 1
	p.face = -1
	p.coordinates = tetrahedra.ToBarycentric(p.currentTetTransform(), pos)
}

// ConstrainToMeshCentre moves the particle to the middle of the mesh in the
// directions the mesh does not resolve
func (p *Particle) ConstrainToMeshCentre() {
	var (
		d      = p.mesh.GeometricD()
		bounds = p.mesh.Bounds()
		pos    = p.Position()
		target = pos
	)
	if d[0] >= 0 && d[1] >= 0 && d[2] >= 0 {
		return
	}
	if d[0] == -1 {
		target.X = 0.5 * (bounds.Min.X + bounds.Max.X)
	}
	if d[1] == -1 {
		target.Y = 0.5 * (bounds.Min.Y + bounds.Max.Y)
	}
	if d[2] == -1 {
		target.Z = 0.5 * (bounds.Min.Z + bounds.Max.Z)
	}
	p.Track(r3.Sub(target, pos), 0)
}
