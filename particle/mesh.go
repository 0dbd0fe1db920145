package particle

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/barytrack/mesh"
)

// Mesh is the read-only view of the host mesh used for tracking. Faces must
// point out of their owner cell, internal faces come first, and each patch
// holds a contiguous range of boundary faces.
type Mesh interface {
	Points() []r3.Vec
	// OldPoints are the point positions at the start of the time step
	OldPoints() []r3.Vec
	Moving() bool

	Faces() [][]int
	FaceOwner() []int
	FaceNeighbour() []int
	NInternalFaces() int
	Cells() [][]int
	CellCentres() []r3.Vec
	// CellCentre computes the centre of a cell for the given point positions
	CellCentre(celli int, points []r3.Vec) r3.Vec
	TetBasePtIs() []int

	Patches() []*mesh.Patch
	WhichPatch(facei int) int
	// PointFace maps a position on a cyclicAMI patch face onto the coupled
	// patch, returning the receiving local face (-1 for none) and position
	PointFace(patchi, patchFacei int, position r3.Vec) (int, r3.Vec)
	FindCell(position r3.Vec) int

	GeometricD() [3]int
	Bounds() r3.Box
	ProcNo() int
}

var _ Mesh = (*mesh.PolyMesh)(nil)

// TetIndices identifies the tracking tet formed by the centre of Cell and
// triangle TetPt of face Face
type TetIndices struct {
	Cell, Face, TetPt int
}

func (ti TetIndices) String() string {
	return fmt.Sprintf("cell %d face %d tetPt %d", ti.Cell, ti.Face, ti.TetPt)
}

// FaceTriIs returns the mesh point indices of the base, first and second
// face vertices of the tet. The vertex order is reversed for the neighbour
// cell so that the triangle always points out of the tet's cell.
func (ti TetIndices) FaceTriIs(m Mesh) [3]int {
	f := m.Faces()[ti.Face]
	faceBasePtI := m.TetBasePtIs()[ti.Face]
	if faceBasePtI < 0 {
		faceBasePtI = 0
	}
	facePtI := (ti.TetPt + faceBasePtI) % len(f)
	faceOtherPtI := (facePtI + 1) % len(f)
	if m.FaceOwner()[ti.Face] != ti.Cell {
		facePtI, faceOtherPtI = faceOtherPtI, facePtI
	}
	return [3]int{f[faceBasePtI], f[facePtI], f[faceOtherPtI]}
}

// FaceTri returns the tet face triangle for the given point positions
func (ti TetIndices) FaceTri(m Mesh, points []r3.Vec) [3]r3.Vec {
	is := ti.FaceTriIs(m)
	return [3]r3.Vec{points[is[0]], points[is[1]], points[is[2]]}
}

// Tet returns the vertices of the tet: cell centre, then the face triangle
func (ti TetIndices) Tet(m Mesh) [4]r3.Vec {
	tri := ti.FaceTri(m, m.Points())
	return [4]r3.Vec{m.CellCentres()[ti.Cell], tri[0], tri[1], tri[2]}
}
