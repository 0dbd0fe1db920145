package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// PolyMesh is a face-addressed polyhedral mesh. Faces are listed internal
// faces first, then each patch in turn; every face is oriented with its area
// vector pointing out of its owner cell. Internal faces also have a neighbour
// cell.
type PolyMesh struct {
	points, oldPoints []r3.Vec
	faces             [][]int
	owner, neighbour  []int
	cells             [][]int // Faces of each cell
	patches           []*Patch
	tetBasePtIs       []int

	faceCentres, faceAreas []r3.Vec
	cellCentres            []r3.Vec
	bounds                 r3.Box

	moving     bool
	procNo     int
	geometricD [3]int
}

// NewPolyMesh assembles a mesh from its faces. The patches must cover the
// boundary faces nInternal.. in order without gaps.
func NewPolyMesh(points []r3.Vec, faces [][]int, owner, neighbour []int,
	patches []*Patch) (m *PolyMesh, err error) {
	nFaces := len(faces)
	if len(owner) != nFaces {
		return nil, fmt.Errorf("owner list has %d entries for %d faces", len(owner), nFaces)
	}
	nInternal := len(neighbour)
	start := nInternal
	for i, p := range patches {
		if p.Start != start {
			return nil, fmt.Errorf("patch %s starts at face %d, expected %d", p.Name, p.Start, start)
		}
		p.Index = i
		start += p.Size
	}
	if start != nFaces {
		return nil, fmt.Errorf("patches cover faces up to %d of %d", start, nFaces)
	}

	nCells := 0
	for _, o := range owner {
		nCells = max(nCells, o+1)
	}
	for _, n := range neighbour {
		nCells = max(nCells, n+1)
	}

	m = &PolyMesh{
		points:      points,
		oldPoints:   points,
		faces:       faces,
		owner:       owner,
		neighbour:   neighbour,
		cells:       make([][]int, nCells),
		patches:     patches,
		tetBasePtIs: make([]int, nFaces),
		geometricD:  [3]int{1, 1, 1},
	}
	for facei := range faces {
		if len(faces[facei]) < 3 {
			return nil, fmt.Errorf("face %d has %d points", facei, len(faces[facei]))
		}
		m.cells[owner[facei]] = append(m.cells[owner[facei]], facei)
		if facei < nInternal {
			m.cells[neighbour[facei]] = append(m.cells[neighbour[facei]], facei)
		}
	}
	for celli, c := range m.cells {
		if len(c) < 4 {
			return nil, fmt.Errorf("cell %d is bounded by %d faces", celli, len(c))
		}
	}
	m.updateGeometry()
	for _, p := range patches {
		if (p.Kind == Wedge || p.Kind == SymmetryPlane) && p.Normal == (r3.Vec{}) && p.Size > 0 {
			p.Normal = r3.Unit(m.faceAreas[p.Start])
		}
	}
	return m, nil
}

func (m *PolyMesh) updateGeometry() {
	nFaces := len(m.faces)
	m.faceCentres = make([]r3.Vec, nFaces)
	m.faceAreas = make([]r3.Vec, nFaces)
	for facei, f := range m.faces {
		m.faceCentres[facei], m.faceAreas[facei] = FaceCentreAndArea(f, m.points)
	}
	m.cellCentres = make([]r3.Vec, len(m.cells))
	for celli := range m.cells {
		m.cellCentres[celli] = m.CellCentre(celli, m.points)
	}
	inf := math.Inf(1)
	m.bounds = r3.Box{Min: r3.Vec{X: inf, Y: inf, Z: inf}, Max: r3.Vec{X: -inf, Y: -inf, Z: -inf}}
	for _, p := range m.points {
		m.bounds.Min = r3.Vec{X: math.Min(m.bounds.Min.X, p.X), Y: math.Min(m.bounds.Min.Y, p.Y), Z: math.Min(m.bounds.Min.Z, p.Z)}
		m.bounds.Max = r3.Vec{X: math.Max(m.bounds.Max.X, p.X), Y: math.Max(m.bounds.Max.Y, p.Y), Z: math.Max(m.bounds.Max.Z, p.Z)}
	}
}

// MovePoints moves the mesh to newPoints. The previous positions are kept as
// the old points, and the mesh reports itself as moving from then on.
func (m *PolyMesh) MovePoints(newPoints []r3.Vec) error {
	if len(newPoints) != len(m.points) {
		return fmt.Errorf("moving %d points with %d new positions", len(m.points), len(newPoints))
	}
	m.oldPoints = m.points
	m.points = newPoints
	m.moving = true
	m.updateGeometry()
	return nil
}

func (m *PolyMesh) Points() []r3.Vec       { return m.points }
func (m *PolyMesh) OldPoints() []r3.Vec    { return m.oldPoints }
func (m *PolyMesh) Moving() bool           { return m.moving }
func (m *PolyMesh) Faces() [][]int         { return m.faces }
func (m *PolyMesh) FaceOwner() []int       { return m.owner }
func (m *PolyMesh) FaceNeighbour() []int   { return m.neighbour }
func (m *PolyMesh) NInternalFaces() int    { return len(m.neighbour) }
func (m *PolyMesh) NFaces() int            { return len(m.faces) }
func (m *PolyMesh) NCells() int            { return len(m.cells) }
func (m *PolyMesh) Cells() [][]int         { return m.cells }
func (m *PolyMesh) CellCentres() []r3.Vec  { return m.cellCentres }
func (m *PolyMesh) FaceCentres() []r3.Vec  { return m.faceCentres }
func (m *PolyMesh) FaceAreas() []r3.Vec    { return m.faceAreas }
func (m *PolyMesh) TetBasePtIs() []int     { return m.tetBasePtIs }
func (m *PolyMesh) Patches() []*Patch      { return m.patches }
func (m *PolyMesh) Bounds() r3.Box         { return m.bounds }
func (m *PolyMesh) ProcNo() int            { return m.procNo }
func (m *PolyMesh) GeometricD() [3]int     { return m.geometricD }
func (m *PolyMesh) SetGeometricD(d [3]int) { m.geometricD = d }

func (m *PolyMesh) FindPatch(name string) int {
	for i, p := range m.patches {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (m *PolyMesh) setProcNo(procNo int) {
	m.procNo = procNo
	for _, p := range m.patches {
		p.MyProcNo = procNo
	}
}

// WhichPatch returns the patch holding boundary face facei, -1 for internal faces
func (m *PolyMesh) WhichPatch(facei int) int {
	if facei < len(m.neighbour) {
		return -1
	}
	for i, p := range m.patches {
		if p.Contains(facei) {
			return i
		}
	}
	return -1
}

// PointInCell tests position against the face planes of a convex cell
func (m *PolyMesh) PointInCell(position r3.Vec, celli int) bool {
	tol := 1e-12 * m.scale()
	for _, facei := range m.cells[celli] {
		d := r3.Dot(r3.Sub(position, m.faceCentres[facei]), r3.Unit(m.faceAreas[facei]))
		if m.owner[facei] != celli {
			d = -d
		}
		if d > tol {
			return false
		}
	}
	return true
}

// FindCell returns the first cell containing position, or -1
func (m *PolyMesh) FindCell(position r3.Vec) int {
	for celli := range m.cells {
		if m.PointInCell(position, celli) {
			return celli
		}
	}
	return -1
}

func (m *PolyMesh) scale() float64 {
	return math.Max(r3.Norm(r3.Sub(m.bounds.Max, m.bounds.Min)), rootVSmall)
}

// FaceContains tests whether position, projected onto the plane of the
// convex face facei, falls within it
func (m *PolyMesh) FaceContains(facei int, position r3.Vec) bool {
	f := m.faces[facei]
	n := m.faceAreas[facei]
	tol := 1e-9 * r3.Norm(n)
	for i := range f {
		this, next := m.points[f[i]], m.points[f[(i+1)%len(f)]]
		if r3.Dot(r3.Cross(r3.Sub(next, this), r3.Sub(position, this)), r3.Unit(n)) < -tol {
			return false
		}
	}
	return true
}

// PointFace maps position from face patchFacei of patch patchi onto the
// coupled patch and returns the local index of the receiving face that holds
// it, or -1, together with the mapped position
func (m *PolyMesh) PointFace(patchi, patchFacei int, position r3.Vec) (int, r3.Vec) {
	send := m.patches[patchi]
	mapped := send.Transform.TransformPosition(position)
	if send.NeighbPatch < 0 {
		return -1, mapped
	}
	receive := m.patches[send.NeighbPatch]
	// Conformal partners share the index, try it first
	if patchFacei < receive.Size && m.FaceContains(receive.Start+patchFacei, mapped) {
		return patchFacei, mapped
	}
	for i := 0; i < receive.Size; i++ {
		if m.FaceContains(receive.Start+i, mapped) {
			return i, mapped
		}
	}
	return -1, mapped
}

// PrintStatistics prints mesh statistics
func (m *PolyMesh) PrintStatistics() {
	fmt.Printf("Mesh Statistics:\n")
	fmt.Printf("  Points: %d\n", len(m.points))
	fmt.Printf("  Cells: %d\n", len(m.cells))
	fmt.Printf("  Faces: %d (internal %d)\n", len(m.faces), len(m.neighbour))
	fmt.Printf("  Bounds: %v - %v\n", m.bounds.Min, m.bounds.Max)
	fmt.Printf("  Patches:\n")
	for _, p := range m.patches {
		fmt.Printf("    %v\n", p)
	}
}
