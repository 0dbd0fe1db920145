package particle

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/barytrack/tetrahedra"
)

// tetGeometry returns the vertices of the current tet: the cell centre, then
// the base, first and second vertices of the face triangle
func (p *Particle) tetGeometry() (centre, base, vertex1, vertex2 r3.Vec) {
	points := p.mesh.Points()
	triIs := p.CurrentTetIndices().FaceTriIs(p.mesh)
	return p.mesh.CellCentres()[p.cell], points[triIs[0]], points[triIs[1]], points[triIs[2]]
}

func (p *Particle) tetTransform() tetrahedra.BarycentricTensor {
	centre, base, vertex1, vertex2 := p.tetGeometry()
	return tetrahedra.NewBarycentricTensor(centre, base, vertex1, vertex2)
}

// movingTetGeometry returns the tet vertices over a track covering fraction
// of the time step from the current step fraction. Each pair holds the
// position at the start of the track and its change over the track.
func (p *Particle) movingTetGeometry(fraction float64) (centre, base, vertex1, vertex2 tetrahedra.Pair[r3.Vec]) {
	var (
		oldPoints = p.mesh.OldPoints()
		newPoints = p.mesh.Points()
		triIs     = p.CurrentTetIndices().FaceTriIs(p.mesh)
		f0        = p.stepFraction
		f1        = fraction
	)
	interpolate := func(o, n r3.Vec) tetrahedra.Pair[r3.Vec] {
		d := r3.Sub(n, o)
		return tetrahedra.Pair[r3.Vec]{r3.Add(o, r3.Scale(f0, d)), r3.Scale(f1, d)}
	}
	centre = interpolate(p.mesh.CellCentre(p.cell, oldPoints), p.mesh.CellCentre(p.cell, newPoints))
	base = interpolate(oldPoints[triIs[0]], newPoints[triIs[0]])
	vertex1 = interpolate(oldPoints[triIs[1]], newPoints[triIs[1]])
	vertex2 = interpolate(oldPoints[triIs[2]], newPoints[triIs[2]])
	return
}

func (p *Particle) movingTetTransform(fraction float64) tetrahedra.Pair[tetrahedra.BarycentricTensor] {
	centre, base, vertex1, vertex2 := p.movingTetGeometry(fraction)
	return tetrahedra.Pair[tetrahedra.BarycentricTensor]{
		tetrahedra.NewBarycentricTensor(centre[0], base[0], vertex1[0], vertex2[0]),
		tetrahedra.NewBarycentricTensor(centre[1], base[1], vertex1[1], vertex2[1]),
	}
}

// currentTetTransform is the tet transform at the current step fraction
func (p *Particle) currentTetTransform() tetrahedra.BarycentricTensor {
	if p.mesh.Moving() {
		return p.movingTetTransform(0)[0]
	}
	return p.tetTransform()
}
