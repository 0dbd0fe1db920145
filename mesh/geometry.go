package mesh

import (
	"gonum.org/v1/gonum/spatial/r3"
)

const rootVSmall = 1e-150

// FaceCentreAndArea returns the centroid and the area vector of the polygon
// f. The area vector points along the right hand rule of the point order. A
// polygon is split into triangles about its point average so that warped
// faces get a consistent centroid.
func FaceCentreAndArea(f []int, points []r3.Vec) (centre, area r3.Vec) {
	n := len(f)
	if n == 3 {
		p0, p1, p2 := points[f[0]], points[f[1]], points[f[2]]
		centre = r3.Scale(1./3, r3.Add(p0, r3.Add(p1, p2)))
		area = r3.Scale(0.5, r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0)))
		return
	}
	var average r3.Vec
	for _, pi := range f {
		average = r3.Add(average, points[pi])
	}
	average = r3.Scale(1/float64(n), average)

	var (
		sumN, sumAc r3.Vec
		sumA        float64
	)
	for i := range f {
		this, next := points[f[i]], points[f[(i+1)%n]]
		c := r3.Add(this, r3.Add(next, average))
		nv := r3.Cross(r3.Sub(next, this), r3.Sub(average, this))
		a := r3.Norm(nv)
		sumN = r3.Add(sumN, nv)
		sumA += a
		sumAc = r3.Add(sumAc, r3.Scale(a, c))
	}
	if sumA < rootVSmall {
		return average, r3.Vec{}
	}
	return r3.Scale(1/(3*sumA), sumAc), r3.Scale(0.5, sumN)
}

// CellCentre returns the volume centroid of cell celli for the given point
// positions. The cell is split into pyramids from an estimated centre to each
// face, and the pyramid centroids are weighted by volume.
func (m *PolyMesh) CellCentre(celli int, points []r3.Vec) r3.Vec {
	cFaces := m.cells[celli]
	faceCentres := make([]r3.Vec, len(cFaces))
	faceAreas := make([]r3.Vec, len(cFaces))
	var estimate r3.Vec
	for i, facei := range cFaces {
		faceCentres[i], faceAreas[i] = FaceCentreAndArea(m.faces[facei], points)
		estimate = r3.Add(estimate, faceCentres[i])
	}
	estimate = r3.Scale(1/float64(len(cFaces)), estimate)

	var (
		sumVc r3.Vec
		sumV  float64
	)
	for i, facei := range cFaces {
		// Area vectors point out of the owner
		pyr3Vol := r3.Dot(faceAreas[i], r3.Sub(faceCentres[i], estimate))
		if m.owner[facei] != celli {
			pyr3Vol = -pyr3Vol
		}
		pc := r3.Add(r3.Scale(0.75, faceCentres[i]), r3.Scale(0.25, estimate))
		sumVc = r3.Add(sumVc, r3.Scale(pyr3Vol, pc))
		sumV += pyr3Vol
	}
	if sumV < rootVSmall {
		return estimate
	}
	return r3.Scale(1/sumV, sumVc)
}
