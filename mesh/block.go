package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// BlockSpec describes a box split into N hexahedra along each axis
type BlockSpec struct {
	Min, Max r3.Vec
	N        [3]int
}

// Block boundary markers, one per side of the box
const (
	XMin = "xmin"
	XMax = "xmax"
	YMin = "ymin"
	YMax = "ymax"
	ZMin = "zmin"
	ZMax = "zmax"
)

// NewBlockMesh generates a structured block of hexahedra. Cells are numbered
// with x varying fastest, and each side of the box gets its own marker.
func NewBlockMesh(spec BlockSpec) (*ElementMesh, error) {
	nx, ny, nz := spec.N[0], spec.N[1], spec.N[2]
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("block needs at least one cell per direction, got %v", spec.N)
	}
	d := r3.Sub(spec.Max, spec.Min)
	if d.X <= 0 || d.Y <= 0 || d.Z <= 0 {
		return nil, fmt.Errorf("block bounds %v - %v are empty", spec.Min, spec.Max)
	}
	em := NewElementMesh()
	vi := func(i, j, k int) int { return i + (nx+1)*(j+(ny+1)*k) }
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				em.Vertices = append(em.Vertices, r3.Vec{
					X: spec.Min.X + d.X*float64(i)/float64(nx),
					Y: spec.Min.Y + d.Y*float64(j)/float64(ny),
					Z: spec.Min.Z + d.Z*float64(k)/float64(nz),
				})
			}
		}
	}
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				em.AddElement(Hex, []int{
					vi(i, j, k), vi(i+1, j, k), vi(i+1, j+1, k), vi(i, j+1, k),
					vi(i, j, k+1), vi(i+1, j, k+1), vi(i+1, j+1, k+1), vi(i, j+1, k+1),
				})
			}
		}
	}
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			em.AddBoundaryFace(XMin, []int{vi(0, j, k), vi(0, j+1, k), vi(0, j+1, k+1), vi(0, j, k+1)})
			em.AddBoundaryFace(XMax, []int{vi(nx, j, k), vi(nx, j+1, k), vi(nx, j+1, k+1), vi(nx, j, k+1)})
		}
	}
	for k := 0; k < nz; k++ {
		for i := 0; i < nx; i++ {
			em.AddBoundaryFace(YMin, []int{vi(i, 0, k), vi(i+1, 0, k), vi(i+1, 0, k+1), vi(i, 0, k+1)})
			em.AddBoundaryFace(YMax, []int{vi(i, ny, k), vi(i+1, ny, k), vi(i+1, ny, k+1), vi(i, ny, k+1)})
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			em.AddBoundaryFace(ZMin, []int{vi(i, j, 0), vi(i+1, j, 0), vi(i+1, j+1, 0), vi(i, j+1, 0)})
			em.AddBoundaryFace(ZMax, []int{vi(i, j, nz), vi(i+1, j, nz), vi(i+1, j+1, nz), vi(i, j+1, nz)})
		}
	}
	return em, nil
}
