package particle

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/barytrack/tetrahedra"
)

var (
	ErrCellNotFound = errors.New("cell not found for particle position")
	ErrOutsideMesh  = errors.New("particle position outside of the mesh")
)

// LocateError reports a failed Locate
type LocateError struct {
	Err       error
	Msg       string
	Position  r3.Vec
	Direction *r3.Vec
}

func (e *LocateError) Error() string {
	s := fmt.Sprintf("%v at %v", e.Err, e.Position)
	if e.Direction != nil {
		s += fmt.Sprintf(" along %v", *e.Direction)
	}
	if e.Msg != "" {
		s = e.Msg + ": " + s
	}
	return s
}

func (e *LocateError) Unwrap() error { return e.Err }

const maxLocateWarnings = 100

var locateWarnings atomic.Int64

func warnOutside(msg string, position r3.Vec) {
	switch n := locateWarnings.Add(1); {
	case n <= maxLocateWarnings:
		log.Printf("Warning: %s, position %v", msg, position)
	case n == maxLocateWarnings+1:
		log.Printf("Warning: suppressing further particle location warnings")
	}
}

// Locate places the particle at position by tracking from the centre of
// celli, or of the cell the mesh finds when celli is negative. When direction
// is given the last part of the track runs along it, so the particle arrives
// the way it would have moved. A position outside the cell leaves the
// particle on the boundary face it reached; that is an error if boundaryFail
// is set and a warning otherwise.
func (p *Particle) Locate(position r3.Vec, direction *r3.Vec, celli int, boundaryFail bool, msg string) error {
	onBoundary, err := p.locate(position, direction, celli)
	if err != nil {
		err.(*LocateError).Msg = msg
		return err
	}
	if !onBoundary {
		return nil
	}
	if boundaryFail {
		return &LocateError{Err: ErrOutsideMesh, Msg: msg, Position: position, Direction: direction}
	}
	warnOutside(msg, position)
	return nil
}

// locate does the work of Locate, reporting whether the particle stopped on
// a face short of position
func (p *Particle) locate(position r3.Vec, direction *r3.Vec, celli int) (bool, error) {
	if celli < 0 {
		celli = p.mesh.FindCell(position)
		if celli < 0 {
			return false, &LocateError{Err: ErrCellNotFound, Position: position, Direction: direction}
		}
	}
	var (
		faces  = p.mesh.Faces()
		cell   = p.mesh.Cells()[celli]
		centre = tetrahedra.Barycentric{1, 0, 0, 0}
	)
	p.cell = celli
	p.face = -1
	p.tetFace, p.tetPt = cell[0], 1
	p.coordinates = centre
	displacement := r3.Sub(position, p.Position())

	// Track from the centre through each tet; the tet holding the position
	// ends the track without a triangle hit
	var (
		minF       = vGreat
		minTetFace = -1
		minTetPt   = -1
	)
	for _, facei := range cell {
		for tetPt := 1; tetPt < len(faces[facei])-1; tetPt++ {
			p.coordinates = centre
			p.tetFace, p.tetPt = facei, tetPt
			f, tetTriI := p.TrackToTri(displacement, 0)
			if tetTriI == -1 {
				return false, nil
			}
			if f < minF {
				minF, minTetFace, minTetPt = f, facei, tetPt
			}
		}
	}

	// Outside the cell, carry on from the tet that got furthest
	p.coordinates = centre
	p.tetFace, p.tetPt = minTetFace, minTetPt
	if direction != nil && r3.Norm2(*direction) > 0 {
		n := r3.Unit(*direction)
		along := r3.Scale(r3.Dot(displacement, n), n)
		p.Track(r3.Sub(displacement, along), 0)
		if !p.OnBoundaryFace() {
			p.Track(along, 0)
		}
	} else {
		p.Track(displacement, 0)
	}
	return p.OnFace(), nil
}

// AutoMap relocates the particle after a topology change of the mesh.
// reverseCellMap maps the particle's old cell to a cell of the new mesh.
func (p *Particle) AutoMap(position r3.Vec, reverseCellMap []int) error {
	celli := -1
	if p.cell >= 0 && p.cell < len(reverseCellMap) {
		celli = reverseCellMap[p.cell]
	}
	return p.Locate(position, nil, celli, true,
		"Particle mapped to a location outside of the mesh")
}
