package particle

import (
	"fmt"
)

// Location describes where a particle sits relative to its tet
type Location uint8

const (
	InsideTet Location = iota
	OnTetTriangle
	OnMeshFace
	OnBoundaryFace
)

func (l Location) String() string {
	return [...]string{"InsideTet", "OnTetTriangle", "OnMeshFace", "OnBoundaryFace"}[l]
}

func (p *Particle) Location() Location {
	switch {
	case p.OnBoundaryFace():
		return OnBoundaryFace
	case p.OnFace():
		return OnMeshFace
	}
	for _, y := range p.coordinates {
		if y == 0 {
			return OnTetTriangle
		}
	}
	return InsideTet
}

// reflect swaps the weights of the two face triangle vertices other than the
// base, matching a tet whose face triangle is traversed the other way
func (p *Particle) reflect() {
	p.coordinates[2], p.coordinates[3] = p.coordinates[3], p.coordinates[2]
}

// rotate cycles the weights of the face triangle vertices, forwards with
// b←c, c←d, d←b or backwards when reverse is set
func (p *Particle) rotate(reverse bool) {
	y := &p.coordinates
	if !reverse {
		y[1], y[2], y[3] = y[2], y[3], y[1]
	} else {
		y[1], y[2], y[3] = y[3], y[1], y[2]
	}
}

// changeTet moves the particle through triangle tetTriI of its tet into the
// adjacent tet, which may belong to another face of the same cell
func (p *Particle) changeTet(tetTriI int) {
	isOwner := p.mesh.FaceOwner()[p.tetFace] == p.cell
	firstTetPt := 1
	lastTetPt := len(p.mesh.Faces()[p.tetFace]) - 2

	switch tetTriI {
	case 1:
		p.changeFace(tetTriI)
	case 2:
		if isOwner {
			if p.tetPt == lastTetPt {
				p.changeFace(tetTriI)
			} else {
				p.reflect()
				p.tetPt++
			}
		} else {
			if p.tetPt == firstTetPt {
				p.changeFace(tetTriI)
			} else {
				p.reflect()
				p.tetPt--
			}
		}
	case 3:
		if isOwner {
			if p.tetPt == firstTetPt {
				p.changeFace(tetTriI)
			} else {
				p.reflect()
				p.tetPt--
			}
		} else {
			if p.tetPt == lastTetPt {
				p.changeFace(tetTriI)
			} else {
				p.reflect()
				p.tetPt++
			}
		}
	default:
		panic(fmt.Sprintf("changeTet called with tet triangle %d", tetTriI))
	}
}

type edge [2]int

// compare gives 1 for the same edge, -1 for the reversed edge, 0 otherwise
func (e edge) compare(o edge) int {
	switch {
	case e[0] == o[0] && e[1] == o[1]:
		return 1
	case e[0] == o[1] && e[1] == o[0]:
		return -1
	}
	return 0
}

// otherVertex returns the vertex of the edge opposite to v, or -1 if v is
// not on the edge
func (e edge) otherVertex(v int) int {
	switch v {
	case e[0]:
		return e[1]
	case e[1]:
		return e[0]
	}
	return -1
}

// changeFace moves the particle through triangle tetTriI into the tet of
// another face of the cell that shares the exited triangle's face edge
func (p *Particle) changeFace(tetTriI int) {
	triOldIs := p.CurrentTetIndices().FaceTriIs(p.mesh)

	var sharedEdge edge
	switch tetTriI {
	case 1:
		sharedEdge = edge{triOldIs[1], triOldIs[2]}
	case 2:
		sharedEdge = edge{triOldIs[2], triOldIs[0]}
	case 3:
		sharedEdge = edge{triOldIs[0], triOldIs[1]}
	default:
		panic(fmt.Sprintf("changeFace called with tet triangle %d", tetTriI))
	}

	// The face on the far side of the shared edge traverses it in the
	// opposite direction when seen from the cell
	var (
		faces    = p.mesh.Faces()
		owner    = p.mesh.FaceOwner()
		newFaceI = -1
		edgeI    = -1
	)
	for _, facei := range p.mesh.Cells()[p.cell] {
		if facei == p.tetFace {
			continue
		}
		edgeComp := 1
		if owner[facei] == p.cell {
			edgeComp = -1
		}
		f := faces[facei]
		for i := range f {
			if sharedEdge.compare(edge{f[i], f[(i+1)%len(f)]}) == edgeComp {
				newFaceI, edgeI = facei, i
				break
			}
		}
		if newFaceI >= 0 {
			break
		}
	}
	if newFaceI < 0 {
		panic(fmt.Sprintf("changeFace: no face of cell %d shares edge %v of face %d",
			p.cell, sharedEdge, p.tetFace))
	}
	p.tetFace = newFaceI

	// Position the edge relative to the base point and pick the tet
	nEdges := len(faces[newFaceI])
	base := max(p.mesh.TetBasePtIs()[newFaceI], 0)
	edgeI = (edgeI - base + nEdges) % nEdges
	p.tetPt = min(max(edgeI, 1), nEdges-2)

	// Pre-rotation puts the shared edge opposite the base of the tet
	if sharedEdge.otherVertex(triOldIs[1]) == -1 {
		p.rotate(false)
	} else if sharedEdge.otherVertex(triOldIs[2]) == -1 {
		p.rotate(true)
	}

	p.reflect()

	// Post-rotation puts the edge back in the position of the new tet
	triNewIs := p.CurrentTetIndices().FaceTriIs(p.mesh)
	if sharedEdge.otherVertex(triNewIs[1]) == -1 {
		p.rotate(true)
	} else if sharedEdge.otherVertex(triNewIs[2]) == -1 {
		p.rotate(false)
	}
}

// changeCell moves the particle through its face into the neighbouring cell
func (p *Particle) changeCell() {
	own, nbr := p.mesh.FaceOwner()[p.tetFace], p.mesh.FaceNeighbour()[p.tetFace]
	if p.cell == own {
		p.cell = nbr
	} else {
		p.cell = own
	}
	p.reflect()
}
