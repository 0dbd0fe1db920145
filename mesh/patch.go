package mesh

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// PatchKind is the closed set of boundary patch types that particles react to
type PatchKind uint8

const (
	Generic       PatchKind = iota // Open boundary, inlets and outlets
	Wall                           // Solid wall
	Wedge                          // Axisymmetric wedge side
	SymmetryPlane                  // Planar symmetry
	Symmetry                       // Symmetry on a non-planar patch
	Cyclic                         // Conformal periodic coupling
	CyclicAMI                      // Non-conformal periodic coupling
	Processor                      // Boundary between partitions
)

func (k PatchKind) String() string {
	names := map[PatchKind]string{
		Generic:       "patch",
		Wall:          "wall",
		Wedge:         "wedge",
		SymmetryPlane: "symmetryPlane",
		Symmetry:      "symmetry",
		Cyclic:        "cyclic",
		CyclicAMI:     "cyclicAMI",
		Processor:     "processor",
	}
	if name, ok := names[k]; ok {
		return name
	}
	return "unknown"
}

// Coupled kinds exchange particles with another patch
func (k PatchKind) Coupled() bool {
	return k == Cyclic || k == CyclicAMI || k == Processor
}

// PatchKindMap maps patch type names, as found in case files and mesh
// markers, to PatchKind. Keys are lowercase.
var PatchKindMap = map[string]PatchKind{
	"patch":         Generic,
	"generic":       Generic,
	"inlet":         Generic,
	"inflow":        Generic,
	"outlet":        Generic,
	"outflow":       Generic,
	"farfield":      Generic,
	"wall":          Wall,
	"no_slip":       Wall,
	"wedge":         Wedge,
	"symmetryplane": SymmetryPlane,
	"symmetry":      Symmetry,
	"cyclic":        Cyclic,
	"periodic":      Cyclic,
	"cyclicami":     CyclicAMI,
	"processor":     Processor,
}

// ParsePatchKind converts a patch type name to a PatchKind. Matching is case
// insensitive; unknown names are walls.
func ParsePatchKind(name string) PatchKind {
	if kind, ok := PatchKindMap[strings.ToLower(strings.TrimSpace(name))]; ok {
		return kind
	}
	return Wall
}

// CoupledTransform maps positions on a coupled patch onto its partner:
// x' = R·x + Separation. Directions and tensors transform with R only.
type CoupledTransform struct {
	Rotation   *r3.Mat // nil for a pure translation
	Separation r3.Vec
}

func (t CoupledTransform) Parallel() bool { return t.Rotation == nil }

func (t CoupledTransform) Separated() bool { return t.Separation != (r3.Vec{}) }

func (t CoupledTransform) TransformPosition(x r3.Vec) r3.Vec {
	return r3.Add(t.TransformDirection(x), t.Separation)
}

func (t CoupledTransform) TransformDirection(v r3.Vec) r3.Vec {
	if t.Rotation == nil {
		return v
	}
	return t.Rotation.MulVec(v)
}

// Inverse maps the partner patch back onto this one
func (t CoupledTransform) Inverse() CoupledTransform {
	if t.Rotation == nil {
		return CoupledTransform{Separation: r3.Scale(-1, t.Separation)}
	}
	Rt := r3.NewMat(nil)
	Rt.CloneFrom(t.Rotation.T())
	return CoupledTransform{
		Rotation:   Rt,
		Separation: r3.Scale(-1, Rt.MulVec(t.Separation)),
	}
}

// RotationTransform rotates by angle radians about the axis through origin
func RotationTransform(axis r3.Vec, angle float64, origin r3.Vec) CoupledTransform {
	R := r3.NewRotation(angle, axis).Mat()
	return CoupledTransform{
		Rotation:   R,
		Separation: r3.Sub(origin, R.MulVec(origin)),
	}
}

// Patch is a contiguous range of boundary faces sharing a kind
type Patch struct {
	Name  string
	Kind  PatchKind
	Index int
	Start int // First face of the patch in the mesh face list
	Size  int
	// NeighbPatch is the coupled patch index: on the same mesh for cyclic
	// kinds, on partition NeighbProcNo for processor patches. -1 otherwise.
	NeighbPatch  int
	MyProcNo     int
	NeighbProcNo int
	// Transform maps this patch onto its coupled partner
	Transform CoupledTransform
	// Normal is the plane normal of wedge and symmetryPlane patches
	Normal r3.Vec
}

func (p *Patch) String() string {
	return fmt.Sprintf("%s (%s, faces %d..%d)", p.Name, p.Kind, p.Start, p.Start+p.Size-1)
}

// WhichFace converts a mesh face index to the patch-local index
func (p *Patch) WhichFace(facei int) int { return facei - p.Start }

func (p *Patch) Contains(facei int) bool {
	return facei >= p.Start && facei < p.Start+p.Size
}

// PatchSpec describes how boundary faces grouped under a marker become a patch
type PatchSpec struct {
	Name string
	Kind PatchKind
	// Neighbour names the coupled patch of a cyclic or cyclicAMI pair
	Neighbour string
	// Transform maps this patch onto Neighbour. Only one side of a pair
	// needs it; the other side gets the inverse.
	Transform *CoupledTransform
	// Normal is required for wedge and symmetryPlane patches and computed
	// from the first face when left zero
	Normal r3.Vec
}
