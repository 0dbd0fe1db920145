package mesh

import (
	"fmt"
	"log"
	"sort"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

// ElementType represents different element types
type ElementType int

const (
	Tet ElementType = iota
	Hex
	Prism
	Pyramid
)

func (e ElementType) String() string {
	return [...]string{"Tet", "Hex", "Prism", "Pyramid"}[e]
}

// defaultPatchName collects boundary faces that no marker lists
const defaultPatchName = "defaultFaces"

// ElementMesh is an unstructured mesh given by element to vertex
// connectivity, the form produced by mesh files and the block generator
type ElementMesh struct {
	Vertices     []r3.Vec
	Elements     [][]int       // Element to vertex connectivity [nelems][nverts_per_elem]
	ElementTypes []ElementType // Element type for each element
	// Markers names the boundary face groups in file order
	Markers       []string
	BoundaryFaces map[string][][]int
}

func NewElementMesh() *ElementMesh {
	return &ElementMesh{BoundaryFaces: make(map[string][][]int)}
}

func (em *ElementMesh) AddElement(etype ElementType, verts []int) {
	em.Elements = append(em.Elements, verts)
	em.ElementTypes = append(em.ElementTypes, etype)
}

func (em *ElementMesh) AddBoundaryFace(marker string, verts []int) {
	if _, exists := em.BoundaryFaces[marker]; !exists {
		em.Markers = append(em.Markers, marker)
	}
	em.BoundaryFaces[marker] = append(em.BoundaryFaces[marker], verts)
}

// GetElementFaces returns the face vertices for each element type, ordered
// so that face normals point out of a positively oriented element
func GetElementFaces(elemType ElementType, vertices []int) [][]int {
	switch elemType {
	case Tet:
		return [][]int{
			{vertices[0], vertices[2], vertices[1]},
			{vertices[0], vertices[1], vertices[3]},
			{vertices[1], vertices[2], vertices[3]},
			{vertices[0], vertices[3], vertices[2]},
		}
	case Hex:
		return [][]int{
			{vertices[0], vertices[3], vertices[2], vertices[1]}, // bottom
			{vertices[4], vertices[5], vertices[6], vertices[7]}, // top
			{vertices[0], vertices[1], vertices[5], vertices[4]},
			{vertices[1], vertices[2], vertices[6], vertices[5]},
			{vertices[2], vertices[3], vertices[7], vertices[6]},
			{vertices[3], vertices[0], vertices[4], vertices[7]},
		}
	case Prism:
		return [][]int{
			{vertices[0], vertices[2], vertices[1]},
			{vertices[3], vertices[4], vertices[5]},
			{vertices[0], vertices[1], vertices[4], vertices[3]},
			{vertices[1], vertices[2], vertices[5], vertices[4]},
			{vertices[2], vertices[0], vertices[3], vertices[5]},
		}
	case Pyramid:
		return [][]int{
			{vertices[0], vertices[3], vertices[2], vertices[1]},
			{vertices[0], vertices[1], vertices[4]},
			{vertices[1], vertices[2], vertices[4]},
			{vertices[2], vertices[3], vertices[4]},
			{vertices[3], vertices[0], vertices[4]},
		}
	default:
		return [][]int{}
	}
}

func faceKey(verts []int) string {
	sorted := make([]int, len(verts))
	copy(sorted, verts)
	sort.Ints(sorted)
	return fmt.Sprintf("%v", sorted)
}

// flipFace reverses the orientation of f while keeping its first point
func flipFace(f []int) []int {
	flipped := make([]int, len(f))
	flipped[0] = f[0]
	for i := 1; i < len(f); i++ {
		flipped[i] = f[len(f)-i]
	}
	return flipped
}

type builtFace struct {
	verts            []int
	owner, neighbour int
}

// BuildPolyMesh builds the face-addressed mesh. Boundary faces are grouped
// into one patch per marker; specs set the kind and coupling of named
// patches, and markers without a spec become patches of the kind their name
// suggests.
func (em *ElementMesh) BuildPolyMesh(specs []PatchSpec) (*PolyMesh, error) {
	var (
		faceMap = make(map[string]int)
		all     []builtFace
	)
	for elemID, verts := range em.Elements {
		elemFaces := GetElementFaces(em.ElementTypes[elemID], verts)
		if len(elemFaces) == 0 {
			return nil, fmt.Errorf("element %d has unsupported type %d", elemID, em.ElementTypes[elemID])
		}
		if !em.outward(elemFaces[0], verts) {
			for i := range elemFaces {
				elemFaces[i] = flipFace(elemFaces[i])
			}
		}
		for _, fv := range elemFaces {
			key := faceKey(fv)
			if faceID, exists := faceMap[key]; exists {
				if all[faceID].neighbour >= 0 {
					return nil, fmt.Errorf("face %v is shared by more than two elements", fv)
				}
				all[faceID].neighbour = elemID
			} else {
				faceMap[key] = len(all)
				all = append(all, builtFace{verts: fv, owner: elemID, neighbour: -1})
			}
		}
	}

	var internal []builtFace
	for _, f := range all {
		if f.neighbour >= 0 {
			internal = append(internal, f)
		}
	}
	sort.SliceStable(internal, func(i, j int) bool {
		if internal[i].owner != internal[j].owner {
			return internal[i].owner < internal[j].owner
		}
		return internal[i].neighbour < internal[j].neighbour
	})

	// Patch order: specs, then unclaimed markers, then the default patch
	var (
		names   []string
		kinds   = make(map[string]PatchKind)
		specFor = make(map[string]*PatchSpec)
	)
	for i := range specs {
		names = append(names, specs[i].Name)
		kinds[specs[i].Name] = specs[i].Kind
		specFor[specs[i].Name] = &specs[i]
	}
	for _, marker := range em.Markers {
		if _, exists := kinds[marker]; !exists {
			names = append(names, marker)
			kinds[marker] = ParsePatchKind(marker)
		}
	}
	markerOf := make(map[string]string)
	for marker, faces := range em.BoundaryFaces {
		for _, f := range faces {
			markerOf[faceKey(f)] = marker
		}
	}
	patchFaces := make(map[string][]builtFace)
	for _, f := range all {
		if f.neighbour >= 0 {
			continue
		}
		name, exists := markerOf[faceKey(f.verts)]
		if !exists {
			name = defaultPatchName
		}
		patchFaces[name] = append(patchFaces[name], f)
	}
	if len(patchFaces[defaultPatchName]) > 0 {
		if _, exists := kinds[defaultPatchName]; !exists {
			log.Printf("%d boundary faces have no marker, collected in %s",
				len(patchFaces[defaultPatchName]), defaultPatchName)
			names = append(names, defaultPatchName)
			kinds[defaultPatchName] = Wall
		}
	}

	patches := make([]*Patch, len(names))
	index := make(map[string]int)
	for i, name := range names {
		patches[i] = &Patch{Name: name, Kind: kinds[name], NeighbPatch: -1, NeighbProcNo: -1}
		if spec := specFor[name]; spec != nil {
			patches[i].Normal = spec.Normal
		}
		index[name] = i
	}
	if err := em.coupleCyclics(specs, patches, index, patchFaces); err != nil {
		return nil, err
	}

	var (
		faces     = make([][]int, 0, len(all))
		owner     = make([]int, 0, len(all))
		neighbour = make([]int, 0, len(internal))
	)
	for _, f := range internal {
		faces = append(faces, f.verts)
		owner = append(owner, f.owner)
		neighbour = append(neighbour, f.neighbour)
	}
	for _, p := range patches {
		p.Start = len(faces)
		p.Size = len(patchFaces[p.Name])
		for _, f := range patchFaces[p.Name] {
			faces = append(faces, f.verts)
			owner = append(owner, f.owner)
		}
	}
	return NewPolyMesh(em.Vertices, faces, owner, neighbour, patches)
}

// outward tests whether face f points out of the element with vertices verts
func (em *ElementMesh) outward(f, verts []int) bool {
	var centroid r3.Vec
	for _, v := range verts {
		centroid = r3.Add(centroid, em.Vertices[v])
	}
	centroid = r3.Scale(1/float64(len(verts)), centroid)
	fc, area := FaceCentreAndArea(f, em.Vertices)
	return r3.Dot(area, r3.Sub(fc, centroid)) > 0
}

// coupleCyclics links the patches of each cyclic pair and sets their
// transforms. Faces of the second patch of a conformal pair are reordered
// and renumbered so that face i of both patches coincide under the transform
// with point k of the first matching point (n-k)%n of the second.
func (em *ElementMesh) coupleCyclics(specs []PatchSpec, patches []*Patch,
	index map[string]int, patchFaces map[string][]builtFace) error {
	for _, spec := range specs {
		if spec.Kind != Cyclic && spec.Kind != CyclicAMI {
			continue
		}
		a, exists := index[spec.Name]
		b, nbrExists := index[spec.Neighbour]
		if !exists || !nbrExists || a == b {
			return fmt.Errorf("cyclic patch %s has no neighbour patch %q", spec.Name, spec.Neighbour)
		}
		if patches[b].Kind != spec.Kind {
			return fmt.Errorf("cyclic patch %s is coupled to %s patch %s", spec.Name, patches[b].Kind, spec.Neighbour)
		}
		patches[a].NeighbPatch, patches[b].NeighbPatch = b, a
		if spec.Transform != nil {
			patches[a].Transform = *spec.Transform
			patches[b].Transform = spec.Transform.Inverse()
		}
	}
	for a, p := range patches {
		if p.Kind != Cyclic {
			continue
		}
		if p.NeighbPatch < 0 {
			return fmt.Errorf("cyclic patch %s has no neighbour", p.Name)
		}
		if p.NeighbPatch < a {
			continue
		}
		nbr := patches[p.NeighbPatch]
		matched, err := em.matchFaces(patchFaces[p.Name], patchFaces[nbr.Name], p.Transform)
		if err != nil {
			return fmt.Errorf("coupling %s to %s: %w", p.Name, nbr.Name, err)
		}
		patchFaces[nbr.Name] = matched
	}
	return nil
}

func (em *ElementMesh) matchFaces(send, receive []builtFace, t CoupledTransform) ([]builtFace, error) {
	if len(send) != len(receive) {
		return nil, fmt.Errorf("patches have %d and %d faces", len(send), len(receive))
	}
	var (
		tol     = 1e-6 * em.diagonal()
		matched = make([]builtFace, len(send))
		used    = make([]bool, len(receive))
		near    = func(a, b r3.Vec) bool { return scalar.EqualWithinAbs(r3.Norm(r3.Sub(a, b)), 0, tol) }
	)
	for i, sf := range send {
		sc, _ := FaceCentreAndArea(sf.verts, em.Vertices)
		target := t.TransformPosition(sc)
		j := -1
		for k, rf := range receive {
			if used[k] || len(rf.verts) != len(sf.verts) {
				continue
			}
			if rc, _ := FaceCentreAndArea(rf.verts, em.Vertices); near(rc, target) {
				j = k
				break
			}
		}
		if j < 0 {
			return nil, fmt.Errorf("no face matches face %d centred at %v", i, sc)
		}
		used[j] = true
		n := len(sf.verts)
		verts := make([]int, n)
		for k := 0; k < n; k++ {
			img := t.TransformPosition(em.Vertices[sf.verts[(n-k)%n]])
			verts[k] = -1
			for _, v := range receive[j].verts {
				if near(em.Vertices[v], img) {
					verts[k] = v
					break
				}
			}
			if verts[k] < 0 {
				return nil, fmt.Errorf("no point matches %v on the face matching face %d", img, i)
			}
		}
		matched[i] = builtFace{verts: verts, owner: receive[j].owner, neighbour: -1}
	}
	return matched, nil
}

func (em *ElementMesh) diagonal() float64 {
	if len(em.Vertices) == 0 {
		return 0
	}
	lo, hi := em.Vertices[0], em.Vertices[0]
	for _, v := range em.Vertices {
		lo = r3.Vec{X: min(lo.X, v.X), Y: min(lo.Y, v.Y), Z: min(lo.Z, v.Z)}
		hi = r3.Vec{X: max(hi.X, v.X), Y: max(hi.Y, v.Y), Z: max(hi.Z, v.Z)}
	}
	return r3.Norm(r3.Sub(hi, lo))
}

// PrintStatistics prints mesh statistics
func (em *ElementMesh) PrintStatistics() {
	fmt.Printf("Element Mesh Statistics:\n")
	fmt.Printf("  Vertices: %d\n", len(em.Vertices))
	fmt.Printf("  Elements: %d\n", len(em.Elements))
	typeCounts := make(map[ElementType]int)
	for _, t := range em.ElementTypes {
		typeCounts[t]++
	}
	fmt.Printf("  Element types:\n")
	for t, count := range typeCounts {
		fmt.Printf("    %s: %d\n", t, count)
	}
	for _, marker := range em.Markers {
		fmt.Printf("  Marker %s: %d faces\n", marker, len(em.BoundaryFaces[marker]))
	}
}
