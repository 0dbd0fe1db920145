package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// gmshElement describes a Gmsh element type. Second order types keep only
// their corner nodes, which Gmsh lists first.
type gmshElement struct {
	dim      int
	etype    ElementType // Volume elements only
	numNodes int         // Nodes on the element line
	corners  int
}

// gmshElementTypes maps the Gmsh element codes shared by format 2.2 and 4.1
var gmshElementTypes = map[int]gmshElement{
	1:  {dim: 1, numNodes: 2},
	2:  {dim: 2, numNodes: 3, corners: 3},
	3:  {dim: 2, numNodes: 4, corners: 4},
	4:  {3, Tet, 4, 4},
	5:  {3, Hex, 8, 8},
	6:  {3, Prism, 6, 6},
	7:  {3, Pyramid, 5, 5},
	8:  {dim: 1, numNodes: 3},
	9:  {dim: 2, numNodes: 6, corners: 3},
	10: {dim: 2, numNodes: 9, corners: 4},
	11: {3, Tet, 10, 4},
	12: {3, Hex, 27, 8},
	13: {3, Prism, 18, 6},
	14: {3, Pyramid, 14, 5},
	15: {dim: 0, numNodes: 1},
	16: {dim: 2, numNodes: 8, corners: 4},
	17: {3, Hex, 20, 8},
	18: {3, Prism, 15, 6},
	19: {3, Pyramid, 13, 5},
}

// ReadGmsh reads an ASCII Gmsh file in format 2.2 or 4.1
func ReadGmsh(filename string) (*ElementMesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	em, err := ParseGmsh(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return em, nil
}

type gmshReader struct {
	scanner *bufio.Scanner
	lineNum int
	major   int
	// Node tags to vertex indices
	nodes map[int]int
	// Physical names keyed by dimension and tag
	names map[[2]int]string
	// First physical tag of each surface entity, format 4 only
	surfaces map[int]int
	// Boundary faces by physical tag, tags in order of first appearance
	faceTags []int
	faces    map[int][][]int
}

// ParseGmsh reads an ASCII Gmsh mesh from r. Volume elements become cells;
// triangles and quads carrying a physical tag become boundary faces named
// after their physical group.
func ParseGmsh(r io.Reader) (*ElementMesh, error) {
	gr := &gmshReader{
		scanner:  bufio.NewScanner(r),
		nodes:    make(map[int]int),
		names:    make(map[[2]int]string),
		surfaces: make(map[int]int),
		faces:    make(map[int][][]int),
	}
	const maxScanTokenSize = 1024 * 1024 * 10
	gr.scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)
	em := NewElementMesh()

	for gr.scanner.Scan() {
		gr.lineNum++
		line := strings.TrimSpace(gr.scanner.Text())
		if !strings.HasPrefix(line, "$") || strings.HasPrefix(line, "$End") {
			continue
		}
		var err error
		switch line {
		case "$MeshFormat":
			err = gr.readFormat()
		case "$PhysicalNames":
			err = gr.readPhysicalNames()
		case "$Entities":
			err = gr.readEntities()
		case "$Nodes":
			if gr.major == 0 {
				return nil, fmt.Errorf("line %d: $Nodes before $MeshFormat", gr.lineNum)
			}
			if gr.major == 2 {
				err = gr.readNodes2(em)
			} else {
				err = gr.readNodes4(em)
			}
		case "$Elements":
			if gr.major == 2 {
				err = gr.readElements2(em)
			} else {
				err = gr.readElements4(em)
			}
		default:
			err = gr.skip("$End" + line[1:])
		}
		if err != nil {
			return nil, err
		}
	}
	if err := gr.scanner.Err(); err != nil {
		return nil, err
	}
	if gr.major == 0 {
		return nil, fmt.Errorf("no $MeshFormat section found")
	}
	if len(em.Elements) == 0 {
		return nil, fmt.Errorf("no volume elements")
	}
	for _, tag := range gr.faceTags {
		name, ok := gr.names[[2]int{2, tag}]
		if !ok {
			name = "physical" + strconv.Itoa(tag)
		}
		for _, f := range gr.faces[tag] {
			em.AddBoundaryFace(name, f)
		}
	}
	return em, nil
}

func (gr *gmshReader) next() ([]string, error) {
	for gr.scanner.Scan() {
		gr.lineNum++
		if fields := strings.Fields(gr.scanner.Text()); len(fields) > 0 {
			return fields, nil
		}
	}
	if err := gr.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("unexpected end of file after line %d", gr.lineNum)
}

// nextInts reads a line of at least n integers
func (gr *gmshReader) nextInts(n int) ([]int, error) {
	fields, err := gr.next()
	if err != nil {
		return nil, err
	}
	if len(fields) < n {
		return nil, fmt.Errorf("line %d: expected %d values, got %d", gr.lineNum, n, len(fields))
	}
	values := make([]int, len(fields))
	for i, f := range fields {
		if values[i], err = strconv.Atoi(f); err != nil {
			return nil, fmt.Errorf("line %d: invalid integer %q", gr.lineNum, f)
		}
	}
	return values, nil
}

func (gr *gmshReader) skip(end string) error {
	for gr.scanner.Scan() {
		gr.lineNum++
		if strings.TrimSpace(gr.scanner.Text()) == end {
			return nil
		}
	}
	return fmt.Errorf("missing %s", end)
}

func (gr *gmshReader) readFormat() error {
	fields, err := gr.next()
	if err != nil {
		return err
	}
	if len(fields) < 3 {
		return fmt.Errorf("line %d: invalid MeshFormat line", gr.lineNum)
	}
	version := fields[0]
	switch {
	case strings.HasPrefix(version, "2"):
		gr.major = 2
	case strings.HasPrefix(version, "4"):
		gr.major = 4
	default:
		return fmt.Errorf("unsupported Gmsh version: %s", version)
	}
	if fields[1] != "0" {
		return fmt.Errorf("binary Gmsh files are not supported, save the mesh as ASCII")
	}
	return gr.skip("$EndMeshFormat")
}

func (gr *gmshReader) readPhysicalNames() error {
	counts, err := gr.nextInts(1)
	if err != nil {
		return err
	}
	for i := 0; i < counts[0]; i++ {
		fields, err := gr.next()
		if err != nil {
			return err
		}
		if len(fields) < 3 {
			return fmt.Errorf("line %d: invalid physical name entry", gr.lineNum)
		}
		dim, err1 := strconv.Atoi(fields[0])
		tag, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			return fmt.Errorf("line %d: invalid physical name entry", gr.lineNum)
		}
		gr.names[[2]int{dim, tag}] = strings.Trim(strings.Join(fields[2:], " "), "\"")
	}
	return gr.skip("$EndPhysicalNames")
}

// readEntities keeps the physical tag of each surface. Points carry their
// physical tag count in field 4, curves, surfaces and volumes in field 7.
func (gr *gmshReader) readEntities() error {
	counts, err := gr.nextInts(4)
	if err != nil {
		return err
	}
	for dim := 0; dim < 4; dim++ {
		for i := 0; i < counts[dim]; i++ {
			fields, err := gr.next()
			if err != nil {
				return err
			}
			at := 7
			if dim == 0 {
				at = 4
			}
			if len(fields) <= at {
				return fmt.Errorf("line %d: invalid entity", gr.lineNum)
			}
			if dim != 2 {
				continue
			}
			tag, err := strconv.Atoi(fields[0])
			if err != nil {
				return fmt.Errorf("line %d: invalid entity tag %q", gr.lineNum, fields[0])
			}
			numPhys, _ := strconv.Atoi(fields[at])
			if numPhys > 0 && len(fields) > at+1 {
				if phys, err := strconv.Atoi(fields[at+1]); err == nil {
					gr.surfaces[tag] = phys
				}
			}
		}
	}
	return gr.skip("$EndEntities")
}

func parseVec(fields []string) (r3.Vec, error) {
	var coords [3]float64
	for j := 0; j < 3; j++ {
		var err error
		if coords[j], err = strconv.ParseFloat(fields[j], 64); err != nil {
			return r3.Vec{}, fmt.Errorf("invalid coordinate %q", fields[j])
		}
	}
	return r3.Vec{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

func (gr *gmshReader) addNode(em *ElementMesh, tag int, v r3.Vec) error {
	if _, dup := gr.nodes[tag]; dup {
		return fmt.Errorf("line %d: node %d defined twice", gr.lineNum, tag)
	}
	gr.nodes[tag] = len(em.Vertices)
	em.Vertices = append(em.Vertices, v)
	return nil
}

func (gr *gmshReader) readNodes2(em *ElementMesh) error {
	counts, err := gr.nextInts(1)
	if err != nil {
		return err
	}
	for i := 0; i < counts[0]; i++ {
		fields, err := gr.next()
		if err != nil {
			return err
		}
		if len(fields) < 4 {
			return fmt.Errorf("line %d: node needs a tag and 3 coordinates", gr.lineNum)
		}
		tag, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("line %d: invalid node tag %q", gr.lineNum, fields[0])
		}
		v, err := parseVec(fields[1:])
		if err != nil {
			return fmt.Errorf("line %d: %w", gr.lineNum, err)
		}
		if err = gr.addNode(em, tag, v); err != nil {
			return err
		}
	}
	return gr.skip("$EndNodes")
}

// readNodes4 reads entity blocks of node tags followed by their coordinates
func (gr *gmshReader) readNodes4(em *ElementMesh) error {
	header, err := gr.nextInts(4)
	if err != nil {
		return err
	}
	for b := 0; b < header[0]; b++ {
		block, err := gr.nextInts(4)
		if err != nil {
			return err
		}
		n := block[3]
		tags := make([]int, 0, n)
		for len(tags) < n {
			values, err := gr.nextInts(1)
			if err != nil {
				return err
			}
			tags = append(tags, values...)
		}
		for _, tag := range tags {
			fields, err := gr.next()
			if err != nil {
				return err
			}
			if len(fields) < 3 {
				return fmt.Errorf("line %d: node needs 3 coordinates", gr.lineNum)
			}
			v, err := parseVec(fields)
			if err != nil {
				return fmt.Errorf("line %d: %w", gr.lineNum, err)
			}
			if err = gr.addNode(em, tag, v); err != nil {
				return err
			}
		}
	}
	return gr.skip("$EndNodes")
}

// addElement stores a volume element or a tagged boundary face
func (gr *gmshReader) addElement(em *ElementMesh, info gmshElement, phys int, nodeTags []int) error {
	if info.dim < 2 || (info.dim == 2 && phys == 0) {
		return nil
	}
	if len(nodeTags) < info.numNodes {
		return fmt.Errorf("line %d: expected %d nodes, got %d", gr.lineNum, info.numNodes, len(nodeTags))
	}
	verts := make([]int, info.corners)
	for i := range verts {
		v, ok := gr.nodes[nodeTags[i]]
		if !ok {
			return fmt.Errorf("line %d: unknown node %d", gr.lineNum, nodeTags[i])
		}
		verts[i] = v
	}
	if info.dim == 3 {
		em.AddElement(info.etype, verts)
		return nil
	}
	if _, seen := gr.faces[phys]; !seen {
		gr.faceTags = append(gr.faceTags, phys)
	}
	gr.faces[phys] = append(gr.faces[phys], verts)
	return nil
}

// readElements2 reads lines of: tag type numTags tags... nodes...
// The first tag is the physical group.
func (gr *gmshReader) readElements2(em *ElementMesh) error {
	counts, err := gr.nextInts(1)
	if err != nil {
		return err
	}
	for i := 0; i < counts[0]; i++ {
		values, err := gr.nextInts(3)
		if err != nil {
			return err
		}
		info, ok := gmshElementTypes[values[1]]
		if !ok {
			return fmt.Errorf("line %d: unsupported element type %d", gr.lineNum, values[1])
		}
		numTags := values[2]
		if numTags < 0 || len(values) < 3+numTags {
			return fmt.Errorf("line %d: invalid tag count %d", gr.lineNum, numTags)
		}
		phys := 0
		if numTags > 0 {
			phys = values[3]
		}
		if err = gr.addElement(em, info, phys, values[3+numTags:]); err != nil {
			return err
		}
	}
	return gr.skip("$EndElements")
}

// readElements4 reads entity blocks of elements sharing one type. Surface
// blocks take the physical tag of their entity.
func (gr *gmshReader) readElements4(em *ElementMesh) error {
	header, err := gr.nextInts(4)
	if err != nil {
		return err
	}
	for b := 0; b < header[0]; b++ {
		block, err := gr.nextInts(4)
		if err != nil {
			return err
		}
		entityDim, entityTag, gmshType, n := block[0], block[1], block[2], block[3]
		info, ok := gmshElementTypes[gmshType]
		if !ok {
			return fmt.Errorf("line %d: unsupported element type %d", gr.lineNum, gmshType)
		}
		phys := 0
		if entityDim == 2 {
			phys = gr.surfaces[entityTag]
		}
		for j := 0; j < n; j++ {
			values, err := gr.nextInts(1)
			if err != nil {
				return err
			}
			if err = gr.addElement(em, info, phys, values[1:]); err != nil {
				return err
			}
		}
	}
	return gr.skip("$EndElements")
}
