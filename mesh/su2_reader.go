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

// su2ElementTypeMap maps SU2 volume element codes to element types and
// their node counts
var su2ElementTypeMap = map[int]struct {
	etype    ElementType
	numNodes int
}{
	10: {Tet, 4},
	12: {Hex, 8},
	13: {Prism, 6},
	14: {Pyramid, 5},
}

// su2SurfaceNodes gives the node counts of SU2 boundary element codes
var su2SurfaceNodes = map[int]int{
	5: 3, // Triangle
	9: 4, // Quad
}

// ReadSU2 reads an SU2 native format file
func ReadSU2(filename string) (*ElementMesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	em, err := ParseSU2(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return em, nil
}

// ParseSU2 reads an SU2 mesh from r. Only 3D meshes with volume elements
// are accepted; boundary markers become named boundary face groups.
func ParseSU2(r io.Reader) (*ElementMesh, error) {
	var (
		em      = NewElementMesh()
		scanner = bufio.NewScanner(r)
		lineNum int
		ndime   int
	)
	next := func() ([]string, error) {
		for scanner.Scan() {
			lineNum++
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "%") {
				continue
			}
			return strings.Fields(line), nil
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected end of file after line %d", lineNum)
	}
	keyword := func(fields []string, key string) (int, bool) {
		joined := strings.Join(fields, " ")
		if !strings.HasPrefix(joined, key+"=") {
			return 0, false
		}
		value, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(joined, key+"=")))
		if err != nil {
			return 0, false
		}
		return value, true
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		fields := strings.Fields(line)

		if n, ok := keyword(fields, "NDIME"); ok {
			ndime = n
			if ndime != 3 {
				return nil, fmt.Errorf("line %d: only 3D meshes are supported, got NDIME=%d", lineNum, ndime)
			}
		} else if nelem, ok := keyword(fields, "NELEM"); ok {
			for i := 0; i < nelem; i++ {
				ef, err := next()
				if err != nil {
					return nil, err
				}
				su2Type, err := strconv.Atoi(ef[0])
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid element type %q", lineNum, ef[0])
				}
				info, valid := su2ElementTypeMap[su2Type]
				if !valid {
					return nil, fmt.Errorf("line %d: unsupported volume element type %d", lineNum, su2Type)
				}
				verts, err := atoiFields(ef[1:], info.numNodes)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNum, err)
				}
				em.AddElement(info.etype, verts)
			}
		} else if npoin, ok := keyword(fields, "NPOIN"); ok {
			if ndime == 0 {
				return nil, fmt.Errorf("line %d: NPOIN before NDIME", lineNum)
			}
			em.Vertices = make([]r3.Vec, npoin)
			for i := 0; i < npoin; i++ {
				pf, err := next()
				if err != nil {
					return nil, err
				}
				if len(pf) < 3 {
					return nil, fmt.Errorf("line %d: point needs 3 coordinates", lineNum)
				}
				var coords [3]float64
				for j := 0; j < 3; j++ {
					if coords[j], err = strconv.ParseFloat(pf[j], 64); err != nil {
						return nil, fmt.Errorf("line %d: invalid coordinate %q", lineNum, pf[j])
					}
				}
				// An optional trailing field numbers the point
				ptID := i
				if len(pf) > 3 {
					if ptID, err = strconv.Atoi(pf[len(pf)-1]); err != nil || ptID < 0 || ptID >= npoin {
						return nil, fmt.Errorf("line %d: invalid point index %q", lineNum, pf[len(pf)-1])
					}
				}
				em.Vertices[ptID] = r3.Vec{X: coords[0], Y: coords[1], Z: coords[2]}
			}
		} else if nmark, ok := keyword(fields, "NMARK"); ok {
			for i := 0; i < nmark; i++ {
				tf, err := next()
				if err != nil {
					return nil, err
				}
				joined := strings.Join(tf, " ")
				if !strings.HasPrefix(joined, "MARKER_TAG=") {
					return nil, fmt.Errorf("line %d: expected MARKER_TAG, got %q", lineNum, joined)
				}
				tag := strings.TrimSpace(strings.TrimPrefix(joined, "MARKER_TAG="))
				cf, err := next()
				if err != nil {
					return nil, err
				}
				nMarkerElems, ok := keyword(cf, "MARKER_ELEMS")
				if !ok {
					return nil, fmt.Errorf("line %d: expected MARKER_ELEMS for marker %s", lineNum, tag)
				}
				for j := 0; j < nMarkerElems; j++ {
					bf, err := next()
					if err != nil {
						return nil, err
					}
					su2Type, _ := strconv.Atoi(bf[0])
					numNodes, valid := su2SurfaceNodes[su2Type]
					if !valid {
						return nil, fmt.Errorf("line %d: unsupported boundary element type %d", lineNum, su2Type)
					}
					verts, err := atoiFields(bf[1:], numNodes)
					if err != nil {
						return nil, fmt.Errorf("line %d: %w", lineNum, err)
					}
					em.AddBoundaryFace(tag, verts)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if ndime == 0 {
		return nil, fmt.Errorf("missing NDIME")
	}
	for elemID, verts := range em.Elements {
		for _, v := range verts {
			if v < 0 || v >= len(em.Vertices) {
				return nil, fmt.Errorf("element %d references point %d of %d", elemID, v, len(em.Vertices))
			}
		}
	}
	return em, nil
}

func atoiFields(fields []string, n int) ([]int, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d node indices, got %d", n, len(fields))
	}
	verts := make([]int, n)
	for j := 0; j < n; j++ {
		v, err := strconv.Atoi(fields[j])
		if err != nil {
			return nil, fmt.Errorf("invalid node index %q", fields[j])
		}
		verts[j] = v
	}
	return verts, nil
}
