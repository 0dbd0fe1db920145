package mesh

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const twoHexNodes = `1 0 0 0
2 1 0 0
3 2 0 0
4 0 1 0
5 1 1 0
6 2 1 0
7 0 0 1
8 1 0 1
9 2 0 1
10 0 1 1
11 1 1 1
12 2 1 1
`

// The two hexes of twoHexSU2 with the outlet left unnamed
var twoHexGmsh2 = `$MeshFormat
2.2 0 8
$EndMeshFormat
$PhysicalNames
2
2 1 "inlet"
3 5 "fluid"
$EndPhysicalNames
$Nodes
12
` + twoHexNodes + `$EndNodes
$Elements
6
1 15 2 0 1 1
2 1 2 0 1 1 2
3 3 2 1 1 1 4 10 7
4 3 2 3 2 3 6 12 9
5 5 2 5 1 1 2 5 4 7 8 11 10
6 5 2 5 1 2 3 6 5 8 9 12 11
$EndElements
$NodeData
1
"ignored"
$EndNodeData
`

var twoHexGmsh4 = `$MeshFormat
4.1 0 8
$EndMeshFormat
$PhysicalNames
2
2 1 "inlet"
2 2 "outlet"
$EndPhysicalNames
$Entities
0 0 2 1
1 0 0 0 0 1 1 1 1 0
2 2 0 0 2 1 1 1 2 0
1 0 0 0 2 1 1 0 0
$EndEntities
$Nodes
1 12 1 12
3 1 0 12
` + strings.Join(strings.Fields("1 2 3 4 5 6 7 8 9 10 11 12"), "\n") + "\n" +
	strings.Join(nodeCoords(twoHexNodes), "\n") + `
$EndNodes
$Elements
3 4 1 4
2 1 3 1
1 1 4 10 7
2 2 3 1
2 3 6 12 9
3 1 5 2
3 1 2 5 4 7 8 11 10
4 2 3 6 5 8 9 12 11
$EndElements
`

// nodeCoords drops the leading tag of each node line
func nodeCoords(nodes string) (lines []string) {
	for _, line := range strings.Split(strings.TrimSpace(nodes), "\n") {
		lines = append(lines, strings.Join(strings.Fields(line)[1:], " "))
	}
	return
}

func writeMeshFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadGmsh(t *testing.T) {
	tests := []struct {
		name    string
		content string
		markers []string
	}{
		{"format 2.2", twoHexGmsh2, []string{"inlet", "physical3"}},
		{"format 4.1", twoHexGmsh4, []string{"inlet", "outlet"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em, err := ReadMeshFile(writeMeshFile(t, "two.msh", tt.content))
			require.NoError(t, err)
			assert.Len(t, em.Elements, 2)
			assert.Equal(t, []ElementType{Hex, Hex}, em.ElementTypes)
			assert.Len(t, em.Vertices, 12)
			assert.Equal(t, r3.Vec{X: 2, Y: 1, Z: 1}, em.Vertices[11])
			assert.Equal(t, []int{1, 2, 5, 4, 7, 8, 11, 10}, em.Elements[1])
			assert.Equal(t, tt.markers, em.Markers)
			assert.Equal(t, [][]int{{0, 3, 9, 6}}, em.BoundaryFaces["inlet"])

			m, err := em.BuildPolyMesh(nil)
			require.NoError(t, err)
			assert.Equal(t, 2, m.NCells())
			assert.Equal(t, 1, m.NInternalFaces())
			assertOutward(t, m)
		})
	}
}

func TestReadGmshErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "No format",
			content: "$Nodes\n0\n$EndNodes\n",
			errMsg:  "before $MeshFormat",
		},
		{
			name:    "Binary",
			content: "$MeshFormat\n4.1 1 8\n$EndMeshFormat\n",
			errMsg:  "binary",
		},
		{
			name:    "Version",
			content: "$MeshFormat\n3.0 0 8\n$EndMeshFormat\n",
			errMsg:  "unsupported Gmsh version",
		},
		{
			name:    "Unknown node",
			content: "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$Nodes\n1\n1 0 0 0\n$EndNodes\n$Elements\n1\n1 4 0 1 2 3 4\n$EndElements\n",
			errMsg:  "unknown node 2",
		},
		{
			name:    "Truncated nodes",
			content: "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$Nodes\n2\n1 0 0 0\n",
			errMsg:  "unexpected end of file",
		},
		{
			name:    "Surface only",
			content: "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$Nodes\n3\n1 0 0 0\n2 1 0 0\n3 0 1 0\n$EndNodes\n$Elements\n1\n1 2 0 1 2 3\n$EndElements\n",
			errMsg:  "no volume elements",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseGmsh(strings.NewReader(tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
	_, err := ReadMeshFile(writeMeshFile(t, "mesh.neu", ""))
	assert.ErrorContains(t, err, "unsupported mesh format")
	_, err = ReadGmsh(filepath.Join(t.TempDir(), "missing.msh"))
	assert.Error(t, err)
}
