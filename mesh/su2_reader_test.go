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

// Helper function to create temporary test files
func createTempSU2File(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "test.su2")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return tmpFile
}

// Two hexes along x with walls on the ends and a symmetry marker elsewhere
const twoHexSU2 = `% two hex cells
NDIME= 3
NELEM= 2
12 0 1 4 3 6 7 10 9 0
12 1 2 5 4 7 8 11 10 1
NPOIN= 12
0.0 0.0 0.0 0
1.0 0.0 0.0 1
2.0 0.0 0.0 2
0.0 1.0 0.0 3
1.0 1.0 0.0 4
2.0 1.0 0.0 5
0.0 0.0 1.0 6
1.0 0.0 1.0 7
2.0 0.0 1.0 8
0.0 1.0 1.0 9
1.0 1.0 1.0 10
2.0 1.0 1.0 11
NMARK= 2
MARKER_TAG= inlet
MARKER_ELEMS= 1
9 0 3 9 6
MARKER_TAG= outlet
MARKER_ELEMS= 1
9 2 5 11 8
`

func TestReadSU2(t *testing.T) {
	{ // Test a valid file builds a mesh
		em, err := ReadSU2(createTempSU2File(t, twoHexSU2))
		require.NoError(t, err)
		assert.Len(t, em.Elements, 2)
		assert.Len(t, em.Vertices, 12)
		assert.Equal(t, []string{"inlet", "outlet"}, em.Markers)
		assert.Equal(t, r3.Vec{X: 2, Y: 1, Z: 1}, em.Vertices[11])

		m, err := em.BuildPolyMesh([]PatchSpec{{Name: "outlet", Kind: Wall}})
		require.NoError(t, err)
		assert.Equal(t, 2, m.NCells())
		assert.Equal(t, 1, m.NInternalFaces())
		var names []string
		for _, p := range m.Patches() {
			names = append(names, p.Name)
		}
		assert.Equal(t, []string{"outlet", "inlet", defaultPatchName}, names)
		assert.Equal(t, Wall, m.Patches()[0].Kind)
		assert.Equal(t, Generic, m.Patches()[1].Kind)
		assert.Equal(t, 8, m.Patches()[2].Size)
		assertOutward(t, m)
	}
	testCases := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "2D mesh",
			content: "NDIME= 2\nNPOIN= 0\n",
			errMsg:  "only 3D meshes",
		},
		{
			name:    "Missing dimension",
			content: "NELEM= 0\n",
			errMsg:  "missing NDIME",
		},
		{
			name:    "Unsupported element",
			content: "NDIME= 3\nNELEM= 1\n5 0 1 2 0\n",
			errMsg:  "unsupported volume element",
		},
		{
			name:    "Truncated points",
			content: "NDIME= 3\nNPOIN= 2\n0.0 0.0 0.0 0\n",
			errMsg:  "unexpected end of file",
		},
		{
			name:    "Point out of range",
			content: "NDIME= 3\nNELEM= 1\n10 0 1 2 7 0\nNPOIN= 4\n0 0 0\n1 0 0\n0 1 0\n0 0 1\n",
			errMsg:  "references point 7",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSU2(strings.NewReader(tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
	_, err := ReadSU2(filepath.Join(t.TempDir(), "missing.su2"))
	assert.Error(t, err)
}
