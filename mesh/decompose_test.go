package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestDecompose(t *testing.T) {
	global := newBlock(t, [3]int{4, 2, 1}, r3.Vec{X: 4, Y: 1, Z: 1}, nil)
	// Cells are numbered x fastest, so split along x
	cellProc := make([]int, global.NCells())
	for celli, cc := range global.CellCentres() {
		if cc.X > 2 {
			cellProc[celli] = 1
		}
	}
	d, err := Decompose(global, cellProc, 2)
	require.NoError(t, err)
	require.Equal(t, 2, d.NProcs())

	for proc, pm := range d.Meshes {
		assert.Equal(t, proc, pm.ProcNo())
		assert.Equal(t, 4, pm.NCells())
		assertOutward(t, pm)
		for local, celli := range d.CellProcAddressing[proc] {
			assertVecInDelta(t, global.CellCentres()[celli], pm.CellCentres()[local], 1e-14)
			p, l := d.LocalCell(celli)
			assert.Equal(t, proc, p)
			assert.Equal(t, local, l)
		}
		for local, facei := range d.FaceProcAddressing[proc] {
			assert.Equal(t, local, d.LocalFace(proc, facei))
		}
		assert.Equal(t, global.Bounds(), pm.Bounds())
	}

	p0 := d.Meshes[0].Patches()[d.Meshes[0].FindPatch("procBoundary0to1")]
	p1 := d.Meshes[1].Patches()[d.Meshes[1].FindPatch("procBoundary1to0")]
	assert.Equal(t, Processor, p0.Kind)
	assert.Equal(t, 2, p0.Size)
	assert.Equal(t, p1.Index, p0.NeighbPatch)
	assert.Equal(t, p0.Index, p1.NeighbPatch)
	assert.Equal(t, 1, p0.NeighbProcNo)
	assert.Equal(t, 0, p1.NeighbProcNo)
	assert.Equal(t, 1, p1.MyProcNo)
	for i := 0; i < p0.Size; i++ {
		f0 := d.Meshes[0].Faces()[p0.Start+i]
		f1 := d.Meshes[1].Faces()[p1.Start+i]
		assert.Equal(t, d.FaceProcAddressing[0][p0.Start+i], d.FaceProcAddressing[1][p1.Start+i])
		n := len(f0)
		for k := 0; k < n; k++ {
			assertVecInDelta(t, d.Meshes[0].Points()[f0[(n-k)%n]], d.Meshes[1].Points()[f1[k]], 0)
		}
		assert.Greater(t, d.Meshes[0].FaceAreas()[p0.Start+i].X, 0.)
		assert.Less(t, d.Meshes[1].FaceAreas()[p1.Start+i].X, 0.)
	}
	assert.Equal(t, -1, d.LocalFace(1, 0))

	{ // Test uniform decomposition splits the cell range
		du, err := DecomposeUniform(global, 4)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 0, 1, 1, 2, 2, 3, 3}, du.CellProc)
		du, err = DecomposeUniform(global, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 0, 0, 1, 1, 1, 2, 2}, du.CellProc)
		proc, local := du.LocalCell(4)
		assert.Equal(t, 1, proc)
		assert.Equal(t, 1, local)
		_, err = DecomposeUniform(global, 9)
		assert.Error(t, err)
		_, err = DecomposeUniform(global, 0)
		assert.Error(t, err)
	}
	{ // Test a split cyclic pair is refused
		shift := CoupledTransform{Separation: r3.Vec{X: -4}}
		periodic := newBlock(t, [3]int{4, 1, 1}, r3.Vec{X: 4, Y: 1, Z: 1}, []PatchSpec{
			{Name: XMax, Kind: Cyclic, Neighbour: XMin, Transform: &shift},
			{Name: XMin, Kind: Cyclic, Neighbour: XMax},
		})
		_, err := Decompose(periodic, []int{0, 0, 1, 1}, 2)
		assert.Error(t, err)
		_, err = Decompose(periodic, []int{0, 0, 0}, 2)
		assert.Error(t, err)
	}
}
