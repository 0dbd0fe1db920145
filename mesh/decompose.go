package mesh

import (
	"fmt"
	"log"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/barytrack/utils"
)

// Decomposition holds the partition meshes of a global mesh and the maps
// between partition and global numbering
type Decomposition struct {
	Meshes             []*PolyMesh
	CellProc           []int   // Partition of each global cell
	CellProcAddressing [][]int // Global cell of each partition cell
	FaceProcAddressing [][]int // Global face of each partition face

	localCell []int         // Partition-local index of each global cell
	localFace []map[int]int // Per partition, global face to local face
}

func (d *Decomposition) NProcs() int { return len(d.Meshes) }

// LocalCell returns the partition-local index of global cell celli
func (d *Decomposition) LocalCell(celli int) (proc, local int) {
	return d.CellProc[celli], d.localCell[celli]
}

// LocalFace returns the index of global face facei on partition proc, or -1
func (d *Decomposition) LocalFace(proc, facei int) int {
	if local, ok := d.localFace[proc][facei]; ok {
		return local
	}
	return -1
}

// DecomposeUniform assigns cells to nProcs partitions in contiguous index
// ranges and decomposes the mesh. Every partition gets at least one cell.
func DecomposeUniform(m *PolyMesh, nProcs int) (*Decomposition, error) {
	if nProcs < 1 {
		return nil, fmt.Errorf("need at least one partition, got %d", nProcs)
	}
	pm := utils.NewPartitionMap(nProcs, m.NCells())
	if pm.GetBucketDimension(nProcs-1) == 0 {
		return nil, fmt.Errorf("%d partitions for %d cells leaves partitions empty", nProcs, m.NCells())
	}
	cellProc := make([]int, m.NCells())
	for celli := range cellProc {
		cellProc[celli], _, _ = pm.GetBucket(celli)
	}
	return Decompose(m, cellProc, nProcs)
}

// Decompose splits the mesh into one mesh per partition given the partition
// of every cell. Faces between partitions become processor patches, named
// procBoundary<my>to<neighbour>, whose faces are ordered by global face index
// on both sides. The side holding the global neighbour cell stores the face
// flipped, [f0, f(n-1), ..., f1], so that it points out of its owner.
// Cyclic patch pairs must not be split between partitions.
func Decompose(m *PolyMesh, cellProc []int, nProcs int) (*Decomposition, error) {
	if len(cellProc) != m.NCells() {
		return nil, fmt.Errorf("partition list has %d entries for %d cells", len(cellProc), m.NCells())
	}
	d := &Decomposition{
		Meshes:             make([]*PolyMesh, nProcs),
		CellProc:           cellProc,
		CellProcAddressing: make([][]int, nProcs),
		FaceProcAddressing: make([][]int, nProcs),
		localCell:          make([]int, m.NCells()),
		localFace:          make([]map[int]int, nProcs),
	}
	for celli, proc := range cellProc {
		if proc < 0 || proc >= nProcs {
			return nil, fmt.Errorf("cell %d assigned to partition %d of %d", celli, proc, nProcs)
		}
		d.localCell[celli] = len(d.CellProcAddressing[proc])
		d.CellProcAddressing[proc] = append(d.CellProcAddressing[proc], celli)
	}
	for _, p := range m.patches {
		if p.Kind != Cyclic || p.NeighbPatch < 0 {
			continue
		}
		nbr := m.patches[p.NeighbPatch]
		for i := 0; i < p.Size; i++ {
			if cellProc[m.owner[p.Start+i]] != cellProc[m.owner[nbr.Start+i]] {
				return nil, fmt.Errorf("cyclic patches %s and %s are split between partitions at face %d",
					p.Name, nbr.Name, i)
			}
		}
	}
	for proc := 0; proc < nProcs; proc++ {
		pm, err := d.buildPartition(m, proc)
		if err != nil {
			return nil, fmt.Errorf("partition %d: %w", proc, err)
		}
		d.Meshes[proc] = pm
	}
	// Link the processor patches of neighbouring partitions
	for proc, pm := range d.Meshes {
		for _, p := range pm.patches {
			if p.Kind != Processor {
				continue
			}
			p.NeighbPatch = d.Meshes[p.NeighbProcNo].FindPatch(processorPatchName(p.NeighbProcNo, proc))
			if p.NeighbPatch < 0 {
				return nil, fmt.Errorf("partition %d has no patch matching %s", p.NeighbProcNo, p.Name)
			}
		}
	}
	d.report()
	return d, nil
}

func processorPatchName(myProc, nbrProc int) string {
	return fmt.Sprintf("procBoundary%dto%d", myProc, nbrProc)
}

func (d *Decomposition) buildPartition(m *PolyMesh, proc int) (*PolyMesh, error) {
	var (
		internal      []builtFace
		internalGlob  []int
		procFaces     = make(map[int][]builtFace)
		procFacesGlob = make(map[int][]int)
		nInternal     = m.NInternalFaces()
	)
	for facei := 0; facei < nInternal; facei++ {
		o, n := m.owner[facei], m.neighbour[facei]
		po, pn := d.CellProc[o], d.CellProc[n]
		switch {
		case po == proc && pn == proc:
			internal = append(internal, builtFace{m.faces[facei], d.localCell[o], d.localCell[n]})
			internalGlob = append(internalGlob, facei)
		case po == proc:
			procFaces[pn] = append(procFaces[pn], builtFace{m.faces[facei], d.localCell[o], -1})
			procFacesGlob[pn] = append(procFacesGlob[pn], facei)
		case pn == proc:
			procFaces[po] = append(procFaces[po], builtFace{flipFace(m.faces[facei]), d.localCell[n], -1})
			procFacesGlob[po] = append(procFacesGlob[po], facei)
		}
	}
	// Upper triangular order of the local internal faces
	order := make([]int, len(internal))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := internal[order[i]], internal[order[j]]
		if a.owner != b.owner {
			return a.owner < b.owner
		}
		return a.neighbour < b.neighbour
	})

	var (
		faces     [][]int
		owner     []int
		neighbour []int
		faceAddr  []int
		patches   []*Patch
	)
	for _, i := range order {
		faces = append(faces, internal[i].verts)
		owner = append(owner, internal[i].owner)
		neighbour = append(neighbour, internal[i].neighbour)
		faceAddr = append(faceAddr, internalGlob[i])
	}
	for _, gp := range m.patches {
		p := &Patch{
			Name:         gp.Name,
			Kind:         gp.Kind,
			Start:        len(faces),
			NeighbPatch:  gp.NeighbPatch,
			NeighbProcNo: -1,
			Transform:    gp.Transform,
			Normal:       gp.Normal,
		}
		for facei := gp.Start; facei < gp.Start+gp.Size; facei++ {
			if d.CellProc[m.owner[facei]] != proc {
				continue
			}
			faces = append(faces, m.faces[facei])
			owner = append(owner, d.localCell[m.owner[facei]])
			faceAddr = append(faceAddr, facei)
		}
		p.Size = len(faces) - p.Start
		patches = append(patches, p)
	}
	nbrProcs := make([]int, 0, len(procFaces))
	for nbr := range procFaces {
		nbrProcs = append(nbrProcs, nbr)
	}
	sort.Ints(nbrProcs)
	for _, nbr := range nbrProcs {
		p := &Patch{
			Name:         processorPatchName(proc, nbr),
			Kind:         Processor,
			Start:        len(faces),
			Size:         len(procFaces[nbr]),
			NeighbPatch:  -1,
			MyProcNo:     proc,
			NeighbProcNo: nbr,
		}
		for i, f := range procFaces[nbr] {
			faces = append(faces, f.verts)
			owner = append(owner, f.owner)
			faceAddr = append(faceAddr, procFacesGlob[nbr][i])
		}
		patches = append(patches, p)
	}

	// Renumber the points used by the partition in global order
	used := make(map[int]int)
	for _, f := range faces {
		for _, pi := range f {
			used[pi] = -1
		}
	}
	pointAddr := make([]int, 0, len(used))
	for pi := range used {
		pointAddr = append(pointAddr, pi)
	}
	sort.Ints(pointAddr)
	points := make([]r3.Vec, len(pointAddr))
	oldPoints := make([]r3.Vec, len(pointAddr))
	for local, pi := range pointAddr {
		used[pi] = local
		points[local] = m.points[pi]
		oldPoints[local] = m.oldPoints[pi]
	}
	localFaces := make([][]int, len(faces))
	for facei, f := range faces {
		localFaces[facei] = make([]int, len(f))
		for k, pi := range f {
			localFaces[facei][k] = used[pi]
		}
	}

	pm, err := NewPolyMesh(oldPoints, localFaces, owner, neighbour, patches)
	if err != nil {
		return nil, err
	}
	if m.moving {
		if err = pm.MovePoints(points); err != nil {
			return nil, err
		}
	}
	pm.setProcNo(proc)
	pm.geometricD = m.geometricD
	pm.bounds = m.bounds

	d.FaceProcAddressing[proc] = faceAddr
	d.localFace[proc] = make(map[int]int, len(faceAddr))
	for local, facei := range faceAddr {
		d.localFace[proc][facei] = local
	}
	return pm, nil
}

// report logs partition statistics
func (d *Decomposition) report() {
	log.Printf("Decomposition into %d partitions:", len(d.Meshes))
	for proc, pm := range d.Meshes {
		nProcFaces, nNbrs := 0, 0
		for _, p := range pm.patches {
			if p.Kind == Processor {
				nProcFaces += p.Size
				nNbrs++
			}
		}
		log.Printf("  Partition %d: %d cells, %d faces, %d processor faces shared with %d neighbours",
			proc, pm.NCells(), pm.NFaces(), nProcFaces, nNbrs)
	}
}
