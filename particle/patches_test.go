package particle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/barytrack/mesh"
)

func TestHitWall(t *testing.T) {
	m := newBlock(t, [3]int{1, 1, 1}, r3.Vec{X: 1, Y: 1, Z: 1}, nil)
	{ // Test a wall stops the particle for the rest of the step
		p := newAt(t, m, r3.Vec{X: 0.3, Y: 0.45, Z: 0.55})
		td := NewTrackingData(nil, Hooks{})
		f := p.TrackToAndHitFace(r3.Vec{X: 1}, 0.5, td)
		assert.Equal(t, 0., f)
		assert.InDelta(t, 0.5, p.StepFraction(), 1e-12)
		assert.True(t, td.KeepParticle)
		assert.False(t, td.SwitchProcessor)
		assert.Equal(t, mesh.Wall, m.Patches()[p.Patch()].Kind)
		assertVecInDelta(t, r3.Vec{X: 1, Y: 0.45, Z: 0.55}, p.Position(), 1e-12)
	}
	{ // Test the hooks see the hit
		var faceHits, wallHits int
		hooks := Hooks{
			Face: func(p *Particle, td *TrackingData) { faceHits++ },
			Wall: func(p *Particle, td *TrackingData) {
				wallHits++
				td.KeepParticle = false
			},
		}
		owner := "cloud"
		td := NewTrackingData(owner, hooks)
		o, ok := OwnerAs[string](td)
		require.True(t, ok)
		assert.Equal(t, owner, o)
		_, ok = OwnerAs[int](td)
		assert.False(t, ok)

		p := newAt(t, m, r3.Vec{X: 0.3, Y: 0.45, Z: 0.55})
		trackStep(p, r3.Vec{X: 1}, td)
		assert.Equal(t, 1, faceHits)
		assert.Equal(t, 1, wallHits)
		assert.False(t, td.KeepParticle)
	}
	{ // Test a patch hook claims the hit
		td := NewTrackingData(nil, Hooks{
			Patch: func(p *Particle, td *TrackingData) bool { return true },
		})
		p := newAt(t, m, r3.Vec{X: 0.3, Y: 0.45, Z: 0.55})
		f := p.TrackToAndHitFace(r3.Vec{X: 1}, 1, td)
		assert.InDelta(t, 0.3, f, 1e-12)
		assert.InDelta(t, 0.7, p.StepFraction(), 1e-12)
	}
}

func TestHitSymmetry(t *testing.T) {
	for _, kind := range []mesh.PatchKind{mesh.SymmetryPlane, mesh.Symmetry, mesh.Wedge} {
		t.Run(kind.String(), func(t *testing.T) {
			m := newBlock(t, [3]int{1, 1, 1}, r3.Vec{X: 1, Y: 1, Z: 1},
				[]mesh.PatchSpec{{Name: mesh.XMax, Kind: kind}})
			p := newAt(t, m, r3.Vec{X: 0.3, Y: 0.45, Z: 0.55})
			p.SetProperties(&testProps{U: r3.Vec{X: 1, Y: 0.2}})
			td := NewTrackingData(nil, Hooks{})
			f := p.TrackToAndHitFace(r3.Vec{X: 1}, 1, td)
			assert.InDelta(t, 0.3, f, 1e-12)
			assert.True(t, p.OnBoundaryFace())
			assertVecInDelta(t, r3.Vec{X: -1, Y: 0.2}, p.Properties().(*testProps).U, 1e-12)
		})
	}
}

func TestHitCyclic(t *testing.T) {
	for _, kind := range []mesh.PatchKind{mesh.Cyclic, mesh.CyclicAMI} {
		t.Run(kind.String(), func(t *testing.T) {
			shift := mesh.CoupledTransform{Separation: r3.Vec{X: -2}}
			m := newBlock(t, [3]int{2, 1, 1}, r3.Vec{X: 2, Y: 1, Z: 1}, []mesh.PatchSpec{
				{Name: mesh.XMax, Kind: kind, Neighbour: mesh.XMin, Transform: &shift},
				{Name: mesh.XMin, Kind: kind, Neighbour: mesh.XMax},
			})
			p := newAt(t, m, r3.Vec{X: 1.5, Y: 0.4, Z: 0.6})
			p.SetProperties(&testProps{U: r3.Vec{X: 1, Y: 0.1}, Origin: r3.Vec{X: 1.5}})
			td := NewTrackingData(nil, Hooks{})
			d := r3.Vec{X: 1, Y: 0.1}

			// To the coupled face
			f := p.TrackToAndHitFace(d, 1, td)
			assert.InDelta(t, 0.5, f, 1e-12)
			require.True(t, td.KeepParticle)
			assert.Equal(t, 0, p.Cell())
			assert.True(t, p.OnBoundaryFace())
			assert.Equal(t, mesh.XMin, m.Patches()[p.Patch()].Name)
			assertVecInDelta(t, r3.Vec{X: 0, Y: 0.45, Z: 0.6}, p.Position(), 1e-12)
			assertVecInDelta(t, r3.Vec{X: -0.5}, p.Properties().(*testProps).Origin, 1e-12)
			assertVecInDelta(t, r3.Vec{X: 1, Y: 0.1}, p.Properties().(*testProps).U, 1e-12)

			trackStep(p, d, td)
			assert.InDelta(t, 1, p.StepFraction(), 1e-12)
			assertVecInDelta(t, r3.Vec{X: 0.5, Y: 0.5, Z: 0.6}, p.Position(), 1e-12)
		})
	}
}

func TestHitCyclicRotated(t *testing.T) {
	// A quarter turn about the z axis through (1, 1) maps the xmax side of
	// the unit block onto its ymax side
	rot := mesh.RotationTransform(r3.Vec{Z: 1}, -math.Pi/2, r3.Vec{X: 1, Y: 1})
	m := newBlock(t, [3]int{1, 1, 1}, r3.Vec{X: 1, Y: 1, Z: 1}, []mesh.PatchSpec{
		{Name: mesh.XMax, Kind: mesh.CyclicAMI, Neighbour: mesh.YMax, Transform: &rot},
		{Name: mesh.YMax, Kind: mesh.CyclicAMI, Neighbour: mesh.XMax},
	})
	p := newAt(t, m, r3.Vec{X: 0.6, Y: 0.3, Z: 0.5})
	p.SetProperties(&testProps{U: r3.Vec{X: 1}})
	td := NewTrackingData(nil, Hooks{})
	f := p.TrackToAndHitFace(r3.Vec{X: 1}, 1, td)
	assert.InDelta(t, 0.6, f, 1e-12)
	require.True(t, td.KeepParticle)
	assertVecInDelta(t, r3.Vec{X: 0.3, Y: 1, Z: 0.5}, p.Position(), 1e-12)
	assert.Equal(t, mesh.YMax, m.Patches()[p.Patch()].Name)
	assertVecInDelta(t, r3.Vec{Y: -1}, p.Properties().(*testProps).U, 1e-12)
}

func TestHitProcessor(t *testing.T) {
	global := newBlock(t, [3]int{2, 1, 1}, r3.Vec{X: 2, Y: 1, Z: 1}, nil)
	d, err := mesh.DecomposeUniform(global, 2)
	require.NoError(t, err)
	send, receive := d.Meshes[0], d.Meshes[1]

	p := newAt(t, send, r3.Vec{X: 0.3, Y: 0.45, Z: 0.55})
	p.SetProperties(&testProps{U: r3.Vec{X: 1}})
	td := NewTrackingData(nil, Hooks{})
	dx := r3.Vec{X: 1}
	trackStep(p, dx, td)
	require.True(t, td.SwitchProcessor)
	assert.InDelta(t, 0.7, p.StepFraction(), 1e-12)
	patchi := p.Patch()
	patch := send.Patches()[patchi]
	require.Equal(t, mesh.Processor, patch.Kind)
	assert.Equal(t, 1, patch.NeighbProcNo)
	pos := p.Position()

	p.PrepareForParallelTransfer(patchi)
	assert.Equal(t, 0, p.Face())
	data, err := p.MarshalBinary()
	require.NoError(t, err)

	dec := Decoder{Mesh: receive, NewProperties: newTestProps}
	q, err := dec.Decode(data)
	require.NoError(t, err)
	assert.True(t, Equal(p, q))
	q.CorrectAfterParallelTransfer(patch.NeighbPatch)
	assert.Equal(t, 0, q.Cell())
	assert.True(t, q.OnBoundaryFace())
	assertVecInDelta(t, pos, q.Position(), 1e-12)

	td = NewTrackingData(nil, Hooks{})
	trackStep(q, dx, td)
	assert.False(t, td.SwitchProcessor)
	assert.InDelta(t, 1, q.StepFraction(), 1e-12)
	assertVecInDelta(t, r3.Vec{X: 1.3, Y: 0.45, Z: 0.55}, q.Position(), 1e-12)
}
