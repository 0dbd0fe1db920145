package cloud

import (
	"container/list"
	"fmt"
	"log"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/barytrack/mesh"
	"github.com/notargets/barytrack/particle"
)

// WallInteraction is what happens to a tracer that reaches a wall
type WallInteraction uint8

const (
	Rebound WallInteraction = iota
	Stick
	Escape
)

var WallInteractionNames = map[string]WallInteraction{
	"rebound": Rebound,
	"stick":   Stick,
	"escape":  Escape,
}

func (wi WallInteraction) String() string {
	for name, w := range WallInteractionNames {
		if w == wi {
			return name
		}
	}
	return "unknown"
}

func ParseWallInteraction(name string) (WallInteraction, error) {
	if name == "" {
		return Rebound, nil
	}
	if wi, ok := WallInteractionNames[strings.ToLower(name)]; ok {
		return wi, nil
	}
	return 0, fmt.Errorf("unknown wall interaction %q", name)
}

// maxStalledHits bounds the face hits in a row that leave the step fraction
// unchanged before the rest of a particle's step is dropped
const maxStalledHits = 100

// Transfer is a particle record bound for another partition
type Transfer struct {
	ToProc int
	// Patch is the receiving processor patch on ToProc
	Patch  int
	Record []byte
}

// Stats counts the events of a cloud
type Stats struct {
	Injected, Rebounds, Stuck, Escaped, Sent, Received int
}

// Cloud owns the tracers of one mesh and moves them through it
type Cloud struct {
	Name        string
	Interaction WallInteraction

	mesh      *mesh.PolyMesh
	particles *list.List
	decoder   particle.Decoder
	hooks     particle.Hooks
	stats     Stats
}

func New(name string, m *mesh.PolyMesh, interaction WallInteraction) *Cloud {
	c := &Cloud{
		Name:        name,
		Interaction: interaction,
		mesh:        m,
		particles:   list.New(),
		decoder:     particle.Decoder{Mesh: m, NewProperties: NewTracer},
	}
	c.hooks = particle.Hooks{
		Wall:    hitWall,
		Generic: hitOpenPatch,
	}
	return c
}

func (c *Cloud) Mesh() *mesh.PolyMesh { return c.mesh }
func (c *Cloud) Len() int             { return c.particles.Len() }
func (c *Cloud) Stats() Stats         { return c.stats }

// Inject places a new tracer with velocity U at position
func (c *Cloud) Inject(position, U r3.Vec) (*particle.Particle, error) {
	p, err := particle.NewAt(c.mesh, position, -1)
	if err != nil {
		return nil, fmt.Errorf("injecting into %s: %w", c.Name, err)
	}
	p.SetProperties(&Tracer{U: U, Origin: position})
	c.Add(p)
	c.stats.Injected++
	return p, nil
}

// Add takes ownership of p, which must be on the cloud's mesh and carry a
// Tracer
func (c *Cloud) Add(p *particle.Particle) {
	c.particles.PushBack(p)
}

// Particles returns the tracers in list order
func (c *Cloud) Particles() []*particle.Particle {
	ps := make([]*particle.Particle, 0, c.particles.Len())
	c.ForEach(func(p *particle.Particle) { ps = append(ps, p) })
	return ps
}

func (c *Cloud) ForEach(fn func(p *particle.Particle)) {
	for e := c.particles.Front(); e != nil; e = e.Next() {
		fn(e.Value.(*particle.Particle))
	}
}

func (c *Cloud) ResetStepFractions() {
	c.ForEach(func(p *particle.Particle) { p.SetStepFraction(0) })
}

// Move advances every tracer by dt. Tracers that reach a processor patch
// are removed and returned as transfers for the neighbouring partition.
func (c *Cloud) Move(dt float64) ([]*Transfer, error) {
	c.ResetStepFractions()
	var elems []*list.Element
	for e := c.particles.Front(); e != nil; e = e.Next() {
		elems = append(elems, e)
	}
	return c.move(elems, dt)
}

// Receive adds the transferred tracers and moves them through the rest of
// the time step
func (c *Cloud) Receive(transfers []*Transfer, dt float64) ([]*Transfer, error) {
	elems := make([]*list.Element, 0, len(transfers))
	for _, t := range transfers {
		p, err := c.decoder.Decode(t.Record)
		if err != nil {
			return nil, fmt.Errorf("%s receiving on patch %d: %w", c.Name, t.Patch, err)
		}
		p.CorrectAfterParallelTransfer(t.Patch)
		elems = append(elems, c.particles.PushBack(p))
		c.stats.Received++
	}
	return c.move(elems, dt)
}

func (c *Cloud) move(elems []*list.Element, dt float64) ([]*Transfer, error) {
	var (
		td        = particle.NewTrackingData(c, c.hooks)
		transfers []*Transfer
		removed   []*list.Element
	)
	for _, e := range elems {
		p := e.Value.(*particle.Particle)
		td.KeepParticle, td.SwitchProcessor = true, false
		c.track(p, dt, td)
		switch {
		case !td.KeepParticle:
			removed = append(removed, e)
		case td.SwitchProcessor:
			t, err := c.prepareTransfer(p)
			if err != nil {
				return nil, err
			}
			transfers = append(transfers, t)
			removed = append(removed, e)
		default:
			tracerOf(p).Age += dt
		}
	}
	for _, e := range removed {
		c.particles.Remove(e)
	}
	return transfers, nil
}

func (c *Cloud) track(p *particle.Particle, dt float64, td *particle.TrackingData) {
	var (
		minStep = particle.CurrentTolerances().MinStep
		stalled = 0
	)
	for td.KeepParticle && !td.SwitchProcessor {
		f := 1 - p.StepFraction()
		if f <= minStep {
			return
		}
		p.TrackToAndHitFace(r3.Scale(f*dt, tracerOf(p).U), f, td)
		if 1-p.StepFraction() < f {
			stalled = 0
			continue
		}
		if stalled++; stalled > maxStalledHits {
			log.Printf("%s: particle %d/%d stalled at %v, dropping the rest of its step",
				c.Name, p.OrigProc(), p.OrigID(), p.Position())
			p.SetStepFraction(1)
			return
		}
	}
}

func (c *Cloud) prepareTransfer(p *particle.Particle) (*Transfer, error) {
	patchi := p.Patch()
	patch := c.mesh.Patches()[patchi]
	p.PrepareForParallelTransfer(patchi)
	rec, err := p.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%s sending through %s: %w", c.Name, patch.Name, err)
	}
	c.stats.Sent++
	return &Transfer{ToProc: patch.NeighbProcNo, Patch: patch.NeighbPatch, Record: rec}, nil
}

func hitWall(p *particle.Particle, td *particle.TrackingData) {
	c, _ := particle.OwnerAs[*Cloud](td)
	tr := tracerOf(p)
	switch c.Interaction {
	case Rebound:
		n := p.Normal()
		tr.U = r3.Sub(tr.U, r3.Scale(2*r3.Dot(tr.U, n), n))
		c.stats.Rebounds++
	case Stick:
		tr.U = r3.Vec{}
		c.stats.Stuck++
	case Escape:
		td.KeepParticle = false
		c.stats.Escaped++
	}
}

func hitOpenPatch(p *particle.Particle, td *particle.TrackingData) {
	td.KeepParticle = false
	if c, ok := particle.OwnerAs[*Cloud](td); ok {
		c.stats.Escaped++
	}
}
