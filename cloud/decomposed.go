package cloud

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/barytrack/mesh"
	"github.com/notargets/barytrack/particle"
	"github.com/notargets/barytrack/utils"
)

// DefaultMaxRounds bounds the transfer rounds of one time step
const DefaultMaxRounds = 64

// Decomposed runs one cloud per partition of a decomposed mesh, each in its
// own goroutine, exchanging tracers through a MailBox
type Decomposed struct {
	Decomposition *mesh.Decomposition
	Clouds        []*Cloud
	MaxRounds     int

	mb *utils.MailBox[*Transfer]
}

func NewDecomposed(name string, d *mesh.Decomposition, interaction WallInteraction) *Decomposed {
	dc := &Decomposed{
		Decomposition: d,
		Clouds:        make([]*Cloud, d.NProcs()),
		MaxRounds:     DefaultMaxRounds,
		mb:            utils.NewMailBox[*Transfer](d.NProcs()),
	}
	for proc, m := range d.Meshes {
		dc.Clouds[proc] = New(fmt.Sprintf("%s.proc%d", name, proc), m, interaction)
	}
	return dc
}

// Seed locates a tracer on the undecomposed mesh and hands it to the
// partition that owns its cell
func (dc *Decomposed) Seed(global *mesh.PolyMesh, position, U r3.Vec) (*particle.Particle, error) {
	gp, err := particle.NewAt(global, position, -1)
	if err != nil {
		return nil, fmt.Errorf("seeding at %v: %w", position, err)
	}
	proc, procCell := dc.Decomposition.LocalCell(gp.Cell())
	procMesh := dc.Decomposition.Meshes[proc]
	procTetFace := dc.Decomposition.LocalFace(proc, gp.TetFace())
	if procTetFace < 0 {
		return nil, fmt.Errorf("seeding at %v: face %d is not on partition %d", position, gp.TetFace(), proc)
	}
	p := particle.New(procMesh, gp.Coordinates(), procCell, procTetFace,
		gp.ProcTetPt(procMesh, procCell, procTetFace))
	p.SetProperties(&Tracer{U: U, Origin: position})
	c := dc.Clouds[proc]
	c.Add(p)
	c.stats.Injected++
	return p, nil
}

func (dc *Decomposed) Len() (n int) {
	for _, c := range dc.Clouds {
		n += c.Len()
	}
	return
}

func (dc *Decomposed) Stats() (s Stats) {
	for _, c := range dc.Clouds {
		cs := c.Stats()
		s.Injected += cs.Injected
		s.Rebounds += cs.Rebounds
		s.Stuck += cs.Stuck
		s.Escaped += cs.Escaped
		s.Sent += cs.Sent
		s.Received += cs.Received
	}
	return
}

// Evolve moves every cloud through a time step of dt. Partitions move
// concurrently; tracers crossing to another partition are exchanged and
// finish their step there, round after round until none is in flight.
func (dc *Decomposed) Evolve(ctx context.Context, dt float64) error {
	outgoing := make([][]*Transfer, len(dc.Clouds))
	g, gctx := errgroup.WithContext(ctx)
	for proc, c := range dc.Clouds {
		g.Go(func() (err error) {
			if err = gctx.Err(); err != nil {
				return
			}
			outgoing[proc], err = c.Move(dt)
			return
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for round := 1; inFlight(outgoing) > 0; round++ {
		if round > dc.MaxRounds {
			return fmt.Errorf("%d tracers still in flight after %d transfer rounds", inFlight(outgoing), dc.MaxRounds)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if particle.Debug {
			log.Printf("Transfer round %d: %d tracers", round, inFlight(outgoing))
		}

		// Every partition delivers, cancellation is only seen between rounds
		var deliver errgroup.Group
		for proc := range dc.Clouds {
			deliver.Go(func() error {
				for _, t := range outgoing[proc] {
					dc.mb.PostMessage(proc, t.ToProc, t)
				}
				dc.mb.DeliverMyMessages(proc)
				return nil
			})
		}
		if err := deliver.Wait(); err != nil {
			return err
		}

		g, gctx = errgroup.WithContext(ctx)
		for proc, c := range dc.Clouds {
			g.Go(func() (err error) {
				incoming := dc.mb.ReceiveMyMessages(proc)
				defer dc.mb.ClearMyMessages(proc)
				// Another partition failed, the step is lost
				if err = gctx.Err(); err != nil {
					return
				}
				outgoing[proc], err = c.Receive(incoming, dt)
				return
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func inFlight(outgoing [][]*Transfer) (n int) {
	for _, out := range outgoing {
		n += len(out)
	}
	return
}
