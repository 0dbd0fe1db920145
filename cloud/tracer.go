package cloud

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/barytrack/particle"
)

// Tracer is the payload of a passive particle carried by a frozen velocity
type Tracer struct {
	U r3.Vec
	// Origin is the injection point, shifted with the particle across
	// translational couplings so that position - Origin is the net travel
	Origin r3.Vec
	Age    float64
}

var _ particle.Properties = (*Tracer)(nil)

func NewTracer() particle.Properties { return &Tracer{} }

func (tr *Tracer) TransformTensor(T *r3.Mat) { tr.U = T.MulVec(tr.U) }

func (tr *Tracer) TransformSeparation(s r3.Vec) { tr.Origin = r3.Add(tr.Origin, s) }

func (tr *Tracer) Clone() particle.Properties {
	c := *tr
	return &c
}

func (tr *Tracer) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, tr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tr *Tracer) UnmarshalBinary(data []byte) error {
	if len(data) != binary.Size(tr) {
		return fmt.Errorf("tracer record has %d bytes, want %d", len(data), binary.Size(tr))
	}
	return binary.Read(bytes.NewReader(data), binary.LittleEndian, tr)
}

// TracerPropertyList names the fields of the text form of a Tracer
const TracerPropertyList = "(Ux Uy Uz) (Ox Oy Oz) age"

func (tr *Tracer) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("(%g %g %g) (%g %g %g) %g",
		tr.U.X, tr.U.Y, tr.U.Z, tr.Origin.X, tr.Origin.Y, tr.Origin.Z, tr.Age)), nil
}

func (tr *Tracer) UnmarshalText(text []byte) error {
	_, err := fmt.Sscanf(string(text), "(%g %g %g) (%g %g %g) %g",
		&tr.U.X, &tr.U.Y, &tr.U.Z, &tr.Origin.X, &tr.Origin.Y, &tr.Origin.Z, &tr.Age)
	if err != nil {
		return fmt.Errorf("parsing tracer %q: %w", text, err)
	}
	return nil
}

func tracerOf(p *particle.Particle) *Tracer {
	tr, ok := p.Properties().(*Tracer)
	if !ok {
		panic(fmt.Sprintf("particle %d/%d carries no tracer", p.OrigProc(), p.OrigID()))
	}
	return tr
}
