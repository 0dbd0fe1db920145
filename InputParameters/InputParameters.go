package InputParameters

import (
	"fmt"
	"math"
	"sort"

	"github.com/ghodss/yaml"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/barytrack/mesh"
	"github.com/notargets/barytrack/particle"
)

// Parameters obtained from the YAML case file
type InputParameters struct {
	Title           string                     `json:"Title"`
	MeshFile        string                     `json:"MeshFile"` // SU2 (.su2) or Gmsh (.msh) mesh, used when Block is absent
	Block           *BlockParameters           `json:"Block"`
	Patches         map[string]PatchParameters `json:"Patches"` // Keyed by boundary marker
	Seeds           []SeedParameters           `json:"Seeds"`
	DeltaT          float64                    `json:"DeltaT"`
	Steps           int                        `json:"Steps"`
	WriteInterval   int                        `json:"WriteInterval"` // Steps between position dumps, 0 for none
	NumPartitions   int                        `json:"NumPartitions"`
	WallInteraction string                     `json:"WallInteraction"` // rebound, stick or escape
	PositionMode    string                     `json:"PositionMode"`    // barycentric or cartesian ASCII output
	Tolerances      *ToleranceParameters       `json:"Tolerances"`
}

type BlockParameters struct {
	Min   [3]float64 `json:"Min"`
	Max   [3]float64 `json:"Max"`
	Cells [3]int     `json:"Cells"` // Hexahedra along each axis
}

type PatchParameters struct {
	Kind      string `json:"Kind"`
	Neighbour string `json:"Neighbour"`
	// Separation and Rotation map this patch onto Neighbour
	Separation     *[3]float64 `json:"Separation"`
	RotationAxis   *[3]float64 `json:"RotationAxis"`
	RotationAngle  float64     `json:"RotationAngle"` // Degrees
	RotationOrigin [3]float64  `json:"RotationOrigin"`
	Normal         [3]float64  `json:"Normal"`
}

// SeedParameters places Count tracers along a line from Position, Spacing
// apart
type SeedParameters struct {
	Position [3]float64 `json:"Position"`
	U        [3]float64 `json:"U"`
	Count    int        `json:"Count"`
	Spacing  [3]float64 `json:"Spacing"`
}

// ToleranceParameters override individual tracking tolerances
type ToleranceParameters struct {
	Small     *float64 `json:"Small"`
	Tie       *float64 `json:"Tie"`
	MinStep   *float64 `json:"MinStep"`
	MaxStalls *int     `json:"MaxStalls"`
}

// Seed is one tracer to inject
type Seed struct {
	Position, U r3.Vec
}

func (ip *InputParameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, ip); err != nil {
		return err
	}
	if ip.NumPartitions == 0 {
		ip.NumPartitions = 1
	}
	return ip.Validate()
}

func (ip *InputParameters) Validate() error {
	if ip.DeltaT <= 0 {
		return fmt.Errorf("time step DeltaT must be positive, got %g", ip.DeltaT)
	}
	if ip.Steps < 0 || ip.WriteInterval < 0 || ip.NumPartitions < 1 {
		return fmt.Errorf("negative Steps, WriteInterval or NumPartitions")
	}
	if ip.Block != nil && ip.MeshFile != "" {
		return fmt.Errorf("both Block and MeshFile given, choose one")
	}
	if ip.Block != nil {
		for _, n := range ip.Block.Cells {
			if n < 1 {
				return fmt.Errorf("block Cells needs at least one cell per axis, got %v", ip.Block.Cells)
			}
		}
	}
	for name, pp := range ip.Patches {
		if pp.Kind == "" {
			return fmt.Errorf("patch %s has no Kind", name)
		}
		if pp.Separation != nil && pp.RotationAxis != nil {
			return fmt.Errorf("patch %s: give either Separation or a rotation", name)
		}
	}
	for i, s := range ip.Seeds {
		if s.Count < 0 {
			return fmt.Errorf("seed %d has a negative Count", i)
		}
	}
	return nil
}

func (ip *InputParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	if ip.Block != nil {
		fmt.Printf("%v - %v, %v\t= Block\n", ip.Block.Min, ip.Block.Max, ip.Block.Cells)
	} else {
		fmt.Printf("[%s]\t\t= MeshFile\n", ip.MeshFile)
	}
	fmt.Printf("%8.5f\t\t= DeltaT\n", ip.DeltaT)
	fmt.Printf("[%d]\t\t\t\t= Steps\n", ip.Steps)
	fmt.Printf("[%d]\t\t\t\t= NumPartitions\n", ip.NumPartitions)
	fmt.Printf("[%s]\t\t\t= WallInteraction\n", ip.WallInteraction)
	fmt.Printf("[%d]\t\t\t\t= Seeded tracers\n", len(ip.SeedPoints()))
	keys := make([]string, len(ip.Patches))
	i := 0
	for k := range ip.Patches {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("Patches[%s] = %+v\n", key, ip.Patches[key])
	}
}

func vec(v [3]float64) r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

func (bp *BlockParameters) BlockSpec() mesh.BlockSpec {
	return mesh.BlockSpec{Min: vec(bp.Min), Max: vec(bp.Max), N: bp.Cells}
}

// PatchSpecs converts the patch entries, sorted by marker name
func (ip *InputParameters) PatchSpecs() []mesh.PatchSpec {
	names := make([]string, 0, len(ip.Patches))
	for name := range ip.Patches {
		names = append(names, name)
	}
	sort.Strings(names)
	specs := make([]mesh.PatchSpec, 0, len(names))
	for _, name := range names {
		pp := ip.Patches[name]
		spec := mesh.PatchSpec{
			Name:      name,
			Kind:      mesh.ParsePatchKind(pp.Kind),
			Neighbour: pp.Neighbour,
			Normal:    vec(pp.Normal),
		}
		switch {
		case pp.RotationAxis != nil:
			t := mesh.RotationTransform(vec(*pp.RotationAxis), pp.RotationAngle*math.Pi/180, vec(pp.RotationOrigin))
			spec.Transform = &t
		case pp.Separation != nil:
			spec.Transform = &mesh.CoupledTransform{Separation: vec(*pp.Separation)}
		}
		specs = append(specs, spec)
	}
	return specs
}

// SeedPoints expands the seed lines. A zero Count places one tracer.
func (ip *InputParameters) SeedPoints() (seeds []Seed) {
	for _, s := range ip.Seeds {
		n := max(s.Count, 1)
		for i := 0; i < n; i++ {
			seeds = append(seeds, Seed{
				Position: r3.Add(vec(s.Position), r3.Scale(float64(i), vec(s.Spacing))),
				U:        vec(s.U),
			})
		}
	}
	return
}

// ApplyTolerances overrides the fields of base given in the case file
func (ip *InputParameters) ApplyTolerances(base particle.Tolerances) particle.Tolerances {
	tp := ip.Tolerances
	if tp == nil {
		return base
	}
	if tp.Small != nil {
		base.Small = *tp.Small
	}
	if tp.Tie != nil {
		base.Tie = *tp.Tie
	}
	if tp.MinStep != nil {
		base.MinStep = *tp.MinStep
	}
	if tp.MaxStalls != nil {
		base.MaxStalls = *tp.MaxStalls
	}
	return base
}
