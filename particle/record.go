package particle

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/barytrack/tetrahedra"
)

// PropertyList names the fields of an ASCII particle record
const PropertyList = "(Px Py Pz) celli tetFacei tetPti facei stepFraction origProc origId"

// PositionMode selects how ASCII records hold the position
type PositionMode uint8

const (
	Barycentric PositionMode = iota
	Cartesian
)

func (m PositionMode) String() string {
	return [...]string{"barycentric", "cartesian"}[m]
}

// ParsePositionMode accepts "barycentric" or "cartesian", in any case. The
// empty name is Barycentric.
func ParsePositionMode(name string) (PositionMode, error) {
	switch strings.ToLower(name) {
	case "", "barycentric":
		return Barycentric, nil
	case "cartesian":
		return Cartesian, nil
	}
	return 0, fmt.Errorf("unknown position mode %q", name)
}

// recordHeader is the fixed binary part of a particle record
type recordHeader struct {
	Coordinates  [4]float64
	Cell         int64
	TetFace      int64
	TetPt        int64
	Face         int64
	StepFraction float64
	OrigProc     int64
	OrigID       int64
}

// RecordHeaderSize is the byte length of the fixed part of a binary record
var RecordHeaderSize = binary.Size(recordHeader{})

// MaxPropertiesSize bounds the properties block of a binary record so a
// damaged length field cannot demand an arbitrary allocation
const MaxPropertiesSize = 1 << 24

// MaxRecordSize is the byte length of the largest binary record
var MaxRecordSize = RecordHeaderSize + 4 + MaxPropertiesSize

// MarshalBinary encodes the particle as a little-endian record: the header
// followed by the length of the properties block and the block itself
func (p *Particle) MarshalBinary() ([]byte, error) {
	var props []byte
	if p.props != nil {
		var err error
		if props, err = p.props.MarshalBinary(); err != nil {
			return nil, fmt.Errorf("encoding particle %d/%d properties: %w", p.origProc, p.origID, err)
		}
	}
	if len(props) > MaxPropertiesSize {
		return nil, fmt.Errorf("particle %d/%d properties take %d bytes, the limit is %d",
			p.origProc, p.origID, len(props), MaxPropertiesSize)
	}
	var buf bytes.Buffer
	buf.Grow(RecordHeaderSize + 4 + len(props))
	hdr := recordHeader{
		Coordinates:  p.coordinates,
		Cell:         int64(p.cell),
		TetFace:      int64(p.tetFace),
		TetPt:        int64(p.tetPt),
		Face:         int64(p.face),
		StepFraction: p.stepFraction,
		OrigProc:     int64(p.origProc),
		OrigID:       int64(p.origID),
	}
	// Writes to a bytes.Buffer do not fail
	_ = binary.Write(&buf, binary.LittleEndian, &hdr)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(props)))
	buf.Write(props)
	return buf.Bytes(), nil
}

// String formats the particle as an ASCII record in barycentric mode
func (p *Particle) String() string {
	var sb strings.Builder
	_ = p.writeASCII(&sb, Barycentric)
	return sb.String()
}

// WriteASCII writes the ASCII record of the particle followed by a newline
func (p *Particle) WriteASCII(w io.Writer, mode PositionMode) error {
	var sb strings.Builder
	if err := p.writeASCII(&sb, mode); err != nil {
		return err
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

func (p *Particle) writeASCII(sb *strings.Builder, mode PositionMode) error {
	writePosition(sb, p.recordPosition(mode))
	for _, i := range []int{p.cell, p.tetFace, p.tetPt, p.face} {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(i))
	}
	sb.WriteByte(' ')
	sb.WriteString(formatFloat(p.stepFraction))
	fmt.Fprintf(sb, " %d %d", p.origProc, p.origID)
	if p.props != nil {
		text, err := p.props.MarshalText()
		if err != nil {
			return fmt.Errorf("encoding particle %d/%d properties: %w", p.origProc, p.origID, err)
		}
		sb.WriteByte(' ')
		sb.Write(text)
	}
	return nil
}

// WritePosition writes the position and cell of the particle only
func (p *Particle) WritePosition(w io.Writer, mode PositionMode) error {
	var sb strings.Builder
	writePosition(&sb, p.recordPosition(mode))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.cell))
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

func (p *Particle) recordPosition(mode PositionMode) []float64 {
	if mode == Cartesian {
		x := p.Position()
		return []float64{x.X, x.Y, x.Z}
	}
	return p.coordinates[:]
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

func writePosition(sb *strings.Builder, x []float64) {
	sb.WriteByte('(')
	for i, v := range x {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(formatFloat(v))
	}
	sb.WriteByte(')')
}

// Decoder reconstructs particles on Mesh from records. NewProperties makes
// the empty payload a record's properties block decodes into; nil means the
// records carry none.
type Decoder struct {
	Mesh          Mesh
	NewProperties func() Properties
}

// Decode reconstructs a particle from one binary record
func (d *Decoder) Decode(data []byte) (*Particle, error) {
	r := bytes.NewReader(data)
	p, err := d.DecodeFrom(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("particle %d/%d record has %d trailing bytes", p.origProc, p.origID, r.Len())
	}
	return p, nil
}

// DecodeFrom reads one binary record from r
func (d *Decoder) DecodeFrom(r io.Reader) (*Particle, error) {
	var hdr recordHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("reading particle record: %w", err)
	}
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("reading particle properties length: %w", err)
	}
	if n > MaxPropertiesSize {
		return nil, fmt.Errorf("particle properties length %d exceeds %d", n, MaxPropertiesSize)
	}
	p := &Particle{
		mesh:         d.Mesh,
		coordinates:  hdr.Coordinates,
		cell:         int(hdr.Cell),
		tetFace:      int(hdr.TetFace),
		tetPt:        int(hdr.TetPt),
		face:         int(hdr.Face),
		stepFraction: hdr.StepFraction,
		origProc:     int(hdr.OrigProc),
		origID:       int(hdr.OrigID),
	}
	props := make([]byte, n)
	if _, err := io.ReadFull(r, props); err != nil {
		return nil, fmt.Errorf("reading particle %d/%d properties: %w", p.origProc, p.origID, err)
	}
	if err := d.decodeProperties(p, props, false); err != nil {
		return nil, err
	}
	return p, nil
}

func (d *Decoder) decodeProperties(p *Particle, data []byte, text bool) error {
	if d.NewProperties == nil {
		if len(data) != 0 {
			return fmt.Errorf("particle %d/%d carries properties but the decoder has no payload type",
				p.origProc, p.origID)
		}
		return nil
	}
	p.props = d.NewProperties()
	var err error
	if text {
		err = p.props.UnmarshalText(data)
	} else {
		err = p.props.UnmarshalBinary(data)
	}
	if err != nil {
		return fmt.Errorf("decoding particle %d/%d properties: %w", p.origProc, p.origID, err)
	}
	return nil
}

// ParseASCII reconstructs a particle from an ASCII record. A Cartesian
// record is located on the mesh starting from its cell.
func (d *Decoder) ParseASCII(line string, mode PositionMode) (*Particle, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "(") {
		return nil, fmt.Errorf("particle record %q: expected a position", line)
	}
	end := strings.IndexByte(line, ')')
	if end < 0 {
		return nil, fmt.Errorf("particle record %q: unterminated position", line)
	}
	position, err := parseFloats(strings.Fields(line[1:end]))
	if err != nil {
		return nil, fmt.Errorf("particle record %q: %w", line, err)
	}
	want := 4
	if mode == Cartesian {
		want = 3
	}
	if len(position) != want {
		return nil, fmt.Errorf("particle record %q: %s position has %d components, want %d",
			line, mode, len(position), want)
	}

	rest := strings.TrimSpace(line[end+1:])
	fields := strings.SplitN(rest, " ", 8)
	if len(fields) < 7 {
		return nil, fmt.Errorf("particle record %q: want %s", line, PropertyList)
	}
	var ints [6]int
	for i, j := range []int{0, 1, 2, 3, 5, 6} {
		if ints[i], err = strconv.Atoi(fields[j]); err != nil {
			return nil, fmt.Errorf("particle record %q: %w", line, err)
		}
	}
	stepFraction, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return nil, fmt.Errorf("particle record %q: %w", line, err)
	}

	p := &Particle{
		mesh:         d.Mesh,
		cell:         ints[0],
		tetFace:      ints[1],
		tetPt:        ints[2],
		face:         ints[3],
		stepFraction: stepFraction,
		origProc:     ints[4],
		origID:       ints[5],
	}
	var props []byte
	if len(fields) == 8 {
		props = []byte(strings.TrimSpace(fields[7]))
	}
	if err := d.decodeProperties(p, props, true); err != nil {
		return nil, err
	}

	if mode == Barycentric {
		p.coordinates = tetrahedra.Barycentric(position)
		return p, nil
	}
	x := r3.Vec{X: position[0], Y: position[1], Z: position[2]}
	if err := p.Locate(x, nil, p.cell, false,
		"Particle record with a location outside of the mesh"); err != nil {
		return nil, fmt.Errorf("particle record %q: %w", line, err)
	}
	return p, nil
}

func parseFloats(fields []string) ([]float64, error) {
	x := make([]float64, len(fields))
	for i, s := range fields {
		var err error
		if x[i], err = strconv.ParseFloat(s, 64); err != nil {
			return nil, err
		}
	}
	return x, nil
}
