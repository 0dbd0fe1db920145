package particle

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestBinaryRecord(t *testing.T) {
	m := newBlock(t, [3]int{2, 1, 1}, r3.Vec{X: 2, Y: 1, Z: 1}, nil)
	p := newAt(t, m, r3.Vec{X: 0.3, Y: 0.45, Z: 0.55})
	p.Track(r3.Vec{X: 0.2}, 0.25)
	p.SetProperties(&testProps{U: r3.Vec{X: 1, Y: -2, Z: 3}, Origin: r3.Vec{Z: 0.5}})

	data, err := p.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, RecordHeaderSize+4+48, len(data))

	dec := Decoder{Mesh: m, NewProperties: newTestProps}
	q, err := dec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, p.Coordinates(), q.Coordinates())
	assert.Equal(t, p.CurrentTetIndices(), q.CurrentTetIndices())
	assert.Equal(t, p.Face(), q.Face())
	assert.Equal(t, p.StepFraction(), q.StepFraction())
	assert.Equal(t, p.OrigProc(), q.OrigProc())
	assert.Equal(t, p.OrigID(), q.OrigID())
	assert.Equal(t, p.Properties(), q.Properties())

	{ // Test records without properties
		p.SetProperties(nil)
		data, err := p.MarshalBinary()
		require.NoError(t, err)
		q, err := (&Decoder{Mesh: m}).Decode(data)
		require.NoError(t, err)
		assert.Nil(t, q.Properties())
	}
	{ // Test a stream of records
		var buf bytes.Buffer
		for i := 0; i < 3; i++ {
			r := newAt(t, m, r3.Vec{X: 0.2 + 0.5*float64(i), Y: 0.5, Z: 0.5})
			data, err := r.MarshalBinary()
			require.NoError(t, err)
			buf.Write(data)
		}
		dec := Decoder{Mesh: m}
		for i := 0; i < 3; i++ {
			r, err := dec.DecodeFrom(&buf)
			require.NoError(t, err)
			assert.InDelta(t, 0.2+0.5*float64(i), r.Position().X, 1e-12)
		}
		_, err := dec.DecodeFrom(&buf)
		assert.Error(t, err)
	}
	{ // Test damaged records
		_, err := dec.Decode(data[:RecordHeaderSize-1])
		assert.Error(t, err)
		_, err = dec.Decode(data[:len(data)-1])
		assert.Error(t, err)
		_, err = dec.Decode(append(data, 0))
		assert.Error(t, err)
		_, err = (&Decoder{Mesh: m}).Decode(data)
		assert.Error(t, err)
	}
	{ // Test a huge properties length is refused before allocating
		huge := append([]byte{}, data[:RecordHeaderSize]...)
		huge = binary.LittleEndian.AppendUint32(huge, math.MaxUint32)
		_, err := dec.Decode(huge)
		assert.ErrorContains(t, err, "exceeds")
	}
}

func TestASCIIRecord(t *testing.T) {
	m := newBlock(t, [3]int{2, 1, 1}, r3.Vec{X: 2, Y: 1, Z: 1}, nil)
	p := newAt(t, m, r3.Vec{X: 1.25, Y: 0.5, Z: 0.75})
	p.SetStepFraction(0.5)
	p.SetProperties(&testProps{U: r3.Vec{X: 1, Y: 0.5}, Origin: r3.Vec{X: -1}})
	dec := Decoder{Mesh: m, NewProperties: newTestProps}

	{ // Test the barycentric record
		line := p.String()
		assert.True(t, strings.HasPrefix(line, "("))
		assert.True(t, strings.HasSuffix(line, "(1 0.5 0) (-1 0 0)"))
		q, err := dec.ParseASCII(line, Barycentric)
		require.NoError(t, err)
		assert.Equal(t, p.Coordinates(), q.Coordinates())
		assert.Equal(t, p.CurrentTetIndices(), q.CurrentTetIndices())
		assert.Equal(t, 0.5, q.StepFraction())
		assert.True(t, Equal(p, q))
		assert.Equal(t, p.Properties(), q.Properties())
	}
	{ // Test the Cartesian record
		var buf bytes.Buffer
		require.NoError(t, p.WriteASCII(&buf, Cartesian))
		line := buf.String()
		var x r3.Vec
		var celli int
		_, err := fmt.Sscanf(line, "(%g %g %g) %d", &x.X, &x.Y, &x.Z, &celli)
		require.NoError(t, err)
		assertVecInDelta(t, r3.Vec{X: 1.25, Y: 0.5, Z: 0.75}, x, 1e-12)
		assert.Equal(t, 1, celli)
		q, err := dec.ParseASCII(line, Cartesian)
		require.NoError(t, err)
		assertVecInDelta(t, p.Position(), q.Position(), 1e-12)
		assert.Equal(t, 1, q.Cell())
		assert.Equal(t, p.OrigID(), q.OrigID())
	}
	{ // Test the position record
		var buf bytes.Buffer
		require.NoError(t, p.WritePosition(&buf, Barycentric))
		y := p.Coordinates()
		assert.Equal(t, fmt.Sprintf("(%s %s %s %s) 1\n",
			formatFloat(y[0]), formatFloat(y[1]), formatFloat(y[2]), formatFloat(y[3])), buf.String())
	}
	{ // Test malformed records
		for _, line := range []string{
			"",
			"1 2 3",
			"(0.1 0.2 0.3",
			"(0.1 0.2 0.3 0.4) 0 1",
			"(0.1 0.2 0.3) 0 1 1 -1 0 0 1",
			"(0.1 0.2 x 0.4) 0 1 1 -1 0 0 1",
			"(0.1 0.2 0.3 0.4) 0 a 1 -1 0 0 1",
			"(0.1 0.2 0.3 0.4) 0 1 1 -1 0 0 1 (1 2)",
		} {
			_, err := dec.ParseASCII(line, Barycentric)
			assert.Error(t, err, line)
		}
	}
	assert.Equal(t, "(Px Py Pz) celli tetFacei tetPti facei stepFraction origProc origId", PropertyList)
}

func TestParsePositionMode(t *testing.T) {
	for name, want := range map[string]PositionMode{"": Barycentric, "Barycentric": Barycentric, "cartesian": Cartesian} {
		mode, err := ParsePositionMode(name)
		require.NoError(t, err)
		assert.Equal(t, want, mode)
	}
	_, err := ParsePositionMode("polar")
	assert.Error(t, err)
}
