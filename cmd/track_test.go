package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/barytrack/InputParameters"
)

func TestRunTrack(t *testing.T) {
	fileInput := []byte(`
Title: channel
Block:
  Max: [4, 1, 1]
  Cells: [4, 1, 1]
Seeds:
  - Position: [0.3, 0.45, 0.55]
    U: [1, 0, 0]
DeltaT: 1
Steps: 3
WriteInterval: 1
NumPartitions: 2
PositionMode: cartesian
`)
	var ip InputParameters.InputParameters
	require.NoError(t, ip.Parse(fileInput))
	tc := &TrackCase{OutputDir: t.TempDir(), Quiet: true}
	require.NoError(t, RunTrack(context.Background(), tc, &ip))

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(tc.OutputDir, name))
		require.NoError(t, err)
		return string(data)
	}
	{ // Test the position dumps follow the tracer across partitions
		assert.Equal(t, "", read("channel.proc1.positions.000001"))
		line := read("channel.proc1.positions.000003")
		var x, y, z float64
		var cell int
		_, err := fmt.Sscanf(line, "(%g %g %g) %d", &x, &y, &z, &cell)
		require.NoError(t, err)
		assert.InDelta(t, 3.3, x, 1e-10)
		assert.InDelta(t, 0.45, y, 1e-10)
		assert.Equal(t, 1, cell)
	}
	{ // Test the final fields
		lines := strings.Split(strings.TrimSpace(read("channel.proc1.ascii")), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "// channel.proc1 cartesian"))
		assert.Equal(t, "1", lines[1])
		assert.Contains(t, read("channel.proc0.ascii"), "\n0\n")
		info, err := os.Stat(filepath.Join(tc.OutputDir, "channel.proc1.fields"))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(8))
	}
}

func TestExampleCase(t *testing.T) {
	var ip InputParameters.InputParameters
	require.NoError(t, ip.Parse([]byte(exampleCase)))
	require.NotNil(t, ip.Block)
	assert.Equal(t, [3]int{4, 2, 2}, ip.Block.Cells)
	ip.Steps = 3
	tc := &TrackCase{OutputDir: t.TempDir(), Quiet: true}
	require.NoError(t, RunTrack(context.Background(), tc, &ip))
}

func TestRunTrackErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		tc    TrackCase
	}{
		{"no mesh", "DeltaT: 1\n", TrackCase{}},
		{"missing grid file", "DeltaT: 1\n", TrackCase{GridFile: "does-not-exist.su2"}},
		{"grid format", "DeltaT: 1\n", TrackCase{GridFile: "mesh.neu"}},
		{"wall interaction", "DeltaT: 1\nBlock: {Max: [1, 1, 1], Cells: [1, 1, 1]}\nWallInteraction: bounce\n", TrackCase{}},
		{"position mode", "DeltaT: 1\nBlock: {Max: [1, 1, 1], Cells: [1, 1, 1]}\nPositionMode: polar\n", TrackCase{}},
		{"profile", "DeltaT: 1\nBlock: {Max: [1, 1, 1], Cells: [1, 1, 1]}\n", TrackCase{Profile: "trace"}},
		{"seed outside", "DeltaT: 1\nBlock: {Max: [1, 1, 1], Cells: [1, 1, 1]}\nSeeds: [{Position: [2, 0.5, 0.5]}]\n", TrackCase{}},
		{"tolerances", "DeltaT: 1\nBlock: {Max: [1, 1, 1], Cells: [1, 1, 1]}\nTolerances: {MinStep: 2}\n", TrackCase{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ip InputParameters.InputParameters
			require.NoError(t, ip.Parse([]byte(tt.input)))
			tc := tt.tc
			tc.OutputDir, tc.Quiet = t.TempDir(), true
			assert.Error(t, RunTrack(context.Background(), &tc, &ip))
		})
	}
}
