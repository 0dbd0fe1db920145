/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/barytrack/InputParameters"
	"github.com/notargets/barytrack/cloud"
	"github.com/notargets/barytrack/mesh"
	"github.com/notargets/barytrack/particle"
)

type TrackCase struct {
	GridFile  string
	ICFile    string
	OutputDir string
	Profile   string // cpu, mem or empty
	Quiet     bool
}

// TrackCmd represents the track command
var TrackCmd = &cobra.Command{
	Use:   "track",
	Short: "Track tracers through a mesh and write their positions",
	Long:  `Track tracers through a block, SU2 or Gmsh mesh, optionally split into partitions, and write their positions`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		tc := &TrackCase{}
		if tc.GridFile, err = cmd.Flags().GetString("gridFile"); err != nil {
			panic(err)
		}
		if tc.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			panic(err)
		}
		tc.OutputDir, _ = cmd.Flags().GetString("output")
		tc.Profile, _ = cmd.Flags().GetString("profile")
		ip := processInput(tc)
		if err = RunTrack(context.Background(), tc, ip); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(TrackCmd)
	TrackCmd.Flags().StringP("gridFile", "F", "", "Grid file to read in SU2 (.su2) or Gmsh (.msh) format, overrides MeshFile")
	TrackCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for case parameters like:\n\t- Block or MeshFile\n\t- Seeds\n\t- DeltaT, Steps")
	TrackCmd.Flags().StringP("output", "o", ".", "directory for position dumps and particle fields")
	TrackCmd.Flags().String("profile", "", "write a cpu or mem profile to the output directory")
}

const exampleCase = `
########################################
Title: "Test Case"
Block:
  Max: [2, 1, 1]
  Cells: [4, 2, 2]
Patches:
  xmax: {Kind: cyclic, Neighbour: xmin, Separation: [-2, 0, 0]}
  xmin: {Kind: cyclic, Neighbour: xmax}
Seeds:
  - {Position: [0.1, 0.4, 0.3], U: [1, 0.1, 0]}
DeltaT: 0.1
Steps: 100
WallInteraction: rebound # Can be "stick" or "escape"
########################################
`

func processInput(tc *TrackCase) (ip *InputParameters.InputParameters) {
	var (
		err error
	)
	if len(tc.ICFile) == 0 {
		err = fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		fmt.Printf("Example File:%s\n", exampleCase)
		os.Exit(1)
	}
	var data []byte
	if data, err = os.ReadFile(tc.ICFile); err != nil {
		panic(err)
	}
	ip = &InputParameters.InputParameters{}
	if err = ip.Parse(data); err != nil {
		fmt.Printf("error: %s: %s\n", tc.ICFile, err.Error())
		os.Exit(1)
	}
	return
}

// BuildMesh generates the block or reads the mesh file of the case and
// builds the polyhedral mesh with its patches
func BuildMesh(tc *TrackCase, ip *InputParameters.InputParameters) (*mesh.PolyMesh, error) {
	var (
		em  *mesh.ElementMesh
		err error
	)
	gridFile := tc.GridFile
	if gridFile == "" {
		gridFile = ip.MeshFile
	}
	switch {
	case gridFile != "":
		em, err = mesh.ReadMeshFile(gridFile)
	case ip.Block != nil:
		em, err = mesh.NewBlockMesh(ip.Block.BlockSpec())
	default:
		err = fmt.Errorf("no mesh: supply a Block, a MeshFile or a grid file (-F)")
	}
	if err != nil {
		return nil, err
	}
	if !tc.Quiet {
		em.PrintStatistics()
	}
	return em.BuildPolyMesh(ip.PatchSpecs())
}

// RunTrack runs the case: seeds the tracers, evolves them for the requested
// steps and writes the particle fields of every partition
func RunTrack(ctx context.Context, tc *TrackCase, ip *InputParameters.InputParameters) error {
	switch tc.Profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(tc.OutputDir), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(tc.OutputDir), profile.Quiet).Stop()
	default:
		return fmt.Errorf("unknown profile %q, want cpu or mem", tc.Profile)
	}
	if err := particle.SetTolerances(ip.ApplyTolerances(configuredTolerances())); err != nil {
		return err
	}
	particle.Debug = viper.GetBool("debug")
	interaction, err := cloud.ParseWallInteraction(ip.WallInteraction)
	if err != nil {
		return err
	}
	mode, err := particle.ParsePositionMode(ip.PositionMode)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(tc.OutputDir, 0o755); err != nil {
		return err
	}

	global, err := BuildMesh(tc, ip)
	if err != nil {
		return err
	}
	d, err := mesh.DecomposeUniform(global, ip.NumPartitions)
	if err != nil {
		return err
	}
	if !tc.Quiet {
		global.PrintStatistics()
		ip.Print()
	}
	name := "tracers"
	if ip.Title != "" {
		name = filepath.Base(ip.Title)
	}
	dc := cloud.NewDecomposed(name, d, interaction)
	for _, s := range ip.SeedPoints() {
		if _, err = dc.Seed(global, s.Position, s.U); err != nil {
			return err
		}
	}
	log.Printf("Seeded %d tracers on %d partitions", dc.Len(), d.NProcs())

	start := time.Now()
	for step := 1; step <= ip.Steps; step++ {
		if err = dc.Evolve(ctx, ip.DeltaT); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		if ip.WriteInterval > 0 && step%ip.WriteInterval == 0 {
			log.Printf("Step %d, time %g: %d tracers", step, float64(step)*ip.DeltaT, dc.Len())
			if err = writeClouds(dc, tc.OutputDir, fmt.Sprintf("positions.%06d", step),
				func(c *cloud.Cloud, f *os.File) error { return c.WritePositions(f, mode) }); err != nil {
				return err
			}
		}
	}
	log.Printf("Tracked %d steps in %v", ip.Steps, time.Since(start))

	if err = writeClouds(dc, tc.OutputDir, "fields",
		func(c *cloud.Cloud, f *os.File) error { return c.WriteFields(f) }); err != nil {
		return err
	}
	if err = writeClouds(dc, tc.OutputDir, "ascii",
		func(c *cloud.Cloud, f *os.File) error { return c.WriteASCII(f, mode) }); err != nil {
		return err
	}
	if !tc.Quiet {
		printStats(dc.Stats(), dc.Len())
	}
	return nil
}

func writeClouds(dc *cloud.Decomposed, dir, suffix string, write func(c *cloud.Cloud, f *os.File) error) error {
	for _, c := range dc.Clouds {
		f, err := os.Create(filepath.Join(dir, c.Name+"."+suffix))
		if err != nil {
			return err
		}
		if err = write(c, f); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", f.Name(), err)
		}
		if err = f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func printStats(s cloud.Stats, remaining int) {
	fmt.Printf("Tracer Statistics:\n")
	fmt.Printf("  Injected: %d\n", s.Injected)
	fmt.Printf("  Remaining: %d\n", remaining)
	fmt.Printf("  Rebounds: %d\n", s.Rebounds)
	fmt.Printf("  Stuck: %d\n", s.Stuck)
	fmt.Printf("  Escaped: %d\n", s.Escaped)
	fmt.Printf("  Transfers: %d sent, %d received\n", s.Sent, s.Received)
}
