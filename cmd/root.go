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
	"fmt"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/barytrack/particle"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "barytrack",
	Short: "Barycentric particle tracking through polyhedral meshes",
	Long: `
Tracks passive tracers through polyhedral meshes built from blocks or SU2 files,
with walls, symmetry, periodic couplings and partitioned runs.

barytrack track -I case.yaml`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.barytrack.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "log degenerate tracking events")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	tol := particle.DefaultTolerances
	viper.SetDefault("tracking.small", tol.Small)
	viper.SetDefault("tracking.tie", tol.Tie)
	viper.SetDefault("tracking.minStep", tol.MinStep)
	viper.SetDefault("tracking.maxStalls", tol.MaxStalls)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".barytrack" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".barytrack")
	}

	viper.SetEnvPrefix("barytrack")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// configuredTolerances reads the tracking tolerances from the config
func configuredTolerances() particle.Tolerances {
	return particle.Tolerances{
		Small:     viper.GetFloat64("tracking.small"),
		Tie:       viper.GetFloat64("tracking.tie"),
		MinStep:   viper.GetFloat64("tracking.minStep"),
		MaxStalls: viper.GetInt("tracking.maxStalls"),
	}
}
