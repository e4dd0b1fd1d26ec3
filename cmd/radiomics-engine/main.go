// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the radiomics-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the radiomics-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "radiomics-engine",
	Short: "Batch radiomics feature extraction over imaging cohorts",
	Long: `radiomics-engine drives an external radiomics tool over a cohort of
imaging volumes and ROI mask files, writing one flat-text feature file
per participant.

Each stage is a subcommand: check validates the cohort inputs before a
run, extract walks the participant list and extracts every labeled
region, and status reports the outcome of the most recent run.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./radiomics-engine.yaml or ~/.config/radiomics-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("radiomics-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "radiomics-engine"))
		}
	}

	viper.SetEnvPrefix("RADIOMICS_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// stringSetting returns the flag value when set on the command line,
// falling back to the config file / environment via viper.
func stringSetting(cmd *cobra.Command, name string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	if viper.IsSet(name) {
		return viper.GetString(name)
	}
	v, _ := cmd.Flags().GetString(name)
	return v
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
